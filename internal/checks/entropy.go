package checks

import (
	"context"
	"fmt"
	"math"

	"phishguard/internal/models"
)

// MaxEntropy is the highest Shannon entropy (bits per character) a URL may
// have before it is treated as randomly generated.
const MaxEntropy = 4.5

type Entropy struct{}

func (Entropy) Name() string { return "Entropy Analysis" }
func (Entropy) Description() string {
	return "Detects randomly generated or suspicious URLs based on character entropy"
}
func (Entropy) Weight() int  { return 15 }
func (Entropy) IsFast() bool { return true }

func (c Entropy) Evaluate(ctx context.Context, rawURL string) models.CheckResult {
	e := ShannonEntropy(rawURL)
	if e > MaxEntropy {
		return result(c, models.Malicious, fmt.Sprintf("High URL randomness detected (entropy: %.2f)", e))
	}
	return result(c, models.Safe, "Normal URL entropy pattern")
}

// ShannonEntropy computes -Σ p·log2(p) over the characters of s.
func ShannonEntropy(s string) float64 {
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	if total == 0 {
		return 0
	}

	var e float64
	for _, n := range freq {
		p := float64(n) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}

func (Entropy) Recommend(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return "This URL contains unusual random characters, which is often seen in malicious sites."
}

func (Entropy) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return `This URL contains an unusually high amount of random-looking characters.

Legitimate websites tend to use readable words in their addresses. Phishing kits and malware often generate random strings instead, to dodge blocklists or to tag individual victims.

The entropy score for this URL is above the threshold we consider normal for legitimate sites.`
}
