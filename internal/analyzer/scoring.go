package analyzer

import (
	"fmt"
	"math"
	"strings"

	"phishguard/internal/checks"
	"phishguard/internal/models"
)

// Credit is how much of a check's weight a classification earns.
func Credit(c models.Classification, weight int) float64 {
	switch c {
	case models.Safe:
		return float64(weight)
	case models.Unknown:
		return float64(weight) / 2
	default:
		return 0
	}
}

// Score normalises the earned credit to 0..100. Only executed checks count
// towards totalWeight.
func Score(weighted float64, totalWeight int) int {
	if totalWeight <= 0 {
		return 0
	}
	return int(math.Round(weighted / float64(totalWeight) * 100))
}

// Aggregate collapses per-check results into one status: any malicious
// result wins, then any safe result, otherwise unknown.
func Aggregate(results []models.CheckResult) models.Classification {
	if countOf(results, models.Malicious) > 0 {
		return models.Malicious
	}
	if countOf(results, models.Safe) > 0 {
		return models.Safe
	}
	return models.Unknown
}

func countOf(results []models.CheckResult, c models.Classification) int {
	n := 0
	for _, r := range results {
		if r.Classification == c {
			n++
		}
	}
	return n
}

func summarize(url string, fast []checks.Check, fastResults []models.CheckResult, deep []checks.Check, deepResults []models.CheckResult) models.AnalysisSummary {
	all := make([]models.CheckResult, 0, len(fastResults)+len(deepResults))

	var weighted float64
	totalWeight := 0

	detail := func(list []checks.Check, results []models.CheckResult) []models.CheckDetail {
		out := make([]models.CheckDetail, len(results))
		for i, r := range results {
			c := list[i]
			w := c.Weight()
			totalWeight += w
			weighted += Credit(r.Classification, w)

			if r.Classification != models.Safe && r.DetailedExplanation == "" {
				if e, ok := c.(checks.Explainer); ok {
					r.DetailedExplanation = e.Explain(r)
				}
			}
			all = append(all, r)

			d := models.CheckDetail{
				CheckResult: r,
				Description: c.Description(),
				Weight:      w,
			}
			if rec, ok := c.(checks.Recommender); ok {
				d.Recommendation = rec.Recommend(r)
			}
			out[i] = d
		}
		return out
	}

	fastDetails := detail(fast, fastResults)
	deepDetails := detail(deep, deepResults)

	s := models.AnalysisSummary{
		URL:       url,
		Results:   all,
		Score:     Score(weighted, totalWeight),
		Passed:    countOf(all, models.Safe),
		Malicious: countOf(all, models.Malicious),
		Unknown:   countOf(all, models.Unknown),
		Total:     len(all),
		Status:    Aggregate(all),
		Details: models.Breakdown{
			FastChecks:    fastDetails,
			DeepChecks:    deepDetails,
			TotalWeight:   totalWeight,
			WeightedScore: weighted,
		},
	}
	s.Message = summaryMessage(s.Score, s.Malicious, s.Unknown)
	return s
}

func summaryMessage(score, malicious, unknown int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL analysis complete - %d%% safety score.", score)
	if malicious > 0 {
		fmt.Fprintf(&b, " Found %d security concerns.", malicious)
	}
	if unknown > 0 {
		fmt.Fprintf(&b, " %d checks were inconclusive.", unknown)
	}
	if malicious == 0 && unknown == 0 {
		b.WriteString(" No security issues detected.")
	}
	return b.String()
}
