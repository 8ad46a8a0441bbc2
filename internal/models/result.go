package models

import "time"

type Classification string

const (
	Safe      Classification = "safe"
	Malicious Classification = "malicious"
	Unknown   Classification = "unknown"
)

// ParseClassification maps a stored status string back onto the tri-state.
// Anything unrecognised is Unknown.
func ParseClassification(s string) Classification {
	switch Classification(s) {
	case Safe:
		return Safe
	case Malicious:
		return Malicious
	default:
		return Unknown
	}
}

// Valid reports whether c is one of the three accepted values.
func (c Classification) Valid() bool {
	return c == Safe || c == Malicious || c == Unknown
}

// CheckResult is the outcome of a single check against one URL.
type CheckResult struct {
	Name                string         `json:"name"`
	Message             string         `json:"message"`
	Classification      Classification `json:"type"`
	DetailedExplanation string         `json:"detailedExplanation,omitempty"`
}

// CheckDetail is a CheckResult enriched with the owning check's metadata.
type CheckDetail struct {
	CheckResult
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
	Weight         int    `json:"weight"`
}

type Breakdown struct {
	FastChecks    []CheckDetail `json:"fastChecks"`
	DeepChecks    []CheckDetail `json:"deepChecks"`
	TotalWeight   int           `json:"totalWeight"`
	WeightedScore float64       `json:"weightedScore"`
}

type AnalysisSummary struct {
	URL       string         `json:"url"`
	Results   []CheckResult  `json:"results"`
	Score     int            `json:"score"`
	Passed    int            `json:"passed"`
	Malicious int            `json:"malicious"`
	Unknown   int            `json:"unknown"`
	Total     int            `json:"total"`
	Status    Classification `json:"status"`
	EarlyExit bool           `json:"earlyExit,omitempty"`
	Message   string         `json:"message"`
	Details   Breakdown      `json:"details"`
	Duration  string         `json:"duration,omitempty"`
}

// Verdict is the single stored classification for a canonical URL.
type Verdict struct {
	URL         string         `json:"url"`
	Status      Classification `json:"status"`
	LastChecked time.Time      `json:"lastChecked"`
}

type ScanDetails struct {
	Harmless   int `json:"harmless"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
}

// ScanResponse is the reduced projection handed to browser-side callers.
type ScanResponse struct {
	IsSafe  bool         `json:"isSafe"`
	Message string       `json:"message"`
	Details *ScanDetails `json:"details,omitempty"`
}
