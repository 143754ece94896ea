package analysis

import "strings"

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority is case-insensitive; anything unrecognised reads as Medium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// BugRecord is one bug reported by the model. List order is the model's
// order; nothing guarantees chronological or non-overlapping ranges.
type BugRecord struct {
	Summary     string   `json:"summary" yaml:"summary"`
	Description string   `json:"description" yaml:"description"`
	Priority    Priority `json:"priority" yaml:"priority"`
	StartSec    float64  `json:"start_sec" yaml:"start_sec"`
	// EndSec is nil when the model left it out.
	EndSec *float64 `json:"end_sec,omitempty" yaml:"end_sec,omitempty"`
}

type Candidate struct {
	Second int    `json:"second" yaml:"second"`
	Reason string `json:"reason" yaml:"reason"`
}

// CandidateReport is the output of the candidate-seconds pass.
type CandidateReport struct {
	Candidates []Candidate `json:"candidates" yaml:"candidates"`
	Notes      string      `json:"notes" yaml:"notes"`
}

func parsingFailed() CandidateReport {
	return CandidateReport{Candidates: []Candidate{}, Notes: "Parsing failed"}
}
