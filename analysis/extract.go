package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultTemperature   = 0.2
	DefaultMaxTranscript = 6000
)

const bugSystemPrompt = "You are an expert QA Bug Reporter that analyzes transcripts to identify bugs and their time ranges."

const bugInstructions = `You are analyzing a timestamped transcript from a QA video to identify bugs.

Tasks:
1) Identify distinct bugs/issues from the transcript.
2) For each bug, determine the time range where it occurs (start_sec and end_sec).
3) For each bug, produce a JSON entry with:
   - summary: Brief bug title
   - description: Expected vs actual behavior, steps to reproduce
   - priority: High/Medium/Low
   - start_sec: Start time in seconds (float)
   - end_sec: End time in seconds (float)

Output STRICT JSON array only. Example:
[
  {
    "summary": "Login button unresponsive",
    "description": "Expected: ... Actual: ... Steps: ...",
    "priority": "High",
    "start_sec": 9.0,
    "end_sec": 12.0
  }
]`

const candidateSystemPrompt = "You are a meticulous QA Bug Triage assistant."

const candidateInstructions = `You are a QA assistant. Analyze this timestamped transcript and identify the likely moments where a bug or unexpected behavior occurs.
Return STRICT JSON with:
{
  "candidates": [{ "second": <int>, "reason": "<why this moment is suspicious>" }],
  "notes": "<short high-level synopsis>"
}`

// Extractor asks a chat model for bugs in a timestamped transcript.
type Extractor struct {
	Model       ChatModel
	ModelName   string
	Temperature float64
	// MaxTranscript caps the transcript in characters; the cut is blind to content.
	MaxTranscript int
	Log           logrus.FieldLogger
}

func NewExtractor(m ChatModel, modelName string) *Extractor {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Extractor{
		Model:         m,
		ModelName:     modelName,
		Temperature:   DefaultTemperature,
		MaxTranscript: DefaultMaxTranscript,
	}
}

// Bugs returns the bugs the model found. Only the model call can fail;
// malformed output degrades to an empty list.
func (e *Extractor) Bugs(ctx context.Context, timestamped string) ([]BugRecord, error) {
	text := truncateRunes(timestamped, e.MaxTranscript)
	raw, err := e.complete(ctx, bugSystemPrompt, bugInstructions+"\n\nTranscript (timestamped):\n"+text)
	if err != nil {
		return nil, fmt.Errorf("extract bugs: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		raw = "[]"
	}

	bugs := ParseBugs(raw)
	e.log().WithFields(logrus.Fields{"bugs": len(bugs), "response_bytes": len(raw)}).Info("bug extraction done")
	return bugs, nil
}

// Candidates runs the candidate-seconds pass over the full transcript.
func (e *Extractor) Candidates(ctx context.Context, timestamped string) (CandidateReport, error) {
	raw, err := e.complete(ctx, candidateSystemPrompt, candidateInstructions+"\n\nTranscript (timestamped):\n"+timestamped)
	if err != nil {
		return CandidateReport{}, fmt.Errorf("find candidates: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	rep := ParseCandidates(raw)
	e.log().WithField("candidates", len(rep.Candidates)).Info("candidate extraction done")
	return rep, nil
}

func (e *Extractor) complete(ctx context.Context, system, user string) (string, error) {
	if e.Model == nil {
		return "", fmt.Errorf("no chat model configured")
	}
	e.log().WithFields(logrus.Fields{"model": e.ModelName, "prompt_chars": utf8.RuneCountInString(user)}).Debug("calling chat model")
	return e.Model.Complete(ctx, ChatRequest{
		Model: e.ModelName,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: e.Temperature,
	})
}

func (e *Extractor) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.StandardLogger()
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
