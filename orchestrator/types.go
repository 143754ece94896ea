package orchestrator

import (
	"context"

	"github.com/hitarthk9/ai-bug-reporter/analysis"
	"github.com/hitarthk9/ai-bug-reporter/report"
	"github.com/hitarthk9/ai-bug-reporter/tracker"
	"github.com/hitarthk9/ai-bug-reporter/transcript"
)

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcript.Transcript, error)
}

// Media cuts audio and clips out of the source video.
type Media interface {
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
	ExtractClip(ctx context.Context, videoPath string, startSec, endSec float64) (string, error)
}

type BugExtractor interface {
	Bugs(ctx context.Context, timestamped string) ([]analysis.BugRecord, error)
	Candidates(ctx context.Context, timestamped string) (analysis.CandidateReport, error)
}

type IssueFiler interface {
	File(ctx context.Context, bugs []analysis.BugRecord, clips map[int]string) ([]tracker.Issue, report.Report)
}

// ClipWindow is the padded range cut around one bug.
type ClipWindow struct {
	StartSec float64 `json:"start_sec" yaml:"start_sec"`
	EndSec   float64 `json:"end_sec" yaml:"end_sec"`
}

// Clip is one extracted clip. Path is where the extractor wrote it; Name is
// the file name used when the clip is copied into a session bundle.
type Clip struct {
	Index  int        `json:"index" yaml:"index"`
	Path   string     `json:"path" yaml:"path"`
	Name   string     `json:"name" yaml:"name"`
	Bytes  int64      `json:"bytes" yaml:"bytes"`
	Window ClipWindow `json:"window" yaml:"window"`
}

type RunOptions struct {
	// NoFile stops after clip extraction.
	NoFile bool
	// OutDir, when set, receives a session_<ts> bundle.
	OutDir string
}

// Result is everything one run produced. Report holds every non-fatal
// problem in the order it was met.
type Result struct {
	RunID      string               `json:"run_id" yaml:"run_id"`
	Video      string               `json:"video" yaml:"video"`
	Language   string               `json:"language,omitempty" yaml:"language,omitempty"`
	Transcript string               `json:"transcript" yaml:"transcript"`
	Bugs       []analysis.BugRecord `json:"bugs" yaml:"bugs"`
	Clips      []Clip               `json:"clips" yaml:"clips"`
	Issues     []tracker.Issue      `json:"issues,omitempty" yaml:"issues,omitempty"`
	Report     report.Report        `json:"report" yaml:"report"`
	Summary    string               `json:"summary" yaml:"summary"`
	SessionDir string               `json:"session_dir,omitempty" yaml:"session_dir,omitempty"`
}

// ClipPaths is the index-to-path view the filer consumes.
func (r *Result) ClipPaths() map[int]string {
	out := make(map[int]string, len(r.Clips))
	for _, c := range r.Clips {
		out[c.Index] = c.Path
	}
	return out
}

type CandidatesResult struct {
	RunID      string                   `json:"run_id" yaml:"run_id"`
	Video      string                   `json:"video" yaml:"video"`
	Transcript string                   `json:"transcript" yaml:"transcript"`
	Report     analysis.CandidateReport `json:"report" yaml:"report"`
}
