package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hitarthk9/ai-bug-reporter/report"
	"github.com/hitarthk9/ai-bug-reporter/tracker"
)

// SessionBundle is report.json: the run summary next to the raw artifacts.
type SessionBundle struct {
	SessionID   string          `json:"session_id"`
	RunID       string          `json:"run_id"`
	Video       string          `json:"video"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     string          `json:"summary"`
	Issues      []tracker.Issue `json:"issues,omitempty"`
	Report      report.Report   `json:"report"`
}

func mkSessionDir(outputsRoot string, now time.Time) (string, string, error) {
	sid := "session_" + now.Format("20060102-150405")
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes the session bundle, including a copy of every clip under
// its bug_<n>_<summary>.mp4 name, and returns its directory. Nothing reads
// it back; it is for the operator.
func persist(outputsRoot string, now time.Time, res *Result) (string, error) {
	sid, outDir, err := mkSessionDir(outputsRoot, now)
	if err != nil {
		return "", err
	}

	if err = os.WriteFile(filepath.Join(outDir, "transcript.txt"), []byte(res.Transcript+"\n"), 0o644); err != nil {
		return "", err
	}
	if err = writeJSON(filepath.Join(outDir, "bugs.json"), res.Bugs); err != nil {
		return "", err
	}
	if err = writeJSON(filepath.Join(outDir, "clips.json"), res.Clips); err != nil {
		return "", err
	}

	for _, c := range res.Clips {
		if err = copyFile(filepath.Join(outDir, c.Name), c.Path); err != nil {
			return "", fmt.Errorf("copy clip %d: %w", c.Index+1, err)
		}
	}

	bundle := SessionBundle{
		SessionID:   sid,
		RunID:       res.RunID,
		Video:       res.Video,
		GeneratedAt: now.UTC(),
		Summary:     res.Summary,
		Issues:      res.Issues,
		Report:      res.Report,
	}
	if err = writeJSON(filepath.Join(outDir, "report.json"), bundle); err != nil {
		return "", err
	}
	return outDir, nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
