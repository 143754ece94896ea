package orchestrator

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hitarthk9/ai-bug-reporter/analysis"
	"github.com/hitarthk9/ai-bug-reporter/report"
)

const (
	DefaultPadding   = 2.0
	DefaultClipLen   = 5.0
	clipNameSummaryN = 30
)

// Window pads a bug's range. A missing end means start+defaultLen and an
// inverted range collapses to its start before padding.
func Window(b analysis.BugRecord, padding, defaultLen float64) ClipWindow {
	start := b.StartSec
	end := start + defaultLen
	if b.EndSec != nil {
		end = *b.EndSec
	}
	if end < start {
		end = start
	}

	w := ClipWindow{StartSec: math.Max(0, start-padding), EndSec: end + padding}
	if w.EndSec < w.StartSec {
		w.EndSec = w.StartSec
	}
	return w
}

// planClips cuts one clip per bug. A failed cut is a warning and the bug
// simply goes without a clip.
func (p *Pipeline) planClips(ctx context.Context, log logrus.FieldLogger, video string, bugs []analysis.BugRecord) ([]Clip, report.Report) {
	clips := make([]Clip, 0, len(bugs))
	var rep report.Report
	for i, b := range bugs {
		w := Window(b, p.padding, p.defaultLen)
		path, err := p.cut(ctx, video, w)
		if err != nil {
			log.WithField("bug", i).WithError(err).Warn("clip extraction failed")
			rep.Warnf("Failed to extract clip for bug %d: %v", i+1, err)
			continue
		}

		c := Clip{Index: i, Path: path, Name: clipName(i, b.Summary), Window: w}
		if info, err := os.Stat(path); err == nil {
			c.Bytes = info.Size()
		}
		log.WithFields(logrus.Fields{"bug": i, "clip": path, "bytes": c.Bytes}).Debug("clip extracted")
		clips = append(clips, c)
	}
	return clips, rep
}

// cut turns a panic inside the extractor into an error for this clip only.
func (p *Pipeline) cut(ctx context.Context, video string, w ClipWindow) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path, err = "", fmt.Errorf("clip extraction panicked: %v", r)
		}
	}()
	return p.media.ExtractClip(ctx, video, w.StartSec, w.EndSec)
}

var clipNameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// clipName is bug_<n>_<summary>.mp4, the name a clip gets in the session
// bundle.
func clipName(idx int, summary string) string {
	if strings.TrimSpace(summary) == "" {
		summary = "clip"
	}
	r := []rune(summary)
	if len(r) > clipNameSummaryN {
		r = r[:clipNameSummaryN]
	}
	return fmt.Sprintf("bug_%d_%s.mp4", idx+1, clipNameReplacer.Replace(string(r)))
}
