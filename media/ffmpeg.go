package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MinClipDuration keeps ffmpeg from being asked for an empty or negative cut.
const MinClipDuration = 0.1

// Runner executes a command and returns its captured output streams.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	err := cmd.Run()
	return out.Bytes(), stderr.Bytes(), err
}

// ToolError describes a failed ffmpeg invocation with everything needed to
// reproduce it by hand.
type ToolError struct {
	Op       string
	Command  string
	ToolPath string
	Details  string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("ffmpeg %s failed\ncommand: %s\nffmpeg path: %s\ndetails:\n%s", e.Op, e.Command, e.ToolPath, e.Details)
}

func (e *ToolError) Unwrap() error { return e.Err }

type FFmpeg struct {
	// Path is the configured binary, a bare name or an absolute path.
	Path   string
	TmpDir string
	Run    Runner
	Log    logrus.FieldLogger
}

func New(path, tmpDir string) *FFmpeg {
	if strings.TrimSpace(path) == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, TmpDir: tmpDir, Run: execRunner}
}

// ExtractAudio writes mono 16kHz PCM WAV next to the video and returns its path.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	out := videoPath + ".wav"
	args := []string{
		"-y",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		out,
	}
	if err := f.run(ctx, "audio extraction", args); err != nil {
		return "", err
	}
	return out, nil
}

// ExtractClip cuts [startSec, endSec] into a web-friendly H.264/AAC MP4.
func (f *FFmpeg) ExtractClip(ctx context.Context, videoPath string, startSec, endSec float64) (string, error) {
	if !isFinite(startSec) || !isFinite(endSec) {
		return "", fmt.Errorf("ffmpeg clip: range %v-%v is not finite", startSec, endSec)
	}
	dir := f.TmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	out := filepath.Join(dir, "bugclip-"+uuid.NewString()+".mp4")

	duration := endSec - startSec
	if duration < MinClipDuration {
		duration = MinClipDuration
	}

	args := []string{
		"-y",
		"-loglevel", "error",
		"-ss", seconds(startSec),
		"-i", videoPath,
		"-t", seconds(duration),
		// libx264 needs even dimensions
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "28",
		"-pix_fmt", "yuv420p",
		"-b:v", "500k",
		"-c:a", "aac",
		"-b:a", "64k",
		"-movflags", "+faststart",
		out,
	}
	if err := f.run(ctx, "video clip extraction", args); err != nil {
		return "", err
	}
	return out, nil
}

func (f *FFmpeg) run(ctx context.Context, op string, args []string) error {
	tool := f.resolve()
	cmdline := strings.Join(append([]string{tool}, args...), " ")
	f.log().WithField("command", cmdline).Debug("running ffmpeg")

	run := f.Run
	if run == nil {
		run = execRunner
	}
	stdout, stderr, err := run(ctx, tool, args...)
	if err == nil {
		return nil
	}

	details := strings.TrimSpace(string(stderr))
	if details == "" {
		details = strings.TrimSpace(string(stdout))
	}
	if details == "" {
		details = err.Error()
	}
	return &ToolError{Op: op, Command: cmdline, ToolPath: tool, Details: details, Err: err}
}

func (f *FFmpeg) resolve() string {
	name := f.Path
	if name == "" {
		name = "ffmpeg"
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}

func (f *FFmpeg) log() logrus.FieldLogger {
	if f.Log != nil {
		return f.Log
	}
	return logrus.StandardLogger()
}

func seconds(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
