package tracker

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"lukechampine.com/blake3"

	"github.com/hitarthk9/ai-bug-reporter/clients"
)

const (
	mib = 1 << 20

	DefaultMaxRetries = 3
	DefaultMaxBytes   = 10 * mib

	minAttemptTimeout = 60
	maxAttemptTimeout = 300
)

// Attacher posts one attachment to an existing issue.
type Attacher interface {
	AttachFile(ctx context.Context, issueKey, filename string, r io.Reader) (*clients.TrackerResponse, error)
}

// Outcome is the result of an upload. Message is empty on success and
// otherwise explains the terminal failure or the last retry error.
type Outcome struct {
	OK       bool   `json:"ok" yaml:"ok"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Digest   string `json:"blake3,omitempty" yaml:"blake3,omitempty"`
}

func failed(msg string) Outcome { return Outcome{Message: msg} }

type Uploader struct {
	Tracker    Attacher
	MaxRetries int
	MaxBytes   int64

	// Sleep waits between attempts; tests replace it to observe the backoff.
	Sleep func(time.Duration)
	Log   logrus.FieldLogger
}

func NewUploader(t Attacher, maxRetries int, maxBytes int64) *Uploader {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{Tracker: t, MaxRetries: maxRetries, MaxBytes: maxBytes, Sleep: time.Sleep}
}

type preflight struct {
	size     int64
	filename string
	digest   string
}

// Upload validates path and attaches it to issueKey, retrying transient
// failures with exponential backoff. It never returns an error.
func (u *Uploader) Upload(ctx context.Context, issueKey, path string) Outcome {
	pf, msg := u.validate(path)
	if msg != "" {
		return failed(msg)
	}

	log := u.log().WithFields(logrus.Fields{"issue": issueKey, "file": pf.filename, "bytes": pf.size, "blake3": pf.digest})
	timeout := AttemptTimeout(pf.size)
	retries := u.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	lastErr := ""
	for attempt := 0; attempt < retries; attempt++ {
		resp, err := u.attempt(ctx, issueKey, path, pf.filename, timeout)
		switch {
		case err != nil:
			lastErr = describe(err, attempt, retries)
		case resp.OK():
			log.WithField("attempt", attempt+1).Info("attachment uploaded")
			return Outcome{OK: true, Attempts: attempt + 1, Digest: pf.digest}
		case resp.Status >= 400 && resp.Status < 500:
			msg := fmt.Sprintf("HTTP %d: %s", resp.Status, resp.Snippet())
			log.WithField("status", resp.Status).Error("attachment rejected")
			return Outcome{Message: msg, Attempts: attempt + 1, Digest: pf.digest}
		default:
			lastErr = fmt.Sprintf("HTTP %d: %s", resp.Status, resp.Snippet())
		}

		log.WithField("attempt", attempt+1).Warn(lastErr)
		if ctx.Err() != nil {
			return Outcome{Message: lastErr, Attempts: attempt + 1, Digest: pf.digest}
		}
		if attempt < retries-1 {
			u.sleep(Backoff(attempt))
		}
	}

	if lastErr == "" {
		lastErr = "Upload failed after all retries"
	}
	return Outcome{Message: lastErr, Attempts: retries, Digest: pf.digest}
}

func (u *Uploader) validate(path string) (preflight, string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return preflight{}, "File not found: " + path
	}

	size := info.Size()
	if size == 0 {
		return preflight{}, "File is empty"
	}
	limit := u.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if size > limit {
		return preflight{}, fmt.Sprintf("File too large: %.1fMB (max %gMB)", float64(size)/mib, float64(limit)/mib)
	}

	f, err := os.Open(path)
	if err != nil {
		return preflight{}, "File not found: " + path
	}
	defer f.Close()

	header := make([]byte, 12)
	n, _ := io.ReadFull(f, header)
	if !IsMP4(header[:n]) {
		return preflight{}, "File does not appear to be a valid MP4"
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return preflight{}, fmt.Sprintf("Cannot read file: %v", err)
	}
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return preflight{}, fmt.Sprintf("Cannot read file: %v", err)
	}

	return preflight{size: size, filename: MP4Name(path), digest: hex.EncodeToString(h.Sum(nil))}, ""
}

// attempt re-opens the file so no stream position leaks between retries.
func (u *Uploader) attempt(ctx context.Context, issueKey, path, filename string, timeout time.Duration) (*clients.TrackerResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return u.Tracker.AttachFile(actx, issueKey, filename, f)
}

func (u *Uploader) sleep(d time.Duration) {
	if u.Sleep != nil {
		u.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (u *Uploader) log() logrus.FieldLogger {
	if u.Log != nil {
		return u.Log
	}
	return logrus.StandardLogger()
}

// IsMP4 looks for the ftyp box at byte 4, either bare or behind the common
// 32-byte size prefix.
func IsMP4(header []byte) bool {
	if len(header) >= 8 && string(header[4:8]) == "ftyp" {
		return true
	}
	return len(header) >= 8 && string(header[0:8]) == "\x00\x00\x00\x20ftyp"
}

// MP4Name is the base name of path forced to a .mp4 extension.
func MP4Name(path string) string {
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".mp4") {
		return name
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name + ".mp4"
}

// AttemptTimeout grants one second per MiB, between 60 and 300 seconds.
func AttemptTimeout(size int64) time.Duration {
	sec := size / mib
	if sec < minAttemptTimeout {
		sec = minAttemptTimeout
	}
	if sec > maxAttemptTimeout {
		sec = maxAttemptTimeout
	}
	return time.Duration(sec) * time.Second
}

// Backoff is 2^attempt seconds: 1s, 2s, 4s, ...
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func describe(err error, attempt, retries int) string {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return fmt.Sprintf("Upload timeout (attempt %d/%d)", attempt+1, retries)
	case errors.As(err, &ne):
		return fmt.Sprintf("Network error (attempt %d/%d): %v", attempt+1, retries, err)
	default:
		return fmt.Sprintf("Unexpected error (attempt %d/%d): %v", attempt+1, retries, err)
	}
}
