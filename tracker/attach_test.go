package tracker

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hitarthk9/ai-bug-reporter/clients"
)

type attachCall struct {
	key, filename string
	data          []byte
}

type fakeAttacher struct {
	replies []func() (*clients.TrackerResponse, error)
	calls   []attachCall
}

func (f *fakeAttacher) AttachFile(ctx context.Context, issueKey, filename string, r io.Reader) (*clients.TrackerResponse, error) {
	data, _ := io.ReadAll(r)
	f.calls = append(f.calls, attachCall{key: issueKey, filename: filename, data: data})
	reply := f.replies[len(f.calls)-1]
	return reply()
}

func status(code int, body string) func() (*clients.TrackerResponse, error) {
	return func() (*clients.TrackerResponse, error) {
		return &clients.TrackerResponse{Status: code, Body: []byte(body)}, nil
	}
}

func fail(err error) func() (*clients.TrackerResponse, error) {
	return func() (*clients.TrackerResponse, error) { return nil, err }
}

func writeMP4(t *testing.T, name string, size int) string {
	t.Helper()
	data := make([]byte, size)
	copy(data, "\x00\x00\x00\x20ftypisom")
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestUploader(a Attacher) (*Uploader, *[]time.Duration) {
	var slept []time.Duration
	u := NewUploader(a, 3, DefaultMaxBytes)
	u.Sleep = func(d time.Duration) { slept = append(slept, d) }
	return u, &slept
}

func TestUploadValidationFailsWithoutCalls(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	_ = os.WriteFile(empty, nil, 0o644)
	notVideo := filepath.Join(dir, "notes.mp4")
	_ = os.WriteFile(notVideo, []byte("just some text, not a video"), 0o644)

	cases := []struct {
		name, path, want string
	}{
		{"missing", filepath.Join(dir, "nope.mp4"), "File not found: " + filepath.Join(dir, "nope.mp4")},
		{"empty", empty, "File is empty"},
		{"too large", writeMP4(t, "big.mp4", 11*mib), "File too large: 11.0MB (max 10MB)"},
		{"bad signature", notVideo, "File does not appear to be a valid MP4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fa := &fakeAttacher{}
			u, slept := newTestUploader(fa)
			out := u.Upload(context.Background(), "QA-1", tc.path)
			if out.OK || out.Message != tc.want {
				t.Fatalf("unexpected outcome %+v, want message %q", out, tc.want)
			}
			if len(fa.calls) != 0 || len(*slept) != 0 {
				t.Fatalf("expected no network calls, got %d calls and %d sleeps", len(fa.calls), len(*slept))
			}
		})
	}
}

func TestUploadRetriesServerErrors(t *testing.T) {
	fa := &fakeAttacher{replies: []func() (*clients.TrackerResponse, error){
		status(503, "busy"), status(503, "busy"), status(200, "[]"),
	}}
	u, slept := newTestUploader(fa)

	out := u.Upload(context.Background(), "QA-9", writeMP4(t, "bug.mp4", 2*mib))
	if !out.OK || out.Attempts != 3 || out.Message != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !reflect.DeepEqual(*slept, want) {
		t.Fatalf("unexpected backoff %v, want %v", *slept, want)
	}
	for _, c := range fa.calls {
		if c.key != "QA-9" || c.filename != "bug.mp4" || len(c.data) != 2*mib {
			t.Fatalf("unexpected call %s/%s/%d bytes", c.key, c.filename, len(c.data))
		}
	}
	if len(out.Digest) != 64 {
		t.Fatalf("expected hex blake3 digest, got %q", out.Digest)
	}
}

func TestUploadClientErrorIsTerminal(t *testing.T) {
	fa := &fakeAttacher{replies: []func() (*clients.TrackerResponse, error){status(400, "bad attachment")}}
	u, slept := newTestUploader(fa)

	out := u.Upload(context.Background(), "QA-1", writeMP4(t, "bug.mp4", 64))
	if out.OK || out.Attempts != 1 || out.Message != "HTTP 400: bad attachment" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(fa.calls) != 1 || len(*slept) != 0 {
		t.Fatalf("expected a single attempt, got %d calls and %d sleeps", len(fa.calls), len(*slept))
	}
}

func TestUploadReportsLastError(t *testing.T) {
	dns := &net.DNSError{Err: "no such host", Name: "jira.invalid"}
	fa := &fakeAttacher{replies: []func() (*clients.TrackerResponse, error){
		status(502, ""), fail(context.DeadlineExceeded), fail(dns),
	}}
	u, slept := newTestUploader(fa)

	out := u.Upload(context.Background(), "QA-1", writeMP4(t, "bug.mp4", 64))
	if out.OK || out.Attempts != 3 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.HasPrefix(out.Message, "Network error (attempt 3/3): ") {
		t.Fatalf("unexpected final message %q", out.Message)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected two sleeps, got %v", *slept)
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(context.DeadlineExceeded, 0, 3); got != "Upload timeout (attempt 1/3)" {
		t.Fatalf("unexpected timeout message %q", got)
	}
	if got := describe(os.ErrPermission, 1, 3); !strings.HasPrefix(got, "Unexpected error (attempt 2/3): ") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUploadNormalizesFilename(t *testing.T) {
	fa := &fakeAttacher{replies: []func() (*clients.TrackerResponse, error){status(200, "[]")}}
	u, _ := newTestUploader(fa)

	if out := u.Upload(context.Background(), "QA-1", writeMP4(t, "clip.bin", 64)); !out.OK {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if fa.calls[0].filename != "clip.mp4" {
		t.Fatalf("expected normalized name, got %q", fa.calls[0].filename)
	}
}

func TestMP4Helpers(t *testing.T) {
	if !IsMP4([]byte("\x00\x00\x00\x18ftypmp42")) {
		t.Fatal("ftyp at offset 4 should be accepted")
	}
	if IsMP4([]byte("RIFF\x00\x00")) {
		t.Fatal("short non-mp4 header should be rejected")
	}
	for in, want := range map[string]string{
		"/tmp/a.MP4":    "a.MP4",
		"/tmp/a.mov":    "a.mp4",
		"/tmp/noext":    "noext.mp4",
		"/tmp/a.b.webm": "a.b.mp4",
	} {
		if got := MP4Name(in); got != want {
			t.Fatalf("MP4Name(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAttemptTimeout(t *testing.T) {
	for size, want := range map[int64]time.Duration{
		0:          60 * time.Second,
		100 * mib:  100 * time.Second,
		1000 * mib: 300 * time.Second,
	} {
		if got := AttemptTimeout(size); got != want {
			t.Fatalf("AttemptTimeout(%d) = %v, want %v", size, got, want)
		}
	}
}
