package clients

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitarthk9/ai-bug-reporter/analysis"
)

func TestJiraCreateIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/3/issue" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "qa@example.com" || pass != "tok" {
			t.Fatalf("unexpected basic auth %q/%q", user, pass)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"fields":{}}` {
			t.Fatalf("unexpected body %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":"QA-7"}`))
	}))
	defer srv.Close()

	resp, err := NewJira(srv.URL+"/", "qa@example.com", "tok").CreateIssue(context.Background(), []byte(`{"fields":{}}`))
	if err != nil {
		t.Fatalf("create issue returned error: %v", err)
	}
	if !resp.OK() || resp.Status != http.StatusCreated || string(resp.Body) != `{"key":"QA-7"}` {
		t.Fatalf("unexpected response: %d %s", resp.Status, resp.Body)
	}
}

func TestJiraAttachFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/QA-7/attachments" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Atlassian-Token") != "no-check" || r.Header.Get("Accept") != "application/json" {
			t.Fatalf("missing tracker headers: %v", r.Header)
		}
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("unexpected content type %q: %v", r.Header.Get("Content-Type"), err)
		}
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		if part.FormName() != "file" || part.FileName() != "bug 1.mp4" {
			t.Fatalf("unexpected part %q/%q", part.FormName(), part.FileName())
		}
		if ct := part.Header.Get("Content-Type"); ct != "video/mp4" {
			t.Fatalf("unexpected part content type %q", ct)
		}
		data, _ := io.ReadAll(part)
		if string(data) != "clip-bytes" {
			t.Fatalf("unexpected part data %q", data)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 800)))
	}))
	defer srv.Close()

	resp, err := NewJira(srv.URL, "qa@example.com", "tok").AttachFile(context.Background(), "QA-7", "bug 1.mp4", strings.NewReader("clip-bytes"))
	if err != nil {
		t.Fatalf("attach returned error: %v", err)
	}
	if resp.OK() || resp.Status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", resp.Status)
	}
	if len(resp.Snippet()) != maxErrorBody {
		t.Fatalf("expected snippet capped at %d, got %d", maxErrorBody, len(resp.Snippet()))
	}
}

func TestSnippetEmptyBody(t *testing.T) {
	if got := (&TrackerResponse{Status: 500}).Snippet(); got != "No error message" {
		t.Fatalf("unexpected snippet %q", got)
	}
}

func TestASRServiceTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"language":"en","text":"a b","segments":[{"start":1.5,"end":3.2,"text":"a"},{"start":4.1,"text":"b"}]}`))
	}))
	defer srv.Close()

	wav := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := ASRService{URL: srv.URL}.Transcribe(context.Background(), wav)
	if err != nil {
		t.Fatalf("transcribe returned error: %v", err)
	}
	if tr.Language != "en" || len(tr.Segments) != 2 {
		t.Fatalf("unexpected transcript: %#v", tr)
	}
	if tr.Segments[1].End != 4.1 {
		t.Fatalf("expected missing end to default to start, got %v", tr.Segments[1].End)
	}
	if got := tr.Timestamped(); got != "[  1-  3s] a\n[  4-  4s] b" {
		t.Fatalf("unexpected timestamped transcript %q", got)
	}
}

func TestPostFileStreamsMultipart(t *testing.T) {
	var field, name, data string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err == nil {
			b, _ := io.ReadAll(f)
			field, name, data = "file", hdr.Filename, string(b)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	wav := filepath.Join(t.TempDir(), "take-2.wav")
	if err := os.WriteFile(wav, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}

	body, err := NewHTTP().postFile(context.Background(), srv.URL+"/transcribe", "file", wav)
	if err != nil {
		t.Fatalf("post returned error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if field != "file" || name != "take-2.wav" || data != "RIFF....WAVE" {
		t.Fatalf("server got field=%q name=%q data=%q", field, name, data)
	}
}

func TestPostFileMissingFile(t *testing.T) {
	if _, err := NewHTTP().postFile(context.Background(), "http://127.0.0.1:1/transcribe", "file", filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestASRServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	wav := filepath.Join(t.TempDir(), "a.wav")
	_ = os.WriteFile(wav, []byte("RIFF"), 0o644)

	if _, err := (ASRService{URL: srv.URL}).Transcribe(context.Background(), wav); err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected asr error with body, got %v", err)
	}
}

func TestVerboseTranscript(t *testing.T) {
	raw := `{"language":"english","text":"hello there","segments":[{"id":0,"start":0.0,"end":2.96,"text":" hello"},{"id":1,"start":3.4,"text":" there"}]}`
	tr := verboseTranscript(raw, "")
	if tr.Text != "hello there" || tr.Language != "english" || len(tr.Segments) != 2 {
		t.Fatalf("unexpected transcript: %#v", tr)
	}
	if tr.Segments[1].End != 3.4 {
		t.Fatalf("expected default end, got %v", tr.Segments[1].End)
	}

	if got := verboseTranscript(`{"text":"no timings"}`, ""); got.Timestamped() != "no timings" {
		t.Fatalf("expected plain text fallback, got %q", got.Timestamped())
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Model != "gpt-4o-mini" || body.Temperature != 0.2 || len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Fatalf("unexpected request body: %#v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[]"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", srv.URL, "")
	out, err := o.Complete(context.Background(), analysis.ChatRequest{
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		Messages: []analysis.Message{
			{Role: analysis.RoleSystem, Content: "sys"},
			{Role: analysis.RoleUser, Content: "user"},
		},
	})
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	if out != "[]" {
		t.Fatalf("unexpected completion %q", out)
	}
}

func TestOpenAICompleteRejectsUnknownRole(t *testing.T) {
	o := NewOpenAI("sk-test", "http://127.0.0.1:0", "")
	_, err := o.Complete(context.Background(), analysis.ChatRequest{Messages: []analysis.Message{{Role: "tool", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error for unsupported role")
	}
}
