package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const maxErrorBody = 500

// TrackerResponse is a raw tracker reply; non-2xx statuses are not errors
// here, callers classify them.
type TrackerResponse struct {
	Status int
	Body   []byte
}

func (r *TrackerResponse) OK() bool { return r.Status < 300 }

// Snippet is the body as carried into reports, capped at 500 bytes.
func (r *TrackerResponse) Snippet() string {
	if len(r.Body) == 0 {
		return "No error message"
	}
	return truncate(r.Body, maxErrorBody)
}

// Jira talks to the Jira Cloud REST API v3 with basic auth.
type Jira struct {
	BaseURL string
	Email   string
	Token   string

	// c carries no timeout of its own; every call is bounded by its context.
	c *http.Client
}

func NewJira(baseURL, email, token string) *Jira {
	return &Jira{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Email:   email,
		Token:   token,
		c:       &http.Client{},
	}
}

func (j *Jira) CreateIssue(ctx context.Context, payload []byte) (*TrackerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.BaseURL+"/rest/api/3/issue", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return j.do(req)
}

// AttachFile uploads r as a video/mp4 attachment named filename.
func (j *Jira) AttachFile(ctx context.Context, issueKey, filename string, r io.Reader) (*TrackerResponse, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": filename}))
	h.Set("Content-Type", "video/mp4")
	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(fw, r); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/attachments", j.BaseURL, url.PathEscape(issueKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")
	req.Header.Set("Accept", "application/json")
	return j.do(req)
}

func (j *Jira) do(req *http.Request) (*TrackerResponse, error) {
	req.SetBasicAuth(j.Email, j.Token)
	c := j.c
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jira read body: %w", err)
	}
	return &TrackerResponse{Status: resp.StatusCode, Body: body}, nil
}
