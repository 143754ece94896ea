package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitarthk9/ai-bug-reporter/transcript"
)

// asrSegment is one segment as the ASR service reports it; end may be absent.
type asrSegment struct {
	Start float64  `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
}

func (s asrSegment) SegmentStart() float64 { return s.Start }
func (s asrSegment) SegmentText() string { return s.Text }
func (s asrSegment) SegmentEnd() (float64, bool) {
	if s.End == nil {
		return 0, false
	}
	return *s.End, true
}

type asrResponse struct {
	Language string       `json:"language"`
	Text     string       `json:"text"`
	Segments []asrSegment `json:"segments"`
}

// ASRService transcribes through a self-hosted POST {url}/transcribe
// endpoint that takes the audio as multipart field "file".
type ASRService struct {
	HTTP *HTTP
	URL  string
}

func (s ASRService) Transcribe(ctx context.Context, audioPath string) (transcript.Transcript, error) {
	h := s.HTTP
	if h == nil {
		h = NewHTTP()
	}
	body, err := h.postFile(ctx, strings.TrimRight(s.URL, "/")+"/transcribe", "file", audioPath)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("asr: %w", err)
	}

	var resp asrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return transcript.Transcript{}, fmt.Errorf("asr decode: %w", err)
	}
	tr := transcript.Transcript{Language: resp.Language, Text: resp.Text}
	for _, seg := range resp.Segments {
		tr.Segments = append(tr.Segments, transcript.FromFields(seg))
	}
	return tr, nil
}
