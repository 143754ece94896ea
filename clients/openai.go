package clients

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/hitarthk9/ai-bug-reporter/analysis"
	"github.com/hitarthk9/ai-bug-reporter/transcript"
)

const defaultOpenAITimeout = 5 * time.Minute

// OpenAI serves both the chat model and Whisper transcription.
type OpenAI struct {
	client             openai.Client
	TranscriptionModel string
}

var _ analysis.ChatModel = (*OpenAI)(nil)

// NewOpenAI builds a client that never retries: one call in, one answer out.
func NewOpenAI(apiKey, baseURL, transcriptionModel string) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(defaultOpenAITimeout),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if transcriptionModel == "" {
		transcriptionModel = openai.AudioModelWhisper1
	}
	return &OpenAI{client: openai.NewClient(opts...), TranscriptionModel: transcriptionModel}
}

func (o *OpenAI) Complete(ctx context.Context, req analysis.ChatRequest) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case analysis.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case analysis.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			return "", fmt.Errorf("openai: unsupported role %q", m.Role)
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs Whisper in verbose_json mode so segment timings come back.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (transcript.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return transcript.Transcript{}, err
	}
	defer f.Close()

	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          o.TranscriptionModel,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("openai transcription: %w", err)
	}
	return verboseTranscript(resp.RawJSON(), resp.Text), nil
}

// verboseTranscript reads segments out of a verbose_json body. Segments are
// decoded as plain objects so missing bounds take the formatter defaults.
func verboseTranscript(raw, text string) transcript.Transcript {
	res := gjson.Parse(raw)
	if text == "" {
		text = res.Get("text").String()
	}
	tr := transcript.Transcript{Language: res.Get("language").String(), Text: text}
	res.Get("segments").ForEach(func(_, seg gjson.Result) bool {
		if m, ok := seg.Value().(map[string]interface{}); ok {
			tr.Segments = append(tr.Segments, transcript.FromMap(m))
		}
		return true
	})
	return tr
}
