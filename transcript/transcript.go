package transcript

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Segment is a timed piece of speech as returned by speech-to-text.
type Segment struct {
	Start float64 `json:"start"` // sec
	End   float64 `json:"end"`   // sec
	Text  string  `json:"text"`
}

// Transcript bundles the ordered segments with the plain full text.
type Transcript struct {
	Language string
	Segments []Segment
	Text     string
}

// Fields is the attribute-style view of a segment. The end bound is optional.
type Fields interface {
	SegmentStart() float64
	SegmentEnd() (float64, bool)
	SegmentText() string
}

func (s Segment) SegmentStart() float64 { return s.Start }
func (s Segment) SegmentEnd() (float64, bool) { return s.End, true }
func (s Segment) SegmentText() string { return s.Text }

// FromFields normalizes an attribute-style segment.
func FromFields(f Fields) Segment {
	start := f.SegmentStart()
	end, ok := f.SegmentEnd()
	if !ok {
		end = defaultEnd(start)
	}
	return Segment{Start: start, End: end, Text: f.SegmentText()}
}

// FromMap normalizes a key-style segment such as a decoded JSON object.
// Missing or non-numeric start reads as 0, a missing end as max(start, 0).
func FromMap(m map[string]any) Segment {
	start, _ := number(m["start"])
	end, ok := number(m["end"])
	if !ok {
		end = defaultEnd(start)
	}
	text, _ := m["text"].(string)
	return Segment{Start: start, End: end, Text: text}
}

// Normalize accepts either segment shape and returns the common container.
func Normalize(v any) (Segment, error) {
	switch s := v.(type) {
	case Segment:
		return s, nil
	case *Segment:
		if s == nil {
			return Segment{}, fmt.Errorf("nil segment")
		}
		return *s, nil
	case map[string]any:
		return FromMap(s), nil
	case Fields:
		return FromFields(s), nil
	default:
		return Segment{}, fmt.Errorf("unsupported segment type %T", v)
	}
}

// NormalizeAll normalizes a mixed sequence, keeping input order.
func NormalizeAll(vs []any) ([]Segment, error) {
	out := make([]Segment, 0, len(vs))
	for i, v := range vs {
		s, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Format renders one "[start-end s] text" line per segment. Bounds are
// truncated to whole seconds, never rounded.
func Format(segs []Segment) string {
	lines := make([]string, 0, len(segs))
	for _, s := range segs {
		lines = append(lines, fmt.Sprintf("[%3d-%3ds] %s", wholeSeconds(s.Start), wholeSeconds(s.End), strings.TrimSpace(s.Text)))
	}
	return strings.Join(lines, "\n")
}

// Timestamped is what the extractor reads: the formatted segments, or the
// plain text when the recognizer returned no timings at all.
func (t Transcript) Timestamped() string {
	if len(t.Segments) == 0 {
		return t.Text
	}
	return Format(t.Segments)
}

func wholeSeconds(sec float64) int64 {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0
	}
	return decimal.NewFromFloat(sec).IntPart()
}

func defaultEnd(start float64) float64 {
	if start < 0 {
		return 0
	}
	return start
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
