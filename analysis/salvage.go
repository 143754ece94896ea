package analysis

import (
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// salvage returns the JSON document of the wanted kind found in raw: the
// whole text when it parses as such, otherwise the span from the first open
// delimiter to the last close delimiter. ok is false when neither parses.
func salvage(raw string, opening, closing byte) (doc string, ok bool) {
	whole := strings.TrimSpace(raw)
	if isKind(whole, opening) {
		return whole, true
	}

	start := strings.IndexByte(raw, opening)
	end := strings.LastIndexByte(raw, closing)
	if start < 0 || end < start {
		return "", false
	}
	span := raw[start : end+1]
	if isKind(span, opening) {
		return span, true
	}
	return "", false
}

func isKind(s string, opening byte) bool {
	if !gjson.Valid(s) {
		return false
	}
	r := gjson.Parse(s)
	if opening == '[' {
		return r.IsArray()
	}
	return r.IsObject()
}

// ParseBugs decodes a model response into bug records. Unparseable text
// yields an empty list, never an error.
func ParseBugs(raw string) []BugRecord {
	doc, ok := salvage(raw, '[', ']')
	if !ok {
		return []BugRecord{}
	}

	items := gjson.Parse(doc).Array()
	out := make([]BugRecord, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		rec := BugRecord{
			Summary:     item.Get("summary").String(),
			Description: item.Get("description").String(),
			Priority:    ParsePriority(item.Get("priority").String()),
			StartSec:    finite(item.Get("start_sec").Float()),
		}
		if end := item.Get("end_sec"); end.Exists() && end.Type != gjson.Null {
			if v := end.Float(); !math.IsNaN(v) && !math.IsInf(v, 0) {
				rec.EndSec = &v
			}
		}
		out = append(out, rec)
	}
	return out
}

// ParseCandidates decodes a candidate-seconds response. Unparseable text
// yields the "Parsing failed" sentinel.
func ParseCandidates(raw string) CandidateReport {
	doc, ok := salvage(raw, '{', '}')
	if !ok {
		return parsingFailed()
	}

	root := gjson.Parse(doc)
	out := CandidateReport{
		Candidates: []Candidate{},
		Notes:      root.Get("notes").String(),
	}
	root.Get("candidates").ForEach(func(_, c gjson.Result) bool {
		if c.IsObject() {
			out.Candidates = append(out.Candidates, Candidate{
				Second: int(c.Get("second").Int()),
				Reason: c.Get("reason").String(),
			})
		}
		return true
	})
	return out
}

// finite maps NaN and the infinities gjson yields for out-of-range numbers to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
