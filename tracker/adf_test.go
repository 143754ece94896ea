package tracker

import (
	"encoding/json"
	"testing"
)

func TestTextToADF(t *testing.T) {
	doc := TextToADF("Steps:\r\n  open app \n\n\tcrash\n")
	if doc.Version != 1 || doc.Type != "doc" || len(doc.Content) != 3 {
		t.Fatalf("unexpected doc %+v", doc)
	}
	for i, want := range []string{"Steps:", "open app", "crash"} {
		p := doc.Content[i]
		if p.Type != "paragraph" || len(p.Content) != 1 || p.Content[0].Type != "text" || p.Content[0].Text != want {
			t.Fatalf("paragraph %d = %+v, want %q", i, p, want)
		}
	}
}

func TestTextToADFBlank(t *testing.T) {
	for _, in := range []string{"", "   \n  "} {
		raw, err := json.Marshal(TextToADF(in))
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != `{"version":1,"type":"doc","content":[]}` {
			t.Fatalf("TextToADF(%q) = %s", in, raw)
		}
	}
}
