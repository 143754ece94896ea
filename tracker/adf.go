package tracker

import "strings"

// Doc is an Atlassian Document Format body limited to plain paragraphs.
type Doc struct {
	Version int         `json:"version"`
	Type    string      `json:"type"`
	Content []Paragraph `json:"content"`
}

type Paragraph struct {
	Type    string     `json:"type"`
	Content []TextNode `json:"content"`
}

type TextNode struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextToADF turns every non-blank line into its own paragraph. Blank input
// gives a valid document with no paragraphs.
func TextToADF(text string) Doc {
	doc := Doc{Version: 1, Type: "doc", Content: []Paragraph{}}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		doc.Content = append(doc.Content, Paragraph{
			Type:    "paragraph",
			Content: []TextNode{{Type: "text", Text: line}},
		})
	}
	return doc
}
