package analysis

import (
	"html"
	"strings"
)

// Span is a run of text with uniform weight.
type Span struct {
	Text string
	Bold bool
}

// Line is one line of an analysis.
type Line []Span

// Document is a parsed analysis. Only **bold** markers and newlines are
// recognized; everything else is literal text.
type Document struct {
	Lines []Line
}

// Parse reads markdown-lite text. An unmatched "**" is kept as literal text.
func Parse(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	doc := Document{Lines: make([]Line, 0, len(raw))}
	for _, l := range raw {
		doc.Lines = append(doc.Lines, parseLine(l))
	}
	return doc
}

func parseLine(s string) Line {
	parts := strings.Split(s, "**")
	// An even number of parts means the last marker is unmatched.
	if len(parts)%2 == 0 {
		n := len(parts)
		parts = append(parts[:n-2], parts[n-2]+"**"+parts[n-1])
	}
	var line Line
	for i, p := range parts {
		if p == "" {
			continue
		}
		line = append(line, Span{Text: p, Bold: i%2 == 1})
	}
	return line
}

// HTML renders the document with <strong> and <br>, escaping all text.
func (d Document) HTML() string {
	var b strings.Builder
	for i, line := range d.Lines {
		if i > 0 {
			b.WriteString("<br>")
		}
		for _, span := range line {
			if span.Bold {
				b.WriteString("<strong>")
				b.WriteString(html.EscapeString(span.Text))
				b.WriteString("</strong>")
				continue
			}
			b.WriteString(html.EscapeString(span.Text))
		}
	}
	return b.String()
}

// PlainText renders the document without markers.
func (d Document) PlainText() string {
	lines := make([]string, len(d.Lines))
	for i, line := range d.Lines {
		var b strings.Builder
		for _, span := range line {
			b.WriteString(span.Text)
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}
