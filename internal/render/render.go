// Package render turns a StoryResult into console text, Markdown or JSON.
// Every function is pure: equal input yields byte-identical output.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"storygen/internal/domain"
)

type Format string

const (
	FormatConsole  Format = "console"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the accepted formats in help-text order.
var Formats = []Format{FormatConsole, FormatMarkdown, FormatJSON}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("render: unknown format %q (want console, markdown or json)", s)
}

// Extension is the file extension used when a story in this format is saved.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

func Render(f Format, r domain.StoryResult) (string, error) {
	switch f {
	case FormatConsole:
		return Console(r), nil
	case FormatMarkdown:
		return Markdown(r), nil
	case FormatJSON:
		return JSON(r)
	default:
		return "", fmt.Errorf("render: unknown format %q", f)
	}
}

func Console(r domain.StoryResult) string {
	var b strings.Builder
	b.WriteString("User Story\n\n")
	fmt.Fprintf(&b, "Story: %s\n\n", r.Story)
	b.WriteString("> Technical Notes\n")
	writeBullets(&b, r.TechnicalNotes)
	b.WriteString("\n> Acceptance Criteria\n")
	writeBullets(&b, r.AcceptanceCriteria)
	return b.String()
}

func Markdown(r domain.StoryResult) string {
	var b strings.Builder
	b.WriteString("# User Story\n\n")
	fmt.Fprintf(&b, "**Story**: %s\n\n", r.Story)
	b.WriteString("## Technical Notes\n")
	writeBullets(&b, r.TechnicalNotes)
	b.WriteString("\n## Acceptance Criteria\n")
	writeBullets(&b, r.AcceptanceCriteria)
	return b.String()
}

// JSON indents with four spaces and leaves non-ASCII and HTML characters unescaped.
func JSON(r domain.StoryResult) (string, error) {
	if r.TechnicalNotes == nil {
		r.TechnicalNotes = []string{}
	}
	if r.AcceptanceCriteria == nil {
		r.AcceptanceCriteria = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("render: encode json: %w", err)
	}
	return buf.String(), nil
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
