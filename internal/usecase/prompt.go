package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"storygen/internal/domain"
)

// storyResultSchema is the shape the model is asked to return.
const storyResultSchema = `{
	"type": "object",
	"properties": {
		"story": {"type": "string"},
		"technical_notes": {"type": "array", "items": {"type": "string"}},
		"acceptance_criteria": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["story", "technical_notes", "acceptance_criteria"]
}`

var storySchemaLoader = gojsonschema.NewStringLoader(storyResultSchema)

// BaseStory is the one-sentence story the prompt is built around.
func BaseStory(req domain.StoryRequest) string {
	return fmt.Sprintf("As %s, I want %s, to %s.", req.Role(), req.Feature(), req.Benefit())
}

func buildStoryPrompt(req domain.StoryRequest) string {
	return strings.Join([]string{
		"Generate a user story following agile practices from the following base:",
		"",
		BaseStory(req),
		"",
		"Respond in valid JSON with the following exact structure:",
		"",
		outputContract(),
		"",
		"Return only the JSON object and make sure it is valid.",
	}, "\n")
}

func outputContract() string {
	return strings.Join([]string{
		"{",
		`  "story": "As ..., I want ..., to ...",`,
		`  "technical_notes": [`,
		`    "note 1",`,
		`    "note 2"`,
		"  ],",
		`  "acceptance_criteria": [`,
		`    "criterion 1",`,
		`    "criterion 2",`,
		`    "criterion 3"`,
		"  ]",
		"}",
	}, "\n")
}

// Outcome is the result of validating a model response: either a parsed
// story or the raw text that could not be parsed.
type Outcome struct {
	Story   *domain.StoryResult
	Raw     string
	Problem string
}

func succeeded(raw string, story domain.StoryResult) Outcome {
	return Outcome{Story: &story, Raw: raw}
}

func malformed(raw, problem string) Outcome {
	return Outcome{Raw: raw, Problem: problem}
}

// Malformed reports whether the response could not be turned into a story.
func (o Outcome) Malformed() bool {
	return o.Story == nil
}

// ParseStoryResult validates raw model output against the story schema.
// Failures never return an error: the raw text is kept for the caller to show.
func ParseStoryResult(raw string) Outcome {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return malformed(raw, "empty response")
	}

	result, err := gojsonschema.Validate(storySchemaLoader, gojsonschema.NewStringLoader(body))
	if err != nil {
		return malformed(raw, fmt.Sprintf("invalid JSON: %v", err))
	}
	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = desc.String()
		}
		return malformed(raw, "schema mismatch: "+strings.Join(problems, "; "))
	}

	story, err := decodeStory(body)
	if err != nil {
		return malformed(raw, err.Error())
	}
	return succeeded(raw, story)
}

func decodeStory(body string) (domain.StoryResult, error) {
	var out domain.StoryResult
	dec := json.NewDecoder(bytes.NewBufferString(body))
	if err := dec.Decode(&out); err != nil {
		return domain.StoryResult{}, fmt.Errorf("decode story: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.StoryResult{}, errors.New("decode story: multiple JSON values")
		}
		return domain.StoryResult{}, fmt.Errorf("decode story trailing data: %w", err)
	}
	return out, nil
}

// stripCodeFence removes one ``` or ```json fence wrapping the whole body.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(s[3:], "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[\"") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
