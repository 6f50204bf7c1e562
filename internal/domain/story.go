package domain

import (
	"errors"
	"strings"
	"time"
)

// StoryRequest is the role/feature/benefit triple a story is generated from.
// Fields are unexported so a constructed request cannot change.
type StoryRequest struct {
	role    string
	feature string
	benefit string
}

// NewStoryRequest trims every field and rejects empty ones.
func NewStoryRequest(role, feature, benefit string) (StoryRequest, error) {
	role = strings.TrimSpace(role)
	feature = strings.TrimSpace(feature)
	benefit = strings.TrimSpace(benefit)
	switch {
	case role == "":
		return StoryRequest{}, errors.New("domain: role must not be empty")
	case feature == "":
		return StoryRequest{}, errors.New("domain: feature must not be empty")
	case benefit == "":
		return StoryRequest{}, errors.New("domain: benefit must not be empty")
	}
	return StoryRequest{role: role, feature: feature, benefit: benefit}, nil
}

func (r StoryRequest) Role() string    { return r.role }
func (r StoryRequest) Feature() string { return r.feature }
func (r StoryRequest) Benefit() string { return r.benefit }

// IsZero reports whether r was never constructed.
func (r StoryRequest) IsZero() bool {
	return r == StoryRequest{}
}

// StoryResult is the structured story returned by the model.
type StoryResult struct {
	Story              string   `json:"story"`
	TechnicalNotes     []string `json:"technical_notes"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// ArchivedStory is a generated story kept in the story archive.
type ArchivedStory struct {
	ID        string
	Role      string
	Feature   string
	Benefit   string
	Model     string
	Result    StoryResult
	CreatedAt time.Time
}
