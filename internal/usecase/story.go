package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storygen/internal/domain"
	"storygen/internal/render"
)

const DefaultModel = "llama3.1"

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type StoryWriter interface {
	Write(format render.Format, content string) (string, error)
}

type StoryArchiver interface {
	SaveStory(ctx context.Context, story domain.ArchivedStory) error
}

type timeouter interface {
	Timeout() bool
}

// StoryService runs the generate → validate → present → persist pipeline.
type StoryService struct {
	llm      Generator
	writer   StoryWriter
	archiver StoryArchiver
	model    string
	log      *zap.Logger
}

type RunInput struct {
	Request domain.StoryRequest
	Format  render.Format
	Save    bool
}

type RunOutput struct {
	Outcome   Outcome
	Rendered  string
	SavedPath string
	ArchiveID string
}

// NewStoryService wires the pipeline. archiver may be nil when no archive is configured.
func NewStoryService(llm Generator, w StoryWriter, archiver StoryArchiver, model string, log *zap.Logger) (*StoryService, error) {
	if llm == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if w == nil {
		return nil, errors.New("usecase: story writer must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StoryService{
		llm:      llm,
		writer:   w,
		archiver: archiver,
		model:    model,
		log:      log,
	}, nil
}

// Run makes exactly one model call. A malformed response is reported through
// RunOutput.Outcome, not as an error, and nothing is written for it.
func (s *StoryService) Run(ctx context.Context, in RunInput) (RunOutput, error) {
	if in.Request.IsZero() {
		return RunOutput{}, newError(ErrorInvalidInput, "empty_request", nil)
	}
	if _, err := render.ParseFormat(string(in.Format)); err != nil {
		return RunOutput{}, newError(ErrorInvalidInput, "unknown_format", err)
	}

	log := s.log.With(zap.String("model", s.model), zap.String("format", string(in.Format)))

	raw, err := s.llm.Generate(ctx, s.model, buildStoryPrompt(in.Request))
	if err != nil {
		var t timeouter
		if errors.As(err, &t) && t.Timeout() {
			return RunOutput{}, newError(ErrorTimeout, "model_timeout", err)
		}
		return RunOutput{}, newError(ErrorTransport, "model_request_failed", err)
	}

	outcome := ParseStoryResult(raw)
	if outcome.Malformed() {
		log.Warn("model returned a malformed story", zap.String("problem", outcome.Problem))
		return RunOutput{Outcome: outcome}, nil
	}

	rendered, err := render.Render(in.Format, *outcome.Story)
	if err != nil {
		return RunOutput{}, newError(ErrorInvalidInput, "render_failed", err)
	}
	out := RunOutput{Outcome: outcome, Rendered: rendered}

	if in.Save {
		path, err := s.writer.Write(in.Format, rendered)
		if err != nil {
			return out, newError(ErrorPersist, "file_write_failed", err)
		}
		out.SavedPath = path
		log.Info("story saved", zap.String("path", path))
	}

	if s.archiver != nil {
		id := newUUID()
		err := s.archiver.SaveStory(ctx, domain.ArchivedStory{
			ID:        id,
			Role:      in.Request.Role(),
			Feature:   in.Request.Feature(),
			Benefit:   in.Request.Benefit(),
			Model:     s.model,
			Result:    *outcome.Story,
			CreatedAt: now().UTC(),
		})
		if err != nil {
			return out, newError(ErrorArchive, "archive_write_failed", err)
		}
		out.ArchiveID = id
		log.Info("story archived", zap.String("id", id))
	}

	return out, nil
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
