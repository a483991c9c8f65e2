// Package stories generates backlog entries from a project description
// through an external text generator and persists them.
package stories

import (
	"context"
	"fmt"
	"time"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/cache"
	"project-management-api/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Generator produces raw story lines for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]string, error)
}

// Persister stores accepted stories atomically.
type Persister interface {
	CreateUserStories(ctx context.Context, projectID uint, stories []models.UserStory) error
}

// Result is the outcome of one generation request.
type Result struct {
	UserStories      []string           `json:"user_stories"`
	GeneratedStories []models.UserStory `json:"generated_stories"`

	// Cached is set when the stories were persisted by an earlier or
	// concurrent identical request rather than by this call.
	Cached bool `json:"-"`
}

type Options struct {
	// Timeout bounds the generator call. Zero means no bound.
	Timeout time.Duration
	// DedupeTTL keeps a result for identical requests. Zero disables it.
	DedupeTTL time.Duration
}

type requestKey struct {
	projectID   uint
	description string
}

// Service runs generation requests.
type Service struct {
	gen     Generator
	store   Persister
	opts    Options
	log     *logrus.Logger
	recent  *cache.TTL[requestKey, *Result]
	flights singleflight.Group
}

// NewService returns a service. A nil gen leaves generation unconfigured.
func NewService(gen Generator, store Persister, opts Options, log *logrus.Logger) *Service {
	return &Service{
		gen:    gen,
		store:  store,
		opts:   opts,
		log:    log,
		recent: cache.NewTTL[requestKey, *Result](),
	}
}

// Configured reports whether a generator is available.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// Generate asks the generator for stories about description, persists the
// accepted ones into projectID and returns both. A generator failure
// persists nothing.
func (s *Service) Generate(ctx context.Context, projectID uint, description string) (*Result, error) {
	const op = "stories.Service.Generate"

	if s.gen == nil {
		return nil, apperrors.Validation("GROQ API key not configured")
	}

	key := requestKey{projectID: projectID, description: description}
	if res, ok := s.recent.Get(key); ok {
		s.log.WithFields(logrus.Fields{"operation": op, "project_id": projectID}).Debug("returning recent result")
		return reused(res), nil
	}

	ran := false
	v, err, _ := s.flights.Do(fmt.Sprintf("%d\x00%s", projectID, description), func() (any, error) {
		ran = true
		return s.generate(ctx, projectID, description)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	if !ran {
		return reused(res), nil
	}
	if s.opts.DedupeTTL > 0 {
		s.recent.Set(key, res, s.opts.DedupeTTL)
	}
	return res, nil
}

func reused(res *Result) *Result {
	out := *res
	out.Cached = true
	return &out
}

func (s *Service) generate(ctx context.Context, projectID uint, description string) (*Result, error) {
	const op = "stories.Service.generate"
	log := s.log.WithFields(logrus.Fields{"operation": op, "project_id": projectID})

	genCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	lines, err := s.gen.Generate(genCtx, Prompt(description))
	if err != nil {
		log.WithError(err).Error("story generation failed")
		return nil, apperrors.External("Error generating user stories", err)
	}

	accepted := ParseStories(lines)
	if err := s.store.CreateUserStories(ctx, projectID, accepted); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"lines": len(lines), "accepted": len(accepted)}).Info("user stories generated")

	if lines == nil {
		lines = []string{}
	}
	return &Result{UserStories: lines, GeneratedStories: accepted}, nil
}
