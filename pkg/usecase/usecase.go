package usecase

import (
	"time"

	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/service/numbering"
	"github.com/vistoria-lab/vistoria/pkg/service/pipeline"
)

// defaultNumberPrefix is the display number prefix for assessments
const defaultNumberPrefix = "ASM"

// UseCases is the case lifecycle service: the entry point every workflow
// action goes through. It owns idempotent creation, stage advancement and
// the scoped read model; nothing outside of it writes case state.
type UseCases struct {
	repo    interfaces.Repository
	engine  *pipeline.Engine
	numbers *numbering.Generator
	policy  *model.VisibilityPolicy

	numberPrefix  string
	createBackoff time.Duration
	findDelay     time.Duration
}

// Option configures UseCases
type Option func(*UseCases)

// WithVisibilityPolicy overrides the default stage-to-join-path table
func WithVisibilityPolicy(p *model.VisibilityPolicy) Option {
	return func(uc *UseCases) {
		uc.policy = p
	}
}

// WithNumberPrefix overrides the display number prefix
func WithNumberPrefix(prefix string) Option {
	return func(uc *UseCases) {
		uc.numberPrefix = prefix
	}
}

// WithRetryDelays shortens the create/find retry delays, for tests
func WithRetryDelays(createBackoff, findDelay time.Duration) Option {
	return func(uc *UseCases) {
		uc.createBackoff = createBackoff
		uc.findDelay = findDelay
	}
}

// New creates the lifecycle service over the repository
func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:          repo,
		engine:        pipeline.New(repo),
		numbers:       numbering.New(repo.Sequence()),
		numberPrefix:  defaultNumberPrefix,
		createBackoff: 100 * time.Millisecond,
		findDelay:     50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}
