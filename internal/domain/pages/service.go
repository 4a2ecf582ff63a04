package pages

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainllm "landai/app/internal/domain/llm"
	"landai/app/internal/platform/validation"
)

// Service defines the landing page workflows offered to owners and anonymous visitors.
type Service interface {
	Generate(ctx context.Context, ownerID, prompt string) (*Page, error)
	Get(ctx context.Context, actorID, pageID string) (*Page, error)
	List(ctx context.Context, ownerID string) ([]Page, error)
	Edit(ctx context.Context, actorID, pageID string, edit PageEdit) (*Page, error)
	Regenerate(ctx context.Context, actorID, pageID string) (*Page, error)
	Publish(ctx context.Context, actorID, pageID string) (string, error)
	Unpublish(ctx context.Context, actorID, pageID string) error
	ReadPublic(ctx context.Context, ownerID, pageID string) (string, error)
	GeneratorReady() bool
}

// Limiter throttles generation per owner.
type Limiter interface {
	Allow(key string) bool
}

// Sanitizer rewrites stored markup before it is served publicly.
type Sanitizer interface {
	Sanitize(html string) (string, error)
}

// ServiceOptions wires the page service.
type ServiceOptions struct {
	Repository        Repository
	Generator         domainllm.Generator
	Publisher         *Publisher
	Limiter           Limiter
	Sanitizer         Sanitizer
	Validator         *validation.Validator
	GenerationTimeout time.Duration
	StoreTimeout      time.Duration
	Logger            *logrus.Logger
	SentryHub         *sentry.Hub
}

const (
	defaultGenerationTimeout = 90 * time.Second
	defaultStoreTimeout      = 5 * time.Second
	maxTitleLength           = 200

	// generatorFailureThreshold consecutive failed generation calls mark the generator unhealthy.
	generatorFailureThreshold = 3
)

type generateInput struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
}

type service struct {
	repo              Repository
	generator         domainllm.Generator
	publisher         *Publisher
	limiter           Limiter
	sanitizer         Sanitizer
	validator         *validation.Validator
	generationTimeout time.Duration
	storeTimeout      time.Duration
	logger            *logrus.Logger
	sentryHub         *sentry.Hub

	generationFailures atomic.Int32
}

var _ Service = (*service)(nil)

// NewService wires the page service with its dependencies.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}
	if opts.Generator == nil {
		return nil, eris.New("llm generator is required")
	}
	if opts.Publisher == nil {
		return nil, eris.New("publisher is required")
	}

	validator := opts.Validator
	if validator == nil {
		validator = validation.New()
	}

	generationTimeout := opts.GenerationTimeout
	if generationTimeout <= 0 {
		generationTimeout = defaultGenerationTimeout
	}
	storeTimeout := opts.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}

	return &service{
		repo:              opts.Repository,
		generator:         opts.Generator,
		publisher:         opts.Publisher,
		limiter:           opts.Limiter,
		sanitizer:         opts.Sanitizer,
		validator:         validator,
		generationTimeout: generationTimeout,
		storeTimeout:      storeTimeout,
		logger:            opts.Logger,
		sentryHub:         opts.SentryHub,
	}, nil
}

// GeneratorReady reports false once the last few generation calls have all failed.
// One successful call makes it ready again.
func (s *service) GeneratorReady() bool {
	return s.generationFailures.Load() < generatorFailureThreshold
}

func (s *service) Generate(ctx context.Context, ownerID, prompt string) (*Page, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, eris.Wrap(ErrUnauthorized, "generating without an owner")
	}

	input := generateInput{Prompt: strings.TrimSpace(prompt)}
	if err := s.validator.Validate(input); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}

	fields := logrus.Fields{"owner_id": owner}

	if s.limiter != nil && !s.limiter.Allow(owner) {
		return nil, eris.Wrap(ErrRateLimited, "too many generation requests")
	}

	html, err := s.generate(ctx, input.Prompt)
	if err != nil {
		s.recordError(fields, err, "generating landing page")
		return nil, eris.Wrap(ErrGenerationFailed, "generating landing page")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	page, err := s.repo.Create(storeCtx, NewPage{
		OwnerID:     owner,
		Title:       DeriveTitle(input.Prompt),
		Prompt:      input.Prompt,
		HTMLContent: html,
	})
	if err != nil {
		s.recordError(fields, err, "persisting generated page")
		return nil, categorize(err, "persisting generated page")
	}

	if s.logger != nil {
		s.logger.WithFields(fields).WithField("page_id", page.ID).Info("landing page generated")
	}

	return page, nil
}

func (s *service) Get(ctx context.Context, actorID, pageID string) (*Page, error) {
	return s.loadOwned(ctx, actorID, pageID, "loading page for owner")
}

func (s *service) List(ctx context.Context, ownerID string) ([]Page, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, eris.Wrap(ErrUnauthorized, "listing pages without an owner")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	pages, err := s.repo.ListByOwner(storeCtx, owner)
	if err != nil {
		s.recordError(logrus.Fields{"owner_id": owner}, err, "listing owner pages")
		return nil, categorize(err, "listing owner pages")
	}

	return pages, nil
}

func (s *service) Edit(ctx context.Context, actorID, pageID string, edit PageEdit) (*Page, error) {
	page, err := s.loadOwned(ctx, actorID, pageID, "loading page for edit")
	if err != nil {
		return nil, err
	}

	update := PageUpdate{}
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" || len([]rune(title)) > maxTitleLength {
			return nil, eris.Wrap(ErrInvalidInput, "title must be between 1 and 200 characters")
		}
		update.Title = &title
	}
	if edit.HTMLContent != nil {
		html := strings.TrimSpace(*edit.HTMLContent)
		if html == "" {
			return nil, eris.Wrap(ErrInvalidInput, "html content must not be empty")
		}
		update.HTMLContent = &html
	}

	if err := s.update(ctx, page, update, "saving page edit"); err != nil {
		return nil, err
	}

	return s.reload(ctx, page.ID, "reloading edited page")
}

func (s *service) Regenerate(ctx context.Context, actorID, pageID string) (*Page, error) {
	page, err := s.loadOwned(ctx, actorID, pageID, "loading page for regeneration")
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"owner_id": page.OwnerID, "page_id": page.ID}

	if strings.TrimSpace(page.Prompt) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "page has no stored prompt")
	}

	if s.limiter != nil && !s.limiter.Allow(page.OwnerID) {
		return nil, eris.Wrap(ErrRateLimited, "too many generation requests")
	}

	html, err := s.generate(ctx, page.Prompt)
	if err != nil {
		s.recordError(fields, err, "regenerating landing page")
		return nil, eris.Wrap(ErrGenerationFailed, "regenerating landing page")
	}

	if err := s.update(ctx, page, PageUpdate{HTMLContent: &html}, "saving regenerated page"); err != nil {
		return nil, err
	}

	return s.reload(ctx, page.ID, "reloading regenerated page")
}

func (s *service) Publish(ctx context.Context, actorID, pageID string) (string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	publicURL, err := s.publisher.Publish(storeCtx, actorID, pageID)
	if err != nil {
		s.recordCategorized(logrus.Fields{"actor_id": actorID, "page_id": pageID}, err, "publishing page")
		return "", err
	}
	return publicURL, nil
}

func (s *service) Unpublish(ctx context.Context, actorID, pageID string) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.publisher.Unpublish(storeCtx, actorID, pageID); err != nil {
		s.recordCategorized(logrus.Fields{"actor_id": actorID, "page_id": pageID}, err, "unpublishing page")
		return err
	}
	return nil
}

// ReadPublic returns the stored HTML of a published page. Missing pages, pages of a
// different owner and drafts all yield the same not-found error.
func (s *service) ReadPublic(ctx context.Context, ownerID, pageID string) (string, error) {
	notFound := eris.Wrap(ErrNotFound, "reading public page")

	owner := strings.TrimSpace(ownerID)
	id := strings.TrimSpace(pageID)
	if owner == "" || id == "" {
		return "", notFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	page, err := s.repo.GetByID(storeCtx, id)
	if err != nil {
		if eris.Is(err, ErrNotFound) {
			return "", notFound
		}
		s.recordError(logrus.Fields{"owner_id": owner, "page_id": id}, err, "reading public page")
		return "", eris.Wrap(ErrStorage, "reading public page")
	}

	if page.OwnerID != owner || !page.IsPublished {
		return "", notFound
	}

	if s.sanitizer == nil {
		return page.HTMLContent, nil
	}

	cleaned, err := s.sanitizer.Sanitize(page.HTMLContent)
	if err != nil {
		s.recordError(logrus.Fields{"page_id": id}, err, "sanitizing public page")
		return "", eris.Wrap(ErrStorage, "preparing public page")
	}
	return cleaned, nil
}

func (s *service) generate(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	html, err := s.generator.Generate(genCtx, prompt)
	if err == nil && strings.TrimSpace(html) == "" {
		err = eris.New("generated html is empty")
	}
	if err != nil {
		s.generationFailures.Add(1)
		return "", err
	}

	s.generationFailures.Store(0)
	return strings.TrimSpace(html), nil
}

func (s *service) loadOwned(ctx context.Context, actorID, pageID, message string) (*Page, error) {
	id := strings.TrimSpace(pageID)
	fields := logrus.Fields{"actor_id": actorID, "page_id": id}
	if id == "" {
		return nil, eris.Wrap(ErrNotFound, message)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	page, err := s.repo.GetByID(storeCtx, id)
	if err != nil {
		s.recordCategorized(fields, err, message)
		return nil, categorize(err, message)
	}

	if err := Authorize(actorID, page); err != nil {
		s.recordCategorized(fields, err, message)
		return nil, err
	}

	return page, nil
}

func (s *service) update(ctx context.Context, page *Page, update PageUpdate, message string) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.Update(storeCtx, page.ID, update); err != nil {
		s.recordError(logrus.Fields{"page_id": page.ID}, err, message)
		return categorize(err, message)
	}
	return nil
}

func (s *service) reload(ctx context.Context, pageID, message string) (*Page, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	page, err := s.repo.GetByID(storeCtx, pageID)
	if err != nil {
		s.recordError(logrus.Fields{"page_id": pageID}, err, message)
		return nil, categorize(err, message)
	}
	return page, nil
}

// recordCategorized logs expected outcomes (not found, denied) at warning level and
// everything else as an error.
func (s *service) recordCategorized(fields logrus.Fields, err error, message string) {
	if eris.Is(err, ErrNotFound) || eris.Is(err, ErrUnauthorized) {
		if s.logger != nil {
			s.logger.WithFields(fields).WithField("error", err.Error()).Warn(message)
		}
		return
	}
	s.recordError(fields, err, message)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
