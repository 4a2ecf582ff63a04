package pages

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// memoryRepository is an in-memory Repository for service tests.
type memoryRepository struct {
	mu      sync.Mutex
	pages   map[string]Page
	seq     int
	clock   time.Time
	updates int
	failAll error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		pages: make(map[string]Page),
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryRepository) Create(_ context.Context, page NewPage) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAll != nil {
		return nil, r.failAll
	}

	r.seq++
	now := r.tick()
	stored := Page{
		ID:          fmt.Sprintf("page-%03d", r.seq),
		OwnerID:     page.OwnerID,
		Title:       page.Title,
		Prompt:      page.Prompt,
		HTMLContent: page.HTMLContent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.pages[stored.ID] = stored

	out := stored
	return &out, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAll != nil {
		return nil, r.failAll
	}

	page, ok := r.pages[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "page %s", id)
	}
	return &page, nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerID string) ([]Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAll != nil {
		return nil, r.failAll
	}

	var out []Page
	for _, page := range r.pages {
		if page.OwnerID == ownerID {
			out = append(out, page)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, id string, update PageUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAll != nil {
		return r.failAll
	}
	if err := update.Validate(); err != nil {
		return err
	}

	page, ok := r.pages[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "page %s", id)
	}
	if update.Title != nil {
		page.Title = *update.Title
	}
	if update.HTMLContent != nil {
		page.HTMLContent = *update.HTMLContent
	}
	if update.IsPublished != nil {
		page.IsPublished = *update.IsPublished
		page.PublicURL = *update.PublicURL
	}
	page.UpdatedAt = r.tick()
	r.pages[id] = page
	r.updates++
	return nil
}

func (r *memoryRepository) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

type stubGenerator struct {
	html    string
	err     error
	calls   int
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return "", eris.New("expected generation deadline")
	}
	return g.html, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

type markingSanitizer struct{}

func (markingSanitizer) Sanitize(html string) (string, error) {
	return "<!-- sanitized -->" + html, nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var _ Repository = (*memoryRepository)(nil)
