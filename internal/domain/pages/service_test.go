package pages

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
)

type serviceHarness struct {
	service   Service
	repo      *memoryRepository
	generator *stubGenerator
}

func newServiceHarness(t *testing.T, configure func(*ServiceOptions)) *serviceHarness {
	t.Helper()

	repo := newMemoryRepository()
	generator := &stubGenerator{html: "<section><h1>Fresh bread</h1></section>"}

	opts := ServiceOptions{
		Repository: repo,
		Generator:  generator,
		Publisher:  newTestPublisher(t, repo, "https://landai.test", false),
		Logger:     discardLogger(),
	}
	if configure != nil {
		configure(&opts)
	}

	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	return &serviceHarness{service: svc, repo: repo, generator: generator}
}

func TestNewServiceValidatesOptions(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	publisher := newTestPublisher(t, repo, "https://landai.test", false)
	generator := &stubGenerator{}

	cases := map[string]ServiceOptions{
		"repository": {Generator: generator, Publisher: publisher},
		"generator":  {Repository: repo, Publisher: publisher},
		"publisher":  {Repository: repo, Generator: generator},
	}
	for name, opts := range cases {
		if _, err := NewService(opts); err == nil {
			t.Fatalf("expected error without %s", name)
		}
	}
}

func TestGenerateStoresDraft(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)

	page, err := h.service.Generate(context.Background(), "user-1", "  an artisan bakery in the old town of Lisbon  ")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if page.OwnerID != "user-1" {
		t.Fatalf("expected owner user-1, got %s", page.OwnerID)
	}
	if page.Prompt != "an artisan bakery in the old town of Lisbon" {
		t.Fatalf("expected trimmed prompt, got %q", page.Prompt)
	}
	if page.Title != "an artisan bakery in the old t..." {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if page.HTMLContent != h.generator.html {
		t.Fatalf("expected generated html, got %q", page.HTMLContent)
	}
	if page.IsPublished || page.PublicURL != "" {
		t.Fatalf("expected a draft, got %+v", page)
	}
	if len(h.generator.prompts) != 1 || h.generator.prompts[0] != page.Prompt {
		t.Fatalf("expected generator to receive the trimmed prompt, got %v", h.generator.prompts)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	if _, err := h.service.Generate(ctx, "user-1", "   "); !eris.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank prompt, got %v", err)
	}
	if _, err := h.service.Generate(ctx, "user-1", strings.Repeat("x", 2001)); !eris.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for long prompt, got %v", err)
	}
	if _, err := h.service.Generate(ctx, "", "a bakery"); !eris.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without owner, got %v", err)
	}
	if h.generator.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", h.generator.calls)
	}
}

func TestGenerateFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	failing := newServiceHarness(t, nil)
	failing.generator.err = eris.New("upstream timeout")
	if _, err := failing.service.Generate(ctx, "user-1", "a bakery"); !eris.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	empty := newServiceHarness(t, nil)
	empty.generator.html = "  \n "
	if _, err := empty.service.Generate(ctx, "user-1", "a bakery"); !eris.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed for empty output, got %v", err)
	}

	limited := newServiceHarness(t, func(opts *ServiceOptions) { opts.Limiter = denyLimiter{} })
	if _, err := limited.service.Generate(ctx, "user-1", "a bakery"); !eris.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if limited.generator.calls != 0 {
		t.Fatalf("expected limiter to stop the generator call")
	}

	storage := newServiceHarness(t, nil)
	storage.repo.failAll = eris.New("disk full")
	if _, err := storage.service.Generate(ctx, "user-1", "a bakery"); !eris.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	for _, h := range []*serviceHarness{failing, empty, limited} {
		if pages, _ := h.repo.ListByOwner(ctx, "user-1"); len(pages) != 0 {
			t.Fatalf("expected nothing stored on failure, got %d pages", len(pages))
		}
	}
}

func TestOwnerOperationsRequireOwnership(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	page, err := h.service.Generate(ctx, "user-1", "a bakery")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	title := "Stolen"
	checks := map[string]func(actor string) error{
		"get": func(actor string) error {
			_, err := h.service.Get(ctx, actor, page.ID)
			return err
		},
		"edit": func(actor string) error {
			_, err := h.service.Edit(ctx, actor, page.ID, PageEdit{Title: &title})
			return err
		},
		"regenerate": func(actor string) error {
			_, err := h.service.Regenerate(ctx, actor, page.ID)
			return err
		},
		"publish": func(actor string) error {
			_, err := h.service.Publish(ctx, actor, page.ID)
			return err
		},
		"unpublish": func(actor string) error {
			return h.service.Unpublish(ctx, actor, page.ID)
		},
	}

	for name, check := range checks {
		for _, actor := range []string{"user-2", ""} {
			if err := check(actor); !eris.Is(err, ErrUnauthorized) {
				t.Fatalf("%s as %q: expected ErrUnauthorized, got %v", name, actor, err)
			}
		}
	}

	if h.repo.updateCount() != 0 {
		t.Fatalf("expected no writes from unauthorized actors, got %d", h.repo.updateCount())
	}
	if h.generator.calls != 1 {
		t.Fatalf("expected no regeneration by other actors, got %d generator calls", h.generator.calls)
	}

	if _, err := h.service.Get(ctx, "user-1", "missing"); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing page, got %v", err)
	}
}

func TestListReturnsOnlyOwnerPages(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	for _, owner := range []string{"user-1", "user-2", "user-1"} {
		if _, err := h.service.Generate(ctx, owner, "a bakery"); err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
	}

	pages, err := h.service.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for _, page := range pages {
		if page.OwnerID != "user-1" {
			t.Fatalf("expected only user-1 pages, got owner %s", page.OwnerID)
		}
	}

	empty, err := h.service.List(ctx, "user-3")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no pages for user-3, got %d (%v)", len(empty), err)
	}

	if _, err := h.service.List(ctx, " "); !eris.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without owner, got %v", err)
	}
}

func TestEditUpdatesDisplayFields(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	page, _ := h.service.Generate(ctx, "user-1", "a bakery")

	title := "  Bread & Co  "
	html := "<main>hand edited</main>"
	edited, err := h.service.Edit(ctx, "user-1", page.ID, PageEdit{Title: &title, HTMLContent: &html})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if edited.Title != "Bread & Co" || edited.HTMLContent != html {
		t.Fatalf("unexpected edit result %+v", edited)
	}
	if edited.Prompt != page.Prompt {
		t.Fatalf("expected prompt to stay %q, got %q", page.Prompt, edited.Prompt)
	}
	if !edited.UpdatedAt.After(page.UpdatedAt) {
		t.Fatalf("expected updated timestamp to advance")
	}

	blank := " "
	if _, err := h.service.Edit(ctx, "user-1", page.ID, PageEdit{Title: &blank}); !eris.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank title, got %v", err)
	}
	if _, err := h.service.Edit(ctx, "user-1", page.ID, PageEdit{HTMLContent: &blank}); !eris.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank html, got %v", err)
	}
}

func TestRegenerateReplacesHTML(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	page, _ := h.service.Generate(ctx, "user-1", "a bakery")
	h.generator.html = "<section>second take</section>"

	regenerated, err := h.service.Regenerate(ctx, "user-1", page.ID)
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	if regenerated.HTMLContent != "<section>second take</section>" {
		t.Fatalf("expected new html, got %q", regenerated.HTMLContent)
	}
	if regenerated.Title != page.Title {
		t.Fatalf("expected title to be kept, got %q", regenerated.Title)
	}
	if h.generator.prompts[1] != page.Prompt {
		t.Fatalf("expected stored prompt to be reused, got %q", h.generator.prompts[1])
	}

	h.generator.err = eris.New("upstream down")
	if _, err := h.service.Regenerate(ctx, "user-1", page.ID); !eris.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	stored, _ := h.repo.GetByID(ctx, page.ID)
	if stored.HTMLContent != "<section>second take</section>" {
		t.Fatalf("expected failed regeneration to keep html, got %q", stored.HTMLContent)
	}
}

func TestReadPublicHidesDraftsAndOtherOwners(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	page, _ := h.service.Generate(ctx, "user-1", "a bakery")

	_, draftErr := h.service.ReadPublic(ctx, "user-1", page.ID)
	if !eris.Is(draftErr, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for draft, got %v", draftErr)
	}

	if _, err := h.service.Publish(ctx, "user-1", page.ID); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	html, err := h.service.ReadPublic(ctx, "user-1", page.ID)
	if err != nil {
		t.Fatalf("ReadPublic returned error: %v", err)
	}
	if html != page.HTMLContent {
		t.Fatalf("expected stored html verbatim, got %q", html)
	}

	_, otherErr := h.service.ReadPublic(ctx, "user-2", page.ID)
	_, missingErr := h.service.ReadPublic(ctx, "user-1", "missing")
	for name, err := range map[string]error{"other owner": otherErr, "missing": missingErr} {
		if !eris.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
		if err.Error() != draftErr.Error() {
			t.Fatalf("%s: expected indistinguishable error %q, got %q", name, draftErr.Error(), err.Error())
		}
	}

	if err := h.service.Unpublish(ctx, "user-1", page.ID); err != nil {
		t.Fatalf("Unpublish returned error: %v", err)
	}
	if _, err := h.service.ReadPublic(ctx, "user-1", page.ID); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected unpublished page to be hidden, got %v", err)
	}

	h.repo.failAll = eris.New("database is locked")
	if _, err := h.service.ReadPublic(ctx, "user-1", page.ID); !eris.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage on store failure, got %v", err)
	}
}

func TestReadPublicAppliesSanitizer(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, func(opts *ServiceOptions) { opts.Sanitizer = markingSanitizer{} })
	ctx := context.Background()

	page, _ := h.service.Generate(ctx, "user-1", "a bakery")
	if _, err := h.service.Publish(ctx, "user-1", page.ID); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	html, err := h.service.ReadPublic(ctx, "user-1", page.ID)
	if err != nil {
		t.Fatalf("ReadPublic returned error: %v", err)
	}
	if !strings.HasPrefix(html, "<!-- sanitized -->") {
		t.Fatalf("expected sanitized html, got %q", html)
	}

	stored, _ := h.repo.GetByID(ctx, page.ID)
	if stored.HTMLContent != page.HTMLContent {
		t.Fatalf("expected stored html to be untouched, got %q", stored.HTMLContent)
	}
}

func TestServicePublishReturnsStableURL(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	page, _ := h.service.Generate(ctx, "user-1", "a bakery")

	url, err := h.service.Publish(ctx, "user-1", page.ID)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if url != "https://landai.test/#/p/user-1/"+page.ID {
		t.Fatalf("unexpected public url %q", url)
	}

	again, err := h.service.Publish(ctx, "user-1", page.ID)
	if err != nil || again != url {
		t.Fatalf("expected repeated publish to return %q, got %q (%v)", url, again, err)
	}

	if !h.service.GeneratorReady() {
		t.Fatalf("expected generator to be ready")
	}
}

func TestGeneratorReadyTracksConsecutiveFailures(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t, nil)
	ctx := context.Background()

	if !h.service.GeneratorReady() {
		t.Fatalf("expected fresh generator to be ready")
	}

	h.generator.err = eris.New("upstream down")
	for i := 0; i < generatorFailureThreshold; i++ {
		_, _ = h.service.Generate(ctx, "user-1", "a bakery")
	}
	if h.service.GeneratorReady() {
		t.Fatalf("expected generator to be unhealthy after %d failures", generatorFailureThreshold)
	}

	h.generator.err = nil
	if _, err := h.service.Generate(ctx, "user-1", "a bakery"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !h.service.GeneratorReady() {
		t.Fatalf("expected a successful call to restore readiness")
	}
}
