package pages

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
)

func newTestPublisher(t *testing.T, repo Repository, origin string, pathRouting bool) *Publisher {
	t.Helper()

	publisher, err := NewPublisher(PublisherOptions{
		Repository:  repo,
		Origin:      origin,
		PathRouting: pathRouting,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewPublisher returned error: %v", err)
	}
	return publisher
}

func TestPublicURLForms(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()

	fragment := newTestPublisher(t, repo, "https://landai.test/", false)
	if got := fragment.PublicURL("user-1", "page-1"); got != "https://landai.test/#/p/user-1/page-1" {
		t.Fatalf("unexpected fragment url %q", got)
	}

	path := newTestPublisher(t, repo, "https://landai.test", true)
	if got := path.PublicURL("user 1", "page/1"); got != "https://landai.test/p/user%201/page%2F1" {
		t.Fatalf("unexpected path url %q", got)
	}
}

func TestNewPublisherValidatesOptions(t *testing.T) {
	t.Parallel()

	if _, err := NewPublisher(PublisherOptions{Origin: "https://landai.test"}); err == nil {
		t.Fatalf("expected error without repository")
	}

	for _, origin := range []string{"", "landai.test", "/relative"} {
		if _, err := NewPublisher(PublisherOptions{Repository: newMemoryRepository(), Origin: origin}); err == nil {
			t.Fatalf("expected error for origin %q", origin)
		}
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository()
	publisher := newTestPublisher(t, repo, "https://landai.test", false)

	page, err := repo.Create(ctx, NewPage{OwnerID: "user-1", Title: "Bakery", Prompt: "a bakery", HTMLContent: "<p>bread</p>"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := publisher.Publish(ctx, "user-1", page.ID)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	second, err := publisher.Publish(ctx, "user-1", page.ID)
	if err != nil {
		t.Fatalf("second Publish returned error: %v", err)
	}

	if first != second {
		t.Fatalf("expected identical urls, got %q and %q", first, second)
	}
	if repo.updateCount() != 1 {
		t.Fatalf("expected a single write, got %d", repo.updateCount())
	}

	stored, _ := repo.GetByID(ctx, page.ID)
	if !stored.IsPublished || stored.PublicURL != first {
		t.Fatalf("expected stored page to be published at %q, got %+v", first, stored)
	}
}

func TestPublishRejectsOtherActors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository()
	publisher := newTestPublisher(t, repo, "https://landai.test", false)

	page, _ := repo.Create(ctx, NewPage{OwnerID: "user-1", Prompt: "a bakery", HTMLContent: "<p>bread</p>"})

	if _, err := publisher.Publish(ctx, "user-2", page.ID); !eris.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := publisher.Publish(ctx, "user-1", "missing"); !eris.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := publisher.Unpublish(ctx, "user-2", page.ID); !eris.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on unpublish, got %v", err)
	}
	if repo.updateCount() != 0 {
		t.Fatalf("expected no writes, got %d", repo.updateCount())
	}
}

func TestUnpublishClearsURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository()
	publisher := newTestPublisher(t, repo, "https://landai.test", false)

	page, _ := repo.Create(ctx, NewPage{OwnerID: "user-1", Prompt: "a bakery", HTMLContent: "<p>bread</p>"})

	if err := publisher.Unpublish(ctx, "user-1", page.ID); err != nil {
		t.Fatalf("Unpublish of a draft returned error: %v", err)
	}
	if repo.updateCount() != 0 {
		t.Fatalf("expected unpublishing a draft to skip the write, got %d", repo.updateCount())
	}

	if _, err := publisher.Publish(ctx, "user-1", page.ID); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := publisher.Unpublish(ctx, "user-1", page.ID); err != nil {
		t.Fatalf("Unpublish returned error: %v", err)
	}

	stored, _ := repo.GetByID(ctx, page.ID)
	if stored.IsPublished || stored.PublicURL != "" {
		t.Fatalf("expected draft without url, got %+v", stored)
	}
}

func TestPublishMapsStorageFailures(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	repo.failAll = eris.New("database is locked")
	publisher := newTestPublisher(t, repo, "https://landai.test", false)

	if _, err := publisher.Publish(context.Background(), "user-1", "page-001"); !eris.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
