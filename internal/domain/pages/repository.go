package pages

import "context"

// Repository defines persistence operations for landing pages.
//
// GetByID returns a page regardless of owner or publication state; callers apply
// Authorize or the public read rules. Missing pages yield an error matching ErrNotFound.
// ListByOwner returns only the owner's pages, newest first.
type Repository interface {
	Create(ctx context.Context, page NewPage) (*Page, error)
	GetByID(ctx context.Context, id string) (*Page, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Page, error)
	Update(ctx context.Context, id string, update PageUpdate) error
}
