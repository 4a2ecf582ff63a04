package pages

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainpages "landai/app/internal/domain/pages"
	"landai/app/internal/platform/id"
)

// Repository persists landing pages using a Gorm database connection.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
	newID  func() (string, error)
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() (string, error) { return id.Generate(id.PrefixPage) },
	}, nil
}

var _ domainpages.Repository = (*Repository)(nil)

// Create stores a new draft page and returns it with its assigned id and timestamps.
func (r *Repository) Create(ctx context.Context, page domainpages.NewPage) (*domainpages.Page, error) {
	ownerID := strings.TrimSpace(page.OwnerID)
	if ownerID == "" {
		return nil, eris.Wrap(domainpages.ErrInvalidInput, "page owner is required")
	}

	pageID, err := r.newID()
	if err != nil {
		r.logError(logrus.Fields{"owner_id": ownerID}, err, "generating page id")
		return nil, eris.Wrap(err, "generating page id")
	}

	now := r.now()
	record := &PageRecord{
		ID:          pageID,
		OwnerID:     ownerID,
		Title:       page.Title,
		Prompt:      page.Prompt,
		HTMLContent: page.HTMLContent,
		IsPublished: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logError(logrus.Fields{"owner_id": ownerID, "page_id": pageID}, err, "creating page")
		return nil, eris.Wrapf(err, "creating page for owner: %s", ownerID)
	}

	return toDomainPage(record), nil
}

// GetByID returns the full page record regardless of owner or publication state.
func (r *Repository) GetByID(ctx context.Context, pageID string) (*domainpages.Page, error) {
	trimmed := strings.TrimSpace(pageID)
	if trimmed == "" {
		return nil, eris.Wrap(domainpages.ErrNotFound, "page id is empty")
	}

	var record PageRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(domainpages.ErrNotFound, "fetching page by id: %s", trimmed)
		}
		r.logError(logrus.Fields{"page_id": trimmed}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %s", trimmed)
	}

	return toDomainPage(&record), nil
}

// ListByOwner returns the owner's pages ordered by creation time, newest first.
// Ordering is applied after the query so it does not depend on index support.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domainpages.Page, error) {
	trimmed := strings.TrimSpace(ownerID)
	if trimmed == "" {
		return []domainpages.Page{}, nil
	}

	var records []PageRecord
	if err := r.db.WithContext(ctx).Where("owner_id = ?", trimmed).Find(&records).Error; err != nil {
		r.logError(logrus.Fields{"owner_id": trimmed}, err, "listing pages by owner")
		return nil, eris.Wrapf(err, "listing pages for owner: %s", trimmed)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	pages := make([]domainpages.Page, 0, len(records))
	for i := range records {
		pages = append(pages, *toDomainPage(&records[i]))
	}

	return pages, nil
}

// Update merges the supplied fields into the page and refreshes UpdatedAt.
// Owner and creation time are never written.
func (r *Repository) Update(ctx context.Context, pageID string, update domainpages.PageUpdate) error {
	trimmed := strings.TrimSpace(pageID)
	if trimmed == "" {
		return eris.Wrap(domainpages.ErrNotFound, "page id is empty")
	}

	if err := update.Validate(); err != nil {
		return err
	}

	values := map[string]any{"updated_at": r.now()}
	if update.Title != nil {
		values["title"] = *update.Title
	}
	if update.HTMLContent != nil {
		values["html_content"] = *update.HTMLContent
	}
	if update.IsPublished != nil {
		values["is_published"] = *update.IsPublished
		if *update.IsPublished {
			values["public_url"] = strings.TrimSpace(*update.PublicURL)
		} else {
			values["public_url"] = nil
		}
	}

	result := r.db.WithContext(ctx).Model(&PageRecord{}).Where("id = ?", trimmed).Updates(values)
	if result.Error != nil {
		r.logError(logrus.Fields{"page_id": trimmed}, result.Error, "updating page")
		return eris.Wrapf(result.Error, "updating page: %s", trimmed)
	}

	if result.RowsAffected == 0 {
		return eris.Wrapf(domainpages.ErrNotFound, "updating page: %s", trimmed)
	}

	return nil
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func toDomainPage(record *PageRecord) *domainpages.Page {
	if record == nil {
		return nil
	}

	page := &domainpages.Page{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		Title:       record.Title,
		Prompt:      record.Prompt,
		HTMLContent: record.HTMLContent,
		IsPublished: record.IsPublished,
		CreatedAt:   record.CreatedAt.UTC(),
		UpdatedAt:   record.UpdatedAt.UTC(),
	}
	if record.PublicURL != nil {
		page.PublicURL = *record.PublicURL
	}
	return page
}
