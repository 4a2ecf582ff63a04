package pages

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Page is a generated landing page owned by exactly one user.
// PublicURL is non-empty exactly when IsPublished is true.
type Page struct {
	ID          string
	OwnerID     string
	Title       string
	Prompt      string
	HTMLContent string
	IsPublished bool
	PublicURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPage carries the fields supplied when a page is first stored.
type NewPage struct {
	OwnerID     string
	Title       string
	Prompt      string
	HTMLContent string
}

// PageUpdate is a partial update; nil fields are left untouched.
// IsPublished and PublicURL must be set together.
type PageUpdate struct {
	Title       *string
	HTMLContent *string
	IsPublished *bool
	PublicURL   *string
}

// PageEdit holds the owner-editable display fields.
type PageEdit struct {
	Title       *string
	HTMLContent *string
}

// Validate enforces the publication invariant on a partial update.
func (u PageUpdate) Validate() error {
	if (u.IsPublished == nil) != (u.PublicURL == nil) {
		return eris.Wrap(ErrInvalidUpdate, "publication state and public url must change together")
	}
	if u.IsPublished != nil && *u.IsPublished != (strings.TrimSpace(*u.PublicURL) != "") {
		return eris.Wrap(ErrInvalidUpdate, "public url must be present exactly when published")
	}
	return nil
}

// PublishUpdate returns the update that publishes a page at url.
func PublishUpdate(url string) PageUpdate {
	published := true
	return PageUpdate{IsPublished: &published, PublicURL: &url}
}

// UnpublishUpdate returns the update that returns a page to draft.
func UnpublishUpdate() PageUpdate {
	published := false
	empty := ""
	return PageUpdate{IsPublished: &published, PublicURL: &empty}
}

const titleMaxRunes = 30

// DeriveTitle builds a display title from the prompt: the trimmed prompt, cut to 30
// characters with a trailing "..." when longer.
func DeriveTitle(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	if utf8.RuneCountInString(trimmed) <= titleMaxRunes {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:titleMaxRunes]) + "..."
}
