package pages

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Authorize allows an owner operation only when actorID is the page owner.
// Every operation that reads a page for editing or mutates it calls this first.
func Authorize(actorID string, page *Page) error {
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return eris.Wrap(ErrUnauthorized, "no authenticated actor")
	}
	if page == nil {
		return eris.Wrap(ErrNotFound, "authorizing missing page")
	}
	if page.OwnerID != actor {
		return eris.Wrapf(ErrUnauthorized, "actor %s does not own page %s", actor, page.ID)
	}
	return nil
}
