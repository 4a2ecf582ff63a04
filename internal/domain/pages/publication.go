package pages

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// PublisherOptions configures the publication manager.
type PublisherOptions struct {
	Repository Repository
	// Origin is the scheme and host public links are built on, e.g. "https://landai.app".
	Origin string
	// PathRouting builds "<origin>/p/<owner>/<page>" links instead of the fragment form.
	PathRouting bool
	Logger      *logrus.Logger
}

// Publisher moves pages between draft and published and owns the public URL format.
type Publisher struct {
	repo        Repository
	origin      string
	pathRouting bool
	logger      *logrus.Logger
}

// NewPublisher constructs a Publisher.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}

	origin := strings.TrimRight(strings.TrimSpace(opts.Origin), "/")
	if origin == "" {
		return nil, eris.New("public origin is required")
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, eris.Errorf("public origin must be an absolute URL: %q", opts.Origin)
	}

	return &Publisher{
		repo:        opts.Repository,
		origin:      origin,
		pathRouting: opts.PathRouting,
		logger:      opts.Logger,
	}, nil
}

// PublicURL returns the public address of a page. The result depends only on the
// owner and page identifiers.
func (p *Publisher) PublicURL(ownerID, pageID string) string {
	owner := url.PathEscape(ownerID)
	page := url.PathEscape(pageID)
	if p.pathRouting {
		return p.origin + "/p/" + owner + "/" + page
	}
	return p.origin + "/#/p/" + owner + "/" + page
}

// Publish makes the actor's page public and returns its URL. Publishing an already
// published page returns the same URL without writing.
func (p *Publisher) Publish(ctx context.Context, actorID, pageID string) (string, error) {
	fields := logrus.Fields{"page_id": pageID, "actor_id": actorID}

	page, err := p.repo.GetByID(ctx, pageID)
	if err != nil {
		if !eris.Is(err, ErrNotFound) {
			p.logError(fields, err, "loading page for publish")
		}
		return "", categorize(err, "loading page for publish")
	}

	if err := Authorize(actorID, page); err != nil {
		return "", err
	}

	publicURL := p.PublicURL(page.OwnerID, page.ID)
	if page.IsPublished && page.PublicURL == publicURL {
		return publicURL, nil
	}

	if err := p.repo.Update(ctx, page.ID, PublishUpdate(publicURL)); err != nil {
		p.logError(fields, err, "persisting publication")
		return "", categorize(err, "persisting publication")
	}

	if p.logger != nil {
		p.logger.WithFields(fields).WithField("public_url", publicURL).Info("page published")
	}

	return publicURL, nil
}

// Unpublish returns the actor's page to draft and clears its public URL.
// Unpublishing a draft is a no-op.
func (p *Publisher) Unpublish(ctx context.Context, actorID, pageID string) error {
	fields := logrus.Fields{"page_id": pageID, "actor_id": actorID}

	page, err := p.repo.GetByID(ctx, pageID)
	if err != nil {
		if !eris.Is(err, ErrNotFound) {
			p.logError(fields, err, "loading page for unpublish")
		}
		return categorize(err, "loading page for unpublish")
	}

	if err := Authorize(actorID, page); err != nil {
		return err
	}

	if !page.IsPublished && page.PublicURL == "" {
		return nil
	}

	if err := p.repo.Update(ctx, page.ID, UnpublishUpdate()); err != nil {
		p.logError(fields, err, "persisting unpublish")
		return categorize(err, "persisting unpublish")
	}

	if p.logger != nil {
		p.logger.WithFields(fields).Info("page unpublished")
	}

	return nil
}

func (p *Publisher) logError(fields logrus.Fields, err error, message string) {
	if p.logger == nil || err == nil {
		return
	}

	entry := p.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
