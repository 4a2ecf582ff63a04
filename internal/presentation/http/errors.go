package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"landai/app/internal/domain/identity"
	"landai/app/internal/domain/pages"
)

const (
	messageNotFoundOrUnauthorized = "Page not found or unauthorized"
	messageSignInRequired         = "Sign in to continue."
	messageGenerationFailed       = "We couldn't generate your landing page. Please try again."
	messageStorageUnavailable     = "Your pages are temporarily unavailable. Please try again shortly."
	messageRateLimited            = "You're generating pages too quickly. Please wait a moment and try again."
)

// apiError maps a domain error onto an RFC 9457 problem response. Unexpected
// errors are recorded before being hidden behind a generic 500.
func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	switch {
	case err == nil:
		return nil
	case eris.Is(err, identity.ErrPasswordMismatch):
		return huma.Error400BadRequest(identity.ErrPasswordMismatch.Error())
	case eris.Is(err, pages.ErrInvalidInput), eris.Is(err, pages.ErrInvalidUpdate), eris.Is(err, identity.ErrInvalidInput):
		return huma.Error422UnprocessableEntity(err.Error())
	case eris.Is(err, identity.ErrInvalidCredentials):
		return huma.Error401Unauthorized("Invalid email or password")
	case eris.Is(err, identity.ErrUnauthenticated):
		return huma.Error401Unauthorized(messageSignInRequired)
	case eris.Is(err, pages.ErrUnauthorized):
		return huma.Error403Forbidden(messageNotFoundOrUnauthorized)
	case eris.Is(err, pages.ErrNotFound):
		return huma.Error404NotFound(messageNotFoundOrUnauthorized)
	case eris.Is(err, identity.ErrEmailTaken):
		return huma.Error409Conflict("An account with this email already exists")
	case eris.Is(err, pages.ErrRateLimited):
		return huma.Error429TooManyRequests(messageRateLimited)
	case eris.Is(err, pages.ErrGenerationFailed):
		return huma.Error502BadGateway(messageGenerationFailed)
	case eris.Is(err, pages.ErrStorage), eris.Is(err, identity.ErrStorage):
		return huma.Error503ServiceUnavailable(messageStorageUnavailable)
	default:
		s.recordError(ctx, err, message, fields)
		return huma.Error500InternalServerError(errorFallbackMessage)
	}
}
