package pages

import "github.com/rotisserie/eris"

// Error categories surfaced by the page domain. Compare with eris.Is.
var (
	ErrNotFound         = eris.New("page not found")
	ErrUnauthorized     = eris.New("page access denied")
	ErrGenerationFailed = eris.New("page generation failed")
	ErrStorage          = eris.New("page storage unavailable")
	ErrInvalidInput     = eris.New("invalid page input")
	ErrInvalidUpdate    = eris.New("invalid page update")
	ErrRateLimited      = eris.New("page generation rate limited")
)

// categorize maps a store error onto the domain categories, keeping known ones as they are.
func categorize(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case eris.Is(err, ErrNotFound):
		return eris.Wrap(ErrNotFound, message)
	case eris.Is(err, ErrUnauthorized):
		return eris.Wrap(ErrUnauthorized, message)
	case eris.Is(err, ErrInvalidUpdate):
		return eris.Wrap(ErrInvalidUpdate, message)
	case eris.Is(err, ErrInvalidInput):
		return eris.Wrap(ErrInvalidInput, message)
	case eris.Is(err, ErrGenerationFailed):
		return eris.Wrap(ErrGenerationFailed, message)
	case eris.Is(err, ErrRateLimited):
		return eris.Wrap(ErrRateLimited, message)
	default:
		return eris.Wrap(ErrStorage, message)
	}
}
