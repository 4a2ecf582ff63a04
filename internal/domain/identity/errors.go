package identity

import "github.com/rotisserie/eris"

var (
	ErrInvalidCredentials = eris.New("invalid email or password")
	ErrEmailTaken         = eris.New("email already registered")
	ErrUnauthenticated    = eris.New("authentication required")
	ErrPasswordMismatch   = eris.New("Passwords do not match")
	ErrInvalidInput       = eris.New("invalid account input")
	ErrUserNotFound       = eris.New("user not found")
	ErrStorage            = eris.New("account storage unavailable")
)
