package identity

import (
	"context"
	"time"
)

// User is a LandAI account holder.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser carries the fields stored when an account is created.
type NewUser struct {
	Email        string
	DisplayName  string
	PasswordHash string
}

// Session is an authenticated user together with a bearer token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// SignUpInput is the registration form.
type SignUpInput struct {
	DisplayName     string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=6,max=1024"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// Repository persists user accounts. Lookups for missing users yield ErrUserNotFound.
type Repository interface {
	Create(ctx context.Context, user NewUser) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// TokenIssuer issues and verifies bearer tokens bound to a user id.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
	Verify(token string) (userID string, err error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}
