package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"landai/app/internal/platform/validation"
)

// Service signs users up and in and resolves bearer tokens to users.
type Service interface {
	SignUp(ctx context.Context, input SignUpInput) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*User, error)
}

// ServiceOptions wires the identity service.
type ServiceOptions struct {
	Repository Repository
	Tokens     TokenIssuer
	Passwords  PasswordHasher
	Validator  *validation.Validator
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
}

type service struct {
	repo      Repository
	tokens    TokenIssuer
	passwords PasswordHasher
	validator *validation.Validator
	logger    *logrus.Logger
	sentryHub *sentry.Hub

	decoyOnce sync.Once
	decoyHash string
}

// decoyPassword is hashed once so unknown emails still pay for a verify.
const decoyPassword = "landai-sign-in-decoy"

var _ Service = (*service)(nil)

// NewService constructs the identity service.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("user repository is required")
	}
	if opts.Tokens == nil {
		return nil, eris.New("token issuer is required")
	}
	if opts.Passwords == nil {
		return nil, eris.New("password hasher is required")
	}

	validator := opts.Validator
	if validator == nil {
		validator = validation.New()
	}

	return &service{
		repo:      opts.Repository,
		tokens:    opts.Tokens,
		passwords: opts.Passwords,
		validator: validator,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) SignUp(ctx context.Context, input SignUpInput) (*Session, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Email = NormalizeEmail(input.Email)

	if err := s.validator.Validate(input); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	if input.Password != input.ConfirmPassword {
		return nil, eris.Wrap(ErrPasswordMismatch, "validating sign up")
	}

	existing, err := s.repo.GetByEmail(ctx, input.Email)
	switch {
	case err == nil && existing != nil:
		return nil, eris.Wrap(ErrEmailTaken, "validating sign up")
	case err != nil && !eris.Is(err, ErrUserNotFound):
		s.recordError(logrus.Fields{"email": input.Email}, err, "checking existing account")
		return nil, eris.Wrap(ErrStorage, "checking existing account")
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		s.recordError(nil, err, "hashing password")
		return nil, eris.Wrap(err, "hashing password")
	}

	user, err := s.repo.Create(ctx, NewUser{
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: hash,
	})
	if err != nil {
		if eris.Is(err, ErrEmailTaken) {
			return nil, eris.Wrap(ErrEmailTaken, "creating account")
		}
		s.recordError(logrus.Fields{"email": input.Email}, err, "creating account")
		return nil, eris.Wrap(ErrStorage, "creating account")
	}

	if s.logger != nil {
		s.logger.WithField("user_id", user.ID).Info("account created")
	}

	return s.session(user)
}

func (s *service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		return nil, eris.Wrap(ErrInvalidCredentials, "signing in")
	}

	user, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil {
		if eris.Is(err, ErrUserNotFound) {
			s.verifyDecoy(password)
			return nil, eris.Wrap(ErrInvalidCredentials, "signing in")
		}
		s.recordError(logrus.Fields{"email": normalized}, err, "loading account for sign in")
		return nil, eris.Wrap(ErrStorage, "loading account for sign in")
	}

	ok, err := s.passwords.Verify(user.PasswordHash, password)
	if err != nil {
		s.recordError(logrus.Fields{"user_id": user.ID}, err, "verifying password")
		return nil, eris.Wrap(ErrInvalidCredentials, "signing in")
	}
	if !ok {
		return nil, eris.Wrap(ErrInvalidCredentials, "signing in")
	}

	return s.session(user)
}

func (s *service) Authenticate(ctx context.Context, token string) (*User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, eris.Wrap(ErrUnauthenticated, "missing token")
	}

	userID, err := s.tokens.Verify(trimmed)
	if err != nil {
		return nil, eris.Wrap(ErrUnauthenticated, "verifying token")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if eris.Is(err, ErrUserNotFound) {
			return nil, eris.Wrap(ErrUnauthenticated, "token subject no longer exists")
		}
		s.recordError(logrus.Fields{"user_id": userID}, err, "loading authenticated user")
		return nil, eris.Wrap(ErrStorage, "loading authenticated user")
	}

	return user, nil
}

// verifyDecoy runs a password check against a throwaway hash so a missing
// account costs about as much as a wrong password.
func (s *service) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.passwords.Hash(decoyPassword)
		if err != nil {
			s.recordError(nil, err, "hashing sign in decoy")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash == "" {
		return
	}
	_, _ = s.passwords.Verify(s.decoyHash, password)
}

func (s *service) session(user *User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recordError(logrus.Fields{"user_id": user.ID}, err, "issuing token")
		return nil, eris.Wrap(err, "issuing token")
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
