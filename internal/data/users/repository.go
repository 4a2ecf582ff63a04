package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"landai/app/internal/domain/identity"
	"landai/app/internal/platform/id"
)

// Repository persists accounts using a Gorm database connection.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewRepository constructs a Gorm-backed user repository.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

var _ identity.Repository = (*Repository)(nil)

// Create stores a new account. Duplicate emails yield identity.ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, user identity.NewUser) (*identity.User, error) {
	email := identity.NormalizeEmail(user.Email)
	if email == "" {
		return nil, eris.Wrap(identity.ErrInvalidInput, "email is required")
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, eris.Wrap(err, "generating user id")
	}

	record := &UserRecord{
		ID:           userID,
		Email:        email,
		DisplayName:  strings.TrimSpace(user.DisplayName),
		PasswordHash: user.PasswordHash,
		CreatedAt:    r.now(),
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, eris.Wrapf(identity.ErrEmailTaken, "creating user with email %s", email)
		}
		r.logError(logrus.Fields{"email": email}, err, "creating user")
		return nil, eris.Wrap(err, "creating user")
	}

	return toDomainUser(record), nil
}

// GetByID returns the account with the given id.
func (r *Repository) GetByID(ctx context.Context, userID string) (*identity.User, error) {
	return r.first(ctx, "id = ?", strings.TrimSpace(userID))
}

// GetByEmail returns the account registered under email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.first(ctx, "email = ?", identity.NormalizeEmail(email))
}

func (r *Repository) first(ctx context.Context, query string, value string) (*identity.User, error) {
	if value == "" {
		return nil, eris.Wrap(identity.ErrUserNotFound, "empty lookup key")
	}

	var record UserRecord
	if err := r.db.WithContext(ctx).First(&record, query, value).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrap(identity.ErrUserNotFound, "looking up user")
		}
		r.logError(logrus.Fields{"query": query}, err, "looking up user")
		return nil, eris.Wrap(err, "looking up user")
	}

	return toDomainUser(&record), nil
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

func toDomainUser(record *UserRecord) *identity.User {
	if record == nil {
		return nil
	}

	return &identity.User{
		ID:           record.ID,
		Email:        record.Email,
		DisplayName:  record.DisplayName,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt.UTC(),
	}
}
