package users

import "time"

// UserRecord represents an account persisted in the database.
type UserRecord struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:idx_users_email"`
	DisplayName  string    `gorm:"size:100;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName defines the table name for the UserRecord model.
func (UserRecord) TableName() string {
	return "users"
}
