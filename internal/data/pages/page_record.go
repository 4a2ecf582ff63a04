package pages

import "time"

// PageRecord represents a landing page persisted in the database.
// Pages live in one flat table; owner scoping goes through the owner_id index.
type PageRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	OwnerID     string    `gorm:"size:64;not null;index:idx_landing_pages_owner"`
	Title       string    `gorm:"size:255;not null"`
	Prompt      string    `gorm:"type:text;not null"`
	HTMLContent string    `gorm:"type:text;not null"`
	IsPublished bool      `gorm:"not null;default:false"`
	PublicURL   *string   `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "landing_pages"
}
