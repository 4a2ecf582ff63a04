package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	pagedata "landai/app/internal/data/pages"
	userdata "landai/app/internal/data/users"
)

// Migrate applies the LandAI schema (users and landing pages) using Gorm's AutoMigrate.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "landai.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying schema")
	}

	models := []any{&userdata.UserRecord{}, &pagedata.PageRecord{}}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("schema migration failed")
		}
		return eris.Wrap(err, "auto migrating schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("schema migration complete")
	}

	return nil
}
