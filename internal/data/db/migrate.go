package db

import (
	"gorm.io/gorm"

	types "github.com/quiltline/patternvault-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity + auth
		&types.AdminUser{},

		// Catalog
		&types.Pattern{},
		&types.Keyword{},
		&types.PatternKeyword{},

		// Ingestion audit
		&types.UploadBatch{},
	)
}
