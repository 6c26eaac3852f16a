package db

import (
	"fmt"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Entity directory (read models)
		// =========================
		&types.Client{},
		&types.Programme{},
		&types.Cohort{},
		&types.Module{},
		&types.Class{},

		// =========================
		// Content lineage
		// =========================
		&types.ContentVersion{},
		&types.ContentFile{},
		&types.ContentWithdrawal{},
		&types.VersionChange{},
		&types.CohortModuleAssignment{},

		// =========================
		// Integration
		// =========================
		&types.IntegrationSyncLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
