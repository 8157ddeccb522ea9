package schema

import (
	"gorm.io/gorm"
)

// AllModels returns all bookkeeping models for GORM AutoMigrate.
func AllModels() []any {
	return []any{
		&Dataset{},
	}
}

// Migrate runs GORM AutoMigrate to create or update bookkeeping tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
