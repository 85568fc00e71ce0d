// internal/database/database.go
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dicom-catalog/internal/models"
)

// InitDB opens the shared database handle. The handle is passed explicitly to
// every component that needs it; there is no package-level connection.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// MigrateDB creates or updates the catalog tables. Order matters: parents
// before children so the foreign-key constraints can be created.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Patient{},
		&models.Modality{},
		&models.Study{},
		&models.Series{},
		&models.File{},
	)
}
