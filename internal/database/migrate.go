package database

import (
	"fmt"

	"github.com/vodarr/vodarr/internal/models"
)

// Migrate creates or updates the schema for all vodarr models.
func (db *DB) Migrate() error {
	if err := db.AutoMigrate(
		&models.FavoriteSource{},
		&models.CollectionSource{},
		&models.SubmissionSource{},
		&models.WatchLaterSource{},
		&models.Video{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
