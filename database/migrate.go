// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	log.Info("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.Player{},
		&models.CountryFact{},
		&models.LeaderboardEntry{},
	); err != nil {
		return fmt.Errorf("failed to run core migrations: %w", err)
	}

	if err := runLobbyMigrations(db); err != nil {
		return fmt.Errorf("failed to run lobby migrations: %w", err)
	}

	if err := createIndexes(db, coreIndexes); err != nil {
		return err
	}

	log.Info("✅ All migrations completed successfully")
	return nil
}

var coreIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_players_username_lower ON players(LOWER(username))",
	"CREATE INDEX IF NOT EXISTS idx_country_facts_country ON country_facts(country_name)",
	"CREATE INDEX IF NOT EXISTS idx_leaderboards_casual ON leaderboards(casual_points DESC)",
	"CREATE INDEX IF NOT EXISTS idx_leaderboards_expert ON leaderboards(expert_points DESC)",
	"CREATE INDEX IF NOT EXISTS idx_leaderboards_timed ON leaderboards(timed_points DESC)",
	"CREATE INDEX IF NOT EXISTS idx_leaderboards_daily ON leaderboards(daily_points DESC)",
}

func createIndexes(db *gorm.DB, statements []string) error {
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
