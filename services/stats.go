// services/stats.go - Leaderboard reads over the score ledger totals
package services

import (
	"context"
	"errors"
	"fmt"

	"decantry/models"

	"gorm.io/gorm"
)

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

type LeaderboardRow struct {
	PlayerID uint   `json:"player_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Leaderboard returns the top players for a mode, or by total points when mode is empty.
func (s *StatsService) Leaderboard(ctx context.Context, mode string, limit int) ([]LeaderboardRow, error) {
	column := "total_points"
	if mode != "" && mode != "All" {
		m, ok := models.ParseGameMode(mode)
		if !ok {
			return nil, invalid("Unknown game mode %q", mode)
		}
		column = models.PointsColumn(m)
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	rows := []LeaderboardRow{}
	err := s.db.WithContext(ctx).Model(&models.LeaderboardEntry{}).
		Select("leaderboards.player_id, COALESCE(players.username, '') AS username, leaderboards." + column + " AS score").
		Joins("LEFT JOIN players ON players.id = leaderboards.player_id").
		Where("leaderboards." + column + " > 0").
		Order("leaderboards." + column + " DESC, leaderboards.player_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return rows, nil
}

// PlayerStats returns the player's totals; a player with no points yet gets a zero entry.
func (s *StatsService) PlayerStats(ctx context.Context, playerID uint) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.LeaderboardEntry{PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &entry, nil
}
