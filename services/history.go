// services/history.go - Finished multiplayer games per player
package services

import (
	"context"
	"fmt"
	"time"

	"decantry/models"
)

// HistoryEntry is one finished session the player took part in.
type HistoryEntry struct {
	GameID     string          `json:"gameId"`
	Mode       models.GameMode `json:"mode"`
	TableID    uint            `json:"tableId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt"`
	Score      int             `json:"score"`
}

const historySelect = `game_sessions.game_id, game_sessions.mode, game_sessions.table_id,
	game_sessions.started_at, game_sessions.finished_at,
	COALESCE(
		(SELECT sr.score FROM session_results sr WHERE sr.session_id = game_sessions.id AND sr.player_id = @player),
		(SELECT SUM(ra.points) FROM round_answers ra WHERE ra.session_id = game_sessions.id AND ra.player_id = @player),
		0) AS score`

// PlayerHistory returns the player's most recent finished sessions, newest first. A player took
// part in a session if they have a result or a round answer in it.
func (s *StatsService) PlayerHistory(ctx context.Context, playerID uint, limit int) ([]HistoryEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	args := map[string]interface{}{"player": playerID}
	entries := []HistoryEntry{}
	err := s.db.WithContext(ctx).Model(&models.GameSession{}).
		Select(historySelect, args).
		Where("game_sessions.active_table_id IS NULL").
		Where(`(EXISTS (SELECT 1 FROM session_results sr WHERE sr.session_id = game_sessions.id AND sr.player_id = @player)
			OR EXISTS (SELECT 1 FROM round_answers ra WHERE ra.session_id = game_sessions.id AND ra.player_id = @player))`, args).
		Order("game_sessions.started_at DESC, game_sessions.id DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get player history: %w", err)
	}
	return entries, nil
}
