// services/ledger.go - Score ledger: where awarded points end up
package services

import (
	"context"
	"fmt"

	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoreLedger receives every point award. Deltas are emitted after the award is committed.
type ScoreLedger interface {
	RecordDelta(ctx context.Context, playerID uint, mode models.GameMode, points int) error
}

// DBLedger accumulates deltas in the leaderboards table.
type DBLedger struct {
	db *gorm.DB
}

func NewDBLedger(db *gorm.DB) *DBLedger {
	return &DBLedger{db: db}
}

func (l *DBLedger) RecordDelta(ctx context.Context, playerID uint, mode models.GameMode, points int) error {
	if points == 0 {
		return nil
	}
	column := models.PointsColumn(mode)

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.LeaderboardEntry{PlayerID: playerID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create leaderboard entry: %w", err)
		}
		err := tx.Model(&models.LeaderboardEntry{}).
			Where("player_id = ?", playerID).
			Updates(map[string]interface{}{
				column:         gorm.Expr(column+" + ?", points),
				"total_points": gorm.Expr("total_points + ?", points),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to add points: %w", err)
		}
		return nil
	})
}

// award is a point grant waiting to be emitted once its transaction commits.
type award struct {
	playerID uint
	points   int
}

// emitAwards forwards committed awards to the ledger. Ledger failures are logged, not returned:
// the session state is already durable.
func emitAwards(ctx context.Context, ledger ScoreLedger, mode models.GameMode, awards ...award) {
	if ledger == nil {
		return
	}
	for _, a := range awards {
		if a.points == 0 {
			continue
		}
		if err := ledger.RecordDelta(ctx, a.playerID, mode, a.points); err != nil {
			log.WithFields(log.Fields{
				"player_id": a.playerID,
				"mode":      mode,
				"points":    a.points,
			}).WithError(err).Error("❌ Failed to record score delta")
		}
	}
}

// addSessionPoints credits points to the player's seat at the table.
func addSessionPoints(tx *gorm.DB, tableID, playerID uint, points int) error {
	if points == 0 {
		return nil
	}
	err := tx.Model(&models.TableMember{}).
		Where("table_id = ? AND player_id = ?", tableID, playerID).
		Update("session_points", gorm.Expr("session_points + ?", points)).Error
	if err != nil {
		return fmt.Errorf("failed to add session points: %w", err)
	}
	return nil
}
