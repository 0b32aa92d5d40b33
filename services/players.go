// services/players.go - Local player directory fed from auth claims
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"decantry/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayerDirectory struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPlayerDirectory(db *gorm.DB, clock *RoundClock) *PlayerDirectory {
	return &PlayerDirectory{db: db, now: clock.Now}
}

// Touch records the player's latest username and activity time.
func (d *PlayerDirectory) Touch(ctx context.Context, playerID uint, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = fmt.Sprintf("player-%d", playerID)
	}
	player := models.Player{ID: playerID, Username: username, LastActivity: d.now()}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "last_activity"}),
	}).Create(&player).Error
	if err != nil {
		return fmt.Errorf("failed to record player activity: %w", err)
	}
	return nil
}
