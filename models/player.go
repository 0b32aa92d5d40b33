// models/player.go - Local projection of authenticated players
package models

import "time"

// Player mirrors the identity provider's user. The ID comes from the token's user_id claim.
type Player struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username     string    `json:"username" gorm:"not null;size:100;index"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Player) TableName() string {
	return "players"
}
