// models/table.go - Lobby tables and their memberships
package models

import (
	"strings"
	"time"
)

type GameMode string

const (
	ModeCasual GameMode = "Casual"
	ModeDaily  GameMode = "Daily"
	ModeExpert GameMode = "Expert"
	ModeTimed  GameMode = "Timed"
)

// ModeFamily groups modes that share session mechanics.
type ModeFamily int

const (
	FamilySingleTarget ModeFamily = iota
	FamilyRoundSequenced
	FamilyContinuousTimed
)

// ParseGameMode accepts a mode name in any letter case.
func ParseGameMode(s string) (GameMode, bool) {
	for _, m := range []GameMode{ModeCasual, ModeDaily, ModeExpert, ModeTimed} {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, true
		}
	}
	return "", false
}

func (m GameMode) Family() ModeFamily {
	switch m {
	case ModeExpert:
		return FamilyRoundSequenced
	case ModeTimed:
		return FamilyContinuousTimed
	default:
		return FamilySingleTarget
	}
}

type TableStatus string

const (
	TableWaiting TableStatus = "waiting"
	TablePlaying TableStatus = "playing"
)

// Table is a lobby. Its waiting/playing status is derived from the game_sessions table.
type Table struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null;size:100"`
	PasswordHash string    `json:"-" gorm:"size:100"`
	IsPrivate    bool      `json:"is_private" gorm:"default:false;index"`
	MaxPlayers   int       `json:"max_players" gorm:"not null;default:4"`
	Mode         GameMode  `json:"mode" gorm:"not null;size:20;default:'Casual'"`
	HostID       uint      `json:"host_id" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Table) TableName() string {
	return "game_tables"
}

func (t *Table) HasPassword() bool {
	return t.PasswordHash != ""
}

func (t *Table) IsHost(playerID uint) bool {
	return t.HostID == playerID
}

// TableMember is a player's seat at a table. A player holds at most one seat.
type TableMember struct {
	TableID       uint      `json:"table_id" gorm:"primaryKey;autoIncrement:false"`
	PlayerID      uint      `json:"player_id" gorm:"primaryKey;autoIncrement:false;uniqueIndex:idx_table_members_player"`
	IsReady       bool      `json:"is_ready" gorm:"not null;default:false"`
	IsInGame      bool      `json:"is_in_game" gorm:"not null;default:false"`
	SessionPoints int       `json:"session_points" gorm:"not null;default:0"`
	ClueIndex     int       `json:"clue_index" gorm:"not null;default:0"`
	JoinedAt      time.Time `json:"joined_at" gorm:"not null"`
}

func (TableMember) TableName() string {
	return "table_members"
}
