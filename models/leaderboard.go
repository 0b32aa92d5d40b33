// models/leaderboard.go - Score ledger totals
package models

import "time"

type LeaderboardEntry struct {
	PlayerID     uint      `json:"player_id" gorm:"primaryKey;autoIncrement:false"`
	CasualPoints int       `json:"casual_points" gorm:"not null;default:0"`
	DailyPoints  int       `json:"daily_points" gorm:"not null;default:0"`
	ExpertPoints int       `json:"expert_points" gorm:"not null;default:0"`
	TimedPoints  int       `json:"timed_points" gorm:"not null;default:0"`
	TotalPoints  int       `json:"total_points" gorm:"not null;default:0;index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboards"
}

// PointsColumn names the per-mode column a mode's points accumulate in.
func PointsColumn(mode GameMode) string {
	switch mode {
	case ModeDaily:
		return "daily_points"
	case ModeExpert:
		return "expert_points"
	case ModeTimed:
		return "timed_points"
	default:
		return "casual_points"
	}
}
