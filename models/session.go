// models/session.go - Multiplayer game sessions and their write-once records
package models

import (
	"time"

	"gorm.io/datatypes"
)

// NoAnswer is recorded for an Expert round the player timed out on.
const NoAnswer = "NO_ANSWER"

type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
)

// Round is one Expert round: the hidden target and the single clue shown for it.
type Round struct {
	Target string `json:"target"`
	Clue   string `json:"clue"`
}

// GameSession is one launched game. ActiveTableID is set while the session is running and is
// unique, so a table can hold at most one active session.
type GameSession struct {
	ID              uint                        `json:"id" gorm:"primaryKey"`
	GameID          string                      `json:"game_id" gorm:"uniqueIndex;not null;size:36"`
	TableID         uint                        `json:"table_id" gorm:"not null;index"`
	ActiveTableID   *uint                       `json:"-" gorm:"uniqueIndex:idx_game_sessions_active_table"`
	Mode            GameMode                    `json:"mode" gorm:"not null;size:20"`
	Target          string                      `json:"-" gorm:"size:100"`
	Clues           datatypes.JSONSlice[string] `json:"clues"`
	Rounds          datatypes.JSONSlice[Round]  `json:"-"`
	CurrentRound    int                         `json:"current_round" gorm:"not null;default:0"`
	ExpectedPlayers int                         `json:"expected_players" gorm:"not null"`
	StartedAt       time.Time                   `json:"started_at" gorm:"not null"`
	RoundStartedAt  time.Time                   `json:"round_started_at" gorm:"not null"`
	FinishedAt      *time.Time                  `json:"finished_at"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (GameSession) TableName() string {
	return "game_sessions"
}

func (s *GameSession) IsActive() bool {
	return s.ActiveTableID != nil
}

func (s *GameSession) Status() SessionStatus {
	if s.IsActive() {
		return SessionActive
	}
	return SessionFinished
}

func (s *GameSession) TotalRounds() int {
	return len(s.Rounds)
}

func (s *GameSession) IsLastRound() bool {
	return s.CurrentRound >= len(s.Rounds)-1
}

// SessionResult is a player's standing in a session. For single-target modes its existence
// means the player's score is recorded; in Timed it carries lives and the served question.
type SessionResult struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	SessionID     uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_session_results_player"`
	PlayerID      uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_session_results_player;index"`
	Score         int       `json:"score" gorm:"not null;default:0"`
	Lives         int       `json:"lives"`
	CurrentTarget string    `json:"-" gorm:"size:100"`
	CurrentClue   string    `json:"-" gorm:"type:text"`
	QuestionSeq   int       `json:"question_seq" gorm:"not null;default:0"`
	RecordedAt    time.Time `json:"recorded_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (SessionResult) TableName() string {
	return "session_results"
}

// RoundAnswer is written once per (session, round, player).
type RoundAnswer struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SessionID   uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_round_answers_once"`
	RoundNumber int       `json:"round_number" gorm:"not null;uniqueIndex:idx_round_answers_once"`
	PlayerID    uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_round_answers_once"`
	Answer      string    `json:"answer" gorm:"size:100"`
	IsCorrect   bool      `json:"is_correct"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}

func (RoundAnswer) TableName() string {
	return "round_answers"
}

// RoundVote is a player's vote to move past a round, once per (session, round, player).
type RoundVote struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SessionID   uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_round_votes_once"`
	RoundNumber int       `json:"round_number" gorm:"not null;uniqueIndex:idx_round_votes_once"`
	PlayerID    uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_round_votes_once"`
	CreatedAt   time.Time `json:"created_at"`
}

func (RoundVote) TableName() string {
	return "round_votes"
}
