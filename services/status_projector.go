// services/status_projector.go - Polling snapshots of a game session
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decantry/config"
	"decantry/models"

	"gorm.io/gorm"
)

// StatusProjector computes what a polling client sees. Snapshots are read fresh from the store
// on every call; nothing is cached between polls.
type StatusProjector struct {
	db      *gorm.DB
	content ContentSource
	lc      *lifecycle
	clock   *RoundClock
	game    config.GameConfig
}

func NewStatusProjector(db *gorm.DB, content ContentSource, clock *RoundClock, game config.GameConfig) *StatusProjector {
	return &StatusProjector{
		db:      db,
		content: content,
		lc:      &lifecycle{clock: clock, game: game},
		clock:   clock,
		game:    game,
	}
}

// Snapshot is the status of one session. Exactly one of the mode sections is set.
type Snapshot struct {
	GameID            string               `json:"gameId"`
	Mode              models.GameMode      `json:"mode"`
	Status            models.SessionStatus `json:"status"`
	TableStatus       models.TableStatus   `json:"tableStatus"`
	IsGameOver        bool                 `json:"isGameOver"`
	ServerTime        int64                `json:"serverTime"`
	ResyncToleranceMs int                  `json:"resyncToleranceMs"`
	ExpectedPlayers   int                  `json:"expectedPlayers"`
	TotalPlayers      int64                `json:"totalPlayers"`
	FinishedCount     int64                `json:"finishedCount"`
	TimeLeft          *float64             `json:"timeLeft,omitempty"`

	*SingleTargetStatus
	*ExpertStatus
	*TimedStatus
}

type PlayerScore struct {
	PlayerID uint   `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type SingleTargetStatus struct {
	Results []PlayerScore `json:"results"`
}

type RoundResult struct {
	PlayerID  uint   `json:"playerId"`
	Username  string `json:"username"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"isCorrect"`
	Points    int    `json:"points"`
}

type ExpertStatus struct {
	CurrentRound   int           `json:"currentRound"`
	TotalRounds    int           `json:"totalRounds"`
	RoundStartTime int64         `json:"roundStartTime"`
	RoundComplete  bool          `json:"roundComplete"`
	RoundResults   []RoundResult `json:"roundResults"`
	CurrentTarget  string        `json:"currentCountry,omitempty"`
	TotalScores    []PlayerScore `json:"totalScores"`
	VotesCount     int64         `json:"votesCount"`
	HasVoted       bool          `json:"hasVoted"`
}

type TimedPlayer struct {
	PlayerID uint   `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Lives    int    `json:"lives"`
	InGame   bool   `json:"inGame"`
}

type TimedStatus struct {
	Players               []TimedPlayer `json:"players"`
	EffectiveTotalPlayers int64         `json:"effectiveTotalPlayers"`
}

// Poll settles a session whose terminal condition already holds (expiry is detected here, on
// the next poll) and returns its snapshot.
func (p *StatusProjector) Poll(ctx context.Context, gameID string, playerID uint) (*Snapshot, error) {
	db := p.db.WithContext(ctx)
	s, err := p.load(db, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if s.IsActive() {
		if err := db.Transaction(func(tx *gorm.DB) error { return p.lc.settle(tx, s) }); err != nil {
			return nil, err
		}
	}
	return p.project(db, s, playerID)
}

// Project returns the snapshot without changing any state.
func (p *StatusProjector) Project(ctx context.Context, gameID string, playerID uint) (*Snapshot, error) {
	db := p.db.WithContext(ctx)
	s, err := p.load(db, gameID, playerID)
	if err != nil {
		return nil, err
	}
	return p.project(db, s, playerID)
}

func (p *StatusProjector) load(db *gorm.DB, gameID string, playerID uint) (*models.GameSession, error) {
	s, err := findSession(db, gameID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(db, s.TableID, playerID); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *StatusProjector) project(db *gorm.DB, s *models.GameSession, playerID uint) (*Snapshot, error) {
	tableState, err := tableStatus(db, s.TableID)
	if err != nil {
		return nil, err
	}
	over, err := p.lc.isComplete(db, s)
	if err != nil {
		return nil, err
	}
	// Finishing a session clears in_game, so a finished session reports against its launch count.
	total := int64(s.ExpectedPlayers)
	if s.IsActive() {
		if total, err = countInGame(db, s.TableID); err != nil {
			return nil, err
		}
	}

	snap := &Snapshot{
		GameID:            s.GameID,
		Mode:              s.Mode,
		Status:            s.Status(),
		TableStatus:       tableState,
		IsGameOver:        over,
		ServerTime:        p.clock.ServerTimeMillis(),
		ResyncToleranceMs: p.game.ResyncToleranceMs,
		ExpectedPlayers:   s.ExpectedPlayers,
		TotalPlayers:      total,
	}

	switch s.Mode.Family() {
	case models.FamilyRoundSequenced:
		err = p.projectExpert(db, s, playerID, snap)
	case models.FamilyContinuousTimed:
		err = p.projectTimed(db, s, snap)
	default:
		err = p.projectSingle(db, s, snap)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (p *StatusProjector) projectSingle(db *gorm.DB, s *models.GameSession, snap *Snapshot) error {
	results := []PlayerScore{}
	err := db.Model(&models.SessionResult{}).
		Select("session_results.player_id, COALESCE(players.username, '') AS username, session_results.score").
		Joins("LEFT JOIN players ON players.id = session_results.player_id").
		Where("session_results.session_id = ?", s.ID).
		Order("session_results.score DESC, session_results.recorded_at ASC").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	snap.SingleTargetStatus = &SingleTargetStatus{Results: results}

	if !s.IsActive() {
		snap.FinishedCount = int64(len(results))
		return nil
	}
	snap.FinishedCount, err = countRecordedInGame(db, s)
	return err
}

func (p *StatusProjector) projectExpert(db *gorm.DB, s *models.GameSession, playerID uint, snap *Snapshot) error {
	round := s.CurrentRound
	answered, err := countAnswersInGame(db, s, round)
	if err != nil {
		return err
	}
	if !s.IsActive() {
		err = db.Model(&models.RoundAnswer{}).
			Where("session_id = ? AND round_number = ?", s.ID, round).
			Count(&answered).Error
		if err != nil {
			return fmt.Errorf("failed to count answers: %w", err)
		}
	}
	votes, err := countVotesInGame(db, s, round)
	if err != nil {
		return err
	}
	var mine int64
	err = db.Model(&models.RoundVote{}).
		Where("session_id = ? AND round_number = ? AND player_id = ?", s.ID, round, playerID).
		Count(&mine).Error
	if err != nil {
		return fmt.Errorf("failed to check vote: %w", err)
	}

	left := p.lc.remaining(s)
	if !s.IsActive() {
		left = 0
	}
	complete := answered >= snap.TotalPlayers || left == 0
	snap.FinishedCount = answered
	snap.TimeLeft = secondsPtr(left)

	expert := &ExpertStatus{
		CurrentRound:   round,
		TotalRounds:    s.TotalRounds(),
		RoundStartTime: s.RoundStartedAt.UnixMilli(),
		RoundComplete:  complete,
		RoundResults:   []RoundResult{},
		TotalScores:    []PlayerScore{},
		VotesCount:     votes,
		HasVoted:       mine > 0,
	}

	if complete || snap.IsGameOver {
		if round >= 0 && round < len(s.Rounds) {
			expert.CurrentTarget = s.Rounds[round].Target
		}
		err = db.Model(&models.RoundAnswer{}).
			Select(`round_answers.player_id, COALESCE(players.username, '') AS username, round_answers.answer,
				round_answers.is_correct, round_answers.points`).
			Joins("LEFT JOIN players ON players.id = round_answers.player_id").
			Where("round_answers.session_id = ? AND round_answers.round_number = ?", s.ID, round).
			Order("round_answers.points DESC, round_answers.created_at ASC").
			Scan(&expert.RoundResults).Error
		if err != nil {
			return fmt.Errorf("failed to load round results: %w", err)
		}
	}

	err = db.Model(&models.RoundAnswer{}).
		Select("round_answers.player_id, COALESCE(MAX(players.username), '') AS username, SUM(round_answers.points) AS score").
		Joins("LEFT JOIN players ON players.id = round_answers.player_id").
		Where("round_answers.session_id = ?", s.ID).
		Group("round_answers.player_id").
		Order("score DESC").
		Scan(&expert.TotalScores).Error
	if err != nil {
		return fmt.Errorf("failed to load total scores: %w", err)
	}

	snap.ExpertStatus = expert
	return nil
}

func (p *StatusProjector) projectTimed(db *gorm.DB, s *models.GameSession, snap *Snapshot) error {
	players := []TimedPlayer{}
	err := db.Model(&models.SessionResult{}).
		Select(`session_results.player_id, COALESCE(players.username, '') AS username, session_results.score,
			session_results.lives, COALESCE(table_members.is_in_game, false) AS in_game`).
		Joins("LEFT JOIN players ON players.id = session_results.player_id").
		Joins("LEFT JOIN table_members ON table_members.player_id = session_results.player_id AND table_members.table_id = ?", s.TableID).
		Where("session_results.session_id = ?", s.ID).
		Order("session_results.score DESC, session_results.player_id ASC").
		Scan(&players).Error
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	alive, err := countAliveInGame(db, s)
	if err != nil {
		return err
	}
	left := p.lc.remaining(s)
	if !s.IsActive() {
		left = 0
	}

	snap.FinishedCount = snap.TotalPlayers - alive
	if !s.IsActive() {
		snap.FinishedCount = int64(len(players))
	}
	snap.TimeLeft = secondsPtr(left)
	snap.TimedStatus = &TimedStatus{
		Players:               players,
		EffectiveTotalPlayers: alive,
	}
	return nil
}

// ================== INITIAL PAYLOAD ==================

// RoundClue is an Expert round as sent to players: the clue only.
type RoundClue struct {
	Round int    `json:"round"`
	Clue  string `json:"clue"`
}

// InitialPayload is what a client needs to render the running game at its table. Targets are
// never included.
type InitialPayload struct {
	GameID            string          `json:"gameId"`
	Mode              models.GameMode `json:"mode"`
	TableID           uint            `json:"tableId"`
	StartTime         int64           `json:"startTime"`
	ServerTime        int64           `json:"serverTime"`
	ResyncToleranceMs int             `json:"resyncToleranceMs"`
	DurationSeconds   int             `json:"duration,omitempty"`
	InGame            bool            `json:"inGame"`

	Clues     []string `json:"clues,omitempty"`
	ClueIndex *int     `json:"clueIndex,omitempty"`

	Rounds         []RoundClue `json:"rounds,omitempty"`
	CurrentRound   *int        `json:"currentRound,omitempty"`
	RoundStartTime int64       `json:"roundStartTime,omitempty"`

	Question *TimedQuestion `json:"question,omitempty"`
	Score    *int           `json:"score,omitempty"`
	Lives    *int           `json:"lives,omitempty"`
}

func (p *StatusProjector) InitialPayload(ctx context.Context, playerID, tableID uint) (*InitialPayload, error) {
	db := p.db.WithContext(ctx)

	if _, err := findTable(db, tableID); err != nil {
		return nil, err
	}
	member, err := requireMember(db, tableID, playerID)
	if err != nil {
		return nil, err
	}
	s, err := activeSession(db, tableID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("No active game at this table")
	}

	payload := &InitialPayload{
		GameID:            s.GameID,
		Mode:              s.Mode,
		TableID:           tableID,
		StartTime:         s.StartedAt.UnixMilli(),
		ServerTime:        p.clock.ServerTimeMillis(),
		ResyncToleranceMs: p.game.ResyncToleranceMs,
		InGame:            member.IsInGame,
	}

	switch s.Mode.Family() {
	case models.FamilyRoundSequenced:
		payload.DurationSeconds = p.game.ExpertRoundSeconds
		round := s.CurrentRound
		payload.CurrentRound = &round
		payload.RoundStartTime = s.RoundStartedAt.UnixMilli()
		for i, r := range s.Rounds {
			payload.Rounds = append(payload.Rounds, RoundClue{Round: i, Clue: r.Clue})
		}
	case models.FamilyContinuousTimed:
		payload.DurationSeconds = p.game.TimedSeconds
		result, err := p.currentQuestion(ctx, s, playerID)
		if err != nil {
			return nil, err
		}
		if result != nil {
			payload.Score = &result.Score
			payload.Lives = &result.Lives
			if result.Lives > 0 && result.CurrentClue != "" {
				payload.Question = &TimedQuestion{QuestionSeq: result.QuestionSeq, Clue: result.CurrentClue}
			}
		}
	default:
		payload.Clues = s.Clues
		clue := member.ClueIndex
		payload.ClueIndex = &clue
	}
	return payload, nil
}

// currentQuestion returns the player's Timed result, serving a question first if none is held.
// It returns nil for players without a result (joined after launch).
func (p *StatusProjector) currentQuestion(ctx context.Context, s *models.GameSession, playerID uint) (*models.SessionResult, error) {
	db := p.db.WithContext(ctx)

	var result models.SessionResult
	err := db.Where("session_id = ? AND player_id = ?", s.ID, playerID).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	if result.CurrentTarget != "" || result.Lives <= 0 {
		return &result, nil
	}

	q, err := drawQuestion(ctx, p.content, 1, p.game.ClueBandMax)
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.SessionResult{}).
		Where("id = ? AND question_seq = ? AND current_target = ''", result.ID, result.QuestionSeq).
		Updates(map[string]interface{}{"current_target": q.Target, "current_clue": q.Clue}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to serve question: %w", err)
	}
	if err := db.First(&result, result.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload result: %w", err)
	}
	return &result, nil
}

func secondsPtr(d time.Duration) *float64 {
	secs := d.Seconds()
	return &secs
}
