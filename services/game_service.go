// services/game_service.go - Answer submission for running game sessions
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"decantry/answers"
	"decantry/config"
	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameService judges submissions against the targets held server-side, records them write-once
// and awards points.
type GameService struct {
	db      *gorm.DB
	content ContentSource
	ledger  ScoreLedger
	lc      *lifecycle
	clock   *RoundClock
	game    config.GameConfig
}

func NewGameService(db *gorm.DB, content ContentSource, ledger ScoreLedger, clock *RoundClock, game config.GameConfig) *GameService {
	return &GameService{
		db:      db,
		content: content,
		ledger:  ledger,
		lc:      &lifecycle{clock: clock, game: game},
		clock:   clock,
		game:    game,
	}
}

// SubmitPayload is a submission for any mode; each mode reads its own fields.
type SubmitPayload struct {
	GameID string

	// Casual and Daily. ClueIndex, when sent, must match the seat's clue position for a miss
	// to count; it never affects the score.
	Guess     string
	Skip      bool
	ClueIndex *int

	// Expert
	Round   *int
	Answer  string
	Timeout bool

	// Timed (also reads Answer)
	QuestionSeq *int
}

// TimedQuestion is the question a Timed player currently has to answer.
type TimedQuestion struct {
	QuestionSeq int    `json:"questionSeq"`
	Clue        string `json:"clue"`
}

// SubmitOutcome reports what a submission did. Accepted is false for no-op submissions
// (finished game, player not in game, duplicate or stale retry).
type SubmitOutcome struct {
	Accepted      bool           `json:"accepted"`
	Correct       bool           `json:"correct"`
	Points        int            `json:"points"`
	Score         *int           `json:"score,omitempty"`
	Lives         *int           `json:"lives,omitempty"`
	NextClueIndex *int           `json:"nextClueIndex,omitempty"`
	NextClue      string         `json:"nextClue,omitempty"`
	Answer        string         `json:"answer,omitempty"`
	NextQuestion  *TimedQuestion `json:"nextQuestion,omitempty"`
	GameOver      bool           `json:"gameOver"`
}

func (g *GameService) SubmitAnswer(ctx context.Context, playerID uint, p SubmitPayload) (*SubmitOutcome, error) {
	db := g.db.WithContext(ctx)

	s, err := findSession(db, p.GameID)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return &SubmitOutcome{GameOver: true}, nil
	}
	member, err := findMember(db, s.TableID, playerID)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.IsInGame {
		return &SubmitOutcome{}, nil
	}

	switch s.Mode.Family() {
	case models.FamilyRoundSequenced:
		return g.submitRound(ctx, s, playerID, p)
	case models.FamilyContinuousTimed:
		return g.submitTimed(ctx, s, playerID, p)
	default:
		return g.submitSingle(ctx, s, member, p)
	}
}

// ================== CASUAL / DAILY ==================

func (g *GameService) submitSingle(ctx context.Context, s *models.GameSession, member *models.TableMember, p SubmitPayload) (*SubmitOutcome, error) {
	db := g.db.WithContext(ctx)
	playerID := member.PlayerID

	var recorded int64
	if err := db.Model(&models.SessionResult{}).
		Where("session_id = ? AND player_id = ?", s.ID, playerID).
		Count(&recorded).Error; err != nil {
		return nil, fmt.Errorf("failed to check result: %w", err)
	}
	if recorded > 0 {
		return &SubmitOutcome{}, nil
	}
	if p.ClueIndex != nil && (*p.ClueIndex < 0 || *p.ClueIndex >= len(s.Clues)) {
		return nil, invalid("Clue index must be between 0 and %d", len(s.Clues)-1)
	}
	pos := member.ClueIndex
	if pos < 0 || pos >= len(s.Clues) {
		return nil, fmt.Errorf("player %d is at clue %d of %d in session %s", playerID, pos, len(s.Clues), s.GameID)
	}

	correct := !p.Skip && answers.Match(p.Guess, s.Target)
	out := &SubmitOutcome{Accepted: true, Correct: correct}

	if !correct {
		// A miss for a clue the seat has already moved past is a replay.
		if p.ClueIndex != nil && *p.ClueIndex != pos {
			return &SubmitOutcome{NextClueIndex: &pos, NextClue: s.Clues[pos]}, nil
		}
		if pos < len(s.Clues)-1 {
			res := db.Model(&models.TableMember{}).
				Where("table_id = ? AND player_id = ? AND clue_index = ?", s.TableID, playerID, pos).
				Update("clue_index", pos+1)
			if res.Error != nil {
				return nil, fmt.Errorf("failed to advance clue: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return &SubmitOutcome{}, nil
			}
			next := pos + 1
			out.NextClueIndex = &next
			out.NextClue = s.Clues[next]
			return out, nil
		}
	}

	score := 0
	if correct {
		score = max(0, g.game.Points-g.game.CluePenalty*pos)
	}

	inserted := false
	err := db.Transaction(func(tx *gorm.DB) error {
		result := models.SessionResult{SessionID: s.ID, PlayerID: playerID, Score: score, RecordedAt: g.clock.Now()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&result)
		if res.Error != nil {
			return fmt.Errorf("failed to record result: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		if err := addSessionPoints(tx, s.TableID, playerID, score); err != nil {
			return err
		}
		return g.lc.settle(tx, s)
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &SubmitOutcome{}, nil
	}

	emitAwards(ctx, g.ledger, s.Mode, award{playerID: playerID, points: score})
	g.logSubmission(s, playerID, correct, score)

	out.Points = score
	out.Score = &score
	out.Answer = s.Target
	out.GameOver = !s.IsActive()
	return out, nil
}

// ================== EXPERT ==================

func (g *GameService) submitRound(ctx context.Context, s *models.GameSession, playerID uint, p SubmitPayload) (*SubmitOutcome, error) {
	if p.Round == nil {
		return nil, invalid("round is required")
	}
	round := s.CurrentRound
	if *p.Round != round {
		return &SubmitOutcome{}, nil
	}
	if round < 0 || round >= len(s.Rounds) {
		return nil, fmt.Errorf("session %s has no round %d", s.GameID, round)
	}

	text := strings.TrimSpace(p.Answer)
	correct := false
	if p.Timeout || text == "" || g.clock.Expired(s.RoundStartedAt, g.game.ExpertRoundDuration()) {
		text = models.NoAnswer
	} else {
		correct = answers.Match(text, s.Rounds[round].Target)
	}
	points := 0
	if correct {
		points = g.game.Points
	}

	inserted := false
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answer := models.RoundAnswer{
			SessionID:   s.ID,
			RoundNumber: round,
			PlayerID:    playerID,
			Answer:      truncate(text, 100),
			IsCorrect:   correct,
			Points:      points,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&answer)
		if res.Error != nil {
			return fmt.Errorf("failed to record answer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return addSessionPoints(tx, s.TableID, playerID, points)
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &SubmitOutcome{}, nil
	}

	emitAwards(ctx, g.ledger, s.Mode, award{playerID: playerID, points: points})
	g.logSubmission(s, playerID, correct, points)
	return &SubmitOutcome{Accepted: true, Correct: correct, Points: points}, nil
}

// ================== TIMED ==================

func (g *GameService) submitTimed(ctx context.Context, s *models.GameSession, playerID uint, p SubmitPayload) (*SubmitOutcome, error) {
	if p.QuestionSeq == nil {
		return nil, invalid("questionSeq is required")
	}
	db := g.db.WithContext(ctx)

	var result models.SessionResult
	err := db.Where("session_id = ? AND player_id = ?", s.ID, playerID).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SubmitOutcome{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	stale := &SubmitOutcome{Score: &result.Score, Lives: &result.Lives}
	if *p.QuestionSeq != result.QuestionSeq || result.Lives <= 0 || result.CurrentTarget == "" {
		return stale, nil
	}
	if g.clock.Expired(s.StartedAt, g.game.TimedDuration()) {
		if err := g.lc.settle(db, s); err != nil {
			return nil, err
		}
		stale.GameOver = !s.IsActive()
		return stale, nil
	}

	judged := result.CurrentTarget
	correct := answers.Match(p.Answer, judged)
	next, err := drawQuestion(ctx, g.content, 1, g.game.ClueBandMax)
	if err != nil {
		return nil, err
	}
	points, lost := 0, 0
	if correct {
		points = g.game.Points
	} else {
		lost = 1
	}

	applied := false
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SessionResult{}).
			Where("id = ? AND question_seq = ? AND lives > 0", result.ID, result.QuestionSeq).
			Updates(map[string]interface{}{
				"score":          gorm.Expr("score + ?", points),
				"lives":          gorm.Expr("lives - ?", lost),
				"question_seq":   gorm.Expr("question_seq + 1"),
				"current_target": next.Target,
				"current_clue":   next.Clue,
				"recorded_at":    g.clock.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to record timed answer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		if err := addSessionPoints(tx, s.TableID, playerID, points); err != nil {
			return err
		}
		if err := tx.First(&result, result.ID).Error; err != nil {
			return fmt.Errorf("failed to reload result: %w", err)
		}
		return g.lc.settle(tx, s)
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return stale, nil
	}

	emitAwards(ctx, g.ledger, s.Mode, award{playerID: playerID, points: points})
	g.logSubmission(s, playerID, correct, points)

	out := &SubmitOutcome{
		Accepted: true,
		Correct:  correct,
		Points:   points,
		Score:    &result.Score,
		Lives:    &result.Lives,
		Answer:   judged,
		GameOver: !s.IsActive(),
	}
	if result.Lives > 0 && !out.GameOver {
		out.NextQuestion = &TimedQuestion{QuestionSeq: result.QuestionSeq, Clue: result.CurrentClue}
	}
	return out, nil
}

func (g *GameService) logSubmission(s *models.GameSession, playerID uint, correct bool, points int) {
	log.WithFields(log.Fields{
		"game_id":   s.GameID,
		"player_id": playerID,
		"mode":      s.Mode,
		"correct":   correct,
		"points":    points,
	}).Debug("📊 Answer recorded")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
