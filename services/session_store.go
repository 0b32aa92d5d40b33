// services/session_store.go - Shared row access and the session finishing rule
package services

import (
	"errors"
	"fmt"
	"time"

	"decantry/config"
	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockTable loads the table row FOR UPDATE. Membership and launch mutations hold this lock.
func lockTable(tx *gorm.DB, tableID uint) (*models.Table, error) {
	var table models.Table
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, tableID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Table not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	return &table, nil
}

func findTable(tx *gorm.DB, tableID uint) (*models.Table, error) {
	var table models.Table
	err := tx.First(&table, tableID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Table not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	return &table, nil
}

// findMember returns the player's seat at the table, or nil if they have none.
func findMember(tx *gorm.DB, tableID, playerID uint) (*models.TableMember, error) {
	var member models.TableMember
	err := tx.Where("table_id = ? AND player_id = ?", tableID, playerID).Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	return &member, nil
}

func requireMember(tx *gorm.DB, tableID, playerID uint) (*models.TableMember, error) {
	member, err := findMember(tx, tableID, playerID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, forbidden("You are not a member of this table")
	}
	return member, nil
}

// activeSession returns the table's running session, or nil if the table is waiting.
func activeSession(tx *gorm.DB, tableID uint) (*models.GameSession, error) {
	var session models.GameSession
	err := tx.Where("active_table_id = ?", tableID).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active session: %w", err)
	}
	return &session, nil
}

func findSession(tx *gorm.DB, gameID string) (*models.GameSession, error) {
	var session models.GameSession
	err := tx.Where("game_id = ?", gameID).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Game not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return &session, nil
}

func tableStatus(tx *gorm.DB, tableID uint) (models.TableStatus, error) {
	var n int64
	if err := tx.Model(&models.GameSession{}).Where("active_table_id = ?", tableID).Count(&n).Error; err != nil {
		return "", fmt.Errorf("failed to read table status: %w", err)
	}
	if n > 0 {
		return models.TablePlaying, nil
	}
	return models.TableWaiting, nil
}

func countMembers(tx *gorm.DB, tableID uint) (int64, error) {
	var n int64
	if err := tx.Model(&models.TableMember{}).Where("table_id = ?", tableID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// countInGame is the effective participant count of the table's session.
func countInGame(tx *gorm.DB, tableID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.TableMember{}).
		Where("table_id = ? AND is_in_game = ?", tableID, true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count in-game members: %w", err)
	}
	return n, nil
}

// inGameJoin restricts rows keyed by player_id to players currently in the session's game.
func inGameJoin(tx *gorm.DB, table string, s *models.GameSession) *gorm.DB {
	return tx.Joins("JOIN table_members ON table_members.player_id = "+table+".player_id").
		Where(table+".session_id = ? AND table_members.table_id = ? AND table_members.is_in_game = ?",
			s.ID, s.TableID, true)
}

func countRecordedInGame(tx *gorm.DB, s *models.GameSession) (int64, error) {
	var n int64
	err := inGameJoin(tx.Model(&models.SessionResult{}), "session_results", s).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

func countAliveInGame(tx *gorm.DB, s *models.GameSession) (int64, error) {
	var n int64
	err := inGameJoin(tx.Model(&models.SessionResult{}), "session_results", s).
		Where("session_results.lives > 0").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count live players: %w", err)
	}
	return n, nil
}

func countVotesInGame(tx *gorm.DB, s *models.GameSession, round int) (int64, error) {
	var n int64
	err := inGameJoin(tx.Model(&models.RoundVote{}), "round_votes", s).
		Where("round_votes.round_number = ?", round).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

func countAnswersInGame(tx *gorm.DB, s *models.GameSession, round int) (int64, error) {
	var n int64
	err := inGameJoin(tx.Model(&models.RoundAnswer{}), "round_answers", s).
		Where("round_answers.round_number = ?", round).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return n, nil
}

// lifecycle owns the terminal predicates and the finishing transition shared by every component.
type lifecycle struct {
	clock *RoundClock
	game  config.GameConfig
}

// finish moves an active session to finished and returns the table to the lobby: the active
// slot is released and every member is reset to not ready and not in game. It reports whether
// this call performed the transition.
func (l *lifecycle) finish(tx *gorm.DB, s *models.GameSession) (bool, error) {
	now := l.clock.Now()
	finished := false
	err := tx.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GameSession{}).
			Where("id = ? AND active_table_id IS NOT NULL", s.ID).
			Updates(map[string]interface{}{"active_table_id": nil, "finished_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to finish session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		finished = true
		return resetMembers(tx, s.TableID)
	})
	if err != nil {
		return false, err
	}

	s.ActiveTableID = nil
	if s.FinishedAt == nil {
		s.FinishedAt = &now
	}
	if finished {
		log.WithFields(log.Fields{
			"game_id":  s.GameID,
			"table_id": s.TableID,
			"mode":     s.Mode,
		}).Info("🏁 Game session finished")
	}
	return finished, nil
}

// finishTable finishes the table's active session, if it has one.
func (l *lifecycle) finishTable(tx *gorm.DB, tableID uint) (bool, error) {
	s, err := activeSession(tx, tableID)
	if err != nil || s == nil {
		return false, err
	}
	return l.finish(tx, s)
}

func resetMembers(tx *gorm.DB, tableID uint) error {
	err := tx.Model(&models.TableMember{}).
		Where("table_id = ?", tableID).
		Updates(map[string]interface{}{"is_ready": false, "is_in_game": false}).Error
	if err != nil {
		return fmt.Errorf("failed to reset members: %w", err)
	}
	return nil
}

// isComplete evaluates the mode's terminal predicate against current rows.
func (l *lifecycle) isComplete(tx *gorm.DB, s *models.GameSession) (bool, error) {
	if !s.IsActive() {
		return true, nil
	}
	inGame, err := countInGame(tx, s.TableID)
	if err != nil {
		return false, err
	}

	switch s.Mode.Family() {
	case models.FamilyContinuousTimed:
		if l.clock.Expired(s.StartedAt, l.game.TimedDuration()) {
			return true, nil
		}
		alive, err := countAliveInGame(tx, s)
		if err != nil {
			return false, err
		}
		return alive == 0, nil
	case models.FamilyRoundSequenced:
		if inGame == 0 {
			return true, nil
		}
		if !s.IsLastRound() {
			return false, nil
		}
		votes, err := countVotesInGame(tx, s, s.CurrentRound)
		if err != nil {
			return false, err
		}
		return votes >= inGame, nil
	default:
		recorded, err := countRecordedInGame(tx, s)
		if err != nil {
			return false, err
		}
		return recorded >= inGame, nil
	}
}

// settle applies whatever transition current rows call for: finishing a completed session, or
// moving an Expert session past a round whose vote quorum was reached.
func (l *lifecycle) settle(tx *gorm.DB, s *models.GameSession) error {
	if !s.IsActive() {
		return nil
	}
	if s.Mode.Family() == models.FamilyRoundSequenced {
		_, err := l.advanceIfQuorum(tx, s)
		return err
	}
	done, err := l.isComplete(tx, s)
	if err != nil || !done {
		return err
	}
	_, err = l.finish(tx, s)
	return err
}

// VoteOutcome reports the state of the round vote after a vote or a re-check.
type VoteOutcome struct {
	RoundAdvanced    bool  `json:"roundAdvanced"`
	GameOver         bool  `json:"gameOver"`
	Round            int   `json:"round"`
	AccumulatedVotes int64 `json:"accumulatedVotes"`
	RequiredVotes    int64 `json:"requiredVotes"`
}

// advanceIfQuorum moves s to the next round (or finishes it on the last round) once every
// in-game member has voted on the current round. The round index moves by compare-and-set, so
// concurrent callers advance it at most once.
func (l *lifecycle) advanceIfQuorum(tx *gorm.DB, s *models.GameSession) (VoteOutcome, error) {
	out := VoteOutcome{Round: s.CurrentRound}
	if !s.IsActive() {
		out.GameOver = true
		return out, nil
	}

	required, err := countInGame(tx, s.TableID)
	if err != nil {
		return out, err
	}
	out.RequiredVotes = required
	if required == 0 {
		if _, err := l.finish(tx, s); err != nil {
			return out, err
		}
		out.GameOver = true
		return out, nil
	}

	votes, err := countVotesInGame(tx, s, s.CurrentRound)
	if err != nil {
		return out, err
	}
	out.AccumulatedVotes = votes
	if votes < required {
		return out, nil
	}

	if s.IsLastRound() {
		if _, err := l.finish(tx, s); err != nil {
			return out, err
		}
		out.GameOver = true
		return out, nil
	}

	previous := s.CurrentRound
	now := l.clock.Now()
	res := tx.Model(&models.GameSession{}).
		Where("id = ? AND current_round = ? AND active_table_id IS NOT NULL", s.ID, previous).
		Updates(map[string]interface{}{"current_round": previous + 1, "round_started_at": now})
	if res.Error != nil {
		return out, fmt.Errorf("failed to advance round: %w", res.Error)
	}
	if err := tx.First(s, s.ID).Error; err != nil {
		return out, fmt.Errorf("failed to reload session: %w", err)
	}

	out.RoundAdvanced = s.CurrentRound > previous
	out.Round = s.CurrentRound
	out.GameOver = !s.IsActive()
	if res.RowsAffected == 1 {
		log.WithFields(log.Fields{
			"game_id": s.GameID,
			"round":   s.CurrentRound,
		}).Info("⏭️ Expert round advanced")
	}
	return out, nil
}

// remaining is the time left on the clock that governs the session's mode.
func (l *lifecycle) remaining(s *models.GameSession) time.Duration {
	switch s.Mode.Family() {
	case models.FamilyContinuousTimed:
		return l.clock.Remaining(s.StartedAt, l.game.TimedDuration())
	case models.FamilyRoundSequenced:
		return l.clock.Remaining(s.RoundStartedAt, l.game.ExpertRoundDuration())
	default:
		return 0
	}
}
