// services/session_factory.go - Launching a table's game session
package services

import (
	"context"
	"errors"
	"fmt"

	"decantry/config"
	"decantry/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SessionFactory struct {
	db      *gorm.DB
	content ContentSource
	clock   *RoundClock
	game    config.GameConfig
}

func NewSessionFactory(db *gorm.DB, content ContentSource, clock *RoundClock, game config.GameConfig) *SessionFactory {
	return &SessionFactory{db: db, content: content, clock: clock, game: game}
}

// draft is the content of a session, drawn before any row is written.
type draft struct {
	target    string
	clues     []string
	rounds    []models.Round
	questions map[uint]Question
}

// Launch starts a game at the table. Only the host may launch, every member must be ready, and
// a table with a running game returns that game instead of starting another.
func (f *SessionFactory) Launch(ctx context.Context, hostID, tableID uint) (*models.GameSession, error) {
	db := f.db.WithContext(ctx)

	table, err := findTable(db, tableID)
	if err != nil {
		return nil, err
	}
	if !table.IsHost(hostID) {
		return nil, forbidden("Only the host can start the game")
	}
	if existing, err := activeSession(db, tableID); err != nil || existing != nil {
		return existing, err
	}
	ready, err := readinessOf(db, tableID)
	if err != nil {
		return nil, err
	}
	if !ready.launchable() {
		return nil, preconditionFailed("All players must be ready")
	}

	var seated []uint
	if err := db.Model(&models.TableMember{}).Where("table_id = ?", tableID).Pluck("player_id", &seated).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	d, err := f.draw(ctx, table.Mode, seated)
	if err != nil {
		if errors.Is(err, ErrContentUnavailable) {
			return nil, preconditionFailed("Not enough quiz content to start a %s game", table.Mode)
		}
		return nil, err
	}

	var session *models.GameSession
	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockTable(tx, tableID)
		if err != nil {
			return err
		}
		if !locked.IsHost(hostID) {
			return forbidden("Only the host can start the game")
		}
		if existing, err := activeSession(tx, tableID); err != nil || existing != nil {
			session = existing
			return err
		}
		if locked.Mode != table.Mode {
			return preconditionFailed("The table's mode changed, try again")
		}
		ready, err := readinessOf(tx, tableID)
		if err != nil {
			return err
		}
		if !ready.launchable() {
			return preconditionFailed("All players must be ready")
		}

		s, err := f.create(tx, locked, d, ready.Ready)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a launch race: the table's active slot is taken by the winner.
		return activeSession(db, tableID)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"game_id":  session.GameID,
		"table_id": tableID,
		"mode":     session.Mode,
		"players":  session.ExpectedPlayers,
	}).Info("🚀 Game session launched")
	return session, nil
}

func (f *SessionFactory) draw(ctx context.Context, mode models.GameMode, seated []uint) (*draft, error) {
	d := &draft{}
	switch mode.Family() {
	case models.FamilyRoundSequenced:
		items, err := f.content.DistinctItems(ctx, f.game.ExpertRounds)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			clue, err := f.content.ClueInBand(ctx, item, f.game.ClueBandMin, f.game.ClueBandMax)
			if err != nil {
				return nil, err
			}
			d.rounds = append(d.rounds, models.Round{Target: item, Clue: clue})
		}
	case models.FamilyContinuousTimed:
		d.questions = make(map[uint]Question, len(seated))
		for _, playerID := range seated {
			q, err := drawQuestion(ctx, f.content, 1, f.game.ClueBandMax)
			if err != nil {
				return nil, err
			}
			d.questions[playerID] = q
		}
	default:
		var (
			item string
			err  error
		)
		if mode == models.ModeDaily {
			item, err = f.content.DailyItem(ctx, f.clock.Now())
		} else {
			item, err = f.content.RandomItem(ctx)
		}
		if err != nil {
			return nil, err
		}
		clues, err := f.content.Clues(ctx, item)
		if err != nil {
			return nil, err
		}
		d.target, d.clues = item, clues
	}
	return d, nil
}

// create writes the session and puts the ready members in game. Holding the table lock, it is
// the only writer of the table's active slot.
func (f *SessionFactory) create(tx *gorm.DB, table *models.Table, d *draft, readyCount int64) (*models.GameSession, error) {
	now := f.clock.Now()
	tableID := table.ID
	session := &models.GameSession{
		GameID:          uuid.NewString(),
		TableID:         tableID,
		ActiveTableID:   &tableID,
		Mode:            table.Mode,
		Target:          d.target,
		Clues:           d.clues,
		Rounds:          d.rounds,
		ExpectedPlayers: int(readyCount),
		StartedAt:       now,
		RoundStartedAt:  now,
	}
	if err := tx.Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	err := tx.Model(&models.TableMember{}).
		Where("table_id = ?", tableID).
		Updates(map[string]interface{}{"is_in_game": gorm.Expr("is_ready"), "session_points": 0, "clue_index": 0}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to start members: %w", err)
	}

	if table.Mode.Family() == models.FamilyContinuousTimed {
		var players []uint
		err := tx.Model(&models.TableMember{}).
			Where("table_id = ? AND is_in_game = ?", tableID, true).
			Pluck("player_id", &players).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load players: %w", err)
		}
		results := make([]models.SessionResult, 0, len(players))
		for _, playerID := range players {
			q := d.questions[playerID]
			results = append(results, models.SessionResult{
				SessionID:     session.ID,
				PlayerID:      playerID,
				Lives:         f.game.MaxLives,
				CurrentTarget: q.Target,
				CurrentClue:   q.Clue,
				RecordedAt:    now,
			})
		}
		if len(results) > 0 {
			if err := tx.Create(&results).Error; err != nil {
				return nil, fmt.Errorf("failed to create timed results: %w", err)
			}
		}
	}
	return session, nil
}
