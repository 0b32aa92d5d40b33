// services/practice.go - Single-player content draws and score reporting
package services

import (
	"context"
	"errors"

	"decantry/config"
	"decantry/models"

	log "github.com/sirupsen/logrus"
)

// MaxReportedPoints caps a single self-reported single-player score.
const MaxReportedPoints = 10000

// PracticeService serves content for single-player games. Those games are scored on the client,
// which reports the result through RecordScore.
type PracticeService struct {
	content ContentSource
	ledger  ScoreLedger
	clock   *RoundClock
	game    config.GameConfig
}

func NewPracticeService(content ContentSource, ledger ScoreLedger, clock *RoundClock, game config.GameConfig) *PracticeService {
	return &PracticeService{content: content, ledger: ledger, clock: clock, game: game}
}

// ItemClues is an item with its full ordered clue list.
type ItemClues struct {
	Item  string   `json:"country"`
	Clues []string `json:"facts"`
}

func (p *PracticeService) Casual(ctx context.Context) (*ItemClues, error) {
	item, err := p.content.RandomItem(ctx)
	if err != nil {
		return nil, contentError(err)
	}
	return p.withClues(ctx, item)
}

// Daily returns the item of the current UTC day, the same for every caller.
func (p *PracticeService) Daily(ctx context.Context) (*ItemClues, error) {
	item, err := p.content.DailyItem(ctx, p.clock.Now())
	if err != nil {
		return nil, contentError(err)
	}
	return p.withClues(ctx, item)
}

func (p *PracticeService) withClues(ctx context.Context, item string) (*ItemClues, error) {
	clues, err := p.content.Clues(ctx, item)
	if err != nil {
		return nil, contentError(err)
	}
	return &ItemClues{Item: item, Clues: clues}, nil
}

// Expert returns one question per round over distinct items, each clue drawn from the band.
func (p *PracticeService) Expert(ctx context.Context) ([]Question, error) {
	items, err := p.content.DistinctItems(ctx, p.game.ExpertRounds)
	if err != nil {
		return nil, contentError(err)
	}
	questions := make([]Question, 0, len(items))
	for _, item := range items {
		clue, err := p.content.ClueInBand(ctx, item, p.game.ClueBandMin, p.game.ClueBandMax)
		if err != nil {
			return nil, contentError(err)
		}
		questions = append(questions, Question{Target: item, Clue: clue})
	}
	return questions, nil
}

func (p *PracticeService) Timed(ctx context.Context) (*Question, error) {
	q, err := drawQuestion(ctx, p.content, 1, p.game.ClueBandMax)
	if err != nil {
		return nil, contentError(err)
	}
	return &q, nil
}

// RecordScore adds a finished single-player game to the player's totals.
func (p *PracticeService) RecordScore(ctx context.Context, playerID uint, mode string, points int) error {
	m, ok := models.ParseGameMode(mode)
	if !ok {
		return invalid("Unknown game mode %q", mode)
	}
	if points < 0 || points > MaxReportedPoints {
		return invalid("Points must be between 0 and %d", MaxReportedPoints)
	}
	if points == 0 {
		return nil
	}
	if err := p.ledger.RecordDelta(ctx, playerID, m, points); err != nil {
		return err
	}
	log.WithFields(log.Fields{"player_id": playerID, "mode": m, "points": points}).Info("🏅 Single-player score recorded")
	return nil
}

func contentError(err error) error {
	if errors.Is(err, ErrContentUnavailable) {
		return notFound("No quiz content available")
	}
	return err
}
