// services/vote_coordinator.go - Collective round advance for Expert sessions
package services

import (
	"context"
	"fmt"

	"decantry/config"
	"decantry/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteCoordinator moves an Expert session to its next round once every in-game member has voted.
type VoteCoordinator struct {
	db *gorm.DB
	lc *lifecycle
}

func NewVoteCoordinator(db *gorm.DB, clock *RoundClock, game config.GameConfig) *VoteCoordinator {
	return &VoteCoordinator{db: db, lc: &lifecycle{clock: clock, game: game}}
}

// VoteAdvance records the player's vote on the current round and advances the round on quorum.
// Repeated votes and votes after the game ended are no-ops.
func (v *VoteCoordinator) VoteAdvance(ctx context.Context, playerID uint, gameID string) (*VoteOutcome, error) {
	db := v.db.WithContext(ctx)

	s, err := findSession(db, gameID)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return &VoteOutcome{GameOver: true, Round: s.CurrentRound}, nil
	}
	if s.Mode.Family() != models.FamilyRoundSequenced {
		return nil, invalid("Round votes only apply to %s games", models.ModeExpert)
	}
	member, err := findMember(db, s.TableID, playerID)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.IsInGame {
		return nil, forbidden("Only players in the game can vote")
	}

	vote := models.RoundVote{SessionID: s.ID, RoundNumber: s.CurrentRound, PlayerID: playerID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote).Error; err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	var out VoteOutcome
	err = db.Transaction(func(tx *gorm.DB) error {
		out, err = v.lc.advanceIfQuorum(tx, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
