// services/services.go - Wiring of the game engine components
package services

import (
	"decantry/config"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Services groups the engine components over one store and one clock.
type Services struct {
	Players  *PlayerDirectory
	Tables   *TableRegistry
	Ready    *ReadyGate
	Sessions *SessionFactory
	Games    *GameService
	Votes    *VoteCoordinator
	Status   *StatusProjector
	Practice *PracticeService
	Content  ContentSource
	Ledger   ScoreLedger
	Stats    *StatsService
}

func New(db *gorm.DB, content ContentSource, ledger ScoreLedger, clock clockwork.Clock, game config.GameConfig) *Services {
	rc := NewRoundClock(clock)
	return &Services{
		Players:  NewPlayerDirectory(db, rc),
		Tables:   NewTableRegistry(db, rc, game),
		Ready:    NewReadyGate(db),
		Sessions: NewSessionFactory(db, content, rc, game),
		Games:    NewGameService(db, content, ledger, rc, game),
		Votes:    NewVoteCoordinator(db, rc, game),
		Status:   NewStatusProjector(db, content, rc, game),
		Practice: NewPracticeService(content, ledger, rc, game),
		Content:  content,
		Ledger:   ledger,
		Stats:    NewStatsService(db),
	}
}
