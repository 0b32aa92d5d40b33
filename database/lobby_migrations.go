// database/lobby_migrations.go - Lobby and multiplayer session tables
package database

import (
	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func runLobbyMigrations(db *gorm.DB) error {
	log.Info("Running lobby migrations...")

	if err := db.AutoMigrate(
		&models.Table{},
		&models.TableMember{},
		&models.TableInvite{},
		&models.GameSession{},
		&models.SessionResult{},
		&models.RoundAnswer{},
		&models.RoundVote{},
	); err != nil {
		return err
	}

	if err := createIndexes(db, lobbyIndexes); err != nil {
		return err
	}

	log.Info("✅ Lobby migrations completed successfully")
	return nil
}

var lobbyIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_game_tables_created ON game_tables(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_table_members_table ON table_members(table_id)",
	"CREATE INDEX IF NOT EXISTS idx_table_members_in_game ON table_members(table_id, is_in_game)",
	"CREATE INDEX IF NOT EXISTS idx_table_invites_receiver_status ON table_invites(receiver_id, status)",
	"CREATE INDEX IF NOT EXISTS idx_session_results_session ON session_results(session_id)",
	"CREATE INDEX IF NOT EXISTS idx_round_answers_round ON round_answers(session_id, round_number)",
	"CREATE INDEX IF NOT EXISTS idx_round_votes_round ON round_votes(session_id, round_number)",
}
