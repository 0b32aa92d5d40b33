package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"decantry/config"
	"decantry/database"
	"decantry/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

type delta struct {
	playerID uint
	mode     models.GameMode
	points   int
}

type recordingLedger struct {
	mu     sync.Mutex
	deltas []delta
}

func (l *recordingLedger) RecordDelta(_ context.Context, playerID uint, mode models.GameMode, points int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deltas = append(l.deltas, delta{playerID: playerID, mode: mode, points: points})
	return nil
}

func (l *recordingLedger) total(playerID uint) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := 0
	for _, d := range l.deltas {
		if d.playerID == playerID {
			sum += d.points
		}
	}
	return sum
}

type testEnv struct {
	db     *gorm.DB
	clock  *clockwork.FakeClock
	game   config.GameConfig
	ledger *recordingLedger
	svc    *Services
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, 12, func(*config.GameConfig) {})
}

// newTestEnvWith seeds the given number of countries, each with ten numbered facts.
func newTestEnvWith(t *testing.T, countries int, tune func(*config.GameConfig)) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	game := config.DefaultGameConfig()
	tune(&game)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ledger := &recordingLedger{}

	env := &testEnv{
		db:     db,
		clock:  clock,
		game:   game,
		ledger: ledger,
		svc:    New(db, NewFactStore(db), ledger, clock, game),
	}
	env.seedFacts(t, countries)
	return env
}

func countryName(i int) string {
	return fmt.Sprintf("Country%02d", i)
}

func (e *testEnv) seedFacts(t *testing.T, countries int) {
	t.Helper()
	var facts []models.CountryFact
	for i := 1; i <= countries; i++ {
		for n := 1; n <= 10; n++ {
			facts = append(facts, models.CountryFact{
				CountryName: countryName(i),
				FactNumber:  n,
				FactContent: fmt.Sprintf("clue %d.%d", i, n),
			})
		}
	}
	if len(facts) > 0 {
		require.NoError(t, e.db.CreateInBatches(&facts, 100).Error)
	}
}

func (e *testEnv) players(t *testing.T, ids ...uint) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, e.svc.Players.Touch(ctx, id, fmt.Sprintf("player%d", id)))
	}
}

// table creates a table hosted by host with the given members seated in order.
func (e *testEnv) table(t *testing.T, mode models.GameMode, host uint, members ...uint) uint {
	t.Helper()
	e.players(t, append([]uint{host}, members...)...)
	table, err := e.svc.Tables.CreateTable(ctx, host, CreateTableParams{Name: "table", Mode: string(mode), MaxPlayers: 10})
	require.NoError(t, err)
	for _, id := range members {
		e.clock.Advance(time.Second)
		_, err := e.svc.Tables.JoinTable(ctx, id, table.ID, "")
		require.NoError(t, err)
	}
	return table.ID
}

func (e *testEnv) readyAll(t *testing.T, tableID uint) {
	t.Helper()
	var members []models.TableMember
	require.NoError(t, e.db.Where("table_id = ? AND is_ready = ?", tableID, false).Find(&members).Error)
	for _, m := range members {
		ready, err := e.svc.Ready.ToggleReady(ctx, m.PlayerID, tableID)
		require.NoError(t, err)
		require.True(t, ready)
	}
}

// started creates a table, readies everyone and launches a session.
func (e *testEnv) started(t *testing.T, mode models.GameMode, host uint, members ...uint) (uint, *models.GameSession) {
	t.Helper()
	tableID := e.table(t, mode, host, members...)
	e.readyAll(t, tableID)
	s, err := e.svc.Sessions.Launch(ctx, host, tableID)
	require.NoError(t, err)
	return tableID, s
}

func (e *testEnv) member(t *testing.T, tableID, playerID uint) *models.TableMember {
	t.Helper()
	m, err := findMember(e.db, tableID, playerID)
	require.NoError(t, err)
	return m
}

func (e *testEnv) session(t *testing.T, gameID string) *models.GameSession {
	t.Helper()
	s, err := findSession(e.db, gameID)
	require.NoError(t, err)
	return s
}

func (e *testEnv) status(t *testing.T, tableID uint) models.TableStatus {
	t.Helper()
	st, err := tableStatus(e.db, tableID)
	require.NoError(t, err)
	return st
}

func (e *testEnv) timedResult(t *testing.T, sessionID, playerID uint) models.SessionResult {
	t.Helper()
	var r models.SessionResult
	require.NoError(t, e.db.Where("session_id = ? AND player_id = ?", sessionID, playerID).Take(&r).Error)
	return r
}

// skipTo skips a Casual or Daily player forward until clue n is showing.
func (e *testEnv) skipTo(t *testing.T, s *models.GameSession, playerID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		out, err := e.svc.Games.SubmitAnswer(ctx, playerID, SubmitPayload{GameID: s.GameID, Skip: true, ClueIndex: intPtr(i)})
		require.NoError(t, err)
		require.True(t, out.Accepted)
		require.Equal(t, i+1, *out.NextClueIndex)
	}
}

func intPtr(v int) *int {
	return &v
}
