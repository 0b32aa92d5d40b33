package services

import (
	"math"
	"testing"
	"time"

	"decantry/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	env := newTestEnv(t)
	env.players(t, 1)

	table, err := env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "  Lounge  "})
	require.NoError(t, err)
	assert.Equal(t, "Lounge", table.Name)
	assert.Equal(t, models.ModeCasual, table.Mode)
	assert.Equal(t, env.game.DefaultMaxPlayers, table.MaxPlayers)
	assert.Equal(t, uint(1), table.HostID)
	assert.False(t, table.HasPassword())

	m := env.member(t, table.ID, 1)
	require.NotNil(t, m)
	assert.False(t, m.IsReady)
	assert.Equal(t, models.TableWaiting, env.status(t, table.ID))

	_, err = env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: ""})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "x", Mode: "Marathon"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "x", MaxPlayers: 11})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "x", MaxPlayers: 1})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCreateTableEvictsPriorSeat(t *testing.T) {
	env := newTestEnv(t)
	first := env.table(t, models.ModeCasual, 1, 2)

	second, err := env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "second"})
	require.NoError(t, err)

	assert.Nil(t, env.member(t, first, 1))
	require.NotNil(t, env.member(t, second.ID, 1))

	// Player 2 is left behind and inherits the first table.
	table, err := findTable(env.db, first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), table.HostID)

	// A lone host moving on destroys the table.
	_, err = env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "third"})
	require.NoError(t, err)
	_, err = findTable(env.db, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinTable(t *testing.T) {
	env := newTestEnv(t)
	env.players(t, 1, 2, 3, 4)

	table, err := env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "duo", MaxPlayers: 2, Password: "hunter2"})
	require.NoError(t, err)
	assert.True(t, table.HasPassword())

	_, err = env.svc.Tables.JoinTable(ctx, 2, table.ID, "wrong")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Tables.JoinTable(ctx, 2, table.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Tables.JoinTable(ctx, 2, table.ID, "hunter2")
	require.NoError(t, err)

	_, err = env.svc.Tables.JoinTable(ctx, 3, table.ID, "hunter2")
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = env.svc.Tables.JoinTable(ctx, 3, 999, "")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := countMembers(env.db, table.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestJoinTableIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeCasual, 1, 2)
	before := env.member(t, tableID, 2)

	// Already seated: a no-op even with a wrong password.
	_, err := env.svc.Tables.JoinTable(ctx, 2, tableID, "anything")
	require.NoError(t, err)

	after := env.member(t, tableID, 2)
	require.NotNil(t, after)
	assert.True(t, before.JoinedAt.Equal(after.JoinedAt))

	var seats int64
	require.NoError(t, env.db.Model(&models.TableMember{}).Where("player_id = ?", 2).Count(&seats).Error)
	assert.Equal(t, int64(1), seats)
}

func TestJoinTableMovesSeat(t *testing.T) {
	env := newTestEnv(t)
	first := env.table(t, models.ModeCasual, 1, 3)
	second := env.table(t, models.ModeCasual, 2)

	_, err := env.svc.Tables.JoinTable(ctx, 3, second, "")
	require.NoError(t, err)

	assert.Nil(t, env.member(t, first, 3))
	assert.NotNil(t, env.member(t, second, 3))
	assert.NotNil(t, env.member(t, first, 1))

	seats, err := seatsOf(env.db, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{second}, seats)
}

func TestLeaveTable(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeCasual, 1, 2, 3)

	// Not seated there: nothing happens.
	env.players(t, 4)
	require.NoError(t, env.svc.Tables.LeaveTable(ctx, 4, tableID))

	// The host leaves; the longest-seated member takes over.
	require.NoError(t, env.svc.Tables.LeaveTable(ctx, 1, tableID))
	table, err := findTable(env.db, tableID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), table.HostID)

	require.NoError(t, env.svc.Tables.LeaveTable(ctx, 3, tableID))
	table, err = findTable(env.db, tableID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), table.HostID)

	_, err = env.svc.Tables.Invite(ctx, 2, tableID, "player4")
	require.NoError(t, err)

	// The last member leaves: the table and its invites are gone.
	require.NoError(t, env.svc.Tables.LeaveTable(ctx, 2, tableID))
	_, err = findTable(env.db, tableID)
	assert.ErrorIs(t, err, ErrNotFound)

	var invites int64
	require.NoError(t, env.db.Model(&models.TableInvite{}).Where("table_id = ?", tableID).Count(&invites).Error)
	assert.Zero(t, invites)

	assert.ErrorIs(t, env.svc.Tables.LeaveTable(ctx, 2, tableID), ErrNotFound)
}

func TestLeaveDuringGameSettlesSession(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeCasual, 1, 2)

	_, err := env.svc.Games.SubmitAnswer(ctx, 1, SubmitPayload{GameID: s.GameID, Guess: s.Target})
	require.NoError(t, err)
	assert.Equal(t, models.TablePlaying, env.status(t, tableID))

	// The only player still owing a result leaves; everyone left in game is done.
	require.NoError(t, env.svc.Tables.LeaveTable(ctx, 2, tableID))
	assert.Equal(t, models.TableWaiting, env.status(t, tableID))
	assert.False(t, env.session(t, s.GameID).IsActive())
}

func TestDestroyingTableFinishesSession(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeCasual, 1)

	require.NoError(t, env.svc.Tables.LeaveTable(ctx, 1, tableID))

	got := env.session(t, s.GameID)
	assert.False(t, got.IsActive())
	assert.NotNil(t, got.FinishedAt)
}

func TestForfeit(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeCasual, 1, 2)

	require.NoError(t, env.svc.Tables.Forfeit(ctx, 1, tableID))
	m := env.member(t, tableID, 1)
	require.NotNil(t, m)
	assert.False(t, m.IsInGame)
	assert.False(t, m.IsReady)
	assert.Equal(t, models.TablePlaying, env.status(t, tableID))

	require.NoError(t, env.svc.Tables.Forfeit(ctx, 2, tableID))
	assert.Equal(t, models.TableWaiting, env.status(t, tableID))
	assert.False(t, env.session(t, s.GameID).IsActive())

	env.players(t, 3)
	assert.ErrorIs(t, env.svc.Tables.Forfeit(ctx, 3, tableID), ErrForbidden)
}

func TestForfeitCompletesSessionForRemainingPlayers(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeCasual, 1, 2)

	env.skipTo(t, s, 1, len(s.Clues)-1)
	_, err := env.svc.Games.SubmitAnswer(ctx, 1, SubmitPayload{GameID: s.GameID, Guess: "nowhere"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Tables.Forfeit(ctx, 2, tableID))
	assert.Equal(t, models.TableWaiting, env.status(t, tableID))
}

func TestKick(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeCasual, 1, 2, 3)

	assert.ErrorIs(t, env.svc.Tables.Kick(ctx, 2, tableID, 3), ErrForbidden)
	assert.ErrorIs(t, env.svc.Tables.Kick(ctx, 1, tableID, 1), ErrInvalid)
	assert.ErrorIs(t, env.svc.Tables.Kick(ctx, 1, tableID, 42), ErrNotFound)

	require.NoError(t, env.svc.Tables.Kick(ctx, 1, tableID, 3))
	assert.Nil(t, env.member(t, tableID, 3))
}

func TestKickLastPlayerInGameEndsSession(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeExpert, 1, 2)
	// The host drops out of the game, leaving player 2 as the only player.
	_, err := env.svc.Ready.ToggleReady(ctx, 2, tableID)
	require.NoError(t, err)
	_, err = env.svc.Ready.ToggleReady(ctx, 1, tableID)
	require.NoError(t, err)
	s, err := env.svc.Sessions.Launch(ctx, 1, tableID)
	require.NoError(t, err)
	require.NoError(t, env.svc.Tables.Forfeit(ctx, 1, tableID))
	assert.Equal(t, models.TablePlaying, env.status(t, tableID))

	require.NoError(t, env.svc.Tables.Kick(ctx, 1, tableID, 2))
	assert.Equal(t, models.TableWaiting, env.status(t, tableID))
	assert.False(t, env.session(t, s.GameID).IsActive())
}

func TestTransferHost(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeCasual, 1, 2)

	assert.ErrorIs(t, env.svc.Tables.TransferHost(ctx, 2, tableID, 2), ErrForbidden)
	assert.ErrorIs(t, env.svc.Tables.TransferHost(ctx, 1, tableID, 9), ErrNotFound)

	require.NoError(t, env.svc.Tables.TransferHost(ctx, 1, tableID, 2))
	table, err := findTable(env.db, tableID)
	require.NoError(t, err)
	assert.True(t, table.IsHost(2))
}

func TestUpdateModeAndSettings(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeCasual, 1, 2, 3)

	table, err := env.svc.Tables.UpdateMode(ctx, 1, tableID, "expert")
	require.NoError(t, err)
	assert.Equal(t, models.ModeExpert, table.Mode)

	_, err = env.svc.Tables.UpdateMode(ctx, 2, tableID, "Timed")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Tables.UpdateMode(ctx, 1, tableID, "Blitz")
	assert.ErrorIs(t, err, ErrInvalid)

	two := 2
	_, err = env.svc.Tables.UpdateSettings(ctx, 1, tableID, SettingsParams{MaxPlayers: &two})
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	five, secret, private := 5, "s3cret", true
	table, err = env.svc.Tables.UpdateSettings(ctx, 1, tableID, SettingsParams{MaxPlayers: &five, Password: &secret, IsPrivate: &private})
	require.NoError(t, err)
	assert.Equal(t, 5, table.MaxPlayers)
	assert.True(t, table.IsPrivate)
	assert.True(t, table.HasPassword())
	assert.True(t, passwordMatches(table, "s3cret"))

	empty := ""
	table, err = env.svc.Tables.UpdateSettings(ctx, 1, tableID, SettingsParams{Password: &empty})
	require.NoError(t, err)
	assert.False(t, table.HasPassword())
}

func TestSettingsLockedWhilePlaying(t *testing.T) {
	env := newTestEnv(t)
	tableID, _ := env.started(t, models.ModeCasual, 1, 2)

	_, err := env.svc.Tables.UpdateMode(ctx, 1, tableID, "Expert")
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	six := 6
	_, err = env.svc.Tables.UpdateSettings(ctx, 1, tableID, SettingsParams{MaxPlayers: &six})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestResetTable(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeCasual, 1, 2)

	assert.ErrorIs(t, env.svc.Tables.ResetTable(ctx, 2, tableID), ErrForbidden)
	require.NoError(t, env.svc.Tables.ResetTable(ctx, 1, tableID))

	assert.Equal(t, models.TableWaiting, env.status(t, tableID))
	assert.False(t, env.session(t, s.GameID).IsActive())
	for _, id := range []uint{1, 2} {
		m := env.member(t, tableID, id)
		require.NotNil(t, m)
		assert.False(t, m.IsReady)
		assert.False(t, m.IsInGame)
	}
}

func TestListTables(t *testing.T) {
	env := newTestEnv(t)
	env.players(t, 1, 2, 3, 4)

	_, err := env.svc.Tables.CreateTable(ctx, 1, CreateTableParams{Name: "Alpha Lounge"})
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	beta, err := env.svc.Tables.CreateTable(ctx, 2, CreateTableParams{Name: "beta", Password: "pw", Mode: "Expert"})
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.svc.Tables.CreateTable(ctx, 3, CreateTableParams{Name: "hidden", IsPrivate: true})
	require.NoError(t, err)
	_, err = env.svc.Tables.JoinTable(ctx, 4, beta.ID, "pw")
	require.NoError(t, err)

	tables, page, err := env.svc.Tables.ListTables(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, tables, 2)

	byName := map[string]TableSummary{}
	for _, s := range tables {
		byName[s.Name] = s
	}
	require.Contains(t, byName, "beta")
	assert.Equal(t, int64(2), byName["beta"].CurrentPlayers)
	assert.True(t, byName["beta"].HasPassword)
	assert.Equal(t, models.ModeExpert, byName["beta"].Mode)
	assert.Equal(t, "player2", byName["beta"].HostName)
	assert.Equal(t, models.TableWaiting, byName["beta"].Status)
	assert.NotContains(t, byName, "hidden")

	tables, _, err = env.svc.Tables.ListTables(ctx, 1, 10, "LOUNGE")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "Alpha Lounge", tables[0].Name)

	tables, page, err = env.svc.Tables.ListTables(ctx, 2, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, tables, 1)

	// Huge paging values are clamped instead of overflowing the offset.
	tables, page, err = env.svc.Tables.ListTables(ctx, math.MaxInt, math.MaxInt, "")
	require.NoError(t, err)
	assert.Equal(t, MaxListPage, page.CurrentPage)
	assert.Equal(t, MaxListLimit, page.Limit)
	assert.Empty(t, tables)
}

func TestListTablesShowsPlaying(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.started(t, models.ModeCasual, 1)

	tables, _, err := env.svc.Tables.ListTables(ctx, 1, 10, "")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, models.TablePlaying, tables[0].Status)
}

func TestGetRoom(t *testing.T) {
	env := newTestEnv(t)
	tableID := env.table(t, models.ModeCasual, 1, 2)
	env.players(t, 3)

	_, err := env.svc.Tables.GetRoom(ctx, 3, tableID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.svc.Tables.GetRoom(ctx, 1, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	room, err := env.svc.Tables.GetRoom(ctx, 2, tableID)
	require.NoError(t, err)
	assert.False(t, room.IsHost)
	assert.Empty(t, room.GameID)
	require.Len(t, room.Members, 2)
	assert.Equal(t, uint(1), room.Members[0].PlayerID)
	assert.True(t, room.Members[0].IsHost)
	assert.Equal(t, "player2", room.Members[1].Username)

	env.readyAll(t, tableID)
	s, err := env.svc.Sessions.Launch(ctx, 1, tableID)
	require.NoError(t, err)
	room, err = env.svc.Tables.GetRoom(ctx, 1, tableID)
	require.NoError(t, err)
	assert.Equal(t, s.GameID, room.GameID)
	assert.Equal(t, models.TablePlaying, room.Table.Status)
	assert.True(t, room.Members[0].IsInGame)
}
