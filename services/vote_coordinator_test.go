package services

import (
	"testing"
	"time"

	"decantry/config"
	"decantry/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteAdvanceNeedsEveryPlayer(t *testing.T) {
	env := newTestEnv(t)
	_, s := env.started(t, models.ModeExpert, 1, 2, 3)

	for _, id := range []uint{1, 2} {
		out, err := env.svc.Votes.VoteAdvance(ctx, id, s.GameID)
		require.NoError(t, err)
		assert.False(t, out.RoundAdvanced)
	}

	snap, err := env.svc.Status.Poll(ctx, s.GameID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.VotesCount)
	assert.Equal(t, int64(3), snap.TotalPlayers)
	assert.Zero(t, snap.CurrentRound)
	assert.True(t, snap.HasVoted)

	env.clock.Advance(20 * time.Second)
	out, err := env.svc.Votes.VoteAdvance(ctx, 3, s.GameID)
	require.NoError(t, err)
	assert.True(t, out.RoundAdvanced)
	assert.Equal(t, 1, out.Round)
	assert.Equal(t, int64(3), out.AccumulatedVotes)
	assert.Equal(t, int64(3), out.RequiredVotes)

	got := env.session(t, s.GameID)
	assert.Equal(t, 1, got.CurrentRound)
	assert.True(t, got.RoundStartedAt.Equal(env.clock.Now()))

	// Votes on the new round start from zero.
	snap, err = env.svc.Status.Poll(ctx, s.GameID, 1)
	require.NoError(t, err)
	assert.Zero(t, snap.VotesCount)
	assert.False(t, snap.HasVoted)
}

func TestVoteAdvanceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	_, s := env.started(t, models.ModeExpert, 1, 2)

	for i := 0; i < 3; i++ {
		out, err := env.svc.Votes.VoteAdvance(ctx, 1, s.GameID)
		require.NoError(t, err)
		assert.False(t, out.RoundAdvanced)
		assert.Equal(t, int64(1), out.AccumulatedVotes)
	}
	assert.Zero(t, env.session(t, s.GameID).CurrentRound)
}

func TestVoteAdvanceRejections(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeExpert, 1, 2)

	_, err := env.svc.Votes.VoteAdvance(ctx, 1, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	env.players(t, 3)
	_, err = env.svc.Votes.VoteAdvance(ctx, 3, s.GameID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.svc.Tables.Forfeit(ctx, 2, tableID))
	_, err = env.svc.Votes.VoteAdvance(ctx, 2, s.GameID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, casual := env.started(t, models.ModeCasual, 4)
	_, err = env.svc.Votes.VoteAdvance(ctx, 4, casual.GameID)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVoteOnLastRoundFinishes(t *testing.T) {
	env := newTestEnvWith(t, 12, func(g *config.GameConfig) { g.ExpertRounds = 2 })
	tableID, s := env.started(t, models.ModeExpert, 1, 2)

	for _, id := range []uint{1, 2} {
		_, err := env.svc.Votes.VoteAdvance(ctx, id, s.GameID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, env.session(t, s.GameID).CurrentRound)

	_, err := env.svc.Votes.VoteAdvance(ctx, 1, s.GameID)
	require.NoError(t, err)
	out, err := env.svc.Votes.VoteAdvance(ctx, 2, s.GameID)
	require.NoError(t, err)
	assert.True(t, out.GameOver)
	assert.False(t, out.RoundAdvanced)

	assert.Equal(t, models.TableWaiting, env.status(t, tableID))
	got := env.session(t, s.GameID)
	assert.False(t, got.IsActive())
	assert.Equal(t, 1, got.CurrentRound)

	out, err = env.svc.Votes.VoteAdvance(ctx, 1, s.GameID)
	require.NoError(t, err)
	assert.True(t, out.GameOver)
}

func TestForfeitCompletesVoteQuorum(t *testing.T) {
	env := newTestEnv(t)
	tableID, s := env.started(t, models.ModeExpert, 1, 2, 3)

	for _, id := range []uint{1, 2} {
		_, err := env.svc.Votes.VoteAdvance(ctx, id, s.GameID)
		require.NoError(t, err)
	}
	require.NoError(t, env.svc.Tables.Forfeit(ctx, 3, tableID))

	assert.Equal(t, 1, env.session(t, s.GameID).CurrentRound)
}
