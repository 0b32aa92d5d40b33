package handlers

import (
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCasualGameOverHTTP(t *testing.T) {
	api := newAPI(t)
	tableID := api.openTable(t, "Casual", 1, 2)

	out := api.ok(t, "POST", "/api/lobby/start-game", 1, fiber.Map{"tableId": tableID})
	gameID := out["gameId"].(string)
	require.NotEmpty(t, gameID)
	s := api.session(t, gameID)

	// A repeated start returns the running game.
	out = api.ok(t, "POST", "/api/lobby/start-game", 1, fiber.Map{"tableId": tableID})
	assert.Equal(t, gameID, out["gameId"])

	out = api.ok(t, "GET", "/api/game/multiplayer/"+ftoa(float64(tableID)), 2, nil)
	game := out["game"].(map[string]interface{})
	assert.Equal(t, gameID, game["gameId"])
	assert.Len(t, game["clues"].([]interface{}), 10)

	out = api.ok(t, "POST", "/api/game/multiplayer/submit", 2, fiber.Map{"gameId": gameID, "guess": "nowhere", "clueIndex": 0})
	result := out["result"].(map[string]interface{})
	assert.Equal(t, false, result["correct"])
	assert.Equal(t, float64(1), result["nextClueIndex"])

	out = api.ok(t, "POST", "/api/game/multiplayer/submit", 2, fiber.Map{"gameId": gameID, "guess": strings.ToLower(s.Target), "clueIndex": 1})
	result = out["result"].(map[string]interface{})
	assert.Equal(t, true, result["correct"])
	assert.Equal(t, float64(90), result["points"])
	assert.Equal(t, false, result["gameOver"])

	out = api.ok(t, "GET", "/api/game/multiplayer/status/"+gameID, 1, nil)
	snap := out["snapshot"].(map[string]interface{})
	assert.Equal(t, float64(1), snap["finishedCount"])
	assert.Equal(t, false, snap["isGameOver"])

	for i := 0; i < 9; i++ {
		out = api.ok(t, "POST", "/api/game/multiplayer/submit", 1, fiber.Map{"gameId": gameID, "skip": true, "clueIndex": i})
		assert.Equal(t, float64(i+1), out["result"].(map[string]interface{})["nextClueIndex"])
	}
	out = api.ok(t, "POST", "/api/game/multiplayer/submit", 1, fiber.Map{"gameId": gameID, "skip": true, "clueIndex": 9})
	assert.Equal(t, true, out["result"].(map[string]interface{})["gameOver"])

	out = api.ok(t, "GET", "/api/game/multiplayer/status/"+gameID, 1, nil)
	snap = out["snapshot"].(map[string]interface{})
	assert.Equal(t, true, snap["isGameOver"])
	assert.Equal(t, "waiting", snap["tableStatus"])
	assert.Equal(t, float64(2), snap["totalPlayers"])
	assert.Equal(t, float64(2), snap["finishedCount"])

	out = api.ok(t, "GET", "/api/user/stats", 2, nil)
	assert.Equal(t, float64(90), out["total_points"])
	assert.Equal(t, float64(90), out["casual_points"])

	out = api.ok(t, "GET", "/api/user/history", 2, nil)
	games := out["games"].([]interface{})
	require.Len(t, games, 1)
	assert.Equal(t, gameID, games[0].(map[string]interface{})["gameId"])
	assert.Equal(t, float64(90), games[0].(map[string]interface{})["score"])
}

func TestMultiplayerErrors(t *testing.T) {
	api := newAPI(t)
	tableID := api.openTable(t, "Casual", 1)

	status, _ := api.call(t, "GET", "/api/game/multiplayer/"+ftoa(float64(tableID)), 1, nil)
	assert.Equal(t, 404, status)
	status, _ = api.call(t, "GET", "/api/game/multiplayer/status/unknown", 1, nil)
	assert.Equal(t, 404, status)
	status, _ = api.call(t, "GET", "/api/game/multiplayer/x", 1, nil)
	assert.Equal(t, 400, status)

	out := api.ok(t, "POST", "/api/lobby/start-game", 1, fiber.Map{"tableId": tableID})
	gameID := out["gameId"].(string)

	status, _ = api.call(t, "GET", "/api/game/multiplayer/status/"+gameID, 5, nil)
	assert.Equal(t, 403, status)
	status, _ = api.call(t, "POST", "/api/game/multiplayer/submit", 1, fiber.Map{"gameId": gameID, "guess": "x", "clueIndex": 99})
	assert.Equal(t, 400, status)
	status, _ = api.call(t, "POST", "/api/game/multiplayer/next-round", 1, fiber.Map{"gameId": gameID})
	assert.Equal(t, 400, status)
}

func TestExpertVotesHTTP(t *testing.T) {
	api := newAPI(t)
	tableID := api.openTable(t, "Expert", 1, 2)

	out := api.ok(t, "POST", "/api/lobby/start-game", 1, fiber.Map{"tableId": tableID})
	gameID := out["gameId"].(string)

	out = api.ok(t, "GET", "/api/game/multiplayer/"+ftoa(float64(tableID)), 1, nil)
	game := out["game"].(map[string]interface{})
	assert.Len(t, game["rounds"].([]interface{}), 10)
	assert.Equal(t, float64(0), game["currentRound"])

	out = api.ok(t, "POST", "/api/game/multiplayer/next-round", 1, fiber.Map{"gameId": gameID})
	assert.Equal(t, false, out["roundAdvanced"])
	assert.Equal(t, float64(1), out["accumulatedVotes"])
	assert.Equal(t, float64(2), out["requiredVotes"])

	out = api.ok(t, "POST", "/api/game/multiplayer/next-round", 2, fiber.Map{"gameId": gameID})
	assert.Equal(t, true, out["roundAdvanced"])
	assert.Equal(t, float64(1), out["round"])

	out = api.ok(t, "GET", "/api/game/multiplayer/status/"+gameID, 2, nil)
	snap := out["snapshot"].(map[string]interface{})
	assert.Equal(t, float64(1), snap["currentRound"])
	assert.Equal(t, float64(10), snap["totalRounds"])

	api.ok(t, "POST", "/api/lobby/forfeit", 2, fiber.Map{"tableId": tableID})
	status, _ := api.call(t, "POST", "/api/game/multiplayer/next-round", 2, fiber.Map{"gameId": gameID})
	assert.Equal(t, 403, status)
}
