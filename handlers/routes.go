// handlers/routes.go - Route table
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by the health check.
const Version = "1.0.0"

// Register mounts the API on app. auth guards every route that acts for a player.
func (h *Handler) Register(app *fiber.App, auth fiber.Handler) {
	app.Get("/health", Health)

	api := app.Group("/api")
	api.Get("/health", Health)

	// Lobby
	lobby := api.Group("/lobby")
	lobby.Get("/tables", h.ListTables)
	lobby.Post("/create", auth, h.CreateTable)
	lobby.Post("/join", auth, h.JoinTable)
	lobby.Post("/leave", auth, h.LeaveTable)
	lobby.Get("/room/:id", auth, h.GetRoom)
	lobby.Post("/update-mode", auth, h.UpdateMode)
	lobby.Post("/update-settings", auth, h.UpdateSettings)
	lobby.Post("/toggle-ready", auth, h.ToggleReady)
	lobby.Post("/start-game", auth, h.StartGame)
	lobby.Post("/kick", auth, h.KickMember)
	lobby.Post("/transfer-host", auth, h.TransferHost)
	lobby.Post("/forfeit", auth, h.Forfeit)
	lobby.Post("/reset", auth, h.ResetTable)
	lobby.Post("/invite", auth, h.InvitePlayer)

	// User
	user := api.Group("/user")
	user.Get("/invites", auth, h.ListInvites)
	user.Post("/invites/respond", auth, h.RespondInvite)
	user.Get("/stats", auth, h.GetUserStats)
	user.Post("/score", auth, h.RecordScore)
	user.Get("/history", auth, h.GetUserHistory)

	// Single-player content
	game := api.Group("/game")
	game.Get("/casual", h.GetCasualGame)
	game.Get("/expert", h.GetExpertGame)
	game.Get("/timed", h.GetTimedQuestion)
	game.Get("/daily", h.GetDailyGame)

	// Multiplayer
	game.Get("/multiplayer/status/:gameId", auth, h.GetGameStatus)
	game.Get("/multiplayer/:tableId", auth, h.GetMultiplayerGame)
	game.Post("/multiplayer/submit", auth, h.SubmitAnswer)
	game.Post("/multiplayer/next-round", auth, h.NextRound)

	api.Get("/leaderboard", h.GetLeaderboard)
}

// Health reports liveness
// GET /health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   Version,
	})
}
