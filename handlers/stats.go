// handlers/stats.go - Leaderboard and player stats HTTP Handlers
package handlers

import (
	"decantry/utils"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard returns the top players for a mode, or overall
// GET /api/leaderboard?mode=Casual&limit=10
func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	limit := utils.ClampInt(utils.QueryInt(c, "limit", 10), 1, 100)

	rows, err := h.svc.Stats.Leaderboard(c.UserContext(), c.Query("mode"), limit)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"leaderboard": rows})
}

// GetUserStats returns the caller's point totals
// GET /api/user/stats
func (h *Handler) GetUserStats(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	stats, err := h.svc.Stats.PlayerStats(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"total_points":  stats.TotalPoints,
		"casual_points": stats.CasualPoints,
		"daily_points":  stats.DailyPoints,
		"expert_points": stats.ExpertPoints,
		"timed_points":  stats.TimedPoints,
	})
}

// RecordScore adds a finished single-player game to the caller's totals
// POST /api/user/score
func (h *Handler) RecordScore(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Mode   string `json:"mode"`
		Points int    `json:"points"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	if err := h.svc.Practice.RecordScore(c.UserContext(), userID, req.Mode, req.Points); err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Score updated"})
}

// GetUserHistory lists the caller's finished multiplayer games
// GET /api/user/history?limit=20
func (h *Handler) GetUserHistory(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	entries, err := h.svc.Stats.PlayerHistory(c.UserContext(), userID, utils.QueryInt(c, "limit", 20))
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"games": entries})
}
