// handlers/game.go - Single-player game HTTP Handlers
package handlers

import (
	"decantry/utils"

	"github.com/gofiber/fiber/v2"
)

// GetCasualGame draws a random country with all its facts
// GET /api/game/casual
func (h *Handler) GetCasualGame(c *fiber.Ctx) error {
	game, err := h.svc.Practice.Casual(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"country": game.Item, "facts": game.Clues})
}

// GetDailyGame returns today's country, the same for everyone
// GET /api/game/daily
func (h *Handler) GetDailyGame(c *fiber.Ctx) error {
	game, err := h.svc.Practice.Daily(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"country": game.Item, "facts": game.Clues})
}

// GetExpertGame draws one hard fact per round over distinct countries
// GET /api/game/expert
func (h *Handler) GetExpertGame(c *fiber.Ctx) error {
	questions, err := h.svc.Practice.Expert(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"questions": questions})
}

// GetTimedQuestion draws one country and one of its facts
// GET /api/game/timed
func (h *Handler) GetTimedQuestion(c *fiber.Ctx) error {
	q, err := h.svc.Practice.Timed(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"name": q.Target, "fact": q.Clue})
}
