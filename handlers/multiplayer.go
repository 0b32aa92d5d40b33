// handlers/multiplayer.go - Multiplayer game HTTP Handlers
package handlers

import (
	"decantry/services"
	"decantry/utils"

	"github.com/gofiber/fiber/v2"
)

// GetMultiplayerGame returns the running game at the caller's table, without targets
// GET /api/game/multiplayer/:tableId
func (h *Handler) GetMultiplayerGame(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	tableID, ok := utils.ParamID(c, "tableId")
	if !ok {
		return fail(c, errBadTableID)
	}

	payload, err := h.svc.Status.InitialPayload(c.UserContext(), userID, tableID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"game": payload})
}

// GetGameStatus returns the caller's view of a session. Polling also finishes sessions whose
// time ran out.
// GET /api/game/multiplayer/status/:gameId
func (h *Handler) GetGameStatus(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	snapshot, err := h.svc.Status.Poll(c.UserContext(), c.Params("gameId"), userID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"snapshot": snapshot})
}

// SubmitAnswer records a guess, skip, expert answer or timed answer
// POST /api/game/multiplayer/submit
func (h *Handler) SubmitAnswer(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		GameID      string `json:"gameId"`
		Guess       string `json:"guess"`
		Skip        bool   `json:"skip"`
		ClueIndex   *int   `json:"clueIndex"`
		Round       *int   `json:"round"`
		Answer      string `json:"answer"`
		Timeout     bool   `json:"timeout"`
		QuestionSeq *int   `json:"questionSeq"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	outcome, err := h.svc.Games.SubmitAnswer(c.UserContext(), userID, services.SubmitPayload{
		GameID:      req.GameID,
		Guess:       req.Guess,
		Skip:        req.Skip,
		ClueIndex:   req.ClueIndex,
		Round:       req.Round,
		Answer:      req.Answer,
		Timeout:     req.Timeout,
		QuestionSeq: req.QuestionSeq,
	})
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"message": "Submitted",
		"result":  outcome,
	})
}

// NextRound votes to advance the current Expert round
// POST /api/game/multiplayer/next-round
func (h *Handler) NextRound(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		GameID string `json:"gameId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	out, err := h.svc.Votes.VoteAdvance(c.UserContext(), userID, req.GameID)
	if err != nil {
		return fail(c, err)
	}

	message := "Vote recorded"
	switch {
	case out.GameOver:
		message = "Game over"
	case out.RoundAdvanced:
		message = "Round advanced"
	}

	return utils.JSONSuccess(c, fiber.Map{
		"message":          message,
		"round":            out.Round,
		"roundAdvanced":    out.RoundAdvanced,
		"gameOver":         out.GameOver,
		"accumulatedVotes": out.AccumulatedVotes,
		"requiredVotes":    out.RequiredVotes,
	})
}
