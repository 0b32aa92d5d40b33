// handlers/invites.go - Table invite HTTP Handlers
package handlers

import (
	"strings"

	"decantry/services"
	"decantry/utils"

	"github.com/gofiber/fiber/v2"
)

// InvitePlayer invites a player, by username, to the caller's table
// POST /api/lobby/invite
func (h *Handler) InvitePlayer(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		TableID  uint   `json:"tableId"`
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	invite, err := h.svc.Tables.Invite(c.UserContext(), userID, req.TableID, req.Username)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"message":  "Invite sent",
		"inviteId": invite.ID,
	})
}

// ListInvites returns the caller's pending invites
// GET /api/user/invites
func (h *Handler) ListInvites(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	invites, err := h.svc.Tables.ListInvites(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"invites": invites})
}

// RespondInvite accepts or declines a pending invite
// POST /api/user/invites/respond
func (h *Handler) RespondInvite(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		InviteID uint   `json:"inviteId"`
		Action   string `json:"action"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	var accept bool
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "accept":
		accept = true
	case "decline":
	default:
		return fail(c, &services.Error{Kind: services.ErrInvalid, Message: "Action must be accept or decline"})
	}

	table, err := h.svc.Tables.RespondInvite(c.UserContext(), userID, req.InviteID, accept, req.Password)
	if err != nil {
		return fail(c, err)
	}

	if !accept {
		return utils.JSONSuccess(c, fiber.Map{"message": "Invite declined"})
	}
	return utils.JSONSuccess(c, fiber.Map{
		"message": "Joined table",
		"tableId": table.ID,
	})
}
