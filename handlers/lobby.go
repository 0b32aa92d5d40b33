// handlers/lobby.go - Lobby HTTP Handlers
package handlers

import (
	"decantry/services"
	"decantry/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type tableRequest struct {
	TableID uint `json:"tableId"`
}

// ================== TABLE LIFECYCLE ==================

// CreateTable opens a new table with the caller as host
// POST /api/lobby/create
func (h *Handler) CreateTable(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		Name       string `json:"name"`
		Password   string `json:"password"`
		IsPrivate  bool   `json:"isPrivate"`
		Mode       string `json:"mode"`
		MaxPlayers int    `json:"maxPlayers"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	table, err := h.svc.Tables.CreateTable(c.UserContext(), userID, services.CreateTableParams{
		Name:       req.Name,
		Password:   req.Password,
		IsPrivate:  req.IsPrivate,
		Mode:       req.Mode,
		MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		return fail(c, err)
	}

	log.WithFields(log.Fields{"table_id": table.ID, "player_id": userID}).Info("🆕 Table created")
	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"message": "Table created",
		"tableId": table.ID,
	})
}

// ListTables lists public tables
// GET /api/lobby/tables?page=1&limit=10&search=
func (h *Handler) ListTables(c *fiber.Ctx) error {
	page := utils.ClampInt(utils.QueryInt(c, "page", 1), 1, services.MaxListPage)
	limit := utils.ClampInt(utils.QueryInt(c, "limit", 10), 1, services.MaxListLimit)

	tables, pagination, err := h.svc.Tables.ListTables(c.UserContext(), page, limit, c.Query("search"))
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"tables":     tables,
		"pagination": pagination,
	})
}

// JoinTable seats the caller at a table, leaving any other seat
// POST /api/lobby/join
func (h *Handler) JoinTable(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		TableID  uint   `json:"tableId"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	table, err := h.svc.Tables.JoinTable(c.UserContext(), userID, req.TableID, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"message": "Joined table",
		"tableId": table.ID,
	})
}

// LeaveTable gives up the caller's seat
// POST /api/lobby/leave
func (h *Handler) LeaveTable(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	if err := h.svc.Tables.LeaveTable(c.UserContext(), userID, req.TableID); err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Left table"})
}

// GetRoom returns the caller's table with its members
// GET /api/lobby/room/:id
func (h *Handler) GetRoom(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	tableID, ok := utils.ParamID(c, "id")
	if !ok {
		return fail(c, errBadTableID)
	}

	room, err := h.svc.Tables.GetRoom(c.UserContext(), userID, tableID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"table":   room.Table,
		"members": room.Members,
		"isHost":  room.IsHost,
		"gameId":  room.GameID,
	})
}

// ================== HOST CONTROLS ==================

// UpdateMode changes the mode of an idle table
// POST /api/lobby/update-mode
func (h *Handler) UpdateMode(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		TableID uint   `json:"tableId"`
		Mode    string `json:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	table, err := h.svc.Tables.UpdateMode(c.UserContext(), userID, req.TableID, req.Mode)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Mode updated", "mode": table.Mode})
}

// UpdateSettings changes capacity, password or visibility of an idle table
// POST /api/lobby/update-settings
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		TableID    uint    `json:"tableId"`
		MaxPlayers *int    `json:"maxPlayers"`
		Password   *string `json:"password"`
		IsPrivate  *bool   `json:"isPrivate"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	_, err = h.svc.Tables.UpdateSettings(c.UserContext(), userID, req.TableID, services.SettingsParams{
		MaxPlayers: req.MaxPlayers,
		Password:   req.Password,
		IsPrivate:  req.IsPrivate,
	})
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Settings updated"})
}

// KickMember removes another member from the host's table
// POST /api/lobby/kick
func (h *Handler) KickMember(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		TableID  uint `json:"tableId"`
		MemberID uint `json:"memberId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	if err := h.svc.Tables.Kick(c.UserContext(), userID, req.TableID, req.MemberID); err != nil {
		return fail(c, err)
	}

	log.WithFields(log.Fields{"table_id": req.TableID, "player_id": req.MemberID}).Info("👢 Member kicked")
	return utils.JSONSuccess(c, fiber.Map{"message": "User kicked"})
}

// TransferHost hands the host role to another member
// POST /api/lobby/transfer-host
func (h *Handler) TransferHost(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req struct {
		TableID   uint `json:"tableId"`
		NewHostID uint `json:"newHostId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	if err := h.svc.Tables.TransferHost(c.UserContext(), userID, req.TableID, req.NewHostID); err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Host transferred"})
}

// ResetTable ends any running game and clears ready flags
// POST /api/lobby/reset
func (h *Handler) ResetTable(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	if err := h.svc.Tables.ResetTable(c.UserContext(), userID, req.TableID); err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Table reset"})
}

// ================== GAME START ==================

// ToggleReady flips the caller's ready flag
// POST /api/lobby/toggle-ready
func (h *Handler) ToggleReady(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	ready, err := h.svc.Ready.ToggleReady(c.UserContext(), userID, req.TableID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"message": "Ready status updated",
		"isReady": ready,
	})
}

// StartGame launches a session at the host's table
// POST /api/lobby/start-game
func (h *Handler) StartGame(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	session, err := h.svc.Sessions.Launch(c.UserContext(), userID, req.TableID)
	if err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{
		"message": "Game started",
		"gameId":  session.GameID,
		"mode":    session.Mode,
	})
}

// Forfeit drops the caller out of the running game, keeping the seat
// POST /api/lobby/forfeit
func (h *Handler) Forfeit(c *fiber.Ctx) error {
	userID, err := playerID(c)
	if err != nil {
		return fail(c, err)
	}

	var req tableRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errBadBody)
	}

	if err := h.svc.Tables.Forfeit(c.UserContext(), userID, req.TableID); err != nil {
		return fail(c, err)
	}

	return utils.JSONSuccess(c, fiber.Map{"message": "Forfeited"})
}
