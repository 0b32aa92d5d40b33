// services/invites.go - Table invites
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InviteView is a pending invite as shown to its receiver.
type InviteView struct {
	ID          uint      `json:"id"`
	TableID     uint      `json:"table_id"`
	TableName   string    `json:"table_name"`
	HasPassword bool      `json:"has_password"`
	SenderID    uint      `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Invite asks another player, by username, to join the sender's table.
func (r *TableRegistry) Invite(ctx context.Context, senderID, tableID uint, username string) (*models.TableInvite, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("Username is required")
	}
	db := r.db.WithContext(ctx)

	if _, err := findTable(db, tableID); err != nil {
		return nil, err
	}
	if _, err := requireMember(db, tableID, senderID); err != nil {
		return nil, err
	}

	var receiver models.Player
	err := db.Where("LOWER(username) = ?", strings.ToLower(username)).Take(&receiver).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if receiver.ID == senderID {
		return nil, invalid("You cannot invite yourself")
	}

	member, err := findMember(db, tableID, receiver.ID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, preconditionFailed("%s is already at this table", receiver.Username)
	}

	var pending int64
	err = db.Model(&models.TableInvite{}).
		Where("table_id = ? AND receiver_id = ? AND status = ?", tableID, receiver.ID, models.InvitePending).
		Count(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check invites: %w", err)
	}
	if pending > 0 {
		return nil, preconditionFailed("Invite already sent")
	}

	invite := &models.TableInvite{
		TableID:    tableID,
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Status:     models.InvitePending,
	}
	if err := db.Create(invite).Error; err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	log.WithFields(log.Fields{"table_id": tableID, "sender_id": senderID, "receiver_id": receiver.ID}).Info("📨 Invite sent")
	return invite, nil
}

type inviteRow struct {
	InviteView
	PasswordHash string
}

// ListInvites returns the player's pending invites, newest first.
func (r *TableRegistry) ListInvites(ctx context.Context, playerID uint) ([]InviteView, error) {
	var rows []inviteRow
	err := r.db.WithContext(ctx).Model(&models.TableInvite{}).
		Select(`table_invites.id, table_invites.table_id, game_tables.name AS table_name, game_tables.password_hash,
			table_invites.sender_id, COALESCE(players.username, '') AS sender_name, table_invites.created_at`).
		Joins("JOIN game_tables ON game_tables.id = table_invites.table_id").
		Joins("LEFT JOIN players ON players.id = table_invites.sender_id").
		Where("table_invites.receiver_id = ? AND table_invites.status = ?", playerID, models.InvitePending).
		Order("table_invites.created_at DESC, table_invites.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	invites := make([]InviteView, 0, len(rows))
	for _, row := range rows {
		view := row.InviteView
		view.HasPassword = row.PasswordHash != ""
		invites = append(invites, view)
	}
	return invites, nil
}

// RespondInvite accepts or declines a pending invite. Accepting joins the table through the
// same evicting path as JoinTable; the invite stays pending if the join fails.
func (r *TableRegistry) RespondInvite(ctx context.Context, playerID, inviteID uint, accept bool, password string) (*models.Table, error) {
	db := r.db.WithContext(ctx)

	var invite models.TableInvite
	err := db.Where("id = ? AND receiver_id = ?", inviteID, playerID).Take(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invite: %w", err)
	}
	if invite.Status != models.InvitePending {
		return nil, preconditionFailed("Invite was already answered")
	}

	if !accept {
		return nil, markInvite(db, invite.ID, models.InviteDeclined)
	}

	table, err := r.JoinTable(ctx, playerID, invite.TableID, password)
	if err != nil {
		return nil, err
	}
	if err := markInvite(db, invite.ID, models.InviteAccepted); err != nil {
		return nil, err
	}
	return table, nil
}

func markInvite(db *gorm.DB, inviteID uint, status models.InviteStatus) error {
	err := db.Model(&models.TableInvite{}).
		Where("id = ? AND status = ?", inviteID, models.InvitePending).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	return nil
}
