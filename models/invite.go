// models/invite.go
package models

import "time"

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

type TableInvite struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	TableID    uint         `json:"table_id" gorm:"not null;index"`
	SenderID   uint         `json:"sender_id" gorm:"not null"`
	ReceiverID uint         `json:"receiver_id" gorm:"not null;index"`
	Status     InviteStatus `json:"status" gorm:"not null;size:20;default:'pending'"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (TableInvite) TableName() string {
	return "table_invites"
}
