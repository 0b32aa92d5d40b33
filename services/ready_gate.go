// services/ready_gate.go - Per-member readiness and the launch precondition
package services

import (
	"context"
	"fmt"

	"decantry/models"

	"gorm.io/gorm"
)

type ReadyGate struct {
	db *gorm.DB
}

func NewReadyGate(db *gorm.DB) *ReadyGate {
	return &ReadyGate{db: db}
}

// ToggleReady flips the member's ready flag and returns the new value.
func (g *ReadyGate) ToggleReady(ctx context.Context, playerID, tableID uint) (bool, error) {
	var ready bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findTable(tx, tableID); err != nil {
			return err
		}
		if _, err := requireMember(tx, tableID, playerID); err != nil {
			return err
		}
		err := tx.Model(&models.TableMember{}).
			Where("table_id = ? AND player_id = ?", tableID, playerID).
			Update("is_ready", gorm.Expr("NOT is_ready")).Error
		if err != nil {
			return fmt.Errorf("failed to toggle ready: %w", err)
		}
		member, err := requireMember(tx, tableID, playerID)
		if err != nil {
			return err
		}
		ready = member.IsReady
		return nil
	})
	return ready, err
}

// CanLaunch reports whether the table has members and all of them are ready.
func (g *ReadyGate) CanLaunch(ctx context.Context, tableID uint) (bool, error) {
	readiness, err := readinessOf(g.db.WithContext(ctx), tableID)
	if err != nil {
		return false, err
	}
	return readiness.launchable(), nil
}

type readiness struct {
	Members int64
	Ready   int64
}

func (r readiness) launchable() bool {
	return r.Members > 0 && r.Ready == r.Members
}

func readinessOf(tx *gorm.DB, tableID uint) (readiness, error) {
	var r readiness
	err := tx.Model(&models.TableMember{}).
		Select("COUNT(*) AS members, COALESCE(SUM(CASE WHEN is_ready THEN 1 ELSE 0 END), 0) AS ready").
		Where("table_id = ?", tableID).
		Scan(&r).Error
	if err != nil {
		return r, fmt.Errorf("failed to read readiness: %w", err)
	}
	return r, nil
}
