// services/ledger_nats.go - Score ledger publishing deltas to NATS
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"decantry/config"
	"decantry/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// ScoreDelta is the message published for every award.
type ScoreDelta struct {
	ID         string          `json:"id"`
	PlayerID   uint            `json:"player_id"`
	Mode       models.GameMode `json:"mode"`
	Points     int             `json:"points"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// NATSLedger publishes deltas for a downstream consumer that owns the totals.
type NATSLedger struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

func ConnectNATSLedger(cfg config.LedgerConfig) (*NATSLedger, error) {
	opts := []nats.Option{
		nats.Name("decantry score ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.WithField("subject", cfg.NATSSubject).Info("✅ Score ledger connected to NATS")
	return &NATSLedger{conn: conn, subject: cfg.NATSSubject, now: time.Now}, nil
}

func (l *NATSLedger) RecordDelta(ctx context.Context, playerID uint, mode models.GameMode, points int) error {
	msg, err := l.message(playerID, mode, points)
	if err != nil {
		return err
	}
	if err := l.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish score delta: %w", err)
	}
	return nil
}

func (l *NATSLedger) message(playerID uint, mode models.GameMode, points int) (*nats.Msg, error) {
	delta := ScoreDelta{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		Mode:       mode,
		Points:     points,
		RecordedAt: l.now().UTC(),
	}
	data, err := json.Marshal(delta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score delta: %w", err)
	}
	msg := nats.NewMsg(l.subject)
	msg.Data = data
	// Consumers dedupe on the message id.
	msg.Header.Set(nats.MsgIdHdr, delta.ID)
	return msg, nil
}

// Close flushes pending deltas and closes the connection.
func (l *NATSLedger) Close() error {
	if l.conn == nil {
		return nil
	}
	if err := l.conn.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
