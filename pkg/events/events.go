// Package events publishes booking notices to a message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects.
const (
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
)

// Publisher sends a JSON payload on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

// NATSPublisher publishes core NATS messages.
type NATSPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url string, log zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("event-booker"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: conn, log: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.log.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("publishing")
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Connected reports whether the underlying connection is usable.
func (p *NATSPublisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// LogPublisher writes notices to the log. Used when no bus is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, subject string, data any) error {
	p.log.Info().Str("subject", subject).Interface("payload", data).Msg("event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
