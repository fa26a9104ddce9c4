package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Broker owns the AMQP connection and channel for a process. It is acquired
// once at startup and released on shutdown; components borrow it rather than
// reaching for ambient globals.
type Broker struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

// Connect dials the broker, retrying with exponential backoff until the
// context is cancelled or the retry window closes.
func Connect(ctx context.Context, url string, logger zerolog.Logger) (*Broker, error) {
	var conn *amqp.Connection

	op := backoff.NewExponentialBackOff()
	op.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		var err error
		conn, err = amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Msg("broker dial failed, retrying")
			return err
		}
		return nil
	}, backoff.WithContext(op, ctx))
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &Broker{conn: conn, ch: ch, logger: logger}, nil
}

// Channel exposes the shared channel for consumers and topology declaration.
func (b *Broker) Channel() *amqp.Channel {
	return b.ch
}

// Qos caps unacknowledged deliveries across every consumer on the
// connection. The bound limits total in-flight work, not per-queue
// throughput.
func (b *Broker) Qos(prefetch int) error {
	if err := b.ch.Qos(prefetch, 0, true); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// PublishJSON marshals v and publishes it persistent to the exchange under
// the given routing key.
func (b *Broker) PublishJSON(ctx context.Context, exchange, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal publish body: %w", err)
	}
	err = b.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", routingKey, exchange, err)
	}
	return nil
}

func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.logger.Warn().Err(err).Msg("close channel")
	}
	return b.conn.Close()
}
