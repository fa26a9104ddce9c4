package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var consumedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_events_consumed_total",
	Help: "Events consumed per queue, by outcome",
}, []string{"queue", "outcome"})

// HandlerFunc processes one delivery. A nil return acknowledges the message;
// any error dead-letters it without requeue. Transient and permanent
// failures are treated identically: no retry with backoff is attempted, the
// message goes to the dead-letter queue for offline inspection.
type HandlerFunc func(ctx context.Context, routingKey string, body []byte, emittedAt time.Time) error

// Consumer is the dispatch loop for one queue. Deliveries are handled on
// their own goroutine, so up to the connection's prefetch bound of handlers
// may run concurrently; no ordering holds between messages in flight at the
// same time.
type Consumer struct {
	Channel *amqp.Channel
	Queue   string
	Handler HandlerFunc
	Logger  zerolog.Logger
}

func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.Channel.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.Queue, err)
	}
	tracer := otel.Tracer("dispatch")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			c.drain(&wg)
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				c.drain(&wg)
				return fmt.Errorf("consume %s: delivery channel closed", c.Queue)
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				spanCtx, span := tracer.Start(ctx, "handle_delivery")
				span.SetAttributes(
					attribute.String("queue", c.Queue),
					attribute.String("routing_key", d.RoutingKey),
				)
				c.handle(spanCtx, d)
				span.End()
			}(d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	if err := c.Handler(ctx, d.RoutingKey, d.Body, d.Timestamp); err != nil {
		c.Logger.Error().Err(err).
			Str("queue", c.Queue).
			Str("routing_key", d.RoutingKey).
			Msg("handler failed, dead-lettering")
		consumedCounter.WithLabelValues(c.Queue, "dead_lettered").Inc()
		// requeue=false routes the message to the queue's dead-letter
		// exchange; it is never redelivered here.
		if err := d.Nack(false, false); err != nil {
			c.Logger.Error().Err(err).Str("queue", c.Queue).Msg("nack failed")
		}
		return
	}
	consumedCounter.WithLabelValues(c.Queue, "acked").Inc()
	if err := d.Ack(false); err != nil {
		c.Logger.Error().Err(err).Str("queue", c.Queue).Msg("ack failed")
	}
}

// drain gives in-flight handlers a short grace period on shutdown. This is
// best effort: unfinished handlers are abandoned and their messages
// redelivered after the connection closes.
func (c *Consumer) drain(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.Logger.Warn().Str("queue", c.Queue).Msg("shutdown before in-flight handlers finished")
	}
}
