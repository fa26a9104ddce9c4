package channels

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/rules"
)

var deliveryCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_channel_deliveries_total",
	Help: "Channel delivery attempts, by channel and status",
}, []string{"channel", "status"})

// Channel delivers a notification through one outbound medium.
type Channel interface {
	Name() rules.Channel
	Deliver(ctx context.Context, n notify.Notification) error
}

// Capped-structure and pub/sub seams the adapters write through. The Redis
// store implements all of them; tests substitute in-memory fakes.
type (
	// CappedList appends a JSON record to a fixed-size most-recent-first
	// list, evicting the oldest entry past the limit.
	CappedList interface {
		PushCapped(ctx context.Context, key string, value any, limit int64) error
	}
	// ExpiringCappedList additionally refreshes a TTL on the whole list.
	ExpiringCappedList interface {
		PushCappedTTL(ctx context.Context, key string, value any, limit int64, ttl time.Duration) error
	}
	// Queue appends to an unbounded list drained by an external worker.
	Queue interface {
		Enqueue(ctx context.Context, key string, value any) error
	}
	// Broadcaster publishes to a pub/sub channel for live consumers.
	Broadcaster interface {
		Broadcast(ctx context.Context, channel string, message any) error
	}
)

// Fanout invokes each of a notification's channels independently and in
// order. A channel failing, or panicking, cannot stop the remaining channels
// or the message's acknowledgment.
type Fanout struct {
	channels map[rules.Channel]Channel
	logger   zerolog.Logger
}

func NewFanout(logger zerolog.Logger, chans ...Channel) *Fanout {
	m := make(map[rules.Channel]Channel, len(chans))
	for _, ch := range chans {
		m[ch.Name()] = ch
	}
	return &Fanout{channels: m, logger: logger}
}

func (f *Fanout) Deliver(ctx context.Context, n notify.Notification) {
	for _, name := range n.Channels {
		ch, ok := f.channels[name]
		if !ok {
			f.logger.Warn().Str("channel", string(name)).Msg("no adapter registered for channel")
			deliveryCounter.WithLabelValues(string(name), "unregistered").Inc()
			continue
		}
		f.deliverOne(ctx, ch, n)
	}
}

func (f *Fanout) deliverOne(ctx context.Context, ch Channel, n notify.Notification) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).
				Str("channel", string(ch.Name())).
				Str("notification_id", n.ID).
				Msg("channel adapter panicked")
			deliveryCounter.WithLabelValues(string(ch.Name()), "panic").Inc()
		}
	}()
	if err := ch.Deliver(ctx, n); err != nil {
		f.logger.Error().Err(err).
			Str("channel", string(ch.Name())).
			Str("notification_id", n.ID).
			Msg("channel delivery failed")
		deliveryCounter.WithLabelValues(string(ch.Name()), "failed").Inc()
		return
	}
	deliveryCounter.WithLabelValues(string(ch.Name()), "delivered").Inc()
}
