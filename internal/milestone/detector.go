package milestone

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var achievedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_milestones_achieved_total",
	Help: "Milestone events published, by metric",
}, []string{"metric"})

// ConditionalStore is the one primitive milestone detection is allowed:
// atomically create a key with a TTL, reporting whether this call created
// it. A separate read followed by a write would race under concurrent
// consumers and publish duplicates.
type ConditionalStore interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Publisher emits a derived event onto an exchange.
type Publisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, v any) error
}

// Achieved is the payload of a <metric>.milestone.achieved event.
type Achieved struct {
	Type         string    `json:"type"`
	Threshold    float64   `json:"threshold"`
	CurrentValue float64   `json:"currentValue"`
	Timestamp    time.Time `json:"timestamp"`
}

// Detector walks an ascending threshold ladder for each metric observation
// and publishes at most one achieved event per (metric, threshold, period),
// scoped by a key that expires with the period.
type Detector struct {
	Store    ConditionalStore
	Bus      Publisher
	Exchange string
	Ladder   []float64
	Period   time.Duration
	Logger   zerolog.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (d *Detector) Evaluate(ctx context.Context, metric string, value float64) error {
	now := time.Now().UTC()
	if d.Now != nil {
		now = d.Now()
	}
	periodKey := now.Format("2006-01-02")

	for _, threshold := range d.Ladder {
		if value < threshold {
			break
		}
		key := fmt.Sprintf("milestone:%s:%s:%s", metric, amountKey(threshold), periodKey)
		created, err := d.Store.SetIfAbsent(ctx, key, d.Period)
		if err != nil {
			return fmt.Errorf("mark milestone %s: %w", key, err)
		}
		if !created {
			continue
		}
		routingKey := metric + ".milestone.achieved"
		achieved := Achieved{
			Type:         "milestone",
			Threshold:    threshold,
			CurrentValue: value,
			Timestamp:    now,
		}
		if err := d.Bus.PublishJSON(ctx, d.Exchange, routingKey, achieved); err != nil {
			// The mark stands, so this period's event is lost: at-most-once.
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}
		achievedCounter.WithLabelValues(metric).Inc()
		d.Logger.Info().
			Str("metric", metric).
			Float64("threshold", threshold).
			Float64("value", value).
			Msg("milestone achieved")
	}
	return nil
}

func amountKey(v float64) string {
	return fmt.Sprintf("%g", v)
}
