package notify

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/rules"
)

// HistoryStore persists notifications for audit and per-user lookup. Writes
// are best effort: a failure is logged and never blocks delivery.
type HistoryStore interface {
	Save(ctx context.Context, n Notification) error
}

// Deliverer fans a notification out to its channels. It never returns an
// error; channel failures are isolated and logged inside.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification)
}

// MetricEvaluator runs milestone detection for one metric observation.
type MetricEvaluator interface {
	Evaluate(ctx context.Context, metric string, value float64) error
}

// Pipeline turns a decoded domain event into channel deliveries: rule
// lookup, build, persist, fan out. One Pipeline serves every queue; the
// analytics queue wraps it with milestone detection.
type Pipeline struct {
	Store  HistoryStore
	Fanout Deliverer
	Logger zerolog.Logger
}

// Handle is the dispatch-loop entry point. A decode failure is the only
// error it returns; everything past decoding is contained.
func (p *Pipeline) Handle(ctx context.Context, routingKey string, body []byte, emittedAt time.Time) error {
	ev, err := event.Decode(routingKey, body, emittedAt)
	if err != nil {
		return err
	}
	p.Process(ctx, ev)
	return nil
}

// Process runs rule lookup onward for an already-decoded event.
func (p *Pipeline) Process(ctx context.Context, ev event.DomainEvent) {
	rule, ok := rules.RuleFor(ev.RoutingKey)
	if !ok {
		// Documented drop: no rule means no notification.
		p.Logger.Debug().Str("routing_key", ev.RoutingKey).Msg("no rule for event, dropping")
		return
	}

	n := Build(rule, ev)
	if err := p.Store.Save(ctx, n); err != nil {
		p.Logger.Warn().Err(err).Str("notification_id", n.ID).Msg("history write failed")
	}
	p.Fanout.Deliver(ctx, n)
}

// AnalyticsPipeline feeds metric observations through milestone detection
// before the regular pipeline. Detection failures are logged and do not
// affect acknowledgment: milestone emission is at-most-once by design.
type AnalyticsPipeline struct {
	Pipeline *Pipeline
	Detector MetricEvaluator
	Logger   zerolog.Logger
}

func (a *AnalyticsPipeline) Handle(ctx context.Context, routingKey string, body []byte, emittedAt time.Time) error {
	ev, err := event.Decode(routingKey, body, emittedAt)
	if err != nil {
		return err
	}
	if metric, value, ok := metricObservation(ev); ok {
		if err := a.Detector.Evaluate(ctx, metric, value); err != nil {
			a.Logger.Warn().Err(err).Str("metric", metric).Msg("milestone evaluation failed")
		}
	}
	a.Pipeline.Process(ctx, ev)
	return nil
}

// metricObservation extracts the metric carried by an analytics.updated.*
// event: the metric name is the final routing-key segment, its value the
// matching entry of the payload's data object.
func metricObservation(ev event.DomainEvent) (string, float64, bool) {
	const prefix = "analytics.updated."
	if !strings.HasPrefix(ev.RoutingKey, prefix) {
		return "", 0, false
	}
	metric := strings.TrimPrefix(ev.RoutingKey, prefix)
	data, ok := ev.Payload["data"].(map[string]any)
	if !ok {
		return "", 0, false
	}
	if v, ok := data[metric].(float64); ok {
		return metric, v, true
	}
	// Single-entry data objects name the metric implicitly.
	if len(data) == 1 {
		for _, raw := range data {
			if v, ok := raw.(float64); ok {
				return metric, v, true
			}
		}
	}
	return "", 0, false
}
