package broker

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeOrders        = "orders.events"
	ExchangeAnalytics     = "analytics.events"
	ExchangeNotifications = "notifications.events"
	ExchangeDeadLetter    = "notifications.dlx"

	QueueOrders    = "notifications.orders"
	QueueAnalytics = "notifications.analytics"
	QueueAlerts    = "notifications.alerts"
	QueueFailed    = "notifications.failed"
)

type ExchangeSpec struct {
	Name string
	Kind string // topic or direct
}

type Binding struct {
	Exchange string
	Pattern  string
}

type QueueSpec struct {
	Name               string
	Bindings           []Binding
	DeadLetterExchange string
	MessageTTL         time.Duration
}

// Topology is the declarative routing graph: exchanges, queues, bindings,
// dead-lettering and per-queue TTL. Declaring it is idempotent, so every
// process start re-runs it.
type Topology struct {
	Exchanges []ExchangeSpec
	Queues    []QueueSpec
}

// DefaultTopology returns the routing graph the pipeline consumes from.
// Expired or rejected messages land on the dead-letter queue for manual
// inspection, never silently discarded. The analytics queue carries an extra
// *.milestone.achieved binding so derived milestone events re-enter the
// pipeline.
func DefaultTopology() Topology {
	return Topology{
		Exchanges: []ExchangeSpec{
			{Name: ExchangeOrders, Kind: "topic"},
			{Name: ExchangeAnalytics, Kind: "topic"},
			{Name: ExchangeNotifications, Kind: "topic"},
			{Name: ExchangeDeadLetter, Kind: "direct"},
		},
		Queues: []QueueSpec{
			{
				Name: QueueOrders,
				Bindings: []Binding{
					{Exchange: ExchangeOrders, Pattern: "orders.created"},
					{Exchange: ExchangeOrders, Pattern: "orders.cancelled"},
					{Exchange: ExchangeOrders, Pattern: "orders.updated"},
				},
				DeadLetterExchange: ExchangeDeadLetter,
				MessageTTL:         time.Hour,
			},
			{
				Name: QueueAnalytics,
				Bindings: []Binding{
					{Exchange: ExchangeAnalytics, Pattern: "analytics.updated.*"},
					{Exchange: ExchangeAnalytics, Pattern: "analytics.milestone.*"},
					{Exchange: ExchangeAnalytics, Pattern: "*.milestone.achieved"},
				},
				DeadLetterExchange: ExchangeDeadLetter,
				MessageTTL:         time.Hour,
			},
			{
				Name: QueueAlerts,
				Bindings: []Binding{
					{Exchange: ExchangeNotifications, Pattern: "inventory.low_stock"},
					{Exchange: ExchangeNotifications, Pattern: "system.alert.*"},
				},
				DeadLetterExchange: ExchangeDeadLetter,
				MessageTTL:         time.Hour,
			},
			{
				Name: QueueFailed,
				Bindings: []Binding{
					{Exchange: ExchangeDeadLetter, Pattern: ""},
				},
			},
		},
	}
}

// DeclareTopology materializes the routing graph on the broker. Declares are
// idempotent as long as the specs do not change for an existing name.
func (b *Broker) DeclareTopology(t Topology) error {
	for _, ex := range t.Exchanges {
		if err := b.ch.ExchangeDeclare(ex.Name, ex.Kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.Name, err)
		}
	}
	for _, q := range t.Queues {
		args := amqp.Table{}
		if q.DeadLetterExchange != "" {
			args["x-dead-letter-exchange"] = q.DeadLetterExchange
		}
		if q.MessageTTL > 0 {
			args["x-message-ttl"] = q.MessageTTL.Milliseconds()
		}
		if _, err := b.ch.QueueDeclare(q.Name, true, false, false, false, args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.Name, err)
		}
		for _, bind := range q.Bindings {
			if err := b.ch.QueueBind(q.Name, bind.Pattern, bind.Exchange, false, nil); err != nil {
				return fmt.Errorf("bind %s to %s (%s): %w", q.Name, bind.Exchange, bind.Pattern, err)
			}
		}
	}
	b.logger.Info().Int("exchanges", len(t.Exchanges)).Int("queues", len(t.Queues)).Msg("topology declared")
	return nil
}
