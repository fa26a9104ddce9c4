package broker

import (
	"testing"
	"time"
)

func TestDefaultTopology(t *testing.T) {
	topo := DefaultTopology()

	kinds := map[string]string{}
	for _, ex := range topo.Exchanges {
		kinds[ex.Name] = ex.Kind
	}
	for _, name := range []string{ExchangeOrders, ExchangeAnalytics, ExchangeNotifications} {
		if kinds[name] != "topic" {
			t.Fatalf("exchange %s kind = %q, expected topic", name, kinds[name])
		}
	}
	if kinds[ExchangeDeadLetter] != "direct" {
		t.Fatalf("dead-letter exchange kind = %q, expected direct", kinds[ExchangeDeadLetter])
	}

	queues := map[string]QueueSpec{}
	for _, q := range topo.Queues {
		queues[q.Name] = q
	}

	for _, name := range []string{QueueOrders, QueueAnalytics, QueueAlerts} {
		q, ok := queues[name]
		if !ok {
			t.Fatalf("queue %s missing from topology", name)
		}
		if q.DeadLetterExchange != ExchangeDeadLetter {
			t.Fatalf("queue %s dead-letter exchange = %q", name, q.DeadLetterExchange)
		}
		if q.MessageTTL != time.Hour {
			t.Fatalf("queue %s ttl = %v, expected 1h", name, q.MessageTTL)
		}
		if len(q.Bindings) == 0 {
			t.Fatalf("queue %s has no bindings", name)
		}
	}

	failed, ok := queues[QueueFailed]
	if !ok {
		t.Fatalf("dead-letter queue missing from topology")
	}
	if failed.DeadLetterExchange != "" || failed.MessageTTL != 0 {
		t.Fatalf("dead-letter queue must not itself dead-letter or expire: %+v", failed)
	}
	if len(failed.Bindings) != 1 || failed.Bindings[0].Exchange != ExchangeDeadLetter || failed.Bindings[0].Pattern != "" {
		t.Fatalf("dead-letter queue bindings = %+v", failed.Bindings)
	}

	hasBinding := func(q QueueSpec, exchange, pattern string) bool {
		for _, b := range q.Bindings {
			if b.Exchange == exchange && b.Pattern == pattern {
				return true
			}
		}
		return false
	}
	if !hasBinding(queues[QueueOrders], ExchangeOrders, "orders.created") {
		t.Fatalf("orders queue missing orders.created binding")
	}
	if !hasBinding(queues[QueueAnalytics], ExchangeAnalytics, "analytics.updated.*") {
		t.Fatalf("analytics queue missing analytics.updated.* binding")
	}
	if !hasBinding(queues[QueueAnalytics], ExchangeAnalytics, "*.milestone.achieved") {
		t.Fatalf("analytics queue missing milestone re-entry binding")
	}
	if !hasBinding(queues[QueueAlerts], ExchangeNotifications, "system.alert.*") {
		t.Fatalf("alerts queue missing system.alert.* binding")
	}
}
