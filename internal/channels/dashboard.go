package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/rules"
)

const (
	DashboardListKey  = "dashboard_notifications"
	DashboardPubSubCh = "dashboard_updates"

	dashboardTTL = 24 * time.Hour
)

// DashboardChannel keeps a recent-notifications list for the dashboard to
// render on load, and broadcasts each record live for web socket relays.
type DashboardChannel struct {
	List      ExpiringCappedList
	Broadcast Broadcaster
	Cap       int64
}

type dashboardRecord struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Priority  rules.Priority `json:"priority"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

func (c *DashboardChannel) Name() rules.Channel { return rules.ChannelDashboard }

func (c *DashboardChannel) Deliver(ctx context.Context, n notify.Notification) error {
	record := dashboardRecord{
		ID:        n.ID,
		Type:      n.Type,
		Message:   renderDashboard(n),
		Priority:  n.Priority,
		Payload:   n.Payload,
		Timestamp: n.CreatedAt,
		Read:      false,
	}
	if err := c.List.PushCappedTTL(ctx, DashboardListKey, record, c.Cap, dashboardTTL); err != nil {
		return err
	}
	return c.Broadcast.Broadcast(ctx, DashboardPubSubCh, map[string]any{
		"type": "notification",
		"data": record,
	})
}

func renderDashboard(n notify.Notification) string {
	switch n.Type {
	case rules.TypeOrderConfirmation:
		return fmt.Sprintf("New order received: #%s ($%s)",
			stringField(n.Payload, "orderId"), amount(n.Payload["totalAmount"]))
	case rules.TypeOrderCancelled:
		return fmt.Sprintf("Order cancelled: #%s", stringField(n.Payload, "orderId"))
	case rules.TypeOrderUpdated:
		return fmt.Sprintf("Order updated: #%s", stringField(n.Payload, "orderId"))
	case rules.TypeMilestone:
		return fmt.Sprintf("Revenue milestone achieved: $%s", amount(n.Payload["threshold"]))
	case rules.TypeLowStock:
		return fmt.Sprintf("Low stock: %s", stringField(n.Payload, "productName"))
	case rules.TypeSystemAlert:
		return fmt.Sprintf("System alert: %s", stringField(n.Payload, "message"))
	default:
		return fmt.Sprintf("%s: %s", n.Type, payloadDump(n.Payload))
	}
}
