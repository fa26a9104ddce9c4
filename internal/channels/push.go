package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/rules"
)

const PushListKey = "push_notifications"

type PushChannel struct {
	List CappedList
	Cap  int64
}

type pushRecord struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

func (c *PushChannel) Name() rules.Channel { return rules.ChannelPush }

func (c *PushChannel) Deliver(ctx context.Context, n notify.Notification) error {
	title, body := renderPush(n)
	return c.List.PushCapped(ctx, PushListKey, pushRecord{
		Title:     title,
		Body:      body,
		Payload:   n.Payload,
		Timestamp: n.CreatedAt,
	}, c.Cap)
}

func renderPush(n notify.Notification) (title, body string) {
	switch n.Type {
	case rules.TypeOrderConfirmation:
		title = "Order Confirmed!"
		body = fmt.Sprintf("Order #%s for $%s is confirmed.",
			stringField(n.Payload, "orderId"), amount(n.Payload["totalAmount"]))
	case rules.TypeOrderCancelled:
		title = "Order Cancelled"
		body = fmt.Sprintf("Order #%s was cancelled.", stringField(n.Payload, "orderId"))
	case rules.TypeMilestone:
		title = "Milestone Achieved!"
		body = fmt.Sprintf("Revenue crossed $%s.", amount(n.Payload["threshold"]))
	default:
		title = n.Type
		body = payloadDump(n.Payload)
	}
	return title, body
}
