package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/rules"
)

// Mailer is the outbound mail transport. Email is the one channel allowed a
// synchronous network send; its failures are still contained by the fan-out.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RecipientResolver maps a user id to an email address, typically backed by
// the order store's user records.
type RecipientResolver interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

type EmailChannel struct {
	Mailer     Mailer
	Recipients RecipientResolver
	Logger     zerolog.Logger
}

func (c *EmailChannel) Name() rules.Channel { return rules.ChannelEmail }

func (c *EmailChannel) Deliver(ctx context.Context, n notify.Notification) error {
	to, err := c.recipient(ctx, n)
	if err != nil {
		return err
	}
	subject, body := renderEmail(n)

	op := backoff.NewExponentialBackOff()
	op.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return c.Mailer.Send(attemptCtx, to, subject, body)
	}, backoff.WithContext(op, ctx))
}

func (c *EmailChannel) recipient(ctx context.Context, n notify.Notification) (string, error) {
	if userID := stringField(n.Payload, "userId"); userID != "" && c.Recipients != nil {
		to, err := c.Recipients.EmailFor(ctx, userID)
		if err == nil && to != "" {
			return to, nil
		}
		if err != nil {
			c.Logger.Warn().Err(err).Str("user_id", userID).Msg("recipient lookup failed, falling back to payload")
		}
	}
	if to := stringField(n.Payload, "email"); to != "" {
		return to, nil
	}
	return "", errors.New("no email recipient for notification")
}

// renderEmail picks a per-type subject and body; unrecognized types fall
// back to a generic template carrying the raw payload.
func renderEmail(n notify.Notification) (subject, body string) {
	switch n.Type {
	case rules.TypeOrderConfirmation:
		orderID := stringField(n.Payload, "orderId")
		subject = fmt.Sprintf("Order Confirmation #%s", orderID)
		body = fmt.Sprintf("Thank you for your order #%s. Total: $%s %s.",
			orderID, amount(n.Payload["totalAmount"]), stringField(n.Payload, "currency"))
	case rules.TypeOrderCancelled:
		orderID := stringField(n.Payload, "orderId")
		subject = fmt.Sprintf("Order Cancelled #%s", orderID)
		body = fmt.Sprintf("Your order #%s has been cancelled.", orderID)
	case rules.TypeMilestone:
		subject = "Milestone Achieved"
		body = fmt.Sprintf("Revenue milestone reached: $%s (current: $%s).",
			amount(n.Payload["threshold"]), amount(n.Payload["currentValue"]))
	case rules.TypeLowStock:
		product := stringField(n.Payload, "productName")
		subject = fmt.Sprintf("Low Stock Alert: %s", product)
		body = fmt.Sprintf("Product %s is running low on stock. Severity: %s.",
			product, stringField(n.Payload, "severity"))
	default:
		subject = fmt.Sprintf("Notification: %s", n.Type)
		body = payloadDump(n.Payload)
	}
	return subject, body
}
