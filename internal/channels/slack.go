package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/rules"
)

const SlackQueueKey = "slack_notifications"

// SlackChannel shapes a chat message and queues it for the external webhook
// sender; no network call happens inline.
type SlackChannel struct {
	Queue Queue
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
	QueuedAt    time.Time         `json:"queued_at"`
}

type slackAttachment struct {
	Color string `json:"color"`
	Text  string `json:"text"`
}

func (c *SlackChannel) Name() rules.Channel { return rules.ChannelSlack }

func (c *SlackChannel) Deliver(ctx context.Context, n notify.Notification) error {
	return c.Queue.Enqueue(ctx, SlackQueueKey, slackMessage{
		Text: fmt.Sprintf(":bell: %s", renderDashboard(n)),
		Attachments: []slackAttachment{
			{Color: colorFor(n.Priority), Text: payloadDump(n.Payload)},
		},
		QueuedAt: n.CreatedAt,
	})
}

func colorFor(p rules.Priority) string {
	switch p {
	case rules.PriorityHigh:
		return "danger"
	case rules.PriorityMedium:
		return "warning"
	default:
		return "good"
	}
}
