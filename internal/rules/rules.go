package rules

import "fmt"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelPush      Channel = "push"
	ChannelDashboard Channel = "dashboard"
	ChannelSlack     Channel = "slack"
)

const (
	TypeOrderConfirmation = "order_confirmation"
	TypeOrderCancelled    = "order_cancelled"
	TypeOrderUpdated      = "order_updated"
	TypeMilestone         = "milestone"
	TypeLowStock          = "low_stock"
	TypeSystemAlert       = "system_alert"
)

// Rule maps an event routing key to how it is surfaced to users. The table is
// static, process-wide configuration; keys are exact, wildcard matching
// happens only in the broker's bindings.
type Rule struct {
	Type     string
	Priority Priority
	Channels []Channel
}

var table = map[string]Rule{
	"orders.created": {
		Type:     TypeOrderConfirmation,
		Priority: PriorityHigh,
		Channels: []Channel{ChannelEmail, ChannelPush, ChannelDashboard},
	},
	"orders.cancelled": {
		Type:     TypeOrderCancelled,
		Priority: PriorityMedium,
		Channels: []Channel{ChannelEmail, ChannelDashboard},
	},
	"orders.updated": {
		Type:     TypeOrderUpdated,
		Priority: PriorityLow,
		Channels: []Channel{ChannelDashboard},
	},
	"revenue.milestone.achieved": {
		Type:     TypeMilestone,
		Priority: PriorityHigh,
		Channels: []Channel{ChannelEmail, ChannelSlack, ChannelDashboard},
	},
	"inventory.low_stock": {
		Type:     TypeLowStock,
		Priority: PriorityHigh,
		Channels: []Channel{ChannelEmail, ChannelSlack, ChannelDashboard},
	},
	"system.alert.critical": {
		Type:     TypeSystemAlert,
		Priority: PriorityHigh,
		Channels: []Channel{ChannelSlack, ChannelDashboard},
	},
}

func init() {
	for key, rule := range table {
		if len(rule.Channels) == 0 {
			panic(fmt.Sprintf("rule %s has no channels", key))
		}
	}
}

// RuleFor returns the rule for an exact routing key. A miss is a documented
// drop, not an error: the caller takes no further action.
func RuleFor(routingKey string) (Rule, bool) {
	r, ok := table[routingKey]
	return r, ok
}

// ChannelsFor narrows a rule's channel set for a specific event. Low-stock
// alerts escalate to email only at critical severity; every other type uses
// the rule's channels unchanged. The result is always a non-empty subset of
// the rule's configured channels and never aliases the table.
func ChannelsFor(r Rule, payload map[string]any) []Channel {
	channels := make([]Channel, 0, len(r.Channels))
	for _, ch := range r.Channels {
		if r.Type == TypeLowStock && ch == ChannelEmail {
			if severity, _ := payload["severity"].(string); severity != "critical" {
				continue
			}
		}
		channels = append(channels, ch)
	}
	return channels
}
