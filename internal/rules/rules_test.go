package rules

import "testing"

func TestRuleFor(t *testing.T) {
	tests := []struct {
		key      string
		wantType string
		wantHit  bool
	}{
		{key: "orders.created", wantType: TypeOrderConfirmation, wantHit: true},
		{key: "orders.cancelled", wantType: TypeOrderCancelled, wantHit: true},
		{key: "orders.updated", wantType: TypeOrderUpdated, wantHit: true},
		{key: "revenue.milestone.achieved", wantType: TypeMilestone, wantHit: true},
		{key: "inventory.low_stock", wantType: TypeLowStock, wantHit: true},
		{key: "system.alert.critical", wantType: TypeSystemAlert, wantHit: true},
		{key: "orders.deleted", wantHit: false},
		{key: "analytics.updated.revenue", wantHit: false},
		{key: "", wantHit: false},
	}

	for _, tc := range tests {
		r, ok := RuleFor(tc.key)
		if ok != tc.wantHit {
			t.Fatalf("RuleFor(%q) hit=%v, expected %v", tc.key, ok, tc.wantHit)
		}
		if ok && r.Type != tc.wantType {
			t.Fatalf("RuleFor(%q) type=%s, expected %s", tc.key, r.Type, tc.wantType)
		}
	}
}

func TestEveryRuleHasChannels(t *testing.T) {
	for key, rule := range table {
		if len(rule.Channels) == 0 {
			t.Fatalf("rule %s has no channels", key)
		}
		if rule.Priority != PriorityLow && rule.Priority != PriorityMedium && rule.Priority != PriorityHigh {
			t.Fatalf("rule %s has invalid priority %q", key, rule.Priority)
		}
	}
}

func TestChannelsForLowStockEscalation(t *testing.T) {
	rule, ok := RuleFor("inventory.low_stock")
	if !ok {
		t.Fatalf("expected low stock rule")
	}

	critical := ChannelsFor(rule, map[string]any{"severity": "critical", "productName": "widget"})
	if !contains(critical, ChannelEmail) {
		t.Fatalf("critical severity should include email, got %v", critical)
	}

	warning := ChannelsFor(rule, map[string]any{"severity": "warning", "productName": "widget"})
	if contains(warning, ChannelEmail) {
		t.Fatalf("warning severity should not include email, got %v", warning)
	}
	if !contains(warning, ChannelSlack) || !contains(warning, ChannelDashboard) {
		t.Fatalf("warning severity should keep slack and dashboard, got %v", warning)
	}
}

func TestChannelsForIsSubsetAndNonEmpty(t *testing.T) {
	payloads := []map[string]any{
		{},
		{"severity": "critical"},
		{"severity": "warning"},
	}
	for key, rule := range table {
		for _, payload := range payloads {
			got := ChannelsFor(rule, payload)
			if len(got) == 0 {
				t.Fatalf("rule %s with payload %v produced no channels", key, payload)
			}
			for _, ch := range got {
				if !contains(rule.Channels, ch) {
					t.Fatalf("rule %s produced channel %s outside its configured set", key, ch)
				}
			}
		}
	}
}

func contains(channels []Channel, want Channel) bool {
	for _, ch := range channels {
		if ch == want {
			return true
		}
	}
	return false
}
