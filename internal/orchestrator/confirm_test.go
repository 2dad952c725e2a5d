package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMutation(t *testing.T) {
	cases := map[string]bool{
		"add_promise":        true,
		"create_reminder":    true,
		"update_promise":     true,
		"delete_promise":     true,
		"log_action":         true,
		"get_promises":       false,
		"search_promises":    false,
		"list_templates":     false,
		"subscribe_template": false, // gated by the always-confirm list instead
	}
	for name, want := range cases {
		assert.Equal(t, want, IsMutation(name), name)
	}
}

func TestNeedsConfirmation(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		mutation   bool
		confidence Confidence
		safety     bool
		want       bool
	}{
		{"add_promise always confirms", "add_promise", true, ConfidenceHigh, false, true},
		{"subscribe_template always confirms", "subscribe_template", false, ConfidenceHigh, false, true},
		{"read never confirms", "get_promises", false, ConfidenceLow, false, false},
		{"high confidence mutation skips", "log_action", true, ConfidenceHigh, false, false},
		{"medium confidence mutation confirms", "log_action", true, ConfidenceMedium, false, true},
		{"low confidence mutation confirms", "update_promise", true, ConfidenceLow, false, true},
		{"missing confidence mutation confirms", "update_promise", true, ConfidenceNone, false, true},
		{"safety flag overrides confidence", "log_action", true, ConfidenceHigh, true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NeedsConfirmation(tc.tool, tc.mutation, tc.confidence, tc.safety)
			assert.Equal(t, tc.want, got)
		})
	}
}
