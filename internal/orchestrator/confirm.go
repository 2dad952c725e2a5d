package orchestrator

import "strings"

// mutationPrefixes mark tools whose name implies a write.
var mutationPrefixes = []string{"add_", "create_", "update_", "delete_", "log_"}

// alwaysConfirm lists tools that require explicit user confirmation no
// matter how confident the planner claims to be.
var alwaysConfirm = map[string]bool{
	"add_promise":        true,
	"subscribe_template": true,
}

// IsMutation reports whether a tool name implies a write.
func IsMutation(toolName string) bool {
	for _, p := range mutationPrefixes {
		if strings.HasPrefix(toolName, p) {
			return true
		}
	}
	return false
}

// NeedsConfirmation decides whether a tool call must be gated behind an
// explicit user confirmation. Total and side-effect-free.
func NeedsConfirmation(toolName string, isMutation bool, confidence Confidence, safetyRequires bool) bool {
	if alwaysConfirm[toolName] {
		return true
	}
	if !isMutation {
		return false
	}
	if confidence == ConfidenceHigh && !safetyRequires {
		return false
	}
	return true
}
