package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/tmc/langchaingo/llms"

	"github.com/priya/vachan/internal/observability"
)

// ModePolicy says which mutating tools each mode may reach. Reads are always
// allowed; this only guards writes.
type ModePolicy struct {
	// Allowed maps mode -> mutating tool names reachable in that mode. A
	// missing mode entry allows nothing mutating.
	Allowed map[Mode]map[string]bool
}

// DefaultModePolicy: track mode may mutate, chat mode may not.
func DefaultModePolicy(registry interface{ Names() []string }) *ModePolicy {
	track := make(map[string]bool)
	for _, name := range registry.Names() {
		if IsMutation(name) {
			track[name] = true
		}
	}
	return &ModePolicy{
		Allowed: map[Mode]map[string]bool{
			ModeTrack: track,
			ModeChat:  {},
		},
	}
}

// Allows reports whether the mode may execute the mutating tool. An unset
// mode (router not in use for this turn) does not block anything; the
// confirmation gate still applies.
func (p *ModePolicy) Allows(mode Mode, toolName string) bool {
	if mode == ModeNone {
		return true
	}
	allowed, ok := p.Allowed[mode]
	if !ok {
		return false
	}
	return allowed[toolName]
}

// Router classifies the turn into an operating mode before planning.
type Router struct {
	Model        llms.Model
	SystemPrompt string
	Log          *observability.Logger
}

type routeReply struct {
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Route sets mode, confidence, and reason on the state. A reply that cannot
// be parsed falls back to track mode with zero confidence; the confirmation
// gate still protects every mutation.
func (rt *Router) Route(ctx context.Context, st State) State {
	next := st.Clone()

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, rt.SystemPrompt),
	}
	msgs = append(msgs, nonEmpty(next.Messages)...)

	resp, err := rt.Model.GenerateContent(ctx, msgs)
	if err != nil || len(resp.Choices) == 0 {
		rt.Log.Error(observability.Event{Type: observability.EventTypeRoute, ChatID: st.ChatID}, err)
		next.Mode = ModeTrack
		next.RouteConfidence = 0
		next.RouteReason = "router call failed"
		return next
	}

	var reply routeReply
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Choices[0].Content)), &reply); err != nil {
		next.Mode = ModeTrack
		next.RouteConfidence = 0
		next.RouteReason = "unparseable route reply"
		return next
	}

	switch Mode(reply.Mode) {
	case ModeChat:
		next.Mode = ModeChat
	default:
		next.Mode = ModeTrack
	}
	next.RouteConfidence = reply.Confidence
	next.RouteReason = reply.Reason

	rt.Log.Log(observability.Event{
		Type:   observability.EventTypeRoute,
		ChatID: st.ChatID,
		Data: map[string]any{
			"mode":       next.Mode,
			"confidence": next.RouteConfidence,
			"reason":     next.RouteReason,
		},
	})
	return next
}
