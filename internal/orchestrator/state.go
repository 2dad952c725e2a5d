package orchestrator

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// DefaultMaxIterations bounds how many tool calls or step advances a single
// turn may consume before the executor forces a best-effort reply.
const DefaultMaxIterations = 6

// ClarifyReason says why execution paused for user input.
type ClarifyReason string

const (
	ReasonUnknownTool           ClarifyReason = "unknown_tool"
	ReasonMissingRequiredArgs   ClarifyReason = "missing_required_args"
	ReasonUnresolvedPlaceholder ClarifyReason = "unresolved_placeholder"
	ReasonAmbiguousPromiseID    ClarifyReason = "ambiguous_promise_id"
	ReasonPreMutationConfirm    ClarifyReason = "pre_mutation_confirmation"
	ReasonModeSwitch            ClarifyReason = "mode_switch"
)

// Confidence is the planner's self-reported intent confidence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = ""
)

// Safety carries the planner's advisory safety flags.
type Safety struct {
	RequiresConfirmation bool `json:"requires_confirmation"`
}

// Clarification describes a paused execution: what is needed from the user
// before the plan can resume.
type Clarification struct {
	Reason         ClarifyReason  `json:"reason"`
	ToolName       string         `json:"tool_name,omitempty"`
	ToolArgs       map[string]any `json:"tool_args,omitempty"`
	MissingFields  []string       `json:"missing_fields,omitempty"`
	Options        []string       `json:"options,omitempty"`
	DetectedIntent string         `json:"detected_intent,omitempty"`
	Question       string         `json:"question,omitempty"`

	// Confirmed is set by the Confirm transition once the user has approved
	// a pending mutation; the executor then passes the gate without asking
	// again.
	Confirmed bool `json:"confirmed,omitempty"`
}

// Mode is the operating mode chosen by the optional router.
type Mode string

const (
	ModeNone  Mode = ""
	ModeChat  Mode = "chat"
	ModeTrack Mode = "track"
)

// State is the conversation state for one turn-processing cycle. It is owned
// by the driver for the duration of the turn. Transitions never mutate a
// State in place; each one works on a clone and returns it.
type State struct {
	ChatID        string
	Messages      []llms.MessageContent
	Iteration     int
	MaxIterations int

	Plan    Plan
	StepIdx int

	FinalResponse string
	Pending       *Clarification

	// Resume is set by the Confirm and AgreeModeSwitch transitions: the
	// next turn re-enters the existing plan at the gated step instead of
	// replanning. The driver clears it.
	Resume bool

	// RetryCounts maps tool-call id to attempts so far (0 or 1). Used only
	// by the tool runner.
	RetryCounts map[string]int

	DetectedIntent   string
	IntentConfidence Confidence
	Safety           Safety

	Mode            Mode
	RouteConfidence float64
	RouteReason     string
}

// NewState seeds a fresh state for one turn.
func NewState(chatID string, history []llms.MessageContent) State {
	return State{
		ChatID:        chatID,
		Messages:      append([]llms.MessageContent(nil), history...),
		MaxIterations: DefaultMaxIterations,
		RetryCounts:   make(map[string]int),
	}
}

// Clone returns a state value whose containers are independent of the
// receiver's, so a transition can append and assign freely.
func (s State) Clone() State {
	next := s
	next.Messages = append([]llms.MessageContent(nil), s.Messages...)
	next.Plan.Steps = append([]Step(nil), s.Plan.Steps...)
	next.RetryCounts = make(map[string]int, len(s.RetryCounts))
	for k, v := range s.RetryCounts {
		next.RetryCounts[k] = v
	}
	if s.Pending != nil {
		p := *s.Pending
		next.Pending = &p
	}
	return next
}

// WithHuman appends a human message. Empty input is replaced by a marker so
// no message is ever sent to the model with empty content.
func (s State) WithHuman(text string) State {
	next := s.Clone()
	if strings.TrimSpace(text) == "" {
		text = "(empty message)"
	}
	next.Messages = append(next.Messages, llms.TextParts(llms.ChatMessageTypeHuman, text))
	return next
}

// Confirm marks the pending pre-mutation confirmation as approved. The next
// executor invocation re-enters the same step and passes the gate.
func Confirm(s State) State {
	next := s.Clone()
	if next.Pending != nil && next.Pending.Reason == ReasonPreMutationConfirm {
		next.Pending.Confirmed = true
		next.Resume = true
		next.FinalResponse = ""
	}
	return next
}

// Decline abandons the pending mutation: the plan is discarded so the next
// turn replans from scratch instead of re-offering the same step.
func Decline(s State) State {
	next := s.Clone()
	next.Pending = nil
	next.Plan = Plan{}
	next.StepIdx = 0
	next.Resume = false
	next.FinalResponse = ""
	return next
}

// AgreeModeSwitch moves the conversation into the requested mode so the
// guarded step can execute on re-invocation.
func AgreeModeSwitch(s State, mode Mode) State {
	next := s.Clone()
	next.Mode = mode
	next.Pending = nil
	next.Resume = true
	next.FinalResponse = ""
	return next
}

// lastToolResult returns the most recent tool-result content for the given
// tool name, scanning the history backward. An empty name matches any tool.
func lastToolResult(msgs []llms.MessageContent, toolName string) (llms.ToolCallResponse, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != llms.ChatMessageTypeTool {
			continue
		}
		for _, part := range msgs[i].Parts {
			resp, ok := part.(llms.ToolCallResponse)
			if !ok {
				continue
			}
			if toolName == "" || resp.Name == toolName {
				return resp, true
			}
		}
	}
	return llms.ToolCallResponse{}, false
}

// lastToolResultFailed reports whether the most recent tool result carries an
// error payload.
func lastToolResultFailed(msgs []llms.MessageContent) bool {
	resp, ok := lastToolResult(msgs, "")
	if !ok {
		return false
	}
	return looksLikeError(resp.Content)
}
