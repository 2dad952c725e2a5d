package orchestrator

import (
	"context"

	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/tools"
)

// Engine is the driver loop around the turn executor: plan once, then
// alternate executor invocations with tool runs until the turn produces a
// reply or a question. Single-threaded by design; the engine owns the state
// for the duration of one turn.
type Engine struct {
	Planner  *Planner
	Executor *Executor
	Runner   *ToolRunner
	Router   *Router // optional
	Log      *observability.Logger

	// EmitPlan turns on the structured plan diagnostic event. Observability
	// only; never required for correctness.
	EmitPlan bool
}

// ProcessTurn handles one user turn end to end and returns the mutated
// state. The caller displays FinalResponse and, when Pending is non-nil,
// routes the user's next message through Confirm or Decline first.
func (g *Engine) ProcessTurn(ctx context.Context, st State, input string) State {
	st = st.WithHuman(input)

	// A confirmed mutation or an agreed mode switch resumes the existing
	// plan at the gated step; everything else replans.
	resuming := st.Resume && st.StepIdx < len(st.Plan.Steps)
	st.Resume = false

	if !resuming {
		if g.Router != nil {
			st = g.Router.Route(ctx, st)
		}
		st = g.Planner.Plan(ctx, st, "")
		if st.FinalResponse != "" {
			// Direct no-tool answer from the planner.
			return st
		}

		steps, clarifies := ValidatePlan(st.Plan, g.Planner.Registry)
		st.Plan.Steps = steps
		g.emitPlan(st, clarifies)
	} else {
		st.FinalResponse = ""
	}

	for {
		var out Outcome
		st, out = g.Executor.Step(ctx, st)
		switch out.Kind {
		case OutcomeToolCall:
			st = g.Runner.Run(ctx, st, out.Call)
		case OutcomeFinal:
			return st
		}
	}
}

// emitPlan publishes one structured event describing each validated step:
// kind, tool name, and argument-key set, plus the clarification side-table
// keyed by original step index.
func (g *Engine) emitPlan(st State, clarifies map[int]Clarification) {
	if !g.EmitPlan {
		return
	}
	type stepEvent struct {
		Kind     StepKind `json:"kind"`
		ToolName string   `json:"tool_name,omitempty"`
		ArgKeys  []string `json:"arg_keys,omitempty"`
		Question string   `json:"question,omitempty"`
	}
	events := make([]stepEvent, 0, len(st.Plan.Steps))
	for _, s := range st.Plan.Steps {
		events = append(events, stepEvent{
			Kind:     s.Kind,
			ToolName: s.ToolName,
			ArgKeys:  argKeys(s.ToolArgs),
			Question: s.Question,
		})
	}
	reasons := make(map[int]ClarifyReason, len(clarifies))
	for idx, c := range clarifies {
		reasons[idx] = c.Reason
	}
	g.Log.Log(observability.Event{
		Type:   observability.EventTypePlan,
		ChatID: st.ChatID,
		Data: map[string]any{
			"steps":      events,
			"rewrites":   reasons,
			"intent":     st.DetectedIntent,
			"confidence": st.IntentConfidence,
			"mode":       st.Mode,
		},
	})
}

// NewEngine wires the orchestration engine in its default shape.
func NewEngine(planner *Planner, responder Responder, registry *tools.Registry, runner *ToolRunner, router *Router, log *observability.Logger, emitPlan bool) *Engine {
	var modes *ModePolicy
	if router != nil {
		modes = DefaultModePolicy(registry)
	}
	return &Engine{
		Planner: planner,
		Executor: &Executor{
			Registry:  registry,
			Responder: responder,
			Modes:     modes,
			Log:       log,
		},
		Runner:   runner,
		Router:   router,
		Log:      log,
		EmitPlan: emitPlan,
	}
}
