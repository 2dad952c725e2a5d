package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/tools"
)

// OutcomeKind says what the driver should do after one executor invocation.
type OutcomeKind int

const (
	// OutcomeFinal means final_response is set and the turn is over.
	OutcomeFinal OutcomeKind = iota
	// OutcomeToolCall means a tool call is pending; route it to the runner,
	// then re-invoke the executor.
	OutcomeToolCall
)

// Outcome is the executor's report to the driver.
type Outcome struct {
	Kind OutcomeKind
	Call ToolCall
}

// Responder produces the user-facing reply from the accumulated messages.
type Responder interface {
	Respond(ctx context.Context, st State, hint string) (string, error)
}

// fallbackReply covers the case where even the responder call fails; nothing
// escapes the executor as an error.
const fallbackReply = "I'm having trouble putting an answer together right now. Could you try again in a moment?"

// Executor is the per-invocation state machine that walks a validated plan.
type Executor struct {
	Registry  *tools.Registry
	Responder Responder
	Modes     *ModePolicy // nil disables the mode guardrail
	Log       *observability.Logger
}

// Step advances the turn by one state-machine transition. The input state is
// never mutated; the successor state is returned alongside the outcome.
func (e *Executor) Step(ctx context.Context, st State) (State, Outcome) {
	next := st.Clone()

	// Terminal checks first.
	if next.FinalResponse != "" {
		return next, Outcome{Kind: OutcomeFinal}
	}
	if next.Iteration >= next.MaxIterations {
		return e.finalize(ctx, next, "The step budget for this request is exhausted. Give the best answer possible from what has been gathered so far.")
	}
	if next.StepIdx >= len(next.Plan.Steps) {
		return e.finalize(ctx, next, "")
	}

	step := next.Plan.Steps[next.StepIdx]
	switch step.Kind {
	case StepAskUser:
		return e.askUser(next, step)
	case StepRespond:
		next.StepIdx++
		next.Iteration++
		return e.finalize(ctx, next, step.ResponseHint)
	case StepTool:
		return e.toolStep(ctx, next, step)
	default:
		// Validation rewrites unknown kinds; reaching here means the plan
		// bypassed validation. Skip the step rather than guess.
		next.StepIdx++
		next.Iteration++
		return e.finalize(ctx, next, "")
	}
}

func (e *Executor) askUser(st State, step Step) (State, Outcome) {
	st.FinalResponse = step.Question
	if step.Clarify != nil {
		clar := *step.Clarify
		st.Pending = &clar
	}
	st.StepIdx++
	st.Iteration++
	return st, Outcome{Kind: OutcomeFinal}
}

func (e *Executor) toolStep(ctx context.Context, st State, step Step) (State, Outcome) {
	resolved, clar := ResolveArgs(st.Messages, step.ToolName, step.ToolArgs)
	if clar == nil {
		resolved, clar = ResolveSearchRef(st.Messages, step.ToolName, resolved)
	}
	if clar != nil {
		// Do not advance past this step; the user's answer feeds a replan.
		clar.DetectedIntent = st.DetectedIntent
		st.Pending = clar
		st.FinalResponse = clar.Question
		return st, Outcome{Kind: OutcomeFinal}
	}

	if e.Modes != nil && IsMutation(step.ToolName) && !e.Modes.Allows(st.Mode, step.ToolName) {
		st.Pending = &Clarification{
			Reason:   ReasonModeSwitch,
			ToolName: step.ToolName,
			ToolArgs: resolved,
			Question: fmt.Sprintf("We're in %s mode, which doesn't change anything. Switch to track mode so I can run %s?", st.Mode, step.ToolName),
		}
		st.FinalResponse = st.Pending.Question
		return st, Outcome{Kind: OutcomeFinal}
	}

	if confirmed := st.Pending; confirmed != nil &&
		confirmed.Reason == ReasonPreMutationConfirm &&
		confirmed.Confirmed &&
		confirmed.ToolName == step.ToolName {
		// Gate already satisfied for this step.
		st.Pending = nil
	} else if NeedsConfirmation(step.ToolName, IsMutation(step.ToolName), st.IntentConfidence, st.Safety.RequiresConfirmation) {
		st.Pending = &Clarification{
			Reason:         ReasonPreMutationConfirm,
			ToolName:       step.ToolName,
			ToolArgs:       resolved,
			DetectedIntent: st.DetectedIntent,
			Question:       describeAction(step.ToolName, resolved),
		}
		st.FinalResponse = st.Pending.Question
		// step_idx stays put: after the user confirms, this same step
		// re-enters with its placeholders already resolved.
		return st, Outcome{Kind: OutcomeFinal}
	}

	call := ToolCall{
		ID:   uuid.NewString(),
		Name: step.ToolName,
		Args: resolved,
	}
	args, _ := json.Marshal(resolved)
	st.Messages = append(st.Messages, llms.MessageContent{
		Role: llms.ChatMessageTypeAI,
		Parts: []llms.ContentPart{
			llms.ToolCall{
				ID:   call.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      call.Name,
					Arguments: string(args),
				},
			},
		},
	})
	st.Iteration++

	e.Log.LogToolCall(st.ChatID, call.ID, call.Name, argKeys(resolved))
	return st, Outcome{Kind: OutcomeToolCall, Call: call}
}

// finalize produces the user-facing reply through the responder, folding in
// tool-failure framing when the trailing result is an error payload.
func (e *Executor) finalize(ctx context.Context, st State, hint string) (State, Outcome) {
	var parts []string
	if hint != "" {
		parts = append(parts, hint)
	}
	parts = append(parts, "Keep the reply short, warm, and conversational. No markdown headers.")
	if st.DetectedIntent != "" {
		parts = append(parts, fmt.Sprintf("The detected intent was %q; if the conversation suggests the user wanted something else, say so and ask.", st.DetectedIntent))
	}
	if lastToolResultFailed(st.Messages) {
		parts = append(parts, "A tool call failed. Be reassuring, explain in plain words, and suggest trying again if that could help.")
	}

	reply, err := e.Responder.Respond(ctx, st, strings.Join(parts, " "))
	if err != nil || strings.TrimSpace(reply) == "" {
		e.Log.Error(observability.Event{Type: observability.EventTypeLLM, ChatID: st.ChatID}, err)
		reply = fallbackReply
	}
	st.FinalResponse = reply
	return st, Outcome{Kind: OutcomeFinal}
}

// describeAction renders the pending mutation in plain words for the
// confirmation question.
func describeAction(toolName string, args map[string]any) string {
	switch toolName {
	case "add_promise":
		if text, ok := args["promise_text"].(string); ok && text != "" {
			return fmt.Sprintf("I'm about to create the promise %q. Shall I go ahead?", text)
		}
		return "I'm about to create a new promise. Shall I go ahead?"
	case "subscribe_template":
		if slug, ok := args["template_slug"].(string); ok && slug != "" {
			return fmt.Sprintf("I'm about to subscribe you to the %q template. Shall I go ahead?", slug)
		}
		return "I'm about to subscribe you to a promise template. Shall I go ahead?"
	case "delete_promise":
		return fmt.Sprintf("I'm about to delete promise %v. This can't be undone. Shall I go ahead?", args[promiseIDArg])
	}

	var kv []string
	for _, k := range argKeys(args) {
		kv = append(kv, fmt.Sprintf("%s=%v", k, args[k]))
	}
	if len(kv) == 0 {
		return fmt.Sprintf("I'm about to run %s. Shall I go ahead?", toolName)
	}
	return fmt.Sprintf("I'm about to run %s (%s). Shall I go ahead?", toolName, strings.Join(kv, ", "))
}

func argKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
