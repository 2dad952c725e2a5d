package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func newExecutor() (*Executor, *fakeResponder) {
	responder := &fakeResponder{reply: "all set"}
	return &Executor{
		Registry:  testRegistry(),
		Responder: responder,
	}, responder
}

func TestExecutorGatesAddPromise(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", nil)
	st.IntentConfidence = ConfidenceHigh
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "add_promise", ToolArgs: map[string]any{"promise_text": "Reading"}},
		{Kind: StepRespond},
	}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	require.NotNil(t, next.Pending)
	assert.Equal(t, ReasonPreMutationConfirm, next.Pending.Reason)
	assert.Equal(t, "add_promise", next.Pending.ToolName)
	assert.Equal(t, "Reading", next.Pending.ToolArgs["promise_text"])
	assert.Contains(t, next.FinalResponse, "Reading")
	assert.Equal(t, 0, next.StepIdx, "the gated step stays current until confirmed")
	assert.Equal(t, 0, next.Iteration)
}

func TestExecutorConfirmedGateEmitsToolCall(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", nil)
	st.IntentConfidence = ConfidenceHigh
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "add_promise", ToolArgs: map[string]any{"promise_text": "Reading"}},
	}

	gated, _ := exec.Step(context.Background(), st)
	confirmed := Confirm(gated)
	require.True(t, confirmed.Resume)
	require.True(t, confirmed.Pending.Confirmed)

	next, out := exec.Step(context.Background(), confirmed)

	require.Equal(t, OutcomeToolCall, out.Kind)
	assert.Equal(t, "add_promise", out.Call.Name)
	assert.Equal(t, "Reading", out.Call.Args["promise_text"])
	assert.NotEmpty(t, out.Call.ID)
	assert.Nil(t, next.Pending, "the satisfied gate is consumed")
	assert.Equal(t, 1, next.Iteration)

	// The call is recorded as an assistant message for the model to see.
	last := next.Messages[len(next.Messages)-1]
	assert.Equal(t, llms.ChatMessageTypeAI, last.Role)
	call, ok := last.Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, out.Call.ID, call.ID)
	assert.Equal(t, "add_promise", call.FunctionCall.Name)
}

func TestExecutorHighConfidenceMutationSkipsGate(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", nil)
	st.IntentConfidence = ConfidenceHigh
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "log_action", ToolArgs: map[string]any{"promise_id": "P01", "minutes": 30}},
	}

	_, out := exec.Step(context.Background(), st)

	require.Equal(t, OutcomeToolCall, out.Kind)
	assert.Equal(t, "log_action", out.Call.Name)
}

func TestExecutorLowConfidenceMutationGates(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", nil)
	st.IntentConfidence = ConfidenceLow
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "log_action", ToolArgs: map[string]any{"promise_id": "P01", "minutes": 30}},
	}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	require.NotNil(t, next.Pending)
	assert.Equal(t, ReasonPreMutationConfirm, next.Pending.Reason)
}

func TestExecutorReadToolNeverGates(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", nil)
	st.Plan.Steps = []Step{{Kind: StepTool, ToolName: "get_promises"}}

	next, out := exec.Step(context.Background(), st)

	require.Equal(t, OutcomeToolCall, out.Kind)
	assert.Nil(t, next.Pending)
}

func TestExecutorAskUserStep(t *testing.T) {
	exec, _ := newExecutor()
	clar := &Clarification{Reason: ReasonMissingRequiredArgs, Question: "Which promise is this about?"}
	st := NewState("chat", nil)
	st.Plan.Steps = []Step{{Kind: StepAskUser, Question: clar.Question, Clarify: clar}}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	assert.Equal(t, "Which promise is this about?", next.FinalResponse)
	require.NotNil(t, next.Pending)
	assert.Equal(t, ReasonMissingRequiredArgs, next.Pending.Reason)
	assert.Equal(t, 1, next.StepIdx)
}

func TestExecutorRespondStep(t *testing.T) {
	exec, responder := newExecutor()
	st := NewState("chat", nil)
	st.Plan.Steps = []Step{{Kind: StepRespond, ResponseHint: "Summarize the promises."}}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	assert.Equal(t, "all set", next.FinalResponse)
	require.Len(t, responder.hints, 1)
	assert.Contains(t, responder.hints[0], "Summarize the promises.")
}

func TestExecutorIterationBudgetForcesReply(t *testing.T) {
	exec, responder := newExecutor()
	st := NewState("chat", nil)
	st.Plan.Steps = []Step{{Kind: StepTool, ToolName: "get_promises"}}
	st.Iteration = st.MaxIterations

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	assert.Equal(t, "all set", next.FinalResponse)
	require.Len(t, responder.hints, 1)
	assert.Contains(t, responder.hints[0], "budget")
}

func TestExecutorUnresolvedPlaceholderPauses(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", nil)
	st.DetectedIntent = "log reading time"
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "log_action", ToolArgs: map[string]any{
			"promise_id": "FROM_TOOL:add_promise:promise_id",
			"minutes":    30,
		}},
	}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	require.NotNil(t, next.Pending)
	assert.Equal(t, ReasonUnresolvedPlaceholder, next.Pending.Reason)
	assert.Equal(t, "log reading time", next.Pending.DetectedIntent)
	assert.Equal(t, 0, next.StepIdx)
}

func TestExecutorAmbiguousSearchPauses(t *testing.T) {
	exec, _ := newExecutor()
	st := NewState("chat", []llms.MessageContent{
		toolResultMsg("c1", "search_promises",
			`{"matches": [
				{"promise_id": "P01", "promise_text": "Read fiction"},
				{"promise_id": "P02", "promise_text": "Read papers"}
			], "count": 2}`),
	})
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "delete_promise", ToolArgs: map[string]any{"promise_id": FromSearch}},
	}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	require.NotNil(t, next.Pending)
	assert.Equal(t, ReasonAmbiguousPromiseID, next.Pending.Reason)
	assert.Len(t, next.Pending.Options, 2)
}

func TestExecutorModeGuardrail(t *testing.T) {
	reg := testRegistry()
	exec := &Executor{
		Registry:  reg,
		Responder: &fakeResponder{},
		Modes:     DefaultModePolicy(reg),
	}
	st := NewState("chat", nil)
	st.Mode = ModeChat
	st.IntentConfidence = ConfidenceHigh
	st.Plan.Steps = []Step{
		{Kind: StepTool, ToolName: "log_action", ToolArgs: map[string]any{"promise_id": "P01", "minutes": 30}},
	}

	paused, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	require.NotNil(t, paused.Pending)
	assert.Equal(t, ReasonModeSwitch, paused.Pending.Reason)
	assert.Equal(t, 0, paused.StepIdx)

	// After the user agrees, the same step executes in track mode.
	agreed := AgreeModeSwitch(paused, ModeTrack)
	next, out := exec.Step(context.Background(), agreed)

	require.Equal(t, OutcomeToolCall, out.Kind)
	assert.Equal(t, "log_action", out.Call.Name)
	assert.Equal(t, ModeTrack, next.Mode)
}

func TestExecutorResponderFailureFallsBack(t *testing.T) {
	exec := &Executor{
		Registry:  testRegistry(),
		Responder: &fakeResponder{err: errors.New("model unavailable")},
	}
	st := NewState("chat", nil)
	st.Plan.Steps = []Step{{Kind: StepRespond}}

	next, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	assert.Equal(t, fallbackReply, next.FinalResponse)
}

func TestExecutorFailedToolResultShapesReply(t *testing.T) {
	exec, responder := newExecutor()
	st := NewState("chat", []llms.MessageContent{
		toolResultMsg("c1", "log_action", `{"error": "disk full", "retryable": false, "retried": true}`),
	})
	st.Plan.Steps = []Step{{Kind: StepRespond}}

	_, out := exec.Step(context.Background(), st)

	assert.Equal(t, OutcomeFinal, out.Kind)
	require.Len(t, responder.hints, 1)
	assert.Contains(t, responder.hints[0], "tool call failed")
}

func TestDescribeAction(t *testing.T) {
	assert.Contains(t, describeAction("add_promise", map[string]any{"promise_text": "Reading"}), `"Reading"`)
	assert.Contains(t, describeAction("delete_promise", map[string]any{"promise_id": "P01"}), "can't be undone")
	assert.Contains(t, describeAction("subscribe_template", map[string]any{"template_slug": "reading"}), "reading")
	assert.Contains(t, describeAction("log_action", map[string]any{"minutes": 30}), "log_action")
}
