package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestCloneIsolatesContainers(t *testing.T) {
	st := NewState("chat", []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
	})
	st.Plan.Steps = []Step{{Kind: StepRespond}}
	st.RetryCounts["c1"] = 1
	st.Pending = &Clarification{Reason: ReasonPreMutationConfirm}

	clone := st.Clone()
	clone.Messages = append(clone.Messages, llms.TextParts(llms.ChatMessageTypeAI, "hi"))
	clone.Plan.Steps[0].Kind = StepAskUser
	clone.RetryCounts["c2"] = 1
	clone.Pending.Confirmed = true

	assert.Len(t, st.Messages, 1)
	assert.Equal(t, StepRespond, st.Plan.Steps[0].Kind)
	assert.NotContains(t, st.RetryCounts, "c2")
	assert.False(t, st.Pending.Confirmed)
}

func TestWithHumanReplacesEmptyInput(t *testing.T) {
	st := NewState("chat", nil).WithHuman("   ")

	require.Len(t, st.Messages, 1)
	text, ok := st.Messages[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, "(empty message)", text.Text)
}

func TestConfirmOnlyAppliesToMutationGate(t *testing.T) {
	st := NewState("chat", nil)
	st.Pending = &Clarification{Reason: ReasonPreMutationConfirm, ToolName: "add_promise"}
	st.FinalResponse = "Shall I go ahead?"

	next := Confirm(st)

	require.NotNil(t, next.Pending)
	assert.True(t, next.Pending.Confirmed)
	assert.True(t, next.Resume)
	assert.Empty(t, next.FinalResponse)

	// Other clarification kinds feed a replan; Confirm leaves them alone.
	st.Pending = &Clarification{Reason: ReasonMissingRequiredArgs}
	next = Confirm(st)
	assert.False(t, next.Pending.Confirmed)
	assert.False(t, next.Resume)
}

func TestDeclineDiscardsPlan(t *testing.T) {
	st := NewState("chat", nil)
	st.Plan.Steps = []Step{{Kind: StepTool, ToolName: "add_promise"}}
	st.StepIdx = 1
	st.Pending = &Clarification{Reason: ReasonPreMutationConfirm}
	st.Resume = true

	next := Decline(st)

	assert.Nil(t, next.Pending)
	assert.Empty(t, next.Plan.Steps)
	assert.Zero(t, next.StepIdx)
	assert.False(t, next.Resume)
}

func TestAgreeModeSwitchResumes(t *testing.T) {
	st := NewState("chat", nil)
	st.Mode = ModeChat
	st.Pending = &Clarification{Reason: ReasonModeSwitch, ToolName: "log_action"}

	next := AgreeModeSwitch(st, ModeTrack)

	assert.Equal(t, ModeTrack, next.Mode)
	assert.Nil(t, next.Pending)
	assert.True(t, next.Resume)
}

func TestLastToolResultScansBackward(t *testing.T) {
	msgs := []llms.MessageContent{
		toolResultMsg("c1", "get_promises", "first"),
		llms.TextParts(llms.ChatMessageTypeAI, "working on it"),
		toolResultMsg("c2", "get_promises", "second"),
	}

	resp, ok := lastToolResult(msgs, "get_promises")
	require.True(t, ok)
	assert.Equal(t, "second", resp.Content)

	_, ok = lastToolResult(msgs, "add_promise")
	assert.False(t, ok)

	// Empty name matches any tool.
	resp, ok = lastToolResult(msgs, "")
	require.True(t, ok)
	assert.Equal(t, "c2", resp.ToolCallID)
}
