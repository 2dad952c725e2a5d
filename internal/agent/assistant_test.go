package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/priya/vachan/internal/orchestrator"
	"github.com/priya/vachan/internal/store"
	"github.com/priya/vachan/internal/tools"
)

type scriptedModel struct {
	replies []string
	idx     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no scripted replies")
	}
	reply := m.replies[m.idx]
	if m.idx < len(m.replies)-1 {
		m.idx++
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type cannedResponder struct{ reply string }

func (r *cannedResponder) Respond(ctx context.Context, st orchestrator.State, hint string) (string, error) {
	return r.reply, nil
}

func newTestAssistant(t *testing.T, planner *scriptedModel, reply string) (*Assistant, *store.Store) {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := tools.NewRegistry()
	reg.Register(tools.NewGetPromisesTool(db))
	reg.Register(tools.NewSearchPromisesTool(db))
	reg.Register(tools.NewAddPromiseTool(db))
	reg.Register(tools.NewLogActionTool(db))
	reg.Register(tools.NewGetLatestActionTool(db))

	engine := orchestrator.NewEngine(
		&orchestrator.Planner{Model: planner, SystemPrompt: "plan", Registry: reg},
		&cannedResponder{reply: reply},
		reg,
		&orchestrator.ToolRunner{Registry: reg},
		nil,
		nil,
		false,
	)
	return NewAssistant(engine, db, 0), db
}

func TestAssistantSmallTalk(t *testing.T) {
	model := &scriptedModel{replies: []string{`{"final_answer": "Hello! How is the reading going?"}`}}
	assistant, db := newTestAssistant(t, model, "")

	reply, err := assistant.Think(context.Background(), "chat1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How is the reading going?", reply)

	// Both sides of the exchange are persisted.
	history, err := db.GetHistory("chat1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAssistantConfirmationAcrossTurns(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"steps": [
			{"kind": "tool", "tool_name": "add_promise", "tool_args": {"promise_text": "Reading"}}
		], "intent_confidence": "high"}`,
	}}
	assistant, db := newTestAssistant(t, model, "Your reading promise is saved.")

	reply, err := assistant.Think(context.Background(), "chat1", "promise to read daily")
	require.NoError(t, err)
	assert.Contains(t, reply, "Reading")

	// Nothing written before the user says yes.
	promises, err := db.GetPromises("chat1")
	require.NoError(t, err)
	assert.Empty(t, promises)

	reply, err = assistant.Think(context.Background(), "chat1", "yes")
	require.NoError(t, err)
	assert.Equal(t, "Your reading promise is saved.", reply)

	promises, err = db.GetPromises("chat1")
	require.NoError(t, err)
	require.Len(t, promises, 1)
	assert.Equal(t, "Reading", promises[0].Text)
}

func TestAssistantDeclineDiscardsMutation(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"steps": [
			{"kind": "tool", "tool_name": "add_promise", "tool_args": {"promise_text": "Reading"}}
		], "intent_confidence": "high"}`,
		`{"final_answer": "Okay, I won't save it."}`,
	}}
	assistant, db := newTestAssistant(t, model, "")

	_, err := assistant.Think(context.Background(), "chat1", "promise to read daily")
	require.NoError(t, err)

	reply, err := assistant.Think(context.Background(), "chat1", "no, never mind")
	require.NoError(t, err)
	assert.Equal(t, "Okay, I won't save it.", reply)

	promises, err := db.GetPromises("chat1")
	require.NoError(t, err)
	assert.Empty(t, promises)
}

func TestIsAffirmative(t *testing.T) {
	for _, yes := range []string{"yes", "Yes!", " y ", "go ahead", "haan", "OK"} {
		assert.True(t, isAffirmative(yes), yes)
	}
	for _, no := range []string{"no", "not yet", "yes but call it something else", "maybe"} {
		assert.False(t, isAffirmative(no), no)
	}
}
