package orchestrator

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/priya/vachan/internal/tools"
)

// fakeTool is a scriptable capability for tests.
type fakeTool struct {
	name     string
	required []string
	execute  func(ctx context.Context, args map[string]any) (any, error)
	calls    int
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake " + f.name }
func (f *fakeTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (f *fakeTool) RequiredArgs() []string      { return f.required }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	f.calls++
	if f.execute == nil {
		return "ok", nil
	}
	return f.execute(ctx, args)
}

// testRegistry mirrors the production tool set's names and required args.
func testRegistry() *tools.Registry {
	reg := tools.NewRegistry()
	for _, t := range []*fakeTool{
		{name: "get_promises"},
		{name: "search_promises", required: []string{"query"}},
		{name: "add_promise", required: []string{"promise_text"}},
		{name: "update_promise", required: []string{"promise_id"}},
		{name: "delete_promise", required: []string{"promise_id"}},
		{name: "log_action", required: []string{"promise_id", "minutes"}},
		{name: "get_latest_action", required: []string{"promise_id"}},
		{name: "list_templates"},
		{name: "subscribe_template", required: []string{"template_slug"}},
	} {
		reg.Register(t)
	}
	return reg
}

// fakeModel returns queued replies in order, then repeats the last one.
type fakeModel struct {
	replies []string
	idx     int
	calls   int
	err     error
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no scripted replies")
	}
	reply := m.replies[m.idx]
	if m.idx < len(m.replies)-1 {
		m.idx++
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// fakeResponder echoes a canned reply and records the hints it saw.
type fakeResponder struct {
	reply string
	hints []string
	err   error
}

func (r *fakeResponder) Respond(ctx context.Context, st State, hint string) (string, error) {
	r.hints = append(r.hints, hint)
	if r.err != nil {
		return "", r.err
	}
	if r.reply == "" {
		return "done", nil
	}
	return r.reply, nil
}

// toolResultMsg builds a Tool-Result message for history fixtures.
func toolResultMsg(callID, toolName, content string) llms.MessageContent {
	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{
			llms.ToolCallResponse{ToolCallID: callID, Name: toolName, Content: content},
		},
	}
}
