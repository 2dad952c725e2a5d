package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/tmc/langchaingo/llms"

	"github.com/priya/vachan/internal/governance"
	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/tools"
)

// ToolCall is one resolved tool invocation request emitted by the executor.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// toolErrorPayload is the Tool-Result body recorded for any failure. It is
// surfaced to the responder as context, never shown raw to the user.
type toolErrorPayload struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
	Retried   bool   `json:"retried"`
}

// ToolRunner executes one tool call, classifies failures, and retries a
// transient failure exactly once per call id.
type ToolRunner struct {
	Registry *tools.Registry
	Policy   governance.PolicyEngine // optional
	Log      *observability.Logger
}

// Run executes the call and appends exactly one Tool-Result message. The
// step cursor advances regardless of success or failure: a surviving failure
// is the responder's problem, not grounds for looping.
func (r *ToolRunner) Run(ctx context.Context, st State, call ToolCall) State {
	next := st.Clone()
	observability.SetStatus(observability.RoleExecuting, call.Name)

	content := r.invoke(ctx, &next, call)
	if strings.TrimSpace(content) == "" {
		// Some model backends reject empty message parts.
		content = "{}"
	}

	next.Messages = append(next.Messages, llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{
			llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    content,
			},
		},
	})
	next.StepIdx++

	r.Log.LogToolResult(st.ChatID, call.ID, call.Name, looksLikeError(content))
	return next
}

func (r *ToolRunner) invoke(ctx context.Context, st *State, call ToolCall) string {
	tool := r.Registry.Get(call.Name)
	if tool == nil {
		return errorBody(fmt.Errorf("unknown tool %q", call.Name), false, false)
	}

	if r.Policy != nil {
		serialized, _ := json.Marshal(call.Args)
		verdict, err := r.Policy.Evaluate(ctx, governance.Request{
			Tool:      call.Name,
			Arguments: string(serialized),
			ChatID:    st.ChatID,
		})
		if err == nil && verdict.Effect == governance.EffectDeny {
			r.Log.Log(observability.Event{
				Type:   observability.EventTypePolicyCheck,
				ChatID: st.ChatID,
				Data:   map[string]string{"tool": call.Name, "reason": verdict.Reason},
			})
			return errorBody(errors.New(verdict.Reason), false, false)
		}
	}

	ctx = tools.WithChatID(ctx, st.ChatID)
	result, err := tool.Execute(ctx, call.Args)
	if err == nil {
		return serializeResult(result)
	}

	if !isTransient(err) {
		return errorBody(err, false, false)
	}
	if st.RetryCounts[call.ID] >= 1 {
		return errorBody(err, false, true)
	}

	// One immediate retry per call id.
	st.RetryCounts[call.ID] = 1
	result, err = tool.Execute(ctx, call.Args)
	if err == nil {
		return serializeResult(result)
	}
	return errorBody(err, false, true)
}

// isTransient classifies timeout, connection, and generic I/O failures as
// worth one retry. Everything else is permanent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "connection", "temporarily unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// serializeResult turns a tool return value into a non-empty Tool-Result
// body: structured data as JSON, scalars as text, nothing as an explicit
// empty object.
func serializeResult(v any) string {
	switch t := v.(type) {
	case nil:
		return "{}"
	case string:
		if strings.TrimSpace(t) == "" {
			return "{}"
		}
		return t
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

func errorBody(err error, retryable, retried bool) string {
	payload := toolErrorPayload{
		Error:     err.Error(),
		Retryable: retryable,
		Retried:   retried,
	}
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
