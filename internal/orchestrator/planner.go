package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/tools"
)

// Planner obtains a plan for the turn from the model. Parse failures never
// raise past this boundary: a fallback plan keeps the turn alive.
type Planner struct {
	Model        llms.Model
	SystemPrompt string
	Registry     *tools.Registry
	Log          *observability.Logger
}

// Plan invokes the model once over the message history and installs the
// parsed (or fallback) plan on the state. The step cursor and any previous
// pending clarification are reset.
func (p *Planner) Plan(ctx context.Context, st State, instruction string) State {
	next := st.Clone()
	next.StepIdx = 0
	next.Pending = nil
	next.FinalResponse = ""

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.systemPrompt(instruction)),
	}
	msgs = append(msgs, nonEmpty(next.Messages)...)

	resp, err := p.Model.GenerateContent(ctx, msgs)
	if err != nil || len(resp.Choices) == 0 {
		p.Log.Error(observability.Event{Type: observability.EventTypeParseError, ChatID: st.ChatID}, err)
		next.Plan = FallbackPlan()
		return next
	}

	raw := resp.Choices[0].Content
	plan, err := ParsePlan(raw)
	if err != nil {
		p.Log.Error(observability.Event{
			Type:   observability.EventTypeParseError,
			ChatID: st.ChatID,
			Data:   map[string]string{"reply": truncate(raw, 500)},
		}, err)
		next.Plan = FallbackPlan()
		return next
	}

	next.DetectedIntent = plan.DetectedIntent
	next.IntentConfidence = plan.IntentConfidence
	next.Safety = plan.Safety

	if plan.FinalAnswer != "" && len(plan.Steps) == 0 {
		// No-tool case: the plan itself is the reply.
		next.Plan = plan
		next.FinalResponse = plan.FinalAnswer
		return next
	}

	next.Plan = plan
	return next
}

func (p *Planner) systemPrompt(instruction string) string {
	var b strings.Builder
	b.WriteString(p.SystemPrompt)
	b.WriteString("\n\n## Available Tools\n")
	for _, name := range p.Registry.Names() {
		tool := p.Registry.Get(name)
		fmt.Fprintf(&b, "- %s: %s (required: %s)\n", name, tool.Description(), strings.Join(tool.RequiredArgs(), ", "))
	}
	if instruction != "" {
		b.WriteString("\n")
		b.WriteString(instruction)
	}
	return b.String()
}

// ModelResponder composes the final user-facing reply.
type ModelResponder struct {
	Model        llms.Model
	SystemPrompt string
	Log          *observability.Logger
}

func (r *ModelResponder) Respond(ctx context.Context, st State, hint string) (string, error) {
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, r.SystemPrompt),
	}
	msgs = append(msgs, nonEmpty(st.Messages)...)
	if strings.TrimSpace(hint) != "" {
		// Ephemeral instruction: sent to the model, never persisted.
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, hint))
	}

	resp, err := r.Model.GenerateContent(ctx, msgs)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("responder returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// nonEmpty filters out messages with no content parts; some model backends
// reject empty message parts outright.
func nonEmpty(msgs []llms.MessageContent) []llms.MessageContent {
	var out []llms.MessageContent
	for _, m := range msgs {
		if len(m.Parts) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
