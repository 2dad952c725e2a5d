package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepKind is the closed set of plan step variants. Anything else the model
// invents is rewritten to a respond step during validation, explicitly.
type StepKind string

const (
	StepTool    StepKind = "tool"
	StepAskUser StepKind = "ask_user"
	StepRespond StepKind = "respond"
)

// Step is one entry of a plan.
type Step struct {
	Kind         StepKind       `json:"kind"`
	ToolName     string         `json:"tool_name,omitempty"`
	ToolArgs     map[string]any `json:"tool_args,omitempty"`
	Question     string         `json:"question,omitempty"`
	ResponseHint string         `json:"response_hint,omitempty"`

	// Clarify is attached by the validator when the step was rewritten into
	// an ask_user step; the executor copies it into the pending
	// clarification verbatim. Never serialized.
	Clarify *Clarification `json:"-"`
}

// Plan is the ordered step list produced by the planner for one turn, plus
// its advisory metadata.
type Plan struct {
	Steps            []Step     `json:"steps"`
	DetectedIntent   string     `json:"detected_intent,omitempty"`
	IntentConfidence Confidence `json:"intent_confidence,omitempty"`
	Safety           Safety     `json:"safety,omitempty"`

	// FinalAnswer short-circuits the turn when the model needs no tools.
	FinalAnswer string `json:"final_answer,omitempty"`
}

// ParsePlan parses a model reply into a Plan, tolerating a fenced code block
// wrapper and leading prose before the JSON object.
func ParsePlan(raw string) (Plan, error) {
	text := stripCodeFence(raw)

	// Models sometimes preface the object with a sentence; cut to the first
	// brace.
	if idx := strings.Index(text, "{"); idx > 0 {
		text = text[idx:]
	}

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return Plan{}, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if len(plan.Steps) == 0 && plan.FinalAnswer == "" {
		return Plan{}, fmt.Errorf("plan has no steps and no final answer")
	}
	return plan, nil
}

// FallbackPlan is substituted when the model reply could not be parsed. A
// single respond step with a clarification hint keeps the turn alive.
func FallbackPlan() Plan {
	return Plan{
		Steps: []Step{{
			Kind:         StepRespond,
			ResponseHint: "The request could not be planned. Ask the user to rephrase what they want to do with their promises.",
		}},
	}
}

func stripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop a language tag like "json" on the fence line.
	if nl := strings.Index(text, "\n"); nl >= 0 {
		first := strings.TrimSpace(text[:nl])
		if len(first) <= 10 && !strings.Contains(first, "{") {
			text = text[nl+1:]
		}
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
