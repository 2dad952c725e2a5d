package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/priya/vachan/internal/tools"
)

// MaxPlanSteps caps a validated plan.
const MaxPlanSteps = 6

// Argument names the validator knows how to infer.
const (
	minutesArg = "minutes"

	// DefaultMinutes is the nominal value substituted when a plan omits the
	// time amount for a log step.
	DefaultMinutes = 30
)

// ValidatePlan repairs a raw plan against the tool registry. The returned
// clarification table is keyed by the *original* step index, for steps that
// were rewritten into questions. The transformation is pure: it never calls
// the model and never calls a tool.
func ValidatePlan(plan Plan, registry *tools.Registry) ([]Step, map[int]Clarification) {
	clarifies := make(map[int]Clarification)
	var repaired []Step

	for idx, step := range plan.Steps {
		switch step.Kind {
		case StepAskUser, StepRespond:
			repaired = append(repaired, step)

		case StepTool:
			out, clar := repairToolStep(step, repaired, registry, plan.DetectedIntent)
			if clar != nil {
				clarifies[idx] = *clar
			}
			repaired = append(repaired, out...)

		default:
			// The model invented a step kind; make the fallback explicit
			// rather than guessing at its intent.
			repaired = append(repaired, Step{
				Kind:         StepRespond,
				ResponseHint: "The plan contained a step I don't understand. Respond helpfully with what is known so far.",
			})
		}
	}

	repaired = appendVerificationSteps(repaired, registry)

	last := len(repaired) - 1
	if last < 0 || (repaired[last].Kind != StepAskUser && repaired[last].Kind != StepRespond) {
		repaired = append(repaired, Step{
			Kind:         StepRespond,
			ResponseHint: "Summarize what was done for the user.",
		})
	}

	if len(repaired) > MaxPlanSteps {
		repaired = repaired[:MaxPlanSteps]
	}
	return repaired, clarifies
}

// repairToolStep applies the per-step repair policy. It may return more than
// one step when a lookup is synthesized in front of the original.
func repairToolStep(step Step, repairedSoFar []Step, registry *tools.Registry, intent string) ([]Step, *Clarification) {
	if !registry.Has(step.ToolName) {
		clar := &Clarification{
			Reason:         ReasonUnknownTool,
			ToolName:       step.ToolName,
			ToolArgs:       step.ToolArgs,
			DetectedIntent: intent,
			Question:       fmt.Sprintf("I don't have a %q capability. What would you like me to do instead?", step.ToolName),
		}
		return []Step{askStep(clar)}, clar
	}

	if step.ToolArgs == nil {
		step.ToolArgs = map[string]any{}
	}

	// A search placeholder only holds up if a search step actually precedes
	// it in the repaired list; otherwise the identifier is as good as
	// missing.
	if v, ok := step.ToolArgs[promiseIDArg].(string); ok && v == FromSearch && !hasSearchStep(repairedSoFar) {
		delete(step.ToolArgs, promiseIDArg)
	}

	missing := missingRequiredArgs(step, registry)
	if len(missing) == 0 {
		return []Step{step}, nil
	}

	// (a) known defaults
	if contains(missing, minutesArg) {
		step.ToolArgs[minutesArg] = DefaultMinutes
		missing = remove(missing, minutesArg)
	}
	if len(missing) == 0 {
		return []Step{step}, nil
	}

	// (b) a lone missing promise identifier is resolvable by a lookup
	if len(missing) == 1 && missing[0] == promiseIDArg && registry.Has(searchToolName) {
		search := Step{
			Kind:     StepTool,
			ToolName: searchToolName,
			ToolArgs: map[string]any{"query": searchQuery(step, intent)},
		}
		step.ToolArgs[promiseIDArg] = FromSearch
		return []Step{search, step}, nil
	}

	// (c) ask the user
	clar := &Clarification{
		Reason:         ReasonMissingRequiredArgs,
		ToolName:       step.ToolName,
		ToolArgs:       step.ToolArgs,
		MissingFields:  missing,
		DetectedIntent: intent,
		Question:       questionForMissing(step.ToolName, missing),
	}
	return []Step{askStep(clar)}, clar
}

// appendVerificationSteps inserts a read-only lookup after every surviving
// mutation, so the reply can be grounded in post-write state. Deletes are
// exempt: the expected post-state is absence.
func appendVerificationSteps(steps []Step, registry *tools.Registry) []Step {
	var out []Step
	for _, step := range steps {
		out = append(out, step)
		if step.Kind != StepTool || !IsMutation(step.ToolName) {
			continue
		}
		if strings.HasPrefix(step.ToolName, "delete_") {
			continue
		}
		if verify, ok := verificationStep(step, registry); ok {
			out = append(out, verify)
		}
	}
	return out
}

// verificationStep picks the lookup by tool identity.
func verificationStep(step Step, registry *tools.Registry) (Step, bool) {
	switch step.ToolName {
	case "log_action":
		if registry.Has("get_latest_action") {
			args := map[string]any{}
			if pid, ok := step.ToolArgs[promiseIDArg]; ok {
				args[promiseIDArg] = pid
			}
			return Step{Kind: StepTool, ToolName: "get_latest_action", ToolArgs: args}, true
		}
	case "add_promise":
		if registry.Has(searchToolName) {
			query, _ := step.ToolArgs["promise_text"].(string)
			return Step{Kind: StepTool, ToolName: searchToolName, ToolArgs: map[string]any{"query": query}}, true
		}
	}
	if registry.Has("get_promises") {
		return Step{Kind: StepTool, ToolName: "get_promises", ToolArgs: map[string]any{}}, true
	}
	return Step{}, false
}

func askStep(clar *Clarification) Step {
	return Step{Kind: StepAskUser, Question: clar.Question, Clarify: clar}
}

func missingRequiredArgs(step Step, registry *tools.Registry) []string {
	tool := registry.Get(step.ToolName)
	if tool == nil {
		return nil
	}
	var missing []string
	for _, name := range tool.RequiredArgs() {
		v, ok := step.ToolArgs[name]
		if !ok || v == nil {
			missing = append(missing, name)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// questionForMissing has dedicated phrasing for the common field sets and a
// generic enumeration otherwise.
func questionForMissing(toolName string, missing []string) string {
	onlyPromise := len(missing) == 1 && missing[0] == promiseIDArg
	onlyMinutes := len(missing) == 1 && missing[0] == minutesArg
	both := len(missing) == 2 && contains(missing, promiseIDArg) && contains(missing, minutesArg)

	switch {
	case onlyPromise:
		return "Which promise or goal is this about?"
	case onlyMinutes:
		return "How much time should I log, in minutes?"
	case both:
		return "Which promise is this about, and how many minutes should I log?"
	default:
		return fmt.Sprintf("To run %s I still need: %s.", toolName, strings.Join(missing, ", "))
	}
}

// searchQuery guesses the lookup text for a synthesized search step from
// whatever the original step already carried.
func searchQuery(step Step, intent string) string {
	for _, key := range []string{"promise_text", "query", "text", "name"} {
		if v, ok := step.ToolArgs[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return intent
}

func hasSearchStep(steps []Step) bool {
	for _, s := range steps {
		if s.Kind == StepTool && s.ToolName == searchToolName {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	var out []string
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
