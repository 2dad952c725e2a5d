package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Placeholder syntax for tool arguments that defer to prior step output.
const (
	fromToolPrefix = "FROM_TOOL:"

	// FromSearch is the shorthand a promise identifier carries when a
	// preceding search step is expected to supply it.
	FromSearch = "FROM_SEARCH"
)

const (
	searchToolName = "search_promises"
	promiseIDArg   = "promise_id"
)

// maxCandidateOptions caps how many promise candidates an ambiguity
// clarification presents.
const maxCandidateOptions = 6

// ResolveArgs rewrites FROM_TOOL placeholders in args against the message
// history. It returns the resolved arguments, or a clarification when a
// placeholder cannot be resolved.
func ResolveArgs(msgs []llms.MessageContent, toolName string, args map[string]any) (map[string]any, *Clarification) {
	resolved := make(map[string]any, len(args))
	for k, v := range args {
		resolved[k] = v
	}

	for key, val := range resolved {
		str, ok := val.(string)
		if !ok || !strings.HasPrefix(str, fromToolPrefix) {
			continue
		}
		sourceTool, field, ok := parsePlaceholder(str)
		if !ok {
			return nil, unresolvedClarification(toolName, resolved, key)
		}
		resp, found := lastToolResult(msgs, sourceTool)
		if !found {
			return nil, unresolvedClarification(toolName, resolved, key)
		}

		var parsed map[string]any
		if err := json.Unmarshal([]byte(resp.Content), &parsed); err == nil {
			v, ok := parsed[field]
			if !ok {
				return nil, unresolvedClarification(toolName, resolved, key)
			}
			resolved[key] = stringify(v)
			continue
		}

		// Plain-text result: substitute the text wholesale, unless it is an
		// error payload.
		if looksLikeError(resp.Content) {
			return nil, unresolvedClarification(toolName, resolved, key)
		}
		resolved[key] = strings.TrimSpace(resp.Content)
	}

	return resolved, nil
}

// ResolveSearchRef substitutes a FROM_SEARCH promise identifier from the most
// recent search result. Exactly one match resolves; anything else pauses for
// the user to pick.
func ResolveSearchRef(msgs []llms.MessageContent, toolName string, args map[string]any) (map[string]any, *Clarification) {
	val, ok := args[promiseIDArg].(string)
	if !ok || val != FromSearch {
		return args, nil
	}

	resolved := make(map[string]any, len(args))
	for k, v := range args {
		resolved[k] = v
	}

	resp, found := lastToolResult(msgs, searchToolName)
	if !found {
		return nil, &Clarification{
			Reason:   ReasonAmbiguousPromiseID,
			ToolName: toolName,
			ToolArgs: resolved,
			Question: "Which promise do you mean? I couldn't find a matching one.",
		}
	}

	matches := parseSearchMatches(resp.Content)
	if len(matches) == 1 {
		resolved[promiseIDArg] = matches[0].ID
		return resolved, nil
	}

	var options []string
	for i, m := range matches {
		if i >= maxCandidateOptions {
			break
		}
		options = append(options, fmt.Sprintf("%s: %s", m.ID, m.Text))
	}

	question := "Which promise do you mean? I couldn't narrow it down."
	if len(options) > 0 {
		question = "Which of these promises do you mean?\n- " + strings.Join(options, "\n- ")
	}
	return nil, &Clarification{
		Reason:   ReasonAmbiguousPromiseID,
		ToolName: toolName,
		ToolArgs: resolved,
		Options:  options,
		Question: question,
	}
}

type searchMatch struct {
	ID   string
	Text string
}

// parseSearchMatches extracts promise candidates from a structured search
// result of the form {"matches": [{"promise_id": ..., "promise_text": ...}]}.
func parseSearchMatches(content string) []searchMatch {
	var payload struct {
		Matches []struct {
			PromiseID   string `json:"promise_id"`
			PromiseText string `json:"promise_text"`
		} `json:"matches"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil
	}
	var out []searchMatch
	for _, m := range payload.Matches {
		if m.PromiseID == "" {
			continue
		}
		out = append(out, searchMatch{ID: m.PromiseID, Text: m.PromiseText})
	}
	return out
}

func parsePlaceholder(s string) (tool, field string, ok bool) {
	rest := strings.TrimPrefix(s, fromToolPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func unresolvedClarification(toolName string, args map[string]any, argName string) *Clarification {
	return &Clarification{
		Reason:        ReasonUnresolvedPlaceholder,
		ToolName:      toolName,
		ToolArgs:      args,
		MissingFields: []string{argName},
		Question:      fmt.Sprintf("I couldn't work out the value for %q. Can you tell me directly?", argName),
	}
}

func looksLikeError(content string) bool {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "error") {
		return true
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Error != "" {
		return true
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers arrive as float64; keep integers clean.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
