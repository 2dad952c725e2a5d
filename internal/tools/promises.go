package tools

import (
	"context"
	"fmt"

	"github.com/priya/vachan/internal/store"
)

// PromiseMatch is the wire shape every promise-returning tool uses. The
// orchestrator's placeholder resolver keys on these field names.
type PromiseMatch struct {
	PromiseID    string  `json:"promise_id"`
	PromiseText  string  `json:"promise_text"`
	HoursPerWeek float64 `json:"hours_per_week,omitempty"`
}

// SearchResult is the structured body of a search_promises result.
type SearchResult struct {
	Matches []PromiseMatch `json:"matches"`
	Count   int            `json:"count"`
}

func matchFromPromise(p store.Promise) PromiseMatch {
	return PromiseMatch{
		PromiseID:    p.PublicID(),
		PromiseText:  p.Text,
		HoursPerWeek: p.HoursPerWeek,
	}
}

func chatIDOrErr(ctx context.Context) (string, error) {
	id, ok := ChatID(ctx)
	if !ok || id == "" {
		return "", fmt.Errorf("missing chat id in context")
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// get_promises

type GetPromisesTool struct {
	Store *store.Store
}

func NewGetPromisesTool(s *store.Store) *GetPromisesTool { return &GetPromisesTool{Store: s} }

func (t *GetPromisesTool) Name() string { return "get_promises" }

func (t *GetPromisesTool) Description() string {
	return "List all of the user's promises (tracked goals and habits)."
}

func (t *GetPromisesTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *GetPromisesTool) RequiredArgs() []string { return nil }

func (t *GetPromisesTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	promises, err := t.Store.GetPromises(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list promises: %w", err)
	}
	matches := make([]PromiseMatch, 0, len(promises))
	for _, p := range promises {
		matches = append(matches, matchFromPromise(p))
	}
	return SearchResult{Matches: matches, Count: len(matches)}, nil
}

// ---------------------------------------------------------------------------
// search_promises

type SearchPromisesTool struct {
	Store *store.Store
}

func NewSearchPromisesTool(s *store.Store) *SearchPromisesTool { return &SearchPromisesTool{Store: s} }

func (t *SearchPromisesTool) Name() string { return "search_promises" }

func (t *SearchPromisesTool) Description() string {
	return "Search the user's promises by text and return matching promise ids."
}

func (t *SearchPromisesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Text to match against promise descriptions.",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchPromisesTool) RequiredArgs() []string { return []string{"query"} }

func (t *SearchPromisesTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	promises, err := t.Store.SearchPromises(chatID, stringArg(args, "query"))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	matches := make([]PromiseMatch, 0, len(promises))
	for _, p := range promises {
		matches = append(matches, matchFromPromise(p))
	}
	return SearchResult{Matches: matches, Count: len(matches)}, nil
}

// ---------------------------------------------------------------------------
// add_promise

type AddPromiseTool struct {
	Store *store.Store
}

func NewAddPromiseTool(s *store.Store) *AddPromiseTool { return &AddPromiseTool{Store: s} }

func (t *AddPromiseTool) Name() string { return "add_promise" }

func (t *AddPromiseTool) Description() string {
	return "Create a new promise (goal or habit) for the user."
}

func (t *AddPromiseTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"promise_text": map[string]any{
				"type":        "string",
				"description": "What the user is committing to.",
			},
			"hours_per_week": map[string]any{
				"type":        "number",
				"description": "Weekly time budget in hours (optional).",
			},
		},
		"required": []string{"promise_text"},
	}
}

func (t *AddPromiseTool) RequiredArgs() []string { return []string{"promise_text"} }

func (t *AddPromiseTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	hours, _ := floatArg(args, "hours_per_week")
	p, err := t.Store.AddPromise(chatID, stringArg(args, "promise_text"), hours)
	if err != nil {
		return nil, fmt.Errorf("failed to create promise: %w", err)
	}
	return matchFromPromise(p), nil
}

// ---------------------------------------------------------------------------
// update_promise

type UpdatePromiseTool struct {
	Store *store.Store
}

func NewUpdatePromiseTool(s *store.Store) *UpdatePromiseTool { return &UpdatePromiseTool{Store: s} }

func (t *UpdatePromiseTool) Name() string { return "update_promise" }

func (t *UpdatePromiseTool) Description() string {
	return "Change a promise's text or weekly time budget."
}

func (t *UpdatePromiseTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"promise_id": map[string]any{
				"type":        "string",
				"description": "The promise id, e.g. P07.",
			},
			"promise_text": map[string]any{
				"type":        "string",
				"description": "New text (optional).",
			},
			"hours_per_week": map[string]any{
				"type":        "number",
				"description": "New weekly budget in hours (optional).",
			},
		},
		"required": []string{"promise_id"},
	}
}

func (t *UpdatePromiseTool) RequiredArgs() []string { return []string{"promise_id"} }

func (t *UpdatePromiseTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	id, err := store.ParsePromiseID(stringArg(args, "promise_id"))
	if err != nil {
		return nil, err
	}
	hours, ok := floatArg(args, "hours_per_week")
	if !ok {
		if existing, gerr := t.Store.PromiseByID(chatID, id); gerr == nil {
			hours = existing.HoursPerWeek
		}
	}
	if err := t.Store.UpdatePromise(chatID, id, stringArg(args, "promise_text"), hours); err != nil {
		return nil, err
	}
	p, err := t.Store.PromiseByID(chatID, id)
	if err != nil {
		return nil, err
	}
	return matchFromPromise(p), nil
}

// ---------------------------------------------------------------------------
// delete_promise

type DeletePromiseTool struct {
	Store *store.Store
}

func NewDeletePromiseTool(s *store.Store) *DeletePromiseTool { return &DeletePromiseTool{Store: s} }

func (t *DeletePromiseTool) Name() string { return "delete_promise" }

func (t *DeletePromiseTool) Description() string {
	return "Delete a promise permanently."
}

func (t *DeletePromiseTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"promise_id": map[string]any{
				"type":        "string",
				"description": "The promise id, e.g. P07.",
			},
		},
		"required": []string{"promise_id"},
	}
}

func (t *DeletePromiseTool) RequiredArgs() []string { return []string{"promise_id"} }

func (t *DeletePromiseTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	id, err := store.ParsePromiseID(stringArg(args, "promise_id"))
	if err != nil {
		return nil, err
	}
	if err := t.Store.DeletePromise(chatID, id); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Deleted promise %s.", store.FormatPromiseID(id)), nil
}
