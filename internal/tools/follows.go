package tools

import (
	"context"
	"fmt"

	"github.com/priya/vachan/internal/store"
)

// ---------------------------------------------------------------------------
// list_follows

type ListFollowsTool struct {
	Store *store.Store
}

func NewListFollowsTool(s *store.Store) *ListFollowsTool { return &ListFollowsTool{Store: s} }

func (t *ListFollowsTool) Name() string { return "list_follows" }

func (t *ListFollowsTool) Description() string {
	return "List the people the user follows for accountability."
}

func (t *ListFollowsTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ListFollowsTool) RequiredArgs() []string { return nil }

func (t *ListFollowsTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	follows, err := t.Store.ListFollows(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	names := make([]string, 0, len(follows))
	for _, f := range follows {
		names = append(names, f.Followee)
	}
	return map[string]any{"follows": names, "count": len(names)}, nil
}

// ---------------------------------------------------------------------------
// add_reminder

type AddReminderTool struct {
	Store *store.Store
}

func NewAddReminderTool(s *store.Store) *AddReminderTool { return &AddReminderTool{Store: s} }

func (t *AddReminderTool) Name() string { return "add_reminder" }

func (t *AddReminderTool) Description() string {
	return "Set a recurring reminder to check in on a promise."
}

func (t *AddReminderTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"promise_id": map[string]any{
				"type":        "string",
				"description": "The promise id, e.g. P07.",
			},
			"interval_seconds": map[string]any{
				"type":        "integer",
				"description": "Seconds between reminders. Defaults to daily.",
			},
		},
		"required": []string{"promise_id"},
	}
}

func (t *AddReminderTool) RequiredArgs() []string { return []string{"promise_id"} }

func (t *AddReminderTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	id, err := store.ParsePromiseID(stringArg(args, "promise_id"))
	if err != nil {
		return nil, err
	}
	interval, ok := intArg(args, "interval_seconds")
	if !ok || interval < 60 {
		interval = 24 * 60 * 60
	}
	r, err := t.Store.AddReminder(chatID, id, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to add reminder: %w", err)
	}
	return map[string]any{
		"reminder_id":      r.ID,
		"promise_id":       store.FormatPromiseID(r.PromiseID),
		"interval_seconds": r.IntervalSeconds,
	}, nil
}
