package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/priya/vachan/internal/store"
)

// ActionRecord is the wire shape of a logged action.
type ActionRecord struct {
	ActionID  int64  `json:"action_id"`
	PromiseID string `json:"promise_id"`
	Minutes   int    `json:"minutes"`
	Note      string `json:"note,omitempty"`
	At        string `json:"at,omitempty"`
}

// ---------------------------------------------------------------------------
// log_action

type LogActionTool struct {
	Store *store.Store
}

func NewLogActionTool(s *store.Store) *LogActionTool { return &LogActionTool{Store: s} }

func (t *LogActionTool) Name() string { return "log_action" }

func (t *LogActionTool) Description() string {
	return "Log time spent on a promise, in minutes."
}

func (t *LogActionTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"promise_id": map[string]any{
				"type":        "string",
				"description": "The promise id, e.g. P07.",
			},
			"minutes": map[string]any{
				"type":        "integer",
				"description": "Minutes spent.",
			},
			"note": map[string]any{
				"type":        "string",
				"description": "Optional note about the session.",
			},
		},
		"required": []string{"promise_id", "minutes"},
	}
}

func (t *LogActionTool) RequiredArgs() []string { return []string{"promise_id", "minutes"} }

func (t *LogActionTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	id, err := store.ParsePromiseID(stringArg(args, "promise_id"))
	if err != nil {
		return nil, err
	}
	minutes, ok := intArg(args, "minutes")
	if !ok || minutes <= 0 {
		return nil, fmt.Errorf("minutes must be a positive number")
	}
	a, err := t.Store.LogAction(chatID, id, minutes, stringArg(args, "note"))
	if err != nil {
		return nil, fmt.Errorf("failed to log action: %w", err)
	}
	return ActionRecord{
		ActionID:  a.ID,
		PromiseID: store.FormatPromiseID(a.PromiseID),
		Minutes:   a.Minutes,
		Note:      a.Note,
		At:        a.At.Format(time.RFC3339),
	}, nil
}

// ---------------------------------------------------------------------------
// get_latest_action

type GetLatestActionTool struct {
	Store *store.Store
}

func NewGetLatestActionTool(s *store.Store) *GetLatestActionTool {
	return &GetLatestActionTool{Store: s}
}

func (t *GetLatestActionTool) Name() string { return "get_latest_action" }

func (t *GetLatestActionTool) Description() string {
	return "Fetch the most recently logged action for a promise."
}

func (t *GetLatestActionTool) Parameters() map[string]any {
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

func (t *GetLatestActionTool) RequiredArgs() []string { return []string{"promise_id"} }

func (t *GetLatestActionTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	id, err := store.ParsePromiseID(stringArg(args, "promise_id"))
	if err != nil {
		return nil, err
	}
	a, err := t.Store.LatestAction(chatID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("No actions logged yet for %s.", store.FormatPromiseID(id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest action: %w", err)
	}
	return ActionRecord{
		ActionID:  a.ID,
		PromiseID: store.FormatPromiseID(a.PromiseID),
		Minutes:   a.Minutes,
		Note:      a.Note,
		At:        a.At.Format(time.RFC3339),
	}, nil
}
