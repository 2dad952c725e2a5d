package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/orchestrator"
	"github.com/priya/vachan/internal/store"
)

// Brain defines the core intelligence interface for the assistant.
type Brain interface {
	Think(ctx context.Context, chatID string, input string) (string, error)
}

// historyDepth is how many stored messages seed a fresh turn.
const historyDepth = 20

// Assistant adapts the orchestration engine to the gateway's Brain
// interface. It owns the per-chat trailing state: message history lives in
// the store, the pending clarification in memory.
type Assistant struct {
	Engine        *orchestrator.Engine
	Store         *store.Store
	MaxIterations int

	mu       sync.Mutex
	sessions map[string]orchestrator.State
}

func NewAssistant(engine *orchestrator.Engine, st *store.Store, maxIterations int) *Assistant {
	if maxIterations <= 0 {
		maxIterations = orchestrator.DefaultMaxIterations
	}
	return &Assistant{
		Engine:        engine,
		Store:         st,
		MaxIterations: maxIterations,
		sessions:      make(map[string]orchestrator.State),
	}
}

// Think processes one user turn. A pending confirmation from the previous
// turn is resolved first: an affirmative answer resumes the gated step, and
// anything else discards the plan and replans from the user's words.
func (a *Assistant) Think(ctx context.Context, chatID string, input string) (string, error) {
	a.mu.Lock()
	st, ok := a.sessions[chatID]
	a.mu.Unlock()

	if !ok {
		history, err := a.Store.GetHistory(chatID, historyDepth)
		if err != nil {
			return "", err
		}
		st = orchestrator.NewState(chatID, history)
		st.MaxIterations = a.MaxIterations
	} else {
		// Fresh budget per turn; the trailing fields carry over.
		st.Iteration = 0
	}

	if st.Pending != nil {
		switch st.Pending.Reason {
		case orchestrator.ReasonPreMutationConfirm:
			if isAffirmative(input) {
				st = orchestrator.Confirm(st)
			} else {
				st = orchestrator.Decline(st)
			}
		case orchestrator.ReasonModeSwitch:
			if isAffirmative(input) {
				st = orchestrator.AgreeModeSwitch(st, orchestrator.ModeTrack)
			} else {
				st = orchestrator.Decline(st)
			}
		}
	}

	observability.SetStatus(observability.RolePlanning, input)
	st = a.Engine.ProcessTurn(ctx, st, input)
	if st.Pending != nil {
		observability.SetStatus(observability.RoleAwaiting, st.Pending.Question)
	} else {
		observability.SetStatus(observability.RoleIdle, "")
	}

	_ = a.Store.AddMessage(chatID, "human", input)
	if st.FinalResponse != "" {
		_ = a.Store.AddMessage(chatID, "ai", st.FinalResponse)
	}

	a.mu.Lock()
	a.sessions[chatID] = st
	a.mu.Unlock()

	return st.FinalResponse, nil
}

// isAffirmative is a deliberately small yes-detector; everything that isn't
// clearly a yes declines the pending action.
func isAffirmative(input string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!")
	switch normalized {
	case "y", "yes", "yes please", "yep", "yeah", "sure", "ok", "okay", "go ahead", "do it", "confirm", "haan", "ha":
		return true
	}
	return false
}
