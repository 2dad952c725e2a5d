package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/priya/vachan/internal/observability"
	"github.com/priya/vachan/internal/store"
)

// Messenger is the outbound half of a gateway.
type Messenger interface {
	Send(chatID string, text string) error
}

// Scheduler polls for due promise reminders and nudges users through the
// gateway. The nudge text is composed by the brain so it can reference the
// promise's recent activity.
type Scheduler struct {
	Brain   Brain
	Store   *store.Store
	Gateway Messenger
	Log     *observability.Logger
}

func NewScheduler(brain Brain, st *store.Store, gateway Messenger, log *observability.Logger) *Scheduler {
	return &Scheduler{
		Brain:   brain,
		Store:   st,
		Gateway: gateway,
		Log:     log,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAndSend(ctx)
		}
	}
}

func (s *Scheduler) pollAndSend(ctx context.Context) {
	due, err := s.Store.DueReminders()
	if err != nil {
		s.Log.Error(observability.Event{Type: observability.EventTypeHeartbeat}, err)
		return
	}

	for _, r := range due {
		promise, err := s.Store.PromiseByID(r.ChatID, r.PromiseID)
		if err != nil {
			// Promise was deleted; the reminder is orphaned but harmless.
			_ = s.Store.MarkReminderSent(r.ID)
			continue
		}

		prompt := fmt.Sprintf(
			"[reminder check-in for promise %s: %q] Compose a short, encouraging nudge asking how it's going. Do not schedule anything.",
			promise.PublicID(), promise.Text,
		)
		nudge, err := s.Brain.Think(ctx, r.ChatID, prompt)
		if err != nil || nudge == "" {
			nudge = fmt.Sprintf("Checking in on %q. How is it going?", promise.Text)
		}

		if err := s.Store.MarkReminderSent(r.ID); err != nil {
			s.Log.Error(observability.Event{Type: observability.EventTypeHeartbeat, ChatID: r.ChatID}, err)
		}
		if s.Gateway != nil {
			_ = s.Gateway.Send(r.ChatID, nudge)
		}
	}
}
