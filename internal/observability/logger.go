package observability

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeRoute       EventType = "route"
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeParseError  EventType = "parse_error"
	EventTypeLLM         EventType = "llm"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type   EventType
	ChatID string
	TurnID string
	Data   any
}

// Logger emits structured JSON events. It wraps zerolog so events land on
// stdout and, when a log directory is configured, in a rotating jsonl file.
type Logger struct {
	z zerolog.Logger
}

// NewLogger builds a stdout-only logger.
func NewLogger() *Logger {
	z := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return &Logger{z: z}
}

// NewFileLogger also mirrors events into dir/events.jsonl.
func NewFileLogger(dir string) *Logger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return NewLogger()
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return NewLogger()
	}
	w := io.MultiWriter(os.Stdout, f)
	z := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{z: z}
}

// Log emits one structured event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	e := l.z.Info().
		Str("type", string(evt.Type)).
		Time("at", time.Now())
	if evt.ChatID != "" {
		e = e.Str("chat_id", evt.ChatID)
	}
	if evt.TurnID != "" {
		e = e.Str("turn_id", evt.TurnID)
	}
	if evt.Data != nil {
		e = e.Interface("data", evt.Data)
	}
	e.Msg(string(evt.Type))
}

// Error logs a recovered failure. Nothing in the orchestrator panics over
// these; they exist for diagnostics only.
func (l *Logger) Error(evt Event, err error) {
	if l == nil {
		return
	}
	e := l.z.Error().
		Str("type", string(evt.Type)).
		Err(err)
	if evt.ChatID != "" {
		e = e.Str("chat_id", evt.ChatID)
	}
	if evt.Data != nil {
		e = e.Interface("data", evt.Data)
	}
	e.Msg(string(evt.Type))
}

// Helper methods for common events

func (l *Logger) LogToolCall(chatID, callID, tool string, argKeys []string) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		ChatID: chatID,
		Data: map[string]any{
			"call_id":  callID,
			"tool":     tool,
			"arg_keys": argKeys,
		},
	})
}

func (l *Logger) LogToolResult(chatID, callID, tool string, failed bool) {
	l.Log(Event{
		Type:   EventTypeToolResult,
		ChatID: chatID,
		Data: map[string]any{
			"call_id": callID,
			"tool":    tool,
			"failed":  failed,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}
