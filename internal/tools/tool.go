package tools

import (
	"context"
	"sort"
)

// Tool defines the interface for all agent capabilities.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	RequiredArgs() []string     // argument names that must be present and non-empty
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry manages the set of available tools. It is built once at startup
// and never modified while a conversation is in flight.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Tools[name]
	return ok
}

// Names returns the registered tool names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Tools))
	for name := range r.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type chatIDKey struct{}

// WithChatID attaches the chat identifier to the context so tools can scope
// their queries to the current conversation.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, chatIDKey{}, chatID)
}

// ChatID extracts the chat identifier set by WithChatID.
func ChatID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(chatIDKey{}).(string)
	return id, ok
}
