package tools

import (
	"context"
	"fmt"

	"github.com/priya/vachan/internal/store"
)

// TemplateRecord is the wire shape of a promise template.
type TemplateRecord struct {
	Slug         string  `json:"template_slug"`
	Text         string  `json:"text"`
	HoursPerWeek float64 `json:"hours_per_week,omitempty"`
}

// ---------------------------------------------------------------------------
// list_templates

type ListTemplatesTool struct {
	Store *store.Store
}

func NewListTemplatesTool(s *store.Store) *ListTemplatesTool { return &ListTemplatesTool{Store: s} }

func (t *ListTemplatesTool) Name() string { return "list_templates" }

func (t *ListTemplatesTool) Description() string {
	return "List the promise templates the user can subscribe to."
}

func (t *ListTemplatesTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ListTemplatesTool) RequiredArgs() []string { return nil }

func (t *ListTemplatesTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	templates, err := t.Store.ListTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	out := make([]TemplateRecord, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, TemplateRecord{
			Slug:         tpl.Slug,
			Text:         tpl.Text,
			HoursPerWeek: tpl.HoursPerWeek,
		})
	}
	return map[string]any{"templates": out, "count": len(out)}, nil
}

// ---------------------------------------------------------------------------
// subscribe_template

type SubscribeTemplateTool struct {
	Store *store.Store
}

func NewSubscribeTemplateTool(s *store.Store) *SubscribeTemplateTool {
	return &SubscribeTemplateTool{Store: s}
}

func (t *SubscribeTemplateTool) Name() string { return "subscribe_template" }

func (t *SubscribeTemplateTool) Description() string {
	return "Create a promise for the user from a named template."
}

func (t *SubscribeTemplateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template_slug": map[string]any{
				"type":        "string",
				"description": "Slug of the template, as returned by list_templates.",
			},
		},
		"required": []string{"template_slug"},
	}
}

func (t *SubscribeTemplateTool) RequiredArgs() []string { return []string{"template_slug"} }

func (t *SubscribeTemplateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	chatID, err := chatIDOrErr(ctx)
	if err != nil {
		return nil, err
	}
	tpl, err := t.Store.GetTemplate(stringArg(args, "template_slug"))
	if err != nil {
		return nil, err
	}
	p, err := t.Store.AddPromise(chatID, tpl.Text, tpl.HoursPerWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return matchFromPromise(p), nil
}
