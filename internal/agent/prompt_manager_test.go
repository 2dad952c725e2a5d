package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePrompts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPromptManager_GetPersona(t *testing.T) {
	dir := writePrompts(t, map[string]string{
		"identity.md":     "Identity Content",
		"tone.md":         "Tone Content",
		"capabilities.md": "Capabilities Content",
		"user.md":         "User Content",
		"extra.md":        "Extra Content",
		"planner.md":      "Planner Role",
		"responder.md":    "Responder Role",
	})

	pm := NewPromptManager(dir)
	persona, err := pm.GetPersona()
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"Identity Content",
		"Tone Content",
		"Capabilities Content",
		"User Content",
		"Extra Content",
	}
	for _, part := range expectedParts {
		if !strings.Contains(persona, part) {
			t.Errorf("Persona missing expected part: %s", part)
		}
	}

	// Role files never leak into the shared persona.
	if strings.Contains(persona, "Planner Role") || strings.Contains(persona, "Responder Role") {
		t.Error("Persona must not include role files")
	}

	// Verify order
	if strings.Index(persona, "Identity Content") >= strings.Index(persona, "Tone Content") {
		t.Error("Identity should be before Tone")
	}
	if strings.Index(persona, "Tone Content") >= strings.Index(persona, "Capabilities Content") {
		t.Error("Tone should be before Capabilities")
	}
	if strings.Index(persona, "Capabilities Content") >= strings.Index(persona, "User Content") {
		t.Error("Capabilities should be before User")
	}
}

func TestPromptManager_GetPlannerPrompt(t *testing.T) {
	dir := writePrompts(t, map[string]string{
		"identity.md": "Identity Content",
		"planner.md":  "Planner Role",
	})

	pm := NewPromptManager(dir)
	prompt, err := pm.GetPlannerPrompt()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(prompt, "Identity Content") {
		t.Error("Planner prompt missing persona")
	}
	if !strings.Contains(prompt, "Planner Role") {
		t.Error("Planner prompt missing role file")
	}
	if strings.Index(prompt, "Identity Content") >= strings.Index(prompt, "Planner Role") {
		t.Error("Persona should come before the role file")
	}
}

func TestPromptManager_MissingRoleFile(t *testing.T) {
	dir := writePrompts(t, map[string]string{"identity.md": "Identity Content"})

	pm := NewPromptManager(dir)
	if _, err := pm.GetRouterPrompt(); err == nil {
		t.Error("Expected error for missing router.md")
	}
}
