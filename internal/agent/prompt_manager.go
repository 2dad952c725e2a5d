package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PromptManager loads the assistant's prompt files from a directory. The
// persona (identity, tone, capabilities) is shared; planner, responder, and
// router each have a dedicated file appended to it.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// roleFiles are excluded from the shared persona.
var roleFiles = map[string]bool{
	"planner.md":   true,
	"responder.md": true,
	"router.md":    true,
}

// GetPersona concatenates the persona files in a deterministic order.
func (pm *PromptManager) GetPersona() (string, error) {
	files, err := os.ReadDir(pm.Directory)
	if err != nil {
		return "", fmt.Errorf("failed to read prompts directory: %v", err)
	}

	order := map[string]int{
		"identity.md":     1,
		"tone.md":         2,
		"capabilities.md": 3,
		"user.md":         4,
	}

	sort.Slice(files, func(i, j int) bool {
		oi, okI := order[files[i].Name()]
		oj, okJ := order[files[j].Name()]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return files[i].Name() < files[j].Name()
	})

	var contents []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") || roleFiles[f.Name()] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(pm.Directory, f.Name()))
		if err != nil {
			continue
		}
		contents = append(contents, string(data))
	}

	if len(contents) == 0 {
		return "", fmt.Errorf("no prompt files found in %s", pm.Directory)
	}
	return strings.Join(contents, "\n\n---\n\n"), nil
}

func (pm *PromptManager) getRolePrompt(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(pm.Directory, name))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v", name, err)
	}
	persona, err := pm.GetPersona()
	if err != nil {
		return string(data), nil
	}
	return persona + "\n\n---\n\n" + string(data), nil
}

func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	return pm.getRolePrompt("planner.md")
}

func (pm *PromptManager) GetResponderPrompt() (string, error) {
	return pm.getRolePrompt("responder.md")
}

func (pm *PromptManager) GetRouterPrompt() (string, error) {
	return pm.getRolePrompt("router.md")
}
