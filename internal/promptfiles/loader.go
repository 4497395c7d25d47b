// Package promptfiles loads the general-purpose agent's static system
// prompt from a directory of Markdown fragments, adapting the teacher's
// PromptManager.GetWorkerPrompt — unlike the planner's and replanner's
// fully dynamic prompts (built per call from the agent/skill registries
// and plan state), the general-agent's identity is fixed text an operator
// edits on disk without a rebuild.
package promptfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader reads every ".md" fragment from Directory and joins them in a
// fixed order.
type Loader struct {
	Directory string
}

func NewLoader(dir string) *Loader {
	return &Loader{Directory: dir}
}

// fragmentOrder pins the well-known identity fragments first; anything
// else sorts alphabetically after them.
var fragmentOrder = map[string]int{
	"identity.md":     1,
	"soul.md":         2,
	"capabilities.md": 3,
	"user.md":         4,
}

// Load concatenates every Markdown fragment in Directory, identity-style
// files first, separated by a horizontal rule.
func (l *Loader) Load() (string, error) {
	entries, err := os.ReadDir(l.Directory)
	if err != nil {
		return "", fmt.Errorf("promptfiles: reading %s: %w", l.Directory, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		oi, okI := fragmentOrder[entries[i].Name()]
		oj, okJ := fragmentOrder[entries[j].Name()]
		switch {
		case okI && okJ:
			return oi < oj
		case okI:
			return true
		case okJ:
			return false
		default:
			return entries[i].Name() < entries[j].Name()
		}
	})

	var fragments []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(l.Directory, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("promptfiles: reading fragment %s: %w", path, err)
		}
		fragments = append(fragments, string(data))
	}

	if len(fragments) == 0 {
		return "", fmt.Errorf("promptfiles: no prompt fragments found in %s", l.Directory)
	}
	return strings.Join(fragments, "\n\n---\n\n"), nil
}
