package skillregistry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adiaconou/hermes/internal/core"
)

// resourceDirs are the conventional sub-directories a skill may ship
// supporting material under, per spec.md §4.3's Safety paragraph.
var resourceDirs = []string{"references", "scripts", "assets"}

// SurfaceRunner is the narrow slice of toolsurface.Surface the registry
// needs, kept as an interface here to avoid a skillregistry->toolsurface
// import cycle (toolsurface never needs to know about skills).
type SurfaceRunner interface {
	Execute(ctx context.Context, systemPrompt, task string, allowedToolNames []string, ectx core.ExecutionContext) core.StepResult
}

// ExecuteByName loads a skill's markdown body as its system prompt and
// runs task through surf, restricted to the skill's declared tool set. If
// the skill declares a DelegateAgent, callers should route there instead;
// ExecuteByName is for skills that execute directly against the tool
// surface without per-agent delegation.
func (r *Registry) ExecuteByName(ctx context.Context, surf SurfaceRunner, name, task string, ectx core.ExecutionContext) core.StepResult {
	skill, ok := r.Get(name)
	if !ok {
		return core.StepResult{Success: false, Error: fmt.Sprintf("unknown skill %q", name)}
	}
	if !skill.Enabled {
		return core.StepResult{Success: false, Error: fmt.Sprintf("skill %q is disabled", name)}
	}

	body, err := safeReadWithinRoot(skill.RootDir, skill.MarkdownPath)
	if err != nil {
		return core.StepResult{Success: false, Error: fmt.Sprintf("skill %q: %v", name, err)}
	}
	_, prompt, err := parseFrontMatter(body)
	if err != nil {
		return core.StepResult{Success: false, Error: fmt.Sprintf("skill %q: %v", name, err)}
	}

	resources, err := loadResources(skill.RootDir)
	if err != nil {
		return core.StepResult{Success: false, Error: fmt.Sprintf("skill %q: %v", name, err)}
	}

	systemPrompt := buildSkillPrompt(skill.Name, prompt, resources)

	tools := skill.Tools
	if len(tools) == 0 {
		tools = []string{"*"}
	}
	res := surf.Execute(ctx, systemPrompt, task, tools, ectx)
	res.Normalize()
	return res
}

// skillResource is one readable file found under a skill's conventional
// references/, scripts/, or assets/ sub-directories.
type skillResource struct {
	relPath string
	content []byte
}

// loadResources walks root's conventional resource sub-directories and
// safe-reads every regular file found, per spec.md §4.3's Safety
// paragraph. Results are sorted by relative path for deterministic prompts.
func loadResources(root string) ([]skillResource, error) {
	var resources []skillResource

	for _, dir := range resourceDirs {
		subRoot := filepath.Join(root, dir)
		err := filepath.WalkDir(subRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			content, readErr := safeReadWithinRoot(root, path)
			if readErr != nil {
				return readErr
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			resources = append(resources, skillResource{relPath: rel, content: content})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("loading resources under %q: %w", dir, err)
		}
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].relPath < resources[j].relPath })
	return resources, nil
}

// buildSkillPrompt assembles the final system prompt per spec.md §4.3's
// Execution paragraph: a header naming the skill, the SKILL.md body, then
// one "## Resource: {rel-path}" block per readable resource file.
func buildSkillPrompt(name, body string, resources []skillResource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Skill: %s\n\n%s", name, body)
	for _, r := range resources {
		fmt.Fprintf(&b, "\n\n## Resource: %s\n\n%s", r.relPath, string(r.content))
	}
	return b.String()
}
