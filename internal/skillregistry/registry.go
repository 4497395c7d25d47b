// Package skillregistry discovers SKILL.md files under one or more root
// directories, parses their YAML front-matter, and matches an inbound
// message against the loaded set, generalizing the teacher's tools.Registry
// discovery pattern to filesystem-defined capabilities. A Registry is
// built once by Load; picking up changed SKILL.md files takes a new Load.
package skillregistry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adiaconou/hermes/internal/core"
)

const skillFileName = "SKILL.md"

// Registry is the read-only, built-once set of discovered skills.
type Registry struct {
	skills []core.LoadedSkill
	byName map[string]*core.LoadedSkill
	Limits Limits
}

// Load walks bundledRoot and importedRoot (either may be empty) for
// SKILL.md files one directory deep — each skill lives in its own
// subdirectory, e.g. <root>/calendar-quickadd/SKILL.md — and returns the
// registry plus any non-fatal per-file load errors. On a name collision
// between the two roots, the imported-source skill wins and the bundled
// copy is dropped with no error, per spec.md §4.3.
func Load(bundledRoot, importedRoot string, limits Limits) (*Registry, []core.SkillLoadError) {
	var found []core.LoadedSkill
	var errs []core.SkillLoadError

	roots := []struct {
		dir    string
		source core.SkillSource
	}{
		{bundledRoot, core.SkillSourceBundled},
		{importedRoot, core.SkillSourceImported},
	}

	byName := make(map[string]core.LoadedSkill)
	var order []string
	for _, r := range roots {
		if r.dir == "" {
			continue
		}
		loaded, loadErrs := loadRoot(r.dir, r.source)
		errs = append(errs, loadErrs...)
		for _, s := range loaded {
			if _, exists := byName[s.Name]; !exists {
				order = append(order, s.Name)
			}
			byName[s.Name] = s // later root (imported) overwrites the earlier (bundled) on collision
		}
	}

	for _, name := range order {
		found = append(found, byName[name])
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })

	reg := &Registry{skills: found, byName: make(map[string]*core.LoadedSkill, len(found)), Limits: limits.withDefaults()}
	for i := range reg.skills {
		reg.byName[reg.skills[i].Name] = &reg.skills[i]
	}
	return reg, errs
}

func loadRoot(root string, source core.SkillSource) ([]core.LoadedSkill, []core.SkillLoadError) {
	var skills []core.LoadedSkill
	var errs []core.SkillLoadError

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, []core.SkillLoadError{{Path: root, Reason: err.Error()}}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillDir := filepath.Join(root, entry.Name())
		skillPath := filepath.Join(skillDir, skillFileName)

		content, err := safeReadWithinRoot(root, skillPath)
		if err != nil {
			errs = append(errs, core.SkillLoadError{Path: skillPath, Reason: err.Error()})
			continue
		}

		fm, _, err := parseFrontMatter(content)
		if err != nil {
			errs = append(errs, core.SkillLoadError{Path: skillPath, Reason: err.Error()})
			continue
		}

		skills = append(skills, core.LoadedSkill{
			Name:          fm.Name,
			Description:   fm.Description,
			MarkdownPath:  skillPath,
			RootDir:       skillDir,
			Channels:      fm.channelSet(),
			Tools:         fm.Metadata.Hermes.Tools,
			MatchHints:    fm.Metadata.Hermes.Match,
			Enabled:       fm.enabled(),
			Source:        source,
			DelegateAgent: fm.Metadata.Hermes.DelegateAgent,
		})
	}
	return skills, errs
}

// All returns every loaded skill, bundled and imported, enabled and disabled.
func (r *Registry) All() []core.LoadedSkill { return r.skills }

// Get looks up a skill by exact name.
func (r *Registry) Get(name string) (*core.LoadedSkill, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// MatchForMessage returns the highest-confidence enabled skill whose
// channel set (if any) includes ch, or nil if nothing clears
// r.Limits.ConfidenceThreshold. Confidence is matched/total: the fraction
// of a skill's MatchHints found as a case-insensitive substring of
// message. Ties are broken by alphabetical order, per Load's sort.
func (r *Registry) MatchForMessage(message string, ch core.Channel) *core.LoadedSkill {
	lower := strings.ToLower(message)
	var best *core.LoadedSkill
	bestConfidence := 0.0

	for i := range r.skills {
		s := &r.skills[i]
		if !s.Enabled {
			continue
		}
		if len(s.Channels) > 0 && !s.Channels[ch] {
			continue
		}
		if len(s.MatchHints) == 0 {
			continue
		}
		matched := 0
		total := 0
		for _, hint := range s.MatchHints {
			if hint == "" {
				continue
			}
			total++
			if strings.Contains(lower, strings.ToLower(hint)) {
				matched++
			}
		}
		if total == 0 {
			continue
		}
		confidence := float64(matched) / float64(total)
		if confidence >= r.Limits.ConfidenceThreshold && confidence > bestConfidence {
			bestConfidence = confidence
			best = s
		}
	}
	return best
}
