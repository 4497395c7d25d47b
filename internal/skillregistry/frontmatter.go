package skillregistry

import (
	"bytes"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/adiaconou/hermes/internal/core"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

var recognizedChannels = map[string]core.Channel{
	"sms":       core.ChannelSMS,
	"whatsapp":  core.ChannelWhatsApp,
	"email":     core.ChannelEmail,
	"scheduler": core.ChannelScheduler,
}

// frontMatter is the YAML shape of a SKILL.md header, matching the
// emergent-company-emergent docs service's "---\n...\n---\n" convention
// parsed with gopkg.in/yaml.v3.
type frontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Metadata    struct {
		Hermes struct {
			Channels      []string `yaml:"channels"`
			Tools         []string `yaml:"tools"`
			Match         []string `yaml:"match"`
			Enabled       *bool    `yaml:"enabled"`
			DelegateAgent string   `yaml:"delegateAgent"`
		} `yaml:"hermes"`
	} `yaml:"metadata"`
}

// parseFrontMatter splits a SKILL.md file's leading "---\n...\n---\n" YAML
// block from its markdown body and validates the declared fields.
func parseFrontMatter(content []byte) (*frontMatter, string, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, "", fmt.Errorf("missing front-matter delimiter")
	}
	parts := bytes.SplitN(content[4:], []byte("\n---\n"), 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("missing closing front-matter delimiter")
	}

	var fm frontMatter
	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return nil, "", fmt.Errorf("invalid yaml front-matter: %w", err)
	}
	if err := validateFrontMatter(&fm); err != nil {
		return nil, "", err
	}
	return &fm, string(parts[1]), nil
}

func validateFrontMatter(fm *frontMatter) error {
	if !nameRe.MatchString(fm.Name) {
		return fmt.Errorf("invalid skill name %q: must match %s", fm.Name, nameRe.String())
	}
	if fm.Description == "" {
		return fmt.Errorf("skill %q: description is required", fm.Name)
	}
	for _, c := range fm.Metadata.Hermes.Channels {
		if _, ok := recognizedChannels[c]; !ok {
			return fmt.Errorf("skill %q: unrecognized channel %q", fm.Name, c)
		}
	}
	return nil
}

func (fm *frontMatter) channelSet() map[core.Channel]bool {
	out := make(map[core.Channel]bool, len(fm.Metadata.Hermes.Channels))
	for _, c := range fm.Metadata.Hermes.Channels {
		out[recognizedChannels[c]] = true
	}
	return out
}

func (fm *frontMatter) enabled() bool {
	if fm.Metadata.Hermes.Enabled == nil {
		return true
	}
	return *fm.Metadata.Hermes.Enabled
}
