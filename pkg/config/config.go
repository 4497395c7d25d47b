package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

type Config struct {
	App       AppConfig                 `json:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways"`
	Providers map[string]ProviderConfig `json:"providers"`
	Memory    MemoryConfig              `json:"memory"`
	Store     StoreConfig               `json:"store"`
	Skills    SkillsConfig              `json:"skills"`
	JobRunner PollerConfig              `json:"job_runner"`
	Watcher   WatcherConfig             `json:"watcher"`
}

type AppConfig struct {
	Name      string `json:"name"`
	Workspace string `json:"workspace"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// StoreConfig points at the SQLite database backing every store type.
type StoreConfig struct {
	DSN string `json:"dsn"`
}

// SkillsConfig lists the filesystem roots the Skill Registry scans for
// SKILL.md files, and the minimum matched/total confidence a skill must
// clear to win MatchForMessage, per spec.md §4.3. ConfidenceThreshold of
// 0 leaves the registry's own default in force.
type SkillsConfig struct {
	Roots               []string `json:"roots"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
}

// PollerConfig is the interval a poller-driven component ticks on.
// IntervalSeconds of 0 leaves the component's own default in force.
type PollerConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// Interval returns the configured tick interval, or fallback if unset.
func (p PollerConfig) Interval(fallback time.Duration) time.Duration {
	if p.IntervalSeconds <= 0 {
		return fallback
	}
	return time.Duration(p.IntervalSeconds) * time.Second
}

// WatcherConfig extends PollerConfig with the per-user hourly notification
// cap and the domain sync endpoint the watcher polls for inbox deltas.
type WatcherConfig struct {
	IntervalSeconds         int    `json:"interval_seconds"`
	MaxNotificationsPerHour int    `json:"max_notifications_per_hour"`
	SyncProvider            string `json:"sync_provider"`
	SyncBaseURL             string `json:"sync_base_url"`
}

func (w WatcherConfig) Interval(fallback time.Duration) time.Duration {
	if w.IntervalSeconds <= 0 {
		return fallback
	}
	return time.Duration(w.IntervalSeconds) * time.Second
}

func LoadConfig(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	return &cfg
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		return tg, true
	}
	return GatewayConfig{}, false
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	dc, ok := c.Gateways["discord"]
	if ok && dc.Enabled {
		return dc, true
	}
	return GatewayConfig{}, false
}
