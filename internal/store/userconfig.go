package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/adiaconou/hermes/internal/core"
)

// UserConfigStore persists per-user settings, generalizing the teacher's
// ad hoc chatID-keyed rows into spec.md §6's user-config store contract
// (get/set plus the watcher's enabled-user listing and checkpoint write).
type UserConfigStore struct {
	DB *sql.DB
}

func NewUserConfigStore(db *sql.DB) *UserConfigStore {
	return &UserConfigStore{DB: db}
}

// Get returns a user's config, or ok=false if never configured.
func (s *UserConfigStore) Get(ctx context.Context, phone string) (core.UserConfig, bool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT phone, name, timezone, feature_flags, watcher_enabled, watcher_checkpoint
		 FROM user_config WHERE phone = ?`, phone)

	var cfg core.UserConfig
	var flagsJSON string
	var watcherEnabled int
	if err := row.Scan(&cfg.Phone, &cfg.Name, &cfg.Timezone, &flagsJSON, &watcherEnabled, &cfg.WatcherCheckpoint); err != nil {
		if err == sql.ErrNoRows {
			return core.UserConfig{}, false, nil
		}
		return core.UserConfig{}, false, err
	}
	cfg.WatcherEnabled = watcherEnabled != 0
	cfg.FeatureFlags = map[string]bool{}
	if flagsJSON != "" {
		if err := json.Unmarshal([]byte(flagsJSON), &cfg.FeatureFlags); err != nil {
			return core.UserConfig{}, false, err
		}
	}
	return cfg, true, nil
}

// Set upserts a user's full config.
func (s *UserConfigStore) Set(ctx context.Context, cfg core.UserConfig) error {
	flagsJSON, err := json.Marshal(cfg.FeatureFlags)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO user_config (phone, name, timezone, feature_flags, watcher_enabled, watcher_checkpoint)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET
			name=excluded.name, timezone=excluded.timezone, feature_flags=excluded.feature_flags,
			watcher_enabled=excluded.watcher_enabled, watcher_checkpoint=excluded.watcher_checkpoint`,
		cfg.Phone, cfg.Name, cfg.Timezone, string(flagsJSON), boolToInt(cfg.WatcherEnabled), cfg.WatcherCheckpoint)
	return err
}

// WatcherUsers returns every user with the watcher flag enabled AND at
// least one stored credential, per spec.md §4.12 step 1.
func (s *UserConfigStore) WatcherUsers(ctx context.Context) ([]core.UserConfig, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT phone, name, timezone, feature_flags, watcher_enabled, watcher_checkpoint
		 FROM user_config
		 WHERE watcher_enabled = 1
		 AND EXISTS (SELECT 1 FROM credentials WHERE credentials.user_id = user_config.phone)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.UserConfig
	for rows.Next() {
		var cfg core.UserConfig
		var flagsJSON string
		var watcherEnabled int
		if err := rows.Scan(&cfg.Phone, &cfg.Name, &cfg.Timezone, &flagsJSON, &watcherEnabled, &cfg.WatcherCheckpoint); err != nil {
			return nil, err
		}
		cfg.WatcherEnabled = watcherEnabled != 0
		cfg.FeatureFlags = map[string]bool{}
		if flagsJSON != "" {
			if err := json.Unmarshal([]byte(flagsJSON), &cfg.FeatureFlags); err != nil {
				return nil, err
			}
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// SaveCheckpoint advances a user's watcher sync checkpoint.
func (s *UserConfigStore) SaveCheckpoint(ctx context.Context, userID, checkpoint string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE user_config SET watcher_checkpoint = ? WHERE phone = ?`, checkpoint, userID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
