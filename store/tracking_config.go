package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"fuelninja/tracking"
)

// LoadTrackingConfig returns the persisted step list and driver roster.
// A missing or malformed row falls back to the defaults so the tracking
// pipeline always has a usable configuration.
func (db *DB) LoadTrackingConfig() *tracking.Config {
	var blob string
	err := db.QueryRow(db.Q(`SELECT config FROM tracking_config WHERE id = 1`)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.DefaultConfig()
	}
	if err != nil {
		log.Printf("[store] load tracking config: %v, using defaults", err)
		return tracking.DefaultConfig()
	}
	var cfg tracking.Config
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		log.Printf("[store] tracking config blob malformed: %v, using defaults", err)
		return tracking.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[store] tracking config invalid: %v, using defaults", err)
		return tracking.DefaultConfig()
	}
	return &cfg
}

// SaveTrackingConfig persists the whole configuration in one write. An
// invalid config is rejected before anything touches the row.
func (db *DB) SaveTrackingConfig(cfg *tracking.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("store: tracking config rejected: %w", err)
	}
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("store: marshal tracking config: %w", err)
	}
	_, err = db.Exec(db.Q(`INSERT INTO tracking_config (id, config, updated_at)
		VALUES (1, ?, datetime('now','localtime'))
		ON CONFLICT (id) DO UPDATE SET config = excluded.config,
		updated_at = datetime('now','localtime')`), string(blob))
	if err != nil {
		return fmt.Errorf("store: save tracking config: %w", err)
	}
	return nil
}
