package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Web.Port != 8084 {
		t.Errorf("port = %d, want 8084", cfg.Web.Port)
	}
	if cfg.Delivery.ExpiryWindow != 30*time.Minute {
		t.Errorf("expiry window = %v, want 30m", cfg.Delivery.ExpiryWindow)
	}
	if cfg.Simulator.TickInterval != 5*time.Second {
		t.Errorf("tick interval = %v, want 5s", cfg.Simulator.TickInterval)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuelninja.yaml")

	cfg := Defaults()
	cfg.Web.Port = 9090
	cfg.Messaging.Backend = "mqtt"
	cfg.Pricing.RegularCents = 425
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Web.Port != 9090 {
		t.Errorf("port = %d, want 9090", got.Web.Port)
	}
	if got.Messaging.Backend != "mqtt" {
		t.Errorf("backend = %q, want mqtt", got.Messaging.Backend)
	}
	if got.Pricing.RegularCents != 425 {
		t.Errorf("regular = %d, want 425", got.Pricing.RegularCents)
	}
	// Untouched sections keep their defaults.
	if got.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", got.Database.Driver)
	}
}
