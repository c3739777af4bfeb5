package viewstate

import (
	"os"
	"path/filepath"
	"testing"

	"fuelninja/config"
	"fuelninja/store"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	// No Redis in tests; the manager runs SQL-only.
	return NewManager(db, nil)
}

func TestCelebrateFiresOnce(t *testing.T) {
	m := testManager(t)

	first, err := m.Celebrate("order-1")
	if err != nil {
		t.Fatalf("celebrate: %v", err)
	}
	if !first {
		t.Error("first celebrate should report true")
	}
	again, err := m.Celebrate("order-1")
	if err != nil {
		t.Fatalf("celebrate: %v", err)
	}
	if again {
		t.Error("repeat celebrate must report false")
	}

	ok, err := m.IsCelebrated("order-1")
	if err != nil {
		t.Fatalf("is celebrated: %v", err)
	}
	if !ok {
		t.Error("flag should persist")
	}
}

func TestLiveStateWithoutRedis(t *testing.T) {
	m := testManager(t)

	// No panic, no state.
	m.SetLive("order-1", "en-route", "3.2 miles away", "15-20 minutes")
	if got := m.GetLive("order-1"); got != nil {
		t.Errorf("live state without redis = %+v, want nil", got)
	}
	m.ClearOrder("order-1")
	m.FlushAll()
}
