package testsupport

import (
	"testing"

	"vigil/internal/config"
	"vigil/internal/history"
	"vigil/internal/state"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenState opens the task state store for tests.
func MustOpenState(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store, err := state.Open(cfg.State.Path)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	return store
}
