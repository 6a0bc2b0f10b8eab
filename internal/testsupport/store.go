package testsupport

import (
	"testing"

	"mkvtag/internal/config"
	"mkvtag/internal/logging"
	"mkvtag/internal/statuslog"
)

// MustLoadStore builds a status log store from the test config and loads it.
func MustLoadStore(t testing.TB, cfg *config.Config) *statuslog.Store {
	t.Helper()

	store := statuslog.FromConfig(cfg, nil, logging.NewNop())
	if err := store.Load(); err != nil {
		t.Fatalf("statuslog.Load: %v", err)
	}
	return store
}
