// Package testsupport provides shared helpers for package tests: temp-dir
// backed configurations, stubbed external binaries, and watched-file
// fixtures.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"mkvtag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Watch.Directory = filepath.Join(base, "watch")
	cfgVal.Watch.StatusLogPath = filepath.Join(base, "watch", ".mkvtag.json")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "history.db")

	if err := os.MkdirAll(cfgVal.Watch.Directory, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithQuietPeriod overrides the stability quiet period in seconds.
func WithQuietPeriod(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.QuietPeriod = seconds
	}
}

// WithPrecheck enables the already-tagged probe on the test config.
func WithPrecheck(probe string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tagger.Precheck = true
		b.cfg.Tagger.ProbeCommand = probe
	}
}

// WithRenamePattern sets the filename cleanup pattern on the test config.
func WithRenamePattern(pattern string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Rename.Pattern = pattern
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed. Stubs exit 0 and print nothing.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"mkvpropedit", "mkvinfo"}
		}
		for _, name := range names {
			writeStub(b.t, b.binDir(), name, "#!/bin/sh\nexit 0\n")
		}
		prependPath(b.t, b.binDir())
	}
}

// WithFailingBinary writes a stub for name that exits with the given code
// after printing message to stderr, and prepends it to PATH.
func WithFailingBinary(name string, code int, message string) ConfigOption {
	return func(b *configBuilder) {
		script := fmt.Sprintf("#!/bin/sh\necho %q >&2\nexit %d\n", message, code)
		writeStub(b.t, b.binDir(), name, script)
		prependPath(b.t, b.binDir())
	}
}

func (b *configBuilder) binDir() string {
	return filepath.Join(b.baseDir, "bin")
}

func writeStub(t testing.TB, dir, name, script string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Watch.Directory)
}
