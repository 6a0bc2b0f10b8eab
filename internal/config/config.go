package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Watch contains the watched-directory and timing configuration.
type Watch struct {
	Directory       string   `toml:"directory"`
	Extensions      []string `toml:"extensions"`
	StatusLogPath   string   `toml:"status_log_path"`
	PollInterval    int      `toml:"poll_interval"`
	QuietPeriod     int      `toml:"quiet_period"`
	Loops           int      `toml:"loops"`
	GoneGraceHours  int      `toml:"gone_grace_hours"`
	StrictStatusLog bool     `toml:"strict_status_log"`
}

// Tagger contains the external tagging command configuration.
type Tagger struct {
	Command      string   `toml:"command"`
	Args         []string `toml:"args"`
	Precheck     bool     `toml:"precheck"`
	ProbeCommand string   `toml:"probe_command"`
}

// Rename contains the filename-cleanup configuration.
type Rename struct {
	Pattern string `toml:"pattern"`
}

// History contains the processing-history archive configuration.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completions    bool   `toml:"completions"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output and rotation.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for mkvtag.
//
// Sections by subsystem:
//   - Watch: directory, timing, and status-log settings
//   - Tagger: external command and optional precheck probe
//   - Rename: filename cleanup pattern applied to done files
//   - History: SQLite archive of processing attempts
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and rotation
type Config struct {
	Watch         Watch         `toml:"watch"`
	Tagger        Tagger        `toml:"tagger"`
	Rename        Rename        `toml:"rename"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mkvtag/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mkvtag.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollDuration returns the poll interval as a duration.
func (c *Config) PollDuration() time.Duration {
	return time.Duration(c.Watch.PollInterval) * time.Second
}

// QuietDuration returns the stability quiet period as a duration.
func (c *Config) QuietDuration() time.Duration {
	return time.Duration(c.Watch.QuietPeriod) * time.Second
}

// GoneGrace returns how long gone records are retained before pruning.
func (c *Config) GoneGrace() time.Duration {
	return time.Duration(c.Watch.GoneGraceHours) * time.Hour
}

// TrackedExtension reports whether a filename carries a tracked extension.
func (c *Config) TrackedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, tracked := range c.Watch.Extensions {
		if ext == tracked {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
