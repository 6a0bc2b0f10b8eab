package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeTagger()
	c.normalizeRename()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeNotifications()
	return c.normalizeLogging()
}

func (c *Config) normalizeWatch() error {
	var err error

	c.Watch.Directory = strings.TrimSpace(c.Watch.Directory)
	if c.Watch.Directory == "" {
		if value, ok := os.LookupEnv("MKVTAG_PATH"); ok {
			c.Watch.Directory = strings.TrimSpace(value)
		}
	}
	if c.Watch.Directory == "" {
		if c.Watch.Directory, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}
	if c.Watch.Directory, err = expandPath(c.Watch.Directory); err != nil {
		return fmt.Errorf("watch.directory: %w", err)
	}

	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = append([]string(nil), defaultExtensions...)
	}
	exts := make([]string, 0, len(c.Watch.Extensions))
	seen := make(map[string]struct{}, len(c.Watch.Extensions))
	for _, ext := range c.Watch.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append([]string(nil), defaultExtensions...)
	}
	c.Watch.Extensions = exts

	c.Watch.StatusLogPath = strings.TrimSpace(c.Watch.StatusLogPath)
	if c.Watch.StatusLogPath == "" {
		if value, ok := os.LookupEnv("MKVTAG_LOGFILE"); ok {
			c.Watch.StatusLogPath = strings.TrimSpace(value)
		}
	}
	if c.Watch.StatusLogPath == "" {
		c.Watch.StatusLogPath = filepath.Join(c.Watch.Directory, defaultStatusLogName)
	} else if !filepath.IsAbs(c.Watch.StatusLogPath) {
		c.Watch.StatusLogPath = filepath.Join(c.Watch.Directory, c.Watch.StatusLogPath)
	}
	if c.Watch.StatusLogPath, err = expandPath(c.Watch.StatusLogPath); err != nil {
		return fmt.Errorf("watch.status_log_path: %w", err)
	}

	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = envInt("MKVTAG_TIMER", defaultPollInterval)
	}
	if c.Watch.QuietPeriod <= 0 {
		c.Watch.QuietPeriod = envInt("MKVTAG_WAIT", defaultQuietPeriod)
	}
	if c.Watch.Loops == 0 {
		c.Watch.Loops = envInt("MKVTAG_LOOPS", defaultLoops)
	}
	if c.Watch.GoneGraceHours <= 0 {
		c.Watch.GoneGraceHours = defaultGoneGraceHours
	}
	if !c.Watch.StrictStatusLog {
		c.Watch.StrictStatusLog = envBool("MKVTAG_EXC")
	}
	return nil
}

func (c *Config) normalizeTagger() {
	c.Tagger.Command = strings.TrimSpace(c.Tagger.Command)
	if c.Tagger.Command == "" {
		c.Tagger.Command = defaultTaggerCommand
	}
	if len(c.Tagger.Args) == 0 {
		c.Tagger.Args = []string{"--add-track-statistics-tags"}
	}
	c.Tagger.ProbeCommand = strings.TrimSpace(c.Tagger.ProbeCommand)
	if c.Tagger.ProbeCommand == "" {
		c.Tagger.ProbeCommand = defaultProbeCommand
	}
	if !c.Tagger.Precheck {
		c.Tagger.Precheck = envBool("MKVTAG_PRECHECK")
	}
}

func (c *Config) normalizeRename() {
	c.Rename.Pattern = strings.TrimSpace(c.Rename.Pattern)
	if c.Rename.Pattern == "" {
		if value, ok := os.LookupEnv("MKVTAG_CLEAN"); ok {
			c.Rename.Pattern = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
	return nil
}

func envInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}
