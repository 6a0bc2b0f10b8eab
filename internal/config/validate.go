package config

import (
	"errors"
	"fmt"
	"os"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateTagger(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateWatch() error {
	info, err := os.Stat(c.Watch.Directory)
	if err != nil {
		return fmt.Errorf("watch.directory %q is not accessible: %w", c.Watch.Directory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch.directory %q is not a directory", c.Watch.Directory)
	}
	if err := ensurePositiveMap(map[string]int{
		"watch.poll_interval":    c.Watch.PollInterval,
		"watch.quiet_period":     c.Watch.QuietPeriod,
		"watch.gone_grace_hours": c.Watch.GoneGraceHours,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTagger() error {
	if c.Tagger.Command == "" {
		return errors.New("tagger.command must be set")
	}
	if c.Tagger.Precheck && c.Tagger.ProbeCommand == "" {
		return errors.New("tagger.probe_command must be set when tagger.precheck is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
