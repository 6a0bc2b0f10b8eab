package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mkvtag/internal/config"
	"mkvtag/internal/logging"
	"mkvtag/internal/rename"
	"mkvtag/internal/statuslog"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loadStore builds a status log store from configuration and loads the
// persisted table. Inspection commands use a silent logger; the daemon is
// the only writer that should narrate.
func (c *commandContext) loadStore() (*statuslog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	engine, err := rename.New(cfg.Rename.Pattern)
	if err != nil {
		return nil, err
	}
	store := statuslog.FromConfig(cfg, engine, logging.NewNop())
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
