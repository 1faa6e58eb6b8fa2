package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vigil/internal/config"
)

type commandContext struct {
	configFlag     *string
	checkEveryFlag *int
	stateFileFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, checkEveryFlag *int, stateFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		checkEveryFlag: checkEveryFlag,
		stateFileFlag:  stateFileFlag,
	}
}

// ensureConfig loads the configuration once, applies flag overrides, and
// re-validates the result.
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
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) applyOverrides(cfg *config.Config) error {
	changed := false
	if c.checkEveryFlag != nil && *c.checkEveryFlag != 0 {
		cfg.CheckEvery = *c.checkEveryFlag
		changed = true
	}
	if c.stateFileFlag != nil {
		if path := strings.TrimSpace(*c.stateFileFlag); path != "" {
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return fmt.Errorf("resolve state file: %w", err)
			}
			cfg.State.Path = expanded
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return cfg.Validate()
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
