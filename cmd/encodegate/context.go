package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"encodegate/internal/config"
	"encodegate/internal/daemon"
	"encodegate/internal/logging"
)

type componentsFactory func(cfg *config.Config, logger *slog.Logger, opts daemon.ComponentOptions) (*daemon.Components, error)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	buildComponents componentsFactory
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// cliLogger writes warnings and errors to stderr so that stdout stays
// parseable.
func (c *commandContext) cliLogger(cmd *cobra.Command) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:  "warn",
		Format: "console",
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withComponents builds the engine-facing components for one command and
// closes them afterwards. Dispatch is never needed by the CLI.
func (c *commandContext) withComponents(cmd *cobra.Command, opts daemon.ComponentOptions, fn func(*daemon.Components) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts.SkipDispatch = true
	components, err := c.buildComponents(cfg, c.cliLogger(cmd), opts)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(components)
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
