package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vidaudit/internal/config"
	"vidaudit/internal/fsutil"
	"vidaudit/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// dataRoot resolves the dataset root for a command: the positional argument
// when given, otherwise the configured data_dir. The root must exist.
func (c *commandContext) dataRoot(args []string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}

	root := cfg.Paths.DataDir
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		expanded, err := config.ExpandPath(args[0])
		if err != nil {
			return "", fmt.Errorf("resolve dataset path: %w", err)
		}
		root = expanded
		cfg.Paths.DataDir = expanded
	}
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("no dataset path given; set paths.data_dir or pass one as an argument")
	}
	if !fsutil.DirExists(root) {
		return "", fmt.Errorf("dataset root does not exist: %s", root)
	}
	return root, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
