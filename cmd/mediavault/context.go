package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/config"
	"github.com/marco/mediaVault/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	// fs is the filesystem every command works on.
	fs afero.Fs

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
		fs:           afero.NewOsFs(),
	}
}

// ensureConfig loads the configuration and builds the logger once. Without
// --config the defaults are used.
func (c *commandContext) ensureConfig(stderr io.Writer) error {
	c.configOnce.Do(func() {
		cfg := config.Default()
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			loaded, err := config.Load(path)
			if err != nil {
				c.configErr = err
				return
			}
			cfg = loaded
		}
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}

		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: stderr,
		})
		if err != nil {
			c.configErr = fmt.Errorf("configure logging: %w", err)
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// roots returns the roots named on the command line, or the configured
// library roots when none were given.
func (c *commandContext) roots(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	roots := c.config.Roots()
	if len(roots) == 0 {
		return nil, errors.New("no library roots: pass a root path or set media_library in the config")
	}
	return roots, nil
}

func (c *commandContext) pipeline() (*pipeline, error) {
	return newPipeline(c.config, c.fs, c.logger)
}
