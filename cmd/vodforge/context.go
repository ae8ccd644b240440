package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vodforge/internal/api"
	"vodforge/internal/config"
	"vodforge/internal/logging"
	"vodforge/internal/queue"
	"vodforge/internal/tracker"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
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

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withStore opens the queue database for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

// withTracker opens the queue database and the status mirror selected by
// configuration for the duration of fn.
func (c *commandContext) withTracker(fn func(*config.Config, *queue.Store, tracker.Tracker) error) error {
	return c.withStore(func(cfg *config.Config, store *queue.Store) error {
		trk, err := tracker.New(cfg, logging.NewNop())
		if err != nil {
			return err
		}
		defer trk.Close()
		return fn(cfg, store, trk)
	})
}

// withService builds the submission service over the queue. Accepted
// submissions are mirrored to the tracker when one is enabled.
func (c *commandContext) withService(fn func(*api.Service) error) error {
	return c.withTracker(func(cfg *config.Config, store *queue.Store, trk tracker.Tracker) error {
		defaults, err := cfg.Renditions()
		if err != nil {
			return err
		}
		svc := api.NewService(store, defaults, api.WithStatusSink(trk), api.WithLogger(logging.NewNop()))
		return fn(svc)
	})
}

// syncMirror pushes the queue's view of ids to the status mirror. The queue
// stays authoritative, so a mirror failure is only a warning.
func syncMirror(cmd *cobra.Command, trk tracker.Tracker, store *queue.Store, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := tracker.Sync(cmd.Context(), trk, store, ids...); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: status mirror not updated: %v\n", err)
	}
}

// processLogger builds the logger for long-running commands.
func processLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
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
