// Package main implements scry-kanji, a spaced-repetition study tool for kanji.
//
// The same scheduler backs every command: the HTTP API (serve), an
// interactive terminal session (study) and the maintenance commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/scry-kanji/internal/app"
	"github.com/phrazzld/scry-kanji/internal/config"
	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/phrazzld/scry-kanji/internal/platform/memory"
	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := newRootCmd(&cli{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the global flags and, in tests, injected collaborators.
type cli struct {
	configFile string
	logLevel   string
	ephemeral  bool

	// cfg and opts replace config loading and defaults when set.
	cfg  *config.Config
	opts app.Options
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "scry-kanji",
		Short: "Spaced-repetition study scheduler for kanji",
		Long: `scry-kanji schedules kanji reviews with short fixed intervals and
re-inserts items you have not yet retained later in the same session.

Progress and the current session are saved to the configured database,
so a session can be left and resumed at any time.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./scry-kanji.yaml or ~/.config/scry-kanji/scry-kanji.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().BoolVar(&c.ephemeral, "ephemeral", false, "keep progress in memory only")

	root.AddCommand(
		c.serveCmd(),
		c.studyCmd(),
		c.statsCmd(),
		c.gridCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.enrichCmd(),
		c.migrateCmd(),
	)
	return root
}

// config loads and validates the configuration once.
func (c *cli) config() (*config.Config, error) {
	if c.cfg == nil {
		cfg, err := config.LoadFrom(c.configFile)
		if err != nil {
			return nil, err
		}
		c.cfg = cfg
	}
	if c.logLevel != "" {
		c.cfg.Log.Level = c.logLevel
		if err := config.Validate(c.cfg); err != nil {
			return nil, err
		}
	}
	return c.cfg, nil
}

// logger writes JSON logs to stderr so stdout stays free for command output.
func (c *cli) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logger.SetupWithWriter(cfg.Log, cmd.ErrOrStderr())
}

// scheduler builds the SchedulerContext for a command. Callers Close it.
func (c *cli) scheduler(cmd *cobra.Command) (*app.SchedulerContext, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	log, err := c.logger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	opts := c.opts
	if c.ephemeral && opts.Blobs == nil {
		opts.Blobs = memory.NewBlobStore()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		return nil, fmt.Errorf("starting scheduler: %w", err)
	}
	return sc, nil
}
