package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/privatise/internal/config"
	"github.com/dshills/privatise/internal/script"
	"github.com/dshills/privatise/internal/watcher"
)

type runOptions struct {
	*rootOptions

	watch   bool
	timeout time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run a Lua script with the privacy module loaded",
		Long: "Runs SCRIPT in a sandboxed Lua state. The privacy module is available\n" +
			"through require \"privacy\" and the globals privacy and privatise.\n" +
			"With --watch the script is run again whenever the file changes.",
		Args: cobra.ExactArgs(1),
		RunE: opts.run,
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run the script when the file changes")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Maximum run time of one execution (0 disables)")

	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Script.Timeout = config.Duration(o.timeout)
	}

	logger := o.newLogger(cfg)
	path := args[0]

	if o.watch {
		return o.watchScript(cmd.Context(), cfg, logger, path)
	}
	return o.runScript(cmd.Context(), cfg, logger, path)
}

// runScript executes path once in a fresh state.
func (o *runOptions) runScript(ctx context.Context, cfg *config.Config, logger *log.Logger, path string) error {
	logger = logger.With("run", uuid.NewString())

	state, err := script.NewState(
		script.WithExecutionTimeout(cfg.Script.Timeout.Std()),
		script.WithLogger(logger),
		script.WithOutput(o.stdout),
	)
	if err != nil {
		return err
	}
	defer state.Close()

	start := time.Now()
	logger.Debug("running script", "path", path)

	if err := state.DoFileContext(ctx, path); err != nil {
		logger.Debug("script failed", "path", path, "elapsed", time.Since(start))
		return err
	}
	logger.Debug("script finished", "path", path, "elapsed", time.Since(start))
	return nil
}

// watchScript runs path now and again after every settled change until ctx
// is cancelled. Script failures are logged and do not stop watching.
func (o *runOptions) watchScript(ctx context.Context, cfg *config.Config, logger *log.Logger, path string) error {
	fw, err := watcher.NewFSNotifyWatcher(watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	dw := watcher.NewDebouncedWatcher(fw, cfg.Script.WatchDebounce.Std())
	defer dw.Close()

	if err := dw.Watch(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	o.runWatched(ctx, cfg, logger, path)
	logger.Info("watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("watch stopped", "reason", context.Cause(ctx))
			return nil

		case event, ok := <-dw.Events():
			if !ok {
				return nil
			}
			logger.Debug("file changed", "path", event.Path, "op", event.Op)
			if event.Op&(watcher.OpRemove|watcher.OpRename) != 0 && !event.Op.Has(watcher.OpCreate) {
				logger.Warn("script removed, waiting for it to return", "path", event.Path)
				continue
			}
			o.runWatched(ctx, cfg, logger, path)

		case err, ok := <-dw.Errors():
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func (o *runOptions) runWatched(ctx context.Context, cfg *config.Config, logger *log.Logger, path string) {
	err := o.runScript(ctx, cfg, logger, path)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
	default:
		logger.Error("script failed", "path", path, "error", err)
	}
}
