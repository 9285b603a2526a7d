package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dshills/privatise/internal/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "privatise",
		Short: "Run Lua scripts with underscore-private fields enforced",
		Long: "privatise runs Lua scripts in a sandbox with the privacy module loaded.\n" +
			"Fields whose names start with an underscore are hidden from code outside\n" +
			"the object's own methods once the object is wrapped with privacy.wrap.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error, fatal)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newVersionCmd(opts))

	return root
}

// load reads the configuration and applies command line overrides. An
// explicit --config must exist; the default location is optional.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	path := o.configPath
	required := path != ""
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.NewLoader(config.WithRequired(required)).Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg.
func (o *rootOptions) newLogger(cfg *config.Config) *log.Logger {
	return log.NewWithOptions(o.stderr, log.Options{
		Level:           cfg.LogLevel(),
		Formatter:       cfg.LogFormatter(),
		ReportTimestamp: cfg.Log.Timestamps,
		Prefix:          "privatise",
	})
}
