package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/beatkeeper/config"
	"github.com/lixenwraith/beatkeeper/logging"
)

type globalOptions struct {
	configPath string
	logLevel   string
	logOutput  string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "beatkeeper",
		Short:        "Beat-synchronized scheduling engine sandbox",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (built-in defaults when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (trace, debug, info, warn, error, disabled)")
	cmd.PersistentFlags().StringVar(&opts.logOutput, "log-output", "", "override log output (stderr, stdout, discard, or a file path)")

	cmd.AddCommand(
		newRunCommand(opts),
		newSimulateCommand(opts),
		newValidateCommand(opts),
	)
	return cmd
}

// load returns the config with flag overrides applied
func (o *globalOptions) load() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logOutput != "" {
		cfg.Log.Output = o.logOutput
	}
	return cfg, nil
}

// logger builds the root logger, the closer must be called on exit
func (o *globalOptions) logger(cfg logging.Config) (zerolog.Logger, io.Closer, error) {
	l, closer, err := logging.New(cfg)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: %w", err)
	}
	return l, closer, nil
}
