package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/beatkeeper/config"
)

func newValidateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a config file and print its effective clock settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.configPath = args[0]
			}
			if opts.configPath == "" {
				return fmt.Errorf("no config file: pass one as argument or with --config")
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			printSummary(cmd, opts.configPath, cfg)
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, path string, cfg config.Config) {
	out := cmd.OutOrStdout()
	c := cfg.Clock

	fmt.Fprintf(out, "ok: %s\n", path)
	fmt.Fprintf(out, "clock: bpm=%.1f steps=%d tolerance=%.1f%% loop_threshold=%s reset_threshold=%d grace=%s latency=%s destroy_timed=%t\n",
		c.BPM, c.StepsPerInterval, c.TolerancePercent, c.LoopThreshold, c.ResetThreshold, c.LoopGraceWindow, c.LatencyOffset, c.DestroyTimedActorsOnReset)
	for _, p := range c.PreTriggers {
		fmt.Fprintf(out, "pretrigger: %s lead=%.2f beats\n", p.Spec(), p.BeatsBefore)
	}
	fmt.Fprintf(out, "sandbox: %dx%d enemies=%d turrets=%d traps=%d dummies=%d\n",
		cfg.Sandbox.Width, cfg.Sandbox.Height,
		len(cfg.Sandbox.Enemies), len(cfg.Sandbox.Turrets), len(cfg.Sandbox.Traps), len(cfg.Sandbox.Dummies))
}
