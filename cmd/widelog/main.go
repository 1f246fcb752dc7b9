// Package main implements the widelog CLI for inspecting and
// exercising the wide-event pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caselight/widelog/internal/config"
	"github.com/caselight/widelog/internal/logging"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "widelog",
	Short:   "Wide-event observability pipeline tools",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults apply when empty)")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(watchCmd)
}

// checkCmd loads and validates configuration.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective configuration",
	Long: `Load configuration (defaults, file, WIDELOG_* environment overrides)
and print the effective sink and sampling settings.

Examples:
  widelog check
  widelog check --config /etc/widelog/config.yaml`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	printConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "global_level: %s\n", cfg.GlobalLevel)
	fmt.Fprintf(out, "console: enabled=%v level=%s color=%v\n",
		cfg.Console.Enabled, cfg.Console.Level, cfg.Console.Color)
	fmt.Fprintf(out, "file: enabled=%v level=%s path=%s queue_size=%d retention_days=%d\n",
		cfg.File.Enabled, cfg.File.Level, cfg.File.Path, cfg.File.QueueSize, cfg.File.RetentionDays)
	fmt.Fprintf(out, "error_file: enabled=%v path=%s\n",
		cfg.ErrorFile.Enabled, cfg.ErrorFile.Path)
	fmt.Fprintf(out, "wide_event: enabled=%v sampling_rate=%.2f always_sample_errors=%v slow_threshold_ms=%d\n",
		cfg.WideEvent.Enabled, cfg.WideEvent.SamplingRate,
		cfg.WideEvent.AlwaysSampleErrors, cfg.WideEvent.SlowThresholdMS)
}

// watchCmd revalidates configuration as the file changes on disk.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Revalidate the configuration on every change",
	Long: `Watch the config file and print the effective configuration after
each change. A reload that fails is reported and the previous
configuration stays in effect. Runs until interrupted.

Examples:
  widelog watch --config /etc/widelog/config.yaml`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return errors.New("watch requires --config")
	}
	if err := runCheck(cmd, args); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w, err := config.Watch(configPath,
		func(cfg *config.Config) {
			fmt.Fprintf(out, "reloaded %s\n", configPath)
			printConfig(out, cfg)
		},
		func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "reload failed, keeping previous configuration: %v\n", err)
		},
	)
	if err != nil {
		return err
	}
	defer w.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

var (
	emitService string
	emitFail    bool
)

// emitCmd pushes one sample event through the full pipeline.
var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Emit a sample wide event through the configured sinks",
	Long: `Build the pipeline from configuration, emit one sample event, and
shut down cleanly. Useful for verifying sink paths and permissions.

Examples:
  widelog emit
  widelog emit --service orders.create
  widelog emit --fail`,
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&emitService, "service", "widelog.selftest", "service name for the sample event")
	emitCmd.Flags().BoolVar(&emitFail, "fail", false, "emit an error-outcome event")
}

func runEmit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	mgr, err := logging.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer mgr.Close()

	b := mgr.CreateEvent(context.Background(), emitService).
		Input(map[string]any{"source": "widelog emit"}).
		Context("invoked_by", "cli")

	if emitFail {
		b.Error("SELFTEST", "sample failure", errors.New("sample failure"), "")
	} else {
		b.Output(map[string]any{"ok": true}).Success()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "emitted %s event for %s (trace %s)\n",
		outcome(emitFail), emitService, b.TraceID())
	return nil
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}
