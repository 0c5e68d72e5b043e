package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
	"github.com/ryosukesatoh/paint-news/internal/report"
	"github.com/ryosukesatoh/paint-news/internal/runner"
	"github.com/ryosukesatoh/paint-news/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	configPath string
	logLevel   string

	noEmail bool
	dryRun  bool
	noJSON  bool

	runOnStart bool
	addr       string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "paint-news",
		Short:        "Weekly coating industry news digest",
		Long:         "paint-news collects coating industry news from NewsAPI, translates it into Japanese, renders a weekly HTML report and sends a notification.",
		SilenceUsage: true,
		RunE:         a.runCmd,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (defaults and environment only when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	a.addRunFlags(root)

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE:  a.runCmd,
	}
	a.addRunFlags(run)

	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule",
		RunE:  a.scheduleCmd,
	}
	schedule.Flags().BoolVar(&a.runOnStart, "run-on-start", false, "run once immediately before waiting for the schedule")
	a.addRunFlags(schedule)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report directory for preview",
		RunE:  a.serveCmd,
	}
	serve.Flags().StringVar(&a.addr, "addr", "", "listen address (overrides server.addr)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "paint-news %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	root.AddCommand(run, schedule, serve, versionCmd)
	return root
}

func (a *app) addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.noEmail, "no-email", false, "skip notifications")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "use sample articles and call no external API")
	cmd.Flags().BoolVar(&a.noJSON, "no-json", false, "do not write the articles JSON dump")
}

func (a *app) setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	if a.logLevel != "" {
		if err := config.ValidateLogLevel(a.logLevel); err != nil {
			return nil, nil, err
		}
		cfg.LogLevel = a.logLevel
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func (a *app) runnerOptions() runner.Options {
	return runner.Options{
		DryRun:   a.dryRun,
		NoNotify: a.noEmail,
		SaveJSON: !a.noJSON,
	}
}

func (a *app) runCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	r, err := runner.FromConfig(cfg, a.runnerOptions(), log, metrics.New())
	if err != nil {
		log.Error("Failed to set up pipeline", logger.Error(err))
		return err
	}
	out, err := r.Run(cmd.Context())
	if err != nil {
		log.Error("Pipeline failed", logger.Error(err))
		return err
	}
	if out.Report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), out.Report.Path)
	}
	return nil
}

func (a *app) scheduleCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	var r *runner.Runner
	runOnce := func(trigger string) {
		log.Info("Running pipeline", logger.String("trigger", trigger))
		if _, err := r.Run(ctx); err != nil {
			log.Error("Scheduled run failed", logger.Error(err))
		}
	}

	// The schedule is read in JST, like the report dates. It is registered
	// before the pipeline is built so a bad expression is reported first.
	c := cron.New(
		cron.WithLocation(report.JST),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(cfg.Schedule, func() { runOnce("cron") }); err != nil {
		return fmt.Errorf("failed to set up cron schedule %q: %w", cfg.Schedule, err)
	}

	r, err = runner.FromConfig(cfg, a.runnerOptions(), log, metrics.New())
	if err != nil {
		log.Error("Failed to set up pipeline", logger.Error(err))
		return err
	}

	if a.runOnStart || cfg.RunOnStart {
		runOnce("start")
	}

	c.Start()
	log.Info("Scheduler started", logger.String("schedule", cfg.Schedule))

	<-ctx.Done()
	log.Info("Shutting down scheduler")
	<-c.Stop().Done()
	log.Info("Shutdown complete")
	return nil
}

func (a *app) serveCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	addr := cfg.Server.Addr
	if a.addr != "" {
		addr = a.addr
	}
	srv := server.New(addr, cfg.Report.OutputDir, log)
	if err := srv.Start(); err != nil {
		return err
	}

	<-cmd.Context().Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
