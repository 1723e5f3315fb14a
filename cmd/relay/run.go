package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/events"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/server"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/metrics"
	"mercator-hq/relay/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The server listens on the configured address, validates requests to
/api/gemini and forwards them to the upstream inference service.

Examples:
  # Start with defaults and the environment
  relay run

  # Start with a config file
  relay run --config /etc/relay/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:8080

  # Validate config without starting server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload the log level when the config file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		printSummary(cmd.OutOrStdout(), cfg)
		return nil
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := cli.SetupSignalHandler(parent)
	defer stop()

	app, err := newRelay(cfg, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer app.Close()

	if err := app.startBackground(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	if runFlags.watch && cfgFile != "" && runFlags.logLevel == "" {
		watchLogLevel(ctx, logger)
	}

	slog.Info("relay starting",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"upstream_url", app.forwarder.URL(),
		"upstream_timeout_ms", app.forwarder.Timeout().Milliseconds(),
		"audit_enabled", cfg.Audit.Enabled,
		"events_enabled", cfg.Events.Enabled,
	)

	if err := app.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// relay owns the components of a running gateway.
type relay struct {
	server    *server.Server
	forwarder *upstream.Forwarder
	health    *health.Checker
	metrics   *metrics.Collector
	scheduler *audit.Scheduler

	// closers run in reverse order on Close.
	closers []func()
}

// newRelay wires the forwarder, the optional audit and events sinks, the
// probes and the HTTP server from cfg.
func newRelay(cfg *config.Config, logger *slog.Logger) (*relay, error) {
	r := &relay{
		health:  health.New(0),
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
	}
	if err := r.wire(cfg, logger); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *relay) wire(cfg *config.Config, logger *slog.Logger) error {
	var err error
	r.forwarder, err = upstream.NewForwarder(upstream.FromConfig(cfg.Upstream))
	if err != nil {
		return fmt.Errorf("failed to create upstream forwarder: %w", err)
	}
	r.closers = append(r.closers, r.forwarder.Close)
	r.health.Register("upstream", r.forwarder.Ping)

	var sinks []handlers.ExchangeSink

	auditSink, err := r.openAudit(cfg.Audit)
	if err != nil {
		return err
	}
	if auditSink != nil {
		sinks = append(sinks, auditSink)
	}

	eventSink, err := r.openEvents(cfg.Events)
	if err != nil {
		return err
	}
	if eventSink != nil {
		sinks = append(sinks, eventSink)
	}

	generate := handlers.NewGenerateHandler(r.forwarder, handlers.GenerateOptions{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Metrics:      r.metrics,
		Sinks:        sinks,
		Logger:       logger,
	})

	r.server, err = server.NewServer(cfg, server.Dependencies{
		Generate: generate,
		Health:   r.health,
		Metrics:  r.metrics,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	return err
}

func (r *relay) openAudit(cfg config.AuditConfig) (*audit.Recorder, error) {
	if !cfg.Enabled {
		r.health.Register("audit", disabledCheck)
		return nil, nil
	}

	store, err := audit.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit storage: %w", err)
	}
	r.closers = append(r.closers, func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close audit storage", "error", err)
		}
	})
	r.health.Register("audit", store.Ping)

	if cfg.RetentionDays > 0 {
		r.scheduler = audit.NewScheduler(audit.NewPruner(store, cfg.RetentionDays), cfg.PruneSchedule)
		r.closers = append(r.closers, r.scheduler.Stop)
	}

	recorder := audit.NewRecorder(store, audit.RecorderConfig{
		BufferSize:   cfg.BufferSize,
		WriteTimeout: cfg.WriteTimeout,
		Metrics:      r.metrics,
	})
	r.closers = append(r.closers, func() { _ = recorder.Close() })
	return recorder, nil
}

func (r *relay) openEvents(cfg config.EventsConfig) (*events.Publisher, error) {
	if !cfg.Enabled {
		r.health.Register("events", disabledCheck)
		return nil, nil
	}

	nc, err := events.Connect(cfg.NatsURL)
	if err != nil {
		return nil, err
	}

	publisher := events.NewPublisher(nc, events.PublisherConfig{
		Subject:    cfg.Subject,
		BufferSize: cfg.BufferSize,
		Metrics:    r.metrics,
	})
	r.closers = append(r.closers, func() { _ = publisher.Close() })
	r.health.Register("events", publisher.Ping)
	return publisher, nil
}

// startBackground starts the retention scheduler, if any.
func (r *relay) startBackground(ctx context.Context) error {
	if r.scheduler == nil {
		return nil
	}
	if err := r.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audit retention: %w", err)
	}
	if next := r.scheduler.NextRun(); !next.IsZero() {
		slog.Debug("audit retention scheduled", "next_run", next)
	}
	return nil
}

// Close releases every component, sinks before the storage they write to.
func (r *relay) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func disabledCheck(context.Context) error {
	return health.ErrDisabled
}

// watchLogLevel applies the log level of every reloaded configuration.
// Nothing else is reloaded; components keep the configuration they were
// built with.
func watchLogLevel(ctx context.Context, logger *logging.Logger) {
	watcher, err := config.NewWatcher(cfgFile, 0, logger.Slog())
	if err != nil {
		slog.Warn("config watcher disabled", "error", err)
		return
	}

	go func() {
		err := watcher.Watch(ctx, func(cfg *config.Config) {
			if err := logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
				slog.Warn("ignoring reloaded log level", "level", cfg.Telemetry.Logging.Level, "error", err)
			}
		})
		if err != nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()
}

func printSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "✓ Configuration valid")
	fmt.Fprintf(w, "  listen address:   %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(w, "  upstream:         %s%s\n", cfg.Upstream.BaseURL, cfg.Upstream.Path)
	fmt.Fprintf(w, "  upstream timeout: %dms\n", cfg.Upstream.Timeout.Milliseconds())
	fmt.Fprintf(w, "  metrics:          %t\n", cfg.Telemetry.Metrics.Enabled)
	fmt.Fprintf(w, "  audit:            %t\n", cfg.Audit.Enabled)
	fmt.Fprintf(w, "  events:           %t\n", cfg.Events.Enabled)
}
