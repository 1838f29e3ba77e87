package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/internal/config"
	"github.com/reflow-dev/reflow/pkg/live"
)

func serveCmd() *cobra.Command {
	var (
		host string
		port int
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live broadcast server",
		Long: `Start a WebSocket server exposing the demo broadcast channels.

Reads reflow.json from the project directory; flags override it.
Endpoints: /live (WebSocket), /healthz, /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Bind host (overrides reflow.json)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Bind port (overrides reflow.json)")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Project directory containing reflow.json")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	opts := []live.HubOption{live.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		opts = append(opts,
			live.WithMetrics(live.NewMetrics(live.WithNamespace(cfg.Metrics.Namespace))),
			live.WithTracer(live.NewTracer(live.WithTracerName(cfg.Name))),
		)
	}
	hub := live.NewHub(opts...)
	defer hub.Close()

	if cfg.Metrics.Enabled {
		prometheus.MustRegister(live.NewRuntimeCollector(hub.Runtime(), cfg.Metrics.Namespace))
	}

	stopDemo, err := registerDemoChannels(hub)
	if err != nil {
		return err
	}
	defer stopDemo()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: live.NewServer(hub, cfg.LiveConfig()).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	printBanner()
	success("listening on http://%s", cfg.Addr())
	info("live:    ws://%s/live", cfg.Addr())
	info("metrics: http://%s/metrics", cfg.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sig:
	}

	warn("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// registerDemoChannels wires two example channels: a server clock ticking
// once a second and a writable shared counter. Returns a stop function for
// the clock goroutine.
func registerDemoChannels(hub *live.Hub) (func(), error) {
	clock, err := live.NewChannel(hub, "clock", time.Now().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	if _, err := live.NewChannel(hub, "counter", 0); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				clock.Publish(now.Format(time.RFC3339))
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
