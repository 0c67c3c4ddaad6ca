package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PizzaHomicide/muxbridge/internal/analytics"
	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/config"
	"github.com/PizzaHomicide/muxbridge/internal/log"
	"github.com/PizzaHomicide/muxbridge/internal/player"
	"github.com/PizzaHomicide/muxbridge/internal/ui/tui"
	"github.com/PizzaHomicide/muxbridge/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, "%s\n\nUsage: muxbridge <url>\n\nEnvironment variables:\n%s",
		version.GetVersionInfo(), config.EnvVarHelp())
}

func main() {
	if len(os.Args) != 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage()
		os.Exit(2)
	}
	url := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// It is unrecoverable if we cannot produce an application config
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialise logger
	logger, err := log.New(log.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Set the default global logger
	log.SetDefaultLogger(logger)

	log.Info("Starting up muxbridge", "version", version.GetVersion(), "build_time", version.GetBuildTime())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, url); err != nil {
		log.Error("Unhandled error while monitoring playback", "error", err)
		_, _ = fmt.Fprintf(os.Stderr, "muxbridge: %v\n", err)
		os.Exit(1)
	}

	log.Info("muxbridge shutting down.  Goodbye!")
}

func run(ctx context.Context, cfg *config.Config, url string) error {
	if cfg.Player.Version == "" {
		detectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		v, err := player.DetectMPVVersion(detectCtx, cfg.Player.Path)
		cancel()
		if err != nil {
			log.Warn("Could not detect the player version", "error", err)
		} else {
			cfg.Player.Version = v
		}
	}

	mpv := player.NewMPVPlayer(cfg)
	defer mpv.Cleanup()

	var monitor *tui.Monitor
	sinks := analytics.Multi{analytics.NewLogSink()}
	if cfg.UI.Enabled {
		monitor = tui.New(cfg.UI, mpv)
		sinks = append(sinks, monitor.Sink())
	}

	var sink bridge.Sink = sinks
	if cfg.Metrics.Enabled {
		sink = analytics.NewMetricsSink(sinks, prometheus.DefaultRegisterer)
		srv := serveMetrics(cfg.Metrics.Listen)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	b := bridge.New(mpv, bridge.Options{
		Data:  cfg.MonitorData(),
		Debug: cfg.Monitor.Debug,
	}, mpv.Library(), sink, bridge.WithIDGenerator(bridge.IDGeneratorByName(cfg.Monitor.IDGenerator)))
	if b == nil {
		return errors.New("could not attach monitoring to the player")
	}
	log.Info("Monitoring session created", "session_id", b.SessionID())

	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lifecycle, err := mpv.Play(playCtx, url)
	if err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	if monitor != nil {
		return monitor.Run(lifecycle)
	}
	return waitForPlayback(lifecycle)
}

// waitForPlayback reports lifecycle events on stderr until the player exits
func waitForPlayback(lifecycle <-chan player.PlaybackEvent) error {
	var lastErr error
	for event := range lifecycle {
		switch event.Type {
		case player.PlaybackStarted:
			_, _ = fmt.Fprintln(os.Stderr, "Playback started")
		case player.PlaybackEnded:
			_, _ = fmt.Fprintf(os.Stderr, "Playback ended at %.0f%%\n", event.Progress)
		case player.PlaybackError:
			lastErr = event.Error
			_, _ = fmt.Fprintf(os.Stderr, "Playback error: %v\n", event.Error)
		}
	}
	return lastErr
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
