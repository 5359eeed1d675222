package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-grade-notifier/config"
	"github.com/aluiziolira/go-grade-notifier/metrics"
	"github.com/aluiziolira/go-grade-notifier/notify"
	"github.com/aluiziolira/go-grade-notifier/pipeline"
	"github.com/aluiziolira/go-grade-notifier/poller"
	"github.com/aluiziolira/go-grade-notifier/scraper"
	"github.com/aluiziolira/go-grade-notifier/store"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	debug := flag.Bool("debug", false, "Poll around the clock, ignoring the active window")
	once := flag.Bool("once", false, "Run a single check and exit")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "loading env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *verbose, *debug, *metricsAddr)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	m := metrics.New()

	s, err := scraper.NewScraper(cfg, m)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	snapshots, err := store.NewSnapshotStore(cfg.SnapshotEncoding)
	if err != nil {
		slog.Error("initialising snapshot store", slog.Any("error", err))
		os.Exit(1)
	}

	notifier, err := notify.NewClient(cfg.NtfyServer, cfg.NtfyTopic, cfg.Timeout)
	if err != nil {
		slog.Error("initialising notifier", slog.Any("error", err))
		os.Exit(1)
	}

	p, err := pipeline.NewPipeline(cfg, snapshots, notifier, m)
	if err != nil {
		slog.Error("initialising pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	w := poller.New(cfg, s, p, m)

	exitCode := 0
	if *once {
		if err := p.Prepare(); err != nil {
			slog.Error("preparing snapshot files failed", slog.Any("error", err))
		}
		result, err := w.RunOnce(ctx)
		if err != nil {
			exitCode = 1
		} else {
			printSummary(result)
		}
	} else if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("poller stopped", slog.Any("error", err))
		exitCode = 1
	} else {
		slog.Info("shutdown signal received, stopping")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	os.Exit(exitCode)
}

func applyFlags(cfg *config.Config, verbose, debug bool, metricsAddr string) {
	if verbose {
		cfg.Verbose = true
	}
	if debug {
		cfg.Mode = config.ModeDebug
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
}

func printSummary(result *pipeline.Result) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Check complete")
	fmt.Printf("  Grades on page: %d\n", result.Snapshot.Len())
	fmt.Printf("  New grades:     %d\n", len(result.NewGrades))
	fmt.Printf("  Already sent:   %d\n", result.Skipped)
	fmt.Printf("  Notified:       %d\n", result.Notified)
	if result.ParseErr != nil {
		fmt.Printf("  Parse error:    %v\n", result.ParseErr)
	}
	for _, grade := range result.NewGrades {
		fmt.Printf("  - %s\n", grade.Message())
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
