// Command meetscribe is the meeting transcription server: it captures
// microphone audio, transcribes it with whisper, attributes utterances to
// speakers, and serves transcripts over HTTP and websocket.
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

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/meetscribe/internal/config"
	"github.com/MrWong99/meetscribe/internal/coordinator"
	"github.com/MrWong99/meetscribe/internal/emit"
	"github.com/MrWong99/meetscribe/internal/meeting"
	"github.com/MrWong99/meetscribe/internal/observe"
	"github.com/MrWong99/meetscribe/internal/server"
	"github.com/MrWong99/meetscribe/pkg/stt/whisper"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "meetscribe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "meetscribe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("meetscribe starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "meetscribe",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Model directory ───────────────────────────────────────────────────────
	modelDir := cfg.STT.ModelDir
	if modelDir == "" {
		modelDir, err = whisper.DefaultModelDir()
		if err != nil {
			slog.Error("failed to resolve model directory", "err", err)
			return 1
		}
	}

	// ── Pipeline wiring ───────────────────────────────────────────────────────
	hub := server.NewHub(metrics)
	defer hub.Close()

	sink := emit.Multi(hub, emit.Log{})

	coord := coordinator.New(coordinator.Config{
		ModelDir:      modelDir,
		ModelSize:     whisper.ModelSize(cfg.STT.ModelSize),
		Language:      cfg.STT.Language,
		Tick:          time.Duration(cfg.STT.TickMs) * time.Millisecond,
		MinWindow:     time.Duration(cfg.STT.MinWindowMs) * time.Millisecond,
		MaxWindow:     time.Duration(cfg.STT.MaxWindowMs) * time.Millisecond,
		Diarize:       cfg.Diarization.Enabled,
		DiarizeConfig: cfg.Diarization.DiarizeConfig(),
	},
		coordinator.WithEmitter(sink),
		coordinator.WithMetrics(metrics),
	)

	meetings := meeting.NewManager()
	srv := server.New(coord, meetings, hub, metrics)

	printStartupSummary(cfg, modelDir)

	// ── HTTP server ───────────────────────────────────────────────────────────
	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := coord.Stop(shutdownCtx); err != nil {
			slog.Warn("pipeline stop error", "err", err)
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, modelDir string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Meetscribe — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Model", cfg.STT.ModelSize)
	printRow("Language", cfg.STT.Language)
	printRow("Model dir", modelDir)
	if cfg.Diarization.Enabled {
		printRow("Diarization", "enabled")
	} else {
		printRow("Diarization", "(disabled)")
	}
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(key, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", key, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
