// Command tafahom-stream is the main entry point for the real-time
// sign-language translation backend.
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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/dnscache"

	"github.com/tafahom/tafahom-stream/internal/auth"
	"github.com/tafahom/tafahom-stream/internal/config"
	"github.com/tafahom/tafahom-stream/internal/glossmap"
	"github.com/tafahom/tafahom-stream/internal/health"
	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/pipeline"
	"github.com/tafahom/tafahom-stream/internal/transport"
	"github.com/tafahom/tafahom-stream/internal/translation"
	"github.com/tafahom/tafahom-stream/internal/videoassembler"
	"github.com/tafahom/tafahom-stream/internal/wallet"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/cv"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/glosstotext"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/stt"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/texttogloss"
	"github.com/tafahom/tafahom-stream/pkg/provider/ai/tts"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	clipDir := flag.String("clip-dir", "clips", "directory holding per-token sign video clips")
	generatedDir := flag.String("generated-dir", "generated", "directory the video assembler writes rendered clips to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "tafahom-stream: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "tafahom-stream: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("tafahom-stream starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "tafahom-stream"})
	if err != nil {
		logger.Error("failed to initialise telemetry providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	gloss, err := glossmap.Load(cfg.GlossMap.Path)
	if err != nil {
		logger.Error("failed to load gloss map", "path", cfg.GlossMap.Path, "err", err)
		return 1
	}
	logger.Info("gloss map loaded", "tokens", gloss.Len())

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		return 1
	}
	defer pool.Close()

	walletStore := wallet.NewPostgresStore(pool, wallet.WithMetrics(metrics))
	if err := walletStore.Migrate(ctx); err != nil {
		logger.Error("failed to migrate wallet schema", "err", err)
		return 1
	}
	translationStore := translation.NewPostgresStore(pool)
	if err := translationStore.Migrate(ctx); err != nil {
		logger.Error("failed to migrate translation schema", "err", err)
		return 1
	}

	resolver := &dnscache.Resolver{}
	go refreshDNSCache(ctx, resolver)

	aiTimeout := cfg.AI.Timeout()
	cvClient := cv.New(cfg.AI.CV.BaseURL, aiTimeout, resolver, cv.WithMetrics(metrics))
	textToGlossClient := texttogloss.New(cfg.AI.TextToGloss.BaseURL, aiTimeout, resolver, texttogloss.WithMetrics(metrics))
	glossToTextClient := glosstotext.New(cfg.AI.GlossToText.BaseURL, aiTimeout, resolver, glosstotext.WithMetrics(metrics))
	sttClient := stt.New(cfg.AI.STT.BaseURL, aiTimeout, resolver, stt.WithMetrics(metrics))
	ttsClient := tts.New(cfg.AI.TTS.BaseURL, aiTimeout, resolver, tts.WithMetrics(metrics))

	orchestrator := pipeline.New(cvClient, textToGlossClient, glossToTextClient, sttClient, ttsClient, gloss, logger)

	assembler, err := videoassembler.New(*clipDir, *generatedDir, gloss, videoassembler.WithMetrics(metrics))
	if err != nil {
		logger.Error("failed to initialise video assembler", "err", err)
		return 1
	}

	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)

	streamServer := transport.New(transport.Config{
		Verifier:    verifier,
		Pipeline:    orchestrator,
		TTS:         ttsClient,
		Wallet:      walletStore,
		Translation: translationStore,
		Stream:      cfg.Stream,
		Metrics:     metrics,
		Logger:      logger,
	})

	healthHandler := health.New(health.Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	mux := http.NewServeMux()
	streamServer.Register(mux)
	streamServer.RegisterBatch(mux, orchestrator, assembler)
	healthHandler.Register(mux)
	mux.Handle("GET /media/generated/", http.StripPrefix("/media/generated/", http.FileServer(http.Dir(*generatedDir))))

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: observe.Middleware(metrics)(mux),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping…")
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", "err", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
		return 1
	}

	logger.Info("goodbye")
	return 0
}

// refreshDNSCache periodically refreshes resolver's cached DNS answers for
// the AI service hosts until ctx is canceled.
func refreshDNSCache(ctx context.Context, resolver *dnscache.Resolver) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolver.Refresh(true)
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
