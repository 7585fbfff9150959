package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"spooktrunt/codex"
	"spooktrunt/core"
	"spooktrunt/logging"
	"spooktrunt/metrics"
	"spooktrunt/shutdown"
	"spooktrunt/studio"
	"spooktrunt/webui"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// sessionSweepInterval is how often expired browser sessions are dropped.
const sessionSweepInterval = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is reported by the startup check.
	_ = godotenv.Load()

	report := core.NewStartupCheck().Run()
	if !report.Success() {
		return core.ExitCodeError
	}
	cfg := report.Config

	logger, err := logging.NewLogger(logging.Options{
		Development: cfg.DevMode,
		Level:       logging.ParseLogLevel(cfg.LogLevel, logging.InfoLevel),
		FilePath:    cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, core.ErrLogFile(cfg.LogFile, err))
		return core.ExitCodeError
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.String("version", version),
		zap.String("addr", cfg.Addr()),
		zap.String("text_provider", cfg.TextProvider),
		zap.String("image_provider", cfg.ImageProvider),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
		zap.Bool("dev_mode", cfg.DevMode))

	manager := shutdown.NewManager(context.Background(), logger)
	manager.Start()
	ctx := manager.Context()

	recorder := metrics.NewRecorder(metrics.NewStore(metrics.StoreConfig{
		HistoryCapacity: 50,
		Version:         version,
	}, time.Now()))
	recorder.TrackInFlight(manager.ActiveOperations)

	factory := newClientFactory(cfg)
	text, err := factory.newTextClient(ctx, recorder, logger)
	if err != nil {
		logger.Error("failed to create text client", zap.Error(err))
		return core.ExitCodeError
	}
	images, err := factory.newImageGenerator(ctx, recorder, logger)
	if err != nil {
		logger.Error("failed to create image client", zap.Error(err))
		return core.ExitCodeError
	}

	lore, err := codex.Default()
	if err != nil {
		logger.Error("failed to load codex", zap.Error(err))
		return core.ExitCodeError
	}

	sessions := webui.NewSessionStore(webui.SessionStoreConfig{
		TTL: cfg.SessionTTL,
		Factory: func(sessionID string) *studio.Studio {
			return studio.New(text, images, logger.With(logging.SessionID(sessionID)),
				studio.WithRunner(manager),
				studio.WithObserver(recorder))
		},
		OnCountChange: recorder.SetActiveSessions,
	})

	serverConfig := webui.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	serverConfig.API.MaxUploadBytes = cfg.MaxUploadBytes
	serverConfig.API.BlueprintMaxEdge = cfg.BlueprintMaxEdge

	srv, err := webui.NewServer(serverConfig, sessions, lore, recorder, logger)
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return core.ExitCodeError
	}

	manager.Register("http", 0, srv.Shutdown)
	manager.Register("logger", 30, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return sessions.RunCleanup(gctx, sessionSweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		return manager.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("studio stopped with error", zap.Error(err))
		return core.ExitCodeError
	}
	logger.Info("goodbye")
	return core.ExitCodeSuccess
}
