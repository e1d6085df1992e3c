package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshuasalcedo-dev/fx/internal/clipboard"
	"github.com/joshuasalcedo-dev/fx/internal/config"
	"github.com/joshuasalcedo-dev/fx/internal/database"
	"github.com/joshuasalcedo-dev/fx/internal/logger"
	"github.com/joshuasalcedo-dev/fx/internal/notify"
	"github.com/joshuasalcedo-dev/fx/internal/server"
	"github.com/joshuasalcedo-dev/fx/internal/update"
)

// Build-time variables (set by GoReleaser)
var (
	Version = "0.0.0-dev"
)

func main() {
	applyUpdate := flag.Bool("update", false, "apply the latest release and exit")
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log := logger.Get()

	dataDir, err := defaultDataDir()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve data directory")
	}

	if *configPath == "" {
		*configPath = filepath.Join(dataDir, "config.json")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fallback := logger.Get()
		fallback.Fatal().Err(err).Msg("invalid logging config")
	}

	if *applyUpdate {
		runUpdate(log)
		return
	}

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "clipboard.db")
	}
	repo, err := database.NewRepository(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(log)
	notifier := notify.NewNotifier(log, hub)

	service := clipboard.NewService(repo, notifier, time.Duration(cfg.DedupWindowHours)*time.Hour, log)

	worker := clipboard.NewCleanupWorker(
		service,
		time.Duration(cfg.CleanupInitialDelayMinutes)*time.Minute,
		time.Duration(cfg.CleanupIntervalHours)*time.Hour,
		cfg.RetentionHours,
		log,
	)
	worker.Start(ctx)
	defer worker.Stop()

	monitor := clipboard.NewMonitor(service, time.Duration(cfg.MonitorInterval)*time.Millisecond, cfg.MaxItemSize, log)
	if err := monitor.Start(ctx); err != nil {
		// The API and history remain usable; capture can be started later
		// through the monitor endpoint.
		log.Error().Err(err).Msg("failed to start clipboard monitoring")
	}
	defer monitor.Stop()

	if cfg.CheckUpdatesOnStartup {
		go func() {
			if checker, err := update.NewChecker(Version, log); err == nil {
				checker.CheckAndLog(ctx)
			}
		}()
	}

	srv := server.New(cfg.HTTPAddr, server.NewHandler(service, monitor, log), hub, log)
	go func() {
		if err := srv.Run(); err != nil {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	log.Info().Str("version", Version).Str("addr", cfg.HTTPAddr).Msg("fx started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

func runUpdate(log zerolog.Logger) {
	checker, err := update.NewChecker(Version, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create update checker")
	}
	ctx := context.Background()
	release, err := checker.Check(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("update check failed")
	}
	if release == nil {
		log.Info().Str("version", Version).Msg("already running the latest version")
		return
	}
	if err := checker.Apply(ctx, release); err != nil {
		log.Fatal().Err(err).Msg("update failed")
	}
}

func defaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dataDir := filepath.Join(homeDir, ".fx")
	return dataDir, os.MkdirAll(dataDir, 0755)
}
