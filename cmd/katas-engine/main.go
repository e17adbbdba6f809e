package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wko-katas/katas-engine/internal/api"
	"github.com/wko-katas/katas-engine/internal/auth"
	"github.com/wko-katas/katas-engine/internal/catalog"
	"github.com/wko-katas/katas-engine/internal/config"
	"github.com/wko-katas/katas-engine/internal/refresh"
	"github.com/wko-katas/katas-engine/internal/services"
	"github.com/wko-katas/katas-engine/internal/source"
	"github.com/wko-katas/katas-engine/internal/storage"
	"github.com/wko-katas/katas-engine/internal/thumbnail"
	"github.com/wko-katas/katas-engine/internal/viewer"
)

// stores groups the persistence backends picked from configuration
type stores struct {
	states storage.StateStore
	users  storage.UserStore
	ping   services.PingFunc
	close  func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting katas-engine",
		"app", cfg.App.Name,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
	)

	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		slog.Warn("using the default JWT secret; set JWT_SECRET in production")
	}

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize service registry
	registry := services.NewRegistry()

	st, err := openStores(initCtx, cfg, registry, logger)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	registry.Register("state_store", services.NewFuncProvider(cfg.Storage.Backend, st.ping))

	// Thumbnail cache: Redis when enabled, in-process otherwise
	var thumbCache thumbnail.Cache
	if cfg.Redis.Enabled {
		redisProvider, err := services.NewRedisProvider(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to create redis provider", "error", err)
			os.Exit(1)
		}
		defer redisProvider.Close()
		registry.Register("redis", redisProvider)
		thumbCache = storage.NewRedisThumbnailCache(redisProvider.Client(), 0)
		slog.Info("redis thumbnail cache enabled", "address", cfg.Redis.Address)
	}

	// Video source
	var (
		videos      source.Repository
		lister      catalog.Lister
		thumbSource thumbnail.Source
	)
	if cfg.Drive.Enabled() {
		drive, err := source.NewDrive(initCtx, source.DriveConfig{
			CredentialsJSON: []byte(cfg.Drive.CredentialsJSON),
			CredentialsFile: cfg.Drive.CredentialsFile,
			URLTTL:          cfg.Drive.URLTTL,
		}, logger)
		if err != nil {
			slog.Error("failed to create drive source", "error", err)
			os.Exit(1)
		}
		videos, lister, thumbSource = drive, drive, drive
		registry.Register("drive", services.NewFuncProvider("drive", drive.Ping))
		slog.Info("drive source connected", "folder_id", cfg.Catalog.FolderID)
	} else {
		slog.Warn("no drive credentials configured; serving the catalog snapshot only",
			"snapshot", cfg.Catalog.SnapshotPath,
		)
	}

	var capturer thumbnail.FrameCapturer
	if cfg.Thumbnails.CaptureEnabled {
		ffmpeg := thumbnail.NewFFmpegCapturer(cfg.Thumbnails.FFmpegPath, cfg.Thumbnails.CaptureTimeout)
		if ffmpeg.Available() {
			capturer = ffmpeg
		} else {
			slog.Warn("ffmpeg not found; frame capture disabled", "path", cfg.Thumbnails.FFmpegPath)
		}
	}
	resolver := thumbnail.NewResolver(thumbCache, thumbSource, capturer, logger)

	// Catalog
	catalogStore := catalog.NewStore()
	loader := catalog.NewLoader(catalogStore, lister, catalog.LoaderConfig{
		FolderID:     cfg.Catalog.FolderID,
		SnapshotPath: cfg.Catalog.SnapshotPath,
	}, logger)
	refresher := refresh.NewRefresher(loader, cfg.Catalog.RefreshInterval, logger)

	if err := refresher.Refresh(initCtx); err != nil {
		slog.Warn("initial catalog load failed; retrying in background", "error", err)
	} else {
		info := catalogStore.Info()
		slog.Info("catalog loaded", "katas", info.Count, "origin", info.Origin)
	}

	// Auth
	authService, err := auth.NewService(st.users, auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: cfg.Auth.TokenTTL,
	}, logger)
	if err != nil {
		slog.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	created, err := authService.SeedAdmin(initCtx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminName)
	if err != nil {
		slog.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}
	if created {
		slog.Warn("bootstrap admin created; change its password", "username", cfg.Auth.AdminUsername)
	}

	slog.Info("health providers registered", "services", registry.List())

	viewers := viewer.NewManager(cfg.App.Name, catalogStore, st.states, resolver, logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start refresh worker
	refresher.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Deps{
		Auth:       authService,
		Catalog:    catalogStore,
		Viewers:    viewers,
		Videos:     videos,
		Thumbnails: resolver,
		Refresher:  refresher,
		Registry:   registry,
		Logger:     logger,
	})
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: video proxy and playback sockets are long-lived
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := st.close(); err != nil {
		slog.Error("storage close error", "error", err)
	}

	slog.Info("katas-engine stopped")
}

// openStores selects the state and user backends. Accounts live in Postgres
// when it is configured and in memory otherwise.
func openStores(ctx context.Context, cfg *config.Config, registry *services.Registry, logger *slog.Logger) (*stores, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		slog.Info("connecting to database")
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			return nil, err
		}

		slog.Info("running database migrations")
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}

		postgresProvider, err := services.NewPostgresProvider(ctx, cfg.Database.DSN)
		if err != nil {
			repo.Close()
			return nil, err
		}
		registry.Register("postgres", postgresProvider)

		return &stores{
			states: repo,
			users:  repo,
			ping:   repo.Ping,
			close: func() error {
				postgresProvider.Close()
				return repo.Close()
			},
		}, nil

	case config.BackendFile:
		fileStore, err := storage.NewFileStateStore(cfg.Storage.StateFile, logger)
		if err != nil {
			return nil, err
		}
		slog.Warn("user accounts are kept in memory with the file backend")

		return &stores{
			states: fileStore,
			users:  storage.NewMemoryRepository(),
			ping: func(ctx context.Context) error {
				_, err := os.Stat(fileStore.Path())
				if os.IsNotExist(err) {
					return nil
				}
				return err
			},
			close: func() error { return nil },
		}, nil

	default:
		repo := storage.NewMemoryRepository()
		return &stores{
			states: repo,
			users:  repo,
			ping:   repo.Ping,
			close:  repo.Close,
		}, nil
	}
}
