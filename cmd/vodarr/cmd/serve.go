package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vodarr/vodarr/internal/database"
	internalhttp "github.com/vodarr/vodarr/internal/http"
	"github.com/vodarr/vodarr/internal/http/handlers"
	"github.com/vodarr/vodarr/internal/observability"
	"github.com/vodarr/vodarr/internal/platform"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/scheduler"
	"github.com/vodarr/vodarr/internal/syncer"
	"github.com/vodarr/vodarr/internal/version"
	"github.com/vodarr/vodarr/pkg/httpclient"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vodarr server",
	Long: `Start the vodarr HTTP server and background sync scheduler.

The server provides:
- REST API for managing sources and browsing synced videos
- Manual sync triggering and status
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	videoRepo := repository.NewVideoRepository(db.DB)
	sourceRepo := repository.NewSourceRepository(db.DB)

	apiClient := platform.NewClient(cfg.Platform, observability.WithComponent(logger, "platform"))

	dlHTTPConfig := httpclient.DefaultConfig()
	dlHTTPConfig.Timeout = 0 // large media transfers; rely on context cancellation
	dlHTTPConfig.Logger = observability.WithComponent(logger, "downloader")
	dlHTTPConfig.UserAgent = cfg.Platform.UserAgent
	downloader := syncer.NewHTTPDownloader(httpclient.New(dlHTTPConfig), dlHTTPConfig.Logger)

	sync := syncer.New(db.DB, apiClient, videoRepo, sourceRepo, downloader, cfg.Sync, cfg.Storage, logger)

	sched, err := scheduler.New(sync, cfg.Sync, observability.WithComponent(logger, "scheduler"))
	if err != nil {
		return err
	}

	server := internalhttp.NewServer(cfg.Server, logger, version.Short())

	handlers.NewHealthHandler(version.Short()).
		WithDB(db.DB).
		WithVideos(videoRepo).
		WithSyncer(sync).
		Register(server.API())
	handlers.NewSourceHandler(sourceRepo, videoRepo).Register(server.API())
	handlers.NewVideoHandler(videoRepo).Register(server.API())
	handlers.NewSyncHandler(sync, sched, logger).Register(server.API())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	logger.Info("vodarr starting",
		slog.String("version", version.Short()),
		slog.String("address", cfg.Server.Address()),
		slog.String("database", cfg.Database.Driver),
	)

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("vodarr stopped")
	return nil
}
