package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vodarr/vodarr/internal/database"
	"github.com/vodarr/vodarr/internal/observability"
	"github.com/vodarr/vodarr/internal/platform"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/syncer"
	"github.com/vodarr/vodarr/pkg/httpclient"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one refresh cycle and exit",
	Long: `Run a single refresh cycle over all enabled sources and exit.

Useful for cron-driven setups and for verifying configuration without
starting the server.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("no-download", false, "Skip the download phase for this run")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if noDownload, _ := cmd.Flags().GetBool("no-download"); noDownload {
		cfg.Sync.DownloadEnabled = false
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
	dlHTTPConfig.Timeout = 0
	dlHTTPConfig.Logger = observability.WithComponent(logger, "downloader")
	dlHTTPConfig.UserAgent = cfg.Platform.UserAgent
	downloader := syncer.NewHTTPDownloader(httpclient.New(dlHTTPConfig), dlHTTPConfig.Logger)

	sync := syncer.New(db.DB, apiClient, videoRepo, sourceRepo, downloader, cfg.Sync, cfg.Storage, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := sync.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("refresh cycle failed: %w", err)
	}

	fmt.Printf("synced %d sources: %d seen, %d inserted, %d fetched, %d downloaded (%s)\n",
		stats.Sources, stats.Seen, stats.Inserted, stats.Fetched, stats.Downloaded,
		stats.Duration.Round(time.Millisecond))
	if len(stats.Errors) > 0 {
		fmt.Printf("%d source errors:\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("  %s\n", e)
		}
		os.Exit(1)
	}
	return nil
}
