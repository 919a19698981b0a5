package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opendvr/tvcore/internal/config"
	"github.com/opendvr/tvcore/internal/database"
	"github.com/opendvr/tvcore/internal/dvbnet"
	"github.com/opendvr/tvcore/internal/epgscrape"
	"github.com/opendvr/tvcore/internal/models"
	"github.com/opendvr/tvcore/internal/observability"
	"github.com/opendvr/tvcore/internal/repository"
	"github.com/opendvr/tvcore/internal/settings"
	"github.com/opendvr/tvcore/internal/sysstats"
	"github.com/opendvr/tvcore/internal/util"
	"github.com/opendvr/tvcore/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tvarr daemon",
	Long: `Run the tvarr daemon.

This starts the EPG scrape worker and its periodic rescan scheduler,
and loads configured DVB network records, all backed by the
database configured in the config file. There is no HTTP surface;
subscriptions are driven by whatever embeds this process as a
library (see internal/transcode).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("database", "tvarr.db", "Database file path")
	viper.BindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)
	logger.Info("starting tvarr", "version", version.Short())

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(
		&models.Setting{},
		&models.DVBNetwork{},
		&models.Brand{},
		&models.Season{},
		&models.Episode{},
		&models.Broadcast{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settingsRepo := repository.NewSettingsRepository(db.DB)
	scrapeStore := settings.NewScrapeStore(settingsRepo, nil)
	if err := scrapeStore.Load(ctx); err != nil {
		return fmt.Errorf("loading scrape settings: %w", err)
	}
	scrapeSnapshot := scrapeStore.GetConfig()

	exec := scrapeSnapshot.Exec
	if exec == "" {
		exec = cfg.Scrape.Exec
	}
	if exec != "" {
		if resolved, err := util.FindBinary(exec, "TVARR_SCRAPE_EXEC"); err == nil {
			exec = resolved
		} else {
			logger.Warn("scrape executable not found, leaving configured value unresolved", "exec", exec, "error", err)
		}
	}

	var modelLock sync.Mutex
	worker := epgscrape.New(epgscrape.Config{
		Enabled:    scrapeSnapshot.Enabled,
		Exec:       exec,
		Timeout:    cfg.Scrape.Timeout,
		YieldAfter: cfg.Scrape.YieldInterval,
		Broadcasts: repository.NewBroadcastRepository(db.DB),
		Brands:     repository.NewBrandRepository(db.DB),
		Seasons:    repository.NewSeasonRepository(db.DB),
		Episodes:   repository.NewEpisodeRepository(db.DB),
		Logger:     logger,
	}, &modelLock)
	worker.Start(ctx)
	defer worker.Stop()

	scheduler, err := epgscrape.NewScheduler(cfg.Scrape.RescanCron, worker, repository.NewBroadcastRepository(db.DB), logger)
	if err != nil {
		return fmt.Errorf("starting scrape scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	dvbLoader := dvbnet.NewLoader(repository.NewDVBNetworkRepository(db.DB))
	networks, err := dvbLoader.Init(ctx)
	if err != nil {
		return fmt.Errorf("loading dvb networks: %w", err)
	}
	logger.Info("loaded dvb networks", "count", len(networks))

	stats := sysstats.NewCollector(cfg.Database.DSN)
	go stats.Run(ctx, 5*time.Minute, func(s sysstats.Snapshot) {
		logger.Info("host stats",
			"cpu_percent", s.CPUPercent,
			"memory_percent", s.MemoryPercent,
			"disk_percent", s.DiskPercent,
			"load1", s.LoadAvg1,
		)
	})

	logger.Info("tvarr daemon ready")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
