package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/handlers"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/services/archive"
	"github.com/ternarybob/aranea/internal/services/fetcher"
	"github.com/ternarybob/aranea/internal/services/markdown"
	"github.com/ternarybob/aranea/internal/services/policy"
	"github.com/ternarybob/aranea/internal/services/scrapers"
	"github.com/ternarybob/aranea/internal/services/sources"
	"github.com/ternarybob/aranea/internal/services/spider"
	"github.com/ternarybob/aranea/internal/storage/sqlite"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Fetch pipeline. ArchiveService stays nil when archiving is
	// disabled; the fallback client and replay handler both tolerate
	// that.
	FetchClient    interfaces.FetchClient
	ArchiveService interfaces.ArchiveService

	// Extraction and policy services
	ScraperService  interfaces.ScraperService
	FilterService   interfaces.FilterService
	PriorityService interfaces.PriorityService
	MarkdownService interfaces.MarkdownService

	// Crawl scheduler and catalog seeding
	SpiderService interfaces.SpiderService
	SeederService interfaces.SeederService
	cron          *cron.Cron

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	ScrapeHandler  *handlers.ScrapeHandler
	SpiderHandler  *handlers.SpiderHandler
	JobHandler     *handlers.JobHandler
	ArchiveHandler *handlers.ArchiveHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Push live queue stats to websocket clients
	app.WSHandler.StartStatsBroadcaster(app.ctx)

	if cfg.Spider.AutoStart {
		if err := app.SpiderService.Start(app.ctx); err != nil {
			return nil, fmt.Errorf("failed to start spider: %w", err)
		}
		logger.Debug().Int("workers", cfg.Spider.MaxWorkers).Msg("Spider started")
	}

	if cfg.Sources.SeedOnStart {
		common.SafeGo(logger, "startup-seed", func() {
			summary := app.SeederService.SeedAll(app.ctx)
			logger.Info().
				Int("enqueued", summary.Enqueued).
				Int("skipped", summary.Skipped).
				Msg("Startup seed complete")
		})
	}

	if app.cron != nil {
		app.cron.Start()
		logger.Debug().
			Str("schedule", cfg.Sources.RefreshSchedule).
			Msg("Source refresh schedule started")
	}

	logger.Info().
		Int("workers", cfg.Spider.MaxWorkers).
		Bool("auto_start", cfg.Spider.AutoStart).
		Bool("archive_enabled", cfg.Archive.Enabled).
		Bool("browser_tier", cfg.Fetch.BrowserWebSocketURL != "").
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the SQLite storage layer
func (a *App) initDatabase() error {
	manager, err := sqlite.NewManager(a.Logger, &a.Config.Storage.SQLite)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = manager
	a.Logger.Debug().
		Str("storage", "sqlite").
		Str("path", a.Config.Storage.SQLite.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds the fetch pipeline, policies, scheduler and seeder
func (a *App) initServices() error {
	cfg := a.Config

	if cfg.Archive.Enabled {
		archiveService, err := archive.NewService(cfg.Archive, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create archive service: %w", err)
		}
		a.ArchiveService = archiveService
		a.Logger.Debug().Str("path", cfg.Archive.Path).Msg("Fetch archive initialized")
	}

	// Direct tier with per-host rate limiting, wrapped in the retry chain
	direct := fetcher.NewDirectClient(
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithTimeout(cfg.Fetch.Timeout()),
		fetcher.WithPerHostRPS(cfg.Fetch.PerHostRPS),
		fetcher.WithLogger(a.Logger),
	)
	primary := fetcher.WithRetry(direct, cfg.Retry, cfg.Spider.Cooldown(), a.Logger)

	// Browser tier only when a DevTools endpoint is configured. The
	// variable must stay a nil interface otherwise so the fallback
	// client skips the tier entirely.
	var browser interfaces.FetchClient
	if cfg.Fetch.BrowserWebSocketURL != "" {
		browserClient := fetcher.NewBrowserClient(
			cfg.Fetch.BrowserWebSocketURL,
			fetcher.WithBrowserWait(cfg.Fetch.AdditionalWait()),
			fetcher.WithBrowserLogger(a.Logger),
		)
		browser = fetcher.WithRetry(browserClient, cfg.Retry, cfg.Spider.Cooldown(), a.Logger)
		a.Logger.Debug().
			Str("endpoint", cfg.Fetch.BrowserWebSocketURL).
			Msg("Browser fetch tier enabled")
	}

	a.FetchClient = fetcher.NewFallbackClient(primary, browser, a.ArchiveService, a.Logger)

	a.ScraperService = scrapers.NewService(a.FetchClient, a.Logger)
	a.FilterService = policy.NewDefaultFilterService(a.Logger)
	a.PriorityService = policy.NewPriorityPolicy()
	a.MarkdownService = markdown.NewConverter(a.Logger)

	a.SpiderService = spider.NewService(
		a.ScraperService,
		a.StorageManager.QueueStorage(),
		a.StorageManager.JobStorage(),
		a.StorageManager.ResultStorage(),
		a.FilterService,
		a.PriorityService,
		cfg.Spider,
		a.Logger,
	)

	catalog, err := sources.LoadCatalog(cfg.Sources.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load source catalog: %w", err)
	}
	a.SeederService = sources.NewSeeder(a.SpiderService, a.FetchClient, catalog, a.Logger)
	a.Logger.Debug().Int("sources", len(catalog)).Msg("Source catalog loaded")

	if cfg.Sources.RefreshSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.Sources.RefreshSchedule, func() {
			summary := a.SeederService.SeedAll(a.ctx)
			a.Logger.Info().
				Int("enqueued", summary.Enqueued).
				Int("skipped", summary.Skipped).
				Msg("Scheduled seed complete")
		})
		if err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Sources.RefreshSchedule, err)
		}
		a.cron = c
	}

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

// initHandlers wires the HTTP and websocket handlers
func (a *App) initHandlers() error {
	jobStore := a.StorageManager.JobStorage()
	resultStore := a.StorageManager.ResultStorage()

	a.APIHandler = handlers.NewAPIHandler(a.SpiderService, a.Logger)
	a.ScrapeHandler = handlers.NewScrapeHandler(a.ScraperService, a.FilterService, jobStore, resultStore, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.SpiderService, a.Config.WebSocket.StatsInterval(), a.Logger)
	a.SpiderHandler = handlers.NewSpiderHandler(a.SpiderService, a.SeederService, a.WSHandler, a.Logger)
	a.JobHandler = handlers.NewJobHandler(jobStore, resultStore, a.MarkdownService, a.Logger)
	a.ArchiveHandler = handlers.NewArchiveHandler(a.ArchiveService, a.Logger)

	a.Logger.Debug().Msg("Handlers initialized")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.Logger.Info().Msg("Cancelling background goroutines")
		a.cancelCtx()
		// Allow goroutines to finish gracefully
		time.Sleep(100 * time.Millisecond)
	}

	if a.cron != nil {
		a.cron.Stop()
	}

	if a.SpiderService != nil && a.SpiderService.IsRunning() {
		if err := a.SpiderService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop spider")
		}
	}

	if a.FetchClient != nil {
		if err := a.FetchClient.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close fetch client")
		}
	}

	if a.ArchiveService != nil {
		if err := a.ArchiveService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close fetch archive")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
