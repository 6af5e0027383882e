// Package main is the entry point for the portal monitor.
//
// The monitor logs into the student's academic web portal, polls attendance
// and marks on a schedule, diffs each cycle against the last known state,
// and pushes Telegram alerts when something moved. The same data is
// available on demand through bot commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/portal-watch/portal-watch/config"
	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/cache"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/pdfreport"
	"github.com/portal-watch/portal-watch/internal/infrastructure/persistence/postgres"
	"github.com/portal-watch/portal-watch/internal/infrastructure/persistence/redis"
	"github.com/portal-watch/portal-watch/internal/infrastructure/scheduler"
	"github.com/portal-watch/portal-watch/internal/infrastructure/scheduler/jobs"
	"github.com/portal-watch/portal-watch/internal/interface/telegram"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting portal monitor",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (optional)
	// Without a database the baseline state lives in memory only.
	// ─────────────────────────────────────────────────────────────────────────
	var stateStore monitor.StateStore
	var historyRepo *postgres.HistoryRepo

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		stateStore = postgres.NewStateStore(dbConn, log)

		if cfg.Features.IsEnabled(config.FeaturePollHistory) {
			historyRepo = postgres.NewHistoryRepo(dbConn, log)
			if pruned, err := historyRepo.Prune(ctx, cfg.Database.HistoryRetention); err != nil {
				log.Warn("poll history prune failed", "error", err)
			} else if pruned > 0 {
				log.Info("poll history pruned", "rows", pruned)
			}
		}

		log.Info("database ready")
	} else {
		log.Warn("no DATABASE_URL configured, state will not survive restarts")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MARKS CACHE (Redis or in-memory)
	// ─────────────────────────────────────────────────────────────────────────
	var snapshots monitor.SnapshotCache
	var lists monitor.ListCache

	if cfg.Features.IsEnabled(config.FeatureRedisCache) {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, using in-memory cache", "error", err)
		} else {
			defer redisCache.Close()
			snapshots = redis.NewTypedCache[*portal.MarksSnapshot](redisCache, log)
			lists = redis.NewTypedCache[[]string](redisCache, log)
			log.Info("Redis connection established")
		}
	}

	if snapshots == nil {
		snapshots = cache.New[*portal.MarksSnapshot](cfg.Portal.CacheTTL)
		lists = cache.New[[]string](cfg.Portal.CacheTTL)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. PORTAL CLIENT AND APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing portal client...")

	clientConfig := webportal.DefaultClientConfig(cfg.Portal.BaseURL, cfg.Portal.Username, cfg.Portal.Password)
	clientConfig.Timeout = cfg.Portal.RequestTimeout
	portalClient := webportal.NewClient(clientConfig)

	attendanceConfig := monitor.DefaultAttendanceConfig()
	attendanceConfig.DetailEnhancement = cfg.Features.IsEnabled(config.FeatureDetailEnhancement)
	aggregator := monitor.NewAttendanceAggregator(portalClient, attendanceConfig, log)

	marksConfig := monitor.DefaultMarksConfig()
	marksConfig.CacheTTL = cfg.Portal.CacheTTL
	marksConfig.PDFFallback = cfg.Features.IsEnabled(config.FeaturePDFFallback)
	resolver := monitor.NewMarksResolver(portalClient, pdfreport.New(), snapshots, lists, marksConfig, log)

	detector := portal.NewChangeDetector(cfg.Monitor.AttendanceThreshold)

	var notices monitor.NoticeSource
	if cfg.Features.IsEnabled(config.FeatureNoticeAlerts) {
		notices = portalClient
	}

	service := monitor.NewService(aggregator, resolver, detector, notices, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. POLLER
	// The notifier is attached after the bot exists: it sends through the
	// bot's Telegram client.
	// ─────────────────────────────────────────────────────────────────────────
	pollerConfig := monitor.PollerConfig{
		Interval:          cfg.Monitor.PollInterval,
		FailureEscalation: cfg.Monitor.FailureEscalation,
	}
	poller := monitor.NewPoller(service, nil, stateStore, pollerConfig, log)

	if historyRepo != nil {
		poller.SetHistory(historyRepo)
	}

	if err := poller.Restore(ctx); err != nil {
		log.Warn("failed to restore previous state", "error", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. TELEGRAM BOT AND NOTIFIER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot...")

	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token, cfg.Telegram.OwnerChatID)
	botConfig.PassphraseHash = cfg.Telegram.PassphraseHash
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log
	botConfig.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout

	bot, err := telegram.NewBot(botConfig, telegram.BotDependencies{
		Service: service,
		Poller:  poller,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	notifier := telegram.NewNotifier(bot.Client(), telegram.NotifierConfig{
		OwnerChatID: cfg.Telegram.OwnerChatID,
		Threshold:   cfg.Monitor.AttendanceThreshold,
		Logger:      log,
	})
	poller.SetNotifier(notifier)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")

		schedConfig := scheduler.DefaultSchedulerConfig()
		schedConfig.Logger = log
		schedConfig.Timezone = cfg.App.Location
		sched = scheduler.NewScheduler(schedConfig)

		checkConfig := jobs.DefaultPortalCheckConfig()
		checkConfig.Timeout = cfg.Scheduler.JobTimeout
		checkJob := jobs.NewPortalCheckJob(poller, checkConfig, log)
		if err := sched.Register(checkJob, checkJob.Schedule()); err != nil {
			return fmt.Errorf("failed to register portal check job: %w", err)
		}

		digestConfig := jobs.DefaultDailyDigestConfig()
		digestConfig.SendTime = cfg.Scheduler.DailyDigestHour
		digestConfig.Timezone = cfg.App.Location
		digestConfig.EnableDigest = cfg.Features.IsEnabled(config.FeatureDailyDigest)
		digestConfig.Timeout = cfg.Scheduler.JobTimeout
		digestJob := jobs.NewDailyDigestJob(service, notifier, digestConfig, log)
		if err := sched.Register(digestJob, digestJob.Schedule()); err != nil {
			return fmt.Errorf("failed to register daily digest job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Warn("scheduler disabled, portal will only be checked on demand")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. RUN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := bot.Start(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
		close(errCh)
	}()

	log.Info("portal monitor is running",
		"poll_interval", poller.Interval(),
		"threshold", cfg.Monitor.AttendanceThreshold,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("service error", "error", err)
			cancel()
			return err
		}
	}

	cancel()

	// Bot.Start waits for in-flight handlers before returning.
	if err, ok := <-errCh; ok && err != nil {
		log.Warn("shutdown completed with errors", "error", err)
		return nil
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging from the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
