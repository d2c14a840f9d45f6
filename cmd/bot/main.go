package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glotok-bot/glotok/internal/bot"
	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	"github.com/glotok-bot/glotok/internal/clock"
	"github.com/glotok-bot/glotok/internal/database"
	"github.com/glotok-bot/glotok/internal/health"
	"github.com/glotok-bot/glotok/internal/i18n"
	"github.com/glotok-bot/glotok/internal/idempotency"
	"github.com/glotok-bot/glotok/internal/intake"
	"github.com/glotok-bot/glotok/internal/jobs"
	jobhandlers "github.com/glotok-bot/glotok/internal/jobs/handlers"
	"github.com/glotok-bot/glotok/internal/lifecycle"
	"github.com/glotok-bot/glotok/internal/middleware"
	"github.com/glotok-bot/glotok/internal/notify"
	"github.com/glotok-bot/glotok/internal/policy"
	"github.com/glotok-bot/glotok/internal/ratelimit"
	"github.com/glotok-bot/glotok/internal/repository"
	"github.com/glotok-bot/glotok/internal/schedule"
	"github.com/glotok-bot/glotok/internal/scheduler"
	"github.com/glotok-bot/glotok/internal/state"
	"github.com/glotok-bot/glotok/internal/user"
	"github.com/glotok-bot/glotok/internal/usercache"
	"github.com/glotok-bot/glotok/pkg/config"
	"github.com/glotok-bot/glotok/pkg/graceful"
	"github.com/glotok-bot/glotok/pkg/logger"
	"github.com/glotok-bot/glotok/pkg/metrics"
	redisclient "github.com/glotok-bot/glotok/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Logger, cfg.Sentry.Enabled)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			log.Error("failed to initialize sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log.Info("starting hydration bot", "env", cfg.AppEnv, "http_port", cfg.Server.Port)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", "error", cerr)
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		log.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redisclient.New(ctx, redisclient.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	rdb := redisClient.Client

	stateStorage := state.NewRedisStorage(rdb, log)
	fsm := state.NewStateMachine(stateStorage, log, rdb)
	stateCleaner := state.NewCleaner(stateStorage, log, 24*time.Hour, time.Hour)

	idemStore := idempotency.NewRedisStore(rdb, log)
	idemManager := idempotency.NewManager(idemStore, log)
	idemCleaner := idempotency.NewCleaner(rdb, log, time.Hour)

	profileRepo := repository.NewProfileRepository(db, log)
	intakeRepo := repository.NewIntakeRepository(db, log)
	cache := usercache.NewCache(redisclient.NewMetricsClient(redisClient))

	clocks, err := clock.NewAdapter(clock.System(), cfg.Reminders.DefaultTimezone, log)
	if err != nil {
		log.Error("invalid default timezone", "timezone", cfg.Reminders.DefaultTimezone, "error", err)
		os.Exit(1)
	}

	engine := policy.NewEngine(intakeRepo, clocks, log)
	store := schedule.NewRedisStore(rdb, log)
	counter := schedule.NewDeliveryCounter(rdb)
	rearmer := scheduler.NewRearmer(profileRepo, engine, store, rdb, clocks, cfg.Scheduler.LockTTL, log)

	userService := user.NewService(profileRepo, cache, rearmer, clocks, cfg.Reminders.DefaultTimezone, log)
	intakeService := intake.NewService(intakeRepo, rearmer, clocks, log)

	rlRules := ratelimit.NewRules(cfg.RateLimit)
	rlLimiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(rdb, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	rlMw := middleware.NewRateLimitMiddleware(rlLimiter, rlRules, log)
	rlCleaner := ratelimit.NewCleaner(rdb, log, 10*time.Minute)

	kb := keyboard.NewBuilder(log)

	b, err := bot.New(*cfg, log, db, fsm, idemManager, rlMw, userService, intakeService, kb)
	if err != nil {
		log.Error("failed to initialize bot", "error", err)
		os.Exit(1)
	}

	i18nDir := cfg.I18n.Dir
	if i18nDir == "" {
		i18nDir = "internal/i18n"
	}
	translations, err := i18n.LoadFromDir(i18nDir, cfg.I18n.DefaultLanguage)
	if err != nil {
		log.Error("failed to load translations", "error", err)
		os.Exit(1)
	}

	sender := notify.NewTelegramSender(b.Telebot(), kb, translations.Translator(""), profileRepo, log)
	loop := scheduler.NewLoop(store, profileRepo, rearmer, sender, counter, clocks, scheduler.LoopConfig{
		PollInterval:    cfg.Scheduler.PollInterval,
		DeliveryTimeout: cfg.Scheduler.DeliveryTimeout,
		Concurrency:     cfg.Scheduler.Concurrency,
		BatchSize:       cfg.Scheduler.BatchSize,
		DailyCap:        cfg.Reminders.DailyCap,
	}, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	worker := jobs.NewWorker(redisOpt, map[string]int{
		jobs.QueueCritical: 6,
		jobs.QueueDefault:  3,
		jobs.QueueLow:      1,
	}, log)
	worker.RegisterHandler(jobs.TaskTypeRollover, jobhandlers.NewRolloverHandler(profileRepo, store, rearmer, log))
	worker.RegisterHandler(jobs.TaskTypeLedgerCleanup, jobhandlers.NewLedgerCleanupHandler(intakeRepo, log))

	jobScheduler := jobs.NewScheduler(redisOpt, cfg.Reminders.RetentionDays, log)
	if err := jobScheduler.RegisterTasks(); err != nil {
		log.Error("failed to register recurring tasks", "error", err)
		os.Exit(1)
	}

	jobManager := jobs.NewManager(redisOpt, log)
	// Sweep right away so reminders lost during downtime are re-armed.
	if _, err := jobManager.Enqueue(ctx, jobs.NewRolloverTask()); err != nil {
		log.Warn("failed to enqueue startup sweep", "error", err)
	}

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rdb))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	httpSrv := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           logger.Middleware(middleware.New(log)(httpHandler(checker))),
		ReadHeaderTimeout: 5 * time.Second,
	}, shutdownTimeout)

	go loop.Run(ctx)
	go stateCleaner.Run(ctx)
	go idemCleaner.Run(ctx)
	go rlCleaner.Run(ctx)
	go metrics.NewStateCollector(fsm).Run(ctx)
	go metrics.NewQueueCollector(store).Run(ctx)
	go func() {
		if err := httpSrv.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped with error", "error", err)
		}
	}()
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped with error", "error", err)
		}
	}()
	jobScheduler.Run()
	go b.Start()

	log.Info("hydration bot started")

	<-ctx.Done()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram bot", func(context.Context) error {
		b.Stop()
		return nil
	})
	shutdown.Register("jobs worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("jobs scheduler", func(context.Context) error {
		jobScheduler.Shutdown()
		return nil
	})
	shutdown.Register("jobs manager", func(context.Context) error {
		return jobManager.Close()
	})
	shutdown.Register("redis", func(context.Context) error {
		return redisClient.Close()
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
	}

	log.Info("hydration bot stopped")
}

func httpHandler(checker *health.Checker) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.WriteHeader(status)
		for name, result := range results {
			_, _ = w.Write([]byte(name + ": " + result + "\n"))
		}
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
