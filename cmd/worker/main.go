// Package main - фоновый worker бота задач ректора.
//
// Worker не опрашивает Telegram: он доставляет уведомления из очереди
// и запускает планировщик напоминаний о дедлайнах. Это позволяет
// разнести polling и доставку по отдельным процессам.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/univer-hub/rector-task-bot/config"
	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/external/telegram"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/messaging"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/persistence/postgres"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/persistence/redis"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/scheduler"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/univer-hub/rector-task-bot/internal/interface/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting rector task bot worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. БАЗА ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Worker не гоняет миграции: этим занимается процесс бота.
	taskRepo := postgres.NewTaskRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ОЧЕРЕДЬ УВЕДОМЛЕНИЙ
	// Worker имеет смысл только с Redis: общая очередь между процессами.
	// ─────────────────────────────────────────────────────────────────────────
	var (
		queue       notification.Queue
		dedupe      notification.Deduplicator
		redisClient *goredis.Client
	)

	if !cfg.Redis.Disabled && cfg.Redis.URL != "" {
		log.Info("connecting to Redis...")
		redisClient, err = redis.NewClientFromURL(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		queue = redis.NewQueue(redisClient, redis.DefaultConfig())
		dedupe = redis.NewDedupe(redisClient)
	} else {
		log.Warn("Redis disabled: worker will only see its own queue")
		queue = messaging.NewMemoryQueue(1024)
		dedupe = messaging.NewMemoryDedupe()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. TELEGRAM CLIENT (только отправка)
	// ─────────────────────────────────────────────────────────────────────────
	clientConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	clientConfig.Logger = log
	clientConfig.Debug = cfg.App.Debug
	client := telegram.NewClient(clientConfig)

	if !client.IsHealthy(ctx) {
		return errors.New("telegram token check failed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ДИСПЕТЧЕР И ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Queue:  queue,
		Sender: client,
		Logger: log,
	})

	reminderJob := jobs.NewDeadlineRemindersJob(taskRepo, queue, dedupe, log, jobs.DeadlineRemindersConfig{
		Lookahead: cfg.Reminder.Lookahead,
		DedupeTTL: cfg.Reminder.DedupeTTL,
		Timeout:   cfg.Reminder.JobTimeout,
		Timezone:  cfg.App.Location,
	})

	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
	})
	if cfg.Reminder.Enabled {
		if err := sched.Register(reminderJob, scheduler.NewIntervalSchedule(cfg.Reminder.Interval)); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP PROBES (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var opsServer *httpserver.Server
	if cfg.App.HealthAddr != "" {
		opsServer = httpserver.NewServer(httpserver.DefaultConfig(cfg.App.HealthAddr), httpserver.Dependencies{
			DB:    dbConn,
			Redis: redisClient,
			DispatcherStats: func() map[string]int64 {
				m := dispatcher.Metrics()
				return map[string]int64{
					"delivered": m.Delivered,
					"failed":    m.Failed,
					"dropped":   m.Dropped,
				}
			},
			Version: cfg.App.Version,
		})
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 1)

	dispatcher.Start(runCtx)

	if cfg.Reminder.Enabled {
		if err := sched.Start(runCtx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	if opsServer != nil {
		go func() {
			if err := opsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	log.Info("worker is running",
		"reminders_enabled", cfg.Reminder.Enabled,
		"health_addr", cfg.App.HealthAddr,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...")
	cancelRun()

	if cfg.Reminder.Enabled {
		if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			log.Error("failed to stop scheduler", "error", err)
		}
	}
	dispatcher.Stop()

	if opsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", "error", err)
		}
	}

	log.Info("worker shutdown completed")
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
