// Package main - точка входа для Telegram-бота задач ректора.
//
// Бот соединяет ректора и сотрудников: ректор ставит задачи и следит
// за их выполнением, сотрудники принимают задачи в работу, завершают
// их и обсуждают в комментариях. Планировщик напоминает о дедлайнах.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: реализация репозиториев, Telegram API, очередь
// - Interface: Telegram Bot handlers, HTTP probes
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
	"github.com/univer-hub/rector-task-bot/internal/application/command"
	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/messaging"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/persistence/postgres"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/persistence/redis"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/scheduler"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/univer-hub/rector-task-bot/internal/interface/http"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram"
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
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting rector task bot",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ОЧЕРЕДЬ УВЕДОМЛЕНИЙ (Redis или in-memory)
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
		defer func() {
			log.Info("closing Redis connection...")
			_ = redisClient.Close()
		}()

		queue = redis.NewQueue(redisClient, redis.DefaultConfig())
		dedupe = redis.NewDedupe(redisClient)
		log.Info("Redis notification queue initialized")
	} else {
		log.Info("Redis disabled, using in-memory notification queue")
		queue = messaging.NewMemoryQueue(1024)
		dedupe = messaging.NewMemoryDedupe()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕПОЗИТОРИИ И EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	userRepo := postgres.NewUserRepository(dbConn)
	taskRepo := postgres.NewTaskRepository(dbConn)

	eventBus := messaging.NewEventBus(log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. TELEGRAM CLIENT И ДОСТАВКА УВЕДОМЛЕНИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot...")

	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПЛАНИРОВЩИК НАПОМИНАНИЙ
	// ─────────────────────────────────────────────────────────────────────────
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
	// 9. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	rectorPhone, err := shared.NewPhoneNumber(cfg.Telegram.RectorPhone)
	if err != nil {
		return fmt.Errorf("invalid RECTOR_PHONE: %w", err)
	}

	registerUserCmd := command.NewRegisterUserHandler(userRepo, queue, eventBus, rectorPhone, log)
	createTaskCmd := command.NewCreateTaskHandler(taskRepo, userRepo, queue, eventBus, log)
	editTaskCmd := command.NewEditTaskHandler(taskRepo, userRepo, queue, eventBus, log)
	deleteTaskCmd := command.NewDeleteTaskHandler(taskRepo, queue, eventBus, log)
	acceptTaskCmd := command.NewAcceptTaskHandler(taskRepo, userRepo, queue, eventBus, log)
	completeTaskCmd := command.NewCompleteTaskHandler(taskRepo, userRepo, queue, eventBus, log)
	addCommentCmd := command.NewAddCommentHandler(taskRepo, userRepo, queue, eventBus, log)
	triggerReminderCmd := command.NewTriggerReminderHandler(taskRepo, userRepo, queue, reminderJob, eventBus, log)

	listTasksQuery := query.NewListTasksHandler(taskRepo, userRepo)
	getTaskQuery := query.NewGetTaskHandler(taskRepo, userRepo)
	listStaffQuery := query.NewListStaffHandler(userRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. СОЗДАНИЕ БОТА
	// ─────────────────────────────────────────────────────────────────────────
	botDeps := telegram.BotDependencies{
		UserRepo:           userRepo,
		RegisterUserCmd:    registerUserCmd,
		CreateTaskCmd:      createTaskCmd,
		EditTaskCmd:        editTaskCmd,
		DeleteTaskCmd:      deleteTaskCmd,
		AcceptTaskCmd:      acceptTaskCmd,
		CompleteTaskCmd:    completeTaskCmd,
		AddCommentCmd:      addCommentCmd,
		TriggerReminderCmd: triggerReminderCmd,
		ListTasksQuery:     listTasksQuery,
		GetTaskQuery:       getTaskQuery,
		ListStaffQuery:     listStaffQuery,
	}

	bot, err := telegram.NewBot(botConfig, botDeps)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ДИСПЕТЧЕР УВЕДОМЛЕНИЙ
	// Бот-клиент выступает отправителем: доставляет уведомления из
	// очереди адресатам в Telegram.
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Queue:  queue,
		Sender: bot.Client(),
		Logger: log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP PROBES (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var opsServer *httpserver.Server
	if cfg.App.HealthAddr != "" {
		opsServer = httpserver.NewServer(httpserver.DefaultConfig(cfg.App.HealthAddr), httpserver.Dependencies{
			DB:       dbConn,
			Redis:    redisClient,
			BotStats: bot.GetStats,
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
	// 13. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting services...")

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 3)

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

	go func() {
		if err := bot.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 14. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("rector task bot is running",
		"health_addr", cfg.App.HealthAddr,
		"reminders_enabled", cfg.Reminder.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		cancelRun()
		return err
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	cancelRun()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	log.Info("stopping Telegram bot...")
	if err := bot.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", "error", err)
		shutdownErr = err
	}

	if cfg.Reminder.Enabled {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
			shutdownErr = err
		}
	}

	log.Info("stopping notification dispatcher...")
	dispatcher.Stop()

	if opsServer != nil {
		log.Info("stopping HTTP server...")
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", "error", err)
			shutdownErr = err
		}
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
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

// parseLogLevel преобразует строковый уровень в slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
