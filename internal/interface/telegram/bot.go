package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/application/command"
	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/external/telegram"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/handler"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/middleware"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// SessionTTL is how long an idle conversation survives.
	SessionTTL time.Duration

	// GracefulShutdownTimeout bounds the wait for in-flight handlers.
	GracefulShutdownTimeout time.Duration
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:                   token,
		Logger:                  slog.Default(),
		MaxConcurrentUpdates:    100,
		SessionTTL:              15 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// BotDependencies contains all dependencies for the bot handlers.
type BotDependencies struct {
	// Repositories
	UserRepo user.Repository

	// Commands
	RegisterUserCmd    *command.RegisterUserHandler
	CreateTaskCmd      *command.CreateTaskHandler
	EditTaskCmd        *command.EditTaskHandler
	DeleteTaskCmd      *command.DeleteTaskHandler
	AcceptTaskCmd      *command.AcceptTaskHandler
	CompleteTaskCmd    *command.CompleteTaskHandler
	AddCommentCmd      *command.AddCommentHandler
	TriggerReminderCmd *command.TriggerReminderHandler

	// Queries
	ListTasksQuery *query.ListTasksHandler
	GetTaskQuery   *query.GetTaskHandler
	ListStaffQuery *query.ListStaffHandler
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	logger *slog.Logger

	// Middleware chain
	authMiddleware     *middleware.AuthMiddleware
	rateLimiter        *middleware.RateLimiter
	recoveryMiddleware *middleware.RecoveryMiddleware
	metrics            *middleware.MetricsMiddleware

	// Handlers needing direct access from routing glue
	startHandler   *handler.StartHandler
	newTaskHandler *handler.NewTaskHandler
	actionsHandler *handler.TaskActionsHandler
	sessions       *handler.SessionStore

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	updateSem chan struct{}
	wg        sync.WaitGroup

	stats *BotStats
}

// BotStats holds update-level runtime counters. Per-command counters
// live in the metrics middleware.
type BotStats struct {
	mu              sync.RWMutex
	StartedAt       time.Time
	UpdatesReceived int64
	UpdatesHandled  int64
	ErrorsCount     int64
}

// NewBot creates a new Telegram bot with all dependencies wired.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = 100
	}

	clientConfig := telegram.DefaultClientConfig(config.Token)
	clientConfig.Logger = config.Logger
	clientConfig.Debug = config.Debug
	client := telegram.NewClient(clientConfig)

	keyboards := presenter.NewKeyboardBuilder()
	cards := presenter.NewTaskPresenter()
	sessions := handler.NewSessionStore(config.SessionTTL)

	startHandler := handler.NewStartHandler(deps.UserRepo, deps.RegisterUserCmd, cards, keyboards)
	tasksHandler := handler.NewTasksHandler(deps.ListTasksQuery, deps.GetTaskQuery, cards, keyboards)
	newTaskHandler := handler.NewNewTaskHandler(deps.CreateTaskCmd, sessions, keyboards)
	adminHandler := handler.NewTaskAdminHandler(deps.EditTaskCmd, keyboards)
	staffHandler := handler.NewStaffHandler(deps.ListStaffQuery, cards)
	helpHandler := handler.NewHelpHandler(deps.UserRepo)
	actionsHandler := handler.NewTaskActionsHandler(
		deps.AcceptTaskCmd,
		deps.CompleteTaskCmd,
		deps.DeleteTaskCmd,
		deps.AddCommentCmd,
		deps.TriggerReminderCmd,
		deps.GetTaskQuery,
		tasksHandler,
		sessions,
		keyboards,
	)

	authMiddleware := middleware.NewAuthMiddleware(deps.UserRepo, middleware.DefaultAuthConfig())
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	recoveryMiddleware := middleware.NewRecoveryMiddleware(middleware.DefaultRecoveryConfig())

	metricsConfig := middleware.DefaultMetricsConfig()
	metricsConfig.OnSlowRequest = func(command string, telegramID int64, duration time.Duration) {
		config.Logger.Warn("slow request",
			"command", command, "telegram_id", telegramID, "duration", duration)
	}
	metrics := middleware.NewMetricsMiddleware(metricsConfig)

	bot := &Bot{
		config:             config,
		client:             client,
		logger:             config.Logger,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		recoveryMiddleware: recoveryMiddleware,
		metrics:            metrics,
		startHandler:       startHandler,
		newTaskHandler:     newTaskHandler,
		actionsHandler:     actionsHandler,
		sessions:           sessions,
		updateSem:          make(chan struct{}, config.MaxConcurrentUpdates),
		stats:              &BotStats{},
	}

	router := NewRouter(config.Logger)

	// Commands.
	router.RegisterCommand("start", func(ctx context.Context, c CommandContext) error {
		req := handler.StartRequest{TelegramID: c.TelegramID}
		if c.Message != nil && c.Message.From != nil {
			req.Username = c.Message.From.Username
			req.FirstName = c.Message.From.FirstName
		}
		resp, err := startHandler.Handle(ctx, req)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("tasks", func(ctx context.Context, c CommandContext) error {
		resp, err := tasksHandler.List(ctx, c.TelegramID)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("alltasks", func(ctx context.Context, c CommandContext) error {
		resp, err := tasksHandler.Board(ctx, c.TelegramID)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("newtask", func(ctx context.Context, c CommandContext) error {
		if err := middleware.RequireRector(middleware.UserFromContext(ctx)); err != nil {
			_, sendErr := client.SendHTML(ctx, c.ChatID, "❌ Эта команда доступна только ректору.")
			return sendErr
		}
		return bot.respond(ctx, c.ChatID, 0, newTaskHandler.Begin(c.TelegramID), "", nil)
	})

	router.RegisterCommand("edit", func(ctx context.Context, c CommandContext) error {
		resp, err := adminHandler.Edit(ctx, c.TelegramID, c.Args)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("delete", func(ctx context.Context, c CommandContext) error {
		return bot.respond(ctx, c.ChatID, 0, adminHandler.ConfirmDelete(c.Args), "", nil)
	})

	router.RegisterCommand("staff", func(ctx context.Context, c CommandContext) error {
		resp, err := staffHandler.Roster(ctx, c.TelegramID)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("remind", func(ctx context.Context, c CommandContext) error {
		resp, err := actionsHandler.Remind(ctx, c.TelegramID, "")
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("export_users", func(ctx context.Context, c CommandContext) error {
		resp, err := staffHandler.Export(ctx, c.TelegramID)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("help", func(ctx context.Context, c CommandContext) error {
		resp, err := helpHandler.Handle(ctx, c.TelegramID)
		return bot.respond(ctx, c.ChatID, 0, resp, "", err)
	})

	router.RegisterCommand("cancel", func(ctx context.Context, c CommandContext) error {
		return bot.respond(ctx, c.ChatID, 0, newTaskHandler.Cancel(c.TelegramID), "", nil)
	})

	router.SetDefaultCommand(func(ctx context.Context, c CommandContext) error {
		_, err := client.SendHTML(ctx, c.ChatID,
			"❓ Неизвестная команда. Список команд: /help")
		return err
	})

	// Callbacks.
	router.RegisterCallbackPrefix("task:", bot.handleTaskCallback)
	router.RegisterCallbackPrefix("cmd:", bot.handleMenuCallback)
	router.RegisterCallbackPrefix("newtask:", func(ctx context.Context, cb CallbackContext) error {
		if cb.Data != "newtask:all" {
			return nil
		}
		resp, err := newTaskHandler.AssignToAll(ctx, cb.TelegramID)
		return bot.respond(ctx, cb.ChatID, cb.MessageID, resp, cb.QueryID, err)
	})

	// Conversation text input.
	router.RegisterTextInput(bot.handleConversationText)

	bot.router = router
	return bot, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start verifies the token and begins long polling. Blocks until ctx is
// cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.stats.StartedAt = time.Now()
	b.runningMu.Unlock()

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}
	b.logger.Info("bot verified", "id", me.ID, "username", me.Username)

	return b.client.StartPolling(ctx, b.handleUpdate)
}

// Stop waits for in-flight handlers to finish.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	b.logger.Info("stopping telegram bot")

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// IsRunning reports whether the bot is polling.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// Client returns the Telegram client (the worker shares it as the
// notification sender).
func (b *Bot) Client() *telegram.Client {
	return b.client
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// handleUpdate processes a single Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) error {
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	b.stats.mu.Lock()
	b.stats.UpdatesReceived++
	b.stats.mu.Unlock()

	start := time.Now()
	ctx = middleware.ContextWithTelegramID(ctx, extractTelegramID(update))

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		return nil
	}

	b.stats.mu.Lock()
	if err != nil {
		b.stats.ErrorsCount++
	} else {
		b.stats.UpdatesHandled++
	}
	b.stats.mu.Unlock()

	if err != nil {
		b.logger.Error("failed to handle update",
			"update_id", update.UpdateID,
			"error", err,
			"duration", time.Since(start),
		)
	}

	return err
}

// handleMessage processes a message: contact, command or text input.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg == nil || msg.From == nil || !telegram.IsPrivateChat(msg) {
		return nil
	}

	telegramID := msg.From.ID
	chatID := msg.Chat.ID

	// Shared contact — registration flow, no auth required.
	if msg.Contact != nil {
		return b.handleContact(ctx, telegramID, chatID, msg)
	}

	cmd := telegram.ExtractCommand(msg)
	if cmd != "" {
		return b.handleCommand(ctx, telegramID, chatID, cmd, telegram.ExtractCommandArgs(msg), msg)
	}

	if msg.Text != "" {
		return b.handleText(ctx, telegramID, chatID, msg)
	}

	return nil
}

// handleContact routes a shared contact to the registration handler.
func (b *Bot) handleContact(ctx context.Context, telegramID, chatID int64, msg *telegram.Message) error {
	contact := msg.Contact

	req := handler.ContactRequest{
		TelegramID:    telegramID,
		Username:      msg.From.Username,
		Phone:         contact.PhoneNumber,
		ContactUserID: contact.UserID,
		FirstName:     contact.FirstName,
		LastName:      contact.LastName,
	}

	resp, err := b.startHandler.HandleContact(ctx, req)
	if err == nil {
		// The role may have just changed from "unregistered".
		b.authMiddleware.InvalidateCache(telegramID)
	}
	return b.respond(ctx, chatID, 0, resp, "", err)
}

// handleCommand runs the middleware chain and routes a command.
func (b *Bot) handleCommand(ctx context.Context, telegramID, chatID int64, cmd, args string, msg *telegram.Message) (err error) {
	rec := b.metrics.Start(cmd, telegramID)
	defer func() { rec.End(err) }()

	rate := b.rateLimiter.Check(ctx, telegramID)
	if !rate.Allowed {
		_, err := b.client.SendHTML(ctx, chatID, fmt.Sprintf(
			"⏳ Слишком много запросов. Попробуйте через %d сек.",
			int(rate.RetryAfter.Seconds())+1,
		))
		return err
	}

	auth, err := b.authMiddleware.Authenticate(ctx, telegramID, cmd)
	if err != nil {
		b.logger.Error("auth error", "error", err, "telegram_id", telegramID)
		_, sendErr := b.client.SendHTML(ctx, chatID, "😔 Произошла ошибка. Попробуйте позже.")
		return sendErr
	}
	if !auth.ShouldContinue {
		_, err := b.client.SendHTML(ctx, chatID, auth.ResponseMessage)
		return err
	}
	if auth.User != nil {
		ctx = middleware.ContextWithUser(ctx, auth.User)
	}

	// A command always aborts any conversation in progress.
	if cmd != "cancel" {
		b.sessions.Clear(telegramID)
	}

	recovery := b.recoveryMiddleware.RecoverWithHandler(ctx, telegramID, cmd, func() error {
		return b.router.HandleCommand(ctx, cmd, CommandContext{
			TelegramID: telegramID,
			ChatID:     chatID,
			MessageID:  msg.MessageID,
			Args:       args,
			Message:    msg,
		})
	})

	if recovery.Recovered {
		b.logger.Error("panic recovered in command handler",
			"command", cmd, "telegram_id", telegramID)
		_, err := b.client.SendHTML(ctx, chatID, recovery.UserMessage)
		return err
	}

	if recovery.Err != nil {
		return b.sendErrorMessage(ctx, chatID, recovery.Err)
	}
	return nil
}

// handleText routes non-command text into the active conversation.
func (b *Bot) handleText(ctx context.Context, telegramID, chatID int64, msg *telegram.Message) error {
	auth, err := b.authMiddleware.Authenticate(ctx, telegramID, "")
	if err != nil {
		b.logger.Error("auth error", "error", err, "telegram_id", telegramID)
		return nil
	}
	if !auth.IsAuthenticated {
		_, err := b.client.SendHTML(ctx, chatID, auth.ResponseMessage)
		return err
	}
	ctx = middleware.ContextWithUser(ctx, auth.User)

	recovery := b.recoveryMiddleware.RecoverWithHandler(ctx, telegramID, "text", func() error {
		return b.router.HandleText(ctx, TextContext{
			TelegramID: telegramID,
			ChatID:     chatID,
			Text:       msg.Text,
			Message:    msg,
		})
	})

	if recovery.Recovered {
		_, err := b.client.SendHTML(ctx, chatID, recovery.UserMessage)
		return err
	}
	if recovery.Err != nil {
		return b.sendErrorMessage(ctx, chatID, recovery.Err)
	}
	return nil
}

// handleConversationText feeds text to the conversation handlers.
func (b *Bot) handleConversationText(ctx context.Context, txt TextContext) error {
	if resp, handled, err := b.newTaskHandler.HandleInput(ctx, txt.TelegramID, txt.Text); handled {
		return b.respond(ctx, txt.ChatID, 0, resp, "", err)
	}

	if resp, handled, err := b.actionsHandler.HandleCommentText(ctx, txt.TelegramID, txt.Text); handled {
		return b.respond(ctx, txt.ChatID, 0, resp, "", err)
	}

	// Registered user typed free text outside any conversation.
	_, err := b.client.SendHTML(ctx, txt.ChatID, "Используйте команды: /help")
	return err
}

// handleCallbackQuery processes an inline keyboard press.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *telegram.CallbackQuery) (err error) {
	if cq == nil || cq.From == nil {
		return nil
	}

	telegramID := cq.From.ID
	rec := b.metrics.Start("callback", telegramID)
	defer func() { rec.End(err) }()
	var chatID, messageID int64
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
		messageID = cq.Message.MessageID
	}

	// Always answer so the button stops spinning.
	answered := false
	defer func() {
		if !answered {
			_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "", false)
		}
	}()

	rate := b.rateLimiter.Check(ctx, telegramID)
	if !rate.Allowed {
		answered = true
		return b.client.AnswerCallbackQuery(ctx, cq.ID, "⏳ Слишком быстро, подождите.", true)
	}

	auth, err := b.authMiddleware.Authenticate(ctx, telegramID, "callback")
	if err != nil {
		b.logger.Error("auth error", "error", err, "telegram_id", telegramID)
		return nil
	}
	if !auth.ShouldContinue {
		answered = true
		return b.client.AnswerCallbackQuery(ctx, cq.ID, "Сначала зарегистрируйтесь: /start", true)
	}
	if auth.User != nil {
		ctx = middleware.ContextWithUser(ctx, auth.User)
	}

	recovery := b.recoveryMiddleware.RecoverWithHandler(ctx, telegramID, "callback:"+cq.Data, func() error {
		return b.router.HandleCallback(ctx, CallbackContext{
			TelegramID: telegramID,
			ChatID:     chatID,
			MessageID:  messageID,
			QueryID:    cq.ID,
			Data:       cq.Data,
		})
	})

	if recovery.Recovered {
		b.logger.Error("panic recovered in callback handler",
			"data", cq.Data, "telegram_id", telegramID)
		if chatID != 0 {
			_, _ = b.client.SendHTML(ctx, chatID, recovery.UserMessage)
		}
	}
	if recovery.Err != nil && chatID != 0 {
		return b.sendErrorMessage(ctx, chatID, recovery.Err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CALLBACK ROUTING GLUE
// ══════════════════════════════════════════════════════════════════════════════

// handleTaskCallback dispatches "task:<action>:<id>" callbacks.
func (b *Bot) handleTaskCallback(ctx context.Context, cb CallbackContext) error {
	parts := strings.SplitN(cb.Data, ":", 3)
	if len(parts) < 3 {
		return nil
	}
	action, taskID := parts[1], parts[2]

	var resp *handler.Response
	var err error

	switch action {
	case "view":
		resp, err = b.actionsHandler.View(ctx, cb.TelegramID, taskID)
	case "accept":
		resp, err = b.actionsHandler.Accept(ctx, cb.TelegramID, taskID)
	case "complete":
		resp, err = b.actionsHandler.Complete(ctx, cb.TelegramID, taskID)
	case "confirm_delete":
		resp = b.actionsHandler.ConfirmDelete(taskID)
	case "delete":
		resp, err = b.actionsHandler.Delete(ctx, cb.TelegramID, taskID)
	case "keep":
		resp = b.actionsHandler.Keep(taskID)
	case "comment":
		resp = b.actionsHandler.BeginComment(cb.TelegramID, taskID)
	case "remind":
		resp, err = b.actionsHandler.Remind(ctx, cb.TelegramID, taskID)
	default:
		b.logger.Warn("unknown task callback", "data", cb.Data)
		return nil
	}

	return b.respond(ctx, cb.ChatID, cb.MessageID, resp, cb.QueryID, err)
}

// handleMenuCallback dispatches "cmd:<name>" menu callbacks by reusing
// the command handlers.
func (b *Bot) handleMenuCallback(ctx context.Context, cb CallbackContext) error {
	name := strings.TrimPrefix(cb.Data, "cmd:")

	return b.router.HandleCommand(ctx, name, CommandContext{
		TelegramID: cb.TelegramID,
		ChatID:     cb.ChatID,
		MessageID:  cb.MessageID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DELIVERY
// ══════════════════════════════════════════════════════════════════════════════

// respond delivers a handler response: document, contact request,
// keyboard edit or plain message. A nil response with nil error is a
// no-op (the handler already said everything via Toast).
func (b *Bot) respond(ctx context.Context, chatID, messageID int64, resp *handler.Response, queryID string, err error) error {
	if err != nil {
		return b.sendErrorMessage(ctx, chatID, err)
	}
	if resp == nil {
		return nil
	}

	if resp.Toast != "" && queryID != "" {
		_ = b.client.AnswerCallbackQuery(ctx, queryID, resp.Toast, false)
	}

	switch {
	case resp.Document != nil:
		_, err = b.client.SendDocument(ctx, chatID, resp.Document.Filename, resp.Document.Data, resp.Document.Caption)

	case resp.Text == "":
		// Toast-only response.
		return nil

	case resp.EditMessage && messageID != 0:
		_, err = b.client.EditMessageText(ctx, chatID, messageID, resp.Text, convertKeyboard(resp.Keyboard))

	case resp.RequestContact:
		_, err = b.client.SendContactRequest(ctx, chatID, resp.Text, resp.ContactButton)

	case resp.RemoveKeyboard:
		if _, err = b.client.SendRemoveKeyboard(ctx, chatID, resp.Text); err == nil && resp.Keyboard != nil {
			// Follow up with the inline menu once the reply keyboard is gone.
			_, err = b.client.SendMessage(ctx, telegram.SendMessageParams{
				ChatID:      chatID,
				Text:        "⌨️",
				ReplyMarkup: convertKeyboard(resp.Keyboard),
			})
		}

	case resp.Keyboard != nil:
		_, err = b.client.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:      chatID,
			Text:        resp.Text,
			ParseMode:   "HTML",
			ReplyMarkup: convertKeyboard(resp.Keyboard),
		})

	default:
		_, err = b.client.SendHTML(ctx, chatID, resp.Text)
	}

	return err
}

// sendErrorMessage maps an application error to a user-facing message.
func (b *Bot) sendErrorMessage(ctx context.Context, chatID int64, err error) error {
	text := "😔 Произошла ошибка. Попробуйте позже."
	switch {
	case shared.IsNotFound(err):
		text = "❌ Не найдено. Возможно, задача уже удалена."
	case shared.IsPermissionDenied(err):
		text = "❌ Недостаточно прав для этого действия."
	case shared.IsValidation(err):
		text = "❌ Некорректный ввод: " + err.Error()
	}

	b.logger.Warn("handler error", "error", err)
	_, sendErr := b.client.SendHTML(ctx, chatID, text)
	return sendErr
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// extractTelegramID extracts the sender ID from an update.
func extractTelegramID(update *telegram.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// GetStats returns current bot statistics.
func (b *Bot) GetStats() map[string]interface{} {
	commands := make(map[string]interface{})
	for name, snap := range b.metrics.Snapshot() {
		commands[name] = map[string]interface{}{
			"count":        snap.Count,
			"errors":       snap.Errors,
			"avg_duration": snap.AvgDuration.String(),
			"max_duration": snap.MaxDuration.String(),
			"unique_users": snap.UniqueUsers,
		}
	}

	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	return map[string]interface{}{
		"started_at":       b.stats.StartedAt,
		"uptime":           time.Since(b.stats.StartedAt).String(),
		"updates_received": b.stats.UpdatesReceived,
		"updates_handled":  b.stats.UpdatesHandled,
		"errors_count":     b.stats.ErrorsCount,
		"commands":         commands,
		"running":          b.IsRunning(),
	}
}
