// Package telegram implements the Telegram bot interface of the task
// tracker: update routing, middleware chaining and response delivery.
package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/univer-hub/rector-task-bot/internal/infrastructure/external/telegram"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// CommandContext contains context for command handling.
type CommandContext struct {
	// TelegramID is the sender's Telegram ID.
	TelegramID int64

	// ChatID is the chat the command was sent to.
	ChatID int64

	// MessageID is the message containing the command.
	MessageID int64

	// Args is the text after the command.
	Args string

	// Message is the original Telegram message.
	Message *telegram.Message
}

// CallbackContext contains context for callback query handling.
type CallbackContext struct {
	// TelegramID is the sender's Telegram ID.
	TelegramID int64

	// ChatID is the chat with the inline keyboard.
	ChatID int64

	// MessageID is the message the keyboard is attached to.
	MessageID int64

	// QueryID is the callback query ID (for answering).
	QueryID string

	// Data is the callback data string.
	Data string
}

// TextContext contains context for plain text input (conversation steps).
type TextContext struct {
	// TelegramID is the sender's Telegram ID.
	TelegramID int64

	// ChatID is the chat the text was sent to.
	ChatID int64

	// Text is the input text.
	Text string

	// Message is the original message.
	Message *telegram.Message
}

// CommandFunc handles one bot command.
type CommandFunc func(ctx context.Context, cmdCtx CommandContext) error

// CallbackFunc handles callbacks matching a registered prefix.
type CallbackFunc func(ctx context.Context, cbCtx CallbackContext) error

// TextFunc handles non-command text input.
type TextFunc func(ctx context.Context, txtCtx TextContext) error

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Routes incoming updates to registered handlers. Commands match by
// name, callbacks by longest registered prefix.
// ══════════════════════════════════════════════════════════════════════════════

// Router routes Telegram updates to handlers.
type Router struct {
	logger *slog.Logger

	mu        sync.RWMutex
	commands  map[string]CommandFunc
	callbacks map[string]CallbackFunc
	textInput TextFunc

	defaultCommand  CommandFunc
	defaultCallback CallbackFunc
}

// NewRouter creates a new router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		logger:    logger,
		commands:  make(map[string]CommandFunc),
		callbacks: make(map[string]CallbackFunc),
	}

	r.defaultCommand = func(ctx context.Context, cmdCtx CommandContext) error { return nil }
	r.defaultCallback = func(ctx context.Context, cbCtx CallbackContext) error {
		r.logger.Warn("unknown callback", "data", cbCtx.Data)
		return nil
	}

	return r
}

// RegisterCommand registers a handler for a command (without the "/").
func (r *Router) RegisterCommand(command string, fn CommandFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[command] = fn
}

// RegisterCallbackPrefix registers a handler for callbacks matching a
// prefix. The prefix includes the trailing delimiter (e.g. "task:").
func (r *Router) RegisterCallbackPrefix(prefix string, fn CallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[prefix] = fn
}

// RegisterTextInput registers the handler for non-command text.
func (r *Router) RegisterTextInput(fn TextFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textInput = fn
}

// SetDefaultCommand sets the handler for unknown commands.
func (r *Router) SetDefaultCommand(fn CommandFunc) {
	r.defaultCommand = fn
}

// HandleCommand routes a command to its handler.
func (r *Router) HandleCommand(ctx context.Context, command string, cmdCtx CommandContext) error {
	r.mu.RLock()
	fn, ok := r.commands[command]
	r.mu.RUnlock()

	if !ok {
		return r.defaultCommand(ctx, cmdCtx)
	}
	return fn(ctx, cmdCtx)
}

// HandleCallback routes a callback by its longest matching prefix.
func (r *Router) HandleCallback(ctx context.Context, cbCtx CallbackContext) error {
	r.mu.RLock()
	var matched CallbackFunc
	var matchedPrefix string
	for prefix, fn := range r.callbacks {
		if strings.HasPrefix(cbCtx.Data, prefix) && len(prefix) > len(matchedPrefix) {
			matchedPrefix = prefix
			matched = fn
		}
	}
	r.mu.RUnlock()

	if matched == nil {
		return r.defaultCallback(ctx, cbCtx)
	}
	return matched(ctx, cbCtx)
}

// HandleText routes non-command text input.
func (r *Router) HandleText(ctx context.Context, txtCtx TextContext) error {
	r.mu.RLock()
	fn := r.textInput
	r.mu.RUnlock()

	if fn == nil {
		return nil
	}
	return fn(ctx, txtCtx)
}

// Commands returns the registered command names (for introspection).
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD CONVERSION
// ══════════════════════════════════════════════════════════════════════════════

// convertKeyboard converts a presenter keyboard to the wire format.
func convertKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(kb.Rows)),
	}

	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telegram.InlineKeyboardButton, len(row))
		for j, btn := range row {
			markup.InlineKeyboard[i][j] = telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
				URL:          btn.URL,
			}
		}
	}

	return markup
}
