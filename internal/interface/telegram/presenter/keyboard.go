// Package presenter formats data for Telegram display.
// Presenters convert query DTOs into HTML messages, inline keyboards
// and other UI elements; no business logic lives here.
package presenter

import (
	"fmt"

	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// Library-agnostic keyboard representation. The bot layer converts these
// to the wire format of the Telegram client.
// ══════════════════════════════════════════════════════════════════════════════

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	// Text is the button label.
	Text string

	// CallbackData is the callback data (for callback buttons).
	CallbackData string

	// URL is the URL to open (for URL buttons).
	URL string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{
		Rows: make([][]InlineButton, 0),
	}
}

// AddRow adds a row of buttons.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// Builds keyboards for the rector and staff menus, task lists and task
// cards. Callback data conventions: "task:<action>:<id>" and "cmd:<name>".
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds inline keyboards for various handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// ─────────────────────────────────────────────────────────────────────────────
// MENU KEYBOARDS
// ─────────────────────────────────────────────────────────────────────────────

// RectorMenuKeyboard is the main menu shown to the rector.
func (b *KeyboardBuilder) RectorMenuKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("📋 Мои задачи", "cmd:tasks"),
			CallbackButton("➕ Новая задача", "cmd:newtask"),
		).
		AddRow(
			CallbackButton("👥 Сотрудники", "cmd:staff"),
			CallbackButton("⏰ Напомнить", "cmd:remind"),
		)
}

// StaffMenuKeyboard is the main menu shown to staff members.
func (b *KeyboardBuilder) StaffMenuKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("📋 Мои задачи", "cmd:tasks"),
			CallbackButton("📊 Все задачи", "cmd:alltasks"),
		).
		AddRow(CallbackButton("❓ Помощь", "cmd:help"))
}

// ─────────────────────────────────────────────────────────────────────────────
// TASK LIST KEYBOARDS
// ─────────────────────────────────────────────────────────────────────────────

// TaskListKeyboard creates one "open card" button per task.
func (b *KeyboardBuilder) TaskListKeyboard(tasks []query.TaskSummary) *InlineKeyboard {
	kb := NewInlineKeyboard()
	for i, t := range tasks {
		label := fmt.Sprintf("%d. %s", i+1, truncate(t.Title, 32))
		kb.AddRow(CallbackButton(label, "task:view:"+t.ID))
	}
	kb.AddRow(CallbackButton("🔄 Обновить", "cmd:tasks"))
	return kb
}

// BoardKeyboard is the keyboard under the whole-board view.
func (b *KeyboardBuilder) BoardKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("🔄 Обновить", "cmd:alltasks"),
			CallbackButton("📋 Мои задачи", "cmd:tasks"),
		)
}

// ─────────────────────────────────────────────────────────────────────────────
// TASK CARD KEYBOARDS
// The card keyboard depends on who is looking at it and on the viewer's
// own assignment status.
// ─────────────────────────────────────────────────────────────────────────────

// TaskCardKeyboard creates the action keyboard for a task card.
func (b *KeyboardBuilder) TaskCardKeyboard(d *query.TaskDetails) *InlineKeyboard {
	kb := NewInlineKeyboard()

	if d.ViewerIsCreator {
		kb.AddRow(
			CallbackButton("⏰ Напомнить", "task:remind:"+d.ID),
			CallbackButton("🗑 Удалить", "task:confirm_delete:"+d.ID),
		)
		kb.AddRow(CallbackButton("💬 Комментировать", "task:comment:"+d.ID))
		kb.AddRow(CallbackButton("◀️ К списку", "cmd:tasks"))
		return kb
	}

	if d.ViewerAssigned {
		switch d.ViewerStatus {
		case task.StatusPending:
			kb.AddRow(CallbackButton("✅ Принять", "task:accept:"+d.ID))
		case task.StatusAccepted:
			kb.AddRow(CallbackButton("🏁 Завершить", "task:complete:"+d.ID))
		}
		kb.AddRow(CallbackButton("💬 Комментировать", "task:comment:"+d.ID))
	}

	kb.AddRow(CallbackButton("◀️ К списку", "cmd:tasks"))
	return kb
}

// ConfirmDeleteKeyboard asks the rector to confirm task deletion.
func (b *KeyboardBuilder) ConfirmDeleteKeyboard(taskID string) *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("🗑 Удалить", "task:delete:"+taskID),
			CallbackButton("📌 Оставить", "task:keep:"+taskID),
		)
}

// CancelKeyboard offers to abort a multi-step conversation.
func (b *KeyboardBuilder) CancelKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("✖️ Отмена", "cmd:cancel"))
}

// AssignAllKeyboard is shown on the assignee step of task creation.
func (b *KeyboardBuilder) AssignAllKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("👥 Назначить всем", "newtask:all")).
		AddRow(CallbackButton("✖️ Отмена", "cmd:cancel"))
}

// truncate shortens a string to max runes, adding an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
