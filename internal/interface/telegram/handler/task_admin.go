package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/univer-hub/rector-task-bot/internal/application/command"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK ADMIN HANDLER
// Rector-only single-message commands:
//   /edit <id> title|desc|deadline|assignees|status <value>
//   /delete <id>
// Edits are single-field on purpose: the task id comes from the card,
// and one field per message keeps the syntax predictable.
// ══════════════════════════════════════════════════════════════════════════════

// TaskAdminHandler handles /edit and /delete.
type TaskAdminHandler struct {
	editCmd   *command.EditTaskHandler
	keyboards *presenter.KeyboardBuilder
}

// NewTaskAdminHandler creates a new TaskAdminHandler.
func NewTaskAdminHandler(
	editCmd *command.EditTaskHandler,
	keyboards *presenter.KeyboardBuilder,
) *TaskAdminHandler {
	return &TaskAdminHandler{
		editCmd:   editCmd,
		keyboards: keyboards,
	}
}

// editUsage is shown on malformed /edit input.
const editUsage = "✏️ <b>Изменение задачи</b>\n\n" +
	"<code>/edit &lt;id&gt; title Новое название</code>\n" +
	"<code>/edit &lt;id&gt; desc Новое описание</code>\n" +
	"<code>/edit &lt;id&gt; deadline 2025-12-31 18:00</code>\n" +
	"<code>/edit &lt;id&gt; assignees @ivanov, Асель Нурланова</code>\n" +
	"<code>/edit &lt;id&gt; status accepted</code>\n\n" +
	"ID задачи есть в её карточке (/tasks)."

// Edit parses and executes the /edit command.
func (h *TaskAdminHandler) Edit(ctx context.Context, actorID int64, args string) (*Response, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 3)
	if len(parts) < 3 {
		return textResponse(editUsage), nil
	}

	taskID, field, value := parts[0], strings.ToLower(parts[1]), strings.TrimSpace(parts[2])

	cmd := command.EditTaskCommand{ActorID: actorID, TaskID: taskID}
	switch field {
	case "title":
		cmd.Title = &value
	case "desc", "description":
		cmd.Description = &value
	case "deadline":
		cmd.DeadlineRaw = &value
	case "assignees":
		cmd.AssigneeRefs = splitRefs(value)
	case "status":
		cmd.ForceStatus = &value
	default:
		return textResponse(editUsage), nil
	}

	result, err := h.editCmd.Handle(ctx, cmd)
	if err != nil {
		return h.editError(err), nil
	}

	text := fmt.Sprintf("✏️ Задача «%s» изменена.", result.Task.Title)
	if result.AssigneesChanged {
		text += "\n👥 Новые исполнители получили уведомления, статусы сброшены."
	}
	return textResponse(text), nil
}

// ConfirmDelete handles the /delete command: shows a confirmation
// keyboard, deletion itself runs through the "task:delete:" callback.
func (h *TaskAdminHandler) ConfirmDelete(args string) *Response {
	taskID := strings.TrimSpace(args)
	if taskID == "" {
		return textResponse("🗑 Использование: <code>/delete &lt;id&gt;</code>\n\n" +
			"ID задачи есть в её карточке (/tasks).")
	}

	return &Response{
		Text:     "🗑 Удалить задачу? Исполнители получат уведомление об отмене.",
		Keyboard: h.keyboards.ConfirmDeleteKeyboard(taskID),
	}
}

// editError maps edit failures to user-facing messages.
func (h *TaskAdminHandler) editError(err error) *Response {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return textResponse("❌ Задача не найдена. Проверьте ID в карточке задачи.")
	case errors.Is(err, shared.ErrPermissionDenied):
		return textResponse("❌ Изменять задачу может только её создатель.")
	case errors.Is(err, shared.ErrInvalidDeadline):
		return textResponse("❌ Срок не распознан или уже прошёл.\n" +
			"Формат: <code>2025-12-31 18:00</code> или <code>31.12.2025 18:00</code>.")
	case errors.Is(err, shared.ErrInvalidAssignee):
		return textResponse("❌ Не удалось найти одного из сотрудников.")
	case shared.IsValidation(err):
		return textResponse("❌ " + err.Error())
	default:
		return textResponse("❌ Не удалось изменить задачу. Попробуйте позже.")
	}
}
