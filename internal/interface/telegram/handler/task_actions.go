package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/univer-hub/rector-task-bot/internal/application/command"
	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK ACTIONS HANDLER
// Handles the "task:<action>:<id>" callbacks: accept, complete, delete,
// keep (dismiss the deletion prompt), comment and per-task reminders.
// ══════════════════════════════════════════════════════════════════════════════

// TaskActionsHandler handles task card callbacks.
type TaskActionsHandler struct {
	acceptCmd   *command.AcceptTaskHandler
	completeCmd *command.CompleteTaskHandler
	deleteCmd   *command.DeleteTaskHandler
	commentCmd  *command.AddCommentHandler
	remindCmd   *command.TriggerReminderHandler
	getQuery    *query.GetTaskHandler
	tasks       *TasksHandler
	sessions    *SessionStore
	keyboards   *presenter.KeyboardBuilder
}

// NewTaskActionsHandler creates a new TaskActionsHandler.
func NewTaskActionsHandler(
	acceptCmd *command.AcceptTaskHandler,
	completeCmd *command.CompleteTaskHandler,
	deleteCmd *command.DeleteTaskHandler,
	commentCmd *command.AddCommentHandler,
	remindCmd *command.TriggerReminderHandler,
	getQuery *query.GetTaskHandler,
	tasks *TasksHandler,
	sessions *SessionStore,
	keyboards *presenter.KeyboardBuilder,
) *TaskActionsHandler {
	return &TaskActionsHandler{
		acceptCmd:   acceptCmd,
		completeCmd: completeCmd,
		deleteCmd:   deleteCmd,
		commentCmd:  commentCmd,
		remindCmd:   remindCmd,
		getQuery:    getQuery,
		tasks:       tasks,
		sessions:    sessions,
		keyboards:   keyboards,
	}
}

// View handles "task:view:<id>" — renders the task card in place of
// the list message.
func (h *TaskActionsHandler) View(ctx context.Context, actorID int64, taskID string) (*Response, error) {
	resp, err := h.tasks.Card(ctx, actorID, taskID)
	if err != nil {
		return h.transitionError(err), nil
	}
	resp.EditMessage = true
	return resp, nil
}

// Accept handles "task:accept:<id>".
func (h *TaskActionsHandler) Accept(ctx context.Context, actorID int64, taskID string) (*Response, error) {
	_, err := h.acceptCmd.Handle(ctx, command.AcceptTaskCommand{ActorID: actorID, TaskID: taskID})
	if err != nil {
		return h.transitionError(err), nil
	}

	resp, err := h.tasks.Card(ctx, actorID, taskID)
	if err != nil {
		return textResponse("✅ Задача принята в работу."), nil
	}
	resp.EditMessage = true
	resp.Toast = "Задача принята"
	return resp, nil
}

// Complete handles "task:complete:<id>".
func (h *TaskActionsHandler) Complete(ctx context.Context, actorID int64, taskID string) (*Response, error) {
	_, err := h.completeCmd.Handle(ctx, command.CompleteTaskCommand{ActorID: actorID, TaskID: taskID})
	if err != nil {
		return h.transitionError(err), nil
	}

	resp, err := h.tasks.Card(ctx, actorID, taskID)
	if err != nil {
		return textResponse("🏁 Задача завершена. Отличная работа!"), nil
	}
	resp.EditMessage = true
	resp.Toast = "Задача завершена"
	return resp, nil
}

// ConfirmDelete handles "task:confirm_delete:<id>" — asks before deleting.
func (h *TaskActionsHandler) ConfirmDelete(taskID string) *Response {
	return &Response{
		Text:        "🗑 Удалить задачу со всеми назначениями и комментариями?",
		Keyboard:    h.keyboards.ConfirmDeleteKeyboard(taskID),
		EditMessage: true,
	}
}

// Delete handles "task:delete:<id>". Used both from the /delete
// confirmation prompt and from the "all completed" notification.
// Assignees of a fully completed task are not notified; they already
// know the task is done.
func (h *TaskActionsHandler) Delete(ctx context.Context, actorID int64, taskID string) (*Response, error) {
	silent := false
	if details, err := h.getQuery.Handle(ctx, query.GetTaskQuery{ViewerID: actorID, TaskID: taskID}); err == nil {
		silent = details.Status == task.StatusCompleted
	}

	result, err := h.deleteCmd.Handle(ctx, command.DeleteTaskCommand{
		ActorID: actorID,
		TaskID:  taskID,
		Silent:  silent,
	})
	if err != nil {
		return h.transitionError(err), nil
	}

	return &Response{
		Text:        fmt.Sprintf("🗑 Задача «%s» удалена.", result.Title),
		EditMessage: true,
		Toast:       "Задача удалена",
	}, nil
}

// Keep handles "task:keep:<id>" — the rector keeps the completed task.
func (h *TaskActionsHandler) Keep(taskID string) *Response {
	return &Response{
		Text:        "📌 Задача оставлена в списке.",
		EditMessage: true,
	}
}

// BeginComment handles "task:comment:<id>" — starts the comment flow.
func (h *TaskActionsHandler) BeginComment(actorID int64, taskID string) *Response {
	h.sessions.Set(actorID, &Session{State: StateAwaitComment, TaskID: taskID})

	return &Response{
		Text:     "💬 Введите текст комментария:",
		Keyboard: h.keyboards.CancelKeyboard(),
	}
}

// HandleCommentText finishes the comment flow with the user's text.
// Returns handled=false when the user has no comment session.
func (h *TaskActionsHandler) HandleCommentText(ctx context.Context, actorID int64, text string) (resp *Response, handled bool, err error) {
	sess := h.sessions.Get(actorID)
	if sess == nil || sess.State != StateAwaitComment {
		return nil, false, nil
	}

	result, err := h.commentCmd.Handle(ctx, command.AddCommentCommand{
		AuthorID: actorID,
		TaskID:   sess.TaskID,
		Text:     text,
	})
	if err != nil {
		h.sessions.Clear(actorID)
		if errors.Is(err, shared.ErrPermissionDenied) {
			return textResponse("❌ Комментировать могут только участники задачи."), true, nil
		}
		return nil, true, err
	}

	h.sessions.Clear(actorID)
	return textResponse(fmt.Sprintf(
		"💬 Комментарий добавлен, уведомлено участников: %d.",
		result.NotifiedCount,
	)), true, nil
}

// Remind handles "task:remind:<id>" and the /remind command. Rector
// only. With a task ID it nudges every assignee of that task; without
// one it runs the global deadline sweep.
func (h *TaskActionsHandler) Remind(ctx context.Context, actorID int64, taskID string) (*Response, error) {
	result, err := h.remindCmd.Handle(ctx, command.TriggerReminderCommand{ActorID: actorID, TaskID: taskID})
	if err != nil {
		if errors.Is(err, shared.ErrPermissionDenied) {
			return textResponse("❌ Рассылать напоминания может только ректор."), nil
		}
		if errors.Is(err, shared.ErrNotFound) {
			return h.transitionError(err), nil
		}
		return nil, err
	}

	if taskID != "" {
		return &Response{
			Text:  fmt.Sprintf("⏰ Напоминание отправлено, получателей: %d.", result.Notified),
			Toast: "Напоминание отправлено",
		}, nil
	}
	return textResponse("⏰ Напоминания разосланы сотрудникам с непринятыми задачами."), nil
}

// transitionError maps state machine failures to user-facing toasts.
func (h *TaskActionsHandler) transitionError(err error) *Response {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return &Response{Toast: "Задача уже удалена", EditMessage: true,
			Text: "🗑 Эта задача уже удалена."}
	case errors.Is(err, shared.ErrPermissionDenied):
		return &Response{Toast: "Недостаточно прав"}
	case errors.Is(err, shared.ErrInvalidTransition):
		return &Response{Toast: "Статус уже изменён"}
	default:
		return &Response{Toast: "Ошибка, попробуйте позже"}
	}
}
