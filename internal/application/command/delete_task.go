package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE TASK COMMAND
// Only the creator deletes a task. Assignees whose work is still open
// are told the task is gone.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteTaskCommand contains the data to delete a task.
type DeleteTaskCommand struct {
	// ActorID is the Telegram ID of the user deleting the task.
	ActorID int64

	// TaskID is the ID of the task to delete.
	TaskID string

	// Silent suppresses assignee notifications. Used when the rector
	// deletes a task everyone already completed.
	Silent bool
}

// Validate validates the command.
func (c DeleteTaskCommand) Validate() error {
	if c.ActorID <= 0 {
		return errors.New("delete_task: actor_id is required")
	}
	if c.TaskID == "" {
		return errors.New("delete_task: task_id is required")
	}
	return nil
}

// DeleteTaskResult contains the result of deleting a task.
type DeleteTaskResult struct {
	// Title of the deleted task, for confirmation messages.
	Title string

	// NotifiedCount is how many assignee notifications were queued.
	NotifiedCount int
}

// DeleteTaskHandler handles the DeleteTaskCommand.
type DeleteTaskHandler struct {
	taskRepo       task.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewDeleteTaskHandler creates a new DeleteTaskHandler.
func NewDeleteTaskHandler(
	taskRepo task.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *DeleteTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteTaskHandler{
		taskRepo:       taskRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the delete task command.
func (h *DeleteTaskHandler) Handle(ctx context.Context, cmd DeleteTaskCommand) (*DeleteTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	taskID, err := shared.NewTaskID(cmd.TaskID)
	if err != nil {
		return nil, err
	}

	t, err := h.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !t.IsCreator(shared.TelegramID(cmd.ActorID)) {
		return nil, shared.ErrNotCreator
	}

	if err := h.taskRepo.Delete(ctx, taskID); err != nil {
		return nil, fmt.Errorf("delete_task: delete failed: %w", err)
	}

	h.logger.Info("task deleted",
		"task_id", taskID.String(),
		"actor_id", cmd.ActorID,
	)

	result := &DeleteTaskResult{Title: t.Title}

	if !cmd.Silent {
		recipients := t.AssigneeIDs()
		message := fmt.Sprintf("🗑 Задача «<b>%s</b>» удалена", t.Title)
		h.notifier.sendToMany(ctx, notification.NotificationTypeTaskDeleted, recipients, t.ID, message, nil)
		result.NotifiedCount = len(recipients)
	}

	event := shared.NewBaseEvent(shared.EventTaskDeleted, taskID.String())
	_ = h.eventPublisher.Publish(event)

	return result, nil
}
