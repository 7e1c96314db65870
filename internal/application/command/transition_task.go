package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT / COMPLETE TASK COMMANDS
// Per-assignee state machine: pending → accepted → completed, one step
// at a time, no going back. Both transitions run inside a repository
// mutation so two assignees racing on the same task stay consistent.
// When the last assignee completes, the creator is asked whether to
// delete the finished task.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptTaskCommand marks an assignment as accepted.
type AcceptTaskCommand struct {
	// ActorID is the Telegram ID of the assignee.
	ActorID int64

	// TaskID is the ID of the task to accept.
	TaskID string
}

// Validate validates the command.
func (c AcceptTaskCommand) Validate() error {
	if c.ActorID <= 0 {
		return errors.New("accept_task: actor_id is required")
	}
	if c.TaskID == "" {
		return errors.New("accept_task: task_id is required")
	}
	return nil
}

// AcceptTaskResult contains the result of accepting a task.
type AcceptTaskResult struct {
	// Task is the task after the transition.
	Task *task.Task
}

// AcceptTaskHandler handles the AcceptTaskCommand.
type AcceptTaskHandler struct {
	taskRepo       task.Repository
	userRepo       user.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewAcceptTaskHandler creates a new AcceptTaskHandler.
func NewAcceptTaskHandler(
	taskRepo task.Repository,
	userRepo user.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *AcceptTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcceptTaskHandler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the accept task command.
func (h *AcceptTaskHandler) Handle(ctx context.Context, cmd AcceptTaskCommand) (*AcceptTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	taskID, err := shared.NewTaskID(cmd.TaskID)
	if err != nil {
		return nil, err
	}

	actor := shared.TelegramID(cmd.ActorID)

	updated, err := h.taskRepo.Mutate(ctx, taskID, func(t *task.Task) error {
		return t.Accept(actor)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("task accepted",
		"task_id", taskID.String(),
		"assignee_id", cmd.ActorID,
	)

	h.notifyCreator(ctx, updated, actor)

	event := shared.TaskAcceptedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventTaskAccepted, taskID.String()),
		TaskID:     taskID.String(),
		Title:      updated.Title,
		AssigneeID: cmd.ActorID,
	}
	_ = h.eventPublisher.Publish(event)

	return &AcceptTaskResult{Task: updated}, nil
}

func (h *AcceptTaskHandler) notifyCreator(ctx context.Context, t *task.Task, actor shared.TelegramID) {
	name := actorName(ctx, h.userRepo, actor)
	message := fmt.Sprintf("👌 <b>%s</b> принял(а) задачу «<b>%s</b>»", name, t.Title)
	h.notifier.send(ctx, notification.NotificationTypeTaskAccepted, t.CreatorID, t.ID, message, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTaskCommand marks an assignment as completed.
type CompleteTaskCommand struct {
	// ActorID is the Telegram ID of the assignee.
	ActorID int64

	// TaskID is the ID of the task to complete.
	TaskID string
}

// Validate validates the command.
func (c CompleteTaskCommand) Validate() error {
	if c.ActorID <= 0 {
		return errors.New("complete_task: actor_id is required")
	}
	if c.TaskID == "" {
		return errors.New("complete_task: task_id is required")
	}
	return nil
}

// CompleteTaskResult contains the result of completing a task.
type CompleteTaskResult struct {
	// Task is the task after the transition.
	Task *task.Task

	// AllCompleted is true when this was the last open assignment.
	AllCompleted bool
}

// CompleteTaskHandler handles the CompleteTaskCommand.
type CompleteTaskHandler struct {
	taskRepo       task.Repository
	userRepo       user.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewCompleteTaskHandler creates a new CompleteTaskHandler.
func NewCompleteTaskHandler(
	taskRepo task.Repository,
	userRepo user.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *CompleteTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompleteTaskHandler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the complete task command.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*CompleteTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	taskID, err := shared.NewTaskID(cmd.TaskID)
	if err != nil {
		return nil, err
	}

	actor := shared.TelegramID(cmd.ActorID)

	var allDone bool
	updated, err := h.taskRepo.Mutate(ctx, taskID, func(t *task.Task) error {
		var err error
		allDone, err = t.Complete(actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("task completed by assignee",
		"task_id", taskID.String(),
		"assignee_id", cmd.ActorID,
		"all_completed", allDone,
	)

	if allDone {
		h.notifyAllCompleted(ctx, updated)

		event := shared.TaskAllCompletedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventTaskAllCompleted, taskID.String()),
			TaskID:    taskID.String(),
			Title:     updated.Title,
			CreatorID: updated.CreatorID.Int64(),
		}
		_ = h.eventPublisher.Publish(event)
	} else {
		name := actorName(ctx, h.userRepo, actor)
		message := fmt.Sprintf("✔️ <b>%s</b> завершил(а) свою часть задачи «<b>%s</b>»", name, updated.Title)
		h.notifier.send(ctx, notification.NotificationTypeTaskCompleted, updated.CreatorID, updated.ID, message, nil)

		event := shared.NewBaseEvent(shared.EventTaskCompleted, taskID.String())
		_ = h.eventPublisher.Publish(event)
	}

	return &CompleteTaskResult{Task: updated, AllCompleted: allDone}, nil
}

// notifyAllCompleted asks the creator whether to delete the finished task.
func (h *CompleteTaskHandler) notifyAllCompleted(ctx context.Context, t *task.Task) {
	message := fmt.Sprintf("✅ Все исполнители завершили задачу «<b>%s</b>». Удалить её?", t.Title)
	buttons := [][]notification.InlineButton{
		{
			notification.NewCallbackButton("🗑 Удалить", "task:delete:"+t.ID.String()),
			notification.NewCallbackButton("📌 Оставить", "task:keep:"+t.ID.String()),
		},
	}
	h.notifier.send(ctx, notification.NotificationTypeAllCompleted, t.CreatorID, t.ID, message, buttons)
}

// actorName resolves a display name for notification texts.
func actorName(ctx context.Context, repo user.Repository, id shared.TelegramID) string {
	u, err := repo.GetByTelegramID(ctx, id)
	if err != nil {
		return id.String()
	}
	return u.FullName()
}
