package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDIT TASK COMMAND
// Partial edit by the creator. Replacing the assignee set resets every
// assignment to pending; ForceStatus overrides individual statuses.
// The whole edit runs inside one repository mutation so a concurrent
// accept or complete cannot interleave.
// ══════════════════════════════════════════════════════════════════════════════

// EditTaskCommand contains the fields to change. Nil means "keep as is".
type EditTaskCommand struct {
	// ActorID is the Telegram ID of the user editing the task.
	ActorID int64

	// TaskID is the ID of the task to edit.
	TaskID string

	Title       *string
	Description *string

	// DeadlineRaw is the new deadline as entered, in Almaty local time.
	DeadlineRaw *string

	// AssigneeRefs replaces the assignee set when non-nil.
	AssigneeRefs []string

	// ForceStatus sets every assignment to the given status ("pending",
	// "accepted" or "completed") bypassing normal transitions.
	ForceStatus *string
}

// Validate validates the command.
func (c EditTaskCommand) Validate() error {
	if c.ActorID <= 0 {
		return errors.New("edit_task: actor_id is required")
	}
	if c.TaskID == "" {
		return errors.New("edit_task: task_id is required")
	}
	if c.Title == nil && c.Description == nil && c.DeadlineRaw == nil &&
		c.AssigneeRefs == nil && c.ForceStatus == nil {
		return errors.New("edit_task: nothing to change")
	}
	return nil
}

// EditTaskResult contains the result of editing a task.
type EditTaskResult struct {
	// Task is the task after the edit.
	Task *task.Task

	// AssigneesChanged is true when the assignee set was replaced.
	AssigneesChanged bool
}

// EditTaskHandler handles the EditTaskCommand.
type EditTaskHandler struct {
	taskRepo       task.Repository
	userRepo       user.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewEditTaskHandler creates a new EditTaskHandler.
func NewEditTaskHandler(
	taskRepo task.Repository,
	userRepo user.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *EditTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditTaskHandler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the edit task command.
func (h *EditTaskHandler) Handle(ctx context.Context, cmd EditTaskCommand) (*EditTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	patch, err := h.buildPatch(ctx, cmd)
	if err != nil {
		return nil, err
	}

	taskID, err := shared.NewTaskID(cmd.TaskID)
	if err != nil {
		return nil, err
	}

	actor := shared.TelegramID(cmd.ActorID)

	updated, err := h.taskRepo.Mutate(ctx, taskID, func(t *task.Task) error {
		return t.Apply(actor, patch)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("task edited",
		"task_id", updated.ID.String(),
		"actor_id", cmd.ActorID,
	)

	message := fmt.Sprintf("✏️ Задача «<b>%s</b>» изменена\n\nСрок: %s",
		updated.Title, timeutil.FormatDeadline(updated.Deadline))
	h.notifier.sendToMany(ctx, notification.NotificationTypeTaskEdited,
		updated.AssigneeIDs(), updated.ID, message, acceptButton(updated.ID))

	event := shared.NewBaseEvent(shared.EventTaskEdited, updated.ID.String())
	_ = h.eventPublisher.Publish(event)

	return &EditTaskResult{
		Task:             updated,
		AssigneesChanged: patch.AssigneeIDs != nil,
	}, nil
}

// buildPatch converts the command into a domain patch, resolving assignee
// references and parsing the deadline up front.
func (h *EditTaskHandler) buildPatch(ctx context.Context, cmd EditTaskCommand) (task.Patch, error) {
	patch := task.Patch{
		Title:       cmd.Title,
		Description: cmd.Description,
	}

	if cmd.DeadlineRaw != nil {
		deadline, err := timeutil.ParseDeadline(*cmd.DeadlineRaw)
		if err != nil {
			return task.Patch{}, shared.WrapError("task", "Edit", shared.ErrInvalidDeadline, "unparseable deadline", err)
		}
		patch.Deadline = &deadline
	}

	if cmd.AssigneeRefs != nil {
		ids, err := h.resolveAssigneeIDs(ctx, cmd.AssigneeRefs)
		if err != nil {
			return task.Patch{}, err
		}
		patch.AssigneeIDs = ids
	}

	if cmd.ForceStatus != nil {
		status := task.Status(strings.ToLower(strings.TrimSpace(*cmd.ForceStatus)))
		if !status.IsValid() {
			return task.Patch{}, shared.NewDomainError("task", "Edit", shared.ErrInvalidInput,
				"unknown status: "+*cmd.ForceStatus)
		}
		patch.ForceStatus = &status
	}

	return patch, nil
}

func (h *EditTaskHandler) resolveAssigneeIDs(ctx context.Context, refs []string) ([]shared.TelegramID, error) {
	ids := make([]shared.TelegramID, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}

		u, err := h.userRepo.FindStaff(ctx, ref)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.WrapError("task", "Edit", shared.ErrInvalidAssignee,
					"staff member not found: "+ref, err)
			}
			return nil, fmt.Errorf("edit_task: assignee lookup failed: %w", err)
		}
		ids = append(ids, u.TelegramID)
	}

	if len(ids) == 0 {
		return nil, shared.ErrNoAssignees
	}

	return ids, nil
}
