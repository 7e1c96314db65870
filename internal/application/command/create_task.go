package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE TASK COMMAND
// Only the rector creates tasks. Assignees are resolved from free-form
// references (@username, Telegram ID, or "Имя Фамилия"); the special
// AssignAll flag targets every registered staff member.
// ══════════════════════════════════════════════════════════════════════════════

// CreateTaskCommand contains the data to create a task.
type CreateTaskCommand struct {
	// CreatorID is the Telegram ID of the rector creating the task.
	CreatorID int64

	// Title and Description of the task.
	Title       string
	Description string

	// DeadlineRaw is the deadline as entered, in Almaty local time.
	// Accepted formats: "2006-01-02 15:04", "02.01.2006 15:04" or a bare date.
	DeadlineRaw string

	// AssigneeRefs are free-form staff references to resolve.
	AssigneeRefs []string

	// AssignAll assigns the task to every registered staff member.
	AssignAll bool
}

// Validate validates the command.
func (c CreateTaskCommand) Validate() error {
	if c.CreatorID <= 0 {
		return errors.New("create_task: creator_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("create_task: title is required")
	}
	if strings.TrimSpace(c.DeadlineRaw) == "" {
		return errors.New("create_task: deadline is required")
	}
	if !c.AssignAll && len(c.AssigneeRefs) == 0 {
		return shared.ErrNoAssignees
	}
	return nil
}

// CreateTaskResult contains the result of creating a task.
type CreateTaskResult struct {
	// Task is the created task.
	Task *task.Task

	// Assignees are the resolved staff members, in assignment order.
	Assignees []*user.User
}

// CreateTaskHandler handles the CreateTaskCommand.
type CreateTaskHandler struct {
	taskRepo       task.Repository
	userRepo       user.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewCreateTaskHandler creates a new CreateTaskHandler.
func NewCreateTaskHandler(
	taskRepo task.Repository,
	userRepo user.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *CreateTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateTaskHandler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the create task command.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (*CreateTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	creator, err := h.userRepo.GetByTelegramID(ctx, shared.TelegramID(cmd.CreatorID))
	if err != nil {
		return nil, fmt.Errorf("create_task: creator lookup failed: %w", err)
	}
	if !creator.Role.IsRector() {
		return nil, shared.ErrNotCreator
	}

	deadline, err := timeutil.ParseDeadline(cmd.DeadlineRaw)
	if err != nil {
		return nil, shared.WrapError("task", "Create", shared.ErrInvalidDeadline, "unparseable deadline", err)
	}

	assignees, err := h.resolveAssignees(ctx, cmd)
	if err != nil {
		return nil, err
	}

	assigneeIDs := make([]shared.TelegramID, 0, len(assignees))
	for _, a := range assignees {
		assigneeIDs = append(assigneeIDs, a.TelegramID)
	}

	t, err := task.NewTask(task.NewTaskParams{
		ID:          shared.TaskID(uuid.NewString()),
		Title:       cmd.Title,
		Description: cmd.Description,
		Deadline:    deadline,
		CreatorID:   creator.TelegramID,
		AssigneeIDs: assigneeIDs,
	})
	if err != nil {
		return nil, err
	}

	if err := h.taskRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create_task: save failed: %w", err)
	}

	h.logger.Info("task created",
		"task_id", t.ID.String(),
		"creator_id", creator.TelegramID.Int64(),
		"assignees", len(assigneeIDs),
	)

	message := h.formatAssignedMessage(t)
	h.notifier.sendToMany(ctx, notification.NotificationTypeTaskAssigned, assigneeIDs, t.ID, message, acceptButton(t.ID))

	rawIDs := make([]int64, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		rawIDs = append(rawIDs, id.Int64())
	}
	event := shared.TaskCreatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventTaskCreated, t.ID.String()),
		TaskID:    t.ID.String(),
		Title:     t.Title,
		CreatorID: creator.TelegramID.Int64(),
		Assignees: rawIDs,
	}
	_ = h.eventPublisher.Publish(event)

	return &CreateTaskResult{Task: t, Assignees: assignees}, nil
}

// resolveAssignees turns refs (or AssignAll) into registered staff users.
func (h *CreateTaskHandler) resolveAssignees(ctx context.Context, cmd CreateTaskCommand) ([]*user.User, error) {
	if cmd.AssignAll {
		staff, err := h.userRepo.ListStaff(ctx)
		if err != nil {
			return nil, fmt.Errorf("create_task: staff listing failed: %w", err)
		}
		if len(staff) == 0 {
			return nil, shared.ErrNoAssignees
		}
		return staff, nil
	}

	seen := make(map[shared.TelegramID]bool, len(cmd.AssigneeRefs))
	assignees := make([]*user.User, 0, len(cmd.AssigneeRefs))

	for _, ref := range cmd.AssigneeRefs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}

		u, err := h.userRepo.FindStaff(ctx, ref)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.WrapError("task", "Create", shared.ErrInvalidAssignee,
					"staff member not found: "+ref, err)
			}
			return nil, fmt.Errorf("create_task: assignee lookup failed: %w", err)
		}

		if seen[u.TelegramID] {
			continue
		}
		seen[u.TelegramID] = true
		assignees = append(assignees, u)
	}

	if len(assignees) == 0 {
		return nil, shared.ErrNoAssignees
	}

	return assignees, nil
}

// formatAssignedMessage formats the notification text for new assignees.
func (h *CreateTaskHandler) formatAssignedMessage(t *task.Task) string {
	var sb strings.Builder
	sb.WriteString("📋 <b>Новая задача</b>\n\n")
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n", t.Title))
	sb.WriteString(t.Description + "\n\n")
	sb.WriteString(fmt.Sprintf("Срок: %s\n", timeutil.FormatDeadline(t.Deadline)))
	sb.WriteString(fmt.Sprintf("До срока: %s", timeutil.FormatUntilDeadline(t.Deadline)))
	return sb.String()
}
