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
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER REMINDER COMMAND
// Ручные напоминания, только для ректора. Две формы:
//   - по конкретной задаче: уведомление каждому исполнителю независимо
//     от его статуса (ректор явно просит напомнить — значит, напоминаем);
//   - без задачи: общий обход по задачам у срока, тот же джоб, что гоняет
//     планировщик, вместе с его дедупликацией.
// ══════════════════════════════════════════════════════════════════════════════

// ReminderSweeper runs one reminder sweep over tasks nearing their deadline.
type ReminderSweeper interface {
	Run(ctx context.Context) error
}

// TriggerReminderCommand requests a reminder on demand.
type TriggerReminderCommand struct {
	// ActorID is the Telegram ID of the user requesting the reminder.
	ActorID int64

	// TaskID selects one task to remind about. Empty TaskID runs the
	// global deadline sweep instead.
	TaskID string
}

// Validate validates the command.
func (c TriggerReminderCommand) Validate() error {
	if c.ActorID <= 0 {
		return errors.New("trigger_reminder: actor_id is required")
	}
	return nil
}

// TriggerReminderResult contains the result of a manual reminder.
type TriggerReminderResult struct {
	// Task is the reminded task; nil when a global sweep ran.
	Task *task.Task

	// Notified is how many recipients were queued a reminder.
	// Zero for the global sweep (the job keeps its own stats).
	Notified int
}

// TriggerReminderHandler handles the TriggerReminderCommand.
type TriggerReminderHandler struct {
	taskRepo       task.Repository
	userRepo       user.Repository
	sweeper        ReminderSweeper
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewTriggerReminderHandler creates a new TriggerReminderHandler.
func NewTriggerReminderHandler(
	taskRepo task.Repository,
	userRepo user.Repository,
	queue notification.Queue,
	sweeper ReminderSweeper,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *TriggerReminderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriggerReminderHandler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		sweeper:        sweeper,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the reminder.
func (h *TriggerReminderHandler) Handle(ctx context.Context, cmd TriggerReminderCommand) (*TriggerReminderResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.userRepo.GetByTelegramID(ctx, shared.TelegramID(cmd.ActorID))
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsRector() {
		return nil, shared.NewDomainError("reminder", "Trigger", shared.ErrPermissionDenied,
			"only the rector may trigger reminders")
	}

	if cmd.TaskID != "" {
		return h.remindTask(ctx, actor, cmd.TaskID)
	}

	h.logger.Info("manual reminder sweep requested", "actor_id", cmd.ActorID)

	if err := h.sweeper.Run(ctx); err != nil {
		return nil, fmt.Errorf("trigger_reminder: sweep failed: %w", err)
	}

	event := shared.NewBaseEvent(shared.EventReminderTriggered, actor.TelegramID.String())
	_ = h.eventPublisher.Publish(event)

	return &TriggerReminderResult{}, nil
}

// remindTask pushes a reminder for one task to every assignee.
// Unlike the scheduled sweep, the manual reminder does not skip
// assignees who already accepted: the rector asked to nudge everyone.
func (h *TriggerReminderHandler) remindTask(ctx context.Context, actor *user.User, rawID string) (*TriggerReminderResult, error) {
	taskID, err := shared.NewTaskID(rawID)
	if err != nil {
		return nil, err
	}

	t, err := h.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	message := h.formatTaskReminder(t)
	notified := 0
	for _, a := range t.Assignments {
		var buttons [][]notification.InlineButton
		if a.Status == task.StatusPending {
			buttons = acceptButton(t.ID)
		}
		h.notifier.send(ctx, notification.NotificationTypeDeadlineReminder,
			a.UserID, t.ID, message, buttons)
		notified++
	}

	h.logger.Info("manual task reminder sent",
		"actor_id", actor.TelegramID.Int64(),
		"task_id", t.ID.String(),
		"recipients", notified,
	)

	event := shared.NewBaseEvent(shared.EventReminderTriggered, t.ID.String())
	_ = h.eventPublisher.Publish(event)

	return &TriggerReminderResult{Task: t, Notified: notified}, nil
}

// formatTaskReminder formats the manual reminder text in HTML.
func (h *TriggerReminderHandler) formatTaskReminder(t *task.Task) string {
	return fmt.Sprintf(
		"⏰ <b>Напоминание от ректора</b>\n\nЗадача: <b>%s</b>\nСрок: %s (%s)",
		t.Title,
		timeutil.FormatDeadline(t.Deadline),
		timeutil.FormatUntilDeadline(t.Deadline),
	)
}
