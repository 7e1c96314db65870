// Package jobs contains implementations of scheduled jobs for the
// rector task bot.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEADLINE REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// DeadlineRemindersJob scans for tasks whose deadline falls inside the
// lookahead window and queues a reminder for every assignee who has not
// started the task yet.
//
// A reminder goes only to assignees still in the pending state: someone
// who accepted the task has already seen it, and completed work needs
// no nagging. Deduplication keys on (task, recipient) with a TTL just
// under the sweep interval times the window, so one sweep interval
// cannot double-remind.
type DeadlineRemindersJob struct {
	taskRepo task.Repository
	queue    notification.Queue
	dedupe   notification.Deduplicator
	logger   *slog.Logger

	config DeadlineRemindersConfig

	lastRunStats atomic.Value // *DeadlineRemindersStats
}

// DeadlineRemindersConfig contains configuration for the reminders job.
type DeadlineRemindersConfig struct {
	// Lookahead is how far before the deadline reminders start.
	Lookahead time.Duration

	// DedupeTTL is how long a sent reminder suppresses repeats
	// for the same task and recipient.
	DedupeTTL time.Duration

	// Timeout is the maximum duration for one sweep.
	Timeout time.Duration

	// Timezone for formatting deadlines in messages.
	Timezone *time.Location
}

// DefaultDeadlineRemindersConfig returns sensible defaults.
func DefaultDeadlineRemindersConfig() DeadlineRemindersConfig {
	return DeadlineRemindersConfig{
		Lookahead: 24 * time.Hour,
		DedupeTTL: 20 * time.Hour,
		Timeout:   2 * time.Minute,
		Timezone:  timeutil.AlmatyTZ,
	}
}

// DeadlineRemindersStats contains statistics from a sweep.
type DeadlineRemindersStats struct {
	StartedAt         time.Time
	CompletedAt       time.Time
	Duration          time.Duration
	TasksScanned      int
	RemindersQueued   int
	RemindersSkipped  int
	DedupeCheckErrors int
	Errors            []error
}

// NewDeadlineRemindersJob creates a new deadline reminders job.
func NewDeadlineRemindersJob(
	taskRepo task.Repository,
	queue notification.Queue,
	dedupe notification.Deduplicator,
	logger *slog.Logger,
	config DeadlineRemindersConfig,
) *DeadlineRemindersJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Lookahead <= 0 {
		config.Lookahead = 24 * time.Hour
	}
	if config.DedupeTTL <= 0 {
		config.DedupeTTL = 20 * time.Hour
	}
	if config.Timezone == nil {
		config.Timezone = timeutil.AlmatyTZ
	}

	return &DeadlineRemindersJob{
		taskRepo: taskRepo,
		queue:    queue,
		dedupe:   dedupe,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *DeadlineRemindersJob) Name() string {
	return "deadline_reminders"
}

// Description returns a human-readable description.
func (j *DeadlineRemindersJob) Description() string {
	return "Queues reminders for assignees of tasks nearing their deadline"
}

// Run executes one reminder sweep.
func (j *DeadlineRemindersJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &DeadlineRemindersStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	tasks, err := j.taskRepo.ListDueWithin(ctx, startedAt, j.config.Lookahead)
	if err != nil {
		return fmt.Errorf("failed to list due tasks: %w", err)
	}

	stats.TasksScanned = len(tasks)

	for _, t := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		j.remindForTask(ctx, t, stats)
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("deadline_reminders sweep completed",
		"duration", stats.Duration.String(),
		"tasks_scanned", stats.TasksScanned,
		"queued", stats.RemindersQueued,
		"skipped", stats.RemindersSkipped,
	)

	return nil
}

// remindForTask queues reminders for all pending assignees of one task.
func (j *DeadlineRemindersJob) remindForTask(ctx context.Context, t *task.Task, stats *DeadlineRemindersStats) {
	for _, recipientID := range t.ReminderRecipients() {
		key := fmt.Sprintf("%s:%d", t.ID, recipientID.Int64())

		first, err := j.dedupe.MarkOnce(ctx, key, j.config.DedupeTTL)
		if err != nil {
			// Failure to check dedupe must not drop the reminder
			stats.DedupeCheckErrors++
			j.logger.Warn("dedupe check failed, sending anyway",
				"task_id", t.ID.String(),
				"error", err,
			)
		} else if !first {
			stats.RemindersSkipped++
			continue
		}

		n, err := notification.NewNotification(notification.NewNotificationParams{
			ID:          notification.NotificationID(uuid.NewString()),
			Type:        notification.NotificationTypeDeadlineReminder,
			RecipientID: recipientID,
			TaskID:      t.ID,
			Message:     j.formatReminderMessage(t),
			Buttons: [][]notification.InlineButton{
				{notification.NewCallbackButton("✅ Принять", "task:accept:"+t.ID.String())},
			},
		})
		if err != nil {
			stats.Errors = append(stats.Errors, err)
			continue
		}

		if err := j.queue.Enqueue(ctx, n); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to queue reminder",
				"task_id", t.ID.String(),
				"recipient_id", recipientID.Int64(),
				"error", err,
			)
			continue
		}

		stats.RemindersQueued++
	}
}

// formatReminderMessage formats the reminder text in HTML.
func (j *DeadlineRemindersJob) formatReminderMessage(t *task.Task) string {
	var sb strings.Builder

	sb.WriteString("⏰ <b>Напоминание о сроке</b>\n\n")
	sb.WriteString(fmt.Sprintf("Задача: <b>%s</b>\n", t.Title))
	sb.WriteString(fmt.Sprintf("Срок: %s\n", timeutil.FormatDeadline(t.Deadline)))
	sb.WriteString(fmt.Sprintf("До срока: %s\n\n", timeutil.FormatUntilDeadline(t.Deadline)))
	sb.WriteString("Задача ещё не принята в работу.")

	return sb.String()
}

// LastRunStats returns statistics from the last sweep.
func (j *DeadlineRemindersJob) LastRunStats() *DeadlineRemindersStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*DeadlineRemindersStats)
}
