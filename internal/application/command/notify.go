// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// notifier enqueues outbound notifications for the delivery worker.
// Enqueue failures are logged, never propagated: a task mutation that
// succeeded must not be reported as failed because a side channel is down.
type notifier struct {
	queue  notification.Queue
	logger *slog.Logger
}

func newNotifier(queue notification.Queue, logger *slog.Logger) *notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &notifier{queue: queue, logger: logger}
}

// send builds a notification and puts it on the queue.
func (n *notifier) send(
	ctx context.Context,
	nType notification.NotificationType,
	recipientID shared.TelegramID,
	taskID shared.TaskID,
	message string,
	buttons [][]notification.InlineButton,
) {
	note, err := notification.NewNotification(notification.NewNotificationParams{
		ID:          notification.NotificationID(uuid.NewString()),
		Type:        nType,
		RecipientID: recipientID,
		TaskID:      taskID,
		Message:     message,
		Buttons:     buttons,
	})
	if err != nil {
		n.logger.Error("failed to build notification",
			"type", string(nType),
			"recipient_id", recipientID.Int64(),
			"error", err,
		)
		return
	}

	if err := n.queue.Enqueue(ctx, note); err != nil {
		n.logger.Error("failed to enqueue notification",
			"type", string(nType),
			"recipient_id", recipientID.Int64(),
			"error", err,
		)
	}
}

// sendToMany fans one message out to several recipients.
func (n *notifier) sendToMany(
	ctx context.Context,
	nType notification.NotificationType,
	recipientIDs []shared.TelegramID,
	taskID shared.TaskID,
	message string,
	buttons [][]notification.InlineButton,
) {
	for _, id := range recipientIDs {
		n.send(ctx, nType, id, taskID, message, buttons)
	}
}

// acceptButton is the inline button attached to assignment notifications.
func acceptButton(taskID shared.TaskID) [][]notification.InlineButton {
	return [][]notification.InlineButton{
		{notification.NewCallbackButton("✅ Принять", "task:accept:"+taskID.String())},
	}
}
