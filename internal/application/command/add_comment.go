package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD COMMENT COMMAND
// The creator and the assignees comment on a task; everyone else is
// rejected. Comments from staff notify the rector, comments from the
// rector notify all assignees.
// ══════════════════════════════════════════════════════════════════════════════

// AddCommentCommand contains the data to add a comment.
type AddCommentCommand struct {
	// AuthorID is the Telegram ID of the comment author.
	AuthorID int64

	// TaskID is the ID of the task being commented.
	TaskID string

	// Text is the comment body.
	Text string
}

// Validate validates the command.
func (c AddCommentCommand) Validate() error {
	if c.AuthorID <= 0 {
		return errors.New("add_comment: author_id is required")
	}
	if c.TaskID == "" {
		return errors.New("add_comment: task_id is required")
	}
	if c.Text == "" {
		return errors.New("add_comment: text is required")
	}
	return nil
}

// AddCommentResult contains the result of adding a comment.
type AddCommentResult struct {
	// Comment is the stored comment.
	Comment *task.Comment

	// NotifiedCount is how many notifications were queued.
	NotifiedCount int
}

// AddCommentHandler handles the AddCommentCommand.
type AddCommentHandler struct {
	taskRepo       task.Repository
	userRepo       user.Repository
	notifier       *notifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewAddCommentHandler creates a new AddCommentHandler.
func NewAddCommentHandler(
	taskRepo task.Repository,
	userRepo user.Repository,
	queue notification.Queue,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *AddCommentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddCommentHandler{
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		notifier:       newNotifier(queue, logger),
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the add comment command.
func (h *AddCommentHandler) Handle(ctx context.Context, cmd AddCommentCommand) (*AddCommentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	taskID, err := shared.NewTaskID(cmd.TaskID)
	if err != nil {
		return nil, err
	}

	author := shared.TelegramID(cmd.AuthorID)

	comment, err := task.NewComment(uuid.NewString(), taskID, author, cmd.Text)
	if err != nil {
		return nil, err
	}

	t, err := h.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !t.CanComment(author) {
		return nil, shared.ErrNotAssignee
	}

	if err := h.taskRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	h.logger.Info("comment added",
		"task_id", taskID.String(),
		"author_id", cmd.AuthorID,
	)

	recipients := h.commentRecipients(t, author)
	name := actorName(ctx, h.userRepo, author)
	message := fmt.Sprintf("💬 <b>%s</b> к задаче «<b>%s</b>»:\n\n%s", name, t.Title, comment.Text)
	h.notifier.sendToMany(ctx, notification.NotificationTypeCommentAdded, recipients, t.ID, message, nil)

	event := shared.CommentAddedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCommentAdded, taskID.String()),
		TaskID:    taskID.String(),
		Title:     t.Title,
		AuthorID:  cmd.AuthorID,
		Text:      comment.Text,
	}
	_ = h.eventPublisher.Publish(event)

	return &AddCommentResult{Comment: comment, NotifiedCount: len(recipients)}, nil
}

// commentRecipients returns everyone on the task except the author.
func (h *AddCommentHandler) commentRecipients(t *task.Task, author shared.TelegramID) []shared.TelegramID {
	if t.IsCreator(author) {
		return t.AssigneeIDs()
	}

	recipients := []shared.TelegramID{t.CreatorID}
	for _, id := range t.AssigneeIDs() {
		if id != author {
			recipients = append(recipients, id)
		}
	}
	return recipients
}
