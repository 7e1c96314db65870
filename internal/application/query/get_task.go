package query

import (
	"context"
	"errors"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TASK QUERY
// Full task card with per-assignee statuses and the comment thread.
// Visible to the creator and the assignees only.
// ══════════════════════════════════════════════════════════════════════════════

// GetTaskQuery contains the parameters for fetching one task.
type GetTaskQuery struct {
	// ViewerID is the Telegram ID of the user requesting the task.
	ViewerID int64

	// TaskID is the ID of the task.
	TaskID string
}

// Validate validates the query.
func (q GetTaskQuery) Validate() error {
	if q.ViewerID <= 0 {
		return errors.New("get_task: viewer_id is required")
	}
	if q.TaskID == "" {
		return errors.New("get_task: task_id is required")
	}
	return nil
}

// AssignmentView is one assignee's row on the task card.
type AssignmentView struct {
	UserID      int64
	DisplayName string
	Status      task.Status
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// CommentView is one comment on the task card.
type CommentView struct {
	AuthorID   int64
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// TaskDetails is the full task card.
type TaskDetails struct {
	ID                string
	Title             string
	Description       string
	Deadline          time.Time
	DeadlineFormatted string
	UntilDeadline     string
	Overdue           bool
	Status            task.Status

	CreatorID   int64
	CreatorName string

	Assignments []AssignmentView
	Comments    []CommentView

	// ViewerIsCreator and ViewerStatus drive which actions the
	// presentation layer offers.
	ViewerIsCreator bool
	ViewerStatus    task.Status
	ViewerAssigned  bool
}

// GetTaskHandler handles the GetTaskQuery.
type GetTaskHandler struct {
	taskRepo task.Repository
	userRepo user.Repository
}

// NewGetTaskHandler creates a new GetTaskHandler.
func NewGetTaskHandler(taskRepo task.Repository, userRepo user.Repository) *GetTaskHandler {
	return &GetTaskHandler{taskRepo: taskRepo, userRepo: userRepo}
}

// Handle executes the get task query.
func (h *GetTaskHandler) Handle(ctx context.Context, q GetTaskQuery) (*TaskDetails, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	taskID, err := shared.NewTaskID(q.TaskID)
	if err != nil {
		return nil, err
	}

	t, err := h.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	viewerID := shared.TelegramID(q.ViewerID)
	if !t.IsCreator(viewerID) && !t.IsAssignee(viewerID) {
		return nil, shared.ErrNotAssignee
	}

	details := &TaskDetails{
		ID:                t.ID.String(),
		Title:             t.Title,
		Description:       t.Description,
		Deadline:          t.Deadline,
		DeadlineFormatted: timeutil.FormatDeadline(t.Deadline),
		UntilDeadline:     timeutil.FormatUntilDeadline(t.Deadline),
		Overdue:           t.IsOverdue(time.Now()),
		Status:            t.Status(),
		CreatorID:         t.CreatorID.Int64(),
		CreatorName:       h.displayName(ctx, t.CreatorID),
		ViewerIsCreator:   t.IsCreator(viewerID),
	}

	if a, ok := t.AssignmentFor(viewerID); ok {
		details.ViewerAssigned = true
		details.ViewerStatus = a.Status
	}

	for _, a := range t.Assignments {
		details.Assignments = append(details.Assignments, AssignmentView{
			UserID:      a.UserID.Int64(),
			DisplayName: h.displayName(ctx, a.UserID),
			Status:      a.Status,
			AcceptedAt:  a.AcceptedAt,
			CompletedAt: a.CompletedAt,
		})
	}

	for _, c := range t.Comments {
		details.Comments = append(details.Comments, CommentView{
			AuthorID:   c.AuthorID.Int64(),
			AuthorName: h.displayName(ctx, c.AuthorID),
			Text:       c.Text,
			CreatedAt:  c.CreatedAt,
		})
	}

	return details, nil
}

// displayName resolves a user's full name, falling back to the raw ID
// for users who disappeared from the registry.
func (h *GetTaskHandler) displayName(ctx context.Context, id shared.TelegramID) string {
	u, err := h.userRepo.GetByTelegramID(ctx, id)
	if err != nil {
		return id.String()
	}
	return u.FullName()
}
