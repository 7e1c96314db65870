// Package query contains read operations (CQRS - Queries).
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
// LIST TASKS QUERY
// The rector sees every task they created; staff see the tasks assigned
// to them together with their personal status. The AllTasks flag shows
// the whole board to anyone registered.
// ══════════════════════════════════════════════════════════════════════════════

// ListTasksQuery contains the parameters for listing tasks.
type ListTasksQuery struct {
	// ViewerID is the Telegram ID of the user requesting the list.
	ViewerID int64

	// AllTasks switches to the whole board regardless of assignment.
	// This is the read-only "все задачи" view available to staff.
	AllTasks bool
}

// Validate validates the query.
func (q ListTasksQuery) Validate() error {
	if q.ViewerID <= 0 {
		return errors.New("list_tasks: viewer_id is required")
	}
	return nil
}

// TaskSummary is one row of the task list.
type TaskSummary struct {
	ID                string
	Title             string
	Deadline          time.Time
	DeadlineFormatted string
	UntilDeadline     string
	Overdue           bool

	// Status is the aggregate task status.
	Status task.Status

	// ViewerStatus is the viewer's own assignment status.
	// Empty for the rector view.
	ViewerStatus task.Status

	AssigneeCount  int
	CompletedCount int
	CommentCount   int
}

// ListTasksResult contains the result of listing tasks.
type ListTasksResult struct {
	// Tasks are ordered by deadline, soonest first.
	Tasks []TaskSummary

	// ViewerRole is the viewer's role, for presentation.
	ViewerRole user.Role

	// AllTasks marks the whole-board view.
	AllTasks bool
}

// ListTasksHandler handles the ListTasksQuery.
type ListTasksHandler struct {
	taskRepo task.Repository
	userRepo user.Repository
}

// NewListTasksHandler creates a new ListTasksHandler.
func NewListTasksHandler(taskRepo task.Repository, userRepo user.Repository) *ListTasksHandler {
	return &ListTasksHandler{taskRepo: taskRepo, userRepo: userRepo}
}

// Handle executes the list tasks query.
func (h *ListTasksHandler) Handle(ctx context.Context, q ListTasksQuery) (*ListTasksResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	viewerID := shared.TelegramID(q.ViewerID)

	viewer, err := h.userRepo.GetByTelegramID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var tasks []*task.Task
	switch {
	case q.AllTasks:
		tasks, err = h.taskRepo.ListAll(ctx)
	case viewer.Role.IsRector():
		tasks, err = h.taskRepo.ListByCreator(ctx, viewerID)
	default:
		tasks, err = h.taskRepo.ListByAssignee(ctx, viewerID)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, buildSummary(t, viewer, now))
	}

	return &ListTasksResult{Tasks: summaries, ViewerRole: viewer.Role, AllTasks: q.AllTasks}, nil
}

func buildSummary(t *task.Task, viewer *user.User, now time.Time) TaskSummary {
	s := TaskSummary{
		ID:                t.ID.String(),
		Title:             t.Title,
		Deadline:          t.Deadline,
		DeadlineFormatted: timeutil.FormatDeadline(t.Deadline),
		UntilDeadline:     timeutil.FormatUntilDeadline(t.Deadline),
		Overdue:           t.IsOverdue(now),
		Status:            t.Status(),
		AssigneeCount:     len(t.Assignments),
		CommentCount:      len(t.Comments),
	}

	for _, a := range t.Assignments {
		if a.Status == task.StatusCompleted {
			s.CompletedCount++
		}
	}

	if viewer.Role.IsStaff() {
		if a, ok := t.AssignmentFor(viewer.TelegramID); ok {
			s.ViewerStatus = a.Status
		}
	}

	return s
}
