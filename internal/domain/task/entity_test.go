package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

const (
	rectorID = shared.TelegramID(100)
	staffA   = shared.TelegramID(201)
	staffB   = shared.TelegramID(202)
)

func newTestTask(t *testing.T, assignees ...shared.TelegramID) *Task {
	t.Helper()
	tk, err := NewTask(NewTaskParams{
		ID:          shared.TaskID("3f2504e0-4f89-41d3-9a0c-0305e82c3301"),
		Title:       "Подготовить отчёт",
		Description: "Квартальный отчёт по кафедре",
		Deadline:    time.Now().Add(48 * time.Hour),
		CreatorID:   rectorID,
		AssigneeIDs: assignees,
	})
	assert.NoError(t, err)
	return tk
}

func TestNewTask_Validation(t *testing.T) {
	base := NewTaskParams{
		ID:          shared.TaskID("3f2504e0-4f89-41d3-9a0c-0305e82c3301"),
		Title:       "Отчёт",
		Description: "Описание",
		Deadline:    time.Now().Add(time.Hour),
		CreatorID:   rectorID,
		AssigneeIDs: []shared.TelegramID{staffA},
	}

	p := base
	p.Title = "   "
	_, err := NewTask(p)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	p = base
	p.Description = ""
	_, err = NewTask(p)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	p = base
	p.Deadline = time.Now().Add(-time.Minute)
	_, err = NewTask(p)
	assert.ErrorIs(t, err, shared.ErrInvalidDeadline)

	p = base
	p.AssigneeIDs = nil
	_, err = NewTask(p)
	assert.ErrorIs(t, err, shared.ErrInvalidAssignee)
}

func TestNewTask_DeduplicatesAssignees(t *testing.T) {
	tk := newTestTask(t, staffA, staffA, staffB)
	assert.Len(t, tk.Assignments, 2)
	assert.Equal(t, StatusPending, tk.Status())
}

func TestStatusTransitions_ForwardOnly(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusAccepted))
	assert.True(t, StatusAccepted.CanTransitionTo(StatusCompleted))

	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusAccepted.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusAccepted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusPending))
}

func TestAcceptAndComplete_SingleAssignee(t *testing.T) {
	tk := newTestTask(t, staffA)

	assert.NoError(t, tk.Accept(staffA))
	assert.Equal(t, StatusAccepted, tk.Status())

	a, ok := tk.AssignmentFor(staffA)
	assert.True(t, ok)
	assert.NotNil(t, a.AcceptedAt)

	allDone, err := tk.Complete(staffA)
	assert.NoError(t, err)
	assert.True(t, allDone)
	assert.Equal(t, StatusCompleted, tk.Status())
}

func TestAccept_Twice(t *testing.T) {
	tk := newTestTask(t, staffA)

	assert.NoError(t, tk.Accept(staffA))
	err := tk.Accept(staffA)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestComplete_WithoutAccept(t *testing.T) {
	tk := newTestTask(t, staffA)

	_, err := tk.Complete(staffA)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestAccept_NotAssignee(t *testing.T) {
	tk := newTestTask(t, staffA)

	err := tk.Accept(staffB)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestAggregateStatus_MultipleAssignees(t *testing.T) {
	tk := newTestTask(t, staffA, staffB)
	assert.Equal(t, StatusPending, tk.Status())

	assert.NoError(t, tk.Accept(staffA))
	assert.Equal(t, StatusAccepted, tk.Status())

	allDone, err := tk.Complete(staffA)
	assert.NoError(t, err)
	assert.False(t, allDone)
	assert.Equal(t, StatusAccepted, tk.Status())

	assert.NoError(t, tk.Accept(staffB))
	allDone, err = tk.Complete(staffB)
	assert.NoError(t, err)
	assert.True(t, allDone)
	assert.Equal(t, StatusCompleted, tk.Status())
}

func TestApply_OnlyCreator(t *testing.T) {
	tk := newTestTask(t, staffA)

	title := "Новый заголовок"
	err := tk.Apply(staffA, Patch{Title: &title})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Equal(t, "Подготовить отчёт", tk.Title)
}

func TestApply_AtomicValidation(t *testing.T) {
	tk := newTestTask(t, staffA)

	title := "Новый заголовок"
	past := time.Now().Add(-time.Hour)
	err := tk.Apply(rectorID, Patch{Title: &title, Deadline: &past})
	assert.ErrorIs(t, err, shared.ErrInvalidDeadline)
	assert.Equal(t, "Подготовить отчёт", tk.Title)
}

func TestApply_ReassignResetsProgress(t *testing.T) {
	tk := newTestTask(t, staffA)
	assert.NoError(t, tk.Accept(staffA))

	err := tk.Apply(rectorID, Patch{AssigneeIDs: []shared.TelegramID{staffA, staffB}})
	assert.NoError(t, err)
	assert.Len(t, tk.Assignments, 2)
	assert.Equal(t, StatusPending, tk.Status())
}

func TestApply_ForceStatus(t *testing.T) {
	tk := newTestTask(t, staffA, staffB)

	done := StatusCompleted
	err := tk.Apply(rectorID, Patch{ForceStatus: &done})
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, tk.Status())
}

func TestAddComment_Permissions(t *testing.T) {
	tk := newTestTask(t, staffA)

	c, err := NewComment("c1", tk.ID, staffA, "Принял в работу")
	assert.NoError(t, err)
	assert.NoError(t, tk.AddComment(c))

	outsider, err := NewComment("c2", tk.ID, staffB, "Мимо проходил")
	assert.NoError(t, err)
	err = tk.AddComment(outsider)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	assert.Len(t, tk.Comments, 1)
}

func TestNewComment_EmptyText(t *testing.T) {
	_, err := NewComment("c1", shared.TaskID("id"), staffA, "   ")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestNeedsReminder(t *testing.T) {
	tk := newTestTask(t, staffA)
	now := time.Now()

	assert.False(t, tk.NeedsReminder(now, time.Hour))
	assert.True(t, tk.NeedsReminder(now, 72*time.Hour))

	assert.NoError(t, tk.Accept(staffA))
	_, err := tk.Complete(staffA)
	assert.NoError(t, err)
	assert.False(t, tk.NeedsReminder(now, 72*time.Hour))
}

func TestReminderRecipients_SkipsAcceptedAndCompleted(t *testing.T) {
	tk := newTestTask(t, staffA, staffB)
	assert.NoError(t, tk.Accept(staffA))

	ids := tk.ReminderRecipients()
	assert.Equal(t, []shared.TelegramID{staffB}, ids)
}

func TestIsOverdue(t *testing.T) {
	tk := newTestTask(t, staffA)

	assert.False(t, tk.IsOverdue(time.Now()))
	assert.True(t, tk.IsOverdue(tk.Deadline.Add(time.Minute)))

	assert.NoError(t, tk.Accept(staffA))
	_, err := tk.Complete(staffA)
	assert.NoError(t, err)
	assert.False(t, tk.IsOverdue(tk.Deadline.Add(time.Minute)))
}
