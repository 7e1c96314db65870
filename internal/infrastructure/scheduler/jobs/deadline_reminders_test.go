package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/infrastructure/messaging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

// fakeTaskRepo serves a fixed set of due tasks; the sweep only calls
// ListDueWithin.
type fakeTaskRepo struct {
	due []*task.Task
}

func (r *fakeTaskRepo) Create(context.Context, *task.Task) error  { return nil }
func (r *fakeTaskRepo) Update(context.Context, *task.Task) error  { return nil }
func (r *fakeTaskRepo) Delete(context.Context, shared.TaskID) error { return nil }
func (r *fakeTaskRepo) AddComment(context.Context, *task.Comment) error { return nil }

func (r *fakeTaskRepo) GetByID(context.Context, shared.TaskID) (*task.Task, error) {
	return nil, shared.ErrTaskNotFound
}

func (r *fakeTaskRepo) Mutate(context.Context, shared.TaskID, func(*task.Task) error) (*task.Task, error) {
	return nil, shared.ErrTaskNotFound
}

func (r *fakeTaskRepo) ListByCreator(context.Context, shared.TelegramID) ([]*task.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) ListByAssignee(context.Context, shared.TelegramID) ([]*task.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) ListAll(context.Context) ([]*task.Task, error) { return nil, nil }

func (r *fakeTaskRepo) ListDueWithin(context.Context, time.Time, time.Duration) ([]*task.Task, error) {
	return r.due, nil
}

func newDueTask(t *testing.T, assignees ...int64) *task.Task {
	t.Helper()

	ids := make([]shared.TelegramID, len(assignees))
	for i, id := range assignees {
		ids[i] = shared.TelegramID(id)
	}

	created, err := task.NewTask(task.NewTaskParams{
		ID:          shared.TaskID(uuid.NewString()),
		Title:       "Подготовить отчёт",
		Description: "Квартальный отчёт для совета",
		Deadline:    time.Now().Add(3 * time.Hour),
		CreatorID:   shared.TelegramID(1),
		AssigneeIDs: ids,
	})
	assert.NoError(t, err)
	return created
}

func drainQueue(t *testing.T, q *messaging.MemoryQueue) []*notification.Notification {
	t.Helper()
	var out []*notification.Notification
	for q.Len() > 0 {
		n, err := q.Dequeue(context.Background())
		assert.NoError(t, err)
		out = append(out, n)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestDeadlineRemindersQueuesForPendingAssignees(t *testing.T) {
	due := newDueTask(t, 100, 200)
	queue := messaging.NewMemoryQueue(8)

	job := NewDeadlineRemindersJob(
		&fakeTaskRepo{due: []*task.Task{due}},
		queue, messaging.NewMemoryDedupe(), nil,
		DefaultDeadlineRemindersConfig(),
	)

	assert.NoError(t, job.Run(context.Background()))

	queued := drainQueue(t, queue)
	assert.Len(t, queued, 2)

	recipients := map[int64]bool{}
	for _, n := range queued {
		assert.Equal(t, notification.NotificationTypeDeadlineReminder, n.Type)
		assert.Equal(t, due.ID, n.TaskID)
		assert.Contains(t, n.Message, "Подготовить отчёт")
		assert.NotEmpty(t, n.Buttons)
		recipients[n.RecipientID.Int64()] = true
	}
	assert.True(t, recipients[100])
	assert.True(t, recipients[200])

	stats := job.LastRunStats()
	assert.NotNil(t, stats)
	assert.Equal(t, 1, stats.TasksScanned)
	assert.Equal(t, 2, stats.RemindersQueued)
}

func TestDeadlineRemindersSkipsAcceptedAssignees(t *testing.T) {
	due := newDueTask(t, 100, 200)
	assert.NoError(t, due.Accept(shared.TelegramID(100)))

	queue := messaging.NewMemoryQueue(8)
	job := NewDeadlineRemindersJob(
		&fakeTaskRepo{due: []*task.Task{due}},
		queue, messaging.NewMemoryDedupe(), nil,
		DefaultDeadlineRemindersConfig(),
	)

	assert.NoError(t, job.Run(context.Background()))

	queued := drainQueue(t, queue)
	assert.Len(t, queued, 1)
	assert.Equal(t, int64(200), queued[0].RecipientID.Int64())
}

func TestDeadlineRemindersDeduplicatesRepeatSweeps(t *testing.T) {
	due := newDueTask(t, 100)
	queue := messaging.NewMemoryQueue(8)
	dedupe := messaging.NewMemoryDedupe()

	job := NewDeadlineRemindersJob(
		&fakeTaskRepo{due: []*task.Task{due}},
		queue, dedupe, nil,
		DefaultDeadlineRemindersConfig(),
	)

	assert.NoError(t, job.Run(context.Background()))
	assert.NoError(t, job.Run(context.Background()))

	queued := drainQueue(t, queue)
	assert.Len(t, queued, 1)

	stats := job.LastRunStats()
	assert.Equal(t, 0, stats.RemindersQueued)
	assert.Equal(t, 1, stats.RemindersSkipped)
}

func TestDeadlineRemindersEmptySweep(t *testing.T) {
	queue := messaging.NewMemoryQueue(8)
	job := NewDeadlineRemindersJob(
		&fakeTaskRepo{},
		queue, messaging.NewMemoryDedupe(), nil,
		DefaultDeadlineRemindersConfig(),
	)

	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, queue.Len())
	assert.Equal(t, 0, job.LastRunStats().TasksScanned)
}
