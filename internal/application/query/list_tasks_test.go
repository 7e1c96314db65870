package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeUserRepo struct {
	users map[shared.TelegramID]*user.User
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[shared.TelegramID]*user.User)}
	for _, u := range users {
		r.users[u.TelegramID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.users[u.TelegramID] = u
	return nil
}

func (r *fakeUserRepo) GetByTelegramID(_ context.Context, id shared.TelegramID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByPhone(_ context.Context, phone shared.PhoneNumber) (*user.User, error) {
	for _, u := range r.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	r.users[u.TelegramID] = u
	return nil
}

func (r *fakeUserRepo) ListStaff(_ context.Context) ([]*user.User, error) {
	var staff []*user.User
	for _, u := range r.users {
		if u.Role.IsStaff() {
			staff = append(staff, u)
		}
	}
	return staff, nil
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]*user.User, error) {
	var all []*user.User
	for _, u := range r.users {
		all = append(all, u)
	}
	return all, nil
}

func (r *fakeUserRepo) GetRector(_ context.Context) (*user.User, error) {
	for _, u := range r.users {
		if u.Role.IsRector() {
			return u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) RectorExists(ctx context.Context) (bool, error) {
	_, err := r.GetRector(ctx)
	return err == nil, nil
}

func (r *fakeUserRepo) FindStaff(_ context.Context, _ string) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}

type fakeTaskRepo struct {
	tasks []*task.Task
}

func (r *fakeTaskRepo) Create(_ context.Context, t *task.Task) error {
	r.tasks = append(r.tasks, t)
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id shared.TaskID) (*task.Task, error) {
	for _, t := range r.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, shared.ErrTaskNotFound
}

func (r *fakeTaskRepo) Update(_ context.Context, _ *task.Task) error { return nil }

func (r *fakeTaskRepo) Mutate(ctx context.Context, id shared.TaskID, fn func(*task.Task) error) (*task.Task, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, _ shared.TaskID) error { return nil }

func (r *fakeTaskRepo) ListByCreator(_ context.Context, creatorID shared.TelegramID) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range r.tasks {
		if t.CreatorID == creatorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListByAssignee(_ context.Context, userID shared.TelegramID) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range r.tasks {
		if t.IsAssignee(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListAll(_ context.Context) ([]*task.Task, error) {
	return r.tasks, nil
}

func (r *fakeTaskRepo) ListDueWithin(_ context.Context, _ time.Time, _ time.Duration) ([]*task.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) AddComment(_ context.Context, _ *task.Comment) error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func makeUser(t *testing.T, id int64, role user.Role, phone string) *user.User {
	t.Helper()
	p, err := shared.NewPhoneNumber(phone)
	assert.NoError(t, err)
	u, err := user.NewUser(user.NewUserParams{
		TelegramID: shared.TelegramID(id),
		FirstName:  "Имя",
		LastName:   "Фамилия",
		Phone:      p,
		Role:       role,
	})
	assert.NoError(t, err)
	return u
}

func seedTask(t *testing.T, repo *fakeTaskRepo, id string, title string, assignees ...int64) *task.Task {
	t.Helper()
	ids := make([]shared.TelegramID, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, shared.TelegramID(a))
	}
	tk, err := task.NewTask(task.NewTaskParams{
		ID:          shared.TaskID(id),
		Title:       title,
		Description: "Описание",
		Deadline:    time.Now().Add(48 * time.Hour),
		CreatorID:   100,
		AssigneeIDs: ids,
	})
	assert.NoError(t, err)
	assert.NoError(t, repo.Create(context.Background(), tk))
	return tk
}

// ─────────────────────────────────────────────────────────────────────────────
// ListTasks
// ─────────────────────────────────────────────────────────────────────────────

func TestListTasks_StaffSeesOnlyAssigned(t *testing.T) {
	users := newFakeUserRepo(
		makeUser(t, 100, user.RoleRector, "+77010000001"),
		makeUser(t, 201, user.RoleStaff, "+77010000002"),
		makeUser(t, 202, user.RoleStaff, "+77010000003"))
	tasks := &fakeTaskRepo{}
	seedTask(t, tasks, "3c2e0f9a-1c9a-4f7e-b2ab-0f4f4c6a7d11", "Отчёт", 201)
	seedTask(t, tasks, "3c2e0f9a-1c9a-4f7e-b2ab-0f4f4c6a7d12", "Совещание", 202)
	h := NewListTasksHandler(tasks, users)

	res, err := h.Handle(context.Background(), ListTasksQuery{ViewerID: 201})

	assert.NoError(t, err)
	assert.Len(t, res.Tasks, 1)
	assert.Equal(t, "Отчёт", res.Tasks[0].Title)
	assert.False(t, res.AllTasks)
}

func TestListTasks_BoardShowsEveryTask(t *testing.T) {
	users := newFakeUserRepo(
		makeUser(t, 100, user.RoleRector, "+77010000001"),
		makeUser(t, 201, user.RoleStaff, "+77010000002"),
		makeUser(t, 202, user.RoleStaff, "+77010000003"))
	tasks := &fakeTaskRepo{}
	seedTask(t, tasks, "3c2e0f9a-1c9a-4f7e-b2ab-0f4f4c6a7d11", "Отчёт", 201)
	seedTask(t, tasks, "3c2e0f9a-1c9a-4f7e-b2ab-0f4f4c6a7d12", "Совещание", 202)
	h := NewListTasksHandler(tasks, users)

	// Staff member 201 opens the whole board
	res, err := h.Handle(context.Background(), ListTasksQuery{ViewerID: 201, AllTasks: true})

	assert.NoError(t, err)
	assert.Len(t, res.Tasks, 2)
	assert.True(t, res.AllTasks)
	assert.Equal(t, user.RoleStaff, res.ViewerRole)
}

func TestListTasks_BoardRequiresRegistration(t *testing.T) {
	tasks := &fakeTaskRepo{}
	h := NewListTasksHandler(tasks, newFakeUserRepo())

	_, err := h.Handle(context.Background(), ListTasksQuery{ViewerID: 999, AllTasks: true})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}
