package command

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
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
	if _, ok := r.users[u.TelegramID]; ok {
		return shared.ErrUserAlreadyExists
	}
	// Same check order as the single-rector index and the phone unique key
	for _, existing := range r.users {
		if u.Role.IsRector() && existing.Role.IsRector() {
			return shared.ErrRectorExists
		}
		if existing.Phone == u.Phone {
			return shared.ErrPhoneTaken
		}
	}
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
	if _, ok := r.users[u.TelegramID]; !ok {
		return shared.ErrUserNotFound
	}
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
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeUserRepo) FindStaff(_ context.Context, query string) (*user.User, error) {
	query = strings.TrimSpace(query)
	for _, u := range r.users {
		if !u.Role.IsStaff() {
			continue
		}
		if strings.TrimPrefix(query, "@") == u.Username {
			return u, nil
		}
		if query == strconv.FormatInt(u.TelegramID.Int64(), 10) {
			return u, nil
		}
		if strings.EqualFold(query, u.FullName()) {
			return u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

type fakeTaskRepo struct {
	tasks    map[shared.TaskID]*task.Task
	comments []*task.Comment
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[shared.TaskID]*task.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, t *task.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id shared.TaskID) (*task.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, shared.ErrTaskNotFound
	}
	return t, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t *task.Task) error {
	if _, ok := r.tasks[t.ID]; !ok {
		return shared.ErrTaskNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

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

func (r *fakeTaskRepo) Delete(_ context.Context, id shared.TaskID) error {
	if _, ok := r.tasks[id]; !ok {
		return shared.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

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
	var out []*task.Task
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTaskRepo) ListDueWithin(_ context.Context, now time.Time, lookahead time.Duration) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range r.tasks {
		if t.NeedsReminder(now, lookahead) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) AddComment(_ context.Context, c *task.Comment) error {
	if _, ok := r.tasks[c.TaskID]; !ok {
		return shared.ErrTaskNotFound
	}
	r.comments = append(r.comments, c)
	return nil
}

type fakeQueue struct {
	queued []*notification.Notification
}

func (q *fakeQueue) Enqueue(_ context.Context, n *notification.Notification) error {
	q.queued = append(q.queued, n)
	return nil
}

func (q *fakeQueue) Dequeue(_ context.Context) (*notification.Notification, error) {
	return nil, shared.ErrQueueClosed
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) byType(t notification.NotificationType) []*notification.Notification {
	var out []*notification.Notification
	for _, n := range q.queued {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeBus struct {
	events []shared.Event
}

func (b *fakeBus) Publish(event shared.Event) error {
	b.events = append(b.events, event)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

const rectorPhone = "+77010000001"

func makeUser(t *testing.T, id int64, role user.Role, phone, first, last, username string) *user.User {
	t.Helper()
	p, err := shared.NewPhoneNumber(phone)
	assert.NoError(t, err)
	u, err := user.NewUser(user.NewUserParams{
		TelegramID: shared.TelegramID(id),
		Username:   username,
		FirstName:  first,
		LastName:   last,
		Phone:      p,
		Role:       role,
	})
	assert.NoError(t, err)
	return u
}

func makeRector(t *testing.T) *user.User {
	return makeUser(t, 100, user.RoleRector, rectorPhone, "Ерлан", "Сыдыков", "rector")
}

func makeStaff(t *testing.T, id int64, first, last, username string) *user.User {
	return makeUser(t, id, user.RoleStaff, "+7701000"+strconv.FormatInt(1000+id, 10), first, last, username)
}

// ─────────────────────────────────────────────────────────────────────────────
// RegisterUser
// ─────────────────────────────────────────────────────────────────────────────

func TestRegisterUser_RectorByPhone(t *testing.T) {
	repo := newFakeUserRepo()
	queue := &fakeQueue{}
	phone, _ := shared.NewPhoneNumber(rectorPhone)
	h := NewRegisterUserHandler(repo, queue, &fakeBus{}, phone, nil)

	result, err := h.Handle(context.Background(), RegisterUserCommand{
		TelegramID:    100,
		ContactUserID: 100,
		Phone:         "+7 701 000-00-01",
		FirstName:     "Ерлан",
		LastName:      "Сыдыков",
	})

	assert.NoError(t, err)
	assert.False(t, result.AlreadyRegistered)
	assert.Equal(t, user.RoleRector, result.User.Role)
	assert.Len(t, queue.byType(notification.NotificationTypeWelcome), 1)
}

func TestRegisterUser_StaffByDefault(t *testing.T) {
	repo := newFakeUserRepo(makeRector(t))
	queue := &fakeQueue{}
	phone, _ := shared.NewPhoneNumber(rectorPhone)
	h := NewRegisterUserHandler(repo, queue, &fakeBus{}, phone, nil)

	result, err := h.Handle(context.Background(), RegisterUserCommand{
		TelegramID:    201,
		ContactUserID: 201,
		Phone:         "+77012000001",
		FirstName:     "Асель",
		LastName:      "Нурланова",
	})

	assert.NoError(t, err)
	assert.Equal(t, user.RoleStaff, result.User.Role)

	// The rector hears about the new staff member
	notices := queue.byType(notification.NotificationTypeStaffRegistered)
	assert.Len(t, notices, 1)
	assert.Equal(t, int64(100), notices[0].RecipientID.Int64())
}

func TestRegisterUser_Idempotent(t *testing.T) {
	rector := makeRector(t)
	repo := newFakeUserRepo(rector)
	phone, _ := shared.NewPhoneNumber(rectorPhone)
	h := NewRegisterUserHandler(repo, &fakeQueue{}, &fakeBus{}, phone, nil)

	result, err := h.Handle(context.Background(), RegisterUserCommand{
		TelegramID:    100,
		ContactUserID: 100,
		Phone:         rectorPhone,
		FirstName:     "Ерлан",
	})

	assert.NoError(t, err)
	assert.True(t, result.AlreadyRegistered)
	assert.Equal(t, rector, result.User)
}

func TestRegisterUser_SecondRectorRoleConflict(t *testing.T) {
	repo := newFakeUserRepo(makeRector(t))
	phone, _ := shared.NewPhoneNumber(rectorPhone)
	h := NewRegisterUserHandler(repo, &fakeQueue{}, &fakeBus{}, phone, nil)

	// A different Telegram account presenting the rector's phone
	_, err := h.Handle(context.Background(), RegisterUserCommand{
		TelegramID:    101,
		ContactUserID: 101,
		Phone:         rectorPhone,
		FirstName:     "Самозванец",
	})

	assert.ErrorIs(t, err, shared.ErrRoleConflict)
	_, lookupErr := repo.GetByTelegramID(context.Background(), shared.TelegramID(101))
	assert.ErrorIs(t, lookupErr, shared.ErrNotFound)
}

func TestRegisterUser_ForeignContactRejected(t *testing.T) {
	phone, _ := shared.NewPhoneNumber(rectorPhone)
	h := NewRegisterUserHandler(newFakeUserRepo(), &fakeQueue{}, &fakeBus{}, phone, nil)

	_, err := h.Handle(context.Background(), RegisterUserCommand{
		TelegramID:    201,
		ContactUserID: 999,
		Phone:         "+77012000001",
		FirstName:     "Асель",
	})

	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateTask
// ─────────────────────────────────────────────────────────────────────────────

func futureDeadline() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02 15:04")
}

func TestCreateTask_ResolvesAssignees(t *testing.T) {
	rector := makeRector(t)
	staffA := makeStaff(t, 201, "Асель", "Нурланова", "asel")
	staffB := makeStaff(t, 202, "Данияр", "Оспанов", "daniyar")
	users := newFakeUserRepo(rector, staffA, staffB)
	tasks := newFakeTaskRepo()
	queue := &fakeQueue{}
	h := NewCreateTaskHandler(tasks, users, queue, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), CreateTaskCommand{
		CreatorID:    100,
		Title:        "Подготовить отчёт",
		Description:  "Квартальный отчёт по факультетам",
		DeadlineRaw:  futureDeadline(),
		AssigneeRefs: []string{"@asel", "Данияр Оспанов"},
	})

	assert.NoError(t, err)
	assert.Len(t, result.Assignees, 2)
	assert.Equal(t, task.StatusPending, result.Task.Status())

	assigned := queue.byType(notification.NotificationTypeTaskAssigned)
	assert.Len(t, assigned, 2)
	assert.NotEmpty(t, assigned[0].Buttons)
}

func TestCreateTask_AssignAll(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"),
		makeStaff(t, 203, "Гульнара", "Ахметова", "gulnara"))
	h := NewCreateTaskHandler(newFakeTaskRepo(), users, &fakeQueue{}, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), CreateTaskCommand{
		CreatorID:   100,
		Title:       "Совещание",
		Description: "Подготовиться к совещанию",
		DeadlineRaw: futureDeadline(),
		AssignAll:   true,
	})

	assert.NoError(t, err)
	assert.Len(t, result.Assignees, 3)
}

func TestCreateTask_OnlyRector(t *testing.T) {
	staff := makeStaff(t, 201, "Асель", "Нурланова", "asel")
	users := newFakeUserRepo(makeRector(t), staff)
	h := NewCreateTaskHandler(newFakeTaskRepo(), users, &fakeQueue{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), CreateTaskCommand{
		CreatorID:    201,
		Title:        "Задача",
		Description:  "Описание",
		DeadlineRaw:  futureDeadline(),
		AssigneeRefs: []string{"@asel"},
	})

	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestCreateTask_UnknownAssignee(t *testing.T) {
	users := newFakeUserRepo(makeRector(t))
	h := NewCreateTaskHandler(newFakeTaskRepo(), users, &fakeQueue{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), CreateTaskCommand{
		CreatorID:    100,
		Title:        "Задача",
		Description:  "Описание",
		DeadlineRaw:  futureDeadline(),
		AssigneeRefs: []string{"@nobody"},
	})

	assert.ErrorIs(t, err, shared.ErrInvalidAssignee)
}

func TestCreateTask_PastDeadline(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	h := NewCreateTaskHandler(newFakeTaskRepo(), users, &fakeQueue{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), CreateTaskCommand{
		CreatorID:    100,
		Title:        "Задача",
		Description:  "Описание",
		DeadlineRaw:  "2020-01-01 10:00",
		AssigneeRefs: []string{"@asel"},
	})

	assert.ErrorIs(t, err, shared.ErrInvalidDeadline)
}

// ─────────────────────────────────────────────────────────────────────────────
// Accept / Complete
// ─────────────────────────────────────────────────────────────────────────────

func seedTask(t *testing.T, tasks *fakeTaskRepo, users *fakeUserRepo, assignees ...int64) *task.Task {
	t.Helper()
	ids := make([]shared.TelegramID, 0, len(assignees))
	for _, id := range assignees {
		ids = append(ids, shared.TelegramID(id))
	}
	tk, err := task.NewTask(task.NewTaskParams{
		ID:          shared.TaskID("3c2e0f9a-1c9a-4f7e-b2ab-0f4f4c6a7d11"),
		Title:       "Подготовить отчёт",
		Description: "Квартальный отчёт",
		Deadline:    time.Now().Add(48 * time.Hour),
		CreatorID:   100,
		AssigneeIDs: ids,
	})
	assert.NoError(t, err)
	assert.NoError(t, tasks.Create(context.Background(), tk))
	return tk
}

func TestAcceptTask_NotifiesCreator(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	queue := &fakeQueue{}
	h := NewAcceptTaskHandler(tasks, users, queue, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), AcceptTaskCommand{ActorID: 201, TaskID: tk.ID.String()})

	assert.NoError(t, err)
	assert.Equal(t, task.StatusAccepted, result.Task.Status())

	notices := queue.byType(notification.NotificationTypeTaskAccepted)
	assert.Len(t, notices, 1)
	assert.Equal(t, int64(100), notices[0].RecipientID.Int64())
}

func TestAcceptTask_NotAssignee(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	h := NewAcceptTaskHandler(tasks, users, &fakeQueue{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), AcceptTaskCommand{ActorID: 202, TaskID: tk.ID.String()})

	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestCompleteTask_LastAssigneeTriggersPrompt(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201, 202)
	queue := &fakeQueue{}
	accept := NewAcceptTaskHandler(tasks, users, queue, &fakeBus{}, nil)
	complete := NewCompleteTaskHandler(tasks, users, queue, &fakeBus{}, nil)
	ctx := context.Background()

	_, err := accept.Handle(ctx, AcceptTaskCommand{ActorID: 201, TaskID: tk.ID.String()})
	assert.NoError(t, err)
	_, err = accept.Handle(ctx, AcceptTaskCommand{ActorID: 202, TaskID: tk.ID.String()})
	assert.NoError(t, err)

	first, err := complete.Handle(ctx, CompleteTaskCommand{ActorID: 201, TaskID: tk.ID.String()})
	assert.NoError(t, err)
	assert.False(t, first.AllCompleted)
	assert.Len(t, queue.byType(notification.NotificationTypeTaskCompleted), 1)

	last, err := complete.Handle(ctx, CompleteTaskCommand{ActorID: 202, TaskID: tk.ID.String()})
	assert.NoError(t, err)
	assert.True(t, last.AllCompleted)
	assert.Equal(t, task.StatusCompleted, last.Task.Status())

	prompts := queue.byType(notification.NotificationTypeAllCompleted)
	assert.Len(t, prompts, 1)
	assert.Equal(t, int64(100), prompts[0].RecipientID.Int64())
	assert.Len(t, prompts[0].Buttons, 1)
	assert.Len(t, prompts[0].Buttons[0], 2)
}

func TestCompleteTask_WithoutAccept(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	h := NewCompleteTaskHandler(tasks, users, &fakeQueue{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), CompleteTaskCommand{ActorID: 201, TaskID: tk.ID.String()})

	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

// ─────────────────────────────────────────────────────────────────────────────
// Edit / Delete
// ─────────────────────────────────────────────────────────────────────────────

func TestEditTask_ReassignNotifiesNewAssignees(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	queue := &fakeQueue{}
	h := NewEditTaskHandler(tasks, users, queue, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), EditTaskCommand{
		ActorID:      100,
		TaskID:       tk.ID.String(),
		AssigneeRefs: []string{"@daniyar"},
	})

	assert.NoError(t, err)
	assert.True(t, result.AssigneesChanged)
	assert.Len(t, result.Task.Assignments, 1)
	assert.Equal(t, shared.TelegramID(202), result.Task.Assignments[0].UserID)

	edited := queue.byType(notification.NotificationTypeTaskEdited)
	assert.Len(t, edited, 1)
	assert.Equal(t, int64(202), edited[0].RecipientID.Int64())
}

func TestEditTask_OnlyCreator(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	h := NewEditTaskHandler(tasks, users, &fakeQueue{}, &fakeBus{}, nil)

	title := "Новый заголовок"
	_, err := h.Handle(context.Background(), EditTaskCommand{
		ActorID: 201,
		TaskID:  tk.ID.String(),
		Title:   &title,
	})

	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestDeleteTask_NotifiesAssignees(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	queue := &fakeQueue{}
	h := NewDeleteTaskHandler(tasks, queue, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), DeleteTaskCommand{ActorID: 100, TaskID: tk.ID.String()})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.NotifiedCount)
	assert.Len(t, queue.byType(notification.NotificationTypeTaskDeleted), 1)

	_, err = tasks.GetByID(context.Background(), tk.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteTask_SilentSkipsNotifications(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	queue := &fakeQueue{}
	h := NewDeleteTaskHandler(tasks, queue, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), DeleteTaskCommand{ActorID: 100, TaskID: tk.ID.String(), Silent: true})

	assert.NoError(t, err)
	assert.Zero(t, result.NotifiedCount)
	assert.Empty(t, queue.queued)
}

// ─────────────────────────────────────────────────────────────────────────────
// Comments
// ─────────────────────────────────────────────────────────────────────────────

func TestAddComment_StaffNotifiesRector(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	queue := &fakeQueue{}
	h := NewAddCommentHandler(tasks, users, queue, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), AddCommentCommand{
		AuthorID: 201,
		TaskID:   tk.ID.String(),
		Text:     "Принял в работу, отчёт будет к среде",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.NotifiedCount)

	notices := queue.byType(notification.NotificationTypeCommentAdded)
	assert.Len(t, notices, 1)
	assert.Equal(t, int64(100), notices[0].RecipientID.Int64())
}

func TestAddComment_OutsiderRejected(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201)
	h := NewAddCommentHandler(tasks, users, &fakeQueue{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), AddCommentCommand{
		AuthorID: 202,
		TaskID:   tk.ID.String(),
		Text:     "Комментарий",
	})

	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

// ─────────────────────────────────────────────────────────────────────────────
// Trigger reminder
// ─────────────────────────────────────────────────────────────────────────────

type fakeSweeper struct {
	runs int
}

func (s *fakeSweeper) Run(_ context.Context) error {
	s.runs++
	return nil
}

func TestTriggerReminder_RectorOnly(t *testing.T) {
	users := newFakeUserRepo(makeRector(t), makeStaff(t, 201, "Асель", "Нурланова", "asel"))
	sweeper := &fakeSweeper{}
	h := NewTriggerReminderHandler(newFakeTaskRepo(), users, &fakeQueue{}, sweeper, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), TriggerReminderCommand{ActorID: 201})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Zero(t, sweeper.runs)

	_, err = h.Handle(context.Background(), TriggerReminderCommand{ActorID: 100})
	assert.NoError(t, err)
	assert.Equal(t, 1, sweeper.runs)
}

func TestTriggerReminder_TaskReachesAllAssignees(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201, 202)
	assert.NoError(t, tk.Accept(201))
	queue := &fakeQueue{}
	sweeper := &fakeSweeper{}
	h := NewTriggerReminderHandler(tasks, users, queue, sweeper, &fakeBus{}, nil)

	result, err := h.Handle(context.Background(), TriggerReminderCommand{ActorID: 100, TaskID: tk.ID.String()})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Notified)
	assert.Zero(t, sweeper.runs)

	// Both assignees get the nudge, including the one who already accepted
	reminders := queue.byType(notification.NotificationTypeDeadlineReminder)
	assert.Len(t, reminders, 2)
	recipients := map[int64]bool{}
	for _, n := range reminders {
		recipients[n.RecipientID.Int64()] = true
		assert.Contains(t, n.Message, tk.Title)
	}
	assert.True(t, recipients[201])
	assert.True(t, recipients[202])
}

func TestTriggerReminder_AcceptButtonOnlyForPending(t *testing.T) {
	users := newFakeUserRepo(makeRector(t),
		makeStaff(t, 201, "Асель", "Нурланова", "asel"),
		makeStaff(t, 202, "Данияр", "Оспанов", "daniyar"))
	tasks := newFakeTaskRepo()
	tk := seedTask(t, tasks, users, 201, 202)
	assert.NoError(t, tk.Accept(201))
	queue := &fakeQueue{}
	h := NewTriggerReminderHandler(tasks, users, queue, &fakeSweeper{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), TriggerReminderCommand{ActorID: 100, TaskID: tk.ID.String()})
	assert.NoError(t, err)

	for _, n := range queue.byType(notification.NotificationTypeDeadlineReminder) {
		if n.RecipientID.Int64() == 202 {
			assert.NotEmpty(t, n.Buttons)
		} else {
			assert.Empty(t, n.Buttons)
		}
	}
}

func TestTriggerReminder_UnknownTask(t *testing.T) {
	users := newFakeUserRepo(makeRector(t))
	h := NewTriggerReminderHandler(newFakeTaskRepo(), users, &fakeQueue{}, &fakeSweeper{}, &fakeBus{}, nil)

	_, err := h.Handle(context.Background(), TriggerReminderCommand{
		ActorID: 100,
		TaskID:  "9f7e0d1c-2b3a-44c5-8d6e-7f8a9b0c1d2e",
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}
