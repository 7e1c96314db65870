// Package task содержит доменную модель задачи — ядро бизнес-логики бота.
// Здесь живут жизненный цикл задачи, статусы назначений и проверки прав.
// Никаких внешних зависимостей, кроме общих доменных типов.
package task

import (
	"strings"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет статус назначения (и агрегированный статус задачи).
// Переходы строго вперёд: Pending → Accepted → Completed.
type Status string

const (
	// StatusPending - задача назначена, сотрудник ещё не принял её.
	StatusPending Status = "pending"
	// StatusAccepted - сотрудник принял задачу в работу.
	StatusAccepted Status = "accepted"
	// StatusCompleted - сотрудник завершил задачу. Терминальный статус.
	StatusCompleted Status = "completed"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true для терминального статуса.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// rank возвращает порядковый номер статуса для проверки монотонности.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo проверяет, что переход идёт строго на следующий шаг вперёд.
func (s Status) CanTransitionTo(next Status) bool {
	return next.rank() == s.rank()+1
}

// String возвращает строковое представление статуса.
func (s Status) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT
// Назначение хранит статус задачи для конкретного сотрудника.
// Статус задачи в целом — агрегат по всем назначениям (см. Task.Status).
// ══════════════════════════════════════════════════════════════════════════════

// Assignment - связь задачи с одним сотрудником и его личный статус.
type Assignment struct {
	// UserID - Telegram ID сотрудника.
	UserID shared.TelegramID

	// Status - личный статус сотрудника по этой задаче.
	Status Status

	// AcceptedAt, CompletedAt - отметки времени переходов.
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// Accept переводит назначение из Pending в Accepted.
func (a *Assignment) Accept(now time.Time) error {
	if a.Status != StatusPending {
		return shared.ErrTaskNotPending
	}
	a.Status = StatusAccepted
	t := now.UTC()
	a.AcceptedAt = &t
	return nil
}

// Complete переводит назначение из Accepted в Completed.
func (a *Assignment) Complete(now time.Time) error {
	if a.Status != StatusAccepted {
		return shared.ErrTaskNotAccepted
	}
	a.Status = StatusCompleted
	t := now.UTC()
	a.CompletedAt = &t
	return nil
}

// NeedsReminder возвращает true, если сотрудника ещё надо подталкивать:
// он не принял и не завершил задачу.
func (a *Assignment) NeedsReminder() bool {
	return a.Status == StatusPending
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMENT
// ══════════════════════════════════════════════════════════════════════════════

// Comment - комментарий к задаче. Порядок комментариев — порядок вставки.
type Comment struct {
	ID        string
	TaskID    shared.TaskID
	AuthorID  shared.TelegramID
	Text      string
	CreatedAt time.Time
}

// NewComment создаёт комментарий с валидацией текста.
func NewComment(id string, taskID shared.TaskID, authorID shared.TelegramID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, shared.NewDomainError("task", "Comment", shared.ErrEmptyValue, "comment text cannot be empty")
	}
	if len(text) > 4000 {
		return nil, shared.NewDomainError("task", "Comment", shared.ErrInvalidInput, "comment text too long")
	}
	return &Comment{
		ID:        id,
		TaskID:    taskID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: TASK
// ══════════════════════════════════════════════════════════════════════════════

// Task - задача, созданная ректором и назначенная сотрудникам.
type Task struct {
	// ID - внутренний уникальный идентификатор (UUID).
	ID shared.TaskID

	// Title, Description - заголовок и описание.
	Title       string
	Description string

	// Deadline - срок исполнения. В момент создания строго в будущем.
	Deadline time.Time

	// CreatorID - Telegram ID ректора, создавшего задачу.
	// Владелец: только он правит и удаляет задачу.
	CreatorID shared.TelegramID

	// Assignments - назначения сотрудникам. Непусто после создания.
	Assignments []Assignment

	// Comments - комментарии в порядке вставки.
	Comments []*Comment

	// CreatedAt, UpdatedAt - отметки времени записи.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTaskParams содержит параметры для создания новой задачи.
type NewTaskParams struct {
	ID          shared.TaskID
	Title       string
	Description string
	Deadline    time.Time
	CreatorID   shared.TelegramID
	AssigneeIDs []shared.TelegramID
}

// NewTask создаёт задачу с валидацией инвариантов:
// непустой заголовок и описание, срок строго в будущем,
// хотя бы один исполнитель, все назначения стартуют в Pending.
func NewTask(params NewTaskParams) (*Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, shared.NewDomainError("task", "New", shared.ErrEmptyValue, "title cannot be empty")
	}

	description := strings.TrimSpace(params.Description)
	if description == "" {
		return nil, shared.NewDomainError("task", "New", shared.ErrEmptyValue, "description cannot be empty")
	}

	if !params.Deadline.After(time.Now()) {
		return nil, shared.ErrDeadlineInPast
	}

	if !params.CreatorID.IsValid() {
		return nil, shared.NewDomainError("task", "New", shared.ErrInvalidID, "invalid creator ID")
	}

	if len(params.AssigneeIDs) == 0 {
		return nil, shared.ErrNoAssignees
	}

	now := time.Now().UTC()

	assignments := make([]Assignment, 0, len(params.AssigneeIDs))
	seen := make(map[shared.TelegramID]bool, len(params.AssigneeIDs))
	for _, id := range params.AssigneeIDs {
		if !id.IsValid() {
			return nil, shared.ErrAssigneeNotStaff
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		assignments = append(assignments, Assignment{UserID: id, Status: StatusPending})
	}

	return &Task{
		ID:          params.ID,
		Title:       title,
		Description: description,
		Deadline:    params.Deadline.UTC(),
		CreatorID:   params.CreatorID,
		Assignments: assignments,
		Comments:    nil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// Status возвращает агрегированный статус задачи по всем назначениям:
// Completed — когда завершили все; Accepted — когда принял хотя бы один;
// иначе Pending.
func (t *Task) Status() Status {
	if len(t.Assignments) == 0 {
		return StatusPending
	}

	allCompleted := true
	anyAccepted := false
	for _, a := range t.Assignments {
		if a.Status != StatusCompleted {
			allCompleted = false
		}
		if a.Status == StatusAccepted || a.Status == StatusCompleted {
			anyAccepted = true
		}
	}

	switch {
	case allCompleted:
		return StatusCompleted
	case anyAccepted:
		return StatusAccepted
	default:
		return StatusPending
	}
}

// AssignmentFor возвращает назначение для сотрудника, если оно есть.
func (t *Task) AssignmentFor(userID shared.TelegramID) (*Assignment, bool) {
	for i := range t.Assignments {
		if t.Assignments[i].UserID == userID {
			return &t.Assignments[i], true
		}
	}
	return nil, false
}

// IsAssignee проверяет, назначен ли сотрудник на задачу.
func (t *Task) IsAssignee(userID shared.TelegramID) bool {
	_, ok := t.AssignmentFor(userID)
	return ok
}

// IsCreator проверяет, является ли пользователь создателем задачи.
func (t *Task) IsCreator(userID shared.TelegramID) bool {
	return t.CreatorID == userID
}

// Accept принимает задачу от имени сотрудника.
// Возвращает shared.ErrPermissionDenied, если он не назначен,
// и shared.ErrInvalidTransition, если его назначение не в Pending.
func (t *Task) Accept(userID shared.TelegramID) error {
	a, ok := t.AssignmentFor(userID)
	if !ok {
		return shared.ErrNotAssignee
	}
	if err := a.Accept(time.Now()); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete завершает задачу от имени сотрудника.
// Возвращает true вторым значением, когда это было последнее незавершённое
// назначение — агрегированный статус задачи стал Completed.
func (t *Task) Complete(userID shared.TelegramID) (allDone bool, err error) {
	a, ok := t.AssignmentFor(userID)
	if !ok {
		return false, shared.ErrNotAssignee
	}
	if err := a.Complete(time.Now()); err != nil {
		return false, err
	}
	t.UpdatedAt = time.Now().UTC()
	return t.Status() == StatusCompleted, nil
}

// CanComment проверяет право комментировать: создатель или исполнитель.
func (t *Task) CanComment(userID shared.TelegramID) bool {
	return t.IsCreator(userID) || t.IsAssignee(userID)
}

// AddComment добавляет комментарий с проверкой прав.
func (t *Task) AddComment(c *Comment) error {
	if !t.CanComment(c.AuthorID) {
		return shared.ErrNotAssignee
	}
	t.Comments = append(t.Comments, c)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EDITING
// Правки доступны только создателю. Патч применяет лишь заданные поля.
// ══════════════════════════════════════════════════════════════════════════════

// Patch описывает частичную правку задачи. nil-поле означает "не менять".
type Patch struct {
	Title       *string
	Description *string
	Deadline    *time.Time

	// AssigneeIDs - полная замена состава исполнителей.
	// Все новые назначения стартуют в Pending (как в исходной системе:
	// переназначение сбрасывает индивидуальный прогресс).
	AssigneeIDs []shared.TelegramID

	// ForceStatus - административное выставление статуса ректором в обход
	// обычных переходов. Применяется ко всем назначениям.
	ForceStatus *Status
}

// IsEmpty возвращает true, если патч ничего не меняет.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Deadline == nil &&
		p.AssigneeIDs == nil && p.ForceStatus == nil
}

// Apply применяет патч от имени actor с проверкой прав и инвариантов.
// При ошибке задача остаётся без изменений.
func (t *Task) Apply(actor shared.TelegramID, p Patch) error {
	if !t.IsCreator(actor) {
		return shared.ErrNotCreator
	}

	// Сначала валидация всех полей, потом применение: правка атомарна.
	var (
		title       = t.Title
		description = t.Description
		deadline    = t.Deadline
	)

	if p.Title != nil {
		title = strings.TrimSpace(*p.Title)
		if title == "" {
			return shared.NewDomainError("task", "Edit", shared.ErrEmptyValue, "title cannot be empty")
		}
	}
	if p.Description != nil {
		description = strings.TrimSpace(*p.Description)
		if description == "" {
			return shared.NewDomainError("task", "Edit", shared.ErrEmptyValue, "description cannot be empty")
		}
	}
	if p.Deadline != nil {
		if !p.Deadline.After(time.Now()) {
			return shared.ErrDeadlineInPast
		}
		deadline = p.Deadline.UTC()
	}

	var assignments []Assignment
	if p.AssigneeIDs != nil {
		if len(p.AssigneeIDs) == 0 {
			return shared.ErrNoAssignees
		}
		seen := make(map[shared.TelegramID]bool, len(p.AssigneeIDs))
		for _, id := range p.AssigneeIDs {
			if !id.IsValid() {
				return shared.ErrAssigneeNotStaff
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			assignments = append(assignments, Assignment{UserID: id, Status: StatusPending})
		}
	}

	if p.ForceStatus != nil && !p.ForceStatus.IsValid() {
		return shared.NewDomainError("task", "Edit", shared.ErrInvalidInput, "invalid status")
	}

	t.Title = title
	t.Description = description
	t.Deadline = deadline
	if assignments != nil {
		t.Assignments = assignments
	}
	if p.ForceStatus != nil {
		for i := range t.Assignments {
			t.Assignments[i].Status = *p.ForceStatus
		}
	}
	t.UpdatedAt = time.Now().UTC()

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMINDERS
// ══════════════════════════════════════════════════════════════════════════════

// NeedsReminder возвращает true, если задача попадает в окно напоминаний:
// не завершена и срок наступает в пределах lookahead от now.
func (t *Task) NeedsReminder(now time.Time, lookahead time.Duration) bool {
	if t.Status() == StatusCompleted {
		return false
	}
	until := t.Deadline.Sub(now)
	return until <= lookahead
}

// ReminderRecipients возвращает сотрудников, которым нужно напоминание:
// тех, кто ещё не принял и не завершил задачу.
func (t *Task) ReminderRecipients() []shared.TelegramID {
	var ids []shared.TelegramID
	for _, a := range t.Assignments {
		if a.NeedsReminder() {
			ids = append(ids, a.UserID)
		}
	}
	return ids
}

// AssigneeIDs возвращает Telegram ID всех исполнителей.
func (t *Task) AssigneeIDs() []shared.TelegramID {
	ids := make([]shared.TelegramID, len(t.Assignments))
	for i, a := range t.Assignments {
		ids[i] = a.UserID
	}
	return ids
}

// IsOverdue возвращает true, если срок прошёл, а задача не завершена.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status() != StatusCompleted && now.After(t.Deadline)
}
