package presenter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ─────────────────────────────────────────────────────────────────────────────
// Task list
// ─────────────────────────────────────────────────────────────────────────────

func TestListEmptyForRector(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{ViewerRole: user.RoleRector})
	assert.Contains(t, got, "/newtask")
}

func TestListEmptyForStaff(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{ViewerRole: user.RoleStaff})
	assert.Contains(t, got, "не назначено")
	assert.NotContains(t, got, "/newtask")
}

func TestListRectorShowsProgress(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{
		ViewerRole: user.RoleRector,
		Tasks: []query.TaskSummary{{
			ID:                "task-1",
			Title:             "Подготовить отчёт",
			DeadlineFormatted: "15.03.2026 18:00",
			UntilDeadline:     "осталось 3 дн",
			Status:            task.StatusAccepted,
			AssigneeCount:     3,
			CompletedCount:    1,
			CommentCount:      2,
		}},
	})

	assert.Contains(t, got, "Подготовить отчёт")
	assert.Contains(t, got, "выполнено 1 из 3")
	assert.Contains(t, got, "💬 2")
}

func TestListStaffShowsPersonalStatus(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{
		ViewerRole: user.RoleStaff,
		Tasks: []query.TaskSummary{{
			Title:             "Подготовить отчёт",
			DeadlineFormatted: "15.03.2026 18:00",
			UntilDeadline:     "осталось 3 дн",
			ViewerStatus:      task.StatusAccepted,
		}},
	})

	assert.Contains(t, got, "🟡 в работе")
	assert.NotContains(t, got, "выполнено")
}

func TestListBoardShowsAggregateForStaff(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{
		ViewerRole: user.RoleStaff,
		AllTasks:   true,
		Tasks: []query.TaskSummary{{
			Title:             "Подготовить отчёт",
			DeadlineFormatted: "15.03.2026 18:00",
			UntilDeadline:     "осталось 3 дн",
			Status:            task.StatusAccepted,
			AssigneeCount:     3,
			CompletedCount:    1,
		}},
	})

	assert.Contains(t, got, "Все задачи")
	assert.Contains(t, got, "выполнено 1 из 3")
	assert.NotContains(t, got, "карточку")
}

func TestListBoardEmpty(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{ViewerRole: user.RoleStaff, AllTasks: true})
	assert.Contains(t, got, "Задач пока нет")
	assert.NotContains(t, got, "/newtask")
}

func TestListMarksOverdueTasks(t *testing.T) {
	p := NewTaskPresenter()

	got := p.List(&query.ListTasksResult{
		ViewerRole: user.RoleRector,
		Tasks: []query.TaskSummary{{
			Title:   "Просроченная",
			Overdue: true,
			Status:  task.StatusPending,
		}},
	})

	assert.Contains(t, got, "🔴")
}

// ─────────────────────────────────────────────────────────────────────────────
// Task card
// ─────────────────────────────────────────────────────────────────────────────

func TestCardRendersAssigneesAndComments(t *testing.T) {
	p := NewTaskPresenter()

	got := p.Card(&query.TaskDetails{
		Title:             "Подготовить отчёт",
		Description:       "Квартальный отчёт для совета",
		DeadlineFormatted: "15.03.2026 18:00",
		UntilDeadline:     "осталось 3 дн",
		CreatorName:       "Ахмет Байтурсынов",
		Assignments: []query.AssignmentView{
			{DisplayName: "Асель Нурланова", Status: task.StatusCompleted},
			{DisplayName: "Данияр Серик", Status: task.StatusPending},
		},
		Comments: []query.CommentView{
			{AuthorName: "Асель Нурланова", Text: "Готово, проверьте", CreatedAt: time.Now()},
		},
	})

	assert.Contains(t, got, "Подготовить отчёт")
	assert.Contains(t, got, "Квартальный отчёт")
	assert.Contains(t, got, "Ахмет Байтурсынов")
	assert.Contains(t, got, "✅ выполнено")
	assert.Contains(t, got, "⚪️ не принято")
	assert.Contains(t, got, "Готово, проверьте")
}

func TestCardEscapesUserText(t *testing.T) {
	p := NewTaskPresenter()

	got := p.Card(&query.TaskDetails{
		Title:       "Отчёт <script>",
		Description: "a & b",
		CreatorName: "Ректор",
	})

	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "a &amp; b")
	assert.NotContains(t, got, "<script>")
}

func TestCardOverdueDeadline(t *testing.T) {
	p := NewTaskPresenter()

	got := p.Card(&query.TaskDetails{
		Title:             "Просроченная",
		DeadlineFormatted: "01.01.2026 10:00",
		Overdue:           true,
		CreatorName:       "Ректор",
	})

	assert.Contains(t, got, "Срок прошёл")
}

// ─────────────────────────────────────────────────────────────────────────────
// Keyboards
// ─────────────────────────────────────────────────────────────────────────────

func TestTaskListKeyboardOneButtonPerTask(t *testing.T) {
	b := NewKeyboardBuilder()

	kb := b.TaskListKeyboard([]query.TaskSummary{
		{ID: "task-1", Title: "Первая"},
		{ID: "task-2", Title: "Вторая"},
	})

	// Two task rows plus the refresh row.
	assert.Len(t, kb.Rows, 3)
	assert.Equal(t, "task:view:task-1", kb.Rows[0][0].CallbackData)
	assert.Equal(t, "task:view:task-2", kb.Rows[1][0].CallbackData)
}

func TestBoardKeyboardHasNoTaskButtons(t *testing.T) {
	kb := NewKeyboardBuilder().BoardKeyboard()

	assert.Len(t, kb.Rows, 1)
	assert.Equal(t, "cmd:alltasks", kb.Rows[0][0].CallbackData)
	assert.Equal(t, "cmd:tasks", kb.Rows[0][1].CallbackData)
}

func TestTaskCardKeyboardForCreator(t *testing.T) {
	b := NewKeyboardBuilder()

	kb := b.TaskCardKeyboard(&query.TaskDetails{
		ID:              "task-1",
		ViewerIsCreator: true,
	})

	var callbacks []string
	for _, row := range kb.Rows {
		for _, btn := range row {
			callbacks = append(callbacks, btn.CallbackData)
		}
	}
	assert.Contains(t, callbacks, "task:confirm_delete:task-1")
	assert.Contains(t, callbacks, "task:comment:task-1")
	assert.NotContains(t, callbacks, "task:accept:task-1")
}

func TestTaskCardKeyboardForPendingAssignee(t *testing.T) {
	b := NewKeyboardBuilder()

	kb := b.TaskCardKeyboard(&query.TaskDetails{
		ID:             "task-1",
		ViewerAssigned: true,
		ViewerStatus:   task.StatusPending,
	})

	var callbacks []string
	for _, row := range kb.Rows {
		for _, btn := range row {
			callbacks = append(callbacks, btn.CallbackData)
		}
	}
	assert.Contains(t, callbacks, "task:accept:task-1")
	assert.NotContains(t, callbacks, "task:complete:task-1")
	assert.NotContains(t, callbacks, "task:confirm_delete:task-1")
}

func TestTaskCardKeyboardForAcceptedAssignee(t *testing.T) {
	b := NewKeyboardBuilder()

	kb := b.TaskCardKeyboard(&query.TaskDetails{
		ID:             "task-1",
		ViewerAssigned: true,
		ViewerStatus:   task.StatusAccepted,
	})

	var callbacks []string
	for _, row := range kb.Rows {
		for _, btn := range row {
			callbacks = append(callbacks, btn.CallbackData)
		}
	}
	assert.Contains(t, callbacks, "task:complete:task-1")
	assert.NotContains(t, callbacks, "task:accept:task-1")
}

func TestConfirmDeleteKeyboard(t *testing.T) {
	b := NewKeyboardBuilder()

	kb := b.ConfirmDeleteKeyboard("task-1")
	assert.Len(t, kb.Rows, 1)
	assert.Equal(t, "task:delete:task-1", kb.Rows[0][0].CallbackData)
	assert.Equal(t, "task:keep:task-1", kb.Rows[0][1].CallbackData)
}

func TestTruncateLongTitles(t *testing.T) {
	long := strings.Repeat("а", 100)
	short := truncate(long, 30)
	assert.LessOrEqual(t, len([]rune(short)), 31) // ellipsis included
	assert.Equal(t, "тест", truncate("тест", 30))
}
