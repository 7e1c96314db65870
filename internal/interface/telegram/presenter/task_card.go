package presenter

import (
	"fmt"
	"strings"

	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK PRESENTER
// Renders task lists, task cards and the staff roster as Telegram HTML.
// ══════════════════════════════════════════════════════════════════════════════

// TaskPresenter renders tasks for Telegram display.
type TaskPresenter struct{}

// NewTaskPresenter creates a new TaskPresenter.
func NewTaskPresenter() *TaskPresenter {
	return &TaskPresenter{}
}

// ─────────────────────────────────────────────────────────────────────────────
// TASK LIST
// ─────────────────────────────────────────────────────────────────────────────

// List renders the task list for the viewer's role. The whole-board
// view shows aggregate progress for everyone, personal lists show the
// viewer's own status.
func (p *TaskPresenter) List(res *query.ListTasksResult) string {
	if len(res.Tasks) == 0 {
		switch {
		case res.AllTasks:
			return "📭 Задач пока нет."
		case res.ViewerRole.IsRector():
			return "📭 У вас пока нет задач.\n\nСоздайте первую: /newtask"
		default:
			return "📭 Вам пока не назначено ни одной задачи."
		}
	}

	aggregate := res.AllTasks || res.ViewerRole.IsRector()

	var sb strings.Builder
	switch {
	case res.AllTasks:
		sb.WriteString("📋 <b>Все задачи</b>\n\n")
	case res.ViewerRole.IsRector():
		sb.WriteString("📋 <b>Ваши задачи</b>\n\n")
	default:
		sb.WriteString("📋 <b>Назначенные вам задачи</b>\n\n")
	}

	for i, t := range res.Tasks {
		sb.WriteString(fmt.Sprintf("%d. %s <b>%s</b>\n", i+1, p.listEmoji(t), escapeHTML(t.Title)))
		sb.WriteString(fmt.Sprintf("   📅 %s (%s)\n", t.DeadlineFormatted, t.UntilDeadline))

		if aggregate {
			sb.WriteString(fmt.Sprintf("   👥 выполнено %d из %d", t.CompletedCount, t.AssigneeCount))
			if t.CommentCount > 0 {
				sb.WriteString(fmt.Sprintf(" · 💬 %d", t.CommentCount))
			}
			sb.WriteString("\n")
		} else {
			sb.WriteString(fmt.Sprintf("   %s\n", statusLineRu(t.ViewerStatus)))
		}
		sb.WriteString("\n")
	}

	if res.AllTasks {
		return strings.TrimRight(sb.String(), "\n")
	}
	sb.WriteString("<i>Нажмите на задачу, чтобы открыть карточку.</i>")
	return sb.String()
}

// listEmoji picks the status marker for one list row.
func (p *TaskPresenter) listEmoji(t query.TaskSummary) string {
	if t.Overdue {
		return "🔴"
	}
	switch t.Status {
	case task.StatusCompleted:
		return "✅"
	case task.StatusAccepted:
		return "🟡"
	default:
		return "⚪️"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// TASK CARD
// ─────────────────────────────────────────────────────────────────────────────

// Card renders the full task card with assignees and comments.
func (p *TaskPresenter) Card(d *query.TaskDetails) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📌 <b>%s</b>\n\n", escapeHTML(d.Title)))

	if d.Description != "" {
		sb.WriteString(escapeHTML(d.Description))
		sb.WriteString("\n\n")
	}

	deadline := fmt.Sprintf("📅 <b>Срок:</b> %s (%s)\n", d.DeadlineFormatted, d.UntilDeadline)
	if d.Overdue {
		deadline = fmt.Sprintf("🔴 <b>Срок прошёл:</b> %s\n", d.DeadlineFormatted)
	}
	sb.WriteString(deadline)
	sb.WriteString(fmt.Sprintf("👤 <b>Поставил:</b> %s\n\n", escapeHTML(d.CreatorName)))

	sb.WriteString("<b>Исполнители:</b>\n")
	for _, a := range d.Assignments {
		sb.WriteString(fmt.Sprintf("• %s — %s\n", escapeHTML(a.DisplayName), statusLineRu(a.Status)))
	}

	if len(d.Comments) > 0 {
		sb.WriteString("\n<b>Комментарии:</b>\n")
		for _, c := range d.Comments {
			sb.WriteString(fmt.Sprintf(
				"💬 <b>%s</b> <i>(%s)</i>\n%s\n",
				escapeHTML(c.AuthorName),
				timeutil.FormatAlmaty(c.CreatedAt, "02.01 15:04"),
				escapeHTML(c.Text),
			))
		}
	}

	return sb.String()
}

// statusLineRu renders one assignment status in Russian.
func statusLineRu(s task.Status) string {
	switch s {
	case task.StatusAccepted:
		return "🟡 в работе"
	case task.StatusCompleted:
		return "✅ выполнено"
	case task.StatusPending:
		return "⚪️ не принято"
	default:
		return string(s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// STAFF ROSTER
// ─────────────────────────────────────────────────────────────────────────────

// Roster renders the staff roster for the rector.
func (p *TaskPresenter) Roster(staff []query.StaffView) string {
	if len(staff) == 0 {
		return "👥 Пока ни один сотрудник не зарегистрировался.\n\n" +
			"Сотрудники регистрируются командой /start, поделившись контактом."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 <b>Сотрудники</b> (%d)\n\n", len(staff)))
	for i, s := range staff {
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>", i+1, escapeHTML(s.FullName)))
		if s.Username != "" {
			sb.WriteString(" @" + escapeHTML(s.Username))
		}
		sb.WriteString(fmt.Sprintf("\n   📱 %s · с %s\n",
			escapeHTML(s.Phone),
			timeutil.FormatAlmaty(s.RegisteredAt, "02.01.2006"),
		))
	}

	sb.WriteString("\n<i>Назначайте задачи по @username, ID или «Имя Фамилия».</i>")
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// MENUS AND HELP
// ─────────────────────────────────────────────────────────────────────────────

// Menu renders the role-aware main menu text.
func (p *TaskPresenter) Menu(u *user.User) string {
	if u.Role.IsRector() {
		return fmt.Sprintf(
			"С возвращением, <b>%s</b>! 👋\n\n"+
				"Вы вошли как <b>ректор</b>.\n\n"+
				"<b>Команды:</b>\n"+
				"• /newtask — поставить задачу\n"+
				"• /tasks — ваши задачи\n"+
				"• /edit — изменить задачу\n"+
				"• /delete — удалить задачу\n"+
				"• /staff — список сотрудников\n"+
				"• /remind — разослать напоминания\n"+
				"• /export_users — выгрузка CSV",
			escapeHTML(u.FullName()),
		)
	}

	return fmt.Sprintf(
		"С возвращением, <b>%s</b>! 👋\n\n"+
			"Вы зарегистрированы как <b>сотрудник</b>.\n\n"+
			"<b>Команды:</b>\n"+
			"• /tasks — назначенные вам задачи\n"+
			"• /alltasks — все задачи отдела\n"+
			"• /help — справка\n\n"+
			"Принимайте и завершайте задачи кнопками на карточке задачи.",
		escapeHTML(u.FullName()),
	)
}

// escapeHTML escapes HTML special characters in user-supplied text.
func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
	)
	return replacer.Replace(s)
}
