package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/univer-hub/rector-task-bot/internal/application/command"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
	"github.com/univer-hub/rector-task-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// NEW TASK HANDLER
// Drives the task creation conversation:
//   /newtask → title → description → deadline → assignees → created.
// A dash ("-") skips the description; assignees are comma-separated
// references or the "назначить всем" button.
// ══════════════════════════════════════════════════════════════════════════════

// skipMarker skips an optional conversation step.
const skipMarker = "-"

// NewTaskHandler drives the task creation conversation.
type NewTaskHandler struct {
	createCmd *command.CreateTaskHandler
	sessions  *SessionStore
	keyboards *presenter.KeyboardBuilder
}

// NewNewTaskHandler creates a new NewTaskHandler.
func NewNewTaskHandler(
	createCmd *command.CreateTaskHandler,
	sessions *SessionStore,
	keyboards *presenter.KeyboardBuilder,
) *NewTaskHandler {
	return &NewTaskHandler{
		createCmd: createCmd,
		sessions:  sessions,
		keyboards: keyboards,
	}
}

// Begin starts the conversation.
func (h *NewTaskHandler) Begin(telegramID int64) *Response {
	h.sessions.Set(telegramID, &Session{State: StateNewTaskTitle})

	return &Response{
		Text: "📝 <b>Новая задача</b>\n\n" +
			"Шаг 1 из 4. Введите <b>название</b> задачи:",
		Keyboard: h.keyboards.CancelKeyboard(),
	}
}

// Cancel aborts any active conversation.
func (h *NewTaskHandler) Cancel(telegramID int64) *Response {
	h.sessions.Clear(telegramID)
	return textResponse("✖️ Действие отменено.")
}

// HandleInput advances the conversation with the user's text.
// Returns handled=false when the user has no creation session.
func (h *NewTaskHandler) HandleInput(ctx context.Context, telegramID int64, text string) (resp *Response, handled bool, err error) {
	sess := h.sessions.Get(telegramID)
	if sess == nil {
		return nil, false, nil
	}

	text = strings.TrimSpace(text)

	switch sess.State {
	case StateNewTaskTitle:
		return h.stepTitle(telegramID, sess, text), true, nil
	case StateNewTaskDescription:
		return h.stepDescription(telegramID, sess, text), true, nil
	case StateNewTaskDeadline:
		return h.stepDeadline(telegramID, sess, text), true, nil
	case StateNewTaskAssignees:
		resp, err := h.stepAssignees(ctx, telegramID, sess, text, false)
		return resp, true, err
	default:
		return nil, false, nil
	}
}

// AssignToAll finishes the conversation assigning the task to all staff.
// Wired to the "newtask:all" callback on the assignee step.
func (h *NewTaskHandler) AssignToAll(ctx context.Context, telegramID int64) (*Response, error) {
	sess := h.sessions.Get(telegramID)
	if sess == nil || sess.State != StateNewTaskAssignees {
		return &Response{Toast: "Нет активного создания задачи"}, nil
	}
	return h.stepAssignees(ctx, telegramID, sess, "", true)
}

func (h *NewTaskHandler) stepTitle(telegramID int64, sess *Session, text string) *Response {
	if text == "" {
		return &Response{
			Text:     "Название не может быть пустым. Введите название задачи:",
			Keyboard: h.keyboards.CancelKeyboard(),
		}
	}

	sess.Draft.Title = text
	sess.State = StateNewTaskDescription
	h.sessions.Set(telegramID, sess)

	return &Response{
		Text: "Шаг 2 из 4. Введите <b>описание</b> задачи\n" +
			"(или «-», чтобы пропустить):",
		Keyboard: h.keyboards.CancelKeyboard(),
	}
}

func (h *NewTaskHandler) stepDescription(telegramID int64, sess *Session, text string) *Response {
	if text != skipMarker {
		sess.Draft.Description = text
	}
	sess.State = StateNewTaskDeadline
	h.sessions.Set(telegramID, sess)

	return &Response{
		Text: "Шаг 3 из 4. Введите <b>срок</b> (время Алматы):\n" +
			"<code>2025-12-31 18:00</code>, <code>31.12.2025 18:00</code> или просто дату.",
		Keyboard: h.keyboards.CancelKeyboard(),
	}
}

func (h *NewTaskHandler) stepDeadline(telegramID int64, sess *Session, text string) *Response {
	sess.Draft.DeadlineRaw = text
	sess.State = StateNewTaskAssignees
	h.sessions.Set(telegramID, sess)

	return &Response{
		Text: "Шаг 4 из 4. Кому назначить задачу?\n\n" +
			"Перечислите сотрудников через запятую: @username, ID или «Имя Фамилия».\n" +
			"Или нажмите кнопку, чтобы назначить всем.",
		Keyboard: h.keyboards.AssignAllKeyboard(),
	}
}

func (h *NewTaskHandler) stepAssignees(ctx context.Context, telegramID int64, sess *Session, text string, assignAll bool) (*Response, error) {
	cmd := command.CreateTaskCommand{
		CreatorID:   telegramID,
		Title:       sess.Draft.Title,
		Description: sess.Draft.Description,
		DeadlineRaw: sess.Draft.DeadlineRaw,
		AssignAll:   assignAll,
	}

	if !assignAll {
		if strings.EqualFold(text, "все") || strings.EqualFold(text, "всем") {
			cmd.AssignAll = true
		} else {
			cmd.AssigneeRefs = splitRefs(text)
		}
	}

	result, err := h.createCmd.Handle(ctx, cmd)
	if err != nil {
		return h.creationError(telegramID, sess, err)
	}

	h.sessions.Clear(telegramID)

	names := make([]string, len(result.Assignees))
	for i, a := range result.Assignees {
		names[i] = a.FullName()
	}

	return textResponse(fmt.Sprintf(
		"✅ <b>Задача создана</b>\n\n"+
			"📌 %s\n"+
			"📅 %s\n"+
			"👥 %s\n\n"+
			"Исполнители получили уведомления.",
		result.Task.Title,
		timeutil.FormatDeadline(result.Task.Deadline),
		strings.Join(names, ", "),
	)), nil
}

// creationError keeps the conversation on the failed step so the rector
// can retype just that field.
func (h *NewTaskHandler) creationError(telegramID int64, sess *Session, err error) (*Response, error) {
	switch {
	case errors.Is(err, shared.ErrInvalidDeadline):
		sess.State = StateNewTaskDeadline
		h.sessions.Set(telegramID, sess)
		return &Response{
			Text: "❌ Срок не распознан или уже прошёл.\n\n" +
				"Введите срок ещё раз, например <code>2025-12-31 18:00</code>:",
			Keyboard: h.keyboards.CancelKeyboard(),
		}, nil

	case errors.Is(err, shared.ErrInvalidAssignee):
		h.sessions.Set(telegramID, sess)
		return &Response{
			Text: "❌ Не удалось найти одного из сотрудников.\n\n" +
				"Проверьте написание и перечислите исполнителей ещё раз:",
			Keyboard: h.keyboards.AssignAllKeyboard(),
		}, nil

	case errors.Is(err, shared.ErrPermissionDenied):
		h.sessions.Clear(telegramID)
		return textResponse("❌ Задачи может создавать только ректор."), nil

	default:
		h.sessions.Clear(telegramID)
		return nil, err
	}
}

// splitRefs splits a comma- or newline-separated assignee list.
func splitRefs(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	refs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			refs = append(refs, f)
		}
	}
	return refs
}
