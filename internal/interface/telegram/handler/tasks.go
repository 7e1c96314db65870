package handler

import (
	"context"

	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASKS HANDLER
// /tasks shows the role-aware task list; task cards open via the
// "task:view:<id>" callback.
// ══════════════════════════════════════════════════════════════════════════════

// TasksHandler handles the task list and task cards.
type TasksHandler struct {
	listQuery *query.ListTasksHandler
	getQuery  *query.GetTaskHandler
	cards     *presenter.TaskPresenter
	keyboards *presenter.KeyboardBuilder
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(
	listQuery *query.ListTasksHandler,
	getQuery *query.GetTaskHandler,
	cards *presenter.TaskPresenter,
	keyboards *presenter.KeyboardBuilder,
) *TasksHandler {
	return &TasksHandler{
		listQuery: listQuery,
		getQuery:  getQuery,
		cards:     cards,
		keyboards: keyboards,
	}
}

// List renders the viewer's task list.
func (h *TasksHandler) List(ctx context.Context, viewerID int64) (*Response, error) {
	res, err := h.listQuery.Handle(ctx, query.ListTasksQuery{ViewerID: viewerID})
	if err != nil {
		return nil, err
	}

	resp := &Response{Text: h.cards.List(res)}
	if len(res.Tasks) > 0 {
		resp.Keyboard = h.keyboards.TaskListKeyboard(res.Tasks)
	}
	return resp, nil
}

// Board renders the whole board: every task with aggregate progress.
// Task cards stay closed to outsiders, so the board carries no
// per-task buttons.
func (h *TasksHandler) Board(ctx context.Context, viewerID int64) (*Response, error) {
	res, err := h.listQuery.Handle(ctx, query.ListTasksQuery{ViewerID: viewerID, AllTasks: true})
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:     h.cards.List(res),
		Keyboard: h.keyboards.BoardKeyboard(),
	}, nil
}

// Card renders one task card with its action keyboard.
func (h *TasksHandler) Card(ctx context.Context, viewerID int64, taskID string) (*Response, error) {
	details, err := h.getQuery.Handle(ctx, query.GetTaskQuery{ViewerID: viewerID, TaskID: taskID})
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:     h.cards.Card(details),
		Keyboard: h.keyboards.TaskCardKeyboard(details),
	}, nil
}
