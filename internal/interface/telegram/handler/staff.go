package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/application/query"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// STAFF HANDLER
// Rector-only registry views: /staff roster and /export_users CSV.
// ══════════════════════════════════════════════════════════════════════════════

// StaffHandler handles the staff roster and registry export.
type StaffHandler struct {
	listStaff *query.ListStaffHandler
	cards     *presenter.TaskPresenter
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(listStaff *query.ListStaffHandler, cards *presenter.TaskPresenter) *StaffHandler {
	return &StaffHandler{listStaff: listStaff, cards: cards}
}

// Roster renders the staff list for the rector.
func (h *StaffHandler) Roster(ctx context.Context, viewerID int64) (*Response, error) {
	res, err := h.listStaff.Handle(ctx, query.ListStaffQuery{ViewerID: viewerID})
	if err != nil {
		if errors.Is(err, shared.ErrPermissionDenied) {
			return textResponse("❌ Список сотрудников доступен только ректору."), nil
		}
		return nil, err
	}

	return textResponse(h.cards.Roster(res.Staff)), nil
}

// Export renders the full user registry as a CSV document.
func (h *StaffHandler) Export(ctx context.Context, viewerID int64) (*Response, error) {
	data, err := h.listStaff.ExportUsers(ctx, viewerID)
	if err != nil {
		if errors.Is(err, shared.ErrPermissionDenied) {
			return textResponse("❌ Выгрузка доступна только ректору."), nil
		}
		return nil, err
	}

	filename := fmt.Sprintf("users_%s.csv", time.Now().UTC().Format("2006-01-02"))
	return &Response{
		Document: &Document{
			Filename: filename,
			Data:     data,
			Caption:  "📄 Выгрузка зарегистрированных пользователей",
		},
	}, nil
}
