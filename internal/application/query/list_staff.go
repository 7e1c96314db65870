package query

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STAFF QUERY
// Staff roster for the rector: shown inline when assigning tasks and
// exported as CSV via /export_users.
// ══════════════════════════════════════════════════════════════════════════════

// ListStaffQuery contains the parameters for listing staff.
type ListStaffQuery struct {
	// ViewerID is the Telegram ID of the user requesting the roster.
	ViewerID int64
}

// Validate validates the query.
func (q ListStaffQuery) Validate() error {
	if q.ViewerID <= 0 {
		return errors.New("list_staff: viewer_id is required")
	}
	return nil
}

// StaffView is one staff member in the roster.
type StaffView struct {
	TelegramID   int64
	FullName     string
	Username     string
	Phone        string
	RegisteredAt time.Time
}

// ListStaffResult contains the staff roster.
type ListStaffResult struct {
	Staff []StaffView
}

// ListStaffHandler handles the ListStaffQuery.
type ListStaffHandler struct {
	userRepo user.Repository
}

// NewListStaffHandler creates a new ListStaffHandler.
func NewListStaffHandler(userRepo user.Repository) *ListStaffHandler {
	return &ListStaffHandler{userRepo: userRepo}
}

// Handle executes the list staff query. Rector only.
func (h *ListStaffHandler) Handle(ctx context.Context, q ListStaffQuery) (*ListStaffResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if err := h.requireRector(ctx, q.ViewerID); err != nil {
		return nil, err
	}

	staff, err := h.userRepo.ListStaff(ctx)
	if err != nil {
		return nil, err
	}

	result := &ListStaffResult{Staff: make([]StaffView, 0, len(staff))}
	for _, s := range staff {
		result.Staff = append(result.Staff, StaffView{
			TelegramID:   s.TelegramID.Int64(),
			FullName:     s.FullName(),
			Username:     s.Username,
			Phone:        s.Phone.String(),
			RegisteredAt: s.RegisteredAt,
		})
	}

	return result, nil
}

// ExportUsers renders the full user registry as CSV. Rector only.
func (h *ListStaffHandler) ExportUsers(ctx context.Context, viewerID int64) ([]byte, error) {
	if viewerID <= 0 {
		return nil, errors.New("export_users: viewer_id is required")
	}

	if err := h.requireRector(ctx, viewerID); err != nil {
		return nil, err
	}

	users, err := h.userRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"telegram_id", "username", "first_name", "last_name", "phone", "role", "registered_at"}); err != nil {
		return nil, fmt.Errorf("export_users: write header: %w", err)
	}

	for _, u := range users {
		record := []string{
			fmt.Sprintf("%d", u.TelegramID.Int64()),
			u.Username,
			u.FirstName,
			u.LastName,
			u.Phone.String(),
			u.Role.String(),
			u.RegisteredAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("export_users: write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export_users: flush: %w", err)
	}

	return buf.Bytes(), nil
}

func (h *ListStaffHandler) requireRector(ctx context.Context, viewerID int64) error {
	viewer, err := h.userRepo.GetByTelegramID(ctx, shared.TelegramID(viewerID))
	if err != nil {
		return err
	}
	if !viewer.Role.IsRector() {
		return shared.NewDomainError("user", "ListStaff", shared.ErrPermissionDenied,
			"only the rector may view the roster")
	}
	return nil
}
