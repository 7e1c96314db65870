// Package postgres implements the PostgreSQL persistence layer for the
// rector task bot.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `telegram_id, username, first_name, last_name, phone, role, registered_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create registers a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, phone, role, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		u.TelegramID.Int64(),
		u.Username,
		u.FirstName,
		u.LastName,
		u.Phone.String(),
		u.Role.String(),
		u.RegisteredAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return r.mapUniqueViolation(err, u)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// mapUniqueViolation turns constraint violations into domain errors.
func (r *UserRepository) mapUniqueViolation(err error, u *user.User) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "idx_users_single_rector"):
		return shared.ErrRectorExists
	case strings.Contains(msg, "users_phone_key"):
		return shared.ErrPhoneTaken
	default:
		return shared.ErrUserAlreadyExists
	}
}

// GetByTelegramID returns a user by Telegram ID.
func (r *UserRepository) GetByTelegramID(ctx context.Context, id shared.TelegramID) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE telegram_id = $1`, userColumns)

	row := r.conn.QueryRow(ctx, query, id.Int64())
	return r.scanUser(row)
}

// GetByPhone returns a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone shared.PhoneNumber) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE phone = $1`, userColumns)

	row := r.conn.QueryRow(ctx, query, phone.String())
	return r.scanUser(row)
}

// Update updates a user's profile fields. The role column is never touched:
// roles are immutable after registration.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			username = $1,
			first_name = $2,
			last_name = $3,
			phone = $4,
			updated_at = $5
		WHERE telegram_id = $6
	`

	result, err := r.conn.Exec(ctx, query,
		u.Username,
		u.FirstName,
		u.LastName,
		u.Phone.String(),
		time.Now().UTC(),
		u.TelegramID.Int64(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrPhoneTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// ListStaff returns all staff members ordered by name.
func (r *UserRepository) ListStaff(ctx context.Context) ([]*user.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE role = $1
		ORDER BY first_name, last_name
	`, userColumns)

	return r.queryUsers(ctx, query, user.RoleStaff.String())
}

// ListAll returns all registered users ordered by registration time.
func (r *UserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		ORDER BY registered_at
	`, userColumns)

	return r.queryUsers(ctx, query)
}

// GetRector returns the registered rector.
func (r *UserRepository) GetRector(ctx context.Context) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1`, userColumns)

	row := r.conn.QueryRow(ctx, query, user.RoleRector.String())
	return r.scanUser(row)
}

// RectorExists reports whether a rector is already registered.
func (r *UserRepository) RectorExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`,
		user.RoleRector.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check rector existence: %w", err)
	}
	return exists, nil
}

// FindStaff resolves a staff member from a free-form reference:
// "@username", a numeric Telegram ID, or "FirstName LastName".
func (r *UserRepository) FindStaff(ctx context.Context, ref string) (*user.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, shared.ErrAssigneeNotStaff
	}

	if strings.HasPrefix(ref, "@") {
		query := fmt.Sprintf(`
			SELECT %s FROM users
			WHERE role = $1 AND LOWER(username) = LOWER($2)
		`, userColumns)
		row := r.conn.QueryRow(ctx, query, user.RoleStaff.String(), strings.TrimPrefix(ref, "@"))
		return r.scanUser(row)
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		u, err := r.GetByTelegramID(ctx, shared.TelegramID(id))
		if err != nil {
			return nil, err
		}
		if !u.Role.IsStaff() {
			return nil, shared.ErrAssigneeNotStaff
		}
		return u, nil
	}

	// "FirstName LastName" reference
	parts := strings.Fields(ref)
	if len(parts) < 2 {
		return nil, shared.ErrUserNotFound
	}
	first := parts[0]
	last := strings.Join(parts[1:], " ")

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE role = $1 AND LOWER(first_name) = LOWER($2) AND LOWER(last_name) = LOWER($3)
	`, userColumns)
	row := r.conn.QueryRow(ctx, query, user.RoleStaff.String(), first, last)
	return r.scanUser(row)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var (
		u          user.User
		telegramID int64
		phone      string
		role       string
	)

	err := row.Scan(
		&telegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&phone,
		&role,
		&u.RegisteredAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.TelegramID = shared.TelegramID(telegramID)
	u.Phone = shared.PhoneNumber(phone)
	u.Role = user.Role(role)

	return &u, nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
