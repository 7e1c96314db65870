// Package user содержит доменную модель пользователя бота.
// Пользователь — это сотрудник университета, привязанный к Telegram-аккаунту.
// Ролей всего две: ректор (единственный администратор) и сотрудник.
package user

import (
	"strings"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role определяет роль пользователя в системе.
type Role string

const (
	// RoleRector - единственный администратор: создаёт, правит и удаляет задачи.
	RoleRector Role = "rector"
	// RoleStaff - сотрудник: получает задачи, принимает и завершает их.
	RoleStaff Role = "staff"
)

// IsValid проверяет, что роль корректна.
func (r Role) IsValid() bool {
	switch r {
	case RoleRector, RoleStaff:
		return true
	default:
		return false
	}
}

// IsRector возвращает true для роли ректора.
func (r Role) IsRector() bool {
	return r == RoleRector
}

// IsStaff возвращает true для роли сотрудника.
func (r Role) IsStaff() bool {
	return r == RoleStaff
}

// String возвращает строковое представление роли.
func (r Role) String() string {
	return string(r)
}

// ParseRole разбирает строку в Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewDomainError("user", "ParseRole", shared.ErrInvalidInput, "unknown role: "+s)
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User - зарегистрированный пользователь бота.
type User struct {
	// TelegramID - внешняя идентичность: ID пользователя в Telegram.
	// Совпадает с chat ID личного чата, куда бот шлёт уведомления.
	TelegramID shared.TelegramID

	// Username - @username в Telegram (может меняться, обновляется при lookup).
	Username string

	// FirstName, LastName - имя и фамилия, введённые при регистрации.
	FirstName string
	LastName  string

	// Phone - номер телефона, полученный через кнопку "поделиться контактом".
	// Уникален в системе.
	Phone shared.PhoneNumber

	// Role - роль, неизменяемая после регистрации.
	Role Role

	// RegisteredAt - время регистрации.
	RegisteredAt time.Time

	// UpdatedAt - время последнего обновления записи.
	UpdatedAt time.Time
}

// FullName возвращает "Имя Фамилия".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Mention возвращает упоминание пользователя: @username либо полное имя.
func (u *User) Mention() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName()
}

// UpdateUsername обновляет username, если он изменился в Telegram.
// Возвращает true, если значение поменялось.
func (u *User) UpdateUsername(username string) bool {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if u.Username == username {
		return false
	}
	u.Username = username
	u.UpdatedAt = time.Now().UTC()
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewUserParams содержит параметры для регистрации нового пользователя.
type NewUserParams struct {
	TelegramID shared.TelegramID
	Username   string
	FirstName  string
	LastName   string
	Phone      shared.PhoneNumber
	Role       Role
}

// NewUser создаёт нового пользователя с валидацией всех полей.
func NewUser(params NewUserParams) (*User, error) {
	if !params.TelegramID.IsValid() {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidID, "invalid telegram ID")
	}

	firstName := strings.TrimSpace(params.FirstName)
	if len(firstName) == 0 || len(firstName) > 100 {
		return nil, shared.NewDomainError("user", "New", shared.ErrEmptyValue, "first name must be 1-100 chars")
	}

	lastName := strings.TrimSpace(params.LastName)
	if len(lastName) == 0 || len(lastName) > 100 {
		return nil, shared.NewDomainError("user", "New", shared.ErrEmptyValue, "last name must be 1-100 chars")
	}

	if !params.Phone.IsValid() {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidInput, "invalid phone number")
	}

	if !params.Role.IsValid() {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidInput, "invalid role")
	}

	now := time.Now().UTC()

	return &User{
		TelegramID:   params.TelegramID,
		Username:     strings.TrimPrefix(strings.TrimSpace(params.Username), "@"),
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        params.Phone,
		Role:         params.Role,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}
