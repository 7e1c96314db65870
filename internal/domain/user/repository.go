package user

import (
	"context"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Контракт реестра пользователей. Реализация — в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции реестра пользователей.
type Repository interface {
	// Create регистрирует нового пользователя.
	// Возвращает shared.ErrDuplicateRegistration, если telegram ID или телефон
	// уже зарегистрированы, и shared.ErrRoleConflict при попытке создать
	// второго ректора.
	Create(ctx context.Context, u *User) error

	// GetByTelegramID возвращает пользователя по Telegram ID.
	// Возвращает shared.ErrNotFound, если пользователь не найден.
	GetByTelegramID(ctx context.Context, id shared.TelegramID) (*User, error)

	// GetByPhone возвращает пользователя по номеру телефона.
	// Возвращает shared.ErrNotFound, если пользователь не найден.
	GetByPhone(ctx context.Context, phone shared.PhoneNumber) (*User, error)

	// Update обновляет изменяемые поля пользователя (username, имя).
	// Роль неизменяема: реализация обязана её игнорировать либо отклонять.
	Update(ctx context.Context, u *User) error

	// ListStaff возвращает всех зарегистрированных сотрудников.
	ListStaff(ctx context.Context) ([]*User, error)

	// ListAll возвращает всех пользователей (для выгрузки ректором).
	ListAll(ctx context.Context) ([]*User, error)

	// GetRector возвращает единственного ректора.
	// Возвращает shared.ErrNotFound, если ректор ещё не зарегистрирован.
	GetRector(ctx context.Context) (*User, error)

	// RectorExists проверяет, зарегистрирован ли уже ректор.
	RectorExists(ctx context.Context) (bool, error)

	// FindStaff ищет сотрудника по @username, Telegram ID или "Имя Фамилия".
	// Используется при назначении задачи. Возвращает shared.ErrNotFound,
	// если подходящий сотрудник не найден.
	FindStaff(ctx context.Context, query string) (*User, error)
}
