package task

import (
	"context"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// Repository определяет контракт хранилища задач.
// Реализации живут в infrastructure/persistence.
type Repository interface {
	// Create сохраняет новую задачу вместе с назначениями.
	Create(ctx context.Context, t *Task) error

	// GetByID возвращает задачу с назначениями и комментариями.
	// Возвращает shared.ErrTaskNotFound, если задачи нет.
	GetByID(ctx context.Context, id shared.TaskID) (*Task, error)

	// Update перезаписывает поля задачи и её назначения.
	Update(ctx context.Context, t *Task) error

	// Mutate атомарно читает задачу, применяет fn и сохраняет результат.
	// Конкурентные переходы по одной задаче сериализуются реализацией
	// (например, блокировкой строки). Если fn возвращает ошибку,
	// задача остаётся без изменений.
	Mutate(ctx context.Context, id shared.TaskID, fn func(*Task) error) (*Task, error)

	// Delete удаляет задачу со всеми назначениями и комментариями.
	Delete(ctx context.Context, id shared.TaskID) error

	// ListByCreator возвращает задачи ректора, отсортированные по сроку.
	ListByCreator(ctx context.Context, creatorID shared.TelegramID) ([]*Task, error)

	// ListByAssignee возвращает задачи, назначенные сотруднику,
	// отсортированные по сроку.
	ListByAssignee(ctx context.Context, userID shared.TelegramID) ([]*Task, error)

	// ListAll возвращает все задачи, отсортированные по сроку.
	ListAll(ctx context.Context) ([]*Task, error)

	// ListDueWithin возвращает незавершённые задачи со сроком
	// в интервале (now, now+lookahead]. Используется напоминаниями.
	ListDueWithin(ctx context.Context, now time.Time, lookahead time.Duration) ([]*Task, error)

	// AddComment сохраняет комментарий к задаче.
	AddComment(ctx context.Context, c *Comment) error
}
