// Package notification содержит доменную модель уведомлений бота.
// Уведомления связывают ректора и сотрудников: новые поручения, напоминания
// о сроках, комментарии и отчёты о выполнении доставляются через эту модель.
package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// NotificationID представляет уникальный идентификатор уведомления.
type NotificationID string

// IsValid проверяет, что ID не пустой.
func (id NotificationID) IsValid() bool {
	return len(id) > 0
}

// String возвращает строковое представление ID.
func (id NotificationID) String() string {
	return string(id)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// NotificationType определяет тип уведомления.
type NotificationType string

const (
	// NotificationTypeTaskAssigned - сотруднику назначена новая задача.
	// "📋 Новая задача: Подготовить отчёт (срок: 2026-09-01 18:00)"
	NotificationTypeTaskAssigned NotificationType = "task_assigned"

	// NotificationTypeTaskEdited - задача изменена создателем.
	// "✏️ Задача «Подготовить отчёт» изменена"
	NotificationTypeTaskEdited NotificationType = "task_edited"

	// NotificationTypeTaskDeleted - задача удалена создателем.
	// "🗑 Задача «Подготовить отчёт» удалена"
	NotificationTypeTaskDeleted NotificationType = "task_deleted"

	// NotificationTypeDeadlineReminder - приближается срок задачи.
	// "⏰ Напоминание: срок задачи «Отчёт» — завтра в 18:00"
	NotificationTypeDeadlineReminder NotificationType = "deadline_reminder"

	// NotificationTypeCommentAdded - к задаче добавлен комментарий.
	// "💬 Комментарий к задаче «Отчёт»: Принял в работу"
	NotificationTypeCommentAdded NotificationType = "comment_added"

	// NotificationTypeTaskAccepted - сотрудник принял задачу.
	// "👌 Асель Нурланова приняла задачу «Отчёт»"
	NotificationTypeTaskAccepted NotificationType = "task_accepted"

	// NotificationTypeTaskCompleted - сотрудник завершил свою часть задачи.
	// "✔️ Асель Нурланова завершила свою часть задачи «Отчёт»"
	NotificationTypeTaskCompleted NotificationType = "task_completed"

	// NotificationTypeAllCompleted - все исполнители завершили задачу.
	// "✅ Все исполнители завершили задачу «Отчёт». Удалить её?"
	NotificationTypeAllCompleted NotificationType = "all_completed"

	// NotificationTypeWelcome - приветствие после регистрации.
	// "👋 Добро пожаловать! Вы зарегистрированы как сотрудник."
	NotificationTypeWelcome NotificationType = "welcome"

	// NotificationTypeStaffRegistered - новый сотрудник зарегистрировался.
	// "🆕 Зарегистрирован сотрудник: Асель Нурланова"
	NotificationTypeStaffRegistered NotificationType = "staff_registered"
)

// IsValid проверяет, что тип уведомления корректен.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeTaskAssigned,
		NotificationTypeTaskEdited,
		NotificationTypeTaskDeleted,
		NotificationTypeDeadlineReminder,
		NotificationTypeCommentAdded,
		NotificationTypeTaskAccepted,
		NotificationTypeTaskCompleted,
		NotificationTypeAllCompleted,
		NotificationTypeWelcome,
		NotificationTypeStaffRegistered:
		return true
	default:
		return false
	}
}

// DefaultPriority возвращает приоритет по умолчанию для данного типа.
func (t NotificationType) DefaultPriority() Priority {
	switch t {
	case NotificationTypeTaskAssigned, NotificationTypeAllCompleted,
		NotificationTypeDeadlineReminder:
		return PriorityHigh

	case NotificationTypeTaskEdited, NotificationTypeTaskDeleted,
		NotificationTypeCommentAdded, NotificationTypeTaskAccepted,
		NotificationTypeTaskCompleted:
		return PriorityNormal

	case NotificationTypeWelcome, NotificationTypeStaffRegistered:
		return PriorityLow

	default:
		return PriorityNormal
	}
}

// Emoji возвращает эмодзи для данного типа уведомления.
func (t NotificationType) Emoji() string {
	switch t {
	case NotificationTypeTaskAssigned:
		return "📋"
	case NotificationTypeTaskEdited:
		return "✏️"
	case NotificationTypeTaskDeleted:
		return "🗑"
	case NotificationTypeDeadlineReminder:
		return "⏰"
	case NotificationTypeCommentAdded:
		return "💬"
	case NotificationTypeTaskAccepted:
		return "👌"
	case NotificationTypeTaskCompleted:
		return "✔️"
	case NotificationTypeAllCompleted:
		return "✅"
	case NotificationTypeWelcome:
		return "👋"
	case NotificationTypeStaffRegistered:
		return "🆕"
	default:
		return "📬"
	}
}

// String возвращает строковое представление типа.
func (t NotificationType) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// PRIORITY
// ══════════════════════════════════════════════════════════════════════════════

// Priority определяет приоритет уведомления.
type Priority int

const (
	// PriorityLow - низкий приоритет (можно отложить).
	PriorityLow Priority = 1

	// PriorityNormal - обычный приоритет.
	PriorityNormal Priority = 2

	// PriorityHigh - высокий приоритет (отправляется немедленно).
	PriorityHigh Priority = 3
)

// IsValid проверяет корректность приоритета.
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// String возвращает строковое представление приоритета.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY STATUS
// ══════════════════════════════════════════════════════════════════════════════

// DeliveryStatus определяет статус доставки уведомления.
type DeliveryStatus string

const (
	// DeliveryPending - уведомление ожидает постановки в очередь.
	DeliveryPending DeliveryStatus = "pending"

	// DeliveryQueued - уведомление в очереди на отправку.
	DeliveryQueued DeliveryStatus = "queued"

	// DeliverySending - уведомление отправляется.
	DeliverySending DeliveryStatus = "sending"

	// DeliveryDelivered - уведомление доставлено.
	DeliveryDelivered DeliveryStatus = "delivered"

	// DeliveryFailed - доставка не удалась.
	DeliveryFailed DeliveryStatus = "failed"

	// DeliveryDropped - уведомление отброшено (получатель заблокировал бота).
	DeliveryDropped DeliveryStatus = "dropped"
)

// IsValid проверяет корректность статуса.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryPending, DeliveryQueued, DeliverySending,
		DeliveryDelivered, DeliveryFailed, DeliveryDropped:
		return true
	default:
		return false
	}
}

// IsFinal возвращает true, если это конечный статус.
func (s DeliveryStatus) IsFinal() bool {
	switch s {
	case DeliveryDelivered, DeliveryDropped:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Notification представляет уведомление, доставляемое пользователю в Telegram.
type Notification struct {
	// ID - уникальный идентификатор уведомления.
	ID NotificationID

	// Type - тип уведомления.
	Type NotificationType

	// RecipientID - Telegram ID получателя (он же chat ID в личной переписке).
	RecipientID shared.TelegramID

	// Priority - приоритет уведомления.
	Priority Priority

	// Status - текущий статус доставки.
	Status DeliveryStatus

	// Message - текст уведомления (HTML).
	Message string

	// TaskID - задача, к которой относится уведомление (опционально).
	TaskID shared.TaskID

	// Buttons - inline-кнопки, прикладываемые к сообщению.
	Buttons [][]InlineButton

	// SentAt, DeliveredAt - отметки времени отправки и доставки.
	SentAt      *time.Time
	DeliveredAt *time.Time

	// RetryCount - количество попыток отправки.
	RetryCount int

	// MaxRetries - максимальное количество попыток.
	MaxRetries int

	// LastError - последняя ошибка доставки.
	LastError string

	// CreatedAt, UpdatedAt - отметки времени записи.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNotificationParams содержит параметры для создания уведомления.
type NewNotificationParams struct {
	ID          NotificationID
	Type        NotificationType
	RecipientID shared.TelegramID
	Message     string
	TaskID      shared.TaskID
	Buttons     [][]InlineButton
	Priority    *Priority
	MaxRetries  int
}

// NewNotification создаёт новое уведомление с валидацией.
func NewNotification(params NewNotificationParams) (*Notification, error) {
	if !params.ID.IsValid() {
		return nil, ErrInvalidNotificationID
	}

	if !params.Type.IsValid() {
		return nil, ErrInvalidNotificationType
	}

	if !params.RecipientID.IsValid() {
		return nil, ErrInvalidRecipientID
	}

	if params.Message == "" {
		return nil, ErrEmptyMessage
	}

	priority := params.Type.DefaultPriority()
	if params.Priority != nil && params.Priority.IsValid() {
		priority = *params.Priority
	}

	maxRetries := 3
	if params.MaxRetries > 0 {
		maxRetries = params.MaxRetries
	}

	now := time.Now().UTC()

	return &Notification{
		ID:          params.ID,
		Type:        params.Type,
		RecipientID: params.RecipientID,
		Priority:    priority,
		Status:      DeliveryPending,
		Message:     params.Message,
		TaskID:      params.TaskID,
		Buttons:     params.Buttons,
		RetryCount:  0,
		MaxRetries:  maxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// MarkQueued переводит уведомление в статус "в очереди".
func (n *Notification) MarkQueued() error {
	if n.Status != DeliveryPending && n.Status != DeliveryFailed {
		return ErrInvalidStatusTransition
	}
	n.Status = DeliveryQueued
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSending переводит уведомление в статус "отправляется".
func (n *Notification) MarkSending() error {
	if n.Status != DeliveryQueued && n.Status != DeliveryPending {
		return ErrInvalidStatusTransition
	}
	n.Status = DeliverySending
	now := time.Now().UTC()
	n.SentAt = &now
	n.UpdatedAt = now
	return nil
}

// MarkDelivered помечает уведомление как доставленное.
func (n *Notification) MarkDelivered() error {
	if n.Status != DeliverySending {
		return ErrInvalidStatusTransition
	}
	n.Status = DeliveryDelivered
	now := time.Now().UTC()
	n.DeliveredAt = &now
	n.UpdatedAt = now
	return nil
}

// MarkFailed помечает уведомление как неудачное.
func (n *Notification) MarkFailed(errMsg string) error {
	if n.Status != DeliverySending {
		return ErrInvalidStatusTransition
	}
	n.Status = DeliveryFailed
	n.LastError = errMsg
	n.RetryCount++
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDropped отбрасывает уведомление без повторов.
// Используется, когда получатель заблокировал бота.
func (n *Notification) MarkDropped(reason string) error {
	if n.Status.IsFinal() {
		return ErrInvalidStatusTransition
	}
	n.Status = DeliveryDropped
	n.LastError = reason
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// CanRetry возвращает true, если можно повторить отправку.
func (n *Notification) CanRetry() bool {
	return n.Status == DeliveryFailed && n.RetryCount < n.MaxRetries
}

// String возвращает строковое представление для логирования.
func (n *Notification) String() string {
	return fmt.Sprintf(
		"Notification{ID: %s, Type: %s, Recipient: %d, Status: %s}",
		n.ID, n.Type, n.RecipientID, n.Status,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidNotificationID - невалидный ID уведомления.
	ErrInvalidNotificationID = errors.New("invalid notification id: cannot be empty")

	// ErrInvalidNotificationType - невалидный тип уведомления.
	ErrInvalidNotificationType = errors.New("invalid notification type")

	// ErrInvalidRecipientID - невалидный ID получателя.
	ErrInvalidRecipientID = errors.New("invalid recipient id")

	// ErrEmptyMessage - пустое сообщение.
	ErrEmptyMessage = errors.New("notification message cannot be empty")

	// ErrInvalidStatusTransition - недопустимый переход статуса.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrMaxRetriesExceeded - превышено количество попыток.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
