// Package notification содержит доменную модель уведомлений бота.
package notification

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE BUTTON
// ══════════════════════════════════════════════════════════════════════════════

// InlineButton представляет кнопку inline-клавиатуры под сообщением.
type InlineButton struct {
	// Text - текст на кнопке.
	Text string

	// CallbackData - данные для callback (до 64 байт).
	CallbackData string

	// URL - ссылка (если кнопка-ссылка).
	URL string
}

// NewCallbackButton создаёт кнопку с callback.
func NewCallbackButton(text, callbackData string) InlineButton {
	return InlineButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// IsValid проверяет корректность кнопки.
func (b InlineButton) IsValid() bool {
	if b.Text == "" {
		return false
	}
	return b.CallbackData != "" || b.URL != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY RESULT
// ══════════════════════════════════════════════════════════════════════════════

// DeliveryResult представляет результат доставки уведомления.
type DeliveryResult struct {
	// Success - успешно ли доставлено.
	Success bool

	// MessageID - ID отправленного сообщения в Telegram.
	MessageID int64

	// DeliveredAt - время доставки.
	DeliveredAt time.Time

	// Error - ошибка доставки (если Success = false).
	Error error

	// Retryable - можно ли повторить отправку.
	Retryable bool

	// RetryAfter - через сколько можно повторить (rate limiting).
	RetryAfter time.Duration
}

// NewSuccessResult создаёт результат успешной доставки.
func NewSuccessResult(messageID int64) DeliveryResult {
	return DeliveryResult{
		Success:     true,
		MessageID:   messageID,
		DeliveredAt: time.Now().UTC(),
	}
}

// NewFailureResult создаёт результат неудачной доставки.
func NewFailureResult(err error, retryable bool) DeliveryResult {
	return DeliveryResult{
		Success:     false,
		DeliveredAt: time.Now().UTC(),
		Error:       err,
		Retryable:   retryable,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDER & QUEUE INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Sender определяет канал доставки уведомлений.
// Единственная боевая реализация — Telegram Bot API.
type Sender interface {
	// Send доставляет уведомление получателю.
	Send(ctx context.Context, n *Notification) DeliveryResult
}

// Queue определяет очередь уведомлений между приложением и воркером доставки.
type Queue interface {
	// Enqueue ставит уведомление в очередь.
	Enqueue(ctx context.Context, n *Notification) error

	// Dequeue блокируется до появления уведомления или отмены контекста.
	Dequeue(ctx context.Context) (*Notification, error)

	// Close закрывает очередь. Dequeue после закрытия возвращает ошибку.
	Close() error
}

// Deduplicator отсекает повторные напоминания по одной задаче
// в пределах окна дедупликации.
type Deduplicator interface {
	// MarkOnce возвращает true, если ключ увидели впервые в пределах ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
