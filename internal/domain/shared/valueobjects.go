// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// TelegramID represents a unique Telegram user identifier.
// It doubles as the chat ID for private chats, which is how the bot
// addresses every notification.
type TelegramID int64

// IsValid checks if the Telegram ID is valid (positive number).
func (t TelegramID) IsValid() bool {
	return t > 0
}

// Int64 returns the underlying int64 value.
func (t TelegramID) Int64() int64 {
	return int64(t)
}

// String returns the string representation.
func (t TelegramID) String() string {
	return fmt.Sprintf("%d", t)
}

// NewTelegramID creates a new TelegramID with validation.
func NewTelegramID(id int64) (TelegramID, error) {
	if id <= 0 {
		return 0, NewDomainError("shared", "NewTelegramID", ErrInvalidID, "telegram ID must be positive")
	}
	return TelegramID(id), nil
}

// TaskID represents a unique task identifier (UUID format).
type TaskID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the task ID is a valid UUID.
func (t TaskID) IsValid() bool {
	return uuidRegex.MatchString(string(t))
}

// String returns the string representation.
func (t TaskID) String() string {
	return string(t)
}

// IsEmpty checks if the ID is empty.
func (t TaskID) IsEmpty() bool {
	return t == ""
}

// NewTaskID creates a new TaskID with validation.
func NewTaskID(id string) (TaskID, error) {
	tid := TaskID(strings.ToLower(strings.TrimSpace(id)))
	if !tid.IsValid() {
		return "", NewDomainError("shared", "NewTaskID", ErrInvalidID, "invalid task ID format")
	}
	return tid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Phone Number Value Object
// ═══════════════════════════════════════════════════════════════════════════

// PhoneNumber represents a phone number shared via the Telegram contact button.
// Telegram delivers it with or without a leading plus; we normalize to digits
// with a leading plus so the admin bootstrap match is stable.
type PhoneNumber string

var phoneDigits = regexp.MustCompile(`^\+\d{7,15}$`)

// IsValid checks if the normalized phone number is plausible (E.164-ish).
func (p PhoneNumber) IsValid() bool {
	return phoneDigits.MatchString(string(p))
}

// String returns the string representation.
func (p PhoneNumber) String() string {
	return string(p)
}

// NewPhoneNumber normalizes and validates a raw phone number.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s)
	if s != "" && s[0] != '+' {
		s = "+" + s
	}
	p := PhoneNumber(s)
	if !p.IsValid() {
		return "", NewDomainError("shared", "NewPhoneNumber", ErrInvalidInput, "invalid phone number")
	}
	return p, nil
}
