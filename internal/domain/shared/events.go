// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the task lifecycle and may fan out into notifications.
const (
	// User events
	EventUserRegistered EventType = "user.registered"

	// Task events
	EventTaskCreated      EventType = "task.created"
	EventTaskEdited       EventType = "task.edited"
	EventTaskDeleted      EventType = "task.deleted"
	EventTaskAccepted     EventType = "task.accepted"
	EventTaskCompleted    EventType = "task.completed"
	EventTaskAllCompleted EventType = "task.all_completed"
	EventCommentAdded     EventType = "task.comment_added"

	// Reminder events
	EventReminderDue       EventType = "reminder.due"
	EventReminderTriggered EventType = "reminder.triggered"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventPublisher publishes domain events to in-process subscribers.
type EventPublisher interface {
	// Publish delivers the event to all subscribers of its type.
	Publish(event Event) error
}

// EventHandler handles a published domain event.
type EventHandler func(event Event)

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface with an empty payload.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// TaskCreatedEvent is emitted when the rector creates a task.
type TaskCreatedEvent struct {
	BaseEvent
	TaskID    string  `json:"task_id"`
	Title     string  `json:"title"`
	CreatorID int64   `json:"creator_id"`
	Assignees []int64 `json:"assignees"`
}

// Payload implements Event interface.
func (e TaskCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":    e.TaskID,
		"title":      e.Title,
		"creator_id": e.CreatorID,
		"assignees":  e.Assignees,
	}
}

// UserRegisteredEvent is emitted when a user completes registration.
type UserRegisteredEvent struct {
	BaseEvent
	TelegramID int64  `json:"telegram_id"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
}

// Payload implements Event interface.
func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"telegram_id": e.TelegramID,
		"full_name":   e.FullName,
		"role":        e.Role,
	}
}

// TaskAcceptedEvent is emitted when an assignee accepts a task.
type TaskAcceptedEvent struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	AssigneeID int64  `json:"assignee_id"`
}

// Payload implements Event interface.
func (e TaskAcceptedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":     e.TaskID,
		"title":       e.Title,
		"assignee_id": e.AssigneeID,
	}
}

// TaskAllCompletedEvent is emitted when the last assignee completes a task.
type TaskAllCompletedEvent struct {
	BaseEvent
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
	CreatorID int64  `json:"creator_id"`
}

// Payload implements Event interface.
func (e TaskAllCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":    e.TaskID,
		"title":      e.Title,
		"creator_id": e.CreatorID,
	}
}

// CommentAddedEvent is emitted when anyone comments on a task.
type CommentAddedEvent struct {
	BaseEvent
	TaskID   string `json:"task_id"`
	Title    string `json:"title"`
	AuthorID int64  `json:"author_id"`
	Text     string `json:"text"`
}

// Payload implements Event interface.
func (e CommentAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":   e.TaskID,
		"title":     e.Title,
		"author_id": e.AuthorID,
		"text":      e.Text,
	}
}
