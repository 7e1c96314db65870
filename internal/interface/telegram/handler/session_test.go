package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStoreGetSet(t *testing.T) {
	store := NewSessionStore(time.Minute)

	assert.Nil(t, store.Get(100))

	store.Set(100, &Session{State: StateNewTaskTitle})
	s := store.Get(100)
	assert.NotNil(t, s)
	assert.Equal(t, StateNewTaskTitle, s.State)

	// Sessions are per user.
	assert.Nil(t, store.Get(200))
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore(time.Minute)

	store.Set(100, &Session{State: StateAwaitComment, TaskID: "task-1"})
	store.Clear(100)
	assert.Nil(t, store.Get(100))

	// Clearing an absent session is a no-op.
	store.Clear(100)
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)

	store.Set(100, &Session{State: StateNewTaskDeadline})
	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, store.Get(100))
}

func TestSessionStoreSetRefreshesTTL(t *testing.T) {
	store := NewSessionStore(50 * time.Millisecond)

	store.Set(100, &Session{State: StateNewTaskTitle})
	time.Sleep(30 * time.Millisecond)

	// Advancing the conversation keeps the session alive.
	store.Set(100, &Session{State: StateNewTaskDescription, Draft: TaskDraft{Title: "Отчёт"}})
	time.Sleep(30 * time.Millisecond)

	s := store.Get(100)
	assert.NotNil(t, s)
	assert.Equal(t, StateNewTaskDescription, s.State)
	assert.Equal(t, "Отчёт", s.Draft.Title)
}

func TestSessionStoreActive(t *testing.T) {
	store := NewSessionStore(time.Minute)
	assert.False(t, store.Active(100))

	store.Set(100, &Session{State: StateNewTaskTitle})
	assert.True(t, store.Active(100))
	assert.False(t, store.Active(200))

	store.Clear(100)
	assert.False(t, store.Active(100))
}
