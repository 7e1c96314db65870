package handler

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSATION SESSIONS
// Multi-step flows (task creation, commenting) keep per-user state here.
// Sessions are process-local and expire after inactivity; an expired
// session simply restarts the flow.
// ══════════════════════════════════════════════════════════════════════════════

// State identifies the step of a conversation.
type State string

const (
	// StateIdle - no active conversation.
	StateIdle State = ""

	// Task creation steps, in order.
	StateNewTaskTitle       State = "newtask_title"
	StateNewTaskDescription State = "newtask_description"
	StateNewTaskDeadline    State = "newtask_deadline"
	StateNewTaskAssignees   State = "newtask_assignees"

	// StateAwaitComment - waiting for comment text for Session.TaskID.
	StateAwaitComment State = "await_comment"
)

// TaskDraft accumulates task fields across creation steps.
type TaskDraft struct {
	Title       string
	Description string
	DeadlineRaw string
}

// Session is one user's conversation state.
type Session struct {
	State     State
	Draft     TaskDraft
	TaskID    string
	UpdatedAt time.Time
}

// SessionStore is a thread-safe in-memory session registry.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
}

// NewSessionStore creates a session store with the given inactivity TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	s := &SessionStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
	}

	go s.cleanupLoop()

	return s
}

// Get returns the user's session, or nil when there is none (or it expired).
func (s *SessionStore) Get(telegramID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[telegramID]
	if !ok {
		return nil
	}
	if time.Since(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, telegramID)
		return nil
	}

	return sess
}

// Set stores the user's session and refreshes its timestamp.
func (s *SessionStore) Set(telegramID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = time.Now()
	s.sessions[telegramID] = sess
}

// Clear removes the user's session.
func (s *SessionStore) Clear(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, telegramID)
}

// Active reports whether the user has a live conversation.
func (s *SessionStore) Active(telegramID int64) bool {
	return s.Get(telegramID) != nil
}

func (s *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *SessionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
