// Package registry tracks generation sessions in memory.
//
// Sessions move through Pending, Running and one of the terminal states
// Completed or Failed. Terminal sessions are immutable: any further
// transition attempt is rejected.
package registry

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmcortes/newswire/internal/errors"
)

// Status is the lifecycle state of a session.
type Status string

// Session statuses.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is one generation request and its outcome.
type Session struct {
	ID         string     `json:"id"`
	Topic      string     `json:"topic"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Iterations int        `json:"iterations,omitempty"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Registry is a thread-safe in-memory session store.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new pending session for a topic and returns a copy.
// The topic is trimmed; a blank topic is rejected.
func (r *Registry) Create(topic string) (Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Session{}, errors.ErrEmptyTopic
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Session{
		ID:        uuid.NewString(),
		Topic:     topic,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	r.sessions[s.ID] = s
	return *s, nil
}

// Get returns a copy of the session with the given ID.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, errors.NewNotFoundError("session", id)
	}
	return *s, nil
}

// MarkRunning transitions a pending session to running.
func (r *Registry) MarkRunning(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	if s.Status.IsTerminal() {
		return errors.ErrSessionTerminal
	}

	now := time.Now()
	s.Status = StatusRunning
	s.StartedAt = &now
	return nil
}

// Complete transitions a session to completed with its final article.
// Completing an already-terminal session is rejected, so the terminal
// write happens exactly once.
func (r *Registry) Complete(id string, result string, iterations int) error {
	return r.finish(id, StatusCompleted, result, "", iterations)
}

// Fail transitions a session to failed with an error description.
func (r *Registry) Fail(id string, errMsg string) error {
	return r.finish(id, StatusFailed, "", errMsg, 0)
}

func (r *Registry) finish(id string, status Status, result, errMsg string, iterations int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	if s.Status.IsTerminal() {
		return errors.ErrSessionTerminal
	}

	now := time.Now()
	s.Status = status
	s.FinishedAt = &now
	s.Result = result
	s.Error = errMsg
	if iterations > 0 {
		s.Iterations = iterations
	}
	return nil
}

// List returns copies of all sessions, newest first.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// ActiveCount returns the number of non-terminal sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.sessions {
		if !s.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// Delete removes a session. Only terminal sessions may be deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	if !s.Status.IsTerminal() {
		return errors.New("cannot delete a session that is still running")
	}
	delete(r.sessions, id)
	return nil
}
