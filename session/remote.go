package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/studyplan/core/response"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

// Remote is a session hosted by the agent runtime on behalf of one user of
// one app. It carries the conversation across runs and the event log
// returned to clients. Runs against the same Remote must be serialized
// with Lock and Unlock.
type Remote struct {
	ID        string
	AppName   string
	UserID    string
	CreatedAt time.Time

	conversation Session

	run       sync.Mutex
	mu        sync.RWMutex
	events    []response.Event
	updatedAt time.Time
}

// Conversation returns the append-only context shared by every run.
func (r *Remote) Conversation() Session {
	return r.conversation
}

// Lock acquires the run lock.
func (r *Remote) Lock() { r.run.Lock() }

// Unlock releases the run lock.
func (r *Remote) Unlock() { r.run.Unlock() }

// AppendEvents records events produced by a run.
func (r *Remote) AppendEvents(events ...response.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	r.updatedAt = time.Now()
}

// Events returns a copy of the event log.
func (r *Remote) Events() []response.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]response.Event, len(r.events))
	copy(out, r.events)
	return out
}

// LastUpdate reports when the session last changed.
func (r *Remote) LastUpdate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}

type remoteKey struct {
	app, user, id string
}

// Registry tracks remote sessions by app, user and id.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[remoteKey]*Remote
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[remoteKey]*Remote)}
}

// Create registers a new session. An empty id is replaced by a UUIDv7.
func (r *Registry) Create(app, user, id string) (*Remote, error) {
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	key := remoteKey{app, user, id}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}

	rs := &Remote{
		ID:           id,
		AppName:      app,
		UserID:       user,
		CreatedAt:    now,
		conversation: NewMemorySessionWithID(id),
		updatedAt:    now,
	}
	r.sessions[key] = rs
	return rs, nil
}

// Get returns a session scoped to app and user.
func (r *Registry) Get(app, user, id string) (*Remote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.sessions[remoteKey{app, user, id}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rs, nil
}

// Delete removes a session.
func (r *Registry) Delete(app, user, id string) error {
	key := remoteKey{app, user, id}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.sessions, key)
	return nil
}

// List returns the sessions of one user, oldest first.
func (r *Registry) List(app, user string) []*Remote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Remote
	for k, rs := range r.sessions {
		if k.app == app && k.user == user {
			out = append(out, rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
