package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/resume-analyzer/internal/analyzer"
)

const defaultMaxSessions = 1000

var errSessionNotFound = errors.New("session not found")

// SessionFactory builds a fresh analysis session for the given id.
type SessionFactory func(id string) (*analyzer.Session, error)

// entry serializes calls on one session.
type entry struct {
	mu      sync.Mutex
	id      string
	session *analyzer.Session
	created time.Time
}

// Registry keeps sessions in memory. Nothing survives a restart.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	factory     SessionFactory
	maxSessions int
	now         func() time.Time
}

func NewRegistry(factory SessionFactory, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Registry{
		sessions:    make(map[string]*entry),
		factory:     factory,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Create starts a new session. When the registry is full the oldest
// session is dropped.
func (r *Registry) Create() (*entry, error) {
	id := uuid.NewString()
	session, err := r.factory(id)
	if err != nil {
		return nil, err
	}

	e := &entry{id: id, session: session, created: r.now()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		r.evictOldestLocked()
	}
	r.sessions[e.id] = e

	return e, nil
}

func (r *Registry) Get(id string) (*entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errSessionNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	return e, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return errSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) evictOldestLocked() {
	var oldest *entry
	for _, e := range r.sessions {
		if oldest == nil || e.created.Before(oldest.created) {
			oldest = e
		}
	}
	if oldest != nil {
		delete(r.sessions, oldest.id)
	}
}
