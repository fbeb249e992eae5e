package triage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry defaults
const (
	DefaultSessionTTL  = time.Hour
	DefaultMaxSessions = 10000
)

// RegistryConfig bounds how long idle sessions live and how many are kept
type RegistryConfig struct {
	TTL         time.Duration
	MaxSessions int
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry keeps one Session per client, keyed by an opaque id. Sessions idle longer
// than the TTL are dropped by Sweep; at MaxSessions the least recently seen idle
// session is evicted to make room.
type Registry struct {
	opts Options
	cfg  RegistryConfig
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry creates a registry whose sessions share opts. Zero cfg fields take the
// defaults.
func NewRegistry(opts Options, cfg RegistryConfig) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &Registry{opts: opts, cfg: cfg, now: time.Now, sessions: make(map[string]*entry)}
}

// Get returns the session for id, creating a fresh one (with a new id) when id is
// empty, unknown or expired
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.sessions[id]; ok {
		if !r.expired(e, now) {
			e.lastSeen = now
			return e.session
		}
		delete(r.sessions, id)
	}

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.sweepLocked(now)
	}
	if len(r.sessions) >= r.cfg.MaxSessions {
		r.evictOldestLocked()
	}

	s := NewSession(uuid.NewString(), r.opts)
	r.sessions[s.ID()] = &entry{session: s, lastSeen: now}
	return s
}

// Sweep drops expired sessions and returns how many were removed
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

// Len is the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// expired sessions are idle past the TTL; a submit in flight keeps a session alive
func (r *Registry) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastSeen) > r.cfg.TTL && !e.session.Loading()
}

func (r *Registry) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.sessions {
		if e.session.Loading() {
			continue
		}
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
	}
}
