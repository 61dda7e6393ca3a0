package voicetest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session describes one active voice test.
type Session struct {
	// ID uniquely identifies the session in logs and metrics.
	ID string

	// UserID is the user being recorded.
	UserID string

	// StartedAt is when the session was acquired.
	StartedAt time.Time
}

// entry pairs the public session record with its stop hook.
type entry struct {
	session Session
	stop    func()
}

// Registry is the single source of truth for "is a session active in this
// guild". At most one session per guild may hold an entry at a time;
// acquisition is atomic insert-if-absent and release is idempotent.
//
// Registry is an explicitly owned object injected into the [Controller] and
// the auto-leave watcher rather than ambient process state, so both can be
// exercised in tests without a live platform connection.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	active map[string]*entry // guild ID -> active session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*entry)}
}

// TryAcquire atomically claims the guild for userID. Returns the new session
// record and true on success, or the zero Session and false when the guild
// already has an active session.
func (r *Registry) TryAcquire(guildID, userID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.active[guildID]; exists {
		return Session{}, false
	}
	s := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}
	r.active[guildID] = &entry{session: s}
	return s, true
}

// Release removes the guild's entry. Idempotent: releasing a guild with no
// active session is a no-op.
func (r *Registry) Release(guildID string) {
	r.mu.Lock()
	delete(r.active, guildID)
	r.mu.Unlock()
}

// Holder returns the guild's active session, if any.
func (r *Registry) Holder(guildID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[guildID]
	if !ok {
		return Session{}, false
	}
	return e.session, true
}

// Bind attaches a stop hook to the guild's active session. The hook is
// invoked by [Registry.StopByUser]. Binding a guild with no active session
// is a no-op.
func (r *Registry) Bind(guildID string, stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.active[guildID]; ok {
		e.stop = stop
	}
}

// StopByUser invokes the stop hook of the guild's active session, but only
// when it belongs to userID. Reports whether a matching session was found.
// The entry itself is removed by the session's own cleanup path, not here.
func (r *Registry) StopByUser(guildID, userID string) bool {
	r.mu.Lock()
	e, ok := r.active[guildID]
	if !ok || e.session.UserID != userID {
		r.mu.Unlock()
		return false
	}
	stop := e.stop
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
	return true
}

// Clear removes every entry. Used by the shutdown sweep, which tears down
// transport connections wholesale rather than negotiating per session.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.active = make(map[string]*entry)
	r.mu.Unlock()
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
