package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultSessionIdle = 30 * time.Minute

type session struct {
	listing  *Listing
	lastSeen time.Time
}

// SessionRegistry keeps one Listing per browsing session.
type SessionRegistry struct {
	newListing func() *Listing
	idle       time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionRegistry(newListing func() *Listing, idle time.Duration) *SessionRegistry {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	return &SessionRegistry{
		newListing: newListing,
		idle:       idle,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
}

// Get returns the listing for id. Unknown, expired or empty ids get a fresh
// session; the id actually in use is returned alongside.
func (r *SessionRegistry) Get(id string) (*Listing, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	if s, ok := r.sessions[id]; ok && id != "" {
		s.lastSeen = now
		return s.listing, id
	}

	id = uuid.NewString()
	s := &session{listing: r.newListing(), lastSeen: now}
	r.sessions[id] = s
	return s.listing, id
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) sweep(now time.Time) {
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.idle {
			delete(r.sessions, id)
		}
	}
}
