// Package presence tracks which sessions are connected and which users are
// online. Sessions are keyed by an opaque per-connection token; a user is
// online while they have at least one live session, so multi-device works
// without any extra bookkeeping.
package presence

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

type entry struct {
	userID      int
	connectedAt time.Time
}

// shard holds a slice of the session table. Sharding by token keeps session
// churn from serializing on one lock.
type shard struct {
	mu       sync.RWMutex
	sessions map[string]entry
}

type Registry struct {
	shards [shardCount]*shard

	// byUser serializes per-user transitions: the online/offline decision
	// must see a consistent session set for that user.
	userMu sync.RWMutex
	byUser map[int]map[string]struct{}

	now func() time.Time
}

func NewRegistry() *Registry {
	r := &Registry{
		byUser: make(map[int]map[string]struct{}),
		now:    time.Now,
	}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]entry)}
	}
	return r
}

func (r *Registry) shardFor(token string) *shard {
	h := fnv.New32a()
	h.Write([]byte(token))
	return r.shards[h.Sum32()%shardCount]
}

// Register inserts or replaces the session mapping. It reports whether this
// was the user's transition from zero sessions to one, i.e. they came online.
func (r *Registry) Register(userID int, token string) (wentOnline bool) {
	s := r.shardFor(token)
	s.mu.Lock()
	prev, existed := s.sessions[token]
	s.sessions[token] = entry{userID: userID, connectedAt: r.now()}
	s.mu.Unlock()

	r.userMu.Lock()
	defer r.userMu.Unlock()

	// A replaced token registered to a different user must leave the old
	// user's session set, or their online state would leak.
	if existed && prev.userID != userID {
		r.detachLocked(prev.userID, token)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[userID] = set
	}
	set[token] = struct{}{}
	return len(set) == 1
}

// Remove drops the session. wentOffline reports whether this was the user's
// last live session; ok is false if the token was not registered.
func (r *Registry) Remove(token string) (userID int, wentOffline bool, ok bool) {
	s := r.shardFor(token)
	s.mu.Lock()
	e, existed := s.sessions[token]
	if existed {
		delete(s.sessions, token)
	}
	s.mu.Unlock()

	if !existed {
		return 0, false, false
	}

	r.userMu.Lock()
	defer r.userMu.Unlock()
	return e.userID, r.detachLocked(e.userID, token), true
}

func (r *Registry) detachLocked(userID int, token string) (lastSession bool) {
	set, ok := r.byUser[userID]
	if !ok {
		return false
	}
	delete(set, token)
	if len(set) == 0 {
		delete(r.byUser, userID)
		return true
	}
	return false
}

// SessionsOf returns the user's live session tokens, possibly empty.
func (r *Registry) SessionsOf(userID int) []string {
	r.userMu.RLock()
	defer r.userMu.RUnlock()

	set := r.byUser[userID]
	out := make([]string, 0, len(set))
	for token := range set {
		out = append(out, token)
	}
	return out
}

// OwnerOf resolves a session token to its user.
func (r *Registry) OwnerOf(token string) (int, bool) {
	s := r.shardFor(token)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[token]
	return e.userID, ok
}

// Online reports whether the user has at least one live session.
func (r *Registry) Online(userID int) bool {
	r.userMu.RLock()
	defer r.userMu.RUnlock()
	return len(r.byUser[userID]) > 0
}
