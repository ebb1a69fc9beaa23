// Package runtime handles event propagation, room liveness, and supervision.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sort"
	"sync"
	"time"
)

// roomState is the per-room mutable state. Every field is guarded by mu so
// that join/leave/touch/scan on one room never observe a torn intermediate
// state, and a busy room never blocks operations on another room.
type roomState struct {
	mu           sync.Mutex
	gone         bool                          // removed from the registry map, do not rejoin
	sessions     map[string]contract.EventSink // session id -> sink
	usernames    map[string]int                // username -> live session count
	lastActivity time.Time
}

// Registry maps room identifiers to their connected sessions and metadata.
// The outer lock only guards the map itself; room state has its own lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	now   func() time.Time
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID]*roomState),
		now:   time.Now,
	}
}

// get returns the live state for a room, or nil if the room is not registered.
func (r *Registry) get(roomID domain.RoomID) *roomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// getOrCreate returns the live state for a room, creating the entry if absent.
func (r *Registry) getOrCreate(roomID domain.RoomID) *roomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rooms[roomID]
	if !ok {
		state = &roomState{
			sessions:     make(map[string]contract.EventSink),
			usernames:    make(map[string]int),
			lastActivity: r.now(),
		}
		r.rooms[roomID] = state
	}
	return state
}

// Join adds a session to a room, creating the room entry on first join, and
// returns the resulting occupancy snapshot for the presence broadcast.
// A room that was concurrently removed is recreated rather than rejoined.
func (r *Registry) Join(roomID domain.RoomID, sessionID, username string, sink contract.EventSink) domain.Presence {
	for {
		state := r.getOrCreate(roomID)
		state.mu.Lock()
		if state.gone {
			state.mu.Unlock()
			continue
		}
		state.sessions[sessionID] = sink
		state.usernames[username]++
		if now := r.now(); now.After(state.lastActivity) {
			state.lastActivity = now
		}
		presence := state.presenceLocked()
		state.mu.Unlock()
		return presence
	}
}

// Leave removes a session and its username from a room. The second return
// reports whether the room entry was deleted because the session was its
// last occupant. Leaving an unknown room or session is a no-op.
func (r *Registry) Leave(roomID domain.RoomID, sessionID, username string) (domain.Presence, bool) {
	state := r.get(roomID)
	if state == nil {
		return domain.Presence{}, false
	}

	state.mu.Lock()
	if _, ok := state.sessions[sessionID]; !ok {
		presence := state.presenceLocked()
		state.mu.Unlock()
		return presence, false
	}
	delete(state.sessions, sessionID)
	if n := state.usernames[username]; n <= 1 {
		delete(state.usernames, username)
	} else {
		state.usernames[username] = n - 1
	}
	empty := len(state.sessions) == 0
	if empty {
		state.gone = true
	}
	presence := state.presenceLocked()
	state.mu.Unlock()

	if empty {
		r.remove(roomID, state)
	}
	return presence, empty
}

// Touch records message activity on a room. The timestamp never moves
// backwards while the room is live.
func (r *Registry) Touch(roomID domain.RoomID) {
	state := r.get(roomID)
	if state == nil {
		return
	}
	state.mu.Lock()
	if now := r.now(); now.After(state.lastActivity) {
		state.lastActivity = now
	}
	state.mu.Unlock()
}

// Snapshot reports the current presence of a room and whether the room is
// registered at all.
func (r *Registry) Snapshot(roomID domain.RoomID) (domain.Presence, bool) {
	state := r.get(roomID)
	if state == nil {
		return domain.Presence{}, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.presenceLocked(), !state.gone
}

// ScanIdle returns the rooms whose last activity is strictly older than the
// threshold. The caller owns eviction and any external deactivation.
func (r *Registry) ScanIdle(threshold time.Duration) []domain.RoomID {
	r.mu.RLock()
	candidates := make(map[domain.RoomID]*roomState, len(r.rooms))
	for id, state := range r.rooms {
		candidates[id] = state
	}
	r.mu.RUnlock()

	cutoff := r.now().Add(-threshold)
	var idle []domain.RoomID
	for id, state := range candidates {
		state.mu.Lock()
		if !state.gone && state.lastActivity.Before(cutoff) {
			idle = append(idle, id)
		}
		state.mu.Unlock()
	}
	return idle
}

// Evict removes a room and all its session references from the registry.
func (r *Registry) Evict(roomID domain.RoomID) {
	state := r.get(roomID)
	if state == nil {
		return
	}
	state.mu.Lock()
	state.gone = true
	state.sessions = make(map[string]contract.EventSink)
	state.usernames = make(map[string]int)
	state.mu.Unlock()
	r.remove(roomID, state)
}

// SinksFor returns the delivery sinks of every session currently in the room.
func (r *Registry) SinksFor(roomID domain.RoomID) []contract.EventSink {
	state := r.get(roomID)
	if state == nil {
		return nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if len(state.sessions) == 0 {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(state.sessions))
	for _, sink := range state.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

// remove deletes the entry only if it still points at the state that was
// marked gone, so a recreated room under the same identifier survives.
func (r *Registry) remove(roomID domain.RoomID, state *roomState) {
	r.mu.Lock()
	if current, ok := r.rooms[roomID]; ok && current == state {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
}

func (s *roomState) presenceLocked() domain.Presence {
	users := make([]string, 0, len(s.usernames))
	for name := range s.usernames {
		users = append(users, name)
	}
	sort.Strings(users)
	return domain.Presence{Users: users, Count: len(users)}
}
