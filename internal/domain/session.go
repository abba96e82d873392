package domain

import (
	"sync"
	"time"
)

// SessionState is the lifecycle of one connection's membership.
// Left is terminal: a reconnecting client always gets a fresh session.
type SessionState string

const (
	StateConnecting   SessionState = "connecting"
	StateJoined       SessionState = "joined"
	StateDisconnected SessionState = "disconnected"
	StateLeft         SessionState = "left"
)

// Session holds one connection's state. Owned by its session actor; all
// access goes through the mutex so the read and write pumps can share it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.RWMutex
	identity     Identity
	authed       bool
	roomID       string
	state        SessionState
	joinedAt     time.Time
	lastActiveAt time.Time
	lastStatus   string
	loadingOlder bool
	stopHB       func()
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		state:        StateConnecting,
		lastActiveAt: now,
	}
}

// Authenticate records the resolved identity (authenticated or anonymous).
func (s *Session) Authenticate(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.authed = true
	s.lastActiveAt = time.Now()
}

func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authed
}

// Join transitions the session into a room. Returns false if the session has
// already left (terminal) and cannot join.
func (s *Session) Join(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLeft {
		return false
	}
	s.roomID = roomID
	s.state = StateJoined
	now := time.Now()
	s.joinedAt = now
	s.lastActiveAt = now
	return true
}

// Leave is terminal and idempotent. Returns the room the session was in, and
// whether this call performed the transition.
func (s *Session) Leave() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLeft {
		return "", false
	}
	room := s.roomID
	s.roomID = ""
	s.state = StateLeft
	if s.stopHB != nil {
		s.stopHB()
		s.stopHB = nil
	}
	return room, true
}

// MarkDisconnected flags a stalled connection. The presence TTL handles the
// rest; a later successful pong flips it back via Touch+Rejoined.
func (s *Session) MarkDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateJoined {
		return false
	}
	s.state = StateDisconnected
	return true
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

func (s *Session) JoinedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinedAt
}

func (s *Session) IsJoined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateJoined
}

func (s *Session) IsInRoom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID != ""
}

// Touch records liveness (any inbound frame or pong).
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	if s.state == StateDisconnected {
		s.state = StateJoined
	}
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}

// TryBeginLoadOlder serializes pagination: a second load while one is in
// flight is a no-op, not an error.
func (s *Session) TryBeginLoadOlder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadingOlder {
		return false
	}
	s.loadingOlder = true
	return true
}

func (s *Session) EndLoadOlder() {
	s.mu.Lock()
	s.loadingOlder = false
	s.mu.Unlock()
}

// StatusTransition records a connection status and reports whether it
// actually changed, so status events are only published on transitions.
func (s *Session) StatusTransition(status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStatus == status {
		return false
	}
	s.lastStatus = status
	return true
}

// SetHeartbeatStop registers the cancel func of the heartbeat goroutine.
// If the session already left, the heartbeat is cancelled immediately.
func (s *Session) SetHeartbeatStop(stop func()) {
	s.mu.Lock()
	left := s.state == StateLeft
	if !left {
		s.stopHB = stop
	}
	s.mu.Unlock()
	if left {
		stop()
	}
}

// PresenceEntry derives the membership record for this session.
func (s *Session) PresenceEntry() PresenceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PresenceEntry{
		RoomID:      s.roomID,
		SessionID:   s.ID,
		UserID:      s.identity.UserID,
		DisplayName: s.identity.DisplayName,
		Anonymous:   s.identity.Anonymous,
		JoinedAt:    s.joinedAt,
	}
}
