package typing

import (
	"context"
	"sync"
	"time"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
)

// Emitter publishes a typing diff to a room's broadcast channel.
type Emitter func(roomID string, diff domain.TypingDiff)

type key struct {
	roomID    string
	sessionID string
}

type state struct {
	displayName   string
	lastActivity  time.Time
	lastBroadcast time.Time
}

// Coordinator tracks who is currently typing per room. State is ephemeral:
// a time-bounded in-memory map, never persisted. Rapid keystrokes are
// debounced; silence past the TTL is treated as an implicit stop, so clients
// never depend on an explicit stop for correctness.
type Coordinator struct {
	mu       sync.Mutex
	entries  map[key]*state
	debounce time.Duration
	ttl      time.Duration
	emit     Emitter
}

func NewCoordinator(debounce, ttl time.Duration, emit Emitter) *Coordinator {
	return &Coordinator{
		entries:  make(map[key]*state),
		debounce: debounce,
		ttl:      ttl,
		emit:     emit,
	}
}

// Start records typing activity and broadcasts a start diff unless one was
// broadcast within the debounce window.
func (c *Coordinator) Start(roomID, sessionID, displayName string) {
	now := time.Now()
	k := key{roomID: roomID, sessionID: sessionID}

	c.mu.Lock()
	st, ok := c.entries[k]
	if !ok {
		st = &state{displayName: displayName}
		c.entries[k] = st
	}
	st.lastActivity = now
	broadcast := now.Sub(st.lastBroadcast) >= c.debounce
	if broadcast {
		st.lastBroadcast = now
	}
	c.mu.Unlock()

	if broadcast {
		c.emit(roomID, domain.TypingDiff{
			RoomID:      roomID,
			SessionID:   sessionID,
			DisplayName: displayName,
			Typing:      true,
		})
	}
}

// Stop clears the typing state and broadcasts a stop diff. Idempotent.
func (c *Coordinator) Stop(roomID, sessionID string) {
	k := key{roomID: roomID, sessionID: sessionID}

	c.mu.Lock()
	st, ok := c.entries[k]
	if ok {
		delete(c.entries, k)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	c.emit(roomID, domain.TypingDiff{
		RoomID:      roomID,
		SessionID:   sessionID,
		DisplayName: st.displayName,
		Typing:      false,
	})
}

// Typing reports whether (room, session) is currently marked as typing.
func (c *Coordinator) Typing(roomID, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key{roomID: roomID, sessionID: sessionID}]
	return ok
}

// Run drives the reaper until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	interval := c.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reap()
		}
	}
}

func (c *Coordinator) reap() {
	now := time.Now()

	type stopped struct {
		k  key
		st *state
	}
	var expired []stopped

	c.mu.Lock()
	for k, st := range c.entries {
		if now.Sub(st.lastActivity) >= c.ttl {
			delete(c.entries, k)
			expired = append(expired, stopped{k: k, st: st})
		}
	}
	c.mu.Unlock()

	for _, s := range expired {
		c.emit(s.k.roomID, domain.TypingDiff{
			RoomID:      s.k.roomID,
			SessionID:   s.k.sessionID,
			DisplayName: s.st.displayName,
			Typing:      false,
		})
	}
}
