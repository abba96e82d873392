package presence

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

const numShards = 16

// Registry is the authoritative per-room membership table. It is lock-striped
// by room so sessions in different rooms never contend, and it emits
// join/leave diffs to watchers. Entries carry a deadline refreshed by the
// session heartbeat; the sweeper expires stale entries, which is how abrupt
// disconnects are cleared without an explicit Leave.
type Registry struct {
	shards     [numShards]*shard
	ttl        time.Duration
	sweepEvery time.Duration

	wmu      sync.RWMutex
	watchers map[string]map[int]chan domain.PresenceDiff
	nextID   int
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*entry
}

type entry struct {
	pe       domain.PresenceEntry
	deadline time.Time
}

func NewRegistry(ttl, sweepEvery time.Duration) *Registry {
	r := &Registry{
		ttl:        ttl,
		sweepEvery: sweepEvery,
		watchers:   make(map[string]map[int]chan domain.PresenceDiff),
	}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]map[string]*entry)}
	}
	return r
}

func (r *Registry) shardFor(roomID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(roomID))
	return r.shards[h.Sum32()%numShards]
}

// Register inserts or replaces the entry for (room, session). Last write
// wins on duplicate session ids (reconnect storms); registration never fails.
func (r *Registry) Register(pe domain.PresenceEntry) {
	s := r.shardFor(pe.RoomID)
	s.mu.Lock()
	room, ok := s.rooms[pe.RoomID]
	if !ok {
		room = make(map[string]*entry)
		s.rooms[pe.RoomID] = room
	}
	if old, exists := room[pe.SessionID]; exists && old.pe.JoinedAt.After(pe.JoinedAt) {
		// Older registration racing in after a newer one; keep the newer.
		s.mu.Unlock()
		return
	}
	room[pe.SessionID] = &entry{pe: pe, deadline: time.Now().Add(r.ttl)}
	s.mu.Unlock()

	r.notify(pe.RoomID, domain.PresenceDiff{RoomID: pe.RoomID, Joins: []domain.PresenceEntry{pe}})
}

// Unregister removes the entry for (room, session). Idempotent.
func (r *Registry) Unregister(roomID, sessionID string) {
	s := r.shardFor(roomID)
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	e, exists := room[sessionID]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()

	r.notify(roomID, domain.PresenceDiff{RoomID: roomID, Leaves: []domain.PresenceEntry{e.pe}})
}

// Heartbeat extends the deadline for (room, session). Returns false when the
// entry no longer exists (already swept); the caller should re-register.
func (r *Registry) Heartbeat(roomID, sessionID string) bool {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	e, exists := room[sessionID]
	if !exists {
		return false
	}
	e.deadline = time.Now().Add(r.ttl)
	return true
}

// List returns a point-in-time snapshot of a room's membership, ordered by
// join time. The snapshot is the correctness source of truth; diffs are only
// a notification mechanism.
func (r *Registry) List(roomID string) []domain.PresenceEntry {
	s := r.shardFor(roomID)
	s.mu.RLock()
	room := s.rooms[roomID]
	out := make([]domain.PresenceEntry, 0, len(room))
	for _, e := range room {
		out = append(out, e.pe)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Count reports the number of sessions present in a room.
func (r *Registry) Count(roomID string) int {
	s := r.shardFor(roomID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID])
}

// Watch returns a diff stream for a room and a cancel func. The stream is
// best-effort: a slow consumer loses diffs and must recompute from List.
func (r *Registry) Watch(roomID string) (<-chan domain.PresenceDiff, func()) {
	ch := make(chan domain.PresenceDiff, 16)

	r.wmu.Lock()
	id := r.nextID
	r.nextID++
	if _, ok := r.watchers[roomID]; !ok {
		r.watchers[roomID] = make(map[int]chan domain.PresenceDiff)
	}
	r.watchers[roomID][id] = ch
	r.wmu.Unlock()

	cancel := func() {
		r.wmu.Lock()
		if ws, ok := r.watchers[roomID]; ok {
			if _, exists := ws[id]; exists {
				delete(ws, id)
				close(ch)
			}
			if len(ws) == 0 {
				delete(r.watchers, roomID)
			}
		}
		r.wmu.Unlock()
	}
	return ch, cancel
}

func (r *Registry) notify(roomID string, diff domain.PresenceDiff) {
	r.wmu.RLock()
	defer r.wmu.RUnlock()
	for _, ch := range r.watchers[roomID] {
		select {
		case ch <- diff:
		default:
		}
	}
}

// Run drives the sweeper until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	now := time.Now()
	expired := make(map[string][]domain.PresenceEntry)

	for _, s := range r.shards {
		s.mu.Lock()
		for roomID, room := range s.rooms {
			for sessionID, e := range room {
				if now.After(e.deadline) {
					delete(room, sessionID)
					expired[roomID] = append(expired[roomID], e.pe)
				}
			}
			if len(room) == 0 {
				delete(s.rooms, roomID)
			}
		}
		s.mu.Unlock()
	}

	for roomID, leaves := range expired {
		log.L().Info().Str(log.FieldRoomID, roomID).Int("count", len(leaves)).Msg("expired stale presence entries")
		r.notify(roomID, domain.PresenceDiff{RoomID: roomID, Leaves: leaves})
	}
}
