package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
)

// MemoryMessageRepository keeps messages in process memory. Used when no
// Cassandra cluster is configured, and by tests.
type MemoryMessageRepository struct {
	mu    sync.RWMutex
	rooms map[string][]domain.Message // ascending by id
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{rooms: make(map[string][]domain.Message)}
}

func (r *MemoryMessageRepository) Insert(ctx context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.rooms[msg.RoomID]
	// Ids arrive nearly sorted; find the insertion point to keep order exact.
	idx := sort.Search(len(msgs), func(i int) bool { return msgs[i].ID >= msg.ID })
	msgs = append(msgs, domain.Message{})
	copy(msgs[idx+1:], msgs[idx:])
	msgs[idx] = msg
	r.rooms[msg.RoomID] = msgs
	return nil
}

func (r *MemoryMessageRepository) Page(ctx context.Context, roomID, before string, limit int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.rooms[roomID]
	// End of the range: everything strictly older than the cursor.
	end := len(msgs)
	if before != "" {
		end = sort.Search(len(msgs), func(i int) bool { return msgs[i].ID >= before })
	}

	out := make([]domain.Message, 0, limit)
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (r *MemoryMessageRepository) Close() {}
