package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
)

// MessageRepository is the append-only message store. Messages are immutable
// once inserted and totally ordered per room by id.
type MessageRepository interface {
	// Insert persists a message. The message id must already be assigned.
	Insert(ctx context.Context, msg domain.Message) error

	// Page returns up to limit messages of a room strictly older than the
	// cursor, newest first. An empty cursor means "from the newest". Callers
	// request limit+1 to learn whether more pages exist.
	Page(ctx context.Context, roomID, before string, limit int) ([]domain.Message, error)

	Close()
}

var idSeq uint64

// NewMessageID assigns a store-side message id. Ids are lexicographically
// time-ordered so cursors compare as plain strings: a zero-padded microsecond
// timestamp, a process-local sequence breaking same-microsecond ties, and a
// short random suffix breaking cross-process ties.
func NewMessageID(now time.Time) string {
	seq := atomic.AddUint64(&idSeq, 1) % 1000000
	return fmt.Sprintf("%016d-%06d-%s", now.UnixMicro(), seq, uuid.NewString()[:8])
}
