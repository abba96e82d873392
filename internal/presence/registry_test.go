package presence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
)

func newEntry(roomID, sessionID, name string) domain.PresenceEntry {
	return domain.PresenceEntry{
		RoomID:      roomID,
		SessionID:   sessionID,
		DisplayName: name,
		JoinedAt:    time.Now(),
	}
}

func TestRegisterAndList(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	first := newEntry("7", "s1", "ana")
	second := newEntry("7", "s2", "bruno")
	second.JoinedAt = first.JoinedAt.Add(time.Second)

	r.Register(first)
	r.Register(second)

	got := r.List("7")
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, "s2", got[1].SessionID)
	assert.Equal(t, 2, r.Count("7"))
	assert.Empty(t, r.List("other"))
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	old := newEntry("7", "s1", "ana")
	newer := newEntry("7", "s1", "ana (reconnected)")
	newer.JoinedAt = old.JoinedAt.Add(time.Second)

	r.Register(newer)
	r.Register(old) // stale registration racing in late

	got := r.List("7")
	require.Len(t, got, 1)
	assert.Equal(t, "ana (reconnected)", got[0].DisplayName)
}

func TestUnregisterIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	r.Register(newEntry("7", "s1", "ana"))
	r.Unregister("7", "s1")
	r.Unregister("7", "s1")
	r.Unregister("7", "never-existed")

	assert.Zero(t, r.Count("7"))
}

func TestWatchReceivesJoinAndLeaveDiffs(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	ch, cancel := r.Watch("7")
	defer cancel()

	e := newEntry("7", "s1", "ana")
	r.Register(e)
	r.Unregister("7", "s1")

	join := <-ch
	require.Len(t, join.Joins, 1)
	assert.Equal(t, "s1", join.Joins[0].SessionID)

	leave := <-ch
	require.Len(t, leave.Leaves, 1)
	assert.Equal(t, "s1", leave.Leaves[0].SessionID)
}

func TestWatchCancelClosesStream(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	ch, cancel := r.Watch("7")
	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	assert.False(t, open)

	// Diffs after cancel must not panic.
	r.Register(newEntry("7", "s1", "ana"))
}

func TestHeartbeatExtendsDeadline(t *testing.T) {
	r := NewRegistry(50*time.Millisecond, time.Minute)

	r.Register(newEntry("7", "s1", "ana"))

	// Keep the entry alive well past the original TTL.
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		require.True(t, r.Heartbeat("7", "s1"))
		r.sweep()
	}
	assert.Equal(t, 1, r.Count("7"))

	assert.False(t, r.Heartbeat("7", "missing"))
	assert.False(t, r.Heartbeat("other", "s1"))
}

func TestSweepExpiresStaleEntriesAndEmitsLeaves(t *testing.T) {
	r := NewRegistry(20*time.Millisecond, time.Minute)

	ch, cancel := r.Watch("7")
	defer cancel()

	r.Register(newEntry("7", "s1", "ana"))
	<-ch // join diff

	time.Sleep(40 * time.Millisecond)
	r.sweep()

	assert.Zero(t, r.Count("7"))

	leave := <-ch
	require.Len(t, leave.Leaves, 1)
	assert.Equal(t, "s1", leave.Leaves[0].SessionID)
}

func TestConcurrentJoinLeaveConverges(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	const sessions = 64
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := newEntry("42", fmt.Sprintf("s%02d", i), "user")
			r.Register(e)
			if i%2 == 1 {
				r.Unregister("42", e.SessionID)
			} else {
				r.Heartbeat("42", e.SessionID)
			}
		}(i)
	}
	wg.Wait()
	r.sweep()

	got := r.List("42")
	require.Len(t, got, sessions/2)
	seen := make(map[string]bool, len(got))
	for _, e := range got {
		seen[e.SessionID] = true
	}
	for i := 0; i < sessions; i += 2 {
		assert.True(t, seen[fmt.Sprintf("s%02d", i)])
	}
	assert.Equal(t, sessions/2, r.Count("42"))
}

func TestRoomsAreIndependent(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	r.Register(newEntry("7", "s1", "ana"))
	r.Register(newEntry("42", "s2", "bruno"))

	r.Unregister("7", "s1")

	assert.Zero(t, r.Count("7"))
	assert.Equal(t, 1, r.Count("42"))
}
