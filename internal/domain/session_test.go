package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("s1")
	assert.Equal(t, StateConnecting, s.State())
	assert.False(t, s.IsJoined())

	s.Authenticate(Identity{UserID: "u1", DisplayName: "ana"})
	assert.True(t, s.IsAuthenticated())

	require.True(t, s.Join("42"))
	assert.Equal(t, StateJoined, s.State())
	assert.Equal(t, "42", s.RoomID())
	assert.True(t, s.IsInRoom())

	room, ok := s.Leave()
	assert.True(t, ok)
	assert.Equal(t, "42", room)
	assert.Equal(t, StateLeft, s.State())
	assert.False(t, s.IsInRoom())
}

func TestLeaveIsTerminalAndIdempotent(t *testing.T) {
	s := NewSession("s1")
	require.True(t, s.Join("42"))

	_, ok := s.Leave()
	require.True(t, ok)

	_, ok = s.Leave()
	assert.False(t, ok)
	assert.False(t, s.Join("7"), "a left session never rejoins")
}

func TestLeaveStopsHeartbeat(t *testing.T) {
	s := NewSession("s1")
	require.True(t, s.Join("42"))

	stopped := false
	s.SetHeartbeatStop(func() { stopped = true })

	s.Leave()
	assert.True(t, stopped)
}

func TestSetHeartbeatStopAfterLeaveCancelsImmediately(t *testing.T) {
	s := NewSession("s1")
	require.True(t, s.Join("42"))
	s.Leave()

	stopped := false
	s.SetHeartbeatStop(func() { stopped = true })
	assert.True(t, stopped)
}

func TestTouchRevivesDisconnectedSession(t *testing.T) {
	s := NewSession("s1")
	require.True(t, s.Join("42"))

	require.True(t, s.MarkDisconnected())
	assert.Equal(t, StateDisconnected, s.State())

	s.Touch()
	assert.Equal(t, StateJoined, s.State())

	// But never a left one.
	s.Leave()
	s.Touch()
	assert.Equal(t, StateLeft, s.State())
}

func TestStatusTransitionFiresOnlyOnChange(t *testing.T) {
	s := NewSession("s1")

	assert.True(t, s.StatusTransition(StatusConnected))
	assert.False(t, s.StatusTransition(StatusConnected))
	assert.True(t, s.StatusTransition(StatusDisconnected))
	assert.True(t, s.StatusTransition(StatusConnected))
}

func TestTryBeginLoadOlderSerializes(t *testing.T) {
	s := NewSession("s1")

	require.True(t, s.TryBeginLoadOlder())
	assert.False(t, s.TryBeginLoadOlder())
	s.EndLoadOlder()
	assert.True(t, s.TryBeginLoadOlder())
}

func TestPresenceEntryDerivesFromSession(t *testing.T) {
	s := NewSession("s1")
	s.Authenticate(Identity{DisplayName: "visitante-12ab34cd", Anonymous: true})
	require.True(t, s.Join("42"))

	e := s.PresenceEntry()
	assert.Equal(t, "42", e.RoomID)
	assert.Equal(t, "s1", e.SessionID)
	assert.Empty(t, e.UserID)
	assert.True(t, e.Anonymous)
	assert.Equal(t, s.JoinedAt(), e.JoinedAt)
}
