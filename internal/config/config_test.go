package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Chat.MaxTextLength)
	assert.Equal(t, 50, cfg.Chat.HistoryPageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Typing.Debounce)
	assert.Equal(t, 5*time.Second, cfg.Presence.HeartbeatInterval)
	assert.Equal(t, "chat-notifications", cfg.Kafka.Topic)
	assert.Equal(t, 8, cfg.Kafka.Partitions)
}

func TestLoadClampsProtocolLimits(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cfg.Presence.EntryTTL, 2*cfg.Presence.HeartbeatInterval)
	assert.Greater(t, cfg.WebSocket.PongWait, cfg.WebSocket.PingInterval)

	// A maximum-length, fully multibyte message must fit in one frame.
	assert.GreaterOrEqual(t, cfg.WebSocket.MaxMessageSize, int64(4*cfg.Chat.MaxTextLength))
}
