package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/cache"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/repository"
)

type flakyRepo struct {
	repository.MessageRepository
	mu    sync.Mutex
	fail  error
	calls int
	block time.Duration
}

func (r *flakyRepo) Page(ctx context.Context, roomID, before string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	r.calls++
	fail := r.fail
	block := r.block
	r.mu.Unlock()

	if block > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(block):
		}
	}
	if fail != nil {
		return nil, fail
	}
	return r.MessageRepository.Page(ctx, roomID, before, limit)
}

func (r *flakyRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type memoryCache struct {
	mu    sync.Mutex
	pages map[string]*domain.HistoryPage
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: make(map[string]*domain.HistoryPage)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (*domain.HistoryPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page, ok := c.pages[key]; ok {
		return page, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *memoryCache) Set(ctx context.Context, key string, page *domain.HistoryPage, ttl time.Duration) error {
	c.mu.Lock()
	c.pages[key] = page
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Close() error { return nil }

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

func chatCfg() config.ChatConfig {
	return config.ChatConfig{
		MaxTextLength:   2000,
		HistoryPageSize: 5,
		SendTimeout:     time.Second,
		LoadTimeout:     time.Second,
	}
}

func seedRoom(t *testing.T, repo repository.MessageRepository, roomID string, n int) []domain.Message {
	t.Helper()
	base := time.Now().UTC()
	out := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		msg := domain.Message{
			ID:         repository.NewMessageID(base.Add(time.Duration(i) * time.Millisecond)),
			RoomID:     roomID,
			SenderName: "ana",
			Text:       fmt.Sprintf("mensagem %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, repo.Insert(context.Background(), msg))
		out = append(out, msg)
	}
	return out
}

func TestLoadHeadPage(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	seeded := seedRoom(t, repo, "42", 12)
	loader := NewLoader(repo, nil, "chat:history", chatCfg(), time.Minute)

	page, err := loader.Load(context.Background(), "42", "", 0)
	require.NoError(t, err)

	require.Len(t, page.Messages, 5)
	assert.Equal(t, seeded[11].ID, page.Messages[0].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, page.Messages[4].ID, page.NextCursor)
}

func TestLoadLastPageHasNoMore(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	seeded := seedRoom(t, repo, "42", 7)
	loader := NewLoader(repo, nil, "chat:history", chatCfg(), time.Minute)

	page, err := loader.Load(context.Background(), "42", seeded[2].ID, 0)
	require.NoError(t, err)

	assert.Len(t, page.Messages, 2)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestLoadExactBoundaryHasMoreExactlyWhenOlderExists(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	seedRoom(t, repo, "42", 10)
	loader := NewLoader(repo, nil, "chat:history", chatCfg(), time.Minute)

	first, err := loader.Load(context.Background(), "42", "", 0)
	require.NoError(t, err)
	require.True(t, first.HasMore)

	second, err := loader.Load(context.Background(), "42", first.NextCursor, 0)
	require.NoError(t, err)
	assert.Len(t, second.Messages, 5)
	assert.False(t, second.HasMore, "exactly limit messages remained")
	assert.Empty(t, second.NextCursor)
}

func TestLoadEmptyRoom(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	loader := NewLoader(repo, nil, "chat:history", chatCfg(), time.Minute)

	page, err := loader.Load(context.Background(), "empty", "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)
}

func TestLoadClampsLimit(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	seedRoom(t, repo, "42", 20)
	loader := NewLoader(repo, nil, "chat:history", chatCfg(), time.Minute)

	page, err := loader.Load(context.Background(), "42", "", 500)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 5)
}

func TestLoadStoreFailureIsRoomUnavailable(t *testing.T) {
	repo := &flakyRepo{
		MessageRepository: repository.NewMemoryMessageRepository(),
		fail:              errors.New("connection refused"),
	}
	loader := NewLoader(repo, nil, "chat:history", chatCfg(), time.Minute)

	_, err := loader.Load(context.Background(), "42", "", 0)
	assert.ErrorIs(t, err, domain.ErrRoomUnavailable)
}

func TestLoadTimeoutIsTimeout(t *testing.T) {
	cfg := chatCfg()
	cfg.LoadTimeout = 20 * time.Millisecond
	repo := &flakyRepo{
		MessageRepository: repository.NewMemoryMessageRepository(),
		block:             200 * time.Millisecond,
	}
	loader := NewLoader(repo, nil, "chat:history", cfg, time.Minute)

	_, err := loader.Load(context.Background(), "42", "", 0)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestCursoredPagesAreCachedAndHeadIsNot(t *testing.T) {
	inner := repository.NewMemoryMessageRepository()
	seeded := seedRoom(t, inner, "42", 12)
	repo := &flakyRepo{MessageRepository: inner}
	pageCache := newMemoryCache()
	loader := NewLoader(repo, pageCache, "chat:history", chatCfg(), time.Minute)

	// Head page twice: both hit the store, nothing cached.
	for i := 0; i < 2; i++ {
		_, err := loader.Load(context.Background(), "42", "", 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.callCount())
	assert.Zero(t, pageCache.size())

	// Cursored page twice: second load is served from cache.
	cursor := seeded[7].ID
	first, err := loader.Load(context.Background(), "42", cursor, 0)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), "42", cursor, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.callCount())
	assert.Equal(t, first.Messages, second.Messages)
	assert.Equal(t, 1, pageCache.size())
}
