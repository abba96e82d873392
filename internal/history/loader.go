package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/cache"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/repository"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

// Loader serves backward history pages. Concurrent identical page requests
// (a room full of sessions scrolling the same history) are collapsed into one
// store query; cursored pages are additionally cached since their content is
// immutable.
type Loader struct {
	repo     repository.MessageRepository
	cache    cache.PageCache
	prefix   string
	pageSize int
	cacheTTL time.Duration
	timeout  time.Duration
	group    singleflight.Group
}

func NewLoader(repo repository.MessageRepository, pageCache cache.PageCache, prefix string, cfg config.ChatConfig, cacheTTL time.Duration) *Loader {
	return &Loader{
		repo:     repo,
		cache:    pageCache,
		prefix:   prefix,
		pageSize: cfg.HistoryPageSize,
		cacheTTL: cacheTTL,
		timeout:  cfg.LoadTimeout,
	}
}

// Load returns one page of messages strictly older than the cursor, newest
// first. An empty cursor loads the newest page. The limit is clamped to the
// configured page size; next_cursor is only set when has_more is true.
func (l *Loader) Load(ctx context.Context, roomID, cursor string, limit int) (*domain.HistoryPage, error) {
	if limit <= 0 || limit > l.pageSize {
		limit = l.pageSize
	}

	key := cache.BuildKey(l.prefix, roomID, cursor, limit)

	// The head page is never cached: a join must see every message already
	// persisted, and the head changes on every send.
	if l.cache != nil && cursor != "" {
		if page, err := l.cache.Get(ctx, key); err == nil {
			return page, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("page cache read failed")
		}
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		return l.loadPage(ctx, roomID, cursor, limit)
	})
	if err != nil {
		return nil, err
	}
	page := v.(*domain.HistoryPage)

	if l.cache != nil && cursor != "" {
		if err := l.cache.Set(ctx, key, page, l.cacheTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("page cache write failed")
		}
	}
	return page, nil
}

func (l *Loader) loadPage(ctx context.Context, roomID, cursor string, limit int) (*domain.HistoryPage, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	// One extra row decides has_more without a second query.
	messages, err := l.repo.Page(ctx, roomID, cursor, limit+1)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: loading history for room %s", domain.ErrTimeout, roomID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRoomUnavailable, err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	page := &domain.HistoryPage{Messages: messages, HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		page.NextCursor = messages[len(messages)-1].ID
	}
	return page, nil
}
