package cache

import (
	"context"
	"errors"
	"time"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// PageCache is a read-through cache for history pages. Only pages behind a
// cursor are cached; the head page always hits the store so a fresh join sees
// everything already persisted.
type PageCache interface {
	Get(ctx context.Context, key string) (*domain.HistoryPage, error)
	Set(ctx context.Context, key string, page *domain.HistoryPage, ttl time.Duration) error
	Close() error
}
