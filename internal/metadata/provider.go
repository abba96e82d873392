// Package metadata enriches rooms with display fields from the business
// database. Strictly read-only: the chat core never writes order rows, and a
// missing or unreachable database only means rooms render without a title.
package metadata

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/database"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

// Order is the business row behind a room. The room id is the order id.
type Order struct {
	ID        string               `gorm:"column:id;primaryKey"`
	Title     string               `gorm:"column:title"`
	Status    string               `gorm:"column:status"`
	Tags      database.StringArray `gorm:"column:tags"`
	CreatedAt time.Time            `gorm:"column:created_at"`
}

func (Order) TableName() string { return "orders" }

// Provider looks up room metadata.
type Provider interface {
	Get(ctx context.Context, roomID string) (*domain.RoomMetadata, error)
}

type GormProvider struct {
	db *gorm.DB
}

func NewGormProvider(db *gorm.DB) *GormProvider {
	return &GormProvider{db: db}
}

// Get returns the metadata for a room, or nil when the backing order does
// not exist. A lookup failure is logged and degraded to nil; joins never
// fail on metadata.
func (p *GormProvider) Get(ctx context.Context, roomID string) (*domain.RoomMetadata, error) {
	var order Order
	err := p.db.WithContext(ctx).First(&order, "id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("metadata lookup failed")
		return nil, nil
	}

	return &domain.RoomMetadata{
		RoomID:    order.ID,
		Title:     order.Title,
		Status:    order.Status,
		Tags:      order.Tags,
		CreatedAt: order.CreatedAt,
	}, nil
}

// NopProvider is used when no business database is configured.
type NopProvider struct{}

func (NopProvider) Get(context.Context, string) (*domain.RoomMetadata, error) { return nil, nil }
