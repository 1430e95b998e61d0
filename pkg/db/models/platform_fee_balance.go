package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// PlatformFeeBalance accumulates finalization fees per token until the
// platform withdraws them.
type PlatformFeeBalance struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	Token     types.Address `gorm:"column:token;type:varchar(42);not null;uniqueIndex"`
	Balance   types.Amount  `gorm:"column:balance;type:numeric(78,0);not null"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *PlatformFeeBalance) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
