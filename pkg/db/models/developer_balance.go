package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// DeveloperBalance is the per-developer-per-token withdrawable balance
// credited by payment finalization.
type DeveloperBalance struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	Developer types.Address `gorm:"column:developer;type:varchar(42);not null;uniqueIndex:idx_developer_balances_dev_token"`
	Token     types.Address `gorm:"column:token;type:varchar(42);not null;uniqueIndex:idx_developer_balances_dev_token"`
	Balance   types.Amount  `gorm:"column:balance;type:numeric(78,0);not null"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *DeveloperBalance) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
