package models

import (
	"time"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// Bot is a registered catalog entry. Ids are 1-based and assigned
// monotonically; bots are soft-deactivated, never deleted.
type Bot struct {
	ID           uint64        `gorm:"column:id;primaryKey;autoIncrement"`
	Developer    types.Address `gorm:"column:developer;type:varchar(42);not null;index"`
	IPFSHash     string        `gorm:"column:ipfs_hash;not null"`
	Name         string        `gorm:"column:name;not null"`
	Description  string        `gorm:"column:description"`
	Price        types.Amount  `gorm:"column:price;type:numeric(78,0);not null"`
	TrialSeconds int64         `gorm:"column:trial_seconds;not null;default:0"`
	IsActive     bool          `gorm:"column:is_active;not null;default:true"`
	// TotalIncome accrues gross at payment time and is decremented by
	// refunds. Informational; summed across payment tokens.
	TotalIncome types.Amount `gorm:"column:total_income;type:numeric(78,0);not null;default:0"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
