package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// Subscription is the per-(wallet, bot) subscription record. It is never
// deleted; the status moves to Expired or Cancelled instead.
//
// Invariant: StartTime <= TrialEndTime <= EndTime.
type Subscription struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Wallet       types.Address            `gorm:"column:wallet;type:varchar(42);not null;uniqueIndex:idx_subscriptions_wallet_bot"`
	BotID        uint64                   `gorm:"column:bot_id;not null;uniqueIndex:idx_subscriptions_wallet_bot;index"`
	StartTime    time.Time                `gorm:"column:start_time;not null"`
	EndTime      time.Time                `gorm:"column:end_time;not null;index"`
	TrialEndTime time.Time                `gorm:"column:trial_end_time;not null"`
	LastPayment  time.Time                `gorm:"column:last_payment;not null"`
	Status       enums.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
