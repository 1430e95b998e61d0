package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// EscrowPayment holds custody state for a (wallet, bot) payment.
//
// Invariant: EscrowBalance > 0 implies Status == pending; finalization or
// a full refund zeroes the balance and advances the status exactly once.
type EscrowPayment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Wallet        types.Address       `gorm:"column:wallet;type:varchar(42);not null;uniqueIndex:idx_escrow_payments_wallet_bot"`
	BotID         uint64              `gorm:"column:bot_id;not null;uniqueIndex:idx_escrow_payments_wallet_bot;index"`
	Token         types.Address       `gorm:"column:token;type:varchar(42);not null"`
	EscrowBalance types.Amount        `gorm:"column:escrow_balance;type:numeric(78,0);not null"`
	StartTime     time.Time           `gorm:"column:start_time;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:varchar(16);not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *EscrowPayment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
