package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// PaymentEvent is an immutable lifecycle record mirrored after the
// settlement layer's event stream; reconciliation reads it back in order.
// BotID is zero for events that are not bot-scoped (bot ids are 1-based).
type PaymentEvent struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Type      enums.PaymentEventType `gorm:"column:type;type:varchar(32);not null;index"`
	Wallet    types.Address          `gorm:"column:wallet;type:varchar(42);not null;index"`
	BotID     uint64                 `gorm:"column:bot_id;not null;index"`
	Token     types.Address          `gorm:"column:token;type:varchar(42)"`
	Amount    types.Amount           `gorm:"column:amount;type:numeric(78,0);not null"`
	Fee       types.Amount           `gorm:"column:fee;type:numeric(78,0);not null"`
	Metadata  json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (e *PaymentEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
