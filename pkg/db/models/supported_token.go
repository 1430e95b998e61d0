package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// SupportedToken whitelists a settlement token. Row presence is the
// support flag; removal hard-deletes the row once the token's platform
// fee balance is zero.
type SupportedToken struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	Token     types.Address `gorm:"column:token;type:varchar(42);not null;uniqueIndex"`
	Name      string        `gorm:"column:name;not null"`
	Symbol    string        `gorm:"column:symbol;not null"`
	Decimals  int32         `gorm:"column:decimals;not null;default:6"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (t *SupportedToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
