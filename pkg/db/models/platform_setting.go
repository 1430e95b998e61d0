package models

import "time"

// PlatformSettingID is the primary key of the single settings row.
const PlatformSettingID = int16(1)

// PlatformSetting is the runtime-mutable platform configuration. A single
// row (id = 1) is seeded by migration.
type PlatformSetting struct {
	ID        int16     `gorm:"column:id;primaryKey"`
	FeeBps    uint64    `gorm:"column:fee_bps;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
