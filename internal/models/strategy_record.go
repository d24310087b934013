package models

import (
	"time"

	"gorm.io/datatypes"
)

// StrategyRecord mirrors one registry entry into the database. The in-memory
// registry stays authoritative; rows here serve reads across restarts and
// external reporting.
type StrategyRecord struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	ChainID uint64 `gorm:"not null;uniqueIndex:idx_strategy_key,priority:1"`
	ProtoID uint64 `gorm:"not null;uniqueIndex:idx_strategy_key,priority:2"`

	Name      string  `gorm:"type:varchar(64);not null"`
	Address   *string `gorm:"type:text"`
	MinAmount uint64  `gorm:"not null;default:0"`
	MaxAmount uint64  `gorm:"not null;default:0"`
	FeeBps    uint32  `gorm:"not null;default:0"`
	Enabled   bool    `gorm:"not null;default:true;index"`

	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (StrategyRecord) TableName() string {
	return "strategy_records"
}
