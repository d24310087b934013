package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSample is a periodic exchange-rate snapshot taken by the cron runner.
type RateSample struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// Rate is shares-to-underlying at 6 decimals (1.0 means 1:1).
	Rate            decimal.Decimal `gorm:"type:numeric(30,6);not null"`
	TotalUnderlying uint64          `gorm:"not null"`
	TotalShares     uint64          `gorm:"not null"`

	SampledAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (RateSample) TableName() string {
	return "rate_samples"
}
