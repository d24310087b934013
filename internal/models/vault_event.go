package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event kinds recorded in the journal.
const (
	EventDeposit         = "deposit"
	EventWithdraw        = "withdraw"
	EventYieldUpdate     = "yield_update"
	EventFeeChange       = "fee_change"
	EventCapChange       = "cap_change"
	EventPauseChange     = "pause_change"
	EventRoleChange      = "role_change"
	EventAdminTransfer   = "admin_transfer"
	EventStrategyChange  = "strategy_change"
	EventStrategyRequest = "strategy_request"
)

// VaultEvent is one append-only journal row. The journal is best-effort: a
// failed insert is logged and never blocks the accounting operation.
type VaultEvent struct {
	ID      uint64         `gorm:"primaryKey;autoIncrement"`
	Kind    string         `gorm:"type:varchar(30);not null;index"`
	Caller  string         `gorm:"type:text;not null;index"`
	Payload datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (VaultEvent) TableName() string {
	return "vault_events"
}
