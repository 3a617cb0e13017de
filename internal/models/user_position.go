package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserPosition is the per-user ledger record. Principal only moves on
// deposit, withdraw and dormancy exit; the sum of all principals must equal
// LedgerState.TotalPrincipal.
type UserPosition struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Address string `gorm:"type:varchar(100);not null;uniqueIndex"`

	Principal    decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	YieldClaimed decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	// LastActivitySeq is the ledger sequence recorded on every deposit; it is
	// the sole front-running defense used by compensation eligibility.
	LastActivitySeq   uint64 `gorm:"not null;default:0"`
	DormancyWithdrawn bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (UserPosition) TableName() string {
	return "user_positions"
}
