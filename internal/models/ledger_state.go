package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerState is the single-row global ledger snapshot. Outside an in-flight
// operation the vault balance must cover TotalPrincipal + SeedBalance +
// TreasuryBalance + YieldPoolBalance + UserYieldOutstanding; any positive
// difference is unrecognized yield.
type LedgerState struct {
	ID uint64 `gorm:"primaryKey"`

	TotalPrincipal  decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	SeedBalance     decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	TreasuryBalance decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	// YieldPoolBalance accrues harvested yield under the deposit_split
	// policy until an admin distribution call moves it to users.
	YieldPoolBalance decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	TotalUserYieldDistributed decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	// UserYieldOutstanding is distributed-but-unclaimed user yield still
	// sitting in the vault; without it every harvest pass would re-recognize
	// yield that was already allocated.
	UserYieldOutstanding       decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	TotalSeedYieldReceived     decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	TotalTreasuryYieldReceived decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	TotalCompensationPaid      decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	// Seq increments once per committed mutating operation; it anchors
	// compensation eligibility snapshots.
	Seq uint64 `gorm:"not null;default:0"`

	CompensationActive   bool   `gorm:"not null;default:false"`
	ActiveCompensationID uint64 `gorm:"not null;default:0"`

	DepositHaltUntil   *time.Time `gorm:"type:timestamptz"`
	LastCompensationAt *time.Time `gorm:"type:timestamptz"`
	LastActivityAt     time.Time  `gorm:"type:timestamptz;not null"`

	DormancyActivated      bool            `gorm:"not null;default:false"`
	DormancyTotalWithdrawn decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (LedgerState) TableName() string {
	return "ledger_state"
}
