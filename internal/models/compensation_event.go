package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompensationEvent is one payout event created per confirmed trigger.
// Immutable once opened except PaidAmount, ClaimCount and the closed marker.
type CompensationEvent struct {
	ID        uint64 `gorm:"primaryKey"`
	TriggerID string `gorm:"type:varchar(100);not null;index"`

	// TriggerSeq is the ledger sequence at confirmation time; positions whose
	// last deposit sequence is at or past it are ineligible.
	TriggerSeq uint64 `gorm:"not null"`

	PoolAmount        decimal.Decimal `gorm:"type:numeric(40,0);not null"`
	SnapshotPrincipal decimal.Decimal `gorm:"type:numeric(40,0);not null"`
	PaidAmount        decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`
	ClaimCount        int64           `gorm:"not null;default:0"`

	Closed   bool       `gorm:"not null;default:false;index"`
	OpenedAt time.Time  `gorm:"type:timestamptz;not null"`
	ClosedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CompensationEvent) TableName() string {
	return "compensation_events"
}
