package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompensationClaim records a settled per-user claim against one event; the
// unique (event, address) index is the hasClaimed flag.
type CompensationClaim struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	EventID uint64 `gorm:"not null;uniqueIndex:idx_claim_event_address"`
	Address string `gorm:"type:varchar(100);not null;uniqueIndex:idx_claim_event_address"`

	Amount decimal.Decimal `gorm:"type:numeric(40,0);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (CompensationClaim) TableName() string {
	return "compensation_claims"
}
