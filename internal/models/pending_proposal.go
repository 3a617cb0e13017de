package models

import "time"

// PendingProposal is the at-most-one live trigger proposal, created by the
// oracle and consumed by confirmation or cancellation. A proposal older than
// the confirmation window is stale and can only be re-proposed.
type PendingProposal struct {
	ID         uint64    `gorm:"primaryKey"`
	TriggerID  string    `gorm:"type:varchar(100);not null"`
	ProposedAt time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PendingProposal) TableName() string {
	return "pending_proposals"
}
