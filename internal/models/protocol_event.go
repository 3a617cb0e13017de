package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event journal types, one per observable state transition.
const (
	EventDeposit             = "deposit"
	EventWithdraw            = "withdraw"
	EventYieldHarvested      = "yield_harvested"
	EventYieldClaimed        = "yield_claimed"
	EventYieldDistributed    = "yield_distributed"
	EventTriggerAdded        = "trigger_added"
	EventTriggerRemoved      = "trigger_removed"
	EventTriggerProposed     = "trigger_proposed"
	EventTriggerConfirmed    = "trigger_confirmed"
	EventTriggerCancelled    = "trigger_cancelled"
	EventDepositsHalted      = "deposits_halted"
	EventDepositsResumed     = "deposits_resumed"
	EventCompensationStarted = "compensation_triggered"
	EventCompensationPaid    = "compensation_paid"
	EventCompensationEnded   = "compensation_period_ended"
	EventDormancyActivated   = "dormancy_activated"
	EventDormancyWithdrawal  = "dormancy_withdrawal"
	EventHeartbeat           = "heartbeat"
	EventConfigUpdated       = "config_updated"
	EventGovernanceUpdated   = "governance_updated"
	EventTreasuryWithdrawn   = "treasury_withdrawn"
)

// ProtocolEvent is one row of the append-only journal. Payload carries the
// transition-specific fields as jsonb.
type ProtocolEvent struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	EventID string `gorm:"type:varchar(40);not null;uniqueIndex"`

	Type  string `gorm:"type:varchar(50);not null;index"`
	Actor string `gorm:"type:varchar(100);index"`
	Seq   uint64 `gorm:"not null;index"`

	Payload datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (ProtocolEvent) TableName() string {
	return "protocol_events"
}
