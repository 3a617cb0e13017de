package protocol

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"seedpool/internal/models"
)

// ProtocolStatus is the aggregate read-only view.
type ProtocolStatus struct {
	TotalPrincipal            decimal.Decimal `json:"total_principal"`
	SeedBalance               decimal.Decimal `json:"seed_balance"`
	TreasuryBalance           decimal.Decimal `json:"treasury_balance"`
	YieldPoolBalance          decimal.Decimal `json:"yield_pool_balance"`
	PendingYield              decimal.Decimal `json:"pending_yield"`
	TotalUserYieldDistributed decimal.Decimal `json:"total_user_yield_distributed"`
	TotalCompensationPaid     decimal.Decimal `json:"total_compensation_paid"`
	Seq                       uint64          `json:"seq"`
	CompensationActive        bool            `json:"compensation_active"`
	ActiveCompensationID      uint64          `json:"active_compensation_id,omitempty"`
	DepositsHalted            bool            `json:"deposits_halted"`
	DepositHaltUntil          *time.Time      `json:"deposit_halt_until,omitempty"`
	DormancyActivated         bool            `json:"dormancy_activated"`
	LastActivityAt            time.Time       `json:"last_activity_at"`
	Policy                    string          `json:"policy"`
}

// UserStatus is the per-user read-only view.
type UserStatus struct {
	Address               string          `json:"address"`
	Principal             decimal.Decimal `json:"principal"`
	YieldClaimed          decimal.Decimal `json:"yield_claimed"`
	ClaimableYield        decimal.Decimal `json:"claimable_yield"`
	ClaimableCompensation decimal.Decimal `json:"claimable_compensation"`
	LastActivitySeq       uint64          `json:"last_activity_seq"`
	DormancyWithdrawn     bool            `json:"dormancy_withdrawn"`
}

// DormancyStatus reports the countdown toward the recovery fallback.
type DormancyStatus struct {
	Activated      bool            `json:"activated"`
	LastActivityAt time.Time       `json:"last_activity_at"`
	Threshold      string          `json:"threshold"`
	Remaining      string          `json:"remaining"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
}

// Status returns the aggregate protocol view. The pending yield requires a
// vault round-trip; a vault error degrades it to zero rather than failing
// the whole query.
func (e *Engine) Status(ctx context.Context) ProtocolStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	led := e.st.ledger
	pending := decimal.Zero
	if !led.DormancyActivated {
		if p, err := e.pendingYield(ctx, &led); err == nil && p.Sign() > 0 {
			pending = p
		}
	}
	now := e.now()
	halted := led.DepositHaltUntil != nil && now.Before(*led.DepositHaltUntil)

	return ProtocolStatus{
		TotalPrincipal:            led.TotalPrincipal,
		SeedBalance:               led.SeedBalance,
		TreasuryBalance:           led.TreasuryBalance,
		YieldPoolBalance:          led.YieldPoolBalance,
		PendingYield:              pending,
		TotalUserYieldDistributed: led.TotalUserYieldDistributed,
		TotalCompensationPaid:     led.TotalCompensationPaid,
		Seq:                       led.Seq,
		CompensationActive:        led.CompensationActive,
		ActiveCompensationID:      led.ActiveCompensationID,
		DepositsHalted:            halted,
		DepositHaltUntil:          led.DepositHaltUntil,
		DormancyActivated:         led.DormancyActivated,
		LastActivityAt:            led.LastActivityAt,
		Policy:                    e.policy.Name(),
	}
}

// UserStatusFor returns the per-user view; nil when the address has never
// deposited.
func (e *Engine) UserStatusFor(address string) *UserStatus {
	address = normalizeAddress(address)

	e.mu.RLock()
	defer e.mu.RUnlock()

	pos := e.st.user(address)
	if pos == nil {
		return nil
	}
	return &UserStatus{
		Address:               address,
		Principal:             pos.Principal,
		YieldClaimed:          pos.YieldClaimed,
		ClaimableYield:        claimableYield(&e.st.ledger, pos),
		ClaimableCompensation: e.claimableCompensation(address),
		LastActivitySeq:       pos.LastActivitySeq,
		DormancyWithdrawn:     pos.DormancyWithdrawn,
	}
}

// CompensationEvents returns copies of all event records, oldest first.
func (e *Engine) CompensationEvents() []models.CompensationEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.CompensationEvent, 0, len(e.st.compEvents))
	for _, ev := range e.st.compEvents {
		out = append(out, *ev)
	}
	return out
}

// CompensationEventByID returns a copy of one event record.
func (e *Engine) CompensationEventByID(id uint64) *models.CompensationEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := int(id) - 1
	if idx < 0 || idx >= len(e.st.compEvents) {
		return nil
	}
	copied := *e.st.compEvents[idx]
	return &copied
}

// Triggers returns copies of the registry entries.
func (e *Engine) Triggers() []models.Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Trigger, 0, len(e.st.triggers))
	for _, t := range e.st.triggers {
		out = append(out, *t)
	}
	return out
}

// PendingProposalInfo returns a copy of the live proposal, nil when idle.
func (e *Engine) PendingProposalInfo() *models.PendingProposal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.st.proposal == nil {
		return nil
	}
	copied := *e.st.proposal
	return &copied
}

// Dormancy returns the countdown view.
func (e *Engine) Dormancy() DormancyStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	led := e.st.ledger
	remaining := time.Duration(0)
	if !led.DormancyActivated {
		elapsed := e.now().Sub(led.LastActivityAt)
		if elapsed < e.params.DormancyThreshold {
			remaining = e.params.DormancyThreshold - elapsed
		}
	}
	return DormancyStatus{
		Activated:      led.DormancyActivated,
		LastActivityAt: led.LastActivityAt,
		Threshold:      e.params.DormancyThreshold.String(),
		Remaining:      remaining.String(),
		TotalWithdrawn: led.DormancyTotalWithdrawn,
	}
}
