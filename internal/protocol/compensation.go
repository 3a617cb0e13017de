package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seedpool/internal/models"
	"seedpool/internal/vault"
)

// executeCompensation funds a payout event from the seed. Invoked only from
// a confirmed trigger or the emergency path, always inside the caller's
// changeset so the whole sequence commits or aborts together.
func (e *Engine) executeCompensation(ctx context.Context, cs *changeset, triggerID string, now time.Time) (*models.CompensationEvent, error) {
	if _, err := e.harvestInto(ctx, cs, "governance"); err != nil {
		return nil, err
	}

	seed := cs.ledger.SeedBalance
	if seed.Sign() <= 0 {
		return nil, ErrNoSeed
	}
	amount := bpsShare(seed, e.params.MaxCompensationBps)
	if amount.Sign() <= 0 {
		return nil, ErrNoSeed
	}
	// Deducted before the withdrawal so the seed never shows a balance it
	// can no longer pay.
	cs.ledger.SeedBalance = cs.ledger.SeedBalance.Sub(amount)

	received, err := e.vault.Withdraw(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("vault withdraw: %w", err)
	}
	minReceived := bpsShare(amount, 10000-e.params.SlippageBps)
	if received.LessThan(minReceived) {
		return nil, ErrInsufficientLiquidity
	}

	event := &models.CompensationEvent{
		ID:                uint64(len(e.st.compEvents)) + 1,
		TriggerID:         triggerID,
		TriggerSeq:        cs.ledger.Seq,
		PoolAmount:        received,
		SnapshotPrincipal: cs.ledger.TotalPrincipal,
		PaidAmount:        decimal.Zero,
		OpenedAt:          now,
	}
	cs.compEvents = append(cs.compEvents, event)

	cs.ledger.CompensationActive = true
	cs.ledger.ActiveCompensationID = event.ID
	cs.ledger.LastCompensationAt = &now

	cs.journalEvent(now, models.EventCompensationStarted, "governance", map[string]any{
		"compensation_id":    event.ID,
		"trigger_id":         triggerID,
		"pool":               received.String(),
		"snapshot_principal": event.SnapshotPrincipal.String(),
		"trigger_seq":        event.TriggerSeq,
	})
	return event, nil
}

// ClaimCompensation settles one user's pro-rata share of the active event.
// A position whose last deposit landed at or after the trigger sequence is
// excluded: it can only exist because its owner observed the trigger.
func (e *Engine) ClaimCompensation(ctx context.Context, address string) (decimal.Decimal, error) {
	address = normalizeAddress(address)
	if !validAddress(address) {
		return decimal.Zero, ErrInvalidAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.ledger.DormancyActivated {
		return decimal.Zero, ErrDormancyActive
	}
	event := e.st.activeCompEvent()
	if event == nil {
		return decimal.Zero, ErrNoActiveCompensation
	}
	if e.st.hasClaimed(event.ID, address) {
		return decimal.Zero, ErrAlreadyClaimed
	}
	pos := e.st.user(address)
	if pos == nil || pos.Principal.Sign() <= 0 {
		return decimal.Zero, ErrInsufficientPrincipal
	}
	if pos.LastActivitySeq >= event.TriggerSeq {
		return decimal.Zero, ErrNotEligible
	}

	share := mulDivFloor(event.PoolAmount, pos.Principal, event.SnapshotPrincipal)
	if share.Sign() <= 0 {
		return decimal.Zero, ErrShareRoundsToZero
	}

	// This checks the already-withdrawn on-hand funds, distinct from vault
	// liquidity.
	liquid, err := e.token.BalanceOf(ctx, vault.ProtocolHolder)
	if err != nil {
		return decimal.Zero, fmt.Errorf("liquid balance: %w", err)
	}
	if liquid.LessThan(share) {
		return decimal.Zero, ErrInsufficientBalance
	}
	if err := e.token.Transfer(ctx, address, share); err != nil {
		return decimal.Zero, fmt.Errorf("pay compensation: %w", err)
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	now := e.now()

	updated := cs.compEventCopy(event)
	updated.PaidAmount = updated.PaidAmount.Add(share)
	updated.ClaimCount++

	cs.claims = append(cs.claims, &models.CompensationClaim{
		EventID: event.ID,
		Address: address,
		Amount:  share,
	})
	cs.ledger.TotalCompensationPaid = cs.ledger.TotalCompensationPaid.Add(share)
	cs.ledger.LastActivityAt = now

	cs.journalEvent(now, models.EventCompensationPaid, address, map[string]any{
		"compensation_id": event.ID,
		"amount":          share.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return decimal.Zero, err
	}
	if e.logger != nil {
		e.logger.Info("compensation paid",
			zap.String("address", address),
			zap.Uint64("compensation_id", event.ID),
			zap.String("amount", share.String()),
		)
	}
	return share, nil
}

// EndCompensationPeriod closes the active event after the claim window and
// re-seeds the unclaimed remainder, then normal operation resumes.
func (e *Engine) EndCompensationPeriod(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	event := e.st.activeCompEvent()
	if event == nil {
		return ErrNoActiveCompensation
	}
	now := e.now()
	if now.Sub(event.OpenedAt) < e.params.ClaimWindow {
		return ErrClaimWindowOpen
	}

	unclaimed := event.PoolAmount.Sub(event.PaidAmount)
	if unclaimed.Sign() > 0 {
		if err := e.vault.Supply(ctx, unclaimed); err != nil {
			return fmt.Errorf("re-seed unclaimed: %w", err)
		}
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++

	updated := cs.compEventCopy(event)
	updated.Closed = true
	updated.ClosedAt = &now

	cs.ledger.SeedBalance = cs.ledger.SeedBalance.Add(unclaimed)
	cs.ledger.CompensationActive = false
	cs.ledger.ActiveCompensationID = 0

	cs.journalEvent(now, models.EventCompensationEnded, normalizeAddress(caller), map[string]any{
		"compensation_id": event.ID,
		"paid":            event.PaidAmount.String(),
		"reseeded":        unclaimed.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Info("compensation period ended",
			zap.Uint64("compensation_id", event.ID),
			zap.String("reseeded", unclaimed.String()),
		)
	}
	return nil
}

// ClaimableCompensation reports what a user would receive from the active
// event, zero when ineligible.
func (e *Engine) ClaimableCompensation(address string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.claimableCompensation(normalizeAddress(address))
}

func (e *Engine) claimableCompensation(address string) decimal.Decimal {
	event := e.st.activeCompEvent()
	if event == nil {
		return decimal.Zero
	}
	if e.st.hasClaimed(event.ID, address) {
		return decimal.Zero
	}
	pos := e.st.user(address)
	if pos == nil || pos.Principal.Sign() <= 0 || pos.LastActivitySeq >= event.TriggerSeq {
		return decimal.Zero
	}
	return mulDivFloor(event.PoolAmount, pos.Principal, event.SnapshotPrincipal)
}
