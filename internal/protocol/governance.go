package protocol

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"seedpool/internal/config"
	"seedpool/internal/models"
)

// AddTrigger registers a trigger id in the registry. Re-adding a removed id
// reactivates it; re-adding an active one fails.
func (e *Engine) AddTrigger(ctx context.Context, caller, id, description string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidTriggerID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if existing := e.st.triggers[id]; existing != nil && existing.Active {
		return ErrTriggerExists
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	now := e.now()
	trigger := &models.Trigger{ID: id, Description: description, Active: true}
	if existing := e.st.triggers[id]; existing != nil {
		copied := *existing
		copied.Active = true
		copied.Description = description
		trigger = &copied
	}
	cs.triggers = append(cs.triggers, trigger)
	cs.journalEvent(now, models.EventTriggerAdded, normalizeAddress(caller), map[string]any{
		"trigger_id": id,
	})
	return e.commit(ctx, cs)
}

// RemoveTrigger marks a registered trigger invalid.
func (e *Engine) RemoveTrigger(ctx context.Context, caller, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidTriggerID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	existing := e.st.triggers[id]
	if existing == nil || !existing.Active {
		return ErrTriggerNotFound
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	copied := *existing
	copied.Active = false
	cs.triggers = append(cs.triggers, &copied)
	cs.journalEvent(e.now(), models.EventTriggerRemoved, normalizeAddress(caller), map[string]any{
		"trigger_id": id,
	})
	return e.commit(ctx, cs)
}

// checkTriggerable holds the validity and cooldown preconditions shared by
// proposals and the emergency path.
func (e *Engine) checkTriggerable(id string, now time.Time) error {
	trigger := e.st.triggers[id]
	if trigger == nil || !trigger.Active {
		return ErrTriggerNotFound
	}
	led := &e.st.ledger
	if led.DormancyActivated {
		return ErrDormancyActive
	}
	if led.CompensationActive {
		return ErrCompensationActive
	}
	if led.LastCompensationAt != nil && now.Sub(*led.LastCompensationAt) < e.params.TriggerCooldown {
		return ErrCooldownActive
	}
	return nil
}

// ProposeTrigger opens the two-phase cycle. Deposits are halted for the
// whole possible life of the proposal plus a buffer so observing a proposal
// cannot be used to deposit ahead of a payout snapshot.
func (e *Engine) ProposeTrigger(ctx context.Context, caller, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidTriggerID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOracle(caller); err != nil {
		return err
	}
	now := e.now()
	if err := e.checkTriggerable(id, now); err != nil {
		return err
	}
	if e.st.proposal != nil && now.Sub(e.st.proposal.ProposedAt) <= e.params.ConfirmWindow {
		return ErrProposalPending
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.proposal = &models.PendingProposal{TriggerID: id, ProposedAt: now}
	haltUntil := now.Add(e.params.ConfirmWindow + e.params.HaltBuffer)
	cs.ledger.DepositHaltUntil = &haltUntil

	cs.journalEvent(now, models.EventTriggerProposed, normalizeAddress(caller), map[string]any{
		"trigger_id": id,
	})
	cs.journalEvent(now, models.EventDepositsHalted, normalizeAddress(caller), map[string]any{
		"until": haltUntil.Format(time.RFC3339),
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Warn("trigger proposed",
			zap.String("trigger_id", id),
			zap.Time("halt_until", haltUntil),
		)
	}
	return nil
}

// ConfirmTrigger completes the cycle and executes compensation. The minimum
// delay gives the multisig time to cancel a bad-faith proposal; past the
// window the proposal is stale and must be re-proposed.
func (e *Engine) ConfirmTrigger(ctx context.Context, caller string) (*models.CompensationEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMultisig(caller); err != nil {
		return nil, err
	}
	proposal := e.st.proposal
	if proposal == nil {
		return nil, ErrNoProposal
	}
	now := e.now()
	elapsed := now.Sub(proposal.ProposedAt)
	if elapsed < e.params.ConfirmMinDelay {
		return nil, ErrConfirmTooEarly
	}
	if elapsed > e.params.ConfirmWindow {
		return nil, ErrProposalExpired
	}
	if err := e.checkTriggerable(proposal.TriggerID, now); err != nil {
		return nil, err
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.clearProposal = true
	cs.journalEvent(now, models.EventTriggerConfirmed, normalizeAddress(caller), map[string]any{
		"trigger_id": proposal.TriggerID,
	})

	event, err := e.executeCompensation(ctx, cs, proposal.TriggerID, now)
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, cs); err != nil {
		return nil, err
	}
	if e.logger != nil {
		e.logger.Warn("trigger confirmed, compensation open",
			zap.String("trigger_id", proposal.TriggerID),
			zap.Uint64("compensation_id", event.ID),
			zap.String("pool", event.PoolAmount.String()),
		)
	}
	return event, nil
}

// CancelTrigger clears the pending proposal and lifts the deposit halt
// immediately.
func (e *Engine) CancelTrigger(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdminOrMultisig(caller); err != nil {
		return err
	}
	if e.st.proposal == nil {
		return ErrNoProposal
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.clearProposal = true
	cs.ledger.DepositHaltUntil = nil
	now := e.now()
	cs.journalEvent(now, models.EventTriggerCancelled, normalizeAddress(caller), map[string]any{
		"trigger_id": e.st.proposal.TriggerID,
	})
	cs.journalEvent(now, models.EventDepositsResumed, normalizeAddress(caller), nil)
	return e.commit(ctx, cs)
}

// EmergencyTrigger bypasses the propose/confirm cycle. It remains subject to
// the validity and cooldown checks and is gated behind configuration; a
// production deployment keeps it disabled.
func (e *Engine) EmergencyTrigger(ctx context.Context, caller, id string) (*models.CompensationEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidTriggerID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if !e.params.EmergencyTriggers {
		return nil, ErrEmergencyDisabled
	}
	now := e.now()
	if err := e.checkTriggerable(id, now); err != nil {
		return nil, err
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.journalEvent(now, models.EventTriggerConfirmed, normalizeAddress(caller), map[string]any{
		"trigger_id": id,
		"emergency":  true,
	})
	event, err := e.executeCompensation(ctx, cs, id, now)
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, cs); err != nil {
		return nil, err
	}
	if e.logger != nil {
		e.logger.Warn("emergency trigger executed",
			zap.String("trigger_id", id),
			zap.Uint64("compensation_id", event.ID),
		)
	}
	return event, nil
}

// UpdateYieldSplit replaces the three-way yield split.
func (e *Engine) UpdateYieldSplit(ctx context.Context, caller string, userBps, seedBps, treasuryBps int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := config.ValidateSplit(userBps, seedBps, treasuryBps); err != nil {
		return ErrConfigOutOfRange
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.journalEvent(e.now(), models.EventConfigUpdated, normalizeAddress(caller), map[string]any{
		"user_yield_bps":     userBps,
		"seed_yield_bps":     seedBps,
		"treasury_yield_bps": treasuryBps,
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.params.UserYieldBps = userBps
	e.params.SeedYieldBps = seedBps
	e.params.TreasuryYieldBps = treasuryBps
	return nil
}

// UpdateMaxCompensationBps replaces the per-event compensation share cap.
func (e *Engine) UpdateMaxCompensationBps(ctx context.Context, caller string, bps int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := config.ValidateMaxCompensationBps(bps); err != nil {
		return ErrConfigOutOfRange
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.journalEvent(e.now(), models.EventConfigUpdated, normalizeAddress(caller), map[string]any{
		"max_compensation_bps": bps,
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.params.MaxCompensationBps = bps
	return nil
}

// UpdateCooldown replaces the minimum spacing between trigger events.
func (e *Engine) UpdateCooldown(ctx context.Context, caller string, cooldown time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := config.ValidateCooldown(cooldown); err != nil {
		return ErrConfigOutOfRange
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.journalEvent(e.now(), models.EventConfigUpdated, normalizeAddress(caller), map[string]any{
		"trigger_cooldown": cooldown.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.params.TriggerCooldown = cooldown
	return nil
}

// UpdateRoles replaces the oracle and multisig identities.
func (e *Engine) UpdateRoles(ctx context.Context, caller, oracle, multisig string) error {
	oracle = normalizeAddress(oracle)
	multisig = normalizeAddress(multisig)
	if oracle == "" || multisig == "" {
		return ErrInvalidAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.journalEvent(e.now(), models.EventGovernanceUpdated, normalizeAddress(caller), map[string]any{
		"oracle":   oracle,
		"multisig": multisig,
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	e.roles.Oracle = oracle
	e.roles.Multisig = multisig
	return nil
}
