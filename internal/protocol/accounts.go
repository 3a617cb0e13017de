package protocol

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seedpool/internal/config"
	"seedpool/internal/models"
)

// trackedBalance is the portion of the vault position the ledger already
// accounts for; anything above it is unrecognized yield.
func trackedBalance(led *models.LedgerState) decimal.Decimal {
	return led.TotalPrincipal.
		Add(led.SeedBalance).
		Add(led.TreasuryBalance).
		Add(led.YieldPoolBalance).
		Add(led.UserYieldOutstanding)
}

func (e *Engine) pendingYield(ctx context.Context, led *models.LedgerState) (decimal.Decimal, error) {
	balance, err := e.vault.Balance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("vault balance: %w", err)
	}
	return balance.Sub(trackedBalance(led)), nil
}

// harvestInto detects accrued yield and allocates it on the changeset
// ledger. A non-positive pending yield is a silent no-op; this is the pass
// deposit, withdraw and claim run first so later depositors do not dilute
// yield already owed.
func (e *Engine) harvestInto(ctx context.Context, cs *changeset, actor string) (decimal.Decimal, error) {
	pending, err := e.pendingYield(ctx, cs.ledger)
	if err != nil {
		return decimal.Zero, err
	}
	if pending.Sign() <= 0 {
		return decimal.Zero, nil
	}

	alloc := e.policy.SplitYield(pending, e.params)
	led := cs.ledger
	led.TotalUserYieldDistributed = led.TotalUserYieldDistributed.Add(alloc.User)
	led.UserYieldOutstanding = led.UserYieldOutstanding.Add(alloc.User)
	led.SeedBalance = led.SeedBalance.Add(alloc.Seed)
	led.TotalSeedYieldReceived = led.TotalSeedYieldReceived.Add(alloc.Seed)
	led.TreasuryBalance = led.TreasuryBalance.Add(alloc.Treasury)
	led.TotalTreasuryYieldReceived = led.TotalTreasuryYieldReceived.Add(alloc.Treasury)
	led.YieldPoolBalance = led.YieldPoolBalance.Add(alloc.Pool)

	cs.journalEvent(e.now(), models.EventYieldHarvested, actor, map[string]any{
		"amount":   pending.String(),
		"user":     alloc.User.String(),
		"seed":     alloc.Seed.String(),
		"treasury": alloc.Treasury.String(),
		"pool":     alloc.Pool.String(),
	})
	return pending, nil
}

// Deposit moves amount from the user into the vault and credits principal.
func (e *Engine) Deposit(ctx context.Context, address string, amount decimal.Decimal) error {
	address = normalizeAddress(address)
	if !validAddress(address) {
		return ErrInvalidAddress
	}
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	led := &e.st.ledger
	if led.DormancyActivated {
		return ErrDormancyActive
	}
	if led.CompensationActive {
		return ErrCompensationActive
	}
	if led.DepositHaltUntil != nil && e.now().Before(*led.DepositHaltUntil) {
		return ErrDepositsHalted
	}
	if amount.LessThan(e.params.MinDeposit) {
		return ErrDepositTooSmall
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	if _, err := e.harvestInto(ctx, cs, address); err != nil {
		return err
	}

	principalAdd, seedAdd := e.policy.SplitDeposit(amount, e.params)

	if err := e.token.TransferFrom(ctx, address, amount); err != nil {
		return fmt.Errorf("collect deposit: %w", err)
	}
	if err := e.vault.Supply(ctx, amount); err != nil {
		return fmt.Errorf("vault supply: %w", err)
	}

	now := e.now()
	pos := cs.userCopy(e.st, address)
	pos.Principal = pos.Principal.Add(principalAdd)
	pos.LastActivitySeq = cs.ledger.Seq

	cs.ledger.TotalPrincipal = cs.ledger.TotalPrincipal.Add(principalAdd)
	cs.ledger.SeedBalance = cs.ledger.SeedBalance.Add(seedAdd)
	cs.ledger.LastActivityAt = now

	cs.journalEvent(now, models.EventDeposit, address, map[string]any{
		"amount":    amount.String(),
		"principal": principalAdd.String(),
		"seed_cut":  seedAdd.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Info("deposit",
			zap.String("address", address),
			zap.String("amount", amount.String()),
			zap.Uint64("seq", cs.ledger.Seq),
		)
	}
	return nil
}

// Withdraw removes principal. The ledger is debited by the requested amount
// even though the received amount is what gets transferred, so a vault
// shortfall aborts the whole operation instead of silently short-paying.
func (e *Engine) Withdraw(ctx context.Context, address string, amount decimal.Decimal) error {
	address = normalizeAddress(address)
	if !validAddress(address) {
		return ErrInvalidAddress
	}
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	led := &e.st.ledger
	if led.DormancyActivated {
		return ErrDormancyActive
	}
	if led.CompensationActive {
		return ErrCompensationActive
	}
	pos := e.st.user(address)
	if pos == nil || pos.Principal.LessThan(amount) {
		return ErrInsufficientPrincipal
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	if _, err := e.harvestInto(ctx, cs, address); err != nil {
		return err
	}

	received, err := e.vault.Withdraw(ctx, amount)
	if err != nil {
		return fmt.Errorf("vault withdraw: %w", err)
	}
	if received.LessThan(amount) {
		return ErrInsufficientLiquidity
	}
	if err := e.token.Transfer(ctx, address, received); err != nil {
		return fmt.Errorf("pay withdrawal: %w", err)
	}

	now := e.now()
	copied := cs.userCopy(e.st, address)
	copied.Principal = copied.Principal.Sub(amount)
	cs.ledger.TotalPrincipal = cs.ledger.TotalPrincipal.Sub(amount)
	cs.ledger.LastActivityAt = now

	cs.journalEvent(now, models.EventWithdraw, address, map[string]any{
		"amount":   amount.String(),
		"received": received.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Info("withdraw",
			zap.String("address", address),
			zap.String("amount", amount.String()),
		)
	}
	return nil
}

// HarvestYield is the externally callable harvest. Unlike the internal pass
// it fails when there is nothing to allocate, to discourage spam calls.
func (e *Engine) HarvestYield(ctx context.Context, caller string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.ledger.DormancyActivated {
		return decimal.Zero, ErrDormancyActive
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	harvested, err := e.harvestInto(ctx, cs, normalizeAddress(caller))
	if err != nil {
		return decimal.Zero, err
	}
	if harvested.Sign() <= 0 {
		return decimal.Zero, ErrNothingToHarvest
	}
	if err := e.commit(ctx, cs); err != nil {
		return decimal.Zero, err
	}
	if e.logger != nil {
		e.logger.Info("yield harvested", zap.String("amount", harvested.String()))
	}
	return harvested, nil
}

// claimableYield recomputes a user's share from current principal, not a
// time-weighted accrual. A deposit landing just before a harvest therefore
// earns a share of yield accrued before it; that is the documented model,
// not a defect.
func claimableYield(led *models.LedgerState, pos *models.UserPosition) decimal.Decimal {
	if pos == nil || pos.Principal.Sign() <= 0 || led.TotalPrincipal.Sign() <= 0 {
		return decimal.Zero
	}
	share := mulDivFloor(led.TotalUserYieldDistributed, pos.Principal, led.TotalPrincipal)
	claimable := share.Sub(pos.YieldClaimed)
	if claimable.Sign() < 0 {
		return decimal.Zero
	}
	return claimable
}

// GetClaimableYield reports the user's currently claimable yield.
func (e *Engine) GetClaimableYield(address string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return claimableYield(&e.st.ledger, e.st.user(normalizeAddress(address)))
}

// ClaimYield pays out the user's accumulated yield share.
func (e *Engine) ClaimYield(ctx context.Context, address string) (decimal.Decimal, error) {
	address = normalizeAddress(address)
	if !validAddress(address) {
		return decimal.Zero, ErrInvalidAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.ledger.DormancyActivated {
		return decimal.Zero, ErrDormancyActive
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	if _, err := e.harvestInto(ctx, cs, address); err != nil {
		return decimal.Zero, err
	}

	pos := cs.userCopy(e.st, address)
	claimable := claimableYield(cs.ledger, pos)
	if claimable.Sign() <= 0 {
		return decimal.Zero, ErrNoClaimableYield
	}

	received, err := e.vault.Withdraw(ctx, claimable)
	if err != nil {
		return decimal.Zero, fmt.Errorf("vault withdraw: %w", err)
	}
	if received.LessThan(claimable) {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	if err := e.token.Transfer(ctx, address, received); err != nil {
		return decimal.Zero, fmt.Errorf("pay yield: %w", err)
	}

	now := e.now()
	pos.YieldClaimed = pos.YieldClaimed.Add(received)
	cs.ledger.UserYieldOutstanding = cs.ledger.UserYieldOutstanding.Sub(received)
	cs.ledger.LastActivityAt = now

	cs.journalEvent(now, models.EventYieldClaimed, address, map[string]any{
		"amount": received.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return decimal.Zero, err
	}
	if e.logger != nil {
		e.logger.Info("yield claimed",
			zap.String("address", address),
			zap.String("amount", received.String()),
		)
	}
	return received, nil
}

// DistributeYieldPool moves the accrued yield pool to users under the
// deposit_split policy.
func (e *Engine) DistributeYieldPool(ctx context.Context, caller string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return decimal.Zero, err
	}
	if e.policy.Name() != config.PolicyDepositSplit {
		return decimal.Zero, ErrWrongPolicy
	}
	if e.st.ledger.DormancyActivated {
		return decimal.Zero, ErrDormancyActive
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	if _, err := e.harvestInto(ctx, cs, normalizeAddress(caller)); err != nil {
		return decimal.Zero, err
	}

	pool := cs.ledger.YieldPoolBalance
	if pool.Sign() <= 0 {
		return decimal.Zero, ErrNothingToDistribute
	}
	cs.ledger.TotalUserYieldDistributed = cs.ledger.TotalUserYieldDistributed.Add(pool)
	cs.ledger.UserYieldOutstanding = cs.ledger.UserYieldOutstanding.Add(pool)
	cs.ledger.YieldPoolBalance = decimal.Zero

	cs.journalEvent(e.now(), models.EventYieldDistributed, normalizeAddress(caller), map[string]any{
		"amount": pool.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return decimal.Zero, err
	}
	return pool, nil
}

// WithdrawTreasury pays accumulated treasury share out of the vault.
func (e *Engine) WithdrawTreasury(ctx context.Context, caller, recipient string, amount decimal.Decimal) error {
	recipient = normalizeAddress(recipient)
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	led := &e.st.ledger
	if led.DormancyActivated {
		return ErrDormancyActive
	}
	if led.CompensationActive {
		return ErrCompensationActive
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	if _, err := e.harvestInto(ctx, cs, normalizeAddress(caller)); err != nil {
		return err
	}
	if cs.ledger.TreasuryBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	received, err := e.vault.Withdraw(ctx, amount)
	if err != nil {
		return fmt.Errorf("vault withdraw: %w", err)
	}
	if received.LessThan(amount) {
		return ErrInsufficientLiquidity
	}
	if err := e.token.Transfer(ctx, recipient, received); err != nil {
		return fmt.Errorf("pay treasury: %w", err)
	}

	cs.ledger.TreasuryBalance = cs.ledger.TreasuryBalance.Sub(amount)
	cs.journalEvent(e.now(), models.EventTreasuryWithdrawn, normalizeAddress(caller), map[string]any{
		"recipient": recipient,
		"amount":    amount.String(),
	})
	return e.commit(ctx, cs)
}
