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

// IsDormant reports whether the protocol has seen no activity for the
// dormancy threshold.
func (e *Engine) IsDormant() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isDormant(e.now())
}

func (e *Engine) isDormant(now time.Time) bool {
	return now.Sub(e.st.ledger.LastActivityAt) >= e.params.DormancyThreshold
}

// ActivateDormancy pulls the entire vault position back to the liquid
// balance and permanently disables deposits and the yield and compensation
// paths. Callable by anyone once the threshold passes; a second call is a
// no-op, not an error.
func (e *Engine) ActivateDormancy(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.ledger.DormancyActivated {
		return nil
	}
	now := e.now()
	if !e.isDormant(now) {
		return ErrDormancyNotReached
	}

	expected, err := e.vault.Balance(ctx)
	if err != nil {
		return fmt.Errorf("vault balance: %w", err)
	}
	received := decimal.Zero
	if expected.Sign() > 0 {
		received, err = e.vault.Withdraw(ctx, expected)
		if err != nil {
			return fmt.Errorf("vault withdraw: %w", err)
		}
		minReceived := bpsShare(expected, 10000-e.params.SlippageBps)
		if received.LessThan(minReceived) {
			return ErrInsufficientLiquidity
		}
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	cs.ledger.DormancyActivated = true
	cs.journalEvent(now, models.EventDormancyActivated, normalizeAddress(caller), map[string]any{
		"expected": expected.String(),
		"received": received.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Warn("dormancy activated",
			zap.String("recovered", received.String()),
		)
	}
	return nil
}

// DormancyWithdraw pays a user's pro-rata share of the recovered liquid
// balance, once. The per-call cap keeps one large holder from draining the
// balance ahead of everyone else; a holder above the cap forfeits the
// excess, which is the documented first-come-first-served residual risk.
func (e *Engine) DormancyWithdraw(ctx context.Context, address string) (decimal.Decimal, error) {
	address = normalizeAddress(address)
	if !validAddress(address) {
		return decimal.Zero, ErrInvalidAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.ledger.DormancyActivated {
		return decimal.Zero, ErrDormancyInactive
	}
	pos := e.st.user(address)
	if pos == nil || pos.Principal.Sign() <= 0 {
		return decimal.Zero, ErrInsufficientPrincipal
	}
	if pos.DormancyWithdrawn {
		return decimal.Zero, ErrAlreadyWithdrawn
	}

	liquid, err := e.token.BalanceOf(ctx, vault.ProtocolHolder)
	if err != nil {
		return decimal.Zero, fmt.Errorf("liquid balance: %w", err)
	}
	share := mulDivFloor(liquid, pos.Principal, e.st.ledger.TotalPrincipal)
	callCap := bpsShare(liquid, e.params.DormancyCapBps)
	payout := share
	if payout.GreaterThan(callCap) {
		payout = callCap
	}
	if payout.Sign() <= 0 {
		return decimal.Zero, ErrShareRoundsToZero
	}
	if err := e.token.Transfer(ctx, address, payout); err != nil {
		return decimal.Zero, fmt.Errorf("pay dormancy share: %w", err)
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	now := e.now()

	copied := cs.userCopy(e.st, address)
	principal := copied.Principal
	copied.Principal = decimal.Zero
	copied.DormancyWithdrawn = true

	cs.ledger.TotalPrincipal = cs.ledger.TotalPrincipal.Sub(principal)
	cs.ledger.DormancyTotalWithdrawn = cs.ledger.DormancyTotalWithdrawn.Add(payout)

	cs.dormancy = append(cs.dormancy, &models.DormancyWithdrawal{
		Address: address,
		Amount:  payout,
	})
	cs.journalEvent(now, models.EventDormancyWithdrawal, address, map[string]any{
		"amount":    payout.String(),
		"principal": principal.String(),
	})
	if err := e.commit(ctx, cs); err != nil {
		return decimal.Zero, err
	}
	if e.logger != nil {
		e.logger.Info("dormancy withdrawal",
			zap.String("address", address),
			zap.String("amount", payout.String()),
		)
	}
	return payout, nil
}

// Heartbeat resets the activity clock so a legitimately quiet protocol does
// not slide into dormancy.
func (e *Engine) Heartbeat(ctx context.Context, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if e.st.ledger.DormancyActivated {
		return ErrDormancyActive
	}

	cs := e.st.newChangeset()
	cs.ledger.Seq++
	now := e.now()
	cs.ledger.LastActivityAt = now
	cs.journalEvent(now, models.EventHeartbeat, normalizeAddress(caller), nil)
	return e.commit(ctx, cs)
}
