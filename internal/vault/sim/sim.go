// Package sim provides an in-memory vault and token for dev runs and for
// tests that need to drive yield accrual and liquidity stress directly.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"seedpool/internal/vault"
)

// Sim implements both vault.Vault and vault.Token against in-memory
// balances. Accrue simulates external yield; HaircutBps simulates a vault
// short-paying withdrawals.
type Sim struct {
	mu sync.Mutex

	vaultBalance decimal.Decimal
	balances     map[string]decimal.Decimal

	// haircutBps shorts every withdrawal by this many basis points.
	haircutBps int64
}

func New() *Sim {
	return &Sim{
		vaultBalance: decimal.Zero,
		balances:     map[string]decimal.Decimal{},
	}
}

// Fund credits a holder's liquid balance, minting out of thin air.
func (s *Sim) Fund(holder string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[holder] = s.balance(holder).Add(amount)
}

// Accrue adds external yield to the vault position.
func (s *Sim) Accrue(amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaultBalance = s.vaultBalance.Add(amount)
}

// SetHaircutBps makes subsequent withdrawals pay out short by bps.
func (s *Sim) SetHaircutBps(bps int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haircutBps = bps
}

func (s *Sim) balance(holder string) decimal.Decimal {
	if b, ok := s.balances[holder]; ok {
		return b
	}
	return decimal.Zero
}

// --- vault.Vault -------------------------------------------------------

func (s *Sim) Supply(_ context.Context, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount.IsNegative() {
		return fmt.Errorf("sim: negative supply")
	}
	held := s.balance(vault.ProtocolHolder)
	if held.LessThan(amount) {
		return fmt.Errorf("sim: supply %s exceeds liquid balance %s", amount, held)
	}
	s.balances[vault.ProtocolHolder] = held.Sub(amount)
	s.vaultBalance = s.vaultBalance.Add(amount)
	return nil
}

func (s *Sim) Withdraw(_ context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("sim: negative withdraw")
	}
	available := amount
	if s.vaultBalance.LessThan(available) {
		available = s.vaultBalance
	}
	if s.haircutBps > 0 {
		cut := available.Mul(decimal.NewFromInt(s.haircutBps)).Div(decimal.NewFromInt(10000)).Floor()
		available = available.Sub(cut)
	}
	s.vaultBalance = s.vaultBalance.Sub(available)
	s.balances[vault.ProtocolHolder] = s.balance(vault.ProtocolHolder).Add(available)
	return available, nil
}

func (s *Sim) Balance(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vaultBalance, nil
}

// --- vault.Token -------------------------------------------------------

func (s *Sim) TransferFrom(_ context.Context, from string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := s.balance(from)
	if held.LessThan(amount) {
		return fmt.Errorf("sim: transfer-from %s exceeds balance %s of %s", amount, held, from)
	}
	s.balances[from] = held.Sub(amount)
	s.balances[vault.ProtocolHolder] = s.balance(vault.ProtocolHolder).Add(amount)
	return nil
}

func (s *Sim) Transfer(_ context.Context, to string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := s.balance(vault.ProtocolHolder)
	if held.LessThan(amount) {
		return fmt.Errorf("sim: transfer %s exceeds protocol balance %s", amount, held)
	}
	s.balances[vault.ProtocolHolder] = held.Sub(amount)
	s.balances[to] = s.balance(to).Add(amount)
	return nil
}

func (s *Sim) BalanceOf(_ context.Context, holder string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance(holder), nil
}
