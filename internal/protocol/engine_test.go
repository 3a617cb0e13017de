package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seedpool/internal/config"
	"seedpool/internal/events"
	"seedpool/internal/vault/sim"
)

const (
	admin    = "0xadmin"
	oracle   = "0xoracle"
	multisig = "0xmultisig"
	alice    = "0xalice"
	bob      = "0xbob"
	carol    = "0xcarol"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func testParams() config.ProtocolConfig {
	return config.ProtocolConfig{
		Policy:             config.PolicyYieldSplit,
		MinDeposit:         dec(10),
		UserYieldBps:       8000,
		SeedYieldBps:       1000,
		TreasuryYieldBps:   1000,
		DepositSeedBps:     100,
		MaxCompensationBps: 5000,
		SlippageBps:        500,
		TriggerCooldown:    168 * time.Hour,
		ConfirmMinDelay:    time.Hour,
		ConfirmWindow:      24 * time.Hour,
		HaltBuffer:         time.Hour,
		ClaimWindow:        72 * time.Hour,
		DormancyThreshold:  4320 * time.Hour,
		DormancyCapBps:     1000,
	}
}

type fixture struct {
	engine *Engine
	sim    *sim.Sim
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, params config.ProtocolConfig) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := sim.New()
	e := NewEngine(Options{
		Clock:  clock,
		Vault:  s,
		Token:  s,
		Hub:    events.NewHub(zap.NewNop()),
		Logger: zap.NewNop(),
		Params: params,
		Roles:  config.RolesConfig{Admin: admin, Oracle: oracle, Multisig: multisig},
	})
	return &fixture{engine: e, sim: s, clock: clock}
}

// deposit funds the holder first so the transfer-from succeeds.
func (f *fixture) deposit(t *testing.T, address string, amount int64) {
	t.Helper()
	f.sim.Fund(address, dec(amount))
	if err := f.engine.Deposit(context.Background(), address, dec(amount)); err != nil {
		t.Fatalf("deposit %s by %s: %v", dec(amount), address, err)
	}
}

func mustEqual(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s = %s, want %s", label, got, want)
	}
}

// checkConservation verifies the ledger never accounts for more than the
// vault actually holds.
func checkConservation(t *testing.T, f *fixture) {
	t.Helper()
	balance, err := f.sim.Balance(context.Background())
	if err != nil {
		t.Fatalf("vault balance: %v", err)
	}
	f.engine.mu.RLock()
	tracked := trackedBalance(&f.engine.st.ledger)
	f.engine.mu.RUnlock()
	if tracked.GreaterThan(balance) {
		t.Fatalf("tracked balance %s exceeds vault balance %s", tracked, balance)
	}
}
