package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"seedpool/internal/models"
)

// openCompensation runs the full two-phase cycle: alice holds 6000 of
// 10000 principal, bob 4000, and the confirmed event pays out half of the
// 100-unit seed, a pool of 50.
func openCompensation(t *testing.T, f *fixture) *models.CompensationEvent {
	t.Helper()
	ctx := context.Background()

	f.deposit(t, alice, 6000)
	f.deposit(t, bob, 4000)
	f.sim.Accrue(dec(1000))
	if err := f.engine.AddTrigger(ctx, admin, triggerID, "vault exploit"); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	event, err := f.engine.ConfirmTrigger(ctx, multisig)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return event
}

func TestCompensationLifecycle(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	event := openCompensation(t, f)
	mustEqual(t, event.PoolAmount, dec(50), "pool amount")
	mustEqual(t, event.SnapshotPrincipal, dec(10000), "snapshot principal")

	// The period freezes the account paths.
	f.sim.Fund(carol, dec(100))
	if err := f.engine.Deposit(ctx, carol, dec(100)); !errors.Is(err, ErrCompensationActive) {
		t.Fatalf("deposit during period: %v", err)
	}
	if err := f.engine.Withdraw(ctx, alice, dec(100)); !errors.Is(err, ErrCompensationActive) {
		t.Fatalf("withdraw during period: %v", err)
	}

	mustEqual(t, f.engine.ClaimableCompensation(alice), dec(30), "alice claimable")
	mustEqual(t, f.engine.ClaimableCompensation(bob), dec(20), "bob claimable")

	paid, err := f.engine.ClaimCompensation(ctx, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	mustEqual(t, paid, dec(30), "alice payout")
	if _, err := f.engine.ClaimCompensation(ctx, alice); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("double claim: %v", err)
	}
	if _, err := f.engine.ClaimCompensation(ctx, carol); !errors.Is(err, ErrInsufficientPrincipal) {
		t.Fatalf("stranger claim: %v", err)
	}

	// Bob never claims; his share re-seeds at close.
	if err := f.engine.EndCompensationPeriod(ctx, admin); !errors.Is(err, ErrClaimWindowOpen) {
		t.Fatalf("early close: %v", err)
	}
	f.clock.Advance(72 * time.Hour)
	if err := f.engine.EndCompensationPeriod(ctx, alice); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("non-admin close: %v", err)
	}
	if err := f.engine.EndCompensationPeriod(ctx, admin); err != nil {
		t.Fatalf("close: %v", err)
	}

	st := f.engine.Status(ctx)
	if st.CompensationActive {
		t.Fatal("period should be closed")
	}
	// Seed held 50 after funding the pool; the unclaimed 20 returns.
	mustEqual(t, st.SeedBalance, dec(70), "seed after re-seed")
	mustEqual(t, st.TotalCompensationPaid, dec(30), "total paid")

	closed := f.engine.CompensationEventByID(event.ID)
	if closed == nil || !closed.Closed || closed.ClaimCount != 1 {
		t.Fatalf("closed event = %+v", closed)
	}
	mustEqual(t, closed.PaidAmount, dec(30), "event paid amount")

	// Normal operation resumes.
	if err := f.engine.Deposit(ctx, carol, dec(100)); err != nil {
		t.Fatalf("deposit after close: %v", err)
	}
	checkConservation(t, f)
}

func TestClaimWithoutActivePeriod(t *testing.T) {
	f := newFixture(t, testParams())
	f.deposit(t, alice, 1000)

	if _, err := f.engine.ClaimCompensation(context.Background(), alice); !errors.Is(err, ErrNoActiveCompensation) {
		t.Fatalf("claim without period: %v", err)
	}
	mustEqual(t, f.engine.ClaimableCompensation(alice), decimal.Zero, "claimable without period")
}

// A position whose last deposit sequence is at or past the trigger sequence
// is excluded from the payout.
func TestClaimFrontRunExclusion(t *testing.T) {
	f := newFixture(t, testParams())
	event := openCompensation(t, f)

	f.engine.mu.Lock()
	f.engine.st.users[bob].LastActivitySeq = event.TriggerSeq
	f.engine.mu.Unlock()

	if _, err := f.engine.ClaimCompensation(context.Background(), bob); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("front-run claim: %v", err)
	}
	mustEqual(t, f.engine.ClaimableCompensation(bob), decimal.Zero, "front-run claimable")
}

func TestClaimShareRoundsToZero(t *testing.T) {
	params := testParams()
	params.MinDeposit = dec(1)
	f := newFixture(t, params)
	ctx := context.Background()

	f.deposit(t, alice, 9999)
	f.deposit(t, carol, 1)
	f.sim.Accrue(dec(1000))
	if err := f.engine.AddTrigger(ctx, admin, triggerID, ""); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if _, err := f.engine.ConfirmTrigger(ctx, multisig); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// floor(50 * 1 / 10000) = 0.
	if _, err := f.engine.ClaimCompensation(ctx, carol); !errors.Is(err, ErrShareRoundsToZero) {
		t.Fatalf("dust claim: %v", err)
	}
}

func stageFundingRun(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.deposit(t, alice, 10000)
	f.sim.Accrue(dec(10000))
	if err := f.engine.AddTrigger(ctx, admin, triggerID, ""); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
}

func TestCompensationFundingSlippage(t *testing.T) {
	ctx := context.Background()

	// 10% haircut against a 5% tolerance aborts the whole confirm.
	f := newFixture(t, testParams())
	stageFundingRun(t, f)
	f.sim.SetHaircutBps(1000)
	if _, err := f.engine.ConfirmTrigger(ctx, multisig); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("confirm under heavy haircut: %v", err)
	}
	if f.engine.Status(ctx).CompensationActive {
		t.Fatal("aborted confirm must not open a period")
	}

	// 1% haircut is inside tolerance; the pool is what actually arrived.
	f = newFixture(t, testParams())
	stageFundingRun(t, f)
	f.sim.SetHaircutBps(100)
	event, err := f.engine.ConfirmTrigger(ctx, multisig)
	if err != nil {
		t.Fatalf("confirm under light haircut: %v", err)
	}
	mustEqual(t, event.PoolAmount, dec(495), "pool after haircut")
}
