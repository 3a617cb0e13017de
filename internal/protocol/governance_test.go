package protocol

import (
	"context"
	"errors"
	"testing"
	"time"
)

const triggerID = "oracle-breach"

// seedTrigger prepares a registered trigger with enough seed behind it for
// a compensation event to fund.
func seedTrigger(t *testing.T, f *fixture) {
	t.Helper()
	f.deposit(t, alice, 1000)
	f.sim.Accrue(dec(1000))
	if err := f.engine.AddTrigger(context.Background(), admin, triggerID, "price feed divergence"); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
}

func TestAddRemoveTrigger(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	if err := f.engine.AddTrigger(ctx, alice, triggerID, ""); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("non-admin add: %v", err)
	}
	if err := f.engine.AddTrigger(ctx, admin, "", ""); !errors.Is(err, ErrInvalidTriggerID) {
		t.Fatalf("empty id: %v", err)
	}
	if err := f.engine.AddTrigger(ctx, admin, triggerID, "first"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.engine.AddTrigger(ctx, admin, triggerID, "again"); !errors.Is(err, ErrTriggerExists) {
		t.Fatalf("duplicate add: %v", err)
	}

	if err := f.engine.RemoveTrigger(ctx, admin, triggerID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.engine.RemoveTrigger(ctx, admin, triggerID); !errors.Is(err, ErrTriggerNotFound) {
		t.Fatalf("double remove: %v", err)
	}

	// Re-adding a removed id reactivates it.
	if err := f.engine.AddTrigger(ctx, admin, triggerID, "back"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	triggers := f.engine.Triggers()
	if len(triggers) != 1 || !triggers[0].Active {
		t.Fatalf("trigger registry = %+v", triggers)
	}
}

func TestProposeRequiresOracleAndRegistry(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if err := f.engine.ProposeTrigger(ctx, alice, triggerID); !errors.Is(err, ErrNotOracle) {
		t.Fatalf("non-oracle propose: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, "unknown"); !errors.Is(err, ErrTriggerNotFound) {
		t.Fatalf("unknown trigger: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); !errors.Is(err, ErrProposalPending) {
		t.Fatalf("second propose: %v", err)
	}
}

func TestProposeHaltsDeposits(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if !f.engine.Status(ctx).DepositsHalted {
		t.Fatal("deposits should be halted after propose")
	}
	f.sim.Fund(bob, dec(100))
	if err := f.engine.Deposit(ctx, bob, dec(100)); !errors.Is(err, ErrDepositsHalted) {
		t.Fatalf("deposit under halt: %v", err)
	}

	if err := f.engine.CancelTrigger(ctx, multisig); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.engine.Status(ctx).DepositsHalted {
		t.Fatal("cancel should lift the halt immediately")
	}
	if err := f.engine.Deposit(ctx, bob, dec(100)); err != nil {
		t.Fatalf("deposit after cancel: %v", err)
	}
}

func TestConfirmTiming(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}

	f.clock.Advance(30 * time.Minute)
	if _, err := f.engine.ConfirmTrigger(ctx, multisig); !errors.Is(err, ErrConfirmTooEarly) {
		t.Fatalf("confirm inside min delay: %v", err)
	}

	f.clock.Advance(90 * time.Minute)
	if _, err := f.engine.ConfirmTrigger(ctx, alice); !errors.Is(err, ErrNotMultisig) {
		t.Fatalf("non-multisig confirm: %v", err)
	}
	event, err := f.engine.ConfirmTrigger(ctx, multisig)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if event == nil || event.ID != 1 {
		t.Fatalf("compensation event = %+v", event)
	}
	if !f.engine.Status(ctx).CompensationActive {
		t.Fatal("compensation should be active after confirm")
	}
}

func TestConfirmExpired(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	f.clock.Advance(25 * time.Hour)
	if _, err := f.engine.ConfirmTrigger(ctx, multisig); !errors.Is(err, ErrProposalExpired) {
		t.Fatalf("stale confirm: %v", err)
	}
	// A stale proposal no longer blocks a fresh one.
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("re-propose over stale: %v", err)
	}
}

func TestConfirmWithoutProposal(t *testing.T) {
	f := newFixture(t, testParams())
	if _, err := f.engine.ConfirmTrigger(context.Background(), multisig); !errors.Is(err, ErrNoProposal) {
		t.Fatalf("confirm without proposal: %v", err)
	}
	if err := f.engine.CancelTrigger(context.Background(), multisig); !errors.Is(err, ErrNoProposal) {
		t.Fatalf("cancel without proposal: %v", err)
	}
}

func TestTriggerCooldown(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if _, err := f.engine.ConfirmTrigger(ctx, multisig); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	f.clock.Advance(72 * time.Hour)
	if err := f.engine.EndCompensationPeriod(ctx, admin); err != nil {
		t.Fatalf("end period: %v", err)
	}

	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("propose inside cooldown: %v", err)
	}
	f.clock.Advance(100 * time.Hour)
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose after cooldown: %v", err)
	}
}

func TestEmergencyTriggerGated(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if _, err := f.engine.EmergencyTrigger(ctx, admin, triggerID); !errors.Is(err, ErrEmergencyDisabled) {
		t.Fatalf("disabled emergency: %v", err)
	}

	params := testParams()
	params.EmergencyTriggers = true
	f = newFixture(t, params)
	seedTrigger(t, f)

	if _, err := f.engine.EmergencyTrigger(ctx, oracle, triggerID); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("non-admin emergency: %v", err)
	}
	event, err := f.engine.EmergencyTrigger(ctx, admin, triggerID)
	if err != nil {
		t.Fatalf("emergency: %v", err)
	}
	if event == nil || !f.engine.Status(ctx).CompensationActive {
		t.Fatal("emergency trigger should open a compensation period")
	}
}

func TestConfigUpdates(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	if err := f.engine.UpdateYieldSplit(ctx, alice, 7000, 2000, 1000); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("non-admin split update: %v", err)
	}
	if err := f.engine.UpdateYieldSplit(ctx, admin, 7000, 2000, 2000); !errors.Is(err, ErrConfigOutOfRange) {
		t.Fatalf("split over 10000: %v", err)
	}
	if err := f.engine.UpdateYieldSplit(ctx, admin, 7000, 2000, 1000); err != nil {
		t.Fatalf("split update: %v", err)
	}
	if p := f.engine.Params(); p.UserYieldBps != 7000 || p.SeedYieldBps != 2000 {
		t.Fatalf("params after update = %+v", p)
	}

	if err := f.engine.UpdateMaxCompensationBps(ctx, admin, 6000); !errors.Is(err, ErrConfigOutOfRange) {
		t.Fatalf("compensation share over cap: %v", err)
	}
	if err := f.engine.UpdateMaxCompensationBps(ctx, admin, 2500); err != nil {
		t.Fatalf("compensation share update: %v", err)
	}

	if err := f.engine.UpdateCooldown(ctx, admin, time.Hour); !errors.Is(err, ErrConfigOutOfRange) {
		t.Fatalf("cooldown under floor: %v", err)
	}
	if err := f.engine.UpdateCooldown(ctx, admin, 200*time.Hour); err != nil {
		t.Fatalf("cooldown update: %v", err)
	}
}

func TestUpdateRoles(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()
	seedTrigger(t, f)

	if err := f.engine.UpdateRoles(ctx, admin, "0xneworacle", "0xnewsig"); err != nil {
		t.Fatalf("update roles: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, oracle, triggerID); !errors.Is(err, ErrNotOracle) {
		t.Fatalf("old oracle should be rejected: %v", err)
	}
	if err := f.engine.ProposeTrigger(ctx, "0xNewOracle", triggerID); err != nil {
		t.Fatalf("new oracle propose: %v", err)
	}
}
