package protocol

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDormancyThreshold(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	f.deposit(t, alice, 1000)
	if err := f.engine.ActivateDormancy(ctx, carol); !errors.Is(err, ErrDormancyNotReached) {
		t.Fatalf("early activation: %v", err)
	}
	if _, err := f.engine.DormancyWithdraw(ctx, alice); !errors.Is(err, ErrDormancyInactive) {
		t.Fatalf("withdraw before activation: %v", err)
	}

	f.clock.Advance(4320 * time.Hour)
	if !f.engine.IsDormant() {
		t.Fatal("threshold elapsed, IsDormant should report true")
	}
}

func TestDormancyActivationFreezesProtocol(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	f.deposit(t, alice, 1000)
	f.clock.Advance(4320 * time.Hour)

	// Anyone may activate; repeating is a no-op rather than an error.
	if err := f.engine.ActivateDormancy(ctx, carol); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := f.engine.ActivateDormancy(ctx, carol); err != nil {
		t.Fatalf("repeat activate: %v", err)
	}
	if !f.engine.Status(ctx).DormancyActivated {
		t.Fatal("status should report dormancy")
	}

	f.sim.Fund(bob, dec(100))
	if err := f.engine.Deposit(ctx, bob, dec(100)); !errors.Is(err, ErrDormancyActive) {
		t.Fatalf("deposit after dormancy: %v", err)
	}
	if err := f.engine.Withdraw(ctx, alice, dec(100)); !errors.Is(err, ErrDormancyActive) {
		t.Fatalf("withdraw after dormancy: %v", err)
	}
	if _, err := f.engine.HarvestYield(ctx, carol); !errors.Is(err, ErrDormancyActive) {
		t.Fatalf("harvest after dormancy: %v", err)
	}
	if _, err := f.engine.ClaimYield(ctx, alice); !errors.Is(err, ErrDormancyActive) {
		t.Fatalf("claim after dormancy: %v", err)
	}
	if err := f.engine.Heartbeat(ctx, admin); !errors.Is(err, ErrDormancyActive) {
		t.Fatalf("heartbeat after dormancy: %v", err)
	}
}

func TestDormancyWithdrawProRataWithCap(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	f.deposit(t, alice, 9000)
	f.deposit(t, bob, 1000)
	f.clock.Advance(4320 * time.Hour)
	if err := f.engine.ActivateDormancy(ctx, carol); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Alice's pro-rata 9000 exceeds the 10% per-call cap of the 10000
	// recovered; she takes 1000 and forfeits the rest.
	paid, err := f.engine.DormancyWithdraw(ctx, alice)
	if err != nil {
		t.Fatalf("alice withdraw: %v", err)
	}
	mustEqual(t, paid, dec(1000), "alice payout")
	if _, err := f.engine.DormancyWithdraw(ctx, alice); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Fatalf("alice second withdraw: %v", err)
	}

	// Bob now owns all remaining principal against a 9000 balance; the cap
	// binds again.
	paid, err = f.engine.DormancyWithdraw(ctx, bob)
	if err != nil {
		t.Fatalf("bob withdraw: %v", err)
	}
	mustEqual(t, paid, dec(900), "bob payout")

	if _, err := f.engine.DormancyWithdraw(ctx, carol); !errors.Is(err, ErrInsufficientPrincipal) {
		t.Fatalf("stranger withdraw: %v", err)
	}

	ds := f.engine.Dormancy()
	if !ds.Activated {
		t.Fatal("dormancy status should report activated")
	}
	mustEqual(t, ds.TotalWithdrawn, dec(1900), "total withdrawn")
}

func TestHeartbeatResetsActivityClock(t *testing.T) {
	f := newFixture(t, testParams())
	ctx := context.Background()

	f.deposit(t, alice, 1000)
	f.clock.Advance(4000 * time.Hour)

	if err := f.engine.Heartbeat(ctx, alice); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("non-admin heartbeat: %v", err)
	}
	if err := f.engine.Heartbeat(ctx, admin); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	f.clock.Advance(4000 * time.Hour)
	if f.engine.IsDormant() {
		t.Fatal("heartbeat should have reset the clock")
	}
	if err := f.engine.ActivateDormancy(ctx, carol); !errors.Is(err, ErrDormancyNotReached) {
		t.Fatalf("activation after heartbeat: %v", err)
	}

	f.clock.Advance(400 * time.Hour)
	if !f.engine.IsDormant() {
		t.Fatal("threshold elapsed since last heartbeat")
	}
}
