package protocol

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"seedpool/internal/config"
	"seedpool/internal/models"
	"seedpool/internal/repository"
	"seedpool/internal/vault/sim"
)

// stubRepo keeps everything in maps so engine persistence can be exercised
// without a database. The tx handle is ignored; the engine only requires
// that all writes inside one InTx land or none do, which a single-threaded
// test satisfies trivially.
type stubRepo struct {
	ledger   *models.LedgerState
	users    map[string]models.UserPosition
	triggers map[string]models.Trigger
	proposal *models.PendingProposal
	events   map[uint64]models.CompensationEvent
	claims   []models.CompensationClaim
	dormancy []models.DormancyWithdrawal
	journal  []models.ProtocolEvent
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:    map[string]models.UserPosition{},
		triggers: map[string]models.Trigger{},
		events:   map[uint64]models.CompensationEvent{},
	}
}

func (r *stubRepo) InTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) GetLedgerState(context.Context) (*models.LedgerState, error) {
	if r.ledger == nil {
		return nil, nil
	}
	copied := *r.ledger
	return &copied, nil
}

func (r *stubRepo) SaveLedgerStateTx(_ context.Context, _ *gorm.DB, state *models.LedgerState) error {
	copied := *state
	r.ledger = &copied
	return nil
}

func (r *stubRepo) GetUserPosition(_ context.Context, address string) (*models.UserPosition, error) {
	if u, ok := r.users[address]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *stubRepo) ListUserPositions(context.Context) ([]models.UserPosition, error) {
	out := make([]models.UserPosition, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (r *stubRepo) UpsertUserPositionTx(_ context.Context, _ *gorm.DB, item *models.UserPosition) error {
	r.users[item.Address] = *item
	return nil
}

func (r *stubRepo) ListTriggers(context.Context) ([]models.Trigger, error) {
	out := make([]models.Trigger, 0, len(r.triggers))
	for _, t := range r.triggers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRepo) UpsertTriggerTx(_ context.Context, _ *gorm.DB, item *models.Trigger) error {
	r.triggers[item.ID] = *item
	return nil
}

func (r *stubRepo) GetPendingProposal(context.Context) (*models.PendingProposal, error) {
	if r.proposal == nil {
		return nil, nil
	}
	copied := *r.proposal
	return &copied, nil
}

func (r *stubRepo) SavePendingProposalTx(_ context.Context, _ *gorm.DB, item *models.PendingProposal) error {
	copied := *item
	r.proposal = &copied
	return nil
}

func (r *stubRepo) ClearPendingProposalTx(context.Context, *gorm.DB) error {
	r.proposal = nil
	return nil
}

func (r *stubRepo) ListCompensationEvents(context.Context) ([]models.CompensationEvent, error) {
	out := make([]models.CompensationEvent, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRepo) GetCompensationEvent(_ context.Context, id uint64) (*models.CompensationEvent, error) {
	if ev, ok := r.events[id]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (r *stubRepo) SaveCompensationEventTx(_ context.Context, _ *gorm.DB, item *models.CompensationEvent) error {
	r.events[item.ID] = *item
	return nil
}

func (r *stubRepo) ListCompensationClaims(_ context.Context, eventID uint64) ([]models.CompensationClaim, error) {
	if eventID == 0 {
		return append([]models.CompensationClaim(nil), r.claims...), nil
	}
	var out []models.CompensationClaim
	for _, c := range r.claims {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubRepo) InsertCompensationClaimTx(_ context.Context, _ *gorm.DB, item *models.CompensationClaim) error {
	r.claims = append(r.claims, *item)
	return nil
}

func (r *stubRepo) ListDormancyWithdrawals(context.Context) ([]models.DormancyWithdrawal, error) {
	return append([]models.DormancyWithdrawal(nil), r.dormancy...), nil
}

func (r *stubRepo) InsertDormancyWithdrawalTx(_ context.Context, _ *gorm.DB, item *models.DormancyWithdrawal) error {
	r.dormancy = append(r.dormancy, *item)
	return nil
}

func (r *stubRepo) InsertProtocolEventTx(_ context.Context, _ *gorm.DB, item *models.ProtocolEvent) error {
	r.journal = append(r.journal, *item)
	return nil
}

func (r *stubRepo) filtered(params repository.ListEventsParams) []models.ProtocolEvent {
	var out []models.ProtocolEvent
	for _, ev := range r.journal {
		if params.Type != nil && ev.Type != *params.Type {
			continue
		}
		if params.Actor != nil && ev.Actor != *params.Actor {
			continue
		}
		if params.Since != nil && ev.CreatedAt.Before(*params.Since) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (r *stubRepo) ListProtocolEvents(_ context.Context, params repository.ListEventsParams) ([]models.ProtocolEvent, error) {
	out := r.filtered(params)
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *stubRepo) CountProtocolEvents(_ context.Context, params repository.ListEventsParams) (int64, error) {
	return int64(len(r.filtered(params))), nil
}

// A restarted engine restored from the repository must be indistinguishable
// from the one that wrote it.
func TestLoadRestoresState(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := sim.New()
	repo := newStubRepo()

	opts := Options{
		Clock:  clock,
		Vault:  s,
		Token:  s,
		Repo:   repo,
		Logger: zap.NewNop(),
		Params: testParams(),
		Roles:  config.RolesConfig{Admin: admin, Oracle: oracle, Multisig: multisig},
	}
	first := NewEngine(opts)

	s.Fund(alice, dec(1000))
	if err := first.Deposit(ctx, alice, dec(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	s.Accrue(dec(100))
	if _, err := first.HarvestYield(ctx, carol); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if err := first.AddTrigger(ctx, admin, triggerID, "feed divergence"); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if err := first.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}

	second := NewEngine(opts)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	want := first.Status(ctx)
	got := second.Status(ctx)
	mustEqual(t, got.TotalPrincipal, want.TotalPrincipal, "restored principal")
	mustEqual(t, got.SeedBalance, want.SeedBalance, "restored seed")
	mustEqual(t, got.TreasuryBalance, want.TreasuryBalance, "restored treasury")
	if got.Seq != want.Seq {
		t.Fatalf("restored seq = %d, want %d", got.Seq, want.Seq)
	}
	if !got.DepositsHalted {
		t.Fatal("restored engine should still be halted")
	}
	mustEqual(t, second.GetClaimableYield(alice), first.GetClaimableYield(alice), "restored claimable")

	proposal := second.PendingProposalInfo()
	if proposal == nil || proposal.TriggerID != triggerID {
		t.Fatalf("restored proposal = %+v", proposal)
	}
	if len(second.Triggers()) != 1 {
		t.Fatalf("restored triggers = %+v", second.Triggers())
	}
	if n, err := repo.CountProtocolEvents(ctx, repository.ListEventsParams{}); err != nil || n == 0 {
		t.Fatalf("journal count = %d, err %v", n, err)
	}
}

// Claims must survive a restart so a restored engine still refuses a
// double payout.
func TestLoadRestoresClaims(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := sim.New()
	repo := newStubRepo()

	opts := Options{
		Clock:  clock,
		Vault:  s,
		Token:  s,
		Repo:   repo,
		Logger: zap.NewNop(),
		Params: testParams(),
		Roles:  config.RolesConfig{Admin: admin, Oracle: oracle, Multisig: multisig},
	}
	first := NewEngine(opts)

	s.Fund(alice, dec(6000))
	if err := first.Deposit(ctx, alice, dec(6000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	s.Accrue(dec(1000))
	if err := first.AddTrigger(ctx, admin, triggerID, ""); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if err := first.ProposeTrigger(ctx, oracle, triggerID); err != nil {
		t.Fatalf("propose: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := first.ConfirmTrigger(ctx, multisig); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := first.ClaimCompensation(ctx, alice); err != nil {
		t.Fatalf("claim: %v", err)
	}

	second := NewEngine(opts)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := second.ClaimCompensation(ctx, alice); err == nil {
		t.Fatal("restored engine allowed a double claim")
	}
	mustEqual(t, second.ClaimableCompensation(alice), decimal.Zero, "restored claimable compensation")
}
