// Package protocol implements the protection-seed lifecycle engine: pooled
// deposit accounting against an external yield vault, yield splitting,
// two-phase trigger governance, per-event compensation distribution and the
// dormancy recovery fallback.
package protocol

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"seedpool/internal/config"
	"seedpool/internal/events"
	"seedpool/internal/models"
	"seedpool/internal/repository"
	"seedpool/internal/vault"
)

// Roles holds the governance identities checked on privileged operations.
type Roles struct {
	Admin    string
	Oracle   string
	Multisig string
}

// Engine owns the ledger arena. Every mutating operation runs under one
// exclusive guard for its whole duration, external round-trips included, so
// operations interleave only at whole-operation boundaries and collaborators
// cannot re-enter a half-applied state.
type Engine struct {
	mu sync.RWMutex

	clock  clockwork.Clock
	vault  vault.Vault
	token  vault.Token
	repo   repository.Repository
	hub    *events.Hub
	logger *zap.Logger

	policy AllocationPolicy
	params config.ProtocolConfig
	roles  Roles

	st *ledgerState
}

type Options struct {
	Clock  clockwork.Clock
	Vault  vault.Vault
	Token  vault.Token
	Repo   repository.Repository
	Hub    *events.Hub
	Logger *zap.Logger
	Params config.ProtocolConfig
	Roles  config.RolesConfig
}

func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &Engine{
		clock:  clock,
		vault:  opts.Vault,
		token:  opts.Token,
		repo:   opts.Repo,
		hub:    opts.Hub,
		logger: opts.Logger,
		policy: PolicyFor(opts.Params.Policy),
		params: opts.Params,
		roles: Roles{
			Admin:    normalizeAddress(opts.Roles.Admin),
			Oracle:   normalizeAddress(opts.Roles.Oracle),
			Multisig: normalizeAddress(opts.Roles.Multisig),
		},
		st: newLedgerState(),
	}
	e.st.ledger = models.LedgerState{ID: 1, LastActivityAt: clock.Now().UTC()}
	return e
}

// Load restores the arena from the repository. A missing ledger row means a
// fresh deployment.
func (e *Engine) Load(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st := newLedgerState()
	st.ledger = models.LedgerState{ID: 1, LastActivityAt: e.clock.Now().UTC()}

	ledger, err := e.repo.GetLedgerState(ctx)
	if err != nil {
		return err
	}
	if ledger != nil {
		st.ledger = *ledger
	}

	positions, err := e.repo.ListUserPositions(ctx)
	if err != nil {
		return err
	}
	for i := range positions {
		p := positions[i]
		st.users[p.Address] = &p
		st.order = append(st.order, p.Address)
	}

	triggers, err := e.repo.ListTriggers(ctx)
	if err != nil {
		return err
	}
	for i := range triggers {
		t := triggers[i]
		st.triggers[t.ID] = &t
	}

	proposal, err := e.repo.GetPendingProposal(ctx)
	if err != nil {
		return err
	}
	st.proposal = proposal

	compEvents, err := e.repo.ListCompensationEvents(ctx)
	if err != nil {
		return err
	}
	for i := range compEvents {
		ev := compEvents[i]
		st.compEvents = append(st.compEvents, &ev)
	}

	claims, err := e.repo.ListCompensationClaims(ctx, 0)
	if err != nil {
		return err
	}
	for _, c := range claims {
		if st.claimed[c.EventID] == nil {
			st.claimed[c.EventID] = map[string]bool{}
		}
		st.claimed[c.EventID][c.Address] = true
	}

	e.st = st
	if e.logger != nil {
		e.logger.Info("ledger restored",
			zap.Int("positions", len(positions)),
			zap.Int("triggers", len(triggers)),
			zap.Int("compensation_events", len(compEvents)),
			zap.Uint64("seq", st.ledger.Seq),
		)
	}
	return nil
}

// commit persists a changeset in one transaction, then folds it into the
// arena and fans its journal entries out to subscribers. Nothing in the
// arena changes if persistence fails.
func (e *Engine) commit(ctx context.Context, cs *changeset) error {
	if e.repo != nil {
		err := e.repo.InTx(ctx, func(tx *gorm.DB) error {
			if err := e.repo.SaveLedgerStateTx(ctx, tx, cs.ledger); err != nil {
				return err
			}
			for _, u := range cs.users {
				if err := e.repo.UpsertUserPositionTx(ctx, tx, u); err != nil {
					return err
				}
			}
			for _, t := range cs.triggers {
				if err := e.repo.UpsertTriggerTx(ctx, tx, t); err != nil {
					return err
				}
			}
			if cs.clearProposal {
				if err := e.repo.ClearPendingProposalTx(ctx, tx); err != nil {
					return err
				}
			}
			if cs.proposal != nil {
				if err := e.repo.SavePendingProposalTx(ctx, tx, cs.proposal); err != nil {
					return err
				}
			}
			for _, ev := range cs.compEvents {
				if err := e.repo.SaveCompensationEventTx(ctx, tx, ev); err != nil {
					return err
				}
			}
			for _, c := range cs.claims {
				if err := e.repo.InsertCompensationClaimTx(ctx, tx, c); err != nil {
					return err
				}
			}
			for _, d := range cs.dormancy {
				if err := e.repo.InsertDormancyWithdrawalTx(ctx, tx, d); err != nil {
					return err
				}
			}
			for _, j := range cs.journal {
				if err := e.repo.InsertProtocolEventTx(ctx, tx, j); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	e.st.apply(cs)

	if e.hub != nil {
		for _, j := range cs.journal {
			e.hub.Publish(*j)
		}
	}
	return nil
}

// journal appends one observable event to the changeset.
func (cs *changeset) journalEvent(now time.Time, eventType, actor string, payload map[string]any) {
	var raw datatypes.JSON
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = datatypes.JSON(b)
		}
	}
	cs.journal = append(cs.journal, &models.ProtocolEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Seq:       cs.ledger.Seq,
		Payload:   raw,
		CreatedAt: now,
	})
}

func (e *Engine) requireAdmin(caller string) error {
	if normalizeAddress(caller) != e.roles.Admin {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) requireOracle(caller string) error {
	if normalizeAddress(caller) != e.roles.Oracle {
		return ErrNotOracle
	}
	return nil
}

func (e *Engine) requireMultisig(caller string) error {
	if normalizeAddress(caller) != e.roles.Multisig {
		return ErrNotMultisig
	}
	return nil
}

func (e *Engine) requireAdminOrMultisig(caller string) error {
	c := normalizeAddress(caller)
	if c != e.roles.Admin && c != e.roles.Multisig {
		return ErrNotMultisig
	}
	return nil
}

func validAddress(address string) bool {
	return strings.TrimSpace(address) != ""
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// Params returns the current economic parameters.
func (e *Engine) Params() config.ProtocolConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// GovernanceRoles returns the current role identities.
func (e *Engine) GovernanceRoles() Roles {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles
}
