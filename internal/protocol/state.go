package protocol

import (
	"strings"

	"seedpool/internal/models"
)

// ledgerState is the in-memory arena the engine operates on: user records
// keyed by address plus their insertion order, the global totals row, the
// trigger registry, the at-most-one pending proposal and the ordered
// compensation event records.
type ledgerState struct {
	ledger models.LedgerState

	users map[string]*models.UserPosition
	order []string

	triggers map[string]*models.Trigger

	proposal *models.PendingProposal

	compEvents []*models.CompensationEvent
	claimed    map[uint64]map[string]bool
}

func newLedgerState() *ledgerState {
	return &ledgerState{
		users:    map[string]*models.UserPosition{},
		triggers: map[string]*models.Trigger{},
		claimed:  map[uint64]map[string]bool{},
	}
}

func (s *ledgerState) user(address string) *models.UserPosition {
	return s.users[address]
}

func (s *ledgerState) activeCompEvent() *models.CompensationEvent {
	if !s.ledger.CompensationActive || s.ledger.ActiveCompensationID == 0 {
		return nil
	}
	idx := int(s.ledger.ActiveCompensationID) - 1
	if idx < 0 || idx >= len(s.compEvents) {
		return nil
	}
	return s.compEvents[idx]
}

func (s *ledgerState) hasClaimed(eventID uint64, address string) bool {
	return s.claimed[eventID][address]
}

// changeset collects the rows one operation writes. It is persisted in a
// single transaction and applied to the arena only after the commit
// succeeds, so a failed operation leaves no partial state.
type changeset struct {
	ledger *models.LedgerState

	users      []*models.UserPosition
	triggers   []*models.Trigger
	compEvents []*models.CompensationEvent
	claims     []*models.CompensationClaim
	dormancy   []*models.DormancyWithdrawal
	journal    []*models.ProtocolEvent

	proposal      *models.PendingProposal
	clearProposal bool
}

func (s *ledgerState) newChangeset() *changeset {
	ledger := s.ledger
	return &changeset{ledger: &ledger}
}

// userCopy returns a mutable copy of the user's record, creating a fresh one
// for first-time depositors, and registers it in the changeset.
func (cs *changeset) userCopy(s *ledgerState, address string) *models.UserPosition {
	for _, u := range cs.users {
		if u.Address == address {
			return u
		}
	}
	var copied models.UserPosition
	if existing := s.user(address); existing != nil {
		copied = *existing
	} else {
		copied = models.UserPosition{Address: address}
	}
	cs.users = append(cs.users, &copied)
	return &copied
}

func (cs *changeset) compEventCopy(event *models.CompensationEvent) *models.CompensationEvent {
	for _, e := range cs.compEvents {
		if e.ID == event.ID {
			return e
		}
	}
	copied := *event
	cs.compEvents = append(cs.compEvents, &copied)
	return &copied
}

// apply folds a committed changeset back into the arena.
func (s *ledgerState) apply(cs *changeset) {
	s.ledger = *cs.ledger
	for _, u := range cs.users {
		if _, ok := s.users[u.Address]; !ok {
			s.order = append(s.order, u.Address)
		}
		s.users[u.Address] = u
	}
	for _, t := range cs.triggers {
		s.triggers[t.ID] = t
	}
	for _, e := range cs.compEvents {
		idx := int(e.ID) - 1
		if idx == len(s.compEvents) {
			s.compEvents = append(s.compEvents, e)
		} else if idx >= 0 && idx < len(s.compEvents) {
			s.compEvents[idx] = e
		}
	}
	for _, c := range cs.claims {
		if s.claimed[c.EventID] == nil {
			s.claimed[c.EventID] = map[string]bool{}
		}
		s.claimed[c.EventID][c.Address] = true
	}
	if cs.clearProposal {
		s.proposal = nil
	}
	if cs.proposal != nil {
		s.proposal = cs.proposal
	}
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
