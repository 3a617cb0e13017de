package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"seedpool/internal/models"
)

// ListEventsParams pages the protocol event journal.
type ListEventsParams struct {
	Type   *string
	Actor  *string
	Since  *time.Time
	Limit  int
	Offset int
}

// Repository persists the ledger, the governance registry, compensation
// records and the event journal. Mutating engine operations commit all of
// their rows through InTx with the *Tx variants so every operation is a
// single database transaction.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetLedgerState(ctx context.Context) (*models.LedgerState, error)
	SaveLedgerStateTx(ctx context.Context, tx *gorm.DB, state *models.LedgerState) error

	GetUserPosition(ctx context.Context, address string) (*models.UserPosition, error)
	ListUserPositions(ctx context.Context) ([]models.UserPosition, error)
	UpsertUserPositionTx(ctx context.Context, tx *gorm.DB, item *models.UserPosition) error

	ListTriggers(ctx context.Context) ([]models.Trigger, error)
	UpsertTriggerTx(ctx context.Context, tx *gorm.DB, item *models.Trigger) error

	GetPendingProposal(ctx context.Context) (*models.PendingProposal, error)
	SavePendingProposalTx(ctx context.Context, tx *gorm.DB, item *models.PendingProposal) error
	ClearPendingProposalTx(ctx context.Context, tx *gorm.DB) error

	ListCompensationEvents(ctx context.Context) ([]models.CompensationEvent, error)
	GetCompensationEvent(ctx context.Context, id uint64) (*models.CompensationEvent, error)
	SaveCompensationEventTx(ctx context.Context, tx *gorm.DB, item *models.CompensationEvent) error

	ListCompensationClaims(ctx context.Context, eventID uint64) ([]models.CompensationClaim, error)
	InsertCompensationClaimTx(ctx context.Context, tx *gorm.DB, item *models.CompensationClaim) error

	ListDormancyWithdrawals(ctx context.Context) ([]models.DormancyWithdrawal, error)
	InsertDormancyWithdrawalTx(ctx context.Context, tx *gorm.DB, item *models.DormancyWithdrawal) error

	InsertProtocolEventTx(ctx context.Context, tx *gorm.DB, item *models.ProtocolEvent) error
	ListProtocolEvents(ctx context.Context, params ListEventsParams) ([]models.ProtocolEvent, error)
	CountProtocolEvents(ctx context.Context, params ListEventsParams) (int64, error)
}
