package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seedpool/internal/models"
	"seedpool/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- ledger ------------------------------------------------------------

func (s *Store) GetLedgerState(ctx context.Context) (*models.LedgerState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.LedgerState
	err := s.db.WithContext(ctx).First(&item, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveLedgerStateTx(ctx context.Context, tx *gorm.DB, state *models.LedgerState) error {
	if tx == nil || state == nil {
		return nil
	}
	state.ID = 1
	return tx.WithContext(ctx).Save(state).Error
}

// --- user positions ----------------------------------------------------

func (s *Store) GetUserPosition(ctx context.Context, address string) (*models.UserPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	var item models.UserPosition
	err := s.db.WithContext(ctx).First(&item, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListUserPositions(ctx context.Context) ([]models.UserPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.UserPosition
	if err := s.db.WithContext(ctx).
		Model(&models.UserPosition{}).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertUserPositionTx(ctx context.Context, tx *gorm.DB, item *models.UserPosition) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"principal",
			"yield_claimed",
			"last_activity_seq",
			"dormancy_withdrawn",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- trigger registry --------------------------------------------------

func (s *Store) ListTriggers(ctx context.Context) ([]models.Trigger, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trigger
	if err := s.db.WithContext(ctx).
		Model(&models.Trigger{}).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertTriggerTx(ctx context.Context, tx *gorm.DB, item *models.Trigger) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description",
			"active",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- pending proposal --------------------------------------------------

func (s *Store) GetPendingProposal(ctx context.Context) (*models.PendingProposal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PendingProposal
	err := s.db.WithContext(ctx).First(&item, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePendingProposalTx(ctx context.Context, tx *gorm.DB, item *models.PendingProposal) error {
	if tx == nil || item == nil {
		return nil
	}
	item.ID = 1
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) ClearPendingProposalTx(ctx context.Context, tx *gorm.DB) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).Delete(&models.PendingProposal{}, "id = ?", 1).Error
}

// --- compensation ------------------------------------------------------

func (s *Store) ListCompensationEvents(ctx context.Context) ([]models.CompensationEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CompensationEvent
	if err := s.db.WithContext(ctx).
		Model(&models.CompensationEvent{}).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetCompensationEvent(ctx context.Context, id uint64) (*models.CompensationEvent, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.CompensationEvent
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveCompensationEventTx(ctx context.Context, tx *gorm.DB, item *models.CompensationEvent) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) ListCompensationClaims(ctx context.Context, eventID uint64) ([]models.CompensationClaim, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CompensationClaim{})
	if eventID > 0 {
		query = query.Where("event_id = ?", eventID)
	}
	var items []models.CompensationClaim
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertCompensationClaimTx(ctx context.Context, tx *gorm.DB, item *models.CompensationClaim) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

// --- dormancy ----------------------------------------------------------

func (s *Store) ListDormancyWithdrawals(ctx context.Context) ([]models.DormancyWithdrawal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.DormancyWithdrawal
	if err := s.db.WithContext(ctx).
		Model(&models.DormancyWithdrawal{}).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertDormancyWithdrawalTx(ctx context.Context, tx *gorm.DB, item *models.DormancyWithdrawal) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

// --- event journal -----------------------------------------------------

func (s *Store) InsertProtocolEventTx(ctx context.Context, tx *gorm.DB, item *models.ProtocolEvent) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListProtocolEvents(ctx context.Context, params repository.ListEventsParams) ([]models.ProtocolEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyEventFilters(s.db.WithContext(ctx).Model(&models.ProtocolEvent{}), params)
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.ProtocolEvent
	if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountProtocolEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyEventFilters(s.db.WithContext(ctx).Model(&models.ProtocolEvent{}), params).Count(&total).Error
	return total, err
}

func applyEventFilters(query *gorm.DB, params repository.ListEventsParams) *gorm.DB {
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Actor != nil && strings.TrimSpace(*params.Actor) != "" {
		query = query.Where("actor = ?", strings.TrimSpace(*params.Actor))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}
