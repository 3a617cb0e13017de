package db

import (
	"seedpool/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.LedgerState{},
		&models.UserPosition{},
		&models.Trigger{},
		&models.PendingProposal{},
		&models.CompensationEvent{},
		&models.CompensationClaim{},
		&models.DormancyWithdrawal{},
		&models.ProtocolEvent{},
	)
}
