package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DormancyWithdrawal records one user's one-shot exit after dormancy
// activation.
type DormancyWithdrawal struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Address string `gorm:"type:varchar(100);not null;uniqueIndex"`

	Amount decimal.Decimal `gorm:"type:numeric(40,0);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (DormancyWithdrawal) TableName() string {
	return "dormancy_withdrawals"
}
