package models

import "time"

// Trigger is a registered identifier for a class of qualifying adverse
// event. Only the admin role mutates the registry.
type Trigger struct {
	ID          string `gorm:"type:varchar(100);primaryKey"`
	Description string `gorm:"type:text"`
	Active      bool   `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Trigger) TableName() string {
	return "triggers"
}
