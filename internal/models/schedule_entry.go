package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScheduleEntry is one user's shift on one day. Start and end are minutes of
// day; the (date, user) pair is unique so a user has at most one entry per
// day.
type ScheduleEntry struct {
	gorm.Model

	Date        datatypes.Date `gorm:"not null;uniqueIndex:idx_date_user"`
	UserID      uint           `gorm:"not null;uniqueIndex:idx_date_user"`
	StartMinute int            `gorm:"not null"`
	EndMinute   int            `gorm:"not null"`
	Note        string
	CreatedByID uint `gorm:"not null;index"`

	// Relationships
	User      User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	CreatedBy User `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
