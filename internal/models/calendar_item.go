package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ItemTypeMeeting  = "MEETING"
	ItemTypeDeadline = "DEADLINE"
)

const (
	ItemStatusDraft     = "DRAFT"
	ItemStatusConfirmed = "CONFIRMED"
	ItemStatusCancelled = "CANCELLED"
)

type CalendarItem struct {
	gorm.Model

	Type        string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	StartAt     time.Time `gorm:"not null;index"`
	EndAt       *time.Time
	AllDay      bool   `gorm:"not null;default:false"`
	Status      string `gorm:"not null;default:DRAFT"`
	Location    string
	CreatedByID uint `gorm:"not null;index"`

	// Relationships
	CreatedBy    User          `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Participants []Participant `gorm:"foreignKey:ItemID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
