package models

import "gorm.io/gorm"

const (
	ParticipantRoleOwner       = "OWNER"
	ParticipantRoleParticipant = "PARTICIPANT"
	ParticipantRoleResponsible = "RESPONSIBLE"
)

const (
	RSVPYes   = "YES"
	RSVPNo    = "NO"
	RSVPMaybe = "MAYBE"
)

type Participant struct {
	gorm.Model

	ItemID uint   `gorm:"not null;uniqueIndex:idx_item_user"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_item_user"`
	Role   string `gorm:"not null;default:PARTICIPANT"`
	RSVP   string

	// Relationships
	Item CalendarItem `gorm:"foreignKey:ItemID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	User User         `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
