package models

import "gorm.io/gorm"

// A Permission row grants a user access levels for one module. MyLevel covers
// the user's own records, AllLevel everyone else's. A missing row is
// equivalent to NONE/NONE.
type Permission struct {
	gorm.Model

	UserID   uint   `gorm:"not null;uniqueIndex:idx_user_module"`
	Module   string `gorm:"not null;uniqueIndex:idx_user_module"`
	MyLevel  string `gorm:"not null;default:NONE"`
	AllLevel string `gorm:"not null;default:NONE"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
