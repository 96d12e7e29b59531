package db

import (
	"errors"

	"github.com/crewcal-dev/crewcal/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin ensures an administrator account exists for the given email. It is
// a no-op when the account is already present, so it is safe to run on every
// startup.
func SeedAdmin(name, email, password string) error {
	var existing models.User

	err := DB.Where("email = ?", email).First(&existing).Error

	if err == nil {
		return nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	if err != nil {
		return err
	}

	admin := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleAdmin,
	}

	return DB.Create(&admin).Error
}
