package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/auth"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/crewcal-dev/crewcal/internal/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// loginFloor is the minimum wall time for a login or register attempt. Every
// outcome is padded to it so response latency does not reveal whether an
// account exists.
const loginFloor = 200 * time.Millisecond

// A valid bcrypt hash that matches no real password. Compared against when the
// email lookup misses, so the miss path does the same work as the hit path.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func padToFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < loginFloor {
		time.Sleep(loginFloor - elapsed)
	}
}

func respondLoginFailure(ctx *gin.Context, start time.Time, reason string, fields map[string]interface{}) {
	// The real reason stays server-side; the client sees one generic shape
	// regardless of cause.
	log.Printf("Authentication failure (%s): %s", reason, utils.RedactFields(fields))
	padToFloor(start)
	utils.RespondError(ctx, http.StatusUnauthorized, types.ErrUnauthorized, "Invalid email or password")
}

func Register(ctx *gin.Context) {
	start := time.Now()

	var body RegisterRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		padToFloor(start)
		utils.RespondValidationError(ctx, err)
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	var existingUser models.User

	err := db.DB.Where("email = ?", body.Email).First(&existingUser).Error

	if err == nil {
		// Flattened to the generic shape so signup cannot be used to probe
		// which emails have accounts.
		respondLoginFailure(ctx, start, "email already registered", map[string]interface{}{"email": body.Email})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing user: %v", err)
		padToFloor(start)
		utils.RespondInternalError(ctx)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		padToFloor(start)
		utils.RespondInternalError(ctx)
		return
	}

	// New accounts always start at the lowest privilege; roles are only
	// raised by an administrator.
	newUser := models.User{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleUser,
	}

	if err := db.DB.Create(&newUser).Error; err != nil {
		if db.IsUniqueViolation(err) {
			respondLoginFailure(ctx, start, "email already registered", map[string]interface{}{"email": body.Email})
			return
		}
		log.Printf("Failed to create user: %v", err)
		padToFloor(start)
		utils.RespondInternalError(ctx)
		return
	}

	token, err := auth.GenerateSessionToken(newUser.ID, newUser.Email)

	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		padToFloor(start)
		utils.RespondInternalError(ctx)
		return
	}

	auth.SetSessionCookie(ctx, token)

	padToFloor(start)
	ctx.JSON(http.StatusCreated, gin.H{
		"user": types.UserResponse{
			ID:    newUser.ID,
			Name:  newUser.Name,
			Email: newUser.Email,
			Role:  newUser.Role,
		},
	})
}

func Login(ctx *gin.Context) {
	start := time.Now()

	var body LoginRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		padToFloor(start)
		utils.RespondValidationError(ctx, err)
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	var existingUser models.User

	err := db.DB.Where("email = ?", body.Email).First(&existingUser).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a hash comparison so a miss costs the same as a hit.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(body.Password))
			respondLoginFailure(ctx, start, "unknown email", map[string]interface{}{"email": body.Email})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		padToFloor(start)
		utils.RespondInternalError(ctx)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(body.Password)); err != nil {
		respondLoginFailure(ctx, start, "wrong password", map[string]interface{}{"email": body.Email})
		return
	}

	token, err := auth.GenerateSessionToken(existingUser.ID, existingUser.Email)

	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		padToFloor(start)
		utils.RespondInternalError(ctx)
		return
	}

	auth.SetSessionCookie(ctx, token)

	padToFloor(start)
	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:    existingUser.ID,
			Name:  existingUser.Name,
			Email: existingUser.Email,
			Role:  existingUser.Role,
		},
	})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		utils.RespondError(ctx, http.StatusUnauthorized, types.ErrUnauthorized, "User not authenticated")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:    currentUser.ID,
			Name:  currentUser.Name,
			Email: currentUser.Email,
			Role:  currentUser.Role,
		},
	})
}

func Logout(ctx *gin.Context) {
	auth.ClearSessionCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
