package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/crewcal-dev/crewcal/internal/permissions"
	"github.com/crewcal-dev/crewcal/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionLevels struct {
	Module   string `json:"module" binding:"required"`
	MyLevel  string `json:"my_level" binding:"required"`
	AllLevel string `json:"all_level" binding:"required"`
}

type UpdatePermissionsRequest struct {
	Permissions []PermissionLevels `json:"permissions" binding:"required,dive"`
}

type UserPermissionsResponse struct {
	ID          uint               `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Role        string             `json:"role"`
	Permissions []PermissionLevels `json:"permissions"`
}

// permissionMatrix renders a full three-module matrix for a user, reporting
// NONE/NONE for modules without a stored row.
func permissionMatrix(rows []models.Permission) []PermissionLevels {
	byModule := make(map[string]models.Permission, len(rows))

	for _, row := range rows {
		byModule[row.Module] = row
	}

	matrix := make([]PermissionLevels, 0, len(permissions.Modules))

	for _, module := range permissions.Modules {
		levels := PermissionLevels{
			Module:   string(module),
			MyLevel:  string(permissions.LevelNone),
			AllLevel: string(permissions.LevelNone),
		}

		if row, ok := byModule[string(module)]; ok {
			levels.MyLevel = row.MyLevel
			levels.AllLevel = row.AllLevel
		}

		matrix = append(matrix, levels)
	}

	return matrix
}

// ListUserPermissions backs the admin permission-matrix screen.
func ListUserPermissions(ctx *gin.Context) {
	var users []models.User

	if err := db.DB.Preload("Permissions").Order("name ASC").Find(&users).Error; err != nil {
		log.Printf("Failed to list users with permissions: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	response := make([]UserPermissionsResponse, 0, len(users))

	for _, user := range users {
		response = append(response, UserPermissionsResponse{
			ID:          user.ID,
			Name:        user.Name,
			Email:       user.Email,
			Role:        user.Role,
			Permissions: permissionMatrix(user.Permissions),
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"users": response})
}

// UpdateUserPermissions bulk-upserts one user's levels across modules.
func UpdateUserPermissions(ctx *gin.Context) {
	userID := ctx.Param("user_id")

	var user models.User

	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondNotFound(ctx, "User not found")
		} else {
			log.Printf("Failed to load user %s: %v", userID, err)
			utils.RespondInternalError(ctx)
		}
		return
	}

	var body UpdatePermissionsRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	for _, levels := range body.Permissions {
		if !permissions.ValidModule(levels.Module) {
			utils.RespondValidationError(ctx, fmt.Errorf("unknown module %q", levels.Module))
			return
		}
		if !permissions.ValidLevel(levels.MyLevel) || !permissions.ValidLevel(levels.AllLevel) {
			utils.RespondValidationError(ctx, fmt.Errorf("levels must be NONE, VIEW or EDIT"))
			return
		}
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		for _, levels := range body.Permissions {
			row := models.Permission{
				UserID:   user.ID,
				Module:   levels.Module,
				MyLevel:  levels.MyLevel,
				AllLevel: levels.AllLevel,
			}

			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "module"}},
				DoUpdates: clause.AssignmentColumns([]string{"my_level", "all_level", "updated_at"}),
			}).Create(&row).Error

			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Printf("Failed to update permissions for user %d: %v", user.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	var rows []models.Permission

	if err := db.DB.Where("user_id = ?", user.ID).Find(&rows).Error; err != nil {
		log.Printf("Failed to reload permissions for user %d: %v", user.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, UserPermissionsResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: permissionMatrix(rows),
	})
}
