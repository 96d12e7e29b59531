package handlers

import (
	"log"
	"net/http"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/crewcal-dev/crewcal/internal/utils"
	"github.com/gin-gonic/gin"
)

// ListUsers feeds participant and shift-owner selectors in the UI. It exposes
// only public profile fields.
func ListUsers(ctx *gin.Context) {
	var users []models.User

	if err := db.DB.Order("name ASC").Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	response := make([]types.UserResponse, 0, len(users))

	for _, user := range users {
		response = append(response, types.UserResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"users": response})
}
