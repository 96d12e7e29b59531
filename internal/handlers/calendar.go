package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/crewcal-dev/crewcal/internal/permissions"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/crewcal-dev/crewcal/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// maxListLimit caps every list response regardless of the requested limit.
const maxListLimit = 1000

type ParticipantInput struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=OWNER PARTICIPANT RESPONSIBLE"`
	RSVP   string `json:"rsvp" binding:"omitempty,oneof=YES NO MAYBE"`
}

type CreateCalendarItemRequest struct {
	Type        string     `json:"type" binding:"required,oneof=MEETING DEADLINE"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	StartAt     time.Time  `json:"start_at" binding:"required"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      bool       `json:"all_day"`
	Status      string     `json:"status" binding:"omitempty,oneof=DRAFT CONFIRMED CANCELLED"`
	Location    string     `json:"location"`

	// Accepted so older clients that echo the field back don't break, but
	// never honored: the owner is always the authenticated caller.
	CreatedByID uint `json:"created_by_id"`

	Participants []ParticipantInput `json:"participants" binding:"omitempty,dive"`
}

type UpdateCalendarItemRequest struct {
	Type        *string    `json:"type" binding:"omitempty,oneof=MEETING DEADLINE"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      *bool      `json:"all_day"`
	Status      *string    `json:"status" binding:"omitempty,oneof=DRAFT CONFIRMED CANCELLED"`
	Location    *string    `json:"location"`

	Participants *[]ParticipantInput `json:"participants" binding:"omitempty,dive"`
}

type ParticipantResponse struct {
	ID     uint   `json:"id"`
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	RSVP   string `json:"rsvp,omitempty"`
}

type CreatedByResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CalendarItemResponse struct {
	ID           uint                  `json:"id"`
	Type         string                `json:"type"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	StartAt      time.Time             `json:"start_at"`
	EndAt        *time.Time            `json:"end_at"`
	AllDay       bool                  `json:"all_day"`
	Status       string                `json:"status"`
	Location     string                `json:"location"`
	CreatedBy    CreatedByResponse     `json:"created_by"`
	Participants []ParticipantResponse `json:"participants"`
}

func calendarItemResponse(item *models.CalendarItem) CalendarItemResponse {
	participants := make([]ParticipantResponse, 0, len(item.Participants))

	for _, participant := range item.Participants {
		participants = append(participants, ParticipantResponse{
			ID:     participant.ID,
			UserID: participant.UserID,
			Name:   participant.User.Name,
			Role:   participant.Role,
			RSVP:   participant.RSVP,
		})
	}

	return CalendarItemResponse{
		ID:           item.ID,
		Type:         item.Type,
		Title:        item.Title,
		Description:  item.Description,
		StartAt:      item.StartAt,
		EndAt:        item.EndAt,
		AllDay:       item.AllDay,
		Status:       item.Status,
		Location:     item.Location,
		CreatedBy:    CreatedByResponse{ID: item.CreatedBy.ID, Name: item.CreatedBy.Name},
		Participants: participants,
	}
}

func parseListLimit(ctx *gin.Context) (int, error) {
	raw := ctx.Query("limit")

	if raw == "" {
		return maxListLimit, nil
	}

	limit, err := strconv.Atoi(raw)

	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}

	if limit > maxListLimit {
		return 0, fmt.Errorf("limit must not exceed %d", maxListLimit)
	}

	return limit, nil
}

func ListCalendarItems(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		utils.RespondError(ctx, http.StatusUnauthorized, types.ErrUnauthorized, "User not authenticated")
		return
	}

	limit, err := parseListLimit(ctx)

	if err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	query := db.DB.Model(&models.CalendarItem{}).
		Preload("Participants").
		Preload("Participants.User").
		Preload("CreatedBy")

	if from := ctx.Query("from"); from != "" {
		fromTime, err := time.Parse(time.RFC3339, from)
		if err != nil {
			utils.RespondValidationError(ctx, fmt.Errorf("from must be an RFC 3339 timestamp"))
			return
		}
		query = query.Where("start_at >= ?", fromTime)
	}

	if to := ctx.Query("to"); to != "" {
		toTime, err := time.Parse(time.RFC3339, to)
		if err != nil {
			utils.RespondValidationError(ctx, fmt.Errorf("to must be an RFC 3339 timestamp"))
			return
		}
		query = query.Where("start_at <= ?", toTime)
	}

	typeFilter := ctx.Query("type")

	if typeFilter != "" && typeFilter != models.ItemTypeMeeting && typeFilter != models.ItemTypeDeadline {
		utils.RespondValidationError(ctx, fmt.Errorf("type must be MEETING or DEADLINE"))
		return
	}

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if search := ctx.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(db.DB.Where("LOWER(title) LIKE LOWER(?)", pattern).
			Or("LOWER(description) LIKE LOWER(?)", pattern))
	}

	// Meetings and deadlines are separate permission modules, so the scope
	// restriction is computed per item type and the two are ORed together.
	var scopeClause *gorm.DB

	for _, itemType := range []string{models.ItemTypeMeeting, models.ItemTypeDeadline} {
		if typeFilter != "" && typeFilter != itemType {
			continue
		}

		clause := db.DB.Where("calendar_items.type = ?", itemType)

		module := permissions.ModuleForItemType(itemType)

		if permissions.ScopeFor(currentUser.ID, currentUser.Role, module) == permissions.ScopeOwned {
			clause = clause.Where(permissions.OwnedCalendarCondition(currentUser.ID))
		}

		if scopeClause == nil {
			scopeClause = clause
		} else {
			scopeClause = scopeClause.Or(clause)
		}
	}

	query = query.Where(scopeClause)

	var items []models.CalendarItem

	if err := query.Order("start_at ASC, title ASC").Limit(limit).Find(&items).Error; err != nil {
		log.Printf("Failed to list calendar items: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	response := make([]CalendarItemResponse, 0, len(items))

	for i := range items {
		response = append(response, calendarItemResponse(&items[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{"items": response})
}

func validateItemTimes(startAt time.Time, endAt *time.Time) error {
	if endAt != nil && endAt.Before(startAt) {
		return fmt.Errorf("end_at must not be before start_at")
	}
	return nil
}

// buildParticipants validates the payload participants and returns the rows
// to attach. Referenced users must exist; a user may appear only once.
func buildParticipants(inputs []ParticipantInput) ([]models.Participant, error) {
	seen := make(map[uint]bool, len(inputs))
	rows := make([]models.Participant, 0, len(inputs))

	for _, input := range inputs {
		if seen[input.UserID] {
			return nil, fmt.Errorf("participant user %d listed more than once", input.UserID)
		}
		seen[input.UserID] = true

		var user models.User

		if err := db.DB.Select("id").First(&user, input.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("participant user %d does not exist", input.UserID)
			}
			return nil, err
		}

		role := input.Role
		if role == "" {
			role = models.ParticipantRoleParticipant
		}

		rows = append(rows, models.Participant{
			UserID: input.UserID,
			Role:   role,
			RSVP:   input.RSVP,
		})
	}

	return rows, nil
}

func CreateCalendarItem(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		utils.RespondError(ctx, http.StatusUnauthorized, types.ErrUnauthorized, "User not authenticated")
		return
	}

	var body CreateCalendarItemRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	if err := validateItemTimes(body.StartAt, body.EndAt); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	participants, err := buildParticipants(body.Participants)

	if err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	status := body.Status
	if status == "" {
		status = models.ItemStatusDraft
	}

	item := models.CalendarItem{
		Type:        body.Type,
		Title:       body.Title,
		Description: body.Description,
		StartAt:     body.StartAt,
		EndAt:       body.EndAt,
		AllDay:      body.AllDay,
		Status:      status,
		Location:    body.Location,
		// Owner is always the caller, whatever the payload claimed.
		CreatedByID:  currentUser.ID,
		Participants: participants,
	}

	if err := db.DB.Create(&item).Error; err != nil {
		log.Printf("Failed to create calendar item: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	if err := db.DB.Preload("Participants").Preload("Participants.User").Preload("CreatedBy").
		First(&item, item.ID).Error; err != nil {
		log.Printf("Failed to reload calendar item %d: %v", item.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, calendarItemResponse(&item))
}

func UpdateCalendarItem(ctx *gin.Context) {
	var item models.CalendarItem
	itemID := ctx.Param("id")

	if err := db.DB.Preload("Participants").First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondNotFound(ctx, "Calendar item not found")
		} else {
			log.Printf("Failed to load calendar item %s: %v", itemID, err)
			utils.RespondInternalError(ctx)
		}
		return
	}

	var body UpdateCalendarItemRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	if body.Type != nil {
		item.Type = *body.Type
	}
	if body.Title != nil {
		item.Title = *body.Title
	}
	if body.Description != nil {
		item.Description = *body.Description
	}
	if body.StartAt != nil {
		item.StartAt = *body.StartAt
	}
	if body.EndAt != nil {
		item.EndAt = body.EndAt
	}
	if body.AllDay != nil {
		item.AllDay = *body.AllDay
	}
	if body.Status != nil {
		item.Status = *body.Status
	}
	if body.Location != nil {
		item.Location = *body.Location
	}

	if err := validateItemTimes(item.StartAt, item.EndAt); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	var newParticipants []models.Participant

	if body.Participants != nil {
		var err error
		newParticipants, err = buildParticipants(*body.Participants)
		if err != nil {
			utils.RespondValidationError(ctx, err)
			return
		}
	}

	// Participant replacement and the field update commit or roll back
	// together, so a failure cannot leave the item with half a roster.
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if body.Participants != nil {
			// Hard delete: a soft-deleted row would still occupy the
			// (item, user) unique index and block re-adding the same user.
			if err := tx.Unscoped().Where("item_id = ?", item.ID).Delete(&models.Participant{}).Error; err != nil {
				return err
			}

			for i := range newParticipants {
				newParticipants[i].ItemID = item.ID
				if err := tx.Create(&newParticipants[i]).Error; err != nil {
					return err
				}
			}
		}

		item.Participants = nil

		return tx.Omit("Participants", "CreatedBy").Save(&item).Error
	})

	if err != nil {
		log.Printf("Failed to update calendar item %d: %v", item.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	if err := db.DB.Preload("Participants").Preload("Participants.User").Preload("CreatedBy").
		First(&item, item.ID).Error; err != nil {
		log.Printf("Failed to reload calendar item %d: %v", item.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, calendarItemResponse(&item))
}

func DeleteCalendarItem(ctx *gin.Context) {
	var item models.CalendarItem
	itemID := ctx.Param("id")

	if err := db.DB.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondNotFound(ctx, "Calendar item not found")
		} else {
			log.Printf("Failed to load calendar item %s: %v", itemID, err)
			utils.RespondInternalError(ctx)
		}
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("item_id = ?", item.ID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})

	if err != nil {
		log.Printf("Failed to delete calendar item %d: %v", item.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.Status(http.StatusNoContent)
}
