package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/crewcal-dev/crewcal/internal/permissions"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/crewcal-dev/crewcal/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateScheduleEntryRequest struct {
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	UserID      uint   `json:"user_id" binding:"required"`
	StartMinute *int   `json:"start_minute" binding:"required,min=0,max=1440"`
	EndMinute   *int   `json:"end_minute" binding:"required,min=0,max=1440"`
	Note        string `json:"note"`
}

type UpdateScheduleEntryRequest struct {
	Date        *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	UserID      *uint   `json:"user_id"`
	StartMinute *int    `json:"start_minute" binding:"omitempty,min=0,max=1440"`
	EndMinute   *int    `json:"end_minute" binding:"omitempty,min=0,max=1440"`
	Note        *string `json:"note"`
}

type ScheduleEntryResponse struct {
	ID          uint              `json:"id"`
	Date        string            `json:"date"`
	UserID      uint              `json:"user_id"`
	UserName    string            `json:"user_name"`
	StartMinute int               `json:"start_minute"`
	EndMinute   int               `json:"end_minute"`
	Note        string            `json:"note"`
	CreatedBy   CreatedByResponse `json:"created_by"`
}

func scheduleEntryResponse(entry *models.ScheduleEntry) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		ID:          entry.ID,
		Date:        time.Time(entry.Date).Format("2006-01-02"),
		UserID:      entry.UserID,
		UserName:    entry.User.Name,
		StartMinute: entry.StartMinute,
		EndMinute:   entry.EndMinute,
		Note:        entry.Note,
		CreatedBy:   CreatedByResponse{ID: entry.CreatedBy.ID, Name: entry.CreatedBy.Name},
	}
}

func parseDay(value string) (datatypes.Date, error) {
	day, err := time.Parse("2006-01-02", value)

	if err != nil {
		return datatypes.Date{}, fmt.Errorf("date must be formatted as YYYY-MM-DD")
	}

	return datatypes.Date(day), nil
}

func validateShiftTimes(startMinute, endMinute int) error {
	if endMinute <= startMinute {
		return fmt.Errorf("end_minute must be greater than start_minute")
	}
	return nil
}

// scheduleConflictExists is a fast-path check for the (date, user) uniqueness
// rule. The unique index remains the authoritative guard; this only turns the
// common case into a clean 409 before the insert.
func scheduleConflictExists(date datatypes.Date, userID uint, excludeID uint) (bool, error) {
	query := db.DB.Model(&models.ScheduleEntry{}).
		Where("date = ? AND user_id = ?", date, userID)

	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}

	var count int64

	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func ListScheduleEntries(ctx *gin.Context) {
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

	dateParam := ctx.Query("date")

	if dateParam == "" {
		utils.RespondValidationError(ctx, fmt.Errorf("date query parameter is required"))
		return
	}

	date, err := parseDay(dateParam)

	if err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	query := db.DB.Model(&models.ScheduleEntry{}).
		Preload("User").
		Preload("CreatedBy").
		Where("date = ?", date)

	if permissions.ScopeFor(currentUser.ID, currentUser.Role, permissions.ModuleSchedule) == permissions.ScopeOwned {
		query = query.Where(permissions.OwnedScheduleCondition(currentUser.ID))
	}

	var entries []models.ScheduleEntry

	if err := query.Joins("JOIN users ON users.id = schedule_entries.user_id").
		Order("schedule_entries.start_minute ASC, users.name ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		log.Printf("Failed to list schedule entries: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	response := make([]ScheduleEntryResponse, 0, len(entries))

	for i := range entries {
		response = append(response, scheduleEntryResponse(&entries[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{"entries": response})
}

func CreateScheduleEntry(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		utils.RespondError(ctx, http.StatusUnauthorized, types.ErrUnauthorized, "User not authenticated")
		return
	}

	var body CreateScheduleEntryRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	if err := validateShiftTimes(*body.StartMinute, *body.EndMinute); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	date, err := parseDay(body.Date)

	if err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	var shiftUser models.User

	if err := db.DB.First(&shiftUser, body.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondValidationError(ctx, fmt.Errorf("user %d does not exist", body.UserID))
		} else {
			log.Printf("Failed to load user %d: %v", body.UserID, err)
			utils.RespondInternalError(ctx)
		}
		return
	}

	conflict, err := scheduleConflictExists(date, body.UserID, 0)

	if err != nil {
		log.Printf("Failed to check schedule conflict: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	if conflict {
		utils.RespondError(ctx, http.StatusConflict, types.ErrConflict, "User already has a schedule entry for this date")
		return
	}

	entry := models.ScheduleEntry{
		Date:        date,
		UserID:      body.UserID,
		StartMinute: *body.StartMinute,
		EndMinute:   *body.EndMinute,
		Note:        body.Note,
		CreatedByID: currentUser.ID,
	}

	if err := db.DB.Create(&entry).Error; err != nil {
		// Two admins can race past the pre-check; the unique index settles it.
		if db.IsUniqueViolation(err) {
			utils.RespondError(ctx, http.StatusConflict, types.ErrConflict, "User already has a schedule entry for this date")
			return
		}
		log.Printf("Failed to create schedule entry: %v", err)
		utils.RespondInternalError(ctx)
		return
	}

	if err := db.DB.Preload("User").Preload("CreatedBy").First(&entry, entry.ID).Error; err != nil {
		log.Printf("Failed to reload schedule entry %d: %v", entry.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, scheduleEntryResponse(&entry))
}

func UpdateScheduleEntry(ctx *gin.Context) {
	var entry models.ScheduleEntry
	entryID := ctx.Param("id")

	if err := db.DB.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondNotFound(ctx, "Schedule entry not found")
		} else {
			log.Printf("Failed to load schedule entry %s: %v", entryID, err)
			utils.RespondInternalError(ctx)
		}
		return
	}

	var body UpdateScheduleEntryRequest

	if err := utils.BindStrictJSON(ctx, &body); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	if body.Date != nil {
		date, err := parseDay(*body.Date)
		if err != nil {
			utils.RespondValidationError(ctx, err)
			return
		}
		entry.Date = date
	}

	if body.UserID != nil {
		var shiftUser models.User

		if err := db.DB.First(&shiftUser, *body.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondValidationError(ctx, fmt.Errorf("user %d does not exist", *body.UserID))
			} else {
				log.Printf("Failed to load user %d: %v", *body.UserID, err)
				utils.RespondInternalError(ctx)
			}
			return
		}

		entry.UserID = *body.UserID
	}

	if body.StartMinute != nil {
		entry.StartMinute = *body.StartMinute
	}
	if body.EndMinute != nil {
		entry.EndMinute = *body.EndMinute
	}
	if body.Note != nil {
		entry.Note = *body.Note
	}

	// Merged values are what gets persisted, so they are what gets validated.
	if err := validateShiftTimes(entry.StartMinute, entry.EndMinute); err != nil {
		utils.RespondValidationError(ctx, err)
		return
	}

	if body.Date != nil || body.UserID != nil {
		conflict, err := scheduleConflictExists(entry.Date, entry.UserID, entry.ID)

		if err != nil {
			log.Printf("Failed to check schedule conflict: %v", err)
			utils.RespondInternalError(ctx)
			return
		}

		if conflict {
			utils.RespondError(ctx, http.StatusConflict, types.ErrConflict, "User already has a schedule entry for this date")
			return
		}
	}

	if err := db.DB.Omit("User", "CreatedBy").Save(&entry).Error; err != nil {
		if db.IsUniqueViolation(err) {
			utils.RespondError(ctx, http.StatusConflict, types.ErrConflict, "User already has a schedule entry for this date")
			return
		}
		log.Printf("Failed to update schedule entry %d: %v", entry.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	if err := db.DB.Preload("User").Preload("CreatedBy").First(&entry, entry.ID).Error; err != nil {
		log.Printf("Failed to reload schedule entry %d: %v", entry.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, scheduleEntryResponse(&entry))
}

func DeleteScheduleEntry(ctx *gin.Context) {
	var entry models.ScheduleEntry
	entryID := ctx.Param("id")

	if err := db.DB.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondNotFound(ctx, "Schedule entry not found")
		} else {
			log.Printf("Failed to load schedule entry %s: %v", entryID, err)
			utils.RespondInternalError(ctx)
		}
		return
	}

	// Hard delete so the freed (date, user) slot can be reused immediately;
	// a soft-deleted row would keep occupying the unique index.
	if err := db.DB.Unscoped().Delete(&entry).Error; err != nil {
		log.Printf("Failed to delete schedule entry %d: %v", entry.ID, err)
		utils.RespondInternalError(ctx)
		return
	}

	ctx.Status(http.StatusNoContent)
}
