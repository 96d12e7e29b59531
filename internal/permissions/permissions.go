package permissions

import (
	"errors"
	"log"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/models"
	"gorm.io/gorm"
)

type Module string

const (
	ModuleMeetings  Module = "meetings"
	ModuleDeadlines Module = "deadlines"
	ModuleSchedule  Module = "schedule"
)

var Modules = []Module{ModuleMeetings, ModuleDeadlines, ModuleSchedule}

type Level string

const (
	LevelNone Level = "NONE"
	LevelView Level = "VIEW"
	LevelEdit Level = "EDIT"
)

var levelRank = map[Level]int{
	LevelNone: 0,
	LevelView: 1,
	LevelEdit: 2,
}

func (l Level) AtLeast(required Level) bool {
	return levelRank[l] >= levelRank[required]
}

func ValidModule(module string) bool {
	for _, m := range Modules {
		if string(m) == module {
			return true
		}
	}
	return false
}

func ValidLevel(level string) bool {
	_, ok := levelRank[Level(level)]
	return ok
}

// ModuleForItemType maps a calendar item type to its permission module.
func ModuleForItemType(itemType string) Module {
	if itemType == models.ItemTypeDeadline {
		return ModuleDeadlines
	}
	return ModuleMeetings
}

// Scope is the query restriction a list operation must apply.
type Scope int

const (
	// ScopeUnrestricted places no ownership condition on the query.
	ScopeUnrestricted Scope = iota
	// ScopeOwned restricts the query to rows the user created or, for
	// calendar modules, participates in.
	ScopeOwned
)

// Levels returns the user's effective levels for a module. A missing
// permission row means NONE/NONE; database errors degrade to NONE/NONE rather
// than failing the request open.
func Levels(userID uint, module Module) (Level, Level) {
	var permission models.Permission

	err := db.DB.Where("user_id = ? AND module = ?", userID, module).First(&permission).Error

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load permission for user %d module %s: %v", userID, module, err)
		}
		return LevelNone, LevelNone
	}

	return Level(permission.MyLevel), Level(permission.AllLevel)
}

// ScopeFor computes the list scope for a user in a module. Admins always see
// everything; otherwise visibility of other users' rows requires allLevel of
// at least VIEW.
func ScopeFor(userID uint, role string, module Module) Scope {
	if role == models.RoleAdmin {
		return ScopeUnrestricted
	}

	_, allLevel := Levels(userID, module)

	if allLevel.AtLeast(LevelView) {
		return ScopeUnrestricted
	}

	return ScopeOwned
}

// CanView reports whether a user may read a single calendar item: its
// creator, any participant, and anyone whose allLevel reaches VIEW.
func CanView(userID uint, role string, item *models.CalendarItem) bool {
	if role == models.RoleAdmin || item.CreatedByID == userID {
		return true
	}

	for _, participant := range item.Participants {
		if participant.UserID == userID {
			return true
		}
	}

	_, allLevel := Levels(userID, ModuleForItemType(item.Type))

	return allLevel.AtLeast(LevelView)
}

// CanEdit mirrors CanView for EDIT level. Mutation routes are currently
// admin-gated at the router, so this is not consulted there; it exists so
// per-module write checks can be wired into routes without touching handlers.
func CanEdit(userID uint, role string, ownerID uint, module Module) bool {
	if role == models.RoleAdmin {
		return true
	}

	myLevel, allLevel := Levels(userID, module)

	if ownerID == userID {
		return myLevel.AtLeast(LevelEdit)
	}

	return allLevel.AtLeast(LevelEdit)
}

// OwnedCalendarCondition is the ScopeOwned restriction for calendar items:
// created by the user or listing them as a participant.
func OwnedCalendarCondition(userID uint) *gorm.DB {
	participating := db.DB.Model(&models.Participant{}).
		Select("item_id").
		Where("user_id = ?", userID)

	return db.DB.Where("calendar_items.created_by_id = ?", userID).
		Or("calendar_items.id IN (?)", participating)
}

// OwnedScheduleCondition is the ScopeOwned restriction for schedule entries:
// the user's own shifts or entries the user created.
func OwnedScheduleCondition(userID uint) *gorm.DB {
	return db.DB.Where("schedule_entries.user_id = ?", userID).
		Or("schedule_entries.created_by_id = ?", userID)
}
