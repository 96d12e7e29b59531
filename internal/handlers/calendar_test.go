package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calendarItemBody struct {
	ID        uint   `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedBy struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	} `json:"created_by"`
	Participants []struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
		RSVP   string `json:"rsvp"`
	} `json:"participants"`
}

type calendarListBody struct {
	Items []calendarItemBody `json:"items"`
}

func createItem(t *testing.T, owner models.User, itemType, title string, startAt time.Time) models.CalendarItem {
	t.Helper()

	item := models.CalendarItem{
		Type:        itemType,
		Title:       title,
		StartAt:     startAt,
		Status:      models.ItemStatusConfirmed,
		CreatedByID: owner.ID,
	}
	require.NoError(t, db.DB.Create(&item).Error)

	return item
}

func TestCreateCalendarItemForcesOwner(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")
	other := createUser(t, models.RoleUser, "pw")

	recorder := doRequest(t, r, http.MethodPost, "/api/calendar-items", map[string]interface{}{
		"type":     models.ItemTypeMeeting,
		"title":    "Planning",
		"start_at": time.Now().Format(time.RFC3339),
		// Spoofed owner; must be ignored in favor of the caller.
		"created_by_id": other.ID,
	}, sessionCookie(t, admin))

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var body calendarItemBody
	decodeBody(t, recorder, &body)

	assert.Equal(t, admin.ID, body.CreatedBy.ID, "owner must be the authenticated admin")

	var stored models.CalendarItem
	require.NoError(t, db.DB.First(&stored, body.ID).Error)
	assert.Equal(t, admin.ID, stored.CreatedByID)
}

func TestCreateCalendarItemRejectsUnknownFields(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")

	recorder := doRequest(t, r, http.MethodPost, "/api/calendar-items", map[string]interface{}{
		"type":          models.ItemTypeMeeting,
		"title":         "Planning",
		"start_at":      time.Now().Format(time.RFC3339),
		"garbage_field": "x",
	}, sessionCookie(t, admin))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateCalendarItemWithParticipants(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")
	attendee := createUser(t, models.RoleUser, "pw")

	recorder := doRequest(t, r, http.MethodPost, "/api/calendar-items", map[string]interface{}{
		"type":     models.ItemTypeMeeting,
		"title":    "Kickoff",
		"start_at": time.Now().Format(time.RFC3339),
		"participants": []map[string]interface{}{
			{"user_id": attendee.ID, "role": models.ParticipantRoleResponsible, "rsvp": models.RSVPYes},
		},
	}, sessionCookie(t, admin))

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var body calendarItemBody
	decodeBody(t, recorder, &body)

	require.Len(t, body.Participants, 1)
	assert.Equal(t, attendee.ID, body.Participants[0].UserID)
	assert.Equal(t, models.ParticipantRoleResponsible, body.Participants[0].Role)
	assert.Equal(t, models.RSVPYes, body.Participants[0].RSVP)
}

func TestCreateCalendarItemUnknownParticipantRejected(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")

	recorder := doRequest(t, r, http.MethodPost, "/api/calendar-items", map[string]interface{}{
		"type":     models.ItemTypeMeeting,
		"title":    "Kickoff",
		"start_at": time.Now().Format(time.RFC3339),
		"participants": []map[string]interface{}{
			{"user_id": 9999},
		},
	}, sessionCookie(t, admin))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateCalendarItemEndBeforeStartRejected(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")

	start := time.Now()
	end := start.Add(-time.Hour)

	recorder := doRequest(t, r, http.MethodPost, "/api/calendar-items", map[string]interface{}{
		"type":     models.ItemTypeMeeting,
		"title":    "Backwards",
		"start_at": start.Format(time.RFC3339),
		"end_at":   end.Format(time.RFC3339),
	}, sessionCookie(t, admin))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestMutationsRequireAdminRegardlessOfOwnership(t *testing.T) {
	r := setupRouter(t)
	user := createUser(t, models.RoleUser, "pw")
	item := createItem(t, user, models.ItemTypeMeeting, "Own meeting", time.Now())
	cookie := sessionCookie(t, user)

	recorder := doRequest(t, r, http.MethodPost, "/api/calendar-items", map[string]interface{}{
		"type":     models.ItemTypeMeeting,
		"title":    "New",
		"start_at": time.Now().Format(time.RFC3339),
	}, cookie)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/calendar-items/%d", item.ID),
		map[string]interface{}{"title": "Renamed"}, cookie)
	assert.Equal(t, http.StatusForbidden, recorder.Code, "owning the record does not bypass the admin gate")

	recorder = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/calendar-items/%d", item.ID), nil, cookie)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestListScopesOutOtherUsersItems(t *testing.T) {
	r := setupRouter(t)
	owner := createUser(t, models.RoleUser, "pw")
	viewer := createUser(t, models.RoleUser, "pw")

	createItem(t, owner, models.ItemTypeMeeting, "Private meeting", time.Now())
	mine := createItem(t, viewer, models.ItemTypeMeeting, "My meeting", time.Now())

	recorder := doRequest(t, r, http.MethodGet, "/api/calendar-items", nil, sessionCookie(t, viewer))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body calendarListBody
	decodeBody(t, recorder, &body)

	require.Len(t, body.Items, 1, "allLevel NONE must hide other users' items even in a matching range")
	assert.Equal(t, mine.ID, body.Items[0].ID)
}

func TestListIncludesParticipatedItems(t *testing.T) {
	r := setupRouter(t)
	owner := createUser(t, models.RoleUser, "pw")
	attendee := createUser(t, models.RoleUser, "pw")

	item := createItem(t, owner, models.ItemTypeMeeting, "Shared meeting", time.Now())
	require.NoError(t, db.DB.Create(&models.Participant{
		ItemID: item.ID,
		UserID: attendee.ID,
		Role:   models.ParticipantRoleParticipant,
	}).Error)

	createItem(t, owner, models.ItemTypeMeeting, "Unrelated meeting", time.Now())

	recorder := doRequest(t, r, http.MethodGet, "/api/calendar-items", nil, sessionCookie(t, attendee))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body calendarListBody
	decodeBody(t, recorder, &body)

	require.Len(t, body.Items, 1)
	assert.Equal(t, item.ID, body.Items[0].ID)
}

func TestListAllLevelViewSeesEverything(t *testing.T) {
	r := setupRouter(t)
	owner := createUser(t, models.RoleUser, "pw")
	viewer := createUser(t, models.RoleUser, "pw")
	grantPermission(t, viewer.ID, "meetings", "NONE", "VIEW")

	createItem(t, owner, models.ItemTypeMeeting, "Team sync", time.Now())

	recorder := doRequest(t, r, http.MethodGet, "/api/calendar-items", nil, sessionCookie(t, viewer))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body calendarListBody
	decodeBody(t, recorder, &body)

	assert.Len(t, body.Items, 1)
}

func TestListScopesModulesIndependently(t *testing.T) {
	r := setupRouter(t)
	owner := createUser(t, models.RoleUser, "pw")
	viewer := createUser(t, models.RoleUser, "pw")
	// VIEW on meetings only; deadlines stay hidden.
	grantPermission(t, viewer.ID, "meetings", "NONE", "VIEW")

	createItem(t, owner, models.ItemTypeMeeting, "Visible meeting", time.Now())
	createItem(t, owner, models.ItemTypeDeadline, "Hidden deadline", time.Now())

	recorder := doRequest(t, r, http.MethodGet, "/api/calendar-items", nil, sessionCookie(t, viewer))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body calendarListBody
	decodeBody(t, recorder, &body)

	require.Len(t, body.Items, 1)
	assert.Equal(t, models.ItemTypeMeeting, body.Items[0].Type)
}

func TestListFiltersAndOrdering(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	createItem(t, admin, models.ItemTypeMeeting, "Beta review", base.Add(2*time.Hour))
	createItem(t, admin, models.ItemTypeMeeting, "Alpha review", base.Add(2*time.Hour))
	createItem(t, admin, models.ItemTypeDeadline, "Ship it", base)
	createItem(t, admin, models.ItemTypeMeeting, "Out of range", base.Add(72*time.Hour))

	path := fmt.Sprintf("/api/calendar-items?from=%s&to=%s",
		base.Add(-time.Hour).Format(time.RFC3339),
		base.Add(24*time.Hour).Format(time.RFC3339))

	recorder := doRequest(t, r, http.MethodGet, path, nil, sessionCookie(t, admin))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body calendarListBody
	decodeBody(t, recorder, &body)

	require.Len(t, body.Items, 3)
	assert.Equal(t, "Ship it", body.Items[0].Title)
	assert.Equal(t, "Alpha review", body.Items[1].Title, "ties on start break on title")
	assert.Equal(t, "Beta review", body.Items[2].Title)

	// Type filter.
	recorder = doRequest(t, r, http.MethodGet, "/api/calendar-items?type=DEADLINE", nil, sessionCookie(t, admin))
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeBody(t, recorder, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Ship it", body.Items[0].Title)

	// Text search.
	recorder = doRequest(t, r, http.MethodGet, "/api/calendar-items?search=alpha", nil, sessionCookie(t, admin))
	require.Equal(t, http.StatusOK, recorder.Code)
	decodeBody(t, recorder, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Alpha review", body.Items[0].Title)
}

func TestListRejectsOversizedLimit(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")

	recorder := doRequest(t, r, http.MethodGet, "/api/calendar-items?limit=1001", nil, sessionCookie(t, admin))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, r, http.MethodGet, "/api/calendar-items?limit=1000", nil, sessionCookie(t, admin))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpdateCalendarItemPartialAndOwnerImmutable(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")
	item := createItem(t, admin, models.ItemTypeMeeting, "Before", time.Now())

	recorder := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/calendar-items/%d", item.ID),
		map[string]interface{}{"title": "After", "status": models.ItemStatusCancelled},
		sessionCookie(t, admin))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body calendarItemBody
	decodeBody(t, recorder, &body)
	assert.Equal(t, "After", body.Title)
	assert.Equal(t, models.ItemStatusCancelled, body.Status)

	// The owner field is not part of the update schema at all.
	recorder = doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/calendar-items/%d", item.ID),
		map[string]interface{}{"created_by_id": 424242}, sessionCookie(t, admin))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var stored models.CalendarItem
	require.NoError(t, db.DB.First(&stored, item.ID).Error)
	assert.Equal(t, admin.ID, stored.CreatedByID)
}

func TestUpdateCalendarItemReplacesParticipants(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")
	first := createUser(t, models.RoleUser, "pw")
	second := createUser(t, models.RoleUser, "pw")

	item := createItem(t, admin, models.ItemTypeMeeting, "Roster", time.Now())
	require.NoError(t, db.DB.Create(&models.Participant{ItemID: item.ID, UserID: first.ID}).Error)

	recorder := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/calendar-items/%d", item.ID),
		map[string]interface{}{
			"participants": []map[string]interface{}{
				{"user_id": second.ID, "role": models.ParticipantRoleOwner},
			},
		}, sessionCookie(t, admin))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body calendarItemBody
	decodeBody(t, recorder, &body)
	require.Len(t, body.Participants, 1)
	assert.Equal(t, second.ID, body.Participants[0].UserID)

	var count int64
	require.NoError(t, db.DB.Model(&models.Participant{}).Where("item_id = ?", item.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "replacement is all-or-nothing")
}

func TestUpdateMissingCalendarItemReturns404(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")

	recorder := doRequest(t, r, http.MethodPatch, "/api/calendar-items/9999",
		map[string]interface{}{"title": "Ghost"}, sessionCookie(t, admin))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeleteCalendarItemCascadesParticipants(t *testing.T) {
	r := setupRouter(t)
	admin := createUser(t, models.RoleAdmin, "pw")
	attendee := createUser(t, models.RoleUser, "pw")

	item := createItem(t, admin, models.ItemTypeMeeting, "Doomed", time.Now())
	require.NoError(t, db.DB.Create(&models.Participant{ItemID: item.ID, UserID: attendee.ID}).Error)

	recorder := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/calendar-items/%d", item.ID), nil, sessionCookie(t, admin))
	require.Equal(t, http.StatusNoContent, recorder.Code)

	var count int64
	require.NoError(t, db.DB.Model(&models.Participant{}).Where("item_id = ?", item.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	recorder = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/calendar-items/%d", item.ID), nil, sessionCookie(t, admin))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
