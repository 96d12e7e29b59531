package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/auth"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/crewcal-dev/crewcal/internal/ratelimit"
	"github.com/crewcal-dev/crewcal/internal/router"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq int

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	t.Setenv("SESSION_SECRET", "test-session-secret")
	require.NoError(t, auth.InitSessionSecret())

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.CalendarItem{},
		&models.Participant{},
		&models.ScheduleEntry{},
	))

	db.DB = conn

	limiter := ratelimit.NewInMemoryStore()
	t.Cleanup(limiter.Stop)

	return router.NewRouter(limiter)
}

func createUser(t *testing.T, role, password string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	userSeq++
	user := models.User{
		Name:         fmt.Sprintf("User %d", userSeq),
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.DB.Create(&user).Error)

	return user
}

func grantPermission(t *testing.T, userID uint, module, myLevel, allLevel string) {
	t.Helper()

	require.NoError(t, db.DB.Create(&models.Permission{
		UserID:   userID,
		Module:   module,
		MyLevel:  myLevel,
		AllLevel: allLevel,
	}).Error)
}

// sessionCookie mints a valid session cookie for a user without going through
// the login endpoint, so tests don't burn the strict auth rate budget.
func sessionCookie(t *testing.T, user models.User) *http.Cookie {
	t.Helper()

	token, err := auth.GenerateSessionToken(user.ID, user.Email)
	require.NoError(t, err)

	return &http.Cookie{Name: types.SessionCookieName, Value: token}
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if cookie != nil {
		req.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)

	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
}
