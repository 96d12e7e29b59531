package router

import (
	"time"

	"github.com/crewcal-dev/crewcal/internal/handlers"
	"github.com/crewcal-dev/crewcal/internal/middleware"
	"github.com/crewcal-dev/crewcal/internal/ratelimit"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the API. The rate-limit store is injected so tests can
// substitute their own.
func NewRouter(limiter ratelimit.Store) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		strictLimit := middleware.RateLimit(limiter, middleware.AuthTierName, middleware.AuthTierLimit)
		moderateLimit := middleware.RateLimit(limiter, middleware.APITierName, middleware.APITierLimit)

		auth := api.Group("/auth")
		{
			auth.POST("/register", strictLimit, handlers.Register)
			auth.POST("/login", strictLimit, handlers.Login)
			auth.POST("/logout", moderateLimit, handlers.Logout)
			auth.GET("/me", moderateLimit, middleware.AuthMiddleware(), handlers.Me)
		}

		authenticated := api.Group("", moderateLimit, middleware.AuthMiddleware())
		{
			authenticated.GET("/users", handlers.ListUsers)

			authenticated.GET("/calendar-items", handlers.ListCalendarItems)
			authenticated.GET("/schedule-entries", handlers.ListScheduleEntries)

			// Every mutation is admin-only; per-module permission levels only
			// shape read scoping.
			admin := authenticated.Group("", middleware.RequireAdmin())
			{
				admin.POST("/calendar-items", handlers.CreateCalendarItem)
				admin.PATCH("/calendar-items/:id", handlers.UpdateCalendarItem)
				admin.DELETE("/calendar-items/:id", handlers.DeleteCalendarItem)

				admin.POST("/schedule-entries", handlers.CreateScheduleEntry)
				admin.PATCH("/schedule-entries/:id", handlers.UpdateScheduleEntry)
				admin.DELETE("/schedule-entries/:id", handlers.DeleteScheduleEntry)

				admin.GET("/admin/permissions", handlers.ListUserPermissions)
				admin.PUT("/admin/permissions/:user_id", handlers.UpdateUserPermissions)
			}
		}
	}

	return r
}
