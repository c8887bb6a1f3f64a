package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/middleware"
)

// Handlers groups every HTTP handler of the portal.
type Handlers struct {
	Auth          *AuthHandler
	Nonfiction    *NonfictionHandler
	Support       *SupportHandler
	Announcements *AnnouncementHandler
	Metrics       *MetricsHandler
}

// SetupRoutes registers probes at the root and the API under prefix.
func (h *Handlers) SetupRoutes(router *gin.Engine, prefix string, tokens middleware.TokenValidator) {
	router.GET("/health", h.Metrics.Health)
	router.GET("/ready", h.Metrics.Ready)
	router.GET("/metrics", h.Metrics.Prometheus)

	api := router.Group(prefix)
	requireAuth := middleware.JWT(tokens)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/register", h.Auth.Register)
	api.GET("/auth/me", requireAuth, h.Auth.Me)
	api.GET("/announcements", middleware.OptionalJWT(tokens), h.Announcements.List)

	nonfiction := api.Group("/nonfiction", requireAuth)
	{
		nonfiction.GET("/tests", h.Nonfiction.ListTests)
		nonfiction.GET("/tests/:id", h.Nonfiction.GetTest)
		nonfiction.POST("/tests/:id/submit", h.Nonfiction.Submit)
		nonfiction.GET("/results", h.Nonfiction.ListResults)
		nonfiction.GET("/results/:testId/:resultId", h.Nonfiction.ResultDetail)
		nonfiction.GET("/results/:testId/:resultId/report.pdf", h.Nonfiction.ResultReport)
	}

	support := api.Group("/support", requireAuth)
	{
		support.POST("/tickets", h.Support.Create)
		support.GET("/tickets", h.Support.List)
		support.GET("/tickets/:id", h.Support.Get)
		support.POST("/tickets/:id/reply", h.Support.Reply)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireAdmin())
	{
		tests := admin.Group("/nonfiction-tests")
		tests.POST("", h.Nonfiction.CreateTest)
		tests.GET("", h.Nonfiction.AdminListTests)
		tests.DELETE("/:id", h.Nonfiction.DeleteTest)
		tests.GET("/:id/results", h.Nonfiction.AdminTestResults)
		tests.GET("/:id/results.xlsx", h.Nonfiction.ExportResultsXLSX)
		tests.GET("/:id/results.csv", h.Nonfiction.ExportResultsCSV)

		admin.GET("/support", h.Support.AdminList)

		announcements := admin.Group("/announcements")
		announcements.GET("", h.Announcements.AdminList)
		announcements.POST("", h.Announcements.Create)
		announcements.GET("/:id", h.Announcements.Get)
		announcements.PUT("/:id", h.Announcements.Update)
		announcements.DELETE("/:id", h.Announcements.Delete)
		announcements.POST("/:id/toggle", h.Announcements.Toggle)

		admin.GET("/metrics/summary", h.Metrics.Summary)
	}
}
