package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/hall-adp-api/internal/handler"
	"github.com/noah-isme/hall-adp-api/internal/middleware"
	"github.com/noah-isme/hall-adp-api/internal/models"
	"github.com/noah-isme/hall-adp-api/pkg/config"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type routeHandlers struct {
	auth       *handler.AuthHandler
	rooms      *handler.RoomHandler
	allotments *handler.AllotmentHandler
	reports    *handler.ReportHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, tokens tokenValidator, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.POST("/auth/logout", h.auth.Logout)
	secured.GET("/auth/me", h.auth.Me)
	secured.GET("/room-availability/:floor/:block", h.rooms.Availability)
	secured.GET("/room-layout/:block/:roomNo", h.rooms.Layout)

	student := secured.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	student.POST("/apply", h.allotments.Apply)
	student.POST("/change", h.allotments.Change)
	student.POST("/edit-request/:id", h.allotments.EditRequest)
	student.POST("/cancel-request/:id", h.allotments.CancelRequest)
	student.GET("/student-status", h.allotments.StudentStatus)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/admin-action/:id", h.allotments.AdminAction)
	admin.POST("/allocate-by-admin/:id", h.allotments.AllocateByAdmin)
	admin.GET("/admin/requests", h.allotments.List)
	admin.GET("/admin/requests/:id", h.allotments.Get)
	admin.POST("/admin/deallocate/:studentId", h.allotments.Deallocate)
	admin.POST("/admin/bulk-deallocate", h.allotments.BulkDeallocate)
	admin.GET("/admin/occupancy-report", h.reports.Occupancy)
	admin.GET("/admin/system-metrics", h.metrics.SystemMetrics)
}
