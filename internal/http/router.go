package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/contentline-backend/internal/http/handlers"
	httpMW "github.com/yungbote/contentline-backend/internal/http/middleware"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware
	CORSOrigins    []string
	// ServiceName enables otelgin spans when non-empty.
	ServiceName string

	VersionHandler    *httpH.VersionHandler
	AssignmentHandler *httpH.AssignmentHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Versions
		if cfg.VersionHandler != nil {
			api.POST("/versions", cfg.VersionHandler.Create)
			api.GET("/versions/:ref", cfg.VersionHandler.Get)
			api.DELETE("/versions/:ref", cfg.VersionHandler.Delete)
			api.GET("/versions/:ref/ancestry", cfg.VersionHandler.Ancestry)
			api.GET("/versions/:ref/content", cfg.VersionHandler.Content)
			api.PUT("/versions/:ref/files/:class_id", cfg.VersionHandler.PutFile)
			api.DELETE("/versions/:ref/files/:class_id", cfg.VersionHandler.RemoveFile)
			api.POST("/versions/:ref/withdrawals/:class_id", cfg.VersionHandler.Withdraw)
			api.POST("/versions/:ref/finalize", cfg.VersionHandler.Finalize)
			api.GET("/versions/:ref/changes", cfg.VersionHandler.Changes)
			api.PATCH("/versions/:ref/parent", cfg.VersionHandler.Reparent)
			api.PATCH("/versions/:ref/status", cfg.VersionHandler.SetStatus)
			api.GET("/cohorts/:cohort_id/modules/:module_id/versions", cfg.VersionHandler.ListForLineage)
		}

		// Assignments
		if cfg.AssignmentHandler != nil {
			api.POST("/assignments", cfg.AssignmentHandler.Assign)
			api.GET("/assignments/:id", cfg.AssignmentHandler.Get)
			api.PUT("/assignments/:id/version", cfg.AssignmentHandler.AdvanceVersion)
			api.PUT("/assignments/:id/status", cfg.AssignmentHandler.SetStatus)
			api.GET("/cohorts/:cohort_id/modules/:module_id/assignment", cfg.AssignmentHandler.GetForPair)
		}
	}

	return r
}
