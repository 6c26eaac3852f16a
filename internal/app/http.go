package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentline-backend/internal/http"
	httpH "github.com/yungbote/contentline-backend/internal/http/handlers"
	httpMW "github.com/yungbote/contentline-backend/internal/http/middleware"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Version    *httpH.VersionHandler
	Assignment *httpH.AssignmentHandler
}

func wireHandlers(log *logger.Logger, services Services, health httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(health),
		Version:    httpH.NewVersionHandler(services.Content),
		Assignment: httpH.NewAssignmentHandler(services.Content),
	}
}

// RouterOptions are the HTTP-facing settings of Config.
type RouterOptions struct {
	JWTSecretKey string
	CORSOrigins  []string
	ServiceName  string
	Metrics      *observability.Metrics
	Health       httpH.Pinger
}

func (c Config) routerOptions(metrics *observability.Metrics, health httpH.Pinger) RouterOptions {
	opts := RouterOptions{
		JWTSecretKey: c.JWTSecretKey,
		CORSOrigins:  c.CORSOrigins,
		Metrics:      metrics,
		Health:       health,
	}
	if c.OtelEnabled {
		opts.ServiceName = c.OtelServiceName
	}
	return opts
}

// NewRouter wires handlers and middleware over an already built service stack.
func NewRouter(log *logger.Logger, services Services, opts RouterOptions) *gin.Engine {
	handlers := wireHandlers(log, services, opts.Health)
	return http.NewRouter(http.RouterConfig{
		Log:               log,
		Metrics:           opts.Metrics,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, opts.JWTSecretKey),
		CORSOrigins:       opts.CORSOrigins,
		ServiceName:       opts.ServiceName,
		HealthHandler:     handlers.Health,
		VersionHandler:    handlers.Version,
		AssignmentHandler: handlers.Assignment,
	})
}
