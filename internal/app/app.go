package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/contentline-backend/internal/http"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads configuration and wires the whole service. Callers must Close it.
func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg.Log(log)
	return NewWithConfig(log, cfg)
}

func NewWithConfig(log *logger.Logger, cfg Config) (*App, error) {
	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.New(log)
		metrics.SetScrapeInterval(cfg.MetricsScrapeInterval)
	}

	serviceset, err := WireServices(clients.DB, log, cfg.serviceOptions(clients, metrics))
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	sqlDB, err := clients.DB.DB()
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, fmt.Errorf("access db pool: %w", err)
	}
	router := NewRouter(log, serviceset, cfg.routerOptions(metrics, sqlDB))

	return &App{
		Log:      log,
		DB:       clients.DB,
		Router:   router,
		Cfg:      cfg,
		Clients:  clients,
		Services: serviceset,
		Metrics:  metrics,
	}, nil
}

// Start launches background collectors and tracing.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		Enabled:     a.Cfg.OtelEnabled,
		ServiceName: a.Cfg.OtelServiceName,
		Environment: a.Cfg.OtelEnvironment,
		Version:     a.Cfg.OtelVersion,
		Endpoint:    a.Cfg.OtelEndpoint,
		Headers:     a.Cfg.OtelHeaders,
		Insecure:    a.Cfg.OtelInsecure,
		SampleRatio: a.Cfg.OtelSampleRatio,
	})

	if a.Metrics != nil {
		if a.Cfg.DatabaseURL != "" {
			a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		}
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis.Client())
		}
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Serving HTTP", "addr", a.Cfg.HTTPAddr)
	return (&http.Server{Engine: a.Router}).Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
