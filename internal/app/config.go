package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type Config struct {
	LogMode  string `env:"LOG_MODE" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// DatabaseURL selects Postgres; when empty the service runs on SQLite at SQLitePath.
	DatabaseURL       string        `env:"DATABASE_URL"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"contentline.db"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate       bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// RedisAddr switches per-version locks from in-process to Redis.
	RedisAddr  string        `env:"REDIS_ADDR"`
	LockPrefix string        `env:"LOCK_PREFIX" envDefault:"contentline:lock:"`
	LockTTL    time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	Neo4jURI      string `env:"NEO4J_URI"`
	Neo4jUser     string `env:"NEO4J_USER" envDefault:"neo4j"`
	Neo4jPassword string `env:"NEO4J_PASSWORD"`
	Neo4jDatabase string `env:"NEO4J_DATABASE"`

	// JWTSecretKey enables bearer auth on /api when set.
	JWTSecretKey string   `env:"JWT_SECRET_KEY"`
	CORSOrigins  []string `env:"CORS_ALLOW_ORIGINS" envSeparator:","`

	MetricsEnabled        bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsScrapeInterval time.Duration `env:"METRICS_SCRAPE_INTERVAL" envDefault:"15s"`

	OtelEnabled     bool              `env:"OTEL_ENABLED" envDefault:"false"`
	OtelServiceName string            `env:"OTEL_SERVICE_NAME" envDefault:"contentline"`
	OtelEnvironment string            `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	OtelVersion     string            `env:"OTEL_SERVICE_VERSION"`
	OtelEndpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	OtelInsecure    bool              `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	OtelSampleRatio float64           `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`

	MaxLineageDepth    int           `env:"LINEAGE_MAX_DEPTH" envDefault:"64"`
	EditLockWait       time.Duration `env:"LINEAGE_EDIT_LOCK_WAIT" envDefault:"2s"`
	ResolverCacheSize  int           `env:"RESOLVER_CACHE_SIZE" envDefault:"1024"`
	ResolveConcurrency int           `env:"RESOLVE_CONCURRENCY" envDefault:"8"`
	ResolveTimeout     time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`
}

// LoadConfig parses the environment into Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxLineageDepth < 2 {
		return Config{}, fmt.Errorf("LINEAGE_MAX_DEPTH must be at least 2, got %d", cfg.MaxLineageDepth)
	}
	return cfg, nil
}

// Log records the effective configuration. Secrets are passed under redacted keys.
func (c Config) Log(log *logger.Logger) {
	backend := "sqlite"
	if strings.TrimSpace(c.DatabaseURL) != "" {
		backend = "postgres"
	}
	log.Info("Loaded configuration",
		"http_addr", c.HTTPAddr,
		"db_backend", backend,
		"database_dsn", c.DatabaseURL,
		"redis_locks", c.RedisAddr != "",
		"neo4j_projection", c.Neo4jURI != "",
		"auth_enabled", c.JWTSecretKey != "",
		"metrics_enabled", c.MetricsEnabled,
		"otel_enabled", c.OtelEnabled,
		"lineage_max_depth", c.MaxLineageDepth,
		"resolver_cache_size", c.ResolverCacheSize,
	)
}
