package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/contentline-backend/internal/data/db"
	"github.com/yungbote/contentline-backend/internal/platform/locks"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
	"github.com/yungbote/contentline-backend/internal/platform/neo4jdb"
)

type Clients struct {
	DB    *gorm.DB
	Locks locks.Locker
	Redis *locks.RedisLocker
	Neo4j *neo4jdb.Client
}

func openDatabase(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := db.NewPostgresService(log, db.PostgresConfig{
			DSN:             dsn,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg.DB(), nil
	}
	return db.OpenSQLite(log, cfg.SQLitePath)
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	theDB, err := openDatabase(log, cfg)
	if err != nil {
		return Clients{}, err
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			return Clients{}, err
		}
	}
	out := Clients{DB: theDB}

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rl, err := locks.NewRedisLocker(log, locks.RedisOptions{
			Addr:   cfg.RedisAddr,
			Prefix: cfg.LockPrefix,
			TTL:    cfg.LockTTL,
		})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis locker: %w", err)
		}
		out.Redis = rl
		out.Locks = rl
	} else {
		out.Locks = locks.NewKeyedLocker()
	}

	// Neo4j
	nc, err := neo4jdb.New(log, neo4jdb.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	out.Neo4j = nc

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Neo4j.Close(ctx)
		cancel()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
