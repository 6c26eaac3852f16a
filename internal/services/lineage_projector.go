package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/contentline-backend/internal/data/graph"
	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
	"github.com/yungbote/contentline-backend/internal/platform/neo4jdb"
)

// LineageProjector mirrors the version graph into an external graph store.
// Projection failures never fail the write that triggered them.
type LineageProjector interface {
	Project(ctx context.Context, versions ...*types.ContentVersion)
	Remove(ctx context.Context, versionID uuid.UUID)
}

type noopProjector struct{}

func (noopProjector) Project(context.Context, ...*types.ContentVersion) {}
func (noopProjector) Remove(context.Context, uuid.UUID)                  {}

type neo4jProjector struct {
	client  *neo4jdb.Client
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewLineageProjector returns a Neo4j-backed projector, or a no-op one when client is nil.
func NewLineageProjector(client *neo4jdb.Client, baseLog *logger.Logger, metrics *observability.Metrics) LineageProjector {
	if client == nil || client.Driver == nil {
		return noopProjector{}
	}
	return &neo4jProjector{
		client:  client,
		log:     baseLog.With("service", "LineageProjector"),
		metrics: metrics,
	}
}

func (p *neo4jProjector) Project(ctx context.Context, versions ...*types.ContentVersion) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctxutil.Default(ctx)), 10*time.Second)
	defer cancel()
	if err := graph.UpsertVersionLineage(ctx, p.client, p.log, versions); err != nil {
		p.metrics.IncProjectionFailed()
		p.log.Warn("lineage projection failed", "versions", len(versions), "error", err)
	}
}

func (p *neo4jProjector) Remove(ctx context.Context, versionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctxutil.Default(ctx)), 10*time.Second)
	defer cancel()
	if err := graph.DeleteVersionNode(ctx, p.client, versionID); err != nil {
		p.metrics.IncProjectionFailed()
		p.log.Warn("lineage projection delete failed", "version_id", versionID, "error", err)
	}
}
