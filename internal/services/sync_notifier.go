package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/contentline-backend/internal/data/repos"
	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/domain/integration"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

const (
	SyncSourceContentline = "contentline"

	SyncEntityVersion    = "content_version"
	SyncEntityAssignment = "cohort_module_assignment"

	SyncActionCreate   = "create"
	SyncActionFinalize = "finalize"
	SyncActionAdvance  = "advance"
)

// SyncEvent is one row for the integration sync log.
type SyncEvent struct {
	Source     string
	EntityType string
	EntityID   string
	Action     string
	ExternalID string
	Status     string
	Err        error
	Payload    map[string]any
}

// SyncNotifier records integration events. Recording is best effort: failures are
// logged and counted and never reach the caller.
type SyncNotifier interface {
	Record(ctx context.Context, ev SyncEvent)
}

type syncNotifier struct {
	log     *logger.Logger
	repo    repos.SyncLogRepo
	metrics *observability.Metrics
	timeout time.Duration
}

func NewSyncNotifier(baseLog *logger.Logger, repo repos.SyncLogRepo, metrics *observability.Metrics) SyncNotifier {
	return &syncNotifier{
		log:     baseLog.With("service", "SyncNotifier"),
		repo:    repo,
		metrics: metrics,
		timeout: 5 * time.Second,
	}
}

func (n *syncNotifier) Record(ctx context.Context, ev SyncEvent) {
	if n == nil || n.repo == nil {
		return
	}
	row := &types.IntegrationSyncLog{
		Source:     strings.TrimSpace(ev.Source),
		EntityType: strings.TrimSpace(ev.EntityType),
		EntityID:   strings.TrimSpace(ev.EntityID),
		Action:     strings.TrimSpace(ev.Action),
		ExternalID: strings.TrimSpace(ev.ExternalID),
		Status:     strings.TrimSpace(ev.Status),
		CreatedAt:  time.Now().UTC(),
	}
	if row.Source == "" {
		row.Source = SyncSourceContentline
	}
	if row.Status == "" {
		row.Status = integration.SyncStatusRecorded
	}
	if ev.Err != nil {
		row.Status = integration.SyncStatusFailed
		row.Error = ev.Err.Error()
	}
	if len(ev.Payload) > 0 {
		if raw, err := json.Marshal(ev.Payload); err == nil {
			row.Payload = datatypes.JSON(raw)
		}
	}

	// The caller's request may already be finishing; keep its values but not its deadline.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctxutil.Default(ctx)), n.timeout)
	defer cancel()
	if err := n.repo.Append(dbctx.Context{Ctx: writeCtx}, row); err != nil {
		n.metrics.IncSyncLog(row.EntityType, true)
		n.log.Warn("sync log append failed",
			"entity_type", row.EntityType,
			"entity_id", row.EntityID,
			"action", row.Action,
			"error", err,
		)
		return
	}
	n.metrics.IncSyncLog(row.EntityType, false)
}
