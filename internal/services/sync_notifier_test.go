package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/contentline-backend/internal/data/repos"
	repotest "github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/domain/integration"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

type failingSyncLogRepo struct{}

func (failingSyncLogRepo) Append(dbctx.Context, *types.IntegrationSyncLog) error {
	return errors.New("connection reset")
}

func (failingSyncLogRepo) ListByEntity(dbctx.Context, string, string, int) ([]*types.IntegrationSyncLog, error) {
	return nil, nil
}

func TestSyncNotifierAppendsRecord(t *testing.T) {
	db := repotest.DB(t)
	log := repotest.Logger(t)
	repo := repos.NewSyncLogRepo(db, log)
	metrics := observability.New(nil)
	n := NewSyncNotifier(log, repo, metrics)

	entityID := "version-" + repotest.UniqueCode("sync")
	n.Record(context.Background(), SyncEvent{
		EntityType: SyncEntityVersion,
		EntityID:   entityID,
		Action:     SyncActionFinalize,
		ExternalID: "ID-002",
		Payload:    map[string]any{"generation": 1},
	})

	rows, err := repo.ListByEntity(dbctx.Context{Ctx: context.Background()}, SyncEntityVersion, entityID, 10)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: want=1 got=%d", len(rows))
	}
	row := rows[0]
	if row.Source != SyncSourceContentline || row.Status != integration.SyncStatusRecorded || row.Action != SyncActionFinalize {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !strings.Contains(string(row.Payload), `"generation":1`) {
		t.Fatalf("payload: %s", row.Payload)
	}
}

func TestSyncNotifierRecordsFailedStatusFromEventError(t *testing.T) {
	db := repotest.DB(t)
	log := repotest.Logger(t)
	repo := repos.NewSyncLogRepo(db, log)
	n := NewSyncNotifier(log, repo, nil)

	entityID := repotest.UniqueCode("assignment")
	n.Record(context.Background(), SyncEvent{
		EntityType: SyncEntityAssignment,
		EntityID:   entityID,
		Action:     SyncActionAdvance,
		Err:        errors.New("lms rejected update"),
	})
	rows, err := repo.ListByEntity(dbctx.Context{Ctx: context.Background()}, SyncEntityAssignment, entityID, 10)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != integration.SyncStatusFailed || rows[0].Error != "lms rejected update" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestSyncNotifierSwallowsAppendFailure(t *testing.T) {
	metrics := observability.New(nil)
	n := NewSyncNotifier(repotest.Logger(t), failingSyncLogRepo{}, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Record(ctx, SyncEvent{EntityType: SyncEntityVersion, EntityID: "x", Action: SyncActionCreate})

	expected := `
# HELP contentline_sync_log_failed_total Integration sync log writes that failed (never surfaced to callers).
# TYPE contentline_sync_log_failed_total counter
contentline_sync_log_failed_total{entity_type="content_version"} 1
`
	if err := testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "contentline_sync_log_failed_total"); err != nil {
		t.Fatalf("sync failure metric: %v", err)
	}
}
