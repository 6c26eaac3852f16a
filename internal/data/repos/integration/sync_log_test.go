package integration

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/domain/integration"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

func TestSyncLogRepoAppendAndList(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSyncLogRepo(db, testutil.Logger(t))

	for _, action := range []string{"created", "finalized"} {
		row := &types.IntegrationSyncLog{
			Source:     "contentline",
			EntityType: "content_version",
			EntityID:   "ID-002",
			Action:     action,
			Status:     integration.SyncStatusRecorded,
			Payload:    datatypes.JSON([]byte(`{"code":"ID-002"}`)),
		}
		if err := repo.Append(dbc, row); err != nil {
			t.Fatalf("Append(%s): %v", action, err)
		}
	}
	rows, err := repo.ListByEntity(dbc, "content_version", "ID-002", 10)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByEntity: err=%v len=%d", err, len(rows))
	}
	if rows, _ := repo.ListByEntity(dbc, "content_version", "ID-999", 10); len(rows) != 0 {
		t.Fatalf("ListByEntity(other): expected none, got %d", len(rows))
	}
}
