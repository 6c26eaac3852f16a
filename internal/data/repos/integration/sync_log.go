package integration

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

// SyncLogRepo is append-only.
type SyncLogRepo interface {
	Append(dbc dbctx.Context, row *types.IntegrationSyncLog) error
	ListByEntity(dbc dbctx.Context, entityType, entityID string, limit int) ([]*types.IntegrationSyncLog, error)
}

type syncLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncLogRepo(db *gorm.DB, baseLog *logger.Logger) SyncLogRepo {
	return &syncLogRepo{
		db:  db,
		log: baseLog.With("repo", "SyncLogRepo"),
	}
}

func (r *syncLogRepo) Append(dbc dbctx.Context, row *types.IntegrationSyncLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *syncLogRepo) ListByEntity(dbc dbctx.Context, entityType, entityID string, limit int) ([]*types.IntegrationSyncLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.IntegrationSyncLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
