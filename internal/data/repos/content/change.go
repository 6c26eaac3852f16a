package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

// VersionChangeRepo is append-only: rows are never updated or deleted.
type VersionChangeRepo interface {
	Create(dbc dbctx.Context, rows []*types.VersionChange) ([]*types.VersionChange, error)
	LatestGeneration(dbc dbctx.Context, versionID uuid.UUID) (int, error)
	// ListLatest returns the rows of the newest generation in presentation order.
	ListLatest(dbc dbctx.Context, versionID uuid.UUID) ([]*types.VersionChange, error)
	ListByGeneration(dbc dbctx.Context, versionID uuid.UUID, generation int) ([]*types.VersionChange, error)
}

type versionChangeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVersionChangeRepo(db *gorm.DB, baseLog *logger.Logger) VersionChangeRepo {
	return &versionChangeRepo{
		db:  db,
		log: baseLog.With("repo", "VersionChangeRepo"),
	}
}

func (r *versionChangeRepo) Create(dbc dbctx.Context, rows []*types.VersionChange) ([]*types.VersionChange, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.VersionChange{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *versionChangeRepo) LatestGeneration(dbc dbctx.Context, versionID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var gen int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.VersionChange{}).
		Where("version_id = ?", versionID).
		Select("COALESCE(MAX(generation), 0)").
		Scan(&gen).Error; err != nil {
		return 0, err
	}
	return int(gen), nil
}

func (r *versionChangeRepo) ListLatest(dbc dbctx.Context, versionID uuid.UUID) ([]*types.VersionChange, error) {
	gen, err := r.LatestGeneration(dbc, versionID)
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return []*types.VersionChange{}, nil
	}
	return r.ListByGeneration(dbc, versionID, gen)
}

func (r *versionChangeRepo) ListByGeneration(dbc dbctx.Context, versionID uuid.UUID, generation int) ([]*types.VersionChange, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.VersionChange
	if err := transaction.WithContext(dbc.Ctx).
		Where("version_id = ? AND generation = ?", versionID, generation).
		Find(&out).Error; err != nil {
		return nil, err
	}
	content.SortChanges(out)
	return out, nil
}
