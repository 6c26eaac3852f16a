package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type ContentFileRepo interface {
	ListByVersion(dbc dbctx.Context, versionID uuid.UUID) ([]*types.ContentFile, error)
	ListByVersionIDs(dbc dbctx.Context, versionIDs []uuid.UUID) ([]*types.ContentFile, error)
	GetByVersionClass(dbc dbctx.Context, versionID, classID uuid.UUID) (*types.ContentFile, error)
	// Upsert inserts the file or replaces the identity of the existing (version, class) row.
	Upsert(dbc dbctx.Context, f *types.ContentFile) error
	Delete(dbc dbctx.Context, versionID, classID uuid.UUID) (bool, error)
}

type contentFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentFileRepo(db *gorm.DB, baseLog *logger.Logger) ContentFileRepo {
	return &contentFileRepo{
		db:  db,
		log: baseLog.With("repo", "ContentFileRepo"),
	}
}

func (r *contentFileRepo) ListByVersion(dbc dbctx.Context, versionID uuid.UUID) ([]*types.ContentFile, error) {
	return r.ListByVersionIDs(dbc, []uuid.UUID{versionID})
}

func (r *contentFileRepo) ListByVersionIDs(dbc dbctx.Context, versionIDs []uuid.UUID) ([]*types.ContentFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentFile
	if len(versionIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("version_id IN ?", versionIDs).
		Order("class_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentFileRepo) GetByVersionClass(dbc dbctx.Context, versionID, classID uuid.UUID) (*types.ContentFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var f types.ContentFile
	err := transaction.WithContext(dbc.Ctx).
		Where("version_id = ? AND class_id = ?", versionID, classID).
		Limit(1).
		Find(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == uuid.Nil {
		return nil, nil
	}
	return &f, nil
}

func (r *contentFileRepo) Upsert(dbc dbctx.Context, f *types.ContentFile) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if f == nil {
		return nil
	}
	f.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "version_id"}, {Name: "class_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"path", "name", "type", "is_modified", "updated_at"}),
		}).
		Create(f).Error
}

func (r *contentFileRepo) Delete(dbc dbctx.Context, versionID, classID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("version_id = ? AND class_id = ?", versionID, classID).
		Delete(&types.ContentFile{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
