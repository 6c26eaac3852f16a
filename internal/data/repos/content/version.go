package content

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type ContentVersionRepo interface {
	Create(dbc dbctx.Context, v *types.ContentVersion) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentVersion, error)
	GetByCode(dbc dbctx.Context, code string) (*types.ContentVersion, error)
	// LockByID reads the row with a row-level write lock (a plain read on SQLite).
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error)
	// CodeTaken reports whether code is used by any row, soft-deleted ones included.
	CodeTaken(dbc dbctx.Context, code string) (bool, error)
	ListByLineage(dbc dbctx.Context, cohortID, moduleID uuid.UUID) ([]*types.ContentVersion, error)
	ListChildren(dbc dbctx.Context, parentID uuid.UUID) ([]*types.ContentVersion, error)
	HasChildren(dbc dbctx.Context, parentID uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Touch bumps Revision of every version in ids.
	Touch(dbc dbctx.Context, ids ...uuid.UUID) error
	// Revisions returns the Revision of every live version in ids.
	Revisions(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type contentVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentVersionRepo(db *gorm.DB, baseLog *logger.Logger) ContentVersionRepo {
	return &contentVersionRepo{
		db:  db,
		log: baseLog.With("repo", "ContentVersionRepo"),
	}
}

func (r *contentVersionRepo) Create(dbc dbctx.Context, v *types.ContentVersion) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if v == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(v).Error
}

func (r *contentVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var v types.ContentVersion
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, nil
	}
	return &v, nil
}

func (r *contentVersionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentVersion
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentVersionRepo) GetByCode(dbc dbctx.Context, code string) (*types.ContentVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if code == "" {
		return nil, nil
	}
	var v types.ContentVersion
	err := transaction.WithContext(dbc.Ctx).
		Where("code = ?", code).
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, nil
	}
	return &v, nil
}

func (r *contentVersionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var v types.ContentVersion
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *contentVersionRepo) CodeTaken(dbc dbctx.Context, code string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.ContentVersion{}).
		Where("code = ?", code).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *contentVersionRepo) ListByLineage(dbc dbctx.Context, cohortID, moduleID uuid.UUID) ([]*types.ContentVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("cohort_id = ? AND module_id = ?", cohortID, moduleID).
		Order("created_at ASC, code ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentVersionRepo) ListChildren(dbc dbctx.Context, parentID uuid.UUID) ([]*types.ContentVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentVersionRepo) HasChildren(dbc dbctx.Context, parentID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("parent_id = ?", parentID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *contentVersionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *contentVersionRepo) Touch(dbc dbctx.Context, ids ...uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"revision":   gorm.Expr("revision + ?", 1),
			"updated_at": time.Now().UTC(),
		}).Error
}

type revisionRow struct {
	ID       uuid.UUID
	Revision int64
}

func (r *contentVersionRepo) Revisions(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []revisionRow
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Select("id", "revision").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Revision
	}
	return out, nil
}

func (r *contentVersionRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.ContentVersion{}).Error
}
