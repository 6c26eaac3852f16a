package directory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

// DirectoryRepo is a read-only view of the entity directory.
type DirectoryRepo interface {
	GetClient(dbc dbctx.Context, id uuid.UUID) (*types.Client, error)
	GetProgramme(dbc dbctx.Context, id uuid.UUID) (*types.Programme, error)
	GetCohort(dbc dbctx.Context, id uuid.UUID) (*types.Cohort, error)
	GetModule(dbc dbctx.Context, id uuid.UUID) (*types.Module, error)
	GetClass(dbc dbctx.Context, id uuid.UUID) (*types.Class, error)
	GetClasses(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Class, error)
	ListClassesByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.Class, error)
}

type directoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDirectoryRepo(db *gorm.DB, baseLog *logger.Logger) DirectoryRepo {
	return &directoryRepo{
		db:  db,
		log: baseLog.With("repo", "DirectoryRepo"),
	}
}

// getByID loads one row into out and reports whether it exists.
func (r *directoryRepo) getByID(dbc dbctx.Context, id uuid.UUID, out interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(out)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *directoryRepo) GetClient(dbc dbctx.Context, id uuid.UUID) (*types.Client, error) {
	var row types.Client
	ok, err := r.getByID(dbc, id, &row)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func (r *directoryRepo) GetProgramme(dbc dbctx.Context, id uuid.UUID) (*types.Programme, error) {
	var row types.Programme
	ok, err := r.getByID(dbc, id, &row)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func (r *directoryRepo) GetCohort(dbc dbctx.Context, id uuid.UUID) (*types.Cohort, error) {
	var row types.Cohort
	ok, err := r.getByID(dbc, id, &row)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func (r *directoryRepo) GetModule(dbc dbctx.Context, id uuid.UUID) (*types.Module, error) {
	var row types.Module
	ok, err := r.getByID(dbc, id, &row)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func (r *directoryRepo) GetClass(dbc dbctx.Context, id uuid.UUID) (*types.Class, error) {
	var row types.Class
	ok, err := r.getByID(dbc, id, &row)
	if err != nil || !ok {
		return nil, err
	}
	return &row, nil
}

func (r *directoryRepo) GetClasses(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Class, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Class
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

func (r *directoryRepo) ListClassesByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.Class, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Class
	if err := transaction.WithContext(dbc.Ctx).
		Where("module_id = ?", moduleID).
		Order("sort_index ASC, name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
