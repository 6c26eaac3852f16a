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

type CohortModuleAssignmentRepo interface {
	Create(dbc dbctx.Context, a *types.CohortModuleAssignment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CohortModuleAssignment, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CohortModuleAssignment, error)
	GetByPair(dbc dbctx.Context, cohortID, moduleID uuid.UUID) (*types.CohortModuleAssignment, error)
	// IsCurrentVersion reports whether any assignment currently points at versionID.
	IsCurrentVersion(dbc dbctx.Context, versionID uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type cohortModuleAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCohortModuleAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) CohortModuleAssignmentRepo {
	return &cohortModuleAssignmentRepo{
		db:  db,
		log: baseLog.With("repo", "CohortModuleAssignmentRepo"),
	}
}

func (r *cohortModuleAssignmentRepo) Create(dbc dbctx.Context, a *types.CohortModuleAssignment) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(a).Error
}

func (r *cohortModuleAssignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CohortModuleAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var a types.CohortModuleAssignment
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *cohortModuleAssignmentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CohortModuleAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.CohortModuleAssignment
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *cohortModuleAssignmentRepo) GetByPair(dbc dbctx.Context, cohortID, moduleID uuid.UUID) (*types.CohortModuleAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.CohortModuleAssignment
	err := transaction.WithContext(dbc.Ctx).
		Where("cohort_id = ? AND module_id = ?", cohortID, moduleID).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *cohortModuleAssignmentRepo) IsCurrentVersion(dbc dbctx.Context, versionID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CohortModuleAssignment{}).
		Where("current_version_id = ?", versionID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *cohortModuleAssignmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.CohortModuleAssignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
