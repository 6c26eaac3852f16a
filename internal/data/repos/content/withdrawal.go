package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

type ContentWithdrawalRepo interface {
	ListByVersionIDs(dbc dbctx.Context, versionIDs []uuid.UUID) ([]*types.ContentWithdrawal, error)
	// Create is idempotent per (version, class): an existing withdrawal is left untouched.
	Create(dbc dbctx.Context, w *types.ContentWithdrawal) error
	Delete(dbc dbctx.Context, versionID, classID uuid.UUID) (bool, error)
}

type contentWithdrawalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentWithdrawalRepo(db *gorm.DB, baseLog *logger.Logger) ContentWithdrawalRepo {
	return &contentWithdrawalRepo{
		db:  db,
		log: baseLog.With("repo", "ContentWithdrawalRepo"),
	}
}

func (r *contentWithdrawalRepo) ListByVersionIDs(dbc dbctx.Context, versionIDs []uuid.UUID) ([]*types.ContentWithdrawal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentWithdrawal
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

func (r *contentWithdrawalRepo) Create(dbc dbctx.Context, w *types.ContentWithdrawal) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if w == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "version_id"}, {Name: "class_id"}},
			DoNothing: true,
		}).
		Create(w).Error
}

func (r *contentWithdrawalRepo) Delete(dbc dbctx.Context, versionID, classID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("version_id = ? AND class_id = ?", versionID, classID).
		Delete(&types.ContentWithdrawal{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
