package aggregates

import (
	"context"
	"database/sql"

	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner provides a shared transaction boundary primitive for aggregate writes
// and snapshot reads.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
	// InReadTx runs fn against one consistent snapshot; fn must not write.
	InReadTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
// On Postgres writes run SERIALIZABLE and reads run REPEATABLE READ READ ONLY;
// SQLite transactions are already serializable.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return r.run(ctx, "aggregate.tx", &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func (r *gormTxRunner) InReadTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return r.run(ctx, "aggregate.read_tx", &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (r *gormTxRunner) run(ctx context.Context, op string, opts *sql.TxOptions, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "transaction runner has nil db", nil)
	}
	if r.db.Dialector.Name() != "postgres" {
		opts = nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	}, opts)
}
