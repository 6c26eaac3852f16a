package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

// InjectedTxRunner is a test helper for aggregate integration tests.
// It supports rollback/failure injection without touching a real DB. When Inner
// is set the body runs inside Inner's transaction so repos see a real database.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.mu.Lock()
		r.RollbackCalls++
		r.mu.Unlock()
		return failBeforeBody
	}
	if fn == nil {
		r.mu.Lock()
		r.CommitCalls++
		r.mu.Unlock()
		return nil
	}
	body := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		// Returning the commit failure from the body makes Inner roll back.
		return failCommit
	}
	var err error
	if r.Inner != nil {
		err = r.Inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}

func (r *InjectedTxRunner) InReadTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r.Inner != nil {
		return r.Inner.InReadTx(ctx, fn)
	}
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}
