package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/locks"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// BaseDeps is shared by every aggregate. Aggregates that must exclude each other
// on the same version (lineage edits and finalization) have to share Locks.
type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Locks    locks.Locker
	Now      func() time.Time
}

// NewBaseDeps fills every default once so the result can be shared across aggregates.
func NewBaseDeps(db *gorm.DB, log *logger.Logger) BaseDeps {
	return BaseDeps{DB: db, Log: log}.withDefaults()
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Locks == nil {
		d.Locks = locks.NewKeyedLocker()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)
	observe(deps, op, mapped, time.Since(start))
	return mapped
}

// executeLocked serializes fn with other writers of the same version through the
// shared per-version lock. wait=0 fails immediately when the lock is held.
func executeLocked(ctx context.Context, deps BaseDeps, op, versionKey string, wait time.Duration, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	release, err := deps.Locks.Acquire(ctx, "content_version:"+versionKey, wait)
	if err != nil {
		if !errors.Is(err, locks.ErrContended) {
			err = errors.Join(RetryableError("lock backend unavailable"), err)
		}
		mapped := MapError(op, err)
		if domainagg.IsCode(mapped, domainagg.CodeConcurrentFinalizeConflict) {
			if lh, ok := deps.Hooks.(LockHooks); ok {
				lh.IncLockContention(op)
			}
			mapped = &domainagg.Error{
				Code:    domainagg.CodeConcurrentFinalizeConflict,
				Op:      op,
				Message: "version is being modified concurrently",
				Refs:    map[string]string{"version": versionKey},
				Cause:   err,
			}
		}
		observe(deps, op, mapped, 0)
		return mapped
	}
	defer release()
	return executeWrite(ctx, deps, op, fn)
}

func observe(deps BaseDeps, op string, mapped error, dur time.Duration) {
	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) || domainagg.IsCode(mapped, domainagg.CodeConcurrentFinalizeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsRetryable(mapped) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, dur)
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
