package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/contentline-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	repotest "github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

type failureHarness struct {
	ctx      context.Context
	set      repos.Set
	dir      *repotest.Directory
	base     aggregates.BaseDeps
	runner   *aggtest.InjectedTxRunner
	hooks    *aggtest.HooksRecorder
	notifier *recordingNotifier
	svc      ContentService
}

func newFailureHarness(t *testing.T) *failureHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	h := &failureHarness{
		ctx:      context.Background(),
		set:      repos.NewSet(db, log),
		hooks:    &aggtest.HooksRecorder{},
		notifier: &recordingNotifier{},
	}
	h.dir = repotest.SeedDirectory(t, h.ctx, db, 1)
	h.base = aggregates.NewBaseDeps(db, log)
	h.runner = &aggtest.InjectedTxRunner{Inner: h.base.Runner}
	h.base.Runner = h.runner
	h.base.Hooks = h.hooks

	resolver, err := NewContentResolver(log, ContentResolverDeps{
		Runner:      h.runner.Inner,
		Versions:    h.set.Versions,
		Files:       h.set.Files,
		Withdrawals: h.set.Withdrawals,
	})
	if err != nil {
		t.Fatalf("NewContentResolver: %v", err)
	}
	h.svc = NewContentService(log, ContentServiceDeps{
		Repos: h.set,
		Lineage: aggregates.NewLineageAggregate(aggregates.LineageAggregateDeps{
			Base:        h.base,
			Versions:    h.set.Versions,
			Files:       h.set.Files,
			Withdrawals: h.set.Withdrawals,
			Assignments: h.set.Assignments,
			Directory:   h.set.Directory,
		}),
		Diff: aggregates.NewDiffAggregate(aggregates.DiffAggregateDeps{
			Base:        h.base,
			Versions:    h.set.Versions,
			Files:       h.set.Files,
			Withdrawals: h.set.Withdrawals,
			Changes:     h.set.Changes,
		}),
		Resolver: resolver,
		Notifier: h.notifier,
	})
	return h
}

func TestContentServiceFailedCommitLeavesNoTrace(t *testing.T) {
	h := newFailureHarness(t)
	h.runner.FailCommit = errors.New("commit failed")
	code := repotest.UniqueCode("ID-001")

	_, err := h.svc.CreateVersion(h.ctx, domainagg.CreateVersionInput{
		Code:     code,
		CohortID: h.dir.Cohort.ID,
		ModuleID: h.dir.Module.ID,
	})
	if !domainagg.IsCode(err, domainagg.CodeStorageFailure) {
		t.Fatalf("expected storage_failure, got %v", err)
	}
	if h.runner.RollbackCalls != 1 || h.runner.CommitCalls != 0 {
		t.Fatalf("runner counters: commit=%d rollback=%d", h.runner.CommitCalls, h.runner.RollbackCalls)
	}
	if got := h.notifier.actions(); len(got) != 0 {
		t.Fatalf("failed write must not notify: %v", got)
	}
	v, err := h.set.Versions.GetByCode(dbctx.Context{Ctx: h.ctx}, code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if v != nil {
		t.Fatalf("version persisted despite rollback: %+v", v)
	}
	statuses := h.hooks.Statuses("Content.Lineage.CreateVersion")
	if len(statuses) != 1 || statuses[0] != string(domainagg.CodeStorageFailure) {
		t.Fatalf("observed statuses: %v", statuses)
	}
}

func TestContentServiceFinalizeLockContentionIsObserved(t *testing.T) {
	h := newFailureHarness(t)
	v, err := h.svc.CreateVersion(h.ctx, domainagg.CreateVersionInput{
		Code:     repotest.UniqueCode("ID-001"),
		CohortID: h.dir.Cohort.ID,
		ModuleID: h.dir.Module.ID,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	release, err := h.base.Locks.Acquire(h.ctx, "content_version:"+v.ID.String(), 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = h.svc.FinalizeDiff(h.ctx, domainagg.FinalizeInput{VersionID: v.ID})
	release()
	if !domainagg.IsCode(err, domainagg.CodeConcurrentFinalizeConflict) {
		t.Fatalf("expected concurrent_finalize_conflict, got %v", err)
	}
	if len(h.hooks.LockContention) != 1 || h.hooks.LockContention[0] != "Content.Diff.FinalizeDiff" {
		t.Fatalf("lock contention: %v", h.hooks.LockContention)
	}
	if len(h.hooks.Conflicts) != 1 {
		t.Fatalf("conflicts: %v", h.hooks.Conflicts)
	}

	if _, err := h.svc.FinalizeDiff(h.ctx, domainagg.FinalizeInput{VersionID: v.ID}); err != nil {
		t.Fatalf("FinalizeDiff after release: %v", err)
	}
	statuses := h.hooks.Statuses("Content.Diff.FinalizeDiff")
	if len(statuses) != 2 || statuses[1] != "success" {
		t.Fatalf("finalize statuses: %v", statuses)
	}
}
