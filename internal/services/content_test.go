package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	repotest "github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []SyncEvent
}

func (n *recordingNotifier) Record(_ context.Context, ev SyncEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.EntityType+":"+ev.Action)
	}
	return out
}

type serviceHarness struct {
	ctx      context.Context
	db       *gorm.DB
	set      repos.Set
	dir      *repotest.Directory
	metrics  *observability.Metrics
	notifier *recordingNotifier
	resolver ContentResolver
	svc      ContentService
}

func newServiceHarness(t *testing.T, classes int) *serviceHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	h := &serviceHarness{
		ctx:      context.Background(),
		db:       db,
		set:      repos.NewSet(db, log),
		metrics:  observability.New(nil),
		notifier: &recordingNotifier{},
	}
	h.dir = repotest.SeedDirectory(t, h.ctx, db, classes)

	base := aggregates.NewBaseDeps(db, log)
	base.Hooks = aggregates.NewObservabilityHooks(h.metrics)
	resolver, err := NewContentResolver(log, ContentResolverDeps{
		Runner:      base.Runner,
		Versions:    h.set.Versions,
		Files:       h.set.Files,
		Withdrawals: h.set.Withdrawals,
		CacheSize:   16,
		Metrics:     h.metrics,
	})
	if err != nil {
		t.Fatalf("NewContentResolver: %v", err)
	}
	h.resolver = resolver
	h.svc = NewContentService(log, ContentServiceDeps{
		Repos: h.set,
		Lineage: aggregates.NewLineageAggregate(aggregates.LineageAggregateDeps{
			Base:        base,
			Versions:    h.set.Versions,
			Files:       h.set.Files,
			Withdrawals: h.set.Withdrawals,
			Assignments: h.set.Assignments,
			Directory:   h.set.Directory,
		}),
		Diff: aggregates.NewDiffAggregate(aggregates.DiffAggregateDeps{
			Base:        base,
			Versions:    h.set.Versions,
			Files:       h.set.Files,
			Withdrawals: h.set.Withdrawals,
			Changes:     h.set.Changes,
		}),
		Assignments: aggregates.NewAssignmentAggregate(aggregates.AssignmentAggregateDeps{
			Base:        base,
			Assignments: h.set.Assignments,
			Versions:    h.set.Versions,
			Directory:   h.set.Directory,
		}),
		Resolver: resolver,
		Notifier: h.notifier,
	})
	return h
}

func (h *serviceHarness) create(t *testing.T, ctx context.Context, code string, parent *content.ContentVersion) *content.ContentVersion {
	t.Helper()
	in := domainagg.CreateVersionInput{Code: code, CohortID: h.dir.Cohort.ID, ModuleID: h.dir.Module.ID}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	v, err := h.svc.CreateVersion(ctx, in)
	if err != nil {
		t.Fatalf("CreateVersion(%s): %v", code, err)
	}
	return v
}

func (h *serviceHarness) put(t *testing.T, v *content.ContentVersion, class int, name string) {
	t.Helper()
	if _, err := h.svc.PutFile(h.ctx, domainagg.PutFileInput{
		VersionID: v.ID,
		ClassID:   h.dir.Classes[class].ID,
		Path:      "/content/" + name,
		Name:      name,
		Type:      "file",
	}); err != nil {
		t.Fatalf("PutFile(%s): %v", name, err)
	}
}

func TestContentServiceResolveIsCachedAndInvalidatedOnWrite(t *testing.T) {
	h := newServiceHarness(t, 2)
	root := h.create(t, h.ctx, repotest.UniqueCode("ID-001"), nil)
	h.put(t, root, 0, "intro.pptx")
	child := h.create(t, h.ctx, repotest.UniqueCode("ID-002"), root)

	first, err := h.svc.Resolve(h.ctx, child.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(first.Content) != 1 || len(first.Chain) != 2 || first.Version.ID != child.ID {
		t.Fatalf("first resolution: %+v", first)
	}
	// Callers get private copies.
	delete(first.Content, h.dir.Classes[0].ID)

	second, err := h.svc.Resolve(h.ctx, child.ID)
	if err != nil {
		t.Fatalf("Resolve cached: %v", err)
	}
	if len(second.Content) != 1 {
		t.Fatalf("cached resolution was mutated through a previous result")
	}

	h.put(t, child, 1, "lab-v2.docx")
	third, err := h.svc.Resolve(h.ctx, child.ID)
	if err != nil {
		t.Fatalf("Resolve after write: %v", err)
	}
	if len(third.Content) != 2 {
		t.Fatalf("write did not invalidate the cache: %+v", third.Content)
	}

	expected := `
# HELP contentline_resolver_cache_total Effective content resolutions by cache outcome (hit/stale/miss/error).
# TYPE contentline_resolver_cache_total counter
contentline_resolver_cache_total{result="hit"} 1
contentline_resolver_cache_total{result="miss"} 2
`
	if err := testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "contentline_resolver_cache_total"); err != nil {
		t.Fatalf("resolver cache metrics: %v", err)
	}

	chain, err := h.svc.AncestryChain(h.ctx, child.ID)
	if err != nil {
		t.Fatalf("AncestryChain: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != root.ID || chain[1].ID != child.ID {
		t.Fatalf("ancestry should be root-first: %+v", chain)
	}
}

func TestContentServiceResolveUnknownVersion(t *testing.T) {
	h := newServiceHarness(t, 1)
	missing := uuid.New()
	_, err := h.svc.Resolve(h.ctx, missing)
	if !domainagg.IsCode(err, domainagg.CodeUnknownVersion) {
		t.Fatalf("expected unknown_version, got: %v", err)
	}
	if refs := domainagg.RefsOf(err); refs["version"] != missing.String() {
		t.Fatalf("refs: %+v", refs)
	}
}

func TestContentServiceResolveMany(t *testing.T) {
	h := newServiceHarness(t, 1)
	root := h.create(t, h.ctx, repotest.UniqueCode("M0"), nil)
	h.put(t, root, 0, "a.pdf")
	ids := []uuid.UUID{root.ID}
	parent := root
	for i := 0; i < 4; i++ {
		parent = h.create(t, h.ctx, repotest.UniqueCode("M"), parent)
		ids = append(ids, parent.ID)
	}

	got, err := h.resolver.ResolveMany(h.ctx, ids)
	if err != nil {
		t.Fatalf("ResolveMany: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("results: want=%d got=%d", len(ids), len(got))
	}
	for i, id := range ids {
		res := got[id]
		if res == nil || len(res.Chain) != i+1 {
			t.Fatalf("version %d: unexpected resolution %+v", i, res)
		}
		if res.Content[h.dir.Classes[0].ID].SourceVersionID != root.ID {
			t.Fatalf("version %d should inherit from root", i)
		}
	}

	_, err = h.resolver.ResolveMany(h.ctx, append(ids, uuid.New()))
	if !domainagg.IsCode(err, domainagg.CodeUnknownVersion) {
		t.Fatalf("expected unknown_version from batch, got: %v", err)
	}
}

func TestContentServiceUsesRequestActorAndNotifies(t *testing.T) {
	h := newServiceHarness(t, 2)
	ctx := ctxutil.WithRequestData(h.ctx, &ctxutil.RequestData{Actor: "trainer@acme"})

	root := h.create(t, ctx, repotest.UniqueCode("ID-001"), nil)
	if root.CreatedBy != "trainer@acme" {
		t.Fatalf("created_by: got=%q", root.CreatedBy)
	}
	h.put(t, root, 0, "intro.pptx")
	h.put(t, root, 1, "lab.docx")
	child := h.create(t, ctx, repotest.UniqueCode("ID-002"), root)
	h.put(t, child, 1, "lab-v2.docx")

	res, err := h.svc.FinalizeDiff(ctx, domainagg.FinalizeInput{VersionID: child.ID})
	if err != nil {
		t.Fatalf("FinalizeDiff: %v", err)
	}
	if len(res.Changes) != 1 || res.Changes[0].ChangedBy != "trainer@acme" {
		t.Fatalf("finalize changes: %+v", res.Changes)
	}

	changes, err := h.svc.ListChanges(h.ctx, child.ID)
	if err != nil {
		t.Fatalf("ListChanges: %v", err)
	}
	if len(changes) != 1 || changes[0].ChangeType != content.ChangeModified {
		t.Fatalf("listed changes: %+v", changes)
	}
	if _, err := h.svc.ListChanges(h.ctx, uuid.New()); !domainagg.IsCode(err, domainagg.CodeUnknownVersion) {
		t.Fatalf("ListChanges unknown version: %v", err)
	}

	a, err := h.svc.Assign(h.ctx, domainagg.AssignInput{CohortID: h.dir.Cohort.ID, ModuleID: h.dir.Module.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := h.svc.AdvanceVersion(h.ctx, a.ID, child.ID); err != nil {
		t.Fatalf("AdvanceVersion: %v", err)
	}

	want := []string{
		"content_version:create",
		"content_version:create",
		"content_version:finalize",
		"cohort_module_assignment:advance",
	}
	got := h.notifier.actions()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("sync events: want=%v got=%v", want, got)
	}

	// Failed writes are not announced.
	if _, err := h.svc.FinalizeDiff(h.ctx, domainagg.FinalizeInput{VersionID: child.ID}); !domainagg.IsCode(err, domainagg.CodeAlreadyFinalized) {
		t.Fatalf("expected already_finalized, got: %v", err)
	}
	if n := len(h.notifier.actions()); n != len(want) {
		t.Fatalf("failed finalize should not notify, events=%d", n)
	}
}

func TestContentServiceLookups(t *testing.T) {
	h := newServiceHarness(t, 1)
	code := repotest.UniqueCode("LOOK")
	v := h.create(t, h.ctx, code, nil)

	byID, err := h.svc.LookupVersion(h.ctx, v.ID.String())
	if err != nil || byID.ID != v.ID {
		t.Fatalf("LookupVersion id: %+v err=%v", byID, err)
	}
	byCode, err := h.svc.LookupVersion(h.ctx, " "+code+" ")
	if err != nil || byCode.ID != v.ID {
		t.Fatalf("LookupVersion code: %+v err=%v", byCode, err)
	}
	if _, err := h.svc.LookupVersion(h.ctx, "NOPE-404"); !domainagg.IsCode(err, domainagg.CodeUnknownVersion) {
		t.Fatalf("unknown code: %v", err)
	}

	list, err := h.svc.ListVersions(h.ctx, h.dir.Cohort.ID, h.dir.Module.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(list) != 1 || list[0].ID != v.ID {
		t.Fatalf("ListVersions: %+v", list)
	}

	if _, err := h.svc.GetAssignmentFor(h.ctx, h.dir.Cohort.ID, h.dir.Module.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("GetAssignmentFor before assign: %v", err)
	}
	a, err := h.svc.Assign(h.ctx, domainagg.AssignInput{CohortID: h.dir.Cohort.ID, ModuleID: h.dir.Module.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, err := h.svc.GetAssignmentFor(h.ctx, h.dir.Cohort.ID, h.dir.Module.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("GetAssignmentFor: %+v err=%v", got, err)
	}
	if _, err := h.svc.GetAssignment(h.ctx, uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("GetAssignment unknown: %v", err)
	}
}
