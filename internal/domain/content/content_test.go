package content

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type chainFixture struct {
	byID map[uuid.UUID]*ContentVersion
}

func newChainFixture() *chainFixture {
	return &chainFixture{byID: map[uuid.UUID]*ContentVersion{}}
}

func (f *chainFixture) add(code string, parent *ContentVersion) *ContentVersion {
	v := &ContentVersion{ID: uuid.New(), Code: code}
	if parent != nil {
		pid := parent.ID
		v.ParentID = &pid
	}
	f.byID[v.ID] = v
	return v
}

func (f *chainFixture) load(id uuid.UUID) (*ContentVersion, error) {
	return f.byID[id], nil
}

func file(classID uuid.UUID, name string) *ContentFile {
	return &ContentFile{ID: uuid.New(), ClassID: classID, Path: "/decks/" + name, Name: name, Type: "pptx", IsModified: true}
}

func TestAncestryRootFirst(t *testing.T) {
	f := newChainFixture()
	root := f.add("ID-001", nil)
	mid := f.add("ID-002", root)
	leaf := f.add("ID-003", mid)

	chain, err := Ancestry(leaf.ID, DefaultMaxLineageDepth, f.load)
	if err != nil {
		t.Fatalf("Ancestry: %v", err)
	}
	if len(chain) != 3 || chain[0] != root || chain[1] != mid || chain[2] != leaf {
		t.Fatalf("unexpected chain order: %+v", chain)
	}

	single, err := Ancestry(root.ID, DefaultMaxLineageDepth, f.load)
	if err != nil || len(single) != 1 || single[0] != root {
		t.Fatalf("root chain: err=%v chain=%+v", err, single)
	}
}

func TestAncestryDetectsCycle(t *testing.T) {
	f := newChainFixture()
	a := f.add("A", nil)
	b := f.add("B", a)
	aParent := b.ID
	a.ParentID = &aParent

	if _, err := Ancestry(b.ID, DefaultMaxLineageDepth, f.load); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestAncestryDepthBound(t *testing.T) {
	f := newChainFixture()
	var prev *ContentVersion
	for i := 0; i < 10; i++ {
		prev = f.add("V", prev)
	}
	if _, err := Ancestry(prev.ID, 10, f.load); err != nil {
		t.Fatalf("chain of exactly the bound should resolve: %v", err)
	}
	if _, err := Ancestry(prev.ID, 9, f.load); !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestAncestryMissingVersion(t *testing.T) {
	f := newChainFixture()
	if _, err := Ancestry(uuid.New(), 4, f.load); !errors.Is(err, ErrMissingVersion) {
		t.Fatalf("expected ErrMissingVersion, got %v", err)
	}
}

func TestPlacementConflict(t *testing.T) {
	f := newChainFixture()
	root := f.add("ID-001", nil)
	child := f.add("ID-002", root)
	chain := []*ContentVersion{root, child}

	if got := PlacementConflict(chain, uuid.New(), "ID-003"); got != nil {
		t.Fatalf("unexpected conflict with %s", got.Code)
	}
	if got := PlacementConflict(chain, uuid.New(), "ID-001"); got != root {
		t.Fatalf("expected code conflict with root, got %v", got)
	}
	if got := PlacementConflict(chain, child.ID, ""); got != child {
		t.Fatalf("expected id conflict with child, got %v", got)
	}
}

func TestFoldLastWriteWins(t *testing.T) {
	f := newChainFixture()
	root := f.add("ID-001", nil)
	child := f.add("ID-002", root)
	grandchild := f.add("ID-003", child)
	class1, class2, class3 := uuid.New(), uuid.New(), uuid.New()

	layers := []Layer{
		{Version: root, Files: []*ContentFile{file(class1, "intro.pptx"), file(class2, "lab.docx")}},
		{Version: child, Files: []*ContentFile{file(class2, "lab-v2.docx")}},
		{Version: grandchild, Files: []*ContentFile{file(class3, "new-exercise.pdf")}},
	}

	rootView := Fold(layers[:1])
	if len(rootView) != 2 || rootView[class1].Name != "intro.pptx" || rootView[class2].Name != "lab.docx" {
		t.Fatalf("root view should equal its own files: %+v", rootView)
	}

	view := Fold(layers)
	if len(view) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(view))
	}
	if view[class1].Name != "intro.pptx" || view[class1].SourceCode != "ID-001" {
		t.Fatalf("class1 should be inherited from root: %+v", view[class1])
	}
	if view[class2].Name != "lab-v2.docx" || view[class2].SourceCode != "ID-002" {
		t.Fatalf("class2 should come from the grandparent override, not the root: %+v", view[class2])
	}
	if view[class3].SourceVersionID != grandchild.ID {
		t.Fatalf("class3 source: %+v", view[class3])
	}
}

func TestFoldWithdrawalAndReinstate(t *testing.T) {
	class1 := uuid.New()
	layers := []Layer{
		{Files: []*ContentFile{file(class1, "intro.pptx")}},
		{Withdrawn: []uuid.UUID{class1}},
	}
	if view := Fold(layers); len(view) != 0 {
		t.Fatalf("withdrawn class should be absent: %+v", view)
	}
	layers = append(layers, Layer{Files: []*ContentFile{file(class1, "intro-v3.pptx")}})
	if view := Fold(layers); view[class1].Name != "intro-v3.pptx" {
		t.Fatalf("descendant file should reinstate the class: %+v", view)
	}
}

func TestFoldEmpty(t *testing.T) {
	if view := Fold(nil); len(view) != 0 {
		t.Fatalf("expected empty view")
	}
	if view := Fold([]Layer{{}}); len(view) != 0 {
		t.Fatalf("expected empty view for a root without files")
	}
}

func TestComputeChangesScenario(t *testing.T) {
	class1, class2, class3 := uuid.New(), uuid.New(), uuid.New()
	parentView := Fold([]Layer{{Files: []*ContentFile{file(class1, "intro.pptx"), file(class2, "lab.docx")}}})
	own := []*ContentFile{file(class2, "lab-v2.docx")}
	resolved := Fold([]Layer{
		{Files: []*ContentFile{file(class1, "intro.pptx"), file(class2, "lab.docx")}},
		{Files: own},
	})

	changes := ComputeChanges(parentView, own, resolved)
	if len(changes) != 1 || changes[0].ClassID != class2 || changes[0].Type != ChangeModified {
		t.Fatalf("expected exactly one Modified for class2, got %+v", changes)
	}

	own = append(own, file(class3, "new-exercise.pdf"))
	resolved[class3] = EffectiveFile{ClassID: class3}
	changes = ComputeChanges(parentView, own, resolved)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", changes)
	}
	if changes[0].Type != ChangeAdded || changes[0].ClassID != class3 {
		t.Fatalf("Added should sort first: %+v", changes)
	}
	if changes[1].Type != ChangeModified {
		t.Fatalf("Modified second: %+v", changes)
	}
}

func TestComputeChangesUnchangedRestatementIsNotAChange(t *testing.T) {
	class1 := uuid.New()
	parentView := Fold([]Layer{{Files: []*ContentFile{file(class1, "intro.pptx")}}})
	own := []*ContentFile{file(class1, "intro.pptx")}
	if changes := ComputeChanges(parentView, own, parentView); len(changes) != 0 {
		t.Fatalf("identical restatement should not be a change: %+v", changes)
	}
}

func TestComputeChangesRemovedOnlyWhenDropped(t *testing.T) {
	class1, class2 := uuid.New(), uuid.New()
	parentView := Fold([]Layer{{Files: []*ContentFile{file(class1, "intro.pptx"), file(class2, "lab.docx")}}})

	// Left to inherit: no change.
	if changes := ComputeChanges(parentView, nil, parentView); len(changes) != 0 {
		t.Fatalf("inherited classes are not removals: %+v", changes)
	}

	resolved := parentView.Clone()
	delete(resolved, class2)
	changes := ComputeChanges(parentView, nil, resolved)
	if len(changes) != 1 || changes[0].Type != ChangeRemoved || changes[0].ClassID != class2 {
		t.Fatalf("expected a Removed for class2, got %+v", changes)
	}
}

func TestSortChanges(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	a, b := uuid.MustParse("00000000-0000-0000-0000-00000000000a"), uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	rows := []*VersionChange{
		{ClassID: b, ChangeType: ChangeRemoved, ChangedAt: late},
		{ClassID: a, ChangeType: ChangeAdded, ChangedAt: early},
		{ClassID: b, ChangeType: ChangeAdded, ChangedAt: late},
		{ClassID: a, ChangeType: ChangeAdded, ChangedAt: late},
	}
	SortChanges(rows)
	want := []struct {
		class uuid.UUID
		typ   ChangeType
		at    time.Time
	}{
		{a, ChangeAdded, late},
		{b, ChangeAdded, late},
		{b, ChangeRemoved, late},
		{a, ChangeAdded, early},
	}
	for i, w := range want {
		if rows[i].ClassID != w.class || rows[i].ChangeType != w.typ || !rows[i].ChangedAt.Equal(w.at) {
			t.Fatalf("row %d: got %+v", i, rows[i])
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to AssignmentStatus
		ok       bool
	}{
		{AssignmentNotStarted, AssignmentInProgress, true},
		{AssignmentInProgress, AssignmentCompleted, true},
		{AssignmentNotStarted, AssignmentCompleted, false},
		{AssignmentCompleted, AssignmentInProgress, false},
		{AssignmentCompleted, AssignmentNotStarted, false},
		{AssignmentInProgress, AssignmentNotStarted, false},
		{AssignmentInProgress, AssignmentInProgress, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestParseStatuses(t *testing.T) {
	if s, err := ParseVersionStatus("review"); err != nil || s != VersionReview {
		t.Fatalf("ParseVersionStatus: %v %v", s, err)
	}
	if s, err := ParseVersionStatus(""); err != nil || s != VersionNotStarted {
		t.Fatalf("empty status should default: %v %v", s, err)
	}
	if _, err := ParseVersionStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown version status")
	}
	if s, err := ParseAssignmentStatus("inprogress"); err != nil || s != AssignmentInProgress {
		t.Fatalf("ParseAssignmentStatus: %v %v", s, err)
	}
	if _, err := ParseAssignmentStatus(""); err == nil {
		t.Fatalf("empty assignment status must be rejected")
	}
}
