package services

import (
	"fmt"
	"strings"
	"testing"

	repotest "github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	"github.com/yungbote/contentline-backend/internal/domain/content"
)

func TestParseLineageManifestValidates(t *testing.T) {
	cases := map[string]string{
		"missing scope": "versions:\n  - code: A\n",
		"missing code": `
cohort_id: 6f1c1d2e-0f4b-4a57-9a51-1c2b3d4e5f60
module_id: 7f1c1d2e-0f4b-4a57-9a51-1c2b3d4e5f61
versions:
  - parent: A
`,
		"duplicate code": `
cohort_id: 6f1c1d2e-0f4b-4a57-9a51-1c2b3d4e5f60
module_id: 7f1c1d2e-0f4b-4a57-9a51-1c2b3d4e5f61
versions:
  - code: A
  - code: A
`,
		"unknown field": `
cohort_id: 6f1c1d2e-0f4b-4a57-9a51-1c2b3d4e5f60
module_id: 7f1c1d2e-0f4b-4a57-9a51-1c2b3d4e5f61
programme: x
`,
	}
	for name, raw := range cases {
		if _, err := ParseLineageManifest(strings.NewReader(raw)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestLineageImporterImportsAndIsRepeatable(t *testing.T) {
	h := newServiceHarness(t, 3)
	root := repotest.UniqueCode("ID-001")
	child := repotest.UniqueCode("ID-002")
	raw := fmt.Sprintf(`
cohort_id: %s
module_id: %s
assign: true
current: %s
versions:
  - code: %s
    version_number: v1
    status: Ready
    files:
      - {class_id: %s, path: /content/intro.pptx, name: intro.pptx, type: pptx}
      - {class_id: %s, path: /content/lab.docx, name: lab.docx, type: docx}
  - code: %s
    parent: %s
    version_number: v1.5
    files:
      - {class_id: %s, path: /content/lab-v2.docx, name: lab-v2.docx, type: docx}
      - {class_id: %s, path: /content/new-exercise.pdf, name: new-exercise.pdf, type: pdf}
    finalize: true
`, h.dir.Cohort.ID, h.dir.Module.ID, child,
		root, h.dir.Classes[0].ID, h.dir.Classes[1].ID,
		child, root, h.dir.Classes[1].ID, h.dir.Classes[2].ID)

	m, err := ParseLineageManifest(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseLineageManifest: %v", err)
	}
	imp := NewLineageImporter(repotest.Logger(t), h.svc)
	report, err := imp.Import(h.ctx, m)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Created) != 2 || report.Files != 4 || len(report.Finalized) != 1 || report.AssignmentID == "" {
		t.Fatalf("report: %+v", report)
	}

	v, err := h.svc.GetVersionByCode(h.ctx, child)
	if err != nil {
		t.Fatalf("GetVersionByCode: %v", err)
	}
	changes, err := h.svc.ListChanges(h.ctx, v.ID)
	if err != nil {
		t.Fatalf("ListChanges: %v", err)
	}
	kinds := make(map[content.ChangeType]int)
	for _, c := range changes {
		kinds[c.ChangeType]++
	}
	if kinds[content.ChangeAdded] != 1 || kinds[content.ChangeModified] != 1 || len(changes) != 2 {
		t.Fatalf("changes: %+v", kinds)
	}
	rootVersion, err := h.svc.GetVersionByCode(h.ctx, root)
	if err != nil {
		t.Fatalf("GetVersionByCode root: %v", err)
	}
	if rootVersion.Status != content.VersionReady {
		t.Fatalf("status: got=%s", rootVersion.Status)
	}
	a, err := h.svc.GetAssignmentFor(h.ctx, h.dir.Cohort.ID, h.dir.Module.ID)
	if err != nil {
		t.Fatalf("GetAssignmentFor: %v", err)
	}
	if a.CurrentVersionID == nil || *a.CurrentVersionID != v.ID {
		t.Fatalf("current version: %+v", a.CurrentVersionID)
	}

	again, err := imp.Import(h.ctx, m)
	if err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	if len(again.Created) != 0 || len(again.Skipped) != 2 || len(again.Finalized) != 0 {
		t.Fatalf("re-import report: %+v", again)
	}
}
