package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/contentline-backend/internal/data/db"
	repotest "github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	"github.com/yungbote/contentline-backend/internal/domain/content"
)

func seedSQLite(t *testing.T, classes int) *repotest.Directory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contentline.db")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("NEO4J_URI", "")
	t.Setenv("JWT_SECRET_KEY", "")

	gdb, err := db.OpenSQLite(nil, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	dir := repotest.SeedDirectory(t, context.Background(), gdb, classes)
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	_ = sqlDB.Close()
	return dir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	flagJSON, flagActor, flagRefinalize = false, "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("contentctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestContentctlImportResolveFinalize(t *testing.T) {
	dir := seedSQLite(t, 2)
	manifest := fmt.Sprintf(`
cohort_id: %s
module_id: %s
versions:
  - code: ID-001
    files:
      - {class_id: %s, path: /content/intro.pptx, name: intro.pptx, type: pptx}
      - {class_id: %s, path: /content/lab.docx, name: lab.docx, type: docx}
  - code: ID-002
    parent: ID-001
    files:
      - {class_id: %s, path: /content/lab-v2.docx, name: lab-v2.docx, type: docx}
`, dir.Cohort.ID, dir.Module.ID, dir.Classes[0].ID, dir.Classes[1].ID, dir.Classes[1].ID)
	manifestPath := filepath.Join(t.TempDir(), "lineage.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out := run(t, "import", manifestPath)
	if !strings.Contains(out, "ID-001") || !strings.Contains(out, "ID-002") {
		t.Fatalf("import output: %s", out)
	}

	out = run(t, "resolve", "ID-002", "--json")
	var files []content.EffectiveFile
	if err := json.Unmarshal([]byte(out), &files); err != nil {
		t.Fatalf("decode resolve: %v (%s)", err, out)
	}
	if len(files) != 2 {
		t.Fatalf("resolved files: want=2 got=%d", len(files))
	}
	for _, f := range files {
		if f.ClassID == dir.Classes[1].ID && (f.Name != "lab-v2.docx" || !f.IsModified) {
			t.Fatalf("override not visible: %+v", f)
		}
	}

	out = run(t, "ancestry", "ID-002")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID-001") || !strings.HasPrefix(lines[1], "ID-002") {
		t.Fatalf("ancestry output: %q", out)
	}

	out = run(t, "finalize", "ID-002", "--actor", "curriculum-lead")
	if !strings.Contains(out, "generation 1") || !strings.Contains(out, string(content.ChangeModified)) {
		t.Fatalf("finalize output: %s", out)
	}

	out = run(t, "changes", "ID-002", "--json")
	var changes []content.VersionChange
	if err := json.Unmarshal([]byte(out), &changes); err != nil {
		t.Fatalf("decode changes: %v (%s)", err, out)
	}
	if len(changes) != 1 || changes[0].ChangedBy != "curriculum-lead" {
		t.Fatalf("changes: %+v", changes)
	}
}
