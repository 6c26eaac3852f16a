package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentline-backend/internal/app"
	repotest "github.com/yungbote/contentline-backend/internal/data/repos/testutil"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/http/response"
	"github.com/yungbote/contentline-backend/internal/observability"
)

type apiHarness struct {
	t      *testing.T
	router *gin.Engine
	dir    *repotest.Directory
}

func newAPIHarness(t *testing.T, classes int) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := repotest.DB(t)
	log := repotest.Logger(t)
	metrics := observability.New(nil)
	svcs, err := app.WireServices(db, log, app.ServiceOptions{Metrics: metrics, ResolverCacheSize: 16})
	if err != nil {
		t.Fatalf("WireServices: %v", err)
	}
	return &apiHarness{
		t:      t,
		router: app.NewRouter(log, svcs, app.RouterOptions{Metrics: metrics}),
		dir:    repotest.SeedDirectory(t, context.Background(), db, classes),
	}
}

func (h *apiHarness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) decode(rec *httptest.ResponseRecorder, wantStatus int, dst any) {
	h.t.Helper()
	if rec.Code != wantStatus {
		h.t.Fatalf("status: want=%d got=%d body=%s", wantStatus, rec.Code, rec.Body.String())
	}
	if dst == nil {
		return
	}
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		h.t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
}

func (h *apiHarness) createVersion(code, parent string) content.ContentVersion {
	h.t.Helper()
	var out struct {
		Version content.ContentVersion `json:"version"`
	}
	h.decode(h.do(http.MethodPost, "/api/versions", map[string]any{
		"code":      code,
		"cohort_id": h.dir.Cohort.ID,
		"module_id": h.dir.Module.ID,
		"parent":    parent,
	}), http.StatusCreated, &out)
	return out.Version
}

func (h *apiHarness) putFile(ref string, class int, name string) {
	h.t.Helper()
	h.decode(h.do(http.MethodPut, "/api/versions/"+ref+"/files/"+h.dir.Classes[class].ID.String(), map[string]string{
		"path": "/content/" + name,
		"name": name,
		"type": "file",
	}), http.StatusOK, nil)
}

func (h *apiHarness) errorOf(rec *httptest.ResponseRecorder, wantStatus int) response.APIError {
	h.t.Helper()
	var env response.ErrorEnvelope
	h.decode(rec, wantStatus, &env)
	return env.Error
}

func TestVersionLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t, 2)
	rootCode := repotest.UniqueCode("ID-001")
	childCode := repotest.UniqueCode("ID-002")

	h.createVersion(rootCode, "")
	h.putFile(rootCode, 0, "intro.pptx")
	h.putFile(rootCode, 1, "lab.pdf")
	child := h.createVersion(childCode, rootCode)
	h.putFile(child.ID.String(), 0, "intro-v2.pptx")

	var resolved struct {
		Chain []string                `json:"chain"`
		Files []content.EffectiveFile `json:"files"`
	}
	h.decode(h.do(http.MethodGet, "/api/versions/"+childCode+"/content", nil), http.StatusOK, &resolved)
	if len(resolved.Chain) != 2 || resolved.Chain[0] != rootCode || resolved.Chain[1] != childCode {
		t.Fatalf("chain: %v", resolved.Chain)
	}
	if len(resolved.Files) != 2 {
		t.Fatalf("files: want=2 got=%d", len(resolved.Files))
	}
	byClass := map[string]content.EffectiveFile{}
	for _, f := range resolved.Files {
		byClass[f.ClassID.String()] = f
	}
	if f := byClass[h.dir.Classes[0].ID.String()]; f.Name != "intro-v2.pptx" || !f.IsModified || f.SourceCode != childCode {
		t.Fatalf("overridden class: %+v", f)
	}
	if f := byClass[h.dir.Classes[1].ID.String()]; f.Name != "lab.pdf" || f.SourceCode != rootCode {
		t.Fatalf("inherited class: %+v", f)
	}

	var ancestry struct {
		Chain []content.ContentVersion `json:"chain"`
	}
	h.decode(h.do(http.MethodGet, "/api/versions/"+childCode+"/ancestry", nil), http.StatusOK, &ancestry)
	if len(ancestry.Chain) != 2 || ancestry.Chain[0].Code != rootCode {
		t.Fatalf("ancestry: %+v", ancestry.Chain)
	}

	var fin struct {
		Generation int                     `json:"generation"`
		Changes    []content.VersionChange `json:"changes"`
	}
	h.decode(h.do(http.MethodPost, "/api/versions/"+childCode+"/finalize", nil), http.StatusOK, &fin)
	if fin.Generation != 1 || len(fin.Changes) != 1 || fin.Changes[0].ChangeType != content.ChangeModified {
		t.Fatalf("finalize: %+v", fin)
	}

	apiErr := h.errorOf(h.do(http.MethodPost, "/api/versions/"+childCode+"/finalize", nil), http.StatusConflict)
	if apiErr.Code != "already_finalized" {
		t.Fatalf("second finalize code: %q", apiErr.Code)
	}

	h.decode(h.do(http.MethodPost, "/api/versions/"+childCode+"/finalize?refinalize=true", nil), http.StatusOK, &fin)
	if fin.Generation != 2 {
		t.Fatalf("refinalize generation: %d", fin.Generation)
	}

	var changes struct {
		Generation int                     `json:"generation"`
		Changes    []content.VersionChange `json:"changes"`
	}
	h.decode(h.do(http.MethodGet, "/api/versions/"+childCode+"/changes", nil), http.StatusOK, &changes)
	if changes.Generation != 2 || len(changes.Changes) != 1 || changes.Changes[0].Generation != 2 {
		t.Fatalf("changes: %+v", changes)
	}

	var list struct {
		Versions []content.ContentVersion `json:"versions"`
	}
	h.decode(h.do(http.MethodGet, "/api/cohorts/"+h.dir.Cohort.ID.String()+"/modules/"+h.dir.Module.ID.String()+"/versions", nil), http.StatusOK, &list)
	if len(list.Versions) != 2 {
		t.Fatalf("list: want=2 got=%d", len(list.Versions))
	}
}

func TestErrorEnvelopeOverHTTP(t *testing.T) {
	h := newAPIHarness(t, 1)
	rootCode := repotest.UniqueCode("ID-001")
	childCode := repotest.UniqueCode("ID-002")
	h.createVersion(rootCode, "")
	h.createVersion(childCode, rootCode)

	if e := h.errorOf(h.do(http.MethodGet, "/api/versions/NOPE-404", nil), http.StatusNotFound); e.Code != "unknown_version" {
		t.Fatalf("unknown ref code: %q", e.Code)
	}

	e := h.errorOf(h.do(http.MethodPatch, "/api/versions/"+rootCode+"/parent", map[string]string{"parent": childCode}), http.StatusConflict)
	if e.Code != "version_pinned" {
		t.Fatalf("reparent pinned root: %q", e.Code)
	}

	e = h.errorOf(h.do(http.MethodDelete, "/api/versions/"+rootCode, nil), http.StatusConflict)
	if e.Code != "version_pinned" || e.Refs["version"] == "" {
		t.Fatalf("delete pinned: %+v", e)
	}

	e = h.errorOf(h.do(http.MethodPut, "/api/versions/"+childCode+"/files/not-a-uuid", map[string]string{"path": "/a", "name": "a"}), http.StatusBadRequest)
	if e.Code != "validation" {
		t.Fatalf("bad class id: %q", e.Code)
	}

	e = h.errorOf(h.do(http.MethodPatch, "/api/versions/"+childCode+"/status", map[string]string{"status": "Shipped"}), http.StatusBadRequest)
	if e.Code != "validation" {
		t.Fatalf("bad status: %q", e.Code)
	}

	var out struct {
		Version content.ContentVersion `json:"version"`
	}
	h.decode(h.do(http.MethodPatch, "/api/versions/"+childCode+"/status", map[string]string{"status": "review"}), http.StatusOK, &out)
	if out.Version.Status != content.VersionReview {
		t.Fatalf("status: %q", out.Version.Status)
	}

	h.decode(h.do(http.MethodDelete, "/api/versions/"+childCode, nil), http.StatusNoContent, nil)
	h.errorOf(h.do(http.MethodGet, "/api/versions/"+childCode, nil), http.StatusNotFound)
}

func TestAssignmentsOverHTTP(t *testing.T) {
	h := newAPIHarness(t, 1)
	code := repotest.UniqueCode("ID-001")
	v := h.createVersion(code, "")

	var created struct {
		Assignment content.CohortModuleAssignment `json:"assignment"`
	}
	h.decode(h.do(http.MethodPost, "/api/assignments", map[string]any{
		"cohort_id":     h.dir.Cohort.ID,
		"module_id":     h.dir.Module.ID,
		"assigned_date": "2026-03-14",
	}), http.StatusCreated, &created)
	a := created.Assignment
	if a.Status != content.AssignmentNotStarted || a.AssignedDate.Format("2006-01-02") != "2026-03-14" {
		t.Fatalf("assignment: %+v", a)
	}

	e := h.errorOf(h.do(http.MethodPost, "/api/assignments", map[string]any{
		"cohort_id": h.dir.Cohort.ID,
		"module_id": h.dir.Module.ID,
	}), http.StatusConflict)
	if e.Code != "duplicate_assignment" {
		t.Fatalf("duplicate: %q", e.Code)
	}

	var got struct {
		Assignment content.CohortModuleAssignment `json:"assignment"`
	}
	h.decode(h.do(http.MethodPut, "/api/assignments/"+a.ID.String()+"/version", map[string]string{"version": code}), http.StatusOK, &got)
	if got.Assignment.CurrentVersionID == nil || *got.Assignment.CurrentVersionID != v.ID {
		t.Fatalf("current version: %+v", got.Assignment)
	}

	e = h.errorOf(h.do(http.MethodPut, "/api/assignments/"+a.ID.String()+"/status", map[string]string{"status": "Completed"}), http.StatusUnprocessableEntity)
	if e.Code != "invalid_transition" {
		t.Fatalf("skip transition: %q", e.Code)
	}
	h.decode(h.do(http.MethodPut, "/api/assignments/"+a.ID.String()+"/status", map[string]string{"status": "InProgress"}), http.StatusOK, &got)
	h.decode(h.do(http.MethodPut, "/api/assignments/"+a.ID.String()+"/status", map[string]string{"status": "Completed"}), http.StatusOK, &got)
	if got.Assignment.Status != content.AssignmentCompleted || got.Assignment.CompletionDate == nil {
		t.Fatalf("completed: %+v", got.Assignment)
	}

	h.decode(h.do(http.MethodGet, "/api/cohorts/"+h.dir.Cohort.ID.String()+"/modules/"+h.dir.Module.ID.String()+"/assignment", nil), http.StatusOK, &got)
	if got.Assignment.ID != a.ID {
		t.Fatalf("pair lookup: %+v", got.Assignment)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	h := newAPIHarness(t, 1)
	rec := h.do(http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
	h.do(http.MethodGet, "/api/versions/NOPE", nil)
	rec = h.do(http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "contentline_") {
		t.Fatalf("metrics body missing contentline series")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}
