package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/http/response"
	"github.com/yungbote/contentline-backend/internal/services"
)

type VersionHandler struct {
	svc services.ContentService
}

func NewVersionHandler(svc services.ContentService) *VersionHandler {
	return &VersionHandler{svc: svc}
}

type createVersionRequest struct {
	ID             *uuid.UUID `json:"id"`
	Code           string     `json:"code"`
	CohortID       uuid.UUID  `json:"cohort_id"`
	ModuleID       uuid.UUID  `json:"module_id"`
	Parent         string     `json:"parent"`
	VersionNumber  string     `json:"version_number"`
	DeliveryMethod string     `json:"delivery_method"`
	Status         string     `json:"status"`
	CreatedBy      string     `json:"created_by"`
	Notes          string     `json:"notes"`
}

type putFileRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

type finalizeRequest struct {
	Refinalize bool `json:"refinalize"`
}

type reparentRequest struct {
	// Parent is a version id or code; empty makes the version a root.
	Parent string `json:"parent"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type contentResponse struct {
	Version *content.ContentVersion `json:"version"`
	Chain   []string                `json:"chain"`
	Files   []content.EffectiveFile `json:"files"`
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), err)
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// version resolves the :ref path parameter (id or code).
func (h *VersionHandler) version(c *gin.Context) (*content.ContentVersion, bool) {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), errors.New("missing version ref"))
		return nil, false
	}
	v, err := h.svc.LookupVersion(c.Request.Context(), ref)
	if err != nil {
		response.RespondDomainError(c, err)
		return nil, false
	}
	return v, true
}

func (h *VersionHandler) parentID(c *gin.Context, ref string) (*uuid.UUID, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, true
	}
	if id, err := uuid.Parse(ref); err == nil {
		return &id, true
	}
	p, err := h.svc.GetVersionByCode(c.Request.Context(), ref)
	if err != nil {
		response.RespondDomainError(c, err)
		return nil, false
	}
	return &p.ID, true
}

// POST /api/versions
func (h *VersionHandler) Create(c *gin.Context) {
	var req createVersionRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := content.ParseVersionStatus(req.Status)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), err)
		return
	}
	parentID, ok := h.parentID(c, req.Parent)
	if !ok {
		return
	}
	in := aggregates.CreateVersionInput{
		Code:           req.Code,
		CohortID:       req.CohortID,
		ModuleID:       req.ModuleID,
		ParentID:       parentID,
		VersionNumber:  req.VersionNumber,
		DeliveryMethod: req.DeliveryMethod,
		Status:         status,
		CreatedBy:      req.CreatedBy,
		Notes:          req.Notes,
	}
	if req.ID != nil {
		in.ID = *req.ID
	}
	v, err := h.svc.CreateVersion(c.Request.Context(), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"version": v})
}

// GET /api/versions/:ref
func (h *VersionHandler) Get(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"version": v})
}

// GET /api/cohorts/:cohort_id/modules/:module_id/versions
func (h *VersionHandler) ListForLineage(c *gin.Context) {
	cohortID, ok := parseUUIDParam(c, "cohort_id")
	if !ok {
		return
	}
	moduleID, ok := parseUUIDParam(c, "module_id")
	if !ok {
		return
	}
	rows, err := h.svc.ListVersions(c.Request.Context(), cohortID, moduleID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": rows})
}

// GET /api/versions/:ref/ancestry
func (h *VersionHandler) Ancestry(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	chain, err := h.svc.AncestryChain(c.Request.Context(), v.ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chain": chain})
}

// GET /api/versions/:ref/content
func (h *VersionHandler) Content(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	res, err := h.svc.Resolve(c.Request.Context(), v.ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	chain := make([]string, 0, len(res.Chain))
	for _, cv := range res.Chain {
		chain = append(chain, cv.Code)
	}
	response.RespondOK(c, contentResponse{
		Version: res.Version,
		Chain:   chain,
		Files:   res.Content.Sorted(),
	})
}

// PUT /api/versions/:ref/files/:class_id
func (h *VersionHandler) PutFile(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	classID, ok := parseUUIDParam(c, "class_id")
	if !ok {
		return
	}
	var req putFileRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.svc.PutFile(c.Request.Context(), aggregates.PutFileInput{
		VersionID: v.ID,
		ClassID:   classID,
		Path:      req.Path,
		Name:      req.Name,
		Type:      req.Type,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"file": f})
}

// DELETE /api/versions/:ref/files/:class_id
func (h *VersionHandler) RemoveFile(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	classID, ok := parseUUIDParam(c, "class_id")
	if !ok {
		return
	}
	if err := h.svc.RemoveFile(c.Request.Context(), v.ID, classID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// POST /api/versions/:ref/withdrawals/:class_id
func (h *VersionHandler) Withdraw(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	classID, ok := parseUUIDParam(c, "class_id")
	if !ok {
		return
	}
	var req withdrawRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	w, err := h.svc.WithdrawClass(c.Request.Context(), aggregates.WithdrawClassInput{
		VersionID: v.ID,
		ClassID:   classID,
		Reason:    req.Reason,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"withdrawal": w})
}

// POST /api/versions/:ref/finalize
func (h *VersionHandler) Finalize(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	var req finalizeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if strings.EqualFold(c.Query("refinalize"), "true") {
		req.Refinalize = true
	}
	res, err := h.svc.FinalizeDiff(c.Request.Context(), aggregates.FinalizeInput{
		VersionID:  v.ID,
		Refinalize: req.Refinalize,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"version":    res.Version,
		"generation": res.Generation,
		"changes":    res.Changes,
	})
}

// GET /api/versions/:ref/changes
func (h *VersionHandler) Changes(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	rows, err := h.svc.ListChanges(c.Request.Context(), v.ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"generation": v.FinalizeGeneration, "changes": rows})
}

// PATCH /api/versions/:ref/parent
func (h *VersionHandler) Reparent(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	var req reparentRequest
	if !bindJSON(c, &req) {
		return
	}
	parentID, ok := h.parentID(c, req.Parent)
	if !ok {
		return
	}
	out, err := h.svc.Reparent(c.Request.Context(), v.ID, parentID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"version": out})
}

// PATCH /api/versions/:ref/status
func (h *VersionHandler) SetStatus(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), errors.New("missing status"))
		return
	}
	status, err := content.ParseVersionStatus(req.Status)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), err)
		return
	}
	out, err := h.svc.SetVersionStatus(c.Request.Context(), v.ID, status)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"version": out})
}

// DELETE /api/versions/:ref
func (h *VersionHandler) Delete(c *gin.Context) {
	v, ok := h.version(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteVersion(c.Request.Context(), v.ID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}
