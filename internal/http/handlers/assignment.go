package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/http/response"
	"github.com/yungbote/contentline-backend/internal/services"
)

type AssignmentHandler struct {
	svc services.ContentService
}

func NewAssignmentHandler(svc services.ContentService) *AssignmentHandler {
	return &AssignmentHandler{svc: svc}
}

type assignRequest struct {
	CohortID uuid.UUID `json:"cohort_id"`
	ModuleID uuid.UUID `json:"module_id"`
	// AssignedDate is YYYY-MM-DD; empty means today.
	AssignedDate string `json:"assigned_date"`
}

type advanceRequest struct {
	// Version is a version id or code.
	Version string `json:"version"`
}

// POST /api/assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req assignRequest
	if !bindJSON(c, &req) {
		return
	}
	in := aggregates.AssignInput{CohortID: req.CohortID, ModuleID: req.ModuleID}
	if req.AssignedDate != "" {
		d, err := time.Parse(time.DateOnly, req.AssignedDate)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), errors.New("assigned_date must be YYYY-MM-DD"))
			return
		}
		in.AssignedDate = d
	}
	a, err := h.svc.Assign(c.Request.Context(), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"assignment": a})
}

// GET /api/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.GetAssignment(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": a})
}

// GET /api/cohorts/:cohort_id/modules/:module_id/assignment
func (h *AssignmentHandler) GetForPair(c *gin.Context) {
	cohortID, ok := parseUUIDParam(c, "cohort_id")
	if !ok {
		return
	}
	moduleID, ok := parseUUIDParam(c, "module_id")
	if !ok {
		return
	}
	a, err := h.svc.GetAssignmentFor(c.Request.Context(), cohortID, moduleID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": a})
}

// PUT /api/assignments/:id/version
func (h *AssignmentHandler) AdvanceVersion(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req advanceRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.LookupVersion(c.Request.Context(), req.Version)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	a, err := h.svc.AdvanceVersion(c.Request.Context(), id, v.ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": a})
}

// PUT /api/assignments/:id/status
func (h *AssignmentHandler) SetStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := content.ParseAssignmentStatus(req.Status)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(aggregates.CodeValidation), err)
		return
	}
	a, err := h.svc.SetAssignmentStatus(c.Request.Context(), id, status)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": a})
}
