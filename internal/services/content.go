package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

const systemActor = "system"

// ContentService is the entry point for version lineage, resolution, change logs
// and cohort-module assignments. Writes go through the aggregates; every committed
// write invalidates the resolver cache before returning.
type ContentService interface {
	CreateVersion(ctx context.Context, in domainagg.CreateVersionInput) (*content.ContentVersion, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*content.ContentVersion, error)
	GetVersionByCode(ctx context.Context, code string) (*content.ContentVersion, error)
	// LookupVersion accepts a version id or code.
	LookupVersion(ctx context.Context, ref string) (*content.ContentVersion, error)
	ListVersions(ctx context.Context, cohortID, moduleID uuid.UUID) ([]*content.ContentVersion, error)
	Reparent(ctx context.Context, versionID uuid.UUID, newParentID *uuid.UUID) (*content.ContentVersion, error)
	DeleteVersion(ctx context.Context, versionID uuid.UUID) error
	SetVersionStatus(ctx context.Context, versionID uuid.UUID, status content.VersionStatus) (*content.ContentVersion, error)

	PutFile(ctx context.Context, in domainagg.PutFileInput) (*content.ContentFile, error)
	RemoveFile(ctx context.Context, versionID, classID uuid.UUID) error
	WithdrawClass(ctx context.Context, in domainagg.WithdrawClassInput) (*content.ContentWithdrawal, error)

	Resolve(ctx context.Context, versionID uuid.UUID) (*Resolution, error)
	AncestryChain(ctx context.Context, versionID uuid.UUID) ([]*content.ContentVersion, error)

	FinalizeDiff(ctx context.Context, in domainagg.FinalizeInput) (domainagg.FinalizeResult, error)
	ListChanges(ctx context.Context, versionID uuid.UUID) ([]*content.VersionChange, error)

	Assign(ctx context.Context, in domainagg.AssignInput) (*content.CohortModuleAssignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*content.CohortModuleAssignment, error)
	GetAssignmentFor(ctx context.Context, cohortID, moduleID uuid.UUID) (*content.CohortModuleAssignment, error)
	AdvanceVersion(ctx context.Context, assignmentID, versionID uuid.UUID) (*content.CohortModuleAssignment, error)
	SetAssignmentStatus(ctx context.Context, assignmentID uuid.UUID, status content.AssignmentStatus) (*content.CohortModuleAssignment, error)
}

type ContentServiceDeps struct {
	Repos       repos.Set
	Lineage     domainagg.LineageAggregate
	Diff        domainagg.DiffAggregate
	Assignments domainagg.AssignmentAggregate
	Resolver    ContentResolver
	Notifier    SyncNotifier
	Projector   LineageProjector
}

type contentService struct {
	log  *logger.Logger
	deps ContentServiceDeps
}

func NewContentService(baseLog *logger.Logger, deps ContentServiceDeps) ContentService {
	if deps.Projector == nil {
		deps.Projector = noopProjector{}
	}
	return &contentService{
		log:  baseLog.With("service", "ContentService"),
		deps: deps,
	}
}

func (s *contentService) afterWrite() {
	if s.deps.Resolver != nil {
		s.deps.Resolver.Invalidate()
	}
}

func (s *contentService) notify(ctx context.Context, ev SyncEvent) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Record(ctx, ev)
	}
}

func (s *contentService) CreateVersion(ctx context.Context, in domainagg.CreateVersionInput) (*content.ContentVersion, error) {
	in.CreatedBy = ctxutil.ActorOr(ctx, in.CreatedBy)
	v, err := s.deps.Lineage.CreateVersion(ctx, in)
	if err != nil {
		return nil, err
	}
	s.afterWrite()
	s.notify(ctx, SyncEvent{
		EntityType: SyncEntityVersion,
		EntityID:   v.ID.String(),
		Action:     SyncActionCreate,
		ExternalID: v.Code,
		Payload: map[string]any{
			"cohort_id": v.CohortID,
			"module_id": v.ModuleID,
			"parent_id": v.ParentID,
		},
	})
	s.deps.Projector.Project(ctx, v)
	return v, nil
}

func (s *contentService) GetVersion(ctx context.Context, id uuid.UUID) (*content.ContentVersion, error) {
	const op = "Content.GetVersion"
	v, err := s.deps.Repos.Versions.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if v == nil {
		return nil, domainagg.NewRefError(domainagg.CodeUnknownVersion, op, "version not found", "version", id.String())
	}
	return v, nil
}

func (s *contentService) GetVersionByCode(ctx context.Context, code string) (*content.ContentVersion, error) {
	const op = "Content.GetVersionByCode"
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing code", nil)
	}
	v, err := s.deps.Repos.Versions.GetByCode(dbctx.Context{Ctx: ctx}, code)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if v == nil {
		return nil, domainagg.NewRefError(domainagg.CodeUnknownVersion, op, "version not found", "version", code)
	}
	return v, nil
}

func (s *contentService) LookupVersion(ctx context.Context, ref string) (*content.ContentVersion, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.GetVersion(ctx, id)
	}
	return s.GetVersionByCode(ctx, ref)
}

func (s *contentService) ListVersions(ctx context.Context, cohortID, moduleID uuid.UUID) ([]*content.ContentVersion, error) {
	const op = "Content.ListVersions"
	if cohortID == uuid.Nil || moduleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing cohort_id or module_id", nil)
	}
	rows, err := s.deps.Repos.Versions.ListByLineage(dbctx.Context{Ctx: ctx}, cohortID, moduleID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rows, nil
}

func (s *contentService) Reparent(ctx context.Context, versionID uuid.UUID, newParentID *uuid.UUID) (*content.ContentVersion, error) {
	v, err := s.deps.Lineage.Reparent(ctx, domainagg.ReparentInput{VersionID: versionID, NewParentID: newParentID})
	if err != nil {
		return nil, err
	}
	s.afterWrite()
	s.deps.Projector.Project(ctx, v)
	return v, nil
}

func (s *contentService) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	if err := s.deps.Lineage.DeleteVersion(ctx, versionID); err != nil {
		return err
	}
	s.afterWrite()
	s.deps.Projector.Remove(ctx, versionID)
	return nil
}

func (s *contentService) SetVersionStatus(ctx context.Context, versionID uuid.UUID, status content.VersionStatus) (*content.ContentVersion, error) {
	v, err := s.deps.Lineage.SetVersionStatus(ctx, versionID, status)
	if err != nil {
		return nil, err
	}
	s.afterWrite()
	s.deps.Projector.Project(ctx, v)
	return v, nil
}

func (s *contentService) PutFile(ctx context.Context, in domainagg.PutFileInput) (*content.ContentFile, error) {
	f, err := s.deps.Lineage.PutFile(ctx, in)
	if err != nil {
		return nil, err
	}
	s.afterWrite()
	return f, nil
}

func (s *contentService) RemoveFile(ctx context.Context, versionID, classID uuid.UUID) error {
	if err := s.deps.Lineage.RemoveFile(ctx, versionID, classID); err != nil {
		return err
	}
	s.afterWrite()
	return nil
}

func (s *contentService) WithdrawClass(ctx context.Context, in domainagg.WithdrawClassInput) (*content.ContentWithdrawal, error) {
	in.WithdrawnBy = ctxutil.ActorOr(ctx, in.WithdrawnBy)
	w, err := s.deps.Lineage.WithdrawClass(ctx, in)
	if err != nil {
		return nil, err
	}
	s.afterWrite()
	return w, nil
}

func (s *contentService) Resolve(ctx context.Context, versionID uuid.UUID) (*Resolution, error) {
	return s.deps.Resolver.Resolve(ctx, versionID)
}

func (s *contentService) AncestryChain(ctx context.Context, versionID uuid.UUID) ([]*content.ContentVersion, error) {
	return s.deps.Resolver.AncestryChain(ctx, versionID)
}

func (s *contentService) FinalizeDiff(ctx context.Context, in domainagg.FinalizeInput) (domainagg.FinalizeResult, error) {
	in.ChangedBy = ctxutil.ActorOr(ctx, in.ChangedBy)
	if in.ChangedBy == "" {
		in.ChangedBy = systemActor
	}
	res, err := s.deps.Diff.FinalizeDiff(ctx, in)
	if err != nil {
		return domainagg.FinalizeResult{}, err
	}
	s.afterWrite()
	s.notify(ctx, SyncEvent{
		EntityType: SyncEntityVersion,
		EntityID:   res.Version.ID.String(),
		Action:     SyncActionFinalize,
		ExternalID: res.Version.Code,
		Payload: map[string]any{
			"generation": res.Generation,
			"changes":    len(res.Changes),
		},
	})
	s.deps.Projector.Project(ctx, res.Version)
	return res, nil
}

func (s *contentService) ListChanges(ctx context.Context, versionID uuid.UUID) ([]*content.VersionChange, error) {
	const op = "Content.ListChanges"
	if _, err := s.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}
	rows, err := s.deps.Repos.Changes.ListLatest(dbctx.Context{Ctx: ctx}, versionID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rows, nil
}

func (s *contentService) Assign(ctx context.Context, in domainagg.AssignInput) (*content.CohortModuleAssignment, error) {
	return s.deps.Assignments.Assign(ctx, in)
}

func (s *contentService) GetAssignment(ctx context.Context, id uuid.UUID) (*content.CohortModuleAssignment, error) {
	const op = "Content.GetAssignment"
	row, err := s.deps.Repos.Assignments.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if row == nil {
		return nil, domainagg.NewRefError(domainagg.CodeNotFound, op, "assignment not found", "assignment", id.String())
	}
	return row, nil
}

func (s *contentService) GetAssignmentFor(ctx context.Context, cohortID, moduleID uuid.UUID) (*content.CohortModuleAssignment, error) {
	const op = "Content.GetAssignmentFor"
	row, err := s.deps.Repos.Assignments.GetByPair(dbctx.Context{Ctx: ctx}, cohortID, moduleID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if row == nil {
		return nil, domainagg.NewRefError(domainagg.CodeNotFound, op, "assignment not found",
			"cohort", cohortID.String(), "module", moduleID.String())
	}
	return row, nil
}

func (s *contentService) AdvanceVersion(ctx context.Context, assignmentID, versionID uuid.UUID) (*content.CohortModuleAssignment, error) {
	row, err := s.deps.Assignments.AdvanceVersion(ctx, assignmentID, versionID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, SyncEvent{
		EntityType: SyncEntityAssignment,
		EntityID:   row.ID.String(),
		Action:     SyncActionAdvance,
		ExternalID: versionID.String(),
		Payload: map[string]any{
			"cohort_id": row.CohortID,
			"module_id": row.ModuleID,
			"status":    row.Status,
		},
	})
	return row, nil
}

func (s *contentService) SetAssignmentStatus(ctx context.Context, assignmentID uuid.UUID, status content.AssignmentStatus) (*content.CohortModuleAssignment, error) {
	return s.deps.Assignments.SetStatus(ctx, assignmentID, status)
}
