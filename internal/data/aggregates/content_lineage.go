package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

// DefaultEditLockWait bounds how long file edits wait behind another writer of
// the same version before failing with a concurrency conflict.
const DefaultEditLockWait = 2 * time.Second

type LineageAggregateDeps struct {
	Base BaseDeps

	Versions    repos.ContentVersionRepo
	Files       repos.ContentFileRepo
	Withdrawals repos.ContentWithdrawalRepo
	Assignments repos.CohortModuleAssignmentRepo
	Directory   repos.DirectoryRepo

	MaxDepth int
	LockWait time.Duration
}

type lineageAggregate struct {
	deps  LineageAggregateDeps
	chain ChainReader
}

func NewLineageAggregate(deps LineageAggregateDeps) domainagg.LineageAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.LockWait <= 0 {
		deps.LockWait = DefaultEditLockWait
	}
	return &lineageAggregate{
		deps: deps,
		chain: ChainReader{
			Versions:    deps.Versions,
			Files:       deps.Files,
			Withdrawals: deps.Withdrawals,
			MaxDepth:    deps.MaxDepth,
		},
	}
}

func (a *lineageAggregate) Contract() domainagg.Contract {
	return domainagg.LineageAggregateContract
}

func (a *lineageAggregate) CreateVersion(ctx context.Context, in domainagg.CreateVersionInput) (*content.ContentVersion, error) {
	const op = "Content.Lineage.CreateVersion"
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing code", nil)
	}
	if in.CohortID == uuid.Nil || in.ModuleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing cohort_id or module_id", nil)
	}
	status := in.Status
	if status == "" {
		status = content.VersionNotStarted
	}
	if !status.Valid() {
		return nil, domainagg.NewRefError(domainagg.CodeValidation, op, "unknown version status", "status", string(status))
	}
	if in.ParentID != nil && *in.ParentID == uuid.Nil {
		in.ParentID = nil
	}
	if in.ParentID != nil && in.ID != uuid.Nil && *in.ParentID == in.ID {
		return nil, domainagg.NewRefError(domainagg.CodeCycleDetected, op, "version cannot be its own parent", "version", code)
	}

	var out *content.ContentVersion
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.checkScope(dbc, op, in.CohortID, in.ModuleID); err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := a.deps.Versions.LockByID(dbc, *in.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return domainagg.NewRefError(domainagg.CodeUnknownVersion, op, "parent version not found", "parent", in.ParentID.String())
			}
			if parent.CohortID != in.CohortID || parent.ModuleID != in.ModuleID {
				return domainagg.NewRefError(domainagg.CodeLineageMismatch, op, "parent belongs to another cohort/module lineage",
					"version", code, "parent", parent.Code)
			}
			chain, err := a.chain.parentChain(dbc, parent.ID)
			if err != nil {
				return LineageError(op, err, "version", code, "parent", parent.Code)
			}
			if hit := content.PlacementConflict(chain, in.ID, code); hit != nil {
				return domainagg.NewRefError(domainagg.CodeCycleDetected, op, "version already appears among its ancestors",
					"version", code, "ancestor", hit.Code)
			}
		}

		taken, err := a.deps.Versions.CodeTaken(dbc, code)
		if err != nil {
			return err
		}
		if taken {
			return domainagg.NewRefError(domainagg.CodeConflict, op, "version code already exists", "code", code)
		}
		if in.ID != uuid.Nil {
			existing, err := a.deps.Versions.GetByID(dbc, in.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return domainagg.NewRefError(domainagg.CodeConflict, op, "version id already exists", "version", in.ID.String())
			}
		}

		v := &content.ContentVersion{
			ID:             in.ID,
			Code:           code,
			CohortID:       in.CohortID,
			ModuleID:       in.ModuleID,
			ParentID:       in.ParentID,
			VersionNumber:  strings.TrimSpace(in.VersionNumber),
			DeliveryMethod: strings.TrimSpace(in.DeliveryMethod),
			Status:         status,
			CreatedBy:      strings.TrimSpace(in.CreatedBy),
			Notes:          in.Notes,
		}
		if err := a.deps.Versions.Create(dbc, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.deps.Base.Log.Debug("content version created", "version_code", out.Code, "version_id", out.ID, "created_by", out.CreatedBy)
	return out, nil
}

// checkScope validates the (cohort, module) pair against the entity directory.
func (a *lineageAggregate) checkScope(dbc dbctx.Context, op string, cohortID, moduleID uuid.UUID) error {
	if a.deps.Directory == nil {
		return nil
	}
	cohort, err := a.deps.Directory.GetCohort(dbc, cohortID)
	if err != nil {
		return err
	}
	if cohort == nil {
		return domainagg.NewRefError(domainagg.CodeNotFound, op, "cohort not found", "cohort", cohortID.String())
	}
	module, err := a.deps.Directory.GetModule(dbc, moduleID)
	if err != nil {
		return err
	}
	if module == nil {
		return domainagg.NewRefError(domainagg.CodeNotFound, op, "module not found", "module", moduleID.String())
	}
	if module.ProgrammeID != cohort.ProgrammeID {
		return domainagg.NewRefError(domainagg.CodeLineageMismatch, op, "module is not part of the cohort's programme",
			"cohort", cohortID.String(), "module", moduleID.String())
	}
	return nil
}

// requireUnpinned fails when v has live children or is current for an assignment.
func (a *lineageAggregate) requireUnpinned(dbc dbctx.Context, op string, v *content.ContentVersion) error {
	hasChildren, err := a.deps.Versions.HasChildren(dbc, v.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return domainagg.NewRefError(domainagg.CodeVersionPinned, op, "version has derived versions", "version", v.Code, "reason", "children")
	}
	if a.deps.Assignments != nil {
		current, err := a.deps.Assignments.IsCurrentVersion(dbc, v.ID)
		if err != nil {
			return err
		}
		if current {
			return domainagg.NewRefError(domainagg.CodeVersionPinned, op, "version is current for an assignment", "version", v.Code, "reason", "assignment")
		}
	}
	return nil
}

func (a *lineageAggregate) lockVersion(dbc dbctx.Context, op string, id uuid.UUID) (*content.ContentVersion, error) {
	v, err := a.deps.Versions.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, unknownVersion(op, id)
	}
	return v, nil
}

func (a *lineageAggregate) Reparent(ctx context.Context, in domainagg.ReparentInput) (*content.ContentVersion, error) {
	const op = "Content.Lineage.Reparent"
	if in.VersionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing version_id", nil)
	}
	if in.NewParentID != nil && *in.NewParentID == uuid.Nil {
		in.NewParentID = nil
	}

	var out *content.ContentVersion
	err := executeLocked(ctx, a.deps.Base, op, in.VersionID.String(), a.deps.LockWait, func(dbc dbctx.Context) error {
		v, err := a.lockVersion(dbc, op, in.VersionID)
		if err != nil {
			return err
		}
		if v.IsFinalized() {
			return domainagg.NewRefError(domainagg.CodeAlreadyFinalized, op, "finalized versions cannot be reparented", "version", v.Code)
		}
		if err := a.requireUnpinned(dbc, op, v); err != nil {
			return err
		}

		var newParent interface{}
		if in.NewParentID != nil {
			if *in.NewParentID == v.ID {
				return domainagg.NewRefError(domainagg.CodeCycleDetected, op, "version cannot be its own parent", "version", v.Code)
			}
			parent, err := a.deps.Versions.LockByID(dbc, *in.NewParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return domainagg.NewRefError(domainagg.CodeUnknownVersion, op, "parent version not found", "parent", in.NewParentID.String())
			}
			if !v.SameLineage(parent) {
				return domainagg.NewRefError(domainagg.CodeLineageMismatch, op, "parent belongs to another cohort/module lineage",
					"version", v.Code, "parent", parent.Code)
			}
			chain, err := a.chain.parentChain(dbc, parent.ID)
			if err != nil {
				return LineageError(op, err, "version", v.Code, "parent", parent.Code)
			}
			if hit := content.PlacementConflict(chain, v.ID, v.Code); hit != nil {
				return domainagg.NewRefError(domainagg.CodeCycleDetected, op, "version already appears among its would-be ancestors",
					"version", v.Code, "ancestor", hit.Code)
			}
			newParent = parent.ID
			v.ParentID = &parent.ID
		} else {
			v.ParentID = nil
		}

		if err := a.deps.Versions.UpdateFields(dbc, v.ID, map[string]interface{}{"parent_id": newParent}); err != nil {
			return err
		}
		if _, err := a.refreshModifiedFlags(dbc, v); err != nil {
			return err
		}
		if err := a.deps.Versions.Touch(dbc, v.ID); err != nil {
			return err
		}
		v.Revision++
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// refreshModifiedFlags recomputes IsModified for v's own files against its current
// parent and reports whether any flag changed.
func (a *lineageAggregate) refreshModifiedFlags(dbc dbctx.Context, v *content.ContentVersion) (bool, error) {
	own, err := a.deps.Files.ListByVersion(dbc, v.ID)
	if err != nil {
		return false, err
	}
	if len(own) == 0 {
		return false, nil
	}
	parentView, err := a.chain.parentView(dbc, v)
	if err != nil {
		return false, LineageError("Content.Lineage.refreshModifiedFlags", err, "version", v.Code)
	}
	changed := false
	for _, f := range own {
		modified := v.IsRoot() || parentView.Differs(f.ClassID, f.Identity())
		if modified == f.IsModified {
			continue
		}
		f.IsModified = modified
		if err := a.deps.Files.Upsert(dbc, f); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// fileSetChanged runs after v's own files or withdrawals changed: it bumps v's
// revision and recomputes IsModified for every live descendant, level by level.
func (a *lineageAggregate) fileSetChanged(dbc dbctx.Context, op string, v *content.ContentVersion) error {
	if err := a.deps.Versions.Touch(dbc, v.ID); err != nil {
		return err
	}
	frontier := []uuid.UUID{v.ID}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= a.chain.maxDepth() {
			return LineageError(op, content.ErrDepthExceeded, "version", v.Code)
		}
		var next []uuid.UUID
		for _, id := range frontier {
			children, err := a.deps.Versions.ListChildren(dbc, id)
			if err != nil {
				return err
			}
			for _, child := range children {
				changed, err := a.refreshModifiedFlags(dbc, child)
				if err != nil {
					return err
				}
				if changed {
					if err := a.deps.Versions.Touch(dbc, child.ID); err != nil {
						return err
					}
				}
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return nil
}

func (a *lineageAggregate) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	const op = "Content.Lineage.DeleteVersion"
	if versionID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing version_id", nil)
	}
	return executeLocked(ctx, a.deps.Base, op, versionID.String(), a.deps.LockWait, func(dbc dbctx.Context) error {
		v, err := a.lockVersion(dbc, op, versionID)
		if err != nil {
			return err
		}
		if err := a.requireUnpinned(dbc, op, v); err != nil {
			return err
		}
		return a.deps.Versions.SoftDelete(dbc, v.ID)
	})
}

func (a *lineageAggregate) SetVersionStatus(ctx context.Context, versionID uuid.UUID, status content.VersionStatus) (*content.ContentVersion, error) {
	const op = "Content.Lineage.SetVersionStatus"
	if versionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing version_id", nil)
	}
	if !status.Valid() {
		return nil, domainagg.NewRefError(domainagg.CodeValidation, op, "unknown version status", "status", string(status))
	}
	var out *content.ContentVersion
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		v, err := a.lockVersion(dbc, op, versionID)
		if err != nil {
			return err
		}
		if err := a.deps.Versions.UpdateFields(dbc, v.ID, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		if err := a.deps.Versions.Touch(dbc, v.ID); err != nil {
			return err
		}
		v.Status = status
		v.Revision++
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkClass validates that classID exists and belongs to v's module.
func (a *lineageAggregate) checkClass(dbc dbctx.Context, op string, v *content.ContentVersion, classID uuid.UUID) error {
	if a.deps.Directory == nil {
		return nil
	}
	class, err := a.deps.Directory.GetClass(dbc, classID)
	if err != nil {
		return err
	}
	if class == nil {
		return domainagg.NewRefError(domainagg.CodeUnknownClass, op, "class not found", "class", classID.String())
	}
	if class.ModuleID != v.ModuleID {
		return domainagg.NewRefError(domainagg.CodeLineageMismatch, op, "class belongs to another module",
			"version", v.Code, "class", classID.String())
	}
	return nil
}

func (a *lineageAggregate) PutFile(ctx context.Context, in domainagg.PutFileInput) (*content.ContentFile, error) {
	const op = "Content.Lineage.PutFile"
	if in.VersionID == uuid.Nil || in.ClassID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing version_id or class_id", nil)
	}
	identity := content.FileIdentity{
		Path: strings.TrimSpace(in.Path),
		Name: strings.TrimSpace(in.Name),
		Type: strings.TrimSpace(in.Type),
	}
	if identity.Path == "" || identity.Name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "file path and name are required", nil)
	}

	var out *content.ContentFile
	err := executeLocked(ctx, a.deps.Base, op, in.VersionID.String(), a.deps.LockWait, func(dbc dbctx.Context) error {
		v, err := a.lockVersion(dbc, op, in.VersionID)
		if err != nil {
			return err
		}
		if err := a.checkClass(dbc, op, v, in.ClassID); err != nil {
			return err
		}
		parentView, err := a.chain.parentView(dbc, v)
		if err != nil {
			return LineageError(op, err, "version", v.Code)
		}
		if _, err := a.deps.Withdrawals.Delete(dbc, v.ID, in.ClassID); err != nil {
			return err
		}
		f := &content.ContentFile{
			VersionID:  v.ID,
			ClassID:    in.ClassID,
			Path:       identity.Path,
			Name:       identity.Name,
			Type:       identity.Type,
			IsModified: v.IsRoot() || parentView.Differs(in.ClassID, identity),
		}
		if err := a.deps.Files.Upsert(dbc, f); err != nil {
			return err
		}
		if err := a.fileSetChanged(dbc, op, v); err != nil {
			return err
		}
		stored, err := a.deps.Files.GetByVersionClass(dbc, v.ID, in.ClassID)
		if err != nil {
			return err
		}
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *lineageAggregate) RemoveFile(ctx context.Context, versionID, classID uuid.UUID) error {
	const op = "Content.Lineage.RemoveFile"
	if versionID == uuid.Nil || classID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing version_id or class_id", nil)
	}
	return executeLocked(ctx, a.deps.Base, op, versionID.String(), a.deps.LockWait, func(dbc dbctx.Context) error {
		v, err := a.lockVersion(dbc, op, versionID)
		if err != nil {
			return err
		}
		deleted, err := a.deps.Files.Delete(dbc, v.ID, classID)
		if err != nil {
			return err
		}
		if !deleted {
			return domainagg.NewRefError(domainagg.CodeNotFound, op, "version owns no file for class",
				"version", v.Code, "class", classID.String())
		}
		return a.fileSetChanged(dbc, op, v)
	})
}

func (a *lineageAggregate) WithdrawClass(ctx context.Context, in domainagg.WithdrawClassInput) (*content.ContentWithdrawal, error) {
	const op = "Content.Lineage.WithdrawClass"
	if in.VersionID == uuid.Nil || in.ClassID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing version_id or class_id", nil)
	}
	var out *content.ContentWithdrawal
	err := executeLocked(ctx, a.deps.Base, op, in.VersionID.String(), a.deps.LockWait, func(dbc dbctx.Context) error {
		v, err := a.lockVersion(dbc, op, in.VersionID)
		if err != nil {
			return err
		}
		if err := a.checkClass(dbc, op, v, in.ClassID); err != nil {
			return err
		}
		if _, err := a.deps.Files.Delete(dbc, v.ID, in.ClassID); err != nil {
			return err
		}
		w := &content.ContentWithdrawal{
			VersionID:   v.ID,
			ClassID:     in.ClassID,
			Reason:      strings.TrimSpace(in.Reason),
			WithdrawnBy: strings.TrimSpace(in.WithdrawnBy),
		}
		if err := a.deps.Withdrawals.Create(dbc, w); err != nil {
			return err
		}
		if err := a.fileSetChanged(dbc, op, v); err != nil {
			return err
		}
		rows, err := a.deps.Withdrawals.ListByVersionIDs(dbc, []uuid.UUID{v.ID})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.ClassID == in.ClassID {
				out = row
				return nil
			}
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
