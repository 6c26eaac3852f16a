package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

type AssignmentAggregateDeps struct {
	Base BaseDeps

	Assignments repos.CohortModuleAssignmentRepo
	Versions    repos.ContentVersionRepo
	Directory   repos.DirectoryRepo
}

type assignmentAggregate struct {
	deps AssignmentAggregateDeps
}

func NewAssignmentAggregate(deps AssignmentAggregateDeps) domainagg.AssignmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &assignmentAggregate{deps: deps}
}

func (a *assignmentAggregate) Contract() domainagg.Contract {
	return domainagg.AssignmentAggregateContract
}

func (a *assignmentAggregate) Assign(ctx context.Context, in domainagg.AssignInput) (*content.CohortModuleAssignment, error) {
	const op = "Content.Assignment.Assign"
	if in.CohortID == uuid.Nil || in.ModuleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing cohort_id or module_id", nil)
	}
	assigned := in.AssignedDate
	if assigned.IsZero() {
		assigned = a.deps.Base.Now()
	}

	var out *content.CohortModuleAssignment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if a.deps.Directory != nil {
			cohort, err := a.deps.Directory.GetCohort(dbc, in.CohortID)
			if err != nil {
				return err
			}
			if cohort == nil {
				return domainagg.NewRefError(domainagg.CodeNotFound, op, "cohort not found", "cohort", in.CohortID.String())
			}
			module, err := a.deps.Directory.GetModule(dbc, in.ModuleID)
			if err != nil {
				return err
			}
			if module == nil {
				return domainagg.NewRefError(domainagg.CodeNotFound, op, "module not found", "module", in.ModuleID.String())
			}
			if module.ProgrammeID != cohort.ProgrammeID {
				return domainagg.NewRefError(domainagg.CodeLineageMismatch, op, "module is not part of the cohort's programme",
					"cohort", in.CohortID.String(), "module", in.ModuleID.String())
			}
		}
		existing, err := a.deps.Assignments.GetByPair(dbc, in.CohortID, in.ModuleID)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateAssignment(op, in.CohortID, in.ModuleID)
		}
		row := &content.CohortModuleAssignment{
			CohortID:     in.CohortID,
			ModuleID:     in.ModuleID,
			Status:       content.AssignmentNotStarted,
			AssignedDate: content.DateOf(assigned),
		}
		if err := a.deps.Assignments.Create(dbc, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if domainagg.IsCode(err, domainagg.CodeConflict) {
		// Lost a race on the unique pair index.
		return nil, duplicateAssignment(op, in.CohortID, in.ModuleID)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func duplicateAssignment(op string, cohortID, moduleID uuid.UUID) error {
	return domainagg.NewRefError(domainagg.CodeDuplicateAssignment, op, "cohort already has an assignment for module",
		"cohort", cohortID.String(), "module", moduleID.String())
}

func (a *assignmentAggregate) lockAssignment(dbc dbctx.Context, op string, id uuid.UUID) (*content.CohortModuleAssignment, error) {
	row, err := a.deps.Assignments.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewRefError(domainagg.CodeNotFound, op, "assignment not found", "assignment", id.String())
	}
	return row, nil
}

// AdvanceVersion points the assignment at versionID. It is allowed in every status,
// including Completed.
func (a *assignmentAggregate) AdvanceVersion(ctx context.Context, assignmentID, versionID uuid.UUID) (*content.CohortModuleAssignment, error) {
	const op = "Content.Assignment.AdvanceVersion"
	if assignmentID == uuid.Nil || versionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing assignment_id or version_id", nil)
	}
	var out *content.CohortModuleAssignment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := a.lockAssignment(dbc, op, assignmentID)
		if err != nil {
			return err
		}
		v, err := a.deps.Versions.LockByID(dbc, versionID)
		if err != nil {
			return err
		}
		if v == nil {
			return unknownVersion(op, versionID)
		}
		if v.CohortID != row.CohortID || v.ModuleID != row.ModuleID {
			return domainagg.NewRefError(domainagg.CodeLineageMismatch, op, "version belongs to another cohort/module",
				"assignment", row.ID.String(), "version", v.Code)
		}
		if err := a.deps.Assignments.UpdateFields(dbc, row.ID, map[string]interface{}{"current_version_id": v.ID}); err != nil {
			return err
		}
		row.CurrentVersionID = &v.ID
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *assignmentAggregate) SetStatus(ctx context.Context, assignmentID uuid.UUID, status content.AssignmentStatus) (*content.CohortModuleAssignment, error) {
	const op = "Content.Assignment.SetStatus"
	if assignmentID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing assignment_id", nil)
	}
	if !status.Valid() {
		return nil, domainagg.NewRefError(domainagg.CodeValidation, op, "unknown assignment status", "status", string(status))
	}
	var out *content.CohortModuleAssignment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := a.lockAssignment(dbc, op, assignmentID)
		if err != nil {
			return err
		}
		if !content.CanTransition(row.Status, status) {
			return domainagg.NewRefError(domainagg.CodeInvalidTransition, op, "assignment status transition not allowed",
				"assignment", row.ID.String(), "from", string(row.Status), "to", string(status))
		}
		now := a.deps.Base.Now()
		updates := map[string]any{"status": status, "updated_at": now}
		if status == content.AssignmentCompleted {
			completed := content.DateOf(now)
			updates["completion_date"] = completed
			row.CompletionDate = &completed
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, "cohort_module_assignment", row.ID, []string{string(row.Status)}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "assignment status changed concurrently"); err != nil {
			return err
		}
		row.Status = status
		row.UpdatedAt = now
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
