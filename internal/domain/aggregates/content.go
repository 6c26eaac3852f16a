package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/contentline-backend/internal/domain/content"
)

var LineageAggregateContract = Contract{
	Name:             "Content.LineageAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns version graph shape (parent links, scoping, acyclicity) and each version's own file set.",
}

// LineageAggregate owns the version graph and per-version file ownership.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeConflict, CodeLineageMismatch, CodeCycleDetected, CodeUnknownVersion,
// CodeUnknownClass, CodeVersionPinned, CodeAlreadyFinalized, CodeConcurrentFinalizeConflict,
// CodeStorageFailure.
type LineageAggregate interface {
	Aggregate

	// CreateVersion validates scoping and acyclicity against the proposed parent and inserts
	// the version in the same transaction.
	CreateVersion(ctx context.Context, in CreateVersionInput) (*content.ContentVersion, error)

	// Reparent moves a leaf, unpinned, unfinalized version under a new parent (nil for root).
	Reparent(ctx context.Context, in ReparentInput) (*content.ContentVersion, error)

	// DeleteVersion soft-deletes a leaf, unpinned version. Its files, withdrawals and
	// change records stay as audit history.
	DeleteVersion(ctx context.Context, versionID uuid.UUID) error

	// SetVersionStatus records the advisory workflow marker.
	SetVersionStatus(ctx context.Context, versionID uuid.UUID, status content.VersionStatus) (*content.ContentVersion, error)

	// PutFile records (or replaces) the version's own file for a class.
	PutFile(ctx context.Context, in PutFileInput) (*content.ContentFile, error)

	// RemoveFile drops the version's own file for a class so the class is inherited again.
	RemoveFile(ctx context.Context, versionID, classID uuid.UUID) error

	// WithdrawClass drops a class from the version's effective content.
	WithdrawClass(ctx context.Context, in WithdrawClassInput) (*content.ContentWithdrawal, error)
}

type CreateVersionInput struct {
	ID             uuid.UUID
	Code           string
	CohortID       uuid.UUID
	ModuleID       uuid.UUID
	ParentID       *uuid.UUID
	VersionNumber  string
	DeliveryMethod string
	Status         content.VersionStatus
	CreatedBy      string
	Notes          string
}

type ReparentInput struct {
	VersionID   uuid.UUID
	NewParentID *uuid.UUID
}

type PutFileInput struct {
	VersionID uuid.UUID
	ClassID   uuid.UUID
	Path      string
	Name      string
	Type      string
}

type WithdrawClassInput struct {
	VersionID   uuid.UUID
	ClassID     uuid.UUID
	Reason      string
	WithdrawnBy string
}

var DiffAggregateContract = Contract{
	Name:             "Content.DiffAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns write-once change-log generations per version.",
}

// DiffAggregate computes and persists a version's change set against its parent.
//
// Write method failures should return *aggregates.Error with codes:
// CodeUnknownVersion, CodeCycleDetected, CodeAlreadyFinalized,
// CodeConcurrentFinalizeConflict, CodeStorageFailure.
type DiffAggregate interface {
	Aggregate

	FinalizeDiff(ctx context.Context, in FinalizeInput) (FinalizeResult, error)
}

type FinalizeInput struct {
	VersionID uuid.UUID
	ChangedBy string
	// Refinalize writes a new generation superseding the current one instead of failing.
	Refinalize bool
	// At overrides the change timestamp (defaults to now).
	At time.Time
}

type FinalizeResult struct {
	Version    *content.ContentVersion
	Generation int
	Changes    []*content.VersionChange
}

var AssignmentAggregateContract = Contract{
	Name:             "Content.AssignmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns cohort-module assignment uniqueness, status lifecycle and current version pointer.",
}

// AssignmentAggregate tracks which version is current for a cohort-module pairing.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeDuplicateAssignment, CodeLineageMismatch,
// CodeUnknownVersion, CodeInvalidTransition, CodeStorageFailure.
type AssignmentAggregate interface {
	Aggregate

	Assign(ctx context.Context, in AssignInput) (*content.CohortModuleAssignment, error)
	AdvanceVersion(ctx context.Context, assignmentID, versionID uuid.UUID) (*content.CohortModuleAssignment, error)
	SetStatus(ctx context.Context, assignmentID uuid.UUID, status content.AssignmentStatus) (*content.CohortModuleAssignment, error)
}

type AssignInput struct {
	CohortID uuid.UUID
	ModuleID uuid.UUID
	// AssignedDate defaults to today (UTC).
	AssignedDate time.Time
}
