package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentVersion is one customization of a module's content for a cohort.
// ParentID is a weak back-reference to the version it was derived from; it must
// belong to the same (cohort, module) lineage.
type ContentVersion struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Code string `gorm:"column:code;not null;uniqueIndex:idx_content_version_code" json:"code"`

	CohortID uuid.UUID  `gorm:"type:uuid;not null;index:idx_content_version_lineage,priority:1" json:"cohort_id"`
	ModuleID uuid.UUID  `gorm:"type:uuid;not null;index:idx_content_version_lineage,priority:2" json:"module_id"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`

	VersionNumber  string        `gorm:"column:version_number" json:"version_number"`
	DeliveryMethod string        `gorm:"column:delivery_method" json:"delivery_method"`
	Status         VersionStatus `gorm:"column:status;not null" json:"status"`
	CreatedBy      string        `gorm:"column:created_by" json:"created_by"`
	Notes          string        `gorm:"column:notes" json:"notes"`

	// FinalizedAt is set once the change log has been written; FinalizeGeneration counts
	// explicit re-finalizations.
	FinalizedAt        *time.Time `gorm:"column:finalized_at" json:"finalized_at,omitempty"`
	FinalizeGeneration int        `gorm:"column:finalize_generation;not null;default:0" json:"finalize_generation"`

	// Revision is bumped in the same transaction as every change to the row, its own
	// files or its withdrawals. A cached resolution is current while every chain
	// member still has the revision it was folded with.
	Revision int64 `gorm:"column:revision;not null;default:0" json:"revision"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ContentVersion) TableName() string { return "content_version" }

func (v *ContentVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = VersionNotStarted
	}
	return nil
}

func (v *ContentVersion) IsRoot() bool { return v.ParentID == nil || *v.ParentID == uuid.Nil }

func (v *ContentVersion) IsFinalized() bool { return v.FinalizedAt != nil }

// SameLineage reports whether o is scoped to the same (cohort, module) pair.
func (v *ContentVersion) SameLineage(o *ContentVersion) bool {
	return v != nil && o != nil && v.CohortID == o.CohortID && v.ModuleID == o.ModuleID
}

// ContentFile is a file owned directly by a version for one class.
// Inherited files are never materialized as rows.
type ContentFile struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	VersionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_file_version_class,priority:1" json:"version_id"`
	ClassID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_file_version_class,priority:2;index" json:"class_id"`

	Path string `gorm:"column:path;not null" json:"path"`
	Name string `gorm:"column:name;not null" json:"name"`
	Type string `gorm:"column:type" json:"type"`

	// IsModified is true when this row was authored for the version rather than
	// restating what it would inherit anyway. Root versions always own modified files.
	IsModified bool `gorm:"column:is_modified;not null" json:"is_modified"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ContentFile) TableName() string { return "content_file" }

func (f *ContentFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Identity is the comparable part of a file used for diffing.
func (f *ContentFile) Identity() FileIdentity {
	return FileIdentity{Path: f.Path, Name: f.Name, Type: f.Type}
}

// ContentWithdrawal drops a class at a version: from that version on (until a
// descendant provides a file again) the class is absent from the effective content.
type ContentWithdrawal struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	VersionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_withdrawal_version_class,priority:1" json:"version_id"`
	ClassID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_withdrawal_version_class,priority:2" json:"class_id"`

	Reason      string `gorm:"column:reason" json:"reason"`
	WithdrawnBy string `gorm:"column:withdrawn_by" json:"withdrawn_by"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ContentWithdrawal) TableName() string { return "content_withdrawal" }

func (w *ContentWithdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// VersionChange is an immutable audit row produced by finalization.
// Re-finalizing writes a new Generation; readers only see the latest one.
type VersionChange struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	VersionID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_version_change_version_gen,priority:1" json:"version_id"`
	Generation int        `gorm:"column:generation;not null;index:idx_version_change_version_gen,priority:2" json:"generation"`
	ClassID    uuid.UUID  `gorm:"type:uuid;not null" json:"class_id"`
	ChangeType ChangeType `gorm:"column:change_type;not null" json:"change_type"`

	Description string    `gorm:"column:description" json:"description"`
	ChangedBy   string    `gorm:"column:changed_by" json:"changed_by"`
	ChangedAt   time.Time `gorm:"column:changed_at;not null" json:"changed_at"`
}

func (VersionChange) TableName() string { return "version_change" }

func (c *VersionChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CohortModuleAssignment tracks which version is current for a cohort-module pairing.
type CohortModuleAssignment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	CohortID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cohort_module_assignment_pair,priority:1" json:"cohort_id"`
	ModuleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cohort_module_assignment_pair,priority:2" json:"module_id"`

	CurrentVersionID *uuid.UUID       `gorm:"type:uuid;index" json:"current_version_id,omitempty"`
	Status           AssignmentStatus `gorm:"column:status;not null" json:"status"`
	AssignedDate     time.Time        `gorm:"column:assigned_date;not null" json:"assigned_date"`
	CompletionDate   *time.Time       `gorm:"column:completion_date" json:"completion_date,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CohortModuleAssignment) TableName() string { return "cohort_module_assignment" }

func (a *CohortModuleAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AssignmentNotStarted
	}
	return nil
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
