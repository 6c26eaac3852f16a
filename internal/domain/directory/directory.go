// Package directory holds the read models of the entity directory (clients,
// programmes, cohorts, modules, classes). They are maintained elsewhere; this
// service only looks them up to validate lineage scoping.
package directory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "client" }

type Programme struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Programme) TableName() string { return "programme" }

// Cohort names are unique within a programme.
type Cohort struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProgrammeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_cohort_programme_name,priority:1" json:"programme_id"`
	Name        string     `gorm:"column:name;not null;uniqueIndex:idx_cohort_programme_name,priority:2" json:"name"`
	StartDate   *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Cohort) TableName() string { return "cohort" }

type Module struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProgrammeID uuid.UUID `gorm:"type:uuid;not null;index" json:"programme_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	SortIndex   int       `gorm:"column:sort_index;not null;default:0" json:"sort_index"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Module) TableName() string { return "module" }

// Class is a session of a module; content files are attached per class.
type Class struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID  uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	SortIndex int       `gorm:"column:sort_index;not null;default:0" json:"sort_index"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Class) TableName() string { return "class" }

func (c *Client) BeforeCreate(tx *gorm.DB) error    { c.ID = ensureID(c.ID); return nil }
func (p *Programme) BeforeCreate(tx *gorm.DB) error { p.ID = ensureID(p.ID); return nil }
func (c *Cohort) BeforeCreate(tx *gorm.DB) error    { c.ID = ensureID(c.ID); return nil }
func (m *Module) BeforeCreate(tx *gorm.DB) error    { m.ID = ensureID(m.ID); return nil }
func (c *Class) BeforeCreate(tx *gorm.DB) error     { c.ID = ensureID(c.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
