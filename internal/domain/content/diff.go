package content

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Change is a computed, not yet persisted, change-set entry.
type Change struct {
	ClassID     uuid.UUID
	Type        ChangeType
	Description string
}

// ComputeChanges derives the change set of a version against its parent.
//
// parentView is the resolved content of the parent (empty for roots), own the
// files the version owns directly, resolved the version's own resolved view.
// A class that is only inherited is not a change; a class is Removed only when it
// is visible in the parent and gone from the version's resolved view.
func ComputeChanges(parentView EffectiveContent, own []*ContentFile, resolved EffectiveContent) []Change {
	owned := make(map[uuid.UUID]*ContentFile, len(own))
	for _, f := range own {
		if f != nil {
			owned[f.ClassID] = f
		}
	}

	var out []Change
	for classID, f := range owned {
		prev, inParent := parentView[classID]
		switch {
		case !inParent:
			out = append(out, Change{
				ClassID:     classID,
				Type:        ChangeAdded,
				Description: fmt.Sprintf("added %s", displayName(f.Identity())),
			})
		case prev.FileIdentity != f.Identity():
			out = append(out, Change{
				ClassID:     classID,
				Type:        ChangeModified,
				Description: fmt.Sprintf("%s replaced by %s", displayName(prev.FileIdentity), displayName(f.Identity())),
			})
		}
	}
	for classID, prev := range parentView {
		if _, ok := owned[classID]; ok {
			continue
		}
		if _, ok := resolved[classID]; ok {
			continue
		}
		out = append(out, Change{
			ClassID:     classID,
			Type:        ChangeRemoved,
			Description: fmt.Sprintf("removed %s", displayName(prev.FileIdentity)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return lessChange(out[i].Type, out[i].ClassID, out[j].Type, out[j].ClassID) })
	return out
}

// SortChanges orders change records for presentation: ChangedAt descending,
// then change type, then class id.
func SortChanges(rows []*VersionChange) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.ChangedAt.Equal(b.ChangedAt) {
			return a.ChangedAt.After(b.ChangedAt)
		}
		return lessChange(a.ChangeType, a.ClassID, b.ChangeType, b.ClassID)
	})
}

// ToRecords materializes computed changes as audit rows of one generation.
func ToRecords(versionID uuid.UUID, generation int, changedBy string, changedAt time.Time, changes []Change) []*VersionChange {
	out := make([]*VersionChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, &VersionChange{
			ID:          uuid.New(),
			VersionID:   versionID,
			Generation:  generation,
			ClassID:     c.ClassID,
			ChangeType:  c.Type,
			Description: c.Description,
			ChangedBy:   changedBy,
			ChangedAt:   changedAt,
		})
	}
	return out
}

func lessChange(at ChangeType, aClass uuid.UUID, bt ChangeType, bClass uuid.UUID) bool {
	if at.rank() != bt.rank() {
		return at.rank() < bt.rank()
	}
	return aClass.String() < bClass.String()
}

func displayName(id FileIdentity) string {
	if id.Name != "" {
		return fmt.Sprintf("%q", id.Name)
	}
	return fmt.Sprintf("%q", id.Path)
}
