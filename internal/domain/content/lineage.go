package content

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultMaxLineageDepth bounds every ancestry walk. A chain longer than this is
// treated as a cycle so that corrupted lineages fail fast instead of hanging.
const DefaultMaxLineageDepth = 64

// VersionLoader returns the stored version for id, or (nil, nil) when none exists.
type VersionLoader func(id uuid.UUID) (*ContentVersion, error)

// Ancestry walks parent links from startID and returns the chain root-first,
// ending with the start version itself. The walk fails with ErrCycle when it
// revisits a version and with ErrDepthExceeded when it needs more than maxDepth
// versions to reach a root.
func Ancestry(startID uuid.UUID, maxDepth int, load VersionLoader) ([]*ContentVersion, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxLineageDepth
	}
	seen := make(map[uuid.UUID]struct{}, 8)
	leafFirst := make([]*ContentVersion, 0, 8)

	next := startID
	for {
		if len(leafFirst) >= maxDepth {
			return nil, fmt.Errorf("%w: more than %d versions above %s", ErrDepthExceeded, maxDepth, startID)
		}
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("%w: %s revisited", ErrCycle, next)
		}
		seen[next] = struct{}{}

		v, err := load(next)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingVersion, next)
		}
		leafFirst = append(leafFirst, v)
		if v.IsRoot() {
			break
		}
		next = *v.ParentID
	}

	rootFirst := make([]*ContentVersion, len(leafFirst))
	for i, v := range leafFirst {
		rootFirst[len(leafFirst)-1-i] = v
	}
	return rootFirst, nil
}

// PlacementConflict reports whether attaching a node with the given id/code below
// the chain would close a loop: the node already appears among its would-be ancestors.
func PlacementConflict(chain []*ContentVersion, id uuid.UUID, code string) *ContentVersion {
	for _, v := range chain {
		if v == nil {
			continue
		}
		if id != uuid.Nil && v.ID == id {
			return v
		}
		if code != "" && v.Code == code {
			return v
		}
	}
	return nil
}
