package content

import "errors"

var (
	// ErrCycle means a parent walk revisited a version.
	ErrCycle = errors.New("lineage cycle")
	// ErrDepthExceeded means a parent walk passed the depth bound without reaching a root.
	ErrDepthExceeded = errors.New("lineage depth bound exceeded")
	// ErrMissingVersion means the walk hit an id with no stored version.
	ErrMissingVersion = errors.New("lineage references a missing version")
)
