package content

import (
	"fmt"
	"strings"
)

// VersionStatus is the advisory workflow marker of a content version.
// It does not gate resolution or diffing.
type VersionStatus string

const (
	VersionNotStarted    VersionStatus = "NotStarted"
	VersionCustomization VersionStatus = "Customization"
	VersionReview        VersionStatus = "Review"
	VersionReady         VersionStatus = "Ready"
)

var versionStatuses = []VersionStatus{VersionNotStarted, VersionCustomization, VersionReview, VersionReady}

func (s VersionStatus) Valid() bool {
	for _, v := range versionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseVersionStatus accepts the canonical value case-insensitively; empty means NotStarted.
func ParseVersionStatus(raw string) (VersionStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return VersionNotStarted, nil
	}
	for _, v := range versionStatuses {
		if strings.EqualFold(raw, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown version status %q", raw)
}

// AssignmentStatus is the lifecycle of a cohort-module assignment.
type AssignmentStatus string

const (
	AssignmentNotStarted AssignmentStatus = "NotStarted"
	AssignmentInProgress AssignmentStatus = "InProgress"
	AssignmentCompleted  AssignmentStatus = "Completed"
)

var assignmentStatuses = []AssignmentStatus{AssignmentNotStarted, AssignmentInProgress, AssignmentCompleted}

func (s AssignmentStatus) Valid() bool {
	for _, v := range assignmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func ParseAssignmentStatus(raw string) (AssignmentStatus, error) {
	raw = strings.TrimSpace(raw)
	for _, v := range assignmentStatuses {
		if strings.EqualFold(raw, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown assignment status %q", raw)
}

// ChangeType classifies a VersionChange. The declaration order is the presentation order.
type ChangeType string

const (
	ChangeAdded    ChangeType = "Added"
	ChangeModified ChangeType = "Modified"
	ChangeRemoved  ChangeType = "Removed"
)

func (c ChangeType) rank() int {
	switch c {
	case ChangeAdded:
		return 0
	case ChangeModified:
		return 1
	case ChangeRemoved:
		return 2
	default:
		return 3
	}
}

func (c ChangeType) Valid() bool { return c.rank() < 3 }
