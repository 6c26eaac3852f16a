package content

// CanTransition reports whether an assignment may move from one status to another.
// Only the forward steps NotStarted -> InProgress -> Completed are legal, and
// Completed is terminal.
func CanTransition(from, to AssignmentStatus) bool {
	switch from {
	case AssignmentNotStarted:
		return to == AssignmentInProgress
	case AssignmentInProgress:
		return to == AssignmentCompleted
	default:
		return false
	}
}
