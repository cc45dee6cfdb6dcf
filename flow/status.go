package flow

// Terminal reports whether s can never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusReady, StatusRejected, StatusAborted:
		return true
	default:
		return false
	}
}

// ValidateTransition reports whether a flow may move between the two
// statuses. The only legal moves are Pending -> Ready and
// Pending -> Rejected.
func ValidateTransition(from, to Status) bool {
	if from != StatusPending {
		return false
	}
	return to == StatusReady || to == StatusRejected
}

// TerminalResourceStatus maps a terminal flow status to the status its
// resource links must carry. The second return is false while the flow
// is still Pending.
func TerminalResourceStatus(s Status) (ResourceStatus, bool) {
	switch s {
	case StatusReady:
		return ResourceApprove, true
	case StatusRejected:
		return ResourceReject, true
	case StatusAborted:
		return ResourceAbort, true
	default:
		return ResourcePending, false
	}
}
