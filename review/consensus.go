package review

import (
	"context"

	"govflow/flow"
	"govflow/store"
)

// Tracker evaluates whether every participant of a flow has recorded a
// completed decision. It always takes a fresh read from the store: the
// store is the sole source of truth and concurrent reviewers may
// complete in parallel, so a participant list cached before the caller's
// own write must never be trusted.
type Tracker struct {
	store store.Client
}

// NewTracker builds a tracker over the given store boundary.
func NewTracker(st store.Client) *Tracker {
	return &Tracker{store: st}
}

// AllComplete reports consensus for the flow. A flow with no
// participants is treated as not yet determined, never as consensus;
// this guards against a flow created without reviewers.
func (t *Tracker) AllComplete(ctx context.Context, approvalID string) (bool, error) {
	parts, err := t.store.Participants(ctx, approvalID)
	if err != nil {
		return false, err
	}
	if len(parts) == 0 {
		return false, nil
	}
	for _, p := range parts {
		if p.Status != flow.ParticipantComplete {
			return false, nil
		}
	}
	return true, nil
}
