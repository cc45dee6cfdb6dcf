package review

import (
	"context"
	"fmt"
	"strings"

	"govflow/flow"
	"govflow/store"
)

// Query presents the subset of flows relevant to one reviewer. The flow
// set is fetched once at activation; searches run against that local
// copy rather than re-querying the store per keystroke.
type Query struct {
	store   store.Client
	tracker *Tracker
	views   []flow.FlowView
}

// NewQuery builds a query component over the given store boundary.
func NewQuery(st store.Client) *Query {
	return &Query{store: st, tracker: NewTracker(st)}
}

// Activate fetches the reviewer's flow set and replaces the local copy.
func (q *Query) Activate(ctx context.Context, profileID string) error {
	if profileID == "" {
		return fmt.Errorf("%w: profile id required", ErrValidation)
	}
	views, err := q.store.FlowsForReviewer(ctx, profileID)
	if err != nil {
		return err
	}
	q.views = views
	return nil
}

// ListDefault returns the flows where the caller's own participant is
// still pending — the initial view whenever no explicit search is
// active. Clearing a search term does not restore this view; the caller
// re-invokes ListDefault.
func (q *Query) ListDefault() []flow.FlowView {
	out := make([]flow.FlowView, 0, len(q.views))
	for _, v := range q.views {
		if v.ApproverStatus == flow.ParticipantPending {
			out = append(out, v)
		}
	}
	return out
}

// Search matches term as a case-insensitive substring against id, name,
// type and status of the locally held set.
func (q *Query) Search(term string) []flow.FlowView {
	needle := strings.ToLower(term)
	out := make([]flow.FlowView, 0, len(q.views))
	for _, v := range q.views {
		if matchesFlow(v, needle) {
			out = append(out, v)
		}
	}
	return out
}

// Select narrows the visible set to exactly one flow, as when the caller
// picks a single search hit.
func (q *Query) Select(approvalID string) (flow.FlowView, bool) {
	for _, v := range q.views {
		if v.ApprovalID == approvalID {
			return v, true
		}
	}
	return flow.FlowView{}, false
}

// ConsensusReached reports, from a fresh store read, whether every
// reviewer of the flow has completed. Used for status display only.
func (q *Query) ConsensusReached(ctx context.Context, approvalID string) (bool, error) {
	return q.tracker.AllComplete(ctx, approvalID)
}

func matchesFlow(v flow.FlowView, needle string) bool {
	for _, field := range []string{v.ApprovalID, v.Name, v.Type, string(v.Status)} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
