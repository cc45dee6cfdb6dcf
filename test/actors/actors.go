package actors

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"govflow/flow"
	"govflow/pgstore"
	"govflow/store"
)

// The actors below hammer a shared set of approval flows through the
// store's public operations. Domain sentinels (conflict, invalid state,
// not found) are expected under contention and ignored; so are transport
// errors, since the chaos routine kills backends mid-flight.

func expected(err error) bool {
	return errors.Is(err, store.ErrConflict) ||
		errors.Is(err, store.ErrInvalidState) ||
		errors.Is(err, store.ErrNotFound)
}

func done(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func jitter(base, spread int) {
	time.Sleep(time.Duration(base+rand.Intn(spread)) * time.Millisecond)
}

// Creator replays the same CreateFlow params over and over. Replays must
// return the stored flow instead of duplicating participants.
func Creator(ctx context.Context, st *pgstore.Store, params pgstore.CreateFlowParams, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		if _, err := st.CreateFlow(ctx, params); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		jitter(20, 40)
	}
	return nil
}

// Approver records decisions for one reviewer across all its pending
// flows. Under contention most calls lose to a sibling and surface a
// domain sentinel.
func Approver(ctx context.Context, st *pgstore.Store, profileID string, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		views, err := st.FlowsForReviewer(ctx, profileID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			jitter(30, 50)
			continue
		}

		for _, v := range views {
			if v.ApproverStatus != flow.ParticipantPending {
				continue
			}
			if _, err := st.RecordDecision(ctx, v.ApprovalID, profileID, ""); err != nil && !expected(err) && ctx.Err() != nil {
				return ctx.Err()
			}
		}
		jitter(10, 30)
	}
	return nil
}

// Rejecter occasionally fires the rejection cascade on a random flow,
// racing the approvers for the terminal transition.
func Rejecter(ctx context.Context, st *pgstore.Store, profileID string, approvalIDs []string, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		id := approvalIDs[rand.Intn(len(approvalIDs))]
		if _, err := st.Reject(ctx, id, profileID, "stress rejection"); err != nil && !expected(err) && ctx.Err() != nil {
			return ctx.Err()
		}
		jitter(150, 200)
	}
	return nil
}

// Reader continuously lists flows and resource links, exercising the
// read paths while writers churn.
func Reader(ctx context.Context, st *pgstore.Store, profileID string, approvalIDs []string, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		if _, err := st.FlowsForReviewer(ctx, profileID); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		id := approvalIDs[rand.Intn(len(approvalIDs))]
		if _, err := st.ResourceLinks(ctx, id); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		jitter(25, 50)
	}
	return nil
}
