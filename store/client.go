package store

import (
	"context"
	"errors"

	"govflow/flow"
)

var (
	// ErrNotFound signals the requested flow or participant does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict signals the flow is already terminal.
	ErrConflict = errors.New("store: flow already decided")
	// ErrInvalidState signals the participant is no longer pending.
	ErrInvalidState = errors.New("store: participant not pending")
	// ErrTransport signals the system of record was unreachable or
	// answered with an unexpected status.
	ErrTransport = errors.New("store: transport failure")
)

// RejectResult reports how many records a rejection cascade touched.
type RejectResult struct {
	AffectedParticipants int
	AffectedResources    int
}

// Client is the request/response boundary to the system of record for
// approval flows, participants and resource links. Every call is a
// blocking round trip; implementations must not cache participant state
// across calls.
type Client interface {
	// FlowsForReviewer lists all flows the reviewer participates in,
	// each joined with that reviewer's own participant status.
	FlowsForReviewer(ctx context.Context, profileID string) ([]flow.FlowView, error)

	// Participants lists the participants of one flow, or of every flow
	// when approvalID is empty.
	Participants(ctx context.Context, approvalID string) ([]flow.Participant, error)

	// UpdateParticipant writes a participant's single transition to
	// Complete. A participant that is no longer pending yields
	// ErrInvalidState.
	UpdateParticipant(ctx context.Context, p flow.Participant) (flow.Participant, error)

	// UpdateFlow writes a flow status transition. Illegal transitions
	// yield ErrInvalidState, terminal flows ErrConflict.
	UpdateFlow(ctx context.Context, f flow.ApprovalFlow) (flow.ApprovalFlow, error)

	// Reject runs the rejection cascade as one logical operation: the
	// flow becomes Rejected, every pending participant is resolved and
	// every pending resource link moves to Reject.
	Reject(ctx context.Context, approvalID, profileID, comment string) (RejectResult, error)

	// ResourceLinks lists the resource links of one flow.
	ResourceLinks(ctx context.Context, approvalID string) ([]flow.ResourceLink, error)
}

// DecisionRecorder is an optional extension of Client. Stores that can
// evaluate consensus atomically expose a single-call decision path:
// the participant transition, the consensus check and the conditional
// Ready transition all happen inside one server-side transaction keyed
// by the flow id, closing the race between concurrent last approvers.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, approvalID, profileID, comment string) (flow.Status, error)
}
