package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"govflow/flow"
	"govflow/store"
)

var (
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("review: invalid input")
	// ErrInvalidState signals the action is not allowed in the
	// participant's current state.
	ErrInvalidState = errors.New("review: not pending for this caller")
	// ErrConflict signals the flow is already terminal.
	ErrConflict = errors.New("review: flow already decided")
)

// MaxCommentLen bounds a rejection comment, in runes.
const MaxCommentLen = 150

// ApprovalOutcome distinguishes "you approved" from "the flow is now
// fully approved".
type ApprovalOutcome int

const (
	// OutcomePartial: the decision was recorded but other reviewers are
	// still pending.
	OutcomePartial ApprovalOutcome = iota
	// OutcomeReady: this decision completed the last pending participant
	// and the flow transitioned to Ready.
	OutcomeReady
)

func (o ApprovalOutcome) String() string {
	if o == OutcomeReady {
		return "ready"
	}
	return "partial"
}

// Orchestrator drives the per-flow state machine: it applies one
// reviewer's decision, updates participant and flow records through the
// store boundary, triggers cascades and reports the outcome. It never
// retries on its own and never mutates local state ahead of a confirmed
// write.
type Orchestrator struct {
	store   store.Client
	tracker *Tracker
	now     func() time.Time
}

// NewOrchestrator builds an orchestrator over the given store boundary.
func NewOrchestrator(st store.Client) *Orchestrator {
	return &Orchestrator{
		store:   st,
		tracker: NewTracker(st),
		now:     time.Now,
	}
}

// WithClock overrides the time source, mainly for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// SubmitApproval records the caller's approval on the flow. The caller's
// participant row must exist and still be Pending. Participant write,
// consensus re-read and the conditional Ready transition are three
// separate store calls with no cross-call locking; two reviewers
// completing the last pending participants nearly simultaneously may
// both observe partial state. SubmitDecision is the atomic alternative.
func (o *Orchestrator) SubmitApproval(ctx context.Context, approvalID, profileID, comment string) (ApprovalOutcome, error) {
	if approvalID == "" || profileID == "" {
		return OutcomePartial, fmt.Errorf("%w: approval id and profile id required", ErrValidation)
	}

	part, err := o.loadParticipant(ctx, approvalID, profileID)
	if err != nil {
		return OutcomePartial, err
	}
	if part.Status != flow.ParticipantPending {
		return OutcomePartial, fmt.Errorf("%w: participant already %s on flow %s", ErrInvalidState, part.Status, approvalID)
	}

	completedAt := o.now().UTC()
	part.Status = flow.ParticipantComplete
	part.CompletedAt = &completedAt
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		part.Comment = &trimmed
	}

	if _, err := o.store.UpdateParticipant(ctx, part); err != nil {
		return OutcomePartial, err
	}

	// Consensus must be evaluated against a re-read taken after our own
	// write; other reviewers may have completed in the meantime.
	done, err := o.tracker.AllComplete(ctx, approvalID)
	if err != nil {
		return OutcomePartial, err
	}
	if !done {
		return OutcomePartial, nil
	}

	ready := flow.ApprovalFlow{
		ApprovalID:  approvalID,
		Status:      flow.StatusReady,
		CompletedAt: &completedAt,
	}
	if _, err := o.store.UpdateFlow(ctx, ready); err != nil {
		return OutcomePartial, err
	}
	return OutcomeReady, nil
}

// SubmitDecision records an approval through the store's atomic decision
// path when the store offers one, falling back to the client-orchestrated
// sequence otherwise.
func (o *Orchestrator) SubmitDecision(ctx context.Context, approvalID, profileID, comment string) (ApprovalOutcome, error) {
	rec, ok := o.store.(store.DecisionRecorder)
	if !ok {
		return o.SubmitApproval(ctx, approvalID, profileID, comment)
	}
	if approvalID == "" || profileID == "" {
		return OutcomePartial, fmt.Errorf("%w: approval id and profile id required", ErrValidation)
	}

	status, err := rec.RecordDecision(ctx, approvalID, profileID, strings.TrimSpace(comment))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidState):
			return OutcomePartial, fmt.Errorf("%w: %v", ErrInvalidState, err)
		case errors.Is(err, store.ErrConflict):
			return OutcomePartial, fmt.Errorf("%w: %v", ErrConflict, err)
		default:
			return OutcomePartial, err
		}
	}
	if status == flow.StatusReady {
		return OutcomeReady, nil
	}
	return OutcomePartial, nil
}

// SubmitRejection validates and issues the rejection cascade. Unlike
// approval, the cascade is one opaque store call; the orchestrator only
// validates the comment and reports the affected counts.
func (o *Orchestrator) SubmitRejection(ctx context.Context, approvalID, profileID, comment string) (store.RejectResult, error) {
	if approvalID == "" || profileID == "" {
		return store.RejectResult{}, fmt.Errorf("%w: approval id and profile id required", ErrValidation)
	}
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return store.RejectResult{}, fmt.Errorf("%w: rejection comment required", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLen {
		return store.RejectResult{}, fmt.Errorf("%w: rejection comment exceeds %d characters", ErrValidation, MaxCommentLen)
	}

	res, err := o.store.Reject(ctx, approvalID, profileID, trimmed)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.RejectResult{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return store.RejectResult{}, err
	}
	return res, nil
}

func (o *Orchestrator) loadParticipant(ctx context.Context, approvalID, profileID string) (flow.Participant, error) {
	parts, err := o.store.Participants(ctx, approvalID)
	if err != nil {
		return flow.Participant{}, err
	}
	for _, p := range parts {
		if p.ApprovalID == approvalID && p.ProfileID == profileID {
			return p, nil
		}
	}
	return flow.Participant{}, fmt.Errorf("%w: participant %s on flow %s", store.ErrNotFound, profileID, approvalID)
}
