package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"govflow/flow"
	"govflow/store"
)

func TestSubmitApproval_PartialThenReady(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-1", "restrict-sg", "policy")
	st.addParticipant("flow-1", "p1", flow.ParticipantPending)
	st.addParticipant("flow-1", "p2", flow.ParticipantPending)

	orc := NewOrchestrator(st)
	ctx := context.Background()

	outcome, err := orc.SubmitApproval(ctx, "flow-1", "p1", "looks fine")
	if err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if outcome != OutcomePartial {
		t.Fatalf("expected partial outcome, got %s", outcome)
	}
	if got := st.flowStatus("flow-1"); got != flow.StatusPending {
		t.Fatalf("flow must stay Pending after partial approval, got %s", got)
	}

	outcome, err = orc.SubmitApproval(ctx, "flow-1", "p2", "")
	if err != nil {
		t.Fatalf("second approval: %v", err)
	}
	if outcome != OutcomeReady {
		t.Fatalf("expected ready outcome, got %s", outcome)
	}
	if got := st.flowStatus("flow-1"); got != flow.StatusReady {
		t.Fatalf("expected flow Ready, got %s", got)
	}
}

func TestSubmitApproval_SecondCallInvalidState(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-1", "restrict-sg", "policy")
	st.addParticipant("flow-1", "p1", flow.ParticipantPending)
	st.addParticipant("flow-1", "p2", flow.ParticipantPending)

	orc := NewOrchestrator(st)
	ctx := context.Background()

	if _, err := orc.SubmitApproval(ctx, "flow-1", "p1", ""); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if _, err := orc.SubmitApproval(ctx, "flow-1", "p1", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on repeat approval, got %v", err)
	}
}

func TestSubmitApproval_UnknownParticipant(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-1", "restrict-sg", "policy")
	st.addParticipant("flow-1", "p1", flow.ParticipantPending)

	orc := NewOrchestrator(st)
	if _, err := orc.SubmitApproval(context.Background(), "flow-1", "stranger", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Reproduces the documented hazard of the client-orchestrated sequence:
// each reviewer's consensus re-read is served from the state a racing
// replica would expose, before the other reviewer's write is visible.
// Both observe "not yet all complete" and the flow stays Pending even
// though no participant is.
func TestSubmitApproval_ConcurrentLastApproversHazard(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-1", "restrict-sg", "policy")
	st.addParticipant("flow-1", "p1", flow.ParticipantPending)
	st.addParticipant("flow-1", "p2", flow.ParticipantPending)

	pendingBoth := []flow.Participant{
		{ID: "part-1", ApprovalID: "flow-1", ProfileID: "p1", Status: flow.ParticipantPending},
		{ID: "part-2", ApprovalID: "flow-1", ProfileID: "p2", Status: flow.ParticipantPending},
	}
	st.scriptedReads = [][]flow.Participant{
		// reviewer A: precondition load, then consensus re-read that
		// does not yet see reviewer B's write
		pendingBoth,
		{
			{ID: "part-1", ApprovalID: "flow-1", ProfileID: "p1", Status: flow.ParticipantComplete},
			{ID: "part-2", ApprovalID: "flow-1", ProfileID: "p2", Status: flow.ParticipantPending},
		},
		// reviewer B: stale precondition load, then a consensus re-read
		// that does not yet see reviewer A's write
		pendingBoth,
		{
			{ID: "part-1", ApprovalID: "flow-1", ProfileID: "p1", Status: flow.ParticipantPending},
			{ID: "part-2", ApprovalID: "flow-1", ProfileID: "p2", Status: flow.ParticipantComplete},
		},
	}

	orc := NewOrchestrator(st)
	ctx := context.Background()

	outA, err := orc.SubmitApproval(ctx, "flow-1", "p1", "")
	if err != nil {
		t.Fatalf("reviewer A: %v", err)
	}
	outB, err := orc.SubmitApproval(ctx, "flow-1", "p2", "")
	if err != nil {
		t.Fatalf("reviewer B: %v", err)
	}

	if outA != OutcomePartial || outB != OutcomePartial {
		t.Fatalf("expected both reviewers to observe partial, got %s / %s", outA, outB)
	}
	if st.pendingParticipants("flow-1") != 0 {
		t.Fatal("expected no pending participants after both writes")
	}
	if got := st.flowStatus("flow-1"); got != flow.StatusPending {
		t.Fatalf("hazard state expected: flow Pending with no pending participants, got %s", got)
	}
	if st.updateFlowCalls != 0 {
		t.Fatalf("neither reviewer should have written the flow, got %d writes", st.updateFlowCalls)
	}
}

// The atomic decision path closes the same race: concurrent last
// approvers serialize inside the store and exactly one observes Ready.
func TestSubmitDecision_ConcurrentLastApprovers(t *testing.T) {
	st := &atomicStore{fakeStore: newFakeStore()}
	st.addFlow("flow-1", "restrict-sg", "policy")
	st.addParticipant("flow-1", "p1", flow.ParticipantPending)
	st.addParticipant("flow-1", "p2", flow.ParticipantPending)

	orc := NewOrchestrator(st)

	outcomes := make([]ApprovalOutcome, 2)
	g, ctx := errgroup.WithContext(context.Background())
	for i, profile := range []string{"p1", "p2"} {
		g.Go(func() error {
			out, err := orc.SubmitDecision(ctx, "flow-1", profile, "")
			outcomes[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent decisions: %v", err)
	}

	ready := 0
	for _, o := range outcomes {
		if o == OutcomeReady {
			ready++
		}
	}
	if ready != 1 {
		t.Fatalf("expected exactly one reviewer to observe Ready, got %d", ready)
	}
	if got := st.flowStatus("flow-1"); got != flow.StatusReady {
		t.Fatalf("expected flow Ready, got %s", got)
	}
}

func TestSubmitDecision_FallsBackWithoutRecorder(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-1", "restrict-sg", "policy")
	st.addParticipant("flow-1", "p1", flow.ParticipantPending)

	orc := NewOrchestrator(st)
	out, err := orc.SubmitDecision(context.Background(), "flow-1", "p1", "")
	if err != nil {
		t.Fatalf("fallback decision: %v", err)
	}
	if out != OutcomeReady {
		t.Fatalf("single pending participant should produce Ready, got %s", out)
	}
}

func TestSubmitRejection_Cascade(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-2", "open-vpc-peering", "policy")
	st.addParticipant("flow-2", "p1", flow.ParticipantPending)
	st.addParticipant("flow-2", "p2", flow.ParticipantPending)
	st.addResource("flow-2", "vpc-0a1")
	st.addResource("flow-2", "sg-3f9")

	orc := NewOrchestrator(st)
	res, err := orc.SubmitRejection(context.Background(), "flow-2", "p1", "missing justification")
	if err != nil {
		t.Fatalf("rejection: %v", err)
	}
	if res.AffectedParticipants != 2 || res.AffectedResources != 2 {
		t.Fatalf("unexpected cascade counts: %+v", res)
	}
	if got := st.flowStatus("flow-2"); got != flow.StatusRejected {
		t.Fatalf("expected flow Rejected, got %s", got)
	}

	links, err := st.ResourceLinks(context.Background(), "flow-2")
	if err != nil {
		t.Fatalf("resource links: %v", err)
	}
	for _, l := range links {
		if l.Status != flow.ResourceReject {
			t.Fatalf("resource %s expected Reject, got %s", l.ResourceID, l.Status)
		}
	}
}

func TestSubmitRejection_CommentValidation(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-2", "open-vpc-peering", "policy")
	orc := NewOrchestrator(st)
	ctx := context.Background()

	if _, err := orc.SubmitRejection(ctx, "flow-2", "p1", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty comment, got %v", err)
	}
	long := strings.Repeat("x", MaxCommentLen+1)
	if _, err := orc.SubmitRejection(ctx, "flow-2", "p1", long); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for oversized comment, got %v", err)
	}
	if st.rejectCalls != 0 {
		t.Fatalf("validation failures must not reach the store, got %d calls", st.rejectCalls)
	}

	// 150 runes exactly is allowed.
	if _, err := orc.SubmitRejection(ctx, "flow-2", "p1", strings.Repeat("y", MaxCommentLen)); err != nil {
		t.Fatalf("comment at the limit must pass: %v", err)
	}
}

func TestSubmitRejection_TerminalFlowConflict(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-3", "rotate-keys", "policy")
	st.addParticipant("flow-3", "p1", flow.ParticipantPending)

	orc := NewOrchestrator(st)
	ctx := context.Background()
	if _, err := orc.SubmitRejection(ctx, "flow-3", "p1", "first rejection"); err != nil {
		t.Fatalf("first rejection: %v", err)
	}
	if _, err := orc.SubmitRejection(ctx, "flow-3", "p1", "second rejection"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on terminal flow, got %v", err)
	}
}

func TestSubmitRejection_TransportErrorPassesThrough(t *testing.T) {
	st := newFakeStore()
	st.addFlow("flow-4", "tag-policy", "policy")
	st.rejectErr = store.ErrTransport

	orc := NewOrchestrator(st)
	if _, err := orc.SubmitRejection(context.Background(), "flow-4", "p1", "backend down"); !errors.Is(err, store.ErrTransport) {
		t.Fatalf("expected transport error to pass through, got %v", err)
	}
}
