package review

import (
	"context"
	"testing"

	"govflow/flow"
)

func TestAllComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("empty participant set is not consensus", func(t *testing.T) {
		st := newFakeStore()
		st.addFlow("flow-1", "n", "t")
		done, err := NewTracker(st).AllComplete(ctx, "flow-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			t.Fatal("a flow without reviewers must never reach consensus")
		}
	})

	t.Run("mixed statuses", func(t *testing.T) {
		st := newFakeStore()
		st.addFlow("flow-1", "n", "t")
		st.addParticipant("flow-1", "p1", flow.ParticipantComplete)
		st.addParticipant("flow-1", "p2", flow.ParticipantPending)
		done, err := NewTracker(st).AllComplete(ctx, "flow-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			t.Fatal("pending participant must block consensus")
		}
	})

	t.Run("all complete", func(t *testing.T) {
		st := newFakeStore()
		st.addFlow("flow-1", "n", "t")
		st.addParticipant("flow-1", "p1", flow.ParticipantComplete)
		st.addParticipant("flow-1", "p2", flow.ParticipantComplete)
		done, err := NewTracker(st).AllComplete(ctx, "flow-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !done {
			t.Fatal("expected consensus with every participant complete")
		}
	})

	t.Run("only the flow's own participants count", func(t *testing.T) {
		st := newFakeStore()
		st.addFlow("flow-1", "n", "t")
		st.addFlow("flow-2", "n", "t")
		st.addParticipant("flow-1", "p1", flow.ParticipantComplete)
		st.addParticipant("flow-2", "p2", flow.ParticipantPending)
		done, err := NewTracker(st).AllComplete(ctx, "flow-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !done {
			t.Fatal("pending participant of another flow must not block consensus")
		}
	})
}
