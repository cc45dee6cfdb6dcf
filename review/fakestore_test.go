package review

import (
	"context"
	"fmt"
	"sync"

	"govflow/flow"
	"govflow/store"
)

// fakeStore is an in-memory store.Client for orchestrator tests. Reads
// can be scripted to emulate the visibility a concurrent reviewer would
// observe against the shared remote store.
type fakeStore struct {
	mu        sync.Mutex
	flows     map[string]*flow.ApprovalFlow
	parts     []*flow.Participant
	resources []*flow.ResourceLink

	// scriptedReads, when non-empty, serves Participants calls from the
	// front of the queue instead of live state.
	scriptedReads [][]flow.Participant

	rejectCalls     int
	updateFlowCalls int
	rejectErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{flows: make(map[string]*flow.ApprovalFlow)}
}

func (f *fakeStore) addFlow(id, name, typ string) {
	f.flows[id] = &flow.ApprovalFlow{ApprovalID: id, Name: name, Type: typ, Status: flow.StatusPending, IsActive: true}
}

func (f *fakeStore) addParticipant(approvalID, profileID string, status flow.ParticipantStatus) {
	f.parts = append(f.parts, &flow.Participant{
		ID:         fmt.Sprintf("part-%d", len(f.parts)+1),
		ApprovalID: approvalID,
		ProfileID:  profileID,
		Status:     status,
	})
}

func (f *fakeStore) addResource(approvalID, resourceID string) {
	f.resources = append(f.resources, &flow.ResourceLink{
		ResourceID: resourceID,
		ApprovalID: approvalID,
		Status:     flow.ResourcePending,
	})
}

func (f *fakeStore) FlowsForReviewer(ctx context.Context, profileID string) ([]flow.FlowView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]flow.FlowView, 0, len(f.parts))
	for _, p := range f.parts {
		if p.ProfileID != profileID {
			continue
		}
		fl, ok := f.flows[p.ApprovalID]
		if !ok {
			continue
		}
		out = append(out, flow.FlowView{ApprovalFlow: *fl, ApproverStatus: p.Status})
	}
	return out, nil
}

func (f *fakeStore) Participants(ctx context.Context, approvalID string) ([]flow.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scriptedReads) > 0 {
		head := f.scriptedReads[0]
		f.scriptedReads = f.scriptedReads[1:]
		return head, nil
	}
	out := make([]flow.Participant, 0, len(f.parts))
	for _, p := range f.parts {
		if approvalID == "" || p.ApprovalID == approvalID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateParticipant(ctx context.Context, p flow.Participant) (flow.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.parts {
		if cur.ID != p.ID {
			continue
		}
		if cur.Status != flow.ParticipantPending {
			return flow.Participant{}, fmt.Errorf("%w: participant %s", store.ErrInvalidState, p.ID)
		}
		cur.Status = p.Status
		cur.Comment = p.Comment
		cur.CompletedAt = p.CompletedAt
		return *cur, nil
	}
	return flow.Participant{}, fmt.Errorf("%w: participant %s", store.ErrNotFound, p.ID)
}

func (f *fakeStore) UpdateFlow(ctx context.Context, fl flow.ApprovalFlow) (flow.ApprovalFlow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.flows[fl.ApprovalID]
	if !ok {
		return flow.ApprovalFlow{}, fmt.Errorf("%w: flow %s", store.ErrNotFound, fl.ApprovalID)
	}
	if cur.Status.Terminal() {
		return flow.ApprovalFlow{}, fmt.Errorf("%w: flow %s", store.ErrConflict, fl.ApprovalID)
	}
	if !flow.ValidateTransition(cur.Status, fl.Status) {
		return flow.ApprovalFlow{}, fmt.Errorf("%w: %s -> %s", store.ErrInvalidState, cur.Status, fl.Status)
	}
	cur.Status = fl.Status
	cur.CompletedAt = fl.CompletedAt
	f.updateFlowCalls++
	return *cur, nil
}

func (f *fakeStore) Reject(ctx context.Context, approvalID, profileID, comment string) (store.RejectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectCalls++
	if f.rejectErr != nil {
		return store.RejectResult{}, f.rejectErr
	}
	cur, ok := f.flows[approvalID]
	if !ok {
		return store.RejectResult{}, fmt.Errorf("%w: flow %s", store.ErrNotFound, approvalID)
	}
	if cur.Status.Terminal() {
		return store.RejectResult{}, fmt.Errorf("%w: flow %s", store.ErrConflict, approvalID)
	}
	cur.Status = flow.StatusRejected

	var res store.RejectResult
	for _, p := range f.parts {
		if p.ApprovalID == approvalID && p.Status == flow.ParticipantPending {
			p.Status = flow.ParticipantComplete
			if p.ProfileID == profileID {
				p.Comment = &comment
			}
			res.AffectedParticipants++
		}
	}
	for _, r := range f.resources {
		if r.ApprovalID == approvalID && r.Status == flow.ResourcePending {
			r.Status = flow.ResourceReject
			res.AffectedResources++
		}
	}
	return res, nil
}

func (f *fakeStore) ResourceLinks(ctx context.Context, approvalID string) ([]flow.ResourceLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]flow.ResourceLink, 0, len(f.resources))
	for _, r := range f.resources {
		if r.ApprovalID == approvalID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) flowStatus(id string) flow.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flows[id].Status
}

func (f *fakeStore) pendingParticipants(approvalID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.parts {
		if p.ApprovalID == approvalID && p.Status == flow.ParticipantPending {
			n++
		}
	}
	return n
}

// atomicStore wraps fakeStore with a serialized decision path, the way
// the PostgreSQL-backed store records decisions.
type atomicStore struct {
	*fakeStore
}

func (a *atomicStore) RecordDecision(ctx context.Context, approvalID, profileID, comment string) (flow.Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.flows[approvalID]
	if !ok {
		return "", fmt.Errorf("%w: flow %s", store.ErrNotFound, approvalID)
	}
	if cur.Status.Terminal() {
		return "", fmt.Errorf("%w: flow %s", store.ErrConflict, approvalID)
	}

	var target *flow.Participant
	for _, p := range a.parts {
		if p.ApprovalID == approvalID && p.ProfileID == profileID {
			target = p
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("%w: participant %s", store.ErrNotFound, profileID)
	}
	if target.Status != flow.ParticipantPending {
		return "", fmt.Errorf("%w: participant %s", store.ErrInvalidState, profileID)
	}
	target.Status = flow.ParticipantComplete
	if comment != "" {
		target.Comment = &comment
	}

	for _, p := range a.parts {
		if p.ApprovalID == approvalID && p.Status == flow.ParticipantPending {
			return cur.Status, nil
		}
	}
	cur.Status = flow.StatusReady
	return cur.Status, nil
}
