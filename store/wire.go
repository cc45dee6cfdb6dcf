package store

import (
	"time"

	"govflow/flow"
)

// Wire records mirror the governance backend's JSON contract. Domain
// structs stay annotation-free; the records below carry the tags and
// the approverStatus denormalization the wire format requires.

// FlowRecord is the wire form of an approval flow. ApproverStatus is
// only populated on reviewer-scoped listings.
type FlowRecord struct {
	ApprovalID     string     `json:"approvalId"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	Key            string     `json:"key"`
	Value          string     `json:"value"`
	IsActive       bool       `json:"isActive"`
	ApproverStatus string     `json:"approverStatus,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// ParticipantRecord is the wire form of a participant row.
type ParticipantRecord struct {
	ID          string     `json:"id"`
	ApprovalID  string     `json:"approvalId"`
	ProfileID   string     `json:"profileId"`
	Status      string     `json:"status"`
	Comment     *string    `json:"comment,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ResourceRecord is the wire form of a resource link.
type ResourceRecord struct {
	ResourceID   string    `json:"resourceId"`
	ApprovalID   string    `json:"approvalId"`
	ResourceName string    `json:"resourceName"`
	ResourceType string    `json:"resourceType"`
	Category     string    `json:"category"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RejectRequest is the body of the rejection cascade call.
type RejectRequest struct {
	ProfileID string `json:"profileId"`
	Comment   string `json:"comment"`
}

// RejectResponse reports the cascade's affected record counts.
type RejectResponse struct {
	AffectedParticipants int `json:"affectedParticipants"`
	AffectedResources    int `json:"affectedResources"`
}

// DecisionRequest is the body of the atomic decision call.
type DecisionRequest struct {
	ProfileID string `json:"profileId"`
	Comment   string `json:"comment"`
}

// DecisionResponse carries the flow status resulting from a decision.
type DecisionResponse struct {
	Status string `json:"status"`
}

// Flow converts the record to its domain form.
func (r FlowRecord) Flow() flow.ApprovalFlow {
	return flow.ApprovalFlow{
		ApprovalID:  r.ApprovalID,
		Name:        r.Name,
		Type:        r.Type,
		Status:      flow.Status(r.Status),
		Key:         r.Key,
		Value:       r.Value,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// View converts the record to a flow joined with the reviewer's status.
func (r FlowRecord) View() flow.FlowView {
	return flow.FlowView{
		ApprovalFlow:   r.Flow(),
		ApproverStatus: flow.ParticipantStatus(r.ApproverStatus),
	}
}

// NewFlowRecord builds the wire form of a flow.
func NewFlowRecord(f flow.ApprovalFlow) FlowRecord {
	return FlowRecord{
		ApprovalID:  f.ApprovalID,
		Name:        f.Name,
		Type:        f.Type,
		Status:      string(f.Status),
		Key:         f.Key,
		Value:       f.Value,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		CompletedAt: f.CompletedAt,
	}
}

// NewFlowViewRecord builds the wire form of a reviewer-scoped flow.
func NewFlowViewRecord(v flow.FlowView) FlowRecord {
	rec := NewFlowRecord(v.ApprovalFlow)
	rec.ApproverStatus = string(v.ApproverStatus)
	return rec
}

// Participant converts the record to its domain form.
func (r ParticipantRecord) Participant() flow.Participant {
	return flow.Participant{
		ID:          r.ID,
		ApprovalID:  r.ApprovalID,
		ProfileID:   r.ProfileID,
		Status:      flow.ParticipantStatus(r.Status),
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// NewParticipantRecord builds the wire form of a participant.
func NewParticipantRecord(p flow.Participant) ParticipantRecord {
	return ParticipantRecord{
		ID:          p.ID,
		ApprovalID:  p.ApprovalID,
		ProfileID:   p.ProfileID,
		Status:      string(p.Status),
		Comment:     p.Comment,
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
	}
}

// ResourceLink converts the record to its domain form.
func (r ResourceRecord) ResourceLink() flow.ResourceLink {
	return flow.ResourceLink{
		ResourceID:   r.ResourceID,
		ApprovalID:   r.ApprovalID,
		ResourceName: r.ResourceName,
		ResourceType: r.ResourceType,
		Category:     r.Category,
		Status:       flow.ResourceStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// NewResourceRecord builds the wire form of a resource link.
func NewResourceRecord(l flow.ResourceLink) ResourceRecord {
	return ResourceRecord{
		ResourceID:   l.ResourceID,
		ApprovalID:   l.ApprovalID,
		ResourceName: l.ResourceName,
		ResourceType: l.ResourceType,
		Category:     l.Category,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}
