package flow

import "time"

// Status is the lifecycle state of an approval flow.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusReady    Status = "Ready"
	StatusRejected Status = "Rejected"
	StatusAborted  Status = "Aborted"
)

// ParticipantStatus tracks a single reviewer's decision progress.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "Pending"
	ParticipantComplete ParticipantStatus = "Complete"
)

// ResourceStatus is the state of a resource affected by a flow. It stays
// Pending until the owning flow reaches a terminal status.
type ResourceStatus string

const (
	ResourcePending ResourceStatus = "Pending"
	ResourceApprove ResourceStatus = "Approve"
	ResourceReject  ResourceStatus = "Reject"
	ResourceAbort   ResourceStatus = "Abort"
)

// ApprovalFlow is a policy change under review. It is created by an
// upstream policy-submission process, mutated only by the review
// orchestration, and never deleted, only terminalized.
// The struct carries no JSON annotations so it can be reused by
// different presentation layers.
type ApprovalFlow struct {
	ApprovalID  string
	Name        string
	Type        string
	Status      Status
	Key         string
	Value       string
	IsActive    bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Participant is one reviewer's assignment to a flow, unique per
// (ApprovalID, ProfileID). Status moves Pending -> Complete exactly once.
type Participant struct {
	ID          string
	ApprovalID  string
	ProfileID   string
	Status      ParticipantStatus
	Comment     *string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ResourceLink is a resource affected by a flow.
type ResourceLink struct {
	ResourceID   string
	ApprovalID   string
	ResourceName string
	ResourceType string
	Category     string
	Status       ResourceStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FlowView joins a flow with the calling reviewer's own participant
// status. The per-caller status is a view over the shared flow record,
// not a field of the aggregate itself.
type FlowView struct {
	ApprovalFlow
	ApproverStatus ParticipantStatus
}
