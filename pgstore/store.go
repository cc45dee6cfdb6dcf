package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"govflow/flow"
	"govflow/store"
)

// Store is the PostgreSQL-backed system of record for approval flows.
// It implements store.Client and, through RecordDecision, the atomic
// decision path: participant transition, consensus evaluation and the
// conditional Ready transition run inside one transaction keyed by the
// flow id, so concurrent last approvers serialize on row locks.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New builds a store over the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// WithClock overrides the time source, mainly for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

const flowColumns = `approval_id, name, type, status::text, key, value, is_active, created_at, completed_at`

const participantColumns = `id::text, approval_id, profile_id, status::text, comment, created_at, completed_at`

func (s *Store) FlowsForReviewer(ctx context.Context, profileID string) ([]flow.FlowView, error) {
	const query = `
		SELECT f.approval_id, f.name, f.type, f.status::text, f.key, f.value, f.is_active, f.created_at, f.completed_at,
		       p.status::text
		FROM approval_flows f
		JOIN approval_participants p ON p.approval_id = f.approval_id
		WHERE p.profile_id = $1
		ORDER BY f.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list flows for reviewer: %w", err)
	}
	defer rows.Close()

	views := make([]flow.FlowView, 0, 8)
	for rows.Next() {
		var v flow.FlowView
		if err := rows.Scan(
			&v.ApprovalID, &v.Name, &v.Type, &v.Status, &v.Key, &v.Value,
			&v.IsActive, &v.CreatedAt, &v.CompletedAt, &v.ApproverStatus,
		); err != nil {
			return nil, fmt.Errorf("pgstore: scan flow view: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate flow views: %w", err)
	}
	return views, nil
}

func (s *Store) Participants(ctx context.Context, approvalID string) ([]flow.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM approval_participants`
	args := []any{}
	if approvalID != "" {
		query += ` WHERE approval_id = $1`
		args = append(args, approvalID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list participants: %w", err)
	}
	defer rows.Close()

	parts := make([]flow.Participant, 0, 8)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate participants: %w", err)
	}
	return parts, nil
}

// UpdateParticipant writes the single Pending -> Complete transition.
// The status guard lives in the UPDATE itself; a missed update is then
// classified as not-found or no-longer-pending.
func (s *Store) UpdateParticipant(ctx context.Context, p flow.Participant) (flow.Participant, error) {
	completedAt := p.CompletedAt
	if completedAt == nil {
		t := s.now().UTC()
		completedAt = &t
	}

	const query = `
		UPDATE approval_participants
		SET status = 'Complete', comment = $2, completed_at = $3
		WHERE id = $1::uuid AND status = 'Pending'
		RETURNING ` + participantColumns

	updated, err := scanParticipant(s.pool.QueryRow(ctx, query, p.ID, p.Comment, completedAt))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return flow.Participant{}, fmt.Errorf("pgstore: update participant: %w", err)
	}

	var status string
	if err := s.pool.QueryRow(ctx, `SELECT status::text FROM approval_participants WHERE id = $1::uuid`, p.ID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return flow.Participant{}, fmt.Errorf("%w: participant %s", store.ErrNotFound, p.ID)
		}
		return flow.Participant{}, fmt.Errorf("pgstore: classify participant update: %w", err)
	}
	return flow.Participant{}, fmt.Errorf("%w: participant %s is %s", store.ErrInvalidState, p.ID, status)
}

// UpdateFlow applies a validated status transition and, on a terminal
// status, cascades the matching resource status in the same transaction.
func (s *Store) UpdateFlow(ctx context.Context, f flow.ApprovalFlow) (flow.ApprovalFlow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: begin flow update: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockFlow(ctx, tx, f.ApprovalID)
	if err != nil {
		return flow.ApprovalFlow{}, err
	}
	if current.Terminal() {
		return flow.ApprovalFlow{}, fmt.Errorf("%w: flow %s is %s", store.ErrConflict, f.ApprovalID, current)
	}
	if !flow.ValidateTransition(current, f.Status) {
		return flow.ApprovalFlow{}, fmt.Errorf("%w: flow %s cannot move %s -> %s", store.ErrInvalidState, f.ApprovalID, current, f.Status)
	}

	completedAt := f.CompletedAt
	if completedAt == nil {
		t := s.now().UTC()
		completedAt = &t
	}

	const query = `
		UPDATE approval_flows
		SET status = $2::flow_status, completed_at = $3
		WHERE approval_id = $1
		RETURNING ` + flowColumns

	var updated flow.ApprovalFlow
	if err := tx.QueryRow(ctx, query, f.ApprovalID, f.Status, completedAt).Scan(
		&updated.ApprovalID, &updated.Name, &updated.Type, &updated.Status,
		&updated.Key, &updated.Value, &updated.IsActive, &updated.CreatedAt, &updated.CompletedAt,
	); err != nil {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: update flow: %w", err)
	}

	if _, err := cascadeResources(ctx, tx, f.ApprovalID, updated.Status, *completedAt); err != nil {
		return flow.ApprovalFlow{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: commit flow update: %w", err)
	}
	return updated, nil
}

// Reject runs the rejection cascade as one transaction: the flow becomes
// Rejected, every pending participant is resolved with the actor's
// reason on their own row, and every pending resource link moves to
// Reject. The returned counts equal the rows actually mutated.
func (s *Store) Reject(ctx context.Context, approvalID, profileID, comment string) (store.RejectResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.RejectResult{}, fmt.Errorf("pgstore: begin reject: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockFlow(ctx, tx, approvalID)
	if err != nil {
		return store.RejectResult{}, err
	}
	if current.Terminal() {
		return store.RejectResult{}, fmt.Errorf("%w: flow %s is %s", store.ErrConflict, approvalID, current)
	}

	rejectedAt := s.now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE approval_flows
		SET status = 'Rejected', completed_at = $2
		WHERE approval_id = $1
	`, approvalID, rejectedAt); err != nil {
		return store.RejectResult{}, fmt.Errorf("pgstore: reject flow: %w", err)
	}

	var res store.RejectResult
	tag, err := tx.Exec(ctx, `
		UPDATE approval_participants
		SET status = 'Complete', completed_at = $2
		WHERE approval_id = $1 AND status = 'Pending'
	`, approvalID, rejectedAt)
	if err != nil {
		return store.RejectResult{}, fmt.Errorf("pgstore: resolve participants: %w", err)
	}
	res.AffectedParticipants = int(tag.RowsAffected())

	// The rejection reason lands on the acting reviewer's row.
	if _, err := tx.Exec(ctx, `
		UPDATE approval_participants
		SET comment = $3
		WHERE approval_id = $1 AND profile_id = $2
	`, approvalID, profileID, comment); err != nil {
		return store.RejectResult{}, fmt.Errorf("pgstore: record rejection comment: %w", err)
	}

	affected, err := cascadeResources(ctx, tx, approvalID, flow.StatusRejected, rejectedAt)
	if err != nil {
		return store.RejectResult{}, err
	}
	res.AffectedResources = affected

	if err := tx.Commit(ctx); err != nil {
		return store.RejectResult{}, fmt.Errorf("pgstore: commit reject: %w", err)
	}
	return res, nil
}

func (s *Store) ResourceLinks(ctx context.Context, approvalID string) ([]flow.ResourceLink, error) {
	const query = `
		SELECT resource_id, approval_id, resource_name, resource_type, category, status::text, created_at, updated_at
		FROM approval_resources
		WHERE approval_id = $1
		ORDER BY resource_id ASC
	`

	rows, err := s.pool.Query(ctx, query, approvalID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list resource links: %w", err)
	}
	defer rows.Close()

	links := make([]flow.ResourceLink, 0, 8)
	for rows.Next() {
		var l flow.ResourceLink
		if err := rows.Scan(&l.ResourceID, &l.ApprovalID, &l.ResourceName, &l.ResourceType, &l.Category, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan resource link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate resource links: %w", err)
	}
	return links, nil
}

// RecordDecision applies one reviewer's approval atomically. The flow
// row is locked first, then the participant row, matching Reject's lock
// order so the two cascades cannot deadlock.
func (s *Store) RecordDecision(ctx context.Context, approvalID, profileID, comment string) (flow.Status, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("pgstore: begin decision: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockFlow(ctx, tx, approvalID)
	if err != nil {
		return "", err
	}
	if current.Terminal() {
		return "", fmt.Errorf("%w: flow %s is %s", store.ErrConflict, approvalID, current)
	}

	var (
		participantID string
		status        string
	)
	const lockParticipant = `
		SELECT id::text, status::text
		FROM approval_participants
		WHERE approval_id = $1 AND profile_id = $2
		FOR UPDATE
	`
	if err := tx.QueryRow(ctx, lockParticipant, approvalID, profileID).Scan(&participantID, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: participant %s on flow %s", store.ErrNotFound, profileID, approvalID)
		}
		return "", fmt.Errorf("pgstore: lock participant: %w", err)
	}
	if flow.ParticipantStatus(status) != flow.ParticipantPending {
		return "", fmt.Errorf("%w: participant %s is %s", store.ErrInvalidState, profileID, status)
	}

	decidedAt := s.now().UTC()
	var commentArg *string
	if comment != "" {
		commentArg = &comment
	}
	if _, err := tx.Exec(ctx, `
		UPDATE approval_participants
		SET status = 'Complete', comment = $2, completed_at = $3
		WHERE id = $1::uuid
	`, participantID, commentArg, decidedAt); err != nil {
		return "", fmt.Errorf("pgstore: complete participant: %w", err)
	}

	var remaining int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM approval_participants
		WHERE approval_id = $1 AND status = 'Pending'
	`, approvalID).Scan(&remaining); err != nil {
		return "", fmt.Errorf("pgstore: count pending participants: %w", err)
	}

	result := flow.StatusPending
	if remaining == 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE approval_flows
			SET status = 'Ready', completed_at = $2
			WHERE approval_id = $1
		`, approvalID, decidedAt); err != nil {
			return "", fmt.Errorf("pgstore: complete flow: %w", err)
		}
		if _, err := cascadeResources(ctx, tx, approvalID, flow.StatusReady, decidedAt); err != nil {
			return "", err
		}
		result = flow.StatusReady
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("pgstore: commit decision: %w", err)
	}
	return result, nil
}

func lockFlow(ctx context.Context, tx pgx.Tx, approvalID string) (flow.Status, error) {
	var status string
	err := tx.QueryRow(ctx, `SELECT status::text FROM approval_flows WHERE approval_id = $1 FOR UPDATE`, approvalID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: flow %s", store.ErrNotFound, approvalID)
		}
		return "", fmt.Errorf("pgstore: lock flow: %w", err)
	}
	return flow.Status(status), nil
}

// cascadeResources moves the flow's pending resource links to the status
// derived from a terminal flow status. A non-terminal status is a no-op.
func cascadeResources(ctx context.Context, tx pgx.Tx, approvalID string, status flow.Status, at time.Time) (int, error) {
	target, ok := flow.TerminalResourceStatus(status)
	if !ok {
		return 0, nil
	}
	tag, err := tx.Exec(ctx, `
		UPDATE approval_resources
		SET status = $2::resource_status, updated_at = $3
		WHERE approval_id = $1 AND status = 'Pending'
	`, approvalID, target, at)
	if err != nil {
		return 0, fmt.Errorf("pgstore: cascade resources: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanParticipant(row pgx.Row) (flow.Participant, error) {
	var p flow.Participant
	err := row.Scan(&p.ID, &p.ApprovalID, &p.ProfileID, &p.Status, &p.Comment, &p.CreatedAt, &p.CompletedAt)
	if err != nil {
		return flow.Participant{}, err
	}
	return p, nil
}
