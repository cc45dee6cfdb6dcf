package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"govflow/flow"
)

// CreateFlowParams captures a policy submission: the flow itself, the
// reviewers assigned to it and the resources it touches, all created
// together.
type CreateFlowParams struct {
	ApprovalID string
	Name       string
	Type       string
	Key        string
	Value      string
	ProfileIDs []string
	Resources  []flow.ResourceLink
}

var errNoReviewers = errors.New("pgstore: flow requires at least one reviewer")

// CreateFlow materialises a submitted policy change with its reviewer
// assignments and resource links in a single transaction. Resubmitting
// an existing approval id returns the stored flow unchanged, so upstream
// retries are tolerated.
func (s *Store) CreateFlow(ctx context.Context, params CreateFlowParams) (flow.ApprovalFlow, error) {
	if params.ApprovalID == "" {
		params.ApprovalID = uuid.NewString()
	}
	if params.Name == "" {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: flow name required")
	}
	if len(params.ProfileIDs) == 0 {
		return flow.ApprovalFlow{}, errNoReviewers
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: begin create flow: %w", err)
	}
	defer tx.Rollback(ctx)

	const existingSQL = `SELECT ` + flowColumns + ` FROM approval_flows WHERE approval_id = $1`
	var existing flow.ApprovalFlow
	switch err := tx.QueryRow(ctx, existingSQL, params.ApprovalID).Scan(
		&existing.ApprovalID, &existing.Name, &existing.Type, &existing.Status,
		&existing.Key, &existing.Value, &existing.IsActive, &existing.CreatedAt, &existing.CompletedAt,
	); {
	case err == nil:
		return existing, nil
	case errors.Is(err, pgx.ErrNoRows):
		// continue with insert
	default:
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: check existing flow: %w", err)
	}

	const insertSQL = `
		INSERT INTO approval_flows (approval_id, name, type, key, value, status, is_active)
		VALUES ($1, $2, $3, $4, $5, 'Pending', true)
		RETURNING ` + flowColumns

	var created flow.ApprovalFlow
	if err := tx.QueryRow(ctx, insertSQL,
		params.ApprovalID, params.Name, params.Type, params.Key, params.Value,
	).Scan(
		&created.ApprovalID, &created.Name, &created.Type, &created.Status,
		&created.Key, &created.Value, &created.IsActive, &created.CreatedAt, &created.CompletedAt,
	); err != nil {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: insert flow: %w", err)
	}

	for _, profileID := range params.ProfileIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO approval_participants (id, approval_id, profile_id, status)
			VALUES ($1::uuid, $2, $3, 'Pending')
		`, uuid.NewString(), params.ApprovalID, profileID); err != nil {
			return flow.ApprovalFlow{}, fmt.Errorf("pgstore: insert participant %s: %w", profileID, err)
		}
	}

	for _, res := range params.Resources {
		if _, err := tx.Exec(ctx, `
			INSERT INTO approval_resources (resource_id, approval_id, resource_name, resource_type, category, status)
			VALUES ($1, $2, $3, $4, $5, 'Pending')
		`, res.ResourceID, params.ApprovalID, res.ResourceName, res.ResourceType, res.Category); err != nil {
			return flow.ApprovalFlow{}, fmt.Errorf("pgstore: insert resource %s: %w", res.ResourceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return flow.ApprovalFlow{}, fmt.Errorf("pgstore: commit create flow: %w", err)
	}
	return created, nil
}
