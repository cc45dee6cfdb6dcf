package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant probes run against a live database while the
// actors churn. Each query returns rows only when the invariant is
// violated.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_consensus_stall",
			SQL: `SELECT f.approval_id FROM approval_flows f
                  WHERE f.status = 'Pending'
                    AND EXISTS (SELECT 1 FROM approval_participants p
                                WHERE p.approval_id = f.approval_id)
                    AND NOT EXISTS (SELECT 1 FROM approval_participants p
                                    WHERE p.approval_id = f.approval_id
                                      AND p.status = 'Pending')`,
		},
		{
			Name: "O2_terminal_flow_pending_participant",
			SQL: `SELECT p.id FROM approval_participants p
                  JOIN approval_flows f ON f.approval_id = p.approval_id
                  WHERE f.status IN ('Ready','Rejected','Aborted')
                    AND p.status = 'Pending'`,
		},
		{
			Name: "O3_completed_at_consistency",
			SQL: `SELECT approval_id FROM approval_flows
                  WHERE (status = 'Pending' AND completed_at IS NOT NULL)
                     OR (status IN ('Ready','Rejected','Aborted') AND completed_at IS NULL)`,
		},
		{
			Name: "O4_resource_cascade",
			SQL: `SELECT r.resource_id FROM approval_resources r
                  JOIN approval_flows f ON f.approval_id = r.approval_id
                  WHERE (f.status = 'Ready' AND r.status <> 'Approve')
                     OR (f.status = 'Rejected' AND r.status <> 'Reject')`,
		},
		{
			Name: "O5_participant_stamp",
			SQL: `SELECT id FROM approval_participants
                  WHERE (status = 'Complete' AND completed_at IS NULL)
                     OR (status = 'Pending' AND completed_at IS NOT NULL)`,
		},
		{
			Name: "O6_duplicate_participant",
			SQL: `SELECT approval_id, profile_id FROM approval_participants
                  GROUP BY approval_id, profile_id HAVING COUNT(*) > 1`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
