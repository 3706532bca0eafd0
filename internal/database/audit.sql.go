package database

import (
	"context"
)

const createAuditLog = `
INSERT INTO audit_log (actor_id, organization_id, sender_id, action, details)
VALUES ($1, $2, $3, $4, $5)
`

type CreateAuditLogParams struct {
	ActorID        *int32
	OrganizationID *int32
	SenderID       *int32
	Action         string
	Details        []byte
}

// CreateAuditLog appends one audit record. Rows are never updated or
// deleted by the dispatch core.
func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) error {
	_, err := q.db.Exec(ctx, createAuditLog,
		arg.ActorID,
		arg.OrganizationID,
		arg.SenderID,
		arg.Action,
		arg.Details,
	)
	return err
}
