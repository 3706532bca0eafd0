package database

import (
	"context"
)

const getUnsentMessages = `
SELECT m.id, m.organization_id, m.content, m.scheduled_at, m.sent, m.created_at
FROM messages m
JOIN organizations o ON o.id = m.organization_id
WHERE m.sent = FALSE
  AND ($2::text IS NULL OR o.slug = $2)
ORDER BY m.scheduled_at, m.id
LIMIT $1
`

// GetUnsentMessages returns messages not yet fully processed, earliest
// schedule first so a backlog of future campaigns cannot crowd due messages
// out of the batch. The due-time comparison happens in the scheduler after
// timezone normalization, not in SQL, so naive legacy timestamps are never
// silently skipped.
func (q *Queries) GetUnsentMessages(ctx context.Context, arg GetUnsentMessagesParams) ([]Message, error) {
	rows, err := q.db.Query(ctx, getUnsentMessages, arg.Limit, arg.OrgSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID,
			&m.OrganizationID,
			&m.Content,
			&m.ScheduledAt,
			&m.Sent,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const updateMessageSchedule = `
UPDATE messages
SET scheduled_at = $1
WHERE id = $2
`

func (q *Queries) UpdateMessageSchedule(ctx context.Context, arg UpdateMessageScheduleParams) error {
	_, err := q.db.Exec(ctx, updateMessageSchedule, arg.ScheduledAt, arg.ID)
	return err
}

const markMessageSent = `
UPDATE messages
SET sent = TRUE
WHERE id = $1
`

func (q *Queries) MarkMessageSent(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, markMessageSent, id)
	return err
}
