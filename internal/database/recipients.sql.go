package database

import (
	"context"
	"time"
)

const getPendingRecipients = `
SELECT id, message_id, phone_number, status, provider_message_id, provider_status,
       sent_at, error_message, retry_count, last_retry_at, is_deleted
FROM org_alert_recipients
WHERE message_id = $1
  AND status = 'pending'
  AND is_deleted = FALSE
ORDER BY id
`

func (q *Queries) GetPendingRecipients(ctx context.Context, messageID int64) ([]Recipient, error) {
	rows, err := q.db.Query(ctx, getPendingRecipients, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(
			&r.ID,
			&r.MessageID,
			&r.PhoneNumber,
			&r.Status,
			&r.ProviderMessageID,
			&r.ProviderStatus,
			&r.SentAt,
			&r.ErrorMessage,
			&r.RetryCount,
			&r.LastRetryAt,
			&r.IsDeleted,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countPendingRecipients = `
SELECT count(*)
FROM org_alert_recipients
WHERE message_id = $1
  AND status = 'pending'
  AND is_deleted = FALSE
`

func (q *Queries) CountPendingRecipients(ctx context.Context, messageID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countPendingRecipients, messageID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const markRecipientSent = `
UPDATE org_alert_recipients
SET status = 'sent',
    provider_message_id = $1,
    sent_at = $2,
    error_message = ''
WHERE id = $3
  AND status = 'pending'
`

type MarkRecipientSentParams struct {
	ProviderMessageID string
	SentAt            time.Time
	ID                int64
}

// MarkRecipientSent is a compare-and-set on status so a concurrent webhook
// update is never clobbered. Returns the number of rows updated.
func (q *Queries) MarkRecipientSent(ctx context.Context, arg MarkRecipientSentParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markRecipientSent, arg.ProviderMessageID, arg.SentAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const markRecipientFailed = `
UPDATE org_alert_recipients
SET status = 'failed',
    error_message = $1
WHERE id = $2
`

type MarkRecipientFailedParams struct {
	ErrorMessage string
	ID           int64
}

func (q *Queries) MarkRecipientFailed(ctx context.Context, arg MarkRecipientFailedParams) error {
	_, err := q.db.Exec(ctx, markRecipientFailed, arg.ErrorMessage, arg.ID)
	return err
}

const applyRecipientRetry = `
UPDATE org_alert_recipients
SET status = $1,
    retry_count = $2,
    last_retry_at = $3,
    error_message = $4
WHERE id = $5
`

type ApplyRecipientRetryParams struct {
	Status       string
	RetryCount   int32
	LastRetryAt  time.Time
	ErrorMessage string
	ID           int64
}

func (q *Queries) ApplyRecipientRetry(ctx context.Context, arg ApplyRecipientRetryParams) error {
	_, err := q.db.Exec(ctx, applyRecipientRetry,
		arg.Status,
		arg.RetryCount,
		arg.LastRetryAt,
		arg.ErrorMessage,
		arg.ID,
	)
	return err
}

const findRecipientByProviderMessageID = `
SELECT id, message_id, phone_number, status, provider_message_id, provider_status,
       sent_at, error_message, retry_count, last_retry_at, is_deleted
FROM org_alert_recipients
WHERE provider_message_id = $1
ORDER BY id
LIMIT 1
`

func (q *Queries) FindRecipientByProviderMessageID(ctx context.Context, providerMessageID string) (Recipient, error) {
	row := q.db.QueryRow(ctx, findRecipientByProviderMessageID, providerMessageID)
	var r Recipient
	err := row.Scan(
		&r.ID,
		&r.MessageID,
		&r.PhoneNumber,
		&r.Status,
		&r.ProviderMessageID,
		&r.ProviderStatus,
		&r.SentAt,
		&r.ErrorMessage,
		&r.RetryCount,
		&r.LastRetryAt,
		&r.IsDeleted,
	)
	return r, err
}

const updateRecipientDeliveryStatus = `
UPDATE org_alert_recipients
SET provider_status = $1,
    status = COALESCE($2, status),
    sent_at = COALESCE(sent_at, $3)
WHERE id = $4
`

type UpdateRecipientDeliveryStatusParams struct {
	ProviderStatus string
	Status         *string
	SentAt         *time.Time
	ID             int64
}

// UpdateRecipientDeliveryStatus applies a delivery receipt: provider_status
// is written unconditionally, the internal status only when the receipt
// mapped to one, and sent_at only if not already stamped. Replaying the
// same receipt is a no-op in effect.
func (q *Queries) UpdateRecipientDeliveryStatus(ctx context.Context, arg UpdateRecipientDeliveryStatusParams) error {
	_, err := q.db.Exec(ctx, updateRecipientDeliveryStatus,
		arg.ProviderStatus,
		arg.Status,
		arg.SentAt,
		arg.ID,
	)
	return err
}

const findLegacyRecipientByProviderMessageID = `
SELECT id, message_id, phone_number, status, provider_message_id, provider_status,
       sent_at, error_message
FROM alert_recipients
WHERE provider_message_id = $1
ORDER BY id
LIMIT 1
`

func (q *Queries) FindLegacyRecipientByProviderMessageID(ctx context.Context, providerMessageID string) (LegacyRecipient, error) {
	row := q.db.QueryRow(ctx, findLegacyRecipientByProviderMessageID, providerMessageID)
	var r LegacyRecipient
	err := row.Scan(
		&r.ID,
		&r.MessageID,
		&r.PhoneNumber,
		&r.Status,
		&r.ProviderMessageID,
		&r.ProviderStatus,
		&r.SentAt,
		&r.ErrorMessage,
	)
	return r, err
}

const updateLegacyRecipientDeliveryStatus = `
UPDATE alert_recipients
SET provider_status = $1,
    status = COALESCE($2, status),
    sent_at = COALESCE(sent_at, $3)
WHERE id = $4
`

type UpdateLegacyRecipientDeliveryStatusParams struct {
	ProviderStatus string
	Status         *string
	SentAt         *time.Time
	ID             int64
}

func (q *Queries) UpdateLegacyRecipientDeliveryStatus(ctx context.Context, arg UpdateLegacyRecipientDeliveryStatusParams) error {
	_, err := q.db.Exec(ctx, updateLegacyRecipientDeliveryStatus,
		arg.ProviderStatus,
		arg.Status,
		arg.SentAt,
		arg.ID,
	)
	return err
}

const getMessageDeliveryStats = `
SELECT count(*) AS total,
       count(*) FILTER (WHERE status = 'sent') AS sent,
       count(*) FILTER (WHERE status = 'failed') AS failed,
       count(*) FILTER (WHERE status = 'pending') AS pending
FROM org_alert_recipients
WHERE message_id = $1
  AND is_deleted = FALSE
`

func (q *Queries) GetMessageDeliveryStats(ctx context.Context, messageID int64) (GetMessageDeliveryStatsRow, error) {
	row := q.db.QueryRow(ctx, getMessageDeliveryStats, messageID)
	var s GetMessageDeliveryStatsRow
	err := row.Scan(&s.Total, &s.Sent, &s.Failed, &s.Pending)
	return s, err
}
