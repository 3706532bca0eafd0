package database

import (
	"context"

	"github.com/shopspring/decimal"
)

const getOrganization = `
SELECT id, name, slug, is_active, credit_balance, total_sms_sent, sms_rate, low_balance_notified_at, created_at
FROM organizations
WHERE id = $1
`

func (q *Queries) GetOrganization(ctx context.Context, id int32) (Organization, error) {
	row := q.db.QueryRow(ctx, getOrganization, id)
	var o Organization
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Slug,
		&o.IsActive,
		&o.CreditBalance,
		&o.TotalSmsSent,
		&o.SmsRate,
		&o.LowBalanceNotifiedAt,
		&o.CreatedAt,
	)
	return o, err
}

const getOrganizationBySlug = `
SELECT id, name, slug, is_active, credit_balance, total_sms_sent, sms_rate, low_balance_notified_at, created_at
FROM organizations
WHERE slug = $1
`

func (q *Queries) GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error) {
	row := q.db.QueryRow(ctx, getOrganizationBySlug, slug)
	var o Organization
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Slug,
		&o.IsActive,
		&o.CreditBalance,
		&o.TotalSmsSent,
		&o.SmsRate,
		&o.LowBalanceNotifiedAt,
		&o.CreatedAt,
	)
	return o, err
}

const getOrganizationForUpdate = `
SELECT id, name, slug, is_active, credit_balance, total_sms_sent, sms_rate, low_balance_notified_at, created_at
FROM organizations
WHERE id = $1
FOR UPDATE
`

// GetOrganizationForUpdate locks the organization row until the enclosing
// transaction ends. Must be called on a Queries bound to a transaction.
func (q *Queries) GetOrganizationForUpdate(ctx context.Context, id int32) (Organization, error) {
	row := q.db.QueryRow(ctx, getOrganizationForUpdate, id)
	var o Organization
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Slug,
		&o.IsActive,
		&o.CreditBalance,
		&o.TotalSmsSent,
		&o.SmsRate,
		&o.LowBalanceNotifiedAt,
		&o.CreatedAt,
	)
	return o, err
}

const updateOrganizationBilling = `
UPDATE organizations
SET credit_balance = $1,
    total_sms_sent = $2,
    sms_rate = $3
WHERE id = $4
`

type UpdateOrganizationBillingParams struct {
	CreditBalance decimal.Decimal
	TotalSmsSent  int64
	SmsRate       decimal.Decimal
	ID            int32
}

func (q *Queries) UpdateOrganizationBilling(ctx context.Context, arg UpdateOrganizationBillingParams) error {
	_, err := q.db.Exec(ctx, updateOrganizationBilling,
		arg.CreditBalance,
		arg.TotalSmsSent,
		arg.SmsRate,
		arg.ID,
	)
	return err
}

const getOrganizationsBelowCreditHeadroom = `
SELECT id, name, slug, is_active, credit_balance, total_sms_sent, sms_rate, low_balance_notified_at, created_at
FROM organizations
WHERE is_active = TRUE
  AND credit_balance < sms_rate * $1
  AND (low_balance_notified_at IS NULL OR low_balance_notified_at < now() - interval '24 hours')
ORDER BY id
`

// GetOrganizationsBelowCreditHeadroom returns active organizations whose
// balance cannot cover headroomMessages sends at their current rate and
// that have not been notified in the last day.
func (q *Queries) GetOrganizationsBelowCreditHeadroom(ctx context.Context, headroomMessages int64) ([]Organization, error) {
	rows, err := q.db.Query(ctx, getOrganizationsBelowCreditHeadroom, headroomMessages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(
			&o.ID,
			&o.Name,
			&o.Slug,
			&o.IsActive,
			&o.CreditBalance,
			&o.TotalSmsSent,
			&o.SmsRate,
			&o.LowBalanceNotifiedAt,
			&o.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const updateLowBalanceNotifiedAt = `
UPDATE organizations
SET low_balance_notified_at = now()
WHERE id = $1
`

func (q *Queries) UpdateLowBalanceNotifiedAt(ctx context.Context, id int32) error {
	_, err := q.db.Exec(ctx, updateLowBalanceNotifiedAt, id)
	return err
}
