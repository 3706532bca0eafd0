package database

import (
	"context"

	"github.com/shopspring/decimal"
)

const getActiveSenderForOrganization = `
SELECT s.id, s.name, s.sender_id, s.provider, s.status, s.gateway_balance,
       s.hubtel_api_url, s.hubtel_client_id, s.hubtel_client_secret,
       s.clicksend_username, s.clicksend_api_key, s.created_at
FROM sender_assignments sa
JOIN senders s ON s.id = sa.sender_id
WHERE sa.organization_id = $1
  AND sa.is_active = TRUE
  AND s.status IN ('available', 'assigned')
ORDER BY sa.id
LIMIT 1
`

// GetActiveSenderForOrganization returns the first active assignment's
// sender. First match wins; there is no load balancing across multiple
// active assignments.
func (q *Queries) GetActiveSenderForOrganization(ctx context.Context, organizationID int32) (Sender, error) {
	row := q.db.QueryRow(ctx, getActiveSenderForOrganization, organizationID)
	var s Sender
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.SenderID,
		&s.Provider,
		&s.Status,
		&s.GatewayBalance,
		&s.HubtelApiUrl,
		&s.HubtelClientID,
		&s.HubtelClientSecret,
		&s.ClicksendUsername,
		&s.ClicksendApiKey,
		&s.CreatedAt,
	)
	return s, err
}

const getSenderForUpdate = `
SELECT id, name, sender_id, provider, status, gateway_balance,
       hubtel_api_url, hubtel_client_id, hubtel_client_secret,
       clicksend_username, clicksend_api_key, created_at
FROM senders
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetSenderForUpdate(ctx context.Context, id int32) (Sender, error) {
	row := q.db.QueryRow(ctx, getSenderForUpdate, id)
	var s Sender
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.SenderID,
		&s.Provider,
		&s.Status,
		&s.GatewayBalance,
		&s.HubtelApiUrl,
		&s.HubtelClientID,
		&s.HubtelClientSecret,
		&s.ClicksendUsername,
		&s.ClicksendApiKey,
		&s.CreatedAt,
	)
	return s, err
}

const updateSenderGatewayBalance = `
UPDATE senders
SET gateway_balance = $1
WHERE id = $2
`

type UpdateSenderGatewayBalanceParams struct {
	GatewayBalance decimal.Decimal
	ID             int32
}

func (q *Queries) UpdateSenderGatewayBalance(ctx context.Context, arg UpdateSenderGatewayBalanceParams) error {
	_, err := q.db.Exec(ctx, updateSenderGatewayBalance, arg.GatewayBalance, arg.ID)
	return err
}
