package billing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/database/databasetest"
)

func TestLedgerPreflight(t *testing.T) {
	ledger := NewLedger(nil, &databasetest.Querier{}, decimal.RequireFromString("0.03"))

	org := &database.Organization{
		CreditBalance: decimal.RequireFromString("2.50"),
		SmsRate:       decimal.RequireFromString("0.25"),
	}
	assert.True(t, ledger.CanAfford(org, 10))
	assert.False(t, ledger.CanAfford(org, 11))

	sender := &database.Sender{GatewayBalance: decimal.RequireFromString("0.30")}
	assert.True(t, ledger.GatewayCanCover(sender, 10))
	assert.False(t, ledger.GatewayCanCover(sender, 11))
}

func TestRecordGatewayLowWritesAudit(t *testing.T) {
	var audits []database.CreateAuditLogParams
	fake := &databasetest.Querier{
		CreateAuditLogFn: func(_ context.Context, arg database.CreateAuditLogParams) error {
			audits = append(audits, arg)
			return nil
		},
	}
	ledger := NewLedger(nil, fake, decimal.RequireFromString("0.03"))

	org := &database.Organization{ID: 7}
	sender := &database.Sender{ID: 3, GatewayBalance: decimal.RequireFromString("0.10")}
	require.NoError(t, ledger.RecordGatewayLow(context.Background(), org, sender, 20))

	require.Len(t, audits, 1)
	assert.Equal(t, database.AuditActionGatewayBalanceLow, audits[0].Action)
	require.NotNil(t, audits[0].OrganizationID)
	assert.Equal(t, int32(7), *audits[0].OrganizationID)
	require.NotNil(t, audits[0].SenderID)
	assert.Equal(t, int32(3), *audits[0].SenderID)

	var details map[string]any
	require.NoError(t, json.Unmarshal(audits[0].Details, &details))
	assert.Equal(t, "0.10", details["gateway_balance"])
	assert.Equal(t, "0.60", details["required"])
	assert.Equal(t, float64(20), details["recipients"])
}
