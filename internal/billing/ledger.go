package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/logging"
)

// Ledger settles dispatched batches: it debits the tenant credit balance,
// advances the volume-based rate, debits the sender's gateway float and
// leaves an audit trail. Settlement runs in a single transaction so a crash
// never debits the tenant without debiting the gateway, or vice versa.
type Ledger struct {
	dbPool         *pgxpool.Pool
	dbQueries      database.Querier
	gatewayCostSMS decimal.Decimal
}

func NewLedger(pool *pgxpool.Pool, q database.Querier, gatewayCostPerSMS decimal.Decimal) *Ledger {
	return &Ledger{
		dbPool:         pool,
		dbQueries:      q,
		gatewayCostSMS: gatewayCostPerSMS,
	}
}

// GatewayCostPerSMS is the flat per-message cost the platform pays its
// upstream provider, independent of tenant rate.
func (l *Ledger) GatewayCostPerSMS() decimal.Decimal {
	return l.gatewayCostSMS
}

// CanAfford reports whether the organization's credit covers a batch of the
// given size at its current rate.
func (l *Ledger) CanAfford(org *database.Organization, recipients int64) bool {
	return CanCover(org.CreditBalance, org.SmsRate, recipients)
}

// GatewayCanCover reports whether the sender's gateway float covers a batch
// of the given size at the flat gateway cost.
func (l *Ledger) GatewayCanCover(sender *database.Sender, recipients int64) bool {
	return CanCover(sender.GatewayBalance, l.gatewayCostSMS, recipients)
}

// RecordGatewayLow writes a gateway_balance_low audit row so operators can
// top up the float before other tenants on the same sender stall too.
func (l *Ledger) RecordGatewayLow(ctx context.Context, org *database.Organization, sender *database.Sender, recipients int64) error {
	details, err := json.Marshal(map[string]any{
		"recipients":      recipients,
		"gateway_balance": sender.GatewayBalance.String(),
		"required":        BatchCost(l.gatewayCostSMS, recipients).String(),
	})
	if err != nil {
		return fmt.Errorf("encoding gateway balance audit details: %w", err)
	}
	return l.dbQueries.CreateAuditLog(ctx, database.CreateAuditLogParams{
		OrganizationID: &org.ID,
		SenderID:       &sender.ID,
		Action:         database.AuditActionGatewayBalanceLow,
		Details:        details,
	})
}

// SettleBatch debits the tenant and the sender gateway for successfully
// delivered recipients of one message, recomputes the tenant rate from the
// new lifetime volume and records an sms_sent audit row. The whole
// settlement happens once per dispatch cycle, after the send loop, in a
// single transaction.
func (l *Ledger) SettleBatch(ctx context.Context, orgID int32, senderID int32, messageID int64, sentCount int64) (err error) {
	logCtx := logging.ContextWithMessageID(ctx, messageID)
	logCtx = logging.ContextWithOrgID(logCtx, orgID)

	tx, err := l.dbPool.BeginTx(logCtx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin settlement transaction: %w", err)
	}

	qtx := database.New(tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(logCtx)
			panic(p)
		}
		if err != nil {
			slog.WarnContext(logCtx, "Rolling back settlement transaction", slog.Any("error", err))
			if rbErr := tx.Rollback(logCtx); rbErr != nil {
				slog.ErrorContext(logCtx, "Error rolling back settlement transaction",
					slog.Any("rollback_error", rbErr),
					slog.Any("original_error", err),
				)
			}
			return
		}
		if cmErr := tx.Commit(logCtx); cmErr != nil {
			err = fmt.Errorf("failed to commit settlement transaction: %w", cmErr)
			return
		}
		slog.InfoContext(logCtx, "Settled dispatched batch", slog.Int64("sent", sentCount))
	}()

	// Lock the organization row for the balance/volume/rate update.
	org, err := qtx.GetOrganizationForUpdate(logCtx, orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("organization %d not found for settlement", orgID)
		} else {
			err = fmt.Errorf("failed to lock organization: %w", err)
		}
		return err
	}

	cost := BatchCost(org.SmsRate, sentCount)
	newBalance := org.CreditBalance.Sub(cost)
	newTotal := org.TotalSmsSent + sentCount
	newRate := RateForVolume(newTotal)

	err = qtx.UpdateOrganizationBilling(logCtx, database.UpdateOrganizationBillingParams{
		CreditBalance: newBalance,
		TotalSmsSent:  newTotal,
		SmsRate:       newRate,
		ID:            org.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to debit organization: %w", err)
	}

	// Lock and debit the sender gateway float at the flat platform cost.
	sender, err := qtx.GetSenderForUpdate(logCtx, senderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("sender %d not found for settlement", senderID)
		} else {
			err = fmt.Errorf("failed to lock sender: %w", err)
		}
		return err
	}

	gatewayCost := BatchCost(l.gatewayCostSMS, sentCount)
	err = qtx.UpdateSenderGatewayBalance(logCtx, database.UpdateSenderGatewayBalanceParams{
		GatewayBalance: sender.GatewayBalance.Sub(gatewayCost),
		ID:             sender.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to debit sender gateway balance: %w", err)
	}

	details, err := json.Marshal(map[string]any{
		"message_id":  messageID,
		"recipients":  sentCount,
		"cost":        cost.String(),
		"sender_used": sender.Name,
	})
	if err != nil {
		return fmt.Errorf("encoding settlement audit details: %w", err)
	}
	err = qtx.CreateAuditLog(logCtx, database.CreateAuditLogParams{
		OrganizationID: &org.ID,
		SenderID:       &sender.ID,
		Action:         database.AuditActionSMSSent,
		Details:        details,
	})
	if err != nil {
		return fmt.Errorf("failed to record settlement audit log: %w", err)
	}

	slog.DebugContext(logCtx, "Settlement computed",
		slog.String("cost", cost.String()),
		slog.String("new_balance", newBalance.String()),
		slog.String("new_rate", newRate.String()),
		slog.Int64("new_total_sent", newTotal),
	)
	return nil
}
