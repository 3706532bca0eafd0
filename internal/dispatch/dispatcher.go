// Package dispatch holds the per-message dispatch pipeline: tenant gating,
// sender resolution, balance preflight, the per-recipient send loop and
// batch settlement.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cedcast/dispatch/internal/billing"
	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/logging"
	"github.com/cedcast/dispatch/internal/provider"
	"github.com/cedcast/dispatch/internal/senderpool"
	"github.com/cedcast/dispatch/pkg/phonenumber"
	"github.com/cedcast/dispatch/pkg/segmenter"
)

// SenderResolver yields the sender assigned to a tenant and the provider
// adapters its credentials can drive.
type SenderResolver interface {
	Resolve(ctx context.Context, organizationID int32) (*database.Sender, error)
	AdapterChain(ctx context.Context, sender *database.Sender) (provider.Chain, error)
}

// Ledger answers balance preflight questions and settles dispatched
// batches.
type Ledger interface {
	CanAfford(org *database.Organization, recipients int64) bool
	GatewayCanCover(sender *database.Sender, recipients int64) bool
	GatewayCostPerSMS() decimal.Decimal
	RecordGatewayLow(ctx context.Context, org *database.Organization, sender *database.Sender, recipients int64) error
	SettleBatch(ctx context.Context, orgID, senderID int32, messageID int64, sentCount int64) error
}

// Result summarizes one dispatch cycle over a message.
type Result struct {
	Processed  int
	Sent       int64
	Failed     int64
	TotalCost  decimal.Decimal
	SenderUsed string
}

type Dispatcher struct {
	dbQueries database.Querier
	senders   SenderResolver
	ledger    Ledger
	retry     RetryPolicy
	dryRun    bool
	now       func() time.Time
}

func NewDispatcher(q database.Querier, senders SenderResolver, ledger Ledger, retry RetryPolicy, dryRun bool) *Dispatcher {
	return &Dispatcher{
		dbQueries: q,
		senders:   senders,
		ledger:    ledger,
		retry:     retry,
		dryRun:    dryRun,
		now:       time.Now,
	}
}

// DispatchMessage runs one dispatch cycle for a due message: it gates on
// tenant standing and balances, attempts every eligible pending recipient
// once, settles the batch and finalizes the message when no pending
// recipients remain. A recipient failure never aborts the loop.
func (d *Dispatcher) DispatchMessage(ctx context.Context, msg *database.Message) (*Result, error) {
	logCtx := logging.ContextWithMessageID(ctx, msg.ID)
	logCtx = logging.ContextWithOrgID(logCtx, msg.OrganizationID)

	org, err := d.dbQueries.GetOrganization(logCtx, msg.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("loading organization %d: %w", msg.OrganizationID, err)
	}

	if !org.IsActive {
		return nil, d.failBannedMessage(logCtx, msg)
	}

	recipients, err := d.dbQueries.GetPendingRecipients(logCtx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("loading pending recipients: %w", err)
	}
	if len(recipients) == 0 {
		if err := d.dbQueries.MarkMessageSent(logCtx, msg.ID); err != nil {
			return nil, fmt.Errorf("finalizing message with no pending recipients: %w", err)
		}
		return &Result{}, nil
	}
	batchSize := int64(len(recipients))

	sender, err := d.senders.Resolve(logCtx, org.ID)
	if err != nil {
		return nil, err
	}
	logCtx = logging.ContextWithSenderID(logCtx, sender.ID)

	// Preflight both balances against the whole batch before touching any
	// provider. Gateway first: a tenant with plenty of credit still cannot
	// send through a dry float.
	if !d.ledger.GatewayCanCover(sender, batchSize) {
		if auditErr := d.ledger.RecordGatewayLow(logCtx, &org, sender, batchSize); auditErr != nil {
			slog.ErrorContext(logCtx, "Failed to record low gateway balance", slog.Any("error", auditErr))
		}
		return nil, &InsufficientBalanceError{
			Scope:     "gateway",
			Required:  billing.BatchCost(d.ledger.GatewayCostPerSMS(), batchSize),
			Available: sender.GatewayBalance,
		}
	}
	if !d.ledger.CanAfford(&org, batchSize) {
		return nil, &InsufficientBalanceError{
			Scope:     "organization",
			Required:  billing.BatchCost(org.SmsRate, batchSize),
			Available: org.CreditBalance,
		}
	}

	chain, err := d.senders.AdapterChain(logCtx, sender)
	if err != nil {
		return nil, err
	}

	result := &Result{SenderUsed: sender.Name}
	for i := range recipients {
		rec := &recipients[i]
		if !d.retry.Eligible(rec, d.now()) {
			continue
		}
		result.Processed++
		if d.attemptRecipient(logCtx, rec, msg.Content, chain) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	if result.Sent > 0 && !d.dryRun {
		result.TotalCost = billing.BatchCost(org.SmsRate, result.Sent)
		if err := d.ledger.SettleBatch(logCtx, org.ID, sender.ID, msg.ID, result.Sent); err != nil {
			return result, fmt.Errorf("settling batch: %w", err)
		}
	}

	remaining, err := d.dbQueries.CountPendingRecipients(logCtx, msg.ID)
	if err != nil {
		return result, fmt.Errorf("counting remaining recipients: %w", err)
	}
	if remaining == 0 {
		if err := d.dbQueries.MarkMessageSent(logCtx, msg.ID); err != nil {
			return result, fmt.Errorf("finalizing message: %w", err)
		}
	}

	slog.InfoContext(logCtx, "Dispatch cycle complete",
		slog.Int("processed", result.Processed),
		slog.Int64("sent", result.Sent),
		slog.Int64("failed", result.Failed),
		slog.Int64("still_pending", remaining),
		slog.Int("sms_parts", segmenter.Count(msg.Content)),
		slog.Bool("dry_run", d.dryRun),
	)
	return result, nil
}

// attemptRecipient tries one recipient and persists the outcome. Returns
// true when the recipient counts as sent for settlement purposes.
func (d *Dispatcher) attemptRecipient(ctx context.Context, rec *database.Recipient, body string, chain provider.Chain) bool {
	recCtx := logging.ContextWithRecipientID(ctx, rec.ID)

	phone := phonenumber.Normalize(rec.PhoneNumber, phonenumber.DefaultCountryCode)
	if phone == "" {
		if err := d.dbQueries.MarkRecipientFailed(recCtx, database.MarkRecipientFailedParams{
			ErrorMessage: "Invalid phone number",
			ID:           rec.ID,
		}); err != nil {
			slog.ErrorContext(recCtx, "Failed to mark recipient failed", slog.Any("error", err))
		}
		return false
	}

	var providerMsgID string
	var sendErr error
	if d.dryRun {
		providerMsgID = "dryrun-" + uuid.NewString()
	} else {
		providerMsgID, sendErr = chain.Send(recCtx, phone, body)
	}

	if sendErr != nil {
		outcome := d.retry.Apply(rec, sendErr, d.now())
		slog.WarnContext(recCtx, "Send attempt failed",
			slog.Any("error", sendErr),
			slog.Int("retry_count", int(outcome.RetryCount)),
			slog.String("next_status", outcome.Status),
		)
		if err := d.dbQueries.ApplyRecipientRetry(recCtx, database.ApplyRecipientRetryParams{
			Status:       outcome.Status,
			RetryCount:   outcome.RetryCount,
			LastRetryAt:  outcome.LastRetryAt,
			ErrorMessage: outcome.ErrorMessage,
			ID:           rec.ID,
		}); err != nil {
			slog.ErrorContext(recCtx, "Failed to persist retry state", slog.Any("error", err))
		}
		return false
	}

	rows, err := d.dbQueries.MarkRecipientSent(recCtx, database.MarkRecipientSentParams{
		ProviderMessageID: providerMsgID,
		SentAt:            d.now(),
		ID:                rec.ID,
	})
	if err != nil {
		slog.ErrorContext(recCtx, "Failed to mark recipient sent",
			slog.Any("error", err),
			slog.String("provider_msg_id", providerMsgID),
		)
		// The provider accepted the message; the recipient still counts
		// toward settlement even though the row update failed.
		return true
	}
	if rows == 0 {
		// A delivery receipt beat us to the row. The send still happened.
		slog.DebugContext(recCtx, "Recipient already updated by delivery receipt",
			slog.String("provider_msg_id", providerMsgID),
		)
	}
	return true
}

// failBannedMessage fails every pending recipient of a banned tenant's
// message without any provider traffic, then finalizes the message.
func (d *Dispatcher) failBannedMessage(ctx context.Context, msg *database.Message) error {
	recipients, err := d.dbQueries.GetPendingRecipients(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("loading recipients of banned organization: %w", err)
	}
	for i := range recipients {
		err := d.dbQueries.MarkRecipientFailed(ctx, database.MarkRecipientFailedParams{
			ErrorMessage: "Organization is banned",
			ID:           recipients[i].ID,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to fail recipient of banned organization",
				slog.Int64("recipient_id", recipients[i].ID),
				slog.Any("error", err),
			)
		}
	}
	if err := d.dbQueries.MarkMessageSent(ctx, msg.ID); err != nil {
		return fmt.Errorf("finalizing banned organization message: %w", err)
	}
	slog.WarnContext(ctx, "Rejected message from banned organization",
		slog.Int("recipients_failed", len(recipients)),
	)
	return ErrOrganizationBanned
}

// IsPermanent reports whether a dispatch error means the message should not
// be retried by the scheduler (as opposed to transient transport or balance
// conditions that may clear).
func IsPermanent(err error) bool {
	return errors.Is(err, ErrOrganizationBanned) || errors.Is(err, senderpool.ErrNoSenderAssigned)
}
