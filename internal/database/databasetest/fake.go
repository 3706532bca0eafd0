// Package databasetest provides a function-field fake for database.Querier
// so dispatch, billing, and webhook logic can be exercised without Postgres.
package databasetest

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/cedcast/dispatch/internal/database"
)

// Querier implements database.Querier. Unset methods return pgx.ErrNoRows
// for lookups and nil for writes.
type Querier struct {
	GetOrganizationFn                        func(ctx context.Context, id int32) (database.Organization, error)
	GetOrganizationBySlugFn                  func(ctx context.Context, slug string) (database.Organization, error)
	GetOrganizationForUpdateFn               func(ctx context.Context, id int32) (database.Organization, error)
	UpdateOrganizationBillingFn              func(ctx context.Context, arg database.UpdateOrganizationBillingParams) error
	GetOrganizationsBelowCreditHeadroomFn    func(ctx context.Context, headroomMessages int64) ([]database.Organization, error)
	UpdateLowBalanceNotifiedAtFn             func(ctx context.Context, id int32) error
	GetUnsentMessagesFn                      func(ctx context.Context, arg database.GetUnsentMessagesParams) ([]database.Message, error)
	UpdateMessageScheduleFn                  func(ctx context.Context, arg database.UpdateMessageScheduleParams) error
	MarkMessageSentFn                        func(ctx context.Context, id int64) error
	GetPendingRecipientsFn                   func(ctx context.Context, messageID int64) ([]database.Recipient, error)
	CountPendingRecipientsFn                 func(ctx context.Context, messageID int64) (int64, error)
	MarkRecipientSentFn                      func(ctx context.Context, arg database.MarkRecipientSentParams) (int64, error)
	MarkRecipientFailedFn                    func(ctx context.Context, arg database.MarkRecipientFailedParams) error
	ApplyRecipientRetryFn                    func(ctx context.Context, arg database.ApplyRecipientRetryParams) error
	FindRecipientByProviderMessageIDFn       func(ctx context.Context, providerMessageID string) (database.Recipient, error)
	UpdateRecipientDeliveryStatusFn          func(ctx context.Context, arg database.UpdateRecipientDeliveryStatusParams) error
	FindLegacyRecipientByProviderMessageIDFn func(ctx context.Context, providerMessageID string) (database.LegacyRecipient, error)
	UpdateLegacyRecipientDeliveryStatusFn    func(ctx context.Context, arg database.UpdateLegacyRecipientDeliveryStatusParams) error
	GetMessageDeliveryStatsFn                func(ctx context.Context, messageID int64) (database.GetMessageDeliveryStatsRow, error)
	GetActiveSenderForOrganizationFn         func(ctx context.Context, organizationID int32) (database.Sender, error)
	GetSenderForUpdateFn                     func(ctx context.Context, id int32) (database.Sender, error)
	UpdateSenderGatewayBalanceFn             func(ctx context.Context, arg database.UpdateSenderGatewayBalanceParams) error
	CreateAuditLogFn                         func(ctx context.Context, arg database.CreateAuditLogParams) error
}

var _ database.Querier = (*Querier)(nil)

func (f *Querier) GetOrganization(ctx context.Context, id int32) (database.Organization, error) {
	if f.GetOrganizationFn == nil {
		return database.Organization{}, pgx.ErrNoRows
	}
	return f.GetOrganizationFn(ctx, id)
}

func (f *Querier) GetOrganizationBySlug(ctx context.Context, slug string) (database.Organization, error) {
	if f.GetOrganizationBySlugFn == nil {
		return database.Organization{}, pgx.ErrNoRows
	}
	return f.GetOrganizationBySlugFn(ctx, slug)
}

func (f *Querier) GetOrganizationForUpdate(ctx context.Context, id int32) (database.Organization, error) {
	if f.GetOrganizationForUpdateFn == nil {
		return database.Organization{}, pgx.ErrNoRows
	}
	return f.GetOrganizationForUpdateFn(ctx, id)
}

func (f *Querier) UpdateOrganizationBilling(ctx context.Context, arg database.UpdateOrganizationBillingParams) error {
	if f.UpdateOrganizationBillingFn == nil {
		return nil
	}
	return f.UpdateOrganizationBillingFn(ctx, arg)
}

func (f *Querier) GetOrganizationsBelowCreditHeadroom(ctx context.Context, headroomMessages int64) ([]database.Organization, error) {
	if f.GetOrganizationsBelowCreditHeadroomFn == nil {
		return nil, nil
	}
	return f.GetOrganizationsBelowCreditHeadroomFn(ctx, headroomMessages)
}

func (f *Querier) UpdateLowBalanceNotifiedAt(ctx context.Context, id int32) error {
	if f.UpdateLowBalanceNotifiedAtFn == nil {
		return nil
	}
	return f.UpdateLowBalanceNotifiedAtFn(ctx, id)
}

func (f *Querier) GetUnsentMessages(ctx context.Context, arg database.GetUnsentMessagesParams) ([]database.Message, error) {
	if f.GetUnsentMessagesFn == nil {
		return nil, nil
	}
	return f.GetUnsentMessagesFn(ctx, arg)
}

func (f *Querier) UpdateMessageSchedule(ctx context.Context, arg database.UpdateMessageScheduleParams) error {
	if f.UpdateMessageScheduleFn == nil {
		return nil
	}
	return f.UpdateMessageScheduleFn(ctx, arg)
}

func (f *Querier) MarkMessageSent(ctx context.Context, id int64) error {
	if f.MarkMessageSentFn == nil {
		return nil
	}
	return f.MarkMessageSentFn(ctx, id)
}

func (f *Querier) GetPendingRecipients(ctx context.Context, messageID int64) ([]database.Recipient, error) {
	if f.GetPendingRecipientsFn == nil {
		return nil, nil
	}
	return f.GetPendingRecipientsFn(ctx, messageID)
}

func (f *Querier) CountPendingRecipients(ctx context.Context, messageID int64) (int64, error) {
	if f.CountPendingRecipientsFn == nil {
		return 0, nil
	}
	return f.CountPendingRecipientsFn(ctx, messageID)
}

func (f *Querier) MarkRecipientSent(ctx context.Context, arg database.MarkRecipientSentParams) (int64, error) {
	if f.MarkRecipientSentFn == nil {
		return 1, nil
	}
	return f.MarkRecipientSentFn(ctx, arg)
}

func (f *Querier) MarkRecipientFailed(ctx context.Context, arg database.MarkRecipientFailedParams) error {
	if f.MarkRecipientFailedFn == nil {
		return nil
	}
	return f.MarkRecipientFailedFn(ctx, arg)
}

func (f *Querier) ApplyRecipientRetry(ctx context.Context, arg database.ApplyRecipientRetryParams) error {
	if f.ApplyRecipientRetryFn == nil {
		return nil
	}
	return f.ApplyRecipientRetryFn(ctx, arg)
}

func (f *Querier) FindRecipientByProviderMessageID(ctx context.Context, providerMessageID string) (database.Recipient, error) {
	if f.FindRecipientByProviderMessageIDFn == nil {
		return database.Recipient{}, pgx.ErrNoRows
	}
	return f.FindRecipientByProviderMessageIDFn(ctx, providerMessageID)
}

func (f *Querier) UpdateRecipientDeliveryStatus(ctx context.Context, arg database.UpdateRecipientDeliveryStatusParams) error {
	if f.UpdateRecipientDeliveryStatusFn == nil {
		return nil
	}
	return f.UpdateRecipientDeliveryStatusFn(ctx, arg)
}

func (f *Querier) FindLegacyRecipientByProviderMessageID(ctx context.Context, providerMessageID string) (database.LegacyRecipient, error) {
	if f.FindLegacyRecipientByProviderMessageIDFn == nil {
		return database.LegacyRecipient{}, pgx.ErrNoRows
	}
	return f.FindLegacyRecipientByProviderMessageIDFn(ctx, providerMessageID)
}

func (f *Querier) UpdateLegacyRecipientDeliveryStatus(ctx context.Context, arg database.UpdateLegacyRecipientDeliveryStatusParams) error {
	if f.UpdateLegacyRecipientDeliveryStatusFn == nil {
		return nil
	}
	return f.UpdateLegacyRecipientDeliveryStatusFn(ctx, arg)
}

func (f *Querier) GetMessageDeliveryStats(ctx context.Context, messageID int64) (database.GetMessageDeliveryStatsRow, error) {
	if f.GetMessageDeliveryStatsFn == nil {
		return database.GetMessageDeliveryStatsRow{}, pgx.ErrNoRows
	}
	return f.GetMessageDeliveryStatsFn(ctx, messageID)
}

func (f *Querier) GetActiveSenderForOrganization(ctx context.Context, organizationID int32) (database.Sender, error) {
	if f.GetActiveSenderForOrganizationFn == nil {
		return database.Sender{}, pgx.ErrNoRows
	}
	return f.GetActiveSenderForOrganizationFn(ctx, organizationID)
}

func (f *Querier) GetSenderForUpdate(ctx context.Context, id int32) (database.Sender, error) {
	if f.GetSenderForUpdateFn == nil {
		return database.Sender{}, pgx.ErrNoRows
	}
	return f.GetSenderForUpdateFn(ctx, id)
}

func (f *Querier) UpdateSenderGatewayBalance(ctx context.Context, arg database.UpdateSenderGatewayBalanceParams) error {
	if f.UpdateSenderGatewayBalanceFn == nil {
		return nil
	}
	return f.UpdateSenderGatewayBalanceFn(ctx, arg)
}

func (f *Querier) CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) error {
	if f.CreateAuditLogFn == nil {
		return nil
	}
	return f.CreateAuditLogFn(ctx, arg)
}
