package database

import (
	"context"
	"time"
)

// Querier is the persistence surface consumed by the dispatch core.
// *Queries is the pgx-backed implementation; tests substitute fakes.
type Querier interface {
	// Organizations
	GetOrganization(ctx context.Context, id int32) (Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error)
	GetOrganizationForUpdate(ctx context.Context, id int32) (Organization, error)
	UpdateOrganizationBilling(ctx context.Context, arg UpdateOrganizationBillingParams) error
	GetOrganizationsBelowCreditHeadroom(ctx context.Context, headroomMessages int64) ([]Organization, error)
	UpdateLowBalanceNotifiedAt(ctx context.Context, id int32) error

	// Messages
	GetUnsentMessages(ctx context.Context, arg GetUnsentMessagesParams) ([]Message, error)
	UpdateMessageSchedule(ctx context.Context, arg UpdateMessageScheduleParams) error
	MarkMessageSent(ctx context.Context, id int64) error

	// Recipients
	GetPendingRecipients(ctx context.Context, messageID int64) ([]Recipient, error)
	CountPendingRecipients(ctx context.Context, messageID int64) (int64, error)
	MarkRecipientSent(ctx context.Context, arg MarkRecipientSentParams) (int64, error)
	MarkRecipientFailed(ctx context.Context, arg MarkRecipientFailedParams) error
	ApplyRecipientRetry(ctx context.Context, arg ApplyRecipientRetryParams) error
	FindRecipientByProviderMessageID(ctx context.Context, providerMessageID string) (Recipient, error)
	UpdateRecipientDeliveryStatus(ctx context.Context, arg UpdateRecipientDeliveryStatusParams) error
	FindLegacyRecipientByProviderMessageID(ctx context.Context, providerMessageID string) (LegacyRecipient, error)
	UpdateLegacyRecipientDeliveryStatus(ctx context.Context, arg UpdateLegacyRecipientDeliveryStatusParams) error
	GetMessageDeliveryStats(ctx context.Context, messageID int64) (GetMessageDeliveryStatsRow, error)

	// Senders
	GetActiveSenderForOrganization(ctx context.Context, organizationID int32) (Sender, error)
	GetSenderForUpdate(ctx context.Context, id int32) (Sender, error)
	UpdateSenderGatewayBalance(ctx context.Context, arg UpdateSenderGatewayBalanceParams) error

	// Audit
	CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) error
}

var _ Querier = (*Queries)(nil)

type GetUnsentMessagesParams struct {
	Limit   int32
	OrgSlug *string
}

type UpdateMessageScheduleParams struct {
	ScheduledAt time.Time
	ID          int64
}

type GetMessageDeliveryStatsRow struct {
	Total   int64
	Sent    int64
	Failed  int64
	Pending int64
}
