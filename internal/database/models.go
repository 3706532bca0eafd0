package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipient status values. A recipient moves pending -> sent or
// pending -> failed; a failed recipient is returned to pending by the
// retry policy until the retry cap is reached.
const (
	RecipientStatusPending = "pending"
	RecipientStatusSent    = "sent"
	RecipientStatusFailed  = "failed"
)

// Sender lifecycle status values.
const (
	SenderStatusAvailable = "available"
	SenderStatusAssigned  = "assigned"
	SenderStatusSuspended = "suspended"
)

// Sender provider kinds.
const (
	ProviderHubtel    = "hubtel"
	ProviderClickSend = "clicksend"
)

// Audit log action kinds written by the dispatch core.
const (
	AuditActionSMSSent           = "sms_sent"
	AuditActionGatewayBalanceLow = "gateway_balance_low"
	AuditActionSenderAssigned    = "sender_assigned"
	AuditActionSenderSuspended   = "sender_suspended"
)

// Organization is a tenant: the billing and data-isolation boundary.
type Organization struct {
	ID                   int32
	Name                 string
	Slug                 string
	IsActive             bool
	CreditBalance        decimal.Decimal
	TotalSmsSent         int64
	SmsRate              decimal.Decimal
	LowBalanceNotifiedAt *time.Time
	CreatedAt            time.Time
}

// Message is one tenant broadcast. The dispatch core only flips Sent; it
// never creates or deletes messages.
type Message struct {
	ID             int64
	OrganizationID int32
	Content        string
	ScheduledAt    time.Time
	Sent           bool
	CreatedAt      time.Time
}

// Recipient is one destination address within a message (org_alert_recipients).
type Recipient struct {
	ID                int64
	MessageID         int64
	PhoneNumber       string
	Status            string
	ProviderMessageID *string
	ProviderStatus    *string
	SentAt            *time.Time
	ErrorMessage      *string
	RetryCount        int32
	LastRetryAt       *time.Time
	IsDeleted         bool
}

// LegacyRecipient is a school-level alert recipient (alert_recipients).
// It is written by the excluded school UI; the dispatch core only touches
// it when reconciling delivery receipts.
type LegacyRecipient struct {
	ID                int64
	MessageID         int64
	PhoneNumber       string
	Status            string
	ProviderMessageID *string
	ProviderStatus    *string
	SentAt            *time.Time
	ErrorMessage      *string
}

// Sender is a pooled provider credential bundle owned by the platform.
// Credential columns are stored encrypted (ENC:: prefix) and must go
// through a secrets.Decrypter before use.
type Sender struct {
	ID                 int32
	Name               string
	SenderID           string
	Provider           string
	Status             string
	GatewayBalance     decimal.Decimal
	HubtelApiUrl       *string
	HubtelClientID     *string
	HubtelClientSecret *string
	ClicksendUsername  *string
	ClicksendApiKey    *string
	CreatedAt          time.Time
}

// SenderAssignment links a sender to an organization. Only active
// assignments are consulted; deactivating keeps history.
type SenderAssignment struct {
	ID             int32
	SenderID       int32
	OrganizationID int32
	IsActive       bool
	AssignedAt     time.Time
}

// AuditLog is an append-only record of billing and sender-lifecycle events.
type AuditLog struct {
	ID             int64
	ActorID        *int32
	OrganizationID *int32
	SenderID       *int32
	Action         string
	Details        []byte
	CreatedAt      time.Time
}
