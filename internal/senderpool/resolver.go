// Package senderpool maps tenants to platform-owned sender credential
// bundles and turns them into usable provider adapter chains.
package senderpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/provider"
	"github.com/cedcast/dispatch/internal/secrets"
)

// ErrNoSenderAssigned means the organization has no active assignment to a
// usable sender. This is a configuration error, distinct from transport
// failures: the dispatcher fails the whole batch fast instead of retrying
// recipient by recipient.
var ErrNoSenderAssigned = errors.New("no active sender assigned to organization")

type Resolver struct {
	dbQueries database.Querier
	decrypter secrets.Decrypter
	registry  *provider.Registry
	// hubtelAPIURL is the platform-wide endpoint used when a sender row
	// does not carry its own.
	hubtelAPIURL string
	logger       *slog.Logger
}

func NewResolver(q database.Querier, d secrets.Decrypter, r *provider.Registry, hubtelAPIURL string, logger *slog.Logger) *Resolver {
	return &Resolver{
		dbQueries:    q,
		decrypter:    d,
		registry:     r,
		hubtelAPIURL: hubtelAPIURL,
		logger:       logger,
	}
}

// Resolve returns the sender behind the organization's first active
// assignment whose status is available or assigned. First match wins;
// multiple active assignments have no documented tie-break beyond
// assignment order.
func (r *Resolver) Resolve(ctx context.Context, organizationID int32) (*database.Sender, error) {
	sender, err := r.dbQueries.GetActiveSenderForOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSenderAssigned
		}
		return nil, fmt.Errorf("resolving sender for organization %d: %w", organizationID, err)
	}
	return &sender, nil
}

// AdapterChain decrypts the sender's credentials and builds the ordered
// adapter list: the sender's own provider first, then any other provider
// the bundle carries credentials for as fallback.
func (r *Resolver) AdapterChain(ctx context.Context, sender *database.Sender) (provider.Chain, error) {
	creds, err := r.credentials(sender)
	if err != nil {
		return nil, err
	}

	primary, err := r.registry.Build(sender.Provider, creds, r.logger)
	if err != nil {
		return nil, fmt.Errorf("building %s adapter for sender %q: %w", sender.Provider, sender.Name, err)
	}
	chain := provider.Chain{primary}

	for _, kind := range r.fallbackKinds(sender.Provider, creds) {
		fallback, err := r.registry.Build(kind, creds, r.logger)
		if err != nil {
			r.logger.DebugContext(ctx, "Fallback provider not usable for sender",
				slog.String("provider", kind),
				slog.String("sender", sender.Name),
				slog.Any("reason", err),
			)
			continue
		}
		chain = append(chain, fallback)
	}
	return chain, nil
}

func (r *Resolver) credentials(sender *database.Sender) (provider.Credentials, error) {
	var creds provider.Credentials
	var err error

	decrypt := func(stored *string) string {
		if err != nil || stored == nil || *stored == "" {
			return ""
		}
		var plain string
		plain, err = r.decrypter.Decrypt(*stored)
		return plain
	}

	creds.SenderID = sender.SenderID
	creds.HubtelAPIURL = deref(sender.HubtelApiUrl)
	if creds.HubtelAPIURL == "" {
		creds.HubtelAPIURL = r.hubtelAPIURL
	}
	creds.HubtelClientID = decrypt(sender.HubtelClientID)
	creds.HubtelClientSecret = decrypt(sender.HubtelClientSecret)
	creds.ClickSendUsername = decrypt(sender.ClicksendUsername)
	creds.ClickSendAPIKey = decrypt(sender.ClicksendApiKey)

	if err != nil {
		return provider.Credentials{}, fmt.Errorf("decrypting credentials for sender %q: %w", sender.Name, err)
	}
	return creds, nil
}

// fallbackKinds lists the registered provider kinds, other than the
// primary, that the credential bundle could plausibly serve.
func (r *Resolver) fallbackKinds(primary string, creds provider.Credentials) []string {
	var kinds []string
	if primary != database.ProviderHubtel && creds.HubtelClientID != "" && r.registry.Has(database.ProviderHubtel) {
		kinds = append(kinds, database.ProviderHubtel)
	}
	if primary != database.ProviderClickSend && creds.ClickSendUsername != "" && r.registry.Has(database.ProviderClickSend) {
		kinds = append(kinds, database.ProviderClickSend)
	}
	return kinds
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
