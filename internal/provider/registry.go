package provider

import (
	"fmt"
	"log/slog"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Factory builds an adapter from a decrypted credential bundle.
type Factory func(creds Credentials, logger *slog.Logger) (Adapter, error)

// Registry maps provider kinds ("hubtel", "clicksend") to adapter
// factories. Safe for concurrent use from the scheduler loop and the
// send-test CLI.
type Registry struct {
	factories cmap.ConcurrentMap[string, Factory]
}

func NewRegistry() *Registry {
	return &Registry{factories: cmap.New[Factory]()}
}

func (r *Registry) Register(kind string, f Factory) {
	r.factories.Set(kind, f)
}

// Build returns an adapter for the given provider kind, or an error when
// the kind is unknown or the factory rejects the credentials.
func (r *Registry) Build(kind string, creds Credentials, logger *slog.Logger) (Adapter, error) {
	f, ok := r.factories.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrNotConfigured, kind)
	}
	return f(creds, logger)
}

// Has reports whether a factory is registered for the kind.
func (r *Registry) Has(kind string) bool {
	return r.factories.Has(kind)
}

// DefaultRegistry wires the two supported gateways.
func DefaultRegistry(timeout time.Duration) *Registry {
	r := NewRegistry()
	r.Register("hubtel", func(creds Credentials, logger *slog.Logger) (Adapter, error) {
		if creds.HubtelAPIURL == "" || creds.HubtelClientID == "" || creds.HubtelClientSecret == "" {
			return nil, fmt.Errorf("%w: hubtel credentials incomplete", ErrNotConfigured)
		}
		return NewHubtel(HubtelConfig{
			APIURL:       creds.HubtelAPIURL,
			ClientID:     creds.HubtelClientID,
			ClientSecret: creds.HubtelClientSecret,
			SenderID:     creds.SenderID,
			Timeout:      timeout,
		}, logger), nil
	})
	r.Register("clicksend", func(creds Credentials, logger *slog.Logger) (Adapter, error) {
		if creds.ClickSendUsername == "" || creds.ClickSendAPIKey == "" {
			return nil, fmt.Errorf("%w: clicksend credentials incomplete", ErrNotConfigured)
		}
		return NewClickSend(ClickSendConfig{
			Username: creds.ClickSendUsername,
			APIKey:   creds.ClickSendAPIKey,
			SenderID: creds.SenderID,
			Timeout:  timeout,
		}, logger), nil
	})
	return r
}
