package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Hubtel sends through the Hubtel query-parameter API: client credentials
// and content go as ordered GET parameters and the response may be JSON or
// plain text.
type Hubtel struct {
	client       *http.Client
	apiURL       string
	clientID     string
	clientSecret string
	senderID     string
	logger       *slog.Logger
}

type HubtelConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	SenderID     string
	Timeout      time.Duration
}

func NewHubtel(cfg HubtelConfig, logger *slog.Logger) *Hubtel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Hubtel{
		client:       &http.Client{Timeout: cfg.Timeout},
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		senderID:     cfg.SenderID,
		logger:       logger,
	}
}

// Response keys Hubtel has been observed to return the message id under.
var hubtelIDKeys = []string{"message_id", "messageId", "id", "MessageId"}

func (h *Hubtel) Send(ctx context.Context, to, body string) (string, error) {
	if h.apiURL == "" || h.clientID == "" || h.clientSecret == "" {
		return "", fmt.Errorf("%w: hubtel api url or client credentials missing", ErrNotConfigured)
	}

	// Hubtel expects the parameters in this exact order: clientid,
	// clientsecret, from, to, content. url.Values sorts keys, so the query
	// string is assembled by hand.
	params := [][2]string{
		{"clientid", h.clientID},
		{"clientsecret", h.clientSecret},
	}
	if from := stripPlus(h.senderID); from != "" {
		params = append(params, [2]string{"from", from})
	}
	params = append(params,
		[2]string{"to", stripPlus(to)},
		[2]string{"content", body},
	)

	var query strings.Builder
	for i, p := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(p[0]))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(p[1]))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.apiURL+"?"+query.String(), nil)
	if err != nil {
		return "", &TransportError{Provider: h.Name(), Err: err}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: h.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: h.Name(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RejectionError{
			Provider: h.Name(),
			Reason:   fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	h.logger.DebugContext(ctx, "Hubtel response", "status", resp.StatusCode, "body", string(raw))

	return extractHubtelMessageID(raw), nil
}

// extractHubtelMessageID pulls a message id out of a Hubtel response body.
// JSON responses are probed for the known id keys; anything else falls back
// to the raw text so the caller still gets a correlation value.
func extractHubtelMessageID(raw []byte) string {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, key := range hubtelIDKeys {
		if v, ok := data[key]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return strings.TrimSpace(string(raw))
}

func (h *Hubtel) QueryStatus(ctx context.Context, providerMessageID string) (string, error) {
	if h.apiURL == "" {
		return "", fmt.Errorf("%w: hubtel api url missing", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.apiURL+"/status/"+url.PathEscape(providerMessageID), nil)
	if err != nil {
		return "", &TransportError{Provider: h.Name(), Err: err}
	}
	if h.clientSecret != "" {
		req.Header.Set("Authorization", "Bearer "+h.clientSecret)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: h.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: h.Name(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RejectionError{
			Provider: h.Name(),
			Reason:   fmt.Sprintf("status query failed with %d", resp.StatusCode),
		}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return strings.TrimSpace(string(raw)), nil
	}
	if v, ok := data["status"]; ok {
		return fmt.Sprintf("%v", v), nil
	}
	return strings.TrimSpace(string(raw)), nil
}

func (h *Hubtel) Name() string { return "HUBTEL" }

// stripPlus normalizes MSISDNs and numeric sender ids to the digit form the
// query API expects.
func stripPlus(n string) string {
	return strings.TrimSpace(strings.TrimPrefix(n, "+"))
}

var _ Adapter = (*Hubtel)(nil)
