package provider

import (
	"bytes"
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

const clickSendSuccess = "SUCCESS"

// ClickSend sends through the ClickSend REST API: JSON POST with basic
// auth, success signalled by a response_code sentinel rather than the HTTP
// status alone.
type ClickSend struct {
	client   *http.Client
	baseURL  string
	username string
	apiKey   string
	senderID string
	logger   *slog.Logger
}

type ClickSendConfig struct {
	BaseURL  string
	Username string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

func NewClickSend(cfg ClickSendConfig, logger *slog.Logger) *ClickSend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://rest.clicksend.com/v3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ClickSend{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		logger:   logger,
	}
}

type clickSendMessage struct {
	Source       string `json:"source"`
	Body         string `json:"body"`
	To           string `json:"to"`
	From         string `json:"from,omitempty"`
	CustomString string `json:"custom_string,omitempty"`
}

type clickSendSendRequest struct {
	Messages []clickSendMessage `json:"messages"`
}

type clickSendSendResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseMsg  string `json:"response_msg"`
	Data         struct {
		Messages []struct {
			MessageID string `json:"message_id"`
			Status    string `json:"status"`
		} `json:"messages"`
	} `json:"data"`
}

func (c *ClickSend) Send(ctx context.Context, to, body string) (string, error) {
	if c.username == "" || c.apiKey == "" {
		return "", fmt.Errorf("%w: clicksend username or api key missing", ErrNotConfigured)
	}

	reqBody := clickSendSendRequest{
		Messages: []clickSendMessage{{
			Source:       "cedcast",
			Body:         body,
			To:           to,
			From:         c.senderID,
			CustomString: "org_alert",
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sms/send", bytes.NewReader(jsonBody))
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	req.SetBasicAuth(c.username, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}

	c.logger.DebugContext(ctx, "ClickSend response", "status", resp.StatusCode, "body", string(raw))

	var response clickSendSendResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return "", &RejectionError{
			Provider: c.Name(),
			Reason:   fmt.Sprintf("unparseable response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	if response.ResponseCode != clickSendSuccess {
		return "", &RejectionError{Provider: c.Name(), Reason: response.ResponseMsg}
	}
	if len(response.Data.Messages) == 0 {
		return "", &RejectionError{Provider: c.Name(), Reason: "no message id returned"}
	}
	return response.Data.Messages[0].MessageID, nil
}

func (c *ClickSend) QueryStatus(ctx context.Context, providerMessageID string) (string, error) {
	if c.username == "" || c.apiKey == "" {
		return "", fmt.Errorf("%w: clicksend username or api key missing", ErrNotConfigured)
	}

	endpoint := c.baseURL + "/sms/history?message_id=" + url.QueryEscape(providerMessageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	req.SetBasicAuth(c.username, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RejectionError{
			Provider: c.Name(),
			Reason:   fmt.Sprintf("history query failed with %d", resp.StatusCode),
		}
	}

	var history struct {
		Data struct {
			Data []struct {
				Status string `json:"status"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &history); err != nil || len(history.Data.Data) == 0 {
		return "", &RejectionError{Provider: c.Name(), Reason: "message not found in history"}
	}
	return history.Data.Data[0].Status, nil
}

func (c *ClickSend) Name() string { return "CLICKSEND" }

var _ Adapter = (*ClickSend)(nil)
