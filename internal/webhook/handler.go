// Package webhook receives delivery receipts from SMS providers and
// reconciles them against recipient rows.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/logging"
)

// Receipt payload key fallbacks, in lookup order. Providers disagree on
// casing and naming, so each field is probed against several keys.
var (
	receiptIDKeys     = []string{"messageId", "message_id", "MessageId"}
	receiptStatusKeys = []string{"status", "statusDescription", "deliveryStatus"}
)

type Handler struct {
	dbQueries database.Querier
	// secrets maps a provider route param to its shared webhook secret.
	// A provider with no secret skips signature verification.
	secrets map[string]string
	now     func() time.Time
}

func NewHandler(q database.Querier, secrets map[string]string) *Handler {
	return &Handler{
		dbQueries: q,
		secrets:   secrets,
		now:       time.Now,
	}
}

// HandleDeliveryReceipt processes one delivery receipt. The receipt is
// matched to a recipient by provider message id, first against the legacy
// alert recipients then the current org alert recipients. Replays are
// harmless: the status update is idempotent.
func (h *Handler) HandleDeliveryReceipt(c *gin.Context) {
	providerName := strings.ToLower(c.Param("provider"))
	logCtx := logging.ContextWithProvider(c.Request.Context(), providerName)

	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	if secret := h.secrets[providerName]; secret != "" {
		signature := c.GetHeader(signatureHeader(providerName))
		if signature == "" || !VerifySignature([]byte(secret), rawBody, signature) {
			slog.WarnContext(logCtx, "Rejected delivery receipt with bad signature",
				slog.Bool("signature_present", signature != ""),
			)
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
			return
		}
	}

	payload, err := parseReceiptBody(rawBody, c.ContentType())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unparseable body"})
		return
	}

	// Only the message id is mandatory. Some providers post receipts with
	// no status field at all; those are recorded with an empty
	// provider_status and change no recipient state.
	providerMsgID := firstString(payload, receiptIDKeys)
	providerStatus := firstString(payload, receiptStatusKeys)
	if providerMsgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing message id"})
		return
	}
	logCtx = logging.ContextWithProviderMsgID(logCtx, providerMsgID)

	model, err := h.applyReceipt(c, providerMsgID, providerStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown message id"})
			return
		}
		slog.ErrorContext(logCtx, "Failed to apply delivery receipt", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	slog.InfoContext(logCtx, "Delivery receipt applied",
		slog.String("model", model),
		slog.String("provider_status", providerStatus),
	)
	c.JSON(http.StatusOK, gin.H{"status": "updated", "model": model})
}

// applyReceipt finds the recipient row behind a provider message id and
// applies the status. Returns the model name the receipt landed on.
func (h *Handler) applyReceipt(c *gin.Context, providerMsgID, providerStatus string) (string, error) {
	ctx := c.Request.Context()

	var mappedStatus *string
	var sentAt *time.Time
	if mapped := MapProviderStatus(providerStatus); mapped != "" {
		mappedStatus = &mapped
		if mapped == database.RecipientStatusSent {
			now := h.now()
			sentAt = &now
		}
	}

	legacy, err := h.dbQueries.FindLegacyRecipientByProviderMessageID(ctx, providerMsgID)
	if err == nil {
		err = h.dbQueries.UpdateLegacyRecipientDeliveryStatus(ctx, database.UpdateLegacyRecipientDeliveryStatusParams{
			ProviderStatus: providerStatus,
			Status:         mappedStatus,
			SentAt:         sentAt,
			ID:             legacy.ID,
		})
		if err != nil {
			return "", fmt.Errorf("updating legacy recipient %d: %w", legacy.ID, err)
		}
		return "AlertRecipient", nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("looking up legacy recipient: %w", err)
	}

	rec, err := h.dbQueries.FindRecipientByProviderMessageID(ctx, providerMsgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("looking up recipient: %w", err)
	}
	err = h.dbQueries.UpdateRecipientDeliveryStatus(ctx, database.UpdateRecipientDeliveryStatusParams{
		ProviderStatus: providerStatus,
		Status:         mappedStatus,
		SentAt:         sentAt,
		ID:             rec.ID,
	})
	if err != nil {
		return "", fmt.Errorf("updating recipient %d: %w", rec.ID, err)
	}
	return "OrgAlertRecipient", nil
}

// signatureHeader builds the per-provider signature header name, e.g.
// X-Hubtel-Signature.
func signatureHeader(provider string) string {
	if provider == "" {
		return "X-Signature"
	}
	return "X-" + strings.ToUpper(provider[:1]) + provider[1:] + "-Signature"
}

// parseReceiptBody decodes a receipt payload, trying JSON first and falling
// back to form encoding for providers that post urlencoded callbacks.
func parseReceiptBody(rawBody []byte, contentType string) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" {
		return nil, errors.New("empty body")
	}

	if !strings.Contains(contentType, "form-urlencoded") {
		var decoded map[string]any
		if err := json.Unmarshal(rawBody, &decoded); err == nil {
			out := make(map[string]string, len(decoded))
			for k, v := range decoded {
				switch tv := v.(type) {
				case string:
					out[k] = tv
				case float64, bool:
					out[k] = fmt.Sprintf("%v", tv)
				}
			}
			return out, nil
		}
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, fmt.Errorf("body is neither JSON nor form encoded: %w", err)
	}
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = values.Get(k)
	}
	return out, nil
}

func firstString(payload map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
