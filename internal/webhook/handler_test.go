package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedcast/dispatch/internal/database"
	"github.com/cedcast/dispatch/internal/database/databasetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newReceiptRouter(q database.Querier, secrets map[string]string) *gin.Engine {
	h := NewHandler(q, secrets)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	router := gin.New()
	router.POST("/webhooks/:provider", h.HandleDeliveryReceipt)
	return router
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postReceipt(router *gin.Engine, provider, contentType string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+provider, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func orgRecipientFake(updates *[]database.UpdateRecipientDeliveryStatusParams) *databasetest.Querier {
	return &databasetest.Querier{
		FindRecipientByProviderMessageIDFn: func(_ context.Context, id string) (database.Recipient, error) {
			if id == "abc-123" {
				return database.Recipient{ID: 9, Status: database.RecipientStatusSent}, nil
			}
			return database.Recipient{}, pgx.ErrNoRows
		},
		UpdateRecipientDeliveryStatusFn: func(_ context.Context, arg database.UpdateRecipientDeliveryStatusParams) error {
			if updates != nil {
				*updates = append(*updates, arg)
			}
			return nil
		},
	}
}

func TestReceiptUpdatesOrgRecipient(t *testing.T) {
	var updates []database.UpdateRecipientDeliveryStatusParams
	router := newReceiptRouter(orgRecipientFake(&updates), nil)

	w := postReceipt(router, "hubtel", "application/json",
		[]byte(`{"messageId":"abc-123","status":"delivered"}`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"updated","model":"OrgAlertRecipient"}`, w.Body.String())
	require.Len(t, updates, 1)
	assert.Equal(t, "delivered", updates[0].ProviderStatus)
	require.NotNil(t, updates[0].Status)
	assert.Equal(t, database.RecipientStatusSent, *updates[0].Status)
	require.NotNil(t, updates[0].SentAt)
}

func TestReceiptLegacyTableTakesPrecedence(t *testing.T) {
	var legacyUpdates []database.UpdateLegacyRecipientDeliveryStatusParams
	orgLookups := 0
	fake := &databasetest.Querier{
		FindLegacyRecipientByProviderMessageIDFn: func(_ context.Context, id string) (database.LegacyRecipient, error) {
			return database.LegacyRecipient{ID: 4}, nil
		},
		UpdateLegacyRecipientDeliveryStatusFn: func(_ context.Context, arg database.UpdateLegacyRecipientDeliveryStatusParams) error {
			legacyUpdates = append(legacyUpdates, arg)
			return nil
		},
		FindRecipientByProviderMessageIDFn: func(context.Context, string) (database.Recipient, error) {
			orgLookups++
			return database.Recipient{}, pgx.ErrNoRows
		},
	}
	router := newReceiptRouter(fake, nil)

	w := postReceipt(router, "hubtel", "application/json",
		[]byte(`{"message_id":"old-7","status":"failed"}`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"updated","model":"AlertRecipient"}`, w.Body.String())
	require.Len(t, legacyUpdates, 1)
	require.NotNil(t, legacyUpdates[0].Status)
	assert.Equal(t, database.RecipientStatusFailed, *legacyUpdates[0].Status)
	assert.Nil(t, legacyUpdates[0].SentAt)
	assert.Equal(t, 0, orgLookups, "legacy match must short-circuit the org lookup")
}

func TestReceiptSignatureVerification(t *testing.T) {
	secret := "whsec-1"
	body := []byte(`{"messageId":"abc-123","status":"delivered"}`)

	t.Run("valid signature", func(t *testing.T) {
		router := newReceiptRouter(orgRecipientFake(nil), map[string]string{"hubtel": secret})
		w := postReceipt(router, "hubtel", "application/json", body,
			map[string]string{"X-Hubtel-Signature": signBody(secret, body)})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid signature", func(t *testing.T) {
		router := newReceiptRouter(orgRecipientFake(nil), map[string]string{"hubtel": secret})
		w := postReceipt(router, "hubtel", "application/json", body,
			map[string]string{"X-Hubtel-Signature": "deadbeef"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing signature", func(t *testing.T) {
		router := newReceiptRouter(orgRecipientFake(nil), map[string]string{"hubtel": secret})
		w := postReceipt(router, "hubtel", "application/json", body, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no secret configured skips verification", func(t *testing.T) {
		router := newReceiptRouter(orgRecipientFake(nil), map[string]string{"hubtel": ""})
		w := postReceipt(router, "hubtel", "application/json", body, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestReceiptFormEncodedFallback(t *testing.T) {
	var updates []database.UpdateRecipientDeliveryStatusParams
	router := newReceiptRouter(orgRecipientFake(&updates), nil)

	form := "messageId=abc-123&status=DELIVRD"
	w := postReceipt(router, "clicksend", "application/x-www-form-urlencoded", []byte(form), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, updates, 1)
	assert.Equal(t, "DELIVRD", updates[0].ProviderStatus)
	require.NotNil(t, updates[0].Status)
	assert.Equal(t, database.RecipientStatusSent, *updates[0].Status)
}

func TestReceiptStatusKeyFallbacks(t *testing.T) {
	for _, body := range []string{
		`{"messageId":"abc-123","statusDescription":"delivered"}`,
		`{"messageId":"abc-123","deliveryStatus":"delivered"}`,
		`{"MessageId":"abc-123","status":"delivered"}`,
	} {
		var updates []database.UpdateRecipientDeliveryStatusParams
		router := newReceiptRouter(orgRecipientFake(&updates), nil)
		w := postReceipt(router, "hubtel", "application/json", []byte(body), nil)
		assert.Equal(t, http.StatusOK, w.Code, "body: %s", body)
		assert.Len(t, updates, 1, "body: %s", body)
	}
}

func TestReceiptUnknownStatusRecordsRawOnly(t *testing.T) {
	var updates []database.UpdateRecipientDeliveryStatusParams
	router := newReceiptRouter(orgRecipientFake(&updates), nil)

	w := postReceipt(router, "hubtel", "application/json",
		[]byte(`{"messageId":"abc-123","status":"queued_at_network"}`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, updates, 1)
	assert.Equal(t, "queued_at_network", updates[0].ProviderStatus)
	assert.Nil(t, updates[0].Status, "unknown statuses must not change recipient state")
	assert.Nil(t, updates[0].SentAt)
}

func TestReceiptBadRequests(t *testing.T) {
	router := newReceiptRouter(orgRecipientFake(nil), nil)

	t.Run("missing message id", func(t *testing.T) {
		w := postReceipt(router, "hubtel", "application/json", []byte(`{"status":"delivered"}`), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := postReceipt(router, "hubtel", "application/json", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReceiptWithoutStatusIsAccepted(t *testing.T) {
	var updates []database.UpdateRecipientDeliveryStatusParams
	router := newReceiptRouter(orgRecipientFake(&updates), nil)

	w := postReceipt(router, "hubtel", "application/json", []byte(`{"messageId":"abc-123"}`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, updates, 1)
	assert.Empty(t, updates[0].ProviderStatus)
	assert.Nil(t, updates[0].Status)
	assert.Nil(t, updates[0].SentAt)
}

func TestReceiptUnknownMessageID(t *testing.T) {
	lookups := 0
	fake := &databasetest.Querier{
		FindRecipientByProviderMessageIDFn: func(context.Context, string) (database.Recipient, error) {
			lookups++
			return database.Recipient{}, pgx.ErrNoRows
		},
	}
	router := newReceiptRouter(fake, nil)

	w := postReceipt(router, "hubtel", "application/json",
		[]byte(`{"messageId":"nope","status":"delivered"}`), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, lookups)
}

func TestReceiptReplayIsIdempotent(t *testing.T) {
	var updates []database.UpdateRecipientDeliveryStatusParams
	router := newReceiptRouter(orgRecipientFake(&updates), nil)
	body := []byte(`{"messageId":"abc-123","status":"delivered"}`)

	for i := 0; i < 3; i++ {
		w := postReceipt(router, "hubtel", "application/json", body, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	// Each replay writes the same provider status; the SQL layer's COALESCE
	// keeps the original sent_at, so replays converge on one state.
	assert.Len(t, updates, 3)
	for _, u := range updates {
		assert.Equal(t, "delivered", u.ProviderStatus)
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"delivered", database.RecipientStatusSent},
		{"DELIVERED", database.RecipientStatusSent},
		{"delivered_to_terminal", database.RecipientStatusSent},
		{"2", database.RecipientStatusSent},
		{"DELIVRD", database.RecipientStatusSent},
		{"failed", database.RecipientStatusFailed},
		{"undelivered", database.RecipientStatusFailed},
		{"UNDELIVERABLE", database.RecipientStatusFailed},
		{"undeliverable_at_terminal", database.RecipientStatusFailed},
		{"3", database.RecipientStatusFailed},
		{"message_failed_at_network", database.RecipientStatusFailed},
		{"queued", ""},
		{"", ""},
		{"1", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapProviderStatus(tt.in), "status %q", tt.in)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("whsec")
	body := []byte(`{"a":1}`)
	good := signBody("whsec", body)

	assert.True(t, VerifySignature(secret, body, good))
	assert.False(t, VerifySignature(secret, body, strings.ToUpper(good)))
	assert.False(t, VerifySignature(secret, []byte(`{"a":2}`), good))
	assert.False(t, VerifySignature(secret, body, ""))
}
