package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	OrgIDKey         contextKey = "org_id"
	MessageIDKey     contextKey = "msg_id"
	RecipientIDKey   contextKey = "recipient_id"
	SenderIDKey      contextKey = "sender_id"
	ProviderKey      contextKey = "provider"
	ProviderMsgIDKey contextKey = "provider_msg_id"
	WorkerIDKey      contextKey = "worker_id"
)

// ContextHandler wraps another slog.Handler and adds attributes from context.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler creates a handler that extracts values from context.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle adds context attributes before calling the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if orgID, ok := ctx.Value(OrgIDKey).(int32); ok {
		r.AddAttrs(slog.Int("org_id", int(orgID)))
	}
	if msgID, ok := ctx.Value(MessageIDKey).(int64); ok {
		r.AddAttrs(slog.Int64("msg_id", msgID))
	}
	if recipientID, ok := ctx.Value(RecipientIDKey).(int64); ok {
		r.AddAttrs(slog.Int64("recipient_id", recipientID))
	}
	if senderID, ok := ctx.Value(SenderIDKey).(int32); ok {
		r.AddAttrs(slog.Int("sender_id", int(senderID)))
	}
	if prov, ok := ctx.Value(ProviderKey).(string); ok {
		r.AddAttrs(slog.String("provider", prov))
	}
	if provMsgID, ok := ctx.Value(ProviderMsgIDKey).(string); ok {
		r.AddAttrs(slog.String("provider_msg_id", provMsgID))
	}
	if workerID, ok := ctx.Value(WorkerIDKey).(string); ok {
		r.AddAttrs(slog.String("worker_id", workerID))
	}

	return h.Handler.Handle(ctx, r)
}

// Helper functions to add values to context
func ContextWithOrgID(ctx context.Context, orgID int32) context.Context {
	return context.WithValue(ctx, OrgIDKey, orgID)
}

func ContextWithMessageID(ctx context.Context, msgID int64) context.Context {
	return context.WithValue(ctx, MessageIDKey, msgID)
}

func ContextWithRecipientID(ctx context.Context, recipientID int64) context.Context {
	return context.WithValue(ctx, RecipientIDKey, recipientID)
}

func ContextWithSenderID(ctx context.Context, senderID int32) context.Context {
	return context.WithValue(ctx, SenderIDKey, senderID)
}

func ContextWithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

func ContextWithProviderMsgID(ctx context.Context, providerMsgID string) context.Context {
	return context.WithValue(ctx, ProviderMsgIDKey, providerMsgID)
}

func ContextWithWorkerID(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, WorkerIDKey, workerID)
}
