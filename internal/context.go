package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextMerchantKey ctxKey = "merchantID"
	ContextLinkKey     ctxKey = "paymentLinkID"
	ContextSessionKey  ctxKey = "dashboardSessionID"
)

func MerchantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if merchantID, ok := ctx.Value(ContextMerchantKey).(string); ok {
		return merchantID
	}
	return ""
}

func ContextWithMerchantID(ctx context.Context, merchantID string) context.Context {
	return context.WithValue(ctx, ContextMerchantKey, merchantID)
}

// DashboardScope is the link-scoped identity carried by a dashboard token.
type DashboardScope struct {
	MerchantID    string
	PaymentLinkID string
	SessionID     string
}

func ContextWithDashboardScope(ctx context.Context, scope DashboardScope) context.Context {
	ctx = context.WithValue(ctx, ContextMerchantKey, scope.MerchantID)
	ctx = context.WithValue(ctx, ContextLinkKey, scope.PaymentLinkID)
	return context.WithValue(ctx, ContextSessionKey, scope.SessionID)
}

func DashboardScopeFromContext(ctx context.Context) (DashboardScope, bool) {
	if ctx == nil {
		return DashboardScope{}, false
	}
	linkID, ok := ctx.Value(ContextLinkKey).(string)
	if !ok || linkID == "" {
		return DashboardScope{}, false
	}
	sessionID, _ := ctx.Value(ContextSessionKey).(string)
	return DashboardScope{
		MerchantID:    MerchantIDFromContext(ctx),
		PaymentLinkID: linkID,
		SessionID:     sessionID,
	}, true
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
