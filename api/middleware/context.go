package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxBusinessID contextKey = "business_id"

// BusinessIDFromContext returns the tenant id injected by TenantContext, or
// uuid.Nil when the request carried none.
func BusinessIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxBusinessID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithBusinessID injects the tenant id into the context.
func WithBusinessID(ctx context.Context, businessID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBusinessID, businessID)
}
