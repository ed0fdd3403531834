package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wavecresthq/wavecrest-backend/api/responses"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
)

const businessIDHeader = "X-Business-Id"

// TenantContext requires a valid X-Business-Id header on every request and
// makes the tenant id available to handlers and log lines downstream.
func TenantContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(businessIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Business-Id header is required"))
				return
			}
			businessID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Business-Id must be a valid uuid"))
				return
			}

			ctx := WithBusinessID(r.Context(), businessID)
			if logg != nil {
				ctx = logg.WithBusinessID(ctx, businessID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
