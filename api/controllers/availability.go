package controllers

import (
	"net/http"

	"github.com/wavecresthq/wavecrest-backend/api/responses"
	"github.com/wavecresthq/wavecrest-backend/api/validators"
	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
)

// AvailabilityQuery reports committed usage and remaining capacity for the
// requested variants over a half-open window.
func AvailabilityQuery(ledger *availability.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantIDs, err := validators.ParseQueryUUIDList(r, "variantIds")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(variantIDs) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "variantIds is required"))
			return
		}

		start, err := validators.ParseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := ledger.Availability(r.Context(), businessID, variantIDs, availability.Window{Start: start, End: end})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"availability": report})
	}
}
