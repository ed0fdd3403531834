package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wavecresthq/wavecrest-backend/api/responses"
	"github.com/wavecresthq/wavecrest-backend/api/validators"
	"github.com/wavecresthq/wavecrest-backend/internal/rentals"
	"github.com/wavecresthq/wavecrest-backend/internal/reservations"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

type rentalCreateRequest struct {
	CustomerID         string           `json:"customerId" validate:"required"`
	EquipmentVariantID string           `json:"equipmentVariantId"`
	EquipmentID        string           `json:"equipmentId"`
	Quantity           int              `json:"quantity"`
	StartAt            time.Time        `json:"startAt" validate:"required"`
	EndAt              time.Time        `json:"endAt" validate:"required"`
	PriceTotal         *decimal.Decimal `json:"priceTotal"`
	PaymentMethod      *string          `json:"paymentMethod"`
}

func parsePaymentMethod(raw *string) (*enums.PaymentMethod, error) {
	if raw == nil {
		return nil, nil
	}
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid paymentMethod")
	}
	return &method, nil
}

// RentalCreate reserves pool capacity or a serialized unit, depending on
// which identifier the request carries.
func RentalCreate(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rentalCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(strings.TrimSpace(payload.CustomerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid customerId"))
			return
		}
		method, err := parsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hasVariant := strings.TrimSpace(payload.EquipmentVariantID) != ""
		hasUnit := strings.TrimSpace(payload.EquipmentID) != ""
		if hasVariant == hasUnit {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "provide exactly one of equipmentVariantId or equipmentId"))
			return
		}

		var rental *models.Rental
		if hasVariant {
			variantID, parseErr := uuid.Parse(strings.TrimSpace(payload.EquipmentVariantID))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid equipmentVariantId"))
				return
			}
			rental, err = svc.CreateVariantRental(r.Context(), businessID, reservations.CreateVariantRentalInput{
				CustomerID:    customerID,
				VariantID:     variantID,
				Quantity:      payload.Quantity,
				StartAt:       payload.StartAt,
				EndAt:         payload.EndAt,
				PriceTotal:    payload.PriceTotal,
				PaymentMethod: method,
			})
		} else {
			unitID, parseErr := uuid.Parse(strings.TrimSpace(payload.EquipmentID))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid equipmentId"))
				return
			}
			rental, err = svc.CreateUnitRental(r.Context(), businessID, reservations.CreateUnitRentalInput{
				CustomerID:    customerID,
				EquipmentID:   unitID,
				StartAt:       payload.StartAt,
				EndAt:         payload.EndAt,
				PriceTotal:    payload.PriceTotal,
				PaymentMethod: method,
			})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, rentalResponseFromModel(rental))
	}
}

// RentalList supports cursor pagination plus status and customer filters.
func RentalList(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := rentals.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseRentalStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		customerID, err := validators.ParseQueryUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.CustomerID = customerID

		list, err := svc.List(r.Context(), businessID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]rentalResponse, len(list.Rentals))
		for i := range list.Rentals {
			items[i] = rentalResponseFromModel(&list.Rentals[i])
		}
		responses.WriteSuccess(w, map[string]any{
			"rentals":    items,
			"nextCursor": list.NextCursor,
		})
	}
}

func RentalDetail(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rental, err := svc.Get(r.Context(), businessID, rentalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rentalResponseFromModel(rental))
	}
}

func RentalReturn(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalTransition(svc.Return, logg)
}

func RentalCancel(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return rentalTransition(svc.Cancel, logg)
}

func rentalTransition(op func(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rental, err := op(r.Context(), businessID, rentalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rentalResponseFromModel(rental))
	}
}

type rentalExtendRequest struct {
	EndAt time.Time `json:"endAt" validate:"required"`
}

// RentalExtend moves the end of an open rental's window.
func RentalExtend(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload rentalExtendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rental, err := svc.UpdateEndAt(r.Context(), businessID, rentalID, payload.EndAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rentalResponseFromModel(rental))
	}
}

type rentalResponse struct {
	ID                 uuid.UUID          `json:"id"`
	BusinessID         uuid.UUID          `json:"businessId"`
	CustomerID         uuid.UUID          `json:"customerId"`
	EquipmentID        *uuid.UUID         `json:"equipmentId,omitempty"`
	EquipmentVariantID *uuid.UUID         `json:"equipmentVariantId,omitempty"`
	BookingID          *uuid.UUID         `json:"bookingId,omitempty"`
	Quantity           int                `json:"quantity"`
	StartAt            time.Time          `json:"startAt"`
	EndAt              time.Time          `json:"endAt"`
	ReturnedAt         *time.Time         `json:"returnedAt,omitempty"`
	Status             enums.RentalStatus `json:"status"`
	PriceTotal         *decimal.Decimal   `json:"priceTotal,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

func rentalResponseFromModel(m *models.Rental) rentalResponse {
	resp := rentalResponse{
		ID:                 m.ID,
		BusinessID:         m.BusinessID,
		CustomerID:         m.CustomerID,
		EquipmentID:        m.EquipmentID,
		EquipmentVariantID: m.EquipmentVariantID,
		BookingID:          m.BookingID,
		Quantity:           m.Quantity,
		StartAt:            m.StartAt,
		EndAt:              m.EndAt,
		ReturnedAt:         m.ReturnedAt,
		Status:             m.Status,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.PriceTotal.Valid {
		price := m.PriceTotal.Decimal
		resp.PriceTotal = &price
	}
	return resp
}
