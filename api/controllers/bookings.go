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
	"github.com/wavecresthq/wavecrest-backend/internal/bookings"
	"github.com/wavecresthq/wavecrest-backend/internal/reservations"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

type allocationRequest struct {
	EquipmentVariantID string `json:"equipmentVariantId" validate:"required"`
	Quantity           int    `json:"quantity" validate:"required,min=1"`
}

type bookingCreateRequest struct {
	CustomerID    string              `json:"customerId" validate:"required"`
	LessonID      string              `json:"lessonId" validate:"required"`
	InstructorID  string              `json:"instructorId" validate:"required"`
	Participants  int                 `json:"participants" validate:"required,min=1"`
	StartAt       time.Time           `json:"startAt" validate:"required"`
	EndAt         time.Time           `json:"endAt" validate:"required"`
	Allocations   []allocationRequest `json:"allocations" validate:"required,dive"`
	PriceTotal    *decimal.Decimal    `json:"priceTotal"`
	PaymentMethod *string             `json:"paymentMethod"`
}

func (req bookingCreateRequest) toInput() (reservations.CreateLessonBookingInput, error) {
	var input reservations.CreateLessonBookingInput

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid customerId")
	}
	lessonID, err := uuid.Parse(strings.TrimSpace(req.LessonID))
	if err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid lessonId")
	}
	instructorID, err := uuid.Parse(strings.TrimSpace(req.InstructorID))
	if err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid instructorId")
	}
	method, err := parsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return input, err
	}

	allocations := make([]reservations.AllocationInput, len(req.Allocations))
	for i, allocation := range req.Allocations {
		variantID, parseErr := uuid.Parse(strings.TrimSpace(allocation.EquipmentVariantID))
		if parseErr != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid equipmentVariantId in allocations")
		}
		allocations[i] = reservations.AllocationInput{
			VariantID: variantID,
			Quantity:  allocation.Quantity,
		}
	}

	return reservations.CreateLessonBookingInput{
		CustomerID:    customerID,
		LessonID:      lessonID,
		InstructorID:  instructorID,
		Participants:  req.Participants,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		Allocations:   allocations,
		PriceTotal:    req.PriceTotal,
		PaymentMethod: method,
	}, nil
}

// BookingCreate reserves a lesson slot plus its equipment allocations.
func BookingCreate(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bookingCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.CreateLessonBooking(r.Context(), businessID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bookingResponseFromModel(booking))
	}
}

type bookingCheckInRequest struct {
	EquipmentCategoryID *string `json:"equipmentCategoryId"`
	Quantity            int     `json:"quantity"`
}

// BookingCheckIn converts a booked reservation into consuming rentals.
func BookingCheckIn(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reservations.CheckInInput{}
		if r.ContentLength > 0 {
			var payload bookingCheckInRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if payload.EquipmentCategoryID != nil {
				categoryID, parseErr := uuid.Parse(strings.TrimSpace(*payload.EquipmentCategoryID))
				if parseErr != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid equipmentCategoryId"))
					return
				}
				input.CategoryID = &categoryID
				input.Quantity = payload.Quantity
			}
		}

		booking, err := svc.CheckInBooking(r.Context(), businessID, bookingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookingResponseFromModel(booking))
	}
}

// BookingList supports cursor pagination plus status, customer and lesson
// filters.
func BookingList(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
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

		filters := bookings.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseBookingStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if filters.CustomerID, err = validators.ParseQueryUUID(r, "customerId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.LessonID, err = validators.ParseQueryUUID(r, "lessonId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), businessID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]bookingResponse, len(list.Bookings))
		for i := range list.Bookings {
			items[i] = bookingResponseFromModel(&list.Bookings[i])
		}
		responses.WriteSuccess(w, map[string]any{
			"bookings":   items,
			"nextCursor": list.NextCursor,
		})
	}
}

func BookingDetail(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.Get(r.Context(), businessID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookingResponseFromModel(booking))
	}
}

func BookingCancel(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingTransition(svc.Cancel, logg)
}

func BookingComplete(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingTransition(svc.Complete, logg)
}

func BookingNoShow(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingTransition(svc.MarkNoShow, logg)
}

func bookingTransition(op func(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := op(r.Context(), businessID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookingResponseFromModel(booking))
	}
}

type bookingRescheduleRequest struct {
	StartAt time.Time `json:"startAt" validate:"required"`
	EndAt   time.Time `json:"endAt" validate:"required"`
}

// BookingReschedule moves a booked reservation to a new window after
// re-validating capacity, instructor and equipment constraints.
func BookingReschedule(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bookingRescheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.Reschedule(r.Context(), businessID, bookingID, payload.StartAt, payload.EndAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookingResponseFromModel(booking))
	}
}

type bookingParticipantsRequest struct {
	Participants int `json:"participants" validate:"required,min=1"`
}

func BookingParticipants(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bookingParticipantsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.UpdateParticipants(r.Context(), businessID, bookingID, payload.Participants)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookingResponseFromModel(booking))
	}
}

type allocationResponse struct {
	ID                 uuid.UUID `json:"id"`
	EquipmentVariantID uuid.UUID `json:"equipmentVariantId"`
	Quantity           int       `json:"quantity"`
}

type bookingResponse struct {
	ID           uuid.UUID            `json:"id"`
	BusinessID   uuid.UUID            `json:"businessId"`
	CustomerID   uuid.UUID            `json:"customerId"`
	LessonID     *uuid.UUID           `json:"lessonId,omitempty"`
	InstructorID *uuid.UUID           `json:"instructorId,omitempty"`
	Participants int                  `json:"participants"`
	StartAt      time.Time            `json:"startAt"`
	EndAt        time.Time            `json:"endAt"`
	Status       enums.BookingStatus  `json:"status"`
	Allocations  []allocationResponse `json:"allocations"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func bookingResponseFromModel(m *models.Booking) bookingResponse {
	allocations := make([]allocationResponse, len(m.Allocations))
	for i, allocation := range m.Allocations {
		allocations[i] = allocationResponse{
			ID:                 allocation.ID,
			EquipmentVariantID: allocation.EquipmentVariantID,
			Quantity:           allocation.Quantity,
		}
	}
	return bookingResponse{
		ID:           m.ID,
		BusinessID:   m.BusinessID,
		CustomerID:   m.CustomerID,
		LessonID:     m.LessonID,
		InstructorID: m.InstructorID,
		Participants: m.Participants,
		StartAt:      m.StartAt,
		EndAt:        m.EndAt,
		Status:       m.Status,
		Allocations:  allocations,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
