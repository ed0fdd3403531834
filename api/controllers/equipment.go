package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wavecresthq/wavecrest-backend/api/responses"
	"github.com/wavecresthq/wavecrest-backend/api/validators"
	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/internal/equipment"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
)

type categoryCreateRequest struct {
	Name       string `json:"name" validate:"required"`
	TrackSizes bool   `json:"trackSizes"`
}

func CategoryCreate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload categoryCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), businessID, equipment.CreateCategoryInput{
			Name:       strings.TrimSpace(payload.Name),
			TrackSizes: payload.TrackSizes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func CategoryList(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categories, err := svc.ListCategories(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

// CategoryDelete refuses to remove a category that still owns variants.
func CategoryDelete(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCategory(r.Context(), businessID, categoryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type variantCreateRequest struct {
	CategoryID        string `json:"categoryId" validate:"required"`
	Label             string `json:"label" validate:"required"`
	TotalQuantity     int    `json:"totalQuantity" validate:"min=0"`
	LowStockThreshold int    `json:"lowStockThreshold" validate:"min=0"`
}

func VariantCreate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload variantCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := uuid.Parse(strings.TrimSpace(payload.CategoryID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid categoryId"))
			return
		}
		variant, err := svc.CreateVariant(r.Context(), businessID, equipment.CreateVariantInput{
			CategoryID:        categoryID,
			Label:             strings.TrimSpace(payload.Label),
			TotalQuantity:     payload.TotalQuantity,
			LowStockThreshold: payload.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

type variantUpdateRequest struct {
	Label             *string `json:"label"`
	TotalQuantity     *int    `json:"totalQuantity"`
	LowStockThreshold *int    `json:"lowStockThreshold"`
	IsActive          *bool   `json:"isActive"`
}

func VariantUpdate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload variantUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, err := svc.UpdateVariant(r.Context(), businessID, variantID, equipment.UpdateVariantInput{
			Label:             payload.Label,
			TotalQuantity:     payload.TotalQuantity,
			LowStockThreshold: payload.LowStockThreshold,
			IsActive:          payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variant)
	}
}

// VariantList returns variants joined with availability. Without start/end
// parameters availability reflects this instant.
func VariantList(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, err := requireBusinessID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var window *availability.Window
		if r.URL.Query().Get("start") != "" || r.URL.Query().Get("end") != "" {
			var start, end time.Time
			if start, err = validators.ParseQueryTime(r, "start"); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if end, err = validators.ParseQueryTime(r, "end"); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			window = &availability.Window{Start: start, End: end}
		}

		variants, err := svc.ListVariants(r.Context(), businessID, categoryID, window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"variants": variants})
	}
}
