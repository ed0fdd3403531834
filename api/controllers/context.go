package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavecresthq/wavecrest-backend/api/middleware"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

func requireBusinessID(r *http.Request) (uuid.UUID, error) {
	businessID := middleware.BusinessIDFromContext(r.Context())
	if businessID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "business context missing")
	}
	return businessID, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, param+" must be a valid uuid")
	}
	return value, nil
}
