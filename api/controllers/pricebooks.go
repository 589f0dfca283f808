package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricebook-backend/api/responses"
	"github.com/angelmondragon/pricebook-backend/api/validators"
	"github.com/angelmondragon/pricebook-backend/internal/pricing"
	"github.com/angelmondragon/pricebook-backend/internal/scope"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
)

const priceBookIDParam = "priceBookId"

type createPriceBookRequest struct {
	Name     string      `json:"name" validate:"required,max=255"`
	ParentID string      `json:"parent_id" validate:"required"`
	Scope    scope.Scope `json:"scope"`
}

type searchPriceBookRequest struct {
	Scope scope.Scope `json:"scope"`
}

// CreatePriceBook creates a book under parent_id with an identity derived from its scope.
func CreatePriceBook(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload createPriceBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.CreatePriceBook(r.Context(), strings.TrimSpace(payload.Name), strings.TrimSpace(payload.ParentID), payload.Scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

// SearchPriceBook finds the book whose identity matches the posted scope.
func SearchPriceBook(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload searchPriceBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.FindPriceBook(r.Context(), payload.Scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}

func GetPriceBook(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		id, err := priceBookIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.GetPriceBook(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, book)
	}
}

func DeletePriceBook(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		id, err := priceBookIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPriceBookID(ctx, id)
		}
		if err := svc.DeletePriceBook(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

// priceBookIDFromPath unescapes the id segment; scope ids carry brackets and colons.
func priceBookIDFromPath(r *http.Request) (string, error) {
	raw := chi.URLParam(r, priceBookIDParam)
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price book id")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "price book id is required")
	}
	return id, nil
}
