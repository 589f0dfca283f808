package controllers

import (
	"net/http"

	"github.com/angelmondragon/pricebook-backend/api/responses"
	"github.com/angelmondragon/pricebook-backend/api/validators"
	"github.com/angelmondragon/pricebook-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
)

const maxQueryIDs = 200

type assignPricesRequest struct {
	Items []pricing.PriceInput `json:"items" validate:"required,max=1000,dive"`
}

type unassignPricesRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,max=1000,dive,required"`
}

// AssignPrices applies a batch of prices; partial or total item failure answers 207.
func AssignPrices(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload assignPricesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPriceBookID(ctx, id)
		}
		result, err := svc.AssignPrices(ctx, id, payload.Items)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Status != pricing.StatusSuccess {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func UnassignPrices(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload unassignPricesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPriceBookID(ctx, id)
		}
		removed, err := svc.UnassignPrices(ctx, id, payload.ProductIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"removed": removed})
	}
}

// GetPrices resolves effective prices for ?ids=a,b at the optional ?qty.
func GetPrices(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
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

		ids := validators.ParseQueryList(r, "ids")
		if len(ids) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ids query parameter is required").WithDetails(map[string]any{"field": "ids"}))
			return
		}
		if len(ids) > maxQueryIDs {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "too many ids requested").WithDetails(map[string]any{"field": "ids", "max": maxQueryIDs}))
			return
		}

		qty, err := validators.ParseQueryDecimal(r, "qty")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPriceBookID(ctx, id)
		}
		result, err := svc.GetPrices(ctx, id, ids, qty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
