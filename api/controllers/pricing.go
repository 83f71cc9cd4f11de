package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/api/responses"
	"github.com/aguasol/aguasol-backend/api/validators"
	pricingsvc "github.com/aguasol/aguasol-backend/internal/pricing"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

type calculatePriceRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// CalculatePrice quotes a quantity of one product. Quantity bounds are
// enforced by the pricing service so the error shape matches order creation.
func CalculatePrice(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pricing service"))
			return
		}
		var body calculatePriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Calculate(r.Context(), body.ProductID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
