package controllers

import (
	"net/http"
	"strings"

	"github.com/aguasol/aguasol-backend/api/responses"
	"github.com/aguasol/aguasol-backend/api/validators"
	"github.com/aguasol/aguasol-backend/internal/vouchers"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

// ListVouchers serves both the customer's own vouchers and the admin
// listing. Only admins may filter by customer_id.
func ListVouchers(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("voucher service"))
			return
		}
		limit, cursor, err := pageQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := vouchers.ListVouchersInput{
			BillingMonth: strings.TrimSpace(r.URL.Query().Get("month")),
			Status:       strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:        limit,
			Cursor:       cursor,
		}
		if isAdmin(r) {
			customerID, err := validators.ParseQueryUUID(r, "customer_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CustomerID = customerID
		} else {
			customerID, err := callerID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CustomerID = &customerID
		}

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminSettleVouchers marks a customer's pending vouchers for a month as paid.
func AdminSettleVouchers(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("voucher service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body vouchers.SettleInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settlement, err := svc.Settle(r.Context(), body, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, settlement)
	}
}
