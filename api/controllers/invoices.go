package controllers

import (
	"io"
	"net/http"

	"github.com/aguasol/aguasol-backend/api/responses"
	"github.com/aguasol/aguasol-backend/api/validators"
	"github.com/aguasol/aguasol-backend/internal/invoices"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

const maxInvoicePayload = 1 << 20

// OrderInvoice streams the PDF receipt of an order. Customers can only
// render their own orders.
func OrderInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invoice service"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var invoice *invoices.Invoice
		if isAdmin(r) {
			invoice, err = svc.ForOrder(r.Context(), orderID)
		} else {
			customerID, idErr := callerID(r)
			if idErr != nil {
				responses.WriteError(r.Context(), logg, w, idErr)
				return
			}
			invoice, err = svc.ForCustomerOrder(r.Context(), customerID, orderID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePDF(w, invoice.Filename, invoice.Content)
	}
}

// AdminRenderInvoice renders an arbitrary order document (including legacy
// field layouts) without touching the database.
func AdminRenderInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invoice service"))
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxInvoicePayload+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
			return
		}
		if len(raw) > maxInvoicePayload {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload too large"))
			return
		}
		invoice, err := svc.RenderPayload(r.Context(), raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePDF(w, invoice.Filename, invoice.Content)
	}
}
