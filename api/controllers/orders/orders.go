package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/aguasol/aguasol-backend/api/middleware"
	"github.com/aguasol/aguasol-backend/api/responses"
	"github.com/aguasol/aguasol-backend/api/validators"
	internalorders "github.com/aguasol/aguasol-backend/internal/orders"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

const defaultSummaryWindow = 30 * 24 * time.Hour

// Create places an order. On the public route the caller is a guest; on the
// customer route the customer id comes from the token and never the body.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if middleware.RoleFromContext(r.Context()) == enums.RoleCustomer {
			if customerID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
				body.CustomerID = &customerID
			}
		}

		order, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrder(r.Context(), order.ID.String(), order.Code), "order created")
		}
		responses.WriteCreated(w, order)
	}
}

// Track looks up an order by its public code and the contact phone.
func Track(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		code := strings.TrimSpace(r.URL.Query().Get("order_number"))
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if code == "" || phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_number and phone are required"))
			return
		}
		tracking, err := svc.Track(r.Context(), code, phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tracking)
	}
}

// List returns the caller's order history, or every order for admins.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		input, err := buildListInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if middleware.RoleFromContext(r.Context()) != enums.RoleAdmin {
			customerID, ok := middleware.UserUUIDFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			input.CustomerID = &customerID
			input.Phone = ""
		}

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail returns one order; customers receive not found for orders that are
// not theirs.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var order *internalorders.OrderDTO
		if middleware.RoleFromContext(r.Context()) == enums.RoleAdmin {
			order, err = svc.Get(r.Context(), orderID)
		} else {
			customerID, ok := middleware.UserUUIDFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			order, err = svc.GetForCustomer(r.Context(), customerID, orderID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ChangeStatus moves an order through the delivery lifecycle.
func ChangeStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body internalorders.StatusChangeInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var actor *outbox.ActorRef
		if adminID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
			actor = &outbox.ActorRef{UserID: adminID, Role: enums.RoleAdmin}
		}

		order, err := svc.ChangeStatus(r.Context(), orderID, body, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Summary reports order counts and delivered revenue. The range defaults to
// the last 30 days; to is inclusive of the whole day.
func Summary(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		end := time.Now().UTC()
		if to != nil {
			end = to.Add(24 * time.Hour)
		}
		start := end.Add(-defaultSummaryWindow)
		if from != nil {
			start = *from
		}

		summary, err := svc.Summary(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func buildListInput(r *http.Request) (internalorders.ListOrdersInput, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internalorders.ListOrdersInput{}, err
	}
	input := internalorders.ListOrdersInput{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Phone:  strings.TrimSpace(r.URL.Query().Get("phone")),
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}
	if input.Status != "" {
		if _, err := enums.ParseOrderStatus(input.Status); err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
	}
	if input.From, err = validators.ParseQueryDate(r, "from"); err != nil {
		return input, err
	}
	to, err := validators.ParseQueryDate(r, "to")
	if err != nil {
		return input, err
	}
	if to != nil {
		end := to.Add(24 * time.Hour)
		input.To = &end
	}
	if middleware.RoleFromContext(r.Context()) == enums.RoleAdmin {
		customerID, err := validators.ParseQueryUUID(r, "customer_id")
		if err != nil {
			return input, err
		}
		input.CustomerID = customerID
	}
	return input, nil
}
