package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/api/middleware"
	"github.com/aguasol/aguasol-backend/api/responses"
	"github.com/aguasol/aguasol-backend/api/validators"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

// pageQuery reads the shared limit/cursor query parameters.
func pageQuery(r *http.Request) (int, string, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return 0, "", err
	}
	return limit, strings.TrimSpace(r.URL.Query().Get("cursor")), nil
}

func requireCaller(r *http.Request) (middleware.Caller, error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return middleware.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return caller, nil
}

// callerID returns the authenticated subject or an unauthorized error.
func callerID(r *http.Request) (uuid.UUID, error) {
	caller, err := requireCaller(r)
	return caller.ID, err
}

// actorFromRequest builds the outbox actor for the authenticated caller.
func actorFromRequest(r *http.Request) (outbox.ActorRef, error) {
	caller, err := requireCaller(r)
	if err != nil {
		return outbox.ActorRef{}, err
	}
	return outbox.ActorRef{UserID: caller.ID, Role: caller.Role}, nil
}

func isAdmin(r *http.Request) bool {
	caller, _ := middleware.CallerFromContext(r.Context())
	return caller.IsAdmin()
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}

func chiParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

// endpoint produces the payload for one request; errors go through the
// shared error envelope.
type endpoint[T any] func(w http.ResponseWriter, r *http.Request) (T, error)

// serve adapts fn to an http.HandlerFunc answering with status. dep is the
// backing service; a nil dep fails every request as unavailable.
func serve[T any](logg *logger.Logger, status int, name string, dep any, fn endpoint[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dep == nil {
			responses.WriteError(r.Context(), logg, w, unavailable(name))
			return
		}
		out, err := fn(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

func decodeBody[T any](r *http.Request) (T, error) {
	var body T
	err := validators.DecodeJSONBody(r, &body)
	return body, err
}
