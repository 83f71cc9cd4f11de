package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
)

func badParam(key, msg string, extra ...any) error {
	details := map[string]any{"field": key}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ParseQueryInt reads an integer in [lo, hi], returning def when absent.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := query(r, key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badParam(key, key+" must be a whole number")
	}
	if n < lo || n > hi {
		return 0, badParam(key, key+" is out of range", "min", lo, "max", hi)
	}
	return n, nil
}

// ParseQueryDate reads a YYYY-MM-DD query value. Missing values return nil.
func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	raw := query(r, key)
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, badParam(key, key+" must be a date", "format", "YYYY-MM-DD")
	}
	return &day, nil
}

// ParseQueryUUID reads an optional UUID query value.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := query(r, key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badParam(key, key+" must be a uuid")
	}
	return &id, nil
}

// ParseUUIDParam reads a required UUID route parameter.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return uuid.Nil, badParam(key, "invalid "+key)
	}
	return id, nil
}

// ParseQueryBool reads an optional boolean flag, returning def when absent.
func ParseQueryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := query(r, key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badParam(key, key+" must be true or false")
	}
	return v, nil
}
