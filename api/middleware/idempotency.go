package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aguasol/aguasol-backend/api/responses"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	pkgredis "github.com/aguasol/aguasol-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	maxIdempotentBody = 1 << 20
)

// idempotentRoutes lists the writes that must carry an Idempotency-Key.
// Patterns use chi syntax; a {param} segment matches any value.
var idempotentRoutes = map[string]time.Duration{
	"POST /api/public/v1/orders":                 defaultIdempotencyTTL,
	"POST /api/public/v1/auth/register":          defaultIdempotencyTTL,
	"POST /api/v1/orders":                        defaultIdempotencyTTL,
	"POST /api/admin/v1/orders/{orderId}/status": defaultIdempotencyTTL,
	"POST /api/admin/v1/subscriptions":           defaultIdempotencyTTL,
	"POST /api/admin/v1/vouchers/settle":         criticalIdempotencyTTL,
}

type recordState string

const (
	statePending  recordState = "pending"
	stateComplete recordState = "complete"
)

// storedResponse is what lives under an idempotency key. A pending entry
// marks a request still being handled.
type storedResponse struct {
	State       recordState `json:"state"`
	Fingerprint string      `json:"fingerprint"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Idempotency reserves the key before the handler runs, so concurrent
// retries get a conflict instead of a second order. Server errors release
// the key; anything else is kept and replayed for the TTL.
func Idempotency(store pkgredis.MarkerStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, ok := idempotencyTTL(r)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintRequest(r, body)
			key := store.IdempotencyKey(callerScope(r), clientKey)

			pending, _ := json.Marshal(storedResponse{State: statePending, Fingerprint: fingerprint})
			reserved, err := store.SetNX(ctx, key, string(pending), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayStored(ctx, w, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			persistResponse(ctx, store, key, ttl, fingerprint, capture, logg)
		})
	}
}

func replayStored(ctx context.Context, w http.ResponseWriter, store pkgredis.MarkerStore, key, fingerprint string, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// Expired or released between the reservation attempt and now.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request is being retried, try again"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if stored.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
		return
	}
	if stored.State != stateComplete {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is in progress"))
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func persistResponse(ctx context.Context, store pkgredis.MarkerStore, key string, ttl time.Duration, fingerprint string, capture *responseCapture, logg *logger.Logger) {
	// The handler already answered; storage failures only cost replayability.
	ctx = context.WithoutCancel(ctx)
	status := capture.statusCode()

	if err := store.Del(ctx, key); err != nil {
		logStoreError(ctx, logg, "release idempotency reservation", key, err)
		return
	}
	if status >= http.StatusInternalServerError {
		return
	}

	payload, err := json.Marshal(storedResponse{
		State:       stateComplete,
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err != nil {
		logStoreError(ctx, logg, "encode idempotency record", key, err)
		return
	}
	if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil {
		logStoreError(ctx, logg, "store idempotency record", key, err)
	}
}

// fingerprintRequest binds a key to the path and body it was first used with.
func fingerprintRequest(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func callerScope(r *http.Request) string {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		return "guest"
	}
	return string(caller.Role) + ":" + caller.ID.String()
}

func idempotencyTTL(r *http.Request) (time.Duration, bool) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	for route, ttl := range idempotentRoutes {
		method, pattern, _ := strings.Cut(route, " ")
		if method == r.Method && matchRoute(pattern, path) {
			return ttl, true
		}
	}
	return 0, false
}

// matchRoute compares segment by segment. The route context is not used
// because group middleware runs before the subrouter resolves the pattern.
func matchRoute(pattern, path string) bool {
	want := strings.Split(pattern, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logStoreError(ctx context.Context, logg *logger.Logger, msg, key string, err error) {
	if logg == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "idempotency_key", key), msg, err)
}
