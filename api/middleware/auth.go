package middleware

import (
	"net/http"
	"strings"

	"github.com/aguasol/aguasol-backend/api/responses"
	pkgAuth "github.com/aguasol/aguasol-backend/pkg/auth"
	"github.com/aguasol/aguasol-backend/pkg/config"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

// TokenHeader carries the access token on login responses. Clients may send
// it back instead of an Authorization bearer.
const TokenHeader = "X-AguaSol-Token"

type authenticator struct {
	cfg  config.JWTConfig
	logg *logger.Logger
}

// authenticate resolves the caller behind token and returns the request
// context carrying it.
func (a authenticator) authenticate(r *http.Request, token string) (*http.Request, error) {
	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if !claims.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid role claim")
	}
	ctx := WithCaller(r.Context(), Caller{ID: claims.SubjectID, Role: claims.Role, Name: claims.Name})
	if a.logg != nil {
		ctx = a.logg.WithCaller(ctx, claims.SubjectID.String(), string(claims.Role))
	}
	return r.WithContext(ctx), nil
}

// middleware builds the handler chain; optional lets anonymous requests
// through while still rejecting a bad token.
func (a authenticator) middleware(optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			authed, err := a.authenticate(r, token)
			if err != nil {
				responses.WriteError(r.Context(), a.logg, w, err)
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

// Auth requires a valid access token and seeds the request context with the
// caller it names.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticator{cfg: cfg, logg: logg}.middleware(false)
}

// OptionalAuth authenticates when a token is present. The public routes use
// it so guest and signed-in customers order through the same endpoints.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticator{cfg: cfg, logg: logg}.middleware(true)
}

// accessToken prefers the Authorization bearer over TokenHeader.
func accessToken(r *http.Request) string {
	const prefix = "bearer "
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
		return h
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}
