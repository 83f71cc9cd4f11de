package controllers

import (
	"net/http"

	"github.com/aguasol/aguasol-backend/api/middleware"
	"github.com/aguasol/aguasol-backend/internal/auth"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

type session interface {
	Token() string
}

// issue decodes a credential body, runs sign and echoes the access token in
// middleware.TokenHeader next to the JSON payload.
func issue[In any, Out session](sign func(*http.Request, In) (Out, error)) endpoint[Out] {
	return func(w http.ResponseWriter, r *http.Request) (Out, error) {
		var zero Out
		body, err := decodeBody[In](r)
		if err != nil {
			return zero, err
		}
		out, err := sign(r, body)
		if err != nil {
			return zero, err
		}
		w.Header().Set(middleware.TokenHeader, out.Token())
		return out, nil
	}
}

// CustomerLogin signs a customer in with phone and password.
func CustomerLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, "auth service", svc, issue(func(r *http.Request, in auth.CustomerLoginRequest) (*auth.CustomerLoginResponse, error) {
		return svc.CustomerLogin(r.Context(), in)
	}))
}

// CustomerRegister creates a customer account and returns its first token.
func CustomerRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusCreated, "register service", reg, issue(func(r *http.Request, in auth.RegisterRequest) (*auth.CustomerLoginResponse, error) {
		return reg.Register(r.Context(), in)
	}))
}

func AdminLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, "auth service", svc, issue(func(r *http.Request, in auth.AdminLoginRequest) (*auth.AdminLoginResponse, error) {
		return svc.AdminLogin(r.Context(), in)
	}))
}
