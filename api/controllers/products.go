package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/api/validators"
	productsvc "github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

const productsName = "product service"

func productID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUIDParam(r, "productId")
}

// ListProducts serves the catalog. Admin callers may include inactive rows
// with ?include_inactive=true; the flag is ignored for everyone else.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, productsName, svc, func(_ http.ResponseWriter, r *http.Request) (*pagination.Page[productsvc.ProductDTO], error) {
		in := productsvc.ListProductsInput{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
		var err error
		if in.Limit, in.Cursor, err = pageQuery(r); err != nil {
			return nil, err
		}
		if isAdmin(r) {
			if in.IncludeInactive, err = validators.ParseQueryBool(r, "include_inactive", false); err != nil {
				return nil, err
			}
		}
		return svc.List(r.Context(), in)
	})
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, productsName, svc, func(_ http.ResponseWriter, r *http.Request) (*productsvc.ProductDTO, error) {
		id, err := productID(r)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), id, isAdmin(r))
	})
}

func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusCreated, productsName, svc, func(_ http.ResponseWriter, r *http.Request) (*productsvc.ProductDTO, error) {
		in, err := decodeBody[productsvc.CreateProductInput](r)
		if err != nil {
			return nil, err
		}
		return svc.Create(r.Context(), in)
	})
}

func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, productsName, svc, func(_ http.ResponseWriter, r *http.Request) (*productsvc.ProductDTO, error) {
		id, err := productID(r)
		if err != nil {
			return nil, err
		}
		in, err := decodeBody[productsvc.UpdateProductInput](r)
		if err != nil {
			return nil, err
		}
		return svc.Update(r.Context(), id, in)
	})
}

// AdminDeleteProduct deactivates the product; historical orders keep it.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusNoContent, productsName, svc, func(_ http.ResponseWriter, r *http.Request) (struct{}, error) {
		id, err := productID(r)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, svc.Deactivate(r.Context(), id)
	})
}
