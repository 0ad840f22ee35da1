package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/digitos-team/masala-software/api/middleware"
	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/api/validators"
	productsvc "github.com/digitos-team/masala-software/internal/products"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

// ProductList serves the catalog with prices projected for the caller's role.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r, pagination.DefaultLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := productsvc.ListProductsParams{
			Params: page,
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 64),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("lowStock")); raw != "" {
			params.LowStockOnly, err = strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "lowStock must be a boolean"))
				return
			}
		}
		list, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), actor, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// MyStock lists the caller's received stock ledger.
func MyStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.MyStock(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}
