package controllers

import (
	"net/http"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/customers"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/suppliers"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

const maxSupplierSuggestions = 50

func PartCreate(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload parts.CreatePartInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, parts.FromModel(part))
	}
}

func PartList(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQuery), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.MapPage(page, parts.FromModels))
	}
}

func PartGet(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts.FromModel(part))
	}
}

func PartUpdate(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload parts.UpdatePartInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Update(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts.FromModel(part))
	}
}

func PartDelete(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func CustomerCreate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload customers.CreateCustomerInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Create(r.Context(), payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, customers.FromModel(customer))
	}
}

func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQuery), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.MapPage(page, customers.FromModels))
	}
}

func CustomerGet(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.FromModel(customer))
	}
}

// CustomerLookup matches customers by name for context autocompletion.
func CustomerLookup(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := validators.SanitizeString(r.URL.Query().Get("name"), maxSearchQuery)
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
				WithDetails(map[string]any{"field": "name"}))
			return
		}
		rows, err := svc.FindByName(r.Context(), name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customers.FromModels(rows))
	}
}

func SupplierList(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxSupplierSuggestions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQuery), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suppliers.FromModels(rows))
	}
}
