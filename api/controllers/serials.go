package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

const maxSearchQuery = 120

type bulkSerialsRequest struct {
	Serials []serials.CreateSerialInput `json:"serials" validate:"required,min=1,max=500,dive"`
}

func SerialCreate(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload serials.CreateSerialInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, serials.FromModel(created))
	}
}

// SerialBulkCreate writes every valid serial and reports the rest as failures.
func SerialBulkCreate(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkSerialsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := svc.BulkCreate(r.Context(), payload.Serials, middleware.ActorFromContext(r.Context()))
		responses.WriteSuccess(w, result.ToDTO())
	}
}

func SerialGenerate(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload serials.GenerateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Generate(r.Context(), payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.ToDTO())
	}
}

func SerialGet(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "serialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serial, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, serials.FromModel(serial))
	}
}

func SerialGetByNumber(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "serialNumber"))
		serial, err := svc.GetBySerialNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, serials.FromModel(serial))
	}
}

func SerialExists(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "serialNumber"))
		exists, err := svc.Exists(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"serialNumber": number, "exists": exists})
	}
}

func SerialsByBill(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		billID, err := validators.ParseURLUUID(r, "billId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.GetByBillID(r.Context(), billID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, serials.FromModels(rows))
	}
}

func SerialsByCategory(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, err := enums.ParseCategory(chi.URLParam(r, "category"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByCategory(r.Context(), category, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.MapPage(page, serials.FromModels))
	}
}

// SerialSearch matches q against serial numbers and part names, narrowed by
// the optional filters.
func SerialSearch(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseSearchFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQuery)
		page, err := svc.Search(r.Context(), query, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.MapPage(page, serials.FromModels))
	}
}

func parseSearchFilters(r *http.Request) (serials.SearchFilters, error) {
	var filters serials.SearchFilters
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category, err := enums.ParseCategory(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		filters.Category = category
	}
	var err error
	if filters.BillID, err = validators.ParseQueryUUID(r, "billId"); err != nil {
		return filters, err
	}
	if filters.PartID, err = validators.ParseQueryUUID(r, "partId"); err != nil {
		return filters, err
	}
	if filters.From, err = validators.ParseQueryDate(r, "from"); err != nil {
		return filters, err
	}
	if filters.To, err = validators.ParseQueryDate(r, "to"); err != nil {
		return filters, err
	}
	filters.CustomerName = validators.SanitizeString(q.Get("customerName"), maxSearchQuery)
	return filters, nil
}

func SerialDelete(svc serials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "serialId")
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

// SerialHistory returns the movement ledger of one serial, oldest first.
func SerialHistory(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "serialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movements.FromModels(rows))
	}
}
