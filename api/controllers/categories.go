package controllers

import (
	"net/http"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/categorization"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

type schemaResponse struct {
	Schemas []categories.Schema             `json:"schemas"`
	Fields  map[string]categories.FieldSpec `json:"fields"`
}

type contextUpdateRequest struct {
	Context map[string]any `json:"context" validate:"required"`
	Reason  string         `json:"reason"`
}

type bulkCategorizeResponse struct {
	Updated []serials.SerialDTO      `json:"updated"`
	Failed  []categorization.Failure `json:"failed"`
}

// CategorySchemas lists the context contract of every category along with
// the spec of each field they reference.
func CategorySchemas() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schemas := categories.Schemas()
		fields := map[string]categories.FieldSpec{}
		for _, schema := range schemas {
			for _, name := range append(append([]string{}, schema.Required...), schema.Optional...) {
				if spec, ok := categories.Field(name); ok {
					fields[name] = spec
				}
			}
		}
		responses.WriteSuccess(w, schemaResponse{Schemas: schemas, Fields: fields})
	}
}

// CategoryList returns the closed set of categories.
func CategoryList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, enums.Categories())
	}
}

func Categorize(svc categorization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload categorization.CategorizeInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serial, err := svc.Categorize(r.Context(), payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, serials.FromModel(serial))
	}
}

func BulkCategorize(svc categorization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload categorization.BulkCategorizeInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkCategorize(r.Context(), payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		failed := result.Failed
		if failed == nil {
			failed = []categorization.Failure{}
		}
		responses.WriteSuccess(w, bulkCategorizeResponse{Updated: serials.FromModels(result.Updated), Failed: failed})
	}
}

func SerialUpdatePayment(svc categorization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "serialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload categorization.PaymentInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serial, err := svc.UpdatePayment(r.Context(), id, payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, serials.FromModel(serial))
	}
}

func SerialUpdateContext(svc categorization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "serialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload contextUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serial, err := svc.UpdateContext(r.Context(), id, payload.Context, payload.Reason, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, serials.FromModel(serial))
	}
}

func CategorySummary(svc categorization.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}
