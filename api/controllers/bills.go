package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/api/validators"
	"github.com/angelmondragon/partstrack-backend/internal/bills"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

type billCreateRequest struct {
	VoucherNumber     string           `json:"voucherNumber" validate:"required"`
	CompanyBillNumber *string          `json:"companyBillNumber"`
	SupplierName      string           `json:"supplierName"`
	BillDate          string           `json:"billDate" validate:"required"`
	TotalAmount       *decimal.Decimal `json:"totalAmount"`
	Notes             *string          `json:"notes"`
}

func (r billCreateRequest) toInput() (bills.CreateBillInput, error) {
	billDate, err := categories.ParseDate(r.BillDate)
	if err != nil {
		return bills.CreateBillInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billDate").
			WithDetails(map[string]any{"field": "billDate"})
	}
	return bills.CreateBillInput{
		VoucherNumber:     strings.TrimSpace(r.VoucherNumber),
		CompanyBillNumber: r.CompanyBillNumber,
		SupplierName:      strings.TrimSpace(r.SupplierName),
		BillDate:          billDate,
		TotalAmount:       r.TotalAmount,
		Notes:             r.Notes,
	}, nil
}

func BillCreate(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload billCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Create(r.Context(), input, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, bills.FromModel(bill))
	}
}

func BillList(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQuery)

		page, err := svc.List(r.Context(), query, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.MapPage(page, bills.FromModels))
	}
}

func BillGet(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "billId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bill, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bills.FromModel(bill))
	}
}

func BillGetByVoucher(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bill, err := svc.GetByVoucher(r.Context(), strings.TrimSpace(chi.URLParam(r, "voucherNumber")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bills.FromModel(bill))
	}
}

// BillRecomputeTotal resets the bill total to the sum of its serial prices.
func BillRecomputeTotal(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "billId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total, err := svc.RecomputeTotal(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"billId": id, "totalAmount": total})
	}
}

func BillDelete(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(r, "billId")
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
