package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/internal/ingestion"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

const uploadField = "file"

var workbookExtensions = map[string]bool{".xlsx": true, ".xlsm": true}

type importPreview struct {
	Bills        []ingestion.Bill `json:"bills"`
	TotalBills   int              `json:"totalBills"`
	TotalParts   int              `json:"totalParts"`
	TotalSerials int              `json:"totalSerials"`
}

// ImportParse returns the parsed bill tree without touching the database.
func ImportParse(svc ingestion.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bills, ok := parseUpload(w, r, svc, maxBytes, logg)
		if !ok {
			return
		}
		parts, serialCount := ingestion.Counts(bills)
		responses.WriteSuccess(w, importPreview{
			Bills:        bills,
			TotalBills:   len(bills),
			TotalParts:   parts,
			TotalSerials: serialCount,
		})
	}
}

// ImportValidate reports duplicates against the database without writing.
func ImportValidate(svc ingestion.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bills, ok := parseUpload(w, r, svc, maxBytes, logg)
		if !ok {
			return
		}
		report, err := svc.Validate(r.Context(), bills)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ImportExcel parses the uploaded workbook and imports every new bill.
func ImportExcel(svc ingestion.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bills, ok := parseUpload(w, r, svc, maxBytes, logg)
		if !ok {
			return
		}
		result, err := svc.Import(r.Context(), bills, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"bills_created":   result.BillsCreated,
				"serials_created": result.SerialsCreated,
				"duplicates":      result.Duplicates,
			})
			logg.Info(ctx, "import.completed")
		}
		responses.WriteSuccess(w, result)
	}
}

func parseUpload(w http.ResponseWriter, r *http.Request, svc ingestion.Service, maxBytes int64, logg *logger.Logger) ([]ingestion.Bill, bool) {
	payload, err := readUpload(w, r, maxBytes)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	bills, err := svc.Parse(r.Context(), bytes.NewReader(payload))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return bills, true
}

func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "upload too large").
				WithDetails(map[string]any{"maxBytes": maxBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").
			WithDetails(map[string]any{"field": uploadField})
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !workbookExtensions[ext] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only .xlsx workbooks are accepted").
			WithDetails(map[string]any{"filename": header.Filename})
	}
	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	return payload, nil
}
