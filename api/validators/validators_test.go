package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
)

type createBody struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1,max=100"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","count":1,"extra":true}`))
	var body createBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"count":101}`))
	var body createBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["name"] != "is required" {
		t.Fatalf("unexpected name message %q", details["name"])
	}
	if details["count"] != "must be at most 100" {
		t.Fatalf("unexpected count message %q", details["count"])
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil)
	params, err := ParsePagination(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 3 || params.Limit != 10 {
		t.Fatalf("unexpected params %+v", params)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	params, err = ParsePagination(req)
	if err != nil || params.Page != 1 || params.Limit != pagination.DefaultLimit {
		t.Fatalf("unexpected defaults %+v err=%v", params, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	if _, err := ParsePagination(req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-02-06&to=bad", nil)
	from, err := ParseQueryDate(req, "from")
	if err != nil || from == nil || from.Day() != 6 {
		t.Fatalf("unexpected from %v err=%v", from, err)
	}
	if _, err := ParseQueryDate(req, "to"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	missing, err := ParseQueryDate(req, "missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for absent key")
	}
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/serials/"+id.String(), nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseURLUUID(req, "id")
	if err != nil || got != id {
		t.Fatalf("unexpected id %s err=%v", got, err)
	}

	rc.URLParams = chi.RouteParams{}
	rc.URLParams.Add("id", "nope")
	if _, err := ParseURLUUID(req, "id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := map[string]struct {
		in   string
		max  int
		want string
	}{
		"trims and truncates":  {in: "  abcdef ", max: 3, want: "abc"},
		"collapses whitespace": {in: "Ravi \t  Kumar", max: 0, want: "Ravi Kumar"},
		"drops control chars":  {in: "SN\x00-1", max: 0, want: "SN-1"},
		"counts runes":         {in: "ñandú", max: 4, want: "ñand"},
		"no trailing space":    {in: "ab cd", max: 3, want: "ab"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := SanitizeString(tc.in, tc.max); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

func TestDecodeJSONBodyRejectsEmptyAndTrailing(t *testing.T) {
	var body createBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is empty" {
		t.Fatalf("expected empty body error, got %v", err)
	}

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","count":1}{"name":"b"}`)), &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for trailing document, got %v", err)
	}
}
