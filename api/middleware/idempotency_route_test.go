package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoutePatternFallsBackToPathUnderWildcard(t *testing.T) {
	req := requestWithPattern(http.MethodPost, "/api/v1/serials/bulk/", "/api/v1/*", nil)
	if got := routePattern(req); got != "/api/v1/serials/bulk" {
		t.Fatalf("unexpected pattern %q", got)
	}

	plain := httptest.NewRequest(http.MethodPost, "/api/v1/import/excel", nil)
	if got := routePattern(plain); got != "/api/v1/import/excel" {
		t.Fatalf("unexpected pattern %q", got)
	}
}
