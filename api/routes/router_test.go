package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/partstrack-backend/internal/app"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client := dbtest.Open(t)
	registry := prometheus.NewRegistry()

	services, err := app.NewServices(app.ServiceParams{
		Config:  cfg,
		Logger:  logg,
		DB:      client,
		Metrics: metrics.NewInventoryMetrics(registry),
	})
	if err != nil {
		t.Fatalf("wire services: %v", err)
	}

	fixed := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	handler := NewRouter(cfg, logg, Deps{
		DB:       client,
		Gatherer: registry,
		Clock:    func() time.Time { return fixed },
	}, services)
	return &testServer{t: t, handler: handler}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Actor-Id", "u-1")
	req.Header.Set("X-Actor-Name", "Una")
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) data(resp *httptest.ResponseRecorder, status int, dest any) {
	s.t.Helper()
	if resp.Code != status {
		s.t.Fatalf("expected %d got %d: %s", status, resp.Code, resp.Body.String())
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		s.t.Fatalf("unmarshal response: %v", err)
	}
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	if resp := srv.do(http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := srv.do(http.MethodGet, "/health/ready", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := srv.do(http.MethodGet, "/api/v1/unknown", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown: expected 404 got %d", resp.Code)
	}
}

func TestSerialLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var bill struct {
		ID string `json:"id"`
	}
	srv.data(srv.do(http.MethodPost, "/api/v1/bills", `{"voucherNumber":"V-1","supplierName":"Canon","billDate":"2026-03-02"}`), http.StatusCreated, &bill)

	var generated struct {
		Created []struct {
			ID           string `json:"id"`
			SerialNumber string `json:"serialNumber"`
			CreatedBy    string `json:"createdBy"`
		} `json:"created"`
		Failed []any `json:"failed"`
	}
	body := `{"billId":"` + bill.ID + `","prefix":"SN-","startNumber":1,"count":3,"partName":"Drum Unit","unitPrice":100}`
	srv.data(srv.do(http.MethodPost, "/api/v1/serials/generate", body), http.StatusOK, &generated)
	if len(generated.Created) != 3 || len(generated.Failed) != 0 {
		t.Fatalf("unexpected generate result %+v", generated)
	}
	if generated.Created[0].SerialNumber != "SN-0001" || generated.Created[0].CreatedBy != "u-1" {
		t.Fatalf("unexpected first serial %+v", generated.Created[0])
	}

	var exists struct {
		Exists bool `json:"exists"`
	}
	srv.data(srv.do(http.MethodGet, "/api/v1/serials/exists/SN-0002", ""), http.StatusOK, &exists)
	if !exists.Exists {
		t.Fatal("expected SN-0002 to exist")
	}

	serialID := generated.Created[0].ID
	var moved struct {
		Category string `json:"currentCategory"`
	}
	srv.data(srv.do(http.MethodPost, "/api/v1/categories/categorize", `{"serialId":"`+serialID+`","category":"IN_STOCK"}`), http.StatusOK, &moved)
	if moved.Category != "IN_STOCK" {
		t.Fatalf("unexpected category %q", moved.Category)
	}

	resp := srv.do(http.MethodPost, "/api/v1/categories/categorize", `{"serialId":"`+generated.Created[1].ID+`","category":"SPU_PENDING","context":{}}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "MISSING_REQUIRED_FIELD") {
		t.Fatalf("expected context violations, got %d: %s", resp.Code, resp.Body.String())
	}

	var history []struct {
		ToCategory  string `json:"toCategory"`
		PerformedBy string `json:"performedBy"`
	}
	srv.data(srv.do(http.MethodGet, "/api/v1/serials/"+serialID+"/history", ""), http.StatusOK, &history)
	if len(history) != 2 || history[1].ToCategory != "IN_STOCK" || history[1].PerformedBy != "u-1" {
		t.Fatalf("unexpected history %+v", history)
	}

	var inStock struct {
		TotalItems int64 `json:"totalItems"`
	}
	srv.data(srv.do(http.MethodGet, "/api/v1/reports/in-stock", ""), http.StatusOK, &inStock)
	if inStock.TotalItems != 1 {
		t.Fatalf("unexpected in-stock report %+v", inStock)
	}

	var page struct {
		Total int64 `json:"total"`
	}
	srv.data(srv.do(http.MethodGet, "/api/v1/serials/category/uncategorized?limit=10", ""), http.StatusOK, &page)
	if page.Total != 2 {
		t.Fatalf("expected 2 uncategorized serials, got %d", page.Total)
	}

	var dashboard struct {
		Stats struct {
			ThisMonth struct {
				Count int64 `json:"count"`
			} `json:"thisMonth"`
		} `json:"stats"`
	}
	srv.data(srv.do(http.MethodGet, "/api/v1/dashboard/summary", ""), http.StatusOK, &dashboard)
	if dashboard.Stats.ThisMonth.Count != 1 {
		t.Fatalf("unexpected dashboard %+v", dashboard)
	}

	metricsResp := srv.do(http.MethodGet, "/metrics", "")
	if metricsResp.Code != http.StatusOK || !strings.Contains(metricsResp.Body.String(), "serials_created_total") {
		t.Fatalf("expected inventory metrics, got %d", metricsResp.Code)
	}
}

func TestDeleteSerialKeepsHistory(t *testing.T) {
	srv := newTestServer(t)

	var bill struct {
		ID string `json:"id"`
	}
	srv.data(srv.do(http.MethodPost, "/api/v1/bills", `{"voucherNumber":"V-2","billDate":"2026-03-05"}`), http.StatusCreated, &bill)

	var serial struct {
		ID string `json:"id"`
	}
	srv.data(srv.do(http.MethodPost, "/api/v1/serials", `{"serialNumber":"DEL-1","billId":"`+bill.ID+`","partName":"Toner"}`), http.StatusCreated, &serial)

	srv.data(srv.do(http.MethodDelete, "/api/v1/serials/"+serial.ID, ""), http.StatusOK, &map[string]bool{})
	if resp := srv.do(http.MethodGet, "/api/v1/serials/"+serial.ID, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}

	var history []any
	srv.data(srv.do(http.MethodGet, "/api/v1/serials/"+serial.ID+"/history", ""), http.StatusOK, &history)
	if len(history) == 0 {
		t.Fatal("expected history to survive deletion")
	}
}
