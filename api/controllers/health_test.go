package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/partstrack-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReadyWithoutRedis(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), stubPinger{}, nil)(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var out struct {
		Checks map[string]string `json:"checks"`
	}
	decodeData(t, resp, &out)
	if out.Checks["redis"] != readinessSkipped || out.Checks["database"] != readinessAvailable {
		t.Fatalf("unexpected checks %v", out.Checks)
	}
}

func TestHealthReadyDatabaseDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), stubPinger{err: errors.New("refused")}, stubPinger{})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
