package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/domain/dto"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

func useConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	old := config.AppConfig
	config.AppConfig = cfg
	t.Cleanup(func() { config.AppConfig = old })
}

func useMockWarehouse(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	old := warehouseOpener
	warehouseOpener = func(context.Context, config.Config) (*warehouse.Warehouse, error) {
		return &warehouse.Warehouse{DB: db, Dialect: warehouse.Postgres{}}, nil
	}
	t.Cleanup(func() { warehouseOpener = old })
	return mock
}

func baseConfig(refresh bool) config.Config {
	return config.Config{
		Warehouse:  config.WarehouseConfig{Dialect: "postgres"},
		Refresh:    config.RefreshConfig{Enabled: refresh, Tick: time.Hour, DailyLag: time.Minute},
		Cache:      config.CacheConfig{Backend: "memory"},
		ChangeFeed: config.ChangeFeedConfig{Kind: "none"},
	}
}

func get(a *App, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// TestInitializeApp_WarehouseFailure ensures InitializeApp returns error when the warehouse cannot connect.
func TestInitializeApp_WarehouseFailure(t *testing.T) {
	useConfig(t, baseConfig(true))
	old := warehouseOpener
	warehouseOpener = func(context.Context, config.Config) (*warehouse.Warehouse, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { warehouseOpener = old })

	a, err := InitializeApp(context.Background())
	if err == nil || a != nil {
		t.Fatalf("expected error from InitializeApp, got app=%v err=%v", a, err)
	}
}

func TestInitializeApp_BadCacheBackendClosesWarehouse(t *testing.T) {
	cfg := baseConfig(true)
	cfg.Cache.Backend = "memcached"
	useConfig(t, cfg)
	mock := useMockWarehouse(t)
	mock.ExpectClose()

	if _, err := InitializeApp(context.Background()); err == nil {
		t.Fatalf("expected cache store error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("warehouse not closed: %v", err)
	}
}

func TestInitializeApp_WithScheduler(t *testing.T) {
	useConfig(t, baseConfig(true))
	mock := useMockWarehouse(t)
	mock.ExpectPing()

	a, err := InitializeApp(context.Background())
	if err != nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}
	if a.Scheduler == nil || a.Poller != nil {
		t.Fatalf("expected an in-process scheduler")
	}

	if w := get(a, "/healthz"); w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
	if w := get(a, "/readyz"); w.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", w.Code)
	}
	if w := get(a, "/api/v1/summary"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("summary before any refresh: status=%d", w.Code)
	}

	w := get(a, "/api/v1/freshness")
	if w.Code != http.StatusOK {
		t.Fatalf("freshness status=%d", w.Code)
	}
	var out dto.FreshnessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(out.Derivations) != 3 || out.Derivations[1].TargetLag != "DOWNSTREAM" {
		t.Fatalf("unexpected freshness: %+v", out)
	}

	mock.ExpectClose()
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInitializeApp_ReadsFromStoreWhenRefreshDisabled(t *testing.T) {
	useConfig(t, baseConfig(false))
	mock := useMockWarehouse(t)

	a, err := InitializeApp(context.Background())
	if err != nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}
	if a.Scheduler != nil || a.Poller == nil {
		t.Fatalf("expected a store reader and poller")
	}
	if w := get(a, "/api/v1/metrics/daily"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("daily metrics with empty store: status=%d", w.Code)
	}
	if w := get(a, "/api/v1/freshness"); w.Code != http.StatusOK {
		t.Fatalf("freshness status=%d", w.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	cancel()

	mock.ExpectClose()
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
