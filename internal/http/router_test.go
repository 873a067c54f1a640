package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"rentaldesk/internal/http/handlers"
	"rentaldesk/internal/ledger"
	"rentaldesk/internal/settings"
	"rentaldesk/internal/stations"
	"rentaldesk/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	st := store.NewMemoryStore()

	provider := settings.NewProvider(ctx, st, logger)
	ledgerEngine := ledger.New(ctx, st, nil, provider, logger)
	stationEngine := stations.New(ctx, st, nil, ledgerEngine, provider, logger)

	customers := handlers.NewCustomersHandlers(ledgerEngine, logger)
	history := handlers.NewHistoryHandlers(ledgerEngine, logger)
	stationsH := handlers.NewStationsHandlers(stationEngine, logger)
	settingsH := handlers.NewSettingsHandlers(provider, logger)

	return NewRouter(Routes{
		Customers:        customers.List,
		AddCustomer:      customers.Add,
		DeletedCustomers: customers.Deleted,
		Purchase:         customers.Purchase,
		Adjust:           customers.Adjust,
		Redeem:           customers.Redeem,
		DeleteCustomer:   customers.Delete,
		RestoreCustomer:  customers.Restore,
		RenameCustomer:   customers.Rename,
		Undo:             customers.Undo,
		Leaderboard:      customers.Leaderboard,

		History:        history.List,
		Stats:          history.Stats,
		MonthlySales:   history.MonthlySales,
		WalkInSale:     history.WalkInSale,
		HistoricalSale: history.HistoricalSale,

		Stations:       stationsH.List,
		StationsRaw:    stationsH.Raw,
		AddStation:     stationsH.Add,
		DeleteStation:  stationsH.Delete,
		StartStation:   stationsH.Start,
		ExtendStation:  stationsH.Extend,
		RedeemTime:     stationsH.RedeemTime,
		ReduceTime:     stationsH.Reduce,
		PauseStation:   stationsH.Pause,
		UnpauseStation: stationsH.Unpause,
		ParkStation:    stationsH.Park,
		ResumeStation:  stationsH.Resume,
		StopStation:    stationsH.Stop,
		Transfer:       stationsH.Transfer,
		ParkedSessions: stationsH.Parked,

		GetSettings:    settingsH.Get,
		UpdateSettings: settingsH.Update,

		Health: handlers.NewHealthHandler(),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCustomerLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/customers/add", `{"name":"Ana"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/customers/purchase", `{"name":"Ana","amount":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var purchase struct {
		Customer struct {
			Points float64 `json:"points"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &purchase); err != nil {
		t.Fatalf("decode purchase response: %v", err)
	}
	if purchase.Customer.Points != 5 {
		t.Fatalf("expected 5 points, got %v", purchase.Customer.Points)
	}

	rec = doJSON(t, router, http.MethodPost, "/customers/redeem", `{"name":"Ana","points":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var redeem struct {
		Discount float64 `json:"discount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &redeem); err != nil {
		t.Fatalf("decode redeem response: %v", err)
	}
	if redeem.Discount != 60 {
		t.Fatalf("expected ₱60 discount, got %v", redeem.Discount)
	}
}

func TestEngineErrorsMapToStatusCodes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/customers/purchase", `{"name":"Ghost","amount":50}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown customer: expected 404, got %d", rec.Code)
	}

	doJSON(t, router, http.MethodPost, "/customers/add", `{"name":"Ana"}`)
	rec = doJSON(t, router, http.MethodPost, "/customers/add", `{"name":"Ana"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate name: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/customers/purchase", `{"name":"Ana","amount":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid amount: expected 400, got %d", rec.Code)
	}
}

func TestStationStartOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/stations/start", `{"stationId":1,"amount":5,"minutes":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/stations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var views []struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode stations: %v", err)
	}
	if len(views) != 12 || views[0].Status != "occupied" {
		t.Fatalf("expected 12 stations with the first occupied, got %+v", views)
	}

	rec = doJSON(t, router, http.MethodPost, "/stations/start", `{"stationId":1,"amount":5,"minutes":30}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("occupied station: expected 409, got %d", rec.Code)
	}
}

func TestMethodGuard(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/customers/add", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow: POST, got %q", allow)
	}
}

func TestSettingsValidationOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings: expected 200, got %d", rec.Code)
	}
	var current struct {
		MinutesPerPeso float64 `json:"minutesPerPeso"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &current); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if current.MinutesPerPeso != 6 {
		t.Fatalf("expected default rate 6, got %v", current.MinutesPerPeso)
	}

	rec = doJSON(t, router, http.MethodPost, "/settings/update", `{"minutesPerPeso":0,"pointsPerPeso":0.05,"minutesPerPoint":6}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero rate: expected 400, got %d", rec.Code)
	}
}
