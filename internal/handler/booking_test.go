package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/openbooking/escrow-core/internal/compliance"
	"github.com/openbooking/escrow-core/internal/escrow"
	"github.com/openbooking/escrow-core/internal/payment"
	"github.com/openbooking/escrow-core/internal/repository"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func setupBookingAPI(t *testing.T) (*echo.Echo, *BookingHandler) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := escrow.NewService(store, escrow.NewLocalLocker(), nil)
	return echo.New(), NewBookingHandler(svc)
}

func doJSON(e *echo.Echo, h echo.HandlerFunc, method, path, body string, params map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	_ = h(c)
	return rec
}

func createBookingHTTP(t *testing.T, e *echo.Echo, h *BookingHandler) string {
	t.Helper()
	body := `{
		"property_id": "prop-1",
		"guest_id": "guest-1",
		"host_id": "host-1",
		"check_in_date": "2026-09-01T00:00:00Z",
		"check_out_date": "2026-09-05T00:00:00Z",
		"num_guests": 2,
		"total_price_cents": 50000,
		"currency": "USD"
	}`
	rec := doJSON(e, h.Create, http.MethodPost, "/v1/bookings", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"ID"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("create response carries no booking ID")
	}
	return resp.ID
}

// ─── Booking Endpoints ──────────────────────────────────────────────────────

func TestCreateBooking_BadDates(t *testing.T) {
	e, h := setupBookingAPI(t)

	body := `{
		"property_id": "prop-1",
		"guest_id": "guest-1",
		"host_id": "host-1",
		"check_in_date": "2026-09-05T00:00:00Z",
		"check_out_date": "2026-09-01T00:00:00Z",
		"total_price_cents": 50000,
		"currency": "USD"
	}`
	rec := doJSON(e, h.Create, http.MethodPost, "/v1/bookings", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateBooking_MissingParticipants(t *testing.T) {
	e, h := setupBookingAPI(t)
	rec := doJSON(e, h.Create, http.MethodPost, "/v1/bookings", `{"property_id":"p"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	e, h := setupBookingAPI(t)
	rec := doJSON(e, h.Get, http.MethodGet, "/v1/bookings/missing", "", map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLock_CryptoWithoutHash(t *testing.T) {
	e, h := setupBookingAPI(t)
	id := createBookingHTTP(t, e, h)
	params := map[string]string{"id": id}

	lockBody := `{"amount_cents": 50000, "currency": "USD", "asset_type": "eth"}`
	if rec := doJSON(e, h.Lock, http.MethodPost, "/v1/bookings/"+id+"/lock", lockBody, params); rec.Code != http.StatusBadRequest {
		t.Errorf("crypto lock without hash: status %d, want 400", rec.Code)
	}

	lockBody = `{"amount_cents": 50000, "currency": "DOGE", "asset_type": "doge"}`
	if rec := doJSON(e, h.Lock, http.MethodPost, "/v1/bookings/"+id+"/lock", lockBody, params); rec.Code != http.StatusBadRequest {
		t.Errorf("lock with unknown asset: status %d, want 400", rec.Code)
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	e, h := setupBookingAPI(t)
	id := createBookingHTTP(t, e, h)
	params := map[string]string{"id": id}

	lockBody := `{"amount_cents": 50000, "currency": "USD", "asset_type": "fiat"}`
	if rec := doJSON(e, h.Lock, http.MethodPost, "/v1/bookings/"+id+"/lock", lockBody, params); rec.Code != http.StatusOK {
		t.Fatalf("lock: status %d, body %s", rec.Code, rec.Body.String())
	}

	// A duplicate lock conflicts instead of double-charging.
	if rec := doJSON(e, h.Lock, http.MethodPost, "/v1/bookings/"+id+"/lock", lockBody, params); rec.Code != http.StatusConflict {
		t.Errorf("duplicate lock: status %d, want 409", rec.Code)
	}

	if rec := doJSON(e, h.CheckIn, http.MethodPost, "/v1/bookings/"+id+"/check-in", `{"actor_id":"guest-1"}`, params); rec.Code != http.StatusOK {
		t.Fatalf("check-in: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Cancellation after check-in is an illegal transition.
	if rec := doJSON(e, h.Cancel, http.MethodPost, "/v1/bookings/"+id+"/cancel", `{"actor_id":"host-1"}`, params); rec.Code != http.StatusConflict {
		t.Errorf("cancel after check-in: status %d, want 409", rec.Code)
	}

	if rec := doJSON(e, h.Complete, http.MethodPost, "/v1/bookings/"+id+"/complete", `{"actor_id":"host-1"}`, params); rec.Code != http.StatusOK {
		t.Fatalf("complete: status %d, body %s", rec.Code, rec.Body.String())
	}

	releaseBody := `{"released_to": "host-1", "reason": "stay completed"}`
	if rec := doJSON(e, h.Release, http.MethodPost, "/v1/bookings/"+id+"/release", releaseBody, params); rec.Code != http.StatusOK {
		t.Fatalf("release: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(e, h.GetTransitions, http.MethodGet, "/v1/bookings/"+id+"/transitions", "", params)
	if rec.Code != http.StatusOK {
		t.Fatalf("transitions: status %d", rec.Code)
	}
	var resp struct {
		Transitions []json.RawMessage `json:"transitions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode transitions: %v", err)
	}
	if len(resp.Transitions) != 4 {
		t.Errorf("transitions = %d, want 4", len(resp.Transitions))
	}
}

func TestRelease_RequiresRecipient(t *testing.T) {
	e, h := setupBookingAPI(t)
	id := createBookingHTTP(t, e, h)
	rec := doJSON(e, h.Release, http.MethodPost, "/v1/bookings/"+id+"/release", `{"reason":"x"}`, map[string]string{"id": id})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRelease_Premature(t *testing.T) {
	e, h := setupBookingAPI(t)
	id := createBookingHTTP(t, e, h)
	params := map[string]string{"id": id}

	lockBody := `{"amount_cents": 50000, "currency": "USD", "asset_type": "fiat"}`
	if rec := doJSON(e, h.Lock, http.MethodPost, "/v1/bookings/"+id+"/lock", lockBody, params); rec.Code != http.StatusOK {
		t.Fatalf("lock: status %d", rec.Code)
	}

	releaseBody := `{"released_to": "host-1"}`
	rec := doJSON(e, h.Release, http.MethodPost, "/v1/bookings/"+id+"/release", releaseBody, params)
	if rec.Code != http.StatusConflict {
		t.Errorf("premature release: status %d, want 409", rec.Code)
	}
}

// ─── Payment Endpoints ──────────────────────────────────────────────────────

func setupPaymentAPI(t *testing.T) (*echo.Echo, *PaymentHandler) {
	t.Helper()
	store := repository.NewMemoryStore()
	esc := escrow.NewService(store, escrow.NewLocalLocker(), nil)
	gate := compliance.NewGate(store, 1_000_000)
	return echo.New(), NewPaymentHandler(payment.NewService(store, gate, 200), esc)
}

func TestProcessPayment_Fiat(t *testing.T) {
	e, h := setupPaymentAPI(t)
	body := `{"user_id": "user-1", "amount_cents": 10000, "currency": "EUR", "method": "sepa"}`
	rec := doJSON(e, h.Process, http.MethodPost, "/v1/payments", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res payment.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(res.GatewayReference, "EU_") {
		t.Errorf("gateway reference = %q, want EU_ prefix", res.GatewayReference)
	}
}

func TestProcessPayment_UnsupportedMethod(t *testing.T) {
	e, h := setupPaymentAPI(t)
	body := `{"user_id": "user-1", "amount_cents": 10000, "currency": "USD", "method": "paypal"}`
	rec := doJSON(e, h.Process, http.MethodPost, "/v1/payments", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProcessPayment_ComplianceBlocked(t *testing.T) {
	e, h := setupPaymentAPI(t)
	body := `{"user_id": "user-1", "amount_cents": 1500000, "currency": "EUR", "method": "sepa"}`
	rec := doJSON(e, h.Process, http.MethodPost, "/v1/payments", body, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var res payment.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Success {
		t.Error("blocked payment reported success")
	}
	if res.RiskScore != 1.0 {
		t.Errorf("risk score = %v, want 1.0", res.RiskScore)
	}
}

func TestPaymentStatus_NotFound(t *testing.T) {
	e, h := setupPaymentAPI(t)
	rec := doJSON(e, h.Status, http.MethodGet, "/v1/payments/missing", "", map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestConfirmations_UnknownHash(t *testing.T) {
	e, h := setupPaymentAPI(t)
	body := `{"transaction_hash": "0xdeadbeef", "confirmations": 3}`
	rec := doJSON(e, h.Confirmations, http.MethodPost, "/v1/confirmations", body, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
