package worklist

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelist/carelist/internal/platform/fhir"
	"github.com/carelist/carelist/pkg/fhirmodels"
)

func newTestHandler(t *testing.T) (*Handler, *MemoryEngine, *echo.Echo) {
	t.Helper()
	engine := NewMemoryEngine()
	svc, err := NewService(engine, 0)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	sess := NewSession(svc, nil, zerolog.Nop())
	return NewHandler(svc, sess), engine, echo.New()
}

func seedAnnaAndBen(engine *MemoryEngine) {
	engine.SeedPatients(
		testPatient("p-ben", "Ben", "Miller"),
		testPatient("p-anna", "Anna", "Schmidt"),
	)
}

func TestHandler_List(t *testing.T) {
	h, engine, e := newTestHandler(t)
	seedAnnaAndBen(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/worklist?name=an", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Errorf("response = %+v, want exactly Anna", resp)
	}
	if resp.Items[0].ID != "1" || resp.Items[0].Name != "Anna Schmidt" {
		t.Errorf("item = %+v", resp.Items[0])
	}
}

func TestHandler_List_BlankFilter(t *testing.T) {
	h, engine, e := newTestHandler(t)
	seedAnnaAndBen(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/worklist", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp ListResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Errorf("response = %+v, want both patients", resp)
	}
	if resp.Items[0].Name != "Anna Schmidt" || resp.Items[1].Name != "Ben Miller" {
		t.Errorf("order = %q, %q", resp.Items[0].Name, resp.Items[1].Name)
	}
}

func TestHandler_List_InvalidFilter(t *testing.T) {
	h, _, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/worklist?name=a&given=b", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.List(c)
	if err == nil {
		t.Fatal("expected error for mixed filter")
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestHandler_List_EngineError(t *testing.T) {
	stub := &stubEngine{searchErr: errors.New("upstream down")}
	svc, _ := NewService(stub, 0)
	h := NewHandler(svc, NewSession(svc, nil, zerolog.Nop()))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/worklist", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var outcome fhir.OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.ResourceType != "OperationOutcome" || len(outcome.Issue) == 0 {
		t.Errorf("outcome = %+v", outcome)
	}
	if outcome.Issue[0].Diagnostics != "upstream down" {
		t.Errorf("diagnostics = %q", outcome.Issue[0].Diagnostics)
	}
}

func TestHandler_Count(t *testing.T) {
	h, engine, e := newTestHandler(t)
	seedAnnaAndBen(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/worklist/count?family=mil", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Count(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp CountResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, engine, e := newTestHandler(t)
	seedAnnaAndBen(engine)
	engine.SeedRiskAssessments(
		testRisk("r1", "Patient/p-anna", "2026-02-01T09:30:00Z", fhirmodels.RiskHigh),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("p-anna")

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var item PatientItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item.ResourceID != "p-anna" || item.Risk != fhirmodels.RiskHigh {
		t.Errorf("item = %+v", item)
	}
	if item.RiskDetail == nil || item.RiskDetail.ResourceID != "r1" {
		t.Errorf("RiskDetail = %+v", item.RiskDetail)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, _, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nobody")

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var outcome fhir.OperationOutcome
	json.Unmarshal(rec.Body.Bytes(), &outcome)
	if len(outcome.Issue) == 0 || outcome.Issue[0].Code != "not-found" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestHandler_UpdateFilter(t *testing.T) {
	h, engine, e := newTestHandler(t)
	seedAnnaAndBen(engine)

	body := `{"name":"an"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/worklist/filter", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UpdateFilter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	snap := waitForSnapshot(t, h.sess, func(s Snapshot) bool { return !s.UpdatedAt.IsZero() })
	if snap.Total != 1 || snap.Filter.Name != "an" {
		t.Errorf("session snapshot = %+v", snap)
	}
}

func TestHandler_UpdateFilter_Invalid(t *testing.T) {
	h, _, e := newTestHandler(t)

	body := `{"name":"a","given":"b"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/worklist/filter", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.UpdateFilter(c)
	if err == nil {
		t.Fatal("expected error for mixed filter")
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestHandler_GetSnapshot(t *testing.T) {
	h, engine, e := newTestHandler(t)
	seedAnnaAndBen(engine)

	if err := h.sess.Update(Filter{}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	waitForSnapshot(t, h.sess, func(s Snapshot) bool { return !s.UpdatedAt.IsZero() })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/worklist/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetSnapshot(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Total != 2 || len(snap.Items) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if time.Since(snap.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt = %v, want recent", snap.UpdatedAt)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, e := newTestHandler(t)
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/worklist":              false,
		"GET /api/v1/worklist/count":        false,
		"GET /api/v1/worklist/patients/:id": false,
		"POST /api/v1/worklist/filter":      false,
		"GET /api/v1/worklist/session":      false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route %s not registered", key)
		}
	}
}
