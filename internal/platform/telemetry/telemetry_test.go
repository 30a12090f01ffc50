package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRequest(t *testing.T) {
	p := NewProvider("careward-test")

	e := echo.New()
	e.GET("/api/v1/admissions/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, p.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admissions/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("GET", "/api/v1/admissions/:id", "200"))
	if got != 1 {
		t.Errorf("expected requests_total 1, got %v", got)
	}
}

func TestMiddleware_RecordsErrorStatus(t *testing.T) {
	p := NewProvider("careward-test")

	e := echo.New()
	e.GET("/api/v1/mar/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}, p.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mar/missing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("GET", "/api/v1/mar/:id", "404"))
	if got != 1 {
		t.Errorf("expected requests_total 1 for 404, got %v", got)
	}
}

func TestDomainCounters(t *testing.T) {
	p := NewProvider("careward-test")

	p.TriageClassified("red")
	p.TriageClassified("red")
	p.TriageClassified("green")
	p.AdmissionTransition("discharged")
	p.DoseRecorded("given")
	p.DoseRecorded("held")

	if got := testutil.ToFloat64(p.triageClassifications.WithLabelValues("red")); got != 2 {
		t.Errorf("expected 2 red classifications, got %v", got)
	}
	if got := testutil.ToFloat64(p.triageClassifications.WithLabelValues("green")); got != 1 {
		t.Errorf("expected 1 green classification, got %v", got)
	}
	if got := testutil.ToFloat64(p.admissionTransitions.WithLabelValues("discharged")); got != 1 {
		t.Errorf("expected 1 discharge transition, got %v", got)
	}
	if got := testutil.ToFloat64(p.dosesRecorded.WithLabelValues("given")); got != 1 {
		t.Errorf("expected 1 given dose, got %v", got)
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	p := NewProvider("careward-test")
	p.TriageClassified("orange")
	p.SetDBPoolStats(3, 7)

	e := echo.New()
	e.GET("/metrics", p.Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "triage_classifications_total") {
		t.Error("expected triage_classifications_total in exposition output")
	}
	if !strings.Contains(body, "db_pool_active_connections") {
		t.Error("expected db_pool_active_connections in exposition output")
	}
}

func TestNewProvider_IndependentRegistries(t *testing.T) {
	// Two providers must not collide on registration.
	p1 := NewProvider("a")
	p2 := NewProvider("b")
	p1.TriageClassified("red")
	if got := testutil.ToFloat64(p2.triageClassifications.WithLabelValues("red")); got != 0 {
		t.Errorf("expected independent registries, got %v", got)
	}
}
