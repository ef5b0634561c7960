package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStats int

func (f fakeStats) InFlight() int { return int(f) }

func TestCollector_InFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(fakeStats(3)))

	want := `
# HELP vidscribe_extractions_in_flight Current number of extractions being processed.
# TYPE vidscribe_extractions_in_flight gauge
vidscribe_extractions_in_flight 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestCollector_NilStats(t *testing.T) {
	c := NewCollector(nil)
	if got := testutil.CollectAndCount(c); got != 1 {
		t.Errorf("expected 1 metric, got %d", got)
	}
}

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}
