package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("matching", 15*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome(OutcomeDone)
	pr.IncSlotFallback("testimonial_1")
	pr.IncSlotFallback("testimonial_3")
	pr.IncTemplateMatch("restaurant")
	pr.SetCatalogSize(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				found[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				found[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	if found["sitewright_slot_fallbacks_total"] != 2 {
		t.Errorf("Expected 2 slot fallbacks, got %v", found["sitewright_slot_fallbacks_total"])
	}
	if found["sitewright_catalog_templates"] != 4 {
		t.Errorf("Expected catalog gauge 4, got %v", found["sitewright_catalog_templates"])
	}
	if found["sitewright_run_outcomes_total"] != 1 {
		t.Errorf("Expected 1 run outcome, got %v", found["sitewright_run_outcomes_total"])
	}
}

func TestSlotFamily(t *testing.T) {
	tests := map[string]string{
		"testimonial_2":         "testimonial",
		"service_4_description": "service_description",
		"image_keywords_hero":   "image_keywords_hero",
		"headline":              "headline",
	}
	for in, want := range tests {
		if got := slotFamily(in); got != want {
			t.Errorf("slotFamily(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRunOutcome(OutcomeFailed)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `sitewright_run_outcomes_total{outcome="failed"} 1`) {
		t.Errorf("Expected run outcome series in output, got:\n%s", rec.Body.String())
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncRunOutcome(OutcomeDone)
	r.ObserveRunDuration(time.Second)

	var nilRec *PrometheusRecorder
	nilRec.IncSlotFallback("headline")
}
