package metrics

import (
	"net/http"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitewright"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	runDuration   prom.Histogram
	runOutcome    *prom.CounterVec
	slotFallbacks *prom.CounterVec
	matches       *prom.CounterVec
	catalogSize   prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual run stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total generation run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Generation runs by final outcome",
		}, []string{"outcome"}),
		slotFallbacks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "slot_fallbacks_total",
			Help:      "Content slots that fell back to their default",
		}, []string{"slot"}),
		matches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "template_matches_total",
			Help:      "Templates selected for generation runs",
		}, []string{"template"}),
		catalogSize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_templates",
			Help:      "Templates currently in the catalog",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.runOutcome, pr.slotFallbacks, pr.matches, pr.catalogSize)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

// IncSlotFallback counts by slot family, so "testimonial_2" and
// "testimonial_3" share a series.
func (p *PrometheusRecorder) IncSlotFallback(slot string) {
	if p == nil {
		return
	}
	p.slotFallbacks.WithLabelValues(slotFamily(slot)).Inc()
}

func (p *PrometheusRecorder) IncTemplateMatch(templateID string) {
	if p == nil {
		return
	}
	p.matches.WithLabelValues(templateID).Inc()
}

func (p *PrometheusRecorder) SetCatalogSize(n int) {
	if p == nil {
		return
	}
	p.catalogSize.Set(float64(n))
}

// slotFamily drops numeric segments: "service_2_title" -> "service_title".
func slotFamily(slot string) string {
	parts := strings.Split(slot, "_")
	out := parts[:0]
	for _, part := range parts {
		if strings.Trim(part, "0123456789") == "" && part != "" {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, "_")
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
