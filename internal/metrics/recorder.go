// Package metrics records generation run observability.
package metrics

import "time"

// Outcome labels a finished run.
type Outcome string

const (
	OutcomeDone     Outcome = "done"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeNotFound Outcome = "not_found"
)

// Recorder defines hooks for run, stage and slot metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome Outcome)
	IncSlotFallback(slot string)
	IncTemplateMatch(templateID string)
	SetCatalogSize(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(Outcome)                      {}
func (NoopRecorder) IncSlotFallback(string)                     {}
func (NoopRecorder) IncTemplateMatch(string)                    {}
func (NoopRecorder) SetCatalogSize(int)                         {}

var _ Recorder = NoopRecorder{}
