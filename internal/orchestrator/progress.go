package orchestrator

import (
	"fmt"
	"sync"

	"github.com/hyperjump/sitewright/internal/models"
)

// ProgressSink receives progress events. Events for one run arrive in order
// and never concurrently.
type ProgressSink interface {
	Progress(event models.ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(event models.ProgressEvent)

// Progress calls f.
func (f ProgressFunc) Progress(event models.ProgressEvent) { f(event) }

type noopSink struct{}

func (noopSink) Progress(models.ProgressEvent) {}

// Stage progress anchors. Slot completions move the percentage between
// generatingStart and generatingEnd.
const (
	matchingPercent = 5
	generatingStart = 15
	generatingEnd   = 80
	mutatingPercent = 85
	donePercent     = 100
)

var transitions = map[models.Stage][]models.Stage{
	models.StageIdle:              {models.StageMatching, models.StageFailed},
	models.StageMatching:          {models.StageGeneratingContent, models.StageFailed},
	models.StageGeneratingContent: {models.StageMutating, models.StageFailed},
	models.StageMutating:          {models.StageDone, models.StageFailed},
}

// tracker owns the state of one run. Percent never decreases and stages only
// move forward.
type tracker struct {
	mu      sync.Mutex
	stage   models.Stage
	percent int
	sink    ProgressSink
}

func newTracker(sink ProgressSink) *tracker {
	if sink == nil {
		sink = noopSink{}
	}
	return &tracker{stage: models.StageIdle, sink: sink}
}

// advance moves to the next stage and emits an event.
func (t *tracker) advance(next models.Stage, percent int, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !allowed(t.stage, next) {
		return fmt.Errorf("invalid transition %s -> %s", t.stage, next)
	}
	t.stage = next
	t.emitLocked(percent, message)
	return nil
}

// report emits an event within the current stage. Events after a terminal
// stage are dropped.
func (t *tracker) report(percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stage.Terminal() {
		return
	}
	t.emitLocked(percent, message)
}

func (t *tracker) emitLocked(percent int, message string) {
	if percent < t.percent {
		percent = t.percent
	}
	if percent > donePercent {
		percent = donePercent
	}
	t.percent = percent
	t.sink.Progress(models.ProgressEvent{Stage: t.stage, Percent: percent, Message: message})
}

func (t *tracker) current() models.Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

func allowed(from, to models.Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
