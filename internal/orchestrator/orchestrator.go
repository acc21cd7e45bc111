// Package orchestrator runs one personalization: match a template, generate
// its content, then fill and restyle a private copy of it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/sitewright/internal/catalog"
	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/generation"
	"github.com/hyperjump/sitewright/internal/metrics"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/mutate"
	"github.com/hyperjump/sitewright/internal/placeholder"
	"github.com/hyperjump/sitewright/internal/ranking"
	"github.com/hyperjump/sitewright/internal/storage"
)

// DefaultTimeout bounds the content generation stage.
const DefaultTimeout = 30 * time.Second

// Preferences are optional per-run customizations.
type Preferences struct {
	// TemplateID skips matching and uses the given template.
	TemplateID   string                             `json:"template_id,omitempty"`
	Kind         document.DocumentKind              `json:"kind,omitempty"`
	Capabilities []string                           `json:"capabilities,omitempty"`
	Palette      *document.Palette                  `json:"palette,omitempty"`
	Fonts        *mutate.FontScheme                 `json:"fonts,omitempty"`
	Images       map[string]mutate.ImageReplacement `json:"images,omitempty"`
	Replacements []mutate.Replacement               `json:"replacements,omitempty"`
}

// Request is the input of one run.
type Request struct {
	Profile     models.BusinessProfile `json:"profile"`
	Preferences Preferences            `json:"preferences"`
}

// Result is the outcome of one run. Document is set only when Status is done.
type Result struct {
	Status   models.Stage            `json:"status"`
	Document *document.Document      `json:"document,omitempty"`
	Match    *ranking.MatchResult    `json:"-"`
	Content  *generation.Content     `json:"content,omitempty"`
	Report   models.GenerationReport `json:"report"`
	Err      error                   `json:"-"`
}

// Orchestrator runs generation requests against a catalog.
type Orchestrator struct {
	catalog        *catalog.Catalog
	pipeline       *generation.Pipeline
	store          storage.Storage
	recorder       metrics.Recorder
	logger         *zap.Logger
	timeout        time.Duration
	keepUnresolved bool
	textFields     []string
	newRunID       func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore persists a report of every finished run.
func WithStore(s storage.Storage) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTimeout sets the content generation budget.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithKeepUnresolved leaves unbound placeholders verbatim in the output.
func WithKeepUnresolved(keep bool) Option {
	return func(o *Orchestrator) { o.keepUnresolved = keep }
}

// WithTextFields extends the setting names rendered as text.
func WithTextFields(fields ...string) Option {
	return func(o *Orchestrator) { o.textFields = append(o.textFields, fields...) }
}

// WithRunIDGenerator overrides run id generation.
func WithRunIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newRunID = gen }
}

// New creates an orchestrator.
func New(cat *catalog.Catalog, pipeline *generation.Pipeline, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:  cat,
		pipeline: pipeline,
		recorder: metrics.NoopRecorder{},
		logger:   zap.NewNop(),
		timeout:  DefaultTimeout,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate runs Idle -> Matching -> GeneratingContent -> Mutating -> Done,
// or Failed from any stage. Progress goes to sink, which may be nil. The
// returned Result is never nil; Err is set when Status is failed.
func (o *Orchestrator) Generate(ctx context.Context, req Request, sink ProgressSink) *Result {
	start := time.Now()
	r := &run{
		o:       o,
		tracker: newTracker(sink),
		report: models.GenerationReport{
			RunID:         o.newRunID(),
			Status:        models.StageIdle,
			VariablesUsed: []string{},
			FallbacksUsed: []string{},
		},
		profile: req.Profile.Copy(),
	}
	logger := o.logger.With(zap.String("run_id", r.report.RunID))

	res := r.execute(ctx, req.Preferences)
	res.Report.ElapsedMs = time.Since(start).Milliseconds()
	o.recorder.ObserveRunDuration(time.Since(start))
	o.recorder.IncRunOutcome(outcome(res.Err))
	o.save(ctx, r.profile, res.Report, logger)

	if res.Err != nil {
		logger.Warn("generation run failed",
			zap.Error(res.Err),
			zap.Int64("elapsed_ms", res.Report.ElapsedMs),
		)
	} else {
		logger.Info("generation run completed",
			zap.String("template_id", res.Report.MatchedTemplateID),
			zap.Int("fallbacks", len(res.Report.FallbacksUsed)),
			zap.Int64("elapsed_ms", res.Report.ElapsedMs),
		)
	}
	return res
}

type run struct {
	o       *Orchestrator
	tracker *tracker
	report  models.GenerationReport
	profile models.BusinessProfile
	stageAt time.Time
}

func (r *run) enter(stage models.Stage, percent int, message string) {
	if !r.stageAt.IsZero() {
		r.o.recorder.ObserveStageDuration(string(r.tracker.current()), time.Since(r.stageAt))
	}
	r.stageAt = time.Now()
	if err := r.tracker.advance(stage, percent, message); err != nil {
		r.o.logger.DPanic("invalid stage transition", zap.Error(err))
	}
	r.report.Status = stage
	r.o.logger.Debug("run stage", zap.String("run_id", r.report.RunID), zap.String("stage", string(stage)))
}

func (r *run) fail(err error) *Result {
	r.enter(models.StageFailed, 0, err.Error())
	r.report.Error = err.Error()
	return &Result{Status: models.StageFailed, Report: r.report, Err: err}
}

func (r *run) execute(ctx context.Context, prefs Preferences) *Result {
	if err := r.profile.Validate(); err != nil {
		return r.fail(err)
	}

	r.enter(models.StageMatching, matchingPercent, "matching templates")
	match, err := r.match(ctx, prefs)
	if err != nil {
		return r.fail(err)
	}
	r.report.MatchedTemplateID = match.Document.ID
	r.o.recorder.IncTemplateMatch(match.Document.ID)

	r.enter(models.StageGeneratingContent, generatingStart, "generating content")
	content, err := r.generate(ctx)
	if err != nil {
		return r.fail(err)
	}
	r.report.FallbacksUsed = content.Fallbacks
	if ferr := content.FallbackError(); ferr != nil {
		r.o.logger.Warn("content used defaults",
			zap.String("run_id", r.report.RunID),
			zap.Error(ferr),
		)
	}
	for _, slot := range content.Fallbacks {
		r.o.recorder.IncSlotFallback(slot)
	}

	r.enter(models.StageMutating, mutatingPercent, "personalizing template")
	doc, variables := r.mutate(match.Document, content, prefs)
	r.report.VariablesUsed = variables

	r.enter(models.StageDone, donePercent, "done")
	return &Result{
		Status:   models.StageDone,
		Document: doc,
		Match:    match,
		Content:  content,
		Report:   r.report,
	}
}

func (r *run) match(ctx context.Context, prefs Preferences) (*ranking.MatchResult, error) {
	if prefs.TemplateID != "" {
		doc, err := r.o.catalog.Get(prefs.TemplateID)
		if err != nil {
			return nil, err
		}
		res := r.o.catalog.Ranker().Score(doc, &r.profile)
		return res, nil
	}
	results := r.o.catalog.MatchBest(ctx, &r.profile, ranking.MatchOptions{
		TopK:         1,
		Kind:         prefs.Kind,
		Capabilities: prefs.Capabilities,
	})
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no template fits %q", models.ErrTemplateNotFound, r.profile.Category)
	}
	best := results[0]
	r.tracker.report(matchingPercent, fmt.Sprintf("matched %s (score %.1f)", best.Document.ID, best.Score))
	return best, nil
}

func (r *run) generate(ctx context.Context) (*generation.Content, error) {
	genCtx, cancel := context.WithTimeout(ctx, r.o.timeout)
	defer cancel()

	pipeline := r.o.pipeline.With(generation.WithSlotCallback(func(res generation.SlotResult, done, total int) {
		percent := generatingStart + (generatingEnd-generatingStart)*done/total
		msg := "generated " + res.Slot
		if res.Fallback {
			msg = "used default for " + res.Slot
		}
		r.tracker.report(percent, msg)
	}))

	content, err := pipeline.Run(genCtx, r.profile)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", models.ErrGenerationTimeout, r.o.timeout)
	}
	return nil, fmt.Errorf("generation cancelled: %w", err)
}

// mutate fills and restyles a private copy of the template.
func (r *run) mutate(tpl *document.Document, content *generation.Content, prefs Preferences) (*document.Document, []string) {
	doc := document.Clone(tpl)

	engine := placeholder.New(
		placeholder.KeepUnresolved(r.o.keepUnresolved),
		placeholder.WithTextFields(r.o.textFields...),
	)
	env := generation.BuildEnvironment(&r.profile, content)
	r.o.logger.Debug("variable environment built",
		zap.String("run_id", r.report.RunID),
		zap.Strings("variables", env.Names()),
	)
	applied := engine.ApplyToDocument(doc, env)

	if len(prefs.Replacements) > 0 {
		mutate.ReplaceText(doc, prefs.Replacements, r.o.textFields...)
	}
	if len(prefs.Images) > 0 {
		mutate.ReplaceImages(doc, mutate.ImageMap(prefs.Images))
	}
	if prefs.Palette != nil {
		mutate.Recolor(doc, *prefs.Palette)
	}
	if prefs.Fonts != nil {
		mutate.ApplyFonts(doc, *prefs.Fonts)
	}

	variables := applied.Variables
	if variables == nil {
		variables = []string{}
	}
	sort.Strings(variables)
	return doc, variables
}

func (o *Orchestrator) save(ctx context.Context, profile models.BusinessProfile, report models.GenerationReport, logger *zap.Logger) {
	if o.store == nil {
		return
	}
	// Failed and cancelled runs are recorded too.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.store.SaveRun(saveCtx, &storage.Run{Report: report, Profile: profile, CreatedAt: time.Now().UTC()}); err != nil {
		logger.Warn("failed to store run", zap.Error(err))
	}
}

func outcome(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeDone
	case errors.Is(err, models.ErrGenerationTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, models.ErrTemplateNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeFailed
	}
}
