package generation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/pkg/utils"
)

const (
	DefaultMaxConcurrency = 8
	DefaultServiceCount   = 3
	MaxServiceCount       = 6
)

var errEmptyGeneration = errors.New("empty generation")

// bulletPrefix matches list markers such as "- ", "* ", "• " or "2) ".
var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// SlotResult is the outcome of one slot.
type SlotResult struct {
	Slot     string
	Text     string
	Fallback bool
	Err      error
}

// SlotCallback observes slot completions. done counts completed slots out of
// total. It may be called from several goroutines at once.
type SlotCallback func(result SlotResult, done, total int)

// Pipeline fills every content slot for a business profile.
type Pipeline struct {
	generator       TextGenerator
	logger          *zap.Logger
	policy          *bluemonday.Policy
	maxConcurrency  int
	defaultServices int
	maxServices     int
	onSlotDone      SlotCallback
	now             func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for slot fallbacks.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = utils.OrNop(logger) }
}

// WithMaxConcurrency bounds the number of slots generated at once.
func WithMaxConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxConcurrency = n
		}
	}
}

// WithServiceCounts sets the service count used when a profile lists none and
// the upper bound on generated services.
func WithServiceCounts(def, maxCount int) Option {
	return func(p *Pipeline) {
		if def > 0 {
			p.defaultServices = def
		}
		if maxCount > 0 {
			p.maxServices = maxCount
		}
	}
}

// WithSlotCallback registers a callback for slot completions.
func WithSlotCallback(fn SlotCallback) Option {
	return func(p *Pipeline) { p.onSlotDone = fn }
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline around a text generator.
func NewPipeline(generator TextGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator:       generator,
		logger:          zap.NewNop(),
		policy:          bluemonday.StrictPolicy(),
		maxConcurrency:  DefaultMaxConcurrency,
		defaultServices: DefaultServiceCount,
		maxServices:     MaxServiceCount,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.defaultServices > p.maxServices {
		p.defaultServices = p.maxServices
	}
	return p
}

// With returns a copy of the pipeline with extra options applied.
func (p *Pipeline) With(opts ...Option) *Pipeline {
	cp := *p
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// ServiceCount is the number of services generated for a profile: its own
// service count, or the default when it lists none, capped at the maximum.
func (p *Pipeline) ServiceCount(profile *models.BusinessProfile) int {
	n := len(profile.Services)
	if n == 0 {
		n = p.defaultServices
	}
	if n > p.maxServices {
		n = p.maxServices
	}
	return n
}

// Slots lists the slots a run for profile will generate.
func (p *Pipeline) Slots(profile *models.BusinessProfile) []Slot {
	return declareSlots(profile, p.ServiceCount(profile))
}

// Run generates every slot concurrently and assembles the content. A failing
// slot falls back to its default and is recorded in Content.Fallbacks. Run
// fails as soon as ctx is done: no further slot is started, and slots still in
// flight finish in the background with their results discarded.
func (p *Pipeline) Run(ctx context.Context, profile models.BusinessProfile) (*Content, error) {
	slots := p.Slots(&profile)
	results := make([]SlotResult, len(slots))
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i, slot := range slots {
			if gctx.Err() != nil {
				break
			}
			// Go blocks while the limit is reached, so cancellation is
			// checked again once the slot is allowed to start.
			i, slot := i, slot
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				res := p.runSlot(gctx, slot, &profile)
				results[i] = res
				n := int(completed.Add(1))
				if p.onSlotDone != nil && gctx.Err() == nil {
					p.onSlotDone(res, n, len(slots))
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return assemble(&profile, p.ServiceCount(&profile), results, p.now()), nil
}

func (p *Pipeline) runSlot(ctx context.Context, slot Slot, profile *models.BusinessProfile) SlotResult {
	text, err := p.generator.Generate(ctx, slot.Prompt(profile))
	if err == nil {
		text = p.clean(text, slot)
		if text == "" {
			err = errEmptyGeneration
		}
	}
	if err != nil {
		serr := &models.SlotError{Slot: slot.Name, Err: err}
		if ctx.Err() == nil {
			p.logger.Warn("slot generation failed, using default",
				zap.String("slot", slot.Name),
				zap.Error(err),
			)
		}
		return SlotResult{Slot: slot.Name, Text: slot.Default, Fallback: true, Err: serr}
	}
	return SlotResult{Slot: slot.Name, Text: text}
}

// clean strips markup and trims the generation to the slot's word bound.
func (p *Pipeline) clean(text string, slot Slot) string {
	text = html.UnescapeString(p.policy.Sanitize(text))
	if !slot.Lines {
		return strings.Trim(utils.TruncateWords(text, slot.MaxWords), `"`)
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = bulletPrefix.ReplaceAllString(line, "")
		line = utils.TruncateWords(line, slot.MaxWords)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Service is one generated service entry.
type Service struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Testimonial is one generated testimonial.
type Testimonial struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// ImageKeywords are comma separated search keywords per page area.
type ImageKeywords struct {
	Hero     string `json:"hero"`
	About    string `json:"about"`
	Services string `json:"services"`
	Team     string `json:"team"`
}

// Content is the assembled output of one run.
type Content struct {
	Headline      string        `json:"headline"`
	Tagline       string        `json:"tagline"`
	Description   string        `json:"description"`
	About         string        `json:"about"`
	Features      []string      `json:"features"`
	Services      []Service     `json:"services"`
	Testimonials  []Testimonial `json:"testimonials"`
	CTAPrimary    string        `json:"cta_primary"`
	CTASecondary  string        `json:"cta_secondary"`
	ImageKeywords ImageKeywords `json:"image_keywords"`
	// Fallbacks names the slots that used their default, in slot order.
	Fallbacks   []string  `json:"fallbacks"`
	Errors      []error   `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

func assemble(profile *models.BusinessProfile, serviceCount int, results []SlotResult, now time.Time) *Content {
	values := make(map[string]string, len(results))
	c := &Content{Fallbacks: []string{}, GeneratedAt: now}
	for _, r := range results {
		values[r.Slot] = r.Text
		if r.Fallback {
			c.Fallbacks = append(c.Fallbacks, r.Slot)
			c.Errors = append(c.Errors, r.Err)
		}
	}

	c.Headline = values[SlotHeadline]
	c.Tagline = values[SlotTagline]
	c.Description = values[SlotDescription]
	c.About = values[SlotAbout]
	c.CTAPrimary = values[SlotCTAPrimary]
	c.CTASecondary = values[SlotCTASecondary]

	c.Features = []string{}
	for _, f := range strings.Split(values[SlotFeatures], "\n") {
		if f = strings.TrimSpace(f); f != "" && len(c.Features) < MaxFeatures {
			c.Features = append(c.Features, f)
		}
	}

	c.Services = make([]Service, 0, serviceCount)
	for i := 1; i <= serviceCount; i++ {
		title, ok := values[serviceSlot(i, "title")]
		if !ok && i <= len(profile.Services) {
			title = profile.Services[i-1]
		}
		c.Services = append(c.Services, Service{
			Title:       title,
			Description: values[serviceSlot(i, "description")],
		})
	}

	c.Testimonials = make([]Testimonial, 0, TestimonialCount)
	for i := 1; i <= TestimonialCount; i++ {
		c.Testimonials = append(c.Testimonials, Testimonial{
			Text:   values[testimonialSlot(i)],
			Author: defaultAuthors[i-1],
		})
	}

	c.ImageKeywords = ImageKeywords{
		Hero:     values[imageSlot("hero")],
		About:    values[imageSlot("about")],
		Services: values[imageSlot("services")],
		Team:     values[imageSlot("team")],
	}
	return c
}

// FallbackError joins the slot errors of a run, or returns nil.
func (c *Content) FallbackError() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%d slots fell back to defaults: %w", len(c.Errors), errors.Join(c.Errors...))
}
