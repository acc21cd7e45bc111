package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/sitewright/internal/catalog"
	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/generation"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/mutate"
	"github.com/hyperjump/sitewright/internal/storage"
)

const (
	restaurantJSON = `{"id":"restaurant","title":"Restaurant","categories":["restaurant"],"tags":["menu"],"content":[
	  {"id":"hero","elType":"section","settings":{"background_color":"#ffffff"},"elements":[{"id":"col","elType":"column","elements":[
	    {"id":"h1","elType":"widget","widgetType":"heading","settings":{"title":"{{HEADLINE}}","title_color":"#111111"}},
	    {"id":"img","elType":"widget","widgetType":"image","settings":{"image":{"url":"https://cdn.example.com/hero-placeholder.jpg","alt":"{{BUSINESS_NAME}}"}}},
	    {"id":"quotes","elType":"widget","widgetType":"text-editor","settings":{"editor":"{{#EACH_TESTIMONIALS}}<p>{{TESTIMONIAL_TEXT}} ({{TESTIMONIAL_AUTHOR}})</p>{{/EACH_TESTIMONIALS}}"}},
	    {"id":"cta","elType":"widget","widgetType":"button","settings":{"text":"{{CTA_PRIMARY}}","button_background_color":"#000000"}}]}]}]}`
	lawJSON = `{"id":"law","title":"Law Firm","categories":["law_firm"],"tags":["consultation"],"content":[
	  {"id":"s","elType":"section","elements":[{"id":"w","elType":"widget","widgetType":"heading","settings":{"title":"{{BUSINESS_NAME}} Attorneys"}}]}]}`
)

func bistro() models.BusinessProfile {
	return models.BusinessProfile{
		Name:        "Bistrô do João",
		Category:    "restaurant",
		Description: "Family bistro serving Portuguese food",
	}
}

func newCatalog(t *testing.T, templates ...string) *catalog.Catalog {
	t.Helper()
	c := catalog.New(nil)
	for _, raw := range templates {
		doc, err := document.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if err := c.Add(context.Background(), doc); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return c
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (s *recordingSink) Progress(e models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) stages() []models.Stage {
	var out []models.Stage
	for _, e := range s.events {
		if len(out) == 0 || out[len(out)-1] != e.Stage {
			out = append(out, e.Stage)
		}
	}
	return out
}

func serialize(t *testing.T, doc *document.Document) string {
	t.Helper()
	raw, err := document.Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return string(raw)
}

func TestGenerate_RestaurantScenario(t *testing.T) {
	cat := newCatalog(t, lawJSON, restaurantJSON)
	o := New(cat, generation.NewPipeline(generation.NewStubGenerator()))
	sink := &recordingSink{}

	req := Request{
		Profile: bistro(),
		Preferences: Preferences{
			Images:  map[string]mutate.ImageReplacement{"hero-placeholder": {URL: "https://x/new.jpg"}},
			Palette: &document.Palette{Primary: "#c0392b", Text: "#222222"},
		},
	}
	res := o.Generate(context.Background(), req, sink)

	if res.Err != nil {
		t.Fatalf("Expected success, got %v", res.Err)
	}
	if res.Status != models.StageDone || res.Report.Status != models.StageDone {
		t.Errorf("Expected status done, got %s / %s", res.Status, res.Report.Status)
	}
	if res.Report.MatchedTemplateID != "restaurant" {
		t.Errorf("Expected restaurant template, got %s", res.Report.MatchedTemplateID)
	}
	if res.Report.RunID == "" {
		t.Error("Expected a run id")
	}
	if len(res.Report.FallbacksUsed) != 0 {
		t.Errorf("Expected no fallbacks, got %v", res.Report.FallbacksUsed)
	}

	h1, _ := document.FindByID(res.Document, "h1")
	if v, _ := h1.Settings.Get("title"); v.Text != "Welcome to a place you will love" {
		t.Errorf("Expected generated headline, got %q", v.Text)
	}
	if v, _ := h1.Settings.Get("title_color"); v.Text != "#222222" {
		t.Errorf("Expected recolored title, got %q", v.Text)
	}
	img, _ := document.FindByID(res.Document, "img")
	if v, _ := img.Settings.Get("image"); v.Image.URL != "https://x/new.jpg" || v.Image.Alt != "Bistrô do João" {
		t.Errorf("Expected replaced image keeping rendered alt, got %+v", v.Image)
	}

	out := serialize(t, res.Document)
	if strings.Contains(out, "{{") {
		t.Errorf("Expected no placeholder artifacts, got %s", out)
	}

	wantVars := []string{"BUSINESS_NAME", "CTA_PRIMARY", "HEADLINE", "TESTIMONIALS", "TESTIMONIAL_AUTHOR", "TESTIMONIAL_TEXT"}
	if strings.Join(res.Report.VariablesUsed, ",") != strings.Join(wantVars, ",") {
		t.Errorf("Expected variables %v, got %v", wantVars, res.Report.VariablesUsed)
	}

	original, _ := cat.Get("restaurant")
	if !strings.Contains(serialize(t, original), "{{HEADLINE}}") {
		t.Error("Expected catalog template to stay pristine")
	}

	wantStages := []models.Stage{models.StageMatching, models.StageGeneratingContent, models.StageMutating, models.StageDone}
	got := sink.stages()
	if len(got) != len(wantStages) {
		t.Fatalf("Expected stages %v, got %v", wantStages, got)
	}
	for i := range wantStages {
		if got[i] != wantStages[i] {
			t.Errorf("Expected stage %s at %d, got %s", wantStages[i], i, got[i])
		}
	}
	last := -1
	for _, e := range sink.events {
		if e.Percent < last {
			t.Fatalf("Expected non-decreasing percent, got %d after %d", e.Percent, last)
		}
		last = e.Percent
	}
	if last != 100 {
		t.Errorf("Expected final percent 100, got %d", last)
	}
}

func TestGenerate_TestimonialFailureFallsBack(t *testing.T) {
	stub := generation.NewStubGenerator()
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(strings.SplitN(prompt, "\n", 2)[0], "testimonial") {
			return "", errors.New("model refused")
		}
		return stub.Generate(ctx, prompt)
	})
	o := New(newCatalog(t, restaurantJSON), generation.NewPipeline(gen))

	res := o.Generate(context.Background(), Request{Profile: bistro()}, nil)
	if res.Status != models.StageDone {
		t.Fatalf("Expected done, got %s (%v)", res.Status, res.Err)
	}
	found := false
	for _, f := range res.Report.FallbacksUsed {
		if strings.HasPrefix(f, "testimonial") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a testimonial fallback, got %v", res.Report.FallbacksUsed)
	}

	quotes, _ := document.FindByID(res.Document, "quotes")
	v, _ := quotes.Settings.Get("editor")
	if !strings.Contains(v.Text, "Excellent service and a friendly team. Highly recommended.") {
		t.Errorf("Expected default testimonial text, got %q", v.Text)
	}
	if strings.Contains(v.Text, "{{") || strings.Contains(v.Text, "()") {
		t.Errorf("Expected no placeholder artifacts, got %q", v.Text)
	}
}

func TestGenerate_LogsFallbackError(t *testing.T) {
	stub := generation.NewStubGenerator()
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(strings.SplitN(prompt, "\n", 2)[0], "tagline") {
			return "", errors.New("model refused")
		}
		return stub.Generate(ctx, prompt)
	})
	core, logs := observer.New(zap.WarnLevel)
	o := New(newCatalog(t, restaurantJSON), generation.NewPipeline(gen), WithLogger(zap.New(core)))

	res := o.Generate(context.Background(), Request{Profile: bistro()}, nil)
	if res.Err != nil {
		t.Fatalf("Generate: %v", res.Err)
	}
	entries := logs.FilterMessage("content used defaults").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one fallback warning, got %d", len(entries))
	}
	if msg, _ := entries[0].ContextMap()["error"].(string); !strings.Contains(msg, "model refused") {
		t.Errorf("Expected the slot error in the warning, got %q", msg)
	}
}

func TestGenerate_ReplacementsUseExtraTextFields(t *testing.T) {
	tpl := `{"id":"restaurant","title":"Restaurant","categories":["restaurant"],"content":[
	  {"id":"w","elType":"widget","widgetType":"price-list","settings":{"price_list":"Acme specials"}}]}`
	o := New(newCatalog(t, tpl), generation.NewPipeline(generation.NewStubGenerator()), WithTextFields("price_list"))

	res := o.Generate(context.Background(), Request{
		Profile:     bistro(),
		Preferences: Preferences{Replacements: []mutate.Replacement{{Old: "Acme", New: "Bistrô"}}},
	}, nil)
	if res.Err != nil {
		t.Fatalf("Generate: %v", res.Err)
	}
	w, _ := document.FindByID(res.Document, "w")
	if v, _ := w.Settings.Get("price_list"); v.Text != "Bistrô specials" {
		t.Errorf("Expected replacement in extra field, got %q", v.Text)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	gen := generation.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := New(newCatalog(t, restaurantJSON), generation.NewPipeline(gen), WithTimeout(20*time.Millisecond))
	sink := &recordingSink{}

	res := o.Generate(context.Background(), Request{Profile: bistro()}, sink)
	if !errors.Is(res.Err, models.ErrGenerationTimeout) {
		t.Fatalf("Expected ErrGenerationTimeout, got %v", res.Err)
	}
	if res.Status != models.StageFailed || res.Document != nil {
		t.Errorf("Expected failed run without document, got %s, %v", res.Status, res.Document != nil)
	}
	if res.Report.Error == "" {
		t.Error("Expected error in report")
	}
	if last := sink.events[len(sink.events)-1]; last.Stage != models.StageFailed {
		t.Errorf("Expected last event failed, got %s", last.Stage)
	}
}

func TestGenerate_TimeoutWithBlockingGenerator(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	gen := generation.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		return "late", nil
	})
	o := New(newCatalog(t, restaurantJSON), generation.NewPipeline(gen, generation.WithMaxConcurrency(1)),
		WithTimeout(50*time.Millisecond))

	start := time.Now()
	res := o.Generate(context.Background(), Request{Profile: bistro()}, nil)
	if !errors.Is(res.Err, models.ErrGenerationTimeout) {
		t.Fatalf("Expected ErrGenerationTimeout, got %v", res.Err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected the run to fail within its budget, took %s", elapsed)
	}
	if res.Document != nil {
		t.Error("Expected no document after timeout")
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(newCatalog(t, restaurantJSON), generation.NewPipeline(generation.NewStubGenerator()))

	res := o.Generate(ctx, Request{Profile: bistro()}, nil)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", res.Err)
	}
	if errors.Is(res.Err, models.ErrGenerationTimeout) {
		t.Error("Expected cancellation not to be reported as timeout")
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name      string
		templates []string
		profile   models.BusinessProfile
		prefs     Preferences
		wantErr   error
	}{
		{"empty catalog", nil, bistro(), Preferences{}, models.ErrTemplateNotFound},
		{"unknown template id", []string{restaurantJSON}, bistro(), Preferences{TemplateID: "nope"}, models.ErrTemplateNotFound},
		{"no template of kind", []string{restaurantJSON}, bistro(), Preferences{Kind: document.DocumentWidget}, models.ErrTemplateNotFound},
		{"missing capability", []string{restaurantJSON}, bistro(), Preferences{Capabilities: []string{"gutenberg"}}, models.ErrTemplateNotFound},
		{"invalid profile", []string{restaurantJSON}, models.BusinessProfile{Name: "x"}, Preferences{}, models.ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(newCatalog(t, tt.templates...), generation.NewPipeline(generation.NewStubGenerator()))
			res := o.Generate(context.Background(), Request{Profile: tt.profile, Preferences: tt.prefs}, nil)
			if !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, res.Err)
			}
			if res.Status != models.StageFailed {
				t.Errorf("Expected failed, got %s", res.Status)
			}
		})
	}
}

func TestGenerate_ExplicitTemplate(t *testing.T) {
	o := New(newCatalog(t, restaurantJSON, lawJSON), generation.NewPipeline(generation.NewStubGenerator()))
	res := o.Generate(context.Background(), Request{Profile: bistro(), Preferences: Preferences{TemplateID: "law"}}, nil)
	if res.Err != nil {
		t.Fatalf("Generate: %v", res.Err)
	}
	if res.Report.MatchedTemplateID != "law" {
		t.Errorf("Expected law template, got %s", res.Report.MatchedTemplateID)
	}
	w, _ := document.FindByID(res.Document, "w")
	if v, _ := w.Settings.Get("title"); v.Text != "Bistrô do João Attorneys" {
		t.Errorf("Expected rendered title, got %q", v.Text)
	}
}

func TestGenerate_KeepUnresolved(t *testing.T) {
	tpl := `{"id":"t","categories":["restaurant"],"content":[{"id":"s","elType":"section","elements":[
	  {"id":"w","elType":"widget","widgetType":"heading","settings":{"title":"{{HEADLINE}} {{UNKNOWN}}"}}]}]}`
	o := New(newCatalog(t, tpl), generation.NewPipeline(generation.NewStubGenerator()), WithKeepUnresolved(true))
	res := o.Generate(context.Background(), Request{Profile: bistro()}, nil)
	w, _ := document.FindByID(res.Document, "w")
	if v, _ := w.Settings.Get("title"); v.Text != "Welcome to a place you will love {{UNKNOWN}}" {
		t.Errorf("Expected unresolved reference kept, got %q", v.Text)
	}
}

func TestGenerate_StoresRuns(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ids := []string{"run-1", "run-2"}
	next := 0
	o := New(newCatalog(t, restaurantJSON), generation.NewPipeline(generation.NewStubGenerator()),
		WithStore(store),
		WithRunIDGenerator(func() string { id := ids[next]; next++; return id }),
	)

	ctx := context.Background()
	_ = o.Generate(ctx, Request{Profile: bistro()}, nil)
	_ = o.Generate(ctx, Request{Profile: models.BusinessProfile{}}, nil)

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Report.Status != models.StageDone || run.Report.MatchedTemplateID != "restaurant" {
		t.Errorf("Expected stored done run, got %+v", run.Report)
	}
	if run.Profile.Name != "Bistrô do João" {
		t.Errorf("Expected stored profile, got %q", run.Profile.Name)
	}
	failed, err := store.GetRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if failed.Report.Status != models.StageFailed || failed.Report.Error == "" {
		t.Errorf("Expected stored failed run, got %+v", failed.Report)
	}
}

func TestTracker(t *testing.T) {
	sink := &recordingSink{}
	tr := newTracker(sink)

	if err := tr.advance(models.StageGeneratingContent, 10, ""); err == nil {
		t.Error("Expected error skipping matching")
	}
	_ = tr.advance(models.StageMatching, 10, "")
	tr.report(5, "lower percent")
	_ = tr.advance(models.StageGeneratingContent, 50, "")
	_ = tr.advance(models.StageFailed, 0, "boom")
	tr.report(90, "after terminal")
	if err := tr.advance(models.StageDone, 100, ""); err == nil {
		t.Error("Expected error leaving a terminal stage")
	}

	want := []int{10, 10, 50, 50}
	if len(sink.events) != len(want) {
		t.Fatalf("Expected %d events, got %+v", len(want), sink.events)
	}
	for i, p := range want {
		if sink.events[i].Percent != p {
			t.Errorf("Event %d: expected percent %d, got %d", i, p, sink.events[i].Percent)
		}
	}
	if sink.events[3].Stage != models.StageFailed {
		t.Errorf("Expected failed last, got %s", sink.events[3].Stage)
	}
}
