package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/mutate"
	"github.com/hyperjump/sitewright/internal/placeholder"
	"github.com/hyperjump/sitewright/internal/ranking"
)

var categories = []string{"restaurant", "law_firm", "dental", "gym", "salon", "cafe", "bakery", "plumber"}

// templatePayload builds a page with sections*widgets text widgets.
func templatePayload(id, category string, sections, widgets int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"id":%q,"title":%q,"categories":[%q],"tags":["landing"],"content":[`, id, id, category)
	for s := 0; s < sections; s++ {
		if s > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":"s%d","elType":"section","settings":{"background_color":"#112233"},"elements":[{"id":"c%d","elType":"column","elements":[`, s, s)
		for w := 0; w < widgets; w++ {
			if w > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"id":"w%d_%d","elType":"widget","widgetType":"text-editor","settings":{"editor":"{{HEADLINE}} for {{BUSINESS_NAME}}{{#IF_TAGLINE}}: {{TAGLINE}}{{/IF_TAGLINE}}","typography_font_family":"Roboto"}}`, s, w)
		}
		b.WriteString("]}]}")
	}
	b.WriteString("]}")
	return b.String()
}

func mustParse(b *testing.B, raw string) *document.Document {
	b.Helper()
	doc, err := document.Parse([]byte(raw))
	if err != nil {
		b.Fatalf("Parse: %v", err)
	}
	return doc
}

func BenchmarkParse(b *testing.B) {
	raw := []byte(templatePayload("bench", "restaurant", 20, 10))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := document.Parse(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	engine := placeholder.New()
	env := placeholder.Env{
		"HEADLINE":      placeholder.String("Fresh every day"),
		"BUSINESS_NAME": placeholder.String("Bistro Lua"),
		"TAGLINE":       placeholder.String("Since 1990"),
	}
	text := strings.Repeat("{{HEADLINE}} at {{BUSINESS_NAME}}{{#IF_TAGLINE}} - {{TAGLINE}}{{/IF_TAGLINE}} {{MISSING}}. ", 50)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Render(text, env)
	}
}

func BenchmarkApplyToDocument(b *testing.B) {
	raw := templatePayload("bench", "restaurant", 20, 10)
	engine := placeholder.New()
	env := placeholder.Env{
		"HEADLINE":      placeholder.String("Fresh every day"),
		"BUSINESS_NAME": placeholder.String("Bistro Lua"),
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		doc := mustParse(b, raw)
		b.StartTimer()
		engine.ApplyToDocument(doc, env)
	}
}

func BenchmarkMutations(b *testing.B) {
	raw := templatePayload("bench", "restaurant", 20, 10)
	palette := document.Palette{Primary: "#ff0000", Secondary: "#00ff00"}
	fonts := mutate.FontScheme{Heading: "Lora", Body: "Inter"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		doc := mustParse(b, raw)
		b.StartTimer()
		mutate.Recolor(doc, palette)
		mutate.ApplyFonts(doc, fonts)
		mutate.ReplaceText(doc, []mutate.Replacement{{Old: "for", New: "at"}})
	}
}

func BenchmarkMatchBest(b *testing.B) {
	docs := make([]*document.Document, 0, 500)
	for i := 0; i < 500; i++ {
		cat := categories[i%len(categories)]
		docs = append(docs, mustParse(b, templatePayload(fmt.Sprintf("%s-%d", cat, i), cat, 2, 3)))
	}
	ranker := ranking.NewRanker(ranking.DefaultRankingConfig())
	profile := &models.BusinessProfile{
		Name:        "Bistro Lua",
		Category:    "restaurant",
		Description: "Cozy bistro with seasonal food and catering",
		Services:    []string{"Lunch", "Dinner", "Catering"},
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ranker.MatchBest(ctx, docs, profile, ranking.MatchOptions{TopK: 5})
	}
}
