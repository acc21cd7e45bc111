package mutate

import (
	"testing"

	"github.com/hyperjump/sitewright/internal/document"
)

const landing = `{
  "id": "landing",
  "content": [
    {"id": "s1", "elType": "section", "settings": {"background_color": "#eeeeee"}, "elements": [
      {"id": "c1", "elType": "column", "elements": [
        {"id": "hero", "elType": "widget", "widgetType": "image",
         "settings": {"image": {"url": "https://cdn.example.com/uploads/hero-placeholder.jpg", "alt": "Placeholder hero", "id": 77}}},
        {"id": "team", "elType": "widget", "widgetType": "image",
         "settings": {"image": {"url": "https://cdn.example.com/uploads/team-placeholder.jpg", "alt": "Our team"}}},
        {"id": "title", "elType": "widget", "widgetType": "heading",
         "settings": {"title": "Acme Bakery", "title_color": "#111111", "typography_font_family": "Roboto", "css_id": "Acme"}},
        {"id": "body", "elType": "widget", "widgetType": "text-editor",
         "settings": {"editor": "Welcome to Acme Bakery", "text_color": "#333333", "background_color": "#ffffff",
                      "border_color": "#dddddd", "typography_font_family": "Roboto", "custom_tint": "#abcdef"}},
        {"id": "cta", "elType": "widget", "widgetType": "button",
         "settings": {"text": "Order", "button_background_color": "#0000ff", "hover_color": "#000088"}}
      ]}
    ]}
  ]
}`

func parse(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(landing))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func setting(t *testing.T, doc *document.Document, id, key string) document.Value {
	t.Helper()
	el, ok := document.FindByID(doc, id)
	if !ok {
		t.Fatalf("element %s not found", id)
	}
	v, _ := el.Settings.Get(key)
	return v
}

func serialized(t *testing.T, doc *document.Document) string {
	t.Helper()
	raw, err := document.Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	return string(raw)
}

func TestReplaceImages(t *testing.T) {
	doc := parse(t)
	n := ReplaceImages(doc, ImageMap(map[string]ImageReplacement{
		"hero-placeholder": {URL: "https://x/new.jpg", Alt: "Hero"},
	}))

	if n != 1 {
		t.Errorf("Expected 1 replacement, got %d", n)
	}
	v := setting(t, doc, "hero", "image")
	if v.Image.URL != "https://x/new.jpg" || v.Image.Alt != "Hero" {
		t.Errorf("Expected new hero image, got %+v", v.Image)
	}
	if len(v.Image.Extra) != 0 {
		t.Errorf("Expected stale media id dropped, got %+v", v.Image.Extra)
	}
	if v := setting(t, doc, "team", "image"); v.Image.URL != "https://cdn.example.com/uploads/team-placeholder.jpg" {
		t.Errorf("Expected team image untouched, got %s", v.Image.URL)
	}
}

func TestReplaceImages_KeepsAlt(t *testing.T) {
	doc := parse(t)
	ReplaceImages(doc, []ImageReplacement{{Key: "team-placeholder", URL: "https://x/team.jpg"}})
	v := setting(t, doc, "team", "image")
	if v.Image.URL != "https://x/team.jpg" || v.Image.Alt != "Our team" {
		t.Errorf("Expected url replaced and alt kept, got %+v", v.Image)
	}
}

func TestReplaceImages_FirstKeyWins(t *testing.T) {
	doc := parse(t)
	// Both keys match the hero URL; ImageMap orders them, so "hero" wins.
	ReplaceImages(doc, ImageMap(map[string]ImageReplacement{
		"placeholder": {URL: "https://x/generic.jpg"},
		"hero":        {URL: "https://x/hero.jpg"},
	}))
	if v := setting(t, doc, "hero", "image"); v.Image.URL != "https://x/hero.jpg" {
		t.Errorf("Expected first key to win, got %s", v.Image.URL)
	}
	if v := setting(t, doc, "team", "image"); v.Image.URL != "https://x/generic.jpg" {
		t.Errorf("Expected generic replacement for team, got %s", v.Image.URL)
	}
}

func TestReplaceImages_Disabled(t *testing.T) {
	doc := parse(t)
	doc.Customizable.Images = false
	before := serialized(t, doc)
	if n := ReplaceImages(doc, []ImageReplacement{{Key: "hero", URL: "https://x/new.jpg"}}); n != 0 {
		t.Errorf("Expected no replacements, got %d", n)
	}
	if serialized(t, doc) != before {
		t.Error("Expected document unchanged")
	}
}

func TestRecolor(t *testing.T) {
	doc := parse(t)
	palette := document.Palette{Primary: "#e74c3c", Text: "#000000", Background: "#fafafa"}

	n := Recolor(doc, palette)

	tests := []struct {
		id, key, want string
	}{
		{"title", "title_color", "#000000"},
		{"body", "text_color", "#000000"},
		{"body", "background_color", "#fafafa"},
		{"cta", "button_background_color", "#e74c3c"},
		// secondary and accent are undefined in the palette
		{"body", "border_color", "#dddddd"},
		{"cta", "hover_color", "#000088"},
		// unmapped
		{"body", "custom_tint", "#abcdef"},
		// containers are not recolored
		{"s1", "background_color", "#eeeeee"},
	}
	for _, tt := range tests {
		if v := setting(t, doc, tt.id, tt.key); v.Text != tt.want {
			t.Errorf("%s.%s: expected %s, got %s", tt.id, tt.key, tt.want, v.Text)
		}
	}
	if n != 4 {
		t.Errorf("Expected 4 settings recolored, got %d", n)
	}
	if doc.ColorScheme == nil || doc.ColorScheme.Primary != "#e74c3c" {
		t.Errorf("Expected palette recorded on document, got %+v", doc.ColorScheme)
	}
}

func TestRecolor_Disabled(t *testing.T) {
	doc := parse(t)
	doc.Customizable.Colors = false
	before := serialized(t, doc)

	n := Recolor(doc, document.Palette{Primary: "#e74c3c", Secondary: "#2ecc71", Accent: "#f1c40f", Text: "#000", Background: "#fff"})

	if n != 0 {
		t.Errorf("Expected 0 changes, got %d", n)
	}
	if after := serialized(t, doc); after != before {
		t.Errorf("Expected byte-identical document\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestReplaceText(t *testing.T) {
	doc := parse(t)
	n := ReplaceText(doc, []Replacement{
		{Old: "Acme", New: "Bistrô"},
		{Old: "Bakery", New: "do João"},
		{Old: "", New: "ignored"},
	})
	if n != 2 {
		t.Errorf("Expected 2 settings changed, got %d", n)
	}
	if v := setting(t, doc, "title", "title"); v.Text != "Bistrô do João" {
		t.Errorf("Expected replaced title, got %q", v.Text)
	}
	if v := setting(t, doc, "body", "editor"); v.Text != "Welcome to Bistrô do João" {
		t.Errorf("Expected replaced editor text, got %q", v.Text)
	}
	if v := setting(t, doc, "title", "css_id"); v.Text != "Acme" {
		t.Errorf("Expected non-text field untouched, got %q", v.Text)
	}

	doc = parse(t)
	doc.Customizable.Content = false
	if n := ReplaceText(doc, []Replacement{{Old: "Acme", New: "x"}}); n != 0 {
		t.Errorf("Expected no changes with content disabled, got %d", n)
	}
}

func TestReplaceText_ExtraFields(t *testing.T) {
	doc := parse(t)
	if n := ReplaceText(doc, []Replacement{{Old: "Acme", New: "Bistrô"}}, "css_id"); n != 3 {
		t.Errorf("Expected 3 settings changed, got %d", n)
	}
	if v := setting(t, doc, "title", "css_id"); v.Text != "Bistrô" {
		t.Errorf("Expected extra field replaced, got %q", v.Text)
	}
}

func TestApplyFonts(t *testing.T) {
	doc := parse(t)
	n := ApplyFonts(doc, FontScheme{Heading: "Playfair Display", Body: "Lato"})
	if n != 2 {
		t.Errorf("Expected 2 fonts changed, got %d", n)
	}
	if v := setting(t, doc, "title", "typography_font_family"); v.Text != "Playfair Display" {
		t.Errorf("Expected heading font, got %q", v.Text)
	}
	if v := setting(t, doc, "body", "typography_font_family"); v.Text != "Lato" {
		t.Errorf("Expected body font, got %q", v.Text)
	}

	doc = parse(t)
	doc.Customizable.Fonts = false
	if n := ApplyFonts(doc, FontScheme{Heading: "A", Body: "B"}); n != 0 {
		t.Errorf("Expected no changes with fonts disabled, got %d", n)
	}
}
