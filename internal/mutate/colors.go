package mutate

import "github.com/hyperjump/sitewright/internal/document"

// ColorRoles maps setting names to the palette role they take.
var ColorRoles = map[string]string{
	"color":                         "text",
	"text_color":                    "text",
	"heading_color":                 "text",
	"title_color":                   "text",
	"description_color":             "text",
	"background_color":              "background",
	"bg_color":                      "background",
	"button_background_color":       "primary",
	"link_color":                    "primary",
	"icon_color":                    "primary",
	"primary_color":                 "primary",
	"border_color":                  "secondary",
	"secondary_color":               "secondary",
	"accent_color":                  "accent",
	"hover_color":                   "accent",
	"button_background_hover_color": "accent",
}

// Recolor assigns palette colors to every leaf setting named in ColorRoles
// whose role is defined in palette. Unmapped settings are left untouched.
// Gated by Customizable.Colors. Returns the number of settings changed.
func Recolor(doc *document.Document, palette document.Palette) int {
	if doc == nil || !doc.Customizable.Colors {
		return 0
	}
	changed := 0
	document.Leaves(doc, func(el *document.Element) {
		for _, key := range el.Settings.Keys() {
			role, ok := ColorRoles[key]
			if !ok {
				continue
			}
			color := palette.Role(role)
			if color == "" {
				continue
			}
			if v, _ := el.Settings.Get(key); v.Kind == document.ValueColor && v.Text == color {
				continue
			}
			el.Settings.Set(key, document.ColorValue(color))
			changed++
		}
	})
	if changed > 0 {
		p := palette
		doc.ColorScheme = &p
	}
	return changed
}
