package mutate

import (
	"strings"

	"github.com/hyperjump/sitewright/internal/document"
)

// FontScheme names the families for headings and body text.
type FontScheme struct {
	Heading string `json:"heading,omitempty" yaml:"heading"`
	Body    string `json:"body,omitempty" yaml:"body"`
}

var headingWidgets = map[string]bool{"heading": true, "animated-headline": true}

// ApplyFonts sets every *font_family setting on leaves: heading widgets and
// title_* keys get the heading family, everything else the body family.
// Gated by Customizable.Fonts. Returns the number of settings changed.
func ApplyFonts(doc *document.Document, fonts FontScheme) int {
	if doc == nil || !doc.Customizable.Fonts {
		return 0
	}
	changed := 0
	document.Leaves(doc, func(el *document.Element) {
		for _, key := range el.Settings.Keys() {
			if !strings.HasSuffix(key, "font_family") {
				continue
			}
			family := fonts.Body
			if headingWidgets[el.WidgetKind] || strings.HasPrefix(key, "title_") || strings.HasPrefix(key, "heading_") {
				family = fonts.Heading
			}
			if family == "" {
				continue
			}
			if v, _ := el.Settings.Get(key); v.IsTextual() && v.Text == family {
				continue
			}
			el.Settings.Set(key, document.TextValue(family))
			changed++
		}
	})
	return changed
}
