// Package mutate provides best-effort bulk edits over a document: literal text
// replacement, image-slot replacement, palette recoloring and font swaps.
// Every operation honours the document's Customizable flags and never fails;
// an unmatched target is a no-op.
package mutate

import (
	"strings"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/placeholder"
)

// Replacement is one literal find/replace pair.
type Replacement struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ReplaceText applies replacements in order to every text-bearing setting of
// the document's leaves and returns the number of settings changed. The
// text-bearing settings are placeholder.DefaultTextFields plus extraFields.
// Gated by Customizable.Content.
func ReplaceText(doc *document.Document, replacements []Replacement, extraFields ...string) int {
	if doc == nil || !doc.Customizable.Content || len(replacements) == 0 {
		return 0
	}
	fields := textFieldSet(extraFields)
	changed := 0
	document.Leaves(doc, func(el *document.Element) {
		for _, key := range el.Settings.Keys() {
			if !fields[key] {
				continue
			}
			v, _ := el.Settings.Get(key)
			if v.Kind != document.ValueText {
				continue
			}
			out := v.Text
			for _, r := range replacements {
				if r.Old == "" {
					continue
				}
				out = strings.ReplaceAll(out, r.Old, r.New)
			}
			if out != v.Text {
				el.Settings.Set(key, document.TextValue(out))
				changed++
			}
		}
	})
	return changed
}

func textFieldSet(extra []string) map[string]bool {
	set := make(map[string]bool, len(placeholder.DefaultTextFields)+len(extra))
	for _, f := range placeholder.DefaultTextFields {
		set[f] = true
	}
	for _, f := range extra {
		set[f] = true
	}
	return set
}
