package mutate

import (
	"sort"
	"strings"

	"github.com/hyperjump/sitewright/internal/document"
)

// ImageReplacement swaps any image whose URL contains Key.
type ImageReplacement struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ImageMap builds replacements from a map, ordered by key so that the first
// matching key per field is deterministic.
func ImageMap(m map[string]ImageReplacement) []ImageReplacement {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ImageReplacement, 0, len(keys))
	for _, k := range keys {
		r := m[k]
		r.Key = k
		out = append(out, r)
	}
	return out
}

// ReplaceImages replaces every image reference whose current URL contains a
// replacement key. The first matching key wins per field; the original alt
// text is kept when the replacement has none. Extra keys of the reference
// (such as a media library id) are dropped because they describe the old image.
// Gated by Customizable.Images. Returns the number of references replaced.
func ReplaceImages(doc *document.Document, replacements []ImageReplacement) int {
	if doc == nil || !doc.Customizable.Images || len(replacements) == 0 {
		return 0
	}
	changed := 0
	document.Walk(doc, func(el *document.Element, _ int) bool {
		for _, key := range el.Settings.Keys() {
			v, _ := el.Settings.Get(key)
			if v.Kind != document.ValueImage || v.Image == nil {
				continue
			}
			for _, r := range replacements {
				if r.Key == "" || !strings.Contains(v.Image.URL, r.Key) {
					continue
				}
				alt := r.Alt
				if alt == "" {
					alt = v.Image.Alt
				}
				el.Settings.Set(key, document.ImageValue(r.URL, alt))
				changed++
				break
			}
		}
		return true
	})
	return changed
}
