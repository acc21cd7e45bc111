package placeholder

import (
	"sort"

	"github.com/hyperjump/sitewright/internal/document"
)

// Applied reports what ApplyToDocument changed.
type Applied struct {
	Fields    int      // settings whose rendered value differs from the original
	Variables []string // bound names consulted, sorted
}

// ApplyToDocument renders every text-bearing setting, link URL and image alt
// text of the document's leaves against env, in place. Documents that do not
// permit content customization are left untouched.
func (e *Engine) ApplyToDocument(doc *document.Document, env Env) Applied {
	if doc == nil || !doc.Customizable.Content {
		return Applied{}
	}
	used := make(map[string]struct{})
	fields := 0
	document.Leaves(doc, func(el *document.Element) {
		for _, key := range el.Settings.Keys() {
			v, _ := el.Settings.Get(key)
			if next, changed := e.renderValue(key, v, env, used); changed {
				el.Settings.Set(key, next)
				fields++
			}
		}
	})
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)
	return Applied{Fields: fields, Variables: names}
}

func (e *Engine) renderValue(key string, v document.Value, env Env, used map[string]struct{}) (document.Value, bool) {
	switch v.Kind {
	case document.ValueText:
		if !e.textFields[key] && !e.linkFields[key] {
			return v, false
		}
		out := e.RenderTraced(v.Text, env, used)
		if out == v.Text {
			return v, false
		}
		return document.TextValue(out), true
	case document.ValueLink:
		out := e.RenderTraced(v.Link.URL, env, used)
		if out == v.Link.URL {
			return v, false
		}
		next := v.Clone()
		next.Link.URL = out
		return next, true
	case document.ValueImage:
		out := e.RenderTraced(v.Image.Alt, env, used)
		if out == v.Image.Alt {
			return v, false
		}
		next := v.Clone()
		next.Image.Alt = out
		return next, true
	default:
		return v, false
	}
}

// DocumentReferences returns every placeholder name used in the text-bearing
// settings of doc, sorted and de-duplicated.
func (e *Engine) DocumentReferences(doc *document.Document) []string {
	seen := make(map[string]bool)
	document.Leaves(doc, func(el *document.Element) {
		el.Settings.Range(func(key string, v document.Value) bool {
			var text string
			switch {
			case v.Kind == document.ValueText && (e.textFields[key] || e.linkFields[key]):
				text = v.Text
			case v.Kind == document.ValueLink:
				text = v.Link.URL
			case v.Kind == document.ValueImage:
				text = v.Image.Alt
			default:
				return true
			}
			for _, name := range References(text) {
				seen[name] = true
			}
			return true
		})
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
