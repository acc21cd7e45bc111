package document

// Predicate tests one element during a search.
type Predicate func(el *Element) bool

// WalkFunc is called for each element in pre-order with its depth (roots are 1).
// Returning false skips the element's subtree.
type WalkFunc func(el *Element, depth int) bool

// Walk visits every element of doc depth-first in pre-order (document order).
func Walk(doc *Document, fn WalkFunc) {
	if doc == nil {
		return
	}
	walkElements(doc.Content, 1, fn)
}

func walkElements(elements []*Element, depth int, fn WalkFunc) {
	for _, el := range elements {
		if el == nil {
			continue
		}
		if fn(el, depth) {
			walkElements(el.Children, depth+1, fn)
		}
	}
}

// Leaves calls fn for each leaf element in document order.
func Leaves(doc *Document, fn func(el *Element)) {
	Walk(doc, func(el *Element, _ int) bool {
		if el.Kind == KindLeaf {
			fn(el)
		}
		return true
	})
}

// Find returns every element matching pred, in document order. The returned
// elements are the document's own nodes, not copies.
func Find(doc *Document, pred Predicate) []*Element {
	var out []*Element
	Walk(doc, func(el *Element, _ int) bool {
		if pred == nil || pred(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

// FindByID returns the element with the given id.
func FindByID(doc *Document, id string) (*Element, bool) {
	var found *Element
	Walk(doc, func(el *Element, _ int) bool {
		if found != nil {
			return false
		}
		if el.ID == id {
			found = el
			return false
		}
		return true
	})
	return found, found != nil
}

// UpdateByID merges partial into the settings of the element with the given
// id, overwriting existing keys and appending new ones. It reports whether the
// id was found; a missing id is a no-op.
func UpdateByID(doc *Document, id string, partial *Settings) bool {
	el, ok := FindByID(doc, id)
	if !ok {
		return false
	}
	if el.Settings == nil {
		el.Settings = NewSettings()
	}
	el.Settings.Merge(partial)
	return true
}

// ByKind matches elements of the given kind.
func ByKind(kind Kind) Predicate {
	return func(el *Element) bool { return el.Kind == kind }
}

// ByWidgetKind matches leaves of the given widget kind.
func ByWidgetKind(widget string) Predicate {
	return func(el *Element) bool { return el.Kind == KindLeaf && el.WidgetKind == widget }
}

// HasSetting matches elements that carry the named setting.
func HasSetting(key string) Predicate {
	return func(el *Element) bool { return el.Settings.Has(key) }
}

// SettingEquals matches elements whose textual setting key equals value.
func SettingEquals(key, value string) Predicate {
	return func(el *Element) bool {
		v, ok := el.Settings.Get(key)
		return ok && v.IsTextual() && v.Text == value
	}
}

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(el *Element) bool {
		for _, p := range preds {
			if !p(el) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(el *Element) bool {
		for _, p := range preds {
			if p(el) {
				return true
			}
		}
		return false
	}
}
