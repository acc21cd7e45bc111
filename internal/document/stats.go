package document

// Stats summarizes a document for QA and telemetry.
type Stats struct {
	TotalElements      int            `json:"total_elements"`
	CountsByKind       map[string]int `json:"counts_by_kind"`
	CountsByWidgetKind map[string]int `json:"counts_by_widget_kind"`
	TextElementCount   int            `json:"text_element_count"`
	ImageElementCount  int            `json:"image_element_count"`
	MaxDepth           int            `json:"max_depth"`
}

// ComputeStats walks doc once and counts its elements.
// A leaf counts as a text element when it carries a non-empty text setting,
// and as an image element when it carries an image reference.
func ComputeStats(doc *Document) Stats {
	st := Stats{
		CountsByKind:       make(map[string]int),
		CountsByWidgetKind: make(map[string]int),
	}
	Walk(doc, func(el *Element, depth int) bool {
		st.TotalElements++
		st.CountsByKind[el.Kind.String()]++
		if depth > st.MaxDepth {
			st.MaxDepth = depth
		}
		if el.Kind != KindLeaf {
			return true
		}
		st.CountsByWidgetKind[el.WidgetKind]++
		hasText, hasImage := false, false
		el.Settings.Range(func(_ string, v Value) bool {
			switch v.Kind {
			case ValueText:
				if v.Text != "" {
					hasText = true
				}
			case ValueImage:
				hasImage = true
			}
			return true
		})
		if hasText {
			st.TextElementCount++
		}
		if hasImage {
			st.ImageElementCount++
		}
		return true
	})
	return st
}
