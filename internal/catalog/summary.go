package catalog

import (
	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/placeholder"
)

// Summary is the inventory view of one template.
type Summary struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Kind       document.DocumentKind `json:"kind"`
	Categories []string              `json:"categories"`
	Tags       []string              `json:"tags"`
	Variables  []string              `json:"variables"`
	Stats      document.Stats        `json:"stats"`
}

// Summarize builds the inventory view of doc. A nil engine uses the default
// text fields.
func Summarize(engine *placeholder.Engine, doc *document.Document) Summary {
	if engine == nil {
		engine = placeholder.New()
	}
	return Summary{
		ID:         doc.ID,
		Title:      doc.Title,
		Kind:       doc.Kind,
		Categories: orEmpty(doc.Categories),
		Tags:       orEmpty(doc.Tags),
		Variables:  orEmpty(engine.DocumentReferences(doc)),
		Stats:      document.ComputeStats(doc),
	}
}

// Summaries summarizes every template in catalog order.
func (c *Catalog) Summaries(engine *placeholder.Engine) []Summary {
	docs := c.snapshot()
	out := make([]Summary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Summarize(engine, doc))
	}
	return out
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
