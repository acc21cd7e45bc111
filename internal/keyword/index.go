// Package keyword provides full-text relevance of templates against a free-text
// business description.
package keyword

import (
	"context"
	"strings"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/placeholder"
	"github.com/hyperjump/sitewright/pkg/utils"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the title field.
	// Values > 1 make title matches rank higher (e.g. 3.0). Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2).
	Fuzziness int
}

// TemplateIndex defines keyword search operations over templates.
type TemplateIndex interface {
	Index(ctx context.Context, doc *document.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of templates in the index.
	DocCount() (uint64, error)
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// record is the indexed shape of a template.
type record struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Categories string `json:"categories"`
	Tags       string `json:"tags"`
	Content    string `json:"content"`
}

func newRecord(doc *document.Document) record {
	var parts []string
	document.Leaves(doc, func(el *document.Element) {
		el.Settings.Range(func(_ string, v document.Value) bool {
			if v.Kind == document.ValueText && v.Text != "" {
				parts = append(parts, stripTags(v.Text))
			}
			return true
		})
	})
	return record{
		ID:         doc.ID,
		Title:      utils.FoldAccents(doc.Title),
		Categories: utils.FoldAccents(joinKeys(doc.Categories)),
		Tags:       utils.FoldAccents(joinKeys(doc.Tags)),
		Content:    utils.FoldAccents(strings.Join(parts, " ")),
	}
}

// joinKeys turns "law_firm" into "law firm" so each word is a term.
func joinKeys(keys []string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.ReplaceAll(utils.NormalizeKey(k), "_", " ")
	}
	return strings.Join(out, " ")
}

// stripTags removes placeholder markers so their names are not indexed.
func stripTags(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	for _, name := range placeholder.References(s) {
		for _, tag := range []string{"{{" + name + "}}", "{{#IF_" + name + "}}", "{{/IF_" + name + "}}", "{{#EACH_" + name + "}}", "{{/EACH_" + name + "}}"} {
			s = strings.ReplaceAll(s, tag, " ")
		}
	}
	return s
}
