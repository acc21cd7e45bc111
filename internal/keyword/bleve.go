package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/pkg/utils"
)

var searchFields = []string{"title", "categories", "tags", "content"}

// BleveIndex implements TemplateIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func indexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so category words match exactly.
	textFieldMapping.Analyzer = standard.Name
	for _, f := range searchFields {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	docMapping.AddFieldMappingsAt("id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("template", docMapping)
	im.DefaultType = "template"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemIndex creates an in-memory index; the catalog is re-indexed on every start.
func NewMemIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes (or re-indexes) a template under its id.
func (b *BleveIndex) Index(ctx context.Context, doc *document.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("index: template without id")
	}
	return b.index.Index(doc.ID, newRecord(doc))
}

// Search runs a match query and returns up to limit results.
// When opts is nil or TitleBoost <= 1, a single match over all fields is used.
// Otherwise title and body queries run separately and merge with additive
// scoring and a term coverage penalty.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = utils.FoldAccents(query)
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	titleBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	if titleBoost <= 1.0 {
		return b.searchSingle(query, limit, fuzzyEnabled, fuzziness)
	}
	return b.searchWithBoosts(query, limit, titleBoost, fuzzyEnabled, fuzziness)
}

func (b *BleveIndex) searchSingle(query string, limit int, fuzzyEnabled bool, fuzziness int) ([]*Result, error) {
	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness, "")
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// searchWithBoosts scores = (title * titleBoost + body) * coverage^2, where
// coverage is the share of query terms a template matches.
func (b *BleveIndex) searchWithBoosts(query string, limit int, titleBoost float64, fuzzyEnabled bool, fuzziness int) ([]*Result, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	terms := tokenizeQuery(query)

	var titleQuery blevequery.Query
	bodyQueries := make([]blevequery.Query, 0, len(searchFields)-1)
	if fuzzyEnabled {
		titleQuery = buildFuzzyQuery(query, fuzziness, "title")
		for _, f := range searchFields[1:] {
			bodyQueries = append(bodyQueries, buildFuzzyQuery(query, fuzziness, f))
		}
	} else {
		tq := bleve.NewMatchQuery(query)
		tq.SetField("title")
		titleQuery = tq
		for _, f := range searchFields[1:] {
			q := bleve.NewMatchQuery(query)
			q.SetField(f)
			bodyQueries = append(bodyQueries, q)
		}
	}

	titleScores, err := b.scores(titleQuery, reqSize)
	if err != nil {
		return nil, fmt.Errorf("Bleve title search failed: %w", err)
	}
	bodyScores, err := b.scores(bleve.NewDisjunctionQuery(bodyQueries...), reqSize)
	if err != nil {
		return nil, fmt.Errorf("Bleve body search failed: %w", err)
	}

	coverage := make(map[string]int)
	if len(terms) > 1 {
		coverage = b.termCoverage(terms, reqSize, fuzzyEnabled, fuzziness)
	}

	type scored struct {
		id    string
		score float64
	}
	merged := make([]scored, 0, len(titleScores)+len(bodyScores))
	seen := make(map[string]bool)
	for _, m := range []map[string]float64{titleScores, bodyScores} {
		for id := range m {
			if seen[id] {
				continue
			}
			seen[id] = true
			score := titleScores[id]*titleBoost + bodyScores[id]
			if len(terms) > 1 {
				matched := coverage[id]
				if matched == 0 {
					matched = 1
				}
				c := float64(matched) / float64(len(terms))
				score *= c * c
			}
			merged = append(merged, scored{id: id, score: score})
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].id < merged[j].id
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	out := make([]*Result, len(merged))
	for i, s := range merged {
		out[i] = &Result{ID: s.id, Score: s.score}
	}
	return out, nil
}

func (b *BleveIndex) scores(q blevequery.Query, size int) (map[string]float64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.Search(req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(results.Hits))
	for _, hit := range results.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// termCoverage counts how many unique query terms each template matches.
func (b *BleveIndex) termCoverage(terms []string, reqSize int, fuzzyEnabled bool, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var q blevequery.Query
		if fuzzyEnabled {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			q = fq
		} else {
			q = bleve.NewMatchQuery(term)
		}
		hits, err := b.scores(q, reqSize)
		if err != nil {
			continue
		}
		for id := range hits {
			coverage[id]++
		}
	}
	return coverage
}

// Delete removes a template from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of templates in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

var _ TemplateIndex = (*BleveIndex)(nil)
