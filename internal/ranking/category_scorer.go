package ranking

import (
	"fmt"

	"github.com/hyperjump/sitewright/pkg/utils"
)

// CategoryScorer scores overlap between template categories and the
// profile's category and industry.
type CategoryScorer struct {
	config   *RankingConfig
	analyzer *ProfileAnalyzer
}

// NewCategoryScorer creates a new CategoryScorer with the given config.
func NewCategoryScorer(config *RankingConfig, analyzer *ProfileAnalyzer) *CategoryScorer {
	return &CategoryScorer{config: config, analyzer: analyzer}
}

// Name returns the scorer name.
func (s *CategoryScorer) Name() string {
	return "category"
}

// Score adds one contribution per template category, strongest first:
// exact category, exact industry, then alias of either.
func (s *CategoryScorer) Score(ctx *ScoringContext) (float64, []string) {
	if ctx.Profile == nil || ctx.Document == nil {
		return 0, nil
	}
	p := ctx.Profile
	total := 0.0
	var reasons []string
	for _, raw := range ctx.Document.Categories {
		key := utils.NormalizeKey(raw)
		switch {
		case key == "":
		case key == p.Category:
			total += s.config.CategoryMatchScore
			reasons = append(reasons, fmt.Sprintf("category match: %s", raw))
		case key == p.Industry:
			total += s.config.IndustryMatchScore
			reasons = append(reasons, fmt.Sprintf("industry match: %s", raw))
		case s.analyzer.Related(key, p.Category):
			total += s.config.AliasMatchScore
			reasons = append(reasons, fmt.Sprintf("related category: %s ~ %s", raw, p.Original.Category))
		case s.analyzer.Related(key, p.Industry):
			total += s.config.AliasMatchScore
			reasons = append(reasons, fmt.Sprintf("related category: %s ~ %s", raw, p.Original.Industry))
		}
	}
	return total, reasons
}
