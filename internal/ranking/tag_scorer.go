package ranking

import (
	"fmt"

	"github.com/hyperjump/sitewright/pkg/utils"
)

// TagScorer scores template tags against the profile.
type TagScorer struct {
	config   *RankingConfig
	analyzer *ProfileAnalyzer
}

// NewTagScorer creates a new TagScorer with the given config.
func NewTagScorer(config *RankingConfig, analyzer *ProfileAnalyzer) *TagScorer {
	return &TagScorer{config: config, analyzer: analyzer}
}

// Name returns the scorer name.
func (s *TagScorer) Name() string {
	return "tag"
}

// Score gives TagMatchScore to tags naming the profile's category or industry
// (or an alias), and TermMatchScore to tags its description or services mention.
func (s *TagScorer) Score(ctx *ScoringContext) (float64, []string) {
	if ctx.Profile == nil || ctx.Document == nil {
		return 0, nil
	}
	p := ctx.Profile
	total := 0.0
	var reasons []string
	for _, raw := range ctx.Document.Tags {
		key := utils.NormalizeKey(raw)
		if key == "" {
			continue
		}
		switch {
		case key == p.Category || key == p.Industry ||
			s.analyzer.Related(key, p.Category) || s.analyzer.Related(key, p.Industry):
			total += s.config.TagMatchScore
			reasons = append(reasons, fmt.Sprintf("tag matches category: %s", raw))
		case p.Mentions(key):
			total += s.config.TermMatchScore
			reasons = append(reasons, fmt.Sprintf("tag matches profile: %s", raw))
		}
	}
	return total, reasons
}
