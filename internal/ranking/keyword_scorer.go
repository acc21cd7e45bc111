package ranking

import "fmt"

// KeywordScorer turns full-text relevance into a bounded contribution.
type KeywordScorer struct {
	config *RankingConfig
}

// NewKeywordScorer creates a new KeywordScorer with the given config.
func NewKeywordScorer(config *RankingConfig) *KeywordScorer {
	return &KeywordScorer{config: config}
}

// Name returns the scorer name.
func (s *KeywordScorer) Name() string {
	return "keyword"
}

// Score scales the keyword score and caps it at MaxKeywordScore.
func (s *KeywordScorer) Score(ctx *ScoringContext) (float64, []string) {
	if ctx.KeywordScore <= 0 {
		return 0, nil
	}
	score := ctx.KeywordScore * s.config.KeywordScale
	if score > s.config.MaxKeywordScore {
		score = s.config.MaxKeywordScore
	}
	return score, []string{fmt.Sprintf("description relevance: %.1f", score)}
}
