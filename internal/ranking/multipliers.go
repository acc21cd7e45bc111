package ranking

import (
	"fmt"

	"github.com/hyperjump/sitewright/internal/document"
)

// KindMultiplier prefers full pages over sections and widgets.
type KindMultiplier struct {
	config *RankingConfig
}

// NewKindMultiplier creates a new KindMultiplier.
func NewKindMultiplier(config *RankingConfig) *KindMultiplier {
	return &KindMultiplier{config: config}
}

// Name returns the multiplier name.
func (m *KindMultiplier) Name() string {
	return "kind"
}

// Multiply scales positive scores by the document kind's multiplier.
func (m *KindMultiplier) Multiply(ctx *ScoringContext, baseScore float64) (float64, string) {
	if !m.config.KindMultiplierEnabled || baseScore <= 0 || ctx.Document == nil {
		return baseScore, ""
	}
	factor := 1.0
	switch ctx.Document.Kind {
	case document.DocumentPage:
		factor = m.config.PageMultiplier
	case document.DocumentSection:
		factor = m.config.SectionMultiplier
	case document.DocumentWidget:
		factor = m.config.WidgetMultiplier
	}
	if factor == 1.0 || factor == 0 {
		return baseScore, ""
	}
	if factor > 1 {
		return baseScore * factor, fmt.Sprintf("full %s template", ctx.Document.Kind)
	}
	return baseScore * factor, fmt.Sprintf("partial %s template", ctx.Document.Kind)
}

// DefaultMultipliers returns the default set of multipliers.
func DefaultMultipliers(config *RankingConfig) []Multiplier {
	return []Multiplier{
		NewKindMultiplier(config),
	}
}
