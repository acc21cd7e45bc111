// Package ranking scores page templates against a business profile and
// explains every contribution.
package ranking

import (
	"github.com/hyperjump/sitewright/internal/document"
)

// ScoringContext provides all the context needed for scoring one template.
type ScoringContext struct {
	// Profile is the analyzed business profile.
	Profile *AnalyzedProfile
	// Document is the template being scored.
	Document *document.Document
	// KeywordScore is the full-text relevance of the profile description to
	// the template; zero when no keyword index is configured.
	KeywordScore float64
}

// Scorer is the interface for all additive scoring components.
type Scorer interface {
	// Score returns the contribution and a reason for each factor, in evaluation order.
	Score(ctx *ScoringContext) (float64, []string)
	// Name returns the name of the scorer for debugging/logging.
	Name() string
}

// Multiplier is the interface for score multipliers.
type Multiplier interface {
	// Multiply applies a multiplier to the base score and may return a reason.
	Multiply(ctx *ScoringContext, baseScore float64) (float64, string)
	// Name returns the name of the multiplier for debugging/logging.
	Name() string
}

// ScoreBreakdown provides detailed scoring information for debugging.
type ScoreBreakdown struct {
	// FinalScore is the computed final score.
	FinalScore float64 `json:"final_score"`
	// Components holds the weighted contribution of each scorer.
	Components map[string]float64 `json:"components"`
	// Multipliers holds the applied multiplier values.
	Multipliers map[string]float64 `json:"multipliers"`
}

// NewScoreBreakdown creates a new ScoreBreakdown instance.
func NewScoreBreakdown() *ScoreBreakdown {
	return &ScoreBreakdown{
		Components:  make(map[string]float64),
		Multipliers: make(map[string]float64),
	}
}

// MatchResult is one scored template. Produced fresh per call.
type MatchResult struct {
	Document  *document.Document
	Score     float64
	Reasons   []string
	Breakdown *ScoreBreakdown
}

// MatchOptions narrows and limits MatchBest.
type MatchOptions struct {
	// TopK limits the number of results; zero or negative returns all.
	TopK int
	// Capabilities, when non-empty, excludes templates requiring anything else.
	Capabilities []string
	// Kind, when set, excludes templates of other document kinds.
	Kind document.DocumentKind
}
