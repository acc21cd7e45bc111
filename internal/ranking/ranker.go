package ranking

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/keyword"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/placeholder"
)

type weightedScorer struct {
	scorer Scorer
	weight float64
}

// Ranker combines all scorers and multipliers to rank templates.
type Ranker struct {
	config      *RankingConfig
	analyzer    *ProfileAnalyzer
	scorers     []weightedScorer
	multipliers []Multiplier
	capacity    *CapacityScorer
	index       keyword.TemplateIndex
	searchOpts  *keyword.SearchOptions
	logger      *zap.Logger
}

// NewRanker creates a new Ranker with the given configuration.
func NewRanker(config *RankingConfig) *Ranker {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()

	analyzer := NewProfileAnalyzer(config.Aliases)
	capacity := NewCapacityScorer(config, placeholder.New())
	return &Ranker{
		config:   config,
		analyzer: analyzer,
		scorers: []weightedScorer{
			{NewCategoryScorer(config, analyzer), config.CategoryWeight},
			{NewTagScorer(config, analyzer), config.TagWeight},
			{NewKeywordScorer(config), config.KeywordWeight},
			{capacity, config.CapacityWeight},
		},
		multipliers: DefaultMultipliers(config),
		capacity:    capacity,
		searchOpts:  &keyword.SearchOptions{TitleBoost: 2},
		logger:      zap.NewNop(),
	}
}

// WithKeywordIndex enables description relevance through a keyword index.
func (r *Ranker) WithKeywordIndex(idx keyword.TemplateIndex) *Ranker {
	r.index = idx
	return r
}

// WithTextFields adds setting names whose placeholders count toward a
// template's service capacity, matching the fields rendered at generation.
func (r *Ranker) WithTextFields(fields ...string) *Ranker {
	r.capacity.engine = placeholder.New(placeholder.WithTextFields(fields...))
	return r
}

// WithMultipliers sets custom multipliers.
func (r *Ranker) WithMultipliers(multipliers []Multiplier) *Ranker {
	r.multipliers = multipliers
	return r
}

// WithLogger sets the logger used for degraded keyword lookups.
func (r *Ranker) WithLogger(logger *zap.Logger) *Ranker {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// GetConfig returns the ranking configuration.
func (r *Ranker) GetConfig() *RankingConfig {
	return r.config
}

// Score scores one template without keyword relevance.
func (r *Ranker) Score(doc *document.Document, profile *models.BusinessProfile) *MatchResult {
	ap := r.analyzer.Analyze(profile, r.config.MaxServices)
	return r.score(&ScoringContext{Profile: ap, Document: doc})
}

func (r *Ranker) score(ctx *ScoringContext) *MatchResult {
	breakdown := NewScoreBreakdown()
	var reasons []string

	// Score = sum(W_i * S_i)
	score := 0.0
	for _, ws := range r.scorers {
		s, why := ws.scorer.Score(ctx)
		if s == 0 && len(why) == 0 {
			continue
		}
		weighted := ws.weight * s
		breakdown.Components[ws.scorer.Name()] = weighted
		score += weighted
		reasons = append(reasons, why...)
	}

	for _, m := range r.multipliers {
		prev := score
		var why string
		score, why = m.Multiply(ctx, score)
		if prev != 0 {
			breakdown.Multipliers[m.Name()] = score / prev
		} else {
			breakdown.Multipliers[m.Name()] = 1.0
		}
		if why != "" {
			reasons = append(reasons, why)
		}
	}

	breakdown.FinalScore = score
	if reasons == nil {
		reasons = []string{}
	}
	return &MatchResult{
		Document:  ctx.Document,
		Score:     score,
		Reasons:   reasons,
		Breakdown: breakdown,
	}
}

// MatchBest scores every template and returns the best first. Equal scores
// keep the order of docs, so results are reproducible. An empty input yields
// an empty result.
func (r *Ranker) MatchBest(ctx context.Context, docs []*document.Document, profile *models.BusinessProfile, opts MatchOptions) []*MatchResult {
	ap := r.analyzer.Analyze(profile, r.config.MaxServices)
	candidates := filterCandidates(docs, opts)
	keywordScores := r.keywordScores(ctx, profile, len(docs))

	results := make([]*MatchResult, 0, len(candidates))
	for _, doc := range candidates {
		results = append(results, r.score(&ScoringContext{
			Profile:      ap,
			Document:     doc,
			KeywordScore: keywordScores[doc.ID],
		}))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return TopN(results, opts.TopK)
}

func filterCandidates(docs []*document.Document, opts MatchOptions) []*document.Document {
	allowed := make(map[string]bool, len(opts.Capabilities))
	for _, c := range opts.Capabilities {
		allowed[strings.ToLower(c)] = true
	}
	out := make([]*document.Document, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if opts.Kind != "" && doc.Kind != opts.Kind {
			continue
		}
		if len(allowed) > 0 && !satisfies(doc.RequiredCapabilities, allowed) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

func satisfies(required []string, allowed map[string]bool) bool {
	for _, c := range required {
		if !allowed[strings.ToLower(c)] {
			return false
		}
	}
	return true
}

// keywordScores queries the keyword index with the profile's description and
// services. Failures degrade to no keyword relevance.
func (r *Ranker) keywordScores(ctx context.Context, profile *models.BusinessProfile, limit int) map[string]float64 {
	if r.index == nil || profile == nil || limit == 0 {
		return nil
	}
	query := strings.TrimSpace(profile.Description + " " + strings.Join(profile.Services, " "))
	if query == "" {
		return nil
	}
	hits, err := r.index.Search(ctx, query, limit, r.searchOpts)
	if err != nil {
		r.logger.Warn("keyword relevance unavailable", zap.Error(err))
		return nil
	}
	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		out[h.ID] = h.Score
	}
	return out
}

// TopN returns the top N results; n <= 0 returns all.
func TopN(results []*MatchResult, n int) []*MatchResult {
	if n <= 0 || n >= len(results) {
		return results
	}
	return results[:n]
}
