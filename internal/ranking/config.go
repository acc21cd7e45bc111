package ranking

// RankingConfig holds all configuration for the template matcher.
type RankingConfig struct {
	// Weights for different scoring components
	CategoryWeight float64 `yaml:"category_weight"` // default: 1.0
	TagWeight      float64 `yaml:"tag_weight"`      // default: 1.0
	KeywordWeight  float64 `yaml:"keyword_weight"`  // default: 1.0
	CapacityWeight float64 `yaml:"capacity_weight"` // default: 1.0

	// Category scoring values
	CategoryMatchScore float64 `yaml:"category_match_score"` // default: 50
	IndustryMatchScore float64 `yaml:"industry_match_score"` // default: 35
	AliasMatchScore    float64 `yaml:"alias_match_score"`    // default: 20

	// Tag scoring values
	TagMatchScore  float64 `yaml:"tag_match_score"`  // default: 10
	TermMatchScore float64 `yaml:"term_match_score"` // default: 5

	// Keyword relevance (Bleve score * scale, capped)
	KeywordScale    float64 `yaml:"keyword_scale"`     // default: 10
	MaxKeywordScore float64 `yaml:"max_keyword_score"` // default: 20

	// Service capacity
	MissingServicePenalty float64 `yaml:"missing_service_penalty"` // default: 15
	MaxServices           int     `yaml:"max_services"`            // default: 6

	// Document kind multipliers, applied to positive scores only
	KindMultiplierEnabled bool    `yaml:"kind_multiplier_enabled"` // default: true
	PageMultiplier        float64 `yaml:"page_multiplier"`         // default: 1.1
	SectionMultiplier     float64 `yaml:"section_multiplier"`      // default: 0.9
	WidgetMultiplier      float64 `yaml:"widget_multiplier"`       // default: 0.8

	// Aliases groups related category names under a canonical one.
	Aliases map[string][]string `yaml:"aliases"`
}

// DefaultAliases relate business categories to template categories.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"restaurant":   {"food", "cafe", "bistro", "bar", "bakery", "catering", "dining", "pizzeria"},
		"law_firm":     {"legal", "lawyer", "attorney", "law", "notary"},
		"healthcare":   {"medical", "clinic", "dental", "dentist", "doctor", "health"},
		"fitness":      {"gym", "yoga", "pilates", "personal_trainer", "sports"},
		"beauty":       {"salon", "spa", "barber", "hair", "cosmetics"},
		"real_estate":  {"realty", "property", "realtor"},
		"technology":   {"software", "saas", "it_services", "startup"},
		"education":    {"school", "tutoring", "courses", "academy"},
		"construction": {"contractor", "renovation", "plumbing", "electrician"},
		"consulting":   {"agency", "business_services", "marketing"},
		"ecommerce":    {"shop", "store", "retail"},
		"photography":  {"photographer", "studio", "wedding"},
	}
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		CategoryWeight: 1.0,
		TagWeight:      1.0,
		KeywordWeight:  1.0,
		CapacityWeight: 1.0,

		CategoryMatchScore: 50,
		IndustryMatchScore: 35,
		AliasMatchScore:    20,

		TagMatchScore:  10,
		TermMatchScore: 5,

		KeywordScale:    10,
		MaxKeywordScore: 20,

		MissingServicePenalty: 15,
		MaxServices:           6,

		KindMultiplierEnabled: true,
		PageMultiplier:        1.1,
		SectionMultiplier:     0.9,
		WidgetMultiplier:      0.8,

		Aliases: DefaultAliases(),
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	if c.CategoryWeight == 0 {
		c.CategoryWeight = defaults.CategoryWeight
	}
	if c.TagWeight == 0 {
		c.TagWeight = defaults.TagWeight
	}
	if c.KeywordWeight == 0 {
		c.KeywordWeight = defaults.KeywordWeight
	}
	if c.CapacityWeight == 0 {
		c.CapacityWeight = defaults.CapacityWeight
	}

	if c.CategoryMatchScore == 0 {
		c.CategoryMatchScore = defaults.CategoryMatchScore
	}
	if c.IndustryMatchScore == 0 {
		c.IndustryMatchScore = defaults.IndustryMatchScore
	}
	if c.AliasMatchScore == 0 {
		c.AliasMatchScore = defaults.AliasMatchScore
	}

	if c.TagMatchScore == 0 {
		c.TagMatchScore = defaults.TagMatchScore
	}
	if c.TermMatchScore == 0 {
		c.TermMatchScore = defaults.TermMatchScore
	}

	if c.KeywordScale == 0 {
		c.KeywordScale = defaults.KeywordScale
	}
	if c.MaxKeywordScore == 0 {
		c.MaxKeywordScore = defaults.MaxKeywordScore
	}

	if c.MissingServicePenalty == 0 {
		c.MissingServicePenalty = defaults.MissingServicePenalty
	}
	if c.MaxServices == 0 {
		c.MaxServices = defaults.MaxServices
	}

	// Kind multipliers: only fill in if all are zero (likely not configured)
	if c.PageMultiplier == 0 && c.SectionMultiplier == 0 && c.WidgetMultiplier == 0 {
		c.KindMultiplierEnabled = defaults.KindMultiplierEnabled
		c.PageMultiplier = defaults.PageMultiplier
		c.SectionMultiplier = defaults.SectionMultiplier
		c.WidgetMultiplier = defaults.WidgetMultiplier
	}

	if c.Aliases == nil {
		c.Aliases = defaults.Aliases
	}
}
