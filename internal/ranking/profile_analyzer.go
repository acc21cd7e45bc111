package ranking

import (
	"strings"

	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/pkg/utils"
)

// AnalyzedProfile holds the normalized form of a business profile.
type AnalyzedProfile struct {
	// Original is the profile as given.
	Original *models.BusinessProfile
	// Category and Industry are normalized keys ("law_firm").
	Category string
	Industry string
	// Services are normalized service keys, in order.
	Services []string
	// Terms are the words of the description and services.
	Terms map[string]bool
	// ServiceCount is the number of services the site must represent.
	ServiceCount int
}

// ProfileAnalyzer normalizes profiles and resolves category aliases.
type ProfileAnalyzer struct {
	// group maps every alias and canonical key to its canonical key.
	group map[string]string
}

// NewProfileAnalyzer creates a ProfileAnalyzer over the given alias table.
func NewProfileAnalyzer(aliases map[string][]string) *ProfileAnalyzer {
	group := make(map[string]string)
	for canonical, names := range aliases {
		c := utils.NormalizeKey(canonical)
		group[c] = c
		for _, n := range names {
			if k := utils.NormalizeKey(n); k != "" {
				if _, taken := group[k]; !taken {
					group[k] = c
				}
			}
		}
	}
	return &ProfileAnalyzer{group: group}
}

// Analyze normalizes a profile. maxServices caps the service count.
func (pa *ProfileAnalyzer) Analyze(p *models.BusinessProfile, maxServices int) *AnalyzedProfile {
	ap := &AnalyzedProfile{
		Original: p,
		Terms:    make(map[string]bool),
	}
	if p == nil {
		return ap
	}
	ap.Category = utils.NormalizeKey(p.Category)
	ap.Industry = utils.NormalizeKey(p.Industry)
	for _, s := range p.Services {
		if k := utils.NormalizeKey(s); k != "" {
			ap.Services = append(ap.Services, k)
		}
	}
	ap.ServiceCount = len(ap.Services)
	if maxServices > 0 && ap.ServiceCount > maxServices {
		ap.ServiceCount = maxServices
	}
	text := p.Description + " " + strings.Join(p.Services, " ")
	for _, w := range utils.Tokenize(text, 3) {
		ap.Terms[w] = true
	}
	return ap
}

// Related reports whether two normalized keys belong to the same alias group.
// Equal keys are not considered related; callers test equality first.
func (pa *ProfileAnalyzer) Related(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	ga, okA := pa.group[a]
	gb, okB := pa.group[b]
	return okA && okB && ga == gb
}

// Mentions reports whether every word of key appears in the profile's terms
// or key is one of its services.
func (ap *AnalyzedProfile) Mentions(key string) bool {
	if key == "" {
		return false
	}
	for _, s := range ap.Services {
		if s == key {
			return true
		}
	}
	parts := strings.Split(key, "_")
	for _, part := range parts {
		if !ap.Terms[part] {
			return false
		}
	}
	return true
}
