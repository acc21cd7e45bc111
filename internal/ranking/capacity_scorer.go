package ranking

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/placeholder"
)

// Unbounded is the capacity of a template that iterates over services.
const Unbounded = -1

var serviceSlot = regexp.MustCompile(`^SERVICE_(\d+)_(TITLE|DESCRIPTION)$`)

// ServiceCapacity returns how many services a template can represent: the
// highest SERVICE_<n>_* placeholder, or Unbounded when it loops over SERVICES.
func ServiceCapacity(engine *placeholder.Engine, doc *document.Document) int {
	capacity := 0
	for _, name := range engine.DocumentReferences(doc) {
		if name == "SERVICES" {
			return Unbounded
		}
		if m := serviceSlot.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > capacity {
				capacity = n
			}
		}
	}
	return capacity
}

// CapacityScorer penalizes templates that cannot hold the profile's services.
type CapacityScorer struct {
	config *RankingConfig
	engine *placeholder.Engine
}

// NewCapacityScorer creates a new CapacityScorer with the given config.
func NewCapacityScorer(config *RankingConfig, engine *placeholder.Engine) *CapacityScorer {
	return &CapacityScorer{config: config, engine: engine}
}

// Name returns the scorer name.
func (s *CapacityScorer) Name() string {
	return "capacity"
}

// Score subtracts MissingServicePenalty for each listed service beyond the
// template's capacity. Profiles without a service list are never penalized.
func (s *CapacityScorer) Score(ctx *ScoringContext) (float64, []string) {
	if ctx.Profile == nil || ctx.Document == nil || ctx.Profile.ServiceCount == 0 {
		return 0, nil
	}
	capacity := ServiceCapacity(s.engine, ctx.Document)
	if capacity == Unbounded || capacity >= ctx.Profile.ServiceCount {
		return 0, nil
	}
	missing := ctx.Profile.ServiceCount - capacity
	return -float64(missing) * s.config.MissingServicePenalty,
		[]string{fmt.Sprintf("cannot represent %d services (template holds %d)", ctx.Profile.ServiceCount, capacity)}
}
