package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/scenario"
)

// Granularity buckets the product trend.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Query is one dashboard request. Zero values mean "use the default".
type Query struct {
	Channel     models.Channel
	Preset      string
	StartDate   string
	EndDate     string
	CompareMode string
	Granularity Granularity

	ProductLine models.ProductLine
	ProductTag  string

	// Weights is nil when the request did not override the demand weights.
	Weights   *analytics.DemandWeights
	TargetWOS float64

	Scenario  string
	Overrides scenario.Overrides

	IncludeData bool
}

// CacheKey lists the query's fields in a fixed order.
func (q Query) CacheKey() []string {
	weights := "default"
	if q.Weights != nil {
		weights = fmt.Sprintf("%g/%g/%g/%g", q.Weights.W7, q.Weights.W30, q.Weights.W60, q.Weights.W90)
	}
	keys := make([]string, 0, len(q.Overrides))
	for k := range q.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var overrides strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&overrides, "%s=%g;", k, q.Overrides[k])
	}
	return []string{
		string(q.Channel), q.Preset, q.StartDate, q.EndDate, q.CompareMode, string(q.Granularity),
		string(q.ProductLine), q.ProductTag, weights, fmt.Sprintf("%g", q.TargetWOS),
		q.Scenario, overrides.String(), fmt.Sprintf("%t", q.IncludeData),
	}
}

func parseGranularity(s Granularity) (Granularity, bool) {
	switch Granularity(strings.ToLower(strings.TrimSpace(string(s)))) {
	case GranularityDay, "":
		return GranularityDay, true
	case GranularityWeek:
		return GranularityWeek, true
	case GranularityMonth:
		return GranularityMonth, true
	}
	return GranularityDay, false
}
