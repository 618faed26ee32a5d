// Package pipeline assembles the dashboard: it resolves the requested date
// windows, pulls rows from the store and runs the analytics engines, with
// every section succeeding or failing on its own.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"salesdash/analytics"
	"salesdash/cache"
	"salesdash/models"
	"salesdash/scenario"
	"salesdash/store"
	"salesdash/utils"
)

// Defaults fill in whatever a Query leaves unset.
type Defaults struct {
	Channel              models.Channel
	ProductLine          models.ProductLine
	Weights              analytics.DemandWeights
	TargetWOS            float64
	SnapshotHistoryLimit int
}

func DefaultDefaults() Defaults {
	return Defaults{
		Channel:              models.ChannelAmazon,
		ProductLine:          models.ProductLineIQBAR,
		Weights:              analytics.DefaultDemandWeights(),
		TargetWOS:            analytics.DefaultTargetWOS,
		SnapshotHistoryLimit: 30,
	}
}

// Service builds dashboards from a Repository.
type Service struct {
	repo      store.Repository
	scenarios *scenario.Registry
	defaults  Defaults
	cache     cache.Cache
	cacheTTL  time.Duration
}

type Option func(*Service)

// WithCache stores assembled dashboards in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

func NewService(repo store.Repository, scenarios *scenario.Registry, opts ...Option) *Service {
	if scenarios == nil {
		scenarios = scenario.Builtin()
	}
	s := &Service{repo: repo, scenarios: scenarios, defaults: DefaultDefaults()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Scenarios() []scenario.Scenario {
	return s.scenarios.List()
}

// Meta is the channel's data coverage.
type Meta struct {
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
	TxCount int    `json:"tx_count"`
}

func newMeta(b models.DateBounds) Meta {
	m := Meta{TxCount: b.RowCount}
	if !b.IsEmpty() {
		m.MinDate = b.MinDate.Format(analytics.DateLayout)
		m.MaxDate = b.MaxDate.Format(analytics.DateLayout)
	}
	return m
}

// DateRange reports the channel's data coverage.
func (s *Service) DateRange(ctx context.Context, channel models.Channel) (Meta, error) {
	b, err := s.repo.DateBounds(ctx, channel)
	if err != nil && !errors.Is(err, store.ErrNoData) {
		return Meta{}, err
	}
	return newMeta(b), nil
}

// Response is the assembled dashboard. Sections are nil when the request
// asked for metadata only.
type Response struct {
	Meta          Meta                  `json:"meta"`
	Channel       models.Channel        `json:"channel"`
	Preset        analytics.Preset      `json:"preset"`
	CompareMode   analytics.CompareMode `json:"compare_mode"`
	ResolvedDates analytics.DateRange   `json:"resolved_dates"`
	CompareDates  analytics.DateRange   `json:"compare_dates"`
	Scenario      scenario.Resolution   `json:"scenario"`

	Sales     *Section[SalesData]     `json:"sales,omitempty"`
	Product   *Section[ProductData]   `json:"product,omitempty"`
	Business  *Section[BusinessData]  `json:"business,omitempty"`
	Forecast  *Section[ForecastData]  `json:"forecast,omitempty"`
	Inventory *Section[InventoryData] `json:"inventory,omitempty"`

	Warnings []string          `json:"warnings"`
	Errors   map[string]string `json:"errors"`
}

// request carries everything resolved for one dashboard call.
type request struct {
	ctx     context.Context
	query   Query
	preset  analytics.Preset
	mode    analytics.CompareMode
	bounds  models.DateBounds
	primary analytics.DateRange
	compare analytics.DateRange

	resolution scenario.Resolution
	weights    analytics.DemandWeights
	targetWOS  float64

	loader   *loader
	warnings []string
	errs     map[string]string
}

func (r *request) warn(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// normalize applies defaults and reports anything that had to be corrected.
func (s *Service) normalize(q Query) (Query, analytics.Preset, analytics.CompareMode, []string) {
	var warnings []string
	if strings.TrimSpace(string(q.Channel)) == "" {
		q.Channel = s.defaults.Channel
	}
	q.Channel = models.NormalizeChannel(string(q.Channel))

	preset, ok := analytics.ParsePreset(q.Preset)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown preset %q, using %s", q.Preset, analytics.PresetMTD))
	}
	if preset != analytics.PresetCustom && q.StartDate != "" && q.EndDate != "" {
		preset = analytics.PresetCustom
	}
	q.Preset = string(preset)

	mode, ok := analytics.ParseCompareMode(q.CompareMode)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown compare mode %q, using %s", q.CompareMode, analytics.ComparePreviousPeriod))
	}
	q.CompareMode = string(mode)

	gran, ok := parseGranularity(q.Granularity)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown granularity %q, using %s", q.Granularity, GranularityDay))
	}
	q.Granularity = gran

	if q.ProductLine == "" {
		q.ProductLine = s.defaults.ProductLine
	}
	if q.Weights != nil && !q.Weights.Finite() {
		warnings = append(warnings, fmt.Sprintf("demand weights %+v are not finite, using defaults", *q.Weights))
		q.Weights = nil
	}
	if q.Weights == nil {
		w := s.defaults.Weights
		q.Weights = &w
	}
	if math.IsNaN(q.TargetWOS) || math.IsInf(q.TargetWOS, 0) {
		warnings = append(warnings, fmt.Sprintf("target_wos %g is not finite, using %g", q.TargetWOS, s.defaults.TargetWOS))
		q.TargetWOS = s.defaults.TargetWOS
	}
	if q.TargetWOS <= 0 {
		if q.TargetWOS < 0 {
			warnings = append(warnings, fmt.Sprintf("target_wos %g is not positive, using %g", q.TargetWOS, s.defaults.TargetWOS))
		}
		q.TargetWOS = s.defaults.TargetWOS
	}
	return q, preset, mode, warnings
}

// Dashboard assembles the dashboard for q. It never fails as a whole:
// problems land in Response.Errors (per section) or Response.Warnings.
func (s *Service) Dashboard(ctx context.Context, q Query) *Response {
	q, preset, mode, warnings := s.normalize(q)
	r := &request{
		ctx:      ctx,
		query:    q,
		preset:   preset,
		mode:     mode,
		loader:   newLoader(ctx, s.repo, q.Channel),
		warnings: warnings,
		errs:     make(map[string]string),
	}

	log.Printf("📊 [DASHBOARD] channel=%s preset=%s compare=%s scenario=%q include_data=%t",
		q.Channel, preset, mode, q.Scenario, q.IncludeData)

	bounds, err := s.repo.DateBounds(ctx, q.Channel)
	switch {
	case errors.Is(err, store.ErrNoData):
		r.warn("no sales data imported for %s", q.Channel)
	case err != nil:
		log.Printf("❌ [DASHBOARD] date bounds: %v", err)
		r.errs["meta"] = err.Error()
	}
	r.bounds = bounds
	r.resolveDates()

	r.resolution = s.scenarios.Resolve(q.Scenario, q.Overrides)
	r.warnings = append(r.warnings, r.resolution.Warnings...)

	r.weights = *q.Weights
	if err := r.weights.Validate(); err != nil {
		r.warn("%v; weights applied as given", err)
	}
	r.targetWOS = q.TargetWOS

	resp := &Response{
		Meta:          newMeta(bounds),
		Channel:       q.Channel,
		Preset:        r.preset,
		CompareMode:   mode,
		ResolvedDates: r.primary,
		CompareDates:  r.compare,
		Scenario:      r.resolution,
	}

	if q.IncludeData {
		resp.Sales = runSection("sales", r.errs, r.sales)
		resp.Product = runSection("product", r.errs, r.product)
		resp.Business = runSection("business", r.errs, r.business)
		resp.Forecast = runSection("forecast", r.errs, r.forecast)
		resp.Inventory = runSection("inventory", r.errs, func() (InventoryData, error) {
			return r.inventory(s.defaults.SnapshotHistoryLimit)
		})
	}

	resp.Warnings = r.warnings
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	resp.Errors = r.errs
	if len(r.errs) > 0 {
		log.Printf("⚠️  [DASHBOARD] completed with %d section error(s)", len(r.errs))
	}
	return resp
}

// resolveDates turns the preset or custom dates into the primary and
// comparison windows, clamped to the channel's data.
func (r *request) resolveDates() {
	q := r.query
	if r.preset == analytics.PresetCustom {
		start, errStart := utils.ParseDate(q.StartDate)
		end, errEnd := utils.ParseDate(q.EndDate)
		if errStart != nil || errEnd != nil {
			r.warn("custom range %q..%q could not be parsed, using %s", q.StartDate, q.EndDate, analytics.PresetMTD)
			r.preset = analytics.PresetMTD
		} else {
			if start.After(end) {
				r.warn("start_date %s is after end_date %s, swapped", q.StartDate, q.EndDate)
			}
			custom := analytics.NewDateRange(start, end)
			r.primary = analytics.ClampRange(custom, r.bounds.MinDate, r.bounds.MaxDate)
			if r.primary.IsEmpty() && !r.bounds.IsEmpty() {
				r.warn("custom range %s..%s has no data", custom.StartString(), custom.EndString())
			}
		}
	}
	if r.preset != analytics.PresetCustom {
		r.primary = analytics.ResolvePreset(r.preset, r.bounds.MaxDate, r.bounds.MinDate, analytics.DateRange{})
	}
	r.compare = analytics.ResolveComparisonRange(r.primary, r.mode)
}

// DashboardJSON returns the encoded dashboard, served from the cache when a
// fresh copy exists. Responses with section errors are not cached.
func (s *Service) DashboardJSON(ctx context.Context, q Query) ([]byte, bool, error) {
	normalized, _, _, _ := s.normalize(q)
	key := cache.Key(normalized.CacheKey()...)

	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("⚠️  [CACHE] get %s: %v", key, err)
		} else if found {
			log.Printf("⚡ [CACHE] hit %s", key)
			return raw, true, nil
		}
	}

	resp := s.Dashboard(ctx, q)
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, false, fmt.Errorf("encode dashboard: %w", err)
	}
	if s.cache != nil && len(resp.Errors) == 0 {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			log.Printf("⚠️  [CACHE] set %s: %v", key, err)
		}
	}
	return raw, false, nil
}
