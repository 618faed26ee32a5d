// Package scenario holds the named forecast presets and resolves a preset
// plus per-field overrides into flat analytics.Assumptions.
package scenario

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"salesdash/analytics"
)

// Base is the scenario used when none is requested.
const Base = "base"

//go:embed presets.yaml
var builtinPresets []byte

// Scenario is a named bundle of assumption values.
type Scenario struct {
	Name        string                `json:"name"`
	Label       string                `json:"label"`
	Description string                `json:"description"`
	Assumptions analytics.Assumptions `json:"assumptions"`
}

type presetFile struct {
	Scenarios []struct {
		Name        string    `yaml:"name"`
		Label       string    `yaml:"label"`
		Description string    `yaml:"description"`
		Assumptions yaml.Node `yaml:"assumptions"`
	} `yaml:"scenarios"`
}

// Registry is an ordered set of scenarios. It is read-only after loading.
type Registry struct {
	byName map[string]Scenario
	order  []string
}

// Builtin returns the registry of built-in presets.
func Builtin() *Registry {
	r := &Registry{byName: make(map[string]Scenario)}
	if err := r.load(builtinPresets); err != nil {
		panic(fmt.Sprintf("scenario: invalid built-in presets: %v", err))
	}
	return r
}

// LoadFile returns the built-in presets extended (or overridden by name)
// with the scenarios in path.
func LoadFile(path string) (*Registry, error) {
	r := Builtin()
	if path == "" {
		return r, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file %s: %w", path, err)
	}
	if err := r.load(raw); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	return r, nil
}

func (r *Registry) load(raw []byte) error {
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return err
	}
	for _, s := range file.Scenarios {
		name := normalizeName(s.Name)
		if name == "" {
			return fmt.Errorf("scenario without a name")
		}
		a := analytics.DefaultAssumptions()
		if !s.Assumptions.IsZero() {
			if err := s.Assumptions.Decode(&a); err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
		}
		label := s.Label
		if label == "" {
			label = s.Name
		}
		if _, exists := r.byName[name]; !exists {
			r.order = append(r.order, name)
		}
		r.byName[name] = Scenario{Name: name, Label: label, Description: s.Description, Assumptions: a}
	}
	return nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Get looks a scenario up by case-insensitive name.
func (r *Registry) Get(name string) (Scenario, bool) {
	s, ok := r.byName[normalizeName(name)]
	return s, ok
}

// List returns every scenario in load order.
func (r *Registry) List() []Scenario {
	out := make([]Scenario, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Overrides are per-field edits applied on top of a scenario, keyed by the
// assumption's snake_case name.
type Overrides map[string]float64

// Fields lists the assumption names accepted as overrides.
var Fields = []string{
	"recent_weight", "mom_weight", "weekday_strength", "manual_multiplier",
	"promo_lift_pct", "content_lift_pct", "instock_rate",
	"growth_floor", "growth_ceiling", "volatility_multiplier",
}

func field(a *analytics.Assumptions, name string) *float64 {
	switch name {
	case "recent_weight":
		return &a.RecentWeight
	case "mom_weight":
		return &a.MoMWeight
	case "weekday_strength":
		return &a.WeekdayStrength
	case "manual_multiplier":
		return &a.ManualMultiplier
	case "promo_lift_pct":
		return &a.PromoLiftPct
	case "content_lift_pct":
		return &a.ContentLiftPct
	case "instock_rate":
		return &a.InstockRate
	case "growth_floor":
		return &a.GrowthFloor
	case "growth_ceiling":
		return &a.GrowthCeiling
	case "volatility_multiplier":
		return &a.VolatilityMultiplier
	}
	return nil
}

// Resolution is a scenario after overrides.
type Resolution struct {
	Scenario    string                `json:"scenario"`
	Assumptions analytics.Assumptions `json:"assumptions"`
	// Adjusted lists the fields whose override differs from the scenario value.
	Adjusted []string `json:"adjusted"`
	Warnings []string `json:"-"`
}

// Resolve applies overrides to the named scenario. Unknown scenarios fall
// back to base and unknown or non-finite overrides are dropped; both are
// reported as warnings.
func (r *Registry) Resolve(name string, overrides Overrides) Resolution {
	res := Resolution{Adjusted: []string{}}
	s, ok := r.Get(name)
	if !ok {
		if strings.TrimSpace(name) != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown scenario %q, using %s", name, Base))
		}
		s, ok = r.Get(Base)
		if !ok {
			s = Scenario{Name: Base, Assumptions: analytics.DefaultAssumptions()}
		}
	}
	res.Scenario = s.Name
	res.Assumptions = s.Assumptions

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := overrides[k]
		target := field(&res.Assumptions, normalizeName(k))
		switch {
		case target == nil:
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown assumption %q ignored", k))
			continue
		case math.IsNaN(v) || math.IsInf(v, 0):
			res.Warnings = append(res.Warnings, fmt.Sprintf("assumption %q is not a finite number, ignored", k))
			continue
		}
		if *target != v {
			res.Adjusted = append(res.Adjusted, normalizeName(k))
		}
		*target = v
	}
	return res
}
