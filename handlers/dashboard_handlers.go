package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"salesdash/analytics"
	"salesdash/config"
	"salesdash/models"
	"salesdash/pipeline"
	"salesdash/scenario"
)

// HandleGetDashboard assembles the dashboard for the query parameters.
// Section failures are reported inside the payload; only malformed
// parameters are rejected.
func HandleGetDashboard(c *fiber.Ctx) error {
	q, err := parseDashboardQuery(c)
	if err != nil {
		log.Printf("❌ [DASHBOARD] Invalid query: %v", err)
		return badRequest(c, err.Error())
	}

	raw, hit, err := dashboardService.DashboardJSON(c.UserContext(), q)
	if err != nil {
		log.Printf("❌ [DASHBOARD] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to build dashboard",
		})
	}

	if hit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    json.RawMessage(raw),
	})
}

func parseDashboardQuery(c *fiber.Ctx) (pipeline.Query, error) {
	q := pipeline.Query{
		Channel:     models.Channel(c.Query("channel")),
		Preset:      c.Query("preset"),
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
		CompareMode: c.Query("compare_mode"),
		Granularity: pipeline.Granularity(c.Query("granularity")),
		ProductTag:  c.Query("product_tag"),
		Scenario:    c.Query("scenario"),
		IncludeData: true,
	}
	if line := strings.TrimSpace(c.Query("product_line")); line != "" {
		q.ProductLine = models.NormalizeProductLine(line)
		if !q.ProductLine.IsMapped() {
			return q, fmt.Errorf("unknown product_line %q", line)
		}
	}

	if v := c.Query("include_data"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, fmt.Errorf("invalid include_data %q", v)
		}
		q.IncludeData = b
	}

	weights, err := parseWeights(c)
	if err != nil {
		return q, err
	}
	q.Weights = weights

	if v := c.Query("target_wos"); v != "" {
		f, err := parseNumber("target_wos", v)
		if err != nil {
			return q, err
		}
		q.TargetWOS = f
	}

	for _, name := range scenario.Fields {
		v := c.Query(name)
		if v == "" {
			continue
		}
		f, err := parseNumber(name, v)
		if err != nil {
			return q, err
		}
		if q.Overrides == nil {
			q.Overrides = make(scenario.Overrides)
		}
		q.Overrides[name] = f
	}
	return q, nil
}

// parseWeights returns nil unless at least one of w7, w30, w60 or w90 is set.
// Missing weights keep their configured defaults.
func parseWeights(c *fiber.Ctx) (*analytics.DemandWeights, error) {
	w := defaultWeights()
	fields := []struct {
		name   string
		target *float64
	}{
		{"w7", &w.W7}, {"w30", &w.W30}, {"w60", &w.W60}, {"w90", &w.W90},
	}
	set := false
	for _, f := range fields {
		v := c.Query(f.name)
		if v == "" {
			continue
		}
		parsed, err := parseNumber(f.name, v)
		if err != nil {
			return nil, err
		}
		*f.target = parsed
		set = true
	}
	if !set {
		return nil, nil
	}
	return &w, nil
}

// parseNumber parses a finite float; ParseFloat alone accepts "NaN" and "Inf".
func parseNumber(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

func defaultWeights() analytics.DemandWeights {
	cw := config.AppConfig.DemandWeights
	if cw == ([4]float64{}) {
		return analytics.DefaultDemandWeights()
	}
	return analytics.DemandWeights{W7: cw[0], W30: cw[1], W60: cw[2], W90: cw[3]}
}
