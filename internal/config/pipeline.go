package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-critical-point/internal/approx"
	"github.com/Veraticus/the-critical-point/internal/common"
	"github.com/Veraticus/the-critical-point/internal/engine"
	"github.com/Veraticus/the-critical-point/internal/model"
)

// ParseVector parses a comma-separated list of floats, e.g. "0.5,-0.5,1".
func ParseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty vector", common.ErrInvalidConfig)
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d %q: %v", common.ErrInvalidConfig, i, part, err)
		}
		out[i] = v
	}
	return out, nil
}

// FormatVector renders a float slice in the comma-separated form ParseVector
// accepts, for round-tripping defaults through configuration keys.
func FormatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ResolveDomain builds a DomainSpec from the hunt.* viper keys. A scalar
// half-width is broadcast across the center's dimensions.
func ResolveDomain() (model.DomainSpec, error) {
	center, err := ParseVector(viper.GetString("hunt.center"))
	if err != nil {
		return model.DomainSpec{}, fmt.Errorf("hunt.center: %w", err)
	}
	hw, err := ParseVector(viper.GetString("hunt.halfwidth"))
	if err != nil {
		return model.DomainSpec{}, fmt.Errorf("hunt.halfwidth: %w", err)
	}
	if len(hw) == 1 && len(center) > 1 {
		hw = broadcast(hw[0], len(center))
	}
	if len(hw) != len(center) {
		return model.DomainSpec{}, fmt.Errorf("%w: center has %d components, halfwidth has %d",
			common.ErrInvalidConfig, len(center), len(hw))
	}

	domain := model.DomainSpec{
		Label:         viper.GetString("hunt.label"),
		Center:        center,
		HalfWidth:     hw,
		BoundarySlack: model.DefaultBoundarySlack,
	}
	if tol := viper.GetFloat64("hunt.tolerance"); tol > 0 {
		domain.Tolerance = tol
	}
	if slack := viper.GetFloat64("hunt.boundary_slack"); slack > 0 {
		domain.BoundarySlack = slack
	}
	if deg := viper.GetInt("hunt.max_degree"); deg > 0 {
		domain.MaxDegree = deg
	}
	return domain, domain.Validate()
}

// ResolveEngine builds the engine configuration from the pipeline.* viper
// keys, starting from the engine defaults.
func ResolveEngine() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if s := viper.GetString("pipeline.basis"); s != "" {
		basis, err := approx.ParseBasis(s)
		if err != nil {
			return cfg, fmt.Errorf("pipeline.basis: %w", err)
		}
		cfg.Approx.Basis = basis
	}
	if s := viper.GetString("pipeline.precision"); s != "" {
		strategy, err := approx.ParseStrategy(s)
		if err != nil {
			return cfg, fmt.Errorf("pipeline.precision: %w", err)
		}
		cfg.Approx.Precision = strategy
	}
	if deg := viper.GetInt("pipeline.initial_degree"); deg > 0 {
		cfg.Approx.InitialDegree = deg
	}
	if tol := viper.GetFloat64("pipeline.tolerance"); tol > 0 {
		cfg.Approx.Tolerance = tol
	}
	if k := viper.GetInt("pipeline.top_k"); k > 0 {
		cfg.Refine.TopK = k
	}
	cfg.Refine.UltraPrecision = viper.GetBool("pipeline.ultra_precision")
	cfg.Refine.Polish = viper.GetBool("pipeline.polish")
	if w := viper.GetInt("pipeline.workers"); w > 0 {
		cfg.MaxWorkers = w
	}
	cfg.Orthants = viper.GetBool("pipeline.orthants")
	if tol := viper.GetFloat64("pipeline.distance_tolerance"); tol > 0 {
		cfg.DistanceTol = tol
	}
	return cfg, nil
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
