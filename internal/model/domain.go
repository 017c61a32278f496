// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"math"

	"github.com/Veraticus/the-critical-point/internal/common"
)

// DefaultBoundarySlack is the multiplier applied to each half-width when
// deciding whether a root-solver output still counts as inside the domain.
// Tunable via configuration; it does not scale with dimension.
const DefaultBoundarySlack = 1.1

// DomainSpec describes the bounded search region as a center point with
// per-axis half-widths. Immutable once built; callers own it and every
// pipeline component borrows it read-only.
type DomainSpec struct {
	Label         string
	Center        []float64
	HalfWidth     []float64
	Tolerance     float64
	BoundarySlack float64
	MaxDegree     int
}

// NewDomainSpec builds a domain from a center and a single isotropic
// half-width applied to every axis.
func NewDomainSpec(center []float64, halfWidth float64) DomainSpec {
	hw := make([]float64, len(center))
	for i := range hw {
		hw[i] = halfWidth
	}
	return DomainSpec{
		Center:        append([]float64(nil), center...),
		HalfWidth:     hw,
		BoundarySlack: DefaultBoundarySlack,
	}
}

// Dim returns the dimensionality of the domain.
func (d DomainSpec) Dim() int {
	return len(d.Center)
}

// Validate checks the structural invariants of the domain. A zero or
// negative half-width is the one truly fatal configuration error in the
// pipeline.
func (d DomainSpec) Validate() error {
	if len(d.Center) == 0 {
		return fmt.Errorf("%w: empty center", common.ErrInvalidDomain)
	}
	if len(d.HalfWidth) != len(d.Center) {
		return fmt.Errorf("%w: center has %d axes, half-width has %d",
			common.ErrInvalidDomain, len(d.Center), len(d.HalfWidth))
	}
	for i, hw := range d.HalfWidth {
		if hw <= 0 || math.IsNaN(hw) || math.IsInf(hw, 0) {
			return fmt.Errorf("%w: half-width %g on axis %d", common.ErrInvalidDomain, hw, i)
		}
	}
	for i, c := range d.Center {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: center %g on axis %d", common.ErrInvalidDomain, c, i)
		}
	}
	if d.BoundarySlack != 0 && d.BoundarySlack < 1 {
		return fmt.Errorf("%w: boundary slack %g below 1", common.ErrInvalidDomain, d.BoundarySlack)
	}
	return nil
}

// Slack returns the configured boundary-slack multiplier, falling back to
// the default when unset.
func (d DomainSpec) Slack() float64 {
	if d.BoundarySlack == 0 {
		return DefaultBoundarySlack
	}
	return d.BoundarySlack
}

// Contains reports whether x lies inside the domain expanded by the given
// slack multiplier on every axis. Pass 1 for the strict domain.
func (d DomainSpec) Contains(x []float64, slack float64) bool {
	if len(x) != len(d.Center) {
		return false
	}
	for i := range x {
		if math.Abs(x[i]-d.Center[i]) > slack*d.HalfWidth[i] {
			return false
		}
	}
	return true
}

// ToUnit maps a point from the domain into the reference cube [-1,1]^n.
func (d DomainSpec) ToUnit(x []float64) []float64 {
	z := make([]float64, len(x))
	for i := range x {
		z[i] = (x[i] - d.Center[i]) / d.HalfWidth[i]
	}
	return z
}

// FromUnit maps a point from the reference cube [-1,1]^n back into the domain.
func (d DomainSpec) FromUnit(z []float64) []float64 {
	x := make([]float64, len(z))
	for i := range z {
		x[i] = d.Center[i] + z[i]*d.HalfWidth[i]
	}
	return x
}

// Orthants decomposes the domain into its 2^n sign-combination sub-domains.
// Each orthant is centered at the midpoint of its quadrant with half the
// parent half-widths, and carries a label recording its sign pattern.
func (d DomainSpec) Orthants() []DomainSpec {
	n := d.Dim()
	count := 1 << n
	out := make([]DomainSpec, 0, count)
	for mask := 0; mask < count; mask++ {
		center := make([]float64, n)
		hw := make([]float64, n)
		label := make([]byte, n)
		for i := 0; i < n; i++ {
			hw[i] = d.HalfWidth[i] / 2
			if mask&(1<<i) != 0 {
				center[i] = d.Center[i] + hw[i]
				label[i] = '+'
			} else {
				center[i] = d.Center[i] - hw[i]
				label[i] = '-'
			}
		}
		sub := DomainSpec{
			Label:         fmt.Sprintf("%s[%s]", d.Label, label),
			Center:        center,
			HalfWidth:     hw,
			Tolerance:     d.Tolerance,
			BoundarySlack: d.BoundarySlack,
			MaxDegree:     d.MaxDegree,
		}
		out = append(out, sub)
	}
	return out
}
