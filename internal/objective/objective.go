// Package objective defines the objective-function contract consumed by the
// pipeline, plus a registry of named test objectives with analytically known
// critical points.
package objective

import (
	"fmt"
	"math"
	"sort"
)

// Func is the objective contract: a pure, re-entrant, side-effect-free
// callable defined and differentiable (a.e.) over the configured domain.
// It is shared read-only across concurrent workers.
type Func func(x []float64) float64

// Spec bundles a named objective with the dimensionality it expects and a
// sensible default search region for CLI use.
type Spec struct {
	Name        string
	Description string
	Dim         int
	F           Func
	Center      []float64
	HalfWidth   float64
}

var registry = map[string]Spec{}

func register(s Spec) {
	registry[s.Name] = s
}

// Lookup returns the named objective spec.
func Lookup(name string) (Spec, error) {
	s, ok := registry[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown objective %q (known: %v)", name, Names())
	}
	return s, nil
}

// Names returns the registered objective names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Well geometry for the paired-wells objectives. Each 2D well has minima at
// (±WellScale, ∓WellScale) with value -WellDepth, maxima at (±WellScale,
// ±WellScale) with value +WellDepth, and a saddle at the origin.
const (
	WellScale = 0.7412
	WellDepth = 0.87107
)

// XYWell is a scaled xy-Gaussian: k*x*y*exp(-(x²+y²)/(2s²)) with k chosen so
// the two minima sit exactly at depth -WellDepth.
func XYWell(x, y float64) float64 {
	s2 := WellScale * WellScale
	k := WellDepth * math.E / s2
	return k * x * y * math.Exp(-(x*x+y*y)/(2*s2))
}

// Bowl returns a separable quadratic with its minimum at center and value
// floor: sum_i w_i (x_i - c_i)² + floor.
func Bowl(center []float64, weights []float64, floor float64) Func {
	return func(x []float64) float64 {
		sum := floor
		for i := range x {
			d := x[i] - center[i]
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			sum += w * d * d
		}
		return sum
	}
}

// Quadratic returns f(x) = xᵀAx for a symmetric matrix given in row-major
// order. Positive-definite A makes the origin the unique minimum.
func Quadratic(a []float64, n int) Func {
	return func(x []float64) float64 {
		var sum float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				sum += x[i] * a[i*n+j] * x[j]
			}
		}
		return sum
	}
}

func init() {
	register(Spec{
		Name:        "bowl",
		Description: "separable quadratic bowl, minimum at the origin",
		Dim:         2,
		F:           Bowl([]float64{0, 0}, nil, 0),
		Center:      []float64{0, 0},
		HalfWidth:   2,
	})

	register(Spec{
		Name:        "xywell",
		Description: "scaled xy-Gaussian: two minima, two maxima, one saddle",
		Dim:         2,
		F: func(x []float64) float64 {
			return XYWell(x[0], x[1])
		},
		Center:    []float64{0, 0},
		HalfWidth: 2,
	})

	register(Spec{
		Name:        "paired-wells",
		Description: "g(x1,x2)+g(x3,x4) for the xy-Gaussian well g",
		Dim:         4,
		F: func(x []float64) float64 {
			return XYWell(x[0], x[1]) + XYWell(x[2], x[3])
		},
		Center:    []float64{0, 0, 0, 0},
		HalfWidth: 2,
	})

	register(Spec{
		Name:        "himmelblau",
		Description: "Himmelblau's function: four global minima at value 0",
		Dim:         2,
		F: func(x []float64) float64 {
			a := x[0]*x[0] + x[1] - 11
			b := x[0] + x[1]*x[1] - 7
			return a*a + b*b
		},
		Center:    []float64{0, 0},
		HalfWidth: 5,
	})

	register(Spec{
		Name:        "rosenbrock",
		Description: "Rosenbrock banana, minimum 0 at (1,1)",
		Dim:         2,
		F: func(x []float64) float64 {
			a := 1 - x[0]
			b := x[1] - x[0]*x[0]
			return a*a + 100*b*b
		},
		Center:    []float64{0, 0},
		HalfWidth: 2,
	})
}
