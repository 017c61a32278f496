// Package approx builds degree-adaptive orthogonal-polynomial approximations
// of an objective over a bounded domain, with a configurable precision
// strategy for the coefficient solve.
package approx

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Basis identifies one of the two supported orthogonal polynomial families.
type Basis string

// Supported bases.
const (
	BasisChebyshev Basis = "chebyshev"
	BasisLegendre  Basis = "legendre"
)

// ParseBasis resolves a basis name from configuration.
func ParseBasis(name string) (Basis, error) {
	switch Basis(name) {
	case BasisChebyshev, BasisLegendre:
		return Basis(name), nil
	case "":
		return BasisChebyshev, nil
	default:
		return "", fmt.Errorf("unknown basis %q", name)
	}
}

// terms evaluates basis polynomials 0..deg at z on [-1,1], returning values,
// first and second derivatives via the three-term recurrences.
func (b Basis) terms(z float64, deg int) (vals, d1, d2 []float64) {
	vals = make([]float64, deg+1)
	d1 = make([]float64, deg+1)
	d2 = make([]float64, deg+1)

	vals[0] = 1
	if deg == 0 {
		return vals, d1, d2
	}
	vals[1] = z
	d1[1] = 1

	switch b {
	case BasisLegendre:
		for k := 1; k < deg; k++ {
			fk := float64(k)
			vals[k+1] = ((2*fk+1)*z*vals[k] - fk*vals[k-1]) / (fk + 1)
			d1[k+1] = d1[k-1] + (2*fk+1)*vals[k]
			d2[k+1] = d2[k-1] + (2*fk+1)*d1[k]
		}
	default: // Chebyshev
		for k := 1; k < deg; k++ {
			vals[k+1] = 2*z*vals[k] - vals[k-1]
			d1[k+1] = 2*vals[k] + 2*z*d1[k] - d1[k-1]
			d2[k+1] = 4*d1[k] + 2*z*d2[k] - d2[k-1]
		}
	}
	return vals, d1, d2
}

// nodes returns n characteristic sampling nodes of the basis on [-1,1], in
// ascending order. Chebyshev uses the roots of T_n; Legendre uses the
// Gauss-Legendre abscissae.
func (b Basis) nodes(n int) []float64 {
	x := make([]float64, n)
	switch b {
	case BasisLegendre:
		w := make([]float64, n)
		quad.Legendre{}.FixedLocations(x, w, -1, 1)
	default:
		for i := 0; i < n; i++ {
			x[i] = math.Cos(float64(2*i+1) * math.Pi / float64(2*n))
		}
		// The cosine formula yields descending nodes.
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			x[i], x[j] = x[j], x[i]
		}
	}
	return x
}

// quadratureNodes returns n Gauss-Legendre nodes and weights on [-1,1],
// used for the quadrature-based L2 residual regardless of the fit basis.
func quadratureNodes(n int) (x, w []float64) {
	x = make([]float64, n)
	w = make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, -1, 1)
	return x, w
}
