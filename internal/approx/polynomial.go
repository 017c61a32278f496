package approx

import (
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/the-critical-point/internal/model"
)

// GridSpec records the sampling grid a polynomial was fitted on.
type GridSpec struct {
	PointsPerAxis int
	TotalPoints   int
	BasisTerms    int
}

// Polynomial is a fitted approximation of the objective over one domain.
// Immutable after construction; degree escalation supersedes an instance
// rather than mutating it.
type Polynomial struct {
	Basis   Basis
	Degree  int
	Domain  model.DomainSpec
	Indices [][]int

	// Coeffs is the canonical float64 coefficient vector, one entry per
	// multi-index. Rats and BigFloats are populated only by the
	// exact-rational and extended strategies respectively.
	Coeffs    []float64
	Rats      []*big.Rat
	BigFloats []*big.Float

	// L2Error is the quadrature-based L2 norm of the fit residual over the
	// domain (RMS-normalized).
	L2Error float64

	// ToleranceMet is false when degree escalation exhausted the budget
	// before reaching the target error. The polynomial is still usable.
	ToleranceMet bool

	// ConditionNumber of the design matrix; RankDeficient flags a solve
	// that was singular or severely ill-conditioned.
	ConditionNumber float64
	RankDeficient   bool

	Precision Strategy
	Grid      GridSpec
}

// Dim returns the number of variables.
func (p *Polynomial) Dim() int {
	return p.Domain.Dim()
}

// axisTerms evaluates, per axis, the basis values and derivatives at the
// unit-cube image of x.
func (p *Polynomial) axisTerms(x []float64) (vals, d1, d2 [][]float64) {
	z := p.Domain.ToUnit(x)
	dim := len(z)
	vals = make([][]float64, dim)
	d1 = make([][]float64, dim)
	d2 = make([][]float64, dim)
	for i := range z {
		vals[i], d1[i], d2[i] = p.Basis.terms(z[i], p.Degree)
	}
	return vals, d1, d2
}

// Eval evaluates the polynomial at x (domain coordinates).
func (p *Polynomial) Eval(x []float64) float64 {
	vals, _, _ := p.axisTerms(x)
	var sum float64
	for t, alpha := range p.Indices {
		term := p.Coeffs[t]
		for axis, deg := range alpha {
			term *= vals[axis][deg]
		}
		sum += term
	}
	return sum
}

// Gradient evaluates the gradient of the polynomial at x.
func (p *Polynomial) Gradient(x []float64) []float64 {
	vals, d1, _ := p.axisTerms(x)
	dim := p.Dim()
	grad := make([]float64, dim)
	for t, alpha := range p.Indices {
		c := p.Coeffs[t]
		if c == 0 {
			continue
		}
		for j := 0; j < dim; j++ {
			term := c / p.Domain.HalfWidth[j]
			for axis, deg := range alpha {
				if axis == j {
					term *= d1[axis][deg]
				} else {
					term *= vals[axis][deg]
				}
			}
			grad[j] += term
		}
	}
	return grad
}

// Hessian evaluates the Hessian of the polynomial at x.
func (p *Polynomial) Hessian(x []float64) *mat.Dense {
	vals, d1, d2 := p.axisTerms(x)
	dim := p.Dim()
	h := mat.NewDense(dim, dim, nil)
	for t, alpha := range p.Indices {
		c := p.Coeffs[t]
		if c == 0 {
			continue
		}
		for j := 0; j < dim; j++ {
			for l := j; l < dim; l++ {
				term := c / (p.Domain.HalfWidth[j] * p.Domain.HalfWidth[l])
				for axis, deg := range alpha {
					switch {
					case axis == j && axis == l:
						term *= d2[axis][deg]
					case axis == j:
						term *= d1[axis][deg]
					case axis == l:
						term *= d1[axis][deg]
					default:
						term *= vals[axis][deg]
					}
				}
				h.Set(j, l, h.At(j, l)+term)
				if l != j {
					h.Set(l, j, h.At(l, j)+term)
				}
			}
		}
	}
	return h
}
