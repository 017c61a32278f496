// Package classify assigns critical-point types from Hessian eigenvalues,
// with numeric-quality diagnostics on every successful decomposition.
package classify

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

// DefaultZeroTol is the eigenvalue magnitude below which a direction is
// treated as degenerate.
const DefaultZeroTol = 1e-8

// Classifier computes Hessian eigenvalues at refined points and assigns a
// type. One instance is shared read-only across workers.
type Classifier struct {
	deriv   deriv.Differentiator
	zeroTol float64
}

// New creates a classifier.
func New(d deriv.Differentiator, zeroTol float64) *Classifier {
	if zeroTol <= 0 {
		zeroTol = DefaultZeroTol
	}
	return &Classifier{deriv: d, zeroTol: zeroTol}
}

// Classify computes the symmetrized Hessian of f at the refined point and
// derives the type from its eigenvalue signs. Decomposition failure yields
// TypeError with NaN diagnostics; the point is retained, never dropped.
func (c *Classifier) Classify(f objective.Func, rp *model.RefinedPoint) model.ClassificationResult {
	result := model.ClassificationResult{
		Point:              rp,
		Type:               model.TypeError,
		EigMin:             math.NaN(),
		EigMax:             math.NaN(),
		FrobeniusNorm:      math.NaN(),
		ConditionNumber:    math.NaN(),
		Determinant:        math.NaN(),
		Trace:              math.NaN(),
		BoundaryEigenvalue: math.NaN(),
	}

	h := c.deriv.Hessian(f, rp.X)
	n, _ := h.Dims()
	if !matrixFinite(h) {
		slog.Warn("Hessian contains non-finite entries",
			"subdomain", rp.Subdomain,
			"point", rp.X)
		return result
	}

	// Numerically required before the eigenvalue solve.
	sym := symmetrize(h)

	var es mat.EigenSym
	if !es.Factorize(sym, false) {
		slog.Warn("Eigen-decomposition failed",
			"subdomain", rp.Subdomain,
			"point", rp.X)
		return result
	}
	eig := es.Values(nil) // ascending

	result.Type = decide(eig, c.zeroTol)
	result.EigMin = eig[0]
	result.EigMax = eig[n-1]
	result.FrobeniusNorm = frobenius(sym)
	result.ConditionNumber = condition(eig)
	result.Determinant = product(eig)
	result.Trace = mat.Trace(sym)
	result.BoundaryEigenvalue = boundaryEigenvalue(result.Type, eig)

	return result
}

// decide is the pure classification rule over the eigenvalue set.
func decide(eig []float64, zeroTol float64) model.CriticalPointType {
	allPositive, allNegative := true, true
	for _, v := range eig {
		if math.Abs(v) <= zeroTol {
			return model.TypeDegenerate
		}
		if v < 0 {
			allPositive = false
		}
		if v > 0 {
			allNegative = false
		}
	}
	switch {
	case allPositive:
		return model.TypeMinimum
	case allNegative:
		return model.TypeMaximum
	default:
		return model.TypeSaddle
	}
}

// boundaryEigenvalue is the smallest positive eigenvalue for minima and the
// largest negative one for maxima; NaN otherwise.
func boundaryEigenvalue(tp model.CriticalPointType, eig []float64) float64 {
	switch tp {
	case model.TypeMinimum:
		return eig[0]
	case model.TypeMaximum:
		return eig[len(eig)-1]
	default:
		return math.NaN()
	}
}

func symmetrize(h *mat.Dense) *mat.SymDense {
	n, _ := h.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(h.At(i, j)+h.At(j, i)))
		}
	}
	return sym
}

func frobenius(m *mat.SymDense) float64 {
	n, _ := m.Dims()
	var sum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

func condition(eig []float64) float64 {
	minAbs, maxAbs := math.Inf(1), 0.0
	for _, v := range eig {
		a := math.Abs(v)
		if a < minAbs {
			minAbs = a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}
	if minAbs == 0 {
		return math.Inf(1)
	}
	return maxAbs / minAbs
}

func product(eig []float64) float64 {
	p := 1.0
	for _, v := range eig {
		p *= v
	}
	return p
}

func matrixFinite(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
