package approx

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/the-critical-point/internal/common"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

// Config controls one approximation run.
type Config struct {
	Basis         Basis
	Precision     Strategy
	InitialDegree int
	MaxDegree     int
	Tolerance     float64

	// Oversample adds this many sampling nodes per axis beyond degree+1,
	// keeping the least-squares system overdetermined.
	Oversample int

	// ValidationExtra adds nodes per axis to the quadrature grid used for
	// the L2 residual, so error is never measured on the fit's own nodes.
	ValidationExtra int
}

// DefaultConfig returns the default approximation configuration.
func DefaultConfig() Config {
	return Config{
		Basis:           BasisChebyshev,
		Precision:       PrecisionHybrid,
		InitialDegree:   3,
		MaxDegree:       10,
		Tolerance:       1e-8,
		Oversample:      2,
		ValidationExtra: 3,
	}
}

func (c Config) withDefaults(domain model.DomainSpec) Config {
	def := DefaultConfig()
	if c.Basis == "" {
		c.Basis = def.Basis
	}
	if c.Precision == "" {
		c.Precision = def.Precision
	}
	if c.InitialDegree <= 0 {
		c.InitialDegree = def.InitialDegree
	}
	if c.MaxDegree <= 0 {
		c.MaxDegree = def.MaxDegree
	}
	if domain.MaxDegree > 0 {
		c.MaxDegree = domain.MaxDegree
	}
	if c.MaxDegree < c.InitialDegree {
		c.MaxDegree = c.InitialDegree
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	if domain.Tolerance > 0 {
		c.Tolerance = domain.Tolerance
	}
	if c.Oversample < 0 {
		c.Oversample = 0
	}
	if c.ValidationExtra <= 0 {
		c.ValidationExtra = def.ValidationExtra
	}
	return c
}

// condFlagThreshold marks a design matrix as effectively rank-deficient.
const condFlagThreshold = 1e14

// Approximate fits a polynomial to f over the domain, escalating degree
// until the measured L2 error meets the tolerance or the degree budget is
// exhausted. The tolerance-not-met condition is reported on the returned
// polynomial, never raised as an error; only a cancelled context or a
// malformed domain fails the call outright.
func Approximate(ctx context.Context, f objective.Func, domain model.DomainSpec, cfg Config) (*Polynomial, error) {
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults(domain)

	var best *Polynomial
	for degree := cfg.InitialDegree; degree <= cfg.MaxDegree; degree++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}

		poly, err := fitDegree(ctx, f, domain, cfg, degree)
		if err != nil {
			// A singular solve at this degree still leaves earlier fits
			// usable; higher degrees will only be worse conditioned.
			if best != nil {
				slog.Warn("Degree escalation stopped on singular system",
					"subdomain", domain.Label,
					"degree", degree,
					"error", err)
				break
			}
			return nil, err
		}

		if best == nil || poly.L2Error < best.L2Error {
			best = poly
		}

		slog.Debug("Fitted approximation degree",
			"subdomain", domain.Label,
			"degree", degree,
			"l2_error", poly.L2Error,
			"condition", poly.ConditionNumber)

		if poly.L2Error <= cfg.Tolerance {
			best = poly
			best.ToleranceMet = true
			break
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no degree produced a solvable system", common.ErrSingularSystem)
	}
	if !best.ToleranceMet {
		slog.Warn("Approximation tolerance not met, using best polynomial",
			"subdomain", domain.Label,
			"degree", best.Degree,
			"l2_error", best.L2Error,
			"tolerance", cfg.Tolerance)
	}
	return best, nil
}

// fitDegree builds and solves the least-squares system for one degree.
func fitDegree(ctx context.Context, f objective.Func, domain model.DomainSpec, cfg Config, degree int) (*Polynomial, error) {
	dim := domain.Dim()
	perAxis := degree + 1 + cfg.Oversample
	nodes := cfg.Basis.nodes(perAxis)
	indices := multiIndices(dim, degree)

	rows := gridSize(perAxis, dim)
	cols := len(indices)

	// Basis term values at every 1D node, shared across grid points.
	termTable := make([][]float64, perAxis)
	for i, z := range nodes {
		termTable[i], _, _ = cfg.Basis.terms(z, degree)
	}

	design := mat.NewDense(rows, cols, nil)
	rhs := make([]float64, rows)
	point := make([]float64, dim)
	z := make([]float64, dim)

	row := 0
	var evalErr error
	tensorGrid(perAxis, dim, func(ix []int) {
		if evalErr != nil {
			return
		}
		for axis, ni := range ix {
			z[axis] = nodes[ni]
		}
		copy(point, domain.FromUnit(z))
		y := f(point)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			evalErr = fmt.Errorf("objective returned %g at %v", y, point)
			return
		}
		rhs[row] = y
		for col, alpha := range indices {
			v := 1.0
			for axis, deg := range alpha {
				v *= termTable[ix[axis]][deg]
			}
			design.Set(row, col, v)
		}
		row++
	})
	if evalErr != nil {
		return nil, evalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cond, rankDeficient := designCondition(design)

	coeffs, flagged, err := solveCoefficients(cfg.Precision, design, rhs)
	if err != nil {
		return nil, err
	}

	poly := &Polynomial{
		Basis:           cfg.Basis,
		Degree:          degree,
		Domain:          domain,
		Indices:         indices,
		Coeffs:          coeffs.floats,
		Rats:            coeffs.rats,
		BigFloats:       coeffs.bigFloats,
		ConditionNumber: cond,
		RankDeficient:   rankDeficient || flagged,
		Precision:       cfg.Precision,
		Grid: GridSpec{
			PointsPerAxis: perAxis,
			TotalPoints:   rows,
			BasisTerms:    cols,
		},
	}
	poly.L2Error = measureL2(f, poly, perAxis+cfg.ValidationExtra)
	return poly, nil
}

// designCondition computes the 2-norm condition number of the design matrix
// from its singular values.
func designCondition(design *mat.Dense) (float64, bool) {
	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDNone) {
		return math.Inf(1), true
	}
	values := svd.Values(nil)
	smax := values[0]
	smin := values[len(values)-1]
	if smin == 0 {
		return math.Inf(1), true
	}
	cond := smax / smin
	return cond, cond >= condFlagThreshold
}

// measureL2 computes the quadrature-based L2 norm of the residual f - p
// over the domain, normalized to an RMS so tolerances are scale-free in
// dimension.
func measureL2(f objective.Func, p *Polynomial, perAxis int) float64 {
	dim := p.Dim()
	nodes, weights := quadratureNodes(perAxis)

	z := make([]float64, dim)
	var sum, volume float64
	tensorGrid(perAxis, dim, func(ix []int) {
		w := 1.0
		for axis, ni := range ix {
			z[axis] = nodes[ni]
			w *= weights[ni]
		}
		x := p.Domain.FromUnit(z)
		r := f(x) - p.Eval(x)
		sum += w * r * r
		volume += w
	})
	return math.Sqrt(sum / volume)
}
