package approx

import (
	"errors"
	"fmt"
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/the-critical-point/internal/common"
)

// Strategy selects the numeric representation used for the coefficient
// solve. It is chosen once at approximator construction and never changes
// the sampling grid topology.
type Strategy string

// Precision strategies.
const (
	// PrecisionFast uses native floating point throughout. Lowest cost;
	// default for exploration.
	PrecisionFast Strategy = "fast"
	// PrecisionHybrid samples in floating point and refines coefficients
	// with an extended-precision residual correction. Recommended default.
	PrecisionHybrid Strategy = "hybrid"
	// PrecisionExactRational solves the normal equations in exact rational
	// arithmetic. Required when feeding an exact symbolic root solver.
	PrecisionExactRational Strategy = "exact-rational"
	// PrecisionExtended uses extended-precision floating point throughout.
	// For validation and ill-conditioned cases.
	PrecisionExtended Strategy = "extended"
)

const (
	hybridPrec   = 128
	extendedPrec = 256
)

// ParseStrategy resolves a precision strategy from configuration.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case PrecisionFast, PrecisionHybrid, PrecisionExactRational, PrecisionExtended:
		return Strategy(name), nil
	case "":
		return PrecisionHybrid, nil
	default:
		return "", fmt.Errorf("%w: unknown precision strategy %q", common.ErrInvalidConfig, name)
	}
}

// coefficients is the strategy-dependent result of one coefficient solve.
type coefficients struct {
	floats    []float64
	rats      []*big.Rat
	bigFloats []*big.Float
}

// solveCoefficients dispatches the least-squares solve for the given
// strategy. A near-singular design matrix is reported through the flagged
// return, with the best achievable coefficients still produced.
func solveCoefficients(strategy Strategy, design *mat.Dense, rhs []float64) (coefficients, bool, error) {
	switch strategy {
	case PrecisionExactRational:
		return solveExactRational(design, rhs)
	case PrecisionExtended:
		return solveExtended(design, rhs)
	case PrecisionHybrid:
		c, flagged, err := solveFast(design, rhs)
		if err != nil {
			return c, flagged, err
		}
		refined, refFlagged := refineHybrid(design, rhs, c.floats)
		return refined, flagged || refFlagged, nil
	default:
		return solveFast(design, rhs)
	}
}

// solveFast computes the float64 least-squares solution via QR. A
// mat.Condition error means the solution is usable but the system is
// ill-conditioned; that is surfaced as a flag, not a failure.
func solveFast(design *mat.Dense, rhs []float64) (coefficients, bool, error) {
	var qr mat.QR
	qr.Factorize(design)

	b := mat.NewVecDense(len(rhs), append([]float64(nil), rhs...))
	var x mat.VecDense
	err := qr.SolveVecTo(&x, false, b)
	flagged := false
	if err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			flagged = true
		} else {
			return coefficients{}, true, fmt.Errorf("%w: %v", common.ErrSingularSystem, err)
		}
	}

	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return coefficients{floats: out}, flagged, nil
}

// refineHybrid performs one step of iterative refinement: the residual of
// the float64 solution is accumulated in extended precision, and a float64
// correction solve is applied. This recovers most of the accuracy lost to
// cancellation in the first solve without paying for a full big-float
// factorization.
func refineHybrid(design *mat.Dense, rhs []float64, c0 []float64) (coefficients, bool) {
	rows, cols := design.Dims()

	residual := make([]float64, rows)
	for i := 0; i < rows; i++ {
		acc := new(big.Float).SetPrec(hybridPrec).SetFloat64(rhs[i])
		for j := 0; j < cols; j++ {
			prod := new(big.Float).SetPrec(hybridPrec).SetFloat64(design.At(i, j))
			prod.Mul(prod, new(big.Float).SetPrec(hybridPrec).SetFloat64(c0[j]))
			acc.Sub(acc, prod)
		}
		residual[i], _ = acc.Float64()
	}

	corr, flagged, err := solveFast(design, residual)
	if err != nil {
		// Keep the unrefined solution.
		return coefficients{floats: c0}, true
	}

	refined := make([]float64, cols)
	bigs := make([]*big.Float, cols)
	for j := 0; j < cols; j++ {
		sum := new(big.Float).SetPrec(hybridPrec).SetFloat64(c0[j])
		sum.Add(sum, new(big.Float).SetPrec(hybridPrec).SetFloat64(corr.floats[j]))
		refined[j], _ = sum.Float64()
		bigs[j] = sum
	}
	return coefficients{floats: refined, bigFloats: bigs}, flagged
}

// solveExtended forms the normal equations in extended-precision floating
// point and solves them by Gaussian elimination with partial pivoting.
func solveExtended(design *mat.Dense, rhs []float64) (coefficients, bool, error) {
	rows, cols := design.Dims()

	n := newBigMatrix(cols, cols, extendedPrec)
	b := make([]*big.Float, cols)
	for j := range b {
		b[j] = new(big.Float).SetPrec(extendedPrec)
	}

	// N = AᵀA, b = Aᵀy.
	tmp := new(big.Float).SetPrec(extendedPrec)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			aij := new(big.Float).SetPrec(extendedPrec).SetFloat64(design.At(i, j))
			for k := j; k < cols; k++ {
				tmp.SetFloat64(design.At(i, k))
				tmp.Mul(tmp, aij)
				n.at(j, k).Add(n.at(j, k), tmp)
			}
			tmp.SetFloat64(rhs[i])
			tmp.Mul(tmp, aij)
			b[j].Add(b[j], tmp)
		}
	}
	for j := 0; j < cols; j++ {
		for k := 0; k < j; k++ {
			n.at(j, k).Set(n.at(k, j))
		}
	}

	sol, singular := eliminateBigFloat(n, b, extendedPrec)
	if singular {
		return coefficients{}, true, fmt.Errorf("%w: extended-precision normal equations singular", common.ErrSingularSystem)
	}

	out := make([]float64, cols)
	for j := range sol {
		out[j], _ = sol[j].Float64()
	}
	return coefficients{floats: out, bigFloats: sol}, false, nil
}

// solveExactRational forms the normal equations over exact rationals (node
// values are converted exactly from their binary representation) and solves
// them with fraction-free-style Gaussian elimination. No rounding occurs
// anywhere in the solve.
func solveExactRational(design *mat.Dense, rhs []float64) (coefficients, bool, error) {
	rows, cols := design.Dims()

	a := make([][]*big.Rat, rows)
	y := make([]*big.Rat, rows)
	for i := 0; i < rows; i++ {
		a[i] = make([]*big.Rat, cols)
		for j := 0; j < cols; j++ {
			a[i][j] = new(big.Rat).SetFloat64(design.At(i, j))
		}
		y[i] = new(big.Rat).SetFloat64(rhs[i])
	}

	// N = AᵀA, b = Aᵀy, all exact.
	n := make([][]*big.Rat, cols)
	b := make([]*big.Rat, cols)
	tmp := new(big.Rat)
	for j := 0; j < cols; j++ {
		n[j] = make([]*big.Rat, cols)
		for k := 0; k < cols; k++ {
			n[j][k] = new(big.Rat)
		}
		b[j] = new(big.Rat)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for k := j; k < cols; k++ {
				tmp.Mul(a[i][j], a[i][k])
				n[j][k].Add(n[j][k], tmp)
			}
			tmp.Mul(a[i][j], y[i])
			b[j].Add(b[j], tmp)
		}
	}
	for j := 0; j < cols; j++ {
		for k := 0; k < j; k++ {
			n[j][k].Set(n[k][j])
		}
	}

	sol, singular := eliminateRat(n, b)
	if singular {
		return coefficients{}, true, fmt.Errorf("%w: rational normal equations singular", common.ErrSingularSystem)
	}

	out := make([]float64, cols)
	for j := range sol {
		out[j], _ = sol[j].Float64()
	}
	return coefficients{floats: out, rats: sol}, false, nil
}

// bigMatrix is a minimal dense matrix of big.Floats.
type bigMatrix struct {
	rows, cols int
	data       []*big.Float
}

func newBigMatrix(rows, cols int, prec uint) *bigMatrix {
	data := make([]*big.Float, rows*cols)
	for i := range data {
		data[i] = new(big.Float).SetPrec(prec)
	}
	return &bigMatrix{rows: rows, cols: cols, data: data}
}

func (m *bigMatrix) at(i, j int) *big.Float {
	return m.data[i*m.cols+j]
}

func (m *bigMatrix) swapRows(i, j int) {
	for c := 0; c < m.cols; c++ {
		m.data[i*m.cols+c], m.data[j*m.cols+c] = m.data[j*m.cols+c], m.data[i*m.cols+c]
	}
}

// eliminateBigFloat solves n·x = b in place by Gaussian elimination with
// partial pivoting. Reports singularity instead of dividing by zero.
func eliminateBigFloat(n *bigMatrix, b []*big.Float, prec uint) ([]*big.Float, bool) {
	size := len(b)
	tmp := new(big.Float).SetPrec(prec)
	factor := new(big.Float).SetPrec(prec)

	absA := new(big.Float).SetPrec(prec)
	absB := new(big.Float).SetPrec(prec)
	for col := 0; col < size; col++ {
		pivot := col
		for r := col + 1; r < size; r++ {
			absA.Abs(n.at(r, col))
			absB.Abs(n.at(pivot, col))
			if absA.Cmp(absB) > 0 {
				pivot = r
			}
		}
		if n.at(pivot, col).Sign() == 0 {
			return nil, true
		}
		if pivot != col {
			n.swapRows(col, pivot)
			b[col], b[pivot] = b[pivot], b[col]
		}

		for r := col + 1; r < size; r++ {
			if n.at(r, col).Sign() == 0 {
				continue
			}
			factor.Quo(n.at(r, col), n.at(col, col))
			for c := col; c < size; c++ {
				tmp.Mul(factor, n.at(col, c))
				n.at(r, c).Sub(n.at(r, c), tmp)
			}
			tmp.Mul(factor, b[col])
			b[r].Sub(b[r], tmp)
		}
	}

	x := make([]*big.Float, size)
	for i := size - 1; i >= 0; i-- {
		acc := new(big.Float).SetPrec(prec).Set(b[i])
		for j := i + 1; j < size; j++ {
			tmp.Mul(n.at(i, j), x[j])
			acc.Sub(acc, tmp)
		}
		acc.Quo(acc, n.at(i, i))
		x[i] = acc
	}
	return x, false
}

// eliminateRat solves n·x = b over the rationals, exactly.
func eliminateRat(n [][]*big.Rat, b []*big.Rat) ([]*big.Rat, bool) {
	size := len(b)
	tmp := new(big.Rat)
	factor := new(big.Rat)

	for col := 0; col < size; col++ {
		pivot := -1
		for r := col; r < size; r++ {
			if n[r][col].Sign() != 0 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			return nil, true
		}
		if pivot != col {
			n[col], n[pivot] = n[pivot], n[col]
			b[col], b[pivot] = b[pivot], b[col]
		}

		for r := col + 1; r < size; r++ {
			if n[r][col].Sign() == 0 {
				continue
			}
			factor.Quo(n[r][col], n[col][col])
			for c := col; c < size; c++ {
				tmp.Mul(factor, n[col][c])
				n[r][c].Sub(n[r][c], tmp)
			}
			tmp.Mul(factor, b[col])
			b[r].Sub(b[r], tmp)
		}
	}

	x := make([]*big.Rat, size)
	for i := size - 1; i >= 0; i-- {
		acc := new(big.Rat).Set(b[i])
		for j := i + 1; j < size; j++ {
			tmp.Mul(n[i][j], x[j])
			acc.Sub(acc, tmp)
		}
		acc.Quo(acc, n[i][i])
		x[i] = acc
	}
	return x, false
}
