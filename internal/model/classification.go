package model

// CriticalPointType tags a refined point with the nature of the critical
// point found there. The set is closed; consumers switch exhaustively.
type CriticalPointType string

// Critical point type constants.
const (
	TypeMinimum    CriticalPointType = "MINIMUM"
	TypeMaximum    CriticalPointType = "MAXIMUM"
	TypeSaddle     CriticalPointType = "SADDLE"
	TypeDegenerate CriticalPointType = "DEGENERATE"
	TypeError      CriticalPointType = "ERROR"
)

// String implements fmt.Stringer.
func (t CriticalPointType) String() string {
	return string(t)
}

// ClassificationResult pairs a refined point with its Hessian-eigenvalue
// classification and numeric-quality diagnostics. Type is a pure function
// of the eigenvalue set and the configured zero tolerance; TypeError is
// used only when the eigen-decomposition itself failed, in which case all
// diagnostic fields are NaN.
type ClassificationResult struct {
	Point *RefinedPoint
	Type  CriticalPointType

	EigMin          float64
	EigMax          float64
	FrobeniusNorm   float64
	ConditionNumber float64
	Determinant     float64
	Trace           float64

	// BoundaryEigenvalue is the smallest positive eigenvalue for minima and
	// the largest negative eigenvalue for maxima: a quality signal distinct
	// from the classification decision itself. NaN for other types.
	BoundaryEigenvalue float64
}
