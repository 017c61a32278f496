package model

// CandidatePoint is an approximate stationary point produced by the
// candidate extractor. It is absorbed by the duplicate resolver and, if it
// survives, seeds one refinement.
type CandidatePoint struct {
	Subdomain string
	X         []float64
	RawValue  float64
}

// ToleranceReason records why the refiner selected a particular gradient
// tolerance for a candidate.
type ToleranceReason string

// Tolerance selection reasons.
const (
	ToleranceStandard      ToleranceReason = "STANDARD"
	ToleranceHighPrecision ToleranceReason = "HIGH_PRECISION_NEAR_ZERO"
	ToleranceStage         ToleranceReason = "ULTRA_PRECISION_STAGE"
)

// RefinedPoint is the result of local optimization seeded at one candidate.
// Immutable once finalized; it traces back to exactly one CandidatePoint.
type RefinedPoint struct {
	Subdomain       string
	X               []float64
	Value           float64
	Converged       bool
	Iterations      int
	FuncEvals       int
	GradEvals       int
	Stages          int
	GradientNorm    float64
	Displacement    float64
	Improvement     float64
	ToleranceUsed   float64
	ToleranceReason ToleranceReason
}
