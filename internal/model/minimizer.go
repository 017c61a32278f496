package model

// MinimizerRecord is one basin of attraction: classification results of
// type minimum grouped by spatial proximity. Lifetime is a single
// pipeline run.
type MinimizerRecord struct {
	// Representative is the best-valued refined point in the basin.
	Representative *RefinedPoint

	// BasinSize counts the candidates whose refinement converged into this
	// basin.
	BasinSize int

	// AvgIterations is the mean refinement iteration count over the basin.
	AvgIterations float64

	// CoverageCount is the number of distinct sub-domains that contributed
	// a member to the basin.
	CoverageCount int

	// VerifiedGradientNorm is the gradient norm recomputed at the
	// representative after merging.
	VerifiedGradientNorm float64
}
