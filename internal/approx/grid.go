package approx

// multiIndices enumerates all multi-indices of total degree at most degree
// in dim variables, in graded lexicographic order. These index the
// tensor-basis terms of the fitted polynomial.
func multiIndices(dim, degree int) [][]int {
	var out [][]int
	idx := make([]int, dim)
	var walk func(axis, remaining int)
	walk = func(axis, remaining int) {
		if axis == dim-1 {
			for k := 0; k <= remaining; k++ {
				alpha := make([]int, dim)
				copy(alpha, idx)
				alpha[dim-1] = k
				out = append(out, alpha)
			}
			return
		}
		for k := 0; k <= remaining; k++ {
			idx[axis] = k
			walk(axis+1, remaining-k)
		}
		idx[axis] = 0
	}
	if dim == 0 {
		return out
	}
	walk(0, degree)
	return out
}

// tensorGrid walks the full tensor product of per-axis node lists, calling
// visit with the current multi-axis node indices. The index slice is reused
// between calls.
func tensorGrid(perAxis int, dim int, visit func(ix []int)) {
	ix := make([]int, dim)
	for {
		visit(ix)
		// Odometer increment.
		axis := dim - 1
		for axis >= 0 {
			ix[axis]++
			if ix[axis] < perAxis {
				break
			}
			ix[axis] = 0
			axis--
		}
		if axis < 0 {
			return
		}
	}
}

// gridSize returns perAxis^dim without overflow for the sizes this pipeline
// uses (bounded by the explicit degree budget).
func gridSize(perAxis, dim int) int {
	size := 1
	for i := 0; i < dim; i++ {
		size *= perAxis
	}
	return size
}
