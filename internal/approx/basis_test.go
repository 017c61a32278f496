package approx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasis_Terms_Chebyshev(t *testing.T) {
	z := 0.37
	vals, d1, d2 := BasisChebyshev.terms(z, 3)

	// T2 = 2z²-1, T3 = 4z³-3z.
	assert.InDelta(t, 1, vals[0], 1e-15)
	assert.InDelta(t, z, vals[1], 1e-15)
	assert.InDelta(t, 2*z*z-1, vals[2], 1e-14)
	assert.InDelta(t, 4*z*z*z-3*z, vals[3], 1e-14)

	// T2' = 4z, T3' = 12z²-3.
	assert.InDelta(t, 0, d1[0], 1e-15)
	assert.InDelta(t, 1, d1[1], 1e-15)
	assert.InDelta(t, 4*z, d1[2], 1e-14)
	assert.InDelta(t, 12*z*z-3, d1[3], 1e-13)

	// T2'' = 4, T3'' = 24z.
	assert.InDelta(t, 4, d2[2], 1e-13)
	assert.InDelta(t, 24*z, d2[3], 1e-13)
}

func TestBasis_Terms_Legendre(t *testing.T) {
	z := -0.61
	vals, d1, d2 := BasisLegendre.terms(z, 3)

	// P2 = (3z²-1)/2, P3 = (5z³-3z)/2.
	assert.InDelta(t, (3*z*z-1)/2, vals[2], 1e-14)
	assert.InDelta(t, (5*z*z*z-3*z)/2, vals[3], 1e-14)

	// P2' = 3z, P3' = (15z²-3)/2.
	assert.InDelta(t, 3*z, d1[2], 1e-14)
	assert.InDelta(t, (15*z*z-3)/2, d1[3], 1e-13)

	// P2'' = 3, P3'' = 15z.
	assert.InDelta(t, 3, d2[2], 1e-13)
	assert.InDelta(t, 15*z, d2[3], 1e-13)
}

func TestBasis_Nodes(t *testing.T) {
	for _, basis := range []Basis{BasisChebyshev, BasisLegendre} {
		nodes := basis.nodes(5)
		require.Len(t, nodes, 5)
		for i := 1; i < len(nodes); i++ {
			assert.Greater(t, nodes[i], nodes[i-1], "%s nodes must ascend", basis)
		}
		assert.Greater(t, nodes[0], -1.0)
		assert.Less(t, nodes[4], 1.0)
	}
}

func TestQuadratureNodes_IntegrateConstant(t *testing.T) {
	_, w := quadratureNodes(6)
	var sum float64
	for _, wi := range w {
		sum += wi
	}
	// Weights on [-1,1] sum to the interval length.
	assert.InDelta(t, 2, sum, 1e-12)
}

func TestMultiIndices(t *testing.T) {
	idx := multiIndices(2, 2)
	// Total degree <= 2 in two variables: C(4,2) = 6 terms.
	require.Len(t, idx, 6)

	for _, alpha := range idx {
		total := 0
		for _, a := range alpha {
			total += a
		}
		assert.LessOrEqual(t, total, 2)
	}
}

func TestTensorGrid(t *testing.T) {
	var visited [][]int
	tensorGrid(3, 2, func(ix []int) {
		visited = append(visited, append([]int(nil), ix...))
	})
	require.Len(t, visited, 9)
	assert.Equal(t, []int{0, 0}, visited[0])
	assert.Equal(t, []int{2, 2}, visited[8])
}
