package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-critical-point/internal/common"
)

func TestDomainSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		domain  DomainSpec
		wantErr bool
	}{
		{
			name:    "valid isotropic domain",
			domain:  NewDomainSpec([]float64{0, 0}, 1.5),
			wantErr: false,
		},
		{
			name: "valid anisotropic domain",
			domain: DomainSpec{
				Center:    []float64{1, -1, 0},
				HalfWidth: []float64{0.5, 2, 1},
			},
			wantErr: false,
		},
		{
			name:    "empty center",
			domain:  DomainSpec{},
			wantErr: true,
		},
		{
			name: "zero half-width",
			domain: DomainSpec{
				Center:    []float64{0},
				HalfWidth: []float64{0},
			},
			wantErr: true,
		},
		{
			name: "negative half-width",
			domain: DomainSpec{
				Center:    []float64{0, 0},
				HalfWidth: []float64{1, -1},
			},
			wantErr: true,
		},
		{
			name: "mismatched axes",
			domain: DomainSpec{
				Center:    []float64{0, 0},
				HalfWidth: []float64{1},
			},
			wantErr: true,
		},
		{
			name: "slack below one",
			domain: DomainSpec{
				Center:        []float64{0},
				HalfWidth:     []float64{1},
				BoundarySlack: 0.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.domain.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidDomain)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDomainSpec_Contains(t *testing.T) {
	d := NewDomainSpec([]float64{0, 0}, 1)

	assert.True(t, d.Contains([]float64{0.5, -0.5}, 1))
	assert.True(t, d.Contains([]float64{1, 1}, 1))
	assert.False(t, d.Contains([]float64{1.05, 0}, 1))
	// Within the default 10% slack.
	assert.True(t, d.Contains([]float64{1.05, 0}, d.Slack()))
	assert.False(t, d.Contains([]float64{1.2, 0}, d.Slack()))
	// Dimension mismatch is never contained.
	assert.False(t, d.Contains([]float64{0}, 1))
}

func TestDomainSpec_UnitMapping(t *testing.T) {
	d := DomainSpec{
		Center:    []float64{2, -3},
		HalfWidth: []float64{4, 0.5},
	}

	z := d.ToUnit([]float64{6, -3.5})
	assert.InDelta(t, 1, z[0], 1e-15)
	assert.InDelta(t, -1, z[1], 1e-15)

	x := d.FromUnit(z)
	assert.InDelta(t, 6, x[0], 1e-12)
	assert.InDelta(t, -3.5, x[1], 1e-12)
}

func TestDomainSpec_Orthants(t *testing.T) {
	d := NewDomainSpec([]float64{0, 0}, 2)
	d.Label = "root"

	orthants := d.Orthants()
	require.Len(t, orthants, 4)

	seen := make(map[string]bool)
	for _, o := range orthants {
		require.NoError(t, o.Validate())
		assert.Equal(t, []float64{1, 1}, o.HalfWidth)
		seen[o.Label] = true

		// Every orthant center must lie strictly inside the parent.
		assert.True(t, d.Contains(o.Center, 1))
	}
	assert.Len(t, seen, 4, "orthant labels must be distinct")
}
