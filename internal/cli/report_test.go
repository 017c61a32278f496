package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/the-critical-point/internal/aggregate"
	"github.com/Veraticus/the-critical-point/internal/engine"
	"github.com/Veraticus/the-critical-point/internal/model"
)

func TestRenderResult(t *testing.T) {
	point := &model.RefinedPoint{
		Subdomain:    "test",
		X:            []float64{0.7412, -0.7412},
		Value:        -0.87107,
		Converged:    true,
		Iterations:   12,
		GradientNorm: 3e-9,
	}
	result := &engine.Result{
		Domain:     model.NewDomainSpec([]float64{0, 0}, 2),
		Subdomains: 4,
		Candidates: 5,
		Classified: []model.ClassificationResult{
			{Point: point, Type: model.TypeMinimum, ConditionNumber: 1.8},
		},
		Minimizers: []model.MinimizerRecord{
			{
				Representative:       point,
				BasinSize:            2,
				AvgIterations:        12,
				CoverageCount:        2,
				VerifiedGradientNorm: 3e-9,
			},
		},
		Summary: aggregate.Summary{
			TypeCounts:            map[model.CriticalPointType]int{model.TypeMinimum: 1},
			MinimaSignConsistency: 1,
			MaximaSignConsistency: 1,
			ConditionBands:        map[aggregate.QualityBand]int{aggregate.BandExcellent: 1},
			Converged:             1,
			Total:                 1,
		},
		Degraded: map[string]string{"test[-]": "solver failure"},
		Elapsed:  123 * time.Millisecond,
	}

	out := RenderResult(result)

	assert.Contains(t, out, "minimum")
	assert.Contains(t, out, "excellent")
	assert.Contains(t, out, "-0.87107")
	assert.Contains(t, out, "basin=2")
	assert.Contains(t, out, "degraded")
}

func TestRenderResultNoMinimizers(t *testing.T) {
	result := &engine.Result{
		Domain: model.NewDomainSpec([]float64{0}, 1),
		Summary: aggregate.Summary{
			TypeCounts:     map[model.CriticalPointType]int{},
			ConditionBands: map[aggregate.QualityBand]int{},
		},
	}

	out := RenderResult(result)
	assert.Contains(t, out, "none found")
}
