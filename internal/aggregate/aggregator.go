// Package aggregate groups classified minima into basins and computes the
// run-level summary statistics used for certification-style reporting.
package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/Veraticus/the-critical-point/internal/dedupe"
	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

// QualityBand labels a condition-number range.
type QualityBand string

// Condition-number quality bands.
const (
	BandExcellent  QualityBand = "EXCELLENT"  // < 1e3
	BandGood       QualityBand = "GOOD"       // < 1e6
	BandAcceptable QualityBand = "ACCEPTABLE" // < 1e9
	BandPoor       QualityBand = "POOR"       // < 1e12
	BandCritical   QualityBand = "CRITICAL"   // >= 1e12
	BandUnknown    QualityBand = "UNKNOWN"    // decomposition failed
)

// BandOrder is the reporting order of the quality bands.
var BandOrder = []QualityBand{BandExcellent, BandGood, BandAcceptable, BandPoor, BandCritical, BandUnknown}

// Band assigns a condition number to its quality band.
func Band(cond float64) QualityBand {
	switch {
	case math.IsNaN(cond):
		return BandUnknown
	case cond < 1e3:
		return BandExcellent
	case cond < 1e6:
		return BandGood
	case cond < 1e9:
		return BandAcceptable
	case cond < 1e12:
		return BandPoor
	default:
		return BandCritical
	}
}

// Summary holds the global statistics of one pipeline run.
type Summary struct {
	TypeCounts map[model.CriticalPointType]int

	// MinimaSignConsistency is the fraction of minima whose eigenvalues are
	// all strictly positive; MaximaSignConsistency is the all-negative
	// analogue. 1 when no points of that type exist.
	MinimaSignConsistency float64
	MaximaSignConsistency float64

	ConditionBands map[QualityBand]int

	Converged int
	Total     int
}

// Aggregate groups minima by spatial proximity into MinimizerRecords and
// computes the run summary. Error-typed results are counted but excluded
// from basin aggregation.
func Aggregate(classified []model.ClassificationResult, distTol float64, d deriv.Differentiator, f objective.Func) ([]model.MinimizerRecord, Summary) {
	summary := summarize(classified)

	// Reuse the duplicate resolver's distance-based merge, retaining basin
	// membership rather than discarding merged points.
	var minima []model.CandidatePoint
	byKey := make(map[string]*model.RefinedPoint)
	for i := range classified {
		res := &classified[i]
		if res.Type != model.TypeMinimum {
			continue
		}
		c := model.CandidatePoint{
			Subdomain: res.Point.Subdomain,
			X:         res.Point.X,
			RawValue:  res.Point.Value,
		}
		minima = append(minima, c)
		byKey[pointKey(c)] = res.Point
	}

	clusters := dedupe.ResolveClusters(minima, distTol)
	records := make([]model.MinimizerRecord, 0, len(clusters))
	for _, cluster := range clusters {
		rep := byKey[pointKey(cluster.Representative)]

		iterSum := 0
		subdomains := make(map[string]struct{})
		for _, m := range cluster.Members {
			if rp := byKey[pointKey(m)]; rp != nil {
				iterSum += rp.Iterations
			}
			subdomains[m.Subdomain] = struct{}{}
		}

		records = append(records, model.MinimizerRecord{
			Representative:       rep,
			BasinSize:            cluster.Size(),
			AvgIterations:        float64(iterSum) / float64(cluster.Size()),
			CoverageCount:        len(subdomains),
			VerifiedGradientNorm: floats.Norm(d.Gradient(f, rep.X), 2),
		})
	}

	// Best minimizer first; stable under merge order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Representative.Value < records[j].Representative.Value
	})
	return records, summary
}

func summarize(classified []model.ClassificationResult) Summary {
	summary := Summary{
		TypeCounts:     make(map[model.CriticalPointType]int),
		ConditionBands: make(map[QualityBand]int),
		Total:          len(classified),
	}

	minima, minimaConsistent := 0, 0
	maxima, maximaConsistent := 0, 0
	for i := range classified {
		res := &classified[i]
		summary.TypeCounts[res.Type]++
		summary.ConditionBands[Band(res.ConditionNumber)]++
		if res.Point != nil && res.Point.Converged {
			summary.Converged++
		}

		switch res.Type {
		case model.TypeMinimum:
			minima++
			if res.EigMin > 0 {
				minimaConsistent++
			}
		case model.TypeMaximum:
			maxima++
			if res.EigMax < 0 {
				maximaConsistent++
			}
		case model.TypeSaddle, model.TypeDegenerate, model.TypeError:
			// Counted above; no sign-consistency notion.
		}
	}

	summary.MinimaSignConsistency = ratio(minimaConsistent, minima)
	summary.MaximaSignConsistency = ratio(maximaConsistent, maxima)
	return summary
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 1
	}
	return float64(num) / float64(den)
}

// pointKey identifies a refined point by its exact coordinates. Points are
// never mutated after refinement, so exact float equality is safe here.
func pointKey(c model.CandidatePoint) string {
	key := c.Subdomain
	for _, v := range c.X {
		key += "|" + formatBits(v)
	}
	return key
}

func formatBits(v float64) string {
	bits := math.Float64bits(v)
	buf := make([]byte, 16)
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[bits&0xf]
		bits >>= 4
	}
	return string(buf)
}
