// Package dedupe merges near-duplicate candidate points, keeping the
// best-valued representative per spatial cluster.
package dedupe

import (
	"gonum.org/v1/gonum/floats"

	"github.com/Veraticus/the-critical-point/internal/model"
)

// DefaultDistanceTol is the default Euclidean merge radius.
const DefaultDistanceTol = 1e-4

// Cluster is one group of mutually-near candidates with its current best
// representative and membership bookkeeping for basin statistics.
type Cluster struct {
	Representative model.CandidatePoint
	Members        []model.CandidatePoint
}

// Size returns the number of candidates merged into the cluster.
func (c Cluster) Size() int {
	return len(c.Members)
}

// Resolve deduplicates candidates: an incremental scan compares each point
// against every accepted representative and merges below distTol, replacing
// the representative only when the new point's value is strictly lower.
// Quadratic in cluster count, which is fine at the candidate volumes this
// pipeline sees. Idempotent: Resolve(Resolve(s)) == Resolve(s).
func Resolve(candidates []model.CandidatePoint, distTol float64) []model.CandidatePoint {
	clusters := ResolveClusters(candidates, distTol)
	out := make([]model.CandidatePoint, len(clusters))
	for i, c := range clusters {
		out[i] = c.Representative
	}
	return out
}

// ResolveClusters performs the same merge as Resolve but retains cluster
// membership, which the aggregator uses for basin sizes.
func ResolveClusters(candidates []model.CandidatePoint, distTol float64) []Cluster {
	if distTol <= 0 {
		distTol = DefaultDistanceTol
	}

	var clusters []Cluster
	for _, cand := range candidates {
		merged := false
		for i := range clusters {
			if len(cand.X) != len(clusters[i].Representative.X) {
				continue
			}
			if floats.Distance(cand.X, clusters[i].Representative.X, 2) < distTol {
				clusters[i].Members = append(clusters[i].Members, cand)
				if cand.RawValue < clusters[i].Representative.RawValue {
					clusters[i].Representative = cand
				}
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, Cluster{
				Representative: cand,
				Members:        []model.CandidatePoint{cand},
			})
		}
	}
	return mergeToFixpoint(clusters, distTol)
}

// mergeToFixpoint collapses clusters whose representatives ended up within
// distTol of each other. A better-valued late arrival can move its
// cluster's representative toward a neighbor after the neighbor was
// accepted, so the incremental scan alone is not a fixpoint. Each merge
// removes one cluster, so the loop terminates.
func mergeToFixpoint(clusters []Cluster, distTol float64) []Cluster {
	for {
		merged := false
	scan:
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				ri := clusters[i].Representative
				rj := clusters[j].Representative
				if len(ri.X) != len(rj.X) {
					continue
				}
				if floats.Distance(ri.X, rj.X, 2) < distTol {
					clusters[i].Members = append(clusters[i].Members, clusters[j].Members...)
					if rj.RawValue < ri.RawValue {
						clusters[i].Representative = rj
					}
					clusters = append(clusters[:j], clusters[j+1:]...)
					merged = true
					break scan
				}
			}
		}
		if !merged {
			return clusters
		}
	}
}
