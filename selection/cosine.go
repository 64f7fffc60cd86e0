package selection

import (
	"math"

	"github.com/drozbay/RES4LYF/explore"
	"github.com/drozbay/RES4LYF/tensor"
)

// Cosine-geometry policies. Each walks the tree's internal edges and scores
// every leaf by how its endpoint relates to those edges. Zero-norm operands
// make cosine similarity undefined, so such terms are skipped rather than
// contributing NaN.

func init() {
	register("cos_similarity", cosSimilarity(stateSpace))
	register("cos_similarity_d", cosSimilarity(denoisedSpace))
	register("cos_linearity", cosLinearity(stateSpace))
	register("cos_linearity_d", cosLinearity(denoisedSpace))
	register("cos_perpendicular", cosPerpendicular(stateSpace))
	register("cos_perpendicular_d", cosPerpendicular(denoisedSpace))
	register("cos_reversal", cosReversal)
}

// cosSimilarity maximizes the summed cosine between each internal edge and
// the direction from that edge's endpoint to the candidate leaf: a leaf that
// continues where the tree was already heading.
func cosSimilarity(sp space) scoreFunc {
	return func(t *explore.Tree, _ Options) (int, error) {
		leaves := leafValues(t, sp)
		scores := make([]float64, len(leaves))
		for n, leaf := range leaves {
			total := 0.0
			for d := 1; d < t.Depth; d++ {
				for j := range t.Level(d) {
					edge := valueAt(t, sp, d, j).Sub(valueAt(t, sp, d-1, j/t.Width))
					toLeaf := leaf.Sub(valueAt(t, sp, d, j))
					if cos, ok := tensor.Cosine(edge, toLeaf); ok {
						total += cos
					}
				}
			}
			scores[n] = total
		}
		return argMax(scores), nil
	}
}

// cosLinearity maximizes the summed absolute cosine over all edges against
// the leaf direction, rewarding both consistent direction and clean
// reversal.
func cosLinearity(sp space) scoreFunc {
	return func(t *explore.Tree, _ Options) (int, error) {
		leaves := leafValues(t, sp)
		scores := make([]float64, len(leaves))
		for n, leaf := range leaves {
			total := 0.0
			for d := 1; d <= t.Depth; d++ {
				for j := range t.Level(d) {
					prev := valueAt(t, sp, d-1, j/t.Width)
					edge := valueAt(t, sp, d, j).Sub(prev)
					toLeaf := leaf.Sub(prev)
					if cos, ok := tensor.Cosine(edge, toLeaf); ok {
						total += math.Abs(cos)
					}
				}
			}
			scores[n] = total
		}
		return argMax(scores), nil
	}
}

// cosPerpendicular minimizes the summed squared cosine, preferring the most
// orthogonal, exploratory path.
func cosPerpendicular(sp space) scoreFunc {
	return func(t *explore.Tree, _ Options) (int, error) {
		leaves := leafValues(t, sp)
		scores := make([]float64, len(leaves))
		for n, leaf := range leaves {
			total := 0.0
			for d := 1; d < t.Depth; d++ {
				for j := range t.Level(d) {
					prev := valueAt(t, sp, d-1, j/t.Width)
					edge := valueAt(t, sp, d, j).Sub(prev)
					toLeaf := leaf.Sub(valueAt(t, sp, d, j))
					if cos, ok := tensor.Cosine(edge, toLeaf); ok {
						total += cos * cos
					}
				}
			}
			scores[n] = total
		}
		return argMin(scores), nil
	}
}

// cosReversal picks, among leaves whose own ancestor path contains at least
// one negative-cosine transition, the one with the most negative transition.
// Without any reversal anywhere it falls back to the first leaf.
func cosReversal(t *explore.Tree, _ Options) (int, error) {
	best := -1
	bestCos := math.Inf(1)
	for n := range t.Leaves() {
		dirs := t.PathDirections(n)
		for k := 0; k+1 < len(dirs); k++ {
			cos, ok := tensor.Cosine(dirs[k], dirs[k+1])
			if ok && cos < 0 && cos < bestCos {
				best = n
				bestCos = cos
			}
		}
	}
	if best < 0 {
		return 0, nil
	}
	return best, nil
}
