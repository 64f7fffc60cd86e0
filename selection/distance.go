package selection

import (
	"fmt"
	"sort"

	"github.com/drozbay/RES4LYF/explore"
	"github.com/drozbay/RES4LYF/tensor"
)

// Distance-based policies: consensus seeking (mean/median), outlier seeking
// (zmean/zmedian), reference matching (latent_match family), and raw
// displacement magnitude (gradient family).

func init() {
	register("latent_match", latentMatch(stateSpace, 0, 0))
	register("latent_match_d", latentMatch(denoisedSpace, 0, 0))
	register("latent_match_sdxl_color_d", latentMatch(denoisedSpace, 1, 3))
	register("latent_match_sdxl_luminosity_d", latentMatch(denoisedSpace, 0, 1))
	register("latent_match_sdxl_pattern_d", latentMatch(denoisedSpace, 3, 4))

	register("mean", meanPolicy(stateSpace, false))
	register("mean_d", meanPolicy(denoisedSpace, false))
	register("zmean_d", meanPolicy(denoisedSpace, true))

	register("median", medianPolicy(stateSpace, false))
	register("median_d", medianPolicy(denoisedSpace, false))
	register("zmedian_d", medianPolicy(denoisedSpace, true))

	register("gradient_max", gradient(stateSpace, false, true))
	register("gradient_min", gradient(stateSpace, false, false))
	register("gradient_max_d", gradient(denoisedSpace, false, true))
	register("gradient_min_d", gradient(denoisedSpace, false, false))
	register("gradient_max_full", gradient(stateSpace, true, true))
	register("gradient_min_full", gradient(stateSpace, true, false))
	register("gradient_max_full_d", gradient(denoisedSpace, true, true))
	register("gradient_min_full_d", gradient(denoisedSpace, true, false))
}

// latentMatch minimizes Euclidean distance to the reference tensor,
// optionally restricted to the channel range [chLo, chHi).
func latentMatch(sp space, chLo, chHi int) scoreFunc {
	return func(t *explore.Tree, o Options) (int, error) {
		if o.Reference == nil {
			return 0, fmt.Errorf("latent_match requires a reference tensor")
		}
		ref := o.Reference
		if chHi > chLo {
			ref = ref.Channels(chLo, chHi)
		}
		leaves := leafValues(t, sp)
		scores := make([]float64, len(leaves))
		for n, leaf := range leaves {
			if chHi > chLo {
				leaf = leaf.Channels(chLo, chHi)
			}
			scores[n] = leaf.Distance(ref)
		}
		return argMin(scores), nil
	}
}

// meanPolicy scores each leaf by its distance to the leaf centroid:
// consensus seeking when minimizing, outlier seeking when inverted.
func meanPolicy(sp space, invert bool) scoreFunc {
	return func(t *explore.Tree, _ Options) (int, error) {
		leaves := leafValues(t, sp)
		centroid := tensor.New(leaves[0].Shape...)
		for _, leaf := range leaves {
			centroid.AccumScaled(leaf, 1/float64(len(leaves)))
		}
		scores := make([]float64, len(leaves))
		for n, leaf := range leaves {
			scores[n] = leaf.Distance(centroid)
		}
		if invert {
			return argMax(scores), nil
		}
		return argMin(scores), nil
	}
}

// medianPolicy scores each leaf by the median of its pairwise distances to
// every other leaf: mode seeking when minimizing, inverted for zmedian.
func medianPolicy(sp space, invert bool) scoreFunc {
	return func(t *explore.Tree, _ Options) (int, error) {
		leaves := leafValues(t, sp)
		scores := make([]float64, len(leaves))
		for m, leaf := range leaves {
			dists := make([]float64, 0, len(leaves)-1)
			for n, other := range leaves {
				if m != n {
					dists = append(dists, leaf.Distance(other))
				}
			}
			scores[m] = median(dists)
		}
		if invert {
			return argMax(scores), nil
		}
		return argMin(scores), nil
	}
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}

// gradient scores each leaf by displacement norm, measured from the root
// state for the "full" variants and from the origin otherwise.
func gradient(sp space, fromRoot, max bool) scoreFunc {
	return func(t *explore.Tree, _ Options) (int, error) {
		leaves := leafValues(t, sp)
		scores := make([]float64, len(leaves))
		for n, leaf := range leaves {
			if fromRoot {
				scores[n] = leaf.Distance(t.Root().X)
			} else {
				scores[n] = leaf.Norm()
			}
		}
		if max {
			return argMax(scores), nil
		}
		return argMin(scores), nil
	}
}
