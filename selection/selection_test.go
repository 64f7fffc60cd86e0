package selection

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drozbay/RES4LYF/explore"
	"github.com/drozbay/RES4LYF/tensor"
)

func vec(vals ...float64) *tensor.Tensor {
	return tensor.FromSlice(vals, 1, 1, len(vals))
}

// leafTree builds a depth-1 tree with the given leaf states. Denoised2
// mirrors the state scaled by 0.9 so state- and denoised-space policies stay
// distinguishable.
func leafTree(root *tensor.Tensor, leaves ...*tensor.Tensor) *explore.Tree {
	t := explore.NewTree(1, len(leaves))
	t.Root().X = root
	for i, leaf := range leaves {
		n := t.At(1, i)
		n.X = leaf
		n.XHat = root
		n.Denoised2 = leaf.Scale(0.9)
	}
	return t
}

func mustSelect(t *testing.T, name string, tree *explore.Tree, o Options) int {
	t.Helper()
	sel, err := New(name, o)
	require.NoError(t, err)
	idx, err := sel.Select(tree)
	require.NoError(t, err)
	return idx
}

func TestUnknownPolicy(t *testing.T) {
	_, err := New("best_guess", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}

func TestRegistryComplete(t *testing.T) {
	want := []string{
		"cos_similarity", "cos_similarity_d",
		"cos_linearity", "cos_linearity_d",
		"cos_perpendicular", "cos_perpendicular_d",
		"cos_reversal",
		"latent_match", "latent_match_d",
		"latent_match_sdxl_color_d", "latent_match_sdxl_luminosity_d", "latent_match_sdxl_pattern_d",
		"mean", "mean_d", "zmean_d",
		"median", "median_d", "zmedian_d",
		"gradient_max", "gradient_min", "gradient_max_d", "gradient_min_d",
		"gradient_max_full", "gradient_min_full", "gradient_max_full_d", "gradient_min_full_d",
	}
	got := Names()
	assert.ElementsMatch(t, want, got)
}

func TestSingletonIsNoOp(t *testing.T) {
	tree := leafTree(vec(0, 0), vec(1, 2))
	for _, name := range Names() {
		// Even policies whose inputs are missing must accept a singleton.
		idx := mustSelect(t, name, tree, Options{})
		assert.Zero(t, idx, name)
	}
}

// Brute-force check of the mean policy: the chosen leaf is Euclidean-nearest
// to the arithmetic mean of all leaves.
func TestMeanMatchesBruteForce(t *testing.T) {
	leaves := []*tensor.Tensor{
		vec(1, 0, 0), vec(0, 2, 0), vec(0.4, 0.5, 0.1), vec(-3, 1, 2), vec(0.2, 0.6, 0),
	}
	tree := leafTree(vec(0, 0, 0), leaves...)

	mean := tensor.New(1, 1, 3)
	for _, l := range leaves {
		mean.AccumScaled(l, 1.0/float64(len(leaves)))
	}
	best, bestDist := 0, math.Inf(1)
	for i, l := range leaves {
		if d := l.Distance(mean); d < bestDist {
			best, bestDist = i, d
		}
	}

	assert.Equal(t, best, mustSelect(t, "mean", tree, Options{}))
}

func TestZMeanPicksOutlier(t *testing.T) {
	tree := leafTree(vec(0, 0),
		vec(1, 1), vec(1.1, 1), vec(0.9, 1), vec(50, -20))
	assert.Equal(t, 3, mustSelect(t, "zmean_d", tree, Options{}))
}

func TestMedianSeeksConsensus(t *testing.T) {
	tree := leafTree(vec(0, 0),
		vec(1, 1), vec(1.2, 1), vec(1.1, 0.9), vec(40, 40))
	got := mustSelect(t, "median", tree, Options{})
	assert.NotEqual(t, 3, got, "the outlier cannot win a consensus policy")

	assert.Equal(t, 3, mustSelect(t, "zmedian_d", tree, Options{}))
}

func TestLatentMatch(t *testing.T) {
	ref := vec(10, 10)
	tree := leafTree(vec(0, 0),
		vec(1, 1), vec(9, 9), vec(-4, 2))

	assert.Equal(t, 1, mustSelect(t, "latent_match", tree, Options{Reference: ref}))

	sel, err := New("latent_match", Options{})
	require.NoError(t, err)
	_, err = sel.Select(tree)
	assert.Error(t, err, "missing reference must fail, not fall through")
}

func TestLatentMatchChannelRestricted(t *testing.T) {
	// Shape [1, 4, 1]: one value per channel. Color variants compare
	// channels 1:3 only.
	mk := func(vals ...float64) *tensor.Tensor {
		return tensor.FromSlice(vals, 1, 4, 1)
	}
	ref := mk(0, 5, 5, 0)

	tree := explore.NewTree(1, 2)
	tree.Root().X = mk(0, 0, 0, 0)
	// Leaf 0 matches ref on channels 1:3 but is far away elsewhere.
	a := tree.At(1, 0)
	a.X = mk(99, 0, 0, 99)
	a.XHat = tree.Root().X
	a.Denoised2 = mk(99, 5, 5, 99)
	// Leaf 1 is closer overall but wrong on the color channels.
	b := tree.At(1, 1)
	b.X = mk(0, 0, 0, 0)
	b.XHat = tree.Root().X
	b.Denoised2 = mk(0, 0, 0, 0)

	assert.Equal(t, 0, mustSelect(t, "latent_match_sdxl_color_d", tree, Options{Reference: ref}))
	assert.Equal(t, 1, mustSelect(t, "latent_match_d", tree, Options{Reference: ref}))
}

func TestGradientPolicies(t *testing.T) {
	root := vec(5, 5)
	tree := leafTree(root, vec(1, 0), vec(6, 8), vec(5, 5.1))

	assert.Equal(t, 1, mustSelect(t, "gradient_max", tree, Options{}))
	assert.Equal(t, 0, mustSelect(t, "gradient_min", tree, Options{}))
	// Relative to the root, leaf 0 is the farthest and leaf 2 the nearest.
	assert.Equal(t, 0, mustSelect(t, "gradient_max_full", tree, Options{}))
	assert.Equal(t, 2, mustSelect(t, "gradient_min_full", tree, Options{}))
}

func TestCosReversal(t *testing.T) {
	// width 2, depth 2: leaf paths share the depth-1 ancestors.
	tr := explore.NewTree(2, 2)
	tr.Root().X = vec(0, 0)
	fill := func(depth, idx int, x *tensor.Tensor) {
		n := tr.At(depth, idx)
		n.X = x
		n.XHat = tr.Root().X
		n.Denoised2 = x
	}
	fill(1, 0, vec(1, 0))
	fill(1, 1, vec(0, 1))
	// Children of (1,0): one continues, one reverses hard.
	fill(2, 0, vec(2, 0))      // edge (1,0)->(2,0) = +x: cos +1
	fill(2, 1, vec(0.5, 0.1))  // edge mostly -x: reversal ~ -0.98
	// Children of (1,1): both continue.
	fill(2, 2, vec(0, 2))
	fill(2, 3, vec(0.1, 2))

	assert.Equal(t, 1, mustSelect(t, "cos_reversal", tr, Options{}))
}

func TestCosReversalFallsBackToFirstLeaf(t *testing.T) {
	tr := explore.NewTree(2, 2)
	tr.Root().X = vec(0, 0)
	for d := 1; d <= 2; d++ {
		for i := range tr.Level(d) {
			n := tr.At(d, i)
			n.X = vec(float64(d), float64(i)*0.01)
			n.XHat = tr.Root().X
			n.Denoised2 = n.X
		}
	}
	assert.Equal(t, 0, mustSelect(t, "cos_reversal", tr, Options{}))
}

func TestCosSimilarityPrefersContinuation(t *testing.T) {
	tr2 := explore.NewTree(2, 2)
	tr2.Root().X = vec(0, 0)
	set := func(d, i int, x *tensor.Tensor) {
		n := tr2.At(d, i)
		n.X = x
		n.XHat = tr2.Root().X
		n.Denoised2 = x
	}
	set(1, 0, vec(1, 0))
	set(1, 1, vec(1, 0))
	set(2, 0, vec(3, 0))  // straight ahead from both depth-1 nodes
	set(2, 1, vec(1, -2)) // sideways
	set(2, 2, vec(3, 0.1))
	set(2, 3, vec(1, 2))

	got := mustSelect(t, "cos_similarity", tr2, Options{})
	assert.Contains(t, []int{0, 2}, got, "a continuing leaf must beat a perpendicular one")
}

func TestCosPerpendicularPrefersOrthogonal(t *testing.T) {
	tr := explore.NewTree(2, 2)
	tr.Root().X = vec(0, 0)
	set := func(d, i int, x *tensor.Tensor) {
		n := tr.At(d, i)
		n.X = x
		n.XHat = tr.Root().X
		n.Denoised2 = x
	}
	set(1, 0, vec(1, 0))
	set(1, 1, vec(1, 0))
	set(2, 0, vec(3, 0))  // parallel to the depth-1 edges
	set(2, 1, vec(1, 2))  // orthogonal to them
	set(2, 2, vec(3, 0))
	set(2, 3, vec(1, -2))

	got := mustSelect(t, "cos_perpendicular", tr, Options{})
	assert.Contains(t, []int{1, 3}, got)
}

func TestZeroNormLeavesDoNotPoisonCosine(t *testing.T) {
	tr := explore.NewTree(2, 2)
	tr.Root().X = vec(0, 0)
	set := func(d, i int, x *tensor.Tensor) {
		n := tr.At(d, i)
		n.X = x
		n.XHat = tr.Root().X
		n.Denoised2 = x
	}
	// A degenerate edge of zero length at depth 1.
	set(1, 0, vec(0, 0))
	set(1, 1, vec(1, 0))
	set(2, 0, vec(0, 0))
	set(2, 1, vec(2, 0))
	set(2, 2, vec(2, 0))
	set(2, 3, vec(1, 1))

	for _, name := range []string{"cos_similarity", "cos_linearity", "cos_perpendicular", "cos_reversal"} {
		idx := mustSelect(t, name, tr, Options{})
		assert.GreaterOrEqual(t, idx, 0, name)
		assert.Less(t, idx, 4, name)
	}
}
