// Package noise provides seeded noise generators satisfying the sampling
// loop's NoiseSource contract. Generators are deterministic for a given seed
// so runs are reproducible.
package noise

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/drozbay/RES4LYF/tensor"
)

// ErrUnknownGenerator is returned when a generator identifier does not
// resolve. Unmatched identifiers fail fast; there is no silent default.
var ErrUnknownGenerator = errors.New("noise: unknown generator")

// Options tunes a generator. Alpha and K only affect the fractal generator.
type Options struct {
	Seed int64
	// Alpha is the fractal spectral exponent: 0 is white noise, positive
	// values weight coarse scales more heavily.
	Alpha float64
	// K scales the fractal octave falloff base. 0 means 2.
	K float64
}

type factory func(shape []int, o Options) Source

var generators = map[string]factory{
	"gaussian": newGaussian,
	"brownian": newBrownian,
	"fractal":  newFractal,
}

// Source extends the sampler's NoiseSource contract with a mutable spectral
// shape, so per-step schedules can retune the fractal generator mid-run.
type Source interface {
	Sample(sigma, sigmaNext float64) *tensor.Tensor
	SetAlpha(alpha float64)
}

// New builds a named generator producing tensors of the given shape. It
// wraps ErrUnknownGenerator when the identifier is unrecognized.
func New(name string, shape []int, o Options) (Source, error) {
	f, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	return f(shape, o), nil
}

// Names returns the sorted list of registered generator identifiers.
func Names() []string {
	out := make([]string, 0, len(generators))
	for name := range generators {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type gaussian struct {
	shape []int
	rng   *rand.Rand
}

func newGaussian(shape []int, o Options) Source {
	return &gaussian{shape: append([]int(nil), shape...), rng: rand.New(rand.NewSource(o.Seed))}
}

func (g *gaussian) Sample(_, _ float64) *tensor.Tensor {
	t := tensor.New(g.shape...)
	for i := range t.Data {
		t.Data[i] = g.rng.NormFloat64()
	}
	return t
}

func (g *gaussian) SetAlpha(float64) {}

// brownian scales each draw by the square root of the σ interval, matching
// the variance of a Wiener increment over that span.
type brownian struct {
	gaussian
}

func newBrownian(shape []int, o Options) Source {
	return &brownian{gaussian{shape: append([]int(nil), shape...), rng: rand.New(rand.NewSource(o.Seed))}}
}

func (b *brownian) Sample(sigma, sigmaNext float64) *tensor.Tensor {
	t := b.gaussian.Sample(sigma, sigmaNext)
	scale := math.Sqrt(math.Abs(sigma - sigmaNext))
	if scale == 0 {
		scale = 1
	}
	for i := range t.Data {
		t.Data[i] *= scale
	}
	return t
}

// fractal mixes white-noise octaves at dyadic block scales with weights
// k^(−alpha·octave), approximating a power-law spectrum over the flattened
// state. alpha=0 reduces to plain Gaussian noise.
type fractal struct {
	shape []int
	rng   *rand.Rand
	alpha float64
	k     float64
}

func newFractal(shape []int, o Options) Source {
	k := o.K
	if k == 0 {
		k = 2
	}
	return &fractal{
		shape: append([]int(nil), shape...),
		rng:   rand.New(rand.NewSource(o.Seed)),
		alpha: o.Alpha,
		k:     k,
	}
}

func (f *fractal) SetAlpha(alpha float64) { f.alpha = alpha }

func (f *fractal) Sample(_, _ float64) *tensor.Tensor {
	t := tensor.New(f.shape...)
	n := len(t.Data)
	octaves := 1
	for 1<<octaves < n && octaves < 16 {
		octaves++
	}
	for o := 0; o < octaves; o++ {
		block := 1 << o
		weight := math.Pow(f.k, -f.alpha*float64(o))
		if weight == 0 {
			break
		}
		var v float64
		for i := 0; i < n; i++ {
			if i%block == 0 {
				v = f.rng.NormFloat64()
			}
			t.Data[i] += weight * v
		}
	}
	return t.Normalize()
}
