package explore

import (
	"fmt"
	"math"

	"github.com/drozbay/RES4LYF/sampler"
	"github.com/drozbay/RES4LYF/schedule"
	"github.com/drozbay/RES4LYF/tensor"
)

// Selector collapses a filled tree to one accepted leaf, returning its index
// into the deepest level. Selection of a singleton set must return 0.
type Selector interface {
	Select(t *Tree) (int, error)
}

// GuideFunc post-processes the accepted state once per outer iteration.
// Implementations must be order-preserving transforms of x.
type GuideFunc func(x *tensor.Tensor, step int, sigmaNext float64) *tensor.Tensor

// Options tunes one branching run. The per-step schedules are read through
// schedule.At, so a single-element slice acts as a constant.
type Options struct {
	Depth int
	Width int

	// Eta inflates the per-branch anchor noise: σ̂ = σ·(1+η).
	Eta []float64
	// Momentum, C2 and CFG feed the second-order stepper per step.
	Momentum []float64
	C2       []float64
	CFG      []float64
	// EulersMom weights the first-order correction applied to the accepted
	// leaf; Offset shifts the accepted state by σ_next·offset.
	EulersMom []float64
	Offset    []float64
	// Alpha retunes the noise source's spectral exponent per step, when the
	// source supports it.
	Alpha []float64

	SimplePhi     bool
	DenoiseToZero bool
	Guide         GuideFunc
	Progress      sampler.ProgressFunc
}

func (o Options) depth() int {
	if o.Depth < 1 {
		return 1
	}
	return o.Depth
}

func (o Options) width() int {
	if o.Width < 1 {
		return 1
	}
	return o.Width
}

// spectral is the optional retuning surface of a noise source.
type spectral interface {
	SetAlpha(alpha float64)
}

// Explorer runs the branching sampler. One Explorer owns one tree arena and
// its momentum velocities for the lifetime of a run.
type Explorer struct {
	model    sampler.Model
	noise    sampler.NoiseSource
	selector Selector
	opts     Options
	tree     *Tree
}

// NewExplorer wires the branching sampler's collaborators. The selector is
// mandatory; use the trivial singleton selector for width 1.
func NewExplorer(model sampler.Model, src sampler.NoiseSource, sel Selector, opts Options) (*Explorer, error) {
	if model == nil || src == nil || sel == nil {
		return nil, fmt.Errorf("explore: model, noise source and selector are all required")
	}
	return &Explorer{
		model:    model,
		noise:    src,
		selector: sel,
		opts:     opts,
		tree:     NewTree(opts.depth(), opts.width()),
	}, nil
}

// Sample walks x through the noise schedule, expanding a width^depth tree
// per outer iteration and accepting one leaf. The schedule index advances by
// the tree depth per iteration, one level per adjacent σ pair.
func (e *Explorer) Sample(x *tensor.Tensor, sigmas []float64) (*tensor.Tensor, error) {
	if len(sigmas) < 2 {
		return nil, fmt.Errorf("explore: schedule needs at least two levels, got %d", len(sigmas))
	}
	depth := e.opts.depth()
	sigmaMax := sigmas[0]

	var prevAccepted *tensor.Tensor
	var sigma, sigmaHat, sigmaNext float64

	// A tree consumes depth schedule levels; starting one without that many
	// positive levels left would push a branch to σ = 0 mid-tree.
	i := 0
	for i+depth < len(sigmas) && sigmas[i+depth] > 0 {
		e.tree.Reset()
		e.tree.Root().X = x

		for d := 1; d <= depth; d++ {
			sigma = sigmas[i]
			sigmaNext = sigmas[i+1]
			sigmaHat = sigma * (1 + schedule.At(e.opts.Eta, i))
			if s, ok := e.noise.(spectral); ok && len(e.opts.Alpha) > 0 {
				s.SetAlpha(schedule.At(e.opts.Alpha, i))
			}
			inflate := math.Sqrt(sigmaHat*sigmaHat - sigma*sigma)

			for idx := 0; idx < len(e.tree.Level(d)); idx++ {
				parent := e.tree.Parent(d, idx)
				node := e.tree.At(d, idx)

				xh := parent.X
				if inflate > 0 {
					xh = parent.X.AddScaled(e.noise.Sample(sigma, sigmaNext), inflate)
				}
				out, err := SecondOrderStep(e.model, xh, sigmaHat, sigmaNext, node.Vel, node.Vel2, StepParams{
					C2:        schedule.At(e.opts.C2, i),
					Momentum:  schedule.At(e.opts.Momentum, i),
					Timescale: sigma / sigmaMax,
					CFG:       schedule.At(e.opts.CFG, i),
					SimplePhi: e.opts.SimplePhi,
				})
				if err != nil {
					return nil, err
				}
				node.XHat = xh
				node.X = out.X
				node.Denoised = out.Denoised
				node.Denoised2 = out.Denoised2
				node.Vel = out.Vel
				node.Vel2 = out.Vel2
			}
			i++
		}

		// Path-relative policies measure displacement from the previously
		// accepted clean estimate rather than the raw noised root.
		if prevAccepted != nil {
			e.tree.Root().X = prevAccepted
		}
		leafIdx, err := e.selector.Select(e.tree)
		if err != nil {
			return nil, err
		}
		leaf := e.tree.At(depth, leafIdx)
		xNext := leaf.X
		prevAccepted = leaf.Denoised2

		// First-order correction along the accepted edge.
		if em := schedule.At(e.opts.EulersMom, i); em != 0 {
			deriv := leaf.XHat.Sub(xNext).Scale(1 / sigmaHat)
			xNext = xNext.AddScaled(deriv, em*(sigmaNext-sigmaHat))
		}

		if e.opts.Progress != nil {
			e.opts.Progress(sampler.Progress{
				Step: i, Sigma: sigma, SigmaHat: sigmaHat, SigmaNext: sigmaNext,
				X: xNext, Denoised: leaf.Denoised, Denoised2: leaf.Denoised2,
			})
		}

		x = xNext
		if off := schedule.At(e.opts.Offset, i); off != 0 {
			x = x.AddConst(-sigmaNext * off)
		}
		if e.opts.Guide != nil {
			x = e.opts.Guide(x, i, sigmaNext)
		}
	}

	if e.opts.DenoiseToZero {
		finalEta := schedule.At(e.opts.Eta, len(sigmas)-1)
		xh := x
		sigmaHat = sigma * (1 + finalEta)
		if inflate := math.Sqrt(sigmaHat*sigmaHat - sigma*sigma); inflate > 0 {
			xh = x.AddScaled(e.noise.Sample(sigma, sigmaNext), inflate)
		}
		out, err := e.model.Denoise(xh, 0)
		if err != nil {
			return nil, fmt.Errorf("explore: terminal denoise: %w", err)
		}
		x = out.Denoised
	}
	return x, nil
}
