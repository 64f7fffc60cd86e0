package sampler

import (
	"fmt"
	"math"

	"github.com/drozbay/RES4LYF/tableau"
	"github.com/drozbay/RES4LYF/tensor"
)

// Options tunes one sampling run.
type Options struct {
	// Eta scales the stochastic share of each transition. 0 keeps sampling
	// fully deterministic.
	Eta float64
	// SNoise scales the injected noise magnitude. 0 means 1.
	SNoise float64
	// ExternalNoise, when set, is blended into every injected draw.
	ExternalNoise *tensor.Tensor
	// DenoiseToZero controls whether a trailing zero noise level spends one
	// more model call to land on the clean estimate. Without it the run stops
	// at the last positive level.
	DenoiseToZero bool
	Progress      ProgressFunc
}

func (o Options) sNoise() float64 {
	if o.SNoise == 0 {
		return 1
	}
	return o.SNoise
}

// Sample walks x through the given noise schedule, one macro-step per
// adjacent pair of levels, and returns the final state. The schedule must be
// strictly decreasing; a trailing 0 is handled per Options.DenoiseToZero.
func (it *Integrator) Sample(x *tensor.Tensor, sigmas []float64, opts Options) (*tensor.Tensor, error) {
	if len(sigmas) < 2 {
		return nil, fmt.Errorf("sampler: schedule needs at least two levels, got %d", len(sigmas))
	}
	exponential := tableau.IsExponential(it.method)

	for i := 0; i < len(sigmas)-1; i++ {
		sigma, sigmaNext := sigmas[i], sigmas[i+1]

		if sigmaNext <= 0 {
			if !opts.DenoiseToZero {
				break
			}
			out, err := it.model.Denoise(x, sigma)
			if err != nil {
				return nil, fmt.Errorf("sampler: terminal denoise: %w", err)
			}
			x = guide(out, it.guidanceWeight)
			if opts.Progress != nil {
				opts.Progress(Progress{
					Step: i, Sigma: sigma, SigmaHat: sigma, SigmaNext: 0,
					X: x, Denoised: x, Denoised2: x,
				})
			}
			break
		}

		sigmaDown, sigmaUp, alphaRatio := AncestralStep(sigma, sigmaNext, opts.Eta)
		h := stepSize(sigma, sigmaDown, exponential)

		res, err := it.Step(x, StepContext{
			Sigma:     sigma,
			SigmaNext: sigmaNext,
			SigmaDown: sigmaDown,
			H:         h,
			Index:     i,
		})
		if err != nil {
			return nil, err
		}
		x = it.Inject(res.X, sigma, sigmaNext, sigmaUp, alphaRatio, opts.sNoise(), opts.ExternalNoise)

		if opts.Progress != nil {
			opts.Progress(Progress{
				Step: i, Sigma: sigma, SigmaHat: sigma, SigmaNext: sigmaNext,
				X: x, Denoised: res.Denoised, Denoised2: res.Denoised2,
			})
		}
	}
	return x, nil
}

// stepSize measures the deterministic transition σ → σ_down in the method's
// time coordinate.
func stepSize(sigma, sigmaDown float64, exponential bool) float64 {
	if exponential {
		// t = −ln σ, so h = t(σ_down) − t(σ) = ln(σ/σ_down).
		return math.Log(sigma / sigmaDown)
	}
	return sigmaDown - sigma
}
