// Package sampler implements the macro-step evaluator and outer sampling loop
// for tableau-driven diffusion integration. One Integrator owns the state
// carried between outer steps — the FSAL slot, the multistep history ring,
// and the previous step size — for the lifetime of one sampling run.
package sampler

import "github.com/drozbay/RES4LYF/tensor"

// Output is what one denoiser invocation returns. Uncond is the unconditional
// estimate and is only populated when guidance correction was requested; it
// is a structured return, not a captured side channel.
type Output struct {
	Denoised *tensor.Tensor
	Uncond   *tensor.Tensor
}

// Model is the denoising oracle. Given a noised state and its noise level it
// predicts the clean sample. Implementations must return a tensor of the same
// shape as x. Errors abort the sampling run; there is no retry.
type Model interface {
	Denoise(x *tensor.Tensor, sigma float64) (*Output, error)
}

// NoiseSource draws a noise tensor for the transition between two noise
// levels. Implementations may be stateful and keyed by a seed.
type NoiseSource interface {
	Sample(sigma, sigmaNext float64) *tensor.Tensor
}

// Progress is delivered to the progress collaborator once per outer
// iteration.
type Progress struct {
	Step      int
	Sigma     float64
	SigmaHat  float64
	SigmaNext float64
	X         *tensor.Tensor
	Denoised  *tensor.Tensor
	Denoised2 *tensor.Tensor
}

// ProgressFunc receives per-iteration progress. The return value of the
// collaborator is unused, so the signature has none.
type ProgressFunc func(Progress)

// guide blends a conditional estimate toward or past the unconditional one:
// corrected = uncond + w·(cond − uncond). Weight 0 disables correction, and a
// missing unconditional estimate leaves the raw prediction untouched.
func guide(out *Output, weight float64) *tensor.Tensor {
	if weight == 0 || out.Uncond == nil {
		return out.Denoised
	}
	return tensor.Lerp(out.Uncond, out.Denoised, weight)
}
