package sampler

import (
	"math"

	"github.com/drozbay/RES4LYF/tensor"
)

// AncestralStep splits the transition σ → σ_next into a deterministic part
// and a stochastic part. Eta 0 gives a fully deterministic step
// (σ_down = σ_next, σ_up = 0); eta 1 is the fully ancestral step. σ_up is
// capped at σ_next so σ_down stays real. alphaRatio is the anchor decay
// applied alongside the injection; the variance-exploding parameterization
// used here leaves the anchor unscaled, so it is always 1.
func AncestralStep(sigma, sigmaNext, eta float64) (sigmaDown, sigmaUp, alphaRatio float64) {
	if eta == 0 || sigmaNext <= 0 {
		return sigmaNext, 0, 1
	}
	sigmaUp = eta * sigmaNext * math.Sqrt((sigma*sigma-sigmaNext*sigmaNext)/(sigma*sigma))
	if sigmaUp > sigmaNext {
		sigmaUp = sigmaNext
	}
	sigmaDown = math.Sqrt(sigmaNext*sigmaNext - sigmaUp*sigmaUp)
	return sigmaDown, sigmaUp, 1
}

// Inject applies the stochastic part of a step: the state decays by
// alphaRatio and is renoised from σ_down back up to σ_next using the
// integrator's noise source, x' = alphaRatio·x + noise·σ_up·sNoise. The draw
// is normalized to zero mean and unit variance before scaling. external,
// when non-nil, is blended into the draw with weight sNoise instead of
// scaling it.
//
// Injection invalidates the FSAL carry, since the state the carried estimate
// was computed against no longer exists.
func (it *Integrator) Inject(x *tensor.Tensor, sigma, sigmaNext, sigmaUp, alphaRatio, sNoise float64, external *tensor.Tensor) *tensor.Tensor {
	if sigmaNext == 0 || sigmaUp == 0 || it.noise == nil {
		return x
	}
	it.fsal = nil

	if alphaRatio != 1 {
		x = x.Scale(alphaRatio)
	}
	noise := it.noise.Sample(sigma, sigmaNext).Normalize()
	if external != nil {
		noise = tensor.Lerp(noise, external.Normalize(), sNoise)
		return x.AddScaled(noise, sigmaUp)
	}
	return x.AddScaled(noise, sigmaUp*sNoise)
}
