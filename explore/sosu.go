package explore

import (
	"fmt"
	"math"

	"github.com/drozbay/RES4LYF/phi"
	"github.com/drozbay/RES4LYF/sampler"
	"github.com/drozbay/RES4LYF/tensor"
)

// StepParams tunes one second-order single-update step.
type StepParams struct {
	// C2 is the partial step fraction for the intermediate stage; 0.5 is the
	// midpoint rule.
	C2 float64
	// Momentum blends each update with the slot's previous velocity.
	Momentum float64
	// Timescale modulates the momentum weight; callers pass σ/σ_max so the
	// blend fades as the run denoises.
	Timescale float64
	// CFG is the guidance-plus weight applied to the anchor before decay.
	CFG float64
	// SimplePhi selects the closed-form φ expressions over the general
	// incomplete-gamma path. The two agree to well under 1e-6.
	SimplePhi bool
}

// StepOutput is the result of one second-order single-update step.
type StepOutput struct {
	X         *tensor.Tensor
	Denoised  *tensor.Tensor
	Denoised2 *tensor.Tensor
	Vel       *tensor.Tensor
	Vel2      *tensor.Tensor
}

// momentumBlend mixes the current update with the slot's previous velocity:
// v' = m·(timescale+offset)·v + (1 − m·(timescale+offset))·update, with
// offset = −m/2. A nil velocity means no prior step, so the update passes
// through unchanged.
func momentumBlend(update, velocity *tensor.Tensor, momentum, timescale float64) *tensor.Tensor {
	if velocity == nil || momentum == 0 {
		return update
	}
	w := momentum * (timescale - momentum/2)
	return tensor.Lerp(update, velocity, w)
}

// SecondOrderStep advances x from sigma to sigmaNext with the RES
// second-order single-update rule: an intermediate stage at node c2 followed
// by a φ-weighted combination, both momentum-blended against the previous
// velocities. vel and vel2 may be nil on the first use of a slot.
func SecondOrderStep(model sampler.Model, x *tensor.Tensor, sigma, sigmaNext float64, vel, vel2 *tensor.Tensor, p StepParams) (*StepOutput, error) {
	c2 := p.C2
	if c2 == 0 {
		c2 = 0.5
	}
	h := math.Log(sigma / sigmaNext)

	var a21, b1, b2 float64
	if p.SimplePhi {
		a21 = c2 * phi.Phi1(-c2*h)
		b2 = phi.Phi2(-h) / c2
		b1 = phi.Phi1(-h) - b2
	} else {
		a21 = c2 * phi.Phi(1, -c2*h)
		b2 = phi.Phi(2, -h) / c2
		b1 = phi.Phi(1, -h) - b2
	}

	out, err := model.Denoise(x, sigma)
	if err != nil {
		return nil, fmt.Errorf("explore: first stage: %w", err)
	}
	denoised := out.Denoised

	// CFG++ shifts the anchor by w·(cond − uncond) before the exponential
	// decay is applied.
	anchor := x
	if p.CFG != 0 && out.Uncond != nil {
		anchor = x.Add(denoised.Sub(out.Uncond).Scale(p.CFG))
	}

	diff2 := momentumBlend(denoised.Scale(a21*h), vel2, p.Momentum, p.Timescale)
	x2 := anchor.Scale(math.Exp(-c2 * h)).Add(diff2)
	sigma2 := sigma * math.Exp(-c2*h)

	out2, err := model.Denoise(x2, sigma2)
	if err != nil {
		return nil, fmt.Errorf("explore: second stage: %w", err)
	}
	denoised2 := out2.Denoised

	update := denoised.Scale(b1).AccumScaled(denoised2, b2).Scale(h)
	diff := momentumBlend(update, vel, p.Momentum, p.Timescale)
	xNext := anchor.Scale(math.Exp(-h)).Add(diff)

	return &StepOutput{
		X:         xNext,
		Denoised:  denoised,
		Denoised2: denoised2,
		Vel:       diff,
		Vel2:      diff2,
	}, nil
}
