package guide

import "github.com/drozbay/RES4LYF/tensor"

// Light blends treat the overlay as a photometric layer over the base.
// Latent values are signed, so each blend operates on the base magnitude and
// restores the base sign afterward; the overlay is crushed into [0, 1]
// first. Visual semantics beyond these formulas are intentionally
// unspecified.

func blendElementwise(base, overlay *tensor.Tensor, f func(mag, bl float64) float64) *tensor.Tensor {
	bl := Crush(overlay)
	out := base.Clone()
	for i, b := range base.Data {
		mag := b
		neg := false
		if mag < 0 {
			mag, neg = -mag, true
		}
		r := f(mag, bl.Data[i])
		if neg {
			r = -r
		}
		out.Data[i] = r
	}
	return out
}

// HardLight doubles the product below the overlay midpoint and inverts the
// screen above it.
func HardLight(base, overlay *tensor.Tensor) *tensor.Tensor {
	return blendElementwise(base, overlay, func(mag, bl float64) float64 {
		if bl < 0.5 {
			return 2 * mag * bl
		}
		return 1 - 2*(1-mag)*(1-bl)
	})
}

// SoftLight darkens below the overlay midpoint and gently lightens above.
func SoftLight(base, overlay *tensor.Tensor) *tensor.Tensor {
	return blendElementwise(base, overlay, func(mag, bl float64) float64 {
		if bl > 0.5 {
			return 1 - (1-mag)*(1-(bl-0.5)*2)
		}
		return mag * (bl * 2)
	})
}

// LinearLight shifts the base by the overlay, centered on 0.5.
func LinearLight(base, overlay *tensor.Tensor) *tensor.Tensor {
	return blendElementwise(base, overlay, func(mag, bl float64) float64 {
		return mag + 2*bl - 1
	})
}

// VividLight burns below the overlay midpoint and dodges above it. The
// divisor vanishes at the extremes; those elements pass the base through.
func VividLight(base, overlay *tensor.Tensor) *tensor.Tensor {
	return blendElementwise(base, overlay, func(mag, bl float64) float64 {
		if bl > 0.5 {
			den := (bl - 0.5) * 2
			if den == 0 {
				return mag
			}
			return 1 - (1-mag)/den
		}
		den := 1 - (bl-0.5)*2
		if den == 0 {
			return mag
		}
		return mag / den
	})
}
