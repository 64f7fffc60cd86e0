// Package guide applies per-iteration latent guidance to the accepted state:
// subtractive and interpolating pulls toward a target tensor, plus the
// photometric light-blend family. Every application is an independent,
// order-preserving transform of the state.
package guide

import (
	"errors"
	"fmt"
	"sort"

	"github.com/drozbay/RES4LYF/explore"
	"github.com/drozbay/RES4LYF/schedule"
	"github.com/drozbay/RES4LYF/tensor"
)

// ErrUnknownMode is returned when a guide mode identifier does not resolve.
var ErrUnknownMode = errors.New("guide: unknown mode")

// Guide binds one target tensor to a blend mode and a per-step weight
// schedule. Channels, when non-nil, is a per-channel mask: 1 applies the
// guided value, 0 keeps the incoming state, fractions interpolate.
type Guide struct {
	Mode     string
	Target   *tensor.Tensor
	Weights  []float64
	Channels []float64
}

type applyFunc func(x, target *tensor.Tensor, w, sigmaNext float64) *tensor.Tensor

var modes = map[string]applyFunc{
	"subtract": func(x, g *tensor.Tensor, w, sn float64) *tensor.Tensor {
		return x.AddScaled(g, -sn*w)
	},
	"subtract_crushed": func(x, g *tensor.Tensor, w, sn float64) *tensor.Tensor {
		return x.AddScaled(Crush(g), -sn*w)
	},
	"lerp": func(x, g *tensor.Tensor, w, _ float64) *tensor.Tensor {
		return tensor.Lerp(x, g, w)
	},
	"lerp_crushed": func(x, g *tensor.Tensor, w, _ float64) *tensor.Tensor {
		return tensor.Lerp(x, Crush(g), w)
	},
	"scaled_lerp": func(x, g *tensor.Tensor, w, sn float64) *tensor.Tensor {
		return tensor.Lerp(x, g, w*sn)
	},
	"scaled_lerp_crushed": func(x, g *tensor.Tensor, w, sn float64) *tensor.Tensor {
		return tensor.Lerp(x, Crush(g), w*sn)
	},
	"hard_light": blendMode(HardLight, false),
	"hard_light_rev": blendMode(HardLight, true),
	"soft_light": blendMode(SoftLight, false),
	"soft_light_rev": blendMode(SoftLight, true),
	"linear_light": blendMode(LinearLight, false),
	"linear_light_rev": blendMode(LinearLight, true),
	"vivid_light": blendMode(VividLight, false),
	"vivid_light_rev": blendMode(VividLight, true),
}

// blendMode pulls the state toward the blend composite by weight w·σ_next.
// rev swaps the base and blend operands.
func blendMode(blend func(base, overlay *tensor.Tensor) *tensor.Tensor, rev bool) applyFunc {
	return func(x, g *tensor.Tensor, w, sn float64) *tensor.Tensor {
		var composite *tensor.Tensor
		if rev {
			composite = blend(g, x)
		} else {
			composite = blend(x, g)
		}
		return tensor.Lerp(x, composite, w*sn)
	}
}

// Modes returns the sorted list of registered mode identifiers.
func Modes() []string {
	out := make([]string, 0, len(modes))
	for name := range modes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewChain validates the guides and returns a function applying each in
// order. A guide with a nil target is skipped at apply time.
func NewChain(guides ...Guide) (explore.GuideFunc, error) {
	for _, g := range guides {
		if _, ok := modes[g.Mode]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, g.Mode)
		}
	}
	chain := append([]Guide(nil), guides...)
	return func(x *tensor.Tensor, step int, sigmaNext float64) *tensor.Tensor {
		for _, g := range chain {
			if g.Target == nil {
				continue
			}
			w := schedule.At(g.Weights, step)
			if w == 0 {
				continue
			}
			guided := modes[g.Mode](x, g.Target, w, sigmaNext)
			x = maskChannels(x, guided, g.Channels)
		}
		return x
	}, nil
}

// maskChannels blends the guided tensor back over x per-channel. A nil mask
// applies the guided value everywhere.
func maskChannels(x, guided *tensor.Tensor, mask []float64) *tensor.Tensor {
	if mask == nil {
		return guided
	}
	out := x.Clone()
	chans := x.Shape[1]
	inner := 1
	for _, d := range x.Shape[2:] {
		inner *= d
	}
	for b := 0; b < x.Shape[0]; b++ {
		for c := 0; c < chans; c++ {
			m := 0.0
			if c < len(mask) {
				m = mask[c]
			}
			base := (b*chans + c) * inner
			for i := base; i < base+inner; i++ {
				out.Data[i] += m * (guided.Data[i] - out.Data[i])
			}
		}
	}
	return out
}

// Crush rescales a tensor into [0, 1] by its own range. A constant tensor
// crushes to zeros.
func Crush(g *tensor.Tensor) *tensor.Tensor {
	lo, hi := g.Min(), g.Max()
	out := g.Clone()
	if hi == lo {
		for i := range out.Data {
			out.Data[i] = 0
		}
		return out
	}
	for i := range out.Data {
		out.Data[i] = (out.Data[i] - lo) / (hi - lo)
	}
	return out
}
