package tableau

import "github.com/drozbay/RES4LYF/phi"

// Exponential-integrator catalog. Coefficients come from φ-functions of the
// current step size, following Lemma 1 and Table 3 of the RES derivation
// (arXiv:2308.02157), so every builder here consumes Params.H.

func markExponential(t *Tableau) *Tableau {
	t.Exponential = true
	return t
}

// resGamma couples the second and third nodes of the three-stage RES method.
func resGamma(c2, c3 float64) float64 {
	return (3*(c3*c3*c3) - 2*c3) / (c2 * (2 - 3*c2))
}

func init() {
	register("ddim", func(p Params) *Tableau {
		return markExponential(fromButcher("ddim", 1, [][]float64{
			{phi.Phi1(-p.H)},
		}, []float64{0}))
	})

	register("res_2s", func(p Params) *Tableau { return res2s(p) })

	// res_2m reuses the previous step's denoised estimate in place of a
	// second stage evaluation. Without history it degrades to res_2s.
	register("res_2m", func(p Params) *Tableau {
		if !p.HasPrev {
			return res2s(p)
		}
		h := p.H
		c2 := -p.HPrev / h
		b2 := phi.Phi2(-h) / c2
		b1 := phi.Phi1(-h) - b2
		return markExponential(fromButcher("res_2m", 2, [][]float64{
			{b1, b2},
		}, []float64{0}))
	})

	register("res_3s", func(p Params) *Tableau {
		h, c2, c3 := p.H, p.c2(), p.c3()
		gamma := resGamma(c2, c3)
		a21 := c2 * phi.Phi1(-h*c2)
		a32 := gamma*c2*phi.Phi2(-h*c2) + (c3*c3/c2)*phi.Phi2(-h*c3)
		a31 := c3*phi.Phi1(-h*c3) - a32
		b3 := phi.Phi2(-h) / (gamma*c2 + c3)
		b2 := gamma * b3
		b1 := phi.Phi1(-h) - b2 - b3
		return markExponential(fromButcher("res_3s", 3, [][]float64{
			{a21, 0, 0},
			{a31, a32, 0},
			{b1, b2, b3},
		}, []float64{0, c2, c3}))
	})

	register("dpmpp_2s", func(p Params) *Tableau { return dpmpp2s("dpmpp_2s", 0.5, p) })
	register("dpmpp_sde_2s", func(p Params) *Tableau { return dpmpp2s("dpmpp_sde_2s", 1.0, p) })

	register("dpmpp_3s", func(p Params) *Tableau {
		h, c2, c3 := p.H, p.c2(), p.c3()
		a21 := c2 * phi.Phi1(-h*c2)
		a32 := (c3 * c3 / c2) * phi.Phi2(-h*c3)
		a31 := c3*phi.Phi1(-h*c3) - a32
		b3 := (1 / c3) * phi.Phi2(-h)
		b1 := phi.Phi1(-h) - b3
		return markExponential(fromButcher("dpmpp_3s", 3, [][]float64{
			{a21, 0, 0},
			{a31, a32, 0},
			{b1, 0, b3},
		}, []float64{0, c2, c3}))
	})
}

func res2s(p Params) *Tableau {
	h, c2 := p.H, p.c2()
	a21 := c2 * phi.Phi1(-h*c2)
	b2 := phi.Phi2(-h) / c2
	b1 := phi.Phi1(-h) - b2
	return markExponential(fromButcher("res_2s", 2, [][]float64{
		{a21, 0},
		{b1, b2},
	}, []float64{0, c2}))
}

// dpmpp2s builds the DPM-Solver++ two-stage tableau at a fixed midpoint.
func dpmpp2s(name string, c2 float64, p Params) *Tableau {
	h := p.H
	a21 := c2 * phi.Phi1(-h*c2)
	b1 := (1 - 1/(2*c2)) * phi.Phi1(-h)
	b2 := (1 / (2 * c2)) * phi.Phi1(-h)
	return markExponential(fromButcher(name, 2, [][]float64{
		{a21, 0},
		{b1, b2},
	}, []float64{0, c2}))
}
