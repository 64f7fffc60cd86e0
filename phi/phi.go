// Package phi evaluates the φ-functions of exponential integrators.
//
// φ_j(−h) arises from exactly integrating the linear part of the probability
// flow ODE:
//
//	φ_j(−h) = (1/h^j) ∫₀ʰ e^(τ−h) τ^(j−1)/(j−1)! dτ
//
// Two evaluation paths are provided: closed forms for j ∈ {1,2,3} built on
// expm1 to avoid cancellation near h ≈ 0, and a general integer-order path
// through the regularized upper incomplete gamma function. The two agree to
// well under 1e-6 over the step sizes used in sampling.
package phi

import "math"

// Below this magnitude the series limit is returned directly; the direct
// formulas divide by negH^j and lose all significance.
const tiny = 1e-13

// Phi1 returns φ_1(negH) = (e^negH − 1)/negH, with limit 1 as negH → 0.
func Phi1(negH float64) float64 {
	if math.Abs(negH) < tiny {
		return 1.0
	}
	return math.Expm1(negH) / negH
}

// Phi2 returns φ_2(negH) = (e^negH − 1 − negH)/negH², with limit 1/2.
func Phi2(negH float64) float64 {
	if math.Abs(negH) < tiny {
		return 0.5
	}
	return (math.Expm1(negH) - negH) / (negH * negH)
}

// Phi3 returns φ_3(negH) = (e^negH − 1 − negH − negH²/2)/negH³, with limit 1/6.
func Phi3(negH float64) float64 {
	if math.Abs(negH) < tiny {
		return 1.0 / 6.0
	}
	return (math.Expm1(negH) - negH - negH*negH/2) / (negH * negH * negH)
}

// Gamma returns Γ(n) = (n−1)! for positive integer n.
func Gamma(n int) float64 {
	out := 1.0
	for k := 2; k < n; k++ {
		out *= float64(k)
	}
	return out
}

// upperIncompleteGamma returns Γ(s, x) for positive integer s:
//
//	Γ(s, x) = (s−1)! e^(−x) Σ_{k=0..s−1} x^k/k!
//
// The finite sum is exact for integer s and remains valid for negative x.
func upperIncompleteGamma(s int, x float64, gammaS float64) float64 {
	sum := 0.0
	term := 1.0 // x^k / k!
	for k := 0; k < s; k++ {
		if k > 0 {
			term *= x / float64(k)
		}
		sum += term
	}
	return sum * math.Exp(-x) * gammaS
}

// Below this magnitude the gamma identity subtracts two quantities that are
// both ≈1 and the negH^(−j) factor amplifies the cancellation, so the Taylor
// series takes over. It converges factorially and needs under twenty terms
// at this cutoff.
const seriesCutoff = 0.25

// phiSeries evaluates φ_j by its Taylor expansion Σ_{k≥0} x^k/(j+k)!.
func phiSeries(j int, x float64) float64 {
	term := 1.0 / Gamma(j+1)
	sum := term
	for k := 1; k <= 24; k++ {
		term *= x / float64(j+k)
		sum += term
		if math.Abs(term) <= math.Abs(sum)*1e-17 {
			break
		}
	}
	return sum
}

// Phi returns φ_j(negH) for any positive integer j. Small arguments use the
// Taylor series; elsewhere the incomplete gamma identity applies:
//
//	φ_j(negH) = e^negH · negH^(−j) · (1 − Γ(j, negH)/Γ(j))
func Phi(j int, negH float64) float64 {
	if j <= 0 {
		panic("phi: order must be positive")
	}
	if math.Abs(negH) < seriesCutoff {
		return phiSeries(j, negH)
	}
	gammaJ := Gamma(j)
	incomplete := upperIncompleteGamma(j, negH, gammaJ)
	return math.Exp(negH) * math.Pow(negH, float64(-j)) * (1 - incomplete/gammaJ)
}
