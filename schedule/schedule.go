// Package schedule builds the decreasing noise-level sequences a sampling
// run walks through. Every constructor returns n positive levels followed by
// a trailing 0, the conventional terminal marker.
package schedule

import "math"

// Exponential spaces levels geometrically between sigmaMax and sigmaMin.
// This is the natural schedule for exponential integrators, whose time
// coordinate is −ln σ: the step size h is then constant across the run.
func Exponential(n int, sigmaMin, sigmaMax float64) []float64 {
	out := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		out = append(out, math.Exp(math.Log(sigmaMax)+frac*(math.Log(sigmaMin)-math.Log(sigmaMax))))
	}
	return append(out, 0)
}

// Karras spaces levels by the rho-power rule of Karras et al. (2022),
// concentrating steps near sigmaMin. rho <= 0 selects the customary 7.
func Karras(n int, sigmaMin, sigmaMax, rho float64) []float64 {
	if rho <= 0 {
		rho = 7
	}
	out := make([]float64, 0, n+1)
	minInv := math.Pow(sigmaMin, 1/rho)
	maxInv := math.Pow(sigmaMax, 1/rho)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		out = append(out, math.Pow(maxInv+frac*(minInv-maxInv), rho))
	}
	return append(out, 0)
}

// Linear spaces levels uniformly in σ.
func Linear(n int, sigmaMin, sigmaMax float64) []float64 {
	out := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		out = append(out, sigmaMax+frac*(sigmaMin-sigmaMax))
	}
	return append(out, 0)
}

// At reads a per-step schedule, holding the last value when the index runs
// past the end. An empty schedule reads as 0.
func At(s []float64, i int) float64 {
	if len(s) == 0 {
		return 0
	}
	if i >= len(s) {
		return s[len(s)-1]
	}
	if i < 0 {
		return s[0]
	}
	return s[i]
}

// Broadcast expands a scalar into an n-element constant schedule.
func Broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
