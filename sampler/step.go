package sampler

import (
	"fmt"
	"math"

	"github.com/drozbay/RES4LYF/tableau"
	"github.com/drozbay/RES4LYF/tensor"
)

// fsalTolerance bounds the relative σ mismatch under which the previous
// step's final stage may seed the next step's first.
const fsalTolerance = 1e-9

// StepContext describes one outer step. H is measured in the method's time
// coordinate: log-σ for exponential integrators, σ itself for linear ones.
// SigmaDown is the deterministic target level (equal to SigmaNext when no
// stochastic term is in play).
type StepContext struct {
	Sigma     float64
	SigmaNext float64
	SigmaDown float64
	H         float64
	Index     int
}

// StepResult is the output of one macro-step.
type StepResult struct {
	X          *tensor.Tensor // next anchor state
	Denoised   *tensor.Tensor // primary estimate: last fresh model prediction
	Denoised2  *tensor.Tensor // secondary estimate: combination-row readout
	ModelCalls int
}

// Integrator executes macro-steps of a named method against a model. It is
// not safe for concurrent use; sampling is fully synchronous by design.
type Integrator struct {
	model  Model
	noise  NoiseSource
	method string

	c2, c3         float64
	guidanceWeight float64
	historySize    int
	onStage        func(step, stage int)

	hPrev   float64
	hasPrev bool

	fsal      *tensor.Tensor
	fsalSigma float64

	history []*tensor.Tensor // newest last
}

// NewIntegrator creates an integrator for the given method. The method
// identifier is validated lazily on the first step; use tableau.Resolve to
// validate eagerly.
func NewIntegrator(model Model, method string) *Integrator {
	return &Integrator{
		model:       model,
		method:      method,
		c2:          0.5,
		c3:          1.0,
		historySize: 1,
	}
}

// WithNoise sets the stochastic noise collaborator used by Inject.
func (it *Integrator) WithNoise(src NoiseSource) *Integrator {
	it.noise = src
	return it
}

// WithNodes overrides the intermediate node placements c2 and c3.
func (it *Integrator) WithNodes(c2, c3 float64) *Integrator {
	it.c2, it.c3 = c2, c3
	return it
}

// WithGuidance enables guidance correction with the given weight.
func (it *Integrator) WithGuidance(weight float64) *Integrator {
	it.guidanceWeight = weight
	return it
}

// WithHistory sets the multistep ring buffer capacity.
func (it *Integrator) WithHistory(size int) *Integrator {
	it.historySize = size
	return it
}

// WithStageHook installs a callback invoked after every model call.
func (it *Integrator) WithStageHook(fn func(step, stage int)) *Integrator {
	it.onStage = fn
	return it
}

// Method returns the integrator's method identifier.
func (it *Integrator) Method() string { return it.method }

// Reset clears all carried state, returning the integrator to its
// first-step condition.
func (it *Integrator) Reset() {
	it.hasPrev = false
	it.fsal = nil
	it.history = it.history[:0]
}

// Step executes one macro-step of the resolved tableau from anchor x0.
//
// Stage estimates are obtained, in priority order, from the FSAL carry slot,
// the multistep history ring, or a fresh model invocation. For linear methods
// the estimates live in epsilon space, (state − denoised)/σ; for exponential
// methods they are the denoised predictions themselves.
func (it *Integrator) Step(x0 *tensor.Tensor, sc StepContext) (*StepResult, error) {
	tb, err := it.resolve(sc)
	if err != nil {
		return nil, err
	}

	t0 := tb.TimeOf(sc.Sigma)
	k := make([]*tensor.Tensor, tb.Columns)
	for d := 0; d < tb.HistoryDepth; d++ {
		k[tb.Stages+d] = it.history[len(it.history)-1-d]
	}

	var lastFresh *tensor.Tensor
	calls := 0
	for i := 0; i < tb.Stages; i++ {
		if i == 0 && it.fsalReusable(tb, sc.Sigma) {
			k[0] = it.fsal
			continue
		}

		xi := x0.Scale(tb.Alpha(-sc.H * tb.C[i]))
		for j := 0; j < tb.Columns; j++ {
			if a := tb.A[i][j]; a != 0 && k[j] != nil {
				xi.AccumScaled(k[j], sc.H*a)
			}
		}
		sigmaI := tb.SigmaOf(t0 + sc.H*tb.C[i])

		if !tb.Exponential && sigmaI <= 0 {
			return nil, fmt.Errorf("sampler: stage %d of %s has non-positive noise level %g", i, tb.Name, sigmaI)
		}
		out, err := it.model.Denoise(xi, sigmaI)
		if err != nil {
			return nil, fmt.Errorf("sampler: model call at stage %d: %w", i, err)
		}
		calls++
		if it.onStage != nil {
			it.onStage(sc.Index, i)
		}
		d := guide(out, it.guidanceWeight)
		lastFresh = d
		if tb.Exponential {
			k[i] = d
		} else {
			k[i] = xi.Sub(d).Scale(1 / sigmaI)
		}
	}

	// Final combination row.
	ks := tensor.New(x0.Shape...)
	for j := 0; j < tb.Columns; j++ {
		if w := tb.Weights()[j]; w != 0 && k[j] != nil {
			ks.AccumScaled(k[j], w)
		}
	}
	xNext := x0.Scale(tb.Alpha(-sc.H * tb.C[tb.Stages]))
	xNext.AccumScaled(ks, sc.H)

	var denoised2 *tensor.Tensor
	if tb.Exponential {
		denoised2 = ks.Scale(1 / tb.WeightSum())
	} else {
		denoised2 = x0.AddScaled(ks, -sc.Sigma)
	}
	denoised := lastFresh
	if denoised == nil {
		denoised = denoised2
	}

	it.finishStep(tb, sc, k, denoised2)

	return &StepResult{
		X:          xNext,
		Denoised:   denoised,
		Denoised2:  denoised2,
		ModelCalls: calls,
	}, nil
}

// resolve maps the method name to a tableau, degrading multistep methods to
// their single-step form when the history ring cannot cover their depth.
func (it *Integrator) resolve(sc StepContext) (*tableau.Tableau, error) {
	p := tableau.Params{
		H:       sc.H,
		C2:      it.c2,
		C3:      it.c3,
		HPrev:   it.hPrev,
		HasPrev: it.hasPrev && len(it.history) > 0,
	}
	tb, err := tableau.Resolve(it.method, p)
	if err != nil {
		return nil, err
	}
	if tb.HistoryDepth > len(it.history) {
		p.HasPrev = false
		tb, err = tableau.Resolve(it.method, p)
		if err != nil {
			return nil, err
		}
		if tb.HistoryDepth > len(it.history) {
			return nil, fmt.Errorf("sampler: method %s requires %d history entries", tb.Name, tb.HistoryDepth)
		}
	}
	return tb, nil
}

// fsalReusable reports whether the carry slot can stand in for stage 0: the
// previous step's final node must coincide with this step's first.
func (it *Integrator) fsalReusable(tb *tableau.Tableau, sigma float64) bool {
	if !tb.FSAL || it.fsal == nil {
		return false
	}
	return math.Abs(it.fsalSigma-sigma) <= fsalTolerance*math.Max(1, sigma)
}

func (it *Integrator) finishStep(tb *tableau.Tableau, sc StepContext, k []*tensor.Tensor, denoised2 *tensor.Tensor) {
	if tb.FSAL && tb.C[tb.Stages-1] == 1 && k[tb.Stages-1] != nil {
		it.fsal = k[tb.Stages-1]
		it.fsalSigma = sc.SigmaDown
	}
	if it.historySize > 0 {
		it.history = append(it.history, denoised2)
		if len(it.history) > it.historySize {
			it.history = it.history[len(it.history)-it.historySize:]
		}
	}
	it.hPrev = sc.H
	it.hasPrev = true
}
