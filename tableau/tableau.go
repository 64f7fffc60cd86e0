// Package tableau resolves named integration methods into Butcher tableaus.
//
// A Tableau describes one member of the Runge-Kutta family: node placements,
// the stage coupling matrix, and the final combination row. Linear methods
// carry constant coefficients; exponential-integrator methods derive theirs
// from φ-functions of the current step size, so a tableau is resolved once
// per outer step.
package tableau

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownMethod is returned when a method identifier does not resolve.
// Unmatched identifiers fail fast; there is no silent default.
var ErrUnknownMethod = errors.New("tableau: unknown method")

// Params carries the per-step quantities a method may need to derive its
// coefficients.
type Params struct {
	H     float64 // step size in the method's time coordinate
	C2    float64 // second node placement; 0 means the method default
	C3    float64 // third node placement; 0 means the method default
	HPrev float64 // previous step size, for multistep methods
	// HasPrev reports whether HPrev is valid. Multistep methods degrade to
	// their single-step counterpart when history is unavailable.
	HasPrev bool
}

func (p Params) c2() float64 {
	if p.C2 == 0 {
		return 0.5
	}
	return p.C2
}

func (p Params) c3() float64 {
	if p.C3 == 0 {
		return 1.0
	}
	return p.C3
}

// Tableau holds the coefficients of one macro-step.
//
// A has Stages+1 rows of Columns entries each: row i (i < Stages) weights the
// prior stage estimates when forming the input of stage i, and row Stages is
// the final combination row (historically "b"). Row 0 is always zero since
// stage 0 starts from the anchor state. C has Stages+1 node placements with
// C[0] = 0 and C[Stages] = 1.
//
// Columns may exceed Stages for multistep methods; the extra columns are fed
// from the caller's history buffer rather than fresh stage evaluations.
type Tableau struct {
	Name    string
	Order   int
	Stages  int
	Columns int
	C       []float64
	A       [][]float64

	// Exponential marks φ-derived methods: stage estimates are denoised
	// predictions and the anchor decays by e^(−h·c) per stage.
	Exponential bool
	// FSAL marks methods whose final stage can seed the next step's first.
	FSAL bool
	// HistoryDepth is Columns − Stages, the number of previous-step estimates
	// the combination consumes.
	HistoryDepth int
}

// Weights returns the final combination row.
func (t *Tableau) Weights() []float64 { return t.A[t.Stages] }

// WeightSum returns the sum of the combination row. For linear methods this
// is 1; for exponential methods it is φ_1(−h).
func (t *Tableau) WeightSum() float64 {
	sum := 0.0
	for _, w := range t.Weights() {
		sum += w
	}
	return sum
}

// NormalizedWeights returns the combination row scaled to sum to 1. This is
// the convex combination used to read a denoised estimate out of the stage
// buffer.
func (t *Tableau) NormalizedWeights() []float64 {
	sum := t.WeightSum()
	out := make([]float64, len(t.Weights()))
	for i, w := range t.Weights() {
		out[i] = w / sum
	}
	return out
}

// TimeOf maps a noise level to the method's integration time coordinate:
// t = −ln σ for exponential methods, t = σ otherwise.
func (t *Tableau) TimeOf(sigma float64) float64 {
	if t.Exponential {
		return -math.Log(sigma)
	}
	return sigma
}

// SigmaOf inverts TimeOf.
func (t *Tableau) SigmaOf(tt float64) float64 {
	if t.Exponential {
		return math.Exp(-tt)
	}
	return tt
}

// Alpha returns the anchor decay factor over a partial step: e^x for
// exponential methods and 1 for linear ones. The argument is −h·c.
func (t *Tableau) Alpha(negHC float64) float64 {
	if t.Exponential {
		return math.Exp(negHC)
	}
	return 1.0
}

type builder func(Params) *Tableau

var methods = map[string]builder{}

func register(name string, b builder) {
	if _, dup := methods[name]; dup {
		panic("tableau: duplicate method " + name)
	}
	methods[name] = b
}

// Resolve returns the tableau for the named method at the given step
// parameters. It wraps ErrUnknownMethod when the identifier is unrecognized.
func Resolve(name string, p Params) (*Tableau, error) {
	b, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	return b(p), nil
}

// Names returns the sorted list of registered method identifiers.
func Names() []string {
	out := make([]string, 0, len(methods))
	for name := range methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsExponential reports whether the named method is an exponential
// integrator, without resolving its coefficients. Unknown names report false.
func IsExponential(name string) bool {
	b, ok := methods[name]
	if !ok {
		return false
	}
	return b(Params{H: 1}).Exponential
}

// fromButcher converts the compact catalog form — rows feed the next stage,
// the last row is the combination, nodes listed per stage — into the padded
// layout documented on Tableau.
func fromButcher(name string, order int, a [][]float64, c []float64) *Tableau {
	stages := len(a)
	cols := len(a[0])
	full := make([][]float64, stages+1)
	full[0] = make([]float64, cols)
	for i, row := range a {
		full[i+1] = append([]float64(nil), row...)
	}
	nodes := append(append([]float64(nil), c...), 1)
	return &Tableau{
		Name:         name,
		Order:        order,
		Stages:       stages,
		Columns:      cols,
		C:            nodes,
		A:            full,
		HistoryDepth: cols - stages,
	}
}
