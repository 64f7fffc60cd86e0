// Package selection scores the leaves of a trajectory tree and picks one.
// Policies are resolved from a registry at configuration time; an
// unrecognized identifier is an error, never a silent default.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/drozbay/RES4LYF/explore"
	"github.com/drozbay/RES4LYF/tensor"
)

// ErrUnknownPolicy is returned when a policy identifier does not resolve.
var ErrUnknownPolicy = errors.New("selection: unknown policy")

// Options carries policy inputs fixed at configuration time.
type Options struct {
	// Reference is the target tensor for the latent_match family. Policies
	// that need it fail at Select time when it is nil.
	Reference *tensor.Tensor
}

type scoreFunc func(t *explore.Tree, o Options) (int, error)

var policies = map[string]scoreFunc{}

func register(name string, f scoreFunc) {
	if _, dup := policies[name]; dup {
		panic("selection: duplicate policy " + name)
	}
	policies[name] = f
}

// New resolves a policy identifier into a Selector. It wraps
// ErrUnknownPolicy when the identifier is unrecognized.
func New(name string, o Options) (explore.Selector, error) {
	f, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return &selector{name: name, opts: o, score: f}, nil
}

// Names returns the sorted list of registered policy identifiers.
func Names() []string {
	out := make([]string, 0, len(policies))
	for name := range policies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type selector struct {
	name  string
	opts  Options
	score scoreFunc
}

func (s *selector) Select(t *explore.Tree) (int, error) {
	if len(t.Leaves()) == 1 {
		return 0, nil
	}
	idx, err := s.score(t, s.opts)
	if err != nil {
		return 0, fmt.Errorf("selection %s: %w", s.name, err)
	}
	return idx, nil
}

// space selects which tensor a policy walks: raw states or the secondary
// denoised estimates. In denoised space the root reads as the root state,
// since depth 0 has no estimate of its own.
type space int

const (
	stateSpace space = iota
	denoisedSpace
)

func valueAt(t *explore.Tree, sp space, depth, idx int) *tensor.Tensor {
	n := t.At(depth, idx)
	if sp == denoisedSpace && depth > 0 {
		return n.Denoised2
	}
	return n.X
}

func leafValues(t *explore.Tree, sp space) []*tensor.Tensor {
	leaves := t.Leaves()
	out := make([]*tensor.Tensor, len(leaves))
	for i := range leaves {
		out[i] = valueAt(t, sp, t.Depth, i)
	}
	return out
}

func argMin(scores []float64) int {
	best := 0
	for i, s := range scores {
		if s < scores[best] {
			best = i
		}
	}
	return best
}

func argMax(scores []float64) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
