// Package explore implements the branching trajectory sampler: each outer
// step forks width candidate continuations per node down to a fixed depth,
// then collapses the tree to one accepted leaf via a pluggable selection
// policy.
package explore

import "github.com/drozbay/RES4LYF/tensor"

// Node is one candidate continuation. X is the post-step state, XHat the
// noised anchor the step started from, Denoised and Denoised2 the step's two
// clean estimates. Vel and Vel2 are the momentum velocities for this tree
// slot; unlike the states they survive Reset, carrying momentum across outer
// iterations. A nil velocity means no prior step has filled the slot.
type Node struct {
	X         *tensor.Tensor
	XHat      *tensor.Tensor
	Denoised  *tensor.Tensor
	Denoised2 *tensor.Tensor
	Vel       *tensor.Tensor
	Vel2      *tensor.Tensor
}

// Tree is an arena of Nodes addressed by (depth, index): level d holds
// exactly width^d nodes, and the parent of (d, idx) is (d−1, idx/width).
// The state fields are reset once per outer iteration; the arena itself is
// allocated once per run.
type Tree struct {
	Depth  int
	Width  int
	levels [][]Node
}

// NewTree allocates an arena for the given depth and width. Both must be at
// least 1.
func NewTree(depth, width int) *Tree {
	levels := make([][]Node, depth+1)
	n := 1
	for d := 0; d <= depth; d++ {
		levels[d] = make([]Node, n)
		n *= width
	}
	return &Tree{Depth: depth, Width: width, levels: levels}
}

// Reset clears every node's states while preserving the momentum velocities.
func (t *Tree) Reset() {
	for d := range t.levels {
		for i := range t.levels[d] {
			n := &t.levels[d][i]
			n.X, n.XHat, n.Denoised, n.Denoised2 = nil, nil, nil, nil
		}
	}
}

// At returns the node at (depth, idx).
func (t *Tree) At(depth, idx int) *Node { return &t.levels[depth][idx] }

// Parent returns the parent of the node at (depth, idx).
func (t *Tree) Parent(depth, idx int) *Node {
	return &t.levels[depth-1][idx/t.Width]
}

// Root returns the depth-0 node holding the current accepted state.
func (t *Tree) Root() *Node { return &t.levels[0][0] }

// Level returns the node slice at the given depth.
func (t *Tree) Level(depth int) []Node { return t.levels[depth] }

// Leaves returns the deepest level.
func (t *Tree) Leaves() []Node { return t.levels[t.Depth] }

// PathDirections returns, for the leaf at the given index, the edge
// direction at each depth along its ancestor chain: entry d−1 is
// state(d) − state(d−1) for d in [1, Depth]. Used by path-local policies.
func (t *Tree) PathDirections(leaf int) []*tensor.Tensor {
	dirs := make([]*tensor.Tensor, t.Depth)
	idx := leaf
	for d := t.Depth; d >= 1; d-- {
		dirs[d-1] = t.levels[d][idx].X.Sub(t.levels[d-1][idx/t.Width].X)
		idx /= t.Width
	}
	return dirs
}
