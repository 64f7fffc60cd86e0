// Package tensor provides a dense float64 tensor type used as the state
// representation for latent sampling. Operations are elementwise over a flat
// backing slice; the shape is carried only for channel-aware views and sanity
// checks. Binary operations panic on shape mismatch, which is treated as a
// programming error rather than a runtime condition.
package tensor

import (
	"fmt"
	"math"
)

// Tensor is a dense multi-dimensional array. For latent images the
// conventional layout is [batch, channels, height, width].
type Tensor struct {
	Shape []int
	Data  []float64
}

// New creates a zero-filled tensor with the given shape.
func New(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, n),
	}
}

// Full creates a tensor with every element set to v.
func Full(v float64, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

// FromSlice wraps an existing slice. The slice is not copied.
func FromSlice(data []float64, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		panic(fmt.Sprintf("tensor: shape %v does not match data length %d", shape, len(data)))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float64(nil), t.Data...),
	}
}

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.Data) }

// SameShape reports whether two tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

func mustMatch(a, b *Tensor) {
	if !a.SameShape(b) {
		panic(fmt.Sprintf("tensor: shape mismatch %v vs %v", a.Shape, b.Shape))
	}
}

// Add returns t + o.
func (t *Tensor) Add(o *Tensor) *Tensor {
	mustMatch(t, o)
	out := t.Clone()
	for i, v := range o.Data {
		out.Data[i] += v
	}
	return out
}

// Sub returns t - o.
func (t *Tensor) Sub(o *Tensor) *Tensor {
	mustMatch(t, o)
	out := t.Clone()
	for i, v := range o.Data {
		out.Data[i] -= v
	}
	return out
}

// Mul returns the elementwise product t * o.
func (t *Tensor) Mul(o *Tensor) *Tensor {
	mustMatch(t, o)
	out := t.Clone()
	for i, v := range o.Data {
		out.Data[i] *= v
	}
	return out
}

// Scale returns t * s.
func (t *Tensor) Scale(s float64) *Tensor {
	out := t.Clone()
	for i := range out.Data {
		out.Data[i] *= s
	}
	return out
}

// AddConst returns t with s added to every element.
func (t *Tensor) AddConst(s float64) *Tensor {
	out := t.Clone()
	for i := range out.Data {
		out.Data[i] += s
	}
	return out
}

// AddScaled returns t + s*o without allocating an intermediate.
func (t *Tensor) AddScaled(o *Tensor, s float64) *Tensor {
	mustMatch(t, o)
	out := t.Clone()
	for i, v := range o.Data {
		out.Data[i] += s * v
	}
	return out
}

// AccumScaled adds s*o into t in place and returns t.
func (t *Tensor) AccumScaled(o *Tensor, s float64) *Tensor {
	mustMatch(t, o)
	for i, v := range o.Data {
		t.Data[i] += s * v
	}
	return t
}

// Lerp returns a + w*(b-a).
func Lerp(a, b *Tensor, w float64) *Tensor {
	mustMatch(a, b)
	out := a.Clone()
	for i := range out.Data {
		out.Data[i] += w * (b.Data[i] - a.Data[i])
	}
	return out
}

// Mean returns the arithmetic mean of all elements.
func (t *Tensor) Mean() float64 {
	if len(t.Data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range t.Data {
		sum += v
	}
	return sum / float64(len(t.Data))
}

// Std returns the sample standard deviation (n-1 denominator).
func (t *Tensor) Std() float64 {
	n := len(t.Data)
	if n < 2 {
		return 0
	}
	mean := t.Mean()
	ss := 0.0
	for _, v := range t.Data {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Normalize returns a zero-mean, unit-variance copy of t. A tensor with zero
// spread normalizes to all zeros rather than NaN.
func (t *Tensor) Normalize() *Tensor {
	mean := t.Mean()
	std := t.Std()
	out := t.Clone()
	if std == 0 {
		for i := range out.Data {
			out.Data[i] = 0
		}
		return out
	}
	for i := range out.Data {
		out.Data[i] = (out.Data[i] - mean) / std
	}
	return out
}

// Min returns the smallest element.
func (t *Tensor) Min() float64 {
	m := math.Inf(1)
	for _, v := range t.Data {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest element.
func (t *Tensor) Max() float64 {
	m := math.Inf(-1)
	for _, v := range t.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// Norm returns the Euclidean (Frobenius) norm.
func (t *Tensor) Norm() float64 {
	ss := 0.0
	for _, v := range t.Data {
		ss += v * v
	}
	return math.Sqrt(ss)
}

// Dot returns the flattened dot product of t and o.
func (t *Tensor) Dot(o *Tensor) float64 {
	mustMatch(t, o)
	sum := 0.0
	for i, v := range t.Data {
		sum += v * o.Data[i]
	}
	return sum
}

// Distance returns the Euclidean distance between t and o.
func (t *Tensor) Distance(o *Tensor) float64 {
	mustMatch(t, o)
	ss := 0.0
	for i, v := range t.Data {
		d := v - o.Data[i]
		ss += d * d
	}
	return math.Sqrt(ss)
}

// Cosine returns the cosine similarity between t and o flattened to vectors.
// The boolean is false when either operand has zero norm, in which case the
// similarity is undefined and the caller must not use the value.
func Cosine(a, b *Tensor) (float64, bool) {
	mustMatch(a, b)
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0, false
	}
	return a.Dot(b) / (na * nb), true
}

// Channels returns a copy of channels [lo, hi) assuming a
// [batch, channels, ...] layout. It panics if the tensor has fewer than two
// dimensions or the range is out of bounds.
func (t *Tensor) Channels(lo, hi int) *Tensor {
	if len(t.Shape) < 2 {
		panic(fmt.Sprintf("tensor: channel slice requires >=2 dims, have %v", t.Shape))
	}
	batch, chans := t.Shape[0], t.Shape[1]
	if lo < 0 || hi > chans || lo >= hi {
		panic(fmt.Sprintf("tensor: channel range [%d,%d) out of bounds for %d channels", lo, hi, chans))
	}
	inner := 1
	for _, d := range t.Shape[2:] {
		inner *= d
	}
	outShape := append([]int{batch, hi - lo}, t.Shape[2:]...)
	out := New(outShape...)
	for b := 0; b < batch; b++ {
		src := t.Data[b*chans*inner:]
		dst := out.Data[b*(hi-lo)*inner:]
		copy(dst[:(hi-lo)*inner], src[lo*inner:hi*inner])
	}
	return out
}
