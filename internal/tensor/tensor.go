// Package tensor is a minimal dense float32 tensor used to exchange images with
// the host graph. Images are laid out batch-first as [B, H, W, C] and masks as
// [B, H, W], matching the host's conventions.
package tensor

import (
	"fmt"

	"github.com/charliek/comfygcs/internal/domain"
)

// Tensor is a row-major float32 array with a shape
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"-"`
}

// New allocates a zero-filled tensor with the given shape
func New(shape ...int) *Tensor {
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, numel(shape)),
	}
}

// FromData wraps data with a shape, checking that the sizes agree
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if len(data) != numel(shape) {
		return nil, domain.Errorf(domain.ErrInvalidArgs, "data length %d does not match shape %v", len(data), shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Len returns the number of elements
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dim returns the size of axis i
func (t *Tensor) Dim(i int) int {
	return t.Shape[i]
}

// Rank returns the number of axes
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

func (t *Tensor) offset(idx []int) int {
	off := 0
	for i, v := range idx {
		off = off*t.Shape[i] + v
	}
	return off
}

// At returns the element at idx
func (t *Tensor) At(idx ...int) float32 {
	return t.Data[t.offset(idx)]
}

// Set stores v at idx
func (t *Tensor) Set(v float32, idx ...int) {
	t.Data[t.offset(idx)] = v
}

// Index returns a copy of entry i along the leading axis
func (t *Tensor) Index(i int) (*Tensor, error) {
	if t.Rank() == 0 || i < 0 || i >= t.Shape[0] {
		return nil, domain.Errorf(domain.ErrInvalidArgs, "index %d out of range for shape %v", i, t.Shape)
	}
	stride := numel(t.Shape[1:])
	data := make([]float32, stride)
	copy(data, t.Data[i*stride:(i+1)*stride])
	return FromData(data, t.Shape[1:]...)
}

// Concat joins tensors along the leading axis. All trailing dimensions must match.
func Concat(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, domain.Errorf(domain.ErrInvalidArgs, "nothing to concatenate")
	}

	inner := ts[0].Shape[1:]
	lead := 0
	for _, t := range ts {
		if !sameShape(t.Shape[1:], inner) {
			return nil, domain.Errorf(domain.ErrInvalidArgs, "cannot concatenate shapes %v and %v", ts[0].Shape, t.Shape)
		}
		lead += t.Shape[0]
	}

	data := make([]float32, 0, lead*numel(inner))
	for _, t := range ts {
		data = append(data, t.Data...)
	}
	return FromData(data, append([]int{lead}, inner...)...)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
