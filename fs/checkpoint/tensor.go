// Package checkpoint - Tensor-Datenstrukturen
//
// Dieses Modul enthaelt den Tensor-Typ des Checkpoint-Baums:
// - Tensor: Speicher, Shape, Strides, Device und Grad-Status
// - Detach, CPU, Contiguous, To: Kanonisierung der Darstellung
// - Bytes: gepackte row-major Daten fuer Writer
package checkpoint

import (
	"fmt"
	"slices"
)

// Host ist der Device-Name fuer Hauptspeicher
const Host = "cpu"

// Tensor is an N-dimensional array backed by little-endian storage bytes.
// Views of the same storage share Data and differ in Offset and Strides.
type Tensor struct {
	DType DType
	Shape []int
	// Strides in elements, nil means row-major
	Strides []int
	// Offset in elements into Data
	Offset int
	Data   []byte

	Device       string
	RequiresGrad bool
}

func (t *Tensor) Kind() Kind { return KindTensor }

// NumElements gibt die Anzahl der Elemente zurueck
func (t *Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Nbytes gibt die gepackte Groesse in Bytes zurueck
func (t *Tensor) Nbytes() int64 {
	return int64(t.NumElements()) * int64(t.DType.Size())
}

// IsHost meldet, ob der Tensor im Hauptspeicher liegt
func (t *Tensor) IsHost() bool {
	return t.Device == "" || t.Device == Host
}

func contiguousStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func (t *Tensor) strides() []int {
	if t.Strides == nil {
		return contiguousStrides(t.Shape)
	}
	return t.Strides
}

// IsContiguous reports whether the elements are laid out row-major.
// Dimensions of size one are ignored and empty tensors are always contiguous.
func (t *Tensor) IsContiguous() bool {
	if t.Strides == nil || t.NumElements() == 0 {
		return true
	}

	expected := 1
	for i := len(t.Shape) - 1; i >= 0; i-- {
		if t.Shape[i] == 1 {
			continue
		}
		if t.Strides[i] != expected {
			return false
		}
		expected *= t.Shape[i]
	}
	return true
}

// Validate prueft, dass alle Elemente des Views innerhalb von Data liegen
func (t *Tensor) Validate() error {
	if t.DType.Size() == 0 {
		return fmt.Errorf("unsupported dtype %q", t.DType)
	}
	if t.Strides != nil && len(t.Strides) != len(t.Shape) {
		return fmt.Errorf("shape %v and strides %v differ in rank", t.Shape, t.Strides)
	}
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", t.Shape)
		}
	}
	if t.NumElements() == 0 {
		return nil
	}

	last := t.Offset
	for i, s := range t.strides() {
		last += (t.Shape[i] - 1) * s
	}
	if t.Offset < 0 || (last+1)*t.DType.Size() > len(t.Data) {
		return fmt.Errorf("view exceeds storage: offset %d, shape %v, strides %v, storage %d bytes", t.Offset, t.Shape, t.strides(), len(t.Data))
	}
	return nil
}

// Detach returns a view that no longer tracks gradients. Storage is shared.
func (t *Tensor) Detach() *Tensor {
	if !t.RequiresGrad {
		return t
	}
	d := *t
	d.RequiresGrad = false
	return &d
}

// CPU returns the tensor placed in host memory.
func (t *Tensor) CPU() *Tensor {
	if t.IsHost() {
		return t
	}
	c := *t
	c.Device = Host
	return &c
}

// Contiguous returns a row-major copy of t, or t itself if it already is.
func (t *Tensor) Contiguous() *Tensor {
	if t.IsContiguous() {
		return t
	}

	size := t.DType.Size()
	strides := t.strides()
	out := make([]byte, 0, t.Nbytes())
	idx := make([]int, len(t.Shape))
	for range t.NumElements() {
		off := t.Offset
		for d, i := range idx {
			off += i * strides[d]
		}
		out = append(out, t.Data[off*size:(off+1)*size]...)

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < t.Shape[d] {
				break
			}
			idx[d] = 0
		}
	}

	return &Tensor{
		DType:        t.DType,
		Shape:        slices.Clone(t.Shape),
		Data:         out,
		Device:       t.Device,
		RequiresGrad: t.RequiresGrad,
	}
}

// To casts a floating point tensor to another floating point dtype.
// The result is contiguous and owns its storage.
func (t *Tensor) To(dt DType) (*Tensor, error) {
	if dt == t.DType {
		return t, nil
	}
	if !t.DType.IsFloatingPoint() || !dt.IsFloatingPoint() {
		return nil, fmt.Errorf("cannot cast %s to %s", t.DType, dt)
	}

	fs, err := decodeFloats(t.DType, t.Contiguous().Bytes())
	if err != nil {
		return nil, err
	}

	data, err := encodeFloats(dt, fs)
	if err != nil {
		return nil, err
	}

	return &Tensor{
		DType:        dt,
		Shape:        slices.Clone(t.Shape),
		Data:         data,
		Device:       t.Device,
		RequiresGrad: t.RequiresGrad,
	}, nil
}

// Bytes returns the packed element bytes of a contiguous tensor.
func (t *Tensor) Bytes() []byte {
	if !t.IsContiguous() {
		return t.Contiguous().Bytes()
	}
	start := t.Offset * t.DType.Size()
	return t.Data[start : start+int(t.Nbytes())]
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s, %v, device=%s)", t.DType, t.Shape, t.Device)
}
