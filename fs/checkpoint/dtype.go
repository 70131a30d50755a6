// dtype.go - Element-Datentypen fuer Checkpoint-Tensoren
// Enthaelt: DType Konstanten, Parsing, Groessen und Element-Konvertierung

package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DType ist der Element-Typ eines Tensors, benannt wie im safetensors-Header
type DType string

const (
	DTypeF64  DType = "F64"
	DTypeF32  DType = "F32"
	DTypeF16  DType = "F16"
	DTypeBF16 DType = "BF16"
	DTypeI64  DType = "I64"
	DTypeI32  DType = "I32"
	DTypeI16  DType = "I16"
	DTypeI8   DType = "I8"
	DTypeU8   DType = "U8"
	DTypeBool DType = "BOOL"
)

// ParseDType parst einen DType aus dem safetensors-Namen oder einem CLI-Alias
// "auto" und "" ergeben den leeren DType (keine Konvertierung)
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return "", nil
	case "f64", "fp64", "float64":
		return DTypeF64, nil
	case "f32", "fp32", "float32":
		return DTypeF32, nil
	case "f16", "fp16", "float16", "half":
		return DTypeF16, nil
	case "bf16", "bfloat16":
		return DTypeBF16, nil
	case "i64", "int64":
		return DTypeI64, nil
	case "i32", "int32":
		return DTypeI32, nil
	case "i16", "int16":
		return DTypeI16, nil
	case "i8", "int8":
		return DTypeI8, nil
	case "u8", "uint8":
		return DTypeU8, nil
	case "bool":
		return DTypeBool, nil
	default:
		return "", fmt.Errorf("unsupported dtype %q", s)
	}
}

func (dt DType) String() string {
	return string(dt)
}

// Size gibt die Groesse eines Elements in Bytes zurueck
func (dt DType) Size() int {
	switch dt {
	case DTypeF64, DTypeI64:
		return 8
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF16, DTypeBF16, DTypeI16:
		return 2
	case DTypeI8, DTypeU8, DTypeBool:
		return 1
	default:
		return 0
	}
}

// IsFloatingPoint meldet, ob der Typ ein Gleitkomma-Typ ist
func (dt DType) IsFloatingPoint() bool {
	switch dt {
	case DTypeF64, DTypeF32, DTypeF16, DTypeBF16:
		return true
	default:
		return false
	}
}

// decodeFloats liest little-endian Gleitkomma-Elemente als float64
func decodeFloats(dt DType, b []byte) ([]float64, error) {
	n := len(b) / dt.Size()
	out := make([]float64, n)
	switch dt {
	case DTypeF64:
		for i := range n {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	case DTypeF32:
		for i := range n {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		}
	case DTypeF16:
		for i := range n {
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32())
		}
	case DTypeBF16:
		for i, f := range bfloat16.DecodeFloat32(b[:n*2]) {
			out[i] = float64(f)
		}
	default:
		return nil, fmt.Errorf("dtype %s is not a floating point type", dt)
	}
	return out, nil
}

// encodeFloats schreibt float64-Werte als little-endian Elemente des Zieltyps
func encodeFloats(dt DType, fs []float64) ([]byte, error) {
	switch dt {
	case DTypeF64:
		b := make([]byte, len(fs)*8)
		for i, f := range fs {
			binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
		}
		return b, nil
	case DTypeF32:
		b := make([]byte, len(fs)*4)
		for i, f := range fs {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(f)))
		}
		return b, nil
	case DTypeF16:
		b := make([]byte, len(fs)*2)
		for i, f := range fs {
			binary.LittleEndian.PutUint16(b[i*2:], float16.Fromfloat32(float32(f)).Bits())
		}
		return b, nil
	case DTypeBF16:
		f32s := make([]float32, len(fs))
		for i, f := range fs {
			f32s[i] = float32(f)
		}
		return bfloat16.EncodeFloat32(f32s), nil
	default:
		return nil, fmt.Errorf("dtype %s is not a floating point type", dt)
	}
}
