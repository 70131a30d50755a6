// torch.go - Laden von PyTorch-Checkpoints (.pt/.pth) ueber gopickle
//
// Enthaelt:
// - Load: Liest eine torch.save-Datei und baut den Checkpoint-Baum (Klassen: pickle.go)
// - FromPickle: Wandelt bereits entpickelte Werte in Nodes um
// - decodeStorage: Typisierte Storages -> little-endian Bytes
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/x448/float16"

	"github.com/rlinf/ptconvert/logutil"
)

// Load reads a checkpoint written by torch.save. The whole file is loaded into memory.
// Python objects other than dicts and tensors, such as argparse.Namespace, load as *Object.
// When mapLocation is non-empty every tensor is placed there, otherwise tensors keep the
// location recorded in the file.
func Load(path, mapLocation string) (Node, error) {
	v, err := pytorch.LoadWithUnpickler(path, newUnpickler)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", path, err)
	}

	return FromPickle(v, mapLocation)
}

// FromPickle converts values produced by gopickle into a checkpoint tree.
// Dicts become mappings, torch tensors become tensors and everything else is kept
// as an opaque value.
func FromPickle(v any, mapLocation string) (Node, error) {
	c := converter{
		location: mapLocation,
		storages: make(map[pytorch.StorageInterface]storage),
	}
	return c.node(v)
}

type storage struct {
	dtype    DType
	data     []byte
	location string
}

type converter struct {
	location string
	// views of one storage share the decoded bytes
	storages map[pytorch.StorageInterface]storage
}

func (c *converter) node(v any) (Node, error) {
	switch v := v.(type) {
	case *types.OrderedDict:
		m := NewMapping()
		for e := v.List.Front(); e != nil; e = e.Next() {
			entry := e.Value.(*types.OrderedDictEntry)
			n, err := c.node(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", entry.Key, err)
			}
			m.Set(entry.Key, n)
		}
		return m, nil
	case *types.Dict:
		m := NewMapping()
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			n, err := c.node(val)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", k, err)
			}
			m.Set(k, n)
		}
		return m, nil
	case *pytorch.Tensor:
		return c.tensor(v)
	default:
		return &Value{V: v}, nil
	}
}

func (c *converter) tensor(pt *pytorch.Tensor) (*Tensor, error) {
	if pt.Source == nil {
		return nil, fmt.Errorf("tensor has no storage")
	}

	st, ok := c.storages[pt.Source]
	if !ok {
		var err error
		st, err = decodeStorage(pt.Source)
		if err != nil {
			return nil, err
		}
		c.storages[pt.Source] = st
		logutil.Trace("decoded storage", "dtype", st.dtype, "bytes", len(st.data), "location", st.location)
	}

	device := st.location
	if c.location != "" {
		device = c.location
	}

	t := &Tensor{
		DType:        st.dtype,
		Shape:        append([]int{}, pt.Size...),
		Strides:      append([]int{}, pt.Stride...),
		Offset:       pt.StorageOffset,
		Data:         st.data,
		Device:       device,
		RequiresGrad: pt.RequiresGrad,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeStorage(s pytorch.StorageInterface) (storage, error) {
	switch s := s.(type) {
	case *pytorch.DoubleStorage:
		b := make([]byte, 8*len(s.Data))
		for i, f := range s.Data {
			binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
		}
		return storage{DTypeF64, b, s.Location}, nil
	case *pytorch.FloatStorage:
		b := make([]byte, 4*len(s.Data))
		for i, f := range s.Data {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
		}
		return storage{DTypeF32, b, s.Location}, nil
	case *pytorch.HalfStorage:
		b := make([]byte, 2*len(s.Data))
		for i, f := range s.Data {
			binary.LittleEndian.PutUint16(b[i*2:], float16.Fromfloat32(f).Bits())
		}
		return storage{DTypeF16, b, s.Location}, nil
	case *pytorch.BFloat16Storage:
		return storage{DTypeBF16, bfloat16.EncodeFloat32(s.Data), s.Location}, nil
	case *pytorch.LongStorage:
		b := make([]byte, 8*len(s.Data))
		for i, n := range s.Data {
			binary.LittleEndian.PutUint64(b[i*8:], uint64(n))
		}
		return storage{DTypeI64, b, s.Location}, nil
	case *pytorch.IntStorage:
		b := make([]byte, 4*len(s.Data))
		for i, n := range s.Data {
			binary.LittleEndian.PutUint32(b[i*4:], uint32(n))
		}
		return storage{DTypeI32, b, s.Location}, nil
	case *pytorch.ShortStorage:
		b := make([]byte, 2*len(s.Data))
		for i, n := range s.Data {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(n))
		}
		return storage{DTypeI16, b, s.Location}, nil
	case *pytorch.CharStorage:
		b := make([]byte, len(s.Data))
		for i, n := range s.Data {
			b[i] = byte(n)
		}
		return storage{DTypeI8, b, s.Location}, nil
	case *pytorch.ByteStorage:
		return storage{DTypeU8, append([]byte{}, s.Data...), s.Location}, nil
	case *pytorch.BoolStorage:
		b := make([]byte, len(s.Data))
		for i, v := range s.Data {
			if v {
				b[i] = 1
			}
		}
		return storage{DTypeBool, b, s.Location}, nil
	default:
		return storage{}, fmt.Errorf("unsupported storage type %T", s)
	}
}
