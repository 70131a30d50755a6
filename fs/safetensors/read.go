// read.go - Lesen von safetensors-Dateien und Index-Dateien
//
// Enthaelt:
// - Open: Liest den Header einer safetensors-Datei
// - File.Read: Laedt einen einzelnen Tensor
// - ReadIndex: Liest <base>.safetensors.index.json
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// File is an opened safetensors file. Only the header is held in memory.
type File struct {
	path     string
	names    []string
	infos    map[string]TensorInfo
	metadata map[string]string
	// Beginn des Datenbereichs
	base int64
	size int64
}

// Open reads and validates the header of the safetensors file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%s: failed to read header size: %w", path, err)
	}
	if n > maxHeaderSize || int64(n)+8 > fi.Size() {
		return nil, fmt.Errorf("%s: invalid header size %d", path, n)
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(b, raw); err != nil {
		return nil, fmt.Errorf("%s: failed to decode header: %w", path, err)
	}

	st := File{
		path:  path,
		infos: make(map[string]TensorInfo, raw.Len()),
		base:  int64(8 + n),
		size:  fi.Size() - int64(8+n),
	}
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == metadataKey {
			if err := json.Unmarshal(pair.Value, &st.metadata); err != nil {
				return nil, fmt.Errorf("%s: invalid metadata: %w", path, err)
			}
			continue
		}

		var ti TensorInfo
		if err := json.Unmarshal(pair.Value, &ti); err != nil {
			return nil, fmt.Errorf("%s: tensor %q: %w", path, pair.Key, err)
		}
		if err := st.validate(pair.Key, ti); err != nil {
			return nil, err
		}

		st.names = append(st.names, pair.Key)
		st.infos[pair.Key] = ti
	}

	return &st, nil
}

func (f *File) validate(name string, ti TensorInfo) error {
	dt, err := checkpoint.ParseDType(ti.DType)
	if err != nil || dt == "" {
		return fmt.Errorf("%s: tensor %q: unsupported dtype %q", f.path, name, ti.DType)
	}

	n := int64(dt.Size())
	for _, d := range ti.Shape {
		n *= int64(d)
	}

	begin, end := ti.DataOffsets[0], ti.DataOffsets[1]
	if begin < 0 || end < begin || end > f.size || end-begin != n {
		return fmt.Errorf("%s: tensor %q: invalid data offsets %v", f.path, name, ti.DataOffsets)
	}
	return nil
}

// Names gibt die Tensor-Namen in Header-Reihenfolge zurueck
func (f *File) Names() []string {
	return f.names
}

func (f *File) Info(name string) (TensorInfo, bool) {
	ti, ok := f.infos[name]
	return ti, ok
}

func (f *File) Metadata() map[string]string {
	return f.metadata
}

// Read loads the named tensor into host memory.
func (f *File) Read(name string) (*checkpoint.Tensor, error) {
	ti, ok := f.infos[name]
	if !ok {
		return nil, fmt.Errorf("%s: tensor %q not found", f.path, name)
	}

	r, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data := make([]byte, ti.Size())
	if _, err := r.ReadAt(data, f.base+ti.DataOffsets[0]); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	dt, _ := checkpoint.ParseDType(ti.DType)
	return &checkpoint.Tensor{
		DType:  dt,
		Shape:  ti.Shape,
		Data:   data,
		Device: checkpoint.Host,
	}, nil
}

// ReadIndex reads a sharded index file.
func ReadIndex(path string) (*Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var index Index
	if err := json.Unmarshal(b, &index); err != nil {
		return nil, fmt.Errorf("%s: failed to decode index: %w", path, err)
	}
	if index.WeightMap == nil {
		return nil, fmt.Errorf("%s: index has no weight_map", path)
	}
	return &index, nil
}
