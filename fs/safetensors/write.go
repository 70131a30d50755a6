// Package safetensors - Schreiben von safetensors-Dateien
//
// Dieses Modul enthaelt Funktionen zum Schreiben einer einzelnen Datei:
// - WriteFile: Schreibt eine TensorMap mit Metadaten in eine Datei
// - createTemp/commit: Temporaere Dateien, erst am Ende umbenannt
// - encodeHeader: JSON-Header in TensorMap-Reihenfolge, auf 8 Bytes aufgefuellt
// - writeTensors: Paralleles Schreiben der Tensor-Daten an ihre Offsets
package safetensors

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// Extension ist die Dateiendung von safetensors-Dateien
const Extension = ".safetensors"

const (
	metadataKey = "__metadata__"
	// Obergrenze fuer Header beim Lesen
	maxHeaderSize = 100 << 20
)

// TensorInfo describes one tensor in a safetensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Size gibt die Datenlaenge des Tensors in Bytes zurueck
func (ti TensorInfo) Size() int64 {
	return ti.DataOffsets[1] - ti.DataOffsets[0]
}

type options struct {
	progress func(int64)
	// parallel geschriebene Shards, 0 = GOMAXPROCS-1
	workers int
}

// Option configures the writers.
type Option func(*options)

// WithProgress registers fn to be called with the number of bytes written after each
// tensor. fn may be called from several goroutines.
func WithProgress(fn func(n int64)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithWorkers limits how many shards WriteSharded writes at the same time.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.progress == nil {
		o.progress = func(int64) {}
	}
	if o.workers <= 0 {
		o.workers = max(runtime.GOMAXPROCS(0)-1, 1)
	}
	return o
}

// WriteFile writes every tensor of m into a single safetensors file at path.
// Tensors are stored in the iteration order of m. The file is written to a temporary
// name in the same directory and renamed into place on success.
func WriteFile(path string, m *checkpoint.TensorMap, metadata map[string]string, opts ...Option) error {
	return writeFile(path, m, metadata, newOptions(opts))
}

func writeFile(path string, m *checkpoint.TensorMap, metadata map[string]string, o options) error {
	tmp, err := writeTemp(path, m, metadata, o)
	if err != nil {
		return err
	}
	if err := commit([]string{tmp}, []string{path}); err != nil {
		return err
	}

	slog.Debug("wrote safetensors", "path", path, "tensors", m.Len())
	return nil
}

// writeTemp writes m into a temporary file next to path and returns its name.
// Nothing is left behind on error.
func writeTemp(path string, m *checkpoint.TensorMap, metadata map[string]string, o options) (string, error) {
	header, err := encodeHeader(m, metadata)
	if err != nil {
		return "", err
	}

	return createTemp(path, func(f *os.File) error {
		if err := binary.Write(f, binary.LittleEndian, uint64(len(header))); err != nil {
			return err
		}
		if _, err := f.Write(header); err != nil {
			return err
		}
		if err := writeTensors(f, int64(8+len(header)), m, o); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	})
}

// createTemp creates a hidden temporary file in the directory of path, fills it with
// fn and closes it.
func createTemp(path string, fn func(f *os.File) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// commit renames temps[i] to paths[i]. If one rename fails, targets renamed so far
// are removed together with the remaining temporary files.
func commit(temps, paths []string) error {
	for i := range temps {
		if err := os.Rename(temps[i], paths[i]); err != nil {
			for _, p := range paths[:i] {
				os.Remove(p)
			}
			removeAll(temps[i:])
			return fmt.Errorf("failed to move %s into place: %w", paths[i], err)
		}
	}
	return nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}

// encodeHeader baut den JSON-Header; __metadata__ steht vorne, danach die Tensoren
func encodeHeader(m *checkpoint.TensorMap, metadata map[string]string) ([]byte, error) {
	h := orderedmap.New[string, any]()
	if len(metadata) > 0 {
		h.Set(metadataKey, metadata)
	}

	var offset int64
	for name, t := range m.All() {
		if t == nil {
			return nil, fmt.Errorf("tensor %q is nil", name)
		}
		if name == metadataKey {
			return nil, fmt.Errorf("tensor name %q is reserved", name)
		}

		shape := t.Shape
		if shape == nil {
			shape = []int{}
		}

		n := t.Nbytes()
		h.Set(name, TensorInfo{
			DType:       t.DType.String(),
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + n},
		})
		offset += n
	}

	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}

	// Datenbereich beginnt 8-Byte-ausgerichtet
	if pad := len(b) % 8; pad != 0 {
		b = append(b, bytes.Repeat([]byte{' '}, 8-pad)...)
	}
	return b, nil
}

// writeTensors schreibt die Tensor-Daten parallel an ihre Offsets ab base
func writeTensors(f *os.File, base int64, m *checkpoint.TensorMap, o options) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	offset := base
	for name, t := range m.All() {
		w := io.NewOffsetWriter(f, offset)
		offset += t.Nbytes()
		g.Go(func() error {
			n, err := w.Write(t.Bytes())
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			o.progress(int64(n))
			return nil
		})
	}

	return g.Wait()
}
