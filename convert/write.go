// write.go - Ausgabe als einzelne Datei oder als Shards mit Index
// Enthaelt: WriteOptions, Report, Write
package convert

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rlinf/ptconvert/format"
	"github.com/rlinf/ptconvert/fs/checkpoint"
	"github.com/rlinf/ptconvert/fs/safetensors"
)

const (
	DefaultName         = "model"
	DefaultMaxShardSize = "4GB"
	DefaultFormat       = "pt"
)

// WriteOptions steuert Write
type WriteOptions struct {
	Dir string
	// Name is the output base name, ".safetensors" is added or removed as needed
	Name       string
	SingleFile bool
	// MaxShardSize is a size string such as "4GB", used only for sharded output
	MaxShardSize string
	// Format is stored as the "format" metadata entry
	Format string
	// Progress is called with the bytes written since the last call and the total
	// number of bytes to write, possibly concurrently
	Progress func(n, total int64)
	// Workers limits the shards written in parallel, 0 picks a default
	Workers int
}

// Report describes what Write produced.
type Report struct {
	// Path of the single output file
	Path string

	Shards    int
	TotalSize int64
	IndexPath string
}

func (r *Report) String() string {
	if r.IndexPath == "" {
		return fmt.Sprintf("Saved single safetensors: %s", r.Path)
	}
	return fmt.Sprintf("Saved sharded safetensors: %d shard(s), total_size=%d bytes, index=%s", r.Shards, r.TotalSize, r.IndexPath)
}

// Write stores m as safetensors in opts.Dir, either as one file or as shards of at
// most opts.MaxShardSize with an index. Writer errors are returned as is.
func Write(m *checkpoint.TensorMap, opts WriteOptions) (*Report, error) {
	name := cmp.Or(opts.Name, DefaultName)
	metadata := map[string]string{"format": cmp.Or(opts.Format, DefaultFormat)}

	wopts := []safetensors.Option{safetensors.WithWorkers(opts.Workers)}
	if opts.Progress != nil {
		total := m.Nbytes()
		wopts = append(wopts, safetensors.WithProgress(func(n int64) { opts.Progress(n, total) }))
	}

	if opts.SingleFile {
		if !strings.HasSuffix(name, safetensors.Extension) {
			name += safetensors.Extension
		}

		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}

		path := filepath.Join(opts.Dir, name)
		if err := safetensors.WriteFile(path, m, metadata, wopts...); err != nil {
			return nil, err
		}
		return &Report{Path: path, Shards: 1, TotalSize: m.Nbytes()}, nil
	}

	base := strings.TrimSuffix(name, safetensors.Extension)
	maxBytes, err := format.ParseBytes(cmp.Or(opts.MaxShardSize, DefaultMaxShardSize))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	shards, total, err := safetensors.WriteSharded(m, opts.Dir, base, maxBytes, metadata, wopts...)
	if err != nil {
		return nil, err
	}

	return &Report{
		Shards:    shards,
		TotalSize: total,
		IndexPath: filepath.Join(opts.Dir, safetensors.IndexName(base)),
	}, nil
}

// humanSize formatiert Byte-Angaben fuer Log-Ausgaben
func humanSize(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}
