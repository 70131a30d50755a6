// shard.go - Aufteilen einer TensorMap auf mehrere safetensors-Dateien
//
// Enthaelt:
// - PlanShards: Greedy-Aufteilung in Tensor-Reihenfolge unter einem Byte-Budget
// - WriteSharded: Schreibt alle Shards und die Index-Datei, sichtbar erst wenn alle fertig sind
// - IndexName/ShardName: Dateinamen nach Hugging-Face-Konvention
package safetensors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// Shard is one output file of a sharded write.
type Shard struct {
	Name    string
	Tensors *checkpoint.TensorMap
	Size    int64
}

// ShardPlan assigns every tensor to exactly one shard.
type ShardPlan struct {
	Shards    []Shard
	TotalSize int64
}

// Index is the content of <base>.safetensors.index.json.
type Index struct {
	Metadata  IndexMetadata                          `json:"metadata"`
	WeightMap *orderedmap.OrderedMap[string, string] `json:"weight_map"`
}

type IndexMetadata struct {
	TotalSize int64 `json:"total_size"`
}

// IndexName gibt den Namen der Index-Datei fuer base zurueck
func IndexName(base string) string {
	return base + Extension + ".index.json"
}

// ShardName gibt den Dateinamen des i-ten von n Shards zurueck (i ab 1)
func ShardName(base string, i, n int) string {
	if n == 1 {
		return base + Extension
	}
	return fmt.Sprintf("%s-%05d-of-%05d%s", base, i, n, Extension)
}

// PlanShards splits m into shards of at most maxBytes, keeping tensor order. A new
// shard starts when the next tensor would overflow the current one; a tensor larger
// than maxBytes gets a shard of its own.
func PlanShards(m *checkpoint.TensorMap, base string, maxBytes int64) (*ShardPlan, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max shard size must be positive, got %d", maxBytes)
	}
	if m.Len() == 0 {
		return nil, errors.New("no tensors to write")
	}

	var plan ShardPlan
	current := Shard{Tensors: checkpoint.NewTensorMap()}
	for name, t := range m.All() {
		n := t.Nbytes()
		if current.Tensors.Len() > 0 && current.Size+n > maxBytes {
			plan.Shards = append(plan.Shards, current)
			current = Shard{Tensors: checkpoint.NewTensorMap()}
		}
		if n > maxBytes {
			slog.Warn("tensor exceeds max shard size", "name", name, "size", n, "max", maxBytes)
		}

		current.Tensors.Set(name, t)
		current.Size += n
		plan.TotalSize += n
	}
	plan.Shards = append(plan.Shards, current)

	for i := range plan.Shards {
		plan.Shards[i].Name = ShardName(base, i+1, len(plan.Shards))
	}

	return &plan, nil
}

// WeightMap gibt die Zuordnung Tensor-Name -> Shard-Datei zurueck
func (p *ShardPlan) WeightMap() *orderedmap.OrderedMap[string, string] {
	wm := orderedmap.New[string, string]()
	for _, s := range p.Shards {
		for _, name := range s.Tensors.Names() {
			wm.Set(name, s.Name)
		}
	}
	return wm
}

// WriteSharded writes m as shards of at most maxBytes into dir and writes the index
// file IndexName(base). It returns the number of shards and the total tensor bytes.
// All files are written under temporary names first; if any shard fails no output
// file is left in dir.
func WriteSharded(m *checkpoint.TensorMap, dir, base string, maxBytes int64, metadata map[string]string, opts ...Option) (int, int64, error) {
	plan, err := PlanShards(m, base, maxBytes)
	if err != nil {
		return 0, 0, err
	}

	o := newOptions(opts)

	temps := make([]string, len(plan.Shards))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, s := range plan.Shards {
		g.Go(func() error {
			tmp, err := writeTemp(filepath.Join(dir, s.Name), s.Tensors, metadata, o)
			temps[i] = tmp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		removeAll(temps)
		return 0, 0, err
	}

	index := Index{
		Metadata:  IndexMetadata{TotalSize: plan.TotalSize},
		WeightMap: plan.WeightMap(),
	}

	b, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		removeAll(temps)
		return 0, 0, err
	}

	indexPath := filepath.Join(dir, IndexName(base))
	indexTemp, err := createTemp(indexPath, func(f *os.File) error {
		_, err := f.Write(append(b, '\n'))
		return err
	})
	if err != nil {
		removeAll(temps)
		return 0, 0, fmt.Errorf("failed to write index: %w", err)
	}

	// Shards zuerst, der Index wird als letztes sichtbar
	paths := make([]string, 0, len(plan.Shards)+1)
	for _, s := range plan.Shards {
		paths = append(paths, filepath.Join(dir, s.Name))
	}
	if err := commit(append(temps, indexTemp), append(paths, indexPath)); err != nil {
		return 0, 0, err
	}

	slog.Debug("wrote sharded safetensors", "dir", dir, "shards", len(plan.Shards), "total", plan.TotalSize)
	return len(plan.Shards), plan.TotalSize, nil
}
