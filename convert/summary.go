// summary.go - Uebersicht ueber die Struktur eines Checkpoints
// Enthaelt: Summary, Summarize
package convert

import (
	"strings"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// Summary describes one mapping inside a checkpoint.
type Summary struct {
	// Path is the dot path usable as --state-dict-key, empty for the root
	Path  string
	Depth int
	// Tensors and Size count every tensor below the mapping, at any depth
	Tensors int
	Size    int64
	// StateDict reports whether the mapping itself is a flat tensor mapping
	StateDict bool
}

// Summarize lists every mapping of root down to maxDepth levels below the root, in
// walk order. A negative maxDepth means no limit.
func Summarize(root checkpoint.Node, maxDepth int) []Summary {
	var out []Summary
	checkpoint.Walk(root, func(path string, n checkpoint.Node) bool {
		if n.Kind() != checkpoint.KindMapping {
			return false
		}

		depth := 0
		if path != "" {
			depth = strings.Count(path, ".") + 1
		}

		s := Summary{Path: path, Depth: depth, StateDict: LooksLikeTensorMap(n)}
		checkpoint.Walk(n, func(_ string, c checkpoint.Node) bool {
			if t, ok := c.(*checkpoint.Tensor); ok {
				s.Tensors++
				s.Size += t.Nbytes()
			}
			return true
		})
		out = append(out, s)

		// unterhalb eines State-Dicts gibt es nur Tensoren
		return !s.StateDict && (maxDepth < 0 || depth < maxDepth)
	})
	return out
}
