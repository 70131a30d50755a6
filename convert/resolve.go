// resolve.go - Aufloesen von Punkt-Pfaden im Checkpoint-Baum
// Enthaelt: Resolve, suggest (Levenshtein-Vorschlag fuer Tippfehler)
package convert

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// maxSuggestDistance begrenzt Vorschlaege auf naheliegende Tippfehler
const maxSuggestDistance = 3

// Resolve walks path one mapping level per dot-separated segment, starting at root.
// The first segment that cannot be resolved, because the current node is not a
// mapping or has no such key, yields a *PathError.
func Resolve(root checkpoint.Node, path string) (checkpoint.Node, error) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(*checkpoint.Mapping)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg}
		}

		next, ok := m.Get(seg)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Suggestion: suggest(seg, m.StringKeys())}
		}
		cur = next
	}
	return cur, nil
}

func suggest(seg string, keys []string) string {
	var best string
	score := math.MaxInt
	for _, k := range keys {
		if d := levenshtein.ComputeDistance(seg, k); d < score {
			score = d
			best = k
		}
	}

	if score <= maxSuggestDistance {
		return best
	}
	return ""
}
