// normalize.go - Normalisierung von Schluesseln und Tensoren
// Enthaelt: NormalizeOptions, Normalize, stripPrefixes
package convert

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rlinf/ptconvert/fs/checkpoint"
	"github.com/rlinf/ptconvert/logutil"
)

// NormalizeOptions steuert Normalize
type NormalizeOptions struct {
	// StripPrefixes are removed from the front of every key, each at most once, in order
	StripPrefixes []string
	// DType is the target for floating point tensors, empty keeps the original dtype
	DType checkpoint.DType
}

// Normalize renames keys and canonicalizes every tensor: detached, cast to opts.DType
// when it is a floating point tensor, in host memory and contiguous. Entries without
// a tensor are skipped and counted. Keys that collide after prefix stripping keep the
// last tensor. An empty result is an error.
func Normalize(m *checkpoint.TensorMap, opts NormalizeOptions) (*checkpoint.TensorMap, int, error) {
	if opts.DType != "" && !opts.DType.IsFloatingPoint() {
		return nil, 0, fmt.Errorf("target dtype %s is not a floating point type", opts.DType)
	}

	out := checkpoint.NewTensorMap()
	sources := make(map[string]string, m.Len())
	var skipped int
	for key, t := range m.All() {
		if t == nil {
			skipped++
			continue
		}

		name := stripPrefixes(key, opts.StripPrefixes)

		t = t.Detach()
		if opts.DType != "" && t.DType.IsFloatingPoint() && t.DType != opts.DType {
			cast, err := t.To(opts.DType)
			if err != nil {
				return nil, 0, fmt.Errorf("%s: %w", key, err)
			}
			t = cast
		}
		t = t.CPU().Contiguous()

		if out.Set(name, t) {
			slog.Warn("duplicate key after prefix stripping, keeping last", "key", name, "previous", sources[name], "current", key)
		}
		sources[name] = key
		logutil.Trace("normalized tensor", "key", key, "name", name, "dtype", t.DType, "shape", t.Shape)
	}

	if out.Len() == 0 {
		return nil, skipped, ErrEmptyResult
	}
	return out, skipped, nil
}

// stripPrefixes entfernt jeden Prefix hoechstens einmal, in der angegebenen Reihenfolge
func stripPrefixes(key string, prefixes []string) string {
	for _, p := range prefixes {
		if p != "" {
			key = strings.TrimPrefix(key, p)
		}
	}
	return key
}
