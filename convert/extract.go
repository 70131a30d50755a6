// extract.go - Finden des State-Dicts in einem Checkpoint
//
// Enthaelt:
// - DefaultCandidates: Konventionelle Pfade in Prioritaetsreihenfolge
// - Extractor: Konfigurierbare Kandidatenliste
// - Extract: Extraktion mit den Standard-Kandidaten
package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// maxPreviewKeys begrenzt die Schluessel-Vorschau in InferenceError
const maxPreviewKeys = 20

// DefaultCandidates are the conventional locations of a state dict inside training
// checkpoints, in priority order.
var DefaultCandidates = []string{
	"model_state_dict",
	"state_dict",
	"model",
	"module",
	"actor.model_state_dict",
	"actor.state_dict",
	"checkpoint.model_state_dict",
	"checkpoint.state_dict",
}

// Extractor locates the flat state dict inside a checkpoint.
type Extractor struct {
	// Candidates are tried in order when no explicit path is given
	Candidates []string
}

// NewExtractor returns an Extractor probing extra before DefaultCandidates.
// Duplicates keep their first position.
func NewExtractor(extra ...string) *Extractor {
	var candidates []string
	for _, c := range append(slices.Clone(extra), DefaultCandidates...) {
		if c != "" && !slices.Contains(candidates, c) {
			candidates = append(candidates, c)
		}
	}
	return &Extractor{Candidates: candidates}
}

// Extract uses the default candidate paths.
func Extract(root checkpoint.Node, path string) (*checkpoint.TensorMap, error) {
	return NewExtractor().Extract(root, path)
}

// Extract returns the state dict of root. With an explicit path only that path is
// considered. Otherwise the root itself is tried first, then every candidate path in
// order; the first one holding a flat tensor mapping wins.
func (e *Extractor) Extract(root checkpoint.Node, path string) (*checkpoint.TensorMap, error) {
	if path != "" {
		return e.explicit(root, path)
	}

	if tm, ok := AsTensorMap(root); ok {
		slog.Debug("checkpoint root is a state dict", "tensors", tm.Len())
		return tm, nil
	}

	m, ok := root.(*checkpoint.Mapping)
	if !ok {
		return nil, &TypeMismatchError{
			Reason: fmt.Sprintf("is a %s, not a mapping; please pass --state-dict-key explicitly", root.Kind()),
		}
	}

	for _, candidate := range e.Candidates {
		n, err := Resolve(m, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}

		if tm, ok := AsTensorMap(n); ok {
			slog.Debug("found state dict", "path", candidate, "tensors", tm.Len())
			return tm, nil
		}
		slog.Debug("candidate is not a state dict", "path", candidate, "kind", n.Kind())
	}

	keys := m.Keys()
	preview := make([]string, 0, min(len(keys), maxPreviewKeys))
	for _, k := range keys[:min(len(keys), maxPreviewKeys)] {
		preview = append(preview, fmt.Sprint(k))
	}
	return nil, &InferenceError{TopKeys: preview, Total: len(keys)}
}

func (e *Extractor) explicit(root checkpoint.Node, path string) (*checkpoint.TensorMap, error) {
	if _, ok := root.(*checkpoint.Mapping); !ok {
		return nil, &TypeMismatchError{
			Reason: fmt.Sprintf("is a %s, but --state-dict-key %q requires a mapping", root.Kind(), path),
		}
	}

	n, err := Resolve(root, path)
	if err != nil {
		return nil, err
	}

	tm, ok := AsTensorMap(n)
	if !ok {
		return nil, &TypeMismatchError{Path: path, Reason: fmt.Sprintf("is a %s, not a mapping of tensors", describe(n))}
	}
	return tm, nil
}

// describe beschreibt einen Node fuer Fehlermeldungen genauer als Kind
func describe(n checkpoint.Node) string {
	m, ok := n.(*checkpoint.Mapping)
	if !ok {
		return n.Kind().String()
	}
	if m.Len() == 0 {
		return "empty mapping"
	}

	var tensors int
	for _, v := range m.All() {
		if v.Kind() == checkpoint.KindTensor {
			tensors++
		}
	}
	return fmt.Sprintf("mapping with %d of %d tensor entries", tensors, m.Len())
}
