// tensormap.go - Flache, geordnete Zuordnung Tensor-Name -> Tensor
// Enthaelt: TensorMap mit Set, Get, Names, All und Nbytes
package checkpoint

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TensorMap is a flat state dict. Iteration follows insertion order so output files
// are deterministic.
type TensorMap struct {
	entries *orderedmap.OrderedMap[string, *Tensor]
}

// NewTensorMap erstellt eine leere TensorMap
func NewTensorMap() *TensorMap {
	return &TensorMap{entries: orderedmap.New[string, *Tensor]()}
}

// Set stores t under name and reports whether an existing entry was replaced.
// A replaced entry keeps its original position.
func (m *TensorMap) Set(name string, t *Tensor) bool {
	_, replaced := m.entries.Set(name, t)
	return replaced
}

func (m *TensorMap) Get(name string) (*Tensor, bool) {
	return m.entries.Get(name)
}

func (m *TensorMap) Len() int {
	return m.entries.Len()
}

// Names gibt die Tensor-Namen in Einfuegereihenfolge zurueck
func (m *TensorMap) Names() []string {
	names := make([]string, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func (m *TensorMap) All() iter.Seq2[string, *Tensor] {
	return func(yield func(string, *Tensor) bool) {
		for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Nbytes gibt die Summe der gepackten Tensor-Groessen zurueck
func (m *TensorMap) Nbytes() int64 {
	var n int64
	for _, t := range m.All() {
		if t != nil {
			n += t.Nbytes()
		}
	}
	return n
}
