// Package checkpoint - Baumstruktur eines geladenen Checkpoints
//
// Dieses Modul enthaelt den Knotentyp des Checkpoint-Baums:
// - Node: Mapping, Tensor oder Value
// - Mapping: geordnete Zuordnung Schluessel -> Node
// - Value: opaker Blattwert (Metadaten, Listen, Objekte)
// - Walk: Tiefensuche ueber alle String-Pfade
package checkpoint

import (
	"fmt"
	"iter"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind unterscheidet die Varianten eines Node
type Kind int

const (
	KindMapping Kind = iota
	KindTensor
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindTensor:
		return "tensor"
	case KindValue:
		return "value"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one element of a checkpoint tree: a *Mapping, a *Tensor or a *Value.
type Node interface {
	Kind() Kind
}

// Mapping is an insertion-ordered mapping node. Keys are normally strings; pickled
// dicts may also carry ints or tuples, which are kept as is.
type Mapping struct {
	entries *orderedmap.OrderedMap[any, Node]
}

// NewMapping erstellt ein leeres Mapping
func NewMapping() *Mapping {
	return &Mapping{entries: orderedmap.New[any, Node]()}
}

func (m *Mapping) Kind() Kind { return KindMapping }

// Set fuegt einen Eintrag hinzu oder ersetzt ihn an seiner bisherigen Position
func (m *Mapping) Set(key any, n Node) {
	m.entries.Set(key, n)
}

// Get sucht einen String-Schluessel
func (m *Mapping) Get(key string) (Node, bool) {
	return m.entries.Get(key)
}

func (m *Mapping) Len() int {
	return m.entries.Len()
}

// Keys gibt alle Schluessel in Einfuegereihenfolge zurueck
func (m *Mapping) Keys() []any {
	keys := make([]any, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// StringKeys gibt nur die String-Schluessel in Einfuegereihenfolge zurueck
func (m *Mapping) StringKeys() []string {
	keys := make([]string, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		if s, ok := pair.Key.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys
}

// All iteriert ueber alle Eintraege in Einfuegereihenfolge
func (m *Mapping) All() iter.Seq2[any, Node] {
	return func(yield func(any, Node) bool) {
		for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Value is an opaque leaf: anything in a checkpoint that is neither a mapping nor a tensor.
type Value struct {
	V any
}

func (v *Value) Kind() Kind { return KindValue }

func (v *Value) String() string {
	return fmt.Sprintf("%v", v.V)
}

// Walk visits root and every node reachable through string keys, depth first in
// insertion order. The root is visited with the empty path. Returning false from fn
// skips the children of that node.
func Walk(root Node, fn func(path string, n Node) bool) {
	walk(nil, root, fn)
}

func walk(path []string, n Node, fn func(string, Node) bool) {
	if !fn(strings.Join(path, "."), n) {
		return
	}

	m, ok := n.(*Mapping)
	if !ok {
		return
	}

	for k, child := range m.All() {
		s, ok := k.(string)
		if !ok {
			continue
		}
		walk(append(path[:len(path):len(path)], s), child, fn)
	}
}
