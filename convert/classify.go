// classify.go - Erkennung flacher State-Dicts
// Enthaelt: AsTensorMap, LooksLikeTensorMap
package convert

import (
	"github.com/rlinf/ptconvert/fs/checkpoint"
)

// AsTensorMap converts n into a TensorMap if n is a non-empty mapping whose keys are
// all strings and whose values are all tensors. Mixed content is rejected as a whole.
func AsTensorMap(n checkpoint.Node) (*checkpoint.TensorMap, bool) {
	m, ok := n.(*checkpoint.Mapping)
	if !ok || m.Len() == 0 {
		return nil, false
	}

	tm := checkpoint.NewTensorMap()
	for k, v := range m.All() {
		name, ok := k.(string)
		if !ok {
			return nil, false
		}

		t, ok := v.(*checkpoint.Tensor)
		if !ok || t == nil {
			return nil, false
		}
		tm.Set(name, t)
	}
	return tm, true
}

// LooksLikeTensorMap meldet, ob n ein gueltiges flaches State-Dict ist
func LooksLikeTensorMap(n checkpoint.Node) bool {
	_, ok := AsTensorMap(n)
	return ok
}
