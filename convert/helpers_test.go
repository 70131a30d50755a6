package convert

import (
	"github.com/rlinf/ptconvert/fs/checkpoint"
)

func tensor(dt checkpoint.DType, shape ...int) *checkpoint.Tensor {
	t := &checkpoint.Tensor{DType: dt, Shape: shape, Device: checkpoint.Host}
	t.Data = make([]byte, t.Nbytes())
	return t
}

// mapping baut ein Mapping aus Schluessel/Wert-Paaren
func mapping(kv ...any) *checkpoint.Mapping {
	m := checkpoint.NewMapping()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1].(checkpoint.Node))
	}
	return m
}

func value(v any) *checkpoint.Value {
	return &checkpoint.Value{V: v}
}

func stateDict() *checkpoint.Mapping {
	return mapping(
		"w", tensor(checkpoint.DTypeF32, 2, 2),
		"b", tensor(checkpoint.DTypeF32, 2),
	)
}
