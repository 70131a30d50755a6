// pickle.go - Aufloesung unbekannter Python-Klassen beim Entpickeln
//
// Enthaelt:
// - newUnpickler: Unpickler mit eigener FindClass-Funktion
// - rebuildParameter: torch.nn.Parameter -> innerer Tensor
// - Object: Opaker Wert fuer Klassen ohne Go-Abbildung
package checkpoint

import (
	"fmt"
	"io"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/rlinf/ptconvert/logutil"
)

func newUnpickler(r io.Reader) pickle.Unpickler {
	u := pickle.NewUnpickler(r)
	u.FindClass = findClass
	return u
}

// findClass is consulted for every class the torch loader does not handle itself.
// It never fails: classes without a Go mapping load as opaque objects.
func findClass(module, name string) (any, error) {
	switch module + "." + name {
	case "torch._utils._rebuild_parameter", "torch._utils._rebuild_parameter_with_state":
		return rebuildParameter{}, nil
	}
	logutil.Trace("opaque class", "module", module, "name", name)
	return &class{module: module, name: name}, nil
}

// rebuildParameter unwraps nn.Parameter(data, requires_grad, backward_hooks[, state]).
type rebuildParameter struct{}

func (rebuildParameter) Call(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("_rebuild_parameter: expected at least 2 arguments, got %d", len(args))
	}
	t, ok := args[0].(*pytorch.Tensor)
	if !ok {
		return nil, fmt.Errorf("_rebuild_parameter: expected tensor, got %T", args[0])
	}
	requiresGrad, ok := args[1].(bool)
	if !ok {
		return nil, fmt.Errorf("_rebuild_parameter: expected bool requires_grad, got %T", args[1])
	}

	p := *t
	p.RequiresGrad = requiresGrad
	return &p, nil
}

type class struct {
	module, name string
}

func (c *class) String() string {
	return c.module + "." + c.name
}

func (c *class) Call(args ...any) (any, error) {
	return &Object{Class: c.String(), Args: args}, nil
}

func (c *class) PyNew(args ...any) (any, error) {
	return &Object{Class: c.String(), Args: args}, nil
}

// Object is an instance of a Python class that has no Go representation, for example
// argparse.Namespace or a numpy scalar. It records what the pickle stream did with it.
type Object struct {
	Class string
	Args  []any
	State any
	Items []any
	Dict  *types.Dict
}

func (o *Object) PySetState(state any) error {
	o.State = state
	return nil
}

func (o *Object) PyDictSet(key, value any) error {
	o.Set(key, value)
	return nil
}

func (o *Object) Set(key, value any) {
	if o.Dict == nil {
		o.Dict = types.NewDict()
	}
	o.Dict.Set(key, value)
}

func (o *Object) Append(v any) {
	o.Items = append(o.Items, v)
}

func (o *Object) String() string {
	var sb strings.Builder
	sb.WriteString(o.Class)
	sb.WriteByte('(')
	if d, ok := o.State.(*types.Dict); ok {
		for i, k := range d.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			v, _ := d.Get(k)
			fmt.Fprintf(&sb, "%v=%v", k, v)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
