// torch_test.go - Unit Tests fuer die Umwandlung entpickelter Werte
package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/stretchr/testify/require"
)

func TestFromPickle(t *testing.T) {
	storage := &pytorch.FloatStorage{
		BaseStorage: pytorch.BaseStorage{Size: 6, Location: "cuda:0"},
		Data:        []float32{1, 2, 3, 4, 5, 6},
	}
	weight := &pytorch.Tensor{Source: storage, Size: []int{2, 3}, Stride: []int{3, 1}, RequiresGrad: true}
	weightT := &pytorch.Tensor{Source: storage, Size: []int{3, 2}, Stride: []int{1, 3}}

	steps := &pytorch.Tensor{
		Source: &pytorch.LongStorage{BaseStorage: pytorch.BaseStorage{Size: 1, Location: "cpu"}, Data: []int64{42}},
		Size:   []int{},
		Stride: []int{},
	}

	sd := types.NewOrderedDict()
	sd.Set("module.w", weight)
	sd.Set("module.wt", weightT)
	sd.Set("steps", steps)

	root := types.NewDict()
	root.Set("epoch", 3)
	root.Set("model_state_dict", sd)

	t.Run("keep location", func(t *testing.T) {
		n, err := FromPickle(root, "")
		require.NoError(t, err)

		m, ok := n.(*Mapping)
		require.True(t, ok)
		if diff := cmp.Diff([]string{"epoch", "model_state_dict"}, m.StringKeys()); diff != "" {
			t.Errorf("Keys falsch (-want +got):\n%s", diff)
		}

		epoch, _ := m.Get("epoch")
		require.Equal(t, KindValue, epoch.Kind())

		inner, _ := m.Get("model_state_dict")
		sdm := inner.(*Mapping)
		if diff := cmp.Diff([]string{"module.w", "module.wt", "steps"}, sdm.StringKeys()); diff != "" {
			t.Errorf("State-Dict-Keys falsch (-want +got):\n%s", diff)
		}

		w, _ := sdm.Get("module.w")
		wt, _ := sdm.Get("module.wt")
		tw, twt := w.(*Tensor), wt.(*Tensor)
		require.Equal(t, DTypeF32, tw.DType)
		require.Equal(t, "cuda:0", tw.Device)
		require.True(t, tw.RequiresGrad)
		require.True(t, tw.IsContiguous())
		require.False(t, twt.IsContiguous())
		require.Same(t, &tw.Data[0], &twt.Data[0], "Views muessen den Storage teilen")
		if diff := cmp.Diff([]float32{1, 4, 2, 5, 3, 6}, f32Values(t, twt.Contiguous())); diff != "" {
			t.Errorf("Transponierte Werte falsch (-want +got):\n%s", diff)
		}

		s, _ := sdm.Get("steps")
		ts := s.(*Tensor)
		require.Equal(t, DTypeI64, ts.DType)
		require.Equal(t, int64(8), ts.Nbytes())
	})

	t.Run("map location", func(t *testing.T) {
		n, err := FromPickle(root, "cpu")
		require.NoError(t, err)
		inner, _ := n.(*Mapping).Get("model_state_dict")
		w, _ := inner.(*Mapping).Get("module.w")
		require.True(t, w.(*Tensor).IsHost())
	})
}

func TestFromPickleStorageTypes(t *testing.T) {
	base := pytorch.BaseStorage{Size: 2, Location: "cpu"}
	cases := []struct {
		storage pytorch.StorageInterface
		dtype   DType
	}{
		{&pytorch.DoubleStorage{BaseStorage: base, Data: []float64{1, 2}}, DTypeF64},
		{&pytorch.HalfStorage{BaseStorage: base, Data: []float32{1, 2}}, DTypeF16},
		{&pytorch.BFloat16Storage{BaseStorage: base, Data: []float32{1, 2}}, DTypeBF16},
		{&pytorch.IntStorage{BaseStorage: base, Data: []int32{1, 2}}, DTypeI32},
		{&pytorch.ShortStorage{BaseStorage: base, Data: []int16{1, 2}}, DTypeI16},
		{&pytorch.CharStorage{BaseStorage: base, Data: []int8{1, 2}}, DTypeI8},
		{&pytorch.ByteStorage{BaseStorage: base, Data: []uint8{1, 2}}, DTypeU8},
		{&pytorch.BoolStorage{BaseStorage: base, Data: []bool{true, false}}, DTypeBool},
	}

	for _, tt := range cases {
		t.Run(tt.dtype.String(), func(t *testing.T) {
			n, err := FromPickle(&pytorch.Tensor{Source: tt.storage, Size: []int{2}, Stride: []int{1}}, "")
			require.NoError(t, err)
			x := n.(*Tensor)
			require.Equal(t, tt.dtype, x.DType)
			require.Len(t, x.Bytes(), 2*tt.dtype.Size())
		})
	}
}

func TestFromPickleOutOfBounds(t *testing.T) {
	pt := &pytorch.Tensor{
		Source: &pytorch.FloatStorage{BaseStorage: pytorch.BaseStorage{Size: 2}, Data: []float32{1, 2}},
		Size:   []int{3},
		Stride: []int{1},
	}
	_, err := FromPickle(pt, "")
	require.Error(t, err)
}

func TestFromPickleOpaqueValues(t *testing.T) {
	for _, v := range []any{"adam", 3, 0.5, nil} {
		n, err := FromPickle(v, "")
		require.NoError(t, err)
		require.Equal(t, KindValue, n.Kind())
		require.Equal(t, v, n.(*Value).V)
	}
}

// Die Fixtures in testdata/ erzeugt generate_fixtures.py im torch.save-Zip-Format.
func TestLoadCheckpoint(t *testing.T) {
	n, err := Load(filepath.Join("testdata", "checkpoint.pt"), "")
	require.NoError(t, err)

	m, ok := n.(*Mapping)
	require.True(t, ok, "Wurzel muss ein Mapping sein, ist %T", n)
	if diff := cmp.Diff([]string{"model_state_dict", "epoch", "args", "best_reward"}, m.StringKeys()); diff != "" {
		t.Errorf("Keys falsch (-want +got):\n%s", diff)
	}

	epoch, _ := m.Get("epoch")
	require.Equal(t, 3, epoch.(*Value).V)

	args, _ := m.Get("args")
	ns, ok := args.(*Value).V.(*Object)
	require.True(t, ok, "args muss ein opakes Objekt sein, ist %T", args.(*Value).V)
	require.Equal(t, "argparse.Namespace", ns.Class)
	require.Equal(t, "argparse.Namespace(lr=0.1, name=ppo)", ns.String())

	reward, _ := m.Get("best_reward")
	scalar, ok := reward.(*Value).V.(*Object)
	require.True(t, ok, "best_reward muss ein opakes Objekt sein, ist %T", reward.(*Value).V)
	require.Equal(t, "numpy.core.multiarray.scalar", scalar.Class)
	require.Len(t, scalar.Args, 2)
	dt, ok := scalar.Args[0].(*Object)
	require.True(t, ok)
	require.Equal(t, "numpy.dtype", dt.Class)
	require.NotNil(t, dt.State)

	inner, _ := m.Get("model_state_dict")
	sd := inner.(*Mapping)
	if diff := cmp.Diff([]string{"module.w", "module.wt", "module.b"}, sd.StringKeys()); diff != "" {
		t.Errorf("State-Dict-Keys falsch (-want +got):\n%s", diff)
	}

	w, _ := sd.Get("module.w")
	wt, _ := sd.Get("module.wt")
	tw, twt := w.(*Tensor), wt.(*Tensor)
	require.Equal(t, DTypeF32, tw.DType)
	require.Equal(t, "cuda:0", tw.Device)
	require.False(t, tw.RequiresGrad)
	require.Same(t, &tw.Data[0], &twt.Data[0], "Views muessen den Storage teilen")
	if diff := cmp.Diff([]float32{1, 2, 3, 4}, f32Values(t, tw)); diff != "" {
		t.Errorf("Werte falsch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 3, 2, 4}, f32Values(t, twt.Contiguous())); diff != "" {
		t.Errorf("Transponierte Werte falsch (-want +got):\n%s", diff)
	}

	b, _ := sd.Get("module.b")
	if diff := cmp.Diff([]float32{0.5, -1}, f32Values(t, b.(*Tensor))); diff != "" {
		t.Errorf("Bias falsch (-want +got):\n%s", diff)
	}
}

func TestLoadMapLocation(t *testing.T) {
	n, err := Load(filepath.Join("testdata", "checkpoint.pt"), "cpu")
	require.NoError(t, err)

	inner, _ := n.(*Mapping).Get("model_state_dict")
	w, _ := inner.(*Mapping).Get("module.w")
	require.True(t, w.(*Tensor).IsHost())
}

func TestLoadParameters(t *testing.T) {
	n, err := Load(filepath.Join("testdata", "parameters.pt"), "")
	require.NoError(t, err)

	m := n.(*Mapping)
	require.Equal(t, []string{"w", "steps"}, m.StringKeys())

	w, _ := m.Get("w")
	tw, ok := w.(*Tensor)
	require.True(t, ok, "Parameter muss als Tensor geladen werden, ist %T", w)
	require.True(t, tw.RequiresGrad)
	if diff := cmp.Diff([]float32{1, 2, 3}, f32Values(t, tw)); diff != "" {
		t.Errorf("Werte falsch (-want +got):\n%s", diff)
	}

	steps, _ := m.Get("steps")
	ts := steps.(*Tensor)
	require.Equal(t, DTypeI64, ts.DType)
	require.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0}, ts.Bytes())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pt"), "")
	require.Error(t, err)
}

func TestRebuildParameterArgs(t *testing.T) {
	_, err := rebuildParameter{}.Call("not a tensor", true)
	require.Error(t, err)

	_, err = rebuildParameter{}.Call(&pytorch.Tensor{})
	require.Error(t, err)
}

func TestObjectContainers(t *testing.T) {
	c, err := findClass("omegaconf.listconfig", "ListConfig")
	require.NoError(t, err)

	v, err := c.(*class).PyNew()
	require.NoError(t, err)
	o := v.(*Object)
	o.Append(1)
	o.Set("k", "v")
	require.NoError(t, o.PySetState(types.NewDict()))

	require.Equal(t, "omegaconf.listconfig.ListConfig", o.Class)
	require.Equal(t, []any{1}, o.Items)
	require.Equal(t, "v", o.Dict.MustGet("k"))
}
