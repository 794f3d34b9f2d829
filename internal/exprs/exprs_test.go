package exprs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

func bind(names []string, values ...any) declare.Binding {
	return declare.NewBinding(names, declare.Tuple(values))
}

func TestBound(t *testing.T) {
	scope := []string{"i", "j"}
	tests := []struct {
		src  string
		i, j int
		want float64
	}{
		{src: "2*i + j", i: 1, j: 1, want: 3},
		{src: "2*i + j", i: 2, j: 2, want: 6},
		{src: "double(i) / 2.0", i: 3, j: 0, want: 1.5},
		{src: "10", want: 10},
		{src: "-0.25", want: -0.25},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			fn, err := Bound(tt.src, scope)
			require.NoError(t, err)
			got, err := fn(bind(scope, tt.i, tt.j))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter(t *testing.T) {
	scope := []string{"i", "c"}
	fn, err := Filter("i > 1 && c != 'b'", scope)
	require.NoError(t, err)

	keep, err := fn(bind(scope, 2, "a"))
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = fn(bind(scope, 2, "b"))
	require.NoError(t, err)
	assert.False(t, keep)

	keep, err = fn(bind(scope, 1, "a"))
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestFilterResultType(t *testing.T) {
	fn, err := Filter("i + 1", []string{"i"})
	require.NoError(t, err)
	_, err = fn(bind([]string{"i"}, 1))
	assert.ErrorIs(t, err, ErrResultType)
}

func TestUndeclaredReference(t *testing.T) {
	_, err := Bound("2*i + k", []string{"i", "j"})
	require.Error(t, err)
	assert.ErrorIs(t, err, declare.ErrUnboundIndexReference)

	var unbound *declare.UnboundIndexReferenceError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "k", unbound.Name)
	assert.Equal(t, []string{"i", "j"}, unbound.InScope)
}

func TestCompileError(t *testing.T) {
	_, err := Filter("i >", []string{"i"})
	assert.ErrorIs(t, err, ErrCompile)
}

func TestEvalError(t *testing.T) {
	fn, err := Bound("i / j", []string{"i", "j"})
	require.NoError(t, err)
	_, err = fn(bind([]string{"i", "j"}, 1, 0))
	assert.ErrorIs(t, err, ErrEval)
}

func TestInt(t *testing.T) {
	fn, err := Int("i + 1", []string{"i"})
	require.NoError(t, err)
	got, err := fn(bind([]string{"i"}, 4))
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	fn, err = Int("double(i) / 2.0", []string{"i"})
	require.NoError(t, err)
	_, err = fn(bind([]string{"i"}, 3))
	assert.ErrorIs(t, err, ErrResultType)
}

func TestConstant(t *testing.T) {
	v, ok := Constant("2 + 3")
	require.True(t, ok)
	n, ok := ToInt(v)
	require.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = Constant("i + 1")
	assert.False(t, ok)
}

func TestDependentRangeFromExpressions(t *testing.T) {
	from, err := Int("i", []string{"i"})
	require.NoError(t, err)
	c, err := declare.Resolve(declare.Declaration{
		Name: "x",
		Axes: []declare.Axis{
			{Name: "i", Domain: declare.OneTo(3)},
			{Name: "j", Domain: declare.DependentRange(from, declare.Const(5))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, c.Len())
}
