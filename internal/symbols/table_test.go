package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relex/internal/relgraph"
)

func TestTable_Scopes(t *testing.T) {
	tbl := NewTable()

	global := tbl.Declare("m", KindVariable, "pthread_mutex_t", relgraph.Location{Line: 1})

	tbl.EnterScope()
	local := tbl.Declare("m", KindVariable, "int", relgraph.Location{Line: 5})
	inner := tbl.Declare("p", KindVariable, "char *", relgraph.Location{Line: 6})

	t.Run("Shadowing", func(t *testing.T) {
		id, ok := tbl.Lookup("m")
		require.True(t, ok)
		assert.Equal(t, local, id)
	})

	exited := tbl.ExitScope()

	t.Run("ExitScope returns declared IDs", func(t *testing.T) {
		assert.Equal(t, []DeclID{local, inner}, exited)
	})

	t.Run("Outer declaration visible again", func(t *testing.T) {
		id, ok := tbl.Lookup("m")
		require.True(t, ok)
		assert.Equal(t, global, id)
	})

	t.Run("File scope decls", func(t *testing.T) {
		assert.Equal(t, []DeclID{global}, tbl.FileScopeDecls())
	})

	t.Run("Unknown name", func(t *testing.T) {
		_, ok := tbl.Lookup("ghost")
		assert.False(t, ok)
	})
}

func TestTable_Unify(t *testing.T) {
	tbl := NewTable()

	a := tbl.Declare("a", KindVariable, "pthread_mutex_t", relgraph.Location{Line: 1})
	b := tbl.Declare("b", KindVariable, "pthread_mutex_t *", relgraph.Location{Line: 2})
	c := tbl.Declare("c", KindVariable, "pthread_mutex_t *", relgraph.Location{Line: 3})

	tbl.Unify(b, a)
	tbl.Unify(c, b)

	t.Run("Earlier declaration stays canonical", func(t *testing.T) {
		assert.Equal(t, a, tbl.Root(a))
		assert.Equal(t, a, tbl.Root(b))
		assert.Equal(t, a, tbl.Root(c))
	})

	t.Run("Idempotent", func(t *testing.T) {
		tbl.Unify(a, c)
		assert.Equal(t, a, tbl.Root(c))
	})

	t.Run("Negative IDs ignored", func(t *testing.T) {
		tbl.Unify(NoDecl, a)
		assert.Equal(t, a, tbl.Root(a))
	})
}

func TestTable_TypeAliases(t *testing.T) {
	tbl := NewTable()

	tbl.RegisterTypeAlias("lock_t", "mutex_impl_t")
	tbl.RegisterTypeAlias("mutex_impl_t", "pthread_mutex_t")

	t.Run("Chain follows to root", func(t *testing.T) {
		assert.Equal(t, "pthread_mutex_t", tbl.CanonicalType("lock_t"))
		assert.Equal(t, "pthread_mutex_t", tbl.CanonicalType("pthread_mutex_t"))
	})

	t.Run("Cycle terminates", func(t *testing.T) {
		tbl.RegisterTypeAlias("x_t", "y_t")
		tbl.RegisterTypeAlias("y_t", "x_t")
		got := tbl.CanonicalType("x_t")
		assert.Contains(t, []string{"x_t", "y_t"}, got)
	})

	t.Run("Function pointer flows through alias", func(t *testing.T) {
		tbl.RegisterFuncPtrType("handler_t")
		tbl.RegisterTypeAlias("callback_t", "handler_t")
		assert.True(t, tbl.IsFuncPtrType("callback_t"))
		assert.False(t, tbl.IsFuncPtrType("lock_t"))
	})

	t.Run("Declaration through callback type", func(t *testing.T) {
		id := tbl.Declare("on_event", KindVariable, "callback_t", relgraph.Location{Line: 9})
		decl, ok := tbl.Decl(id)
		require.True(t, ok)
		assert.True(t, decl.FuncPtr)
	})
}

func TestTable_Bindings(t *testing.T) {
	tbl := NewTable()

	fnA := tbl.Declare("handle_a", KindFunction, "", relgraph.Location{Line: 1})
	fnB := tbl.Declare("handle_b", KindFunction, "", relgraph.Location{Line: 4})
	fp := tbl.Declare("fp", KindVariable, "handler_t", relgraph.Location{Line: 8})
	alias := tbl.Declare("fp2", KindVariable, "handler_t", relgraph.Location{Line: 9})

	declA, _ := tbl.Decl(fnA)
	declB, _ := tbl.Decl(fnB)

	tbl.BindFunction(fp, declA, relgraph.Location{Line: 10})
	tbl.Unify(alias, fp)
	tbl.BindFunction(alias, declB, relgraph.Location{Line: 12})

	t.Run("Candidates merge across the alias group", func(t *testing.T) {
		cands := tbl.Candidates(fp)
		require.Len(t, cands, 2)
		assert.Equal(t, "handle_a", cands[0].Function)
		assert.Equal(t, "handle_b", cands[1].Function)
	})

	t.Run("No bindings", func(t *testing.T) {
		assert.Empty(t, tbl.Candidates(fnA))
	})
}

func TestTable_MarkFuncPtr(t *testing.T) {
	tbl := NewTable()
	id := tbl.Declare("op", KindVariable, "int", relgraph.Location{Line: 2})

	decl, _ := tbl.Decl(id)
	assert.False(t, decl.FuncPtr)

	tbl.MarkFuncPtr(id)
	decl, _ = tbl.Decl(id)
	assert.True(t, decl.FuncPtr)
}
