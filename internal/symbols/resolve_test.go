package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relex/internal/ast"
	"relex/internal/relgraph"
)

func ident(name string) *ast.Node {
	return &ast.Node{Kind: "identifier", Text: name}
}

func fieldExpr(base *ast.Node, field string) *ast.Node {
	base.Field = "argument"
	return &ast.Node{
		Kind: "field_expression",
		Children: []*ast.Node{
			base,
			{Kind: "field_identifier", Field: "field", Text: field},
		},
	}
}

func addrOf(arg *ast.Node) *ast.Node {
	arg.Field = "argument"
	return &ast.Node{
		Kind: "pointer_expression",
		Children: []*ast.Node{
			{Kind: "&", Field: "operator", Text: "&"},
			arg,
		},
	}
}

func TestTable_Resolve(t *testing.T) {
	tbl := NewTable()
	ctxID := tbl.Declare("ctx", KindVariable, "struct server", relgraph.Location{Line: 1})
	mID := tbl.Declare("m", KindVariable, "pthread_mutex_t", relgraph.Location{Line: 2})

	t.Run("Identifier", func(t *testing.T) {
		id := tbl.Resolve(ident("m"))
		require.True(t, id.Resolved)
		assert.Equal(t, mID, id.Root)
		assert.Equal(t, "m", tbl.Label(id))
	})

	t.Run("Unknown identifier", func(t *testing.T) {
		id := tbl.Resolve(ident("extern_thing"))
		assert.False(t, id.Resolved)
		assert.Equal(t, "extern_thing", tbl.Label(id))
	})

	t.Run("Member path", func(t *testing.T) {
		id := tbl.Resolve(fieldExpr(ident("ctx"), "lock"))
		require.True(t, id.Resolved)
		assert.Equal(t, ctxID, id.Root)
		assert.Equal(t, ".lock", id.Path)
		assert.Equal(t, "ctx.lock", tbl.Label(id))
	})

	t.Run("Address-of folds to the pointee", func(t *testing.T) {
		id := tbl.Resolve(addrOf(ident("m")))
		require.True(t, id.Resolved)
		assert.Equal(t, mID, id.Root)
		assert.Empty(t, id.Path)
	})

	t.Run("Nested member through address-of", func(t *testing.T) {
		id := tbl.Resolve(addrOf(fieldExpr(ident("ctx"), "lock")))
		require.True(t, id.Resolved)
		assert.Equal(t, ".lock", id.Path)
	})

	t.Run("Subscript", func(t *testing.T) {
		arr := ident("ctx")
		arr.Field = "argument"
		id := tbl.Resolve(&ast.Node{Kind: "subscript_expression", Children: []*ast.Node{arr}})
		require.True(t, id.Resolved)
		assert.Equal(t, "[]", id.Path)
	})

	t.Run("Distinct members are distinct keys", func(t *testing.T) {
		a := tbl.Resolve(fieldExpr(ident("ctx"), "lock"))
		b := tbl.Resolve(fieldExpr(ident("ctx"), "cond"))
		assert.NotEqual(t, a.Key(), b.Key())
	})

	t.Run("Opaque expression keyed by text", func(t *testing.T) {
		call := &ast.Node{Kind: "call_expression", Text: "get_lock()"}
		id := tbl.Resolve(call)
		assert.False(t, id.Resolved)
		assert.Equal(t, "u:get_lock()", id.Key())
	})

	t.Run("Nil expression", func(t *testing.T) {
		id := tbl.Resolve(nil)
		assert.False(t, id.Resolved)
	})
}

func TestIdentity_Key(t *testing.T) {
	resolved := Identity{Root: 7, Resolved: true}
	member := Identity{Root: 7, Path: ".lock", Resolved: true}
	other := Identity{Root: 8, Resolved: true}

	assert.NotEqual(t, resolved.Key(), member.Key())
	assert.NotEqual(t, resolved.Key(), other.Key())
	assert.Equal(t, resolved.Key(), Identity{Root: 7, Resolved: true}.Key())
}
