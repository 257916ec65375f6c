package ast

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapter(t *testing.T) {
	for _, lang := range []string{"c", "cpp"} {
		_, err := NewAdapter(lang)
		assert.NoError(t, err, lang)
	}

	_, err := NewAdapter("rust")
	assert.Error(t, err)
}

func TestLanguageForPath(t *testing.T) {
	cases := map[string]string{
		"main.c":   "c",
		"util.h":   "c",
		"app.cpp":  "cpp",
		"app.cc":   "cpp",
		"app.cxx":  "cpp",
		"types.hpp": "cpp",
	}
	for path, want := range cases {
		lang, ok := LanguageForPath(path)
		require.True(t, ok, path)
		assert.Equal(t, want, lang, path)
	}

	_, ok := LanguageForPath("README.md")
	assert.False(t, ok)
}

func TestAdapter_Parse(t *testing.T) {
	source := `
// entry point
int main(void) {
    compute(1, 2);
    return 0;
}
`
	adapter, err := NewAdapter("c")
	require.NoError(t, err)

	file, err := adapter.Parse(context.Background(), "main.c", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, "main.c", file.Path)
	assert.Equal(t, "c", file.Language)
	require.NotNil(t, file.Root)
	assert.Equal(t, "translation_unit", file.Root.Kind)

	t.Run("Comments dropped", func(t *testing.T) {
		assert.Nil(t, file.Root.FirstOfKind("comment"))
	})

	t.Run("Fields preserved", func(t *testing.T) {
		call := file.Root.FirstOfKind("call_expression")
		require.NotNil(t, call)

		callee := call.ChildByField("function")
		require.NotNil(t, callee)
		assert.Equal(t, "compute", callee.Text)

		args := call.ChildByField("arguments")
		require.NotNil(t, args)
		// Commas and parens are anonymous: only the expressions survive.
		require.Len(t, args.Children, 2)
		assert.Equal(t, "1", args.Children[0].Text)
	})

	t.Run("Spans are one-based lines", func(t *testing.T) {
		fn := file.Root.FirstOfKind("function_definition")
		require.NotNil(t, fn)
		assert.Equal(t, 3, fn.Span.StartLine)
		line, _ := fn.Loc()
		assert.Equal(t, 3, line)
	})
}

func TestAdapter_DirectiveTokens(t *testing.T) {
	source := `
#ifndef GUARD
int a;
#endif
`
	adapter, err := NewAdapter("c")
	require.NoError(t, err)
	file, err := adapter.Parse(context.Background(), "guard.h", []byte(source))
	require.NoError(t, err)

	cond := file.Root.FirstOfKind("preproc_ifdef")
	require.NotNil(t, cond)

	directive := cond.ChildByField("directive")
	require.NotNil(t, directive, "the leading token distinguishes #ifdef from #ifndef")
	assert.Equal(t, "#ifndef", directive.Text)
}

func TestAdapter_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.c")
	require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0o644))

	adapter, err := NewAdapter("c")
	require.NoError(t, err)

	file, err := adapter.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)

	_, err = adapter.ParseFile(context.Background(), filepath.Join(dir, "missing.c"))
	assert.Error(t, err)
}
