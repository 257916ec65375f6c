package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relex/internal/relgraph"
)

func TestBuiltin_DualAPIMapping(t *testing.T) {
	cat := Builtin()

	// POSIX and Windows triggers must land in the same resource/role pairs,
	// so the matcher never sees which API family fired.
	t.Run("Mutex lock", func(t *testing.T) {
		posix := cat.Match("pthread_mutex_lock")
		win := cat.Match("EnterCriticalSection")
		require.Len(t, posix, 1)
		require.Len(t, win, 1)

		assert.Equal(t, posix[0].Resource, win[0].Resource)
		assert.Equal(t, posix[0].Role, win[0].Role)
		assert.Equal(t, ClassOpener, posix[0].Class)
		assert.Equal(t, ModeExclusive, posix[0].Mode)
	})

	t.Run("Thread create", func(t *testing.T) {
		posix := cat.Match("pthread_create")
		win := cat.Match("CreateThread")
		require.Len(t, posix, 1)
		require.Len(t, win, 1)

		assert.Equal(t, "thread", posix[0].Resource)
		assert.Equal(t, posix[0].Role, win[0].Role)
		// pthread_create carries the handle in arg 0, CreateThread returns it.
		assert.Equal(t, 0, posix[0].IdentityArg)
		assert.Equal(t, TargetIdentity, win[0].IdentityArg)
		assert.Equal(t, 2, posix[0].CallbackArg)
		assert.Equal(t, 2, win[0].CallbackArg)
	})

	t.Run("Init and lock use separate resources", func(t *testing.T) {
		init := cat.Match("pthread_mutex_init")
		lock := cat.Match("pthread_mutex_lock")
		require.Len(t, init, 1)
		require.Len(t, lock, 1)
		assert.NotEqual(t, init[0].Resource, lock[0].Resource)
	})

	t.Run("Realloc is closer plus opener", func(t *testing.T) {
		rules := cat.Match("realloc")
		require.Len(t, rules, 2)
		assert.Equal(t, ClassCloser, rules[0].Class)
		assert.True(t, rules[0].Quiet)
		assert.Equal(t, ClassOpener, rules[1].Class)
		assert.Equal(t, TargetIdentity, rules[1].IdentityArg)
	})

	t.Run("Condvar wait checks the paired mutex", func(t *testing.T) {
		rules := cat.Match("pthread_cond_wait")
		require.Len(t, rules, 1)
		assert.Equal(t, 1, rules[0].SecondaryArg)
		assert.Equal(t, "mutex", rules[0].SecondaryResource)
	})

	t.Run("Broadcast closes all", func(t *testing.T) {
		rules := cat.Match("pthread_cond_broadcast")
		require.Len(t, rules, 1)
		assert.True(t, rules[0].CloseAll)
	})

	t.Run("Shared closer is quiet", func(t *testing.T) {
		for _, r := range cat.Match("CloseHandle") {
			assert.True(t, r.Quiet)
		}
	})

	t.Run("Rdlock shared vs wrlock exclusive", func(t *testing.T) {
		rd := cat.Match("pthread_rwlock_rdlock")
		wr := cat.Match("pthread_rwlock_wrlock")
		require.Len(t, rd, 1)
		require.Len(t, wr, 1)
		assert.Equal(t, ModeShared, rd[0].Mode)
		assert.Equal(t, ModeExclusive, wr[0].Mode)
	})

	t.Run("Unknown trigger", func(t *testing.T) {
		assert.Empty(t, cat.Match("printf"))
	})
}

func TestNew_NormalizesSecondaryArg(t *testing.T) {
	cat := New([]Rule{{Trigger: "x_acquire", Resource: "x", Role: "acquire", Class: ClassOpener}})
	rules := cat.Match("x_acquire")
	require.Len(t, rules, 1)
	assert.Equal(t, -1, rules[0].SecondaryArg, "zero SecondaryArg without a resource means unused")
}

func TestCatalog_Triggers(t *testing.T) {
	cat := Builtin()
	triggers := cat.Triggers()
	require.NotEmpty(t, triggers)
	assert.True(t, sortedStrings(triggers), "triggers must come back sorted")
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("Valid rules", func(t *testing.T) {
		path := write("rules.yaml", `
rules:
  - trigger: spin_lock
    category: concurrency
    resource: spinlock
    role: lock
    class: opener
    mode: exclusive
    identity_arg: 0
    partner: unlock
  - trigger: spin_unlock
    category: concurrency
    resource: spinlock
    role: unlock
    class: closer
    identity_arg: 0
`)
		rules, err := LoadFile(path)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "spin_lock", rules[0].Trigger)
		assert.Equal(t, ModeExclusive, rules[0].Mode)

		cat := BuiltinWith(rules)
		assert.Len(t, cat.Match("spin_lock"), 1)
	})

	t.Run("Missing required fields", func(t *testing.T) {
		path := write("bad1.yaml", `
rules:
  - trigger: spin_lock
    class: opener
`)
		_, err := LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("Unknown class", func(t *testing.T) {
		path := write("bad2.yaml", `
rules:
  - trigger: spin_lock
    resource: spinlock
    role: lock
    class: toggler
`)
		_, err := LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestCalibrateConfidence(t *testing.T) {
	t.Run("Resolved identity", func(t *testing.T) {
		assert.InDelta(t, 0.9, CalibrateConfidence(relgraph.CategoryConcurrency, true, false), 0.001)
	})

	t.Run("Unresolved identity degrades", func(t *testing.T) {
		assert.InDelta(t, 0.45, CalibrateConfidence(relgraph.CategoryConcurrency, false, false), 0.001)
	})

	t.Run("Macro expansion degrades", func(t *testing.T) {
		assert.InDelta(t, 0.75, CalibrateConfidence(relgraph.CategoryConcurrency, true, true), 0.001)
	})

	t.Run("Floor", func(t *testing.T) {
		got := CalibrateConfidence(relgraph.CategoryVariable, false, true)
		assert.GreaterOrEqual(t, got, 0.1)
	})
}
