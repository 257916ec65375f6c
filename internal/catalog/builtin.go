package catalog

import "relex/internal/relgraph"

// builtinRules is the shipped rule table. POSIX and Windows families map
// onto the same resource/role pairs, so the matcher state machines stay
// API-agnostic.
var builtinRules = []Rule{
	// Mutex lifetime.
	{Trigger: "pthread_mutex_init", Category: relgraph.CategoryConcurrency, Resource: "mutex-life", Role: "init", Class: ClassOpener, IdentityArg: 0, SecondaryArg: -1, Partner: "destroy"},
	{Trigger: "pthread_mutex_destroy", Category: relgraph.CategoryConcurrency, Resource: "mutex-life", Role: "destroy", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "InitializeCriticalSection", Category: relgraph.CategoryConcurrency, Resource: "mutex-life", Role: "init", Class: ClassOpener, IdentityArg: 0, SecondaryArg: -1, Partner: "destroy"},
	{Trigger: "DeleteCriticalSection", Category: relgraph.CategoryConcurrency, Resource: "mutex-life", Role: "destroy", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},

	// Mutex hold state.
	{Trigger: "pthread_mutex_lock", Category: relgraph.CategoryConcurrency, Resource: "mutex", Role: "lock", Class: ClassOpener, Mode: ModeExclusive, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "pthread_mutex_trylock", Category: relgraph.CategoryConcurrency, Resource: "mutex", Role: "try-lock", Class: ClassOpener, Mode: ModeExclusive, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "pthread_mutex_unlock", Category: relgraph.CategoryConcurrency, Resource: "mutex", Role: "unlock", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "EnterCriticalSection", Category: relgraph.CategoryConcurrency, Resource: "mutex", Role: "lock", Class: ClassOpener, Mode: ModeExclusive, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "TryEnterCriticalSection", Category: relgraph.CategoryConcurrency, Resource: "mutex", Role: "try-lock", Class: ClassOpener, Mode: ModeExclusive, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "LeaveCriticalSection", Category: relgraph.CategoryConcurrency, Resource: "mutex", Role: "unlock", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},

	// Read-write locks: concurrent readers, single writer.
	{Trigger: "pthread_rwlock_init", Category: relgraph.CategoryConcurrency, Resource: "rwlock-life", Role: "init", Class: ClassOpener, IdentityArg: 0, SecondaryArg: -1, Partner: "destroy"},
	{Trigger: "pthread_rwlock_destroy", Category: relgraph.CategoryConcurrency, Resource: "rwlock-life", Role: "destroy", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "pthread_rwlock_rdlock", Category: relgraph.CategoryConcurrency, Resource: "rwlock", Role: "rdlock", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "pthread_rwlock_tryrdlock", Category: relgraph.CategoryConcurrency, Resource: "rwlock", Role: "try-rdlock", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "pthread_rwlock_wrlock", Category: relgraph.CategoryConcurrency, Resource: "rwlock", Role: "wrlock", Class: ClassOpener, Mode: ModeExclusive, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "pthread_rwlock_trywrlock", Category: relgraph.CategoryConcurrency, Resource: "rwlock", Role: "try-wrlock", Class: ClassOpener, Mode: ModeExclusive, IdentityArg: 0, SecondaryArg: -1, Partner: "unlock"},
	{Trigger: "pthread_rwlock_unlock", Category: relgraph.CategoryConcurrency, Resource: "rwlock", Role: "unlock", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},

	// Condition variables. Waits check that the paired mutex is held.
	{Trigger: "pthread_cond_init", Category: relgraph.CategoryConcurrency, Resource: "cond-life", Role: "init", Class: ClassOpener, IdentityArg: 0, SecondaryArg: -1, Partner: "destroy"},
	{Trigger: "pthread_cond_destroy", Category: relgraph.CategoryConcurrency, Resource: "cond-life", Role: "destroy", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "pthread_cond_wait", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "wait", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: 1, SecondaryResource: "mutex", Partner: "signal"},
	{Trigger: "pthread_cond_timedwait", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "timed-wait", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: 1, SecondaryResource: "mutex", Partner: "signal"},
	{Trigger: "pthread_cond_signal", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "signal", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "pthread_cond_broadcast", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "broadcast", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1, CloseAll: true},
	{Trigger: "SleepConditionVariableCS", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "wait", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: 1, SecondaryResource: "mutex", Partner: "signal"},
	{Trigger: "WakeConditionVariable", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "signal", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "WakeAllConditionVariable", Category: relgraph.CategoryConcurrency, Resource: "cond", Role: "broadcast", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1, CloseAll: true},

	// Semaphores. Counting, so waits are shared-mode openers.
	{Trigger: "sem_init", Category: relgraph.CategoryConcurrency, Resource: "sem-life", Role: "init", Class: ClassOpener, IdentityArg: 0, SecondaryArg: -1, Partner: "destroy"},
	{Trigger: "sem_destroy", Category: relgraph.CategoryConcurrency, Resource: "sem-life", Role: "destroy", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "CreateSemaphore", Category: relgraph.CategoryConcurrency, Resource: "sem-life", Role: "init", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "destroy"},
	{Trigger: "sem_wait", Category: relgraph.CategoryConcurrency, Resource: "sem", Role: "wait", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: -1, Partner: "post"},
	{Trigger: "sem_trywait", Category: relgraph.CategoryConcurrency, Resource: "sem", Role: "try-wait", Class: ClassOpener, Mode: ModeShared, IdentityArg: 0, SecondaryArg: -1, Partner: "post"},
	{Trigger: "sem_post", Category: relgraph.CategoryConcurrency, Resource: "sem", Role: "post", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "ReleaseSemaphore", Category: relgraph.CategoryConcurrency, Resource: "sem", Role: "post", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},

	// Thread lifecycle across the pthread and Windows families.
	{Trigger: "pthread_create", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "create", Class: ClassOpener, IdentityArg: 0, SecondaryArg: -1, CallbackArg: 2, Partner: "join"},
	{Trigger: "pthread_join", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "join", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "pthread_detach", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "detach", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "CreateThread", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "create", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, CallbackArg: 2, Partner: "join"},
	{Trigger: "_beginthreadex", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "create", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, CallbackArg: 2, Partner: "join"},
	{Trigger: "WaitForSingleObject", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "join", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1, Quiet: true},
	{Trigger: "CloseHandle", Category: relgraph.CategoryConcurrency, Resource: "thread", Role: "close", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1, Quiet: true},
	{Trigger: "CloseHandle", Category: relgraph.CategoryConcurrency, Resource: "sem-life", Role: "destroy", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1, Quiet: true},

	// Heap allocations.
	{Trigger: "malloc", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "alloc", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "free"},
	{Trigger: "calloc", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "alloc", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "free"},
	{Trigger: "strdup", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "alloc", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "free"},
	{Trigger: "aligned_alloc", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "alloc", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "free"},
	// realloc releases the old block and opens a new one on the target.
	{Trigger: "realloc", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "free", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1, Quiet: true},
	{Trigger: "realloc", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "alloc", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "free"},
	{Trigger: "free", Category: relgraph.CategoryLifecycle, Resource: "heap", Role: "free", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},

	// Stdio streams.
	{Trigger: "fopen", Category: relgraph.CategoryLifecycle, Resource: "stream", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "fdopen", Category: relgraph.CategoryLifecycle, Resource: "stream", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "tmpfile", Category: relgraph.CategoryLifecycle, Resource: "stream", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "freopen", Category: relgraph.CategoryLifecycle, Resource: "stream", Role: "close", Class: ClassCloser, IdentityArg: 2, SecondaryArg: -1, Quiet: true},
	{Trigger: "freopen", Category: relgraph.CategoryLifecycle, Resource: "stream", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "fclose", Category: relgraph.CategoryLifecycle, Resource: "stream", Role: "close", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},

	// Raw descriptors; close and closesocket share one role.
	{Trigger: "open", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "creat", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "socket", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "accept", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "dup", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "open", Class: ClassOpener, IdentityArg: TargetIdentity, SecondaryArg: -1, Partner: "close"},
	{Trigger: "close", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "close", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
	{Trigger: "closesocket", Category: relgraph.CategoryLifecycle, Resource: "fd", Role: "close", Class: ClassCloser, IdentityArg: 0, SecondaryArg: -1},
}

// Builtin returns the shipped catalog.
func Builtin() *Catalog {
	return New(builtinRules)
}

// BuiltinWith returns the shipped catalog extended with user rules.
func BuiltinWith(extra []Rule) *Catalog {
	merged := make([]Rule, 0, len(builtinRules)+len(extra))
	merged = append(merged, builtinRules...)
	merged = append(merged, extra...)
	return New(merged)
}
