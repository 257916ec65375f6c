package symbols

import (
	"fmt"

	"relex/internal/relgraph"
)

// DeclID is a stable index into the declaration arena. Declarations are
// referenced by ID everywhere, never by pointer, so cyclic types (a struct
// pointing at its own type) need no special handling.
type DeclID int

// NoDecl marks an absent or unresolved declaration reference.
const NoDecl DeclID = -1

// DeclKind classifies a declaration.
type DeclKind string

const (
	KindVariable  DeclKind = "variable"
	KindFunction  DeclKind = "function"
	KindParameter DeclKind = "parameter"
	KindType      DeclKind = "type"
	KindMacro     DeclKind = "macro"
)

// Declaration is one named entity surfaced by the AST. Immutable once
// created within an analysis pass.
type Declaration struct {
	ID      DeclID
	Name    string
	Kind    DeclKind
	Type    string // declared type name, typedefs not expanded
	FuncPtr bool   // declared through a function-pointer type or declarator
	Scope   ScopeID
	Loc     relgraph.Location
}

// ScopeID indexes the scope arena. Scope 0 is the file scope.
type ScopeID int

type scope struct {
	parent ScopeID
	names  map[string]DeclID
	decls  []DeclID
}

// Binding records one function assigned to a function-pointer identity.
type Binding struct {
	Function string
	FuncDecl DeclID
	Loc      relgraph.Location
}

// Table is the per-file symbol resolver: declaration arena, scope stack,
// flow-insensitive alias unification and the type-alias table.
type Table struct {
	decls  []Declaration
	scopes []*scope
	cur    ScopeID

	aliasParent  map[DeclID]DeclID
	typeAliases  map[string]string
	funcPtrTypes map[string]bool
	bindings     map[DeclID][]Binding
}

// NewTable creates an empty table with the file scope open.
func NewTable() *Table {
	t := &Table{
		aliasParent:  make(map[DeclID]DeclID),
		typeAliases:  make(map[string]string),
		funcPtrTypes: make(map[string]bool),
		bindings:     make(map[DeclID][]Binding),
	}
	t.scopes = append(t.scopes, &scope{parent: -1, names: make(map[string]DeclID)})
	t.cur = 0
	return t
}

// EnterScope opens a child of the current scope and makes it current.
func (t *Table) EnterScope() ScopeID {
	s := &scope{parent: t.cur, names: make(map[string]DeclID)}
	t.scopes = append(t.scopes, s)
	t.cur = ScopeID(len(t.scopes) - 1)
	return t.cur
}

// ExitScope closes the current scope and returns the IDs declared in it,
// so the matcher can finalize instances whose identity lifetime ended.
func (t *Table) ExitScope() []DeclID {
	s := t.scopes[t.cur]
	if s.parent < 0 {
		return nil
	}
	t.cur = s.parent
	return s.decls
}

// FileScopeDecls returns the IDs declared at file scope.
func (t *Table) FileScopeDecls() []DeclID {
	return t.scopes[0].decls
}

// Declare adds a declaration to the current scope.
func (t *Table) Declare(name string, kind DeclKind, typ string, loc relgraph.Location) DeclID {
	id := DeclID(len(t.decls))
	funcPtr := t.IsFuncPtrType(typ)
	t.decls = append(t.decls, Declaration{
		ID: id, Name: name, Kind: kind, Type: typ, FuncPtr: funcPtr,
		Scope: t.cur, Loc: loc,
	})
	s := t.scopes[t.cur]
	s.names[name] = id
	s.decls = append(s.decls, id)
	return id
}

// MarkFuncPtr flags a declaration as function-pointer typed after the fact,
// for declarators like `int (*op)(int, int)` where the pointer shape lives
// in the declarator rather than the type name.
func (t *Table) MarkFuncPtr(id DeclID) {
	if id >= 0 && int(id) < len(t.decls) {
		t.decls[id].FuncPtr = true
	}
}

// Lookup resolves a name through the scope chain.
func (t *Table) Lookup(name string) (DeclID, bool) {
	for sid := t.cur; sid >= 0; {
		s := t.scopes[sid]
		if id, ok := s.names[name]; ok {
			return id, true
		}
		sid = s.parent
	}
	return NoDecl, false
}

// Decl returns a declaration by ID.
func (t *Table) Decl(id DeclID) (Declaration, bool) {
	if id < 0 || int(id) >= len(t.decls) {
		return Declaration{}, false
	}
	return t.decls[id], true
}

// RegisterTypeAlias records a typedef edge alias -> underlying.
func (t *Table) RegisterTypeAlias(alias, underlying string) {
	if alias == "" || alias == underlying {
		return
	}
	t.typeAliases[alias] = underlying
	if t.funcPtrTypes[underlying] {
		t.funcPtrTypes[alias] = true
	}
}

// RegisterFuncPtrType marks a type name as a function-pointer/callback type.
func (t *Table) RegisterFuncPtrType(name string) {
	if name != "" {
		t.funcPtrTypes[name] = true
	}
}

// CanonicalType follows the typedef chain to its root type name, so a rule
// written against pthread_mutex_t matches through intervening typedefs.
func (t *Table) CanonicalType(name string) string {
	seen := map[string]bool{}
	for {
		next, ok := t.typeAliases[name]
		if !ok || seen[name] {
			return name
		}
		seen[name] = true
		name = next
	}
}

// IsFuncPtrType reports whether a type name (through aliases) is a
// function-pointer type.
func (t *Table) IsFuncPtrType(name string) bool {
	return t.funcPtrTypes[t.CanonicalType(name)]
}

// Root follows the alias union to the canonical declaration of a group.
func (t *Table) Root(id DeclID) DeclID {
	for {
		parent, ok := t.aliasParent[id]
		if !ok || parent == id {
			return id
		}
		// Path compression.
		if grand, ok := t.aliasParent[parent]; ok && grand != parent {
			t.aliasParent[id] = grand
		}
		id = parent
	}
}

// Unify merges two alias groups. From that point forward both syntactic
// forms resolve to one ResourceIdentity (flow-insensitive approximation).
func (t *Table) Unify(a, b DeclID) {
	if a < 0 || b < 0 {
		return
	}
	ra, rb := t.Root(a), t.Root(b)
	if ra == rb {
		return
	}
	// The earlier declaration stays canonical, keeping labels stable.
	if ra < rb {
		t.aliasParent[rb] = ra
	} else {
		t.aliasParent[ra] = rb
	}
}

// BindFunction records a function assigned to a pointer identity. Multiple
// bindings make later indirect calls ambiguous.
func (t *Table) BindFunction(target DeclID, fn Declaration, loc relgraph.Location) {
	root := t.Root(target)
	t.bindings[root] = append(t.bindings[root], Binding{
		Function: fn.Name, FuncDecl: fn.ID, Loc: loc,
	})
}

// Candidates returns every function ever bound to the identity's group.
func (t *Table) Candidates(target DeclID) []Binding {
	return t.bindings[t.Root(target)]
}

// String implements a compact debug form.
func (d Declaration) String() string {
	return fmt.Sprintf("%s %s (%s) @%d", d.Kind, d.Name, d.Type, d.Loc.Line)
}
