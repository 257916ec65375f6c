package symbols

import (
	"strconv"
	"strings"

	"relex/internal/ast"
)

// Identity is the resolved resource a relationship event refers to: a
// canonical root declaration plus an optional member path. Distinct members
// of one struct instance are distinct identities; two expressions aliasing
// the same struct collapse to one.
type Identity struct {
	Root     DeclID
	Path     string
	Resolved bool
}

// Key is the map key used by the matcher's instance tables.
func (id Identity) Key() string {
	if !id.Resolved {
		return "u:" + id.Path
	}
	if id.Path == "" {
		return "d:" + strconv.Itoa(int(id.Root))
	}
	return "d:" + strconv.Itoa(int(id.Root)) + ":" + id.Path
}

// Resolve walks an expression's alias chain down to a ResourceIdentity.
// It never fails: opaque expressions yield an unresolved identity keyed by
// their source text, to be recorded at low confidence.
func (t *Table) Resolve(expr *ast.Node) Identity {
	if expr == nil {
		return Identity{Root: NoDecl, Path: "<nil>"}
	}

	switch expr.Kind {
	case "identifier":
		if id, ok := t.Lookup(expr.Text); ok {
			return Identity{Root: t.Root(id), Resolved: true}
		}
		return Identity{Root: NoDecl, Path: expr.Text}

	case "field_expression":
		base := t.Resolve(expr.ChildByField("argument"))
		field := expr.ChildByField("field")
		name := ""
		if field != nil {
			name = field.Text
		}
		base.Path = joinPath(base.Path, name)
		return base

	case "pointer_expression":
		// Address-of and dereference both resolve to the pointee's group;
		// the flow-insensitive approximation folds one level of indirection.
		return t.Resolve(expr.ChildByField("argument"))

	case "subscript_expression":
		base := t.Resolve(expr.ChildByField("argument"))
		base.Path = joinPath(base.Path, "[]")
		return base

	case "parenthesized_expression":
		for _, c := range expr.Children {
			return t.Resolve(c)
		}
		return Identity{Root: NoDecl, Path: expr.Text}

	case "cast_expression":
		return t.Resolve(expr.ChildByField("value"))

	case "assignment_expression":
		return t.Resolve(expr.ChildByField("left"))

	default:
		// Call results, arithmetic, literals: opaque. Keyed by text so two
		// occurrences of the same spelling at least collide.
		return Identity{Root: NoDecl, Path: compact(expr.Text)}
	}
}

// Label renders the identity for records: the canonical declaration's name
// plus the member path, or the raw expression text when unresolved.
func (t *Table) Label(id Identity) string {
	if !id.Resolved {
		if id.Path == "" {
			return "<unresolved>"
		}
		return id.Path
	}
	d, ok := t.Decl(id.Root)
	if !ok {
		return "<unresolved>"
	}
	if id.Path == "" {
		return d.Name
	}
	return d.Name + id.Path
}

func joinPath(base, member string) string {
	if member == "" {
		return base
	}
	if member == "[]" {
		return base + "[]"
	}
	return base + "." + member
}

func compact(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
