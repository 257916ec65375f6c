package engine

import (
	"strings"

	"relex/internal/ast"
	"relex/internal/catalog"
	"relex/internal/relgraph"
	"relex/internal/symbols"
)

func (r *run) walkNodes(nodes []*ast.Node) {
	for _, n := range nodes {
		r.walkNode(n)
	}
}

// walkNode dispatches one construct in source traversal order. Constructs
// inside inactive preprocessor branches are never reached: Conditional
// returns only the active branch.
func (r *run) walkNode(n *ast.Node) {
	switch n.Kind {
	case "preproc_def", "preproc_function_def":
		r.pp.Observe(n)
		r.recordDirective(n, "define")

	case "preproc_call":
		r.pp.Observe(n)
		if directive := n.ChildByField("directive"); directive != nil && directive.Text == "#undef" {
			r.recordDirective(n, "undef")
		}

	case "preproc_if", "preproc_ifdef":
		r.walkNodes(r.pp.Conditional(n))

	case "preproc_include":
		if path := n.ChildByField("path"); path != nil {
			r.b.AddRecord(relgraph.Record{
				Category:   relgraph.CategoryPreprocessor,
				Resource:   "include",
				Identity:   strings.Trim(path.Text, `"<>`),
				Events:     []relgraph.RoleEvent{{Role: "include", Loc: loc(n)}},
				Status:     relgraph.StatusNormal,
				Confidence: catalog.CalibrateConfidence(relgraph.CategoryPreprocessor, true, false),
			})
		}

	case "type_definition":
		r.handleTypedef(n)

	case "struct_specifier", "union_specifier":
		r.handleStruct(n)

	case "declaration":
		r.handleDeclaration(n)

	case "function_definition":
		r.handleFunction(n)

	case "compound_statement":
		r.tbl.EnterScope()
		r.walkNodes(n.Children)
		r.m.FinalizeDecls(r.tbl.ExitScope())

	case "expression_statement", "return_statement", "if_statement",
		"while_statement", "for_statement", "do_statement",
		"switch_statement", "case_statement", "labeled_statement":
		r.walkNodes(n.Children)

	case "call_expression":
		r.handleCall(n, nil, "")

	case "assignment_expression":
		r.handleAssignment(n)

	default:
		r.walkNodes(n.Children)
	}
}

func (r *run) recordDirective(n *ast.Node, role string) {
	name := ""
	if c := n.ChildByField("name"); c != nil {
		name = c.Text
	} else if c := n.ChildByField("argument"); c != nil {
		name = strings.TrimSpace(c.Text)
	}
	if name == "" {
		return
	}
	r.b.AddRecord(relgraph.Record{
		Category:   relgraph.CategoryPreprocessor,
		Resource:   "macro",
		Identity:   name,
		Events:     []relgraph.RoleEvent{{Role: role, Loc: loc(n)}},
		Status:     relgraph.StatusNormal,
		Confidence: catalog.CalibrateConfidence(relgraph.CategoryPreprocessor, true, false),
	})
}

// handleStruct registers a struct/union type and records its definition
// when a body is present. Member identities are derived lazily from access
// paths, so fields are not declared here.
func (r *run) handleStruct(n *ast.Node) {
	name := ""
	if c := n.ChildByField("name"); c != nil {
		name = c.Text
	}
	body := n.ChildByField("body")
	if name == "" || body == nil {
		return
	}

	r.tbl.Declare(name, symbols.KindType, n.Kind, loc(n))

	var members []string
	for _, field := range body.ChildrenOfKind("field_declaration") {
		if ident := field.FirstOfKind("field_identifier"); ident != nil {
			members = append(members, ident.Text)
		}
	}

	r.b.AddRecord(relgraph.Record{
		Category:   relgraph.CategoryStructType,
		Resource:   "struct",
		Identity:   name,
		Events:     []relgraph.RoleEvent{{Role: "define-struct", Loc: loc(n)}},
		Status:     relgraph.StatusNormal,
		Confidence: catalog.CalibrateConfidence(relgraph.CategoryStructType, true, false),
		Note:       "members: " + strings.Join(members, ","),
	})
}

// handleTypedef registers the alias edge and, for function-pointer shapes,
// marks the alias as a callback type so later declarations through it are
// recognized as indirect-call sources.
func (r *run) handleTypedef(n *ast.Node) {
	typeNode := n.ChildByField("type")
	if typeNode != nil && (typeNode.Kind == "struct_specifier" || typeNode.Kind == "union_specifier") {
		r.handleStruct(typeNode)
	}

	alias := ""
	if d := n.ChildByField("declarator"); d != nil {
		if ident := d.FindFirst(func(c *ast.Node) bool { return c.Kind == "type_identifier" }); ident != nil {
			alias = ident.Text
		}
	}
	if alias == "" {
		return
	}

	if n.FirstOfKind("function_declarator") != nil {
		r.tbl.RegisterFuncPtrType(alias)
		r.b.AddRecord(relgraph.Record{
			Category:   relgraph.CategorySemantic,
			Resource:   "callback-type",
			Identity:   alias,
			Events:     []relgraph.RoleEvent{{Role: "define-callback-type", Loc: loc(n)}},
			Status:     relgraph.StatusNormal,
			Confidence: catalog.CalibrateConfidence(relgraph.CategorySemantic, true, false),
		})
		return
	}

	underlying := underlyingName(typeNode)
	r.tbl.RegisterTypeAlias(alias, underlying)
	r.b.AddRecord(relgraph.Record{
		Category:   relgraph.CategoryStructType,
		Resource:   "typedef",
		Identity:   alias,
		Events:     []relgraph.RoleEvent{{Role: "typedef-of", Loc: loc(n)}},
		Status:     relgraph.StatusNormal,
		Confidence: catalog.CalibrateConfidence(relgraph.CategoryStructType, true, false),
		Note:       underlying,
	})
}

func underlyingName(typeNode *ast.Node) string {
	if typeNode == nil {
		return ""
	}
	if typeNode.Kind == "struct_specifier" || typeNode.Kind == "union_specifier" {
		if name := typeNode.ChildByField("name"); name != nil {
			return name.Text
		}
		return "anonymous-" + strings.TrimSuffix(typeNode.Kind, "_specifier")
	}
	return strings.TrimSpace(typeNode.Text)
}

// handleDeclaration declares every declarator of one declaration statement
// and processes initializers for openers and alias edges.
func (r *run) handleDeclaration(n *ast.Node) {
	typeNode := n.ChildByField("type")
	typeName := underlyingName(typeNode)
	if typeNode != nil && (typeNode.Kind == "struct_specifier" || typeNode.Kind == "union_specifier") {
		if typeNode.ChildByField("body") != nil {
			r.handleStruct(typeNode)
		}
	}

	for _, child := range n.Children {
		if child.Field != "declarator" {
			continue
		}
		r.handleDeclarator(child, typeName)
	}
}

func (r *run) handleDeclarator(d *ast.Node, typeName string) {
	value := d.ChildByField("value")
	inner := d
	if d.Kind == "init_declarator" {
		inner = d.ChildByField("declarator")
	}

	nameNode, shape := unwrapDeclarator(inner)
	if nameNode == nil {
		return
	}

	switch shape {
	case shapeFunction:
		// Prototype; the definition (if any) declares the real body.
		r.tbl.Declare(nameNode.Text, symbols.KindFunction, typeName, loc(nameNode))
		return
	case shapeFuncPtr:
		id := r.tbl.Declare(nameNode.Text, symbols.KindVariable, typeName, loc(nameNode))
		r.tbl.MarkFuncPtr(id)
		r.handleInitializer(id, value)
		return
	default:
		id := r.tbl.Declare(nameNode.Text, symbols.KindVariable, typeName, loc(nameNode))
		r.handleInitializer(id, value)
	}
}

func (r *run) handleInitializer(id symbols.DeclID, value *ast.Node) {
	if value == nil {
		return
	}

	target := symbols.Identity{Root: r.tbl.Root(id), Resolved: true}

	// Casts around allocator calls are routine: (char*)malloc(n).
	if core := unwrapCast(value); core != nil && core.Kind == "call_expression" {
		r.handleCall(core, &target, r.tbl.Label(target))
		return
	}

	r.bindOrAlias(target, value)
	r.walkNode(value)
}

type declaratorShape int

const (
	shapePlain declaratorShape = iota
	shapeFunction
	shapeFuncPtr
)

// unwrapDeclarator digs through pointer/array/paren layers to the declared
// name. A function_declarator over a parenthesized pointer is a
// function-pointer variable; over a bare name it is a function.
func unwrapDeclarator(d *ast.Node) (*ast.Node, declaratorShape) {
	shape := shapePlain
	for d != nil {
		switch d.Kind {
		case "identifier", "field_identifier", "type_identifier":
			return d, shape
		case "pointer_declarator", "array_declarator", "parenthesized_declarator":
			d = declaratorChild(d)
		case "function_declarator":
			inner := d.ChildByField("declarator")
			if inner != nil && inner.Kind == "parenthesized_declarator" {
				shape = shapeFuncPtr
			} else if shape == shapePlain {
				shape = shapeFunction
			}
			d = inner
		default:
			if next := declaratorChild(d); next != nil {
				d = next
			} else {
				return d.FirstOfKind("identifier"), shape
			}
		}
	}
	return nil, shape
}

func declaratorChild(d *ast.Node) *ast.Node {
	if c := d.ChildByField("declarator"); c != nil {
		return c
	}
	for _, c := range d.Children {
		if c.Field != "size" && c.Field != "value" {
			return c
		}
	}
	return nil
}

// handleFunction declares the function, then walks its body in one scope
// shared with the parameters. Scope exit finalizes still-open instances of
// everything declared inside as leaked.
func (r *run) handleFunction(n *ast.Node) {
	fd := n.FirstOfKind("function_declarator")
	if fd == nil {
		return
	}
	nameNode, _ := unwrapDeclarator(fd.ChildByField("declarator"))
	if nameNode == nil {
		return
	}
	name := nameNode.Text

	var fnDecl symbols.DeclID
	if existing, ok := r.tbl.Lookup(name); ok {
		fnDecl = existing
	} else {
		fnDecl = r.tbl.Declare(name, symbols.KindFunction, "", loc(n))
	}

	prevFunc, prevDecl := r.curFunc, r.curFuncDecl
	r.curFunc, r.curFuncDecl = name, fnDecl
	r.m.BeginFunction(name)
	r.tbl.EnterScope()

	if params := fd.ChildByField("parameters"); params != nil {
		for _, p := range params.ChildrenOfKind("parameter_declaration") {
			pName, _ := unwrapDeclarator(p.ChildByField("declarator"))
			if pName == nil {
				continue
			}
			pType := underlyingName(p.ChildByField("type"))
			r.tbl.Declare(pName.Text, symbols.KindParameter, pType, loc(pName))
		}
	}

	if body := n.ChildByField("body"); body != nil {
		// The body's compound_statement shares the parameter scope.
		r.walkNodes(body.Children)
	}

	r.m.FinalizeDecls(r.tbl.ExitScope())
	r.m.EndFunction()
	r.curFunc, r.curFuncDecl = prevFunc, prevDecl
}
