package engine

import (
	"relex/internal/ast"
	"relex/internal/catalog"
	"relex/internal/matcher"
	"relex/internal/relgraph"
	"relex/internal/symbols"
	"relex/internal/xref"
)

// handleCall processes one call expression: catalog events, call-graph
// sites, callback bindings, and nested expressions in the arguments.
// target carries the assignment destination when the call's result is
// stored, for rules keyed on the target identity (malloc, fopen).
func (r *run) handleCall(n *ast.Node, target *symbols.Identity, targetLabel string) {
	calleeNode := n.ChildByField("function")
	args := callArguments(n)

	for _, arg := range args {
		r.walkNode(arg)
	}
	if calleeNode == nil {
		return
	}

	if calleeNode.Kind != "identifier" {
		r.handleOpaqueCallee(n, calleeNode)
		return
	}
	callee := calleeNode.Text

	rules := r.cat.Match(callee)
	viaMacro := false
	if len(rules) == 0 && r.pp.Defined(callee) {
		// The callee is a macro; fire rules for any catalog trigger its
		// replacement text mentions, at reduced confidence.
		for _, token := range r.pp.MacroCallees(callee) {
			rules = append(rules, r.cat.Match(token)...)
		}
		viaMacro = len(rules) > 0
	}

	for _, rule := range rules {
		r.fireRule(rule, n, args, target, targetLabel, viaMacro)
	}

	r.recordCallSite(n, callee)
}

// fireRule computes the event's ResourceIdentity and hands it to the
// matcher's state machines.
func (r *run) fireRule(rule catalog.Rule, call *ast.Node, args []*ast.Node, target *symbols.Identity, targetLabel string, viaMacro bool) {
	var identity symbols.Identity
	var label string

	if rule.IdentityArg == catalog.TargetIdentity {
		if target != nil {
			identity = *target
			label = targetLabel
		} else {
			// Result discarded (or stored somewhere opaque): the opened
			// resource has no reachable handle.
			identity = symbols.Identity{Root: symbols.NoDecl, Path: compactText(call)}
			label = identity.Path
		}
	} else if rule.IdentityArg < len(args) {
		identity = r.tbl.Resolve(args[rule.IdentityArg])
		label = r.tbl.Label(identity)
	} else {
		identity = symbols.Identity{Root: symbols.NoDecl, Path: compactText(call)}
		label = identity.Path
	}

	ev := matcher.Event{
		Rule:     rule,
		Identity: identity,
		Label:    label,
		Loc:      loc(call),
		ViaMacro: viaMacro,
	}
	if rule.SecondaryArg >= 0 && rule.SecondaryArg < len(args) {
		sec := r.tbl.Resolve(args[rule.SecondaryArg])
		ev.Secondary = &sec
	}
	r.m.Handle(ev)

	if rule.CallbackArg > 0 && rule.CallbackArg < len(args) {
		r.handleCallback(call, args[rule.CallbackArg], label)
	}

	if !identity.Resolved {
		r.b.AddUnresolved(relgraph.Unresolved{
			Kind:   "identity",
			Name:   label,
			Reason: relgraph.ReasonOpaqueExpr,
			Loc:    loc(call),
		})
	}
}

// handleCallback records a function handed to a spawn-style API (thread
// start routines): a semantic binding plus an indirect call edge from the
// enclosing function.
func (r *run) handleCallback(call, arg *ast.Node, ownerLabel string) {
	fnNode := arg.FindFirst(func(c *ast.Node) bool { return c.Kind == "identifier" })
	if fnNode == nil {
		return
	}
	declID, ok := r.tbl.Lookup(fnNode.Text)
	if !ok {
		return
	}
	decl, _ := r.tbl.Decl(declID)
	if decl.Kind != symbols.KindFunction {
		return
	}

	r.b.AddRecord(relgraph.Record{
		Category:   relgraph.CategorySemantic,
		Resource:   "callback",
		Identity:   ownerLabel,
		Events:     []relgraph.RoleEvent{{Role: "starts-routine", Loc: loc(call)}},
		Status:     relgraph.StatusNormal,
		Confidence: catalog.CalibrateConfidence(relgraph.CategorySemantic, true, false),
		Note:       decl.Name,
	})

	if r.curFunc != "" {
		r.b.AddCallEdge(relgraph.CallEdge{
			Caller:     r.curFunc,
			Callee:     decl.Name,
			Kind:       relgraph.CallIndirect,
			Confidence: 0.85,
			Loc:        loc(call),
		})
	}
}

// recordCallSite captures the call for the cross-reference resolver. Calls
// through variables become indirect sites; known macro invocations with no
// backing declaration are not calls at all.
func (r *run) recordCallSite(n *ast.Node, callee string) {
	if r.curFunc == "" {
		return
	}

	site := xref.CallSite{
		Caller:     r.curFunc,
		CallerDecl: r.curFuncDecl,
		Callee:     callee,
		CalleeDecl: symbols.NoDecl,
		ViaVar:     symbols.NoDecl,
		Loc:        loc(n),
	}

	if declID, ok := r.tbl.Lookup(callee); ok {
		decl, _ := r.tbl.Decl(declID)
		switch decl.Kind {
		case symbols.KindFunction:
			site.CalleeDecl = declID
		case symbols.KindVariable, symbols.KindParameter:
			site.ViaVar = r.tbl.Root(declID)
		}
	} else if r.pp.Defined(callee) {
		return
	}

	r.sites = append(r.sites, site)
}

// handleOpaqueCallee covers calls through non-identifier expressions:
// (*fp)(), table->handler(), callbacks[i]().
func (r *run) handleOpaqueCallee(call, calleeNode *ast.Node) {
	if r.curFunc == "" {
		return
	}
	identity := r.tbl.Resolve(calleeNode)
	if identity.Resolved && identity.Path == "" {
		r.sites = append(r.sites, xref.CallSite{
			Caller:     r.curFunc,
			CallerDecl: r.curFuncDecl,
			Callee:     r.tbl.Label(identity),
			CalleeDecl: symbols.NoDecl,
			ViaVar:     identity.Root,
			Loc:        loc(call),
		})
		return
	}
	r.b.AddUnresolved(relgraph.Unresolved{
		Kind:   "call",
		Name:   compactText(calleeNode),
		Reason: relgraph.ReasonOpaqueExpr,
		Loc:    loc(call),
	})
}

// handleAssignment unifies alias groups, tracks function-pointer bindings,
// and routes opener calls whose identity is the assignment target.
func (r *run) handleAssignment(n *ast.Node) {
	left := n.ChildByField("left")
	right := n.ChildByField("right")
	if left == nil || right == nil {
		return
	}

	target := r.tbl.Resolve(left)
	op := ""
	if opNode := n.ChildByField("operator"); opNode != nil {
		op = opNode.Text
	}

	if core := unwrapCast(right); core != nil && core.Kind == "call_expression" {
		r.handleCall(core, &target, r.tbl.Label(target))
		return
	}

	// Chained assignment: process the inner one first so `x = y = z`
	// unifies right-to-left the way values flow.
	if right.Kind == "assignment_expression" {
		r.handleAssignment(right)
	} else {
		r.walkNodes(right.Children)
	}

	// Compound operators (+=, <<=) compute, they do not alias.
	if op == "=" {
		r.bindOrAlias(target, right)
	}
}

// bindOrAlias processes a plain-assignment RHS against the target identity:
// function names bind (indirect-call candidates), resolvable expressions
// unify alias groups and emit a variable-aliasing record.
func (r *run) bindOrAlias(target symbols.Identity, rhs *ast.Node) {
	src := unwrapValue(rhs)
	if src == nil {
		return
	}

	if src.Kind == "identifier" {
		if declID, ok := r.tbl.Lookup(src.Text); ok {
			decl, _ := r.tbl.Decl(declID)
			if decl.Kind == symbols.KindFunction && target.Resolved {
				r.tbl.BindFunction(target.Root, decl, loc(rhs))
				r.b.AddRecord(relgraph.Record{
					Category:   relgraph.CategorySemantic,
					Resource:   "callback",
					Identity:   r.tbl.Label(target),
					Events:     []relgraph.RoleEvent{{Role: "binds-function", Loc: loc(rhs)}},
					Status:     relgraph.StatusNormal,
					Confidence: catalog.CalibrateConfidence(relgraph.CategorySemantic, true, false),
					Note:       decl.Name,
				})
				return
			}
		}
	}

	source := r.tbl.Resolve(src)
	if !source.Resolved {
		return
	}

	// From this point forward both spellings refer to one identity.
	if target.Resolved && target.Path == "" && source.Path == "" {
		r.tbl.Unify(target.Root, source.Root)
	}

	r.b.AddRecord(relgraph.Record{
		Category:   relgraph.CategoryVariable,
		Resource:   "alias",
		Identity:   r.tbl.Label(target),
		Events:     []relgraph.RoleEvent{{Role: "assign", Loc: loc(rhs)}},
		Status:     relgraph.StatusNormal,
		Confidence: catalog.CalibrateConfidence(relgraph.CategoryVariable, target.Resolved, false),
		Note:       "from " + r.tbl.Label(source),
	})
}

// unwrapCast strips casts and parens, leaving pointer operators in place.
func unwrapCast(n *ast.Node) *ast.Node {
	for n != nil {
		switch n.Kind {
		case "cast_expression":
			n = n.ChildByField("value")
		case "parenthesized_expression":
			if len(n.Children) == 0 {
				return nil
			}
			n = n.Children[0]
		default:
			return n
		}
	}
	return nil
}

// unwrapValue strips address-of, casts and parens off an RHS expression.
func unwrapValue(n *ast.Node) *ast.Node {
	for n != nil {
		switch n.Kind {
		case "pointer_expression":
			n = n.ChildByField("argument")
		case "cast_expression":
			n = n.ChildByField("value")
		case "parenthesized_expression":
			if len(n.Children) == 0 {
				return nil
			}
			n = n.Children[0]
		default:
			return n
		}
	}
	return nil
}

// callArguments returns the named argument expressions of a call.
func callArguments(n *ast.Node) []*ast.Node {
	list := n.ChildByField("arguments")
	if list == nil {
		return nil
	}
	return list.Children
}

func compactText(n *ast.Node) string {
	t := n.Text
	if len(t) > 48 {
		t = t[:48]
	}
	return t
}
