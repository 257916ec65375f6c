package xref

import (
	"regexp"
	"strconv"
	"strings"

	"relex/internal/ast"
	"relex/internal/relgraph"
)

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Preprocessor tracks macro definitions in file order and evaluates
// #if-family conditions against them. Evaluation covers integers and
// defined-ness only; anything else is unresolved and defaults to active so
// guarded constructs are not silently dropped.
type Preprocessor struct {
	macros  map[string]string // object-like: name -> replacement text
	fnBody  map[string]string // function-like: name -> body text
	regions []relgraph.Region
}

// NewPreprocessor creates an empty macro table.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		macros: make(map[string]string),
		fnBody: make(map[string]string),
	}
}

// Observe consumes a directive node. It must only be called for directives
// inside active regions; the engine's traversal guarantees that.
func (p *Preprocessor) Observe(n *ast.Node) {
	switch n.Kind {
	case "preproc_def":
		name := childText(n, "name")
		if name == "" {
			return
		}
		p.macros[name] = strings.TrimSpace(childText(n, "value"))

	case "preproc_function_def":
		name := childText(n, "name")
		if name == "" {
			return
		}
		p.fnBody[name] = strings.TrimSpace(childText(n, "value"))

	case "preproc_call":
		directive := childText(n, "directive")
		if directive == "#undef" {
			arg := strings.TrimSpace(childText(n, "argument"))
			if arg != "" {
				arg = identRe.FindString(arg)
				delete(p.macros, arg)
				delete(p.fnBody, arg)
			}
		}
	}
}

// Defined reports whether a macro name is currently defined.
func (p *Preprocessor) Defined(name string) bool {
	if _, ok := p.macros[name]; ok {
		return true
	}
	_, ok := p.fnBody[name]
	return ok
}

// IsFunctionMacro reports whether the name is a known function-like macro.
func (p *Preprocessor) IsFunctionMacro(name string) bool {
	_, ok := p.fnBody[name]
	return ok
}

// MacroCallees returns the identifier tokens appearing in a macro's
// replacement text. The engine intersects them with catalog triggers to
// surface relationship events hidden behind macro expansion.
func (p *Preprocessor) MacroCallees(name string) []string {
	body, ok := p.fnBody[name]
	if !ok {
		body, ok = p.macros[name]
		if !ok {
			return nil
		}
	}
	return identRe.FindAllString(body, -1)
}

// Branch is one arm of a conditional directive after evaluation.
type Branch struct {
	Active     bool
	Unresolved bool
	Condition  string
	Body       []*ast.Node
	// Line anchors empty branches to their directive.
	Line int
}

// Conditional evaluates a preproc_if / preproc_ifdef subtree: exactly one
// branch is chosen active (earlier unresolved conditions default active),
// every branch is recorded as a region, and the active branch's body is
// returned for further traversal.
func (p *Preprocessor) Conditional(n *ast.Node) []*ast.Node {
	branches := p.collectBranches(n)

	var activeBody []*ast.Node
	taken := false
	for _, br := range branches {
		active := br.Active && !taken
		if active {
			taken = true
			activeBody = br.Body
		}
		p.regions = append(p.regions, relgraph.Region{
			StartLine:  bodyStart(br),
			EndLine:    bodyEnd(br),
			Condition:  br.Condition,
			Active:     active,
			Unresolved: br.Unresolved,
		})
	}
	return activeBody
}

// Regions returns every guarded region observed so far, in file order.
func (p *Preprocessor) Regions() []relgraph.Region {
	return p.regions
}

// collectBranches flattens the if/elif/else chain into evaluated branches.
func (p *Preprocessor) collectBranches(n *ast.Node) []Branch {
	var out []Branch

	for n != nil {
		switch n.Kind {
		case "preproc_if", "preproc_elif":
			cond := n.ChildByField("condition")
			val, ok := p.evalExpr(cond, 0)
			out = append(out, Branch{
				Active:     !ok || val != 0,
				Unresolved: !ok,
				Condition:  condText(cond),
				Body:       branchBody(n),
				Line:       n.Span.StartLine,
			})

		case "preproc_ifdef":
			name := childText(n, "name")
			negated := childText(n, "directive") == "#ifndef"
			active := p.Defined(name)
			cond := "defined " + name
			if negated {
				active = !active
				cond = "!defined " + name
			}
			out = append(out, Branch{
				Active:    active,
				Condition: cond,
				Body:      branchBody(n),
				Line:      n.Span.StartLine,
			})

		case "preproc_else":
			out = append(out, Branch{
				Active:    true,
				Condition: "else",
				Body:      branchBody(n),
				Line:      n.Span.StartLine,
			})
		}

		n = n.ChildByField("alternative")
	}

	return out
}

// evalExpr evaluates a preprocessor condition expression. ok is false when
// the value depends on something the table does not know (an externally
// defined build flag, a non-integer construct).
func (p *Preprocessor) evalExpr(n *ast.Node, depth int) (int64, bool) {
	if n == nil || depth > 16 {
		return 0, false
	}

	switch n.Kind {
	case "number_literal":
		return parseNumber(n.Text)

	case "char_literal":
		body := strings.Trim(n.Text, "'")
		if len(body) == 1 {
			return int64(body[0]), true
		}
		return 0, false

	case "identifier":
		value, ok := p.macros[n.Text]
		if !ok {
			return 0, false
		}
		return p.evalText(value, depth+1)

	case "preproc_defined":
		ident := n.FirstOfKind("identifier")
		if ident == nil {
			return 0, false
		}
		if p.Defined(ident.Text) {
			return 1, true
		}
		return 0, true

	case "parenthesized_expression":
		for _, c := range n.Children {
			return p.evalExpr(c, depth+1)
		}
		return 0, false

	case "unary_expression":
		val, ok := p.evalExpr(n.ChildByField("argument"), depth+1)
		if !ok {
			return 0, false
		}
		switch childText(n, "operator") {
		case "!":
			return boolToInt(val == 0), true
		case "-":
			return -val, true
		case "+":
			return val, true
		case "~":
			return ^val, true
		}
		return 0, false

	case "binary_expression":
		op := childText(n, "operator")

		left, lok := p.evalExpr(n.ChildByField("left"), depth+1)
		// Short-circuit logic still resolves when one side is enough.
		if op == "&&" && lok && left == 0 {
			return 0, true
		}
		if op == "||" && lok && left != 0 {
			return 1, true
		}
		right, rok := p.evalExpr(n.ChildByField("right"), depth+1)
		if !lok || !rok {
			return 0, false
		}

		switch op {
		case "==":
			return boolToInt(left == right), true
		case "!=":
			return boolToInt(left != right), true
		case "<":
			return boolToInt(left < right), true
		case "<=":
			return boolToInt(left <= right), true
		case ">":
			return boolToInt(left > right), true
		case ">=":
			return boolToInt(left >= right), true
		case "&&":
			return boolToInt(left != 0 && right != 0), true
		case "||":
			return boolToInt(left != 0 || right != 0), true
		case "+":
			return left + right, true
		case "-":
			return left - right, true
		case "*":
			return left * right, true
		case "/":
			if right == 0 {
				return 0, false
			}
			return left / right, true
		case "%":
			if right == 0 {
				return 0, false
			}
			return left % right, true
		case "&":
			return left & right, true
		case "|":
			return left | right, true
		case "^":
			return left ^ right, true
		case "<<":
			return left << uint(right), true
		case ">>":
			return left >> uint(right), true
		}
		return 0, false

	default:
		return 0, false
	}
}

// evalText resolves a macro replacement string: a number, or a chain of
// object-like macros ending in one.
func (p *Preprocessor) evalText(text string, depth int) (int64, bool) {
	if depth > 16 {
		return 0, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if v, ok := parseNumber(text); ok {
		return v, true
	}
	if identRe.FindString(text) == text {
		if next, ok := p.macros[text]; ok {
			return p.evalText(next, depth+1)
		}
	}
	return 0, false
}

func parseNumber(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimRight(text, "uUlL")
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func childText(n *ast.Node, field string) string {
	c := n.ChildByField(field)
	if c == nil {
		return ""
	}
	return c.Text
}

func condText(cond *ast.Node) string {
	if cond == nil {
		return ""
	}
	return strings.TrimSpace(cond.Text)
}

// branchBody returns a conditional arm's guarded constructs: every child
// that is not the condition, name, directive token or the chained arm.
func branchBody(n *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, c := range n.Children {
		switch c.Field {
		case "condition", "name", "directive", "alternative":
			continue
		}
		out = append(out, c)
	}
	return out
}

func bodyStart(br Branch) int {
	if len(br.Body) > 0 {
		return br.Body[0].Span.StartLine
	}
	return br.Line
}

func bodyEnd(br Branch) int {
	if len(br.Body) > 0 {
		return br.Body[len(br.Body)-1].Span.EndLine
	}
	return br.Line
}
