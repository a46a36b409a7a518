package codegen

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/askamago/askama/ast"
	"github.com/askamago/askama/syntax"
)

// emitNodes walks nodes in order, emitting one Go statement group per node.
// Grounded on the teacher's state.go eval loop, which does the same
// node-by-node dispatch against a live Value instead of a string builder.
func (g *Generator) emitNodes(nodes []ast.Node) error {
	for i, n := range nodes {
		switch v := n.(type) {
		case *ast.Lit:
			g.emitLit(nodes, i, v)
		case *ast.Comment:
			continue
		case *ast.Expr:
			if isSuperCall(v.Expr) {
				if err := g.emitSuper(); err != nil {
					return err
				}
				continue
			}
			code, terminal, err := g.emitExprTerminal(v.Expr)
			if err != nil {
				return err
			}
			g.appendLit(perExprSizeHint)
			if terminal == "safe" || terminal == "escape" {
				g.emitWriteStatement(code, false)
			} else {
				g.emitWriteStatement(code, true)
			}
		case *ast.Cond:
			if err := g.emitCondBranches(v.Branches); err != nil {
				return err
			}
		case *ast.Loop:
			if err := g.emitLoop(v); err != nil {
				return err
			}
		case *ast.Match:
			if err := g.emitMatch(v); err != nil {
				return err
			}
		case *ast.BlockDef:
			if err := g.emitBlockChain(v.Name, 0); err != nil {
				return err
			}
		case *ast.Include:
			if err := g.emitInclude(v); err != nil {
				return err
			}
		case *ast.Extends:
			continue
		case *ast.Import:
			continue
		case *ast.MacroDef:
			continue
		case *ast.Call:
			if err := g.emitCall(v); err != nil {
				return err
			}
		case *ast.Let:
			if err := g.emitLet(v); err != nil {
				return err
			}
		case *ast.FilterBlock:
			if err := g.emitFilterBlock(v); err != nil {
				return err
			}
		case *ast.Raw:
			if v.Content != "" {
				g.appendLit(len(v.Content))
				g.emitWriteStatement(strconv.Quote(v.Content), false)
			}
		default:
			return &Error{Kind: UnsupportedConstruct, Message: fmt.Sprintf("unsupported node type %T", n)}
		}
	}
	return nil
}

func toSyntaxMarker(ms ast.MarkerSet) syntax.Marker { return syntax.Marker(ms) }

// trimRun applies policy to one side of a Lit's whitespace run.
func trimRun(s string, policy syntax.WhitespacePolicy) string {
	switch policy {
	case syntax.Suppress:
		return ""
	case syntax.Minimize:
		if s == "" {
			return ""
		}
		for _, r := range s {
			if r == '\n' {
				return "\n"
			}
		}
		return " "
	default:
		return s
	}
}

// strongerPolicy picks whichever of a and b trims more, for a whitespace run
// governed by two boundary markers at once: Suppress beats Minimize beats
// Preserve.
func strongerPolicy(a, b syntax.WhitespacePolicy) syntax.WhitespacePolicy {
	if a == syntax.Suppress || b == syntax.Suppress {
		return syntax.Suppress
	}
	if a == syntax.Minimize || b == syntax.Minimize {
		return syntax.Minimize
	}
	return syntax.Preserve
}

// emitLit resolves the whitespace policy bordering nodes[i] from its
// neighbors' boundary markers, trims the literal's Leading/Trailing runs
// accordingly, and writes whatever survives as a single sink write.
func (g *Generator) emitLit(nodes []ast.Node, i int, lit *ast.Lit) {
	openMarker := ast.MarkerNone
	if i > 0 {
		_, closeOfPrev := ast.BoundaryWS(nodes[i-1])
		openMarker = closeOfPrev
	}
	closeMarker := ast.MarkerNone
	if i < len(nodes)-1 {
		openOfNext, _ := ast.BoundaryWS(nodes[i+1])
		closeMarker = openOfNext
	}
	leadPolicy := syntax.Resolve(g.target.Whitespace, toSyntaxMarker(openMarker))
	trailPolicy := syntax.Resolve(g.target.Whitespace, toSyntaxMarker(closeMarker))
	var text string
	if lit.Core == "" {
		// splitWS assigns an all-whitespace run entirely to Leading, so
		// either neighbor's marker must be able to govern the whole run,
		// not just whichever half it happened to land in.
		text = trimRun(lit.Leading, strongerPolicy(leadPolicy, trailPolicy))
	} else {
		text = trimRun(lit.Leading, leadPolicy) + lit.Core + trimRun(lit.Trailing, trailPolicy)
	}
	if text == "" {
		return
	}
	g.appendLit(len(text))
	g.emitWriteStatement(strconv.Quote(text), false)
}

func (g *Generator) emitInclude(inc *ast.Include) error {
	if g.target.Loader == nil {
		return &Error{Kind: UnsupportedConstruct, Message: "include " + strconv.Quote(inc.Path) + " requires a configured loader"}
	}
	tmpl, canonical, err := g.target.Loader.Load(g.curDir, inc.Path)
	if err != nil {
		return &Error{Kind: UnsupportedConstruct, Message: "include " + strconv.Quote(inc.Path) + ": " + err.Error()}
	}
	savedDir := g.curDir
	g.curDir = filepath.Dir(canonical)
	g.pushFrame()
	err = g.emitNodes(tmpl.Nodes)
	g.popFrame()
	g.curDir = savedDir
	return err
}

func (g *Generator) emitLet(l *ast.Let) error {
	if l.Value == nil {
		ident := g.bind(l.Pattern, true)
		fmt.Fprintf(&g.buf, "var %s any\n", ident)
		return nil
	}
	code, err := g.emitExpr(l.Value)
	if err != nil {
		return err
	}
	if b, ok := g.lookup(l.Pattern); ok && b.placeholder {
		fmt.Fprintf(&g.buf, "%s = %s\n", b.ident, code)
		g.clearPlaceholder(l.Pattern)
		return nil
	}
	ident := g.bind(l.Pattern, false)
	fmt.Fprintf(&g.buf, "%s := %s\n", ident, code)
	return nil
}

func (g *Generator) emitFilterBlock(fb *ast.FilterBlock) error {
	filterExpr, ok := fb.Filter.(*ast.Filter)
	if !ok {
		return &Error{Kind: BadFilterChain, Message: "filter block's filter chain is malformed"}
	}
	bufIdent := g.freshIdent("fb")
	fmt.Fprintf(&g.buf, "var %s strings.Builder\n", bufIdent)
	savedSink := g.sinkIdent
	g.sinkIdent = "&" + bufIdent
	g.pushFrame()
	err := g.emitNodes(fb.Body)
	g.popFrame()
	g.sinkIdent = savedSink
	if err != nil {
		return err
	}
	code, terminal, err := g.emitFilterTree(filterExpr, bufIdent+".String()")
	if err != nil {
		return err
	}
	g.appendLit(perExprSizeHint)
	if terminal == "safe" || terminal == "escape" {
		g.emitWriteStatement(code, false)
	} else {
		g.emitWriteStatement(code, true)
	}
	return nil
}

// --- conditionals ---

func (g *Generator) emitCondBranches(branches []ast.Branch) error {
	if len(branches) == 0 {
		return nil
	}
	br := branches[0]
	rest := branches[1:]

	switch {
	case br.Guard == nil && br.Let == nil:
		g.pushFrame()
		err := g.emitNodes(br.Body)
		g.popFrame()
		return err
	case br.Let != nil:
		code, err := g.emitExpr(br.Let.Value)
		if err != nil {
			return err
		}
		g.pushFrame()
		ident := g.bind(br.Let.Pattern, false)
		fmt.Fprintf(&g.buf, "if %s := %s; %s != nil {\n", ident, code, ident)
		if err := g.emitNodes(br.Body); err != nil {
			g.popFrame()
			return err
		}
		g.popFrame()
		g.buf.WriteString("} else {\n")
		if err := g.emitCondBranches(rest); err != nil {
			return err
		}
		g.buf.WriteString("}\n")
		return nil
	default:
		code, err := g.emitExpr(br.Guard)
		if err != nil {
			return err
		}
		ok := g.freshIdent("cond")
		fmt.Fprintf(&g.buf, "%s, err := runtime.Truthy(%s)\n", ok, code)
		g.buf.WriteString("if err != nil {\n\treturn err\n}\n")
		fmt.Fprintf(&g.buf, "if %s {\n", ok)
		g.pushFrame()
		if err := g.emitNodes(br.Body); err != nil {
			g.popFrame()
			return err
		}
		g.popFrame()
		g.buf.WriteString("} else {\n")
		if err := g.emitCondBranches(rest); err != nil {
			return err
		}
		g.buf.WriteString("}\n")
		return nil
	}
}

// --- loops ---

func (g *Generator) loopPatternName(e ast.Expression) (string, bool) {
	v, ok := e.(*ast.Var)
	if !ok {
		return "", false
	}
	return v.Name, true
}

func (g *Generator) bindAs(name, ident string) {
	g.frames[len(g.frames)-1][name] = varBinding{ident: ident}
}

func (g *Generator) emitLoop(v *ast.Loop) error {
	if rng, ok := v.Iterable.(*ast.Range); ok {
		if v.Filter != nil {
			return &Error{Kind: UnsupportedConstruct, Message: "a filter clause is not supported on a range-based for loop"}
		}
		return g.emitRangeLoop(v, rng)
	}

	patName, ok := g.loopPatternName(v.Pattern)
	if !ok {
		return &Error{Kind: UnsupportedConstruct, Message: "a for-loop pattern must be a single identifier"}
	}

	collCode, err := g.emitExpr(v.Iterable)
	if err != nil {
		return err
	}
	collIdent := g.freshIdent("coll")
	fmt.Fprintf(&g.buf, "%s := %s\n", collIdent, collCode)

	iterIdent := collIdent
	if v.Filter != nil {
		filteredIdent := g.freshIdent("filtered")
		fmt.Fprintf(&g.buf, "%s := %s[:0:0]\n", filteredIdent, collIdent)
		itemIdent := g.freshIdent("it")
		fmt.Fprintf(&g.buf, "for _, %s := range %s {\n", itemIdent, collIdent)
		g.pushFrame()
		g.bindAs(patName, itemIdent)
		fcode, ferr := g.emitExpr(v.Filter)
		if ferr != nil {
			g.popFrame()
			return ferr
		}
		fok := g.freshIdent("fok")
		fmt.Fprintf(&g.buf, "%s, err := runtime.Truthy(%s)\n", fok, fcode)
		g.buf.WriteString("if err != nil {\n\treturn err\n}\n")
		fmt.Fprintf(&g.buf, "if %s {\n\t%s = append(%s, %s)\n}\n", fok, filteredIdent, filteredIdent, itemIdent)
		g.popFrame()
		g.buf.WriteString("}\n")
		iterIdent = filteredIdent
	}

	hasElse := len(v.Else) > 0
	if hasElse {
		fmt.Fprintf(&g.buf, "if len(%s) == 0 {\n", iterIdent)
		g.pushFrame()
		if err := g.emitNodes(v.Else); err != nil {
			g.popFrame()
			return err
		}
		g.popFrame()
		g.buf.WriteString("} else {\n")
	}

	loopIdent := g.freshIdent("loopv")
	fmt.Fprintf(&g.buf, "%s := runtime.NewLoop(len(%s))\n", loopIdent, iterIdent)
	itemIdent := g.freshIdent("item")
	fmt.Fprintf(&g.buf, "for _, %s := range %s {\n\t%s.Advance()\n", itemIdent, iterIdent, loopIdent)
	g.pushFrame()
	g.bindAs(patName, itemIdent)
	g.bindAs("loop", loopIdent)
	if err := g.emitNodes(v.Body); err != nil {
		g.popFrame()
		return err
	}
	g.popFrame()
	g.buf.WriteString("}\n")

	if hasElse {
		g.buf.WriteString("}\n")
	}
	return nil
}

func (g *Generator) emitRangeLoop(v *ast.Loop, rng *ast.Range) error {
	patName, ok := g.loopPatternName(v.Pattern)
	if !ok {
		return &Error{Kind: UnsupportedConstruct, Message: "a for-loop pattern must be a single identifier"}
	}
	startCode, err := g.emitExpr(rng.Start)
	if err != nil {
		return err
	}
	endCode, err := g.emitExpr(rng.End)
	if err != nil {
		return err
	}
	startIdent := g.freshIdent("start")
	endIdent := g.freshIdent("end")
	fmt.Fprintf(&g.buf, "%s, %s := %s, %s\n", startIdent, endIdent, startCode, endCode)

	nIdent := g.freshIdent("n")
	fmt.Fprintf(&g.buf, "%s := %s - %s\n", nIdent, endIdent, startIdent)
	if rng.Inclusive {
		fmt.Fprintf(&g.buf, "%s++\n", nIdent)
	}
	fmt.Fprintf(&g.buf, "if %s < 0 {\n\t%s = 0\n}\n", nIdent, nIdent)

	hasElse := len(v.Else) > 0
	if hasElse {
		fmt.Fprintf(&g.buf, "if %s == 0 {\n", nIdent)
		g.pushFrame()
		if err := g.emitNodes(v.Else); err != nil {
			g.popFrame()
			return err
		}
		g.popFrame()
		g.buf.WriteString("} else {\n")
	}

	loopIdent := g.freshIdent("loopv")
	fmt.Fprintf(&g.buf, "%s := runtime.NewLoop(int(%s))\n", loopIdent, nIdent)
	condOp := "<"
	if rng.Inclusive {
		condOp = "<="
	}
	itemIdent := g.freshIdent(patName)
	fmt.Fprintf(&g.buf, "for %s := %s; %s %s %s; %s++ {\n\t%s.Advance()\n", itemIdent, startIdent, itemIdent, condOp, endIdent, itemIdent, loopIdent)
	g.pushFrame()
	g.bindAs(patName, itemIdent)
	g.bindAs("loop", loopIdent)
	if err := g.emitNodes(v.Body); err != nil {
		g.popFrame()
		return err
	}
	g.popFrame()
	g.buf.WriteString("}\n")

	if hasElse {
		g.buf.WriteString("}\n")
	}
	return nil
}

// --- match ---

func (g *Generator) emitMatch(m *ast.Match) error {
	code, err := g.emitExpr(m.Scrutinee)
	if err != nil {
		return err
	}
	ident := g.freshIdent("scrut")
	fmt.Fprintf(&g.buf, "switch %s := (any)(%s).(type) {\n", ident, code)
	for _, arm := range m.Arms {
		if arm.Pattern.IsWildcard || arm.Pattern.Variant == "" {
			g.buf.WriteString("default:\n")
		} else {
			fmt.Fprintf(&g.buf, "case %s:\n", arm.Pattern.Variant)
		}
		g.pushFrame()
		if arm.Pattern.Binding != "" {
			g.bindAs(arm.Pattern.Binding, ident)
		}
		for field, local := range arm.Pattern.FieldBinds {
			g.bindAs(local, ident+"."+field)
		}
		if err := g.emitNodes(arm.Body); err != nil {
			g.popFrame()
			return err
		}
		g.popFrame()
	}
	g.buf.WriteString("}\n")
	return nil
}

// --- macro calls ---

func (g *Generator) emitCall(c *ast.Call) error {
	def, ok := g.macros.lookup(c.Scope, c.Name)
	if !ok {
		return &Error{Kind: UnresolvedMacro, Message: "no macro matches " + describeCall(c)}
	}
	if len(c.Args) > len(def.Params) {
		return &Error{Kind: MacroArityMismatch, Message: "too many arguments calling macro " + describeCall(c)}
	}

	g.pushFrame()
	for i, p := range def.Params {
		var code string
		var err error
		switch {
		case i < len(c.Args):
			code, err = g.emitExpr(c.Args[i].Value)
		case p.Default != nil:
			code, err = g.emitExpr(p.Default)
		default:
			g.popFrame()
			return &Error{Kind: MacroArityMismatch, Message: "missing required argument " + p.Name + " calling macro " + describeCall(c)}
		}
		if err != nil {
			g.popFrame()
			return err
		}
		ident := g.bind(p.Name, false)
		fmt.Fprintf(&g.buf, "%s := %s\n", ident, code)
	}
	err := g.emitNodes(def.Body)
	g.popFrame()
	return err
}

func describeCall(c *ast.Call) string {
	if c.Scope != "" {
		return c.Scope + "::" + c.Name
	}
	return c.Name
}
