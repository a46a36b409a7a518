package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/askamago/askama/ast"
)

// emitExpr translates e into a Go expression, discarding the terminal-filter
// marker emitExprTerminal reports (only the Expr-node write site needs it).
func (g *Generator) emitExpr(e ast.Expression) (string, error) {
	code, _, err := g.emitExprTerminal(e)
	return code, err
}

// emitExprTerminal is emitExpr plus a marker naming the filter that produced
// code when e's outermost node is a terminal `safe`/`escape` filter call —
// those already return a display-ready string, so the Expr-node write site
// must skip the active escaper rather than double-apply it.
func (g *Generator) emitExprTerminal(e ast.Expression) (string, string, error) {
	switch v := e.(type) {
	case *ast.StringLit:
		return strconv.Quote(v.Value), "", nil
	case *ast.IntLit:
		return strconv.FormatInt(v.Value, 10), "", nil
	case *ast.FloatLit:
		return strconv.FormatFloat(v.Value, 'g', -1, 64), "", nil
	case *ast.BoolLit:
		return strconv.FormatBool(v.Value), "", nil
	case *ast.Var:
		return g.resolveVar(v), "", nil
	case *ast.Field:
		// `loop.index` and friends read the runtime.Loop adapter's methods.
		if tv, ok := v.Target.(*ast.Var); ok && tv.Prefix == ast.PathNone && tv.Name == "loop" {
			if b, ok := g.lookup("loop"); ok && strings.HasPrefix(b.ident, "loopv") {
				return b.ident + "." + exportedName(v.Name) + "()", "", nil
			}
		}
		target, err := g.emitExpr(v.Target)
		if err != nil {
			return "", "", err
		}
		return target + "." + v.Name, "", nil
	case *ast.MethodCall:
		target, err := g.emitExpr(v.Target)
		if err != nil {
			return "", "", err
		}
		args, err := g.emitArgs(v.Args)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%s.%s(%s)", target, v.Name, strings.Join(args, ", ")), "", nil
	case *ast.FuncCall:
		if v.Name == "super" {
			return "", "", &Error{Kind: UnsupportedConstruct, Message: "super() is only valid as a standalone `{{ super() }}` statement"}
		}
		args, err := g.emitArgs(v.Args)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%s(%s)", v.Name, strings.Join(args, ", ")), "", nil
	case *ast.Index:
		target, err := g.emitExpr(v.Target)
		if err != nil {
			return "", "", err
		}
		idx, err := g.emitExpr(v.Index)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%s[%s]", target, idx), "", nil
	case *ast.UnaryOp:
		inner, err := g.emitExpr(v.Target)
		if err != nil {
			return "", "", err
		}
		if v.Op == ast.UnaryNot {
			return fmt.Sprintf("!runtime.TruthyOrFalse(%s)", inner), "", nil
		}
		return "-" + inner, "", nil
	case *ast.BinOp:
		code, err := g.emitBinOp(v)
		return code, "", err
	case *ast.Group:
		inner, err := g.emitExpr(v.Inner)
		if err != nil {
			return "", "", err
		}
		return "(" + inner + ")", "", nil
	case *ast.Filter:
		return g.emitFilterTree(v, "")
	case *ast.ArrayLit:
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			s, err := g.emitExpr(it)
			if err != nil {
				return "", "", err
			}
			items[i] = s
		}
		return "[]any{" + strings.Join(items, ", ") + "}", "", nil
	case *ast.Range:
		return "", "", &Error{Kind: UnsupportedConstruct, Message: "a range expression is only valid directly in a for-loop's iterable position"}
	default:
		return "", "", &Error{Kind: UnsupportedConstruct, Message: fmt.Sprintf("unsupported expression type %T", e)}
	}
}

func (g *Generator) emitArgs(args []ast.Arg) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := g.emitExpr(a.Value)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (g *Generator) emitBinOp(v *ast.BinOp) (string, error) {
	l, err := g.emitExpr(v.Left)
	if err != nil {
		return "", err
	}
	r, err := g.emitExpr(v.Right)
	if err != nil {
		return "", err
	}
	call, ok := binOpCall[v.Op]
	if !ok {
		return "", &Error{Kind: UnsupportedConstruct, Message: "unsupported binary operator"}
	}
	return fmt.Sprintf("%s(%s, %s)", call, l, r), nil
}

var binOpCall = map[ast.BinaryKind]string{
	ast.BinMul:  "runtime.Mul",
	ast.BinDiv:  "runtime.Div",
	ast.BinMod:  "runtime.Mod",
	ast.BinAdd:  "runtime.Add",
	ast.BinSub:  "runtime.Sub",
	ast.BinShl:  "runtime.Shl",
	ast.BinShr:  "runtime.Shr",
	ast.BinAnd:  "runtime.BitAnd",
	ast.BinXor:  "runtime.BitXor",
	ast.BinOr:   "runtime.BitOr",
	ast.BinEq:   "runtime.Eq",
	ast.BinNe:   "runtime.Ne",
	ast.BinLt:   "runtime.Lt",
	ast.BinLe:   "runtime.Le",
	ast.BinGt:   "runtime.Gt",
	ast.BinGe:   "runtime.Ge",
	ast.BinLAnd: "runtime.LogicalAnd",
	ast.BinLOr:  "runtime.LogicalOr",
}

// emitFilterTree walks a (possibly headless) filter chain. implicit is the
// already-emitted Go expression substituted for the innermost filter's nil
// Target — set by {% filter %} blocks, "" everywhere else (where a nil
// Target is a codegen bug, not a valid headless chain).
func (g *Generator) emitFilterTree(f *ast.Filter, implicit string) (string, string, error) {
	var target string
	switch t := f.Target.(type) {
	case nil:
		if implicit == "" {
			return "", "", &Error{Kind: BadFilterChain, Message: "filter " + f.Name + " has no target expression"}
		}
		target = implicit
	case *ast.Filter:
		var err error
		target, _, err = g.emitFilterTree(t, implicit)
		if err != nil {
			return "", "", err
		}
	default:
		var err error
		target, err = g.emitExpr(f.Target)
		if err != nil {
			return "", "", err
		}
	}
	return g.emitFilterCall(f, target)
}

// emitFilterCall dispatches one filter application against its already-
// emitted target expression. Built-ins map onto package runtime; anything
// else is assumed to be a package-level function the host package defines,
// named by title-casing the filter's template-source name.
func (g *Generator) emitFilterCall(f *ast.Filter, target string) (string, string, error) {
	args, err := g.emitArgs(f.Args)
	if err != nil {
		return "", "", err
	}
	arg := func(i int, fallback string) string {
		if i < len(args) {
			return args[i]
		}
		return fallback
	}
	switch f.Name {
	case "upper":
		return fmt.Sprintf("runtime.Upper(%s)", target), "", nil
	case "lower":
		return fmt.Sprintf("runtime.Lower(%s)", target), "", nil
	case "capitalize":
		return fmt.Sprintf("runtime.Capitalize(%s)", target), "", nil
	case "trim":
		return fmt.Sprintf("runtime.Trim(%s)", target), "", nil
	case "truncate":
		return fmt.Sprintf("runtime.Truncate(%s, %s)", target, arg(0, "0")), "", nil
	case "indent":
		return fmt.Sprintf("runtime.Indent(%s, %s)", target, arg(0, "0")), "", nil
	case "join":
		return fmt.Sprintf("runtime.Join(%s, %s)", target, arg(0, `""`)), "", nil
	case "default":
		return fmt.Sprintf("runtime.Default(%s, %s)", target, arg(0, target)), "", nil
	case "number_format":
		return fmt.Sprintf("runtime.NumberFormat(%s, %s)", target, arg(0, "0")), "", nil
	case "linebreaks":
		return fmt.Sprintf("runtime.Linebreaks(%s)", target), "", nil
	case "repr":
		return fmt.Sprintf("runtime.Repr(%s)", target), "", nil
	case "escape":
		name := g.target.Escaper.Name
		if len(f.Args) > 0 {
			if sl, ok := f.Args[0].Value.(*ast.StringLit); ok {
				name = sl.Value
			}
		}
		return fmt.Sprintf("runtime.Escape(runtime.Display(%s), %s)", target, strconv.Quote(name)), "escape", nil
	case "safe":
		return fmt.Sprintf("runtime.Safe(runtime.Display(%s))", target), "safe", nil
	default:
		allArgs := append([]string{target}, args...)
		return fmt.Sprintf("%s(%s)", exportedName(f.Name), strings.Join(allArgs, ", ")), "", nil
	}
}
