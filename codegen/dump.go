package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/askamago/askama/ast"
)

// Dump produces the diagnostic text for t.Print ("ast", "code", or "all"),
// grounded on the teacher's state_debug.go tree walk — reused here to print
// the composed AST rather than collect locals referenced by a runtime error.
// "" (the default) produces no output; Generate is the normal entry point.
func Dump(t Target) (string, error) {
	var b strings.Builder
	if t.Print == "ast" || t.Print == "all" {
		if t.Heritage == nil {
			return "", &Error{Kind: UnsupportedConstruct, Message: "print=ast requires a resolved heritage chain"}
		}
		for i, tmpl := range t.Heritage.Chain {
			fmt.Fprintf(&b, "template[%d] %s\n", i, t.Heritage.Paths[i])
			dumpNodes(&b, tmpl.Nodes, 1)
		}
	}
	if t.Print == "code" || t.Print == "all" {
		code, err := Generate(t)
		if err != nil {
			return b.String(), err
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(code)
	}
	return b.String(), nil
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func dumpNodes(b *strings.Builder, nodes []ast.Node, depth int) {
	for _, n := range nodes {
		dumpNode(b, n, depth)
	}
}

func dumpNode(b *strings.Builder, n ast.Node, depth int) {
	indent(b, depth)
	switch v := n.(type) {
	case *ast.Lit:
		fmt.Fprintf(b, "Lit %s\n", strconv.Quote(v.Leading+v.Core+v.Trailing))
	case *ast.Expr:
		fmt.Fprintf(b, "Expr %s\n", dumpExpr(v.Expr))
	case *ast.Comment:
		b.WriteString("Comment\n")
	case *ast.Cond:
		b.WriteString("Cond\n")
		for _, br := range v.Branches {
			indent(b, depth+1)
			switch {
			case br.Let != nil:
				fmt.Fprintf(b, "branch if let %s = %s\n", br.Let.Pattern, dumpExpr(br.Let.Value))
			case br.Guard != nil:
				fmt.Fprintf(b, "branch if %s\n", dumpExpr(br.Guard))
			default:
				b.WriteString("branch else\n")
			}
			dumpNodes(b, br.Body, depth+2)
		}
	case *ast.Loop:
		fmt.Fprintf(b, "Loop %s in %s\n", dumpExpr(v.Pattern), dumpExpr(v.Iterable))
		dumpNodes(b, v.Body, depth+1)
		if len(v.Else) > 0 {
			indent(b, depth)
			b.WriteString("else\n")
			dumpNodes(b, v.Else, depth+1)
		}
	case *ast.Match:
		fmt.Fprintf(b, "Match %s\n", dumpExpr(v.Scrutinee))
		for _, arm := range v.Arms {
			indent(b, depth+1)
			if arm.Pattern.IsWildcard || arm.Pattern.Variant == "" {
				b.WriteString("when _\n")
			} else {
				fmt.Fprintf(b, "when %s\n", arm.Pattern.Variant)
			}
			dumpNodes(b, arm.Body, depth+2)
		}
	case *ast.BlockDef:
		fmt.Fprintf(b, "BlockDef %s\n", v.Name)
		dumpNodes(b, v.Body, depth+1)
	case *ast.Include:
		fmt.Fprintf(b, "Include %s\n", strconv.Quote(v.Path))
	case *ast.Extends:
		fmt.Fprintf(b, "Extends %s\n", strconv.Quote(v.Path))
	case *ast.Import:
		fmt.Fprintf(b, "Import %s as %s\n", strconv.Quote(v.Path), v.Scope)
	case *ast.MacroDef:
		fmt.Fprintf(b, "MacroDef %s/%d\n", v.Name, len(v.Params))
		dumpNodes(b, v.Body, depth+1)
	case *ast.Call:
		fmt.Fprintf(b, "Call %s\n", describeCall(v))
	case *ast.Let:
		if v.Value == nil {
			fmt.Fprintf(b, "Let %s (placeholder)\n", v.Pattern)
		} else {
			fmt.Fprintf(b, "Let %s = %s\n", v.Pattern, dumpExpr(v.Value))
		}
	case *ast.FilterBlock:
		b.WriteString("FilterBlock\n")
		dumpNodes(b, v.Body, depth+1)
	case *ast.Raw:
		fmt.Fprintf(b, "Raw %s\n", strconv.Quote(v.Content))
	default:
		fmt.Fprintf(b, "%T\n", n)
	}
}

func dumpExpr(e ast.Expression) string {
	if e == nil {
		return "<nil>"
	}
	switch v := e.(type) {
	case *ast.StringLit:
		return strconv.Quote(v.Value)
	case *ast.IntLit:
		return strconv.FormatInt(v.Value, 10)
	case *ast.FloatLit:
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case *ast.BoolLit:
		return strconv.FormatBool(v.Value)
	case *ast.Var:
		return v.Name
	case *ast.Field:
		return dumpExpr(v.Target) + "." + v.Name
	case *ast.MethodCall:
		return fmt.Sprintf("%s.%s(...)", dumpExpr(v.Target), v.Name)
	case *ast.FuncCall:
		return fmt.Sprintf("%s(...)", v.Name)
	case *ast.Index:
		return fmt.Sprintf("%s[%s]", dumpExpr(v.Target), dumpExpr(v.Index))
	case *ast.UnaryOp:
		return fmt.Sprintf("(unary %s)", dumpExpr(v.Target))
	case *ast.BinOp:
		return fmt.Sprintf("(%s op %s)", dumpExpr(v.Left), dumpExpr(v.Right))
	case *ast.Group:
		return "(" + dumpExpr(v.Inner) + ")"
	case *ast.Filter:
		if v.Target == nil {
			return v.Name + "(...)"
		}
		return fmt.Sprintf("%s|%s", dumpExpr(v.Target), v.Name)
	case *ast.ArrayLit:
		return "[...]"
	case *ast.Range:
		return fmt.Sprintf("%s..%s", dumpExpr(v.Start), dumpExpr(v.End))
	default:
		return fmt.Sprintf("%T", e)
	}
}
