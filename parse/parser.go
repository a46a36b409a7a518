// Package parse implements the template parser of spec §4.2: a recursive-
// descent parser consuming a template source string under an active
// syntax.Table and producing an ast.Template, or failing fast with an
// *Error carrying a byte offset and expected-construct hint.
//
// Grounded on the teacher's parser/parser.go (the same atoms→postfix→
// unary→binary-by-precedence climbing shape and tag dispatch-by-keyword
// style) and parser/parser_test.go for the table-driven test shape this
// package's own tests follow.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/askamago/askama/ast"
	"github.com/askamago/askama/lexer"
	"github.com/askamago/askama/syntax"
)

// Parser parses one template source string under a single syntax.Table.
type Parser struct {
	lex      *lexer.Lexer
	table    syntax.Table
	path     string
	src      string
	peeked   *lexer.Token
	endDelim string
}

// New creates a Parser for src (the contents of the template named path)
// under table. p.src holds src trimmed of its single trailing newline (the
// same transform lexer.New applies to its own copy) so that p.src and the
// lexer's byte offsets always agree; parseRaw indexes directly into p.src.
// The lexer itself is handed the untrimmed src, so the newline is stripped
// only once.
func New(path, src string, table syntax.Table) *Parser {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(src, "\n"), "\r")
	return &Parser{lex: lexer.New(src, table), table: table, path: path, src: trimmed}
}

func toMarker(m syntax.Marker) ast.MarkerSet {
	switch m {
	case syntax.MarkerSuppress:
		return ast.MarkerSuppress
	case syntax.MarkerPreserve:
		return ast.MarkerPreserve
	case syntax.MarkerMinimize:
		return ast.MarkerMinimize
	default:
		return ast.MarkerNone
	}
}

func splitWS(s string) (lead, core, trail string) {
	const cutset = " \t\r\n"
	trimmedLeft := strings.TrimLeft(s, cutset)
	lead = s[:len(s)-len(trimmedLeft)]
	trimmed := strings.TrimRight(trimmedLeft, cutset)
	trail = trimmedLeft[len(trimmed):]
	core = trimmed
	return
}

func (e *Error) withOffset(off int) *Error { e.Offset = off; return e }

func errAt(path string, off int, kind Kind, msg, expected string) *Error {
	return &Error{Kind: kind, Path: path, Offset: off, Message: msg, Expected: expected}
}

// Parse runs the parser to completion.
func (p *Parser) Parse() (*ast.Template, error) {
	nodes, stop, _, _, err := p.parseBody(nil, true)
	if err != nil {
		return nil, err
	}
	if stop != "" {
		return nil, errAt(p.path, p.lex.Pos(), Mismatch, fmt.Sprintf("unexpected end tag %q at root", stop), "no matching open tag")
	}
	return &ast.Template{Path: p.path, Nodes: nodes}, nil
}

// endTagsWithName is the set of enders that accept an optional trailing
// identifier (`{% endblock name %}`, `{% endmacro name %}`,
// `{% endfor name %}`) which spec §4.2 requires to equal the opening name.
func endTagsWithName(kw string) bool {
	switch kw {
	case "endblock", "endmacro", "endfor":
		return true
	default:
		return false
	}
}

// parseBody parses nodes until EOF (enders == nil) or until one of the
// block keywords in enders is encountered (which is consumed and returned
// as stop, along with its WS and any trailing end-name identifier, e.g.
// `{% endblock name %}`). atRoot enforces spec §4.2's extends constraint:
// once Extends has been seen as the first real node, only
// BlockDef/MacroDef/Import/Comment may follow at the top level.
func (p *Parser) parseBody(enders []string, atRoot bool) (nodes []ast.Node, stop string, stopWS ast.WS, endName string, err error) {
	extendsSeen := false
	sawReal := false
	for {
		lit, tagKind, leadMark, _ := p.lex.NextLiteralRun()
		if lit != "" {
			lead, core, trail := splitWS(lit)
			if atRoot && extendsSeen && core != "" {
				return nil, "", ast.WS{}, "", errAt(p.path, p.lex.Pos()-len(lit), NonBlockAtRoot, "only block/macro/import/comment may follow extends at root", "block, macro, or import")
			}
			if core != "" {
				sawReal = true
			}
			nodes = append(nodes, ast.NewLit(lead, core, trail, ast.Span{Start: p.lex.Pos() - len(lit), End: p.lex.Pos()}))
		}

		switch tagKind {
		case lexer.KindEOF:
			if enders != nil {
				return nodes, "", ast.WS{}, "", errAt(p.path, p.lex.Pos(), UnexpectedEOF, "unexpected end of template", strings.Join(enders, " or "))
			}
			return nodes, "", ast.WS{}, "", nil

		case lexer.KindCommentStart:
			body, endMark := p.lex.ScanCommentBody()
			_ = body
			nodes = append(nodes, &ast.Comment{WS: ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(endMark)}})

		case lexer.KindExprStart:
			if atRoot && extendsSeen {
				return nil, "", ast.WS{}, "", errAt(p.path, p.lex.Pos(), NonBlockAtRoot, "only block/macro/import/comment may follow extends at root", "block, macro, or import")
			}
			p.endDelim = p.table.ExprEnd
			expr, err := p.parseExpr(0)
			if err != nil {
				return nil, "", ast.WS{}, "", err
			}
			end, err := p.expectEnd(lexer.KindExprEnd, p.table.ExprEnd)
			if err != nil {
				return nil, "", ast.WS{}, "", err
			}
			nodes = append(nodes, &ast.Expr{WS: ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)}, Expr: expr})
			sawReal = true

		case lexer.KindBlockStart:
			p.endDelim = p.table.BlockEnd
			kwTok := p.advance()
			if kwTok.Kind != lexer.KindIdent {
				return nil, "", ast.WS{}, "", errAt(p.path, kwTok.Span.Start, BadExpression, "expected a tag keyword", "identifier")
			}
			kw := kwTok.Text

			if atRoot && extendsSeen && !isAllowedAfterExtends(kw) {
				return nil, "", ast.WS{}, "", errAt(p.path, kwTok.Span.Start, NonBlockAtRoot, "only block/macro/import/comment may follow extends at root", "block, macro, or import")
			}

			if enders != nil && contains(enders, kw) {
				if kw == "elif" || kw == "when" {
					// elif/when carry a guard expression or pattern before
					// their own end delimiter; the caller parses it, so
					// return before consuming anything past the keyword.
					return nodes, kw, ast.WS{Leading: toMarker(leadMark)}, "", nil
				}
				if kw == "else" && contains(enders, "elif") {
					// Askama spells elif chaining as two keywords, `else
					// if`, rather than the teacher's single `elif`. A bare
					// `{% else %}` is immediately followed by its block
					// end; `{% else if guard %}` is not, so peeking decides
					// which one this is without any lexer changes.
					if nt := p.peek(); nt.Kind == lexer.KindIdent && nt.Text == "if" {
						p.advance()
						return nodes, "elif", ast.WS{Leading: toMarker(leadMark)}, "", nil
					}
				}
				name := ""
				if endTagsWithName(kw) {
					if nt := p.peek(); nt.Kind == lexer.KindIdent {
						p.advance()
						name = nt.Text
					}
				}
				end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
				if err != nil {
					return nil, "", ast.WS{}, "", err
				}
				return nodes, kw, ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)}, name, nil
			}

			node, err := p.parseTag(kw, leadMark, atRoot)
			if err != nil {
				return nil, "", ast.WS{}, "", err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
			if kw == "extends" {
				if sawReal {
					return nil, "", ast.WS{}, "", errAt(p.path, kwTok.Span.Start, NonBlockAtRoot, "extends must be the first node", "extends as first tag")
				}
				extendsSeen = true
			}
			if kw != "extends" {
				sawReal = true
			}
		}
	}
}

// checkEndName validates a (possibly empty) trailing end-tag identifier
// against the name the opening tag declared, per spec §4.2.
func (p *Parser) checkEndName(openName, endName string, pos int) error {
	if endName != "" && endName != openName {
		return errAt(p.path, pos, Mismatch, fmt.Sprintf("end tag name %q does not match opening name %q", endName, openName), openName)
	}
	return nil
}

func isAllowedAfterExtends(kw string) bool {
	switch kw {
	case "block", "macro", "import":
		return true
	default:
		return false
	}
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// expectEnd consumes the current tag's end delimiter, erroring if something
// else is found first (the grammar always reaches here with the expression
// fully consumed, so anything else is a syntax error).
func (p *Parser) expectEnd(kind lexer.Kind, delim string) (lexer.Token, error) {
	tok := p.advance()
	if tok.Kind != kind {
		return tok, errAt(p.path, tok.Span.Start, BadExpression, "expected tag end "+delim, delim)
	}
	return tok, nil
}

func (p *Parser) peek() lexer.Token {
	if p.peeked == nil {
		t := p.lex.NextInTag(p.endDelim)
		p.peeked = &t
	}
	return *p.peeked
}

func (p *Parser) advance() lexer.Token {
	t := p.peek()
	p.peeked = nil
	return t
}

func (p *Parser) parseTag(kw string, leadMark syntax.Marker, atRoot bool) (ast.Node, error) {
	switch kw {
	case "if":
		return p.parseIf(leadMark)
	case "for":
		return p.parseFor(leadMark)
	case "match":
		return p.parseMatch(leadMark)
	case "block":
		return p.parseBlock(leadMark)
	case "extends":
		path, end, err := p.parseSinglePathArg()
		if err != nil {
			return nil, err
		}
		_ = end
		return &ast.Extends{Path: path}, nil
	case "include":
		return p.parseInclude(leadMark)
	case "import":
		return p.parseImport(leadMark)
	case "macro":
		return p.parseMacro(leadMark)
	case "call":
		return p.parseCall(leadMark)
	case "let":
		return p.parseLet(leadMark)
	case "filter":
		return p.parseFilterBlock(leadMark)
	case "raw":
		return p.parseRaw(leadMark)
	default:
		return nil, errAt(p.path, p.lex.Pos(), UnknownTag, "unknown tag "+strconv.Quote(kw), "a known tag name")
	}
}

func (p *Parser) parseSinglePathArg() (string, lexer.Token, error) {
	tok := p.advance()
	if tok.Kind != lexer.KindString {
		return "", tok, errAt(p.path, tok.Span.Start, BadExpression, "expected a string path", "\"path\"")
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	return tok.Text, end, err
}

func (p *Parser) parseIf(leadMark syntax.Marker) (ast.Node, error) {
	cond := &ast.Cond{}
	curLeadMark := leadMark
	for {
		var guard ast.Expression
		var letBind *ast.Let
		if p.peekIsLet() {
			lb, err := p.parseLetHeader()
			if err != nil {
				return nil, err
			}
			letBind = lb
		} else {
			g, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			guard = g
		}
		end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
		if err != nil {
			return nil, err
		}
		body, stop, stopWS, _, err := p.parseBody([]string{"elif", "else", "endif"}, false)
		if err != nil {
			return nil, err
		}
		cond.Branches = append(cond.Branches, ast.Branch{
			WS:    ast.WS{Leading: toMarker(curLeadMark), Trailing: toMarker(end.Mark)},
			Guard: guard,
			Let:   letBind,
			Body:  body,
		})
		switch stop {
		case "elif":
			curLeadMark = markerFromAst(stopWS.Leading)
			continue
		case "else":
			elseBody, _, stopWS2, _, err := p.parseBody([]string{"endif"}, false)
			if err != nil {
				return nil, err
			}
			cond.Branches = append(cond.Branches, ast.Branch{
				WS:   stopWS,
				Body: elseBody,
			})
			cond.EndWS = stopWS2
			return cond, nil
		case "endif":
			cond.EndWS = stopWS
			return cond, nil
		}
	}
}

func markerFromAst(m ast.MarkerSet) syntax.Marker {
	switch m {
	case ast.MarkerSuppress:
		return syntax.MarkerSuppress
	case ast.MarkerPreserve:
		return syntax.MarkerPreserve
	case ast.MarkerMinimize:
		return syntax.MarkerMinimize
	default:
		return syntax.MarkerNone
	}
}

func (p *Parser) peekIsLet() bool {
	t := p.peek()
	return t.Kind == lexer.KindIdent && t.Text == "let"
}

func (p *Parser) parseLetHeader() (*ast.Let, error) {
	p.advance() // "let"
	name := p.advance()
	if name.Kind != lexer.KindIdent {
		return nil, errAt(p.path, name.Span.Start, BadExpression, "expected identifier after let", "identifier")
	}
	eq := p.peek()
	var value ast.Expression
	if eq.Kind == lexer.KindOp && eq.Text == "=" {
		p.advance()
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return &ast.Let{Pattern: name.Text, Value: value}, nil
}

func (p *Parser) parseFor(leadMark syntax.Marker) (ast.Node, error) {
	pattern, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	in := p.advance()
	if in.Kind != lexer.KindIdent || in.Text != "in" {
		return nil, errAt(p.path, in.Span.Start, BadExpression, "expected 'in'", "in")
	}
	iterable, err := p.parseExpr(BinaryCompatPrecedence())
	if err != nil {
		return nil, err
	}
	var filter ast.Expression
	if t := p.peek(); t.Kind == lexer.KindIdent && t.Text == "if" {
		p.advance()
		f, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		filter = f
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	body, stop, stopWS, endName, err := p.parseBody([]string{"else", "endfor"}, false)
	if err != nil {
		return nil, err
	}
	loop := &ast.Loop{
		WS:       ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Pattern:  pattern,
		Iterable: iterable,
		Filter:   filter,
		Body:     body,
	}
	patternName := ""
	if v, ok := pattern.(*ast.Var); ok {
		patternName = v.Name
	}
	if stop == "endfor" {
		if err := p.checkEndName(patternName, endName, p.lex.Pos()); err != nil {
			return nil, err
		}
	}
	if stop == "else" {
		elseBody, _, stopWS2, endName2, err := p.parseBody([]string{"endfor"}, false)
		if err != nil {
			return nil, err
		}
		if err := p.checkEndName(patternName, endName2, p.lex.Pos()); err != nil {
			return nil, err
		}
		loop.Else = elseBody
		loop.EndWS = stopWS2
		return loop, nil
	}
	loop.EndWS = stopWS
	return loop, nil
}

// BinaryCompatPrecedence is the minimum precedence used when parsing the
// iterable of a for-loop. It is 0, so the iterable is a full expression; a
// following `if` filter-clause keyword still ends it, because no binary
// operator is spelled `if`.
func BinaryCompatPrecedence() int { return 0 }

func (p *Parser) parseMatch(leadMark syntax.Marker) (ast.Node, error) {
	scrutinee, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	m := &ast.Match{WS: ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)}, Scrutinee: scrutinee}

	// Any text between {% match %} and the first {% when %}/{% endmatch %}
	// is whitespace-only in a well-formed template; parseBody's normal
	// ender dispatch (which, like "elif", returns after the "when" keyword
	// without consuming its pattern) both discards it and locates that tag.
	_, stop, stopWS, _, err := p.parseBody([]string{"when", "endmatch"}, false)
	if err != nil {
		return nil, err
	}

	for {
		if stop == "endmatch" {
			m.EndWS = stopWS
			return m, nil
		}
		pattern, err := p.parseMatchPattern()
		if err != nil {
			return nil, err
		}
		endWhen, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
		if err != nil {
			return nil, err
		}
		body, nextStop, nextStopWS, _, err := p.parseBody([]string{"when", "endmatch"}, false)
		if err != nil {
			return nil, err
		}
		m.Arms = append(m.Arms, ast.MatchArm{
			WS:      ast.WS{Leading: stopWS.Leading, Trailing: toMarker(endWhen.Mark)},
			Pattern: pattern,
			Body:    body,
		})
		stop, stopWS = nextStop, nextStopWS
	}
}

func (p *Parser) parseMatchPattern() (ast.MatchPattern, error) {
	tok := p.advance()
	if (tok.Kind == lexer.KindIdent || tok.Kind == lexer.KindOp) && tok.Text == "_" {
		return ast.MatchPattern{IsWildcard: true}, nil
	}
	if tok.Kind != lexer.KindIdent {
		return ast.MatchPattern{}, errAt(p.path, tok.Span.Start, BadExpression, "expected a pattern", "Variant, Variant(x), Variant { field }, or _")
	}
	pat := ast.MatchPattern{Variant: tok.Text}
	next := p.peek()
	switch {
	case next.Kind == lexer.KindOp && next.Text == "(":
		p.advance()
		name := p.advance()
		pat.Binding = name.Text
		closeParen := p.advance()
		if !(closeParen.Kind == lexer.KindOp && closeParen.Text == ")") {
			return pat, errAt(p.path, closeParen.Span.Start, BadExpression, "expected )", ")")
		}
	case next.Kind == lexer.KindOp && next.Text == "{":
		p.advance()
		pat.FieldBinds = map[string]string{}
		for {
			field := p.advance()
			alias := field.Text
			if colon := p.peek(); colon.Kind == lexer.KindOp && colon.Text == ":" {
				p.advance()
				aliasTok := p.advance()
				alias = aliasTok.Text
			}
			pat.FieldBinds[field.Text] = alias
			sep := p.advance()
			if sep.Kind == lexer.KindOp && sep.Text == "}" {
				break
			}
			if !(sep.Kind == lexer.KindOp && sep.Text == ",") {
				return pat, errAt(p.path, sep.Span.Start, BadExpression, "expected , or }", ", or }")
			}
		}
	}
	return pat, nil
}

func (p *Parser) parseBlock(leadMark syntax.Marker) (ast.Node, error) {
	name := p.advance()
	if name.Kind != lexer.KindIdent {
		return nil, errAt(p.path, name.Span.Start, BadExpression, "expected block name", "identifier")
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	body, _, stopWS, endName, err := p.parseBody([]string{"endblock"}, false)
	if err != nil {
		return nil, err
	}
	if err := p.checkEndName(name.Text, endName, p.lex.Pos()); err != nil {
		return nil, err
	}
	return &ast.BlockDef{
		WS:    ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Name:  name.Text,
		Body:  body,
		EndWS: stopWS,
	}, nil
}

func (p *Parser) parseInclude(leadMark syntax.Marker) (ast.Node, error) {
	path, end, err := p.parseSinglePathArg()
	if err != nil {
		return nil, err
	}
	return &ast.Include{WS: ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)}, Path: path}, nil
}

func (p *Parser) parseImport(leadMark syntax.Marker) (ast.Node, error) {
	pathTok := p.advance()
	if pathTok.Kind != lexer.KindString {
		return nil, errAt(p.path, pathTok.Span.Start, BadExpression, "expected a string path", "\"path\"")
	}
	asTok := p.advance()
	if asTok.Kind != lexer.KindIdent || asTok.Text != "as" {
		return nil, errAt(p.path, asTok.Span.Start, BadExpression, "expected 'as'", "as")
	}
	scope := p.advance()
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Import{
		WS:    ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Path:  pathTok.Text,
		Scope: scope.Text,
	}, nil
}

func (p *Parser) parseMacro(leadMark syntax.Marker) (ast.Node, error) {
	name := p.advance()
	if name.Kind != lexer.KindIdent {
		return nil, errAt(p.path, name.Span.Start, BadExpression, "expected macro name", "identifier")
	}
	open := p.advance()
	if !(open.Kind == lexer.KindOp && open.Text == "(") {
		return nil, errAt(p.path, open.Span.Start, BadExpression, "expected (", "(")
	}
	var params []ast.Param
	for {
		if t := p.peek(); t.Kind == lexer.KindOp && t.Text == ")" {
			p.advance()
			break
		}
		pn := p.advance()
		param := ast.Param{Name: pn.Text}
		if eq := p.peek(); eq.Kind == lexer.KindOp && eq.Text == "=" {
			p.advance()
			def, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if sep := p.peek(); sep.Kind == lexer.KindOp && sep.Text == "," {
			p.advance()
		}
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	body, _, stopWS, endName, err := p.parseBody([]string{"endmacro"}, false)
	if err != nil {
		return nil, err
	}
	if err := p.checkEndName(name.Text, endName, p.lex.Pos()); err != nil {
		return nil, err
	}
	return &ast.MacroDef{
		WS:     ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Name:   name.Text,
		Params: params,
		Body:   body,
		EndWS:  stopWS,
	}, nil
}

func (p *Parser) parseCall(leadMark syntax.Marker) (ast.Node, error) {
	first := p.advance()
	scope := ""
	name := first.Text
	// The lexer scans `scope::name` as one identifier token.
	if i := strings.Index(name, "::"); i >= 0 {
		scope, name = name[:i], name[i+2:]
	}
	if colon := p.peek(); colon.Kind == lexer.KindOp && colon.Text == ":" {
		p.advance()
		p.advance() // second ':'
		nameTok := p.advance()
		scope = first.Text
		name = nameTok.Text
	}
	open := p.advance()
	if !(open.Kind == lexer.KindOp && open.Text == "(") {
		return nil, errAt(p.path, open.Span.Start, BadExpression, "expected (", "(")
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Call{
		WS:    ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Scope: scope,
		Name:  name,
		Args:  args,
	}, nil
}

func (p *Parser) parseLet(leadMark syntax.Marker) (ast.Node, error) {
	name := p.advance()
	if name.Kind != lexer.KindIdent {
		return nil, errAt(p.path, name.Span.Start, BadExpression, "expected identifier after let", "identifier")
	}
	var value ast.Expression
	if eq := p.peek(); eq.Kind == lexer.KindOp && eq.Text == "=" {
		p.advance()
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		value = v
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	return &ast.Let{
		WS:      ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Pattern: name.Text,
		Value:   value,
	}, nil
}

func (p *Parser) parseFilterBlock(leadMark syntax.Marker) (ast.Node, error) {
	filterExpr, err := p.parseFilterChainHeadless()
	if err != nil {
		return nil, err
	}
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	body, _, stopWS, _, err := p.parseBody([]string{"endfilter"}, false)
	if err != nil {
		return nil, err
	}
	return &ast.FilterBlock{
		WS:     ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Filter: filterExpr,
		Body:   body,
		EndWS:  stopWS,
	}, nil
}

// parseFilterChainHeadless parses `name(args)|name2(args2)...` with no
// leading target expression, used by {% filter %}, whose target is the
// block's rendered body rather than a value expression.
func (p *Parser) parseFilterChainHeadless() (ast.Expression, error) {
	name := p.advance()
	if name.Kind != lexer.KindIdent {
		return nil, errAt(p.path, name.Span.Start, BadExpression, "expected a filter name", "identifier")
	}
	var args []ast.Arg
	if t := p.peek(); t.Kind == lexer.KindOp && t.Text == "(" {
		p.advance()
		a, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		args = a
	}
	chain := ast.Expression(&ast.Filter{Name: name.Text, Args: args})
	for {
		t := p.peek()
		if t.Kind == lexer.KindOp && t.Text == "|" {
			p.advance()
			n2 := p.advance()
			var a2 []ast.Arg
			if pt := p.peek(); pt.Kind == lexer.KindOp && pt.Text == "(" {
				p.advance()
				args2, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				a2 = args2
			}
			chain = &ast.Filter{Target: chain, Name: n2.Text, Args: a2}
			continue
		}
		break
	}
	return chain, nil
}

func (p *Parser) parseRaw(leadMark syntax.Marker) (ast.Node, error) {
	end, err := p.expectEnd(lexer.KindBlockEnd, p.table.BlockEnd)
	if err != nil {
		return nil, err
	}
	// Find the next block-start delimiter whose keyword, after an optional
	// whitespace marker and spaces, is `endraw`.
	rest := p.src[p.lex.Pos():]
	idx := -1
	for off := 0; idx < 0; {
		i := strings.Index(rest[off:], p.table.BlockStart)
		if i < 0 {
			break
		}
		k := off + i + len(p.table.BlockStart)
		if k < len(rest) && strings.ContainsRune("-+~", rune(rest[k])) {
			k++
		}
		if strings.HasPrefix(strings.TrimLeft(rest[k:], " \t\r\n"), "endraw") {
			idx = off + i
		}
		off = off + i + len(p.table.BlockStart)
	}
	if idx < 0 {
		return nil, errAt(p.path, p.lex.Pos(), UnexpectedEOF, "unterminated raw block", "endraw")
	}
	content := p.src[p.lex.Pos() : p.lex.Pos()+idx]
	skipTo := p.lex.Pos() + idx
	// Re-synchronize the underlying lexer to just past the endraw tag.
	endrawEnd := strings.Index(p.src[skipTo:], p.table.BlockEnd)
	if endrawEnd < 0 {
		return nil, errAt(p.path, skipTo, UnexpectedEOF, "unterminated endraw tag", p.table.BlockEnd)
	}
	p.advanceLexerTo(skipTo)
	p.peeked = nil
	return &ast.Raw{
		WS:      ast.WS{Leading: toMarker(leadMark), Trailing: toMarker(end.Mark)},
		Content: content,
		EndWS:   ast.WS{},
	}, nil
}

// advanceLexerTo moves the lexer from the start of a raw block's content to
// just past the endraw tag whose block-start delimiter begins at byte offset
// n, stepping over tag starts inside the content as plain text. It is used
// only by the raw-block escape hatch above, since Lexer does not expose a
// public seek.
func (p *Parser) advanceLexerTo(n int) {
	for p.lex.Pos() <= n {
		if _, kind, _, _ := p.lex.NextLiteralRun(); kind == lexer.KindEOF {
			return
		}
	}
	for {
		if tok := p.lex.NextInTag(p.table.BlockEnd); tok.Kind == lexer.KindBlockEnd || tok.Kind == lexer.KindEOF {
			return
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Arg, error) {
	var args []ast.Arg
	sawNamed := false
	for {
		if t := p.peek(); t.Kind == lexer.KindOp && t.Text == ")" {
			p.advance()
			break
		}
		name := ""
		start := p.peek()
		if start.Kind == lexer.KindIdent {
			save := *p
			saveLex := *p.lex
			ident := p.advance()
			if eq := p.peek(); eq.Kind == lexer.KindOp && eq.Text == "=" {
				p.advance()
				name = ident.Text
				sawNamed = true
			} else {
				*p = save
				*p.lex = saveLex
			}
		}
		if name == "" && sawNamed {
			return nil, errAt(p.path, start.Span.Start, BadExpression, "positional argument after named argument", "name=value")
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.Arg{Name: name, Value: val})
		if sep := p.peek(); sep.Kind == lexer.KindOp && sep.Text == "," {
			p.advance()
		}
	}
	return args, nil
}

// parseExpr implements precedence-climbing over ast.BinaryKind.Precedence.
func (p *Parser) parseExpr(minPrec int) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		kind, ok := binOpFor(t)
		if !ok || kind.Precedence() < minPrec {
			break
		}
		p.advance()
		right, err := p.parseExpr(kind.Precedence() + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Op: kind, Left: left, Right: right}
	}
	return left, nil
}

func binOpFor(t lexer.Token) (ast.BinaryKind, bool) {
	if t.Kind != lexer.KindOp {
		return 0, false
	}
	switch t.Text {
	case "*":
		return ast.BinMul, true
	case "/":
		return ast.BinDiv, true
	case "%":
		return ast.BinMod, true
	case "+":
		return ast.BinAdd, true
	case "-":
		return ast.BinSub, true
	case "<<":
		return ast.BinShl, true
	case ">>":
		return ast.BinShr, true
	case "&":
		return ast.BinAnd, true
	case "^":
		return ast.BinXor, true
	case "|":
		return 0, false // handled as filter application, not bitwise-or, per spec §9's open question
	case "==":
		return ast.BinEq, true
	case "!=":
		return ast.BinNe, true
	case "<":
		return ast.BinLt, true
	case "<=":
		return ast.BinLe, true
	case ">":
		return ast.BinGt, true
	case ">=":
		return ast.BinGe, true
	case "&&":
		return ast.BinLAnd, true
	case "||":
		return ast.BinLOr, true
	default:
		return 0, false
	}
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	t := p.peek()
	if t.Kind == lexer.KindOp && (t.Text == "-" || t.Text == "!") {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		kind := ast.UnaryNeg
		if t.Text == "!" {
			kind = ast.UnaryNot
		}
		return &ast.UnaryOp{Op: kind, Target: inner}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.Kind == lexer.KindOp && t.Text == ".":
			p.advance()
			name := p.advance()
			if nt := p.peek(); nt.Kind == lexer.KindOp && nt.Text == "(" {
				p.advance()
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				base = &ast.MethodCall{Target: base, Name: name.Text, Args: args}
			} else {
				base = &ast.Field{Target: base, Name: name.Text}
			}
		case t.Kind == lexer.KindOp && t.Text == "[":
			p.advance()
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			closeBr := p.advance()
			if !(closeBr.Kind == lexer.KindOp && closeBr.Text == "]") {
				return nil, errAt(p.path, closeBr.Span.Start, BadExpression, "expected ]", "]")
			}
			base = &ast.Index{Target: base, Index: idx}
		case t.Kind == lexer.KindOp && t.Text == "|":
			p.advance()
			name := p.advance()
			var args []ast.Arg
			if nt := p.peek(); nt.Kind == lexer.KindOp && nt.Text == "(" {
				p.advance()
				a, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				args = a
			}
			base = &ast.Filter{Target: base, Name: name.Text, Args: args}
		case t.Kind == lexer.KindOp && (t.Text == ".." || t.Text == "..="):
			p.advance()
			inclusive := t.Text == "..="
			end, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			base = &ast.Range{Start: base, End: end, Inclusive: inclusive}
		default:
			return base, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	t := p.advance()
	switch t.Kind {
	case lexer.KindString:
		return &ast.StringLit{Value: t.Text}, nil
	case lexer.KindInt:
		n, _ := strconv.ParseInt(t.Text, 10, 64)
		return &ast.IntLit{Value: n}, nil
	case lexer.KindFloat:
		f, _ := strconv.ParseFloat(t.Text, 64)
		return &ast.FloatLit{Value: f}, nil
	case lexer.KindBool:
		return &ast.BoolLit{Value: t.Text == "true"}, nil
	case lexer.KindIdent:
		return p.parseIdentOrCall(t)
	case lexer.KindOp:
		switch t.Text {
		case "(":
			inner, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			closeParen := p.advance()
			if !(closeParen.Kind == lexer.KindOp && closeParen.Text == ")") {
				return nil, errAt(p.path, closeParen.Span.Start, BadExpression, "expected )", ")")
			}
			return &ast.Group{Inner: inner}, nil
		case "[":
			var items []ast.Expression
			for {
				if nt := p.peek(); nt.Kind == lexer.KindOp && nt.Text == "]" {
					p.advance()
					break
				}
				item, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				if sep := p.peek(); sep.Kind == lexer.KindOp && sep.Text == "," {
					p.advance()
				}
			}
			return &ast.ArrayLit{Items: items}, nil
		}
	}
	return nil, errAt(p.path, t.Span.Start, BadExpression, "unexpected token", "an expression")
}

func (p *Parser) parseIdentOrCall(t lexer.Token) (ast.Expression, error) {
	prefix, name := splitPathPrefix(t.Text)
	if nt := p.peek(); nt.Kind == lexer.KindOp && nt.Text == "(" {
		p.advance()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ast.FuncCall{Name: t.Text, Args: args}, nil
	}
	return &ast.Var{Prefix: prefix, Name: name}, nil
}

func splitPathPrefix(ident string) (ast.PathPrefix, string) {
	switch {
	case strings.HasPrefix(ident, "crate::"):
		return ast.PathCrate, strings.TrimPrefix(ident, "crate::")
	case strings.HasPrefix(ident, "self::"):
		return ast.PathSelf, strings.TrimPrefix(ident, "self::")
	case strings.HasPrefix(ident, "super::"):
		return ast.PathSuper, strings.TrimPrefix(ident, "super::")
	case strings.HasPrefix(ident, "Self::"):
		return ast.PathSelfType, strings.TrimPrefix(ident, "Self::")
	default:
		return ast.PathNone, ident
	}
}
