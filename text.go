package tzcall

import (
	"math/big"
	"strings"
)

// FormatNode renders a node in Michelson expression syntax.
// Primitive applications are parenthesised only when nested.
func FormatNode(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n, false)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node, nested bool) {
	switch node := n.(type) {
	case IntNode:
		sb.WriteString(node.Value)
	case StringNode:
		writeQuoted(sb, node.Value)
	case BytesNode:
		sb.WriteString("0x")
		sb.WriteString(node.Value)
	case PrimNode:
		wrap := nested && (len(node.Args) > 0 || len(node.Annots) > 0)
		if wrap {
			sb.WriteByte('(')
		}
		sb.WriteString(node.Prim)
		for _, a := range node.Annots {
			sb.WriteByte(' ')
			sb.WriteString(a)
		}
		for _, arg := range node.Args {
			sb.WriteByte(' ')
			writeNode(sb, arg, true)
		}
		if wrap {
			sb.WriteByte(')')
		}
	case SeqNode:
		if len(node) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{ ")
		for i, item := range node {
			if i > 0 {
				sb.WriteString(" ; ")
			}
			writeNode(sb, item, false)
		}
		sb.WriteString(" }")
	}
}

func writeQuoted(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// ParseNode parses a single Michelson expression.
func ParseNode(src string) (Node, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, &SyntaxError{Offset: p.tok.pos, Msg: "empty expression"}
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

// ParseScript parses a contract file. Scripts without enclosing braces
// ("parameter ..; storage ..; code ..") are read as a sequence.
func ParseScript(src string) (SeqNode, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokLBrace {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokEOF {
			return nil, p.unexpected()
		}
		return n.(SeqNode), nil
	}
	items, err := p.parseItems(tokEOF)
	if err != nil {
		return nil, err
	}
	return items, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokString
	tokBytes
	tokIdent
	tokAnnot
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokSemi
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return &SyntaxError{Offset: l.pos, Msg: "unterminated comment"}
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' || c == '%' || c == '@' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := l.src[l.pos]
	switch c {
	case '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case '{':
		l.pos++
		return token{kind: tokLBrace, pos: start}, nil
	case '}':
		l.pos++
		return token{kind: tokRBrace, pos: start}, nil
	case ';':
		l.pos++
		return token{kind: tokSemi, pos: start}, nil
	case '"':
		return l.lexString()
	}

	if c == '0' && l.pos+1 < len(l.src) && l.src[l.pos+1] == 'x' {
		l.pos += 2
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokBytes, text: l.src[start+2 : l.pos], pos: start}, nil
	}

	if c == '-' || (c >= '0' && c <= '9') {
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
		text := l.src[start:l.pos]
		if text == "-" {
			return token{}, &SyntaxError{Offset: start, Msg: "dangling minus sign"}
		}
		return token{kind: tokInt, text: text, pos: start}, nil
	}

	if c == '%' || c == '@' || c == ':' {
		l.pos++
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokAnnot, text: l.src[start:l.pos], pos: start}, nil
	}

	if isIdentChar(c) {
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	}

	return token{}, &SyntaxError{Offset: start, Msg: "unexpected character " + string(c)}
}

func (l *lexer) lexString() (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, &SyntaxError{Offset: l.pos, Msg: "unterminated escape"}
			}
			switch e := l.src[l.pos+1]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case '\\', '"':
				sb.WriteByte(e)
			default:
				return token{}, &SyntaxError{Offset: l.pos, Msg: "invalid escape \\" + string(e)}
			}
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, &SyntaxError{Offset: start, Msg: "unterminated string"}
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) unexpected() error {
	if p.tok.kind == tokEOF {
		return &SyntaxError{Offset: p.tok.pos, Msg: "unexpected end of input"}
	}
	text := p.tok.text
	if text == "" {
		text = p.lex.src[p.tok.pos : p.tok.pos+1]
	}
	return &SyntaxError{Offset: p.tok.pos, Msg: "unexpected token " + text}
}

// parseExpr parses an expression in head position, where a primitive may
// take arguments.
func (p *parser) parseExpr() (Node, error) {
	if p.tok.kind != tokIdent {
		return p.parseTerm()
	}
	prim := PrimNode{Prim: p.tok.text}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnnot {
		prim.Annots = append(prim.Annots, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for {
		switch p.tok.kind {
		case tokEOF, tokRParen, tokRBrace, tokSemi:
			return prim, nil
		}
		arg, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		prim.Args = append(prim.Args, arg)
	}
}

// parseTerm parses an expression in argument position.
func (p *parser) parseTerm() (Node, error) {
	tok := p.tok
	switch tok.kind {
	case tokInt:
		if _, ok := new(big.Int).SetString(tok.text, 10); !ok {
			return nil, &SyntaxError{Offset: tok.pos, Msg: "invalid integer " + tok.text}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return IntNode{Value: tok.text}, nil
	case tokString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return StringNode{Value: tok.text}, nil
	case tokBytes:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return BytesNode{Value: tok.text}, nil
	case tokIdent:
		prim := PrimNode{Prim: tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.tok.kind == tokAnnot {
			prim.Annots = append(prim.Annots, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return prim, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.unexpected()
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	case tokLBrace:
		if err := p.advance(); err != nil {
			return nil, err
		}
		items, err := p.parseItems(tokRBrace)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, p.unexpected()
	}
}

// parseItems parses semicolon separated expressions up to the closing token,
// leaving the closing token current.
func (p *parser) parseItems(closing tokenKind) (SeqNode, error) {
	items := SeqNode{}
	for {
		if p.tok.kind == closing {
			return items, nil
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		switch p.tok.kind {
		case tokSemi:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case closing:
		default:
			return nil, p.unexpected()
		}
	}
}
