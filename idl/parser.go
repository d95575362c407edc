// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package idl

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Parser is a recursive-descent parser over a token stream produced by
// a Scanner. It is not safe for concurrent use, but distinct Parsers
// are fully independent and reentrant.
type Parser struct {
	scan *Scanner
	src  string
	prev []Token
}

// NewParser creates a Parser reading IDL source from r.
func NewParser(r io.Reader) (*Parser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Parser{
		scan: NewScanner(bytes.NewReader(data)),
		src:  string(data),
	}, nil
}

// Parse reads IDL source from r and parses it into an Interface.
func Parse(r io.Reader) (*Interface, error) {
	p, err := NewParser(r)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// ParseString parses IDL source held in memory.
func ParseString(src string) (*Interface, error) {
	return Parse(strings.NewReader(src))
}

func (p *Parser) next() Token {
	if n := len(p.prev); n > 0 {
		tok := p.prev[n-1]
		p.prev = p.prev[:n-1]
		// A coercion requested while this token was already buffered
		// applies to it, not to the next token scanned after it.
		if typ := p.scan.coerce; typ != "" {
			p.scan.coerce = ""
			switch tok.Type {
			case TokenIdent, TokenName, TokenFieldName, TokenInterfaceName, keywords[tok.Text]:
				tok.Type = typ
			}
		}
		return tok
	}
	tok := p.scan.Next()
	// A coercion the scanned token did not consume (a newline, a
	// paren, ...) does not carry over to later tokens.
	p.scan.coerce = ""
	if tok.Type == TokenError {
		p.raise(tok.Start, ExpectedToken, tok.Text)
	}
	return tok
}

func (p *Parser) back(toks ...Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		p.prev = append(p.prev, toks[i])
	}
}

func (p *Parser) peek() Token {
	tok := p.next()
	p.back(tok)
	return tok
}

func (p *Parser) accept(types ...TokenType) Token {
	tok := p.next()
	for _, t := range types {
		if tok.Type == t {
			return tok
		}
	}
	kind := ExpectedToken
	if tok.Type == TokenEOF {
		kind = UnexpectedEOF
	}
	p.raise(tok.Start, kind, fmt.Sprintf("expected %s, got %s", joinTypes(types), tok))
	panic("unreachable")
}

func joinTypes(types []TokenType) string {
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = string(t)
	}
	return strings.Join(strs, " or ")
}

func (p *Parser) raise(pos Position, kind ErrorKind, msg string) {
	panic(&SyntaxError{Kind: kind, Pos: pos, Message: msg, Snippet: snippet(p.src, pos)})
}

// Parse parses a single Interface from the Parser's token stream.
func (p *Parser) Parse() (intf *Interface, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SyntaxError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()

	doc := p.leadingComments()

	kw := p.accept(TokenKeywordInterface)
	p.scan.Coerce(TokenInterfaceName)
	name := p.accept(TokenInterfaceName)
	if !isInterfaceName(name.Text) {
		p.raise(name.Start, InvalidName, fmt.Sprintf("invalid interface name %q", name.Text))
	}

	intf = &Interface{Name: name.Text, Doc: doc}

	p.accept(TokenNewline, TokenEOF)

	for {
		memberDoc := p.leadingComments()
		tok := p.peek()

		switch tok.Type {
		case TokenKeywordType:
			nt := p.parseNamedType()
			nt.Doc = memberDoc
			p.checkReserved(nt.Pos, nt.Name)
			intf.Members = append(intf.Members, nt)

		case TokenKeywordMethod:
			m := p.parseMethod()
			m.Doc = memberDoc
			p.checkReserved(m.Pos, m.Name)
			intf.Members = append(intf.Members, m)

		case TokenKeywordError:
			e := p.parseErrorDef()
			e.Doc = memberDoc
			p.checkReserved(e.Pos, e.Name)
			intf.Members = append(intf.Members, e)

		case TokenEOF:
			p.finish(intf, kw.Start)
			return intf, nil

		default:
			p.raise(tok.Start, ExpectedToken, fmt.Sprintf("expected a member declaration, got %s", tok))
		}
	}
}

func (p *Parser) finish(intf *Interface, ifacePos Position) {
	if len(intf.Members) == 0 {
		p.raise(ifacePos, EmptyInterface, fmt.Sprintf("interface %q declares no members", intf.Name))
	}
	p.checkNamespaces(intf)
	p.checkRefs(intf)
	p.checkCycles(intf)
}

// leadingComments consumes a run of comment lines immediately
// preceding the next declaration. A blank line between comments (or
// between the last comment and the declaration) discards them as
// unattached, per spec.md's open question (a) on liberal
// whitespace.
func (p *Parser) leadingComments() []string {
	var doc []string
	for {
		tok := p.next()
		switch tok.Type {
		case TokenComment:
			doc = append(doc, tok.Text)
		case TokenNewline:
			doc = doc[:0]
		default:
			p.back(tok)
			return doc
		}
	}
}

func (p *Parser) checkReserved(pos Position, name string) {
	if _, ok := keywords[strings.ToLower(name)]; ok {
		p.raise(pos, ReservedWord, fmt.Sprintf("%q collides with the IDL keyword %q", name, strings.ToLower(name)))
	}
}

func (p *Parser) parseNamedType() *NamedType {
	kw := p.accept(TokenKeywordType)
	p.scan.Coerce(TokenName)
	name := p.accept(TokenName)
	body := p.parseType()
	return &NamedType{Name: name.Text, Body: body, Pos: kw.Start}
}

func (p *Parser) parseMethod() *Method {
	kw := p.accept(TokenKeywordMethod)
	p.scan.Coerce(TokenName)
	name := p.accept(TokenName)
	in := p.parseStructOrEnumBody(true)
	p.accept(TokenArrow)
	out := p.parseStructOrEnumBody(true)
	return &Method{Name: name.Text, Input: in.(StructType), Output: out.(StructType), Pos: kw.Start}
}

func (p *Parser) parseErrorDef() *ErrorDef {
	kw := p.accept(TokenKeywordError)
	p.scan.Coerce(TokenName)
	name := p.accept(TokenName)
	body := p.parseStructOrEnumBody(true)
	return &ErrorDef{Name: name.Text, Body: body.(StructType), Pos: kw.Start}
}

// parseType parses "?"? BasicOrComposite.
func (p *Parser) parseType() TypeExpr {
	tok := p.next()
	if tok.Type == TokenOption {
		if next := p.peek(); next.Type == TokenOption {
			p.raise(next.Start, NestedMaybe, "maybe types cannot be nested")
		}
		return MaybeType{Elem: p.parseBasicOrComposite()}
	}
	p.back(tok)
	return p.parseBasicOrComposite()
}

func (p *Parser) parseBasicOrComposite() TypeExpr {
	tok := p.next()
	switch tok.Type {
	case TokenKeywordBool:
		return BuiltinType{Kind: KindBool}
	case TokenKeywordInt:
		return BuiltinType{Kind: KindInt}
	case TokenKeywordFloat:
		return BuiltinType{Kind: KindFloat}
	case TokenKeywordString:
		return BuiltinType{Kind: KindString}
	case TokenKeywordObject:
		return BuiltinType{Kind: KindObject}
	case TokenArray:
		return ArrayType{Elem: p.parseType()}
	case TokenMap:
		return MapType{Elem: p.parseType()}
	case TokenName:
		return RefType{Name: tok.Text}
	case TokenLParen:
		p.back(tok)
		return p.parseStructOrEnumBody(false)
	default:
		p.raise(tok.Start, ExpectedToken, fmt.Sprintf("expected a type, got %s", tok))
		panic("unreachable")
	}
}

// parseStructOrEnumBody parses "(" EnumOrStructBody ")". When
// requireStruct is true (method input/output, error parameters) the
// body must be a struct, never an enum.
func (p *Parser) parseStructOrEnumBody(requireStruct bool) TypeExpr {
	open := p.accept(TokenLParen)

	tok := p.skipLayout()
	if tok.Type == TokenRParen {
		return StructType{}
	}
	p.back(tok)

	p.scan.Coerce(TokenFieldName)
	first := p.accept(TokenFieldName)

	sep := p.next()
	p.back(first, sep)

	switch {
	case sep.Type == TokenColon:
		return p.parseStructBody(open)
	case requireStruct:
		p.raise(sep.Start, ExpectedToken, "expected ':' (struct field), got "+string(sep.Type))
		panic("unreachable")
	default:
		return p.parseEnumBody(open)
	}
}

// skipLayout discards any run of comments and newlines, which are
// insignificant inside a parenthesized field or enum-value list. It
// returns the first token that is neither.
func (p *Parser) skipLayout() Token {
	for {
		tok := p.next()
		if tok.Type != TokenComment && tok.Type != TokenNewline {
			return tok
		}
	}
}

func (p *Parser) parseStructBody(open Token) StructType {
	var s StructType
	seen := map[string]bool{}
	var last bool

	for {
		p.scan.Coerce(TokenFieldName)
		name := p.accept(TokenFieldName, TokenRParen)
		if name.Type == TokenRParen {
			return s
		}
		if last {
			p.raise(name.Start, ExpectedToken, "expected ')', got "+string(name.Type))
		}

		if seen[name.Text] {
			p.raise(name.Start, DuplicateField, fmt.Sprintf("duplicate field %q", name.Text))
		}
		seen[name.Text] = true

		p.accept(TokenColon)
		typ := p.parseType()
		s.Fields = append(s.Fields, Field{Name: name.Text, Type: typ})

		// The comma separating fields is optional before a closing
		// paren, matching the teacher's grammar: the last field may
		// omit its trailing comma.
		comma := p.next()
		if comma.Type != TokenComma {
			last = true
			p.back(comma)
		}

		p.scan.Coerce(TokenFieldName)
		next := p.skipLayout()
		if next.Type == TokenRParen {
			return s
		}
		p.back(next)
	}
}

func (p *Parser) parseEnumBody(open Token) EnumType {
	var e EnumType
	seen := map[string]bool{}
	var last bool

	for {
		p.scan.Coerce(TokenFieldName)
		name := p.accept(TokenFieldName, TokenRParen)
		if name.Type == TokenRParen {
			return e
		}
		if last {
			p.raise(name.Start, ExpectedToken, "expected ')', got "+string(name.Type))
		}

		if seen[name.Text] {
			p.raise(name.Start, DuplicateField, fmt.Sprintf("duplicate enum value %q", name.Text))
		}
		seen[name.Text] = true
		e.Variants = append(e.Variants, name.Text)

		comma := p.next()
		if comma.Type != TokenComma {
			last = true
			p.back(comma)
		}

		p.scan.Coerce(TokenFieldName)
		next := p.skipLayout()
		if next.Type == TokenRParen {
			return e
		}
		p.back(next)
	}
}

// checkNamespaces enforces invariant (b): method, error, and
// named-type namespaces are disjoint, and names are unique within
// each.
func (p *Parser) checkNamespaces(intf *Interface) {
	seen := map[string]string{} // name -> category, across all three
	for _, m := range intf.Members {
		name := m.memberName()
		category := memberCategory(m)
		if prev, ok := seen[name]; ok {
			p.raise(memberPos(m), InvalidName, fmt.Sprintf("%q is declared as both a %s and a %s", name, prev, category))
		}
		seen[name] = category
	}
}

func memberPos(m Member) Position {
	switch v := m.(type) {
	case *NamedType:
		return v.Pos
	case *Method:
		return v.Pos
	case *ErrorDef:
		return v.Pos
	default:
		return Position{}
	}
}

func memberCategory(m Member) string {
	switch m.(type) {
	case *NamedType:
		return "type"
	case *Method:
		return "method"
	case *ErrorDef:
		return "error"
	default:
		return "member"
	}
}

// checkRefs enforces invariant (a): every Ref(id) resolves to some
// NamedType in the same interface.
func (p *Parser) checkRefs(intf *Interface) {
	names := map[string]bool{}
	for _, nt := range intf.NamedTypes() {
		names[nt.Name] = true
	}

	// walk reports unresolved references at the position of the
	// enclosing member, since individual TypeExpr nodes carry no
	// position of their own.
	var pos Position
	var walk func(t TypeExpr)
	walk = func(t TypeExpr) {
		switch v := t.(type) {
		case RefType:
			if !names[v.Name] {
				p.raise(pos, UnresolvedType, fmt.Sprintf("unresolved type reference %q", v.Name))
			}
		case ArrayType:
			walk(v.Elem)
		case MapType:
			walk(v.Elem)
		case MaybeType:
			walk(v.Elem)
		case StructType:
			for _, f := range v.Fields {
				walk(f.Type)
			}
		}
	}

	for _, m := range intf.Members {
		pos = memberPos(m)
		switch v := m.(type) {
		case *NamedType:
			walk(v.Body)
		case *Method:
			walk(v.Input)
			walk(v.Output)
		case *ErrorDef:
			walk(v.Body)
		}
	}
}

// checkCycles implements design note DN-1: named types that reference
// each other in a cycle (type A (x: B) type B (y: A)) are rejected.
func (p *Parser) checkCycles(intf *Interface) {
	const (
		white = iota
		gray
		black
	)
	state := map[string]int{}
	byName := map[string]*NamedType{}
	for _, nt := range intf.NamedTypes() {
		byName[nt.Name] = nt
	}

	var refsOf func(t TypeExpr) []string
	refsOf = func(t TypeExpr) []string {
		switch v := t.(type) {
		case RefType:
			return []string{v.Name}
		case ArrayType:
			return refsOf(v.Elem)
		case MapType:
			return refsOf(v.Elem)
		case MaybeType:
			return refsOf(v.Elem)
		case StructType:
			var out []string
			for _, f := range v.Fields {
				out = append(out, refsOf(f.Type)...)
			}
			return out
		default:
			return nil
		}
	}

	var path []string
	var visit func(name string)
	visit = func(name string) {
		switch state[name] {
		case black:
			return
		case gray:
			path = append(path, name)
			pos := Position{}
			if nt := byName[path[0]]; nt != nil {
				pos = nt.Pos
			}
			p.raise(pos, CyclicType, fmt.Sprintf("cyclic type reference: %s", strings.Join(path, " -> ")))
		}
		state[name] = gray
		path = append(path, name)
		nt := byName[name]
		if nt != nil {
			for _, ref := range refsOf(nt.Body) {
				visit(ref)
			}
		}
		path = path[:len(path)-1]
		state[name] = black
	}

	for _, nt := range intf.NamedTypes() {
		if state[nt.Name] == white {
			visit(nt.Name)
		}
	}
}
