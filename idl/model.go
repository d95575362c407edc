// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Package idl implements the Varlink interface definition language: a
// scanner, a recursive-descent parser producing an immutable Interface
// model, and a formatter that re-emits that model as canonical IDL
// text.
package idl

import "regexp"

var (
	reUpperName     = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	reFieldName     = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*$`)
	reInterfaceName = regexp.MustCompile(`^[A-Za-z]([-.]?[A-Za-z0-9])*$`)
)

func isUpperName(s string) bool {
	return reUpperName.MatchString(s)
}

func isFieldName(s string) bool {
	return reFieldName.MatchString(s)
}

// isInterfaceName reports whether s is a syntactically valid interface
// name: it matches the dotted-identifier pattern and contains at least
// one dot, per spec.
func isInterfaceName(s string) bool {
	if !reInterfaceName.MatchString(s) {
		return false
	}
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

// Interface is a reverse-DNS-named collection of named types, methods,
// and errors. Interfaces are constructed by the Parser and are
// immutable afterwards.
type Interface struct {
	Name    string
	Doc     []string
	Members []Member
}

// NamedTypes returns the named-type members of the interface, in
// declaration order.
func (i *Interface) NamedTypes() []*NamedType {
	var out []*NamedType
	for _, m := range i.Members {
		if nt, ok := m.(*NamedType); ok {
			out = append(out, nt)
		}
	}
	return out
}

// Methods returns the method members of the interface, in declaration
// order.
func (i *Interface) Methods() []*Method {
	var out []*Method
	for _, m := range i.Members {
		if md, ok := m.(*Method); ok {
			out = append(out, md)
		}
	}
	return out
}

// Errors returns the error members of the interface, in declaration
// order.
func (i *Interface) Errors() []*ErrorDef {
	var out []*ErrorDef
	for _, m := range i.Members {
		if ed, ok := m.(*ErrorDef); ok {
			out = append(out, ed)
		}
	}
	return out
}

// LookupNamedType returns the named type declared under name, if any.
func (i *Interface) LookupNamedType(name string) (*NamedType, bool) {
	for _, nt := range i.NamedTypes() {
		if nt.Name == name {
			return nt, true
		}
	}
	return nil, false
}

// Member is one top-level declaration inside an Interface: a
// NamedType, a Method, or an ErrorDef.
type Member interface {
	member()
	memberName() string
}

// NamedType declares a reusable type under a local name.
type NamedType struct {
	Name string
	Body TypeExpr
	Doc  []string
	Pos  Position
}

func (*NamedType) member()            {}
func (n *NamedType) memberName() string { return n.Name }

// Method declares a callable method with input and output structs.
type Method struct {
	Name   string
	Input  StructType
	Output StructType
	Doc    []string
	Pos    Position
}

func (*Method) member()            {}
func (m *Method) memberName() string { return m.Name }

// ErrorDef declares an error type with a parameter struct.
type ErrorDef struct {
	Name string
	Body StructType
	Doc  []string
	Pos  Position
}

func (*ErrorDef) member()            {}
func (e *ErrorDef) memberName() string { return e.Name }

// TypeExpr is the sum type of all Varlink type expressions.
type TypeExpr interface {
	typeExpr()
}

// BuiltinKind enumerates the scalar builtin types.
type BuiltinKind int

const (
	KindBool BuiltinKind = iota
	KindInt
	KindFloat
	KindString
	KindObject
)

func (k BuiltinKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "<invalid builtin>"
	}
}

// BuiltinType is one of bool, int, float, string, object.
type BuiltinType struct{ Kind BuiltinKind }

func (BuiltinType) typeExpr() {}

// ArrayType is []T.
type ArrayType struct{ Elem TypeExpr }

func (ArrayType) typeExpr() {}

// MapType is [string]T.
type MapType struct{ Elem TypeExpr }

func (MapType) typeExpr() {}

// MaybeType is ?T. Nesting (?(?T)) is rejected by the parser.
type MaybeType struct{ Elem TypeExpr }

func (MaybeType) typeExpr() {}

// EnumType is an ordered, non-empty, duplicate-free set of identifiers.
type EnumType struct{ Variants []string }

func (EnumType) typeExpr() {}

// StructType is an ordered list of uniquely-named fields. An empty
// struct (no fields) is legal and denotes "()".
type StructType struct{ Fields []Field }

func (StructType) typeExpr() {}

// Field is one member of a StructType.
type Field struct {
	Name string
	Type TypeExpr
}

// RefType refers to a NamedType declared elsewhere in the same
// interface, by local name. The parser resolves every RefType at
// parse time and rejects unresolved or cyclic references.
type RefType struct{ Name string }

func (RefType) typeExpr() {}
