// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package idl

import (
	"strings"
)

// lineWidth is the column at which a struct or enum field list switches
// from one-line to one-field-per-line printing.
const lineWidth = 72

// Format renders intf to its canonical textual form. The result is
// stable under re-parsing: ParseString(Format(intf)) produces a model
// structurally equal to intf.
func Format(intf *Interface) string {
	var b strings.Builder

	writeDoc(&b, intf.Doc)
	b.WriteString("interface ")
	b.WriteString(intf.Name)
	b.WriteString("\n")

	for _, m := range intf.Members {
		b.WriteString("\n")
		writeDoc(&b, memberDoc(m))
		switch v := m.(type) {
		case *NamedType:
			b.WriteString("type ")
			b.WriteString(v.Name)
			b.WriteString(" ")
			writeType(&b, v.Body)
		case *Method:
			b.WriteString("method ")
			b.WriteString(v.Name)
			b.WriteString(" ")
			writeType(&b, v.Input)
			b.WriteString(" -> ")
			writeType(&b, v.Output)
		case *ErrorDef:
			b.WriteString("error ")
			b.WriteString(v.Name)
			b.WriteString(" ")
			writeType(&b, v.Body)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func memberDoc(m Member) []string {
	switch v := m.(type) {
	case *NamedType:
		return v.Doc
	case *Method:
		return v.Doc
	case *ErrorDef:
		return v.Doc
	default:
		return nil
	}
}

func writeDoc(b *strings.Builder, doc []string) {
	for _, line := range doc {
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeType(b *strings.Builder, t TypeExpr) {
	switch v := t.(type) {
	case BuiltinType:
		b.WriteString(v.Kind.String())
	case MaybeType:
		b.WriteString("?")
		writeType(b, v.Elem)
	case ArrayType:
		b.WriteString("[]")
		writeType(b, v.Elem)
	case MapType:
		b.WriteString("[string]")
		writeType(b, v.Elem)
	case RefType:
		b.WriteString(v.Name)
	case EnumType:
		writeEnum(b, v)
	case StructType:
		writeStruct(b, v)
	}
}

func writeEnum(b *strings.Builder, e EnumType) {
	if len(e.Variants) == 0 {
		b.WriteString("()")
		return
	}
	oneLine := "(" + strings.Join(e.Variants, ", ") + ")"
	if len(oneLine) <= lineWidth {
		b.WriteString(oneLine)
		return
	}
	b.WriteString("(\n")
	for i, v := range e.Variants {
		b.WriteString("  ")
		b.WriteString(v)
		if i < len(e.Variants)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
}

func writeStruct(b *strings.Builder, s StructType) {
	if len(s.Fields) == 0 {
		b.WriteString("()")
		return
	}

	var oneLine strings.Builder
	oneLine.WriteString("(")
	for i, f := range s.Fields {
		if i > 0 {
			oneLine.WriteString(", ")
		}
		oneLine.WriteString(f.Name)
		oneLine.WriteString(": ")
		writeType(&oneLine, f.Type)
	}
	oneLine.WriteString(")")

	if oneLine.Len() <= lineWidth {
		b.WriteString(oneLine.String())
		return
	}

	b.WriteString("(\n")
	for i, f := range s.Fields {
		b.WriteString("  ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		writeType(b, f.Type)
		if i < len(s.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
}
