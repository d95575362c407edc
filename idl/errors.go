// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package idl

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a SyntaxError, matching the structured kinds
// named in the IDL grammar section of the spec.
type ErrorKind string

const (
	ExpectedToken  ErrorKind = "ExpectedToken"
	UnexpectedEOF  ErrorKind = "UnexpectedEOF"
	DuplicateField ErrorKind = "DuplicateField"
	UnresolvedType ErrorKind = "UnresolvedType"
	NestedMaybe    ErrorKind = "NestedMaybe"
	InvalidName    ErrorKind = "InvalidName"
	EmptyInterface ErrorKind = "EmptyInterface"
	ReservedWord   ErrorKind = "ReservedWord"
	CyclicType     ErrorKind = "CyclicType"
)

// SyntaxError is returned by Parse, including for the namespace,
// reference and cycle checks it runs after the last member. It carries the byte
// offset of the offending token, a one-line source snippet, and a
// structured Kind, per spec.md §4.1 and §7.
type SyntaxError struct {
	Kind    ErrorKind
	Pos     Position
	Message string
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s\n  %s", e.Pos, e.Kind, e.Message, e.Snippet)
}

// snippet extracts the single source line containing pos from src.
func snippet(src string, pos Position) string {
	lines := strings.Split(src, "\n")
	idx := pos.Line - 1
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	return lines[idx]
}
