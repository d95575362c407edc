// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package idl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varlink.dev/sansio/idl"
)

const complexInterface = `# The example interface, used for conformance testing.
interface org.example.complex

type Color (red, green, blue)

type Point (
  x: int,
  y: int
)

type Shape (
  kind: string,
  color: ?Color,
  points: []Point,
  tags: [string]bool
)

# Returns the shapes currently known to the service.
method ListShapes(filter: ?string) -> (shapes: []Shape)

method Watch() -> (shape: Shape)

error UnknownShape (name: string)
`

func TestParseComplexInterface(t *testing.T) {
	intf, err := idl.ParseString(complexInterface)
	require.NoError(t, err)

	assert.Equal(t, "org.example.complex", intf.Name)
	assert.Len(t, intf.NamedTypes(), 3)
	assert.Len(t, intf.Methods(), 2)
	assert.Len(t, intf.Errors(), 1)

	color, ok := intf.LookupNamedType("Color")
	require.True(t, ok)
	enum, ok := color.Body.(idl.EnumType)
	require.True(t, ok)
	assert.Equal(t, []string{"red", "green", "blue"}, enum.Variants)

	shape, ok := intf.LookupNamedType("Shape")
	require.True(t, ok)
	st, ok := shape.Body.(idl.StructType)
	require.True(t, ok)
	require.Len(t, st.Fields, 4)
	assert.Equal(t, "color", st.Fields[1].Name)
	_, isMaybe := st.Fields[1].Type.(idl.MaybeType)
	assert.True(t, isMaybe)
}

func TestRoundTripThroughFormat(t *testing.T) {
	intf, err := idl.ParseString(complexInterface)
	require.NoError(t, err)

	formatted := idl.Format(intf)

	reparsed, err := idl.ParseString(formatted)
	require.NoError(t, err, "reformatted output must reparse:\n%s", formatted)

	assert.Equal(t, intf.Name, reparsed.Name)
	assert.Equal(t, len(intf.Members), len(reparsed.Members))

	// Reformatting twice must be a fixed point.
	assert.Equal(t, formatted, idl.Format(reparsed))
}

func TestRoundTripWrapsLongBodies(t *testing.T) {
	const src = `interface org.example.wide

type Wide (
  first: string,
  second: string,
  third: string,
  fourth: string,
  fifth: string,
  sixth: string
)

method M() -> ()
`
	intf, err := idl.ParseString(src)
	require.NoError(t, err)

	formatted := idl.Format(intf)
	reparsed, err := idl.ParseString(formatted)
	require.NoError(t, err, "wrapped output must reparse:\n%s", formatted)

	wide, ok := reparsed.LookupNamedType("Wide")
	require.True(t, ok)
	st := wide.Body.(idl.StructType)
	assert.Len(t, st.Fields, 6)
}

func parseErr(t *testing.T, src string) *idl.SyntaxError {
	t.Helper()
	_, err := idl.ParseString(src)
	require.Error(t, err)

	var se *idl.SyntaxError
	require.True(t, errors.As(err, &se), "expected *idl.SyntaxError, got %T: %v", err, err)
	return se
}

func TestSyntaxErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind idl.ErrorKind
	}{
		{
			name: "expected token",
			src:  "interface org.example.e\nmethod M() => ()\n",
			kind: idl.ExpectedToken,
		},
		{
			name: "unexpected eof",
			src:  "interface org.example.e\nmethod M(",
			kind: idl.UnexpectedEOF,
		},
		{
			name: "duplicate field",
			src:  "interface org.example.e\nmethod M(a: int, a: string) -> ()\n",
			kind: idl.DuplicateField,
		},
		{
			name: "unresolved type",
			src:  "interface org.example.e\nmethod M(a: Missing) -> ()\n",
			kind: idl.UnresolvedType,
		},
		{
			name: "nested maybe",
			src:  "interface org.example.e\nmethod M(a: ??int) -> ()\n",
			kind: idl.NestedMaybe,
		},
		{
			name: "invalid name (namespace collision)",
			src:  "interface org.example.e\nmethod M() -> ()\ntype M (x: int)\n",
			kind: idl.InvalidName,
		},
		{
			name: "empty interface",
			src:  "interface org.example.e\n",
			kind: idl.EmptyInterface,
		},
		{
			name: "reserved word",
			src:  "interface org.example.e\nmethod type() -> ()\n",
			kind: idl.ReservedWord,
		},
		{
			name: "cyclic type",
			src:  "interface org.example.e\ntype A (b: B)\ntype B (a: A)\nmethod M() -> ()\n",
			kind: idl.CyclicType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			se := parseErr(t, tc.src)
			assert.Equal(t, tc.kind, se.Kind)
		})
	}
}

func TestParseRejectsNonDottedInterfaceName(t *testing.T) {
	_, err := idl.ParseString("interface nodothere\nmethod M() -> ()\n")
	require.Error(t, err)
}
