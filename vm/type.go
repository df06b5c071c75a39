package vm

import (
	"fmt"
	"strings"
)

// Type describes the static type of a slot, parameter or return value.
// Types are immutable. Primitive types are package singletons; class and
// array types are interned per ClassTable, so two types are equal exactly
// when their pointers are.
type Type struct {
	Kind  Kind
	Class *Class // KindRef
	Elem  *Type  // KindArray
	desc  string
}

var (
	TypeVoid    = &Type{Kind: KindVoid, desc: "V"}
	TypeByte    = &Type{Kind: KindByte, desc: "B"}
	TypeShort   = &Type{Kind: KindShort, desc: "S"}
	TypeInt     = &Type{Kind: KindInt, desc: "I"}
	TypeLong    = &Type{Kind: KindLong, desc: "J"}
	TypeDouble  = &Type{Kind: KindDouble, desc: "D"}
	TypeBoolean = &Type{Kind: KindBoolean, desc: "Z"}
)

var primitiveTypes = map[byte]*Type{
	'V': TypeVoid,
	'B': TypeByte,
	'S': TypeShort,
	'I': TypeInt,
	'J': TypeLong,
	'D': TypeDouble,
	'Z': TypeBoolean,
}

// Descriptor returns the field descriptor form of t, e.g. "I",
// "Ljava/lang/String;" or "[S".
func (t *Type) Descriptor() string { return t.desc }

// IsPrimitive reports whether t is a primitive (non-reference) type.
func (t *Type) IsPrimitive() bool { return !t.Kind.IsReference() }

// Name returns a readable name: "int", "java/lang/String", "short[]".
func (t *Type) Name() string {
	switch t.Kind {
	case KindRef:
		return t.Class.Name
	case KindArray:
		return t.Elem.Name() + "[]"
	}
	return t.Kind.String()
}

func (t *Type) String() string { return t.Name() }

// IsAssignable reports whether a value whose runtime type is from may be
// stored where type to is expected.
func IsAssignable(from, to *Type) bool {
	if from == to {
		return true
	}
	if from.IsPrimitive() || to.IsPrimitive() {
		return false
	}
	switch to.Kind {
	case KindRef:
		if from.Kind == KindArray {
			return to.Class.Super == nil
		}
		return from.Class.IsSubclassOf(to.Class)
	case KindArray:
		if from.Kind != KindArray {
			return false
		}
		if from.Elem.IsPrimitive() || to.Elem.IsPrimitive() {
			return from.Elem == to.Elem
		}
		return IsAssignable(from.Elem, to.Elem)
	}
	return false
}

// ---------------------------------------------------------------------------
// Descriptor parsing
// ---------------------------------------------------------------------------

// nextDescriptor scans one field descriptor starting at s[i] and returns it
// with the index just past it.
func nextDescriptor(s string, i int) (string, int, error) {
	start := i
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return "", i, fmt.Errorf("truncated descriptor %q", s)
	}
	switch s[i] {
	case 'B', 'S', 'I', 'J', 'D', 'Z':
		i++
	case 'V':
		if i != start {
			return "", i, fmt.Errorf("array of void in %q", s)
		}
		i++
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return "", i, fmt.Errorf("bad class descriptor in %q", s)
		}
		i += end + 1
	case 'C', 'F':
		return "", i, fmt.Errorf("unsupported primitive %q in %q", s[i], s)
	default:
		return "", i, fmt.Errorf("bad descriptor %q", s)
	}
	return s[start:i], i, nil
}

// SplitMethodDescriptor splits "(I[Ljava/lang/String;)V" into its
// parameter descriptors and return descriptor.
func SplitMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("bad method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		var p string
		p, i, err = nextDescriptor(desc, i)
		if err != nil {
			return nil, "", err
		}
		if p == "V" {
			return nil, "", fmt.Errorf("void parameter in %q", desc)
		}
		params = append(params, p)
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("unterminated method descriptor %q", desc)
	}
	ret, i, err = nextDescriptor(desc, i+1)
	if err != nil {
		return nil, "", err
	}
	if i != len(desc) {
		return nil, "", fmt.Errorf("trailing data in method descriptor %q", desc)
	}
	return params, ret, nil
}

// paramKey returns the "(...)" prefix of a method descriptor, the part that
// identifies a constructor.
func paramKey(desc string) string {
	if i := strings.IndexByte(desc, ')'); i >= 0 {
		return desc[:i+1]
	}
	return desc
}
