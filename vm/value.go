package vm

import (
	"fmt"
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Kinds
// ---------------------------------------------------------------------------

// Kind identifies the representation of a Value or a Type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindDouble
	KindBoolean
	KindRef
	KindArray
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindByte:    "byte",
	KindShort:   "short",
	KindInt:     "int",
	KindLong:    "long",
	KindDouble:  "double",
	KindBoolean: "boolean",
	KindRef:     "ref",
	KindArray:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsIntegral reports whether k is one of the signed integer kinds.
func (k Kind) IsIntegral() bool { return k >= KindByte && k <= KindLong }

// IsNumeric reports whether k is an integer kind or double.
func (k Kind) IsNumeric() bool { return k >= KindByte && k <= KindDouble }

// IsReference reports whether values of kind k are references.
func (k Kind) IsReference() bool { return k == KindRef || k == KindArray }

// CanWiden reports whether a value of kind from converts to kind to without
// loss of sign or magnitude. Every kind widens to itself.
func CanWiden(from, to Kind) bool {
	if from == to {
		return true
	}
	if !from.IsNumeric() || !to.IsNumeric() {
		return false
	}
	// The numeric kinds are declared in width order.
	return from < to
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// Value is a tagged machine value. Integer kinds keep their payload
// sign-extended to 64 bits in bits, doubles keep their IEEE bit pattern and
// references keep the target in ref.
type Value struct {
	kind Kind
	bits uint64
	ref  Ref
}

// Null is the null reference.
var Null = Value{kind: KindRef}

// Void is the result of a method with a void return type.
var Void = Value{}

func FromByte(v int8) Value   { return Value{kind: KindByte, bits: uint64(int64(v))} }
func FromShort(v int16) Value { return Value{kind: KindShort, bits: uint64(int64(v))} }
func FromInt(v int32) Value   { return Value{kind: KindInt, bits: uint64(int64(v))} }
func FromLong(v int64) Value  { return Value{kind: KindLong, bits: uint64(v)} }

func FromDouble(f float64) Value {
	return Value{kind: KindDouble, bits: math.Float64bits(f)}
}

func FromBool(b bool) Value {
	if b {
		return Value{kind: KindBoolean, bits: 1}
	}
	return Value{kind: KindBoolean}
}

// FromObject wraps o as a reference value; a nil object yields Null.
func FromObject(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindRef, ref: o}
}

// FromArray wraps a as a reference value; a nil array yields Null.
func FromArray(a *Array) Value {
	if a == nil {
		return Null
	}
	return Value{kind: KindRef, ref: a}
}

// FromRef wraps any reference target.
func FromRef(r Ref) Value {
	switch r := r.(type) {
	case *Object:
		return FromObject(r)
	case *Array:
		return FromArray(r)
	case nil:
		return Null
	}
	return Value{kind: KindRef, ref: r}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsRef() bool  { return v.kind == KindRef }
func (v Value) IsNull() bool { return v.kind == KindRef && v.ref == nil }
func (v Value) IsVoid() bool { return v.kind == KindVoid }

// AsInt returns the low 32 bits of an integer or boolean value.
func (v Value) AsInt() int32 { return int32(int64(v.bits)) }

// AsLong returns an integer or boolean value as int64.
func (v Value) AsLong() int64 { return int64(v.bits) }

// AsDouble returns a double value, converting integer kinds exactly.
func (v Value) AsDouble() float64 {
	if v.kind == KindDouble {
		return math.Float64frombits(v.bits)
	}
	return float64(int64(v.bits))
}

func (v Value) AsBool() bool { return v.bits != 0 }

func (v Value) Ref() Ref { return v.ref }

// Object returns the referenced object, or nil for null and arrays.
func (v Value) Object() *Object {
	o, _ := v.ref.(*Object)
	return o
}

// Array returns the referenced array, or nil for null and objects.
func (v Value) Array() *Array {
	a, _ := v.ref.(*Array)
	return a
}

// intLike reports whether v can be consumed by int-typed instructions.
func (v Value) intLike() bool {
	return v.kind == KindBoolean || CanWiden(v.kind, KindInt)
}

// Identical reports whether v and o have the same kind and payload. Two
// references are identical only when they name the same target.
func (v Value) Identical(o Value) bool {
	return v.kind == o.kind && v.bits == o.bits && v.ref == o.ref
}

func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "void"
	case KindByte, KindShort, KindInt, KindLong:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindDouble:
		return strconv.FormatFloat(v.AsDouble(), 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.AsBool())
	}
	if v.ref == nil {
		return "null"
	}
	if s, ok := v.ref.(fmt.Stringer); ok {
		return s.String()
	}
	return v.ref.Type().String()
}

// ---------------------------------------------------------------------------
// Widening and narrowing
// ---------------------------------------------------------------------------

// Widen converts v to the wider numeric kind to. Signed integers are
// sign-extended; integers become doubles by exact conversion where the
// magnitude allows. Widen panics when CanWiden(v.Kind(), to) is false.
func Widen(v Value, to Kind) Value {
	if v.kind == to {
		return v
	}
	if !CanWiden(v.kind, to) {
		panic(fmt.Sprintf("vm: cannot widen %s to %s", v.kind, to))
	}
	if to == KindDouble {
		return FromDouble(float64(int64(v.bits)))
	}
	return Value{kind: to, bits: v.bits}
}

// truncate narrows an integer value the way array and field stores of an
// int operand into a narrower slot do.
func truncate(v Value, to Kind) Value {
	switch to {
	case KindByte:
		return FromByte(int8(v.bits))
	case KindShort:
		return FromShort(int16(v.bits))
	case KindInt:
		return FromInt(int32(v.bits))
	case KindBoolean:
		return FromBool(v.bits&1 != 0)
	}
	return v
}

// ZeroValue returns the default slot value for t.
func ZeroValue(t *Type) Value {
	if t.Kind.IsReference() {
		return Null
	}
	return Value{kind: t.Kind}
}

// assign converts v for storage in a slot of type t. Integer operands are
// narrowed into byte, short and boolean slots, narrower integers widen into
// long and double slots, and references must be assignable to t.
func assign(t *Type, v Value) (Value, bool) {
	switch {
	case t.Kind.IsReference():
		if v.kind != KindRef {
			return v, false
		}
		if v.ref == nil || IsAssignable(v.ref.Type(), t) {
			return v, true
		}
		return v, false
	case v.kind == KindBoolean:
		return v, t.Kind == KindBoolean
	case !v.kind.IsNumeric():
		return v, false
	case t.Kind == KindLong || t.Kind == KindDouble:
		if !CanWiden(v.kind, t.Kind) {
			return v, false
		}
		return Widen(v, t.Kind), true
	case t.Kind == KindByte || t.Kind == KindShort || t.Kind == KindInt || t.Kind == KindBoolean:
		if !v.intLike() {
			return v, false
		}
		return truncate(v, t.Kind), true
	}
	return v, false
}
