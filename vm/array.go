package vm

import "fmt"

// Array is a fixed-length sequence of slots of one element type. Every slot
// always holds a value assignable to the element type.
type Array struct {
	typ   *Type
	elems []Value
}

// NewArray creates an array of length elements of type elem, each set to
// the element zero value.
func (ct *ClassTable) NewArray(elem *Type, length int) (*Array, error) {
	if length < 0 {
		return nil, newError(FaultInvalidLength, "%d", length)
	}
	return newArray(ct.ArrayOf(elem), length), nil
}

func newArray(typ *Type, length int) *Array {
	a := &Array{typ: typ, elems: make([]Value, length)}
	zero := ZeroValue(typ.Elem)
	for i := range a.elems {
		a.elems[i] = zero
	}
	return a
}

func (a *Array) Type() *Type     { return a.typ }
func (a *Array) ElemType() *Type { return a.typ.Elem }
func (a *Array) Len() int        { return len(a.elems) }

func (a *Array) String() string {
	return fmt.Sprintf("%s[%d]", a.typ.Elem.Name(), len(a.elems))
}

// Load returns the element at index i.
func (a *Array) Load(i int) (Value, error) {
	if i < 0 || i >= len(a.elems) {
		return Null, newError(FaultIndexOutOfRange, "index %d out of bounds for length %d", i, len(a.elems))
	}
	return a.elems[i], nil
}

// Store writes v at index i. Integer operands are narrowed into byte and
// short arrays; references must be assignable to the element type.
func (a *Array) Store(i int, v Value) error {
	if i < 0 || i >= len(a.elems) {
		return newError(FaultIndexOutOfRange, "index %d out of bounds for length %d", i, len(a.elems))
	}
	cv, ok := assign(a.typ.Elem, v)
	if !ok {
		return newError(FaultArrayStoreTypeMismatch, "%s", storeMismatch(v, a.typ.Elem))
	}
	a.elems[i] = cv
	return nil
}

func storeMismatch(v Value, elem *Type) string {
	if v.kind == KindRef && v.ref != nil {
		return fmt.Sprintf("%s into %s[]", v.ref.Type().Name(), elem.Name())
	}
	return fmt.Sprintf("%s into %s[]", v.kind, elem.Name())
}

// ArrayCopy copies count elements from src starting at srcPos into dst
// starting at dstPos.
//
// Bounds are validated before anything is written. Primitive arrays must
// share an element kind. For reference destinations each element is checked
// in copy order; the first element not assignable to the destination
// element type fails the copy, leaving the elements before it copied.
// Overlapping ranges within one array copy as if through a temporary buffer.
func ArrayCopy(src *Array, srcPos int, dst *Array, dstPos int, count int) error {
	if src == nil || dst == nil {
		return newError(FaultNullReference, "arraycopy of null array")
	}
	se, de := src.typ.Elem, dst.typ.Elem
	if (se.IsPrimitive() || de.IsPrimitive()) && se != de {
		return newError(FaultArrayStoreTypeMismatch, "arraycopy from %s[] to %s[]", se.Name(), de.Name())
	}
	if srcPos < 0 || dstPos < 0 || count < 0 ||
		srcPos > len(src.elems)-count || dstPos > len(dst.elems)-count {
		return newError(FaultIndexOutOfRange,
			"arraycopy [%d,+%d) of length %d into [%d,+%d) of length %d",
			srcPos, count, len(src.elems), dstPos, count, len(dst.elems))
	}

	staged := src.elems[srcPos : srcPos+count]
	if se.IsPrimitive() || IsAssignable(src.typ, dst.typ) {
		// copy has memmove semantics for overlapping slices.
		copy(dst.elems[dstPos:], staged)
		return nil
	}
	if src == dst {
		staged = append([]Value(nil), staged...)
	}
	for i, v := range staged {
		if v.ref != nil && !IsAssignable(v.ref.Type(), de) {
			return newError(FaultArrayStoreTypeMismatch,
				"arraycopy element %d: %s", srcPos+i, storeMismatch(v, de))
		}
		dst.elems[dstPos+i] = v
	}
	return nil
}
