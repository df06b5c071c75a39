package vm

import (
	"fmt"
	"strconv"
)

// Ref is the target of a reference value: an *Object or an *Array.
type Ref interface {
	Type() *Type
}

// Object is an instance of a class. Slots are laid out with inherited
// fields first, so a field keeps its slot index in every subclass.
type Object struct {
	class  *Class
	fields []Value

	// native carries the payload of system classes: the text of a String,
	// the *Type of a Class mirror, the handle of a reflective Constructor
	// or Field.
	native any
}

// newObject allocates an instance of c with every field set to its
// initializer or zero value.
func newObject(c *Class) *Object {
	o := &Object{class: c, fields: make([]Value, len(c.template))}
	copy(o.fields, c.template)
	return o
}

func (o *Object) Class() *Class { return o.class }
func (o *Object) Type() *Type   { return o.class.typ }

// NumSlots returns the number of field slots.
func (o *Object) NumSlots() int { return len(o.fields) }

func (o *Object) Slot(i int) Value       { return o.fields[i] }
func (o *Object) SetSlot(i int, v Value) { o.fields[i] = v }

// GetField reads a field by name. Fields declared in superclasses are
// visible; a subclass field shadows an inherited one of the same name.
func (o *Object) GetField(name string) (Value, error) {
	f := o.class.Field(name)
	if f == nil {
		return Null, newError(FaultNoSuchField, "%s.%s", o.class.Name, name)
	}
	return o.fields[f.Slot], nil
}

// SetField writes a field by name after converting v to the field type.
func (o *Object) SetField(name string, v Value) error {
	f := o.class.Field(name)
	if f == nil {
		return newError(FaultNoSuchField, "%s.%s", o.class.Name, name)
	}
	cv, ok := assign(f.Type, v)
	if !ok {
		return newError(FaultIllegalArgument, "cannot store %s in %s.%s of type %s",
			v.kind, o.class.Name, name, f.Type)
	}
	o.fields[f.Slot] = cv
	return nil
}

// StringValue returns the text of a java/lang/String instance.
func (o *Object) StringValue() (string, bool) {
	s, ok := o.native.(string)
	return s, ok
}

func (o *Object) String() string {
	switch n := o.native.(type) {
	case string:
		return strconv.Quote(n)
	case *Type:
		return "class " + n.Name()
	}
	return fmt.Sprintf("%s@%p", o.class.Name, o)
}

// StringOf returns the text of a String reference. Null and non-string
// references report false.
func StringOf(v Value) (string, bool) {
	o := v.Object()
	if o == nil {
		return "", false
	}
	return o.StringValue()
}
