package vm

import (
	"fmt"
	"sort"
	"strings"
)

// LookupConstructor returns the constructor c declares with exactly the
// given parameter types. There is no overload resolution: widening or
// subtyping a parameter does not match.
func LookupConstructor(c *Class, params ...*Type) (*Constructor, error) {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.desc)
	}
	sb.WriteByte(')')
	if ctor := c.ctors[sb.String()]; ctor != nil {
		return ctor, nil
	}
	return nil, newError(FaultNoSuchConstructor, "%s.<init>%s", c.Name, sb.String())
}

// Constructors returns the constructors c declares, ordered by descriptor.
func (c *Class) Constructors() []*Constructor {
	out := make([]*Constructor, 0, len(c.ctors))
	for _, ctor := range c.ctors {
		out = append(out, ctor)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Method.Descriptor < out[j].Method.Descriptor
	})
	return out
}

// NewInstance allocates an instance of ctor's class with every field set
// to its initializer or zero value, then runs the selected constructor body
// and no other. A fault from the body is returned as a
// ConstructorInvocationFailure whose cause is the original *Fault.
func (in *Interpreter) NewInstance(ctor *Constructor, args ...Value) (obj *Object, err error) {
	c := ctor.Class
	if c.IsAbstract() {
		return nil, newError(FaultInstantiation, "%s is abstract", c.Name)
	}
	if len(args) != len(ctor.Params) {
		return nil, newError(FaultIllegalArgument, "%s takes %d arguments, got %d", ctor, len(ctor.Params), len(args))
	}

	obj = newObject(c)
	full := make([]Value, 0, len(args)+1)
	full = append(full, FromObject(obj))
	for i, a := range args {
		v, ok := assign(ctor.Params[i], a)
		if !ok {
			return nil, newError(FaultIllegalArgument, "argument %d of %s: %s is not %s", i, ctor, a.kind, ctor.Params[i])
		}
		full = append(full, v)
	}

	defer in.recoverMalformed(len(in.frames), &err)
	if _, err := in.call(ctor.Method, full); err != nil {
		if fault, ok := err.(*Fault); ok {
			return nil, &Error{Kind: FaultConstructorInvocationFailure, Msg: ctor.String(), Cause: fault}
		}
		return nil, err
	}
	return obj, nil
}

// GetField reads a field of obj by name.
func GetField(obj *Object, name string) (Value, error) {
	if obj == nil {
		return Null, newError(FaultNullReference, "field %s of null", name)
	}
	return obj.GetField(name)
}

// recoverMalformed is deferred by the public entry points to turn an operand
// stack underflow back into an error.
func (in *Interpreter) recoverMalformed(depth int, err *error) {
	r := recover()
	if r == nil {
		return
	}
	su, ok := r.(stackUnderflow)
	if !ok {
		panic(r)
	}
	for i := depth; i < len(in.frames); i++ {
		in.frames[i] = nil
	}
	in.frames = in.frames[:depth]
	*err = fmt.Errorf("%w: operand stack underflow in %s at %d", ErrMalformed, su.method, su.offset)
}
