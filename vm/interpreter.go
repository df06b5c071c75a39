package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tliron/commonlog"
)

// DefaultMaxDepth is the call depth at which StackOverflowError is raised.
const DefaultMaxDepth = 512

// CallFrame is the activation record of one interpreted method.
type CallFrame struct {
	Method *Method
	Locals []Value
	IP     int

	start   int // offset of the executing instruction
	stack   []Value
	regions []*activeRegion
}

func (f *CallFrame) push(v Value) { f.stack = append(f.stack, v) }

func (f *CallFrame) pop() Value {
	n := len(f.stack)
	if n == 0 {
		panic(stackUnderflow{method: f.Method, offset: f.start})
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (f *CallFrame) peek() Value {
	if len(f.stack) == 0 {
		panic(stackUnderflow{method: f.Method, offset: f.start})
	}
	return f.stack[len(f.stack)-1]
}

// Location returns the executing instruction.
func (f *CallFrame) Location() Location {
	return Location{Class: f.Method.Class.Name, Method: f.Method.Signature(), Offset: f.start}
}

// stackUnderflow is the panic payload for code that pops an empty operand
// stack. Interpreter.Invoke turns it back into an ErrMalformed error.
type stackUnderflow struct {
	method *Method
	offset int
}

// Interpreter executes methods on one call stack. It is not safe for
// concurrent use; create one per goroutine over a shared ClassTable.
type Interpreter struct {
	table  *ClassTable
	frames []*CallFrame

	// MaxDepth bounds the number of interpreted frames.
	MaxDepth int
}

// NewInterpreter creates an interpreter over a linked class table.
func NewInterpreter(ct *ClassTable) *Interpreter {
	return &Interpreter{table: ct, MaxDepth: DefaultMaxDepth}
}

// Table returns the class table the interpreter runs against.
func (in *Interpreter) Table() *ClassTable { return in.table }

// Depth returns the number of active interpreted frames.
func (in *Interpreter) Depth() int { return len(in.frames) }

// Backtrace returns the locations of the active frames, innermost first.
func (in *Interpreter) Backtrace() []Location {
	out := make([]Location, 0, len(in.frames))
	for i := len(in.frames) - 1; i >= 0; i-- {
		out = append(out, in.frames[i].Location())
	}
	return out
}

// Invoke runs m with args (receiver first for instance methods) and
// returns its result. A fault that no handler catches comes back as a
// *Fault; any other error is fatal.
func (in *Interpreter) Invoke(m *Method, args ...Value) (result Value, err error) {
	if len(args) != m.ArgSlots() {
		return Void, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrMalformed, m, m.ArgSlots(), len(args))
	}
	defer in.recoverMalformed(len(in.frames), &err)
	return in.call(m, args)
}

func (in *Interpreter) call(m *Method, args []Value) (Value, error) {
	if len(in.frames) >= in.MaxDepth {
		origin := Location{Class: m.Class.Name, Method: m.Signature()}
		if n := len(in.frames); n > 0 {
			origin = in.frames[n-1].Location()
		}
		return Void, in.raise(newError(FaultStackOverflow, "call depth %d", len(in.frames)), origin)
	}
	if m.native != nil {
		v, err := m.native(in, args)
		if e, ok := err.(*Error); ok {
			return Void, in.raise(e, Location{Class: m.Class.Name, Method: m.Signature(), Offset: -1})
		}
		return v, err
	}
	if m.IsAbstract() {
		return Void, fmt.Errorf("%w: %s is abstract", ErrUnresolvedMethod, m)
	}

	f := &CallFrame{Method: m, Locals: make([]Value, m.MaxLocals)}
	copy(f.Locals, args)
	in.frames = append(in.frames, f)
	v, err := in.run(f)
	in.frames[len(in.frames)-1] = nil
	in.frames = in.frames[:len(in.frames)-1]
	return v, err
}

// raise turns a core error into a thrown object.
func (in *Interpreter) raise(e *Error, origin Location) *Fault {
	fault := &Fault{Object: in.throwableFor(e), Origin: origin}
	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("raise %s at %s", fault, origin)
	}
	return fault
}

// toFault classifies err from an instruction: thrown objects and core
// errors become faults, everything else is fatal.
func (in *Interpreter) toFault(err error, f *CallFrame) (*Fault, bool) {
	switch e := err.(type) {
	case *Fault:
		return e, true
	case *Error:
		return in.raise(e, f.Location()), true
	}
	return nil, false
}

func u16(code []byte, at int) int { return int(binary.LittleEndian.Uint16(code[at:])) }
func i16(code []byte, at int) int { return int(int16(binary.LittleEndian.Uint16(code[at:]))) }

func malformedf(f *CallFrame, format string, args ...any) error {
	return fmt.Errorf("%w: %s at %d: %s", ErrMalformed, f.Method, f.start, fmt.Sprintf(format, args...))
}

// run executes f until it returns or a fault leaves it.
func (in *Interpreter) run(f *CallFrame) (Value, error) {
	m := f.Method
	code := m.Code

	for {
		if f.IP >= len(code) {
			return Void, fmt.Errorf("%w: %s ran past the end of its code", ErrMalformed, m)
		}
		f.start = f.IP
		op := Opcode(code[f.IP])
		f.IP++
		var err error

		switch op {
		// Stack operations
		case OpNop:
		case OpPop:
			f.pop()
		case OpDup:
			f.push(f.peek())
		case OpSwap:
			b, a := f.pop(), f.pop()
			f.push(b)
			f.push(a)

		// Constants
		case OpPushNull:
			f.push(Null)
		case OpPushInt8:
			f.push(FromInt(int32(int8(code[f.IP]))))
			f.IP++
		case OpPushInt32:
			f.push(FromInt(int32(binary.LittleEndian.Uint32(code[f.IP:]))))
			f.IP += 4
		case OpPushLiteral:
			f.push(m.literals[u16(code, f.IP)])
			f.IP += 2
		case OpLoadClass:
			f.push(FromObject(m.refs[u16(code, f.IP)].mirror))
			f.IP += 2

		// Locals
		case OpLoad:
			f.push(f.Locals[code[f.IP]])
			f.IP++
		case OpStore:
			f.Locals[code[f.IP]] = f.pop()
			f.IP++
		case OpInc:
			idx, delta := code[f.IP], int32(int8(code[f.IP+1]))
			f.IP += 2
			if v := f.Locals[idx]; v.intLike() {
				f.Locals[idx] = FromInt(v.AsInt() + delta)
			} else {
				err = malformedf(f, "INC of %s local", v.kind)
			}

		// Arithmetic
		case OpAdd, OpSub, OpMul, OpDiv, OpRem:
			kind := Kind(code[f.IP])
			f.IP++
			b, a := f.pop(), f.pop()
			var r Value
			if r, err = arith(f, op, kind, a, b); err == nil {
				f.push(r)
			}
		case OpNeg:
			kind := Kind(code[f.IP])
			f.IP++
			a, ok := operand(f.pop(), kind)
			switch {
			case !ok:
				err = malformedf(f, "NEG %s of %s", kind, a.kind)
			case kind == KindInt:
				f.push(FromInt(-a.AsInt()))
			case kind == KindLong:
				f.push(FromLong(-a.AsLong()))
			default:
				f.push(FromDouble(-a.AsDouble()))
			}
		case OpWiden:
			kind := Kind(code[f.IP])
			f.IP++
			v := f.pop()
			if !CanWiden(v.kind, kind) {
				err = malformedf(f, "WIDEN %s to %s", v.kind, kind)
				break
			}
			f.push(Widen(v, kind))
		case OpCmp:
			kind := Kind(code[f.IP])
			f.IP++
			b, a := f.pop(), f.pop()
			var r Value
			if r, err = compare(f, kind, a, b); err == nil {
				f.push(r)
			}

		// Control flow
		case OpGoto:
			f.IP += 2 + i16(code, f.IP)
		case OpIf:
			cond, off := Cond(code[f.IP]), i16(code, f.IP+1)
			f.IP += 3
			v := f.pop()
			if !v.intLike() {
				err = malformedf(f, "IF on %s", v.kind)
			} else if cond.test(int64(v.AsInt()), 0) {
				f.IP += off
			}
		case OpIfCmp:
			cond, off := Cond(code[f.IP]), i16(code, f.IP+1)
			f.IP += 3
			b, a := f.pop(), f.pop()
			if !a.intLike() || !b.intLike() {
				err = malformedf(f, "IF_CMP on %s and %s", a.kind, b.kind)
			} else if cond.test(int64(a.AsInt()), int64(b.AsInt())) {
				f.IP += off
			}
		case OpIfNull, OpIfNonNull:
			off := i16(code, f.IP)
			f.IP += 2
			v := f.pop()
			if v.kind != KindRef {
				err = malformedf(f, "%s on %s", op, v.kind)
			} else if (v.ref == nil) == (op == OpIfNull) {
				f.IP += off
			}
		case OpIfRefEq, OpIfRefNe:
			off := i16(code, f.IP)
			f.IP += 2
			b, a := f.pop(), f.pop()
			if a.kind != KindRef || b.kind != KindRef {
				err = malformedf(f, "%s on %s and %s", op, a.kind, b.kind)
			} else if (a.ref == b.ref) == (op == OpIfRefEq) {
				f.IP += off
			}
		case OpTableSwitch, OpLookupSwitch:
			st := m.switches[u16(code, f.IP)]
			f.IP += 2
			v := f.pop()
			if !v.intLike() {
				err = malformedf(f, "%s on %s", op, v.kind)
			} else if target, ok := st.LookupInt(v.AsInt()); ok {
				f.IP = target
			}
		case OpStringSwitch:
			st := m.switches[u16(code, f.IP)]
			f.IP += 2
			v := f.pop()
			s, ok := StringOf(v)
			switch {
			case v.IsNull():
				err = newError(FaultNullReference, "switch on null string")
			case !ok:
				err = malformedf(f, "STRING_SWITCH on %s", v)
			default:
				if target, ok := st.LookupString(s); ok {
					f.IP = target
				}
			}

		// Objects
		case OpNew:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			f.push(FromObject(newObject(ref.class)))
		case OpGetField:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			var o *Object
			if o, err = fieldReceiver(f, f.pop(), ref.field); err == nil {
				f.push(o.fields[ref.field.Slot])
			}
		case OpPutField:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			v := f.pop()
			var o *Object
			if o, err = fieldReceiver(f, f.pop(), ref.field); err == nil {
				cv, ok := assign(ref.field.Type, v)
				if !ok {
					err = malformedf(f, "PUT_FIELD %s of %s", ref.field.Name, v.kind)
					break
				}
				o.fields[ref.field.Slot] = cv
			}
		case OpInstanceOf:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			f.push(FromBool(IsInstanceOf(f.pop(), ref.typ)))
		case OpCheckCast:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			v := f.peek()
			switch {
			case v.kind != KindRef:
				err = malformedf(f, "CHECK_CAST of %s", v.kind)
			case v.ref != nil && !IsInstanceOf(v, ref.typ):
				err = newError(FaultClassCast, "%s cannot be cast to %s", v.ref.Type().Name(), ref.typ.Name())
			}

		// Invocation
		case OpInvokeVirtual, OpInvokeInterface, OpInvokeSpecial, OpInvokeStatic:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			var v Value
			if v, err = in.invoke(f, op, ref); err == nil && ref.ret != TypeVoid {
				f.push(v)
			}
		case OpReturn:
			if f.unwindReturn(Void) {
				return Void, nil
			}
		case OpReturnValue:
			v := f.pop()
			if f.unwindReturn(v) {
				return v, nil
			}

		// Arrays
		case OpNewArray:
			ref := m.refs[u16(code, f.IP)]
			f.IP += 2
			n := f.pop()
			switch {
			case !n.intLike():
				err = malformedf(f, "NEW_ARRAY length of %s", n.kind)
			case n.AsInt() < 0:
				err = newError(FaultInvalidLength, "%d", n.AsInt())
			default:
				f.push(FromArray(newArray(ref.array, int(n.AsInt()))))
			}
		case OpArrayLoad:
			idx := f.pop()
			var a *Array
			if a, err = arrayOperand(f, f.pop(), idx); err == nil {
				var v Value
				if v, err = a.Load(int(idx.AsInt())); err == nil {
					f.push(v)
				}
			}
		case OpArrayStore:
			v, idx := f.pop(), f.pop()
			var a *Array
			if a, err = arrayOperand(f, f.pop(), idx); err == nil {
				err = a.Store(int(idx.AsInt()), v)
			}
		case OpArrayLength:
			var a *Array
			if a, err = arrayOperand(f, f.pop(), FromInt(0)); err == nil {
				f.push(FromInt(int32(a.Len())))
			}

		// Exceptions
		case OpThrow:
			v := f.pop()
			o := v.Object()
			switch {
			case v.IsNull():
				err = newError(FaultNullReference, "throw null")
			case o == nil || !o.class.IsSubclassOf(in.table.throwableClass):
				err = malformedf(f, "THROW of %s", v)
			default:
				err = &Fault{Object: o, Origin: f.Location()}
				if log.AllowLevel(commonlog.Debug) {
					log.Debugf("throw %s at %s", o.class.Name, f.Location())
				}
			}
		case OpTry:
			f.enterRegion(u16(code, f.IP))
			f.IP += 2
		case OpLeave:
			idx, off := u16(code, f.IP), i16(code, f.IP+2)
			f.IP += 4
			err = f.leaveRegion(idx, f.IP+off)
		case OpEndFinally:
			idx := u16(code, f.IP)
			f.IP += 2
			var c completion
			if c, err = f.endFinally(idx); err != nil {
				break
			}
			switch c.kind {
			case completeJump:
				f.IP = c.target
			case completeReturn:
				if f.unwindReturn(c.value) {
					return c.value, nil
				}
			case completeThrow:
				err = c.fault
			}

		default:
			err = malformedf(f, "unknown opcode 0x%02x", byte(op))
		}

		if err != nil {
			fault, ok := in.toFault(err, f)
			if !ok {
				return Void, err
			}
			if !f.catch(fault) {
				if log.AllowLevel(commonlog.Debug) {
					log.Debugf("%s leaves %s", fault.Object.class.Name, m)
				}
				return Void, fault
			}
		}
	}
}

// invoke pops the arguments of a call site and dispatches it. Virtual and
// interface calls select the implementation from the receiver's runtime
// class.
func (in *Interpreter) invoke(f *CallFrame, op Opcode, ref *resolvedRef) (Value, error) {
	n := len(ref.params)
	if op != OpInvokeStatic {
		n++
	}
	if len(f.stack) < n {
		return Void, malformedf(f, "%s needs %d arguments, stack has %d", op, n, len(f.stack))
	}
	args := make([]Value, n)
	copy(args, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]

	target := ref.method
	if op != OpInvokeStatic {
		recv := args[0]
		if recv.kind != KindRef {
			return Void, malformedf(f, "%s receiver of kind %s", op, recv.kind)
		}
		if recv.ref == nil {
			return Void, newError(FaultNullReference, "cannot invoke %s.%s on null", ref.class.Name, ref.sig)
		}
		if op != OpInvokeSpecial {
			cls := in.table.classOf(recv.ref)
			target = cls.vtable.Lookup(ref.sig)
			if target == nil || target.IsAbstract() {
				return Void, fmt.Errorf("%w: %s.%s", ErrUnresolvedMethod, cls.Name, ref.sig)
			}
		}
	}
	return in.call(target, args)
}

func fieldReceiver(f *CallFrame, v Value, field *Field) (*Object, error) {
	if v.IsNull() {
		return nil, newError(FaultNullReference, "field %s of null", field.Name)
	}
	o := v.Object()
	if o == nil || !o.class.IsSubclassOf(field.Owner) {
		return nil, malformedf(f, "field %s.%s of %s", field.Owner.Name, field.Name, v)
	}
	return o, nil
}

func arrayOperand(f *CallFrame, v, idx Value) (*Array, error) {
	if !idx.intLike() {
		return nil, malformedf(f, "array index of kind %s", idx.kind)
	}
	if v.IsNull() {
		return nil, newError(FaultNullReference, "array access on null")
	}
	a := v.Array()
	if a == nil {
		return nil, malformedf(f, "array access on %s", v)
	}
	return a, nil
}

// operand widens v to the operating kind of an arithmetic instruction.
// Booleans count as ints.
func operand(v Value, kind Kind) (Value, bool) {
	if kind == KindInt && v.kind == KindBoolean {
		return FromInt(v.AsInt()), true
	}
	if !CanWiden(v.kind, kind) {
		return v, false
	}
	return Widen(v, kind), true
}

func arith(f *CallFrame, op Opcode, kind Kind, a, b Value) (Value, error) {
	x, okA := operand(a, kind)
	y, okB := operand(b, kind)
	if !okA || !okB {
		return Void, malformedf(f, "%s %s of %s and %s", op, kind, a.kind, b.kind)
	}
	switch kind {
	case KindInt:
		p, q := x.AsInt(), y.AsInt()
		switch op {
		case OpAdd:
			return FromInt(p + q), nil
		case OpSub:
			return FromInt(p - q), nil
		case OpMul:
			return FromInt(p * q), nil
		}
		if q == 0 {
			return Void, newError(FaultArithmetic, "/ by zero")
		}
		if op == OpDiv {
			return FromInt(p / q), nil
		}
		return FromInt(p % q), nil
	case KindLong:
		p, q := x.AsLong(), y.AsLong()
		switch op {
		case OpAdd:
			return FromLong(p + q), nil
		case OpSub:
			return FromLong(p - q), nil
		case OpMul:
			return FromLong(p * q), nil
		}
		if q == 0 {
			return Void, newError(FaultArithmetic, "/ by zero")
		}
		if op == OpDiv {
			return FromLong(p / q), nil
		}
		return FromLong(p % q), nil
	}
	p, q := x.AsDouble(), y.AsDouble()
	switch op {
	case OpAdd:
		return FromDouble(p + q), nil
	case OpSub:
		return FromDouble(p - q), nil
	case OpMul:
		return FromDouble(p * q), nil
	case OpDiv:
		return FromDouble(p / q), nil
	}
	return FromDouble(math.Mod(p, q)), nil
}

// compare is the three-way comparison of CMP. NaN compares as less.
func compare(f *CallFrame, kind Kind, a, b Value) (Value, error) {
	x, okA := operand(a, kind)
	y, okB := operand(b, kind)
	if !okA || !okB {
		return Void, malformedf(f, "CMP %s of %s and %s", kind, a.kind, b.kind)
	}
	var lt, gt bool
	if kind == KindDouble {
		lt, gt = x.AsDouble() < y.AsDouble(), x.AsDouble() > y.AsDouble()
		if !lt && !gt && x.AsDouble() != y.AsDouble() {
			lt = true
		}
	} else {
		lt, gt = x.AsLong() < y.AsLong(), x.AsLong() > y.AsLong()
	}
	switch {
	case lt:
		return FromInt(-1), nil
	case gt:
		return FromInt(1), nil
	}
	return FromInt(0), nil
}
