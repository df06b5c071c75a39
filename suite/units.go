package suite

import (
	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
)

// ---------------------------------------------------------------------------
// Array: mixed-width accumulation
// ---------------------------------------------------------------------------

// arrayUnit sums an int[], a short[] and the value fields of two objects
// onto -3, which yields 0. A byte[] {-2, 10} is summed separately and must
// give 8.
func arrayUnit() *classset.Set {
	const (
		ints byte = iota
		shorts
		objs
		bytes
		sum
		byteSum
		idx
		numLocals
	)
	b := entry().SetMaxLocals(int(numLocals))

	intArray(b, "I", 4, 5, 10, 20)
	b.Store(ints)
	intArray(b, "S", -20, -4, -5, -11)
	b.Store(shorts)
	b.PushInt(2)
	b.EmitRef(vm.OpNewArray, vm.ClassRef(Array))
	for i := int32(0); i < 2; i++ {
		b.Emit(vm.OpDup)
		b.PushInt(i)
		newObject(b, Array)
		b.Emit(vm.OpArrayStore)
	}
	b.Store(objs)
	intArray(b, "B", -2, 10)
	b.Store(bytes)

	b.PushInt(-3)
	b.Store(sum)
	sumInto(b, ints, sum, idx, nil)
	sumInto(b, shorts, sum, idx, nil)
	sumInto(b, objs, sum, idx, func() {
		b.EmitRef(vm.OpGetField, vm.FieldRef(Array, "value", "I"))
	})

	b.PushInt(0)
	b.Store(byteSum)
	sumInto(b, bytes, byteSum, idx, nil)
	ok := b.NewLabel()
	b.Load(byteSum)
	b.PushInt(8)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, ok)
	returnStatus(b, 100)
	b.Mark(ok)

	b.Load(sum)
	b.Emit(vm.OpReturnValue)

	def := class(Array, "")
	def.Fields = []vm.FieldDef{{Name: "value", Descriptor: "I", Initial: &vm.LiteralDef{Kind: vm.LiteralInt, Int: 2}}}
	def.Methods = append(def.Methods, b.Build())
	return classset.New(Array, def)
}

// ---------------------------------------------------------------------------
// ConstantValue: static constants (skipped)
// ---------------------------------------------------------------------------

// constantValueUnit checks constants read as literals, then reads one
// through Class.getField(...).get(null). Static fields are not modelled,
// so the reflective read raises NoSuchFieldException.
func constantValueUnit() *classset.Set {
	b := entry()
	okInt, okDouble, okByte, okString := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()

	b.PushLiteral(vm.LiteralDef{Kind: vm.LiteralInt, Int: 500})
	b.PushInt(500)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, okInt)
	returnStatus(b, 1)

	b.Mark(okInt)
	b.PushLiteral(vm.LiteralDef{Kind: vm.LiteralDouble, Float: 20.123})
	b.PushLiteral(vm.LiteralDef{Kind: vm.LiteralDouble, Float: 20.123})
	b.EmitKind(vm.OpCmp, vm.KindDouble)
	b.EmitIf(vm.OpIf, vm.CondEq, okDouble)
	returnStatus(b, 2)

	b.Mark(okDouble)
	b.PushLiteral(vm.LiteralDef{Kind: vm.LiteralByte, Int: -23})
	b.PushInt(-23)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, okByte)
	returnStatus(b, 3)

	b.Mark(okByte)
	b.EmitRef(vm.OpLoadClass, vm.ClassRef(ConstantValue))
	b.PushString("STRING")
	b.EmitRef(vm.OpInvokeVirtual, vm.MethodRef(vm.ClassClass, "getField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;"))
	b.Emit(vm.OpPushNull)
	b.EmitRef(vm.OpInvokeVirtual, vm.MethodRef(vm.ClassField, "get", "(Ljava/lang/Object;)Ljava/lang/Object;"))
	b.EmitRef(vm.OpCheckCast, vm.ClassRef(vm.ClassString))
	b.PushString("oohlala")
	b.EmitRef(vm.OpInvokeVirtual, stringEquals)
	b.EmitIf(vm.OpIf, vm.CondNe, okString)
	returnStatus(b, 4)

	b.Mark(okString)
	returnStatus(b, 0)

	def := class(ConstantValue, "")
	def.Methods = append(def.Methods, b.Build())
	return classset.New(ConstantValue, def)
}

// ---------------------------------------------------------------------------
// InstanceOf: subtype tests and casts
// ---------------------------------------------------------------------------

func instanceOfUnit() *classset.Set {
	a, bb := InstanceOf+"$A", InstanceOf+"$B"

	b := entry().SetMaxLocals(1)
	notB, castFailed, done := b.NewLabel(), b.NewLabel(), b.NewLabel()
	newObject(b, a)
	b.Store(0)

	b.Load(0)
	b.EmitRef(vm.OpInstanceOf, vm.ClassRef(bb))
	b.EmitIf(vm.OpIf, vm.CondEq, notB)
	throwNew(b, runtimeException, "")

	// An A is not a B, so the cast must fail.
	b.Mark(notB)
	r := b.Try()
	b.Load(0)
	b.EmitRef(vm.OpCheckCast, vm.ClassRef(bb))
	b.Emit(vm.OpPop)
	b.EndTry(r)
	returnStatus(b, 1)
	r.Catch("java/lang/ClassCastException", castFailed)
	b.Mark(castFailed)
	b.Emit(vm.OpPop)
	b.Leave(r, done)

	// A null reference is an instance of nothing.
	b.Mark(done)
	ok := b.NewLabel()
	b.Emit(vm.OpPushNull)
	b.EmitRef(vm.OpInstanceOf, vm.ClassRef(a))
	b.EmitIf(vm.OpIf, vm.CondEq, ok)
	returnStatus(b, 2)
	b.Mark(ok)
	returnStatus(b, 0)

	main := class(InstanceOf, "")
	main.Methods = append(main.Methods, b.Build())
	return classset.New(InstanceOf, main, class(a, ""), class(bb, a))
}

// ---------------------------------------------------------------------------
// LookupSwitch: integer and string dispatch
// ---------------------------------------------------------------------------

func lookupSwitchUnit() *classset.Set {
	b := entry().SetMaxLocals(2)
	fail, dflt, nice, dense, afterDense := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()

	// Take the default branch.
	b.PushInt(50)
	b.Store(0)
	b.Load(0)
	b.LookupSwitch([]int32{0, 5, 12, 20, 49}, []*vm.Label{fail, fail, fail, fail, fail}, dflt)
	b.Mark(dflt)
	b.EmitInc(0, -50)

	// Take a case branch.
	b.PushString("nice")
	b.Store(1)
	b.Load(1)
	b.StringSwitch([]string{"ooh", "wow", "nice"}, []*vm.Label{fail, fail, nice}, fail)

	// Dense dispatch with a padded gap.
	b.Mark(nice)
	b.PushInt(3)
	b.TableSwitch(1, []*vm.Label{fail, nil, dense, fail}, fail)
	b.Mark(dense)
	b.EmitJump(vm.OpGoto, afterDense)

	b.Mark(fail)
	throwNew(b, runtimeException, "")

	b.Mark(afterDense)
	b.Load(0)
	b.Emit(vm.OpReturnValue)

	def := class(LookupSwitch, "")
	def.Methods = append(def.Methods, b.Build())
	return classset.New(LookupSwitch, def)
}
