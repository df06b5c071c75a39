package suite

import (
	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
)

func systemArrayCopyUnit() *classset.Set {
	call := func(b *vm.MethodBuilder, name string) {
		b.EmitRef(vm.OpInvokeStatic, vm.MethodRef(SystemArrayCopy, name, "()V"))
	}
	b := entry()
	call(b, "copyInts")
	call(b, "copyStrings")
	call(b, "copyOverlapping")
	call(b, "copyOutOfRange")
	returnStatus(b, 0)

	def := class(SystemArrayCopy, "")
	def.Methods = append(def.Methods,
		copyInts(), copyStrings(), copyOverlapping(), copyOutOfRange(), b.Build())
	return classset.New(SystemArrayCopy, def)
}

// emitArraycopy calls System.arraycopy(local src, srcPos, local dst, dstPos, n).
func emitArraycopy(b *vm.MethodBuilder, src byte, srcPos int32, dst byte, dstPos, n int32) {
	b.Load(src)
	b.PushInt(srcPos)
	b.Load(dst)
	b.PushInt(dstPos)
	b.PushInt(n)
	b.EmitRef(vm.OpInvokeStatic, arraycopy)
}

// expectInts checks every element of the int[] in local arr.
func expectInts(b *vm.MethodBuilder, arr byte, fail *vm.Label, want ...int32) {
	b.Load(arr)
	b.Emit(vm.OpArrayLength)
	expectInt(b, int32(len(want)), fail)
	for i, w := range want {
		b.Load(arr)
		b.PushInt(int32(i))
		b.Emit(vm.OpArrayLoad)
		expectInt(b, w, fail)
	}
}

func copyInts() vm.MethodDef {
	b := static("copyInts", "()V").SetMaxLocals(2)
	fail := b.NewLabel()
	intArray(b, "I", 0, 1, 2, 3, 4, 5, 6)
	b.Store(0)
	b.PushInt(10)
	b.EmitRef(vm.OpNewArray, vm.TypeRef("I"))
	b.Store(1)
	emitArraycopy(b, 0, 2, 1, 4, 4)
	expectInts(b, 1, fail, 0, 0, 0, 0, 2, 3, 4, 5, 0, 0)
	b.Emit(vm.OpReturn)
	b.Mark(fail)
	throwNew(b, runtimeException, "copy ints")
	return b.Build()
}

// copyStrings copies String elements, one of them null, into an Object[].
func copyStrings() vm.MethodDef {
	b := static("copyStrings", "()V").SetMaxLocals(2)
	fail, ok0, ok2 := b.NewLabel(), b.NewLabel(), b.NewLabel()
	stringArray(b, "one", "two", "three", "four", "", "six")
	b.Store(0)
	b.PushInt(3)
	b.EmitRef(vm.OpNewArray, vm.ClassRef(vm.ClassObject))
	b.Store(1)
	emitArraycopy(b, 0, 3, 1, 0, 3)

	b.Load(1)
	b.PushInt(0)
	b.Emit(vm.OpArrayLoad)
	b.PushString("four")
	b.EmitRef(vm.OpInvokeVirtual, objectEquals)
	b.EmitIf(vm.OpIf, vm.CondNe, ok0)
	b.EmitJump(vm.OpGoto, fail)

	b.Mark(ok0)
	b.Load(1)
	b.PushInt(1)
	b.Emit(vm.OpArrayLoad)
	b.EmitJump(vm.OpIfNonNull, fail)
	b.Load(1)
	b.PushInt(2)
	b.Emit(vm.OpArrayLoad)
	b.PushString("six")
	b.EmitRef(vm.OpInvokeVirtual, objectEquals)
	b.EmitIf(vm.OpIf, vm.CondNe, ok2)

	b.Mark(fail)
	throwNew(b, runtimeException, "copy strings")
	b.Mark(ok2)
	b.Emit(vm.OpReturn)
	return b.Build()
}

// copyOverlapping shifts an array right by one onto itself.
func copyOverlapping() vm.MethodDef {
	b := static("copyOverlapping", "()V").SetMaxLocals(1)
	fail := b.NewLabel()
	intArray(b, "I", 1, 2, 3, 4, 5)
	b.Store(0)
	emitArraycopy(b, 0, 0, 0, 1, 4)
	expectInts(b, 0, fail, 1, 1, 2, 3, 4)
	emitArraycopy(b, 0, 1, 0, 0, 4)
	expectInts(b, 0, fail, 1, 2, 3, 4, 4)
	b.Emit(vm.OpReturn)
	b.Mark(fail)
	throwNew(b, runtimeException, "copy overlapping")
	return b.Build()
}

// copyOutOfRange expects an out-of-range copy to raise without writing.
func copyOutOfRange() vm.MethodDef {
	b := static("copyOutOfRange", "()V").SetMaxLocals(2)
	fail, caught, check := b.NewLabel(), b.NewLabel(), b.NewLabel()
	intArray(b, "I", 7, 8, 9)
	b.Store(0)
	b.PushInt(2)
	b.EmitRef(vm.OpNewArray, vm.TypeRef("I"))
	b.Store(1)

	r := b.Try()
	emitArraycopy(b, 0, 1, 1, 0, 3)
	b.EndTry(r)
	b.EmitJump(vm.OpGoto, fail)
	r.Catch("java/lang/IndexOutOfBoundsException", caught)
	b.Mark(caught)
	b.Emit(vm.OpPop)
	b.Leave(r, check)

	b.Mark(check)
	expectInts(b, 1, fail, 0, 0)
	b.Emit(vm.OpReturn)
	b.Mark(fail)
	throwNew(b, runtimeException, "copy out of range")
	return b.Build()
}
