package suite

import (
	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
)

const (
	fileNotFound  = "java/io/FileNotFoundException"
	ioException   = "java/io/IOException"
	nullPointer   = "java/lang/NullPointerException"
	classNotFound = "java/lang/ClassNotFoundException"
)

var throwableGetMessage = vm.MethodRef(vm.ClassThrowable, "getMessage", "()Ljava/lang/String;")

// throwUnit checks handler selection by class, handlers that catch a
// supertype, finally bodies after a handled fault, faults raised by a
// callee and faults raised by a host method.
func throwUnit() *classset.Set {
	b := entry()
	invoke := func(name, desc string) {
		b.EmitRef(vm.OpInvokeStatic, vm.MethodRef(Throw, name, desc))
	}

	// An exact match ahead of a handler that must not be taken.
	afterExact, exact, wrong := b.NewLabel(), b.NewLabel(), b.NewLabel()
	r1 := b.Try()
	throwNew(b, fileNotFound, "")
	b.EndTry(r1)
	r1.Catch(fileNotFound, exact).Catch(runtimeException, wrong)
	b.Mark(exact)
	b.Emit(vm.OpPop)
	b.Leave(r1, afterExact)
	b.Mark(wrong)
	b.Emit(vm.OpPop)
	returnStatus(b, 1)

	// A handler for a supertype catches the subclass.
	b.Mark(afterExact)
	afterSuper, npe, viaSuper, notIO := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	r2 := b.Try()
	throwNew(b, ioException, "io")
	b.EndTry(r2)
	r2.Catch(nullPointer, npe).Catch("java/lang/Exception", viaSuper)
	b.Mark(npe)
	b.Emit(vm.OpPop)
	returnStatus(b, 2)
	b.Mark(viaSuper)
	b.EmitRef(vm.OpInstanceOf, vm.ClassRef(ioException))
	b.EmitIf(vm.OpIf, vm.CondEq, notIO)
	b.Leave(r2, afterSuper)
	b.Mark(notIO)
	returnStatus(b, 2)

	// The finally body runs after the handler.
	b.Mark(afterSuper)
	afterFinally := b.NewLabel()
	invoke("finally_", "()I")
	b.PushInt(7)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, afterFinally)
	returnStatus(b, 3)

	// A fault from a callee reaches the caller's handler.
	b.Mark(afterFinally)
	afterCallee, fromCallee, message := b.NewLabel(), b.NewLabel(), b.NewLabel()
	r3 := b.Try()
	invoke("callsThrowing", "()V")
	b.EndTry(r3)
	returnStatus(b, 4)
	r3.Catch(runtimeException, fromCallee)
	b.Mark(fromCallee)
	b.EmitRef(vm.OpInvokeVirtual, throwableGetMessage)
	b.PushString("catch me")
	b.EmitRef(vm.OpInvokeVirtual, stringEquals)
	b.EmitIf(vm.OpIf, vm.CondNe, message)
	returnStatus(b, 5)
	b.Mark(message)
	b.Leave(r3, afterCallee)

	// A fault raised by a host method.
	b.Mark(afterCallee)
	done, fromHost := b.NewLabel(), b.NewLabel()
	r4 := b.Try()
	invoke("throwingCls", "()V")
	b.EndTry(r4)
	returnStatus(b, 6)
	r4.Catch(classNotFound, fromHost)
	b.Mark(fromHost)
	b.Emit(vm.OpPop)
	b.Leave(r4, done)
	b.Mark(done)
	returnStatus(b, 0)

	def := class(Throw, "")
	def.Methods = append(def.Methods,
		finallyMethod(),
		throwingMethod(),
		callsThrowingMethod(),
		vm.MethodDef{Name: "throwingCls", Descriptor: "()V", Flags: vm.MethodStatic | vm.MethodNative},
		b.Build(),
	)
	return classset.New(Throw, def)
}

// finallyMethod returns 7: i is 5, the NullPointerException handler sets
// it to 6 and the finally body to 7.
//
//	int i = 5;
//	try { String s = null; s.equals("nah"); }
//	catch (NullPointerException e) { i = 6; }
//	finally { i = 7; }
//	return i;
func finallyMethod() vm.MethodDef {
	b := static("finally_", "()I").SetMaxLocals(2)
	handler, fin, after := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.PushInt(5)
	b.Store(0)

	r := b.Try()
	b.Emit(vm.OpPushNull)
	b.Store(1)
	b.Load(1)
	b.PushString("nah")
	b.EmitRef(vm.OpInvokeVirtual, stringEquals)
	b.Emit(vm.OpPop)
	b.EndTry(r)
	b.Leave(r, after)
	r.Catch(nullPointer, handler).Finally(fin)

	b.Mark(handler)
	b.Emit(vm.OpPop)
	b.PushInt(6)
	b.Store(0)
	b.Leave(r, after)

	b.Mark(fin)
	b.PushInt(7)
	b.Store(0)
	b.EndFinally(r)

	b.Mark(after)
	b.Load(0)
	b.Emit(vm.OpReturnValue)
	return b.Build()
}

func throwingMethod() vm.MethodDef {
	b := static("throwing", "()V")
	throwNew(b, runtimeException, "catch me")
	return b.Build()
}

func callsThrowingMethod() vm.MethodDef {
	b := static("callsThrowing", "()V")
	b.EmitRef(vm.OpInvokeStatic, vm.MethodRef(Throw, "throwing", "()V"))
	b.Emit(vm.OpReturn)
	return b.Build()
}

// throwClassNotFound implements Throw.throwingCls()V.
func throwClassNotFound(in *vm.Interpreter, args []vm.Value) (vm.Value, error) {
	ct := in.Table()
	return vm.Void, &vm.Fault{
		Object: ct.NewThrowable(ct.Lookup(classNotFound), "oof", nil),
		Origin: vm.Location{Class: Throw, Method: "throwingCls()V", Offset: -1},
	}
}
