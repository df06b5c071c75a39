package suite

import (
	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
)

var (
	getDeclaredConstructor = vm.MethodRef(vm.ClassClass, "getDeclaredConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;")
	getConstructor         = vm.MethodRef(vm.ClassClass, "getConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;")
	newInstance            = vm.MethodRef(vm.ClassConstructor, "newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;")
)

// reflectionUnit constructs instances through the package-private ()V
// constructor and the public (I)V one. Field initializers give i = 5 and
// s = "nice" before any constructor body runs.
func reflectionUnit() *classset.Set {
	b := entry().SetMaxLocals(1)
	fail, ok1, ok2, ok3 := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	field := func(name, desc string) vm.RefDef { return vm.FieldRef(Reflection, name, desc) }

	// Reflection.class.getDeclaredConstructor().newInstance()
	b.EmitRef(vm.OpLoadClass, vm.ClassRef(Reflection))
	b.PushInt(0)
	b.EmitRef(vm.OpNewArray, vm.ClassRef(vm.ClassClass))
	b.EmitRef(vm.OpInvokeVirtual, getDeclaredConstructor)
	b.PushInt(0)
	b.EmitRef(vm.OpNewArray, vm.ClassRef(vm.ClassObject))
	b.EmitRef(vm.OpInvokeVirtual, newInstance)
	b.EmitRef(vm.OpCheckCast, vm.ClassRef(Reflection))
	b.Store(0)

	b.Load(0)
	b.EmitRef(vm.OpGetField, field("i", "I"))
	b.PushInt(5)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, ok1)
	b.EmitJump(vm.OpGoto, fail)

	b.Mark(ok1)
	b.Load(0)
	b.EmitRef(vm.OpGetField, field("s", "Ljava/lang/String;"))
	b.PushString("nice")
	b.EmitRef(vm.OpInvokeVirtual, stringEquals)
	b.EmitIf(vm.OpIf, vm.CondNe, ok2)
	b.EmitJump(vm.OpGoto, fail)

	// Reflection.class.getConstructor(int.class).newInstance(55)
	b.Mark(ok2)
	b.EmitRef(vm.OpLoadClass, vm.ClassRef(Reflection))
	b.PushInt(1)
	b.EmitRef(vm.OpNewArray, vm.ClassRef(vm.ClassClass))
	b.Emit(vm.OpDup)
	b.PushInt(0)
	b.EmitRef(vm.OpLoadClass, vm.TypeRef("I"))
	b.Emit(vm.OpArrayStore)
	b.EmitRef(vm.OpInvokeVirtual, getConstructor)
	b.PushInt(1)
	b.EmitRef(vm.OpNewArray, vm.ClassRef(vm.ClassObject))
	b.Emit(vm.OpDup)
	b.PushInt(0)
	b.PushInt(55)
	b.EmitRef(vm.OpInvokeStatic, vm.MethodRef(integerBox, "valueOf", "(I)Ljava/lang/Integer;"))
	b.Emit(vm.OpArrayStore)
	b.EmitRef(vm.OpInvokeVirtual, newInstance)
	b.EmitRef(vm.OpCheckCast, vm.ClassRef(Reflection))
	b.EmitRef(vm.OpGetField, field("i", "I"))
	b.PushInt(55)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, ok3)

	b.Mark(fail)
	throwNew(b, runtimeException, "")

	b.Mark(ok3)
	returnStatus(b, 0)

	// Reflection() {}
	init0 := vm.NewMethodBuilder("<init>", "()V", 0)
	init0.Load(0)
	init0.EmitRef(vm.OpInvokeSpecial, vm.MethodRef(vm.ClassObject, "<init>", "()V"))
	init0.Emit(vm.OpReturn)

	// public Reflection(int i) { this.i = i; }
	init1 := vm.NewMethodBuilder("<init>", "(I)V", vm.MethodPublic)
	init1.Load(0)
	init1.EmitRef(vm.OpInvokeSpecial, vm.MethodRef(vm.ClassObject, "<init>", "()V"))
	init1.Load(0)
	init1.Load(1)
	init1.EmitRef(vm.OpPutField, field("i", "I"))
	init1.Emit(vm.OpReturn)

	return classset.New(Reflection, &vm.ClassDef{
		Name: Reflection,
		Fields: []vm.FieldDef{
			{Name: "i", Descriptor: "I", Initial: &vm.LiteralDef{Kind: vm.LiteralInt, Int: 5}},
			{Name: "s", Descriptor: "Ljava/lang/String;", Initial: &vm.LiteralDef{Kind: vm.LiteralString, Str: "nice"}},
		},
		Methods: []vm.MethodDef{init0.Build(), init1.Build(), b.Build()},
	})
}
