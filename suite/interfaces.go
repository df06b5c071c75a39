package suite

import (
	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
)

// superinterfaceUnit checks instance-of through inherited interfaces and
// dispatch from an abstract class to an override declared below it.
//
//	interface Iface  { int func(); }
//	interface Iface2 { int func2(); }
//	interface Iface3 extends Iface, Iface2 {}
//	class A implements Iface { func() = 5 }
//	class B extends A {}
//	abstract class C implements Iface3 { func2() = 0; usesInterface() = func() }
//	class D extends C { func() = 101 }
func superinterfaceUnit() *classset.Set {
	name := func(s string) string { return Superinterface + "$" + s }
	iface, iface2, iface3 := name("Iface"), name("Iface2"), name("Iface3")
	a, bcls, c, d := name("A"), name("B"), name("C"), name("D")

	abstract := func(n string) vm.MethodDef {
		return vm.MethodDef{Name: n, Descriptor: "()I", Flags: vm.MethodAbstract | vm.MethodPublic}
	}
	constant := func(n string, v int32) vm.MethodDef {
		m := vm.NewMethodBuilder(n, "()I", vm.MethodPublic)
		returnStatus(m, v)
		return m.Build()
	}

	uses := vm.NewMethodBuilder("usesInterface", "()I", 0)
	uses.Load(0)
	uses.EmitRef(vm.OpInvokeVirtual, vm.MethodRef(c, "func", "()I"))
	uses.Emit(vm.OpReturnValue)

	b := entry().SetMaxLocals(1)
	isIface, viaAbstract, viaIface, done := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	newObject(b, bcls)
	b.EmitRef(vm.OpInstanceOf, vm.ClassRef(iface))
	b.EmitIf(vm.OpIf, vm.CondNe, isIface)
	returnStatus(b, 1)

	b.Mark(isIface)
	newObject(b, d)
	b.Store(0)
	b.Load(0)
	b.EmitRef(vm.OpInvokeVirtual, vm.MethodRef(c, "usesInterface", "()I"))
	b.PushInt(101)
	b.EmitIf(vm.OpIfCmp, vm.CondEq, viaAbstract)
	throwNew(b, runtimeException, "")

	b.Mark(viaAbstract)
	b.Load(0)
	b.EmitRef(vm.OpInvokeInterface, vm.MethodRef(iface3, "func2", "()I"))
	b.EmitIf(vm.OpIf, vm.CondEq, viaIface)
	returnStatus(b, 2)

	b.Mark(viaIface)
	b.Load(0)
	b.EmitRef(vm.OpInstanceOf, vm.ClassRef(iface2))
	b.EmitIf(vm.OpIf, vm.CondNe, done)
	returnStatus(b, 3)

	b.Mark(done)
	returnStatus(b, 0)

	classA := class(a, "", iface)
	classA.Methods = append(classA.Methods, constant("func", 5))
	classC := class(c, "", iface3)
	classC.Flags = vm.ClassAbstract
	classC.Methods = append(classC.Methods, constant("func2", 0), uses.Build())
	classD := class(d, c)
	classD.Methods = append(classD.Methods, constant("func", 101))
	main := class(Superinterface, "")
	main.Methods = append(main.Methods, b.Build())

	return classset.New(Superinterface,
		main,
		&vm.ClassDef{Name: iface, Flags: vm.ClassInterface, Methods: []vm.MethodDef{abstract("func")}},
		&vm.ClassDef{Name: iface2, Flags: vm.ClassInterface, Methods: []vm.MethodDef{abstract("func2")}},
		&vm.ClassDef{Name: iface3, Flags: vm.ClassInterface, Interfaces: []string{iface, iface2}},
		classA,
		class(bcls, a),
		classC,
		classD,
	)
}
