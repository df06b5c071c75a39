// Package suite holds the built-in conformance units. Each unit is a class
// set whose entry class declares a static vmTest()I returning 0 on success
// or a nonzero status naming the failed check.
package suite

import (
	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
)

// Entry is the entry point every unit declares.
const Entry = "vmTest"

// Unit names, in run order.
const (
	Array           = "Array"
	ConstantValue   = "ConstantValue"
	InstanceOf      = "InstanceOf"
	LookupSwitch    = "LookupSwitch"
	Reflection      = "Reflection"
	Superinterface  = "Superinterface"
	SystemArrayCopy = "SystemArrayCopy"
	Throw           = "Throw"
)

// Skipped maps units that are built but not run by default to the reason.
var Skipped = map[string]string{
	ConstantValue: "static constant fields are not modelled",
}

// Units returns the built-in units in run order.
func Units() []*classset.Set {
	return []*classset.Set{
		arrayUnit(),
		constantValueUnit(),
		instanceOfUnit(),
		lookupSwitchUnit(),
		reflectionUnit(),
		superinterfaceUnit(),
		systemArrayCopyUnit(),
		throwUnit(),
	}
}

// Unit returns the built-in unit named name, or nil.
func Unit(name string) *classset.Set {
	for _, u := range Units() {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Natives returns the host methods the units bind.
func Natives() map[string]vm.NativeFunc {
	return map[string]vm.NativeFunc{
		Throw + ".throwingCls()V": throwClassNotFound,
	}
}

// ---------------------------------------------------------------------------
// Code generation helpers
// ---------------------------------------------------------------------------

const (
	runtimeException = "java/lang/RuntimeException"
	integerBox       = "java/lang/Integer"
)

var (
	stringEquals = vm.MethodRef(vm.ClassString, "equals", "(Ljava/lang/Object;)Z")
	objectEquals = vm.MethodRef(vm.ClassObject, "equals", "(Ljava/lang/Object;)Z")
	arraycopy    = vm.MethodRef(vm.ClassSystem, "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V")
)

func entry() *vm.MethodBuilder {
	return vm.NewMethodBuilder(Entry, "()I", vm.MethodStatic|vm.MethodPublic)
}

func static(name, desc string) *vm.MethodBuilder {
	return vm.NewMethodBuilder(name, desc, vm.MethodStatic)
}

// defaultInit returns a public ()V constructor that calls super's.
func defaultInit(super string) vm.MethodDef {
	if super == "" {
		super = vm.ClassObject
	}
	b := vm.NewMethodBuilder("<init>", "()V", vm.MethodPublic)
	b.Load(0)
	b.EmitRef(vm.OpInvokeSpecial, vm.MethodRef(super, "<init>", "()V"))
	b.Emit(vm.OpReturn)
	return b.Build()
}

// class returns a concrete class with a default constructor.
func class(name, super string, interfaces ...string) *vm.ClassDef {
	return &vm.ClassDef{
		Name:       name,
		Super:      super,
		Interfaces: interfaces,
		Methods:    []vm.MethodDef{defaultInit(super)},
	}
}

// newObject allocates class and runs its ()V constructor.
func newObject(b *vm.MethodBuilder, class string) {
	b.EmitRef(vm.OpNew, vm.ClassRef(class))
	b.Emit(vm.OpDup)
	b.EmitRef(vm.OpInvokeSpecial, vm.MethodRef(class, "<init>", "()V"))
}

// throwNew throws a new instance of class, with msg unless it is empty.
func throwNew(b *vm.MethodBuilder, class, msg string) {
	b.EmitRef(vm.OpNew, vm.ClassRef(class))
	b.Emit(vm.OpDup)
	if msg == "" {
		b.EmitRef(vm.OpInvokeSpecial, vm.MethodRef(class, "<init>", "()V"))
	} else {
		b.PushString(msg)
		b.EmitRef(vm.OpInvokeSpecial, vm.MethodRef(class, "<init>", "(Ljava/lang/String;)V"))
	}
	b.Emit(vm.OpThrow)
}

// returnStatus returns status from the method.
func returnStatus(b *vm.MethodBuilder, status int32) {
	b.PushInt(status)
	b.Emit(vm.OpReturnValue)
}

// intArray pushes a new array of elem holding vals.
func intArray(b *vm.MethodBuilder, elem string, vals ...int32) {
	b.PushInt(int32(len(vals)))
	b.EmitRef(vm.OpNewArray, vm.TypeRef(elem))
	for i, v := range vals {
		b.Emit(vm.OpDup)
		b.PushInt(int32(i))
		b.PushInt(v)
		b.Emit(vm.OpArrayStore)
	}
}

// stringArray pushes a new String[] holding vals; "" stands for null.
func stringArray(b *vm.MethodBuilder, vals ...string) {
	b.PushInt(int32(len(vals)))
	b.EmitRef(vm.OpNewArray, vm.ClassRef(vm.ClassString))
	for i, v := range vals {
		b.Emit(vm.OpDup)
		b.PushInt(int32(i))
		if v == "" {
			b.Emit(vm.OpPushNull)
		} else {
			b.PushString(v)
		}
		b.Emit(vm.OpArrayStore)
	}
}

// expectInt compares the int on the stack with want and jumps to fail
// when they differ.
func expectInt(b *vm.MethodBuilder, want int32, fail *vm.Label) {
	b.PushInt(want)
	b.EmitIf(vm.OpIfCmp, vm.CondNe, fail)
}

// sumInto adds every element of the array in local arr to the int in
// local sum, using local idx as the counter. elem, when set, maps the
// loaded element to the value added.
func sumInto(b *vm.MethodBuilder, arr, sum, idx byte, elem func()) {
	top, done := b.NewLabel(), b.NewLabel()
	b.PushInt(0)
	b.Store(idx)
	b.Mark(top)
	b.Load(idx)
	b.Load(arr)
	b.Emit(vm.OpArrayLength)
	b.EmitIf(vm.OpIfCmp, vm.CondGe, done)
	b.Load(sum)
	b.Load(arr)
	b.Load(idx)
	b.Emit(vm.OpArrayLoad)
	if elem != nil {
		elem()
	}
	b.EmitKind(vm.OpAdd, vm.KindInt)
	b.Store(sum)
	b.EmitInc(idx, 1)
	b.EmitJump(vm.OpGoto, top)
	b.Mark(done)
}
