package vm

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers shared by the package tests
// ---------------------------------------------------------------------------

func mustLoad(t *testing.T, defs []*ClassDef, opts ...Option) *VM {
	t.Helper()
	vm, err := Load(defs, opts...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return vm
}

func mustRun(t *testing.T, vm *VM, class, name string) int32 {
	t.Helper()
	v, err := vm.RunEntry(class, name)
	if err != nil {
		t.Fatalf("%s.%s: %v", class, name, err)
	}
	return v
}

// initCalling returns a constructor with descriptor desc that only calls
// the no-argument constructor of super.
func initCalling(super, desc string) MethodDef {
	b := NewMethodBuilder("<init>", desc, MethodPublic)
	b.Load(0)
	b.EmitRef(OpInvokeSpecial, MethodRef(super, "<init>", "()V"))
	b.Emit(OpReturn)
	return b.Build()
}

// returnInt returns a method that returns a constant.
func returnInt(name string, flags MethodFlags, v int32) MethodDef {
	b := NewMethodBuilder(name, "()I", flags)
	b.PushInt(v)
	b.Emit(OpReturnValue)
	return b.Build()
}

// newThrow emits code that allocates and throws an instance of class.
func newThrow(b *MethodBuilder, class string) {
	b.EmitRef(OpNew, ClassRef(class))
	b.Emit(OpDup)
	b.EmitRef(OpInvokeSpecial, MethodRef(class, "<init>", "()V"))
	b.Emit(OpThrow)
}

// ---------------------------------------------------------------------------
// VM entry points
// ---------------------------------------------------------------------------

func TestLoadEmptySet(t *testing.T) {
	vm := mustLoad(t, nil)
	if vm.Classes.Lookup(ClassObject) == nil {
		t.Fatal("java/lang/Object should be linked")
	}
	if vm.Classes.Lookup(ClassThrowable) == nil {
		t.Fatal("java/lang/Throwable should be linked")
	}
	if vm.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", vm.MaxDepth, DefaultMaxDepth)
	}
}

func TestRunEntry(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{{
		Name:    "t/Main",
		Methods: []MethodDef{returnInt("main", MethodStatic|MethodPublic, 42)},
	}})
	if got := mustRun(t, vm, "t/Main", "main"); got != 42 {
		t.Errorf("main() = %d, want 42", got)
	}
}

func TestInvokeMissingClass(t *testing.T) {
	vm := mustLoad(t, nil)
	_, err := vm.Invoke("t/Nope", "main", "()I")
	if !errors.Is(err, ErrClassNotFound) {
		t.Errorf("err = %v, want ErrClassNotFound", err)
	}
}

func TestInvokeMissingEntryPoint(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{{
		Name:    "t/Main",
		Methods: []MethodDef{returnInt("other", MethodStatic, 1), returnInt("main", 0, 1)},
	}})
	_, err := vm.Invoke("t/Main", "main", "()I")
	if !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("instance main: err = %v, want ErrNoEntryPoint", err)
	}
	_, err = vm.Invoke("t/Main", "absent", "()I")
	if !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("absent: err = %v, want ErrNoEntryPoint", err)
	}
}

func TestInvokeWithArguments(t *testing.T) {
	b := NewMethodBuilder("add", "(IJ)J", MethodStatic)
	b.Load(0)
	b.Load(1)
	b.EmitKind(OpAdd, KindLong)
	b.Emit(OpReturnValue)
	vm := mustLoad(t, []*ClassDef{{Name: "t/Calc", Methods: []MethodDef{b.Build()}}})

	v, err := vm.Invoke("t/Calc", "add", "(IJ)J", FromInt(2), FromLong(1<<40))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if v.Kind() != KindLong || v.AsLong() != 1<<40+2 {
		t.Errorf("add = %v (%s), want %d", v, v.Kind(), int64(1<<40+2))
	}

	if _, err := vm.Invoke("t/Calc", "add", "(IJ)J", FromInt(2)); !errors.Is(err, ErrMalformed) {
		t.Errorf("short arguments: err = %v, want ErrMalformed", err)
	}
}

func TestEntryPoints(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{
		{Name: "t/B", Methods: []MethodDef{returnInt("main", MethodStatic, 1)}},
		{Name: "t/A", Methods: []MethodDef{returnInt("main", MethodStatic, 2)}},
		{Name: "t/C", Methods: []MethodDef{returnInt("main", 0, 3)}},
	})
	got := vm.Classes.EntryPoints("main", "()I")
	if len(got) != 2 || got[0].Name != "t/A" || got[1].Name != "t/B" {
		t.Errorf("EntryPoints = %v, want [t/A t/B]", got)
	}
}

func TestNativeBinding(t *testing.T) {
	def := &ClassDef{
		Name: "t/Host",
		Methods: []MethodDef{
			{Name: "answer", Descriptor: "(I)I", Flags: MethodStatic | MethodNative},
		},
	}
	natives := map[string]NativeFunc{
		"t/Host.answer(I)I": func(in *Interpreter, args []Value) (Value, error) {
			return FromInt(args[0].AsInt() * 2), nil
		},
	}
	vm := mustLoad(t, []*ClassDef{def}, WithNatives(natives))
	v, err := vm.Invoke("t/Host", "answer", "(I)I", FromInt(21))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if v.AsInt() != 42 {
		t.Errorf("answer(21) = %v, want 42", v)
	}
}

func TestNativeFaultIsCatchable(t *testing.T) {
	b := NewMethodBuilder("main", "()I", MethodStatic)
	handler := b.NewLabel()
	r := b.Try()
	b.EmitRef(OpInvokeStatic, MethodRef("t/Host", "fail", "()V"))
	b.PushInt(0)
	b.Emit(OpReturnValue)
	b.EndTry(r)
	r.Catch("java/lang/IllegalArgumentException", handler)
	b.Mark(handler)
	b.Emit(OpPop)
	b.PushInt(1)
	b.Emit(OpReturnValue)

	def := &ClassDef{
		Name: "t/Host",
		Methods: []MethodDef{
			{Name: "fail", Descriptor: "()V", Flags: MethodStatic | MethodNative},
			b.Build(),
		},
	}
	natives := map[string]NativeFunc{
		"t/Host.fail()V": func(in *Interpreter, args []Value) (Value, error) {
			return Void, newError(FaultIllegalArgument, "no")
		},
	}
	vm := mustLoad(t, []*ClassDef{def}, WithNatives(natives))
	if got := mustRun(t, vm, "t/Host", "main"); got != 1 {
		t.Errorf("main() = %d, want 1", got)
	}
}
