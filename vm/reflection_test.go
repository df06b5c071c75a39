package vm

import (
	"errors"
	"testing"
)

// reflectTarget builds t/R:
//
//	class t/R {
//	    int value = 3;
//	    int tag;
//	    public t/R() { tag = 99; }
//	    t/R(int v) { value = v; }
//	    public t/R(boolean b) { throw new IllegalArgumentException(); }
//	}
func reflectTarget() *ClassDef {
	noArg := NewMethodBuilder("<init>", "()V", MethodPublic)
	noArg.Load(0)
	noArg.EmitRef(OpInvokeSpecial, MethodRef(ClassObject, "<init>", "()V"))
	noArg.Load(0)
	noArg.PushInt(99)
	noArg.EmitRef(OpPutField, FieldRef("t/R", "tag", "I"))
	noArg.Emit(OpReturn)

	withInt := NewMethodBuilder("<init>", "(I)V", 0)
	withInt.Load(0)
	withInt.EmitRef(OpInvokeSpecial, MethodRef(ClassObject, "<init>", "()V"))
	withInt.Load(0)
	withInt.Load(1)
	withInt.EmitRef(OpPutField, FieldRef("t/R", "value", "I"))
	withInt.Emit(OpReturn)

	throwing := NewMethodBuilder("<init>", "(Z)V", MethodPublic)
	newThrow(throwing, "java/lang/IllegalArgumentException")

	return &ClassDef{
		Name: "t/R",
		Fields: []FieldDef{
			{Name: "value", Descriptor: "I", Initial: &LiteralDef{Kind: LiteralInt, Int: 3}},
			{Name: "tag", Descriptor: "I"},
		},
		Methods: []MethodDef{noArg.Build(), withInt.Build(), throwing.Build()},
	}
}

func intField(t *testing.T, obj *Object, name string) int32 {
	t.Helper()
	v, err := GetField(obj, name)
	if err != nil {
		t.Fatalf("GetField(%s): %v", name, err)
	}
	return v.AsInt()
}

// ---------------------------------------------------------------------------
// Constructor lookup and invocation
// ---------------------------------------------------------------------------

func TestNewInstanceRunsOnlySelectedConstructor(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{reflectTarget()})
	c := vm.Classes.Lookup("t/R")

	ctor, err := LookupConstructor(c, TypeInt)
	if err != nil {
		t.Fatalf("LookupConstructor(int): %v", err)
	}
	obj, err := vm.NewInterpreter().NewInstance(ctor, FromInt(55))
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if got := intField(t, obj, "value"); got != 55 {
		t.Errorf("value = %d, want 55", got)
	}
	if got := intField(t, obj, "tag"); got != 0 {
		t.Errorf("tag = %d, want 0 (no-arg constructor must not run)", got)
	}

	ctor, err = LookupConstructor(c)
	if err != nil {
		t.Fatalf("LookupConstructor(): %v", err)
	}
	obj, err = vm.NewInterpreter().NewInstance(ctor)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if got := intField(t, obj, "value"); got != 3 {
		t.Errorf("value = %d, want initializer 3", got)
	}
	if got := intField(t, obj, "tag"); got != 99 {
		t.Errorf("tag = %d, want 99", got)
	}
}

func TestLookupConstructorIsExact(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{reflectTarget()})
	c := vm.Classes.Lookup("t/R")

	for _, params := range [][]*Type{{TypeLong}, {TypeShort}, {TypeInt, TypeInt}} {
		if _, err := LookupConstructor(c, params...); !errors.Is(err, ErrNoSuchConstructor) {
			t.Errorf("LookupConstructor(%v) err = %v, want ErrNoSuchConstructor", params, err)
		}
	}

	ctors := c.Constructors()
	if len(ctors) != 3 {
		t.Fatalf("Constructors() = %v, want 3", ctors)
	}
	if ctors[0].String() != "t/R.<init>()" {
		t.Errorf("Constructors()[0] = %s, want t/R.<init>()", ctors[0])
	}
}

func TestNewInstanceWrapsConstructorFault(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{reflectTarget()})
	ctor, err := LookupConstructor(vm.Classes.Lookup("t/R"), TypeBoolean)
	if err != nil {
		t.Fatalf("LookupConstructor: %v", err)
	}
	_, err = vm.NewInterpreter().NewInstance(ctor, FromBool(true))
	if !errors.Is(err, ErrConstructorInvocationFailure) {
		t.Fatalf("err = %v, want ErrConstructorInvocationFailure", err)
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v should carry the original fault", err)
	}
	if fault.Class().Name != "java/lang/IllegalArgumentException" {
		t.Errorf("cause = %s, want java/lang/IllegalArgumentException", fault.Class().Name)
	}
}

func TestNewInstanceArgumentErrors(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{reflectTarget()})
	in := vm.NewInterpreter()
	ctor, _ := LookupConstructor(vm.Classes.Lookup("t/R"), TypeInt)

	illegal := &Error{Kind: FaultIllegalArgument}
	if _, err := in.NewInstance(ctor); !errors.Is(err, illegal) {
		t.Errorf("missing argument err = %v, want IllegalArgument", err)
	}
	if _, err := in.NewInstance(ctor, FromLong(1)); !errors.Is(err, illegal) {
		t.Errorf("long argument err = %v, want IllegalArgument", err)
	}
}

func TestNewInstanceOfAbstractClass(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{{
		Name:    "t/Abs",
		Flags:   ClassAbstract,
		Methods: []MethodDef{initCalling(ClassObject, "()V")},
	}})
	ctor, err := LookupConstructor(vm.Classes.Lookup("t/Abs"))
	if err != nil {
		t.Fatalf("LookupConstructor: %v", err)
	}
	if _, err := vm.NewInterpreter().NewInstance(ctor); !errors.Is(err, &Error{Kind: FaultInstantiation}) {
		t.Errorf("err = %v, want Instantiation", err)
	}
}

func TestGetFieldErrors(t *testing.T) {
	vm := mustLoad(t, []*ClassDef{reflectTarget()})
	obj := vm.Classes.Lookup("t/R").New()
	if _, err := GetField(obj, "missing"); !errors.Is(err, ErrNoSuchField) {
		t.Errorf("GetField(missing) err = %v, want ErrNoSuchField", err)
	}
	if _, err := GetField(nil, "value"); !errors.Is(err, ErrNullReference) {
		t.Errorf("GetField(nil) err = %v, want ErrNullReference", err)
	}
}

// ---------------------------------------------------------------------------
// Reflection from running code
// ---------------------------------------------------------------------------

// emitClassArray pushes a one-element Class[] holding the mirror of desc.
func emitClassArray(b *MethodBuilder, desc string) {
	b.PushInt(1)
	b.EmitRef(OpNewArray, ClassRef(ClassClass))
	b.Emit(OpDup)
	b.PushInt(0)
	b.EmitRef(OpLoadClass, TypeRef(desc))
	b.Emit(OpArrayStore)
}

// emitBoxedArgs pushes a one-element Object[] holding a boxed value that
// the caller pushes in between.
func emitBoxedArgs(b *MethodBuilder, box, desc string, push func()) {
	b.PushInt(1)
	b.EmitRef(OpNewArray, ClassRef(ClassObject))
	b.Emit(OpDup)
	b.PushInt(0)
	push()
	b.EmitRef(OpInvokeStatic, MethodRef(box, "valueOf", "("+desc+")L"+box+";"))
	b.Emit(OpArrayStore)
}

var (
	getDeclaredConstructor = MethodRef(ClassClass, "getDeclaredConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;")
	getConstructor         = MethodRef(ClassClass, "getConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;")
	newInstance            = MethodRef(ClassConstructor, "newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;")
)

func TestReflectiveConstructionInCode(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	b.EmitRef(OpLoadClass, ClassRef("t/R"))
	emitClassArray(b, "I")
	b.EmitRef(OpInvokeVirtual, getDeclaredConstructor)
	emitBoxedArgs(b, "java/lang/Integer", "I", func() { b.PushInt(55) })
	b.EmitRef(OpInvokeVirtual, newInstance)
	b.EmitRef(OpCheckCast, ClassRef("t/R"))
	b.EmitRef(OpGetField, FieldRef("t/R", "value", "I"))
	b.Emit(OpReturnValue)

	vm := mustLoad(t, []*ClassDef{reflectTarget(), {Name: "t/Main", Methods: []MethodDef{b.Build()}}})
	if got := mustRun(t, vm, "t/Main", "run"); got != 55 {
		t.Errorf("run() = %d, want 55", got)
	}
}

func TestGetConstructorRequiresPublic(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	handler := b.NewLabel()
	r := b.Try()
	b.EmitRef(OpLoadClass, ClassRef("t/R"))
	emitClassArray(b, "I")
	b.EmitRef(OpInvokeVirtual, getConstructor)
	b.Emit(OpPop)
	b.PushInt(0)
	b.Emit(OpReturnValue)
	b.EndTry(r)
	r.Catch("java/lang/NoSuchMethodException", handler)
	b.Mark(handler)
	b.Emit(OpPop)
	b.PushInt(1)
	b.Emit(OpReturnValue)

	vm := mustLoad(t, []*ClassDef{reflectTarget(), {Name: "t/Main", Methods: []MethodDef{b.Build()}}})
	if got := mustRun(t, vm, "t/Main", "run"); got != 1 {
		t.Errorf("run() = %d, want 1", got)
	}
}

func TestInvocationTargetExceptionCarriesCause(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	handler, wrong := b.NewLabel(), b.NewLabel()
	r := b.Try()
	b.EmitRef(OpLoadClass, ClassRef("t/R"))
	emitClassArray(b, "Z")
	b.EmitRef(OpInvokeVirtual, getDeclaredConstructor)
	emitBoxedArgs(b, "java/lang/Boolean", "Z", func() { b.PushInt(1) })
	b.EmitRef(OpInvokeVirtual, newInstance)
	b.Emit(OpPop)
	b.PushInt(0)
	b.Emit(OpReturnValue)
	b.EndTry(r)
	r.Catch("java/lang/reflect/InvocationTargetException", handler)

	b.Mark(handler)
	b.EmitRef(OpInvokeVirtual, MethodRef("java/lang/reflect/InvocationTargetException", "getCause", "()Ljava/lang/Throwable;"))
	b.EmitRef(OpInstanceOf, ClassRef("java/lang/IllegalArgumentException"))
	b.EmitIf(OpIf, CondEq, wrong)
	b.PushInt(1)
	b.Emit(OpReturnValue)
	b.Mark(wrong)
	b.PushInt(2)
	b.Emit(OpReturnValue)

	vm := mustLoad(t, []*ClassDef{reflectTarget(), {Name: "t/Main", Methods: []MethodDef{b.Build()}}})
	if got := mustRun(t, vm, "t/Main", "run"); got != 1 {
		t.Errorf("run() = %d, want 1", got)
	}
}

func TestNoSuchFieldInCode(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	handler := b.NewLabel()
	r := b.Try()
	b.EmitRef(OpLoadClass, ClassRef("t/R"))
	b.PushString("nope")
	b.EmitRef(OpInvokeVirtual, MethodRef(ClassClass, "getDeclaredField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;"))
	b.Emit(OpPop)
	b.PushInt(0)
	b.Emit(OpReturnValue)
	b.EndTry(r)
	r.Catch("java/lang/NoSuchFieldException", handler)
	b.Mark(handler)
	b.Emit(OpPop)
	b.PushInt(1)
	b.Emit(OpReturnValue)

	vm := mustLoad(t, []*ClassDef{reflectTarget(), {Name: "t/Main", Methods: []MethodDef{b.Build()}}})
	if got := mustRun(t, vm, "t/Main", "run"); got != 1 {
		t.Errorf("run() = %d, want 1", got)
	}
}

func TestFieldGetBoxesValue(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	b.EmitRef(OpLoadClass, ClassRef("t/R"))
	b.PushString("value")
	b.EmitRef(OpInvokeVirtual, MethodRef(ClassClass, "getDeclaredField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;"))
	b.EmitRef(OpNew, ClassRef("t/R"))
	b.EmitRef(OpInvokeVirtual, MethodRef(ClassField, "get", "(Ljava/lang/Object;)Ljava/lang/Object;"))
	b.EmitRef(OpCheckCast, ClassRef("java/lang/Integer"))
	b.EmitRef(OpInvokeVirtual, MethodRef("java/lang/Integer", "intValue", "()I"))
	b.Emit(OpReturnValue)

	vm := mustLoad(t, []*ClassDef{reflectTarget(), {Name: "t/Main", Methods: []MethodDef{b.Build()}}})
	if got := mustRun(t, vm, "t/Main", "run"); got != 3 {
		t.Errorf("run() = %d, want 3", got)
	}
}

func TestHandleNativesRejectBareObjects(t *testing.T) {
	vm := mustLoad(t, nil)
	ct := vm.Classes
	tests := []struct {
		class, name, desc string
		args              []Value
	}{
		{ClassClass, "getName", "()Ljava/lang/String;", nil},
		{ClassClass, "getDeclaredConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;", []Value{Null}},
		{ClassClass, "getField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;", []Value{FromObject(ct.NewString("x"))}},
		{ClassConstructor, "newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;", []Value{Null}},
		{ClassConstructor, "getParameterCount", "()I", nil},
		{ClassField, "get", "(Ljava/lang/Object;)Ljava/lang/Object;", []Value{Null}},
		{ClassField, "getName", "()Ljava/lang/String;", nil},
	}
	for _, tt := range tests {
		c := ct.Lookup(tt.class)
		m := c.DeclaredMethod(tt.name, tt.desc)
		if m == nil {
			t.Fatalf("%s.%s%s not declared", tt.class, tt.name, tt.desc)
		}
		args := append([]Value{FromObject(c.New())}, tt.args...)
		_, err := vm.NewInterpreter().Invoke(m, args...)
		var fault *Fault
		if !errors.As(err, &fault) {
			t.Errorf("%s.%s: err = %v, want a fault", tt.class, tt.name, err)
			continue
		}
		if got := fault.Class().Name; got != "java/lang/IllegalArgumentException" {
			t.Errorf("%s.%s: fault = %s, want java/lang/IllegalArgumentException", tt.class, tt.name, got)
		}
	}
}
