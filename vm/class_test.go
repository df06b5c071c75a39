package vm

import (
	"errors"
	"testing"
)

// interfaceChain builds:
//
//	interface t/A { int value(); }
//	interface t/B extends t/A {}
//	abstract class t/Base implements t/B { int forward() { return value(); } }
//	class t/Impl extends t/Base { int value() { return 101; } }
func interfaceChain() []*ClassDef {
	forward := NewMethodBuilder("forward", "()I", MethodPublic)
	forward.Load(0)
	forward.EmitRef(OpInvokeInterface, MethodRef("t/A", "value", "()I"))
	forward.Emit(OpReturnValue)

	main := NewMethodBuilder("run", "()I", MethodStatic|MethodPublic)
	main.EmitRef(OpNew, ClassRef("t/Impl"))
	main.Emit(OpDup)
	main.EmitRef(OpInvokeSpecial, MethodRef("t/Impl", "<init>", "()V"))
	main.EmitRef(OpInvokeVirtual, MethodRef("t/Base", "forward", "()I"))
	main.Emit(OpReturnValue)

	return []*ClassDef{
		{
			Name:    "t/A",
			Flags:   ClassInterface,
			Methods: []MethodDef{{Name: "value", Descriptor: "()I", Flags: MethodAbstract | MethodPublic}},
		},
		{Name: "t/B", Flags: ClassInterface, Interfaces: []string{"t/A"}},
		{
			Name:       "t/Base",
			Flags:      ClassAbstract,
			Interfaces: []string{"t/B"},
			Methods:    []MethodDef{initCalling(ClassObject, "()V"), forward.Build()},
		},
		{
			Name:    "t/Impl",
			Super:   "t/Base",
			Methods: []MethodDef{initCalling("t/Base", "()V"), returnInt("value", MethodPublic, 101)},
		},
		{Name: "t/Main", Methods: []MethodDef{main.Build()}},
	}
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

func TestDispatchThroughInterfaceChain(t *testing.T) {
	vm := mustLoad(t, interfaceChain())
	if got := mustRun(t, vm, "t/Main", "run"); got != 101 {
		t.Errorf("run() = %d, want 101", got)
	}
}

func TestResolveOrder(t *testing.T) {
	vm := mustLoad(t, interfaceChain())
	impl := vm.Classes.Lookup("t/Impl")
	base := vm.Classes.Lookup("t/Base")

	m, err := impl.Resolve("value", "()I")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Class != impl {
		t.Errorf("t/Impl value resolves to %s, want t/Impl", m)
	}

	m, err = base.Resolve("value", "()I")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Class.Name != "t/A" || !m.IsAbstract() {
		t.Errorf("t/Base value resolves to %s, want abstract t/A.value", m)
	}

	m, err = impl.Resolve("forward", "()I")
	if err != nil || m.Class != base {
		t.Errorf("t/Impl forward resolves to %v, %v, want t/Base.forward", m, err)
	}

	if m, err = impl.Resolve("equals", "(Ljava/lang/Object;)Z"); err != nil || m.Class.Name != ClassObject {
		t.Errorf("equals resolves to %v, %v, want java/lang/Object.equals", m, err)
	}

	if _, err := impl.Resolve("missing", "()V"); !errors.Is(err, ErrUnresolvedMethod) {
		t.Errorf("Resolve(missing) err = %v, want ErrUnresolvedMethod", err)
	}
	if _, err := impl.Resolve("value", "()J"); !errors.Is(err, ErrUnresolvedMethod) {
		t.Errorf("Resolve(value()J) err = %v, want ErrUnresolvedMethod", err)
	}
}

func TestDefaultMethodBeatsAbstractDeclaration(t *testing.T) {
	defs := []*ClassDef{
		{
			Name:    "t/Abs",
			Flags:   ClassInterface,
			Methods: []MethodDef{{Name: "value", Descriptor: "()I", Flags: MethodAbstract}},
		},
		{
			Name:    "t/Def",
			Flags:   ClassInterface,
			Methods: []MethodDef{returnInt("value", MethodPublic, 7)},
		},
		{
			Name:       "t/Both",
			Interfaces: []string{"t/Abs", "t/Def"},
			Methods:    []MethodDef{initCalling(ClassObject, "()V")},
		},
	}
	vm := mustLoad(t, defs)
	m, err := vm.Classes.Lookup("t/Both").Resolve("value", "()I")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Class.Name != "t/Def" {
		t.Errorf("value resolves to %s, want t/Def.value", m)
	}
}

func TestSuperclassBeatsInterfaceDefault(t *testing.T) {
	defs := []*ClassDef{
		{
			Name:    "t/Def",
			Flags:   ClassInterface,
			Methods: []MethodDef{returnInt("value", MethodPublic, 7)},
		},
		{
			Name:    "t/Parent",
			Methods: []MethodDef{initCalling(ClassObject, "()V"), returnInt("value", MethodPublic, 3)},
		},
		{
			Name:       "t/Child",
			Super:      "t/Parent",
			Interfaces: []string{"t/Def"},
			Methods:    []MethodDef{initCalling("t/Parent", "()V")},
		},
	}
	vm := mustLoad(t, defs)
	m, err := vm.Classes.Lookup("t/Child").Resolve("value", "()I")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Class.Name != "t/Parent" {
		t.Errorf("value resolves to %s, want t/Parent.value", m)
	}
}

// ---------------------------------------------------------------------------
// Instance-of
// ---------------------------------------------------------------------------

func TestInstanceOfIsTransitive(t *testing.T) {
	vm := mustLoad(t, interfaceChain())
	ct := vm.Classes
	obj := FromObject(ct.Lookup("t/Impl").New())

	for _, name := range []string{"t/Impl", "t/Base", "t/B", "t/A", ClassObject} {
		if !IsInstanceOf(obj, ct.Lookup(name).Type()) {
			t.Errorf("t/Impl should be an instance of %s", name)
		}
	}
	if IsInstanceOf(obj, ct.Lookup(ClassString).Type()) {
		t.Error("t/Impl should not be an instance of java/lang/String")
	}
	if IsInstanceOf(Null, ct.Lookup(ClassObject).Type()) {
		t.Error("null should not be an instance of anything")
	}

	base := ct.Lookup("t/Base")
	if !ct.Lookup("t/Impl").IsSubclassOf(base) || base.IsSubclassOf(ct.Lookup("t/Impl")) {
		t.Error("IsSubclassOf should follow the superclass edge one way")
	}
}

func TestAncestors(t *testing.T) {
	vm := mustLoad(t, interfaceChain())
	got := vm.Classes.Lookup("t/Impl").Ancestors()
	want := []string{ClassObject, "t/A", "t/B", "t/Base", "t/Impl"}
	if len(got) != len(want) {
		t.Fatalf("Ancestors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ancestors()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInstanceOfInstruction(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	b.EmitRef(OpNew, ClassRef("t/Impl"))
	b.EmitRef(OpInstanceOf, ClassRef("t/A"))
	b.PushString("s")
	b.EmitRef(OpInstanceOf, ClassRef("t/A"))
	b.EmitKind(OpAdd, KindInt)
	b.Emit(OpPushNull)
	b.EmitRef(OpInstanceOf, ClassRef(ClassObject))
	b.EmitKind(OpAdd, KindInt)
	b.Emit(OpReturnValue)

	defs := append(interfaceChain(), &ClassDef{Name: "t/Check", Methods: []MethodDef{b.Build()}})
	vm := mustLoad(t, defs)
	if got := mustRun(t, vm, "t/Check", "run"); got != 1 {
		t.Errorf("run() = %d, want 1", got)
	}
}

func TestCheckCastFailureIsCatchable(t *testing.T) {
	b := NewMethodBuilder("run", "()I", MethodStatic)
	handler := b.NewLabel()
	r := b.Try()
	b.PushString("s")
	b.EmitRef(OpCheckCast, ClassRef("t/A"))
	b.Emit(OpPop)
	b.PushInt(0)
	b.Emit(OpReturnValue)
	b.EndTry(r)
	r.Catch("java/lang/ClassCastException", handler)
	b.Mark(handler)
	b.Emit(OpPop)
	b.PushInt(1)
	b.Emit(OpReturnValue)

	defs := append(interfaceChain(), &ClassDef{Name: "t/Check", Methods: []MethodDef{b.Build()}})
	vm := mustLoad(t, defs)
	if got := mustRun(t, vm, "t/Check", "run"); got != 1 {
		t.Errorf("run() = %d, want 1", got)
	}
}

// ---------------------------------------------------------------------------
// Fields
// ---------------------------------------------------------------------------

func TestFieldLayoutAndInitializers(t *testing.T) {
	defs := []*ClassDef{
		{
			Name: "t/P",
			Fields: []FieldDef{
				{Name: "a", Descriptor: "I", Initial: &LiteralDef{Kind: LiteralInt, Int: 5}},
				{Name: "s", Descriptor: "Ljava/lang/String;", Initial: &LiteralDef{Kind: LiteralString, Str: "hi"}},
			},
		},
		{
			Name:   "t/Q",
			Super:  "t/P",
			Fields: []FieldDef{{Name: "b", Descriptor: "J"}, {Name: "a", Descriptor: "S"}},
		},
	}
	vm := mustLoad(t, defs)
	q := vm.Classes.Lookup("t/Q")
	if q.NumSlots() != 4 {
		t.Fatalf("NumSlots() = %d, want 4", q.NumSlots())
	}

	obj := q.New()
	if v := obj.Slot(0); v.AsInt() != 5 {
		t.Errorf("inherited a = %v, want 5", v)
	}
	if s, _ := StringOf(obj.Slot(1)); s != "hi" {
		t.Errorf("s = %q, want hi", s)
	}
	v, err := obj.GetField("a")
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if v.Kind() != KindShort || v.AsInt() != 0 {
		t.Errorf("shadowing a = %v (%s), want short 0", v, v.Kind())
	}
	if err := obj.SetField("b", FromInt(9)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if v, _ := obj.GetField("b"); v.Kind() != KindLong || v.AsLong() != 9 {
		t.Errorf("b = %v (%s), want long 9", v, v.Kind())
	}
	if err := obj.SetField("b", Null); !errors.Is(err, &Error{Kind: FaultIllegalArgument}) {
		t.Errorf("SetField(null) err = %v, want IllegalArgument", err)
	}
	if _, err := obj.GetField("zz"); !errors.Is(err, ErrNoSuchField) {
		t.Errorf("GetField(zz) err = %v, want ErrNoSuchField", err)
	}
}
