package vm

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Widening
// ---------------------------------------------------------------------------

func TestCanWiden(t *testing.T) {
	tests := []struct {
		from, to Kind
		want     bool
	}{
		{KindByte, KindInt, true},
		{KindShort, KindLong, true},
		{KindInt, KindDouble, true},
		{KindLong, KindDouble, true},
		{KindInt, KindInt, true},
		{KindLong, KindInt, false},
		{KindDouble, KindLong, false},
		{KindBoolean, KindInt, false},
		{KindInt, KindBoolean, false},
		{KindRef, KindInt, false},
	}
	for _, tt := range tests {
		if got := CanWiden(tt.from, tt.to); got != tt.want {
			t.Errorf("CanWiden(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestWidenPreservesValue(t *testing.T) {
	tests := []struct {
		v    Value
		to   Kind
		want int64
	}{
		{FromByte(-2), KindInt, -2},
		{FromByte(127), KindLong, 127},
		{FromShort(-20), KindInt, -20},
		{FromShort(math.MinInt16), KindLong, math.MinInt16},
		{FromInt(math.MinInt32), KindLong, math.MinInt32},
	}
	for _, tt := range tests {
		got := Widen(tt.v, tt.to)
		if got.Kind() != tt.to {
			t.Errorf("Widen(%v, %s).Kind() = %s", tt.v, tt.to, got.Kind())
		}
		if got.AsLong() != tt.want {
			t.Errorf("Widen(%v, %s) = %d, want %d", tt.v, tt.to, got.AsLong(), tt.want)
		}
	}

	if d := Widen(FromInt(-7), KindDouble); d.AsDouble() != -7 {
		t.Errorf("Widen(-7, double) = %v, want -7", d)
	}
}

func TestWidenPanicsOnNarrowing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Widen(long, int) should panic")
		}
	}()
	Widen(FromLong(1), KindInt)
}

func TestMixedWidthSum(t *testing.T) {
	ints := []Value{FromInt(4), FromInt(5), FromInt(10), FromInt(20)}
	shorts := []Value{FromShort(-20), FromShort(-4), FromShort(-5), FromShort(-11)}
	bytes := []Value{FromByte(-2), FromByte(10)}

	var sum int64
	for _, group := range [][]Value{ints, shorts, bytes} {
		for _, v := range group {
			sum += Widen(v, KindLong).AsLong()
		}
	}
	sum += 2 + 2 - 3
	if sum != 8 {
		t.Errorf("sum = %d, want 8", sum)
	}
}

// ---------------------------------------------------------------------------
// Slot assignment
// ---------------------------------------------------------------------------

func TestAssign(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		v    Value
		ok   bool
		kind Kind
		want int64
	}{
		{"int into byte truncates", TypeByte, FromInt(300), true, KindByte, 44},
		{"int into short truncates", TypeShort, FromInt(70000), true, KindShort, 4464},
		{"byte into int", TypeInt, FromByte(-1), true, KindInt, -1},
		{"int into long widens", TypeLong, FromInt(-5), true, KindLong, -5},
		{"long into int rejected", TypeInt, FromLong(1), false, KindLong, 1},
		{"bool into bool", TypeBoolean, FromBool(true), true, KindBoolean, 1},
		{"bool into int rejected", TypeInt, FromBool(true), false, KindBoolean, 1},
		{"null into int rejected", TypeInt, Null, false, KindRef, 0},
	}
	for _, tt := range tests {
		got, ok := assign(tt.typ, tt.v)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if got.Kind() != tt.kind || got.AsLong() != tt.want {
			t.Errorf("%s: got %v (%s), want %d (%s)", tt.name, got, got.Kind(), tt.want, tt.kind)
		}
	}

	if d, ok := assign(TypeDouble, FromInt(3)); !ok || d.AsDouble() != 3 {
		t.Errorf("assign(double, 3) = %v, %v", d, ok)
	}
}

func TestValueIdentity(t *testing.T) {
	if FromInt(1).Identical(FromLong(1)) {
		t.Error("int 1 and long 1 should not be identical")
	}
	if !FromInt(1).Identical(FromInt(1)) {
		t.Error("int 1 should be identical to itself")
	}
	if !Null.IsNull() || Null.IsVoid() {
		t.Error("Null should be null and not void")
	}
	if !Void.IsVoid() {
		t.Error("Void should be void")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{FromInt(42), "42"},
		{FromLong(-9), "-9"},
		{FromDouble(1.5), "1.5"},
		{FromBool(true), "true"},
		{Null, "null"},
		{Void, "void"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

func TestTypeInterning(t *testing.T) {
	ct, err := Link(nil, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	a, err := ct.TypeOf("[Ljava/lang/String;")
	if err != nil {
		t.Fatalf("TypeOf: %v", err)
	}
	str, _ := ct.TypeOf("Ljava/lang/String;")
	if b := ct.ArrayOf(str); a != b {
		t.Error("array types with the same element type should be identical")
	}
	if a.Elem != str {
		t.Error("array element type should be the interned String type")
	}
	if i, _ := ct.TypeOf("I"); i != TypeInt {
		t.Error("primitive descriptors should resolve to the singletons")
	}
	if got := a.Name(); got != "java/lang/String[]" {
		t.Errorf("Name() = %q, want java/lang/String[]", got)
	}
}

func TestTypeOfErrors(t *testing.T) {
	ct, err := Link(nil, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if _, err := ct.TypeOf("Lt/Missing;"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("TypeOf(missing) err = %v, want ErrClassNotFound", err)
	}
	for _, desc := range []string{"C", "F", "[", "II", "Lbad"} {
		if _, err := ct.TypeOf(desc); err == nil {
			t.Errorf("TypeOf(%q) should fail", desc)
		}
	}
}

func TestIsAssignable(t *testing.T) {
	ct, err := Link(nil, nil)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	typ := func(desc string) *Type {
		tp, err := ct.TypeOf(desc)
		if err != nil {
			t.Fatalf("TypeOf(%q): %v", desc, err)
		}
		return tp
	}
	tests := []struct {
		from, to string
		want     bool
	}{
		{"Ljava/lang/String;", "Ljava/lang/Object;", true},
		{"Ljava/lang/Object;", "Ljava/lang/String;", false},
		{"[Ljava/lang/String;", "[Ljava/lang/Object;", true},
		{"[Ljava/lang/Object;", "[Ljava/lang/String;", false},
		{"[I", "Ljava/lang/Object;", true},
		{"[I", "[J", false},
		{"[I", "[I", true},
		{"I", "J", false},
		{"Ljava/lang/ArithmeticException;", "Ljava/lang/Throwable;", true},
	}
	for _, tt := range tests {
		if got := IsAssignable(typ(tt.from), typ(tt.to)); got != tt.want {
			t.Errorf("IsAssignable(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSplitMethodDescriptor(t *testing.T) {
	params, ret, err := SplitMethodDescriptor("(I[Ljava/lang/String;J)V")
	if err != nil {
		t.Fatalf("SplitMethodDescriptor: %v", err)
	}
	want := []string{"I", "[Ljava/lang/String;", "J"}
	if len(params) != len(want) {
		t.Fatalf("params = %v, want %v", params, want)
	}
	for i := range want {
		if params[i] != want[i] {
			t.Errorf("params[%d] = %q, want %q", i, params[i], want[i])
		}
	}
	if ret != "V" {
		t.Errorf("ret = %q, want V", ret)
	}

	for _, bad := range []string{"I", "(V)V", "(I", "()", "()VV"} {
		if _, _, err := SplitMethodDescriptor(bad); err == nil {
			t.Errorf("SplitMethodDescriptor(%q) should fail", bad)
		}
	}
}
