package vm

import (
	"errors"
	"strings"
	"unicode/utf16"
)

// Well-known class names.
const (
	ClassObject      = "java/lang/Object"
	ClassString      = "java/lang/String"
	ClassClass       = "java/lang/Class"
	ClassSystem      = "java/lang/System"
	ClassThrowable   = "java/lang/Throwable"
	ClassConstructor = "java/lang/reflect/Constructor"
	ClassField       = "java/lang/reflect/Field"
)

var boxClassNames = map[Kind]string{
	KindByte:    "java/lang/Byte",
	KindShort:   "java/lang/Short",
	KindInt:     "java/lang/Integer",
	KindLong:    "java/lang/Long",
	KindDouble:  "java/lang/Double",
	KindBoolean: "java/lang/Boolean",
}

// throwableHierarchy lists the system throwables, each after its superclass.
var throwableHierarchy = []struct{ name, super string }{
	{ClassThrowable, ClassObject},
	{"java/lang/Exception", ClassThrowable},
	{"java/lang/Error", ClassThrowable},
	{"java/lang/RuntimeException", "java/lang/Exception"},
	{"java/lang/NullPointerException", "java/lang/RuntimeException"},
	{"java/lang/ArithmeticException", "java/lang/RuntimeException"},
	{"java/lang/ClassCastException", "java/lang/RuntimeException"},
	{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
	{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
	{"java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
	{"java/lang/NegativeArraySizeException", "java/lang/RuntimeException"},
	{"java/lang/ArrayStoreException", "java/lang/RuntimeException"},
	{"java/lang/SecurityException", "java/lang/RuntimeException"},
	{"java/lang/ReflectiveOperationException", "java/lang/Exception"},
	{"java/lang/ClassNotFoundException", "java/lang/ReflectiveOperationException"},
	{"java/lang/NoSuchMethodException", "java/lang/ReflectiveOperationException"},
	{"java/lang/NoSuchFieldException", "java/lang/ReflectiveOperationException"},
	{"java/lang/InstantiationException", "java/lang/ReflectiveOperationException"},
	{"java/lang/IllegalAccessException", "java/lang/ReflectiveOperationException"},
	{"java/lang/reflect/InvocationTargetException", "java/lang/ReflectiveOperationException"},
	{"java/io/IOException", "java/lang/Exception"},
	{"java/io/FileNotFoundException", "java/io/IOException"},
	{"java/lang/VirtualMachineError", "java/lang/Error"},
	{"java/lang/StackOverflowError", "java/lang/VirtualMachineError"},
}

// Throwable slots. Object declares no fields, so these hold in every
// throwable class.
const (
	throwableMessageSlot = 0
	throwableCauseSlot   = 1
)

var throwableCtors = []string{
	"()V",
	"(Ljava/lang/String;)V",
	"(Ljava/lang/String;Ljava/lang/Throwable;)V",
	"(Ljava/lang/Throwable;)V",
}

func nativeMethod(name, desc string, flags MethodFlags) MethodDef {
	return MethodDef{Name: name, Descriptor: desc, Flags: flags | MethodNative | MethodPublic}
}

// systemClassDefs describes the classes linked into every table.
func systemClassDefs() []*ClassDef {
	defs := []*ClassDef{
		{
			Name: ClassObject,
			Methods: []MethodDef{
				nativeMethod("<init>", "()V", 0),
				nativeMethod("equals", "(Ljava/lang/Object;)Z", 0),
			},
		},
		{
			Name:  ClassString,
			Flags: ClassFinal,
			Methods: []MethodDef{
				nativeMethod("equals", "(Ljava/lang/Object;)Z", 0),
				nativeMethod("hashCode", "()I", 0),
				nativeMethod("length", "()I", 0),
			},
		},
		{
			Name:  ClassClass,
			Flags: ClassFinal | ClassHandle,
			Methods: []MethodDef{
				nativeMethod("getName", "()Ljava/lang/String;", 0),
				nativeMethod("getDeclaredConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;", 0),
				nativeMethod("getConstructor", "([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;", 0),
				nativeMethod("getDeclaredField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;", 0),
				nativeMethod("getField", "(Ljava/lang/String;)Ljava/lang/reflect/Field;", 0),
			},
		},
		{
			Name:  ClassSystem,
			Flags: ClassFinal,
			Methods: []MethodDef{
				nativeMethod("arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V", MethodStatic),
			},
		},
		{
			Name:  ClassConstructor,
			Flags: ClassFinal | ClassHandle,
			Methods: []MethodDef{
				nativeMethod("newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;", 0),
				nativeMethod("getParameterCount", "()I", 0),
			},
		},
		{
			Name:  ClassField,
			Flags: ClassFinal | ClassHandle,
			Methods: []MethodDef{
				nativeMethod("get", "(Ljava/lang/Object;)Ljava/lang/Object;", 0),
				nativeMethod("getName", "()Ljava/lang/String;", 0),
			},
		},
	}

	for _, th := range throwableHierarchy {
		def := &ClassDef{Name: th.name, Super: th.super}
		for _, desc := range throwableCtors {
			def.Methods = append(def.Methods, nativeMethod("<init>", desc, 0))
		}
		if th.name == ClassThrowable {
			def.Fields = []FieldDef{
				{Name: "message", Descriptor: "Ljava/lang/String;"},
				{Name: "cause", Descriptor: "Ljava/lang/Throwable;"},
			}
			def.Methods = append(def.Methods,
				nativeMethod("getMessage", "()Ljava/lang/String;", 0),
				nativeMethod("getCause", "()Ljava/lang/Throwable;", 0),
			)
		}
		if th.name == "java/lang/reflect/InvocationTargetException" {
			def.Methods = append(def.Methods,
				nativeMethod("getTargetException", "()Ljava/lang/Throwable;", 0))
		}
		defs = append(defs, def)
	}

	for _, kind := range boxKinds() {
		name, desc := boxClassNames[kind], TypeForKind(kind).desc
		defs = append(defs, &ClassDef{
			Name:   name,
			Flags:  ClassFinal,
			Fields: []FieldDef{{Name: "value", Descriptor: desc}},
			Methods: []MethodDef{
				nativeMethod("<init>", "("+desc+")V", 0),
				nativeMethod("valueOf", "("+desc+")L"+name+";", MethodStatic),
				nativeMethod(kind.String()+"Value", "()"+desc, 0),
			},
		})
	}
	return defs
}

// boxKinds returns the boxed primitive kinds in a fixed order.
func boxKinds() []Kind {
	return []Kind{KindByte, KindShort, KindInt, KindLong, KindDouble, KindBoolean}
}

// TypeForKind returns the primitive type of kind k.
func TypeForKind(k Kind) *Type {
	switch k {
	case KindByte:
		return TypeByte
	case KindShort:
		return TypeShort
	case KindInt:
		return TypeInt
	case KindLong:
		return TypeLong
	case KindDouble:
		return TypeDouble
	case KindBoolean:
		return TypeBoolean
	}
	return TypeVoid
}

// ---------------------------------------------------------------------------
// Throwables
// ---------------------------------------------------------------------------

// NewThrowable allocates a throwable of class c with a message and an
// optional cause, without running a constructor.
func (ct *ClassTable) NewThrowable(c *Class, msg string, cause *Object) *Object {
	o := newObject(c)
	if msg != "" {
		o.fields[throwableMessageSlot] = FromObject(ct.NewString(msg))
	}
	if cause != nil {
		o.fields[throwableCauseSlot] = FromObject(cause)
	}
	return o
}

func (in *Interpreter) throwableFor(e *Error) *Object {
	ct := in.table
	var cause *Object
	var fault *Fault
	if errors.As(e.Cause, &fault) {
		cause = fault.Object
	}
	return ct.NewThrowable(ct.classes[e.Kind.ClassName()], e.Msg, cause)
}

func isThrowable(o *Object) bool {
	return o != nil && o.class.table != nil && o.class.IsSubclassOf(o.class.table.throwableClass)
}

func throwableMessage(o *Object) string {
	if !isThrowable(o) {
		return ""
	}
	s, _ := StringOf(o.fields[throwableMessageSlot])
	return s
}

func throwableCause(o *Object) *Object {
	if !isThrowable(o) {
		return nil
	}
	return o.fields[throwableCauseSlot].Object()
}

// ---------------------------------------------------------------------------
// Boxing
// ---------------------------------------------------------------------------

// Box wraps a primitive value in its system box class. References are
// returned unchanged.
func (ct *ClassTable) Box(v Value) Value {
	c := ct.boxes[v.kind]
	if c == nil {
		return v
	}
	o := newObject(c)
	o.fields[0] = v
	return FromObject(o)
}

// unbox converts a reflective argument to parameter type t.
func (ct *ClassTable) unbox(t *Type, v Value) (Value, bool) {
	if !t.IsPrimitive() {
		return assign(t, v)
	}
	o := v.Object()
	if o == nil {
		return v, false
	}
	for kind, c := range ct.boxes {
		if o.class == c && CanWiden(kind, t.Kind) {
			return assign(t, o.fields[0])
		}
	}
	return v, false
}

// ---------------------------------------------------------------------------
// Natives
// ---------------------------------------------------------------------------

func systemNatives() map[string]NativeFunc {
	n := map[string]NativeFunc{
		ClassObject + ".<init>()V":                    nativeNop,
		ClassObject + ".equals(Ljava/lang/Object;)Z": objectEquals,

		ClassString + ".equals(Ljava/lang/Object;)Z": stringEquals,
		ClassString + ".hashCode()I":                 stringHashCode,
		ClassString + ".length()I":                   stringLength,

		ClassSystem + ".arraycopy(Ljava/lang/Object;ILjava/lang/Object;II)V": systemArraycopy,

		ClassClass + ".getName()Ljava/lang/String;":                                             classGetName,
		ClassClass + ".getDeclaredConstructor([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;": classGetConstructor(false),
		ClassClass + ".getConstructor([Ljava/lang/Class;)Ljava/lang/reflect/Constructor;":         classGetConstructor(true),
		ClassClass + ".getDeclaredField(Ljava/lang/String;)Ljava/lang/reflect/Field;":             classGetField(true),
		ClassClass + ".getField(Ljava/lang/String;)Ljava/lang/reflect/Field;":                     classGetField(false),

		ClassConstructor + ".newInstance([Ljava/lang/Object;)Ljava/lang/Object;": constructorNewInstance,
		ClassConstructor + ".getParameterCount()I":                               constructorParameterCount,
		ClassField + ".get(Ljava/lang/Object;)Ljava/lang/Object;":                fieldGet,
		ClassField + ".getName()Ljava/lang/String;":                              fieldGetName,

		ClassThrowable + ".getMessage()Ljava/lang/String;":                                      throwableGetMessage,
		ClassThrowable + ".getCause()Ljava/lang/Throwable;":                                     throwableGetCause,
		"java/lang/reflect/InvocationTargetException.getTargetException()Ljava/lang/Throwable;": throwableGetCause,
	}
	for _, th := range throwableHierarchy {
		n[th.name+".<init>()V"] = nativeNop
		n[th.name+".<init>(Ljava/lang/String;)V"] = throwableInit
		n[th.name+".<init>(Ljava/lang/String;Ljava/lang/Throwable;)V"] = throwableInit
		n[th.name+".<init>(Ljava/lang/Throwable;)V"] = throwableInitCause
	}
	for _, kind := range boxKinds() {
		name, desc := boxClassNames[kind], TypeForKind(kind).desc
		n[name+".<init>("+desc+")V"] = boxInit
		n[name+".valueOf("+desc+")L"+name+";"] = boxValueOf(TypeForKind(kind))
		n[name+"."+kind.String()+"Value()"+desc] = boxValue
	}
	return n
}

func nativeNop(in *Interpreter, args []Value) (Value, error) { return Void, nil }

func objectEquals(in *Interpreter, args []Value) (Value, error) {
	return FromBool(args[0].ref == args[1].ref), nil
}

func stringEquals(in *Interpreter, args []Value) (Value, error) {
	a, _ := StringOf(args[0])
	b, ok := StringOf(args[1])
	return FromBool(ok && a == b), nil
}

func stringHashCode(in *Interpreter, args []Value) (Value, error) {
	s, _ := StringOf(args[0])
	return FromInt(StringHash(s)), nil
}

func stringLength(in *Interpreter, args []Value) (Value, error) {
	s, _ := StringOf(args[0])
	return FromInt(int32(len(utf16.Encode([]rune(s))))), nil
}

func systemArraycopy(in *Interpreter, args []Value) (Value, error) {
	src, dst := args[0], args[2]
	if src.IsNull() || dst.IsNull() {
		return Void, newError(FaultNullReference, "arraycopy of null")
	}
	sa, da := src.Array(), dst.Array()
	if sa == nil {
		return Void, newError(FaultArrayStoreTypeMismatch, "arraycopy: source type %s is not an array", src.ref.Type().Name())
	}
	if da == nil {
		return Void, newError(FaultArrayStoreTypeMismatch, "arraycopy: destination type %s is not an array", dst.ref.Type().Name())
	}
	return Void, ArrayCopy(sa, int(args[1].AsInt()), da, int(args[3].AsInt()), int(args[4].AsInt()))
}

// mirrorType returns the type a java/lang/Class instance stands for.
func mirrorType(v Value) *Type {
	if o := v.Object(); o != nil {
		t, _ := o.native.(*Type)
		return t
	}
	return nil
}

// mirrorOf is mirrorType for a receiver, failing when it mirrors nothing.
func mirrorOf(v Value) (*Type, error) {
	if t := mirrorType(v); t != nil {
		return t, nil
	}
	return nil, newError(FaultIllegalArgument, "%s is not a class mirror", v)
}

func constructorOf(v Value) (*Constructor, error) {
	if o := v.Object(); o != nil {
		if ctor, ok := o.native.(*Constructor); ok {
			return ctor, nil
		}
	}
	return nil, newError(FaultIllegalArgument, "%s is not a constructor handle", v)
}

func fieldOf(v Value) (*Field, error) {
	if o := v.Object(); o != nil {
		if f, ok := o.native.(*Field); ok {
			return f, nil
		}
	}
	return nil, newError(FaultIllegalArgument, "%s is not a field handle", v)
}

func classGetName(in *Interpreter, args []Value) (Value, error) {
	t, err := mirrorOf(args[0])
	if err != nil {
		return Null, err
	}
	name := t.Name()
	if t.Kind == KindRef {
		name = strings.ReplaceAll(name, "/", ".")
	}
	return FromObject(in.table.NewString(name)), nil
}

func classGetConstructor(publicOnly bool) NativeFunc {
	return func(in *Interpreter, args []Value) (Value, error) {
		t, err := mirrorOf(args[0])
		if err != nil {
			return Null, err
		}
		var params []*Type
		if a := args[1].Array(); a != nil {
			for i, p := range a.elems {
				pt := mirrorType(p)
				if pt == nil {
					return Null, newError(FaultIllegalArgument, "parameter type %d is null", i)
				}
				params = append(params, pt)
			}
		}
		if t.Kind != KindRef {
			return Null, newError(FaultNoSuchConstructor, "%s has no constructors", t.Name())
		}
		ctor, err := LookupConstructor(t.Class, params...)
		if err != nil {
			return Null, err
		}
		if publicOnly && !ctor.Method.IsPublic() {
			return Null, newError(FaultNoSuchConstructor, "%s is not public", ctor)
		}
		return FromObject(&Object{class: in.table.ctorClass, native: ctor}), nil
	}
}

func classGetField(declaredOnly bool) NativeFunc {
	return func(in *Interpreter, args []Value) (Value, error) {
		t, err := mirrorOf(args[0])
		if err != nil {
			return Null, err
		}
		name, ok := StringOf(args[1])
		if !ok {
			return Null, newError(FaultNullReference, "field name is null")
		}
		var f *Field
		if t.Kind == KindRef {
			f = t.Class.Field(name)
			if declaredOnly && f != nil && f.Owner != t.Class {
				f = nil
			}
		}
		if f == nil {
			return Null, newError(FaultNoSuchField, "%s", name)
		}
		return FromObject(&Object{class: in.table.fieldClass, native: f}), nil
	}
}

func constructorNewInstance(in *Interpreter, args []Value) (Value, error) {
	ctor, err := constructorOf(args[0])
	if err != nil {
		return Null, err
	}
	var raw []Value
	if a := args[1].Array(); a != nil {
		raw = a.elems
	}
	if len(raw) != len(ctor.Params) {
		return Null, newError(FaultIllegalArgument, "wrong number of arguments: %d, expected %d", len(raw), len(ctor.Params))
	}
	vals := make([]Value, len(raw))
	for i, v := range raw {
		cv, ok := in.table.unbox(ctor.Params[i], v)
		if !ok {
			return Null, newError(FaultIllegalArgument, "argument %d does not match %s", i, ctor.Params[i])
		}
		vals[i] = cv
	}
	obj, err := in.NewInstance(ctor, vals...)
	if err != nil {
		return Null, err
	}
	return FromObject(obj), nil
}

func constructorParameterCount(in *Interpreter, args []Value) (Value, error) {
	ctor, err := constructorOf(args[0])
	if err != nil {
		return Null, err
	}
	return FromInt(int32(len(ctor.Params))), nil
}

func fieldGet(in *Interpreter, args []Value) (Value, error) {
	f, err := fieldOf(args[0])
	if err != nil {
		return Null, err
	}
	o := args[1].Object()
	if o == nil {
		// Static fields are not modelled, so a null target is always an error.
		return Null, newError(FaultNullReference, "get of %s.%s on null", f.Owner.Name, f.Name)
	}
	if !o.class.IsSubclassOf(f.Owner) {
		return Null, newError(FaultIllegalArgument, "%s is not an instance of %s", o.class.Name, f.Owner.Name)
	}
	return in.table.Box(o.fields[f.Slot]), nil
}

func fieldGetName(in *Interpreter, args []Value) (Value, error) {
	f, err := fieldOf(args[0])
	if err != nil {
		return Null, err
	}
	return FromObject(in.table.NewString(f.Name)), nil
}

func throwableInit(in *Interpreter, args []Value) (Value, error) {
	o := args[0].Object()
	o.fields[throwableMessageSlot] = args[1]
	if len(args) > 2 {
		o.fields[throwableCauseSlot] = args[2]
	}
	return Void, nil
}

func throwableInitCause(in *Interpreter, args []Value) (Value, error) {
	o := args[0].Object()
	o.fields[throwableCauseSlot] = args[1]
	if cause := args[1].Object(); cause != nil {
		o.fields[throwableMessageSlot] = FromObject(in.table.NewString(cause.class.Name))
	}
	return Void, nil
}

func throwableGetMessage(in *Interpreter, args []Value) (Value, error) {
	return args[0].Object().fields[throwableMessageSlot], nil
}

func throwableGetCause(in *Interpreter, args []Value) (Value, error) {
	return args[0].Object().fields[throwableCauseSlot], nil
}

func boxInit(in *Interpreter, args []Value) (Value, error) {
	o := args[0].Object()
	v, ok := assign(o.class.slots[0].Type, args[1])
	if !ok {
		return Void, newError(FaultIllegalArgument, "cannot box %s as %s", args[1].kind, o.class.Name)
	}
	o.fields[0] = v
	return Void, nil
}

// boxValueOf converts the argument to t first, so an int operand boxes as
// Boolean, Byte or Short when the call site names one of those.
func boxValueOf(t *Type) NativeFunc {
	return func(in *Interpreter, args []Value) (Value, error) {
		v, ok := assign(t, args[0])
		if !ok {
			return Null, newError(FaultIllegalArgument, "cannot box %s as %s", args[0].kind, t)
		}
		return in.table.Box(v), nil
	}
}

func boxValue(in *Interpreter, args []Value) (Value, error) {
	return args[0].Object().fields[0], nil
}
