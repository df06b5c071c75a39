package vm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// ClassTable is a linked class set. Classes, resolution tables, dispatch
// tables and resolved references never change after Link returns, so a
// table may be shared by any number of interpreters. Only the array type
// cache grows afterwards, under its own lock.
type ClassTable struct {
	classes map[string]*Class
	order   []*Class

	mu    sync.RWMutex
	types map[string]*Type

	mirrors map[*Type]*Object

	objectClass    *Class
	stringClass    *Class
	classClass     *Class
	throwableClass *Class
	ctorClass      *Class
	fieldClass     *Class
	boxes          map[Kind]*Class
}

func newClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
		types:   make(map[string]*Type),
		mirrors: make(map[*Type]*Object),
		boxes:   make(map[Kind]*Class),
	}
}

// Lookup finds a class by name, or returns nil.
func (ct *ClassTable) Lookup(name string) *Class {
	return ct.classes[name]
}

// Classes returns every linked class in definition order, system classes
// first.
func (ct *ClassTable) Classes() []*Class {
	return ct.order
}

// Len returns the number of linked classes.
func (ct *ClassTable) Len() int { return len(ct.order) }

// TypeOf resolves a field descriptor to its interned type.
func (ct *ClassTable) TypeOf(desc string) (*Type, error) {
	d, end, err := nextDescriptor(desc, 0)
	if err != nil {
		return nil, err
	}
	if end != len(desc) {
		return nil, fmt.Errorf("trailing data in descriptor %q", desc)
	}
	if t, ok := primitiveTypes[d[0]]; ok && len(d) == 1 {
		return t, nil
	}
	ct.mu.RLock()
	t := ct.types[d]
	ct.mu.RUnlock()
	if t != nil {
		return t, nil
	}
	switch d[0] {
	case 'L':
		name := d[1 : len(d)-1]
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	case '[':
		elem, err := ct.TypeOf(d[1:])
		if err != nil {
			return nil, err
		}
		return ct.ArrayOf(elem), nil
	}
	return nil, fmt.Errorf("bad descriptor %q", desc)
}

// ArrayOf returns the interned array type with element type elem.
func (ct *ClassTable) ArrayOf(elem *Type) *Type {
	desc := "[" + elem.desc
	ct.mu.RLock()
	t := ct.types[desc]
	ct.mu.RUnlock()
	if t != nil {
		return t
	}

	ct.mu.Lock()
	defer ct.mu.Unlock()
	if t := ct.types[desc]; t != nil {
		return t
	}
	t = &Type{Kind: KindArray, Elem: elem, desc: desc}
	ct.types[desc] = t
	return t
}

// NewString allocates a String instance.
func (ct *ClassTable) NewString(s string) *Object {
	return &Object{class: ct.stringClass, native: s}
}

// Mirror returns the java/lang/Class instance for a linked class or a
// primitive type, or nil for types no code referenced.
func (ct *ClassTable) Mirror(t *Type) *Object {
	return ct.mirrors[t]
}

// classOf returns the class whose resolution table serves a reference.
// Arrays respond to the methods of java/lang/Object.
func (ct *ClassTable) classOf(r Ref) *Class {
	if o, ok := r.(*Object); ok {
		return o.class
	}
	return ct.objectClass
}

// ---------------------------------------------------------------------------
// Linking
// ---------------------------------------------------------------------------

type linker struct {
	ct       *ClassTable
	defs     map[*Class]*ClassDef
	natives  map[string]NativeFunc
	prepared map[*Class]bool
	strings  map[string]*Object
}

// Link builds a class table from defs plus the system library. Natives
// supplies Go implementations for methods flagged MethodNative, keyed by
// "class.name(descriptor)"; system natives are always present. Every call
// site is resolved during linking, so a call that could never be resolved
// is reported here, before any code runs.
func Link(defs []*ClassDef, natives map[string]NativeFunc) (*ClassTable, error) {
	l := &linker{
		ct:       newClassTable(),
		defs:     make(map[*Class]*ClassDef),
		natives:  make(map[string]NativeFunc),
		prepared: make(map[*Class]bool),
		strings:  make(map[string]*Object),
	}
	for k, fn := range systemNatives() {
		l.natives[k] = fn
	}
	for k, fn := range natives {
		l.natives[k] = fn
	}

	all := append(systemClassDefs(), defs...)
	if err := l.declare(all); err != nil {
		return nil, err
	}
	if err := l.connect(); err != nil {
		return nil, err
	}
	for _, c := range l.ct.order {
		if err := l.prepare(c); err != nil {
			return nil, err
		}
	}
	for _, c := range l.ct.order {
		c.vtable = buildVTable(c)
		c.ctors = make(map[string]*Constructor)
		for _, m := range c.order {
			if m.IsConstructor() {
				c.ctors[paramKey(m.Descriptor)] = &Constructor{Class: c, Params: m.Params, Method: m}
			}
		}
	}
	for _, c := range l.ct.order {
		def := l.defs[c]
		for i, m := range c.order {
			if err := l.linkBody(m, &def.Methods[i]); err != nil {
				return nil, err
			}
		}
	}

	log.Debugf("linked %d classes (%d from the system library)", len(l.ct.order), len(l.ct.order)-len(defs))
	return l.ct, nil
}

// declare creates a shell for every definition and interns its type.
func (l *linker) declare(defs []*ClassDef) error {
	ct := l.ct
	for _, def := range defs {
		if def == nil || def.Name == "" {
			return linkErrorf("", "", ErrMalformed, "class without a name")
		}
		if _, dup := ct.classes[def.Name]; dup {
			return linkErrorf(def.Name, "", ErrMalformed, "duplicate class")
		}
		c := &Class{Name: def.Name, Flags: def.Flags, table: ct}
		c.typ = &Type{Kind: KindRef, Class: c, desc: "L" + def.Name + ";"}
		ct.types[c.typ.desc] = c.typ
		ct.classes[def.Name] = c
		ct.order = append(ct.order, c)
		l.defs[c] = def
	}

	ct.objectClass = ct.classes[ClassObject]
	ct.stringClass = ct.classes[ClassString]
	ct.classClass = ct.classes[ClassClass]
	ct.throwableClass = ct.classes[ClassThrowable]
	ct.ctorClass = ct.classes[ClassConstructor]
	ct.fieldClass = ct.classes[ClassField]
	for kind, name := range boxClassNames {
		ct.boxes[kind] = ct.classes[name]
	}

	// Mirrors exist for every class and primitive type up front; array
	// mirrors are added when code names them.
	for _, c := range ct.order {
		ct.mirrors[c.typ] = &Object{class: ct.classClass, native: c.typ}
	}
	for _, t := range primitiveTypes {
		ct.mirrors[t] = &Object{class: ct.classClass, native: t}
	}
	return nil
}

// connect links superclasses and interfaces and rejects cycles.
func (l *linker) connect() error {
	ct := l.ct
	for _, c := range ct.order {
		def := l.defs[c]
		superName := def.Super
		if superName == "" && c.Name != ClassObject {
			superName = ClassObject
		}
		if superName != "" {
			sup := ct.classes[superName]
			if sup == nil {
				return linkErrorf(c.Name, "", ErrClassNotFound, "superclass %s", superName)
			}
			if sup.IsInterface() {
				return linkErrorf(c.Name, "", ErrMalformed, "superclass %s is an interface", superName)
			}
			c.Super = sup
		}
		for _, name := range def.Interfaces {
			iface := ct.classes[name]
			if iface == nil {
				return linkErrorf(c.Name, "", ErrClassNotFound, "interface %s", name)
			}
			if !iface.IsInterface() {
				return linkErrorf(c.Name, "", ErrMalformed, "%s is not an interface", name)
			}
			c.Interfaces = append(c.Interfaces, iface)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Class]int)
	var visit func(c *Class) error
	visit = func(c *Class) error {
		switch state[c] {
		case visiting:
			return linkErrorf(c.Name, "", ErrMalformed, "circular inheritance")
		case done:
			return nil
		}
		state[c] = visiting
		if c.Super != nil {
			if err := visit(c.Super); err != nil {
				return err
			}
		}
		for _, iface := range c.Interfaces {
			if err := visit(iface); err != nil {
				return err
			}
		}
		state[c] = done
		return nil
	}
	for _, c := range ct.order {
		if err := visit(c); err != nil {
			return err
		}
	}
	return nil
}

// prepare computes ancestors, field layout and method declarations, after
// doing the same for every supertype.
func (l *linker) prepare(c *Class) error {
	if l.prepared[c] {
		return nil
	}
	l.prepared[c] = true
	if c.Super != nil {
		if err := l.prepare(c.Super); err != nil {
			return err
		}
	}
	for _, iface := range c.Interfaces {
		if err := l.prepare(iface); err != nil {
			return err
		}
	}

	c.ancestors = map[*Class]struct{}{c: {}}
	if c.Super != nil {
		for a := range c.Super.ancestors {
			c.ancestors[a] = struct{}{}
		}
	}
	for _, iface := range c.Interfaces {
		for a := range iface.ancestors {
			c.ancestors[a] = struct{}{}
		}
	}

	if err := l.layoutFields(c); err != nil {
		return err
	}
	return l.declareMethods(c)
}

func (l *linker) layoutFields(c *Class) error {
	def := l.defs[c]
	c.fields = make(map[string]*Field)
	if c.Super != nil {
		c.slots = append(c.slots, c.Super.slots...)
		c.template = append(c.template, c.Super.template...)
		for name, f := range c.Super.fields {
			c.fields[name] = f
		}
	}
	if c.IsInterface() && len(def.Fields) > 0 {
		return linkErrorf(c.Name, "", ErrMalformed, "interface declares instance fields")
	}
	own := make(map[string]bool)
	for _, fd := range def.Fields {
		if own[fd.Name] {
			return linkErrorf(c.Name, fd.Name, ErrMalformed, "duplicate field")
		}
		own[fd.Name] = true
		t, err := l.ct.TypeOf(fd.Descriptor)
		if err != nil || t == TypeVoid {
			return linkErrorf(c.Name, fd.Name, ErrMalformed, "field descriptor %q", fd.Descriptor)
		}
		f := &Field{Name: fd.Name, Type: t, Owner: c, Slot: len(c.slots), initial: ZeroValue(t)}
		if fd.Initial != nil {
			v, err := l.literal(*fd.Initial)
			if err != nil {
				return linkErrorf(c.Name, fd.Name, ErrMalformed, "initializer: %v", err)
			}
			cv, ok := assign(t, v)
			if !ok {
				return linkErrorf(c.Name, fd.Name, ErrMalformed, "initializer of kind %s for %s", v.kind, t)
			}
			f.initial = cv
		}
		c.declared = append(c.declared, f)
		c.slots = append(c.slots, f)
		c.template = append(c.template, f.initial)
		c.fields[f.Name] = f
	}
	return nil
}

func (l *linker) declareMethods(c *Class) error {
	def := l.defs[c]
	c.methods = make(map[string]*Method)
	for _, md := range def.Methods {
		sig := md.Name + md.Descriptor
		if _, dup := c.methods[sig]; dup {
			return linkErrorf(c.Name, sig, ErrMalformed, "duplicate method")
		}
		params, ret, err := SplitMethodDescriptor(md.Descriptor)
		if err != nil {
			return linkErrorf(c.Name, sig, ErrMalformed, "%v", err)
		}
		m := &Method{
			Name:       md.Name,
			Descriptor: md.Descriptor,
			Class:      c,
			Flags:      md.Flags,
			MaxLocals:  md.MaxLocals,
			Code:       md.Code,
		}
		for _, p := range params {
			t, err := l.ct.TypeOf(p)
			if err != nil {
				return linkErrorf(c.Name, sig, ErrMalformed, "parameter: %v", err)
			}
			m.Params = append(m.Params, t)
		}
		if m.Return, err = l.ct.TypeOf(ret); err != nil {
			return linkErrorf(c.Name, sig, ErrMalformed, "return type: %v", err)
		}

		switch {
		case m.IsConstructor() && (m.IsStatic() || m.Return != TypeVoid):
			return linkErrorf(c.Name, sig, ErrMalformed, "constructor must be an instance method returning void")
		case m.IsConstructor() && c.IsInterface():
			return linkErrorf(c.Name, sig, ErrMalformed, "interface declares a constructor")
		case m.IsAbstract() && !c.IsAbstract():
			return linkErrorf(c.Name, sig, ErrMalformed, "abstract method in concrete class")
		case m.IsAbstract() && (len(m.Code) > 0 || m.IsStatic()):
			return linkErrorf(c.Name, sig, ErrMalformed, "abstract method with a body")
		}
		if md.Flags&MethodNative != 0 {
			fn := l.natives[c.Name+"."+sig]
			if fn == nil {
				return linkErrorf(c.Name, sig, ErrMalformed, "no native implementation")
			}
			m.native = fn
		} else if !m.IsAbstract() && len(m.Code) == 0 {
			return linkErrorf(c.Name, sig, ErrMalformed, "method has no code")
		}
		c.methods[sig] = m
		c.order = append(c.order, m)
	}
	return nil
}

// intern returns the shared String instance for a literal.
func (l *linker) intern(s string) *Object {
	if o := l.strings[s]; o != nil {
		return o
	}
	o := l.ct.NewString(s)
	l.strings[s] = o
	return o
}

func (l *linker) literal(ld LiteralDef) (Value, error) {
	switch ld.Kind {
	case LiteralInt:
		v, err := safecast.Conv[int32](ld.Int)
		if err != nil {
			return Null, fmt.Errorf("int literal %d: %w", ld.Int, err)
		}
		return FromInt(v), nil
	case LiteralShort:
		v, err := safecast.Conv[int16](ld.Int)
		if err != nil {
			return Null, fmt.Errorf("short literal %d: %w", ld.Int, err)
		}
		return FromShort(v), nil
	case LiteralByte:
		v, err := safecast.Conv[int8](ld.Int)
		if err != nil {
			return Null, fmt.Errorf("byte literal %d: %w", ld.Int, err)
		}
		return FromByte(v), nil
	case LiteralLong:
		return FromLong(ld.Int), nil
	case LiteralDouble:
		return FromDouble(ld.Float), nil
	case LiteralBool:
		return FromBool(ld.Int != 0), nil
	case LiteralString:
		return FromObject(l.intern(ld.Str)), nil
	case LiteralNull:
		return Null, nil
	}
	return Null, fmt.Errorf("unknown literal kind %d", ld.Kind)
}

// ---------------------------------------------------------------------------
// Method bodies
// ---------------------------------------------------------------------------

func (l *linker) linkBody(m *Method, md *MethodDef) error {
	c := m.Class
	fail := func(format string, args ...any) error {
		return linkErrorf(c.Name, m.Signature(), ErrMalformed, format, args...)
	}
	if m.native != nil || m.IsAbstract() {
		return nil
	}
	if m.MaxLocals < m.ArgSlots() {
		return fail("%d locals cannot hold %d arguments", m.MaxLocals, m.ArgSlots())
	}

	for i, ld := range md.Literals {
		v, err := l.literal(ld)
		if err != nil {
			return fail("literal %d: %v", i, err)
		}
		m.literals = append(m.literals, v)
	}
	for i, rd := range md.Refs {
		r, err := l.resolveRef(rd)
		if err != nil {
			return fail("ref %d: %v", i, err)
		}
		m.refs = append(m.refs, r)
	}
	for i, sd := range md.Switches {
		st, err := newSwitchTable(sd)
		if err != nil {
			return fail("switch %d: %v", i, err)
		}
		m.switches = append(m.switches, st)
	}
	for i, rd := range md.Regions {
		r := &ExceptionRegion{Start: rd.Start, End: rd.End, Finally: rd.Finally}
		for _, hd := range rd.Handlers {
			h := Handler{Entry: hd.Entry}
			if hd.CatchType != "" {
				h.Catch = l.ct.classes[hd.CatchType]
				if h.Catch == nil {
					return linkErrorf(c.Name, m.Signature(), ErrClassNotFound, "region %d catches %s", i, hd.CatchType)
				}
				if !h.Catch.IsSubclassOf(l.ct.throwableClass) {
					return fail("region %d catches non-throwable %s", i, hd.CatchType)
				}
			}
			r.Handlers = append(r.Handlers, h)
		}
		m.regions = append(m.regions, r)
	}
	return l.verify(m)
}

func (l *linker) resolveRef(rd RefDef) (*resolvedRef, error) {
	ct := l.ct
	r := &resolvedRef{kind: rd.Kind}
	switch rd.Kind {
	case RefClass:
		r.class = ct.classes[rd.Class]
		if r.class == nil {
			return nil, fmt.Errorf("%w: %s", ErrClassNotFound, rd.Class)
		}
		r.typ = r.class.typ
	case RefType:
		t, err := ct.TypeOf(rd.Descriptor)
		if err != nil {
			return nil, err
		}
		r.typ = t
		r.class = t.Class
	case RefField:
		r.class = ct.classes[rd.Class]
		if r.class == nil {
			return nil, fmt.Errorf("%w: %s", ErrClassNotFound, rd.Class)
		}
		r.field = r.class.Field(rd.Name)
		if r.field == nil {
			return nil, fmt.Errorf("no field %s.%s", rd.Class, rd.Name)
		}
		if rd.Descriptor != "" && rd.Descriptor != r.field.Type.desc {
			return nil, fmt.Errorf("field %s.%s has type %s, not %s", rd.Class, rd.Name, r.field.Type.desc, rd.Descriptor)
		}
	case RefMethod:
		r.class = ct.classes[rd.Class]
		if r.class == nil {
			return nil, fmt.Errorf("%w: %s", ErrClassNotFound, rd.Class)
		}
		params, ret, err := SplitMethodDescriptor(rd.Descriptor)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			t, err := ct.TypeOf(p)
			if err != nil {
				return nil, err
			}
			r.params = append(r.params, t)
		}
		if r.ret, err = ct.TypeOf(ret); err != nil {
			return nil, err
		}
		r.sig = rd.Name + rd.Descriptor
	default:
		return nil, fmt.Errorf("unknown ref kind %d", rd.Kind)
	}
	return r, nil
}

// verify decodes every instruction and checks operands against the
// method's tables, jump targets against instruction boundaries, and call
// sites against the resolution tables.
func (l *linker) verify(m *Method) error {
	c := m.Class
	fail := func(format string, args ...any) error {
		return linkErrorf(c.Name, m.Signature(), ErrMalformed, format, args...)
	}

	boundary := make(map[int]bool)
	var code []Instruction
	r := NewBytecodeReader(m.Code)
	for r.HasMore() {
		in, err := r.Decode()
		if err != nil {
			return &LinkError{Class: c.Name, Member: m.Signature(), Err: err}
		}
		boundary[in.Offset] = true
		code = append(code, in)
	}
	var targets []int

	refAt := func(in Instruction, kinds ...RefKind) (*resolvedRef, error) {
		idx := in.Operands[0]
		if idx >= len(m.refs) {
			return nil, fail("%s at %d: ref %d out of range", in.Op, in.Offset, idx)
		}
		ref := m.refs[idx]
		for _, k := range kinds {
			if ref.kind == k {
				return ref, nil
			}
		}
		return nil, fail("%s at %d: wrong ref kind %d", in.Op, in.Offset, ref.kind)
	}

	for _, in := range code {
		switch in.Op {
		case OpLoad, OpStore, OpInc:
			if in.Operands[0] >= m.MaxLocals {
				return fail("%s at %d: local %d out of range", in.Op, in.Offset, in.Operands[0])
			}
		case OpPushLiteral:
			if in.Operands[0] >= len(m.literals) {
				return fail("literal %d out of range at %d", in.Operands[0], in.Offset)
			}
		case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpNeg, OpCmp:
			if k := Kind(in.Operands[0]); k != KindInt && k != KindLong && k != KindDouble {
				return fail("%s at %d: kind %s", in.Op, in.Offset, k)
			}
		case OpWiden:
			if !Kind(in.Operands[0]).IsNumeric() {
				return fail("WIDEN at %d: kind %s", in.Offset, Kind(in.Operands[0]))
			}
		case OpIf, OpIfCmp:
			if Cond(in.Operands[0]) > CondLe {
				return fail("%s at %d: bad condition %d", in.Op, in.Offset, in.Operands[0])
			}
			targets = append(targets, in.Operands[1])
		case OpGoto, OpIfNull, OpIfNonNull, OpIfRefEq, OpIfRefNe:
			targets = append(targets, in.Operands[0])
		case OpTableSwitch, OpLookupSwitch, OpStringSwitch:
			idx := in.Operands[0]
			if idx >= len(m.switches) {
				return fail("switch %d out of range at %d", idx, in.Offset)
			}
			want := map[Opcode]SwitchKind{OpTableSwitch: SwitchDense, OpLookupSwitch: SwitchSparse, OpStringSwitch: SwitchString}[in.Op]
			if m.switches[idx].Kind != want {
				return fail("%s at %d uses a switch of kind %d", in.Op, in.Offset, m.switches[idx].Kind)
			}
			targets = append(targets, m.switches[idx].allTargets()...)
		case OpLoadClass:
			ref, err := refAt(in, RefClass, RefType)
			if err != nil {
				return err
			}
			if ref.mirror = l.ct.mirrors[ref.typ]; ref.mirror == nil {
				ref.mirror = &Object{class: l.ct.classClass, native: ref.typ}
				l.ct.mirrors[ref.typ] = ref.mirror
			}
		case OpNew:
			ref, err := refAt(in, RefClass)
			if err != nil {
				return err
			}
			if ref.class.IsAbstract() {
				return fail("NEW of abstract %s at %d", ref.class.Name, in.Offset)
			}
			if ref.class.Flags&ClassHandle != 0 {
				return fail("NEW of system handle %s at %d", ref.class.Name, in.Offset)
			}
		case OpGetField, OpPutField:
			if _, err := refAt(in, RefField); err != nil {
				return err
			}
		case OpInstanceOf, OpCheckCast:
			ref, err := refAt(in, RefClass, RefType)
			if err != nil {
				return err
			}
			if ref.typ.IsPrimitive() {
				return fail("%s at %d of primitive %s", in.Op, in.Offset, ref.typ)
			}
		case OpNewArray:
			ref, err := refAt(in, RefClass, RefType)
			if err != nil {
				return err
			}
			if ref.typ == TypeVoid {
				return fail("NEW_ARRAY of void at %d", in.Offset)
			}
			ref.array = l.ct.ArrayOf(ref.typ)
		case OpInvokeVirtual, OpInvokeInterface, OpInvokeSpecial, OpInvokeStatic:
			ref, err := refAt(in, RefMethod)
			if err != nil {
				return err
			}
			if err := l.resolveCall(m, in, ref); err != nil {
				return err
			}
		case OpTry, OpEndFinally:
			if in.Operands[0] >= len(m.regions) {
				return fail("%s at %d: region %d out of range", in.Op, in.Offset, in.Operands[0])
			}
		case OpLeave:
			if in.Operands[0] >= len(m.regions) {
				return fail("LEAVE at %d: region %d out of range", in.Offset, in.Operands[0])
			}
			targets = append(targets, in.Operands[1])
		}
	}

	for i, region := range m.regions {
		if !boundary[region.Start] || Opcode(m.Code[region.Start]) != OpTry ||
			int(m.Code[region.Start+1])|int(m.Code[region.Start+2])<<8 != i {
			return fail("region %d does not start with its TRY", i)
		}
		if region.End < region.Start || region.End > len(m.Code) {
			return fail("region %d ends at %d", i, region.End)
		}
		for _, h := range region.Handlers {
			targets = append(targets, h.Entry)
		}
		if region.Finally >= 0 {
			targets = append(targets, region.Finally)
		}
	}

	for _, t := range targets {
		if !boundary[t] {
			return fail("branch target %d is not an instruction", t)
		}
	}
	return nil
}

// resolveCall checks a call site. Virtual and interface calls must resolve
// in the static owner's table; static and special calls bind their exact
// target now.
func (l *linker) resolveCall(m *Method, in Instruction, ref *resolvedRef) error {
	switch in.Op {
	case OpInvokeVirtual, OpInvokeInterface:
		target := ref.class.vtable.Lookup(ref.sig)
		if target == nil {
			return &LinkError{
				Class:  m.Class.Name,
				Member: m.Signature(),
				Err:    fmt.Errorf("%w: %s.%s at %d", ErrUnresolvedMethod, ref.class.Name, ref.sig, in.Offset),
			}
		}
		ref.method = target
	case OpInvokeSpecial, OpInvokeStatic:
		static := in.Op == OpInvokeStatic
		for c := ref.class; c != nil; c = c.Super {
			if cand := c.methods[ref.sig]; cand != nil && cand.IsStatic() == static {
				ref.method = cand
				break
			}
			if strings.HasPrefix(ref.sig, "<init>") {
				break
			}
		}
		if ref.method == nil || ref.method.IsAbstract() {
			return &LinkError{
				Class:  m.Class.Name,
				Member: m.Signature(),
				Err:    fmt.Errorf("%w: %s %s.%s at %d", ErrUnresolvedMethod, in.Op, ref.class.Name, ref.sig, in.Offset),
			}
		}
	}
	return nil
}

// EntryPoints returns the classes declaring a static method name+desc,
// sorted by name.
func (ct *ClassTable) EntryPoints(name, desc string) []*Class {
	var out []*Class
	for _, c := range ct.order {
		if m := c.methods[name+desc]; m != nil && m.IsStatic() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
