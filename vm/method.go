package vm

import (
	"fmt"
	"strings"
)

// Method is a linked method or constructor.
type Method struct {
	Name       string
	Descriptor string
	Class      *Class
	Flags      MethodFlags
	Params     []*Type
	Return     *Type
	MaxLocals  int
	Code       []byte

	literals []Value
	refs     []*resolvedRef
	switches []*SwitchTable
	regions  []*ExceptionRegion
	native   NativeFunc
}

// NativeFunc implements a method in Go. For instance methods args[0] is the
// receiver. Returning *Error or *Fault raises a fault in the caller; any
// other error is fatal.
type NativeFunc func(in *Interpreter, args []Value) (Value, error)

// Signature returns name + descriptor, the key used for resolution.
func (m *Method) Signature() string { return m.Name + m.Descriptor }

func (m *Method) IsStatic() bool      { return m.Flags&MethodStatic != 0 }
func (m *Method) IsAbstract() bool    { return m.Flags&MethodAbstract != 0 }
func (m *Method) IsNative() bool      { return m.native != nil }
func (m *Method) IsPublic() bool      { return m.Flags&MethodPublic != 0 }
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// ArgSlots returns the number of argument values, receiver included.
func (m *Method) ArgSlots() int {
	if m.IsStatic() {
		return len(m.Params)
	}
	return len(m.Params) + 1
}

func (m *Method) String() string {
	return m.Class.Name + "." + m.Signature()
}

// Regions returns the method's exception regions in definition order.
func (m *Method) Regions() []*ExceptionRegion { return m.regions }

// Disassemble renders the method's code.
func (m *Method) Disassemble() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (locals=%d)\n", m, m.MaxLocals)
	switch {
	case m.native != nil:
		sb.WriteString("  <native>\n")
		return sb.String()
	case m.IsAbstract():
		sb.WriteString("  <abstract>\n")
		return sb.String()
	}
	for _, line := range strings.Split(Disassemble(m.Code), "\n") {
		sb.WriteString("  " + line + "\n")
	}
	for i, r := range m.regions {
		fmt.Fprintf(&sb, "  region %d [%04d,%04d)", i, r.Start, r.End)
		for _, h := range r.Handlers {
			name := "any"
			if h.Catch != nil {
				name = h.Catch.Name
			}
			fmt.Fprintf(&sb, " catch %s -> %04d", name, h.Entry)
		}
		if r.Finally >= 0 {
			fmt.Fprintf(&sb, " finally -> %04d", r.Finally)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Constructor is a reflective handle on a declared constructor.
type Constructor struct {
	Class  *Class
	Params []*Type
	Method *Method
}

func (c *Constructor) String() string {
	return c.Class.Name + ".<init>" + paramKey(c.Method.Descriptor)
}

// ---------------------------------------------------------------------------
// Resolved references
// ---------------------------------------------------------------------------

// resolvedRef is a RefDef after linking.
type resolvedRef struct {
	kind   RefKind
	class  *Class
	typ    *Type
	field  *Field
	method *Method // exact target for static and special calls
	sig    string
	params []*Type
	ret    *Type
	array  *Type   // NEW_ARRAY
	mirror *Object // LOAD_CLASS
}

// ExceptionRegion is a linked RegionDef.
type ExceptionRegion struct {
	Start    int
	End      int
	Handlers []Handler
	Finally  int
}

// Handler is one linked catch filter. A nil Catch matches every fault.
type Handler struct {
	Catch *Class
	Entry int
}

// matches returns the entry of the first handler whose filter accepts a
// fault of class c.
func (r *ExceptionRegion) matches(c *Class) (int, bool) {
	for _, h := range r.Handlers {
		if h.Catch == nil || c.IsSubclassOf(h.Catch) {
			return h.Entry, true
		}
	}
	return 0, false
}
