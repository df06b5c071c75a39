package vm

import "sort"

// ClassFlags describe a class or interface.
type ClassFlags uint16

const (
	ClassInterface ClassFlags = 1 << iota
	ClassAbstract
	ClassFinal
	// ClassHandle marks classes whose instances only the system library
	// creates; NEW of one fails to link.
	ClassHandle
)

// Class is the linked form of a class or interface. It is immutable once
// Link returns.
type Class struct {
	Name       string
	Super      *Class // nil only for java/lang/Object
	Interfaces []*Class
	Flags      ClassFlags

	table *ClassTable
	typ   *Type

	declared []*Field          // own fields in declaration order
	slots    []*Field          // every field, inherited first
	fields   map[string]*Field // visible fields by name
	template []Value           // initial slot values for new instances

	methods map[string]*Method // declared methods by signature
	order   []*Method          // declared methods in declaration order
	ctors   map[string]*Constructor
	vtable  *VTable

	// ancestors holds c itself, every superclass and the transitive
	// closure of implemented interfaces.
	ancestors map[*Class]struct{}
}

// Field is a declared instance field.
type Field struct {
	Name  string
	Type  *Type
	Owner *Class
	Slot  int

	initial Value
}

func (c *Class) String() string { return c.Name }

func (c *Class) IsInterface() bool { return c.Flags&ClassInterface != 0 }
func (c *Class) IsAbstract() bool  { return c.Flags&(ClassAbstract|ClassInterface) != 0 }

// Type returns the reference type whose values are instances of c.
func (c *Class) Type() *Type { return c.typ }

// Table returns the class table c was linked into.
func (c *Class) Table() *ClassTable { return c.table }

// IsSubclassOf reports whether other is c, one of its superclasses, or an
// interface in its transitive closure.
func (c *Class) IsSubclassOf(other *Class) bool {
	_, ok := c.ancestors[other]
	return ok
}

// Ancestors returns the names of every class and interface c is a kind of,
// sorted.
func (c *Class) Ancestors() []string {
	names := make([]string, 0, len(c.ancestors))
	for a := range c.ancestors {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// Field looks up a visible field by name, or returns nil.
func (c *Class) Field(name string) *Field { return c.fields[name] }

// DeclaredFields returns the fields c declares itself.
func (c *Class) DeclaredFields() []*Field { return c.declared }

// NumSlots returns the instance size in slots.
func (c *Class) NumSlots() int { return len(c.slots) }

// DeclaredMethod returns the method c itself declares for name and
// descriptor, or nil.
func (c *Class) DeclaredMethod(name, desc string) *Method {
	return c.methods[name+desc]
}

// Methods returns c's declared methods in declaration order.
func (c *Class) Methods() []*Method { return c.order }

// Resolve finds the implementation of a signature for instances of c:
// c's own methods first, then the superclass chain, then the interface
// closure.
func (c *Class) Resolve(name, desc string) (*Method, error) {
	if m := c.vtable.Lookup(name + desc); m != nil {
		return m, nil
	}
	return nil, &LinkError{Class: c.Name, Member: name + desc, Err: ErrUnresolvedMethod}
}

// VTable returns the precomputed resolution table.
func (c *Class) VTable() *VTable { return c.vtable }

// New allocates an instance with field initializers applied but without
// running any constructor.
func (c *Class) New() *Object { return newObject(c) }

// IsInstanceOf reports whether v refers to an instance of t. Null is never
// an instance.
func IsInstanceOf(v Value, t *Type) bool {
	if v.kind != KindRef || v.ref == nil {
		return false
	}
	return IsAssignable(v.ref.Type(), t)
}
