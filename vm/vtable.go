package vm

// VTable maps method signatures (name + descriptor) to the implementation
// chosen for one class. It is built once at link time, after the tables of
// the superclass and interfaces.
type VTable struct {
	class   *Class
	entries map[string]*Method
}

// Lookup returns the implementation for sig, or nil.
func (vt *VTable) Lookup(sig string) *Method {
	return vt.entries[sig]
}

// Len returns the number of signatures the class responds to.
func (vt *VTable) Len() int { return len(vt.entries) }

// Class returns the class this table belongs to.
func (vt *VTable) Class() *Class { return vt.class }

// buildVTable fills c's table in resolution order: declared methods, then
// the superclass chain, then the interface closure. Within the interface
// closure a method with a body wins over an abstract declaration.
func buildVTable(c *Class) *VTable {
	vt := &VTable{class: c, entries: make(map[string]*Method)}

	for sup := c; sup != nil; sup = sup.Super {
		for _, m := range sup.order {
			if m.IsStatic() || m.IsConstructor() {
				continue
			}
			if _, ok := vt.entries[m.Signature()]; !ok {
				vt.entries[m.Signature()] = m
			}
		}
	}

	for _, iface := range interfaceClosure(c) {
		for _, m := range iface.order {
			if m.IsStatic() || m.IsConstructor() {
				continue
			}
			sig := m.Signature()
			prev, ok := vt.entries[sig]
			if !ok || prev.IsAbstract() && prev.Class.IsInterface() && !m.IsAbstract() {
				vt.entries[sig] = m
			}
		}
	}
	return vt
}

// interfaceClosure lists every interface reachable from c, breadth first,
// starting from the interfaces named by c and then by each superclass.
func interfaceClosure(c *Class) []*Class {
	var out []*Class
	seen := make(map[*Class]bool)
	var queue []*Class
	for sup := c; sup != nil; sup = sup.Super {
		queue = append(queue, sup.Interfaces...)
	}
	for len(queue) > 0 {
		iface := queue[0]
		queue = queue[1:]
		if seen[iface] {
			continue
		}
		seen[iface] = true
		out = append(out, iface)
		queue = append(queue, iface.Interfaces...)
	}
	return out
}
