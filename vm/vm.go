package vm

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jcore.vm")

// ---------------------------------------------------------------------------
// VM: a linked class set ready to run
// ---------------------------------------------------------------------------

// VM couples a linked class table with execution settings. Each call to
// Invoke runs on a fresh interpreter, so a VM may serve concurrent callers.
type VM struct {
	Classes  *ClassTable
	MaxDepth int
}

type options struct {
	natives  map[string]NativeFunc
	maxDepth int
}

// Option configures Load.
type Option func(*options)

// WithNatives adds Go implementations for methods flagged MethodNative,
// keyed by "class.name(descriptor)".
func WithNatives(natives map[string]NativeFunc) Option {
	return func(o *options) {
		if o.natives == nil {
			o.natives = make(map[string]NativeFunc)
		}
		for k, fn := range natives {
			o.natives[k] = fn
		}
	}
}

// WithMaxDepth sets the call depth at which StackOverflowError is raised.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// Load links defs together with the system library.
func Load(defs []*ClassDef, opts ...Option) (*VM, error) {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	ct, err := Link(defs, o.natives)
	if err != nil {
		return nil, err
	}
	return &VM{Classes: ct, MaxDepth: o.maxDepth}, nil
}

// NewInterpreter creates an interpreter with the VM's settings.
func (vm *VM) NewInterpreter() *Interpreter {
	in := NewInterpreter(vm.Classes)
	in.MaxDepth = vm.MaxDepth
	return in
}

// Invoke runs the static method className.name(desc). A fault that
// propagates past the outermost frame is returned as *UncaughtFault.
func (vm *VM) Invoke(className, name, desc string, args ...Value) (Value, error) {
	c := vm.Classes.Lookup(className)
	if c == nil {
		return Void, fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	m := c.DeclaredMethod(name, desc)
	if m == nil || !m.IsStatic() {
		return Void, fmt.Errorf("%w: %s.%s%s", ErrNoEntryPoint, className, name, desc)
	}

	v, err := vm.NewInterpreter().Invoke(m, args...)
	var fault *Fault
	if errors.As(err, &fault) {
		u := newUncaught(fault)
		log.Debugf("%s: %v", m, u)
		return Void, u
	}
	return v, err
}

// RunEntry invokes a static entry point with descriptor ()I and returns
// its status.
func (vm *VM) RunEntry(className, name string) (int32, error) {
	v, err := vm.Invoke(className, name, "()I")
	if err != nil {
		return 0, err
	}
	return v.AsInt(), nil
}
