package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Fault kinds
// ---------------------------------------------------------------------------

// FaultKind classifies faults raised by core operations before they are
// turned into throwable objects.
type FaultKind uint8

const (
	FaultIndexOutOfRange FaultKind = iota + 1
	FaultInvalidLength
	FaultArrayStoreTypeMismatch
	FaultNoSuchConstructor
	FaultNoSuchField
	FaultConstructorInvocationFailure
	FaultNullReference
	FaultArithmetic
	FaultClassCast
	FaultIllegalArgument
	FaultInstantiation
	FaultStackOverflow
)

var faultInfo = map[FaultKind]struct{ name, class string }{
	FaultIndexOutOfRange:              {"IndexOutOfRange", "java/lang/ArrayIndexOutOfBoundsException"},
	FaultInvalidLength:                {"InvalidLength", "java/lang/NegativeArraySizeException"},
	FaultArrayStoreTypeMismatch:       {"ArrayStoreTypeMismatch", "java/lang/ArrayStoreException"},
	FaultNoSuchConstructor:            {"NoSuchConstructor", "java/lang/NoSuchMethodException"},
	FaultNoSuchField:                  {"NoSuchField", "java/lang/NoSuchFieldException"},
	FaultConstructorInvocationFailure: {"ConstructorInvocationFailure", "java/lang/reflect/InvocationTargetException"},
	FaultNullReference:                {"NullReference", "java/lang/NullPointerException"},
	FaultArithmetic:                   {"Arithmetic", "java/lang/ArithmeticException"},
	FaultClassCast:                    {"ClassCast", "java/lang/ClassCastException"},
	FaultIllegalArgument:              {"IllegalArgument", "java/lang/IllegalArgumentException"},
	FaultInstantiation:                {"Instantiation", "java/lang/InstantiationException"},
	FaultStackOverflow:                {"StackOverflow", "java/lang/StackOverflowError"},
}

func (k FaultKind) String() string {
	if info, ok := faultInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("FaultKind(%d)", uint8(k))
}

// ClassName returns the system throwable class that represents k inside
// running code.
func (k FaultKind) ClassName() string {
	return faultInfo[k].class
}

// Error is a fault raised by a core operation (array access, reflection,
// arithmetic). When it crosses into running code the interpreter converts
// it into an instance of Kind.ClassName(), so handlers can catch it.
type Error struct {
	Kind  FaultKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += " (caused by " + e.Cause.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so the Err* values below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == ""
}

func newError(kind FaultKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrIndexOutOfRange              = &Error{Kind: FaultIndexOutOfRange}
	ErrInvalidLength                = &Error{Kind: FaultInvalidLength}
	ErrArrayStoreTypeMismatch       = &Error{Kind: FaultArrayStoreTypeMismatch}
	ErrNoSuchConstructor            = &Error{Kind: FaultNoSuchConstructor}
	ErrNoSuchField                  = &Error{Kind: FaultNoSuchField}
	ErrConstructorInvocationFailure = &Error{Kind: FaultConstructorInvocationFailure}
	ErrNullReference                = &Error{Kind: FaultNullReference}
)

// ---------------------------------------------------------------------------
// Fatal errors
// ---------------------------------------------------------------------------

var (
	// ErrUnresolvedMethod reports a call whose signature is declared nowhere
	// in the receiver's class, superclass chain or interface closure. It is
	// fatal and never visible to handlers.
	ErrUnresolvedMethod = errors.New("unresolved method")

	// ErrClassNotFound reports a reference to a class missing from the set.
	ErrClassNotFound = errors.New("class not found")

	// ErrMalformed reports metadata or code that violates the front-end
	// contract.
	ErrMalformed = errors.New("malformed class metadata")

	// ErrNoEntryPoint reports a missing static entry method.
	ErrNoEntryPoint = errors.New("no entry point")
)

// LinkError locates a fatal problem found while linking a class set.
type LinkError struct {
	Class  string
	Member string
	Err    error
}

func (e *LinkError) Error() string {
	where := e.Class
	if e.Member != "" {
		where += "." + e.Member
	}
	return fmt.Sprintf("link %s: %v", where, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

func linkErrorf(class, member string, base error, format string, args ...any) *LinkError {
	return &LinkError{
		Class:  class,
		Member: member,
		Err:    fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...)),
	}
}

// ---------------------------------------------------------------------------
// Thrown faults
// ---------------------------------------------------------------------------

// Location names an instruction: the method that raised a fault and the
// byte offset of the raising instruction (-1 inside native code).
type Location struct {
	Class  string
	Method string
	Offset int
}

func (l Location) String() string {
	if l.Class == "" {
		return "<unknown>"
	}
	if l.Offset < 0 {
		return fmt.Sprintf("%s.%s (native)", l.Class, l.Method)
	}
	return fmt.Sprintf("%s.%s @%d", l.Class, l.Method, l.Offset)
}

// Fault is a throwable object in flight. Origin is where it was first raised
// or last re-raised.
type Fault struct {
	Object *Object
	Origin Location
}

func (f *Fault) Error() string {
	if msg := f.Message(); msg != "" {
		return f.Object.class.Name + ": " + msg
	}
	return f.Object.class.Name
}

// Class returns the runtime class of the thrown object.
func (f *Fault) Class() *Class { return f.Object.class }

// Message returns the throwable's message text, or "" when it has none.
func (f *Fault) Message() string {
	return throwableMessage(f.Object)
}

// UncaughtFault reports a fault that propagated past the outermost frame.
type UncaughtFault struct {
	Type    string
	Message string
	Origin  Location
	Cause   *UncaughtFault
}

func (u *UncaughtFault) Error() string {
	msg := "uncaught " + u.Type
	if u.Message != "" {
		msg += ": " + u.Message
	}
	msg += " at " + u.Origin.String()
	if u.Cause != nil {
		msg += "; caused by " + u.Cause.Type
		if u.Cause.Message != "" {
			msg += ": " + u.Cause.Message
		}
	}
	return msg
}

func newUncaught(f *Fault) *UncaughtFault {
	u := &UncaughtFault{
		Type:    f.Object.class.Name,
		Message: f.Message(),
		Origin:  f.Origin,
	}
	if cause := throwableCause(f.Object); cause != nil && cause != f.Object {
		u.Cause = &UncaughtFault{
			Type:    cause.class.Name,
			Message: throwableMessage(cause),
		}
	}
	return u
}
