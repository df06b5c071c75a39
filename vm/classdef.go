package vm

// ---------------------------------------------------------------------------
// Front-end contract
// ---------------------------------------------------------------------------
//
// A front end describes each class with a ClassDef. Offsets are byte
// offsets into MethodDef.Code. Where an offset is optional, -1 means none.
// The CBOR keys are stable; class-set images depend on them.

// ClassDef describes one class or interface.
type ClassDef struct {
	Name       string      `cbor:"1,keyasint"`
	Super      string      `cbor:"2,keyasint,omitempty"` // "" means java/lang/Object
	Interfaces []string    `cbor:"3,keyasint,omitempty"`
	Flags      ClassFlags  `cbor:"4,keyasint,omitempty"`
	Fields     []FieldDef  `cbor:"5,keyasint,omitempty"`
	Methods    []MethodDef `cbor:"6,keyasint,omitempty"`
}

// FieldDef describes an instance field and its optional initializer.
type FieldDef struct {
	Name       string      `cbor:"1,keyasint"`
	Descriptor string      `cbor:"2,keyasint"`
	Initial    *LiteralDef `cbor:"3,keyasint,omitempty"`
}

// MethodFlags describe a method.
type MethodFlags uint16

const (
	MethodStatic MethodFlags = 1 << iota
	MethodAbstract
	MethodNative
	MethodPublic
)

// MethodDef describes a method or constructor. Constructors are named
// "<init>" and return V.
type MethodDef struct {
	Name       string       `cbor:"1,keyasint"`
	Descriptor string       `cbor:"2,keyasint"`
	Flags      MethodFlags  `cbor:"3,keyasint,omitempty"`
	MaxLocals  int          `cbor:"4,keyasint,omitempty"`
	Code       []byte       `cbor:"5,keyasint,omitempty"`
	Literals   []LiteralDef `cbor:"6,keyasint,omitempty"`
	Refs       []RefDef     `cbor:"7,keyasint,omitempty"`
	Switches   []SwitchDef  `cbor:"8,keyasint,omitempty"`
	Regions    []RegionDef  `cbor:"9,keyasint,omitempty"`
}

// LiteralKind selects the payload of a LiteralDef.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota + 1
	LiteralLong
	LiteralDouble
	LiteralString
	LiteralByte
	LiteralShort
	LiteralBool
	LiteralNull
)

// LiteralDef is a constant pushed by PUSH_LITERAL or used as a field
// initializer.
type LiteralDef struct {
	Kind  LiteralKind `cbor:"1,keyasint"`
	Int   int64       `cbor:"2,keyasint,omitempty"`
	Float float64     `cbor:"3,keyasint,omitempty"`
	Str   string      `cbor:"4,keyasint,omitempty"`
}

// RefKind selects what a RefDef names.
type RefKind uint8

const (
	RefClass RefKind = iota + 1
	RefType
	RefField
	RefMethod
)

// RefDef names a class, type, field or method used by an instruction.
// For RefType, Descriptor holds a field descriptor. For RefField and
// RefMethod, Class is the static owner searched from.
type RefDef struct {
	Kind       RefKind `cbor:"1,keyasint"`
	Class      string  `cbor:"2,keyasint,omitempty"`
	Name       string  `cbor:"3,keyasint,omitempty"`
	Descriptor string  `cbor:"4,keyasint,omitempty"`
}

// SwitchKind selects the dispatch strategy of a SwitchDef.
type SwitchKind uint8

const (
	// SwitchDense indexes Targets by key-Low.
	SwitchDense SwitchKind = iota + 1
	// SwitchSparse binary-searches Keys, sorted ascending.
	SwitchSparse
	// SwitchString hashes the discriminant, then compares Strings by
	// content in declaration order.
	SwitchString
)

// SwitchDef is a dispatch table. Targets are absolute offsets; a target of
// -1 in a dense table marks a padded key that takes the default. Default
// is -1 when the switch falls through to the next instruction.
type SwitchDef struct {
	Kind    SwitchKind `cbor:"1,keyasint"`
	Low     int32      `cbor:"2,keyasint,omitempty"`
	Keys    []int32    `cbor:"3,keyasint,omitempty"`
	Strings []string   `cbor:"4,keyasint,omitempty"`
	Targets []int      `cbor:"5,keyasint"`
	Default int        `cbor:"6,keyasint"`
}

// RegionDef is a protected range [Start, End). Start holds the TRY that
// activates the region. Handlers are tested in order; an empty CatchType
// catches everything. Finally is the entry of the finally body or -1.
type RegionDef struct {
	Start    int          `cbor:"1,keyasint"`
	End      int          `cbor:"2,keyasint"`
	Handlers []HandlerDef `cbor:"3,keyasint,omitempty"`
	Finally  int          `cbor:"4,keyasint"`
}

// HandlerDef is one catch filter of a region.
type HandlerDef struct {
	CatchType string `cbor:"1,keyasint,omitempty"`
	Entry     int    `cbor:"2,keyasint"`
}
