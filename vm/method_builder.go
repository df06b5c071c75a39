package vm

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// MethodBuilder: Helper for constructing method definitions
// ---------------------------------------------------------------------------

// MethodBuilder assembles the code and side tables of a MethodDef. Jump
// operands are patched when their label is marked; switch and region
// offsets are absolute and filled in by Build.
type MethodBuilder struct {
	def      MethodDef
	bytes    []byte
	switches []pendingSwitch
	regions  []*Region
}

// NewMethodBuilder creates a builder for a method. MaxLocals starts at the
// number of argument slots the descriptor needs.
func NewMethodBuilder(name, desc string, flags MethodFlags) *MethodBuilder {
	b := &MethodBuilder{
		def:   MethodDef{Name: name, Descriptor: desc, Flags: flags},
		bytes: make([]byte, 0, 64),
	}
	if params, _, err := SplitMethodDescriptor(desc); err == nil {
		b.def.MaxLocals = len(params)
		if flags&MethodStatic == 0 {
			b.def.MaxLocals++
		}
	}
	return b
}

// SetMaxLocals sets the size of the local variable array.
func (b *MethodBuilder) SetMaxLocals(n int) *MethodBuilder {
	b.def.MaxLocals = n
	return b
}

// Len returns the current code length.
func (b *MethodBuilder) Len() int {
	return len(b.bytes)
}

// Emit appends an opcode with no operands.
func (b *MethodBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitByte appends an opcode with a single byte operand.
func (b *MethodBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitKind appends an arithmetic instruction operating on kind.
func (b *MethodBuilder) EmitKind(op Opcode, kind Kind) {
	b.bytes = append(b.bytes, byte(op), byte(kind))
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *MethodBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// EmitInc appends INC local, delta.
func (b *MethodBuilder) EmitInc(local byte, delta int8) {
	b.bytes = append(b.bytes, byte(OpInc), local, byte(delta))
}

// PushInt appends the shortest instruction that pushes v.
func (b *MethodBuilder) PushInt(v int32) {
	if v >= math.MinInt8 && v <= math.MaxInt8 {
		b.bytes = append(b.bytes, byte(OpPushInt8), byte(int8(v)))
		return
	}
	b.bytes = append(b.bytes, byte(OpPushInt32))
	b.bytes = binary.LittleEndian.AppendUint32(b.bytes, uint32(v))
}

// Load appends LOAD local.
func (b *MethodBuilder) Load(local byte) { b.EmitByte(OpLoad, local) }

// Store appends STORE local.
func (b *MethodBuilder) Store(local byte) { b.EmitByte(OpStore, local) }

// ---------------------------------------------------------------------------
// Side tables
// ---------------------------------------------------------------------------

// AddLiteral adds a literal to the table and returns its index.
func (b *MethodBuilder) AddLiteral(ld LiteralDef) uint16 {
	for i, existing := range b.def.Literals {
		if existing == ld {
			return uint16(i)
		}
	}
	b.def.Literals = append(b.def.Literals, ld)
	return uint16(len(b.def.Literals) - 1)
}

// PushLiteral appends PUSH_LITERAL for ld.
func (b *MethodBuilder) PushLiteral(ld LiteralDef) {
	b.EmitUint16(OpPushLiteral, b.AddLiteral(ld))
}

// PushString appends PUSH_LITERAL for a string constant.
func (b *MethodBuilder) PushString(s string) {
	b.PushLiteral(LiteralDef{Kind: LiteralString, Str: s})
}

// AddRef adds a ref to the table and returns its index. Equal refs share
// an index.
func (b *MethodBuilder) AddRef(rd RefDef) uint16 {
	for i, existing := range b.def.Refs {
		if existing == rd {
			return uint16(i)
		}
	}
	b.def.Refs = append(b.def.Refs, rd)
	return uint16(len(b.def.Refs) - 1)
}

// EmitRef appends an instruction whose operand indexes rd.
func (b *MethodBuilder) EmitRef(op Opcode, rd RefDef) {
	b.EmitUint16(op, b.AddRef(rd))
}

// ClassRef names a class.
func ClassRef(name string) RefDef { return RefDef{Kind: RefClass, Class: name} }

// TypeRef names a type by field descriptor.
func TypeRef(desc string) RefDef { return RefDef{Kind: RefType, Descriptor: desc} }

// FieldRef names a field searched from class.
func FieldRef(class, name, desc string) RefDef {
	return RefDef{Kind: RefField, Class: class, Name: name, Descriptor: desc}
}

// MethodRef names a method searched from class.
func MethodRef(class, name, desc string) RefDef {
	return RefDef{Kind: RefMethod, Class: class, Name: name, Descriptor: desc}
}

// ---------------------------------------------------------------------------
// Label management for jumps
// ---------------------------------------------------------------------------

// Label represents a code position that may not be known yet.
type Label struct {
	resolved bool
	position int   // target, once resolved
	refs     []int // jump operands waiting for the target
}

// NewLabel creates an unresolved label.
func (b *MethodBuilder) NewLabel() *Label {
	return &Label{refs: make([]int, 0, 2)}
}

// Mark resolves a label to the current position.
func (b *MethodBuilder) Mark(label *Label) {
	if label.resolved {
		panic("label already resolved")
	}
	label.resolved = true
	label.position = len(b.bytes)

	for _, ref := range label.refs {
		offset := label.position - (ref + 2) // offset from after the operand
		b.bytes[ref] = byte(offset)
		b.bytes[ref+1] = byte(offset >> 8)
	}
	label.refs = nil
}

func (b *MethodBuilder) emitOffset(label *Label) {
	if label.resolved {
		offset := label.position - (len(b.bytes) + 2)
		b.bytes = append(b.bytes, byte(offset), byte(offset>>8))
		return
	}
	label.refs = append(label.refs, len(b.bytes))
	b.bytes = append(b.bytes, 0, 0)
}

// EmitJump appends GOTO or a null/reference test branching to label.
func (b *MethodBuilder) EmitJump(op Opcode, label *Label) {
	b.bytes = append(b.bytes, byte(op))
	b.emitOffset(label)
}

// EmitIf appends IF or IF_CMP with cond, branching to label.
func (b *MethodBuilder) EmitIf(op Opcode, cond Cond, label *Label) {
	b.bytes = append(b.bytes, byte(op), byte(cond))
	b.emitOffset(label)
}

func (l *Label) target() int {
	if l == nil {
		return -1
	}
	if !l.resolved {
		panic("unresolved label")
	}
	return l.position
}

// ---------------------------------------------------------------------------
// Switches
// ---------------------------------------------------------------------------

type pendingSwitch struct {
	def     SwitchDef
	targets []*Label
	dflt    *Label
}

func (b *MethodBuilder) addSwitch(def SwitchDef, targets []*Label, dflt *Label) uint16 {
	b.switches = append(b.switches, pendingSwitch{def: def, targets: targets, dflt: dflt})
	return uint16(len(b.switches) - 1)
}

// TableSwitch appends a TABLE_SWITCH over keys low..low+len(targets)-1. A
// nil target takes the default; a nil default falls through.
func (b *MethodBuilder) TableSwitch(low int32, targets []*Label, dflt *Label) {
	b.EmitUint16(OpTableSwitch, b.addSwitch(SwitchDef{Kind: SwitchDense, Low: low}, targets, dflt))
}

// LookupSwitch appends a LOOKUP_SWITCH. Keys must be ascending.
func (b *MethodBuilder) LookupSwitch(keys []int32, targets []*Label, dflt *Label) {
	b.EmitUint16(OpLookupSwitch, b.addSwitch(SwitchDef{Kind: SwitchSparse, Keys: keys}, targets, dflt))
}

// StringSwitch appends a STRING_SWITCH over case strings.
func (b *MethodBuilder) StringSwitch(cases []string, targets []*Label, dflt *Label) {
	b.EmitUint16(OpStringSwitch, b.addSwitch(SwitchDef{Kind: SwitchString, Strings: cases}, targets, dflt))
}

// ---------------------------------------------------------------------------
// Exception regions
// ---------------------------------------------------------------------------

// Region is an exception region under construction.
type Region struct {
	index    uint16
	start    int
	end      int
	catches  []string
	entries  []*Label
	finally  *Label
	finished bool
}

// Index returns the region's table index.
func (r *Region) Index() uint16 { return r.index }

// Catch adds a handler for catchType; "" catches everything. Handlers are
// tested in the order they are added.
func (r *Region) Catch(catchType string, entry *Label) *Region {
	r.catches = append(r.catches, catchType)
	r.entries = append(r.entries, entry)
	return r
}

// Finally sets the entry of the region's finally body.
func (r *Region) Finally(entry *Label) *Region {
	r.finally = entry
	return r
}

// Try appends TRY for a new region.
func (b *MethodBuilder) Try() *Region {
	r := &Region{index: uint16(len(b.regions)), start: len(b.bytes), end: -1}
	b.regions = append(b.regions, r)
	b.EmitUint16(OpTry, r.index)
	return r
}

// EndTry closes the protected range of r at the current position.
func (b *MethodBuilder) EndTry(r *Region) {
	r.end = len(b.bytes)
	r.finished = true
}

// Leave appends LEAVE r, continuing at target.
func (b *MethodBuilder) Leave(r *Region, target *Label) {
	b.bytes = append(b.bytes, byte(OpLeave), byte(r.index), byte(r.index>>8))
	b.emitOffset(target)
}

// EndFinally appends END_FINALLY r.
func (b *MethodBuilder) EndFinally(r *Region) {
	b.EmitUint16(OpEndFinally, r.index)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

// Build resolves labels into the side tables and returns the definition.
// It panics if a label used by a switch or region was never marked.
func (b *MethodBuilder) Build() MethodDef {
	def := b.def
	def.Code = append([]byte(nil), b.bytes...)
	def.Switches = nil
	for _, ps := range b.switches {
		sd := ps.def
		sd.Targets = make([]int, len(ps.targets))
		for i, l := range ps.targets {
			sd.Targets[i] = l.target()
		}
		sd.Default = ps.dflt.target()
		def.Switches = append(def.Switches, sd)
	}
	def.Regions = nil
	for _, r := range b.regions {
		rd := RegionDef{Start: r.start, End: r.end, Finally: r.finally.target()}
		if !r.finished {
			rd.End = len(b.bytes)
		}
		for i, catchType := range r.catches {
			rd.Handlers = append(rd.Handlers, HandlerDef{CatchType: catchType, Entry: r.entries[i].target()})
		}
		def.Regions = append(def.Regions, rd)
	}
	return def
}
