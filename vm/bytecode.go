package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Opcode is a single bytecode instruction.
type Opcode byte

// Stack Operations
const (
	OpNop  Opcode = 0x00
	OpPop  Opcode = 0x01
	OpDup  Opcode = 0x02
	OpSwap Opcode = 0x03
)

// Constants
const (
	OpPushNull    Opcode = 0x10
	OpPushInt8    Opcode = 0x11 // push int (8-bit signed immediate)
	OpPushInt32   Opcode = 0x12 // push int (32-bit signed immediate)
	OpPushLiteral Opcode = 0x13 // push literal (16-bit index)
	OpLoadClass   Opcode = 0x14 // push class mirror (16-bit type ref)
)

// Locals
const (
	OpLoad  Opcode = 0x20 // push local (8-bit index)
	OpStore Opcode = 0x21 // pop into local (8-bit index)
	OpInc   Opcode = 0x22 // add 8-bit signed immediate to int local
)

// Arithmetic. The kind operand names the operating kind; both operands are
// widened to it before the operation.
const (
	OpAdd   Opcode = 0x30
	OpSub   Opcode = 0x31
	OpMul   Opcode = 0x32
	OpDiv   Opcode = 0x33
	OpRem   Opcode = 0x34
	OpNeg   Opcode = 0x35
	OpWiden Opcode = 0x36
	OpCmp   Opcode = 0x37 // three-way compare, pushes -1, 0 or 1
)

// Control Flow. Jump offsets are 16-bit signed and relative to the end of
// the instruction; switch targets are absolute.
const (
	OpGoto         Opcode = 0x40
	OpIf           Opcode = 0x41 // compare int with zero
	OpIfCmp        Opcode = 0x42 // compare two ints
	OpIfNull       Opcode = 0x43
	OpIfNonNull    Opcode = 0x44
	OpIfRefEq      Opcode = 0x45
	OpIfRefNe      Opcode = 0x46
	OpTableSwitch  Opcode = 0x47 // 16-bit switch index
	OpLookupSwitch Opcode = 0x48
	OpStringSwitch Opcode = 0x49
)

// Objects. Operands are 16-bit ref indexes.
const (
	OpNew        Opcode = 0x50
	OpGetField   Opcode = 0x51
	OpPutField   Opcode = 0x52
	OpInstanceOf Opcode = 0x53
	OpCheckCast  Opcode = 0x54
)

// Invocation
const (
	OpInvokeVirtual   Opcode = 0x60
	OpInvokeInterface Opcode = 0x61
	OpInvokeSpecial   Opcode = 0x62
	OpInvokeStatic    Opcode = 0x63
	OpReturn          Opcode = 0x64
	OpReturnValue     Opcode = 0x65
)

// Arrays
const (
	OpNewArray    Opcode = 0x70 // 16-bit element type ref
	OpArrayLoad   Opcode = 0x71
	OpArrayStore  Opcode = 0x72
	OpArrayLength Opcode = 0x73
)

// Exceptions. Operands are 16-bit region indexes.
const (
	OpThrow      Opcode = 0x80
	OpTry        Opcode = 0x81 // activate region
	OpLeave      Opcode = 0x82 // leave region (region, jump)
	OpEndFinally Opcode = 0x83 // finish a finally body
)

// Cond is the comparison of an IF or IF_CMP instruction.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondGe
	CondGt
	CondLe
)

var condNames = [...]string{"eq", "ne", "lt", "ge", "gt", "le"}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return fmt.Sprintf("cond(%d)", uint8(c))
}

func (c Cond) test(a, b int64) bool {
	switch c {
	case CondEq:
		return a == b
	case CondNe:
		return a != b
	case CondLt:
		return a < b
	case CondGe:
		return a >= b
	case CondGt:
		return a > b
	case CondLe:
		return a <= b
	}
	return false
}

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
//
// Operands spells the operand layout, one letter per operand:
//
//	b  u8 local index     i  i8 immediate     k  u8 kind     c  u8 cond
//	h  u16 table index    w  i32 immediate    j  i16 jump offset
type OpcodeInfo struct {
	Name     string
	Operands string
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop:  {"NOP", ""},
	OpPop:  {"POP", ""},
	OpDup:  {"DUP", ""},
	OpSwap: {"SWAP", ""},

	OpPushNull:    {"PUSH_NULL", ""},
	OpPushInt8:    {"PUSH_INT8", "i"},
	OpPushInt32:   {"PUSH_INT32", "w"},
	OpPushLiteral: {"PUSH_LITERAL", "h"},
	OpLoadClass:   {"LOAD_CLASS", "h"},

	OpLoad:  {"LOAD", "b"},
	OpStore: {"STORE", "b"},
	OpInc:   {"INC", "bi"},

	OpAdd:   {"ADD", "k"},
	OpSub:   {"SUB", "k"},
	OpMul:   {"MUL", "k"},
	OpDiv:   {"DIV", "k"},
	OpRem:   {"REM", "k"},
	OpNeg:   {"NEG", "k"},
	OpWiden: {"WIDEN", "k"},
	OpCmp:   {"CMP", "k"},

	OpGoto:         {"GOTO", "j"},
	OpIf:           {"IF", "cj"},
	OpIfCmp:        {"IF_CMP", "cj"},
	OpIfNull:       {"IF_NULL", "j"},
	OpIfNonNull:    {"IF_NONNULL", "j"},
	OpIfRefEq:      {"IF_REF_EQ", "j"},
	OpIfRefNe:      {"IF_REF_NE", "j"},
	OpTableSwitch:  {"TABLE_SWITCH", "h"},
	OpLookupSwitch: {"LOOKUP_SWITCH", "h"},
	OpStringSwitch: {"STRING_SWITCH", "h"},

	OpNew:        {"NEW", "h"},
	OpGetField:   {"GET_FIELD", "h"},
	OpPutField:   {"PUT_FIELD", "h"},
	OpInstanceOf: {"INSTANCE_OF", "h"},
	OpCheckCast:  {"CHECK_CAST", "h"},

	OpInvokeVirtual:   {"INVOKE_VIRTUAL", "h"},
	OpInvokeInterface: {"INVOKE_INTERFACE", "h"},
	OpInvokeSpecial:   {"INVOKE_SPECIAL", "h"},
	OpInvokeStatic:    {"INVOKE_STATIC", "h"},
	OpReturn:          {"RETURN", ""},
	OpReturnValue:     {"RETURN_VALUE", ""},

	OpNewArray:    {"NEW_ARRAY", "h"},
	OpArrayLoad:   {"ARRAY_LOAD", ""},
	OpArrayStore:  {"ARRAY_STORE", ""},
	OpArrayLength: {"ARRAY_LENGTH", ""},

	OpThrow:      {"THROW", ""},
	OpTry:        {"TRY", "h"},
	OpLeave:      {"LEAVE", "hj"},
	OpEndFinally: {"END_FINALLY", "h"},
}

var operandWidth = map[byte]int{'b': 1, 'i': 1, 'k': 1, 'c': 1, 'h': 2, 'w': 4, 'j': 2}

// Info returns the metadata for an opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	if !ok {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}, false
	}
	return info, true
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	info, _ := op.Info()
	return info.Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	info, _ := op.Info()
	n := 0
	for i := 0; i < len(info.Operands); i++ {
		n += operandWidth[info.Operands[i]]
	}
	return n
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// BytecodeReader
// ---------------------------------------------------------------------------

// BytecodeReader reads bytecode for validation or disassembly. Reads past
// the end return zero and set an error flag instead of panicking, since
// the reader also checks untrusted code.
type BytecodeReader struct {
	bytes []byte
	pos   int
	short bool
}

// NewBytecodeReader creates a reader for bytecode.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc}
}

func (r *BytecodeReader) Position() int { return r.pos }
func (r *BytecodeReader) HasMore() bool { return r.pos < len(r.bytes) }

// Truncated reports whether a read ran past the end of the code.
func (r *BytecodeReader) Truncated() bool { return r.short }

func (r *BytecodeReader) ReadOpcode() Opcode {
	return Opcode(r.ReadByte())
}

func (r *BytecodeReader) ReadByte() byte {
	if r.pos >= len(r.bytes) {
		r.short = true
		return 0
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

func (r *BytecodeReader) ReadInt8() int8 { return int8(r.ReadByte()) }

// ReadUint16 reads a 16-bit operand (little-endian).
func (r *BytecodeReader) ReadUint16() uint16 {
	if r.pos+2 > len(r.bytes) {
		r.short = true
		r.pos = len(r.bytes)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.bytes[r.pos:])
	r.pos += 2
	return v
}

func (r *BytecodeReader) ReadInt16() int16 { return int16(r.ReadUint16()) }

// ReadInt32 reads a 32-bit operand (little-endian).
func (r *BytecodeReader) ReadInt32() int32 {
	if r.pos+4 > len(r.bytes) {
		r.short = true
		r.pos = len(r.bytes)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.bytes[r.pos:])
	r.pos += 4
	return int32(v)
}

// Instruction is one decoded instruction. Operands holds the operand values
// in layout order; for a jump operand it holds the absolute target.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []int
	Next     int
}

// Decode reads the instruction at the reader's position.
func (r *BytecodeReader) Decode() (Instruction, error) {
	in := Instruction{Offset: r.pos}
	in.Op = r.ReadOpcode()
	info, ok := in.Op.Info()
	if !ok {
		return in, fmt.Errorf("%w: unknown opcode 0x%02x at %d", ErrMalformed, byte(in.Op), in.Offset)
	}
	for i := 0; i < len(info.Operands); i++ {
		switch info.Operands[i] {
		case 'b', 'k', 'c':
			in.Operands = append(in.Operands, int(r.ReadByte()))
		case 'i':
			in.Operands = append(in.Operands, int(r.ReadInt8()))
		case 'h':
			in.Operands = append(in.Operands, int(r.ReadUint16()))
		case 'w':
			in.Operands = append(in.Operands, int(r.ReadInt32()))
		case 'j':
			// Jump operands are always last, so the end of the operand is
			// the end of the instruction.
			off := int(r.ReadInt16())
			in.Operands = append(in.Operands, r.pos+off)
		}
	}
	if r.short {
		return in, fmt.Errorf("%w: truncated %s at %d", ErrMalformed, info.Name, in.Offset)
	}
	in.Next = r.pos
	return in, nil
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

func (in Instruction) String() string {
	info, _ := in.Op.Info()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d  %s", in.Offset, info.Name)
	for i, v := range in.Operands {
		switch info.Operands[i] {
		case 'k':
			fmt.Fprintf(&sb, " %s", Kind(v))
		case 'c':
			fmt.Fprintf(&sb, " %s", Cond(v))
		case 'j':
			fmt.Fprintf(&sb, " -> %04d", v)
		default:
			fmt.Fprintf(&sb, " %d", v)
		}
	}
	return sb.String()
}

// Disassemble returns a full disassembly of bytecode. Decoding stops at
// the first malformed instruction, which is reported on the last line.
func Disassemble(bc []byte) string {
	r := NewBytecodeReader(bc)
	var lines []string
	for r.HasMore() {
		in, err := r.Decode()
		if err != nil {
			lines = append(lines, fmt.Sprintf("%04d  <%v>", in.Offset, err))
			break
		}
		lines = append(lines, in.String())
	}
	return strings.Join(lines, "\n")
}
