package insts

// Primary opcodes (bits [31:26]).
const (
	OpcodeSpecial = 0x00
	OpcodeRegImm  = 0x01
	OpcodeJ       = 0x02
	OpcodeJAL     = 0x03
	OpcodeBEQ     = 0x04
	OpcodeBNE     = 0x05
	OpcodeBLEZ    = 0x06
	OpcodeBGTZ    = 0x07
	OpcodeADDI    = 0x08
	OpcodeADDIU   = 0x09
	OpcodeSLTI    = 0x0A
	OpcodeSLTIU   = 0x0B
	OpcodeANDI    = 0x0C
	OpcodeORI     = 0x0D
	OpcodeXORI    = 0x0E
	OpcodeLUI     = 0x0F
	OpcodeLB      = 0x20
	OpcodeLH      = 0x21
	OpcodeLWL     = 0x22
	OpcodeLW      = 0x23
	OpcodeLBU     = 0x24
	OpcodeLHU     = 0x25
	OpcodeLWR     = 0x26
	OpcodeSB      = 0x28
	OpcodeSH      = 0x29
	OpcodeSWL     = 0x2A
	OpcodeSW      = 0x2B
	OpcodeSWR     = 0x2E
)

// SPECIAL function codes (bits [5:0]).
const (
	FunctSLL     = 0x00
	FunctSRL     = 0x02
	FunctSRA     = 0x03
	FunctSLLV    = 0x04
	FunctSRLV    = 0x06
	FunctSRAV    = 0x07
	FunctJR      = 0x08
	FunctJALR    = 0x09
	FunctSYSCALL = 0x0C
	FunctADD     = 0x20
	FunctADDU    = 0x21
	FunctSUB     = 0x22
	FunctSUBU    = 0x23
	FunctAND     = 0x24
	FunctOR      = 0x25
	FunctXOR     = 0x26
	FunctNOR     = 0x27
	FunctSLT     = 0x2A
	FunctSLTU    = 0x2B
)

// REGIMM rt codes (bits [20:16]).
const (
	RegImmBLTZ = 0x00
	RegImmBGEZ = 0x01
)

var specialOps = map[uint8]Op{
	FunctSLL: OpSLL, FunctSRL: OpSRL, FunctSRA: OpSRA,
	FunctSLLV: OpSLLV, FunctSRLV: OpSRLV, FunctSRAV: OpSRAV,
	FunctJR: OpJR, FunctJALR: OpJALR, FunctSYSCALL: OpSYSCALL,
	FunctADD: OpADD, FunctADDU: OpADDU, FunctSUB: OpSUB, FunctSUBU: OpSUBU,
	FunctAND: OpAND, FunctOR: OpOR, FunctXOR: OpXOR, FunctNOR: OpNOR,
	FunctSLT: OpSLT, FunctSLTU: OpSLTU,
}

var immOps = map[uint8]Op{
	OpcodeBEQ: OpBEQ, OpcodeBNE: OpBNE, OpcodeBLEZ: OpBLEZ, OpcodeBGTZ: OpBGTZ,
	OpcodeADDI: OpADDI, OpcodeADDIU: OpADDIU, OpcodeSLTI: OpSLTI,
	OpcodeSLTIU: OpSLTIU, OpcodeANDI: OpANDI, OpcodeORI: OpORI,
	OpcodeXORI: OpXORI, OpcodeLUI: OpLUI,
	OpcodeLB: OpLB, OpcodeLH: OpLH, OpcodeLWL: OpLWL, OpcodeLW: OpLW,
	OpcodeLBU: OpLBU, OpcodeLHU: OpLHU, OpcodeLWR: OpLWR,
	OpcodeSB: OpSB, OpcodeSH: OpSH, OpcodeSWL: OpSWL, OpcodeSW: OpSW,
	OpcodeSWR: OpSWR,
}

// Decoder decodes MIPS32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new MIPS32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit MIPS32 instruction word. Words that do not encode
// a supported instruction decode to OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Word:   word,
		Rs:     uint8((word >> 21) & 0x1F),
		Rt:     uint8((word >> 16) & 0x1F),
		Rd:     uint8((word >> 11) & 0x1F),
		Shamt:  uint8((word >> 6) & 0x1F),
		Funct:  uint8(word & 0x3F),
		Imm:    uint16(word),
		Target: word & 0x03FFFFFF,
	}

	opcode := uint8(word >> 26)

	switch opcode {
	case OpcodeSpecial:
		d.decodeSpecial(inst)
	case OpcodeRegImm:
		d.decodeRegImm(inst)
	case OpcodeJ:
		inst.Op, inst.Format = OpJ, FormatJ
	case OpcodeJAL:
		inst.Op, inst.Format = OpJAL, FormatJ
	default:
		if op, ok := immOps[opcode]; ok {
			inst.Op, inst.Format = op, FormatI
		}
	}

	return inst
}

// decodeSpecial decodes SPECIAL (opcode 0) instructions by function code.
func (d *Decoder) decodeSpecial(inst *Instruction) {
	op, ok := specialOps[inst.Funct]
	if !ok {
		return
	}

	// Shift-immediate forms require rs == 0; the rest require shamt == 0.
	switch op {
	case OpSLL, OpSRL, OpSRA:
		if inst.Rs != 0 {
			return
		}
	case OpSYSCALL:
	default:
		if inst.Shamt != 0 {
			return
		}
	}

	inst.Op, inst.Format = op, FormatR
}

// decodeRegImm decodes REGIMM (opcode 1) branches selected by rt.
func (d *Decoder) decodeRegImm(inst *Instruction) {
	switch inst.Rt {
	case RegImmBLTZ:
		inst.Op = OpBLTZ
	case RegImmBGEZ:
		inst.Op = OpBGEZ
	default:
		return
	}
	inst.Format = FormatI
}
