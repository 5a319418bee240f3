package insts

import "github.com/sarchlab/mipsim/memaccess"

// ALUOp is the one-hot ALU operation select carried on the 12-bit alu_op
// field of the DS_TO_ES bus.
type ALUOp uint16

// ALU operations.
const (
	ALUAdd ALUOp = 1 << iota
	ALUSub
	ALUSlt
	ALUSltu
	ALUAnd
	ALUNor
	ALUOr
	ALUXor
	ALUSll
	ALUSrl
	ALUSra
	ALULui
)

// Controls are the decode-stage control signals of one instruction.
type Controls struct {
	ALUOp   ALUOp
	MemKind uint8 // memaccess load or store tag

	Src1IsSA   bool // src1 = shamt
	Src1IsPC   bool // src1 = pc
	Src2IsImm  bool // src2 = sign-extended imm
	Src2IsZImm bool // src2 = zero-extended imm
	Src2Is8    bool // src2 = 8 (link address)

	ResFromMem bool
	GRWE       bool
	MemWE      bool
	OverflowEn bool

	Dest   uint8 // 0 when the instruction writes no register
	UsesRs bool
	UsesRt bool

	IsControl bool // branch or jump, followed by a delay slot
	IsSyscall bool
}

var aluOps = map[Op]ALUOp{
	OpADD: ALUAdd, OpADDU: ALUAdd, OpSUB: ALUSub, OpSUBU: ALUSub,
	OpSLT: ALUSlt, OpSLTU: ALUSltu, OpAND: ALUAnd, OpOR: ALUOr,
	OpXOR: ALUXor, OpNOR: ALUNor,
	OpSLL: ALUSll, OpSRL: ALUSrl, OpSRA: ALUSra,
	OpSLLV: ALUSll, OpSRLV: ALUSrl, OpSRAV: ALUSra,
	OpADDI: ALUAdd, OpADDIU: ALUAdd, OpSLTI: ALUSlt, OpSLTIU: ALUSltu,
	OpANDI: ALUAnd, OpORI: ALUOr, OpXORI: ALUXor, OpLUI: ALULui,
}

var loadKinds = map[Op]memaccess.LoadKind{
	OpLW: memaccess.LoadWord, OpLB: memaccess.LoadByte,
	OpLBU: memaccess.LoadByteUnsigned, OpLH: memaccess.LoadHalf,
	OpLHU: memaccess.LoadHalfUnsigned, OpLWL: memaccess.LoadWordLeft,
	OpLWR: memaccess.LoadWordRight,
}

var storeKinds = map[Op]memaccess.StoreKind{
	OpSW: memaccess.StoreWord, OpSB: memaccess.StoreByte,
	OpSH: memaccess.StoreHalf, OpSWL: memaccess.StoreWordLeft,
	OpSWR: memaccess.StoreWordRight,
}

// LoadKind returns the access kind of a load instruction.
func (i *Instruction) LoadKind() (memaccess.LoadKind, bool) {
	k, ok := loadKinds[i.Op]
	return k, ok
}

// StoreKind returns the access kind of a store instruction.
func (i *Instruction) StoreKind() (memaccess.StoreKind, bool) {
	k, ok := storeKinds[i.Op]
	return k, ok
}

// Controls derives the decode-stage control signals of the instruction.
func (i *Instruction) Controls() Controls {
	c := Controls{ALUOp: aluOps[i.Op]}

	switch i.Op {
	case OpADD, OpSUB:
		c.OverflowEn = true
		c.setRegWrite(i.Rd)
		c.UsesRs, c.UsesRt = true, true
	case OpADDU, OpSUBU, OpSLT, OpSLTU, OpAND, OpOR, OpXOR, OpNOR,
		OpSLLV, OpSRLV, OpSRAV:
		c.setRegWrite(i.Rd)
		c.UsesRs, c.UsesRt = true, true
	case OpSLL, OpSRL, OpSRA:
		c.Src1IsSA = true
		c.setRegWrite(i.Rd)
		c.UsesRt = true

	case OpADDI:
		c.OverflowEn = true
		c.Src2IsImm = true
		c.setRegWrite(i.Rt)
		c.UsesRs = true
	case OpADDIU, OpSLTI, OpSLTIU:
		c.Src2IsImm = true
		c.setRegWrite(i.Rt)
		c.UsesRs = true
	case OpANDI, OpORI, OpXORI:
		c.Src2IsZImm = true
		c.setRegWrite(i.Rt)
		c.UsesRs = true
	case OpLUI:
		c.Src2IsZImm = true
		c.setRegWrite(i.Rt)

	case OpBEQ, OpBNE:
		c.IsControl = true
		c.UsesRs, c.UsesRt = true, true
	case OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ, OpJR:
		c.IsControl = true
		c.UsesRs = true
	case OpJ:
		c.IsControl = true
	case OpJAL:
		c.IsControl = true
		c.link(31)
	case OpJALR:
		c.IsControl = true
		c.UsesRs = true
		c.link(i.Rd)

	case OpSYSCALL:
		c.IsSyscall = true
	}

	if kind, ok := i.LoadKind(); ok {
		c.ALUOp = ALUAdd
		c.Src2IsImm = true
		c.MemKind = kind.Code()
		c.ResFromMem = true
		c.setRegWrite(i.Rt)
		c.UsesRs = true
		// LWL/LWR merge into the previous value of rt.
		c.UsesRt = kind.Unaligned()
	}

	if kind, ok := i.StoreKind(); ok {
		c.ALUOp = ALUAdd
		c.Src2IsImm = true
		c.MemKind = kind.Code()
		c.MemWE = true
		c.UsesRs, c.UsesRt = true, true
	}

	return c
}

// setRegWrite enables a register write unless the target is $zero.
func (c *Controls) setRegWrite(reg uint8) {
	if reg == 0 {
		return
	}
	c.GRWE = true
	c.Dest = reg
}

// link makes the instruction write pc+8 to reg.
func (c *Controls) link(reg uint8) {
	c.ALUOp = ALUAdd
	c.Src1IsPC = true
	c.Src2Is8 = true
	c.setRegWrite(reg)
}
